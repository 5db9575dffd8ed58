package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dmorgan81/sdxlgen/internal/log"
)

type UploadParams struct {
	Name        string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// Uploader saves a generated image somewhere the user can fetch it.
type Uploader interface {
	Upload(context.Context, UploadParams) error
}

// FileUploader writes under Dir, or relative to the working directory when
// Dir is empty.
type FileUploader struct {
	Dir string
}

func (u *FileUploader) Upload(ctx context.Context, params UploadParams) error {
	name := params.Name
	if u.Dir != "" && !filepath.IsAbs(name) {
		name = filepath.Join(u.Dir, name)
	}
	log := log.FromContextOrDiscard(ctx).WithGroup("file")
	log.Info("writing", "file", name)

	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(name, params.Data, 0o644)
}
