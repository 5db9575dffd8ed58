package handler

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/dmorgan81/sdxlgen/internal/history"
	"github.com/dmorgan81/sdxlgen/internal/image"
	"github.com/dmorgan81/sdxlgen/internal/prompt"
	"github.com/dmorgan81/sdxlgen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	calls []string
	err   error
}

func (s *stubGenerator) Generate(_ context.Context, p image.Params) (image.GeneratedImage, error) {
	s.calls = append(s.calls, p.Prompt())
	if s.err != nil {
		return image.GeneratedImage{}, s.err
	}
	return image.NewGeneratedImage(p.Prompt(), base64.StdEncoding.EncodeToString([]byte("png:"+p.Prompt()))), nil
}

type memUploader struct {
	uploads []store.UploadParams
}

func (m *memUploader) Upload(_ context.Context, p store.UploadParams) error {
	m.uploads = append(m.uploads, p)
	return nil
}

func newHandler(storage history.Storage, gen image.Generator, up store.Uploader) *Handler {
	hist := history.NewStore(storage)
	h := New(prompt.NewRandomizer(hist, 1), gen, hist, up)
	h.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	return h
}

func TestHandleRecordsAndUploads(t *testing.T) {
	ctx := context.Background()
	storage := history.NewMemoryStorage()
	up := &memUploader{}
	h := newHandler(storage, &stubGenerator{}, up)

	out, err := h.Handle(ctx, Input{Prompt: "cat"})
	require.NoError(t, err)
	assert.Equal(t, "cat", out.Prompt)
	assert.Equal(t, "20240506070809.png", out.Key)

	require.Len(t, up.uploads, 1)
	assert.Equal(t, []byte("png:cat"), up.uploads[0].Data)
	assert.Equal(t, "image/png", up.uploads[0].ContentType)

	reloaded := history.NewStore(storage)
	reloaded.Load(ctx)
	assert.Equal(t, []string{"cat"}, reloaded.Prompts())
}

func TestHandleEmptyPromptReplaysHistory(t *testing.T) {
	ctx := context.Background()
	storage := history.NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, history.PromptsKey, []byte(`["dog"]`)))
	gen := &stubGenerator{}
	h := newHandler(storage, gen, nil)

	out, err := h.Handle(ctx, Input{})
	require.NoError(t, err)
	assert.Equal(t, "dog", out.Prompt)
	assert.Empty(t, out.Key)
	assert.Equal(t, []string{"dog"}, gen.calls)
}

func TestHandleEmptyPromptNoHistory(t *testing.T) {
	gen := &stubGenerator{}
	h := newHandler(history.NewMemoryStorage(), gen, nil)

	_, err := h.Handle(context.Background(), Input{})
	assert.ErrorIs(t, err, prompt.ErrNoPrompts)
	assert.Empty(t, gen.calls)
}

func TestHandleGenerationFailure(t *testing.T) {
	ctx := context.Background()
	storage := history.NewMemoryStorage()
	up := &memUploader{}
	h := newHandler(storage, &stubGenerator{err: &image.APIError{Status: 500}}, up)

	_, err := h.Handle(ctx, Input{Prompt: "cat"})
	require.Error(t, err)
	assert.Empty(t, up.uploads)

	_, err = storage.Get(ctx, history.PromptsKey)
	assert.ErrorIs(t, err, history.ErrNotFound)
}
