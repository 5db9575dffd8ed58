package history

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmorgan81/sdxlgen/internal/log"
)

// S3API is the subset of *s3.Client used by S3Storage.
type S3API interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage stores each key as its own object under Prefix.
type S3Storage struct {
	Client S3API
	Bucket string
	Prefix string
}

func (s *S3Storage) key(k string) string {
	return path.Join(s.Prefix, k+".json")
}

func (s *S3Storage) Get(ctx context.Context, key string) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("s3 storage").With("bucket", s.Bucket, "key", s.key(key))
	log.Debug("reading key")

	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Storage) Set(ctx context.Context, key string, value []byte) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("s3 storage").With("bucket", s.Bucket, "key", s.key(key))
	log.Info("writing key")

	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.key(key)),
		ContentType: aws.String("application/json"),
		Body:        bytes.NewReader(value),
	})
	return err
}
