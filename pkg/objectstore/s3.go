package objectstore

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store implements Store over an S3 bucket. Uploads go through the transfer
// manager so large evidence files are chunked.
type S3Store struct {
	uploader *manager.Uploader
	bucket   string
	baseURL  string
}

// NewS3Store creates an S3-backed store. baseURL overrides the public URL
// prefix (e.g. a CDN domain); when empty the regional S3 URL is used.
func NewS3Store(client *s3.Client, bucket, region, baseURL string) *S3Store {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Store{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		baseURL:  baseURL,
	}
}

func (s *S3Store) Put(ctx context.Context, path string, body io.Reader) (Handle, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
		Body:   body,
	})
	if err != nil {
		return Handle{}, fmt.Errorf("objectstore: upload %s: %w", path, err)
	}
	return Handle{Bucket: s.bucket, Key: path}, nil
}

func (s *S3Store) PublicURL(h Handle) string {
	return s.baseURL + "/" + h.Key
}
