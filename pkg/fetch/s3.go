package fetch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Fetcher copies an s3:// prefix's objects to a local directory.
type S3Fetcher interface {
	Copy(ctx context.Context, location, dest string) error
}

type s3Fetcher struct {
	client *s3.Client
}

// NewS3Fetcher wraps an already-constructed s3.Client, built from the
// caller's aws-sdk-go-v2 config at startup.
func NewS3Fetcher(client *s3.Client) S3Fetcher {
	return &s3Fetcher{client: client}
}

func (f *s3Fetcher) Copy(ctx context.Context, location, dest string) error {
	bucket, prefix := parseS3Location(location)

	paginator := s3.NewListObjectsV2Paginator(f.client, &s3.ListObjectsV2Input{
		Bucket: &bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, obj := range page.Contents {
			rel := strings.TrimPrefix(*obj.Key, prefix)
			rel = strings.TrimPrefix(rel, "/")
			if rel == "" {
				continue
			}
			if err := f.copyObject(ctx, bucket, *obj.Key, filepath.Join(dest, rel)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *s3Fetcher) copyObject(ctx context.Context, bucket, key, target string) error {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return err
	}
	defer out.Body.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	file, err := os.Create(target)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(file, out.Body)
	return err
}

func parseS3Location(location string) (bucket, prefix string) {
	trimmed := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = parts[1]
	}
	return bucket, prefix
}
