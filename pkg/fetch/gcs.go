package fetch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSFetcher copies a gs:// prefix's objects to a local directory.
type GCSFetcher interface {
	Copy(ctx context.Context, location, dest string) error
}

type gcsFetcher struct {
	client *storage.Client
}

// NewGCSFetcher wraps an already-constructed storage.Client (the client
// itself needs ambient credentials the caller resolves at startup, the
// same split the teacher uses between constructing a pooled resource once
// and handing out its handle).
func NewGCSFetcher(client *storage.Client) GCSFetcher {
	return &gcsFetcher{client: client}
}

func (g *gcsFetcher) Copy(ctx context.Context, location, dest string) error {
	bucket, prefix := parseGSLocation(location)
	it := g.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(attrs.Name, prefix)
		rel = strings.TrimPrefix(rel, "/")
		if rel == "" {
			continue
		}
		if err := g.copyObject(ctx, bucket, attrs.Name, filepath.Join(dest, rel)); err != nil {
			return err
		}
	}
	return nil
}

func (g *gcsFetcher) copyObject(ctx context.Context, bucket, name, target string) error {
	r, err := g.client.Bucket(bucket).Object(name).NewReader(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, r)
	return err
}

func parseGSLocation(location string) (bucket, prefix string) {
	trimmed := strings.TrimPrefix(location, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	bucket = parts[0]
	if len(parts) == 2 {
		prefix = parts[1]
	}
	return bucket, prefix
}
