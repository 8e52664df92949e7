package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/statement-insights/internal/gcs"
	"google.golang.org/api/iterator"
)

// Attrs returns the object's attributes, mapping a missing object to gcs.ErrObjectNotFound.
func (s *GCSStorageService) Attrs(ctx context.Context, bucket, key string) (gcs.ObjectAttrs, error) {
	attrs, err := s.client.Bucket(bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return gcs.ObjectAttrs{}, fmt.Errorf("attrs %s: %w", gcs.URI(bucket, key), gcs.ErrObjectNotFound)
	}
	if err != nil {
		return gcs.ObjectAttrs{}, fmt.Errorf("attrs %s: %w", gcs.URI(bucket, key), err)
	}
	return toObjectAttrs(attrs), nil
}

// DownloadToTemp copies the object into a temporary file that keeps the object's extension.
func (s *GCSStorageService) DownloadToTemp(ctx context.Context, bucket, key string) (string, error) {
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", fmt.Errorf("open GCS object reader: %w", gcs.ErrObjectNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	f, err := os.CreateTemp("", "statement-*"+path.Ext(key))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("read GCS object: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return f.Name(), nil
}

// List returns every object under prefix in the bucket's listing order.
func (s *GCSStorageService) List(ctx context.Context, bucket, prefix string) ([]gcs.ObjectAttrs, error) {
	it := s.client.Bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var out []gcs.ObjectAttrs
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", gcs.URI(bucket, prefix), err)
		}
		out = append(out, toObjectAttrs(attrs))
	}
	return out, nil
}

// SignedURL returns a V4 signed GET URL valid for expiry.
func (s *GCSStorageService) SignedURL(_ context.Context, bucket, key string, expiry time.Duration) (string, error) {
	url, err := s.client.Bucket(bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(expiry),
	})
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", gcs.URI(bucket, key), err)
	}
	return url, nil
}

func toObjectAttrs(a *storage.ObjectAttrs) gcs.ObjectAttrs {
	return gcs.ObjectAttrs{
		Bucket:      a.Bucket,
		Key:         a.Name,
		Size:        a.Size,
		ContentType: a.ContentType,
		Metadata:    a.Metadata,
		Updated:     a.Updated,
	}
}
