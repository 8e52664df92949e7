package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"time"
)

// uploadTimeout bounds a single object write.
const uploadTimeout = 2 * time.Minute

// Upload writes data to bucket/key. It assumes Application Default Credentials
// are configured (gcloud auth application-default login).
func (s *GCSStorageService) Upload(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error {
	return s.write(ctx, bucket, key, bytes.NewReader(data), contentType, metadata)
}

// UploadFile streams a local file to bucket/key, guessing the content type from the extension.
func (s *GCSStorageService) UploadFile(ctx context.Context, bucket, key, filePath string, metadata map[string]string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	return s.write(ctx, bucket, key, f, mime.TypeByExtension(path.Ext(filePath)), metadata)
}

func (s *GCSStorageService) write(ctx context.Context, bucket, key string, r io.Reader, contentType string, metadata map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}
