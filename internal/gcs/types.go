package gcs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// OwnerMetadataKey is the object metadata entry carrying the uploading user's id.
const OwnerMetadataKey = "user-id"

// ObjectAttrs describes a stored object.
type ObjectAttrs struct {
	Bucket      string
	Key         string
	Size        int64
	ContentType string
	Metadata    map[string]string
	Updated     time.Time
}

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// Attrs returns the object's attributes and user metadata.
	Attrs(ctx context.Context, bucket, key string) (ObjectAttrs, error)

	// DownloadToTemp copies the object into a new temporary file and returns its
	// path. The caller owns the file and must remove it.
	DownloadToTemp(ctx context.Context, bucket, key string) (string, error)

	// Upload writes data under key with the given content type and metadata.
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string, metadata map[string]string) error

	// UploadFile streams a local file to key.
	UploadFile(ctx context.Context, bucket, key, filePath string, metadata map[string]string) error

	// List returns every object whose key starts with prefix.
	List(ctx context.Context, bucket, prefix string) ([]ObjectAttrs, error)

	// SignedURL returns a time-limited GET URL for the object.
	SignedURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// URI formats a gs:// URI for the object.
func URI(bucket, key string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, key)
}

// ParseURI splits "gs://bucket/path/to/object" into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// FilenameFromURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/file.pdf" → "file.pdf"
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// OwnerFromKey returns the second segment of a "<prefix>/<owner>/..." key, or ""
// when the key has fewer than three segments.
func OwnerFromKey(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}
