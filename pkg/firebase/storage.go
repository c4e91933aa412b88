package firebase

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// ObjectStorage is the upload/delete-by-key surface over the Firebase
// storage bucket. Consumers depend on their own narrow interfaces so tests
// substitute fakes.
type ObjectStorage struct {
	bucket     *storage.BucketHandle
	bucketName string
}

// NewObjectStorage wraps a bucket handle. A nil handle yields a storage that
// rejects uploads, for deployments without a configured bucket.
func NewObjectStorage(bucket *storage.BucketHandle, bucketName string) *ObjectStorage {
	return &ObjectStorage{bucket: bucket, bucketName: bucketName}
}

// Enabled reports whether a bucket is configured.
func (s *ObjectStorage) Enabled() bool {
	return s != nil && s.bucket != nil
}

// Upload streams r into the bucket under key and returns the public URL.
func (s *ObjectStorage) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	if !s.Enabled() {
		return "", fmt.Errorf("object storage is not configured")
	}
	w := s.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// Delete removes the object stored under key. A missing object is not an
// error, so retried cleanups stay idempotent.
func (s *ObjectStorage) Delete(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	err := s.bucket.Object(key).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the canonical URL for a stored object.
func (s *ObjectStorage) PublicURL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, key)
}
