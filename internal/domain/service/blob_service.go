package service

import (
	"context"
	"io"
)

// BlobService stores media and returns a stable public URL. Uploads are
// all-or-nothing: a URL is returned only once the object is fully written.
type BlobService interface {
	UploadImage(ctx context.Context, media io.Reader, namespace string) (string, error)
	UploadVideo(ctx context.Context, media io.Reader, namespace string) (string, error)
	UploadFile(ctx context.Context, media io.Reader, filename, namespace string) (string, error)

	// Delete removes an object by the URL an upload returned.
	Delete(ctx context.Context, url string) error
}
