package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"sitechat/internal/domain/service"
	"sitechat/pkg/errors"
)

const (
	publicURLPrefix = "https://storage.googleapis.com/"
	sniffLength     = 3072
)

type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
	clock      func() time.Time
}

var _ service.BlobService = (*CloudStorageClient)(nil)

func NewCloudStorageClient(ctx context.Context, bucketName string, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
		clock:      time.Now,
	}, nil
}

func (c *CloudStorageClient) UploadImage(ctx context.Context, media io.Reader, namespace string) (string, error) {
	return c.upload(ctx, media, "", namespace, "image/")
}

func (c *CloudStorageClient) UploadVideo(ctx context.Context, media io.Reader, namespace string) (string, error) {
	return c.upload(ctx, media, "", namespace, "video/")
}

func (c *CloudStorageClient) UploadFile(ctx context.Context, media io.Reader, filename, namespace string) (string, error) {
	return c.upload(ctx, media, filename, namespace, "")
}

func (c *CloudStorageClient) upload(ctx context.Context, media io.Reader, filename, namespace, wantPrefix string) (string, error) {
	mime, body, err := Sniff(media)
	if err != nil {
		return "", errors.BadRequest("Failed to read attachment", err)
	}
	if wantPrefix != "" && !strings.HasPrefix(mime.String(), wantPrefix) {
		return "", errors.BadRequest(fmt.Sprintf("Attachment is %s, expected %s*", mime.String(), wantPrefix), nil)
	}

	ext := mime.Extension()
	if ext == "" {
		ext = path.Ext(filename)
	}
	if ext == "" {
		ext = ".bin"
	}
	objectName := ObjectName(namespace, ext, c.clock())

	obj := c.client.Bucket(c.bucketName).Object(objectName)
	wc := obj.NewWriter(ctx)
	wc.ContentType = mime.String()
	wc.CacheControl = "public, max-age=86400"
	if filename != "" {
		wc.ContentDisposition = fmt.Sprintf("inline; filename=%q", path.Base(filename))
	}

	if _, err := io.Copy(wc, body); err != nil {
		_ = wc.Close()
		return "", fmt.Errorf("failed to copy file to GCS: %v", err)
	}

	// Close commits the object; nothing is visible before it succeeds
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}

	if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
		return "", fmt.Errorf("failed to set ACL: %v", err)
	}

	return PublicURL(c.bucketName, objectName), nil
}

func (c *CloudStorageClient) Delete(ctx context.Context, fileURL string) error {
	objectName, err := ObjectFromURL(c.bucketName, fileURL)
	if err != nil {
		return err
	}

	if err := c.client.Bucket(c.bucketName).Object(objectName).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete file: %v", err)
	}
	return nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}

// Sniff detects the content type from the head of r and returns a reader that
// still yields the full content.
func Sniff(r io.Reader) (*mimetype.MIME, io.Reader, error) {
	head := make([]byte, sniffLength)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, nil, err
	}
	head = head[:n]

	return mimetype.Detect(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// ObjectName places uploads under public/<namespace>/<uuid>-<timestamp><ext>.
func ObjectName(namespace, ext string, now time.Time) string {
	folder := strings.Trim(namespace, "/")
	if !strings.HasPrefix(folder, "public/") {
		folder = "public/" + folder
	}
	return fmt.Sprintf("%s/%s-%s%s", folder, uuid.New().String(), now.Format("20060102150405"), ext)
}

func PublicURL(bucket, objectName string) string {
	return publicURLPrefix + bucket + "/" + objectName
}

// ObjectFromURL extracts the object name of a URL returned by PublicURL.
func ObjectFromURL(bucket, fileURL string) (string, error) {
	if !strings.HasPrefix(fileURL, publicURLPrefix) {
		return "", errors.BadRequest("Invalid storage URL format", nil)
	}

	parts := strings.SplitN(fileURL[len(publicURLPrefix):], "/", 2)
	if len(parts) != 2 || parts[0] != bucket || parts[1] == "" {
		return "", errors.BadRequest("Invalid storage URL format or bucket mismatch", nil)
	}
	return parts[1], nil
}
