// Package storage keeps uploaded avatar images in Cloudinary, an S3 bucket or
// a local directory.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/redmonkez12/viziopath-api/internal/config"
)

const (
	ProviderCloudinary = "cloudinary"
	ProviderS3         = "s3"
	ProviderLocal      = "local"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrForeignURL      = errors.New("url does not belong to this storage")
)

// imageExtensions maps the sniffed content type to the stored extension.
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Object is a stored file.
type Object struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// Uploader stores and removes public objects.
type Uploader interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*Object, error)
	// Key returns the object key behind a URL returned by Upload, or
	// ErrForeignURL.
	Key(url string) (string, error)
	// Delete removes the object behind a URL returned by Upload. URLs that
	// were not produced by this Uploader yield ErrForeignURL.
	Delete(ctx context.Context, url string) error
}

// New builds the Uploader selected by cfg.Provider.
func New(ctx context.Context, cfg config.StorageConfig) (Uploader, error) {
	switch cfg.Provider {
	case ProviderCloudinary:
		return NewCloudinaryStorage(cfg.CloudinaryURL)
	case ProviderS3:
		return NewS3Storage(ctx, cfg)
	case ProviderLocal:
		return NewLocalStorage(cfg.LocalDir, cfg.LocalBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// Image is an upload that passed content sniffing.
type Image struct {
	Reader      io.Reader
	ContentType string
	Extension   string
	Size        int64
}

// SniffImage checks size and the leading bytes of r. The declared content
// type of the upload is ignored. The returned Image replays the sniffed bytes.
func SniffImage(r io.Reader, size, maxSize int64) (*Image, error) {
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	if size > maxSize {
		return nil, ErrFileTooLarge
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrEmptyFile
	}

	contentType := http.DetectContentType(head)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	return &Image{Reader: br, ContentType: contentType, Extension: ext, Size: size}, nil
}

// AvatarPrefix is the key prefix of every avatar stored for userID. It ends
// with a slash.
func AvatarPrefix(folder string, userID uuid.UUID) string {
	return path.Join(folder, "avatars", userID.String()) + "/"
}

// AvatarKey is a fresh object key for an avatar of the given account.
func AvatarKey(folder string, userID uuid.UUID, ext string) string {
	return AvatarPrefix(folder, userID) + uuid.NewString() + ext
}

// OwnsKey reports whether key was produced by AvatarKey for userID.
func OwnsKey(folder string, userID uuid.UUID, key string) bool {
	return path.Clean(key) == key && strings.HasPrefix(key, AvatarPrefix(folder, userID))
}

// keyFromURL strips base from url. base is compared without a trailing slash.
func keyFromURL(base, url string) (string, error) {
	prefix := strings.TrimRight(base, "/") + "/"
	if base == "" || !strings.HasPrefix(url, prefix) {
		return "", ErrForeignURL
	}

	key := strings.TrimPrefix(url, prefix)
	if key == "" || strings.Contains(key, "..") || path.Clean(key) != key {
		return "", ErrForeignURL
	}
	return key, nil
}
