// Package storage persists uploaded avatar images under generated names.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// SentinelPhoto means "no custom avatar". It always exists and is never
// written or deleted through a PhotoStore.
const SentinelPhoto = "default.png"

// MaxUploadBytes bounds the accepted image size.
const MaxUploadBytes = 5 * 1024 * 1024

var (
	ErrInvalidUpload = errors.New("invalid upload: only PNG, JPG and JPEG images are allowed")
	ErrStorage       = errors.New("photo storage failure")
)

// Upload is a file submitted by a client. ContentType is the client-declared
// type; it is recorded but never trusted for validation.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PhotoStore validates and persists uploaded images.
//
// Save returns SentinelPhoto without touching storage when upload is nil.
// Remove must never be called with the sentinel; that guarantee belongs to the
// caller, not the store.
type PhotoStore interface {
	Save(ctx context.Context, upload *Upload) (string, error)
	Remove(ctx context.Context, name string) error
}

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
}

var allowedContentTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
}

// validateUpload applies the two independent checks: declared filename
// extension and server-side content sniffing. It returns the generated
// storage name on success.
func validateUpload(upload *Upload) (string, error) {
	if len(upload.Data) == 0 || len(upload.Data) > MaxUploadBytes {
		return "", fmt.Errorf("%w: empty or oversized file", ErrInvalidUpload)
	}
	ext := strings.ToLower(path.Ext(upload.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: extension %q", ErrInvalidUpload, ext)
	}
	head := upload.Data
	if len(head) > 512 {
		head = head[:512]
	}
	sniffed := strings.ToLower(strings.TrimSpace(http.DetectContentType(head)))
	if _, ok := allowedContentTypes[sniffed]; !ok {
		return "", fmt.Errorf("%w: content type %q", ErrInvalidUpload, sniffed)
	}
	return uuid.New().String() + ext, nil
}

// validateName guards Remove against empty names and path escapes.
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty file name", ErrStorage)
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: illegal file name %q", ErrStorage, name)
	}
	return nil
}
