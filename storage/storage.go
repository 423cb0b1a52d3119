// Package storage uploads issue photos to object storage.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

//go:generate mockgen -destination=../mocks/mock_image_store.go -package=mocks civicreport-be/storage ImageStore

// ImageStore persists an image and returns its public URL.
type ImageStore interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

var (
	ErrDisabled      = errors.New("image uploads are not configured")
	ErrEmptyImage    = errors.New("empty image payload")
	ErrNotAnImage    = errors.New("unsupported image type")
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

// MaxImageBytes bounds a single decoded image.
const MaxImageBytes = 5 << 20

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Extension returns the file extension for an allowed content type.
func Extension(contentType string) string {
	return allowedTypes[contentType]
}

// DecodeImage decodes a base64 payload, optionally wrapped in a data URL,
// and sniffs its content type. Only jpeg, png, webp and gif are accepted.
func DecodeImage(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	if payload == "" {
		return nil, "", ErrEmptyImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return nil, "", err
		}
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	if len(data) > MaxImageBytes {
		return nil, "", ErrImageTooLarge
	}

	mtype := mimetype.Detect(data).String()
	if _, ok := allowedTypes[mtype]; !ok {
		return nil, "", ErrNotAnImage
	}
	return data, mtype, nil
}

type disabled struct{}

// Disabled is used when no object storage is configured; every upload fails.
func Disabled() ImageStore { return disabled{} }

func (disabled) Put(context.Context, []byte, string) (string, error) { return "", ErrDisabled }
