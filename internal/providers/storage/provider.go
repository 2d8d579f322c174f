package storage

//go:generate mockgen -destination=mocks/provider.go -package=mocks . Provider

import (
	"context"
	"errors"
	"time"
)

var ErrNotConfigured = errors.New("storage_not_configured")

// Provider mints presigned URLs for object keys and deletes objects.
type Provider interface {
	MintUploadURL(ctx context.Context, key string, ttl time.Duration, contentType string) (string, error)
	MintDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Unconfigured fails every call; it stands in when no bucket is set.
type Unconfigured struct{}

func (Unconfigured) MintUploadURL(context.Context, string, time.Duration, string) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) MintDownloadURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) Delete(context.Context, string) error {
	return ErrNotConfigured
}
