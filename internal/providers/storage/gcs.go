package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSConfig struct {
	Bucket          string
	CredentialsJSON string
	CredentialsFile string
}

type serviceAccountKey struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// GCSProvider signs V4 URLs with a service account key.
type GCSProvider struct {
	client     *gcs.Client
	bucket     string
	accessID   string
	privateKey []byte
	now        func() time.Time
}

func NewGCS(ctx context.Context, cfg GCSConfig) (*GCSProvider, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, ErrNotConfigured
	}

	raw := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	if len(raw) == 0 && strings.TrimSpace(cfg.CredentialsFile) != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read gcs credentials: %w", err)
		}
		raw = data
	}
	if len(raw) == 0 {
		return nil, ErrNotConfigured
	}

	var key serviceAccountKey
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, fmt.Errorf("invalid gcs credentials: %w", err)
	}
	if key.ClientEmail == "" || key.PrivateKey == "" {
		return nil, errors.New("gcs credentials missing client_email or private_key")
	}

	client, err := gcs.NewClient(ctx, option.WithCredentialsJSON(raw))
	if err != nil {
		return nil, err
	}

	return &GCSProvider{
		client:     client,
		bucket:     bucket,
		accessID:   key.ClientEmail,
		privateKey: []byte(strings.ReplaceAll(key.PrivateKey, "\\n", "\n")),
		now:        time.Now,
	}, nil
}

func (p *GCSProvider) MintUploadURL(ctx context.Context, key string, ttl time.Duration, contentType string) (string, error) {
	opts := p.signOptions(http.MethodPut, ttl)
	opts.ContentType = strings.TrimSpace(contentType)
	return gcs.SignedURL(p.bucket, key, opts)
}

func (p *GCSProvider) MintDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return gcs.SignedURL(p.bucket, key, p.signOptions(http.MethodGet, ttl))
}

func (p *GCSProvider) Delete(ctx context.Context, key string) error {
	err := p.client.Bucket(p.bucket).Object(key).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (p *GCSProvider) Close() error {
	return p.client.Close()
}

func (p *GCSProvider) signOptions(method string, ttl time.Duration) *gcs.SignedURLOptions {
	return &gcs.SignedURLOptions{
		Scheme:         gcs.SigningSchemeV4,
		Method:         method,
		GoogleAccessID: p.accessID,
		PrivateKey:     p.privateKey,
		Expires:        p.now().Add(ttl),
	}
}
