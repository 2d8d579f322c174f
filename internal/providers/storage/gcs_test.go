package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGCSRequiresConfig(t *testing.T) {
	_, err := NewGCS(context.Background(), GCSConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewGCS(context.Background(), GCSConfig{Bucket: "reports"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewGCS(context.Background(), GCSConfig{Bucket: "reports", CredentialsJSON: `{"client_email":""}`})
	assert.Error(t, err)
}

func TestUnconfiguredFails(t *testing.T) {
	var p Provider = Unconfigured{}
	_, err := p.MintUploadURL(context.Background(), "k", 0, "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, p.Delete(context.Background(), "k"), ErrNotConfigured)
}
