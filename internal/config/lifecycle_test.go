package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLifecyclePolicyIsLegacy(t *testing.T) {
	policy := DefaultLifecyclePolicy()

	assert.False(t, policy.EnforceTransitions)
	assert.False(t, policy.RefundOnCancel)
	assert.Equal(t, int64(3600), policy.UploadURLTTLSeconds)
	require.NoError(t, validateLifecyclePolicy(policy))
}

func TestValidateLifecyclePolicyRejectsBadTTL(t *testing.T) {
	policy := DefaultLifecyclePolicy()
	policy.UploadURLTTLSeconds = 0
	assert.Error(t, validateLifecyclePolicy(policy))

	policy = DefaultLifecyclePolicy()
	policy.DownloadURLTTLSeconds = 8 * 24 * 60 * 60
	assert.Error(t, validateLifecyclePolicy(policy))
}

func TestNilHolderFallsBackToDefaults(t *testing.T) {
	var holder *LifecyclePolicyHolder
	assert.Equal(t, DefaultLifecyclePolicy(), holder.Get())
}

func TestStaticHolder(t *testing.T) {
	holder := NewStaticLifecyclePolicyHolder(LifecyclePolicy{EnforceTransitions: true, UploadURLTTLSeconds: 60, DownloadURLTTLSeconds: 60})
	assert.True(t, holder.Get().EnforceTransitions)
}
