package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LifecyclePolicy tunes report lifecycle behavior at runtime.
type LifecyclePolicy struct {
	// EnforceTransitions rejects status changes outside the transition table.
	// Off by default, which keeps the permissive edit path.
	EnforceTransitions bool `mapstructure:"enforceTransitions"`
	// RefundOnCancel returns the charged credits to the entity when a
	// report is cancelled.
	RefundOnCancel bool `mapstructure:"refundOnCancel"`

	UploadURLTTLSeconds   int64 `mapstructure:"uploadURLTTLSeconds"`
	DownloadURLTTLSeconds int64 `mapstructure:"downloadURLTTLSeconds"`
}

func DefaultLifecyclePolicy() LifecyclePolicy {
	return LifecyclePolicy{
		EnforceTransitions:    false,
		RefundOnCancel:        false,
		UploadURLTTLSeconds:   3600,
		DownloadURLTTLSeconds: 3600,
	}
}

type LifecyclePolicyHolder struct {
	current atomic.Value // holds LifecyclePolicy
}

// NewStaticLifecyclePolicyHolder returns a holder that never reloads.
func NewStaticLifecyclePolicyHolder(policy LifecyclePolicy) *LifecyclePolicyHolder {
	holder := &LifecyclePolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func NewLifecyclePolicyHolder() (*LifecyclePolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("lifecycle")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/credmatrix")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CREDMATRIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLifecyclePolicy()
	v.SetDefault("lifecycle.enforceTransitions", defaults.EnforceTransitions)
	v.SetDefault("lifecycle.refundOnCancel", defaults.RefundOnCancel)
	v.SetDefault("lifecycle.uploadURLTTLSeconds", defaults.UploadURLTTLSeconds)
	v.SetDefault("lifecycle.downloadURLTTLSeconds", defaults.DownloadURLTTLSeconds)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var policy LifecyclePolicy
	if err := v.UnmarshalKey("lifecycle", &policy); err != nil {
		return nil, err
	}
	if err := validateLifecyclePolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticLifecyclePolicyHolder(policy)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated LifecyclePolicy
		if err := v.UnmarshalKey("lifecycle", &updated); err != nil {
			log.Printf("[lifecycle-config] reload failed: %v", err)
			return
		}
		if err := validateLifecyclePolicy(updated); err != nil {
			log.Printf("[lifecycle-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[lifecycle-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *LifecyclePolicyHolder) Get() LifecyclePolicy {
	if h == nil {
		return DefaultLifecyclePolicy()
	}
	return h.current.Load().(LifecyclePolicy)
}

func validateLifecyclePolicy(policy LifecyclePolicy) error {
	if policy.UploadURLTTLSeconds <= 0 {
		return errors.New("lifecycle.uploadURLTTLSeconds must be positive")
	}
	if policy.DownloadURLTTLSeconds <= 0 {
		return errors.New("lifecycle.downloadURLTTLSeconds must be positive")
	}
	// Signed URLs cannot outlive seven days.
	const maxTTL = 7 * 24 * 60 * 60
	if policy.UploadURLTTLSeconds > maxTTL || policy.DownloadURLTTLSeconds > maxTTL {
		return errors.New("lifecycle url ttl exceeds seven days")
	}
	return nil
}
