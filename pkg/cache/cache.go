package cache

import (
	"context"
	"strings"
	"time"
)

// Cache is a byte cache with optional expiration.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Keyer derives cache keys.
type Keyer interface {
	// MetadataKey is the key of the persisted metadata of a container or graph.
	MetadataKey(name string) string
	// PlanKey is the key of a resolved plan for a declaration set.
	PlanKey(declarationHash string, opts PlanKeyOpts) string
}

// PlanKeyOpts are the resolution options that change a plan.
type PlanKeyOpts struct {
	ShortNames bool `json:"short_names"`
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard key layout.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// MetadataKey returns "metadata:<name>".
func (DefaultKeyer) MetadataKey(name string) string { return "metadata:" + name }

// PlanKey hashes the declaration hash together with the options.
func (DefaultKeyer) PlanKey(declarationHash string, opts PlanKeyOpts) string {
	return digestKey("plan", declarationHash, opts)
}

// ScopedKeyer prefixes every key, so several modules or tenants can share
// one backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (the default layout when nil) with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// MetadataKey returns the prefixed metadata key.
func (k *ScopedKeyer) MetadataKey(name string) string {
	return k.prefix + k.inner.MetadataKey(name)
}

// PlanKey returns the prefixed plan key.
func (k *ScopedKeyer) PlanKey(declarationHash string, opts PlanKeyOpts) string {
	return k.prefix + k.inner.PlanKey(declarationHash, opts)
}

// MetadataName recovers the declaration name from a metadata key produced
// by the default layout, ignoring any scope prefix.
func MetadataName(key string) (string, bool) {
	i := strings.LastIndex(key, "metadata:")
	if i < 0 {
		return "", false
	}
	return key[i+len("metadata:"):], true
}
