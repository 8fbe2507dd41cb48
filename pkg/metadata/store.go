package metadata

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bindgraph/pkg/cache"
	bgerrors "github.com/matzehuels/bindgraph/pkg/errors"
	"github.com/matzehuels/bindgraph/pkg/observability"
)

// Store reads and writes records through a cache backend.
type Store struct {
	cache  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
	logger *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKeyer overrides the key layout.
func WithKeyer(k cache.Keyer) Option { return func(s *Store) { s.keyer = k } }

// WithTTL sets the expiration of written records. Zero never expires.
func WithTTL(ttl time.Duration) Option { return func(s *Store) { s.ttl = ttl } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(s *Store) { s.logger = l } }

// NewStore creates a store on c. A nil cache stores nothing.
func NewStore(c cache.Cache, opts ...Option) *Store {
	if c == nil {
		c = cache.NewNullCache()
	}
	s := &Store{cache: c, keyer: cache.NewDefaultKeyer(), logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the record for name. A missing record is (nil, false, nil).
func (s *Store) Load(ctx context.Context, name string) (*Record, bool, error) {
	data, ok, err := s.cache.Get(ctx, s.keyer.MetadataKey(name))
	if err != nil {
		return nil, false, bgerrors.Wrap(bgerrors.ErrCodeStorage, err, "read metadata for %s", name)
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, "metadata")
		return nil, false, nil
	}
	observability.Cache().OnCacheHit(ctx, "metadata")
	r, err := Decode(data)
	if err != nil {
		return nil, false, err
	}
	if r.Name != name {
		return nil, false, bgerrors.New(bgerrors.ErrCodeMetadataMismatch, "metadata stored for %s describes %s", name, r.Name)
	}
	return r, true, nil
}

// Save writes r. Writing the same record twice is a no-op for readers.
func (s *Store) Save(ctx context.Context, r *Record) error {
	data, err := Encode(r)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, s.keyer.MetadataKey(r.Name), data, s.ttl); err != nil {
		return bgerrors.Wrap(bgerrors.ErrCodeStorage, err, "write metadata for %s", r.Name)
	}
	observability.Cache().OnCacheSet(ctx, "metadata", len(data))
	s.logger.Debug("wrote metadata", "name", r.Name, "providers", len(r.Providers), "binds", len(r.Binds), "bytes", len(data))
	return nil
}

// Delete removes the record for name.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.cache.Delete(ctx, s.keyer.MetadataKey(name)); err != nil {
		return bgerrors.Wrap(bgerrors.ErrCodeStorage, err, "delete metadata for %s", name)
	}
	return nil
}

// Clear removes every record when the backend supports it.
func (s *Store) Clear(ctx context.Context) error {
	c, ok := s.cache.(cache.Clearer)
	if !ok {
		return bgerrors.New(bgerrors.ErrCodeUnsupported, "metadata backend cannot be cleared")
	}
	if err := c.Clear(ctx); err != nil {
		return bgerrors.Wrap(bgerrors.ErrCodeStorage, err, "clear metadata")
	}
	return nil
}

// Close closes the backend.
func (s *Store) Close() error { return s.cache.Close() }
