package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/shared"
)

// DefaultTTL is how long a search stays selectable.
const DefaultTTL = 5 * time.Minute

const maxTokenAttempts = 5

// Store is a token-addressed holder of [models.PendingRequest] values.
type Store interface {
	// Put stores req under a fresh token and returns it.
	Put(req models.PendingRequest) (string, error)
	// Get returns the live entry for token without consuming it.
	Get(token string) (models.PendingRequest, bool)
	// Take returns and removes the live entry for token.
	Take(token string) (models.PendingRequest, bool)
	// Remove drops the entry for token, if any.
	Remove(token string)
	// Len reports the number of stored entries, expired ones included until swept.
	Len() int
	// Sweep drops expired entries and returns how many were removed.
	Sweep() int
}

type entry struct {
	req       models.PendingRequest
	expiresAt time.Time
}

// MemoryStore is an in-process [Store] guarded by a single mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	newTok  func() (string, error)
	logger  *log.Logger
}

// Option configures a [MemoryStore].
type Option func(*MemoryStore)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// WithTokenSource replaces the random token generator.
func WithTokenSource(fn func() (string, error)) Option {
	return func(s *MemoryStore) { s.newTok = fn }
}

// WithLogger attaches a logger for sweep reports.
func WithLogger(l *log.Logger) Option {
	return func(s *MemoryStore) { s.logger = shared.WithLogger(l, "component", "cache") }
}

// NewMemoryStore creates a store whose entries expire after ttl. A non-positive ttl uses [DefaultTTL].
func NewMemoryStore(ttl time.Duration, opts ...Option) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		newTok:  func() (string, error) { return shared.GenerateToken(shared.TokenBytes) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the entry lifetime.
func (s *MemoryStore) TTL() time.Duration {
	return s.ttl
}

// Put stores req under a new token. req.Token and req.CreatedAt are filled in.
func (s *MemoryStore) Put(req models.PendingRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	for range maxTokenAttempts {
		token, err := s.newTok()
		if err != nil {
			return "", err
		}
		if _, taken := s.entries[token]; taken {
			continue
		}

		req.Token = token
		req.CreatedAt = now
		s.entries[token] = entry{req: req, expiresAt: now.Add(s.ttl)}
		return token, nil
	}
	return "", fmt.Errorf("%w: could not allocate a unique token", shared.ErrInvalidInput)
}

// Get returns the entry for token if it has not expired.
func (s *MemoryStore) Get(token string) (models.PendingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.liveLocked(token)
	return e.req, ok
}

// Take returns the entry for token and removes it.
func (s *MemoryStore) Take(token string) (models.PendingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.liveLocked(token)
	if ok {
		delete(s.entries, token)
	}
	return e.req, ok
}

// Remove drops the entry for token.
func (s *MemoryStore) Remove(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, token)
}

// Len returns the number of entries currently held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Sweep removes every expired entry.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sweepLocked(s.now())
}

// Run sweeps every interval until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 && s.logger != nil {
				s.logger.Debug("swept expired searches", "count", n)
			}
		}
	}
}

// liveLocked looks token up and drops it if expired. Caller holds mu.
func (s *MemoryStore) liveLocked(token string) (entry, bool) {
	e, ok := s.entries[token]
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, token)
		return entry{}, false
	}
	return e, true
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for token, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}
