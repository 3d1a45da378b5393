package form

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"pcbaerp/internal/store"
)

var ErrDraftNotFound = errors.New("draft not found or expired")

// Sessions keeps open drafts between requests, keyed by a random token.
// Drafts expire after ttl and the least recently used are evicted beyond size.
type Sessions[T store.Entity] struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *Draft[T]]
}

// NewSessions returns a draft table holding at most size drafts for ttl each.
func NewSessions[T store.Entity](size int, ttl time.Duration) *Sessions[T] {
	return &Sessions[T]{cache: expirable.NewLRU[string, *Draft[T]](size, nil, ttl)}
}

// Open assigns the draft a token and stores it.
func (s *Sessions[T]) Open(d *Draft[T]) string {
	d.Token = uuid.NewString()
	s.mu.Lock()
	s.cache.Add(d.Token, d)
	s.mu.Unlock()
	return d.Token
}

// With runs fn on the draft stored under token while holding the table lock,
// so concurrent requests on one draft are serialized. The draft is dropped
// from the table once fn leaves it closed.
func (s *Sessions[T]) With(token string, fn func(*Draft[T]) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.cache.Get(token)
	if !ok {
		return ErrDraftNotFound
	}
	err := fn(d)
	if d.closed {
		s.cache.Remove(token)
	}
	return err
}

// Get returns a copy of the draft stored under token.
func (s *Sessions[T]) Get(token string) (Draft[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.cache.Get(token)
	if !ok {
		return Draft[T]{}, ErrDraftNotFound
	}
	rec, err := store.Clone(d.Record)
	if err != nil {
		return Draft[T]{}, err
	}
	cp := *d
	cp.Record = rec
	return cp, nil
}

// Len returns the number of open drafts.
func (s *Sessions[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
