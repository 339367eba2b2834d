// Package idempotency replays order creations that carry a repeated
// Idempotency-Key header.
package idempotency

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/shopadmin/pkg/types"
)

// Header is the request header carrying the client key
const Header = "Idempotency-Key"

// ErrKeyReused is returned when a key is presented again with a different request body
var ErrKeyReused = fmt.Errorf("%w: idempotency key reused with a different request", types.ErrConflict)

// Key returns the trimmed Idempotency-Key header, or ""
func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

type entry struct {
	fingerprint [32]byte
	resultID    string
	err         error
	done        chan struct{}
}

// Store remembers the result id of recent keyed requests. Keys are scoped
// per actor; the oldest keys are evicted once the store is full.
type Store struct {
	mu    sync.Mutex
	cache *lru.Cache[[32]byte, *entry]
}

// New returns a store holding up to size keys
func New(size int) (*Store, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[[32]byte, *entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create idempotency cache: %w", err)
	}
	return &Store{cache: cache}, nil
}

func cacheKey(actorID, key string) [32]byte {
	return sha256.Sum256([]byte(actorID + "\x00" + key))
}

// Do runs fn once per (actorID, key). A later call with the same key and body
// returns the first result id with replayed set; concurrent duplicates wait
// for the first call to finish. A failed call is forgotten so the client can
// retry with the same key.
func (s *Store) Do(ctx context.Context, actorID, key string, body []byte, fn func() (string, error)) (id string, replayed bool, err error) {
	if key == "" {
		id, err = fn()
		return id, false, err
	}

	ck := cacheKey(actorID, key)
	fp := sha256.Sum256(body)

	s.mu.Lock()
	if e, ok := s.cache.Get(ck); ok {
		s.mu.Unlock()
		if e.fingerprint != fp {
			return "", false, ErrKeyReused
		}
		select {
		case <-e.done:
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
		if e.err != nil {
			return "", false, e.err
		}
		return e.resultID, true, nil
	}
	e := &entry{fingerprint: fp, done: make(chan struct{})}
	s.cache.Add(ck, e)
	s.mu.Unlock()

	id, err = fn()

	s.mu.Lock()
	if err != nil {
		e.err = err
		if cur, ok := s.cache.Peek(ck); ok && cur == e {
			s.cache.Remove(ck)
		}
	} else {
		e.resultID = id
	}
	close(e.done)
	s.mu.Unlock()

	return id, false, err
}

// Len returns the number of remembered keys
func (s *Store) Len() int {
	return s.cache.Len()
}

// IsKeyReused reports whether err came from a key presented with a different body
func IsKeyReused(err error) bool {
	return errors.Is(err, ErrKeyReused)
}
