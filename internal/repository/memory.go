package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"flowershop/internal/models"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is the in-process fallback used when Redis is unavailable.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	rateLimits sync.Map
	sessionTTL time.Duration
	now        func() time.Time
}

func NewMemoryStore(sessionTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func (r *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		return nil, false, nil
	}
	if entry.expired(r.now()) {
		delete(r.entries, key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (r *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.entries[key] = entry
	return nil
}

func (r *MemoryStore) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, key := range keys {
		delete(r.entries, key)
	}
	return nil
}

func (r *MemoryStore) GetSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	data, ok, _ := r.Get(ctx, sessionKey(id))
	if !ok {
		return nil, nil
	}
	var session models.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *MemoryStore) SetSession(ctx context.Context, session *models.CheckoutSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return r.Set(ctx, sessionKey(session.ID), data, r.sessionTTL)
}

func (r *MemoryStore) ClearSession(ctx context.Context, id string) error {
	return r.Delete(ctx, sessionKey(id))
}

type rateLimitEntry struct {
	mu        sync.Mutex
	count     int
	expiresAt time.Time
}

func (r *MemoryStore) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := r.now()
	val, _ := r.rateLimits.LoadOrStore(key, &rateLimitEntry{})
	entry := val.(*rateLimitEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.count == 0 || now.After(entry.expiresAt) {
		entry.count = 1
		entry.expiresAt = now.Add(window)
	} else {
		entry.count++
	}
	return entry.count <= limit, nil
}
