package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const memorySweepInterval = 5 * time.Minute

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

type memoryEntry struct {
	userID    int64
	expiresAt time.Time
}

// NewMemoryStore returns an in-process session store. Sessions do not survive
// a restart; it exists for development and as a fallback when Redis is not
// configured.
func NewMemoryStore(ttl time.Duration) Store {
	s := &memoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

func (s *memoryStore) Create(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = memoryEntry{userID: userID, expiresAt: time.Now().Add(s.ttl)}
	return token, nil
}

func (s *memoryStore) Resolve(ctx context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok {
		return 0, ErrNoSession
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, token)
		return 0, ErrNoSession
	}
	return entry.userID, nil
}

func (s *memoryStore) Destroy(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}

func (s *memoryStore) sweepLoop() {
	ticker := time.NewTicker(memorySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for token, entry := range s.entries {
				if now.After(entry.expiresAt) {
					delete(s.entries, token)
				}
			}
			s.mu.Unlock()
		case <-s.stopCh:
			return
		}
	}
}

func (s *memoryStore) Close() {
	s.once.Do(func() { close(s.stopCh) })
}
