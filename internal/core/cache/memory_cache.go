package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/markdave123-py/StudyCoach/internal/core"
	"github.com/markdave123-py/StudyCoach/internal/models"
)

var _ core.NoteCache = (*MemoryNoteCache)(nil)

type memoryEntry struct {
	note      models.StudyNote
	expiresAt time.Time
}

// MemoryNoteCache is the in-process fallback used when no Redis address is configured.
type MemoryNoteCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryNoteCache(ttl time.Duration) *MemoryNoteCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryNoteCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryNoteCache) Get(_ context.Context, contentHash string) (*models.StudyNote, error) {
	c.mu.RLock()
	e, ok := c.entries[contentHash]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, contentHash)
		c.mu.Unlock()
		return nil, nil
	}
	note := e.note
	return &note, nil
}

func (c *MemoryNoteCache) Set(_ context.Context, note *models.StudyNote) error {
	if note == nil || note.ContentHash == "" {
		return errors.New("cache: note without content hash")
	}
	c.mu.Lock()
	c.entries[note.ContentHash] = memoryEntry{note: *note, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}
