package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/markdave123-py/StudyCoach/internal/core"
	"github.com/markdave123-py/StudyCoach/internal/models"
)

const keyPrefix = "studycoach:notes:"

var _ core.NoteCache = (*RedisNoteCache)(nil)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisNoteCache keeps generated notes in Redis keyed by content hash.
type RedisNoteCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisNoteCache(ctx context.Context, cfg RedisConfig) (*RedisNoteCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return newRedisNoteCache(client, cfg.TTL), nil
}

func newRedisNoteCache(client *redis.Client, ttl time.Duration) *RedisNoteCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisNoteCache{client: client, ttl: ttl}
}

func noteKey(contentHash string) string {
	return keyPrefix + contentHash
}

// Get returns (nil, nil) on a miss.
func (c *RedisNoteCache) Get(ctx context.Context, contentHash string) (*models.StudyNote, error) {
	raw, err := c.client.Get(ctx, noteKey(contentHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var note models.StudyNote
	if err := json.Unmarshal(raw, &note); err != nil {
		// a corrupt entry is treated as a miss and dropped
		_ = c.client.Del(ctx, noteKey(contentHash)).Err()
		return nil, nil
	}
	return &note, nil
}

func (c *RedisNoteCache) Set(ctx context.Context, note *models.StudyNote) error {
	if note == nil || note.ContentHash == "" {
		return errors.New("cache: note without content hash")
	}
	raw, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("encode note: %w", err)
	}
	if err := c.client.Set(ctx, noteKey(note.ContentHash), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisNoteCache) Close() error {
	return c.client.Close()
}
