package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Settings are the per-session credentials and dataset overrides a user
// saves through the API. Empty fields fall back to the server config.
type Settings struct {
	LLMKey            string `json:"llm_key,omitempty"`
	ScrapingKey       string `json:"scraping_key,omitempty"`
	PostsDatasetID    string `json:"posts_dataset_id,omitempty"`
	CommentsDatasetID string `json:"comments_dataset_id,omitempty"`
	Model             string `json:"model,omitempty"`
}

// Store keeps per-session settings keyed by session id.
type Store interface {
	Get(ctx context.Context, sessionID string) (Settings, bool, error)
	Put(ctx context.Context, sessionID string, s Settings) error
	Delete(ctx context.Context, sessionID string) error
}

type StoreType string

const (
	InMemoryStore StoreType = "inmemory"
	RedisStore    StoreType = "redis"
)

// NewStore builds a session store. The redis variant needs a connected
// client; the inmemory variant ignores it.
func NewStore(storeType StoreType, client *redis.Client, ttl time.Duration) (Store, error) {
	switch storeType {
	case InMemoryStore:
		return NewInMemory(ttl), nil
	case RedisStore:
		if client == nil {
			return nil, fmt.Errorf("redis session store requires a client")
		}
		return NewRedis(client, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported session store type: %s", storeType)
	}
}
