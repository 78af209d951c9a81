package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vovakirdan/wizzychat/internal/store"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// RedisTracker keeps online usernames in a Redis set.
//
// Key pattern:
//
//	{prefix}:{backend}:online   SET<username>
//
// Each backend gets its own set so disjoint datasets never share presence.
type RedisTracker struct {
	client *redis.Client
	key    string
}

// NewRedisTracker creates a tracker for one backend. The client is shared and not owned.
func NewRedisTracker(client *redis.Client, prefix, backend string) *RedisTracker {
	if prefix == "" {
		prefix = "wizzychat"
	}
	return &RedisTracker{
		client: client,
		key:    onlineKey(prefix, backend),
	}
}

func onlineKey(prefix, backend string) string {
	return fmt.Sprintf("%s:%s:online", prefix, backend)
}

// SetOnline implements Tracker.
func (t *RedisTracker) SetOnline(ctx context.Context, username string, online bool) error {
	var err error
	if online {
		err = t.client.SAdd(ctx, t.key, username).Err()
	} else {
		err = t.client.SRem(ctx, t.key, username).Err()
	}
	if err != nil {
		return fmt.Errorf("update presence: %w", err)
	}
	return nil
}

// ListOnline implements Tracker.
func (t *RedisTracker) ListOnline(ctx context.Context, exclude string) ([]string, error) {
	members, err := t.client.SMembers(ctx, t.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list presence: %w", err)
	}

	names := make([]string, 0, len(members))
	for _, m := range members {
		if m != exclude {
			names = append(names, m)
		}
	}
	store.SortUsernames(names)
	return names, nil
}

var _ Tracker = (*RedisTracker)(nil)
