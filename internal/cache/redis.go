// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup; a
// nil client means the announcement feed is not being persisted.
var Rdb *redis.Client

// DefaultQueueName is the Redis list the game server pushes announcement
// records onto and the historian pops from.
var DefaultQueueName = "puppies_announcements"

// AnnouncementRecord is the queue entry for one game announcement. The
// announcement itself travels as raw JSON so the historian does not need the
// engine types to persist it.
type AnnouncementRecord struct {
	GameID       uuid.UUID       `json:"game_id"`
	Index        int             `json:"index"`
	Announcement json.RawMessage `json:"announcement"`
	Timestamp    int64           `json:"timestamp"`
}

// ConnectRedis initializes the global client from the environment:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return nil
}

// QueueName returns the configured announcement queue name.
func QueueName() string {
	return getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
}

// PublishAnnouncement pushes one record onto the announcement queue. A nil
// client is a silent no-op so games run fine without Redis.
func PublishAnnouncement(ctx context.Context, record AnnouncementRecord) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal announcement record: %w", err)
	}
	if err := Rdb.RPush(ctx, QueueName(), data).Err(); err != nil {
		return fmt.Errorf("rpush to %s: %w", QueueName(), err)
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
