// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list finished rounds are appended to.
const DefaultQueueName = "wordlobby_rounds"

// RoundRecord is one finished round, as consumed by whatever archives game history.
type RoundRecord struct {
	LobbyID    string   `json:"lobby_id"`
	SecretWord string   `json:"secret_word"`
	DidWin     bool     `json:"did_win"`
	Guessed    []string `json:"guessed"`
	Incorrect  int      `json:"incorrect"`
	Players    []string `json:"players"`
	Timestamp  int64    `json:"timestamp"`
}

// Connect creates a client for addr/db and verifies it with a ping.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RoundPublisher pushes RoundRecords onto a Redis list.
type RoundPublisher struct {
	rdb   redis.Cmdable
	queue string
}

// NewRoundPublisher returns a publisher writing to queue (DefaultQueueName if empty).
func NewRoundPublisher(rdb redis.Cmdable, queue string) *RoundPublisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &RoundPublisher{rdb: rdb, queue: queue}
}

// Queue returns the list name records are pushed to.
func (p *RoundPublisher) Queue() string {
	return p.queue
}

// PublishRound serializes record to JSON and RPushes it. Only a quick network send.
func (p *RoundPublisher) PublishRound(ctx context.Context, record RoundRecord) error {
	if record.Timestamp == 0 {
		record.Timestamp = time.Now().UnixMilli()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundRecord: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}
