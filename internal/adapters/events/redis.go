package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/halcyonlabs/halcyon/internal/domain"
	"github.com/halcyonlabs/halcyon/internal/observability"
)

const (
	turnStream    = "halcyon:events:turns"
	checkpointTTL = 24 * time.Hour
)

// RedisConfig holds connection settings for the Redis event backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisBus publishes turn events to a Redis Stream and feeds them back to
// the workflow worker through a consumer group, so replay survives process
// restarts.
type RedisBus struct {
	rdb *redis.Client
}

// NewRedisBus creates the bus and validates the connection.
func NewRedisBus(cfg RedisConfig) (*RedisBus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBus{rdb: rdb}, nil
}

// Publish appends the event to the turn stream with XADD.
func (b *RedisBus) Publish(ctx context.Context, event domain.TurnEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding turn event: %w", err)
	}

	if err := b.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: turnStream,
		Values: map[string]interface{}{"event": payload},
	}).Err(); err != nil {
		return fmt.Errorf("xadd failed: %w", err)
	}
	return nil
}

// Handler processes one delivered event. A non-nil error leaves the
// stream entry pending, so it is redelivered after a restart.
type Handler func(ctx context.Context, event domain.TurnEvent) error

// Consume joins the consumer group and runs the handler for every stream
// entry. An entry is acknowledged only after the handler returns nil: a
// crash mid-event leaves it in the pending list, and the loop replays
// this consumer's pending entries before reading new ones, so a restarted
// worker picks up half-processed events and resumes from their
// checkpoints. Blocks until the context is cancelled.
func (b *RedisBus) Consume(ctx context.Context, group, consumer string, handle Handler) error {
	if err := b.rdb.XGroupCreateMkStream(ctx, turnStream, group, "0").Err(); err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group: %w", err)
	}

	log := observability.Logger().With(
		"component", "redis_events",
		"group", group,
		"consumer", consumer,
	)

	// "0" reads entries delivered to this consumer but never acked, i.e.
	// what a previous run crashed on. Once drained, switch to new entries.
	cursor := "0"
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		results, err := b.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{turnStream, cursor},
			Count:    10,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				if cursor == "0" {
					cursor = ">"
				}
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			log.Error("stream read failed", "error", err)
			continue
		}

		delivered := 0
		for _, res := range results {
			for _, msg := range res.Messages {
				delivered++
				if dispatch(ctx, log, msg.ID, msg.Values, handle) {
					b.rdb.XAck(ctx, turnStream, group, msg.ID)
				}
			}
		}

		if cursor == "0" && delivered == 0 {
			log.Info("pending entries drained")
			cursor = ">"
		}
	}
}

// dispatch decodes and handles one stream entry. The returned flag tells
// the caller whether to ack: broken payloads can never succeed and are
// acked away, handler failures keep the entry pending for redelivery.
func dispatch(ctx context.Context, log *slog.Logger, id string, values map[string]interface{}, handle Handler) bool {
	raw, ok := values["event"].(string)
	if !ok {
		log.Error("malformed stream entry, skipping", "stream_id", id)
		return true
	}

	var ev domain.TurnEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		log.Error("undecodable turn event, skipping", "stream_id", id, "error", err)
		return true
	}

	if err := handle(ctx, ev); err != nil {
		log.Error("event handling failed, leaving entry pending",
			"stream_id", id,
			"event_id", ev.ID,
			"error", err,
		)
		return false
	}
	return true
}

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}

// RedisCheckpointStore keeps the durable workflow's step results in one
// hash per event.
type RedisCheckpointStore struct {
	rdb *redis.Client
}

func NewRedisCheckpointStore(bus *RedisBus) *RedisCheckpointStore {
	return &RedisCheckpointStore{rdb: bus.rdb}
}

func checkpointKey(eventID string) string {
	return "halcyon:checkpoints:" + eventID
}

func (s *RedisCheckpointStore) Load(ctx context.Context, eventID, step string) (json.RawMessage, bool, error) {
	raw, err := s.rdb.HGet(ctx, checkpointKey(eventID), step).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("hget failed: %w", err)
	}
	return json.RawMessage(raw), true, nil
}

func (s *RedisCheckpointStore) Store(ctx context.Context, eventID, step string, result json.RawMessage) error {
	key := checkpointKey(eventID)
	if err := s.rdb.HSet(ctx, key, step, string(result)).Err(); err != nil {
		return fmt.Errorf("hset failed: %w", err)
	}
	// Checkpoints only matter while an event can still be replayed.
	s.rdb.Expire(ctx, key, checkpointTTL)
	return nil
}
