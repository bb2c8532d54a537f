package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/utils"
)

// Delivery is one received queue message. Attempts counts deliveries of the
// same message, including this one.
type Delivery struct {
	Body     []byte
	Attempts int

	receipt string
}

// Queue is an at-least-once job queue with long-poll receive and a
// visibility timeout: a received message that is never acked becomes
// receivable again after the timeout elapses.
type Queue interface {
	Send(ctx context.Context, body []byte) error
	// Receive blocks up to the long-poll window and returns (nil, nil) when
	// no message arrived in time.
	Receive(ctx context.Context) (*Delivery, error)
	Ack(ctx context.Context, d *Delivery) error
	Close() error
}

type envelope struct {
	ID       string          `json:"id"`
	Attempts int             `json:"attempts"`
	Body     json.RawMessage `json:"body"`
}

// queue keeps pending messages in a LIST and in-flight messages in a ZSET
// scored by their redelivery deadline. Receive first sweeps expired in-flight
// members back onto the pending list, so an unacked message reappears once
// its visibility window has passed.
type queue struct {
	log         *logger.Logger
	rdb         *goredis.Client
	pendingKey  string
	inFlightKey string
	visibility  time.Duration
	pollWindow  time.Duration
}

func NewQueue(log *logger.Logger) (Queue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	name := strings.TrimSpace(os.Getenv("INGEST_QUEUE_NAME"))
	if name == "" {
		name = "ingest"
	}
	visibilitySec := utils.GetEnvAsInt("INGEST_QUEUE_VISIBILITY_SECONDS", 600, log)
	pollSec := utils.GetEnvAsInt("INGEST_QUEUE_POLL_SECONDS", 20, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &queue{
		log:         log.With("service", "RedisQueue"),
		rdb:         rdb,
		pendingKey:  "queue:" + name + ":pending",
		inFlightKey: "queue:" + name + ":inflight",
		visibility:  time.Duration(visibilitySec) * time.Second,
		pollWindow:  time.Duration(pollSec) * time.Second,
	}, nil
}

func (q *queue) Send(ctx context.Context, body []byte) error {
	env := envelope{
		ID:       uuid.NewString(),
		Attempts: 0,
		Body:     json.RawMessage(body),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, q.pendingKey, raw).Err()
}

func (q *queue) Receive(ctx context.Context) (*Delivery, error) {
	if err := q.reclaimExpired(ctx); err != nil {
		q.log.Warn("Reclaim of expired in-flight messages failed", "error", err)
	}

	raw, err := q.rdb.BRPop(ctx, q.pollWindow, q.pendingKey).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("queue receive: %w", err)
	}
	// BRPop returns [key, value].
	if len(raw) != 2 {
		return nil, fmt.Errorf("queue receive: unexpected BRPOP reply of length %d", len(raw))
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw[1]), &env); err != nil {
		return nil, fmt.Errorf("queue receive: malformed envelope: %w", err)
	}
	env.Attempts++

	receipt, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	deadline := float64(time.Now().Add(q.visibility).UnixMilli())
	if err := q.rdb.ZAdd(ctx, q.inFlightKey, goredis.Z{Score: deadline, Member: string(receipt)}).Err(); err != nil {
		return nil, fmt.Errorf("queue receive: mark in-flight: %w", err)
	}

	return &Delivery{
		Body:     env.Body,
		Attempts: env.Attempts,
		receipt:  string(receipt),
	}, nil
}

func (q *queue) Ack(ctx context.Context, d *Delivery) error {
	if d == nil || d.receipt == "" {
		return fmt.Errorf("ack: empty receipt")
	}
	return q.rdb.ZRem(ctx, q.inFlightKey, d.receipt).Err()
}

// reclaimExpired moves in-flight members whose deadline has passed back onto
// the pending list. ZRem is the claim: only the caller that removes the
// member re-enqueues it, so concurrent consumers cannot duplicate a message.
func (q *queue) reclaimExpired(ctx context.Context) error {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	members, err := q.rdb.ZRangeByScore(ctx, q.inFlightKey, &goredis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return err
	}
	for _, m := range members {
		removed, err := q.rdb.ZRem(ctx, q.inFlightKey, m).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, q.pendingKey, m).Err(); err != nil {
			return err
		}
		q.log.Warn("Requeued expired in-flight message")
	}
	return nil
}

func (q *queue) Close() error {
	return q.rdb.Close()
}
