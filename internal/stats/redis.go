package stats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "mediahub:stats:"

// Redis keeps one hash per month so several server instances share totals.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return NewRedisWithClient(client), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

func redisKey(month string, year int) string {
	return fmt.Sprintf("%s%d-%s", redisKeyPrefix, year, month)
}

func (r *Redis) RecordPremiumEvent(ctx context.Context, ev PremiumEvent) error {
	ev = normalize(ev, r.now)
	month, year := bucket(ev.At)
	key := redisKey(month, year)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, "premium_downloads", 1)
		pipe.HIncrBy(ctx, key, "total_raised", AmountPerPremiumEvent)
		pipe.HSet(ctx, key, "updated_at", ev.At.UTC().Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		return fmt.Errorf("recording premium event: %w", err)
	}
	return nil
}

func (r *Redis) Current(ctx context.Context) (Snapshot, error) {
	month, year := bucket(r.now())
	snap := Snapshot{Month: month, Year: year}

	fields, err := r.client.HGetAll(ctx, redisKey(month, year)).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading stats: %w", err)
	}

	snap.PremiumDownloads, _ = strconv.ParseInt(fields["premium_downloads"], 10, 64)
	snap.TotalRaised, _ = strconv.ParseInt(fields["total_raised"], 10, 64)
	if t, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		snap.UpdatedAt = t
	}
	return snap, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
