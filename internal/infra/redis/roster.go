package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Roster tracks live connections per session code in a Redis set so every
// instance behind a load balancer reports the same participant count.
// The set expires ttl after the last attach, which clears entries left by a
// crashed instance.
type Roster struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoster(client *redis.Client, ttl time.Duration) *Roster {
	return &Roster{client: client, ttl: ttl}
}

func (r *Roster) Attach(ctx context.Context, code, connID string) error {
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.key(code), connID)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key(code), r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Roster) Detach(ctx context.Context, code, connID string) error {
	return r.client.SRem(ctx, r.key(code), connID).Err()
}

func (r *Roster) Count(ctx context.Context, code string) (int, error) {
	n, err := r.client.SCard(ctx, r.key(code)).Result()
	if err != nil && !isMiss(err) {
		return 0, err
	}
	return int(n), nil
}

func (r *Roster) key(code string) string {
	return "quiz:session:" + code + ":participants"
}
