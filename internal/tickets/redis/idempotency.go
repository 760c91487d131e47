package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"ms-booking/internal/apperror"
	"ms-booking/internal/logger"
)

const (
	keyPrefix     = "booking_idem:"
	pendingPrefix = "pending:"
)

// Replace the marker only while it still holds our pending token.
var completeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
end
return false
`)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Idempotency remembers which ticket a client's Idempotency-Key produced,
// so a retried booking returns the first result instead of booking again.
type Idempotency struct {
	Client     *redis.Client
	TTL        time.Duration
	PendingTTL time.Duration
	Logger     *logger.Logger
}

// Reservation is held by the request that owns an idempotency key.
// TicketID is set when the key was already completed by an earlier request.
type Reservation struct {
	Key      string
	TicketID string
	token    string
}

func (r *Reservation) Replay() bool {
	return r.TicketID != ""
}

// NewIdempotency keeps completed keys for ttl. An unfinished booking holds
// its key for pendingTTL; that must outlast the booking itself.
func NewIdempotency(client *redis.Client, ttl, pendingTTL time.Duration, log *logger.Logger) *Idempotency {
	return &Idempotency{
		Client:     client,
		TTL:        ttl,
		PendingTTL: pendingTTL,
		Logger:     log,
	}
}

func redisKey(scope, key string) string {
	return keyPrefix + scope + ":" + key
}

// Reserve claims key for scope. If another request holds the key and has not
// finished, ErrBookingInProgress is returned.
func (i *Idempotency) Reserve(ctx context.Context, scope, key string) (*Reservation, error) {
	k := redisKey(scope, key)
	token := pendingPrefix + uuid.New().String()

	ok, err := i.Client.SetNX(ctx, k, token, i.PendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return &Reservation{Key: k, token: token}, nil
	}

	val, err := i.Client.Get(ctx, k).Result()
	if err == redis.Nil {
		// Expired between SETNX and GET; try once more.
		ok, err = i.Client.SetNX(ctx, k, token, i.PendingTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if ok {
			return &Reservation{Key: k, token: token}, nil
		}
		return nil, apperror.ErrBookingInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	if strings.HasPrefix(val, pendingPrefix) {
		return nil, apperror.ErrBookingInProgress
	}

	i.Logger.Info("REDIS", fmt.Sprintf("Idempotency key %s replays ticket %s", k, val))
	return &Reservation{Key: k, TicketID: val}, nil
}

// Complete records the ticket produced under the reservation.
func (i *Idempotency) Complete(ctx context.Context, res *Reservation, ticketID string) error {
	if res == nil || res.Replay() {
		return nil
	}
	err := completeScript.Run(ctx, i.Client, []string{res.Key}, res.token, ticketID, i.TTL.Milliseconds()).Err()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release frees a reservation whose booking failed, so the client can retry.
func (i *Idempotency) Release(ctx context.Context, res *Reservation) error {
	if res == nil || res.Replay() {
		return nil
	}
	if err := releaseScript.Run(ctx, i.Client, []string{res.Key}, res.token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
