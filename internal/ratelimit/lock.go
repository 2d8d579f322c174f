package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Deletes the key only while it still carries our holder id.
const releaseOrderLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var errOrderLockUnavailable = errors.New("order lock requires redis")

// orderLock serializes payment verification per gateway order id.
type orderLock struct {
	client  redis.Cmdable
	release *redis.Script
	ttl     time.Duration
}

func newOrderLock(client redis.Cmdable, ttl time.Duration) *orderLock {
	if client == nil {
		return nil
	}
	return &orderLock{
		client:  client,
		release: redis.NewScript(releaseOrderLockScript),
		ttl:     ttl,
	}
}

func orderLockKey(orderID string) (string, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return "", errors.New("order id is empty")
	}
	return fmt.Sprintf(keyPaymentOrder, orderID), nil
}

// acquire takes the lock for orderID. ErrLocked means a verification for the
// same order is already in flight. The returned func is safe to call after
// the lock expired.
func (o *orderLock) acquire(ctx context.Context, orderID string) (func(), error) {
	if o == nil || o.client == nil {
		return nil, errOrderLockUnavailable
	}
	key, err := orderLockKey(orderID)
	if err != nil {
		return nil, err
	}

	holder := uuid.NewString()
	ok, err := o.client.SetNX(ctx, key, holder, o.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		_ = o.release.Run(context.WithoutCancel(ctx), o.client, []string{key}, holder).Err()
	}, nil
}
