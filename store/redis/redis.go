/*
Package redis provides the Redis-backed grant store.

PURPOSE:
  grant.Store for multi-node ledger deployments where several daemon
  instances share one balance space.

IDEMPOTENCY:
  A single Lua script per apply:
    1) SETNX grant:<transaction_id> <grant_id>
    2) if set -> INCRBY balance:<device_id> credits
    3) if not set (already applied) -> read the balance, change nothing
  The script runs atomically on the server, so two racing applies of
  the same transaction can never both increment.

  Unlike ephemeral commit markers, grant markers are the ledger's
  record of processed transactions and carry no TTL.
*/
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/waveform/credit-engine/grant"
)

// applyScript performs the idempotent grant. Returns {applied, balance}.
const applyScript = `
local balanceKey = KEYS[1]
local markerKey = KEYS[2]
local credits = tonumber(ARGV[1])
local grantId = ARGV[2]
local set = redis.call('SETNX', markerKey, grantId)
if set == 1 then
  local bal = redis.call('INCRBY', balanceKey, credits)
  return {1, bal}
end
return {0, tonumber(redis.call('GET', balanceKey)) or 0}
`

// Key layout helpers.
func balanceKey(deviceID string) string     { return fmt.Sprintf("balance:%s", deviceID) }
func markerKey(transactionID string) string { return fmt.Sprintf("grant:%s", transactionID) }

// Store implements grant.Store on Redis.
type Store struct {
	rdb   goredis.Cmdable
	close func() error
}

// New connects to Redis at addr (e.g. "127.0.0.1:6379").
func New(addr string) *Store {
	c := goredis.NewClient(&goredis.Options{Addr: addr})
	return &Store{rdb: c, close: c.Close}
}

// NewWithClient wraps an existing client; Close becomes a no-op.
func NewWithClient(rdb goredis.Cmdable) *Store {
	return &Store{rdb: rdb, close: func() error { return nil }}
}

// Apply runs the idempotent grant script.
func (s *Store) Apply(ctx context.Context, g grant.Grant) (bool, int64, error) {
	res, err := s.rdb.Eval(ctx, applyScript,
		[]string{balanceKey(g.DeviceID), markerKey(g.TransactionID)},
		g.Credits, g.ID,
	).Result()
	if err != nil {
		return false, 0, fmt.Errorf("%w: eval apply: %v", grant.ErrStoreUnavailable, err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return false, 0, fmt.Errorf("apply script returned unexpected shape %T", res)
	}
	applied, ok1 := vals[0].(int64)
	balance, ok2 := vals[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, fmt.Errorf("apply script returned non-integer values")
	}
	return applied == 1, balance, nil
}

// Balance reads the device's balance counter; zero for unknown devices.
func (s *Store) Balance(ctx context.Context, deviceID string) (int64, error) {
	val, err := s.rdb.Get(ctx, balanceKey(deviceID)).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: get balance: %v", grant.ErrStoreUnavailable, err)
	}
	return val, nil
}

// Close releases the underlying client when this store owns it.
func (s *Store) Close() error { return s.close() }

var _ grant.Store = (*Store)(nil)
