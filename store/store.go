/*
Package store selects a grant.Store backend from configuration.

BACKENDS:
  memory  ephemeral, for dev and tests
  sqlite  durable single-node (dsn = database path, ":memory:" works)
  redis   shared multi-node (dsn = host:port)
*/
package store

import (
	"fmt"

	"github.com/waveform/credit-engine/grant"
	"github.com/waveform/credit-engine/store/memory"
	redisstore "github.com/waveform/credit-engine/store/redis"
	"github.com/waveform/credit-engine/store/sqlite"
)

// Open constructs the named backend. The caller owns Close.
func Open(kind, dsn string) (grant.Store, error) {
	switch kind {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		if dsn == "" {
			return nil, fmt.Errorf("sqlite backend requires a database path")
		}
		return sqlite.New(dsn)
	case "redis":
		if dsn == "" {
			return nil, fmt.Errorf("redis backend requires an address")
		}
		return redisstore.New(dsn), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}
