/*
Package grant is the credit ledger's domain: durable, idempotent grants.

PURPOSE:
  The server half of the redemption pipeline. Each successfully
  redeemed platform transaction becomes exactly one Grant; a device's
  balance is the sum of its grants. The platform transaction
  identifier is the idempotency key - applying the same transaction
  twice is a no-op that still reports the current balance, which is
  what lets the client side retry blindly.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: grants are never updated or deleted.
  2. IDEMPOTENT: one transaction id = at most one grant, ever.
  3. DERIVED BALANCE: balance is computed from grants, not stored as
     a separate mutable field that can drift.

DUPLICATE CONTRACT:
  A resubmission of an already-granted transaction MUST come back as
  a success with granted=0 and the current balance - never as an
  error. The client treats that shape identically to a fresh grant,
  so re-deliveries after a lost ack settle cleanly.

SEE ALSO:
  - token.go: the wire encoding of transactions and receipts
  - service.go: redemption application shared by both RPC endpoints
  - store/: sqlite, memory, and redis Store implementations
*/
package grant

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// GRANT
// =============================================================================

// Grant records one credit grant for one platform transaction.
type Grant struct {
	// ID is the ledger-assigned grant identifier.
	ID string

	// TransactionID is the platform transaction this grant redeems.
	// Unique across the ledger; the idempotency key.
	TransactionID string

	// DeviceID identifies the device whose balance receives the credits.
	DeviceID string

	// ProductID is the credit pack that was purchased.
	ProductID string

	// Credits is the amount granted.
	Credits int64

	// Protocol records which redemption path produced the grant
	// ("signed" or "receipt").
	Protocol string

	// CreatedAt is when the ledger applied the grant.
	CreatedAt time.Time
}

// Redemption protocols recorded on grants.
const (
	ProtocolSigned  = "signed"
	ProtocolReceipt = "receipt"
)

// =============================================================================
// STORE
// =============================================================================

// ErrStoreUnavailable is returned when the backing store cannot be reached.
var ErrStoreUnavailable = errors.New("grant store unavailable")

// Store persists grants and answers balance queries.
type Store interface {
	// Apply records the grant unless its transaction id was seen before.
	// It returns whether the grant was newly applied, and the device's
	// balance after the call either way.
	Apply(ctx context.Context, g Grant) (applied bool, balance int64, err error)

	// Balance returns the device's current balance. Read-only; an unknown
	// device has balance zero.
	Balance(ctx context.Context, deviceID string) (int64, error)

	// Close releases any underlying resources.
	Close() error
}
