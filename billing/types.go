/*
Package billing defines the boundary with the platform billing service.

PURPOSE:
  Everything the redemption pipeline knows about the platform's
  in-app purchase machinery lives here: the Transaction handle, the
  verification result envelope, the purchase outcome, and the
  Platform interface the pipeline talks through.

OWNERSHIP:
  A Transaction is a handle into platform-managed state, not a record
  this subsystem owns. The pipeline only reads it and - after a
  successful ledger redemption, never before - acknowledges it back
  to the platform via Finish. An unfinished transaction is re-delivered
  on the platform's update stream at next launch, which is the
  pipeline's whole retry mechanism.

VERIFICATION:
  The platform hands over results that are already either verified or
  unverified; cryptographic checking is the platform's job. See
  verifier.go for the mapping into the pipeline.

SEE ALSO:
  - verifier.go: VerificationResult -> Transaction
  - receipt.go: legacy receipt resolution
  - fake.go: in-memory Platform for tests and the simulator
*/
package billing

import (
	"context"
	"time"
)

// =============================================================================
// TRANSACTION
// =============================================================================

// Environment distinguishes sandbox from production purchases.
type Environment string

const (
	EnvSandbox    Environment = "sandbox"
	EnvProduction Environment = "production"
)

// Transaction is the platform's record of a completed or pending purchase.
// Immutable once obtained.
type Transaction struct {
	// ID is the platform-unique transaction identifier.
	ID string

	// ProductID is the purchased product's identifier.
	ProductID string

	// Environment is where the purchase happened.
	Environment Environment

	// PurchasedAt is the platform purchase timestamp.
	PurchasedAt time.Time

	// SignedPayload is the raw signed representation of this transaction,
	// submitted verbatim to the ledger's signed-redemption endpoint.
	SignedPayload string
}

// =============================================================================
// VERIFICATION RESULT
// =============================================================================

// VerificationResult is the platform's opaque verdict on a transaction:
// either verified with a transaction attached, or unverified with the
// underlying platform error. Construct with Verified or Unverified.
type VerificationResult struct {
	tx  Transaction
	err error
}

// Verified wraps a transaction the platform vouches for.
func Verified(tx Transaction) VerificationResult {
	return VerificationResult{tx: tx}
}

// Unverified wraps the platform's rejection reason.
func Unverified(err error) VerificationResult {
	return VerificationResult{err: err}
}

// =============================================================================
// PURCHASE OUTCOME
// =============================================================================

// PurchaseOutcome is the immediate result of a user-initiated purchase call.
type PurchaseOutcome int

const (
	// OutcomeCompleted: the platform returned a verification result.
	OutcomeCompleted PurchaseOutcome = iota

	// OutcomeCancelled: the user backed out. Not an error.
	OutcomeCancelled

	// OutcomePending: the purchase awaits external approval (e.g. parental
	// consent). The update stream will deliver its resolution later.
	OutcomePending
)

func (o PurchaseOutcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomePending:
		return "pending"
	default:
		return "unknown"
	}
}

// PurchaseResult carries the outcome of Platform.Purchase. Verification is
// meaningful only when Outcome is OutcomeCompleted.
type PurchaseResult struct {
	Outcome      PurchaseOutcome
	Verification VerificationResult
}

// =============================================================================
// PLATFORM INTERFACE
// =============================================================================

// Platform is the billing service the pipeline runs against.
type Platform interface {
	// Purchase starts a platform purchase for the product and awaits its
	// immediate result.
	Purchase(ctx context.Context, productID string) (PurchaseResult, error)

	// Updates returns the platform's transaction-update stream: re-deliveries
	// of unfinished transactions, resolutions of pending purchases, and
	// restores. The channel is closed when the platform shuts the stream down.
	Updates(ctx context.Context) <-chan VerificationResult

	// Finish acknowledges a transaction as fully processed. After a finish
	// the platform will not re-deliver it.
	Finish(ctx context.Context, transactionID string) error
}

// ReceiptStore is the platform's whole-application receipt access, used only
// by the legacy redemption path.
type ReceiptStore interface {
	// CachedReceipt returns the locally cached receipt blob, if any.
	// A nil or empty slice means no receipt is cached.
	CachedReceipt(ctx context.Context) ([]byte, error)

	// RefreshReceipt asks the platform to fetch a fresh receipt. Expensive.
	RefreshReceipt(ctx context.Context) error
}
