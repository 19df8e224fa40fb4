/*
Package redeem turns a verified transaction into a ledger credit grant.

PURPOSE:
  The coordinator owns the one decision that matters in this codebase:
  whether a transaction may be finished. A transaction is finished if
  and only if a redemption call for it has returned success from the
  ledger - never before, on no other evidence. Every return path makes
  that decision explicitly in Result.Finish; there is no default.

ALGORITHM:
  1. Unknown product -> not our concern: finish immediately, no ledger
     call. This drains unrelated platform products so they don't pile
     up on the update stream.
  2. Preferred protocol: submit the signed transaction token.
  3. On signed failure, if a legacy receipt source is wired: resolve
     the receipt (check, refresh, recheck) and submit it to the legacy
     endpoint.
  4. Both protocols failed -> leave unfinished. The platform will
     re-deliver the transaction later and steps 1-4 run again. That
     re-delivery is the entire retry mechanism; there is no internal
     retry timer.

STATE:
  None. Every invocation is independent, so the two concurrent entry
  points (purchase flow, update listener) can safely race through
  here - duplicate submissions are absorbed by ledger-side idempotency.

SEE ALSO:
  - ledger/client.go: the RPCs behind the Ledger interface
  - billing/receipt.go: the ReceiptSource implementation
  - purchase/manager.go: the callers
*/
package redeem

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/waveform/credit-engine/billing"
	"github.com/waveform/credit-engine/catalog"
	"github.com/waveform/credit-engine/ledger"
)

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// Ledger is the slice of the ledger client the coordinator needs.
type Ledger interface {
	RedeemSignedTransactions(ctx context.Context, deviceID string, signed []string) (ledger.Outcome, error)
	RedeemReceipt(ctx context.Context, deviceID, receiptBase64 string) (ledger.Outcome, error)
}

// ReceiptSource resolves the legacy receipt blob. Implemented by
// billing.ReceiptResolver. May be absent (nil) on platforms without
// a legacy receipt, in which case the fallback path is skipped.
type ReceiptSource interface {
	Receipt(ctx context.Context, refreshIfNeeded bool) (string, error)
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the coordinator's verdict on one transaction.
type Result struct {
	// Outcome is the ledger's grant on success. Nil for irrelevant
	// products, which are finished with zero effect.
	Outcome *ledger.Outcome

	// Finish tells the caller whether to acknowledge the transaction to
	// the platform. True only after ledger success or for irrelevant
	// products; false on every failure path, which is what triggers
	// re-delivery.
	Finish bool
}

// RedeemError reports that both redemption protocols failed for a
// transaction. The transaction stays unfinished.
type RedeemError struct {
	TransactionID string
	Signed        error // preferred-protocol failure
	Legacy        error // fallback failure; nil when no legacy path exists
}

func (e *RedeemError) Error() string {
	if e.Legacy != nil {
		return fmt.Sprintf("redeem %s: signed protocol: %v; legacy protocol: %v", e.TransactionID, e.Signed, e.Legacy)
	}
	return fmt.Sprintf("redeem %s: signed protocol: %v (no legacy path)", e.TransactionID, e.Signed)
}

func (e *RedeemError) Unwrap() []error {
	if e.Legacy != nil {
		return []error{e.Signed, e.Legacy}
	}
	return []error{e.Signed}
}

// =============================================================================
// COORDINATOR
// =============================================================================

// Coordinator selects a redemption protocol and calls the ledger.
type Coordinator struct {
	ledger   Ledger
	receipts ReceiptSource // nil disables the legacy fallback
	packs    *catalog.Catalog
	log      zerolog.Logger
}

// New creates a coordinator. receipts may be nil on platforms without a
// legacy receipt.
func New(l Ledger, receipts ReceiptSource, packs *catalog.Catalog, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		ledger:   l,
		receipts: receipts,
		packs:    packs,
		log:      log.With().Str("component", "redeem").Logger(),
	}
}

// Redeem runs the protocol selection for one verified transaction.
//
// On success the returned Result carries the grant and Finish=true; the
// caller must then finish the transaction and broadcast the completion.
// On error the Result always carries Finish=false.
func (c *Coordinator) Redeem(ctx context.Context, tx billing.Transaction, deviceID string) (Result, error) {
	// Step 1: products outside the credit-pack set are not ours. Finish
	// with zero effect so the platform stops re-delivering them.
	if !c.packs.Contains(tx.ProductID) {
		c.log.Debug().
			Str("transaction_id", tx.ID).
			Str("product_id", tx.ProductID).
			Msg("not a credit pack, draining")
		return Result{Finish: true}, nil
	}

	// Step 2: preferred protocol - signed transaction token.
	outcome, signedErr := c.ledger.RedeemSignedTransactions(ctx, deviceID, []string{tx.SignedPayload})
	if signedErr == nil {
		c.log.Info().
			Str("transaction_id", tx.ID).
			Str("product_id", tx.ProductID).
			Int64("granted", outcome.Granted).
			Int64("balance", outcome.Balance).
			Msg("redeemed via signed protocol")
		return Result{Outcome: &outcome, Finish: true}, nil
	}
	c.log.Warn().
		Str("transaction_id", tx.ID).
		Err(signedErr).
		Msg("signed protocol failed")

	// Step 3: legacy fallback, when available.
	if c.receipts == nil {
		return Result{Finish: false}, &RedeemError{TransactionID: tx.ID, Signed: signedErr}
	}

	receipt, err := c.receipts.Receipt(ctx, true)
	if err != nil {
		return Result{Finish: false}, &RedeemError{TransactionID: tx.ID, Signed: signedErr, Legacy: err}
	}

	outcome, legacyErr := c.ledger.RedeemReceipt(ctx, deviceID, receipt)
	if legacyErr != nil {
		// Step 4: both protocols down. Leave unfinished; re-delivery retries.
		return Result{Finish: false}, &RedeemError{TransactionID: tx.ID, Signed: signedErr, Legacy: legacyErr}
	}

	c.log.Info().
		Str("transaction_id", tx.ID).
		Str("product_id", tx.ProductID).
		Int64("granted", outcome.Granted).
		Int64("balance", outcome.Balance).
		Msg("redeemed via legacy receipt")
	return Result{Outcome: &outcome, Finish: true}, nil
}
