/*
errors.go - Error types for the platform boundary

PURPOSE:
  Sentinel and structured errors for verification and receipt
  resolution. Callers branch with errors.Is / errors.As; the
  structured types carry enough context for the error string shown
  in the UI's lastError field.

TAXONOMY:
  VerificationError - platform says the transaction is not authentic.
                      Never retried automatically.
  ReceiptError      - the legacy receipt could not be obtained.
                      Terminal for the current attempt; the next
                      re-delivery retries the whole sequence.
*/
package billing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnverified is the root of every VerificationError.
	ErrUnverified = errors.New("transaction failed platform verification")

	// ErrMissingReceipt is returned when no receipt is cached and a refresh
	// was not requested.
	ErrMissingReceipt = errors.New("no cached receipt")

	// ErrRefreshProducedNothing is returned when a receipt refresh completed
	// but still left no receipt behind.
	ErrRefreshProducedNothing = errors.New("receipt refresh produced no receipt")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// VerificationError reports a transaction the platform refused to vouch for.
type VerificationError struct {
	// Cause is the platform's underlying rejection reason.
	Cause error
}

func (e *VerificationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("verification failed: %v", e.Cause)
	}
	return "verification failed"
}

func (e *VerificationError) Unwrap() error { return ErrUnverified }

// ReceiptError reports a failed legacy receipt resolution.
type ReceiptError struct {
	// Reason is one of the receipt sentinels above.
	Reason error
}

func (e *ReceiptError) Error() string {
	return fmt.Sprintf("legacy receipt unavailable: %v", e.Reason)
}

func (e *ReceiptError) Unwrap() error { return e.Reason }
