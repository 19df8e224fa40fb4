/*
receipt.go - Legacy receipt resolution

PURPOSE:
  Obtains the whole-application receipt blob for the legacy
  redemption path and returns it base64-encoded, ready for the
  ledger's receipt endpoint.

TWO-PHASE SEQUENCE:
  1. Read the cached receipt; if present, return it.
  2. If absent and refresh was not requested, fail with
     ErrMissingReceipt.
  3. If absent and refresh was requested, ask the platform for a
     refresh (best-effort - refresh failures are swallowed), then
     re-read. Still absent -> ErrRefreshProducedNothing.

  The check/refresh/recheck split exists because a refresh is
  expensive and usually unnecessary: most devices already hold a
  receipt from the original install.
*/
package billing

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"
)

// ReceiptResolver resolves the legacy receipt blob from a ReceiptStore.
type ReceiptResolver struct {
	store ReceiptStore
	log   zerolog.Logger
}

// NewReceiptResolver wires a resolver to the platform's receipt access.
func NewReceiptResolver(store ReceiptStore, log zerolog.Logger) *ReceiptResolver {
	return &ReceiptResolver{store: store, log: log.With().Str("component", "receipt").Logger()}
}

// Receipt returns the base64-encoded receipt blob.
// With refreshIfNeeded false, a missing receipt fails immediately with a
// *ReceiptError wrapping ErrMissingReceipt. With refreshIfNeeded true, a
// missing receipt triggers one platform refresh before the final re-read.
func (r *ReceiptResolver) Receipt(ctx context.Context, refreshIfNeeded bool) (string, error) {
	raw, err := r.store.CachedReceipt(ctx)
	if err != nil {
		return "", fmt.Errorf("read cached receipt: %w", err)
	}
	if len(raw) > 0 {
		return base64.StdEncoding.EncodeToString(raw), nil
	}

	if !refreshIfNeeded {
		return "", &ReceiptError{Reason: ErrMissingReceipt}
	}

	// Best-effort refresh: a failure here is logged and swallowed; the
	// re-read below is what decides the outcome.
	if err := r.store.RefreshReceipt(ctx); err != nil {
		r.log.Debug().Err(err).Msg("receipt refresh failed")
	}

	raw, err = r.store.CachedReceipt(ctx)
	if err != nil {
		return "", fmt.Errorf("re-read receipt after refresh: %w", err)
	}
	if len(raw) == 0 {
		return "", &ReceiptError{Reason: ErrRefreshProducedNothing}
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
