/*
service.go - Redemption application

PURPOSE:
  The logic both RPC endpoints share once their payloads are decoded:
  filter transactions down to known credit packs, apply a grant per
  transaction through the idempotent store, and report the total
  newly-granted credits plus the resulting balance.

RECEIPTS VS TOKENS:
  A signed-token request carries only the transactions the client
  wants redeemed. A receipt carries the application's entire purchase
  history, so most of its entries are subscriptions or consumables the
  ledger has either already granted or never cared about. Both cases
  flow through the same filter-and-apply loop; the idempotent store
  makes re-applying history harmless.
*/
package grant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/waveform/credit-engine/catalog"
)

// ErrNoRedeemableTransactions is returned when a request contains no
// transaction for any known credit pack.
var ErrNoRedeemableTransactions = errors.New("no redeemable transactions in request")

// Service applies decoded redemption requests against the store.
type Service struct {
	store Store
	packs *catalog.Catalog
	log   zerolog.Logger

	// now is swappable in tests
	now func() time.Time
}

// NewService wires a redemption service.
func NewService(store Store, packs *catalog.Catalog, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		packs: packs,
		log:   log.With().Str("component", "grant").Logger(),
		now:   time.Now,
	}
}

// Redeem applies every known-pack transaction in tokens for the device.
// Unknown products are skipped; duplicates contribute zero to granted but
// still resolve the current balance. When no token names a known pack,
// ErrNoRedeemableTransactions is returned.
func (s *Service) Redeem(ctx context.Context, deviceID, protocol string, tokens []Token) (granted, balance int64, err error) {
	redeemable := 0
	for _, t := range tokens {
		credits, ok := s.packs.Credits(t.ProductID)
		if !ok {
			continue // not a credit pack; receipts are full histories
		}
		redeemable++

		applied, bal, err := s.store.Apply(ctx, Grant{
			ID:            uuid.NewString(),
			TransactionID: t.TransactionID,
			DeviceID:      deviceID,
			ProductID:     t.ProductID,
			Credits:       credits,
			Protocol:      protocol,
			CreatedAt:     s.now().UTC(),
		})
		if err != nil {
			return 0, 0, fmt.Errorf("apply grant for %s: %w", t.TransactionID, err)
		}
		balance = bal
		if applied {
			granted += credits
			s.log.Info().
				Str("transaction_id", t.TransactionID).
				Str("device_id", deviceID).
				Str("protocol", protocol).
				Int64("credits", credits).
				Msg("grant applied")
		} else {
			s.log.Debug().
				Str("transaction_id", t.TransactionID).
				Str("device_id", deviceID).
				Msg("duplicate transaction, no grant")
		}
	}

	if redeemable == 0 {
		return 0, 0, ErrNoRedeemableTransactions
	}
	return granted, balance, nil
}

// Balance reports the device's current balance.
func (s *Service) Balance(ctx context.Context, deviceID string) (int64, error) {
	return s.store.Balance(ctx, deviceID)
}
