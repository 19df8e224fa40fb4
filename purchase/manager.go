/*
manager.go - Purchase flow and update listener

PURPOSE:
  The two entry points of the redemption pipeline:

  Buy       user-initiated. Starts a platform purchase, awaits its
            immediate result, and feeds a completed purchase through
            verify -> redeem -> finish.
  Run       the long-lived update listener. Drains the platform's
            transaction-update stream (re-deliveries after a crash,
            pending purchases resolving, restores) through the very
            same funnel.

  Both may process the same transaction identifier in rare races.
  That is safe precisely because redemption is idempotent at the
  ledger; the pipeline does no in-process deduplication.

PURCHASE STATES:
  Idle -> Purchasing -> {Verifying -> Redeeming -> {Finished | RetryPending}}
                      | Cancelled | DeferredPending

  Cancelled and pending are terminal-for-now with no error surfaced;
  the update listener eventually observes a pending purchase's
  resolution.

FAILURE POLICY:
  Every failure writes LastError on the state owner, and every path
  decides finish-or-leave-unfinished explicitly via the coordinator's
  Result. An unfinished transaction is the retry: the platform
  re-delivers it.

SEE ALSO:
  - redeem/coordinator.go: protocol selection and the finish decision
  - state.go: the single-owner PurchaseState
*/
package purchase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/waveform/credit-engine/billing"
	"github.com/waveform/credit-engine/catalog"
	"github.com/waveform/credit-engine/redeem"
)

// BalanceFetcher is the read-only slice of the ledger client the manager
// needs for balance refreshes.
type BalanceFetcher interface {
	FetchServerBalance(ctx context.Context, deviceID string) (int64, error)
}

// Config wires a Manager.
type Config struct {
	Platform    billing.Platform
	Coordinator *redeem.Coordinator
	Balances    BalanceFetcher
	Catalog     *catalog.Catalog
	State       *StateOwner
	Events      *Broadcaster
	DeviceID    string
	Log         zerolog.Logger
}

// Manager runs the purchase flow and the update listener.
type Manager struct {
	platform billing.Platform
	coord    *redeem.Coordinator
	balances BalanceFetcher
	packs    *catalog.Catalog
	state    *StateOwner
	events   *Broadcaster
	deviceID string
	log      zerolog.Logger
}

// NewManager creates a manager from the given wiring.
func NewManager(cfg Config) *Manager {
	return &Manager{
		platform: cfg.Platform,
		coord:    cfg.Coordinator,
		balances: cfg.Balances,
		packs:    cfg.Catalog,
		state:    cfg.State,
		events:   cfg.Events,
		deviceID: cfg.DeviceID,
		log:      cfg.Log.With().Str("component", "purchase").Logger(),
	}
}

// =============================================================================
// CATALOG / BALANCE
// =============================================================================

// LoadProducts publishes the catalog into the observable state.
func (m *Manager) LoadProducts(ctx context.Context) {
	products := m.packs.Products()
	m.state.Update(func(s *State) {
		s.Products = products
	})
}

// RefreshBalance queries the ledger for the device's current balance.
// The ledger is the source of truth; nothing is cached locally.
func (m *Manager) RefreshBalance(ctx context.Context) (int64, error) {
	return m.balances.FetchServerBalance(ctx, m.deviceID)
}

// =============================================================================
// PURCHASE FLOW (user-initiated)
// =============================================================================

// Buy runs one user-initiated purchase for a product end to end.
// A cancelled or pending purchase returns nil: neither is an error, and a
// pending purchase's resolution arrives later on the update stream.
func (m *Manager) Buy(ctx context.Context, productID string) error {
	if !m.packs.Contains(productID) {
		err := fmt.Errorf("unknown product %q", productID)
		m.setError(err)
		return err
	}

	m.state.Update(func(s *State) { s.IsLoading = true })
	defer m.state.Update(func(s *State) { s.IsLoading = false })

	res, err := m.platform.Purchase(ctx, productID)
	if err != nil {
		m.setError(err)
		return fmt.Errorf("purchase %s: %w", productID, err)
	}

	switch res.Outcome {
	case billing.OutcomeCancelled:
		m.log.Debug().Str("product_id", productID).Msg("purchase cancelled by user")
		return nil
	case billing.OutcomePending:
		m.log.Info().Str("product_id", productID).Msg("purchase pending external approval")
		return nil
	}

	return m.process(ctx, res.Verification)
}

// =============================================================================
// UPDATE LISTENER (background)
// =============================================================================

// Run consumes the platform's transaction-update stream until ctx is
// cancelled or the stream closes. Started once at process startup.
//
// One bad transaction never stops the drain: verification and redemption
// failures are recorded and the loop moves on to the next element.
func (m *Manager) Run(ctx context.Context) error {
	updates := m.platform.Updates(ctx)
	m.log.Info().Msg("update listener started")

	for {
		select {
		case <-ctx.Done():
			m.log.Info().Msg("update listener stopped")
			return ctx.Err()
		case res, ok := <-updates:
			if !ok {
				m.log.Info().Msg("update stream closed")
				return nil
			}
			// Once processing starts, the redemption call is allowed to
			// complete even if the listener is being torn down: finishing a
			// redeemed transaction beats cancelling it mid-flight and
			// re-attempting the grant later.
			if err := m.process(context.WithoutCancel(ctx), res); err != nil {
				m.log.Warn().Err(err).Msg("update left unfinished, awaiting re-delivery")
			}
		}
	}
}

// =============================================================================
// SHARED FUNNEL
// =============================================================================

// process is the single funnel both entry points converge on:
// verify -> redeem -> finish-or-leave-unfinished.
func (m *Manager) process(ctx context.Context, vres billing.VerificationResult) error {
	tx, err := billing.Verify(vres)
	if err != nil {
		// Unverified: surface, do not finish. The platform may re-deliver,
		// at which point the transaction is re-verified.
		m.setError(err)
		return err
	}

	result, err := m.coord.Redeem(ctx, tx, m.deviceID)

	if result.Finish {
		// The grant (if any) is durable on the ledger. A failed ack is only
		// noise: re-delivery replays the redemption, which the ledger
		// absorbs idempotently.
		if ferr := m.platform.Finish(ctx, tx.ID); ferr != nil {
			m.log.Error().Err(ferr).Str("transaction_id", tx.ID).Msg("finish ack failed")
		}
	}

	if err != nil {
		m.setError(err)
		return err
	}

	if result.Outcome != nil {
		m.state.Update(func(s *State) { s.LastError = "" })
		m.events.Publish()
		m.log.Info().
			Str("transaction_id", tx.ID).
			Int64("granted", result.Outcome.Granted).
			Int64("balance", result.Outcome.Balance).
			Msg("purchase completed")
	}
	return nil
}

func (m *Manager) setError(err error) {
	msg := err.Error()
	m.state.Update(func(s *State) { s.LastError = msg })
}
