package redeem_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveform/credit-engine/billing"
	"github.com/waveform/credit-engine/catalog"
	"github.com/waveform/credit-engine/ledger"
	"github.com/waveform/credit-engine/redeem"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// mockLedger tracks seen payloads to model the server's idempotency: a
// repeated submission grants nothing but still reports the balance.
type mockLedger struct {
	mu sync.Mutex

	signedErr error // non-nil fails the signed endpoint
	legacyErr error // non-nil fails the legacy endpoint
	credits   int64

	seen    map[string]bool
	balance int64

	signedCalls int
	legacyCalls int
}

func newMockLedger(credits int64) *mockLedger {
	return &mockLedger{credits: credits, seen: make(map[string]bool)}
}

func (m *mockLedger) RedeemSignedTransactions(_ context.Context, _ string, signed []string) (ledger.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signedCalls++
	if m.signedErr != nil {
		return ledger.Outcome{}, m.signedErr
	}
	return m.applyLocked(signed...), nil
}

func (m *mockLedger) RedeemReceipt(_ context.Context, _ string, receipt string) (ledger.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.legacyCalls++
	if m.legacyErr != nil {
		return ledger.Outcome{}, m.legacyErr
	}
	return m.applyLocked(receipt), nil
}

func (m *mockLedger) applyLocked(keys ...string) ledger.Outcome {
	var granted int64
	for _, k := range keys {
		if !m.seen[k] {
			m.seen[k] = true
			m.balance += m.credits
			granted += m.credits
		}
	}
	return ledger.Outcome{Granted: granted, Balance: m.balance}
}

// staticReceipts returns a fixed receipt blob, or an error.
type staticReceipts struct {
	blob string
	err  error
}

func (s staticReceipts) Receipt(context.Context, bool) (string, error) {
	return s.blob, s.err
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(catalog.Product{ID: "credits_10", Name: "10 Credits", Credits: 10})
	require.NoError(t, err)
	return c
}

func testTx() billing.Transaction {
	return billing.Transaction{
		ID:            "tx-1",
		ProductID:     "credits_10",
		SignedPayload: "signed-tx-1",
	}
}

// =============================================================================
// PROTOCOL SELECTION
// =============================================================================

func TestRedeem_SignedProtocolPreferred(t *testing.T) {
	l := newMockLedger(10)
	c := redeem.New(l, staticReceipts{blob: "receipt"}, testCatalog(t), zerolog.Nop())

	res, err := c.Redeem(context.Background(), testTx(), "device-1")
	require.NoError(t, err)

	assert.True(t, res.Finish)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, int64(10), res.Outcome.Granted)
	assert.Equal(t, int64(10), res.Outcome.Balance)
	assert.Equal(t, 1, l.signedCalls)
	assert.Equal(t, 0, l.legacyCalls, "legacy path not touched when signed succeeds")
}

func TestRedeem_FallbackToLegacyReceipt(t *testing.T) {
	// GIVEN: the signed endpoint fails, the legacy endpoint works
	// WHEN: redeeming
	// THEN: the transaction finishes with the legacy-path outcome

	l := newMockLedger(10)
	l.signedErr = errors.New("platform version unsupported")
	c := redeem.New(l, staticReceipts{blob: "receipt-blob"}, testCatalog(t), zerolog.Nop())

	res, err := c.Redeem(context.Background(), testTx(), "device-1")
	require.NoError(t, err)

	assert.True(t, res.Finish)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, int64(10), res.Outcome.Granted)
	assert.Equal(t, 1, l.legacyCalls)
}

func TestRedeem_BothProtocolsFail_LeavesUnfinished(t *testing.T) {
	l := newMockLedger(10)
	l.signedErr = errors.New("signed rejected")
	l.legacyErr = errors.New("receipt rejected")
	c := redeem.New(l, staticReceipts{blob: "receipt-blob"}, testCatalog(t), zerolog.Nop())

	res, err := c.Redeem(context.Background(), testTx(), "device-1")
	require.Error(t, err)

	assert.False(t, res.Finish, "failure must leave the transaction unfinished for re-delivery")
	assert.Nil(t, res.Outcome)

	var rerr *redeem.RedeemError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "tx-1", rerr.TransactionID)
	assert.Error(t, rerr.Signed)
	assert.Error(t, rerr.Legacy)
}

func TestRedeem_NoLegacyPath_LeavesUnfinished(t *testing.T) {
	l := newMockLedger(10)
	l.signedErr = errors.New("signed rejected")
	c := redeem.New(l, nil, testCatalog(t), zerolog.Nop())

	res, err := c.Redeem(context.Background(), testTx(), "device-1")
	require.Error(t, err)
	assert.False(t, res.Finish)
	assert.Equal(t, 0, l.legacyCalls)
}

func TestRedeem_ReceiptUnobtainable_LeavesUnfinished(t *testing.T) {
	l := newMockLedger(10)
	l.signedErr = errors.New("signed rejected")
	receiptErr := &billing.ReceiptError{Reason: billing.ErrMissingReceipt}
	c := redeem.New(l, staticReceipts{err: receiptErr}, testCatalog(t), zerolog.Nop())

	res, err := c.Redeem(context.Background(), testTx(), "device-1")
	require.Error(t, err)

	assert.False(t, res.Finish)
	assert.ErrorIs(t, err, billing.ErrMissingReceipt, "receipt failure is reachable through the redeem error")
	assert.Equal(t, 0, l.legacyCalls, "no ledger call without a receipt")
}

// =============================================================================
// IRRELEVANT PRODUCTS
// =============================================================================

func TestRedeem_IrrelevantProduct_FinishWithoutLedgerCall(t *testing.T) {
	l := newMockLedger(10)
	c := redeem.New(l, staticReceipts{blob: "receipt"}, testCatalog(t), zerolog.Nop())

	tx := billing.Transaction{ID: "tx-sub", ProductID: "sub_monthly", SignedPayload: "signed-sub"}
	res, err := c.Redeem(context.Background(), tx, "device-1")
	require.NoError(t, err)

	assert.True(t, res.Finish, "unrelated products are drained by finishing immediately")
	assert.Nil(t, res.Outcome, "no grant for unrelated products")
	assert.Equal(t, 0, l.signedCalls)
	assert.Equal(t, 0, l.legacyCalls)
}

// =============================================================================
// IDEMPOTENCY
// =============================================================================

func TestRedeem_TwiceYieldsSameBalance(t *testing.T) {
	// GIVEN: a ledger that tracks seen transaction ids
	// WHEN: the same transaction is redeemed twice (the re-delivery race)
	// THEN: balance after the second call equals balance after the first

	l := newMockLedger(10)
	c := redeem.New(l, nil, testCatalog(t), zerolog.Nop())
	tx := testTx()

	first, err := c.Redeem(context.Background(), tx, "device-1")
	require.NoError(t, err)
	require.NotNil(t, first.Outcome)
	assert.Equal(t, int64(10), first.Outcome.Balance)

	second, err := c.Redeem(context.Background(), tx, "device-1")
	require.NoError(t, err)
	require.NotNil(t, second.Outcome)

	assert.Equal(t, first.Outcome.Balance, second.Outcome.Balance, "no double grant")
	assert.Equal(t, int64(0), second.Outcome.Granted, "duplicate grants nothing")
	assert.True(t, second.Finish, "a duplicate success still finishes the transaction")
}
