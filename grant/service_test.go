package grant_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveform/credit-engine/catalog"
	"github.com/waveform/credit-engine/grant"
	"github.com/waveform/credit-engine/store/memory"
)

func newService(t *testing.T) (*grant.Service, *memory.Store) {
	t.Helper()
	packs, err := catalog.New(
		catalog.Product{ID: "credits_10", Name: "10 Credits", Credits: 10},
		catalog.Product{ID: "credits_50", Name: "50 Credits", Credits: 50},
	)
	require.NoError(t, err)

	st := memory.New()
	return grant.NewService(st, packs, zerolog.Nop()), st
}

// =============================================================================
// REDEMPTION
// =============================================================================

func TestRedeem_GrantsKnownPacks(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	granted, balance, err := svc.Redeem(ctx, "device-1", grant.ProtocolSigned, []grant.Token{
		{TransactionID: "tx-1", ProductID: "credits_10"},
		{TransactionID: "tx-2", ProductID: "credits_50"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(60), granted)
	assert.Equal(t, int64(60), balance)
	assert.Len(t, st.Grants(), 2)
}

func TestRedeem_DuplicateIsSuccessWithZeroGrant(t *testing.T) {
	// GIVEN: tx-1 already granted
	// WHEN: the same transaction is resubmitted
	// THEN: success shape with granted=0 and the unchanged balance

	svc, _ := newService(t)
	ctx := context.Background()

	_, _, err := svc.Redeem(ctx, "device-1", grant.ProtocolSigned, []grant.Token{
		{TransactionID: "tx-1", ProductID: "credits_10"},
	})
	require.NoError(t, err)

	granted, balance, err := svc.Redeem(ctx, "device-1", grant.ProtocolSigned, []grant.Token{
		{TransactionID: "tx-1", ProductID: "credits_10"},
	})
	require.NoError(t, err, "duplicates are not errors")
	assert.Equal(t, int64(0), granted)
	assert.Equal(t, int64(10), balance)
}

func TestRedeem_ReceiptHistoryFilteredToPacks(t *testing.T) {
	// A receipt carries the whole purchase history; only credit packs count.
	svc, st := newService(t)

	granted, balance, err := svc.Redeem(context.Background(), "device-1", grant.ProtocolReceipt, []grant.Token{
		{TransactionID: "tx-sub", ProductID: "sub_monthly"},
		{TransactionID: "tx-1", ProductID: "credits_10"},
		{TransactionID: "tx-old", ProductID: "legacy_theme_pack"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), granted)
	assert.Equal(t, int64(10), balance)
	assert.Len(t, st.Grants(), 1, "non-pack history entries are skipped, not granted")
}

func TestRedeem_NothingRedeemable(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.Redeem(context.Background(), "device-1", grant.ProtocolSigned, []grant.Token{
		{TransactionID: "tx-sub", ProductID: "sub_monthly"},
	})
	assert.ErrorIs(t, err, grant.ErrNoRedeemableTransactions)
}

func TestBalance_UnknownDeviceIsZero(t *testing.T) {
	svc, _ := newService(t)

	balance, err := svc.Balance(context.Background(), "device-nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

// =============================================================================
// WIRE FORMAT
// =============================================================================

func TestToken_RoundTrip(t *testing.T) {
	tok := grant.Token{TransactionID: "tx-1", ProductID: "credits_10", Environment: "sandbox", PurchasedAt: 1750000000}

	decoded, err := grant.DecodeToken(grant.EncodeToken(tok))
	require.NoError(t, err)
	assert.Equal(t, tok, decoded)
}

func TestToken_Rejections(t *testing.T) {
	_, err := grant.DecodeToken("!!not-base64!!")
	assert.Error(t, err)

	// Valid base64, missing transaction_id
	_, err = grant.DecodeToken(grant.EncodeToken(grant.Token{ProductID: "credits_10"}))
	assert.Error(t, err)
}

func TestReceipt_RoundTrip(t *testing.T) {
	r := grant.Receipt{Transactions: []grant.Token{
		{TransactionID: "tx-1", ProductID: "credits_10"},
		{TransactionID: "tx-2", ProductID: "sub_monthly"},
	}}

	decoded, err := grant.DecodeReceipt(grant.EncodeReceipt(r))
	require.NoError(t, err)
	assert.Equal(t, r, decoded)
}
