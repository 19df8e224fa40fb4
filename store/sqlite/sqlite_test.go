package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveform/credit-engine/grant"
	"github.com/waveform/credit-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testGrant(txID, deviceID string, credits int64) grant.Grant {
	return grant.Grant{
		ID:            "grant-" + txID,
		TransactionID: txID,
		DeviceID:      deviceID,
		ProductID:     "credits_10",
		Credits:       credits,
		Protocol:      grant.ProtocolSigned,
		CreatedAt:     time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestApply_GrantsAndSums(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	applied, balance, err := st.Apply(ctx, testGrant("tx-1", "device-1", 10))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, int64(10), balance)

	applied, balance, err = st.Apply(ctx, testGrant("tx-2", "device-1", 50))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, int64(60), balance)
}

func TestApply_DuplicateTransactionIgnored(t *testing.T) {
	// GIVEN: tx-1 already applied
	// WHEN: the same transaction id arrives again (even for another device)
	// THEN: nothing is written and the balance is unchanged

	st := newTestStore(t)
	ctx := context.Background()

	_, _, err := st.Apply(ctx, testGrant("tx-1", "device-1", 10))
	require.NoError(t, err)

	applied, balance, err := st.Apply(ctx, testGrant("tx-1", "device-1", 10))
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, int64(10), balance)

	// Same transaction id replayed against a different device still no-ops.
	applied, _, err = st.Apply(ctx, testGrant("tx-1", "device-2", 10))
	require.NoError(t, err)
	assert.False(t, applied)

	balance, err = st.Balance(ctx, "device-2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestBalance_PerDevice(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, _, err := st.Apply(ctx, testGrant("tx-1", "device-1", 10))
	require.NoError(t, err)
	_, _, err = st.Apply(ctx, testGrant("tx-2", "device-2", 50))
	require.NoError(t, err)

	b1, err := st.Balance(ctx, "device-1")
	require.NoError(t, err)
	b2, err := st.Balance(ctx, "device-2")
	require.NoError(t, err)

	assert.Equal(t, int64(10), b1)
	assert.Equal(t, int64(50), b2)
}

func TestBalance_UnknownDeviceIsZero(t *testing.T) {
	st := newTestStore(t)

	balance, err := st.Balance(context.Background(), "device-nobody")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}
