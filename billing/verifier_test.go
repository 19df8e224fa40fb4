package billing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveform/credit-engine/billing"
)

func TestVerify_VerifiedPassesThrough(t *testing.T) {
	tx := billing.Transaction{
		ID:            "tx-1",
		ProductID:     "credits_10",
		Environment:   billing.EnvProduction,
		PurchasedAt:   time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC),
		SignedPayload: "signed-blob",
	}

	got, err := billing.Verify(billing.Verified(tx))
	require.NoError(t, err)
	assert.Equal(t, tx, got)
}

func TestVerify_UnverifiedWrapsCause(t *testing.T) {
	cause := errors.New("signature mismatch")

	_, err := billing.Verify(billing.Unverified(cause))
	require.Error(t, err)

	var verr *billing.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, cause, verr.Cause)
	assert.ErrorIs(t, err, billing.ErrUnverified)
	assert.Contains(t, err.Error(), "signature mismatch")
}
