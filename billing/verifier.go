/*
verifier.go - VerificationResult -> Transaction mapping

PURPOSE:
  Pure mapping from the platform's opaque verification verdict to
  either a trusted Transaction or a VerificationError. No network
  calls, no side effects. The platform has already done the
  cryptographic work; this is the single place its verdict enters
  the pipeline.

RETRY POLICY:
  A VerificationError is never retried automatically. The transaction
  is left unfinished, so the platform may re-deliver it, at which
  point it is re-verified from scratch.
*/
package billing

// Verify extracts the trusted transaction from a verification result.
// On an unverified result it returns a *VerificationError wrapping the
// platform's underlying reason.
func Verify(res VerificationResult) (Transaction, error) {
	if res.err != nil {
		return Transaction{}, &VerificationError{Cause: res.err}
	}
	return res.tx, nil
}
