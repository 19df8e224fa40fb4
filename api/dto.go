/*
dto.go - Data Transfer Objects for the ledger API

PURPOSE:
  JSON shapes for the three ledger RPCs. These mirror the client
  types in ledger/client.go; keeping a separate copy here means the
  server's wire contract can't drift silently when client internals
  move.

VALIDATION:
  Done in handlers, not in DTOs. DTOs are pure data carriers.
*/
package api

// RedeemSignedRequest submits signed transaction tokens.
type RedeemSignedRequest struct {
	DeviceID           string   `json:"device_id"`
	SignedTransactions []string `json:"signed_transactions"`
}

// RedeemReceiptRequest submits a whole-application receipt blob.
type RedeemReceiptRequest struct {
	DeviceID      string `json:"device_id"`
	ReceiptBase64 string `json:"receipt"`
}

// RedeemResponse is the success shape for both redemption endpoints.
// Granted is zero when every submitted transaction was a duplicate.
type RedeemResponse struct {
	Granted int64 `json:"granted"`
	Balance int64 `json:"balance"`
}

// BalanceResponse answers the read-only balance query.
type BalanceResponse struct {
	DeviceID string `json:"device_id"`
	Balance  int64  `json:"balance"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
