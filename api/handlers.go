/*
handlers.go - HTTP handlers for the ledger service

PURPOSE:
  Exposes the credit ledger over REST. Handles HTTP parsing, JSON
  serialization, and delegates grant application to grant.Service.

ENDPOINTS:
  POST /v1/redeem/signed   Redeem signed transaction tokens
  POST /v1/redeem/receipt  Redeem a legacy receipt blob
  GET  /v1/balance         Current balance for a device
  GET  /healthz            Liveness probe

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: missing/invalid request fields
  - 422: undecodable token or receipt, nothing redeemable
  - 500: store failures

IDEMPOTENCY AT THE WIRE:
  Duplicate transactions are NOT errors. They come back as 200 with
  granted=0 and the current balance, so a client that lost the
  previous response can retry and settle.

SEE ALSO:
  - dto.go: request/response shapes
  - grant/service.go: the application logic
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/waveform/credit-engine/grant"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the dependencies for all ledger endpoints.
type Handler struct {
	Grants *grant.Service
}

// NewHandler creates a handler over the given grant service.
func NewHandler(grants *grant.Service) *Handler {
	return &Handler{Grants: grants}
}

// =============================================================================
// REDEMPTION HANDLERS
// =============================================================================

// RedeemSigned redeems signed transaction tokens.
// POST /v1/redeem/signed
func (h *Handler) RedeemSigned(w http.ResponseWriter, r *http.Request) {
	var req RedeemSignedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "bad_request")
		return
	}
	if req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required", "bad_request")
		return
	}
	if len(req.SignedTransactions) == 0 {
		writeError(w, http.StatusBadRequest, "signed_transactions is empty", "bad_request")
		return
	}

	tokens := make([]grant.Token, 0, len(req.SignedTransactions))
	for _, s := range req.SignedTransactions {
		t, err := grant.DecodeToken(s)
		if err != nil {
			observeRedemption(grant.ProtocolSigned, "invalid_token")
			writeError(w, http.StatusUnprocessableEntity, err.Error(), "invalid_token")
			return
		}
		tokens = append(tokens, t)
	}

	h.redeem(w, r, req.DeviceID, grant.ProtocolSigned, tokens)
}

// RedeemReceipt redeems a legacy whole-application receipt.
// POST /v1/redeem/receipt
func (h *Handler) RedeemReceipt(w http.ResponseWriter, r *http.Request) {
	var req RedeemReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "bad_request")
		return
	}
	if req.DeviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required", "bad_request")
		return
	}
	if req.ReceiptBase64 == "" {
		writeError(w, http.StatusBadRequest, "receipt is required", "bad_request")
		return
	}

	receipt, err := grant.DecodeReceipt(req.ReceiptBase64)
	if err != nil {
		observeRedemption(grant.ProtocolReceipt, "invalid_receipt")
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "invalid_receipt")
		return
	}

	h.redeem(w, r, req.DeviceID, grant.ProtocolReceipt, receipt.Transactions)
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request, deviceID, protocol string, tokens []grant.Token) {
	granted, balance, err := h.Grants.Redeem(r.Context(), deviceID, protocol, tokens)
	if err != nil {
		if errors.Is(err, grant.ErrNoRedeemableTransactions) {
			observeRedemption(protocol, "nothing_redeemable")
			writeError(w, http.StatusUnprocessableEntity, err.Error(), "nothing_redeemable")
			return
		}
		observeRedemption(protocol, "store_error")
		writeError(w, http.StatusInternalServerError, "failed to apply grants", "internal")
		return
	}

	if granted > 0 {
		observeRedemption(protocol, "granted")
		observeGranted(granted)
	} else {
		observeRedemption(protocol, "duplicate")
	}
	writeJSON(w, http.StatusOK, RedeemResponse{Granted: granted, Balance: balance})
}

// =============================================================================
// BALANCE HANDLER
// =============================================================================

// Balance returns the device's current balance. Read-only.
// GET /v1/balance?device_id=...
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "device_id is required", "bad_request")
		return
	}

	balance, err := h.Grants.Balance(r.Context(), deviceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read balance", "internal")
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{DeviceID: deviceID, Balance: balance})
}

// Healthz is a liveness probe.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}
