/*
token.go - Wire encoding of transactions and receipts

PURPOSE:
  The dev/reference wire format the ledger accepts: a signed
  transaction token is a base64 JSON envelope naming the transaction
  and product; a receipt is a base64 JSON blob carrying every
  transaction the application ever saw (which is why the server, not
  the client, filters receipts down to known credit packs).

  Real deployments verify platform signatures before trusting these
  fields; that verification is the billing platform's concern and
  deliberately outside this ledger.
*/
package grant

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Token is the decoded payload of one signed transaction.
type Token struct {
	TransactionID string `json:"transaction_id"`
	ProductID     string `json:"product_id"`
	Environment   string `json:"environment,omitempty"`
	PurchasedAt   int64  `json:"purchased_at,omitempty"` // unix seconds
}

// Receipt is the decoded whole-application receipt blob.
type Receipt struct {
	Transactions []Token `json:"transactions"`
}

// EncodeToken renders a token in the wire format.
func EncodeToken(t Token) string {
	raw, _ := json.Marshal(t)
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeToken parses a wire-format token.
func DecodeToken(s string) (Token, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Token{}, fmt.Errorf("token: invalid base64: %w", err)
	}
	var t Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return Token{}, fmt.Errorf("token: invalid payload: %w", err)
	}
	if t.TransactionID == "" {
		return Token{}, fmt.Errorf("token: missing transaction_id")
	}
	return t, nil
}

// EncodeReceipt renders a receipt in the wire format.
func EncodeReceipt(r Receipt) string {
	raw, _ := json.Marshal(r)
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeReceipt parses a wire-format receipt.
func DecodeReceipt(s string) (Receipt, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Receipt{}, fmt.Errorf("receipt: invalid base64: %w", err)
	}
	var r Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return Receipt{}, fmt.Errorf("receipt: invalid payload: %w", err)
	}
	return r, nil
}
