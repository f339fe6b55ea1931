package transaction

import (
	"encoding/json"
	"time"
)

// Result is the upstream authorization outcome for a transaction
type Result string

const (
	ResultApproved Result = "APPROVED"
	ResultDeclined Result = "DECLINED"
	ResultPending  Result = "PENDING"

	// ResultUnknown is the sentinel used when the upstream object carries no
	// result. It propagates through the pipeline instead of failing the parse.
	ResultUnknown Result = "UNKNOWN"
)

// Transaction is the canonical record of one card transaction as reported by
// the upstream processor. It is immutable once stored; the upstream token is
// the idempotency key.
type Transaction struct {
	Token              string          `json:"token"`
	CardToken          string          `json:"card_token"`
	Network            string          `json:"network,omitempty"`
	AuthorizationCode  string          `json:"authorization_code,omitempty"`
	RetrievalReference string          `json:"retrieval_reference,omitempty"`
	CardholderAmount   int64           `json:"cardholder_amount"` // Minor units
	CardholderCurrency string          `json:"cardholder_currency"`
	MerchantAmount     int64           `json:"merchant_amount"` // Minor units
	MerchantCurrency   string          `json:"merchant_currency"`
	ConversionRate     float64         `json:"conversion_rate"`
	Result             Result          `json:"result"`
	Created            time.Time       `json:"created"`
	Raw                json.RawMessage `json:"raw,omitempty"` // Upstream payload kept for audit
}

// Stats aggregates the stored transactions for end-of-cycle reporting
type Stats struct {
	Count         int64   `json:"count"`
	ApprovalRate  float64 `json:"approval_rate"`  // Fraction of stored rows with an APPROVED result
	AverageAmount float64 `json:"average_amount"` // Mean cardholder amount in minor units
}
