// Package upstream is the client for the card processor API the pipeline
// polls. Transactions are returned as raw JSON so the parser owns the
// conversion to canonical records and the original payload survives for audit.
package upstream

import (
	"encoding/json"
	"time"
)

// RawTransaction mirrors the upstream processor's transaction object. Every
// field besides the token is optional upstream; absence is handled by the
// parser, never an error here.
type RawTransaction struct {
	Token             string       `json:"token"`
	CardToken         string       `json:"card_token"`
	Network           string       `json:"network,omitempty"` // Top-level fallback network field
	AuthorizationCode string       `json:"authorization_code,omitempty"`
	Result            string       `json:"result,omitempty"`
	Created           time.Time    `json:"created"`
	Merchant          *RawMerchant `json:"merchant,omitempty"`
	Events            []RawEvent   `json:"events,omitempty"` // Most recent entry first
}

// RawMerchant is the merchant block attached to an upstream transaction
type RawMerchant struct {
	AcceptorID *string `json:"acceptor_id,omitempty"`
	Descriptor string  `json:"descriptor,omitempty"`
	City       *string `json:"city,omitempty"`
	State      *string `json:"state,omitempty"`
	Country    *string `json:"country,omitempty"`
	MCC        *string `json:"mcc,omitempty"`
}

// RawEvent is one lifecycle entry (authorization, clearing, ...) on an
// upstream transaction
type RawEvent struct {
	Amounts     *RawAmounts     `json:"amounts,omitempty"`
	NetworkInfo *RawNetworkInfo `json:"network_info,omitempty"`
	Created     time.Time       `json:"created,omitempty"`
}

// RawAmounts carries the cardholder- and merchant-side money fields of an event
type RawAmounts struct {
	Cardholder *RawAmount `json:"cardholder,omitempty"`
	Merchant   *RawAmount `json:"merchant,omitempty"`
}

// RawAmount is a single money value in minor units
type RawAmount struct {
	Amount         int64   `json:"amount"`
	Currency       string  `json:"currency,omitempty"`
	ConversionRate float64 `json:"conversion_rate,omitempty"`
}

// RawNetworkInfo holds per-network sub-objects. The sub-objects' contents are
// opaque to this pipeline; only their presence matters for network detection.
// The acquirer block is read regardless of which network matched.
type RawNetworkInfo struct {
	Acquirer   *RawAcquirer    `json:"acquirer,omitempty"`
	Visa       json.RawMessage `json:"visa,omitempty"`
	Mastercard json.RawMessage `json:"mastercard,omitempty"`
	Amex       json.RawMessage `json:"amex,omitempty"`
}

// RawAcquirer carries acquirer-side references for an event
type RawAcquirer struct {
	RetrievalReferenceNumber string `json:"retrieval_reference_number,omitempty"`
}
