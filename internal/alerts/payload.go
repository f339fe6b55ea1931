// Package alerts tracks which sessions listen to which card tokens and fans
// persisted transactions out to them.
package alerts

import (
	"fmt"
	"strings"
	"time"

	"github.com/honeypot-card-monitor/internal/domain/merchant"
	"github.com/honeypot-card-monitor/internal/domain/transaction"
)

// Verification carries the fields a voice agent uses to interrogate a suspect
// about a transaction they should not be able to describe
type Verification struct {
	AuthorizationCode  string `json:"authorization_code,omitempty"`
	RetrievalReference string `json:"retrieval_reference,omitempty"`
	MerchantCategory   string `json:"merchant_category,omitempty"`
}

// Alert is the transient notification delivered to listening sessions. It is
// never stored, only delivered.
type Alert struct {
	Type               string       `json:"type"`
	TransactionToken   string       `json:"transaction_token"`
	CardToken          string       `json:"card_token"`
	Amount             string       `json:"amount"`
	MerchantDescriptor string       `json:"merchant_descriptor"`
	MerchantLocation   string       `json:"merchant_location,omitempty"`
	Result             string       `json:"result"`
	Network            string       `json:"network,omitempty"`
	Created            time.Time    `json:"created"`
	Verification       Verification `json:"verification"`
}

// NewAlert builds the notification for a just-persisted transaction. The
// merchant may be nil when resolution yielded nothing.
func NewAlert(txn *transaction.Transaction, m *merchant.Merchant) Alert {
	alert := Alert{
		Type:               "transaction_alert",
		TransactionToken:   txn.Token,
		CardToken:          txn.CardToken,
		Amount:             formatAmount(txn.CardholderAmount, txn.CardholderCurrency),
		MerchantDescriptor: merchant.UnknownDescriptor,
		Result:             string(txn.Result),
		Network:            txn.Network,
		Created:            txn.Created,
		Verification: Verification{
			AuthorizationCode:  txn.AuthorizationCode,
			RetrievalReference: txn.RetrievalReference,
		},
	}

	if m != nil {
		alert.MerchantDescriptor = m.Descriptor
		alert.MerchantLocation = formatLocation(m)
		if m.Category != nil {
			alert.Verification.MerchantCategory = *m.Category
		}
	}

	return alert
}

// formatAmount renders minor units as a human-readable decimal with currency
func formatAmount(minorUnits int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(minorUnits)/100, currency)
}

func formatLocation(m *merchant.Merchant) string {
	var parts []string
	for _, p := range []*string{m.City, m.State, m.Country} {
		if p != nil && *p != "" {
			parts = append(parts, *p)
		}
	}
	return strings.Join(parts, ", ")
}
