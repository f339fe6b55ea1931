// Package parser converts raw upstream transaction objects into canonical
// transaction records and merchant sightings. Missing optional fields fall
// back to defaults; only a malformed object fails the parse.
package parser

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/honeypot-card-monitor/internal/domain/merchant"
	"github.com/honeypot-card-monitor/internal/domain/transaction"
	"github.com/honeypot-card-monitor/internal/platform/upstream"
)

// FallbackCurrency is assumed when an event carries an amount with no currency
const FallbackCurrency = "USD"

// ParseError indicates the raw input was not a well-formed transaction object
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "malformed upstream transaction: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParsedEvent is the canonical output for one upstream transaction object
type ParsedEvent struct {
	Transaction *transaction.Transaction
	Merchant    merchant.Descriptor
}

// PeekToken extracts just the transaction token so callers can run the dedup
// gate without paying for a full parse
func PeekToken(raw json.RawMessage) (string, error) {
	var peek struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return "", &ParseError{Err: err}
	}
	if peek.Token == "" {
		return "", &ParseError{Err: errors.New("missing token")}
	}
	return peek.Token, nil
}

// Parse converts one raw upstream object into its canonical records
func Parse(raw json.RawMessage) (*ParsedEvent, error) {
	var rawTxn upstream.RawTransaction
	if err := json.Unmarshal(raw, &rawTxn); err != nil {
		return nil, &ParseError{Err: err}
	}
	if rawTxn.Token == "" {
		return nil, &ParseError{Err: errors.New("missing token")}
	}

	txn := &transaction.Transaction{
		Token:             rawTxn.Token,
		CardToken:         rawTxn.CardToken,
		AuthorizationCode: rawTxn.AuthorizationCode,
		Result:            parseResult(rawTxn.Result),
		Created:           rawTxn.Created,
		Raw:               raw,
	}

	// Amounts come from the most recent event entry (index 0)
	event := latestEvent(&rawTxn)
	applyAmounts(txn, event)
	txn.Network = deriveNetwork(&rawTxn, event)
	txn.RetrievalReference = retrievalReference(event)

	return &ParsedEvent{
		Transaction: txn,
		Merchant:    merchantDescriptor(rawTxn.Merchant),
	}, nil
}

func latestEvent(rawTxn *upstream.RawTransaction) *upstream.RawEvent {
	if len(rawTxn.Events) == 0 {
		return nil
	}
	return &rawTxn.Events[0]
}

func applyAmounts(txn *transaction.Transaction, event *upstream.RawEvent) {
	txn.CardholderCurrency = FallbackCurrency
	txn.MerchantCurrency = FallbackCurrency

	if event == nil || event.Amounts == nil {
		return
	}
	if ch := event.Amounts.Cardholder; ch != nil {
		txn.CardholderAmount = ch.Amount
		if ch.Currency != "" {
			txn.CardholderCurrency = ch.Currency
		}
		txn.ConversionRate = ch.ConversionRate
	}
	if m := event.Amounts.Merchant; m != nil {
		txn.MerchantAmount = m.Amount
		if m.Currency != "" {
			txn.MerchantCurrency = m.Currency
		}
	}
}

// deriveNetwork checks each known network's sub-object in fixed priority
// order, then falls back to the top-level network field, lower-cased
func deriveNetwork(rawTxn *upstream.RawTransaction, event *upstream.RawEvent) string {
	if event != nil && event.NetworkInfo != nil {
		ni := event.NetworkInfo
		switch {
		case present(ni.Visa):
			return "visa"
		case present(ni.Mastercard):
			return "mastercard"
		case present(ni.Amex):
			return "amex"
		}
	}
	return strings.ToLower(rawTxn.Network)
}

// retrievalReference reads the acquirer block independent of which network
// sub-object matched
func retrievalReference(event *upstream.RawEvent) string {
	if event == nil || event.NetworkInfo == nil || event.NetworkInfo.Acquirer == nil {
		return ""
	}
	return event.NetworkInfo.Acquirer.RetrievalReferenceNumber
}

func parseResult(raw string) transaction.Result {
	if raw == "" {
		return transaction.ResultUnknown
	}
	return transaction.Result(raw)
}

// merchantDescriptor defaults the descriptor text to the unknown-merchant
// sentinel when the upstream object has no merchant block. Location and
// category fields stay nil, never sentinel strings, because they participate
// in exact-match resolution.
func merchantDescriptor(raw *upstream.RawMerchant) merchant.Descriptor {
	if raw == nil {
		return merchant.Descriptor{Descriptor: merchant.UnknownDescriptor}
	}
	return merchant.Descriptor{
		AcceptorID: raw.AcceptorID,
		Descriptor: raw.Descriptor,
		City:       raw.City,
		State:      raw.State,
		Country:    raw.Country,
		MCC:        raw.MCC,
	}
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
