package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// TransactionType is the kind of a transaction record.
type TransactionType string

const (
	Deposit    TransactionType = "deposit"
	Withdrawal TransactionType = "withdrawal"
	Dispute    TransactionType = "dispute"
	Resolve    TransactionType = "resolve"
	Chargeback TransactionType = "chargeback"
)

var transactionTypes = []TransactionType{Deposit, Withdrawal, Dispute, Resolve, Chargeback}

// maxSuggestionDistance bounds how far an unknown type may be from a known one
// before ParseTransactionType stops suggesting it.
const maxSuggestionDistance = 2

// Transaction is a single record of the replayed log. Dispute, resolve and
// chargeback records reuse the Tx of the deposit or withdrawal they act on and
// carry no amount.
type Transaction struct {
	Type   TransactionType     `json:"type"`
	Client uint16              `json:"client"`
	Tx     uint32              `json:"tx"`
	Amount decimal.NullDecimal `json:"amount"`
}

// ParseTransactionType maps a raw type field onto a TransactionType, ignoring
// case and surrounding whitespace.
func ParseTransactionType(raw string) (TransactionType, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, t := range transactionTypes {
		if value == string(t) {
			return t, nil
		}
	}

	if suggestion, ok := closestTransactionType(value); ok {
		return "", fmt.Errorf("unknown transaction type %q, did you mean %q", raw, suggestion)
	}
	return "", fmt.Errorf("unknown transaction type %q", raw)
}

func closestTransactionType(value string) (TransactionType, bool) {
	var best TransactionType
	bestDistance := maxSuggestionDistance + 1
	for _, t := range transactionTypes {
		distance := levenshtein.DistanceForStrings([]rune(value), []rune(string(t)), levenshtein.DefaultOptions)
		if distance < bestDistance {
			best, bestDistance = t, distance
		}
	}
	return best, bestDistance <= maxSuggestionDistance
}

// IsDisputable reports whether the transaction can be the target of a dispute.
func (transaction Transaction) IsDisputable() bool {
	return transaction.Type == Deposit || transaction.Type == Withdrawal
}

// HasAmount reports whether the record carried an amount.
func (transaction Transaction) HasAmount() bool {
	return transaction.Amount.Valid
}
