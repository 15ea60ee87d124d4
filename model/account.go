package model

import (
	"github.com/shopspring/decimal"
)

// Account is the balance state of a single client.
type Account struct {
	Client    uint16          `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
}

// NewAccount returns an unlocked account with all balances at zero.
func NewAccount(client uint16) *Account {
	return &Account{
		Client:    client,
		Available: decimal.Zero,
		Held:      decimal.Zero,
		Total:     decimal.Zero,
	}
}

// Apply mutates the account with a single transaction. Dispute, resolve and
// chargeback records are resolved against retained, which holds the disputable
// transactions kept by the processor.
//
// Apply panics with *InvariantViolation if the transaction belongs to another
// client or if available + held no longer equals total afterwards.
func (account *Account) Apply(transaction Transaction, retained map[uint32]Transaction) {
	if transaction.Client != account.Client {
		violate(account.Client, transaction.Tx, "transaction for client %d routed to account %d", transaction.Client, account.Client)
	}

	switch transaction.Type {
	case Deposit:
		account.deposit(transaction.Amount)
	case Withdrawal:
		account.withdraw(transaction.Amount)
	case Dispute:
		account.dispute(transaction, retained)
	case Resolve:
		account.resolve(transaction, retained)
	case Chargeback:
		account.chargeback(transaction, retained)
	}

	if !account.Available.Add(account.Held).Equal(account.Total) {
		violate(account.Client, transaction.Tx, "available %s + held %s != total %s", account.Available, account.Held, account.Total)
	}
}

func (account *Account) deposit(amount decimal.NullDecimal) {
	if !amount.Valid {
		return
	}
	account.Available = account.Available.Add(amount.Decimal)
	account.Total = account.Total.Add(amount.Decimal)
}

// withdraw does not check funds; available may go negative.
func (account *Account) withdraw(amount decimal.NullDecimal) {
	if !amount.Valid {
		return
	}
	account.Available = account.Available.Sub(amount.Decimal)
	account.Total = account.Total.Sub(amount.Decimal)
}

func (account *Account) dispute(transaction Transaction, retained map[uint32]Transaction) {
	amount, ok := referencedAmount(transaction, retained)
	if !ok {
		return
	}
	account.Available = account.Available.Sub(amount)
	account.Held = account.Held.Add(amount)
}

func (account *Account) resolve(transaction Transaction, retained map[uint32]Transaction) {
	amount, ok := referencedAmount(transaction, retained)
	if !ok {
		return
	}
	account.Available = account.Available.Add(amount)
	account.Held = account.Held.Sub(amount)
}

func (account *Account) chargeback(transaction Transaction, retained map[uint32]Transaction) {
	amount, ok := referencedAmount(transaction, retained)
	if !ok {
		return
	}
	account.Held = account.Held.Sub(amount)
	account.Total = account.Total.Sub(amount)
	account.Locked = true
}

// referencedAmount looks up the transaction a dispute, resolve or chargeback
// points at. Unknown ids and ids owned by another client do not resolve.
func referencedAmount(transaction Transaction, retained map[uint32]Transaction) (decimal.Decimal, bool) {
	referenced, ok := retained[transaction.Tx]
	if !ok || referenced.Client != transaction.Client || !referenced.Amount.Valid {
		return decimal.Zero, false
	}
	return referenced.Amount.Decimal, true
}
