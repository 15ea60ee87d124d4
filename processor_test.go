package replay

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerry-enebeli/replay/model"
)

type expectedAccount struct {
	available, held, total string
	locked                 bool
}

// transactionTest feeds a stream through both passes of a Processor and
// compares the resulting accounts.
type transactionTest struct {
	input    []model.Transaction
	expected map[uint16]expectedAccount
}

func newTransactionTest() *transactionTest {
	return &transactionTest{expected: make(map[uint16]expectedAccount)}
}

func (tt *transactionTest) withAmount(kind model.TransactionType, client uint16, tx uint32, amount string) {
	tt.input = append(tt.input, model.Transaction{
		Type:   kind,
		Client: client,
		Tx:     tx,
		Amount: decimal.NewNullDecimal(decimal.RequireFromString(amount)),
	})
}

func (tt *transactionTest) deposit(client uint16, tx uint32, amount string) {
	tt.withAmount(model.Deposit, client, tx, amount)
}

func (tt *transactionTest) withdrawal(client uint16, tx uint32, amount string) {
	tt.withAmount(model.Withdrawal, client, tx, amount)
}

func (tt *transactionTest) reference(kind model.TransactionType, client uint16, tx uint32) {
	tt.input = append(tt.input, model.Transaction{Type: kind, Client: client, Tx: tx})
}

func (tt *transactionTest) dispute(client uint16, tx uint32) {
	tt.reference(model.Dispute, client, tx)
}

func (tt *transactionTest) resolve(client uint16, tx uint32) {
	tt.reference(model.Resolve, client, tx)
}

func (tt *transactionTest) chargeback(client uint16, tx uint32) {
	tt.reference(model.Chargeback, client, tx)
}

func (tt *transactionTest) expect(client uint16, available, held, total string, locked bool) {
	tt.expected[client] = expectedAccount{available: available, held: held, total: total, locked: locked}
}

func (tt *transactionTest) run(t *testing.T) {
	t.Helper()

	processor := NewProcessor()
	for _, txn := range tt.input {
		processor.Preprocess(txn)
	}
	for _, txn := range tt.input {
		processor.Process(txn)
	}

	accounts := processor.Accounts()
	require.Len(t, accounts, len(tt.expected))
	for client, want := range tt.expected {
		account, ok := accounts[client]
		require.True(t, ok, "missing account for client %d", client)
		assert.Equal(t, client, account.Client)
		assert.True(t, decimal.RequireFromString(want.available).Equal(account.Available), "client %d available: got %s, want %s", client, account.Available, want.available)
		assert.True(t, decimal.RequireFromString(want.held).Equal(account.Held), "client %d held: got %s, want %s", client, account.Held, want.held)
		assert.True(t, decimal.RequireFromString(want.total).Equal(account.Total), "client %d total: got %s, want %s", client, account.Total, want.total)
		assert.Equal(t, want.locked, account.Locked, "client %d locked", client)
	}
}

func TestProcessor(t *testing.T) {
	tests := []struct {
		name  string
		build func(tt *transactionTest)
	}{
		{"one deposit", func(tt *transactionTest) {
			tt.deposit(1, 1, "2.0")
			tt.expect(1, "2", "0", "2", false)
		}},
		{"one withdrawal", func(tt *transactionTest) {
			tt.withdrawal(1, 1, "2.0")
			tt.expect(1, "-2", "0", "-2", false)
		}},
		{"one dispute", func(tt *transactionTest) {
			tt.deposit(1, 1, "2.0")
			tt.dispute(1, 1)
			tt.expect(1, "0", "2", "2", false)
		}},
		{"one resolve", func(tt *transactionTest) {
			tt.deposit(1, 1, "2.0")
			tt.dispute(1, 1)
			tt.resolve(1, 1)
			tt.expect(1, "2", "0", "2", false)
		}},
		{"one chargeback", func(tt *transactionTest) {
			tt.deposit(1, 1, "2.0")
			tt.dispute(1, 1)
			tt.chargeback(1, 1)
			tt.expect(1, "0", "0", "0", true)
		}},
		{"deposits and withdrawals", func(tt *transactionTest) {
			tt.deposit(1, 1, "10")
			tt.withdrawal(1, 2, "20")
			tt.deposit(1, 3, "30")
			tt.expect(1, "20", "0", "20", false)
		}},
		{"many deposits and withdrawals", func(tt *transactionTest) {
			tt.deposit(1, 1, "10.0")
			tt.withdrawal(1, 2, "20.0")
			tt.deposit(1, 3, "30.0")
			tt.deposit(1, 4, "40.0")
			tt.withdrawal(1, 5, "50.0")
			tt.deposit(1, 6, "60.0")
			tt.expect(1, "70", "0", "70", false)
		}},
		{"dispute of a transaction that does not exist", func(tt *transactionTest) {
			tt.dispute(1, 1)
			tt.expect(1, "0", "0", "0", false)
		}},
		{"resolve of a transaction that does not exist", func(tt *transactionTest) {
			tt.resolve(1, 1)
			tt.expect(1, "0", "0", "0", false)
		}},
		{"resolve without a dispute", func(tt *transactionTest) {
			tt.deposit(1, 1, "2.0")
			tt.resolve(1, 1)
			tt.expect(1, "2", "0", "2", false)
		}},
		{"chargeback of a transaction that does not exist", func(tt *transactionTest) {
			tt.chargeback(1, 1)
			tt.expect(1, "0", "0", "0", false)
		}},
		{"chargeback without a dispute", func(tt *transactionTest) {
			tt.deposit(1, 1, "2.0")
			tt.chargeback(1, 1)
			tt.expect(1, "2", "0", "2", false)
		}},
		{"multiple clients", func(tt *transactionTest) {
			tt.deposit(1, 1, "10.0")
			tt.deposit(2, 2, "20.0")
			tt.expect(1, "10", "0", "10", false)
			tt.expect(2, "20", "0", "20", false)
		}},
		{"multiple clients with a dispute", func(tt *transactionTest) {
			tt.deposit(1, 1, "10.0")
			tt.deposit(2, 2, "20.0")
			tt.dispute(1, 1)
			tt.expect(1, "0", "10", "10", false)
			tt.expect(2, "20", "0", "20", false)
		}},
		{"multiple clients with a resolve", func(tt *transactionTest) {
			tt.deposit(1, 1, "10.0")
			tt.deposit(2, 2, "20.0")
			tt.dispute(1, 1)
			tt.resolve(1, 1)
			tt.expect(1, "10", "0", "10", false)
			tt.expect(2, "20", "0", "20", false)
		}},
		{"multiple clients with a chargeback", func(tt *transactionTest) {
			tt.deposit(1, 1, "10.0")
			tt.deposit(2, 2, "20.0")
			tt.dispute(1, 1)
			tt.chargeback(1, 1)
			tt.expect(1, "0", "0", "0", true)
			tt.expect(2, "20", "0", "20", false)
		}},
		{"dispute naming the wrong client", func(tt *transactionTest) {
			tt.deposit(1, 1, "10.0")
			tt.deposit(2, 2, "20.0")
			tt.dispute(2, 1)
			tt.expect(1, "10", "0", "10", false)
			tt.expect(2, "20", "0", "20", false)
		}},
		{"resolve naming the wrong client", func(tt *transactionTest) {
			tt.deposit(1, 1, "10.0")
			tt.deposit(2, 2, "20.0")
			tt.dispute(1, 1)
			tt.resolve(2, 1)
			tt.expect(1, "0", "10", "10", false)
			tt.expect(2, "20", "0", "20", false)
		}},
		{"chargeback naming the wrong client", func(tt *transactionTest) {
			tt.deposit(1, 1, "10.0")
			tt.deposit(2, 2, "20.0")
			tt.dispute(1, 1)
			tt.chargeback(2, 1)
			tt.expect(1, "0", "10", "10", false)
			tt.expect(2, "20", "0", "20", false)
		}},
		{"dispute before its deposit is a no-op", func(tt *transactionTest) {
			tt.dispute(1, 1)
			tt.deposit(1, 1, "5")
			tt.expect(1, "5", "0", "5", false)
		}},
		{"dispute of a withdrawal", func(tt *transactionTest) {
			tt.deposit(1, 1, "10")
			tt.withdrawal(1, 2, "4")
			tt.dispute(1, 2)
			tt.expect(1, "2", "4", "6", false)
		}},
		{"dispute again after a resolve", func(tt *transactionTest) {
			tt.deposit(1, 1, "10")
			tt.dispute(1, 1)
			tt.resolve(1, 1)
			tt.dispute(1, 1)
			tt.expect(1, "0", "10", "10", false)
		}},
		{"deposit without an amount", func(tt *transactionTest) {
			tt.reference(model.Deposit, 1, 1)
			tt.dispute(1, 1)
			tt.expect(1, "0", "0", "0", false)
		}},
		{"locked account stays locked", func(tt *transactionTest) {
			tt.deposit(1, 1, "3")
			tt.deposit(1, 2, "4")
			tt.dispute(1, 1)
			tt.chargeback(1, 1)
			tt.dispute(1, 2)
			tt.resolve(1, 2)
			tt.deposit(1, 3, "1")
			tt.expect(1, "5", "0", "5", true)
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tt := newTransactionTest()
			tc.build(tt)
			tt.run(t)
		})
	}
}

func TestProcessor_RetainsOnlyDisputedTransactions(t *testing.T) {
	processor := NewProcessor()
	stream := []model.Transaction{
		{Type: model.Deposit, Client: 1, Tx: 1, Amount: decimal.NewNullDecimal(decimal.NewFromInt(1))},
		{Type: model.Deposit, Client: 1, Tx: 2, Amount: decimal.NewNullDecimal(decimal.NewFromInt(2))},
		{Type: model.Withdrawal, Client: 2, Tx: 3, Amount: decimal.NewNullDecimal(decimal.NewFromInt(3))},
		{Type: model.Dispute, Client: 1, Tx: 2},
		{Type: model.Dispute, Client: 2, Tx: 3},
		{Type: model.Dispute, Client: 2, Tx: 42},
	}
	for _, txn := range stream {
		processor.Preprocess(txn)
	}
	for _, txn := range stream {
		processor.Process(txn)
	}

	assert.Len(t, processor.retained, 2)
	assert.Contains(t, processor.retained, uint32(2))
	assert.Contains(t, processor.retained, uint32(3))
	assert.Equal(t, model.Deposit, processor.retained[2].Type)

	assert.Equal(t, ProcessorStats{
		Preprocessed: 6,
		Processed:    6,
		DisputedIDs:  3,
		Retained:     2,
		Accounts:     2,
	}, processor.Stats())
}

func TestProcessor_PreprocessAfterProcessPanics(t *testing.T) {
	processor := NewProcessor()
	processor.Process(model.Transaction{Type: model.Dispute, Client: 1, Tx: 1})

	assert.Panics(t, func() {
		processor.Preprocess(model.Transaction{Type: model.Dispute, Client: 1, Tx: 1})
	})
}

func TestProcessor_EmptyStream(t *testing.T) {
	processor := NewProcessor()
	assert.Empty(t, processor.Accounts())
}

// randomStream builds a noisy stream: references to unknown, foreign and
// undisputed transactions are all likely.
func randomStream(faker *gofakeit.Faker, size int) []model.Transaction {
	kinds := []string{"deposit", "deposit", "withdrawal", "dispute", "resolve", "chargeback"}
	stream := make([]model.Transaction, 0, size)
	var nextTx uint32 = 1

	for i := 0; i < size; i++ {
		kind := model.TransactionType(faker.RandomString(kinds))
		txn := model.Transaction{Type: kind, Client: uint16(faker.Number(1, 5))}
		if txn.IsDisputable() {
			txn.Tx = nextTx
			nextTx++
			if faker.Number(0, 9) > 0 {
				txn.Amount = decimal.NewNullDecimal(decimal.New(int64(faker.Number(1, 1000000)), -4))
			}
		} else {
			txn.Tx = uint32(faker.Number(1, int(nextTx)+3))
		}
		stream = append(stream, txn)
	}
	return stream
}

func TestProcessor_RandomStreamsKeepInvariants(t *testing.T) {
	faker := gofakeit.New(20240601)

	for run := 0; run < 50; run++ {
		stream := randomStream(faker, 200)

		processor := NewProcessor()
		for _, txn := range stream {
			processor.Preprocess(txn)
		}

		lockedAt := make(map[uint16]bool)
		for _, txn := range stream {
			processor.Process(txn)

			for client, account := range processor.Accounts() {
				require.True(t, account.Available.Add(account.Held).Equal(account.Total))
				if lockedAt[client] {
					require.True(t, account.Locked, "client %d was unlocked", client)
				}
				lockedAt[client] = account.Locked
			}
		}
	}
}

func TestProcessor_UnresolvedReferencesAreIdempotent(t *testing.T) {
	faker := gofakeit.New(7)
	stream := randomStream(faker, 300)

	baseline := NewProcessor()
	for _, txn := range stream {
		baseline.Preprocess(txn)
	}
	for _, txn := range stream {
		baseline.Process(txn)
	}

	// Append references that can never resolve: an unknown tx id, and an
	// already disputed tx id claimed by a client that does not exist in the
	// stream.
	var foreignTx uint32
	for tx := range baseline.retained {
		foreignTx = tx
		break
	}
	require.NotZero(t, foreignTx)

	noisy := append([]model.Transaction{}, stream...)
	for _, kind := range []model.TransactionType{model.Dispute, model.Resolve, model.Chargeback} {
		noisy = append(noisy,
			model.Transaction{Type: kind, Client: 1, Tx: 4000000000},
			model.Transaction{Type: kind, Client: 9, Tx: foreignTx},
		)
	}

	withNoise := NewProcessor()
	for _, txn := range noisy {
		withNoise.Preprocess(txn)
	}
	for _, txn := range noisy {
		withNoise.Process(txn)
	}

	for client, want := range baseline.Accounts() {
		got := withNoise.Accounts()[client]
		require.NotNil(t, got)
		assert.True(t, want.Available.Equal(got.Available))
		assert.True(t, want.Held.Equal(got.Held))
		assert.True(t, want.Total.Equal(got.Total))
		assert.Equal(t, want.Locked, got.Locked)
	}

	ghost := withNoise.Accounts()[9]
	require.NotNil(t, ghost)
	assert.True(t, ghost.Total.IsZero())
	assert.False(t, ghost.Locked)
}
