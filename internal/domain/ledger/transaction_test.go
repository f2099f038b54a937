package ledger

import (
	"errors"
	"testing"

	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestValidateEntries(t *testing.T) {
	checking := uuid.New()
	revenue := uuid.New()

	tests := []struct {
		name    string
		entries []Entry
		wantErr bool
	}{
		{
			name:    "empty entry set",
			entries: nil,
			wantErr: true,
		},
		{
			name: "single entry with both sides balances",
			entries: []Entry{
				{Amount: decimal.NewFromInt(100), DebitAccountID: ptr(checking), CreditAccountID: ptr(revenue)},
			},
			wantErr: false,
		},
		{
			name: "split entries balance",
			entries: []Entry{
				{Amount: decimal.NewFromInt(60), DebitAccountID: ptr(checking)},
				{Amount: decimal.NewFromInt(40), DebitAccountID: ptr(checking)},
				{Amount: decimal.NewFromInt(100), CreditAccountID: ptr(revenue)},
			},
			wantErr: false,
		},
		{
			name: "unbalanced set rejected",
			entries: []Entry{
				{Amount: decimal.NewFromInt(100), DebitAccountID: ptr(checking)},
				{Amount: decimal.NewFromInt(90), CreditAccountID: ptr(revenue)},
			},
			wantErr: true,
		},
		{
			name: "zero amount rejected",
			entries: []Entry{
				{Amount: decimal.Zero, DebitAccountID: ptr(checking), CreditAccountID: ptr(revenue)},
			},
			wantErr: true,
		},
		{
			name: "negative amount rejected",
			entries: []Entry{
				{Amount: decimal.NewFromInt(-5), DebitAccountID: ptr(checking), CreditAccountID: ptr(revenue)},
			},
			wantErr: true,
		},
		{
			name: "entry without either side rejected",
			entries: []Entry{
				{Amount: decimal.NewFromInt(10)},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntries(tt.entries)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, shared.ValidationError{}))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransaction_SignedAmount(t *testing.T) {
	checking := uuid.New()
	revenue := uuid.New()
	fees := uuid.New()

	txn := &Transaction{
		Entries: []Entry{
			{Amount: decimal.NewFromInt(100), DebitAccountID: ptr(checking), CreditAccountID: ptr(revenue)},
			{Amount: decimal.NewFromInt(3), DebitAccountID: ptr(fees), CreditAccountID: ptr(checking)},
		},
	}

	assert.True(t, txn.SignedAmount(checking).Equal(decimal.NewFromInt(97)))
	assert.True(t, txn.SignedAmount(revenue).Equal(decimal.NewFromInt(-100)))
	assert.True(t, txn.SignedAmount(fees).Equal(decimal.NewFromInt(3)))
	assert.True(t, txn.SignedAmount(uuid.New()).IsZero())
}

func TestBalanceDeltas(t *testing.T) {
	checking := uuid.New()
	revenue := uuid.New()

	entries := []Entry{
		{Amount: decimal.NewFromInt(100), DebitAccountID: ptr(checking), CreditAccountID: ptr(revenue)},
		{Amount: decimal.NewFromInt(25), DebitAccountID: ptr(checking), CreditAccountID: ptr(revenue)},
	}

	deltas := BalanceDeltas(entries)
	require.Len(t, deltas, 2)
	assert.True(t, deltas[checking].Equal(decimal.NewFromInt(125)))
	assert.True(t, deltas[revenue].Equal(decimal.NewFromInt(-125)))
}

func TestAccountIDs_SortedAndDistinct(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	entries := []Entry{
		{Amount: decimal.NewFromInt(1), DebitAccountID: ptr(a), CreditAccountID: ptr(b)},
		{Amount: decimal.NewFromInt(1), DebitAccountID: ptr(b), CreditAccountID: ptr(a)},
	}

	ids := AccountIDs(entries)
	require.Len(t, ids, 2)
	// Stable ordering regardless of entry order.
	assert.Equal(t, ids, AccountIDs([]Entry{entries[1], entries[0]}))
}
