package account

import (
	"time"

	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type classifies an account within the chart of accounts.
type Type string

const (
	TypeAsset     Type = "ASSET"
	TypeLiability Type = "LIABILITY"
	TypeEquity    Type = "EQUITY"
	TypeRevenue   Type = "REVENUE"
	TypeExpense   Type = "EXPENSE"
)

// ParseType validates a raw account type token.
func ParseType(raw string) (Type, error) {
	switch Type(raw) {
	case TypeAsset, TypeLiability, TypeEquity, TypeRevenue, TypeExpense:
		return Type(raw), nil
	}
	return "", shared.ValidationError{Field: "type", Reason: "unknown account type: " + raw}
}

// Account is one node of an organization's chart of accounts. Balance is a
// cached running total; it is mutated only through posted ledger entries and
// through statement completion, which overwrites it with the certified value.
type Account struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	Name           string          `json:"name"`
	Type           Type            `json:"type"`
	Balance        decimal.Decimal `json:"balance"`
	Active         bool            `json:"active"`
	Version        int             `json:"version"` // For optimistic locking
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// New creates an account with a zero balance.
func New(organizationID uuid.UUID, name string, accountType Type) (*Account, error) {
	if name == "" {
		return nil, shared.ValidationError{Field: "name", Reason: "account name cannot be empty"}
	}
	if organizationID == uuid.Nil {
		return nil, shared.ValidationError{Field: "organization_id", Reason: "organization is required"}
	}
	if _, err := ParseType(string(accountType)); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Account{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		Name:           name,
		Type:           accountType,
		Balance:        decimal.Zero,
		Active:         true,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
