package handler

import (
	"time"

	"github.com/bank-reconciliation-ledger/internal/domain/account"
	"github.com/bank-reconciliation-ledger/internal/domain/ledger"
	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/bank-reconciliation-ledger/internal/domain/statement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Dates in request bodies arrive as calendar days; RFC3339 is accepted for
// callers that send full timestamps.
var requestDateLayouts = []string{"2006-01-02", time.RFC3339}

func parseRequestDate(raw string) (time.Time, error) {
	var lastErr error
	for _, layout := range requestDateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// CreateAccountRequest represents a request to create a new account
type CreateAccountRequest struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		Name:      acc.Name,
		Type:      string(acc.Type),
		Balance:   acc.Balance.StringFixed(2),
		Active:    acc.Active,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

// EntryRequest is one posting line of a transaction request. Amount is a
// decimal string; at least one account side must be set.
type EntryRequest struct {
	Amount          string  `json:"amount" binding:"required"`
	DebitAccountID  *string `json:"debit_account_id,omitempty" binding:"omitempty,uuid"`
	CreditAccountID *string `json:"credit_account_id,omitempty" binding:"omitempty,uuid"`
	Memo            string  `json:"memo,omitempty"`
}

// CreateTransactionRequest represents a request to post a new transaction
type CreateTransactionRequest struct {
	Description string         `json:"description" binding:"required"`
	Date        string         `json:"date" binding:"required"`
	Entries     []EntryRequest `json:"entries" binding:"required,min=1,dive"`
}

// UpdateTransactionRequest replaces a transaction's entry set.
type UpdateTransactionRequest struct {
	Entries []EntryRequest `json:"entries" binding:"required,min=1,dive"`
}

// mapEntryRequests converts request entries to domain entries. Malformed
// amounts or account ids come back as ValidationError.
func mapEntryRequests(reqs []EntryRequest) ([]ledger.Entry, error) {
	entries := make([]ledger.Entry, 0, len(reqs))
	for _, r := range reqs {
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			return nil, shared.ValidationError{Field: "entries", Reason: "amount is not a valid decimal: " + r.Amount}
		}

		entry := ledger.Entry{Amount: amount, Memo: r.Memo}
		if r.DebitAccountID != nil {
			id, err := uuid.Parse(*r.DebitAccountID)
			if err != nil {
				return nil, shared.ValidationError{Field: "entries", Reason: "debit_account_id is not a valid UUID"}
			}
			entry.DebitAccountID = &id
		}
		if r.CreditAccountID != nil {
			id, err := uuid.Parse(*r.CreditAccountID)
			if err != nil {
				return nil, shared.ValidationError{Field: "entries", Reason: "credit_account_id is not a valid UUID"}
			}
			entry.CreditAccountID = &id
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// EntryResponse represents one posting line in API responses
type EntryResponse struct {
	ID              string  `json:"id"`
	Amount          string  `json:"amount"`
	DebitAccountID  *string `json:"debit_account_id,omitempty"`
	CreditAccountID *string `json:"credit_account_id,omitempty"`
	Memo            string  `json:"memo,omitempty"`
}

// TransactionResponse represents a ledger transaction in API responses
type TransactionResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
	Status      string          `json:"status"`
	Entries     []EntryResponse `json:"entries"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

func mapTransactionToResponse(txn *ledger.Transaction) TransactionResponse {
	entries := make([]EntryResponse, 0, len(txn.Entries))
	for _, e := range txn.Entries {
		er := EntryResponse{
			ID:     e.ID.String(),
			Amount: e.Amount.StringFixed(2),
			Memo:   e.Memo,
		}
		if e.DebitAccountID != nil {
			s := e.DebitAccountID.String()
			er.DebitAccountID = &s
		}
		if e.CreditAccountID != nil {
			s := e.CreditAccountID.String()
			er.CreditAccountID = &s
		}
		entries = append(entries, er)
	}

	return TransactionResponse{
		ID:          txn.ID.String(),
		Description: txn.Description,
		Date:        txn.Date.Format("2006-01-02"),
		Status:      string(txn.Status),
		Entries:     entries,
		CreatedAt:   txn.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   txn.UpdatedAt.Format(time.RFC3339),
	}
}

// TransactionFilterParams represents search filters for transaction listings
type TransactionFilterParams struct {
	AccountID string `form:"account_id" binding:"omitempty,uuid"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
	AmountMin string `form:"amount_min"`
	AmountMax string `form:"amount_max"`
	Query     string `form:"q"`
	Status    string `form:"status" binding:"omitempty,oneof=PENDING CLEARED RECONCILED VOIDED"`
	Limit     int    `form:"limit,default=50" binding:"min=1,max=500"`
	Offset    int    `form:"offset,default=0" binding:"min=0"`
}

func (p *TransactionFilterParams) toFilter() (ledger.Filter, error) {
	filter := ledger.Filter{
		TextQuery: p.Query,
		Limit:     p.Limit,
		Offset:    p.Offset,
	}

	if p.AccountID != "" {
		id, err := uuid.Parse(p.AccountID)
		if err != nil {
			return filter, shared.ValidationError{Field: "account_id", Reason: "not a valid UUID"}
		}
		filter.AccountID = id
	}
	if p.DateFrom != "" {
		t, err := parseRequestDate(p.DateFrom)
		if err != nil {
			return filter, shared.ValidationError{Field: "date_from", Reason: "not a valid date"}
		}
		filter.DateFrom = t
	}
	if p.DateTo != "" {
		t, err := parseRequestDate(p.DateTo)
		if err != nil {
			return filter, shared.ValidationError{Field: "date_to", Reason: "not a valid date"}
		}
		filter.DateTo = t
	}
	if p.AmountMin != "" {
		d, err := decimal.NewFromString(p.AmountMin)
		if err != nil {
			return filter, shared.ValidationError{Field: "amount_min", Reason: "not a valid decimal"}
		}
		filter.AmountMin = d
	}
	if p.AmountMax != "" {
		d, err := decimal.NewFromString(p.AmountMax)
		if err != nil {
			return filter, shared.ValidationError{Field: "amount_max", Reason: "not a valid decimal"}
		}
		filter.AmountMax = d
	}
	if p.Status != "" {
		filter.Statuses = []ledger.Status{ledger.Status(p.Status)}
	}
	return filter, nil
}

// CreateStatementRequest represents a request to open a reconciliation statement
type CreateStatementRequest struct {
	AccountID     string `json:"account_id" binding:"required,uuid"`
	PeriodStart   string `json:"period_start" binding:"required"`
	PeriodEnd     string `json:"period_end" binding:"required"`
	EndingBalance string `json:"ending_balance" binding:"required"`
}

// StatementResponse represents a statement in API responses
type StatementResponse struct {
	ID                string  `json:"id"`
	AccountID         string  `json:"account_id"`
	PeriodStart       string  `json:"period_start"`
	PeriodEnd         string  `json:"period_end"`
	EndingBalance     string  `json:"ending_balance"`
	Status            string  `json:"status"`
	ReconciledBalance *string `json:"reconciled_balance,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

func mapStatementToResponse(st *statement.Statement) StatementResponse {
	resp := StatementResponse{
		ID:            st.ID.String(),
		AccountID:     st.AccountID.String(),
		PeriodStart:   st.PeriodStart.Format("2006-01-02"),
		PeriodEnd:     st.PeriodEnd.Format("2006-01-02"),
		EndingBalance: st.EndingBalance.StringFixed(2),
		Status:        string(st.Status),
		CreatedAt:     st.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     st.UpdatedAt.Format(time.RFC3339),
	}
	if st.ReconciledBalance != nil {
		s := st.ReconciledBalance.StringFixed(2)
		resp.ReconciledBalance = &s
	}
	return resp
}

// StatementRowResponse represents one imported bank row in API responses
type StatementRowResponse struct {
	ID                   string  `json:"id"`
	Date                 string  `json:"date"`
	Description          string  `json:"description"`
	Amount               string  `json:"amount"`
	Reference            string  `json:"reference,omitempty"`
	Type                 string  `json:"type"`
	MatchedTransactionID *string `json:"matched_transaction_id,omitempty"`
}

func mapStatementRowToResponse(row *statement.Transaction) StatementRowResponse {
	resp := StatementRowResponse{
		ID:          row.ID.String(),
		Date:        row.Date.Format("2006-01-02"),
		Description: row.Description,
		Amount:      row.Amount.StringFixed(2),
		Reference:   row.Reference,
		Type:        string(row.Type),
	}
	if row.MatchedTransactionID != nil {
		s := row.MatchedTransactionID.String()
		resp.MatchedTransactionID = &s
	}
	return resp
}

// ImportRowsRequest carries raw statement rows for import.
type ImportRowsRequest struct {
	Rows []shared.StatementRow `json:"rows" binding:"required,min=1"`
}

// ReconcileRequest manually matches a ledger transaction, optionally linking
// a specific statement row.
type ReconcileRequest struct {
	TransactionID          string  `json:"transaction_id" binding:"required,uuid"`
	StatementTransactionID *string `json:"statement_transaction_id,omitempty" binding:"omitempty,uuid"`
}

// UnmatchRequest reverts a manual or automatic match.
type UnmatchRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,uuid"`
}
