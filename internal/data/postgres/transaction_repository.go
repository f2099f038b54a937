package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bank-reconciliation-ledger/internal/domain/ledger"
	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/bank-reconciliation-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the ledger.Repository interface for
// PostgreSQL. Transactions and their entries are written together; callers
// provide the enclosing pgx transaction for atomicity.
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations.
func (r *TransactionRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a transaction and its full entry set.
func (r *TransactionRepository) Create(ctx context.Context, txn *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (id, organization_id, description, date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, query,
		txn.ID,
		txn.OrganizationID,
		txn.Description,
		txn.Date,
		txn.Status,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", "id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := r.insertEntries(ctx, txn.ID, txn.Entries); err != nil {
		return err
	}

	return nil
}

// GetByID retrieves a transaction with its entries, scoped to one
// organization.
func (r *TransactionRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*ledger.Transaction, error) {
	query := `
		SELECT id, organization_id, description, date, status, created_at, updated_at
		FROM transactions
		WHERE id = $1 AND organization_id = $2
	`

	var txn ledger.Transaction
	err := r.querier.QueryRow(ctx, query, id, orgID).Scan(
		&txn.ID,
		&txn.OrganizationID,
		&txn.Description,
		&txn.Date,
		&txn.Status,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "transaction", ID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	entries, err := r.entriesFor(ctx, []uuid.UUID{txn.ID})
	if err != nil {
		return nil, err
	}
	txn.Entries = entries[txn.ID]

	return &txn, nil
}

// List retrieves transactions matching the filter, entries included.
func (r *TransactionRepository) List(ctx context.Context, orgID uuid.UUID, filter ledger.Filter) ([]*ledger.Transaction, error) {
	var (
		clauses = []string{"t.organization_id = $1"}
		args    = []interface{}{orgID}
	)

	next := func() int { return len(args) + 1 }

	if filter.AccountID != uuid.Nil {
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM ledger_entries e WHERE e.transaction_id = t.id AND (e.debit_account_id = $%d OR e.credit_account_id = $%d))",
			next(), next()))
		args = append(args, filter.AccountID)
	}
	if !filter.DateFrom.IsZero() {
		clauses = append(clauses, fmt.Sprintf("t.date >= $%d", next()))
		args = append(args, filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		clauses = append(clauses, fmt.Sprintf("t.date <= $%d", next()))
		args = append(args, filter.DateTo)
	}
	if !filter.AmountMin.IsZero() || !filter.AmountMax.IsZero() {
		if !filter.AmountMin.IsZero() {
			clauses = append(clauses, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM ledger_entries e WHERE e.transaction_id = t.id AND e.amount >= $%d)", next()))
			args = append(args, filter.AmountMin)
		}
		if !filter.AmountMax.IsZero() {
			clauses = append(clauses, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM ledger_entries e WHERE e.transaction_id = t.id AND e.amount <= $%d)", next()))
			args = append(args, filter.AmountMax)
		}
	}
	if filter.TextQuery != "" {
		clauses = append(clauses, fmt.Sprintf("t.description ILIKE $%d", next()))
		args = append(args, "%"+filter.TextQuery+"%")
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		clauses = append(clauses, fmt.Sprintf("t.status = ANY($%d)", next()))
		args = append(args, statuses)
	}

	query := `
		SELECT t.id, t.organization_id, t.description, t.date, t.status, t.created_at, t.updated_at
		FROM transactions t
		WHERE ` + strings.Join(clauses, " AND ") + `
		ORDER BY t.date ASC, t.created_at ASC
	`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", next())
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", next())
		args = append(args, filter.Offset)
	}

	return r.queryTransactions(ctx, query, args...)
}

// ReplaceEntries swaps a transaction's full entry set during a re-post.
func (r *TransactionRepository) ReplaceEntries(ctx context.Context, transactionID uuid.UUID, entries []ledger.Entry) error {
	if _, err := r.querier.Exec(ctx, `DELETE FROM ledger_entries WHERE transaction_id = $1`, transactionID); err != nil {
		r.logger.Error("Failed to delete prior entries", "transaction_id", transactionID.String(), "error", err)
		return fmt.Errorf("failed to delete prior entries: %w", err)
	}

	if err := r.insertEntries(ctx, transactionID, entries); err != nil {
		return err
	}

	if _, err := r.querier.Exec(ctx, `UPDATE transactions SET updated_at = NOW() WHERE id = $1`, transactionID); err != nil {
		return fmt.Errorf("failed to touch transaction: %w", err)
	}

	return nil
}

// UpdateStatus moves a transaction through its lifecycle.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status ledger.Status) error {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update transaction status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Resource: "transaction", ID: id}
	}

	return nil
}

// Delete removes a transaction; entries cascade.
func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.querier.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete transaction", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Resource: "transaction", ID: id}
	}

	return nil
}

// ListMatchCandidates returns CLEARED transactions touching the account,
// dated on or before cutoff and not linked to any statement transaction, in
// stable creation order so matching stays deterministic.
func (r *TransactionRepository) ListMatchCandidates(ctx context.Context, orgID, accountID uuid.UUID, cutoff time.Time) ([]*ledger.Transaction, error) {
	query := `
		SELECT t.id, t.organization_id, t.description, t.date, t.status, t.created_at, t.updated_at
		FROM transactions t
		WHERE t.organization_id = $1
		  AND t.status = $2
		  AND t.date <= $3
		  AND EXISTS (
			SELECT 1 FROM ledger_entries e
			WHERE e.transaction_id = t.id
			  AND (e.debit_account_id = $4 OR e.credit_account_id = $4)
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM statement_transactions st
			WHERE st.matched_transaction_id = t.id
		  )
		ORDER BY t.date ASC, t.created_at ASC
	`

	return r.queryTransactions(ctx, query, orgID, ledger.StatusCleared, cutoff, accountID)
}

// IsMatched reports whether any statement transaction references the
// transaction.
func (r *TransactionRepository) IsMatched(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM statement_transactions WHERE matched_transaction_id = $1
		)
	`

	var matched bool
	if err := r.querier.QueryRow(ctx, query, id).Scan(&matched); err != nil {
		r.logger.Error("Failed to check transaction match link", "id", id.String(), "error", err)
		return false, fmt.Errorf("failed to check transaction match link: %w", err)
	}

	return matched, nil
}

func (r *TransactionRepository) insertEntries(ctx context.Context, transactionID uuid.UUID, entries []ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, transaction_id, amount, debit_account_id, credit_account_id, memo)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i := range entries {
		e := &entries[i]
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.TransactionID = transactionID

		_, err := r.querier.Exec(ctx, query,
			e.ID,
			e.TransactionID,
			e.Amount,
			e.DebitAccountID,
			e.CreditAccountID,
			e.Memo,
		)
		if err != nil {
			r.logger.Error("Failed to create ledger entry", "transaction_id", transactionID.String(), "error", err)
			return fmt.Errorf("failed to create ledger entry: %w", err)
		}
	}

	return nil
}

func (r *TransactionRepository) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]*ledger.Transaction, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query transactions", "error", err)
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []*ledger.Transaction
	var ids []uuid.UUID
	for rows.Next() {
		var txn ledger.Transaction
		err := rows.Scan(
			&txn.ID,
			&txn.OrganizationID,
			&txn.Description,
			&txn.Date,
			&txn.Status,
			&txn.CreatedAt,
			&txn.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, &txn)
		ids = append(ids, txn.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	if len(ids) == 0 {
		return txns, nil
	}

	entries, err := r.entriesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, txn := range txns {
		txn.Entries = entries[txn.ID]
	}

	return txns, nil
}

func (r *TransactionRepository) entriesFor(ctx context.Context, transactionIDs []uuid.UUID) (map[uuid.UUID][]ledger.Entry, error) {
	query := `
		SELECT id, transaction_id, amount, debit_account_id, credit_account_id, memo
		FROM ledger_entries
		WHERE transaction_id = ANY($1)
		ORDER BY id ASC
	`

	rows, err := r.querier.Query(ctx, query, transactionIDs)
	if err != nil {
		r.logger.Error("Failed to query ledger entries", "error", err)
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make(map[uuid.UUID][]ledger.Entry)
	for rows.Next() {
		var e ledger.Entry
		err := rows.Scan(
			&e.ID,
			&e.TransactionID,
			&e.Amount,
			&e.DebitAccountID,
			&e.CreditAccountID,
			&e.Memo,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries[e.TransactionID] = append(entries[e.TransactionID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}
