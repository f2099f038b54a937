package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/bank-reconciliation-ledger/internal/domain/statement"
	"github.com/bank-reconciliation-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// StatementRepository implements the statement.Repository interface for
// PostgreSQL.
type StatementRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewStatementRepository creates a new PostgreSQL statement repository.
func NewStatementRepository(logger *slog.Logger, db *persistence.PostgresDB) statement.Repository {
	return &StatementRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations.
func (r *StatementRepository) WithTx(tx pgx.Tx) statement.Repository {
	return &StatementRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const statementColumns = "id, organization_id, account_id, period_start, period_end, ending_balance, status, reconciled_balance, created_at, updated_at"

// Create stores a new reconciliation statement.
func (r *StatementRepository) Create(ctx context.Context, st *statement.Statement) error {
	query := `
		INSERT INTO reconciliation_statements (id, organization_id, account_id, period_start, period_end, ending_balance, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		st.ID,
		st.OrganizationID,
		st.AccountID,
		st.PeriodStart,
		st.PeriodEnd,
		st.EndingBalance,
		st.Status,
		st.CreatedAt,
		st.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create statement", "id", st.ID.String(), "error", err)
		return fmt.Errorf("failed to create statement: %w", err)
	}

	return nil
}

// GetByID retrieves a statement within the organization's scope.
func (r *StatementRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*statement.Statement, error) {
	query := `
		SELECT ` + statementColumns + `
		FROM reconciliation_statements
		WHERE id = $1 AND organization_id = $2
	`

	st, err := r.scanStatement(r.querier.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "statement", ID: id}
		}
		r.logger.Error("Failed to get statement", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get statement: %w", err)
	}

	return st, nil
}

// List retrieves statements for one organization, optionally narrowed to one
// account, newest period first.
func (r *StatementRepository) List(ctx context.Context, orgID, accountID uuid.UUID) ([]*statement.Statement, error) {
	query := `
		SELECT ` + statementColumns + `
		FROM reconciliation_statements
		WHERE organization_id = $1 AND ($2::uuid IS NULL OR account_id = $2)
		ORDER BY period_end DESC
	`

	var acctArg *uuid.UUID
	if accountID != uuid.Nil {
		acctArg = &accountID
	}

	rows, err := r.querier.Query(ctx, query, orgID, acctArg)
	if err != nil {
		r.logger.Error("Failed to list statements", "organization_id", orgID.String(), "error", err)
		return nil, fmt.Errorf("failed to list statements: %w", err)
	}
	defer rows.Close()

	var statements []*statement.Statement
	for rows.Next() {
		st, err := r.scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		statements = append(statements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate statements: %w", err)
	}

	return statements, nil
}

// LockForUpdate obtains a pessimistic row lock on the statement. Auto-match
// runs and completion serialize on this lock.
func (r *StatementRepository) LockForUpdate(ctx context.Context, orgID, id uuid.UUID) (*statement.Statement, error) {
	query := `
		SELECT ` + statementColumns + `
		FROM reconciliation_statements
		WHERE id = $1 AND organization_id = $2
		FOR UPDATE
	`

	st, err := r.scanStatement(r.querier.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: "statement", ID: id}
		}
		r.logger.Error("Failed to lock statement for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock statement for update: %w", err)
	}

	return st, nil
}

// Complete marks the statement COMPLETED and persists the reconciled balance.
// The guard on status makes the transition terminal.
func (r *StatementRepository) Complete(ctx context.Context, id uuid.UUID, reconciledBalance decimal.Decimal) error {
	query := `
		UPDATE reconciliation_statements
		SET status = $1, reconciled_balance = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, statement.StatusCompleted, reconciledBalance, id, statement.StatusInProgress)
	if err != nil {
		r.logger.Error("Failed to complete statement", "id", id.String(), "error", err)
		return fmt.Errorf("failed to complete statement: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.InvalidStateError{
			Resource: "statement",
			ID:       id,
			State:    string(statement.StatusCompleted),
			Reason:   "statement is already completed",
		}
	}

	return nil
}

// CreateTransaction stores one imported statement row. The insert carries a
// status predicate so a statement that completes between the caller's
// importability check and the insert accepts no new rows.
func (r *StatementRepository) CreateTransaction(ctx context.Context, st *statement.Transaction) error {
	query := `
		INSERT INTO statement_transactions (id, statement_id, date, description, amount, reference, type, matched_transaction_id, created_at)
		SELECT $1, s.id, $3, $4, $5, $6, $7, $8, $9
		FROM reconciliation_statements s
		WHERE s.id = $2 AND s.status = $10
	`

	result, err := r.querier.Exec(ctx, query,
		st.ID,
		st.StatementID,
		st.Date,
		st.Description,
		st.Amount,
		st.Reference,
		st.Type,
		st.MatchedTransactionID,
		st.CreatedAt,
		statement.StatusInProgress,
	)
	if err != nil {
		r.logger.Error("Failed to create statement transaction", "statement_id", st.StatementID.String(), "error", err)
		return fmt.Errorf("failed to create statement transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.InvalidStateError{
			Resource: "statement",
			ID:       st.StatementID,
			State:    string(statement.StatusCompleted),
			Reason:   "statement no longer accepts rows",
		}
	}

	return nil
}

// ListTransactions retrieves every row of a statement in import order.
func (r *StatementRepository) ListTransactions(ctx context.Context, statementID uuid.UUID) ([]*statement.Transaction, error) {
	return r.queryStatementTransactions(ctx, `
		SELECT id, statement_id, date, description, amount, reference, type, matched_transaction_id, created_at
		FROM statement_transactions
		WHERE statement_id = $1
		ORDER BY created_at ASC, id ASC
	`, statementID)
}

// ListUnmatched retrieves rows without a matched transaction, in import order
// so matching stays deterministic.
func (r *StatementRepository) ListUnmatched(ctx context.Context, statementID uuid.UUID) ([]*statement.Transaction, error) {
	return r.queryStatementTransactions(ctx, `
		SELECT id, statement_id, date, description, amount, reference, type, matched_transaction_id, created_at
		FROM statement_transactions
		WHERE statement_id = $1 AND matched_transaction_id IS NULL
		ORDER BY created_at ASC, id ASC
	`, statementID)
}

// ListMatched retrieves rows already linked to a ledger transaction.
func (r *StatementRepository) ListMatched(ctx context.Context, statementID uuid.UUID) ([]*statement.Transaction, error) {
	return r.queryStatementTransactions(ctx, `
		SELECT id, statement_id, date, description, amount, reference, type, matched_transaction_id, created_at
		FROM statement_transactions
		WHERE statement_id = $1 AND matched_transaction_id IS NOT NULL
		ORDER BY created_at ASC, id ASC
	`, statementID)
}

// SetMatch links or, with uuid.Nil, clears a row's matched transaction.
func (r *StatementRepository) SetMatch(ctx context.Context, statementTransactionID, transactionID uuid.UUID) error {
	var linked *uuid.UUID
	if transactionID != uuid.Nil {
		linked = &transactionID
	}

	query := `
		UPDATE statement_transactions
		SET matched_transaction_id = $1
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, linked, statementTransactionID)
	if err != nil {
		r.logger.Error("Failed to set statement transaction match", "id", statementTransactionID.String(), "error", err)
		return fmt.Errorf("failed to set statement transaction match: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Resource: "statement transaction", ID: statementTransactionID}
	}

	return nil
}

// ClearMatches removes every link pointing at the transaction within one
// statement.
func (r *StatementRepository) ClearMatches(ctx context.Context, statementID, transactionID uuid.UUID) (int64, error) {
	query := `
		UPDATE statement_transactions
		SET matched_transaction_id = NULL
		WHERE statement_id = $1 AND matched_transaction_id = $2
	`

	result, err := r.querier.Exec(ctx, query, statementID, transactionID)
	if err != nil {
		r.logger.Error("Failed to clear statement transaction matches", "statement_id", statementID.String(), "error", err)
		return 0, fmt.Errorf("failed to clear statement transaction matches: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *StatementRepository) queryStatementTransactions(ctx context.Context, query string, statementID uuid.UUID) ([]*statement.Transaction, error) {
	rows, err := r.querier.Query(ctx, query, statementID)
	if err != nil {
		r.logger.Error("Failed to query statement transactions", "statement_id", statementID.String(), "error", err)
		return nil, fmt.Errorf("failed to query statement transactions: %w", err)
	}
	defer rows.Close()

	var txns []*statement.Transaction
	for rows.Next() {
		var st statement.Transaction
		err := rows.Scan(
			&st.ID,
			&st.StatementID,
			&st.Date,
			&st.Description,
			&st.Amount,
			&st.Reference,
			&st.Type,
			&st.MatchedTransactionID,
			&st.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan statement transaction: %w", err)
		}
		txns = append(txns, &st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate statement transactions: %w", err)
	}

	return txns, nil
}

func (r *StatementRepository) scanStatement(row pgx.Row) (*statement.Statement, error) {
	var st statement.Statement
	err := row.Scan(
		&st.ID,
		&st.OrganizationID,
		&st.AccountID,
		&st.PeriodStart,
		&st.PeriodEnd,
		&st.EndingBalance,
		&st.Status,
		&st.ReconciledBalance,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
