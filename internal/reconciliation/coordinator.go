// Package reconciliation drives the statement lifecycle: creation against an
// account, and the terminal completion check that certifies the account
// balance against the bank's declared ending balance.
package reconciliation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bank-reconciliation-ledger/internal/domain/account"
	"github.com/bank-reconciliation-ledger/internal/domain/audit"
	"github.com/bank-reconciliation-ledger/internal/domain/ledger"
	"github.com/bank-reconciliation-ledger/internal/domain/outbox"
	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/bank-reconciliation-ledger/internal/domain/statement"
)

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// balanceTolerance is the largest reconciled-vs-ending difference a
// completion accepts.
var balanceTolerance = decimal.New(1, -2)

// Coordinator owns statement creation and completion.
type Coordinator struct {
	db           TxRunner
	accounts     account.Repository
	statements   statement.Repository
	transactions ledger.Repository
	outbox       outbox.Repository
	audits       audit.Repository
	logger       *slog.Logger
}

// NewCoordinator creates a reconciliation coordinator.
func NewCoordinator(
	logger *slog.Logger,
	db TxRunner,
	accounts account.Repository,
	statements statement.Repository,
	transactions ledger.Repository,
	outboxRepo outbox.Repository,
	audits audit.Repository,
) *Coordinator {
	return &Coordinator{
		db:           db,
		accounts:     accounts,
		statements:   statements,
		transactions: transactions,
		outbox:       outboxRepo,
		audits:       audits,
		logger:       logger,
	}
}

// CreateStatement opens an IN_PROGRESS statement for one account and period.
// The account must exist within the caller's organization.
func (c *Coordinator) CreateStatement(ctx context.Context, orgID, accountID uuid.UUID, periodStart, periodEnd time.Time, endingBalance decimal.Decimal) (*statement.Statement, error) {
	if _, err := c.accounts.GetByID(ctx, orgID, accountID); err != nil {
		return nil, err
	}

	st, err := statement.New(orgID, accountID, periodStart, periodEnd, endingBalance)
	if err != nil {
		return nil, err
	}
	if err := c.statements.Create(ctx, st); err != nil {
		return nil, err
	}

	c.logger.Info("Statement created",
		"statement_id", st.ID.String(),
		"account_id", accountID.String(),
	)
	c.recordAudit(ctx, audit.New(orgID, audit.KindStatementCreated, st.ID, map[string]any{
		"account_id":     accountID.String(),
		"ending_balance": endingBalance.StringFixed(2),
	}))

	return st, nil
}

// GetStatement retrieves one statement within the organization scope.
func (c *Coordinator) GetStatement(ctx context.Context, orgID, id uuid.UUID) (*statement.Statement, error) {
	return c.statements.GetByID(ctx, orgID, id)
}

// ListStatements retrieves an organization's statements, optionally filtered
// to one account (uuid.Nil means all accounts).
func (c *Coordinator) ListStatements(ctx context.Context, orgID, accountID uuid.UUID) ([]*statement.Statement, error) {
	return c.statements.List(ctx, orgID, accountID)
}

// ListRows retrieves a statement's imported rows.
func (c *Coordinator) ListRows(ctx context.Context, orgID, statementID uuid.UUID) ([]*statement.Transaction, error) {
	if _, err := c.statements.GetByID(ctx, orgID, statementID); err != nil {
		return nil, err
	}
	return c.statements.ListTransactions(ctx, statementID)
}

// Complete recomputes the reconciled balance from the matched rows' signed
// ledger effects and certifies the statement. On a mismatch beyond the cent
// tolerance nothing is written and the statement stays IN_PROGRESS. On
// success the account balance is overwritten with the declared ending
// balance, and a completion event is stored in the outbox within the same
// database transaction.
func (c *Coordinator) Complete(ctx context.Context, orgID, statementID uuid.UUID) (*statement.Statement, error) {
	var (
		st         *statement.Statement
		reconciled decimal.Decimal
	)

	err := c.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		statements := c.statements.WithTx(tx)
		transactions := c.transactions.WithTx(tx)
		accounts := c.accounts.WithTx(tx)

		var err error
		st, err = statements.LockForUpdate(ctx, orgID, statementID)
		if err != nil {
			return err
		}
		if st.Status == statement.StatusCompleted {
			return shared.InvalidStateError{
				Resource: "statement",
				ID:       st.ID,
				State:    string(st.Status),
				Reason:   "statement is already completed",
			}
		}

		reconciled, err = c.reconciledBalance(ctx, transactions, statements, st)
		if err != nil {
			return err
		}

		difference := reconciled.Sub(st.EndingBalance)
		if difference.Abs().GreaterThan(balanceTolerance) {
			return shared.ReconciliationMismatchError{
				StatementID:       st.ID,
				ReconciledBalance: reconciled,
				EndingBalance:     st.EndingBalance,
				Difference:        difference,
			}
		}

		acc, err := accounts.LockForUpdate(ctx, orgID, st.AccountID)
		if err != nil {
			return err
		}
		if err := accounts.SetBalance(ctx, acc.ID, st.EndingBalance, acc.Version); err != nil {
			return err
		}
		if err := statements.Complete(ctx, st.ID, reconciled); err != nil {
			return err
		}

		message, err := outbox.NewCompletionMessage(&shared.CompletionEvent{
			StatementID:       st.ID,
			OrganizationID:    orgID,
			AccountID:         st.AccountID,
			ReconciledBalance: reconciled.StringFixed(2),
			EndingBalance:     st.EndingBalance.StringFixed(2),
			CompletedAt:       time.Now(),
		})
		if err != nil {
			return err
		}
		return c.outbox.WithTx(tx).Create(ctx, message)
	})
	if err != nil {
		return nil, err
	}

	st.Status = statement.StatusCompleted
	st.ReconciledBalance = &reconciled

	c.logger.Info("Statement completed",
		"statement_id", st.ID.String(),
		"reconciled_balance", reconciled.StringFixed(2),
	)
	c.recordAudit(ctx, audit.New(orgID, audit.KindStatementCompleted, st.ID, map[string]any{
		"reconciled_balance": reconciled.StringFixed(2),
		"ending_balance":     st.EndingBalance.StringFixed(2),
	}))

	return st, nil
}

// reconciledBalance sums, over every matched statement row, the signed ledger
// effect of the matched transaction on the statement's account.
func (c *Coordinator) reconciledBalance(ctx context.Context, transactions ledger.Repository, statements statement.Repository, st *statement.Statement) (decimal.Decimal, error) {
	matched, err := statements.ListMatched(ctx, st.ID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, row := range matched {
		txn, err := transactions.GetByID(ctx, st.OrganizationID, *row.MatchedTransactionID)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(txn.SignedAmount(st.AccountID))
	}
	return total, nil
}

func (c *Coordinator) recordAudit(ctx context.Context, event *audit.Event) {
	if err := c.audits.Record(ctx, event); err != nil {
		c.logger.Error("Failed to record audit event",
			"kind", string(event.Kind),
			"entity_id", event.EntityID.String(),
			"error", err,
		)
	}
}
