package matching

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bank-reconciliation-ledger/internal/domain/audit"
	"github.com/bank-reconciliation-ledger/internal/domain/ledger"
	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/bank-reconciliation-ledger/internal/domain/statement"
)

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Engine runs automatic matching and the manual overrides. Every run locks
// the statement row, so concurrent runs over one statement serialize and
// cannot double-consume a ledger transaction.
type Engine struct {
	db           TxRunner
	statements   statement.Repository
	transactions ledger.Repository
	audits       audit.Repository
	logger       *slog.Logger
}

// NewEngine creates a matching engine.
func NewEngine(logger *slog.Logger, db TxRunner, statements statement.Repository, transactions ledger.Repository, audits audit.Repository) *Engine {
	return &Engine{
		db:           db,
		statements:   statements,
		transactions: transactions,
		audits:       audits,
		logger:       logger,
	}
}

type committedMatch struct {
	statementTransactionID uuid.UUID
	transactionID          uuid.UUID
	score                  float64
}

// AutoMatch scores every unmatched statement row against the statement
// account's unconsumed CLEARED transactions and commits the winning links.
// Rows are visited in import order; a consumed candidate leaves the pool for
// the rest of the run, and exact ties keep the first-seen candidate, so the
// run is deterministic.
func (e *Engine) AutoMatch(ctx context.Context, orgID, statementID uuid.UUID) (*shared.MatchReport, error) {
	var committed []committedMatch

	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		statements := e.statements.WithTx(tx)

		st, err := statements.LockForUpdate(ctx, orgID, statementID)
		if err != nil {
			return err
		}
		if st.Status == statement.StatusCompleted {
			return shared.InvalidStateError{
				Resource: "statement",
				ID:       st.ID,
				State:    string(st.Status),
				Reason:   "cannot match against a completed statement",
			}
		}

		unmatched, err := statements.ListUnmatched(ctx, st.ID)
		if err != nil {
			return err
		}
		candidates, err := e.transactions.WithTx(tx).ListMatchCandidates(ctx, orgID, st.AccountID, st.PeriodEnd)
		if err != nil {
			return err
		}

		consumed := make(map[uuid.UUID]bool, len(candidates))
		for _, row := range unmatched {
			best, bestScore := pickBest(row, candidates, consumed, st.AccountID)
			if best == nil {
				continue
			}

			if err := statements.SetMatch(ctx, row.ID, best.ID); err != nil {
				return err
			}
			consumed[best.ID] = true
			committed = append(committed, committedMatch{
				statementTransactionID: row.ID,
				transactionID:          best.ID,
				score:                  bestScore,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Auto-match complete",
		"statement_id", statementID.String(),
		"matched_count", len(committed),
	)
	for _, m := range committed {
		e.recordAudit(ctx, audit.New(orgID, audit.KindMatchCommitted, statementID, map[string]any{
			"statement_transaction_id": m.statementTransactionID.String(),
			"transaction_id":           m.transactionID.String(),
			"score":                    m.score,
		}))
	}

	return &shared.MatchReport{MatchedCount: len(committed)}, nil
}

// pickBest returns the unconsumed candidate with the strictly highest
// eligible score for the row. A strict comparison keeps the first-seen
// candidate on exact ties.
func pickBest(row *statement.Transaction, candidates []*ledger.Transaction, consumed map[uuid.UUID]bool, accountID uuid.UUID) (*ledger.Transaction, float64) {
	var (
		best      *ledger.Transaction
		bestScore float64
	)
	for _, candidate := range candidates {
		if consumed[candidate.ID] {
			continue
		}
		score := Score(row, candidate, accountID)
		if score <= eligibilityThreshold {
			continue
		}
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best, bestScore
}

// Reconcile marks a ledger transaction RECONCILED and, when a statement row
// is named, links the two.
func (e *Engine) Reconcile(ctx context.Context, orgID, statementID, transactionID uuid.UUID, statementTransactionID *uuid.UUID) error {
	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		statements := e.statements.WithTx(tx)
		transactions := e.transactions.WithTx(tx)

		st, err := statements.LockForUpdate(ctx, orgID, statementID)
		if err != nil {
			return err
		}
		if st.Status == statement.StatusCompleted {
			return shared.InvalidStateError{
				Resource: "statement",
				ID:       st.ID,
				State:    string(st.Status),
				Reason:   "cannot reconcile against a completed statement",
			}
		}

		txn, err := transactions.GetByID(ctx, orgID, transactionID)
		if err != nil {
			return err
		}
		if txn.Status == ledger.StatusVoided {
			return shared.InvalidStateError{
				Resource: "transaction",
				ID:       txn.ID,
				State:    string(txn.Status),
				Reason:   "cannot reconcile a voided transaction",
			}
		}

		if statementTransactionID != nil {
			if err := e.linkRow(ctx, statements, st.ID, *statementTransactionID, transactionID); err != nil {
				return err
			}
		}
		return transactions.UpdateStatus(ctx, transactionID, ledger.StatusReconciled)
	})
	if err != nil {
		return err
	}

	e.logger.Info("Transaction reconciled",
		"statement_id", statementID.String(),
		"transaction_id", transactionID.String(),
	)
	e.recordAudit(ctx, audit.New(orgID, audit.KindMatchManual, statementID, map[string]any{
		"transaction_id": transactionID.String(),
	}))

	return nil
}

// linkRow sets the match link after checking the row belongs to the statement.
func (e *Engine) linkRow(ctx context.Context, statements statement.Repository, statementID, statementTransactionID, transactionID uuid.UUID) error {
	rows, err := statements.ListTransactions(ctx, statementID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.ID == statementTransactionID {
			return statements.SetMatch(ctx, statementTransactionID, transactionID)
		}
	}
	return shared.NotFoundError{Resource: "statement transaction", ID: statementTransactionID}
}

// Unmatch reverts a reconciled transaction to CLEARED and clears every link
// pointing at it within the statement.
func (e *Engine) Unmatch(ctx context.Context, orgID, statementID, transactionID uuid.UUID) error {
	var cleared int64

	err := e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		statements := e.statements.WithTx(tx)
		transactions := e.transactions.WithTx(tx)

		st, err := statements.LockForUpdate(ctx, orgID, statementID)
		if err != nil {
			return err
		}
		if st.Status == statement.StatusCompleted {
			return shared.InvalidStateError{
				Resource: "statement",
				ID:       st.ID,
				State:    string(st.Status),
				Reason:   "cannot unmatch against a completed statement",
			}
		}

		txn, err := transactions.GetByID(ctx, orgID, transactionID)
		if err != nil {
			return err
		}
		if txn.Status == ledger.StatusReconciled {
			if err := transactions.UpdateStatus(ctx, transactionID, ledger.StatusCleared); err != nil {
				return err
			}
		}

		cleared, err = statements.ClearMatches(ctx, st.ID, transactionID)
		return err
	})
	if err != nil {
		return err
	}

	e.logger.Info("Transaction unmatched",
		"statement_id", statementID.String(),
		"transaction_id", transactionID.String(),
		"cleared_links", cleared,
	)
	e.recordAudit(ctx, audit.New(orgID, audit.KindMatchCleared, statementID, map[string]any{
		"transaction_id": transactionID.String(),
		"cleared_links":  cleared,
	}))

	return nil
}

func (e *Engine) recordAudit(ctx context.Context, event *audit.Event) {
	if err := e.audits.Record(ctx, event); err != nil {
		e.logger.Error("Failed to record audit event",
			"kind", string(event.Kind),
			"entity_id", event.EntityID.String(),
			"error", err,
		)
	}
}
