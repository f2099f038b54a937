// Package ledgerstore implements the double-entry posting operations. Every
// mutation runs as one database transaction: accounts are row-locked in
// sorted id order, balance deltas are aggregated per account and applied as
// a batch alongside the entry writes.
package ledgerstore

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bank-reconciliation-ledger/internal/domain/account"
	"github.com/bank-reconciliation-ledger/internal/domain/audit"
	"github.com/bank-reconciliation-ledger/internal/domain/ledger"
	"github.com/bank-reconciliation-ledger/internal/domain/shared"
)

// TxRunner executes a function inside one database transaction.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Service exposes the ledger store operations.
type Service struct {
	db           TxRunner
	accounts     account.Repository
	transactions ledger.Repository
	audits       audit.Repository
	logger       *slog.Logger
}

// NewService creates a new ledger store service.
func NewService(logger *slog.Logger, db TxRunner, accounts account.Repository, transactions ledger.Repository, audits audit.Repository) *Service {
	return &Service{
		db:           db,
		accounts:     accounts,
		transactions: transactions,
		audits:       audits,
		logger:       logger,
	}
}

// CreateAccount adds an account to the organization's chart of accounts.
func (s *Service) CreateAccount(ctx context.Context, orgID uuid.UUID, name string, accountType string) (*account.Account, error) {
	parsed, err := account.ParseType(accountType)
	if err != nil {
		return nil, err
	}

	acc, err := account.New(orgID, name, parsed)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("Account created", "account_id", acc.ID.String(), "type", string(acc.Type))
	return acc, nil
}

// GetAccount retrieves an account within the organization scope.
func (s *Service) GetAccount(ctx context.Context, orgID, id uuid.UUID) (*account.Account, error) {
	return s.accounts.GetByID(ctx, orgID, id)
}

// ListAccounts retrieves the organization's chart of accounts.
func (s *Service) ListAccounts(ctx context.Context, orgID uuid.UUID) ([]*account.Account, error) {
	return s.accounts.List(ctx, orgID)
}

// PostTransaction validates and posts a balanced transaction, applying each
// account's aggregated balance delta under its row lock.
func (s *Service) PostTransaction(ctx context.Context, orgID uuid.UUID, description string, date time.Time, entries []ledger.Entry) (*ledger.Transaction, error) {
	if date.IsZero() {
		return nil, shared.ValidationError{Field: "date", Reason: "transaction date is required"}
	}
	if err := ledger.ValidateEntries(entries); err != nil {
		return nil, err
	}

	now := time.Now()
	txn := &ledger.Transaction{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Description:    description,
		Date:           date,
		Status:         ledger.StatusCleared,
		Entries:        entries,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if err := s.applyDeltas(ctx, tx, orgID, ledger.BalanceDeltas(entries)); err != nil {
			return err
		}
		return s.transactions.WithTx(tx).Create(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transaction posted",
		"transaction_id", txn.ID.String(),
		"entry_count", len(txn.Entries),
	)
	s.recordAudit(ctx, audit.New(orgID, audit.KindTransactionPosted, txn.ID, map[string]any{
		"description": txn.Description,
		"entry_count": len(txn.Entries),
	}))

	return txn, nil
}

// GetTransaction retrieves one transaction with its entries.
func (s *Service) GetTransaction(ctx context.Context, orgID, id uuid.UUID) (*ledger.Transaction, error) {
	return s.transactions.GetByID(ctx, orgID, id)
}

// ListTransactions retrieves transactions matching the filter.
func (s *Service) ListTransactions(ctx context.Context, orgID uuid.UUID, filter ledger.Filter) ([]*ledger.Transaction, error) {
	return s.transactions.List(ctx, orgID, filter)
}

// ReverseTransaction applies the inverse balance deltas of every entry and
// marks the transaction VOIDED. The status guard makes a second reversal fail
// instead of double-reversing.
func (s *Service) ReverseTransaction(ctx context.Context, orgID, id uuid.UUID) (*ledger.Transaction, error) {
	var txn *ledger.Transaction

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		transactions := s.transactions.WithTx(tx)

		var err error
		txn, err = transactions.GetByID(ctx, orgID, id)
		if err != nil {
			return err
		}
		if err := s.guardMutable(ctx, transactions, txn, "reverse"); err != nil {
			return err
		}

		if err := s.applyDeltas(ctx, tx, orgID, negated(ledger.BalanceDeltas(txn.Entries))); err != nil {
			return err
		}
		if err := transactions.UpdateStatus(ctx, id, ledger.StatusVoided); err != nil {
			return err
		}
		txn.Status = ledger.StatusVoided
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transaction reversed", "transaction_id", id.String())
	s.recordAudit(ctx, audit.New(orgID, audit.KindTransactionReversed, id, nil))

	return txn, nil
}

// UpdateTransaction replaces a transaction's entry set as reverse-then-repost
// inside one atomic unit: the old deltas are negated, the new deltas applied,
// and the combined adjustment committed together so balances are never
// observably inconsistent between the two steps.
func (s *Service) UpdateTransaction(ctx context.Context, orgID, id uuid.UUID, newEntries []ledger.Entry) (*ledger.Transaction, error) {
	if err := ledger.ValidateEntries(newEntries); err != nil {
		return nil, err
	}

	var txn *ledger.Transaction

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		transactions := s.transactions.WithTx(tx)

		var err error
		txn, err = transactions.GetByID(ctx, orgID, id)
		if err != nil {
			return err
		}
		if err := s.guardMutable(ctx, transactions, txn, "update"); err != nil {
			return err
		}

		deltas := merge(negated(ledger.BalanceDeltas(txn.Entries)), ledger.BalanceDeltas(newEntries))
		if err := s.applyDeltas(ctx, tx, orgID, deltas); err != nil {
			return err
		}
		if err := transactions.ReplaceEntries(ctx, id, newEntries); err != nil {
			return err
		}
		txn.Entries = newEntries
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transaction updated", "transaction_id", id.String(), "entry_count", len(newEntries))
	s.recordAudit(ctx, audit.New(orgID, audit.KindTransactionUpdated, id, map[string]any{
		"entry_count": len(newEntries),
	}))

	return txn, nil
}

// DeleteTransaction removes a transaction and its entries after undoing their
// balance effect. A transaction that has been reconciled or linked to a
// statement row cannot be deleted; the caller must unmatch first.
func (s *Service) DeleteTransaction(ctx context.Context, orgID, id uuid.UUID) error {
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		transactions := s.transactions.WithTx(tx)

		txn, err := transactions.GetByID(ctx, orgID, id)
		if err != nil {
			return err
		}
		if err := s.guardMutable(ctx, transactions, txn, "delete"); err != nil {
			return err
		}

		// A voided transaction already had its effect reversed.
		if txn.Status != ledger.StatusVoided {
			if err := s.applyDeltas(ctx, tx, orgID, negated(ledger.BalanceDeltas(txn.Entries))); err != nil {
				return err
			}
		}
		return transactions.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Transaction deleted", "transaction_id", id.String())
	s.recordAudit(ctx, audit.New(orgID, audit.KindTransactionDeleted, id, nil))

	return nil
}

// guardMutable rejects mutations of reconciled, already-voided (for reverse
// and update), or statement-linked transactions.
func (s *Service) guardMutable(ctx context.Context, transactions ledger.Repository, txn *ledger.Transaction, op string) error {
	switch txn.Status {
	case ledger.StatusReconciled:
		return shared.InvalidStateError{
			Resource: "transaction",
			ID:       txn.ID,
			State:    string(txn.Status),
			Reason:   "cannot " + op + " a reconciled transaction; unmatch it first",
		}
	case ledger.StatusVoided:
		if op != "delete" {
			return shared.InvalidStateError{
				Resource: "transaction",
				ID:       txn.ID,
				State:    string(txn.Status),
				Reason:   "cannot " + op + " a voided transaction",
			}
		}
	}

	matched, err := transactions.IsMatched(ctx, txn.ID)
	if err != nil {
		return err
	}
	if matched {
		return shared.InvalidStateError{
			Resource: "transaction",
			ID:       txn.ID,
			State:    string(txn.Status),
			Reason:   "cannot " + op + " a transaction linked to a statement; unmatch it first",
		}
	}
	return nil
}

// applyDeltas locks every touched account in sorted id order and applies its
// aggregated balance delta under the lock.
func (s *Service) applyDeltas(ctx context.Context, tx pgx.Tx, orgID uuid.UUID, deltas map[uuid.UUID]decimal.Decimal) error {
	accounts := s.accounts.WithTx(tx)

	for _, accountID := range sortedAccountIDs(deltas) {
		acc, err := accounts.LockForUpdate(ctx, orgID, accountID)
		if err != nil {
			return err
		}
		if !acc.Active {
			return shared.InvalidStateError{
				Resource: "account",
				ID:       acc.ID,
				State:    "inactive",
				Reason:   "cannot post to an inactive account",
			}
		}

		delta := deltas[accountID]
		if delta.IsZero() {
			continue
		}
		if err := accounts.ApplyDelta(ctx, accountID, delta, acc.Version); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, event *audit.Event) {
	if err := s.audits.Record(ctx, event); err != nil {
		s.logger.Error("Failed to record audit event",
			"kind", string(event.Kind),
			"entity_id", event.EntityID.String(),
			"error", err,
		)
	}
}

func negated(deltas map[uuid.UUID]decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(deltas))
	for id, d := range deltas {
		out[id] = d.Neg()
	}
	return out
}

func merge(a, b map[uuid.UUID]decimal.Decimal) map[uuid.UUID]decimal.Decimal {
	out := make(map[uuid.UUID]decimal.Decimal, len(a)+len(b))
	for id, d := range a {
		out[id] = d
	}
	for id, d := range b {
		out[id] = out[id].Add(d)
	}
	return out
}

func sortedAccountIDs(deltas map[uuid.UUID]decimal.Decimal) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}
