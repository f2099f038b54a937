package matching

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/bank-reconciliation-ledger/internal/domain/audit"
	"github.com/bank-reconciliation-ledger/internal/domain/ledger"
	"github.com/bank-reconciliation-ledger/internal/domain/statement"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTxRunner struct{}

func (fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

type MockStatementRepository struct {
	mock.Mock
}

func (m *MockStatementRepository) Create(ctx context.Context, st *statement.Statement) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *MockStatementRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*statement.Statement, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Statement), args.Error(1)
}

func (m *MockStatementRepository) List(ctx context.Context, orgID, accountID uuid.UUID) ([]*statement.Statement, error) {
	args := m.Called(ctx, orgID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*statement.Statement), args.Error(1)
}

func (m *MockStatementRepository) LockForUpdate(ctx context.Context, orgID, id uuid.UUID) (*statement.Statement, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Statement), args.Error(1)
}

func (m *MockStatementRepository) Complete(ctx context.Context, id uuid.UUID, reconciledBalance decimal.Decimal) error {
	args := m.Called(ctx, id, reconciledBalance)
	return args.Error(0)
}

func (m *MockStatementRepository) CreateTransaction(ctx context.Context, st *statement.Transaction) error {
	args := m.Called(ctx, st)
	return args.Error(0)
}

func (m *MockStatementRepository) ListTransactions(ctx context.Context, statementID uuid.UUID) ([]*statement.Transaction, error) {
	args := m.Called(ctx, statementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*statement.Transaction), args.Error(1)
}

func (m *MockStatementRepository) ListUnmatched(ctx context.Context, statementID uuid.UUID) ([]*statement.Transaction, error) {
	args := m.Called(ctx, statementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*statement.Transaction), args.Error(1)
}

func (m *MockStatementRepository) ListMatched(ctx context.Context, statementID uuid.UUID) ([]*statement.Transaction, error) {
	args := m.Called(ctx, statementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*statement.Transaction), args.Error(1)
}

func (m *MockStatementRepository) SetMatch(ctx context.Context, statementTransactionID, transactionID uuid.UUID) error {
	args := m.Called(ctx, statementTransactionID, transactionID)
	return args.Error(0)
}

func (m *MockStatementRepository) ClearMatches(ctx context.Context, statementID, transactionID uuid.UUID) (int64, error) {
	args := m.Called(ctx, statementID, transactionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatementRepository) WithTx(tx pgx.Tx) statement.Repository {
	return m
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *ledger.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) List(ctx context.Context, orgID uuid.UUID, filter ledger.Filter) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, orgID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ReplaceEntries(ctx context.Context, transactionID uuid.UUID, entries []ledger.Entry) error {
	args := m.Called(ctx, transactionID, entries)
	return args.Error(0)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status ledger.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListMatchCandidates(ctx context.Context, orgID, accountID uuid.UUID, cutoff time.Time) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, orgID, accountID, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) IsMatched(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Record(ctx context.Context, event *audit.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByEntity(ctx context.Context, orgID, entityID uuid.UUID, limit, offset int) ([]*audit.Event, error) {
	args := m.Called(ctx, orgID, entityID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Event), args.Error(1)
}

func (m *MockAuditRepository) CountByEntity(ctx context.Context, orgID, entityID uuid.UUID) (int64, error) {
	args := m.Called(ctx, orgID, entityID)
	return args.Get(0).(int64), args.Error(1)
}
