package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bank-reconciliation-ledger/internal/api/middleware"
	"github.com/bank-reconciliation-ledger/internal/domain/account"
	"github.com/bank-reconciliation-ledger/internal/domain/audit"
	"github.com/bank-reconciliation-ledger/internal/domain/ledger"
	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/bank-reconciliation-ledger/internal/domain/statement"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// performRequest runs one request through a router with the organization
// header set, returning the recorder.
func performRequest(t *testing.T, router *gin.Engine, method, path string, orgID uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.OrganizationIDHeader, orgID.String())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func performRecorder(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals the response envelope's data field into out.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) CreateAccount(ctx context.Context, orgID uuid.UUID, name string, accountType string) (*account.Account, error) {
	args := m.Called(ctx, orgID, name, accountType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) GetAccount(ctx context.Context, orgID, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, orgID uuid.UUID) ([]*account.Account, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) PostTransaction(ctx context.Context, orgID uuid.UUID, description string, date time.Time, entries []ledger.Entry) (*ledger.Transaction, error) {
	args := m.Called(ctx, orgID, description, date, entries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetTransaction(ctx context.Context, orgID, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionService) ListTransactions(ctx context.Context, orgID uuid.UUID, filter ledger.Filter) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, orgID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionService) ReverseTransaction(ctx context.Context, orgID, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionService) UpdateTransaction(ctx context.Context, orgID, id uuid.UUID, newEntries []ledger.Entry) (*ledger.Transaction, error) {
	args := m.Called(ctx, orgID, id, newEntries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionService) DeleteTransaction(ctx context.Context, orgID, id uuid.UUID) error {
	args := m.Called(ctx, orgID, id)
	return args.Error(0)
}

type MockStatementService struct {
	mock.Mock
}

func (m *MockStatementService) CreateStatement(ctx context.Context, orgID, accountID uuid.UUID, periodStart, periodEnd time.Time, endingBalance decimal.Decimal) (*statement.Statement, error) {
	args := m.Called(ctx, orgID, accountID, periodStart, periodEnd, endingBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Statement), args.Error(1)
}

func (m *MockStatementService) GetStatement(ctx context.Context, orgID, id uuid.UUID) (*statement.Statement, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Statement), args.Error(1)
}

func (m *MockStatementService) ListStatements(ctx context.Context, orgID, accountID uuid.UUID) ([]*statement.Statement, error) {
	args := m.Called(ctx, orgID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*statement.Statement), args.Error(1)
}

func (m *MockStatementService) ListRows(ctx context.Context, orgID, statementID uuid.UUID) ([]*statement.Transaction, error) {
	args := m.Called(ctx, orgID, statementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*statement.Transaction), args.Error(1)
}

func (m *MockStatementService) Complete(ctx context.Context, orgID, statementID uuid.UUID) (*statement.Statement, error) {
	args := m.Called(ctx, orgID, statementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Statement), args.Error(1)
}

type MockMatcher struct {
	mock.Mock
}

func (m *MockMatcher) AutoMatch(ctx context.Context, orgID, statementID uuid.UUID) (*shared.MatchReport, error) {
	args := m.Called(ctx, orgID, statementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.MatchReport), args.Error(1)
}

func (m *MockMatcher) Reconcile(ctx context.Context, orgID, statementID, transactionID uuid.UUID, statementTransactionID *uuid.UUID) error {
	args := m.Called(ctx, orgID, statementID, transactionID, statementTransactionID)
	return args.Error(0)
}

func (m *MockMatcher) Unmatch(ctx context.Context, orgID, statementID, transactionID uuid.UUID) error {
	args := m.Called(ctx, orgID, statementID, transactionID)
	return args.Error(0)
}

type MockRowImporter struct {
	mock.Mock
}

func (m *MockRowImporter) ImportRows(ctx context.Context, orgID, statementID uuid.UUID, rows []shared.StatementRow) (*shared.ImportReport, error) {
	args := m.Called(ctx, orgID, statementID, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.ImportReport), args.Error(1)
}

type MockAuditReader struct {
	mock.Mock
}

func (m *MockAuditReader) ListByEntity(ctx context.Context, orgID, entityID uuid.UUID, limit, offset int) ([]*audit.Event, error) {
	args := m.Called(ctx, orgID, entityID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Event), args.Error(1)
}

func (m *MockAuditReader) CountByEntity(ctx context.Context, orgID, entityID uuid.UUID) (int64, error) {
	args := m.Called(ctx, orgID, entityID)
	return args.Get(0).(int64), args.Error(1)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
