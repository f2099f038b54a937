package outbox_poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bank-reconciliation-ledger/internal/domain/outbox"
	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	m.Called(tx)
	return m
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

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingMessage(t *testing.T) (*outbox.Message, *shared.CompletionEvent) {
	t.Helper()
	event := &shared.CompletionEvent{
		StatementID:       uuid.New(),
		OrganizationID:    uuid.New(),
		AccountID:         uuid.New(),
		ReconciledBalance: "1200.00",
		EndingBalance:     "1200.00",
		CompletedAt:       time.Now().UTC(),
	}
	msg, err := outbox.NewCompletionMessage(event)
	require.NoError(t, err)
	msg.ID = 42
	return msg, event
}

func TestCompletionPublisher_PublishEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("PublishesAndMarksProcessed", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		producer := new(MockMessagePublisher)
		publisher := NewCompletionPublisher(repo, producer, newTestLogger())

		msg, event := pendingMessage(t)

		producer.On("Publish", ctx, msg.StatementID.String(), mock.MatchedBy(func(v interface{}) bool {
			got, ok := v.(*shared.CompletionEvent)
			return ok && got.StatementID == event.StatementID && got.ReconciledBalance == "1200.00"
		})).Return(nil).Once()
		repo.On("UpdateStatus", ctx, msg.ID, outbox.StatusProcessed).Return(nil).Once()

		err := publisher.PublishEvent(ctx, msg)
		require.NoError(t, err)
		producer.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("CorruptPayloadMarkedFailed", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		producer := new(MockMessagePublisher)
		publisher := NewCompletionPublisher(repo, producer, newTestLogger())

		msg, _ := pendingMessage(t)
		msg.Payload = []byte("{corrupt")

		repo.On("UpdateStatus", ctx, msg.ID, outbox.StatusFailedToPublish).Return(nil).Once()

		err := publisher.PublishEvent(ctx, msg)
		require.Error(t, err)
		producer.AssertNotCalled(t, "Publish")
		repo.AssertExpectations(t)
	})

	t.Run("PublishFailureLeavesMessagePending", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		producer := new(MockMessagePublisher)
		publisher := NewCompletionPublisher(repo, producer, newTestLogger())

		msg, _ := pendingMessage(t)

		producer.On("Publish", ctx, msg.StatementID.String(), mock.Anything).
			Return(errors.New("broker unavailable")).Once()

		err := publisher.PublishEvent(ctx, msg)
		require.Error(t, err)
		repo.AssertNotCalled(t, "UpdateStatus")
	})

	t.Run("MarkProcessedFailureReturnsError", func(t *testing.T) {
		repo := new(MockOutboxRepository)
		producer := new(MockMessagePublisher)
		publisher := NewCompletionPublisher(repo, producer, newTestLogger())

		msg, _ := pendingMessage(t)

		producer.On("Publish", ctx, msg.StatementID.String(), mock.Anything).Return(nil).Once()
		repo.On("UpdateStatus", ctx, msg.ID, outbox.StatusProcessed).
			Return(errors.New("connection reset")).Once()

		err := publisher.PublishEvent(ctx, msg)
		require.Error(t, err)
	})
}
