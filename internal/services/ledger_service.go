package services

import (
	"context"
	"fmt"
	"log/slog"

	"dailyspend/internal/amqp"
	"dailyspend/internal/core"
	"dailyspend/internal/ledger"
)

// EventPublisher is the slice of the AMQP client the ledger service needs.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// LedgerService orchestrates ledger writes: store first, then a best-effort
// event publish. A broker failure never fails the request.
type LedgerService struct {
	store     ledger.TransactionStore
	publisher EventPublisher
}

func NewLedgerService(store ledger.TransactionStore, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
	}
}

// Record saves a transaction and publishes a created event.
func (s *LedgerService) Record(ctx context.Context, tx core.Transaction) (int64, error) {
	id, err := s.store.AppendTransaction(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, amqp.NewLedgerEvent(id, tx.UserID, string(tx.Kind), amqp.ActionCreated, tx.Amount.Cents))

	return id, nil
}

// Delete soft deletes a transaction and publishes a deleted event.
func (s *LedgerService) Delete(ctx context.Context, userID string, id int64) error {
	if err := s.store.SoftDeleteTransaction(ctx, userID, id); err != nil {
		return err
	}

	s.publish(ctx, amqp.NewLedgerEvent(id, userID, "", amqp.ActionDeleted, 0))

	return nil
}

func (s *LedgerService) publish(ctx context.Context, event *amqp.LedgerEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping ledger event")
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
		// The write already succeeded; the event stream is best effort.
		slog.ErrorContext(ctx, "Failed to publish ledger event",
			"id", event.ID,
			"action", event.Action,
			"error", err)
	}
}
