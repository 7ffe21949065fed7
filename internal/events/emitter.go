package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// InMemoryEventEmitter delivers each event synchronously, in registration
// order, to every registered handler.
type InMemoryEventEmitter struct {
	mu       sync.RWMutex
	handlers []EventHandler
	logger   *slog.Logger
}

var _ EventEmitter = (*InMemoryEventEmitter)(nil)

// NewInMemoryEventEmitter creates an emitter with no handlers.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		logger: logger.With(slog.String("component", "trade_event_emitter")),
	}
}

// RegisterHandler adds handler to the delivery list.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
}

// EmitEvent hands event to every handler. A failing or panicking handler
// does not stop delivery to the rest; all failures come back joined.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TradeEvent) error {
	if event == nil {
		return errors.New("cannot emit a nil event")
	}

	e.mu.RLock()
	handlers := slices.Clone(e.handlers)
	e.mu.RUnlock()

	var errs []error
	for i, handler := range handlers {
		if err := deliver(ctx, handler, event); err != nil {
			e.logger.Warn("trade event delivery failed",
				slog.Int("handler_index", i),
				slog.String("handler", fmt.Sprintf("%T", handler)),
				slog.String("event_type", string(event.Type)),
				slog.Any("trade_request_id", tradeID(event)),
				slog.Any("recipients", event.Recipients()),
				slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deliver calls handler, turning a panic into an error.
func deliver(ctx context.Context, handler EventHandler, event *TradeEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("event handler panicked: %v", p)
		}
	}()
	return handler.HandleEvent(ctx, event)
}

func tradeID(event *TradeEvent) any {
	if event.Trade == nil {
		return nil
	}
	return event.Trade.ID
}

// AuditLogHandler writes one log line per committed trade event.
type AuditLogHandler struct {
	logger *slog.Logger
}

var _ EventHandler = (*AuditLogHandler)(nil)

// NewAuditLogHandler creates an AuditLogHandler. If logger is nil, slog.Default is used.
func NewAuditLogHandler(logger *slog.Logger) *AuditLogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogHandler{logger: logger.With(slog.String("component", "trade_audit"))}
}

// HandleEvent implements EventHandler.
func (h *AuditLogHandler) HandleEvent(ctx context.Context, event *TradeEvent) error {
	attrs := []slog.Attr{
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", string(event.Type)),
		slog.String("actor_id", event.ActorID.String()),
		slog.Time("occurred_at", event.OccurredAt),
	}
	if t := event.Trade; t != nil {
		attrs = append(attrs,
			slog.String("trade_request_id", t.ID.String()),
			slog.String("status", string(t.Status)),
			slog.String("requester_id", t.RequesterID.String()),
			slog.String("owner_id", t.OwnerID.String()),
			slog.String("requested_book_id", t.RequestedBookID.String()))
		if t.OfferedBookID != nil {
			attrs = append(attrs, slog.String("offered_book_id", t.OfferedBookID.String()))
		}
	}
	h.logger.LogAttrs(ctx, slog.LevelInfo, "trade event", attrs...)
	return nil
}
