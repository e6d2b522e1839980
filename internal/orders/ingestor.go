package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"tablebook/internal/events"
	"tablebook/internal/models"
)

// Store persists order snapshots for occupancy checks.
type Store interface {
	UpsertOrder(ctx context.Context, o *models.Order) error
}

// Subscriber delivers raw messages published on a subject.
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, handler events.HandlerFunc) error
}

// Ingestor keeps the local order view in sync with the order service.
type Ingestor struct {
	store  Store
	bus    *events.EventBus
	logger *zerolog.Logger
}

func NewIngestor(store Store, bus *events.EventBus, logger *zerolog.Logger) *Ingestor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Ingestor{store: store, bus: bus, logger: logger}
}

// Start subscribes the ingestor to subject.
func (i *Ingestor) Start(ctx context.Context, sub Subscriber, subject string) error {
	if err := sub.Subscribe(ctx, subject, i.Handle); err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	i.logger.Info().Str("subject", subject).Msg("order ingestion started")
	return nil
}

// Handle decodes one order snapshot, stores it and announces the change.
func (i *Ingestor) Handle(ctx context.Context, data []byte) error {
	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return fmt.Errorf("decode order: %w", err)
	}
	order.Status = models.OrderStatus(strings.ToLower(string(order.Status)))
	if err := validate(&order); err != nil {
		return err
	}

	if err := i.store.UpsertOrder(ctx, &order); err != nil {
		return fmt.Errorf("store order %s: %w", order.ID, err)
	}

	i.logger.Debug().
		Str("order", order.ID).
		Int("table", order.TableNumber).
		Str("status", string(order.Status)).
		Msg("order snapshot ingested")
	if i.bus != nil {
		i.bus.Emit(events.OrderStatus, order)
	}
	return nil
}

func validate(o *models.Order) error {
	switch {
	case o.ID == "":
		return models.NewValidationError("id", "is required")
	case o.TableNumber <= 0:
		return models.NewValidationError("tableNumber", "must be positive")
	case !o.Status.Valid():
		return models.NewValidationError("status", fmt.Sprintf("unknown status %q", o.Status))
	case o.CreatedAt.IsZero():
		return models.NewValidationError("createdAt", "is required")
	}
	return nil
}
