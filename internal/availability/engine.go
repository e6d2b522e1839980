// Package availability decides whether a table can be booked at a given instant.
package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tablebook/internal/metrics"
	"tablebook/internal/models"
	"tablebook/internal/timewindow"
)

// ReservationSource loads reservations that hold a table on a calendar day.
type ReservationSource interface {
	ListActiveForTableOnDay(ctx context.Context, tableNumber int, day time.Time) ([]models.Reservation, error)
}

// OrderSource loads orders that still occupy a table.
type OrderSource interface {
	ListActiveForTable(ctx context.Context, tableNumber int) ([]models.Order, error)
}

// Engine combines reservations and live orders into availability decisions.
type Engine struct {
	reservations ReservationSource
	orders       OrderSource
	logger       *zerolog.Logger

	mu     sync.RWMutex
	policy Policy
}

// NewEngine creates an engine with the given policy; zero fields take defaults.
func NewEngine(reservations ReservationSource, orders OrderSource, policy Policy, logger *zerolog.Logger) *Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Engine{
		reservations: reservations,
		orders:       orders,
		logger:       logger,
		policy:       policy.WithDefaults(),
	}
}

// Policy returns the policy currently in effect.
func (e *Engine) Policy() Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.policy
}

// SetPolicy swaps the policy used by subsequent decisions.
func (e *Engine) SetPolicy(p Policy) error {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	e.policy = p
	e.mu.Unlock()
	e.logger.Info().
		Int("buffer_minutes", p.BufferMinutes).
		Int("pre_buffer_minutes", p.PreBufferMinutes).
		Int("seating_minutes", p.SeatingMinutes).
		Msg("availability policy updated")
	return nil
}

// Check decides whether tableNumber is free at clock on date.
func (e *Engine) Check(ctx context.Context, tableNumber int, date time.Time, clock string) (models.Decision, error) {
	if err := validateQuery(tableNumber, date); err != nil {
		return models.Decision{}, err
	}
	if _, _, err := timewindow.ParseClock(clock); err != nil {
		return models.Decision{}, models.NewValidationError("time", err.Error())
	}

	policy := e.Policy()
	reservations, orders, err := e.load(ctx, tableNumber, date)
	if err != nil {
		return models.Decision{}, err
	}

	d := decide(policy, reservations, orders, timewindow.Combine(date, clock))
	metrics.IncAvailabilityCheck(d.IsAvailable)
	return d, nil
}

// DaySlots returns the hourly grid for tableNumber on date. Storage is queried once for
// the whole grid.
func (e *Engine) DaySlots(ctx context.Context, tableNumber int, date time.Time) ([]models.Slot, error) {
	if err := validateQuery(tableNumber, date); err != nil {
		return nil, err
	}

	policy := e.Policy()
	reservations, orders, err := e.load(ctx, tableNumber, date)
	if err != nil {
		return nil, err
	}

	slots := make([]models.Slot, 0, policy.LastSlotHour-policy.FirstSlotHour+1)
	for h := policy.FirstSlotHour; h <= policy.LastSlotHour; h++ {
		clock := timewindow.FormatClock(h, 0)
		d := decide(policy, reservations, orders, timewindow.Combine(date, clock))
		slots = append(slots, models.Slot{
			Time:                clock,
			IsAvailable:         d.IsAvailable,
			ReservationConflict: d.ReservationConflict,
			OrderConflict:       d.OrderConflict,
		})
	}
	return slots, nil
}

func (e *Engine) load(ctx context.Context, tableNumber int, date time.Time) ([]models.Reservation, []models.Order, error) {
	reservations, err := e.reservations.ListActiveForTableOnDay(ctx, tableNumber, timewindow.StartOfDay(date))
	if err != nil {
		return nil, nil, fmt.Errorf("load reservations: %w", err)
	}
	orders, err := e.orders.ListActiveForTable(ctx, tableNumber)
	if err != nil {
		return nil, nil, fmt.Errorf("load orders: %w", err)
	}
	return reservations, orders, nil
}

func decide(p Policy, reservations []models.Reservation, orders []models.Order, requested time.Time) models.Decision {
	d := models.Decision{
		ReservationConflict: ReservationConflict(reservations, requested, p.BufferMinutes),
		OrderConflict:       OrderOccupancyConflict(orders, requested, p.PreBufferMinutes, p.SeatingMinutes),
	}
	d.IsAvailable = !d.ReservationConflict && !d.OrderConflict
	return d
}

func validateQuery(tableNumber int, date time.Time) error {
	if tableNumber <= 0 {
		return models.NewValidationError("tableNumber", "must be a positive integer")
	}
	if date.IsZero() {
		return models.NewValidationError("date", "is required")
	}
	return nil
}
