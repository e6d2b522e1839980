package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tablebook/internal/events"
	"tablebook/internal/lock"
	"tablebook/internal/metrics"
	"tablebook/internal/models"
	"tablebook/internal/timewindow"
)

// Repository persists reservations.
type Repository interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	SaveReservation(ctx context.Context, r *models.Reservation) error
	ListReservations(ctx context.Context) ([]models.Reservation, error)
	ListReservationsByDate(ctx context.Context, date time.Time) ([]models.Reservation, error)
	DeleteAllReservations(ctx context.Context) (int64, error)
}

// Checker decides whether a table is free at a given day and clock time.
type Checker interface {
	Check(ctx context.Context, tableNumber int, date time.Time, clock string) (models.Decision, error)
}

// CreateRequest carries the customer-supplied fields of a new reservation.
type CreateRequest struct {
	TableNumber     int
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	Date            time.Time
	Time            string
	NumberOfGuests  int
	SpecialRequests string
}

// UpdateRequest overwrites every non-nil field.
type UpdateRequest struct {
	TableNumber     *int
	CustomerName    *string
	CustomerEmail   *string
	CustomerPhone   *string
	Date            *time.Time
	Time            *string
	NumberOfGuests  *int
	Status          *models.ReservationStatus
	SpecialRequests *string
}

// Service runs the reservation lifecycle.
type Service struct {
	repo    Repository
	checker Checker
	locker  lock.Locker
	bus     *events.EventBus
	loc     *time.Location
	now     func() time.Time
	logger  *zerolog.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for past-date validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the restaurant's time zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(repo Repository, checker Checker, locker lock.Locker, bus *events.EventBus, logger *zerolog.Logger, opts ...Option) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	s := &Service{
		repo:    repo,
		checker: checker,
		locker:  locker,
		bus:     bus,
		loc:     time.Local,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates req, checks availability under the table lock and stores a pending reservation.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Reservation, error) {
	clock, err := s.validateCreate(&req)
	if err != nil {
		metrics.IncReservationCreated("invalid")
		return nil, err
	}
	date := timewindow.StartOfDay(req.Date.In(s.loc))

	release, err := s.locker.Lock(ctx, tableKey(req.TableNumber))
	if err != nil {
		return nil, fmt.Errorf("lock table %d: %w", req.TableNumber, err)
	}
	defer release()

	decision, err := s.checker.Check(ctx, req.TableNumber, date, clock)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !decision.IsAvailable {
		metrics.IncReservationCreated("conflict")
		return nil, &models.ConflictError{
			ReservationConflict: decision.ReservationConflict,
			OrderConflict:       decision.OrderConflict,
		}
	}

	now := s.now()
	r := &models.Reservation{
		ID:              uuid.NewString(),
		TableNumber:     req.TableNumber,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerEmail:   strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		ReservationDate: date,
		ReservationTime: clock,
		NumberOfGuests:  req.NumberOfGuests,
		Status:          models.StatusPending,
		SpecialRequests: req.SpecialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.CreateReservation(ctx, r); err != nil {
		if errors.Is(err, models.ErrDuplicateSlot) {
			metrics.IncReservationCreated("conflict")
			return nil, &models.ConflictError{ReservationConflict: true}
		}
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	metrics.IncReservationCreated("created")
	s.logger.Info().
		Str("id", r.ID).
		Int("table", r.TableNumber).
		Str("date", timewindow.FormatDate(r.ReservationDate)).
		Str("time", r.ReservationTime).
		Msg("reservation created")
	s.emit(events.NewReservation, r)
	return r, nil
}

// Get returns one reservation.
func (s *Service) Get(ctx context.Context, id string) (*models.Reservation, error) {
	r, err := s.repo.GetReservation(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, &models.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return r, nil
}

// Update overwrites the fields present in req. Availability is not re-checked.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*models.Reservation, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyUpdate(r, req); err != nil {
		return nil, err
	}

	r.UpdatedAt = s.now()
	if err := s.save(ctx, r); err != nil {
		return nil, err
	}

	s.logger.Info().Str("id", r.ID).Str("status", string(r.Status)).Msg("reservation updated")
	s.emit(events.UpdateReservation, r)
	return r, nil
}

// Confirm moves a pending reservation to confirmed. Confirming twice is a no-op.
func (s *Service) Confirm(ctx context.Context, id string) (*models.Reservation, error) {
	return s.transition(ctx, id, models.StatusConfirmed, events.ConfirmReservation)
}

// Cancel releases the table. Cancelling a cancelled reservation is a no-op.
func (s *Service) Cancel(ctx context.Context, id string) (*models.Reservation, error) {
	return s.transition(ctx, id, models.StatusCancelled, events.CancelReservation)
}

// List returns every reservation ordered by day then time.
func (s *Service) List(ctx context.Context) ([]models.Reservation, error) {
	list, err := s.repo.ListReservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return list, nil
}

// ListByDate returns the reservations booked for date's calendar day.
func (s *Service) ListByDate(ctx context.Context, date time.Time) ([]models.Reservation, error) {
	list, err := s.repo.ListReservationsByDate(ctx, timewindow.StartOfDay(date.In(s.loc)))
	if err != nil {
		return nil, fmt.Errorf("list reservations by date: %w", err)
	}
	return list, nil
}

// ClearAll deletes every reservation and reports how many were removed.
func (s *Service) ClearAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAllReservations(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear reservations: %w", err)
	}
	s.logger.Warn().Int64("deleted", n).Msg("all reservations cleared")
	return n, nil
}

// Location returns the time zone used to interpret reservation dates.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) transition(ctx context.Context, id string, next models.ReservationStatus, event string) (*models.Reservation, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == next {
		return r, nil
	}
	if !r.Status.CanTransition(next) {
		return nil, models.NewValidationError("status",
			fmt.Sprintf("cannot change status from %s to %s", r.Status, next))
	}

	r.Status = next
	r.UpdatedAt = s.now()
	if err := s.save(ctx, r); err != nil {
		return nil, err
	}

	metrics.IncReservationTransition(string(next))
	s.logger.Info().Str("id", r.ID).Str("status", string(next)).Msg("reservation status changed")
	s.emit(event, r)
	return r, nil
}

func (s *Service) save(ctx context.Context, r *models.Reservation) error {
	err := s.repo.SaveReservation(ctx, r)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrNotFound):
		return &models.NotFoundError{ID: r.ID}
	case errors.Is(err, models.ErrDuplicateSlot):
		return &models.ConflictError{ReservationConflict: true}
	default:
		return fmt.Errorf("save reservation %s: %w", r.ID, err)
	}
}

func (s *Service) emit(event string, r *models.Reservation) {
	if s.bus == nil {
		return
	}
	s.bus.Emit(event, *r)
}

func (s *Service) validateCreate(req *CreateRequest) (string, error) {
	if req.TableNumber <= 0 {
		return "", models.NewValidationError("tableNumber", "must be a positive number")
	}
	if err := validateContact(req.CustomerName, req.CustomerEmail, req.CustomerPhone); err != nil {
		return "", err
	}
	if req.NumberOfGuests < 1 {
		return "", models.NewValidationError("numberOfGuests", "must be at least 1")
	}
	if req.Date.IsZero() {
		return "", models.NewValidationError("reservationDate", "is required")
	}
	clock, err := timewindow.NormalizeClock(req.Time)
	if err != nil {
		return "", models.NewValidationError("reservationTime", err.Error())
	}
	today := timewindow.StartOfDay(s.now().In(s.loc))
	if timewindow.StartOfDay(req.Date.In(s.loc)).Before(today) {
		return "", models.NewValidationError("reservationDate", "cannot be in the past")
	}
	return clock, nil
}

func (s *Service) applyUpdate(r *models.Reservation, req UpdateRequest) error {
	if req.TableNumber != nil {
		if *req.TableNumber <= 0 {
			return models.NewValidationError("tableNumber", "must be a positive number")
		}
		r.TableNumber = *req.TableNumber
	}
	if req.CustomerName != nil {
		r.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.CustomerEmail != nil {
		r.CustomerEmail = strings.TrimSpace(*req.CustomerEmail)
	}
	if req.CustomerPhone != nil {
		r.CustomerPhone = strings.TrimSpace(*req.CustomerPhone)
	}
	if err := validateContact(r.CustomerName, r.CustomerEmail, r.CustomerPhone); err != nil {
		return err
	}
	if req.Date != nil {
		if req.Date.IsZero() {
			return models.NewValidationError("reservationDate", "is required")
		}
		r.ReservationDate = timewindow.StartOfDay(req.Date.In(s.loc))
	}
	if req.Time != nil {
		clock, err := timewindow.NormalizeClock(*req.Time)
		if err != nil {
			return models.NewValidationError("reservationTime", err.Error())
		}
		r.ReservationTime = clock
	}
	if req.NumberOfGuests != nil {
		if *req.NumberOfGuests < 1 {
			return models.NewValidationError("numberOfGuests", "must be at least 1")
		}
		r.NumberOfGuests = *req.NumberOfGuests
	}
	if req.SpecialRequests != nil {
		r.SpecialRequests = *req.SpecialRequests
	}
	if req.Status != nil {
		next := *req.Status
		if !next.Valid() {
			return models.NewValidationError("status", fmt.Sprintf("unknown status %q", next))
		}
		if !r.Status.CanTransition(next) {
			return models.NewValidationError("status",
				fmt.Sprintf("cannot change status from %s to %s", r.Status, next))
		}
		r.Status = next
	}
	return nil
}

func validateContact(name, email, phone string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return models.NewValidationError("customerName", "is required")
	case strings.TrimSpace(email) == "":
		return models.NewValidationError("customerEmail", "is required")
	case !strings.Contains(email, "@"):
		return models.NewValidationError("customerEmail", "is not a valid address")
	case strings.TrimSpace(phone) == "":
		return models.NewValidationError("customerPhone", "is required")
	}
	return nil
}

func tableKey(tableNumber int) string {
	return fmt.Sprintf("table:%d", tableNumber)
}
