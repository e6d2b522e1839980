// Package api exposes reservations and availability over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tablebook/internal/events"
	"tablebook/internal/metrics"
	"tablebook/internal/models"
	"tablebook/internal/reservation"
	"tablebook/internal/timewindow"
)

const maxBodyBytes = 1 << 20

// ReservationService is the lifecycle surface used by the handlers.
type ReservationService interface {
	Create(ctx context.Context, req reservation.CreateRequest) (*models.Reservation, error)
	Get(ctx context.Context, id string) (*models.Reservation, error)
	Update(ctx context.Context, id string, req reservation.UpdateRequest) (*models.Reservation, error)
	Confirm(ctx context.Context, id string) (*models.Reservation, error)
	Cancel(ctx context.Context, id string) (*models.Reservation, error)
	List(ctx context.Context) ([]models.Reservation, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.Reservation, error)
	ClearAll(ctx context.Context) (int64, error)
}

// Availability answers point checks and day grids.
type Availability interface {
	Check(ctx context.Context, tableNumber int, date time.Time, clock string) (models.Decision, error)
	DaySlots(ctx context.Context, tableNumber int, date time.Time) ([]models.Slot, error)
}

// Handler serves the reservation HTTP API.
type Handler struct {
	reservations ReservationService
	availability Availability
	bus          *events.EventBus
	limiter      *rate.Limiter
	loc          *time.Location
	logger       *zerolog.Logger
	keepAlive    time.Duration
}

// Config tunes the handler.
type Config struct {
	// RateLimitRPS limits write requests per second; zero disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	Location       *time.Location
}

func NewHandler(reservations ReservationService, availability Availability, bus *events.EventBus, cfg Config, logger *zerolog.Logger) *Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	h := &Handler{
		reservations: reservations,
		availability: availability,
		bus:          bus,
		loc:          loc,
		logger:       logger,
		keepAlive:    30 * time.Second,
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	return h
}

// Router builds the chi router with every route mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reservations", func(r chi.Router) {
		r.Get("/", h.ListReservations)
		r.Get("/date/{date}", h.ListReservationsByDate)
		r.Get("/check-availability", h.CheckAvailability)
		r.Get("/slots", h.DaySlots)
		r.Get("/stream", h.Stream)
		r.Get("/{id}", h.GetReservation)

		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Post("/", h.CreateReservation)
			r.Delete("/clear-all", h.ClearAll)
			r.Patch("/{id}", h.UpdateReservation)
			r.Patch("/{id}/confirm", h.ConfirmReservation)
			r.Delete("/{id}", h.CancelReservation)
		})
	})
}

type createReservationRequest struct {
	TableNumber     int    `json:"tableNumber"`
	CustomerName    string `json:"customerName"`
	CustomerEmail   string `json:"customerEmail"`
	CustomerPhone   string `json:"customerPhone"`
	ReservationDate string `json:"reservationDate"`
	ReservationTime string `json:"reservationTime"`
	NumberOfGuests  int    `json:"numberOfGuests"`
	SpecialRequests string `json:"specialRequests"`
}

type updateReservationRequest struct {
	TableNumber     *int    `json:"tableNumber"`
	CustomerName    *string `json:"customerName"`
	CustomerEmail   *string `json:"customerEmail"`
	CustomerPhone   *string `json:"customerPhone"`
	ReservationDate *string `json:"reservationDate"`
	ReservationTime *string `json:"reservationTime"`
	NumberOfGuests  *int    `json:"numberOfGuests"`
	Status          *string `json:"status"`
	SpecialRequests *string `json:"specialRequests"`
}

type slotsResponse struct {
	Date        string        `json:"date"`
	TableNumber int           `json:"tableNumber"`
	Slots       []models.Slot `json:"slots"`
}

type reservationMessage struct {
	Message     string              `json:"message"`
	Reservation *models.Reservation `json:"reservation"`
}

func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list")
	list, err := h.reservations.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) ListReservationsByDate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_by_date")
	date, err := timewindow.ParseDate(chi.URLParam(r, "date"), h.loc)
	if err != nil {
		h.writeError(w, r, models.NewValidationError("date", "expected YYYY-MM-DD"))
		return
	}
	list, err := h.reservations.ListByDate(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get")
	res, err := h.reservations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CheckAvailability handles GET /reservations/check-availability?date&time&tableNumber.
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("check_availability")
	q := r.URL.Query()
	if q.Get("date") == "" || q.Get("time") == "" || q.Get("tableNumber") == "" {
		h.writeError(w, r, models.NewValidationError("", "date, time and tableNumber are required"))
		return
	}
	date, table, err := h.parseDayQuery(q.Get("date"), q.Get("tableNumber"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	decision, err := h.availability.Check(r.Context(), table, date, q.Get("time"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

// DaySlots handles GET /reservations/slots?date&tableNumber.
func (h *Handler) DaySlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")
	q := r.URL.Query()
	if q.Get("date") == "" || q.Get("tableNumber") == "" {
		h.writeError(w, r, models.NewValidationError("", "date and tableNumber are required"))
		return
	}
	date, table, err := h.parseDayQuery(q.Get("date"), q.Get("tableNumber"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	slots, err := h.availability.DaySlots(r.Context(), table, date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slotsResponse{
		Date:        timewindow.FormatDate(date),
		TableNumber: table,
		Slots:       slots,
	})
}

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create")
	var body createReservationRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	req := reservation.CreateRequest{
		TableNumber:     body.TableNumber,
		CustomerName:    body.CustomerName,
		CustomerEmail:   body.CustomerEmail,
		CustomerPhone:   body.CustomerPhone,
		Time:            body.ReservationTime,
		NumberOfGuests:  body.NumberOfGuests,
		SpecialRequests: body.SpecialRequests,
	}
	if body.ReservationDate != "" {
		date, err := timewindow.ParseDate(body.ReservationDate, h.loc)
		if err != nil {
			h.writeError(w, r, models.NewValidationError("reservationDate", "expected YYYY-MM-DD"))
			return
		}
		req.Date = date
	}

	res, err := h.reservations.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("update")
	var body updateReservationRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}

	req := reservation.UpdateRequest{
		TableNumber:     body.TableNumber,
		CustomerName:    body.CustomerName,
		CustomerEmail:   body.CustomerEmail,
		CustomerPhone:   body.CustomerPhone,
		Time:            body.ReservationTime,
		NumberOfGuests:  body.NumberOfGuests,
		SpecialRequests: body.SpecialRequests,
	}
	if body.ReservationDate != nil {
		date, err := timewindow.ParseDate(*body.ReservationDate, h.loc)
		if err != nil {
			h.writeError(w, r, models.NewValidationError("reservationDate", "expected YYYY-MM-DD"))
			return
		}
		req.Date = &date
	}
	if body.Status != nil {
		status := models.ReservationStatus(strings.ToLower(*body.Status))
		req.Status = &status
	}

	res, err := h.reservations.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("confirm")
	res, err := h.reservations.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationMessage{Message: "Reservation confirmed", Reservation: res})
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel")
	res, err := h.reservations.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationMessage{Message: "Reservation cancelled", Reservation: res})
}

func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("clear_all")
	n, err := h.reservations.ClearAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "All reservations cleared",
		"deleted": n,
	})
}

func (h *Handler) parseDayQuery(dateStr, tableStr string) (time.Time, int, error) {
	date, err := timewindow.ParseDate(dateStr, h.loc)
	if err != nil {
		return time.Time{}, 0, models.NewValidationError("date", "expected YYYY-MM-DD")
	}
	table, err := strconv.Atoi(tableStr)
	if err != nil || table <= 0 {
		return time.Time{}, 0, models.NewValidationError("tableNumber", "must be a positive number")
	}
	return date, table, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return models.NewValidationError("", "invalid JSON body")
	}
	return nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *models.ValidationError
		conflict   *models.ConflictError
		notFound   *models.NotFoundError
	)
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message":             conflict.Error(),
			"reservationConflict": conflict.ReservationConflict,
			"orderConflict":       conflict.OrderConflict,
		})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": validation.Error()})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"message": notFound.Error()})
	default:
		h.logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
