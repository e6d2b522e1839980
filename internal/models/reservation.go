package models

import (
	"time"

	"tablebook/internal/timewindow"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// Valid reports whether s is a known reservation status.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Active reports whether a reservation in this status holds its table.
func (s ReservationStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// Staying in the same status is always allowed.
func (s ReservationStatus) CanTransition(next ReservationStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCancelled
	}
	return false
}

// Reservation is a table booking for a calendar day and clock time.
type Reservation struct {
	ID              string            `json:"id"`
	TableNumber     int               `json:"tableNumber"`
	CustomerName    string            `json:"customerName"`
	CustomerEmail   string            `json:"customerEmail"`
	CustomerPhone   string            `json:"customerPhone"`
	ReservationDate time.Time         `json:"reservationDate"` // midnight of the booked day
	ReservationTime string            `json:"reservationTime"` // "H:mm"
	NumberOfGuests  int               `json:"numberOfGuests"`
	Status          ReservationStatus `json:"status"`
	SpecialRequests string            `json:"specialRequests,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// StartsAt returns the instant the reservation begins.
func (r *Reservation) StartsAt() time.Time {
	return timewindow.Combine(r.ReservationDate, r.ReservationTime)
}

// IsActive reports whether the reservation currently blocks its table.
func (r *Reservation) IsActive() bool {
	return r.Status.Active()
}
