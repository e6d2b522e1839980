package availability

import (
	"math"
	"time"

	"tablebook/internal/models"
	"tablebook/internal/timewindow"
)

// ReservationConflict reports whether requested lies strictly within bufferMinutes of any
// existing reservation. A zero buffer only matches the exact same instant. Callers pass
// reservations already narrowed to one table, one day and the active statuses.
func ReservationConflict(existing []models.Reservation, requested time.Time, bufferMinutes int) bool {
	for i := range existing {
		delta := math.Abs(timewindow.MinutesBetween(existing[i].StartsAt(), requested))
		if bufferMinutes <= 0 {
			if delta == 0 {
				return true
			}
			continue
		}
		if delta < float64(bufferMinutes) {
			return true
		}
	}
	return false
}

// OrderOccupancyConflict reports whether requested falls inside the occupancy window of any
// active order. Window bounds are inclusive.
func OrderOccupancyConflict(orders []models.Order, requested time.Time, preBufferMinutes, seatingMinutes int) bool {
	pre := time.Duration(preBufferMinutes) * time.Minute
	seating := time.Duration(seatingMinutes) * time.Minute

	for i := range orders {
		if !orders[i].IsActive() {
			continue
		}
		start, end := orders[i].OccupancyWindow(pre, seating)
		if !requested.Before(start) && !requested.After(end) {
			return true
		}
	}
	return false
}
