package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReservationStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to ReservationStatus
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusCancelled, StatusCancelled, true},
		{StatusConfirmed, StatusConfirmed, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusPending, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestReservationStatus_Active(t *testing.T) {
	assert.True(t, StatusPending.Active())
	assert.True(t, StatusConfirmed.Active())
	assert.False(t, StatusCancelled.Active())
	assert.False(t, StatusCompleted.Active())
	assert.False(t, ReservationStatus("seated").Valid())
}

func TestReservation_StartsAt(t *testing.T) {
	r := Reservation{
		ReservationDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ReservationTime: "13:20",
	}
	assert.Equal(t, time.Date(2024, 6, 1, 13, 20, 0, 0, time.UTC), r.StartsAt())
}

func TestOrder_OccupancyWindow(t *testing.T) {
	o := Order{CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), Status: OrderPreparing}

	start, end := o.OccupancyWindow(30*time.Minute, 90*time.Minute)
	assert.Equal(t, time.Date(2024, 6, 1, 11, 30, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 6, 1, 13, 30, 0, 0, time.UTC), end)
	assert.True(t, o.IsActive())

	o.Status = OrderCompleted
	assert.False(t, o.IsActive())
}
