package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tablebook/internal/models"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
}

func reservationAt(table int, clock string) models.Reservation {
	return models.Reservation{
		TableNumber:     table,
		ReservationDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ReservationTime: clock,
		Status:          models.StatusPending,
	}
}

func TestReservationConflict_Buffer(t *testing.T) {
	existing := []models.Reservation{reservationAt(5, "13:00")}

	tests := []struct {
		name      string
		requested time.Time
		want      bool
	}{
		{"same instant", at(13, 0), true},
		{"twenty after", at(13, 20), true},
		{"twenty before", at(12, 40), true},
		{"29 minutes after", at(13, 29), true},
		{"exactly buffer after", at(13, 30), false},
		{"exactly buffer before", at(12, 30), false},
		{"next hour", at(14, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReservationConflict(existing, tt.requested, 30))
		})
	}
}

func TestReservationConflict_Symmetric(t *testing.T) {
	clocks := []string{"9:00", "9:15", "9:29", "9:30", "9:45", "10:00", "10:31", "12:00"}
	for _, a := range clocks {
		for _, b := range clocks {
			ra, rb := reservationAt(1, a), reservationAt(1, b)
			forward := ReservationConflict([]models.Reservation{ra}, rb.StartsAt(), 30)
			backward := ReservationConflict([]models.Reservation{rb}, ra.StartsAt(), 30)
			assert.Equal(t, forward, backward, "%s vs %s", a, b)

			gap := ra.StartsAt().Sub(rb.StartsAt())
			if gap < 0 {
				gap = -gap
			}
			assert.Equal(t, gap < 30*time.Minute, forward, "%s vs %s", a, b)
		}
	}
}

func TestReservationConflict_Empty(t *testing.T) {
	assert.False(t, ReservationConflict(nil, at(13, 0), 30))
}

func TestOrderOccupancyConflict_WindowClosure(t *testing.T) {
	orders := []models.Order{{ID: "o1", TableNumber: 3, Status: models.OrderPreparing, CreatedAt: at(12, 0)}}

	assert.True(t, OrderOccupancyConflict(orders, at(11, 30), 30, 90), "pre-block start is inclusive")
	assert.True(t, OrderOccupancyConflict(orders, at(12, 0), 30, 90))
	assert.True(t, OrderOccupancyConflict(orders, at(13, 30), 30, 90), "seating end is inclusive")
	assert.False(t, OrderOccupancyConflict(orders, at(11, 29), 30, 90))
	assert.False(t, OrderOccupancyConflict(orders, at(13, 31), 30, 90))

	for m := 0; m <= 120; m++ {
		requested := at(11, 30).Add(time.Duration(m) * time.Minute)
		assert.True(t, OrderOccupancyConflict(orders, requested, 30, 90), requested.Format("15:04"))
	}
}

func TestOrderOccupancyConflict_ScenarioB(t *testing.T) {
	orders := []models.Order{{TableNumber: 3, Status: models.OrderPlaced, CreatedAt: at(12, 0)}}

	assert.True(t, OrderOccupancyConflict(orders, at(12, 25), 30, 90))
	assert.False(t, OrderOccupancyConflict(orders, at(13, 35), 30, 90))
}

func TestOrderOccupancyConflict_IgnoresFinishedOrders(t *testing.T) {
	orders := []models.Order{
		{Status: models.OrderCompleted, CreatedAt: at(12, 0)},
		{Status: models.OrderCancelled, CreatedAt: at(12, 0)},
	}
	assert.False(t, OrderOccupancyConflict(orders, at(12, 0), 30, 90))
}

func TestReservationConflict_ZeroBufferMatchesExactSlotOnly(t *testing.T) {
	existing := []models.Reservation{reservationAt(5, "13:00")}

	assert.True(t, ReservationConflict(existing, at(13, 0), 0))
	assert.False(t, ReservationConflict(existing, at(13, 1), 0))
	assert.False(t, ReservationConflict(existing, at(12, 59), 0))
}

func TestPolicy_ZeroBufferIsKept(t *testing.T) {
	p := Policy{BufferMinutes: 0}.WithDefaults()
	assert.Equal(t, 0, p.BufferMinutes)
	assert.Equal(t, 90, p.SeatingMinutes)
	assert.NoError(t, p.Validate())

	assert.Error(t, Policy{BufferMinutes: -5}.WithDefaults().Validate())
}
