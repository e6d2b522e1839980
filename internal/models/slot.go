package models

// Slot is one hourly booking opportunity in a day grid.
type Slot struct {
	Time                string `json:"time"`
	IsAvailable         bool   `json:"isAvailable"`
	ReservationConflict bool   `json:"reservationConflict"`
	OrderConflict       bool   `json:"orderConflict"`
}

// Decision is the availability verdict for a single instant.
type Decision struct {
	IsAvailable         bool `json:"isAvailable"`
	ReservationConflict bool `json:"reservationConflict"`
	OrderConflict       bool `json:"orderConflict"`
}
