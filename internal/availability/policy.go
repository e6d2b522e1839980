package availability

import "fmt"

// Policy holds the tunables of the conflict model.
type Policy struct {
	// BufferMinutes is the minimum distance between two reservations of a table.
	// Zero allows back-to-back bookings and only refuses the exact same time.
	BufferMinutes    int `yaml:"buffer_minutes"`
	PreBufferMinutes int `yaml:"pre_buffer_minutes"`
	SeatingMinutes   int `yaml:"seating_minutes"`
	FirstSlotHour    int `yaml:"first_slot_hour"`
	LastSlotHour     int `yaml:"last_slot_hour"`
}

// DefaultPolicy is a 30 minute reservation buffer, a 30+90 minute order occupancy window
// and an hourly grid from 9:00 to 22:00.
func DefaultPolicy() Policy {
	return Policy{
		BufferMinutes:    30,
		PreBufferMinutes: 30,
		SeatingMinutes:   90,
		FirstSlotHour:    9,
		LastSlotHour:     22,
	}
}

// WithDefaults fills unset windows and slot hours from DefaultPolicy. BufferMinutes is
// kept as given since zero is a valid setting; config decoding starts from DefaultPolicy
// so an omitted buffer_minutes still means 30.
func (p Policy) WithDefaults() Policy {
	def := DefaultPolicy()
	if p.PreBufferMinutes <= 0 {
		p.PreBufferMinutes = def.PreBufferMinutes
	}
	if p.SeatingMinutes <= 0 {
		p.SeatingMinutes = def.SeatingMinutes
	}
	if p.FirstSlotHour == 0 && p.LastSlotHour == 0 {
		p.FirstSlotHour = def.FirstSlotHour
		p.LastSlotHour = def.LastSlotHour
	}
	return p
}

// Validate checks that the buffer is not negative and the slot grid is well formed.
func (p Policy) Validate() error {
	if p.BufferMinutes < 0 {
		return fmt.Errorf("buffer_minutes must not be negative, got %d", p.BufferMinutes)
	}
	if p.FirstSlotHour < 0 || p.LastSlotHour > 23 || p.FirstSlotHour > p.LastSlotHour {
		return fmt.Errorf("invalid slot hours %d..%d", p.FirstSlotHour, p.LastSlotHour)
	}
	return nil
}
