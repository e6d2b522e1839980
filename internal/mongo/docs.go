package mongo

import (
	"fmt"
	"time"

	"tablebook/internal/models"
	"tablebook/internal/timewindow"
)

// reservationDoc is the stored shape of a reservation. The calendar day is kept as
// "2006-01-02" so it reads back the same in any time zone; Active backs the partial
// unique index.
type reservationDoc struct {
	ID              string    `bson:"_id"`
	TableNumber     int       `bson:"table_number"`
	CustomerName    string    `bson:"customer_name"`
	CustomerEmail   string    `bson:"customer_email"`
	CustomerPhone   string    `bson:"customer_phone"`
	ReservationDate string    `bson:"reservation_date"`
	ReservationTime string    `bson:"reservation_time"`
	NumberOfGuests  int       `bson:"number_of_guests"`
	Status          string    `bson:"status"`
	Active          bool      `bson:"active"`
	SpecialRequests string    `bson:"special_requests,omitempty"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func toReservationDoc(r *models.Reservation) reservationDoc {
	return reservationDoc{
		ID:              r.ID,
		TableNumber:     r.TableNumber,
		CustomerName:    r.CustomerName,
		CustomerEmail:   r.CustomerEmail,
		CustomerPhone:   r.CustomerPhone,
		ReservationDate: timewindow.FormatDate(r.ReservationDate),
		ReservationTime: r.ReservationTime,
		NumberOfGuests:  r.NumberOfGuests,
		Status:          string(r.Status),
		Active:          r.Status != models.StatusCancelled,
		SpecialRequests: r.SpecialRequests,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (d *reservationDoc) toModel(loc *time.Location) (*models.Reservation, error) {
	date, err := timewindow.ParseDate(d.ReservationDate, loc)
	if err != nil {
		return nil, fmt.Errorf("reservation %s: %w", d.ID, err)
	}
	return &models.Reservation{
		ID:              d.ID,
		TableNumber:     d.TableNumber,
		CustomerName:    d.CustomerName,
		CustomerEmail:   d.CustomerEmail,
		CustomerPhone:   d.CustomerPhone,
		ReservationDate: date,
		ReservationTime: d.ReservationTime,
		NumberOfGuests:  d.NumberOfGuests,
		Status:          models.ReservationStatus(d.Status),
		SpecialRequests: d.SpecialRequests,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}

type orderDoc struct {
	ID          string    `bson:"_id"`
	TableNumber int       `bson:"table_number"`
	Status      string    `bson:"status"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toOrderDoc(o *models.Order) orderDoc {
	return orderDoc{
		ID:          o.ID,
		TableNumber: o.TableNumber,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
	}
}

func (d *orderDoc) toModel() models.Order {
	return models.Order{
		ID:          d.ID,
		TableNumber: d.TableNumber,
		Status:      models.OrderStatus(d.Status),
		CreatedAt:   d.CreatedAt,
	}
}
