// Package mongo stores reservations and order snapshots in MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tablebook/internal/models"
	"tablebook/internal/timewindow"
)

const (
	reservationsCollection = "reservations"
	ordersCollection       = "orders"
)

// Store implements the reservation and order stores on one MongoDB database.
type Store struct {
	client       *mongo.Client
	reservations *mongo.Collection
	orders       *mongo.Collection
	loc          *time.Location
	logger       *zerolog.Logger
}

// Connect opens a client, pings it and ensures indexes exist.
func Connect(ctx context.Context, url, dbName string, loc *time.Location, logger *zerolog.Logger) (*Store, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if loc == nil {
		loc = time.Local
	}
	if url == "" {
		url = "mongodb://localhost:27017"
	}
	if dbName == "" {
		dbName = "tablebook"
	}

	clientOptions := options.Client().ApplyURI(url).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:       client,
		reservations: db.Collection(reservationsCollection),
		orders:       db.Collection(ordersCollection),
		loc:          loc,
		logger:       logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info().Str("database", dbName).Msg("Connected to MongoDB")
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
	}
	return nil
}

// Ping checks connectivity for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.reservations.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// One active reservation per table, day and time.
			Keys: bson.D{{Key: "table_number", Value: 1}, {Key: "reservation_date", Value: 1}, {Key: "reservation_time", Value: 1}},
			Options: options.Index().
				SetName("uniq_active_slot").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{Keys: bson.D{{Key: "reservation_date", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("cannot create reservation indexes: %w", err)
	}

	_, err = s.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "table_number", Value: 1}, {Key: "status", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("cannot create order indexes: %w", err)
	}
	return nil
}

func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if _, err := s.reservations.InsertOne(ctx, toReservationDoc(r)); err != nil {
		return mapWriteError("cannot create reservation", err)
	}
	return nil
}

func (s *Store) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var doc reservationDoc
	err := s.reservations.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cannot get reservation: %w", err)
	}
	return doc.toModel(s.loc)
}

func (s *Store) SaveReservation(ctx context.Context, r *models.Reservation) error {
	doc := toReservationDoc(r)
	update := bson.M{"$set": bson.M{
		"table_number":     doc.TableNumber,
		"customer_name":    doc.CustomerName,
		"customer_email":   doc.CustomerEmail,
		"customer_phone":   doc.CustomerPhone,
		"reservation_date": doc.ReservationDate,
		"reservation_time": doc.ReservationTime,
		"number_of_guests": doc.NumberOfGuests,
		"status":           doc.Status,
		"active":           doc.Active,
		"special_requests": doc.SpecialRequests,
		"updated_at":       doc.UpdatedAt,
	}}

	result, err := s.reservations.UpdateOne(ctx, bson.M{"_id": r.ID}, update)
	if err != nil {
		return mapWriteError("cannot update reservation", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) ListReservations(ctx context.Context) ([]models.Reservation, error) {
	return s.findReservations(ctx, bson.M{})
}

func (s *Store) ListReservationsByDate(ctx context.Context, date time.Time) ([]models.Reservation, error) {
	return s.findReservations(ctx, bson.M{"reservation_date": timewindow.FormatDate(date)})
}

func (s *Store) ListActiveForTableOnDay(ctx context.Context, tableNumber int, day time.Time) ([]models.Reservation, error) {
	return s.findReservations(ctx, activeReservationsFilter(tableNumber, day))
}

func (s *Store) DeleteAllReservations(ctx context.Context) (int64, error) {
	result, err := s.reservations.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("cannot delete reservations: %w", err)
	}
	return result.DeletedCount, nil
}

func (s *Store) findReservations(ctx context.Context, filter bson.M) ([]models.Reservation, error) {
	cursor, err := s.reservations.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cannot list reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []reservationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode reservations: %w", err)
	}
	return toReservations(docs, s.loc)
}

func (s *Store) UpsertOrder(ctx context.Context, o *models.Order) error {
	doc := toOrderDoc(o)
	doc.UpdatedAt = time.Now()
	_, err := s.orders.ReplaceOne(ctx, bson.M{"_id": o.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cannot upsert order: %w", err)
	}
	return nil
}

func (s *Store) ListActiveForTable(ctx context.Context, tableNumber int) ([]models.Order, error) {
	cursor, err := s.orders.Find(ctx, activeOrdersFilter(tableNumber),
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("cannot list orders by table: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	result := make([]models.Order, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toModel())
	}
	return result, nil
}

// activeReservationsFilter matches the reservations that hold a table for availability:
// pending and confirmed only. The stored active flag also covers completed rows and exists
// for the unique slot index.
func activeReservationsFilter(tableNumber int, day time.Time) bson.M {
	return bson.M{
		"table_number":     tableNumber,
		"reservation_date": timewindow.FormatDate(day),
		"status": bson.M{"$in": bson.A{
			string(models.StatusPending),
			string(models.StatusConfirmed),
		}},
	}
}

func activeOrdersFilter(tableNumber int) bson.M {
	inactive := make(bson.A, 0, len(models.InactiveOrderStatuses))
	for _, st := range models.InactiveOrderStatuses {
		inactive = append(inactive, string(st))
	}
	return bson.M{
		"table_number": tableNumber,
		"status":       bson.M{"$nin": inactive},
	}
}

func toReservations(docs []reservationDoc, loc *time.Location) ([]models.Reservation, error) {
	result := make([]models.Reservation, 0, len(docs))
	for i := range docs {
		r, err := docs[i].toModel(loc)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartsAt().Before(result[j].StartsAt())
	})
	return result, nil
}

func mapWriteError(msg string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return models.ErrDuplicateSlot
	}
	return fmt.Errorf("%s: %w", msg, err)
}
