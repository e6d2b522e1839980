package database

import (
	"context"
	"fmt"
	"time"

	"tablebook/internal/models"
)

// UpsertOrder stores the latest snapshot of an order pushed by the order service.
func (db *DB) UpsertOrder(ctx context.Context, o *models.Order) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO orders (id, table_number, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			table_number = excluded.table_number,
			status = excluded.status,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		o.ID, o.TableNumber, string(o.Status), o.CreatedAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}
	return nil
}

// ListActiveForTable returns orders of a table that are neither completed nor cancelled.
func (db *DB) ListActiveForTable(ctx context.Context, tableNumber int) ([]models.Order, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, table_number, status, created_at
		FROM orders
		WHERE table_number = ? AND status NOT IN (?, ?)
		ORDER BY created_at ASC`,
		tableNumber, string(models.OrderCompleted), string(models.OrderCancelled),
	)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	result := make([]models.Order, 0)
	for rows.Next() {
		var (
			o      models.Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.TableNumber, &status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = models.OrderStatus(status)
		result = append(result, o)
	}
	return result, rows.Err()
}
