package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"tradecore/model"
)

// OrderRepo is the SQL-backed order repository.
type OrderRepo struct{ db *DB }

// Orders returns the order repository backed by db.
func (db *DB) Orders() *OrderRepo { return &OrderRepo{db: db} }

const orderSelectCols = `id, origin_id, destination_id, items, tier, distance, distance_unit, estimated_delivery, status, total_cost, currency, comm_log, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (model.Order, error) {
	var o model.Order
	var items, commLog, total string
	var eta, createdAt, updatedAt any
	err := row.Scan(&o.ID, &o.OriginID, &o.DestinationID, &items, &o.Tier, &o.Distance.Value, &o.Distance.Unit,
		&eta, &o.Status, &total, &o.Currency, &commLog, &createdAt, &updatedAt)
	if err != nil {
		return model.Order{}, err
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return model.Order{}, fmt.Errorf("order %s items: %w", o.ID, err)
	}
	if err := json.Unmarshal([]byte(commLog), &o.CommLog); err != nil {
		return model.Order{}, fmt.Errorf("order %s comm log: %w", o.ID, err)
	}
	if o.TotalCost, err = decimal.NewFromString(total); err != nil {
		return model.Order{}, fmt.Errorf("order %s total: %w", o.ID, err)
	}
	o.EstimatedDelivery = parseTime(eta)
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	return o, nil
}

func (r *OrderRepo) Save(o model.Order) error {
	items, err := marshalList(o.Items)
	if err != nil {
		return err
	}
	commLog, err := marshalList(o.CommLog)
	if err != nil {
		return err
	}
	err = r.db.exec(`INSERT INTO orders (id, origin_id, destination_id, items, tier, distance, distance_unit, estimated_delivery, status, total_cost, currency, comm_log, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status=excluded.status, comm_log=excluded.comm_log, updated_at=excluded.updated_at,
			items=excluded.items, tier=excluded.tier, distance=excluded.distance, distance_unit=excluded.distance_unit,
			estimated_delivery=excluded.estimated_delivery, total_cost=excluded.total_cost, currency=excluded.currency`,
		o.ID, o.OriginID, o.DestinationID, items, string(o.Tier), o.Distance.Value, string(o.Distance.Unit),
		formatTime(o.EstimatedDelivery), string(o.Status), o.TotalCost.String(), o.Currency, commLog,
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save order %s: %w", o.ID, err)
	}
	return nil
}

func (r *OrderRepo) FindByID(id string) (model.Order, error) {
	row := r.db.QueryRow(r.db.Q(fmt.Sprintf(`SELECT %s FROM orders WHERE id=?`, orderSelectCols)), id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, model.ErrNotFound
	}
	return o, err
}

func (r *OrderRepo) FindAll() ([]model.Order, error) {
	rows, err := r.db.Query(fmt.Sprintf(`SELECT %s FROM orders ORDER BY created_at, id`, orderSelectCols))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
