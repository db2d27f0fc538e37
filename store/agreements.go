package store

import (
	"database/sql"
	"errors"
	"fmt"

	"tradecore/model"
)

// AgreementRepo is the SQL-backed agreement repository.
type AgreementRepo struct{ db *DB }

// Agreements returns the agreement repository backed by db.
func (db *DB) Agreements() *AgreementRepo { return &AgreementRepo{db: db} }

const agreementSelectCols = `id, node_a, node_b, resource, rate, volume, frequency, next_due, active, fire_count, last_fired, ack_count, last_ack_at, created_at`

func scanAgreement(row interface{ Scan(...any) error }) (model.Agreement, error) {
	var a model.Agreement
	var nextDue, lastFired, lastAck, createdAt any
	err := row.Scan(&a.ID, &a.NodeA, &a.NodeB, &a.Resource, &a.Rate, &a.Volume, &a.Frequency,
		&nextDue, &a.Active, &a.FireCount, &lastFired, &a.AckCount, &lastAck, &createdAt)
	if err != nil {
		return model.Agreement{}, err
	}
	a.NextDue = parseTime(nextDue)
	a.LastFired = parseTimePtr(lastFired)
	a.LastAckAt = parseTimePtr(lastAck)
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

func (r *AgreementRepo) Save(a model.Agreement) error {
	err := r.db.exec(`INSERT INTO agreements (id, node_a, node_b, resource, rate, volume, frequency, next_due, active, fire_count, last_fired, ack_count, last_ack_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET next_due=excluded.next_due, active=excluded.active, fire_count=excluded.fire_count,
			last_fired=excluded.last_fired, ack_count=excluded.ack_count, last_ack_at=excluded.last_ack_at`,
		a.ID, a.NodeA, a.NodeB, a.Resource, a.Rate, a.Volume, string(a.Frequency), formatTime(a.NextDue), a.Active,
		a.FireCount, formatTimePtr(a.LastFired), a.AckCount, formatTimePtr(a.LastAckAt), formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("save agreement %s: %w", a.ID, err)
	}
	return nil
}

func (r *AgreementRepo) FindByID(id string) (model.Agreement, error) {
	row := r.db.QueryRow(r.db.Q(fmt.Sprintf(`SELECT %s FROM agreements WHERE id=?`, agreementSelectCols)), id)
	a, err := scanAgreement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Agreement{}, model.ErrNotFound
	}
	return a, err
}

func (r *AgreementRepo) FindAll() ([]model.Agreement, error) {
	rows, err := r.db.Query(fmt.Sprintf(`SELECT %s FROM agreements ORDER BY created_at, id`, agreementSelectCols))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
