package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tradecore/model"
)

// NodeRepo is the SQL-backed node repository.
type NodeRepo struct{ db *DB }

// Nodes returns the node repository backed by db.
func (db *DB) Nodes() *NodeRepo { return &NodeRepo{db: db} }

const nodeSelectCols = `id, name, pos_x, pos_y, pos_z, pos_unit, status, population, resources, partners, latency_ns, zone`

func scanNode(row interface{ Scan(...any) error }) (model.Node, error) {
	var n model.Node
	var population, latency int64
	var resources, partners string
	err := row.Scan(&n.ID, &n.Name, &n.Position.X, &n.Position.Y, &n.Position.Z, &n.Position.Unit,
		&n.Status, &population, &resources, &partners, &latency, &n.Zone)
	if err != nil {
		return model.Node{}, err
	}
	n.Population = uint64(population)
	n.Latency = time.Duration(latency)
	if err := json.Unmarshal([]byte(resources), &n.Resources); err != nil {
		return model.Node{}, fmt.Errorf("node %s resources: %w", n.ID, err)
	}
	if err := json.Unmarshal([]byte(partners), &n.Partners); err != nil {
		return model.Node{}, fmt.Errorf("node %s partners: %w", n.ID, err)
	}
	return n, nil
}

func (r *NodeRepo) Save(n model.Node) error {
	resources, err := marshalList(n.Resources)
	if err != nil {
		return err
	}
	partners, err := marshalList(n.Partners)
	if err != nil {
		return err
	}
	err = r.db.exec(`INSERT INTO nodes (id, name, pos_x, pos_y, pos_z, pos_unit, status, population, resources, partners, latency_ns, zone, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, pos_x=excluded.pos_x, pos_y=excluded.pos_y, pos_z=excluded.pos_z,
			pos_unit=excluded.pos_unit, status=excluded.status, population=excluded.population, resources=excluded.resources,
			partners=excluded.partners, latency_ns=excluded.latency_ns, zone=excluded.zone, updated_at=excluded.updated_at`,
		n.ID, n.Name, n.Position.X, n.Position.Y, n.Position.Z, string(n.Position.Unit), string(n.Status),
		int64(n.Population), resources, partners, int64(n.Latency), string(n.Zone), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save node %s: %w", n.ID, err)
	}
	return nil
}

func (r *NodeRepo) FindByID(id string) (model.Node, error) {
	row := r.db.QueryRow(r.db.Q(fmt.Sprintf(`SELECT %s FROM nodes WHERE id=?`, nodeSelectCols)), id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Node{}, model.ErrNotFound
	}
	return n, err
}

func (r *NodeRepo) FindAll() ([]model.Node, error) {
	rows, err := r.db.Query(fmt.Sprintf(`SELECT %s FROM nodes ORDER BY id`, nodeSelectCols))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var nodes []model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// marshalList encodes a slice as a JSON array, never as null.
func marshalList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}
