package store

import (
	"context"
	"database/sql"
	"time"
)

// Binding is a contractual attachment of a collaborator to a
// (contract-kind, shift, specialty, unit) tuple. The tuple fields are never
// updated in place.
type Binding struct {
	ID             int64
	CollaboratorID int64
	ContractKind   CollaboratorKind
	Shift          string
	Specialty      string
	Unit           string
	Target         *float64
	Active         bool
	CreatedAt      time.Time
}

// BindingsForCollaborator returns every binding of one collaborator.
func (s *Store) BindingsForCollaborator(ctx context.Context, collaboratorID int64) ([]Binding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collaborator_id, contract_kind, shift, specialty, unit, target, active, created_at
		FROM bindings WHERE collaborator_id = ? ORDER BY id
	`, collaboratorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Binding
	for rows.Next() {
		var b Binding
		if err := rows.Scan(&b.ID, &b.CollaboratorID, &b.ContractKind, &b.Shift,
			&b.Specialty, &b.Unit, &b.Target, &b.Active, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// FindBinding looks up a binding by its exact identity tuple. It returns
// (nil, nil) when no binding matches; tuple values are compared exactly,
// normalization already happened upstream.
func (s *Store) FindBinding(ctx context.Context, collaboratorID int64, contractKind CollaboratorKind, shift, specialty, unit string) (*Binding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, collaborator_id, contract_kind, shift, specialty, unit, target, active, created_at
		FROM bindings
		WHERE collaborator_id = ? AND contract_kind = ? AND shift = ? AND specialty = ? AND unit = ?
	`, collaboratorID, contractKind, shift, specialty, unit)

	var b Binding
	err := row.Scan(&b.ID, &b.CollaboratorID, &b.ContractKind, &b.Shift,
		&b.Specialty, &b.Unit, &b.Target, &b.Active, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBinding inserts a new binding and fills in its ID.
func (s *Store) CreateBinding(ctx context.Context, b *Binding) error {
	b.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bindings (collaborator_id, contract_kind, shift, specialty, unit, target, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, b.CollaboratorID, b.ContractKind, b.Shift, b.Specialty, b.Unit, b.Target, b.Active, b.CreatedAt)
	if err != nil {
		return err
	}
	b.ID, err = res.LastInsertId()
	return err
}
