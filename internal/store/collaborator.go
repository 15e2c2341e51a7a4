package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Collaborator is a person who may be paid, identified by normalized email.
type Collaborator struct {
	ID            int64
	Email         string
	Name          string
	Kind          CollaboratorKind
	Status        Status
	ConfirmToken  string
	Specialty     string
	Units         []string
	DefaultTarget *float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CollaboratorByEmail looks a collaborator up by normalized email. It
// returns (nil, nil) when no collaborator matches.
func (s *Store) CollaboratorByEmail(ctx context.Context, email string) (*Collaborator, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, kind, status, COALESCE(confirm_token, ''),
		       specialty, units, default_target, created_at, updated_at
		FROM collaborators WHERE email = ?
	`, email)
	return scanCollaborator(row)
}

// CollaboratorByID looks a collaborator up by id; (nil, nil) when absent.
func (s *Store) CollaboratorByID(ctx context.Context, id int64) (*Collaborator, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, kind, status, COALESCE(confirm_token, ''),
		       specialty, units, default_target, created_at, updated_at
		FROM collaborators WHERE id = ?
	`, id)
	return scanCollaborator(row)
}

// CreateCollaborator inserts a new collaborator and fills in its ID.
func (s *Store) CreateCollaborator(ctx context.Context, c *Collaborator) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	unitsJSON, _ := json.Marshal(c.Units)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO collaborators (email, name, kind, status, confirm_token, specialty, units, default_target, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.Email, c.Name, c.Kind, c.Status, nullString(c.ConfirmToken), c.Specialty, string(unitsJSON), c.DefaultTarget, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return err
	}
	c.ID, err = res.LastInsertId()
	return err
}

// UpdateCollaboratorProfile replaces the specialty and unit set of an
// existing collaborator. Callers compute the merged values; no other field
// is touched.
func (s *Store) UpdateCollaboratorProfile(ctx context.Context, id int64, specialty string, units []string) error {
	unitsJSON, _ := json.Marshal(units)
	_, err := s.db.ExecContext(ctx, `
		UPDATE collaborators SET specialty = ?, units = ?, updated_at = ? WHERE id = ?
	`, specialty, string(unitsJSON), time.Now().UTC(), id)
	return err
}

func scanCollaborator(row *sql.Row) (*Collaborator, error) {
	var c Collaborator
	var unitsJSON string
	err := row.Scan(&c.ID, &c.Email, &c.Name, &c.Kind, &c.Status, &c.ConfirmToken,
		&c.Specialty, &unitsJSON, &c.DefaultTarget, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(unitsJSON), &c.Units)
	return &c, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
