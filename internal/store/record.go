package store

import (
	"context"
	"database/sql"
	"time"
)

// MonthlyRecord is the financial outcome of one binding in one period.
// BindingID is nullable for legacy rows recorded directly against a
// collaborator. The edited_* columns form the manual-edit audit trail and
// are never touched by imports.
type MonthlyRecord struct {
	ID             int64
	BindingID      *int64
	CollaboratorID int64
	Month          int
	Year           int
	Kind           CollaboratorKind
	Net            float64
	Gross          float64
	Share          float64
	FixedAmount    bool
	Absences       int
	TargetMet      bool
	OriginalNet    *float64
	EditedNet      *float64
	EditedBy       string
	EditedAt       *time.Time
	EditReason     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const recordColumns = `
	id, binding_id, collaborator_id, month, year, kind,
	net, gross, share, fixed_amount, absences, target_met,
	original_net, edited_net, COALESCE(edited_by, ''), edited_at, COALESCE(edit_reason, ''),
	created_at, updated_at`

// RecordForBinding returns the record identified by (binding, period), or
// (nil, nil) when none exists.
func (s *Store) RecordForBinding(ctx context.Context, bindingID int64, p Period) (*MonthlyRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM monthly_records WHERE binding_id = ? AND month = ? AND year = ?
	`, bindingID, p.Month, p.Year)

	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// InsertRecord inserts a new monthly record and fills in its ID.
func (s *Store) InsertRecord(ctx context.Context, r *MonthlyRecord) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO monthly_records (binding_id, collaborator_id, month, year, kind,
			net, gross, share, fixed_amount, absences, target_met, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.BindingID, r.CollaboratorID, r.Month, r.Year, r.Kind,
		r.Net, r.Gross, r.Share, r.FixedAmount, r.Absences, r.TargetMet, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

// ReplaceRecordFinancials overwrites the financial fields of an existing
// record in place. The manual-edit audit trail columns are left untouched.
func (s *Store) ReplaceRecordFinancials(ctx context.Context, id int64, r *MonthlyRecord) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE monthly_records
		SET net = ?, gross = ?, share = ?, fixed_amount = ?, absences = ?, target_met = ?, updated_at = ?
		WHERE id = ?
	`, r.Net, r.Gross, r.Share, r.FixedAmount, r.Absences, r.TargetMet, time.Now().UTC(), id)
	return err
}

// RecordsForScope returns every record for a period, optionally narrowed to
// one collaborator kind (empty kind means all kinds).
func (s *Store) RecordsForScope(ctx context.Context, p Period, kind CollaboratorKind) ([]MonthlyRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM monthly_records WHERE month = ? AND year = ?`
	args := []any{p.Month, p.Year}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonthlyRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ScopeStats summarizes the existing records of one kind within a period.
type ScopeStats struct {
	Records       int     `json:"records"`
	Collaborators int     `json:"collaborators"`
	TotalNet      float64 `json:"totalNet"`
}

// ScopeSummary returns per-kind statistics of the records already persisted
// for a period. Kinds with no records are absent from the map.
func (s *Store) ScopeSummary(ctx context.Context, p Period) (map[CollaboratorKind]ScopeStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*), COUNT(DISTINCT collaborator_id), COALESCE(SUM(net), 0)
		FROM monthly_records WHERE month = ? AND year = ?
		GROUP BY kind
	`, p.Month, p.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[CollaboratorKind]ScopeStats)
	for rows.Next() {
		var kind CollaboratorKind
		var st ScopeStats
		if err := rows.Scan(&kind, &st.Records, &st.Collaborators, &st.TotalNet); err != nil {
			return nil, err
		}
		out[kind] = st
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*MonthlyRecord, error) {
	var r MonthlyRecord
	err := row.Scan(&r.ID, &r.BindingID, &r.CollaboratorID, &r.Month, &r.Year, &r.Kind,
		&r.Net, &r.Gross, &r.Share, &r.FixedAmount, &r.Absences, &r.TargetMet,
		&r.OriginalNet, &r.EditedNet, &r.EditedBy, &r.EditedAt, &r.EditReason,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
