package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Snapshot is an immutable copy of a period scope's records taken before a
// destructive overwrite. Snapshots are retained indefinitely; nothing in
// this module deletes them.
type Snapshot struct {
	ID          string
	Month       int
	Year        int
	Kind        CollaboratorKind
	RecordCount int
	CreatedAt   time.Time
}

// CreateSnapshot copies every record matching (period, kind) into the
// backup tables and returns the snapshot. The copy and the snapshot row are
// written in one transaction so a snapshot either fully exists or not at
// all.
func (s *Store) CreateSnapshot(ctx context.Context, p Period, kind CollaboratorKind) (*Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	snap := &Snapshot{
		ID:        uuid.NewString(),
		Month:     p.Month,
		Year:      p.Year,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO backup_records (snapshot_id, record_id, binding_id, collaborator_id,
			month, year, kind, net, gross, share, fixed_amount, absences, target_met,
			original_net, edited_net, edited_by, edited_at, edit_reason)
		SELECT ?, id, binding_id, collaborator_id,
			month, year, kind, net, gross, share, fixed_amount, absences, target_met,
			original_net, edited_net, edited_by, edited_at, edit_reason
		FROM monthly_records WHERE month = ? AND year = ? AND kind = ?
	`, snap.ID, p.Month, p.Year, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to copy records: %w", err)
	}
	copied, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	snap.RecordCount = int(copied)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backup_snapshots (id, month, year, kind, record_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.Month, snap.Year, snap.Kind, snap.RecordCount, snap.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return snap, nil
}

// SnapshotsForScope lists the snapshots taken for a period scope, newest
// first.
func (s *Store) SnapshotsForScope(ctx context.Context, p Period, kind CollaboratorKind) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, month, year, kind, record_count, created_at
		FROM backup_snapshots WHERE month = ? AND year = ? AND kind = ?
		ORDER BY created_at DESC
	`, p.Month, p.Year, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.Month, &snap.Year, &snap.Kind,
			&snap.RecordCount, &snap.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}
