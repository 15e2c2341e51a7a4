package store

import (
	"context"
	"database/sql"
	"sort"
)

// ScopeDeletion reports what DeleteScope removed.
type ScopeDeletion struct {
	Records       int64
	Bindings      int
	Collaborators int
}

// DeleteScope removes every monthly record in (period, kind), then bindings
// left with no record in any period, then collaborators that are still
// pending with no record in any period. An empty kind covers the whole
// period. The record deletion and both orphan sweeps run in one transaction,
// so a crash can never leave orphans behind with their records already gone.
func (s *Store) DeleteScope(ctx context.Context, p Period, kind CollaboratorKind) (*ScopeDeletion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	where := ` WHERE month = ? AND year = ?`
	args := []any{p.Month, p.Year}
	if kind != "" {
		where += ` AND kind = ?`
		args = append(args, kind)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT binding_id, collaborator_id FROM monthly_records`+where, args...)
	if err != nil {
		return nil, err
	}
	bindingIDs := make(map[int64]bool)
	collaboratorIDs := make(map[int64]bool)
	for rows.Next() {
		var bindingID *int64
		var collaboratorID int64
		if err := rows.Scan(&bindingID, &collaboratorID); err != nil {
			rows.Close()
			return nil, err
		}
		if bindingID != nil {
			bindingIDs[*bindingID] = true
		}
		collaboratorIDs[collaboratorID] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	result := &ScopeDeletion{}

	res, err := tx.ExecContext(ctx, `DELETE FROM monthly_records`+where, args...)
	if err != nil {
		return nil, err
	}
	if result.Records, err = res.RowsAffected(); err != nil {
		return nil, err
	}

	for _, id := range sortedIDs(bindingIDs) {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM monthly_records WHERE binding_id = ?`, id).Scan(&n); err != nil {
			return nil, err
		}
		if n > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM bindings WHERE id = ?`, id); err != nil {
			return nil, err
		}
		result.Bindings++
	}

	for _, id := range sortedIDs(collaboratorIDs) {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM monthly_records WHERE collaborator_id = ?`, id).Scan(&n); err != nil {
			return nil, err
		}
		if n > 0 {
			continue
		}
		var status Status
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM collaborators WHERE id = ?`, id).Scan(&status)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		if status != StatusPending {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM collaborators WHERE id = ?`, id); err != nil {
			return nil, err
		}
		result.Collaborators++
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func sortedIDs(set map[int64]bool) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
