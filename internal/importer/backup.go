package importer

import (
	"context"
	"fmt"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
)

// BackupError is fatal to an overwrite: the commit must abort before any
// record is touched.
type BackupError struct {
	Scope store.Period
	Kind  store.CollaboratorKind
	Err   error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup of %s/%s failed: %v", e.Scope, e.Kind, e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

// BackupManager snapshots a period scope's records before they are
// destructively replaced.
type BackupManager struct {
	store *store.Store
}

// Snapshot copies every record in (period, kind) into an immutable backup
// snapshot and returns it.
func (m *BackupManager) Snapshot(ctx context.Context, p store.Period, kind store.CollaboratorKind) (*store.Snapshot, error) {
	snap, err := m.store.CreateSnapshot(ctx, p, kind)
	if err != nil {
		return nil, &BackupError{Scope: p, Kind: kind, Err: err}
	}
	return snap, nil
}
