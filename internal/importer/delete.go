package importer

import (
	"context"
	"fmt"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
)

// DeletionResult reports what DeletePeriod removed.
type DeletionResult struct {
	RecordsDeleted       int64 `json:"recordsDeleted"`
	BindingsDeleted      int   `json:"bindingsDeleted"`
	CollaboratorsDeleted int   `json:"collaboratorsDeleted"`
}

// DeletePeriod removes every monthly record in (period, kind), then cleans
// up bindings left with no record anywhere and collaborators that are still
// pending with no record anywhere. An empty kind deletes the whole period.
// Confirmed collaborators and referenced bindings are never deleted here.
// The store applies the deletion and both orphan sweeps atomically.
func (s *Service) DeletePeriod(ctx context.Context, p store.Period, kind store.CollaboratorKind) (*DeletionResult, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid period %d/%d", p.Month, p.Year)
	}
	if kind != "" && !kind.Payable() {
		return nil, fmt.Errorf("invalid collaborator kind %q", kind)
	}

	kinds := []store.CollaboratorKind{kind}
	if kind == "" {
		kinds = store.PayableKinds
	}
	unlock := s.locks.lock(p, kinds...)
	defer unlock()

	deleted, err := s.store.DeleteScope(ctx, p, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to delete period %s: %w", p, err)
	}

	return &DeletionResult{
		RecordsDeleted:       deleted.Records,
		BindingsDeleted:      deleted.Bindings,
		CollaboratorsDeleted: deleted.Collaborators,
	}, nil
}
