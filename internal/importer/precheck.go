package importer

import (
	"context"
	"fmt"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
)

// PrecheckScope tells the operator whether a (period, kind) scope already
// holds records, so they can decide to require an overwrite and a backup.
type PrecheckScope struct {
	Exists        bool    `json:"exists"`
	Records       int     `json:"records"`
	Collaborators int     `json:"collaborators"`
	TotalNet      float64 `json:"totalNet"`
}

// PrecheckResult covers every payable kind for one period.
type PrecheckResult struct {
	Month int                                      `json:"month"`
	Year  int                                      `json:"year"`
	Kinds map[store.CollaboratorKind]PrecheckScope `json:"kinds"`
}

// Precheck summarizes the persisted records of a period per collaborator
// kind. Kinds with no records report Exists=false with zero counts.
func (s *Service) Precheck(ctx context.Context, p store.Period) (*PrecheckResult, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid period %d/%d", p.Month, p.Year)
	}

	summary, err := s.store.ScopeSummary(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize scope: %w", err)
	}

	result := &PrecheckResult{
		Month: p.Month,
		Year:  p.Year,
		Kinds: make(map[store.CollaboratorKind]PrecheckScope),
	}
	for _, kind := range store.PayableKinds {
		stats := summary[kind]
		result.Kinds[kind] = PrecheckScope{
			Exists:        stats.Records > 0,
			Records:       stats.Records,
			Collaborators: stats.Collaborators,
			TotalNet:      stats.TotalNet,
		}
	}
	return result, nil
}
