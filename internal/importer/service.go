// Package importer drives the staged import pipeline: stage an upload into
// a reconciliation artifact, confirm it into persisted state, delete period
// scopes, and answer pre-checks. All writes go through here.
package importer

import (
	"context"
	"fmt"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/recon"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/sheet"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/staging"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
)

// Service bundles the import engines around one store and one staging
// directory.
type Service struct {
	store    *store.Store
	staging  *staging.Store
	backup   *BackupManager
	notifier Notifier
	locks    scopeLocks
}

// NewService creates an import service. A nil notifier falls back to
// LogNotifier.
func NewService(st *store.Store, stg *staging.Store, n Notifier) *Service {
	if n == nil {
		n = LogNotifier{}
	}
	return &Service{
		store:    st,
		staging:  stg,
		backup:   &BackupManager{store: st},
		notifier: n,
	}
}

// Staging exposes the staging store (the web layer saves uploads under its
// directory).
func (s *Service) Staging() *staging.Store { return s.staging }

// Backup exposes the backup manager.
func (s *Service) Backup() *BackupManager { return s.backup }

// StageResult is what the operator sees after staging an upload.
type StageResult struct {
	Token    string          `json:"token"`
	Summary  recon.Summary   `json:"summary"`
	Artifact *recon.Artifact `json:"artifact"`
}

// Stage parses the spreadsheet at filePath for the given period, reconciles
// it against persisted state, and stages the result. No persisted state is
// written; the returned token drives Confirm or Discard.
func (s *Service) Stage(ctx context.Context, filePath string, p store.Period, kind store.CollaboratorKind) (*StageResult, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid period %d/%d", p.Month, p.Year)
	}
	if !kind.Payable() {
		return nil, fmt.Errorf("invalid collaborator kind %q", kind)
	}

	wb, err := sheet.OpenWorkbook(filePath)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	it, err := wb.Rows(p.Month)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows []sheet.Row
	for it.Next() {
		row, ok, err := sheet.NormalizeRow(it.Line(), it.Row())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rows = append(rows, *row)
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	artifact, err := recon.Reconcile(ctx, rows, p, kind, s.store)
	if err != nil {
		return nil, err
	}
	artifact.SourceFile = filePath

	token, err := s.staging.Stage(artifact)
	if err != nil {
		return nil, err
	}

	return &StageResult{
		Token:    token,
		Summary:  artifact.Summary(),
		Artifact: artifact,
	}, nil
}

// Discard drops a staged artifact and its uploaded file without touching
// persisted state.
func (s *Service) Discard(token string) error {
	return s.staging.Discard(token)
}
