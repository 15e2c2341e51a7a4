package importer

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/recon"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
)

// CommitResult reports what a confirm actually did. Per-entry failures are
// collected instead of aborting the whole commit; the artifact is consumed
// either way, so recovery is re-uploading the source file.
type CommitResult struct {
	CollaboratorsCreated int            `json:"collaboratorsCreated"`
	BindingsCreated      int            `json:"bindingsCreated"`
	RecordsWritten       int            `json:"recordsWritten"`
	RecordsSkipped       int            `json:"recordsSkipped"`
	SnapshotID           string         `json:"snapshotId,omitempty"`
	Failures             []EntryFailure `json:"failures,omitempty"`
}

// EntryFailure identifies one entry that could not be written.
type EntryFailure struct {
	Email     string `json:"email"`
	Shift     string `json:"shift"`
	Specialty string `json:"specialty"`
	Unit      string `json:"unit"`
	Reason    string `json:"reason"`
}

// Confirm consumes a staging token and applies its artifact to persisted
// state. With mergeExisting=false, entries whose (binding, period) record
// already exists are skipped and counted; with mergeExisting=true they are
// overwritten in place after a backup snapshot of the scope is taken.
// Commits for the same (period, kind) scope are serialized.
func (s *Service) Confirm(ctx context.Context, token string, mergeExisting bool) (*CommitResult, error) {
	// Scope is only known from the artifact, so peek before consuming.
	artifact, err := s.staging.Peek(token)
	if err != nil {
		return nil, err
	}
	p := artifact.Period()

	unlock := s.locks.lock(p, artifact.Kind)
	defer unlock()

	result := &CommitResult{}

	// Backup before anything is touched. A backup failure aborts with the
	// token still valid, so the operator can retry the same confirm.
	if mergeExisting {
		summary, err := s.store.ScopeSummary(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing records: %w", err)
		}
		if summary[artifact.Kind].Records > 0 {
			snap, err := s.backup.Snapshot(ctx, p, artifact.Kind)
			if err != nil {
				return nil, err
			}
			result.SnapshotID = snap.ID
		}
	}

	artifact, err = s.staging.Consume(token)
	if err != nil {
		return nil, err
	}
	// The artifact is gone once consumed, however the commit goes; recovery
	// from failures below is re-uploading the source file.
	defer func() {
		if err := s.staging.Remove(token, artifact.SourceFile); err != nil {
			log.Printf("Warning: failed to clean up staging artifact %s: %v", token, err)
		}
	}()

	for _, candidate := range artifact.Collaborators {
		s.commitCandidate(ctx, artifact, candidate, mergeExisting, result)
	}
	return result, nil
}

// commitCandidate provisions or merges one collaborator and writes its
// bindings and records. Failures never abort the commit: a failure on the
// collaborator itself is recorded against every one of its entries, and the
// remaining candidates still proceed.
func (s *Service) commitCandidate(ctx context.Context, artifact *recon.Artifact, candidate recon.Candidate, mergeExisting bool, result *CommitResult) {
	collaborator, err := s.resolveCollaborator(ctx, artifact, candidate, result)
	if err != nil {
		for _, entry := range candidate.Bindings {
			result.Failures = append(result.Failures, EntryFailure{
				Email:     candidate.Email,
				Shift:     string(entry.Shift),
				Specialty: entry.Specialty,
				Unit:      entry.Unit,
				Reason:    err.Error(),
			})
		}
		return
	}

	p := artifact.Period()

	// Group entries by tuple in row order; the last entry per tuple carries
	// the figures, the first carries the target for a new binding.
	type group struct {
		first recon.CandidateBinding
		last  recon.CandidateBinding
	}
	groups := make(map[string]*group)
	var order []string
	for _, entry := range candidate.Bindings {
		key := entry.Tuple()
		g, ok := groups[key]
		if !ok {
			groups[key] = &group{first: entry, last: entry}
			order = append(order, key)
			continue
		}
		g.last = entry
	}

	for _, key := range order {
		g := groups[key]
		if err := s.commitEntry(ctx, artifact, collaborator, g.first, g.last, p, mergeExisting, result); err != nil {
			result.Failures = append(result.Failures, EntryFailure{
				Email:     candidate.Email,
				Shift:     string(g.last.Shift),
				Specialty: g.last.Specialty,
				Unit:      g.last.Unit,
				Reason:    err.Error(),
			})
		}
	}
}

// resolveCollaborator finds or provisions the candidate's collaborator. The
// email lookup happens again here, immediately before the write, so a
// re-driven artifact never provisions a duplicate.
func (s *Service) resolveCollaborator(ctx context.Context, artifact *recon.Artifact, candidate recon.Candidate, result *CommitResult) (*store.Collaborator, error) {
	existing, err := s.store.CollaboratorByEmail(ctx, candidate.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up collaborator %s: %w", candidate.Email, err)
	}
	// Reconciliation already excludes administrative accounts, but one may
	// appear under this email between stage and confirm.
	if existing != nil && !existing.Kind.Payable() {
		return nil, fmt.Errorf("administrative account %s cannot receive payroll records", candidate.Email)
	}

	specialty, units := candidateProfile(candidate)

	if existing == nil {
		c := &store.Collaborator{
			Email:        candidate.Email,
			Name:         candidate.Name,
			Kind:         artifact.Kind,
			Status:       store.StatusPending,
			ConfirmToken: uuid.NewString(),
			Specialty:    specialty,
			Units:        units,
		}
		if err := s.store.CreateCollaborator(ctx, c); err != nil {
			return nil, fmt.Errorf("failed to provision collaborator %s: %w", candidate.Email, err)
		}
		result.CollaboratorsCreated++
		s.notifier.CollaboratorProvisioned(Event{
			Name:         c.Name,
			Email:        c.Email,
			Kind:         c.Kind,
			ConfirmToken: c.ConfirmToken,
		})
		return c, nil
	}

	// Merge profile: specialty fills only if empty, units are a set union.
	// Nothing else on an existing collaborator is overwritten.
	mergedSpecialty := existing.Specialty
	if mergedSpecialty == "" {
		mergedSpecialty = specialty
	}
	mergedUnits, changed := unionUnits(existing.Units, units)
	if mergedSpecialty != existing.Specialty || changed {
		if err := s.store.UpdateCollaboratorProfile(ctx, existing.ID, mergedSpecialty, mergedUnits); err != nil {
			return nil, fmt.Errorf("failed to merge profile for %s: %w", candidate.Email, err)
		}
		existing.Specialty = mergedSpecialty
		existing.Units = mergedUnits
	}
	return existing, nil
}

// commitEntry writes one (binding, period) entry. Existence lookups happen
// here, immediately before each write, never from the artifact's stale
// classification.
func (s *Service) commitEntry(ctx context.Context, artifact *recon.Artifact, collaborator *store.Collaborator, first, last recon.CandidateBinding, p store.Period, mergeExisting bool, result *CommitResult) error {
	binding, err := s.store.FindBinding(ctx, collaborator.ID, artifact.Kind, string(last.Shift), last.Specialty, last.Unit)
	if err != nil {
		return fmt.Errorf("failed to look up binding: %w", err)
	}
	if binding == nil {
		binding = &store.Binding{
			CollaboratorID: collaborator.ID,
			ContractKind:   artifact.Kind,
			Shift:          string(last.Shift),
			Specialty:      last.Specialty,
			Unit:           last.Unit,
			Target:         first.Target,
			Active:         true,
		}
		if err := s.store.CreateBinding(ctx, binding); err != nil {
			return fmt.Errorf("failed to create binding: %w", err)
		}
		result.BindingsCreated++
	}

	record := &store.MonthlyRecord{
		BindingID:      &binding.ID,
		CollaboratorID: collaborator.ID,
		Month:          p.Month,
		Year:           p.Year,
		Kind:           artifact.Kind,
		Net:            last.Net,
		Gross:          last.Gross,
		Share:          last.Share,
		FixedAmount:    last.Fixed,
		Absences:       last.Absences,
		TargetMet:      targetMet(last, binding),
	}

	existing, err := s.store.RecordForBinding(ctx, binding.ID, p)
	if err != nil {
		return fmt.Errorf("failed to look up record: %w", err)
	}
	switch {
	case existing == nil:
		if err := s.store.InsertRecord(ctx, record); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
		result.RecordsWritten++
	case !mergeExisting:
		result.RecordsSkipped++
	default:
		if err := s.store.ReplaceRecordFinancials(ctx, existing.ID, record); err != nil {
			return fmt.Errorf("failed to overwrite record: %w", err)
		}
		result.RecordsWritten++
	}
	return nil
}

// targetMet applies the effective-target rule: the row's target if present,
// else the binding's stored target, else no target (never met).
func targetMet(entry recon.CandidateBinding, binding *store.Binding) bool {
	target := entry.Target
	if target == nil {
		target = binding.Target
	}
	return target != nil && entry.Gross >= *target
}

// candidateProfile derives the provisioning profile from an upload's rows:
// first non-empty specialty, union of units.
func candidateProfile(candidate recon.Candidate) (string, []string) {
	var specialty string
	var units []string
	seen := make(map[string]bool)
	for _, b := range candidate.Bindings {
		if specialty == "" && b.Specialty != "" {
			specialty = b.Specialty
		}
		if b.Unit != "" && !seen[b.Unit] {
			seen[b.Unit] = true
			units = append(units, b.Unit)
		}
	}
	return specialty, units
}

// unionUnits merges two unit sets, preserving the existing order and
// reporting whether anything was added.
func unionUnits(existing, incoming []string) ([]string, bool) {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, u := range existing {
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	changed := false
	for _, u := range incoming {
		if u != "" && !seen[u] {
			seen[u] = true
			out = append(out, u)
			changed = true
		}
	}
	return out, changed
}
