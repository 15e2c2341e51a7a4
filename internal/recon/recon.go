// Package recon classifies normalized spreadsheet rows against persisted
// collaborator and binding state. It performs no writes; its output is the
// staging artifact an operator later confirms or discards.
package recon

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/sheet"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
)

// Directory is the read-only view of persisted state the engine needs.
// *store.Store satisfies it.
type Directory interface {
	CollaboratorByEmail(ctx context.Context, email string) (*store.Collaborator, error)
	BindingsForCollaborator(ctx context.Context, collaboratorID int64) ([]store.Binding, error)
}

// Artifact is the full reconciliation result for one upload. It is what the
// staging store persists and the commit engine consumes.
type Artifact struct {
	Month         int                    `json:"month"`
	Year          int                    `json:"year"`
	Kind          store.CollaboratorKind `json:"kind"`
	RefStart      time.Time              `json:"refStart"`
	RefEnd        time.Time              `json:"refEnd"`
	SourceFile    string                 `json:"sourceFile"`
	Collaborators []Candidate            `json:"collaborators"`
	Excluded      []string               `json:"excluded,omitempty"` // admin emails dropped from the upload
}

// Period returns the artifact's import scope.
func (a *Artifact) Period() store.Period {
	return store.Period{Month: a.Month, Year: a.Year}
}

// Candidate is one collaborator seen in the upload, classified as new or
// existing.
type Candidate struct {
	Email          string             `json:"email"`
	Name           string             `json:"name"`
	Existing       bool               `json:"existing"`
	CollaboratorID int64              `json:"collaboratorId,omitempty"`
	Bindings       []CandidateBinding `json:"bindings"`
}

// CandidateBinding carries one upload row: the binding tuple it maps to,
// its classification, and the period's financial figures. Duplicate tuples
// within one upload stay as separate entries in row order; the commit phase
// applies last-one-wins per tuple.
type CandidateBinding struct {
	Shift     sheet.Shift `json:"shift"`
	Specialty string      `json:"specialty"`
	Unit      string      `json:"unit"`
	Existing  bool        `json:"existing"`
	BindingID int64       `json:"bindingId,omitempty"`

	Gross    float64  `json:"gross"`
	Share    float64  `json:"share"`
	Net      float64  `json:"net"`
	Fixed    bool     `json:"fixed"`
	Target   *float64 `json:"target,omitempty"`
	Absences int      `json:"absences"`
}

// Tuple returns the binding identity tuple as a comparable key. The
// contract kind is the artifact's kind and therefore not part of the key
// within one upload.
func (b CandidateBinding) Tuple() string {
	return string(b.Shift) + "\x00" + b.Specialty + "\x00" + b.Unit
}

// Summary are the counts surfaced to the operator at stage time.
type Summary struct {
	NewCollaborators      int `json:"newCollaborators"`
	ExistingCollaborators int `json:"existingCollaborators"`
	NewBindings           int `json:"newBindings"`
	ExistingBindings      int `json:"existingBindings"`
	Rows                  int `json:"rows"`
}

// Summary computes the artifact's candidate counts.
func (a *Artifact) Summary() Summary {
	var s Summary
	for _, c := range a.Collaborators {
		if c.Existing {
			s.ExistingCollaborators++
		} else {
			s.NewCollaborators++
		}
		for _, b := range c.Bindings {
			s.Rows++
			if b.Existing {
				s.ExistingBindings++
			} else {
				s.NewBindings++
			}
		}
	}
	return s
}

// Reconcile groups rows by normalized email, classifies each candidate
// collaborator and binding against persisted state, and returns the staging
// artifact. Row order is preserved within each candidate so the commit
// phase's last-row-wins rule is well-defined.
func Reconcile(ctx context.Context, rows []sheet.Row, p store.Period, kind store.CollaboratorKind, dir Directory) (*Artifact, error) {
	a := &Artifact{
		Month:    p.Month,
		Year:     p.Year,
		Kind:     kind,
		RefStart: p.FirstDay(),
		RefEnd:   p.LastDay(),
	}

	// Group rows by email, keeping first-seen order and first-seen name.
	byEmail := make(map[string]*Candidate)
	var order []string
	for _, row := range rows {
		c, ok := byEmail[row.Email]
		if !ok {
			c = &Candidate{Email: row.Email, Name: row.Name}
			byEmail[row.Email] = c
			order = append(order, row.Email)
		}
		c.Bindings = append(c.Bindings, CandidateBinding{
			Shift:     row.Shift,
			Specialty: row.Specialty,
			Unit:      row.Unit,
			Gross:     row.Gross,
			Share:     row.Share,
			Net:       row.Net,
			Fixed:     row.Fixed,
			Target:    row.Target,
			Absences:  row.Absences,
		})
	}

	for _, email := range order {
		c := byEmail[email]

		persisted, err := dir.CollaboratorByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to look up collaborator %s: %w", email, err)
		}

		if persisted != nil && !persisted.Kind.Payable() {
			log.Printf("Warning: skipping administrative account %s in upload for %s", email, p)
			a.Excluded = append(a.Excluded, email)
			continue
		}

		if persisted != nil {
			c.Existing = true
			c.CollaboratorID = persisted.ID

			existing, err := dir.BindingsForCollaborator(ctx, persisted.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load bindings for %s: %w", email, err)
			}
			for i := range c.Bindings {
				b := &c.Bindings[i]
				for _, have := range existing {
					if have.ContractKind == kind &&
						have.Shift == string(b.Shift) &&
						have.Specialty == b.Specialty &&
						have.Unit == b.Unit {
						b.Existing = true
						b.BindingID = have.ID
						break
					}
				}
			}
		}

		a.Collaborators = append(a.Collaborators, *c)
	}

	return a, nil
}
