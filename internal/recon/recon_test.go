package recon

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/sheet"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
)

// mockDirectory implements Directory from in-memory maps.
type mockDirectory struct {
	collaborators map[string]*store.Collaborator
	bindings      map[int64][]store.Binding
	failLookup    bool
}

var errMockLookup = errors.New("mock lookup error")

func (m *mockDirectory) CollaboratorByEmail(ctx context.Context, email string) (*store.Collaborator, error) {
	if m.failLookup {
		return nil, errMockLookup
	}
	return m.collaborators[email], nil
}

func (m *mockDirectory) BindingsForCollaborator(ctx context.Context, id int64) ([]store.Binding, error) {
	return m.bindings[id], nil
}

func row(email, name string, shift sheet.Shift, specialty, unit string, net float64) sheet.Row {
	return sheet.Row{
		Email:     email,
		Name:      name,
		Shift:     shift,
		Specialty: specialty,
		Unit:      unit,
		Gross:     net * 2,
		Net:       net,
	}
}

var jan = store.Period{Month: 1, Year: 2025}

func TestReconcileNewCollaborator(t *testing.T) {
	dir := &mockDirectory{collaborators: map[string]*store.Collaborator{}}

	a, err := Reconcile(context.Background(),
		[]sheet.Row{row("bob@x.com", "Bob", sheet.ShiftMorning, "Acupuntura", "Matriz", 100)},
		jan, store.KindContractor, dir)
	require.NoError(t, err)

	require.Len(t, a.Collaborators, 1)
	c := a.Collaborators[0]
	assert.Equal(t, "bob@x.com", c.Email)
	assert.False(t, c.Existing)
	require.Len(t, c.Bindings, 1)
	assert.False(t, c.Bindings[0].Existing)
	assert.Equal(t, 100.0, c.Bindings[0].Net)

	s := a.Summary()
	assert.Equal(t, 1, s.NewCollaborators)
	assert.Equal(t, 0, s.ExistingCollaborators)
	assert.Equal(t, 1, s.NewBindings)
}

func TestReconcileExistingCollaboratorNewBinding(t *testing.T) {
	dir := &mockDirectory{
		collaborators: map[string]*store.Collaborator{
			"bob@x.com": {ID: 7, Email: "bob@x.com", Kind: store.KindContractor},
		},
		bindings: map[int64][]store.Binding{
			7: {{ID: 3, CollaboratorID: 7, ContractKind: store.KindContractor,
				Shift: "MORNING", Specialty: "Acupuntura", Unit: "Matriz"}},
		},
	}

	a, err := Reconcile(context.Background(), []sheet.Row{
		row("bob@x.com", "Bob", sheet.ShiftMorning, "Acupuntura", "Matriz", 100),
		row("bob@x.com", "Bob", sheet.ShiftAfternoon, "Fisioterapia", "Matriz", 200),
	}, jan, store.KindContractor, dir)
	require.NoError(t, err)

	require.Len(t, a.Collaborators, 1)
	c := a.Collaborators[0]
	assert.True(t, c.Existing)
	assert.EqualValues(t, 7, c.CollaboratorID)
	require.Len(t, c.Bindings, 2)
	assert.True(t, c.Bindings[0].Existing)
	assert.EqualValues(t, 3, c.Bindings[0].BindingID)
	assert.False(t, c.Bindings[1].Existing)

	s := a.Summary()
	assert.Equal(t, 1, s.ExistingCollaborators)
	assert.Equal(t, 1, s.ExistingBindings)
	assert.Equal(t, 1, s.NewBindings)
}

func TestReconcileContractKindPartOfTuple(t *testing.T) {
	// The persisted binding is for the other contract kind, so the upload's
	// binding is new.
	dir := &mockDirectory{
		collaborators: map[string]*store.Collaborator{
			"bob@x.com": {ID: 7, Email: "bob@x.com", Kind: store.KindEmployee},
		},
		bindings: map[int64][]store.Binding{
			7: {{ID: 3, CollaboratorID: 7, ContractKind: store.KindContractor,
				Shift: "MORNING", Specialty: "Acupuntura", Unit: "Matriz"}},
		},
	}

	a, err := Reconcile(context.Background(),
		[]sheet.Row{row("bob@x.com", "Bob", sheet.ShiftMorning, "Acupuntura", "Matriz", 100)},
		jan, store.KindEmployee, dir)
	require.NoError(t, err)
	assert.False(t, a.Collaborators[0].Bindings[0].Existing)
}

func TestReconcileExcludesAdminAccounts(t *testing.T) {
	dir := &mockDirectory{
		collaborators: map[string]*store.Collaborator{
			"admin@x.com": {ID: 1, Email: "admin@x.com", Kind: store.KindAdmin},
		},
	}

	a, err := Reconcile(context.Background(), []sheet.Row{
		row("admin@x.com", "Admin", sheet.ShiftMorning, "Acupuntura", "Matriz", 100),
		row("bob@x.com", "Bob", sheet.ShiftMorning, "Acupuntura", "Matriz", 100),
	}, jan, store.KindContractor, dir)
	require.NoError(t, err)

	require.Len(t, a.Collaborators, 1)
	assert.Equal(t, "bob@x.com", a.Collaborators[0].Email)
	assert.Equal(t, []string{"admin@x.com"}, a.Excluded)
}

func TestReconcileKeepsDuplicateTuplesInRowOrder(t *testing.T) {
	dir := &mockDirectory{collaborators: map[string]*store.Collaborator{}}

	a, err := Reconcile(context.Background(), []sheet.Row{
		row("bob@x.com", "Bob", sheet.ShiftMorning, "Acupuntura", "Matriz", 100),
		row("bob@x.com", "Bob", sheet.ShiftMorning, "Acupuntura", "Matriz", 250),
	}, jan, store.KindContractor, dir)
	require.NoError(t, err)

	// No intra-upload dedup here; the commit phase applies last-one-wins.
	c := a.Collaborators[0]
	require.Len(t, c.Bindings, 2)
	assert.Equal(t, 100.0, c.Bindings[0].Net)
	assert.Equal(t, 250.0, c.Bindings[1].Net)
	assert.Equal(t, c.Bindings[0].Tuple(), c.Bindings[1].Tuple())
}

func TestReconcileGroupsByEmailFirstSeenOrder(t *testing.T) {
	dir := &mockDirectory{collaborators: map[string]*store.Collaborator{}}

	a, err := Reconcile(context.Background(), []sheet.Row{
		row("zoe@x.com", "Zoe", sheet.ShiftMorning, "Acupuntura", "Matriz", 1),
		row("amy@x.com", "Amy", sheet.ShiftMorning, "Acupuntura", "Matriz", 2),
		row("zoe@x.com", "Zoe Z.", sheet.ShiftAfternoon, "Acupuntura", "Matriz", 3),
	}, jan, store.KindContractor, dir)
	require.NoError(t, err)

	require.Len(t, a.Collaborators, 2)
	assert.Equal(t, "zoe@x.com", a.Collaborators[0].Email)
	// First-seen display name wins.
	assert.Equal(t, "Zoe", a.Collaborators[0].Name)
	assert.Len(t, a.Collaborators[0].Bindings, 2)
	assert.Equal(t, "amy@x.com", a.Collaborators[1].Email)
}

func TestReconcilePeriodBounds(t *testing.T) {
	dir := &mockDirectory{collaborators: map[string]*store.Collaborator{}}

	a, err := Reconcile(context.Background(), nil, store.Period{Month: 2, Year: 2024}, store.KindContractor, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, a.RefStart.Day())
	assert.Equal(t, 29, a.RefEnd.Day())
	assert.Equal(t, store.Period{Month: 2, Year: 2024}, a.Period())
}

func TestReconcileLookupFailure(t *testing.T) {
	dir := &mockDirectory{failLookup: true}

	_, err := Reconcile(context.Background(),
		[]sheet.Row{row("bob@x.com", "Bob", sheet.ShiftMorning, "Acupuntura", "Matriz", 100)},
		jan, store.KindContractor, dir)
	require.ErrorIs(t, err, errMockLookup)
}
