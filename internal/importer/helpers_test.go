package importer

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/recon"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/sheet"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/staging"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
)

var jan = store.Period{Month: 1, Year: 2025}

// mockNotifier records provisioning events.
type mockNotifier struct {
	mu     sync.Mutex
	Events []Event
}

func (m *mockNotifier) CollaboratorProvisioned(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
}

// newTestService wires a service over a temp SQLite store and staging dir.
func newTestService(t *testing.T) (*Service, *store.Store, *mockNotifier) {
	t.Helper()

	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	stg, err := staging.NewStore(filepath.Join(dir, "staging"))
	if err != nil {
		t.Fatalf("Failed to create staging store: %v", err)
	}

	notifier := &mockNotifier{}
	return NewService(st, stg, notifier), st, notifier
}

// uploadRow is one spreadsheet row in template column order.
type uploadRow struct {
	Name      string
	Specialty string
	Unit      string
	Gross     string
	Share     string
	Fixed     string
	Target    string
	Absences  string
	Email     string
	Shift     string
	Net       string
}

func (r uploadRow) cells() []any {
	cells := make([]any, 20)
	cells[0] = r.Name
	cells[1] = r.Specialty
	cells[2] = r.Unit
	cells[3] = r.Gross
	cells[4] = r.Share
	cells[5] = r.Fixed
	cells[6] = r.Target
	cells[10] = r.Absences
	cells[11] = r.Email
	cells[12] = r.Shift
	cells[19] = r.Net
	return cells
}

// writeUpload creates a workbook holding the rows in the sheet for the
// given month, saved inside the service's staging dir like a real upload.
func writeUpload(t *testing.T, svc *Service, month int, rows []uploadRow) string {
	t.Helper()

	f := excelize.NewFile()
	name := sheet.MonthSheetName(month)
	require.NoError(t, f.SetSheetName("Sheet1", name))

	header := []any{"NOME", "ESPEC", "UNID", "FATURAMENTO", "REPASSE", "FIXO", "META"}
	require.NoError(t, f.SetSheetRow(name, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		cells := row.cells()
		require.NoError(t, f.SetSheetRow(name, cell, &cells))
	}

	path := filepath.Join(svc.Staging().Dir(), "upload.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

// stageRows stages an upload built from rows and returns the result.
func stageRows(t *testing.T, svc *Service, p store.Period, kind store.CollaboratorKind, rows []uploadRow) *StageResult {
	t.Helper()

	path := writeUpload(t, svc, p.Month, rows)
	result, err := svc.Stage(context.Background(), path, p, kind)
	require.NoError(t, err)
	return result
}

// stageArtifact stages a prebuilt artifact directly, bypassing the
// spreadsheet layer.
func stageArtifact(t *testing.T, svc *Service, a *recon.Artifact) string {
	t.Helper()

	token, err := svc.staging.Stage(a)
	require.NoError(t, err)
	return token
}

func bobRow(shift, specialty, unit, net string) uploadRow {
	return uploadRow{
		Name:      "Bob",
		Specialty: specialty,
		Unit:      unit,
		Gross:     "1000",
		Share:     "500",
		Target:    "N/P",
		Email:     "bob@x.com",
		Shift:     shift,
		Net:       net,
	}
}
