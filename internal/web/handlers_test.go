package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/importer"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/sheet"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/staging"
	"github.com/kalebecaldas/SISTEMADEFATURAMENTOIAAM-sub001/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	return NewServer(importer.NewService(st, stg, nil)), st
}

// workbookBytes builds a one-sheet workbook for month with a header and one
// collaborator row.
func workbookBytes(t *testing.T, month int, email, netAmount string) []byte {
	t.Helper()

	f := excelize.NewFile()
	name := sheet.MonthSheetName(month)
	require.NoError(t, f.SetSheetName("Sheet1", name))

	header := []any{"NOME", "ESPEC", "UNID"}
	require.NoError(t, f.SetSheetRow(name, "A1", &header))

	row := make([]any, 20)
	row[0] = "Bob"
	row[1] = "ACUP"
	row[2] = "MATRIZ"
	row[3] = "1000"
	row[11] = email
	row[12] = "M"
	row[19] = netAmount
	require.NoError(t, f.SetSheetRow(name, "A2", &row))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func multipartUpload(t *testing.T, fields map[string]string, file []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	fw, err := w.CreateFormFile("file", "upload.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(file)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func doRequest(s *Server, method, path, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func stageUpload(t *testing.T, s *Server, month int, year int) string {
	t.Helper()

	body, contentType := multipartUpload(t, map[string]string{
		"month": fmt.Sprint(month),
		"year":  fmt.Sprint(year),
		"kind":  "contractor",
	}, workbookBytes(t, month, "bob@x.com", "100"))

	rec := doRequest(s, http.MethodPost, "/api/imports", contentType, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func TestStageConfirmFlow(t *testing.T) {
	s, st := newTestServer(t)

	token := stageUpload(t, s, 1, 2025)

	rec := doRequest(s, http.MethodPost, "/api/imports/"+token+"/confirm",
		"application/json", bytes.NewBufferString(`{"merge": false}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data importer.CommitResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.CollaboratorsCreated)
	assert.Equal(t, 1, resp.Data.RecordsWritten)

	records, err := st.RecordsForScope(context.Background(), store.Period{Month: 1, Year: 2025}, store.KindContractor)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestConfirmConsumedTokenIsGone(t *testing.T) {
	s, _ := newTestServer(t)

	token := stageUpload(t, s, 1, 2025)

	rec := doRequest(s, http.MethodPost, "/api/imports/"+token+"/confirm", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/imports/"+token+"/confirm", "", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestDiscardEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	token := stageUpload(t, s, 1, 2025)

	rec := doRequest(s, http.MethodDelete, "/api/imports/"+token, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodDelete, "/api/imports/"+token, "", nil)
	assert.Equal(t, http.StatusGone, rec.Code)

	rec = doRequest(s, http.MethodDelete, "/api/imports/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
}

func TestStageValidation(t *testing.T) {
	s, _ := newTestServer(t)

	// Missing period fields.
	body, contentType := multipartUpload(t, map[string]string{"kind": "contractor"},
		workbookBytes(t, 1, "bob@x.com", "100"))
	rec := doRequest(s, http.MethodPost, "/api/imports", contentType, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad kind.
	body, contentType = multipartUpload(t, map[string]string{
		"month": "1", "year": "2025", "kind": "admin",
	}, workbookBytes(t, 1, "bob@x.com", "100"))
	rec = doRequest(s, http.MethodPost, "/api/imports", contentType, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Month with no matching sheet.
	body, contentType = multipartUpload(t, map[string]string{
		"month": "6", "year": "2025", "kind": "contractor",
	}, workbookBytes(t, 1, "bob@x.com", "100"))
	rec = doRequest(s, http.MethodPost, "/api/imports", contentType, body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "JANEIRO")
}

func TestPrecheckEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/api/imports/precheck?month=1&year=2025", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"exists":false`)

	rec = doRequest(s, http.MethodGet, "/api/imports/precheck?month=99&year=2025", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeletePeriodEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	token := stageUpload(t, s, 1, 2025)
	rec := doRequest(s, http.MethodPost, "/api/imports/"+token+"/confirm", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodDelete, "/api/records?month=1&year=2025&kind=contractor", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data importer.DeletionResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp.Data.RecordsDeleted)

	rec = doRequest(s, http.MethodDelete, "/api/records?month=1&year=2025&kind=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteIs404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
