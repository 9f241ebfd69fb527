package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/expense-reports/internal/application/port"
	"github.com/garyjia/expense-reports/internal/application/service"
	"github.com/garyjia/expense-reports/internal/report"
)

const scenarioJSON = `{
	"natures": [{"id": 1, "multilingualName": {"fr-FR": "Repas"}}],
	"profiles": [{
		"id": 10,
		"multilingualName": {"fr-FR": "Cadre"},
		"idNatures": [1, 2],
		"limits": [{
			"idNatures": [1],
			"type": "absolute",
			"period": "Day",
			"currencyCode": "EUR",
			"thresholds": [{"amount": 50}]
		}]
	}]
}`

type mockMessageSender struct {
	sent []string
	err  error
}

func (m *mockMessageSender) SendText(ctx context.Context, content string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.sent = append(m.sent, content)
	return "om_test", nil
}

var _ port.MessageSender = (*mockMessageSender)(nil)

func newTestServer(t *testing.T, sender port.MessageSender) *Server {
	t.Helper()
	logger := zap.NewNop()
	cfg := DefaultServerConfig()
	cfg.MaxUploadBytes = 1 << 16
	return NewServer(
		cfg,
		service.NewReportService(service.ReportConfig{}, logger),
		service.NewExportService(service.ExportConfig{PDF: report.DefaultPDFOptions()}, logger),
		service.NewNotificationService(sender, logger),
		logger,
	)
}

func do(t *testing.T, s *Server, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) (Response, map[string]interface{}) {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, _ := resp.Data.(map[string]interface{})
	return resp, data
}

func upload(t *testing.T, s *Server) {
	t.Helper()
	w := do(t, s, http.MethodPost, "/api/documents", []byte(scenarioJSON), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	resp, data := decode(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, false, data["document_loaded"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestUploadDocument(t *testing.T) {
	s := newTestServer(t, nil)

	w := do(t, s, http.MethodPost, "/api/documents", []byte(scenarioJSON), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	resp, data := decode(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, float64(1), data["profiles"])
	assert.Equal(t, float64(2), data["profile_nature_rows"])
	assert.Equal(t, false, data["cached"])
	assert.Contains(t, data["warnings"], "Natures accordées mais non définies : 2")

	w = do(t, s, http.MethodPost, "/api/documents", []byte(scenarioJSON), "application/json")
	_, data = decode(t, w)
	assert.Equal(t, true, data["cached"])
}

func TestUploadDocument_Multipart(t *testing.T) {
	s := newTestServer(t, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "Full.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(scenarioJSON))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := do(t, s, http.MethodPost, "/api/documents", body.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, data := decode(t, w)
	assert.Equal(t, float64(1), data["natures"])
}

func TestUploadDocument_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantPath   string
	}{
		{name: "empty body", target: "/api/documents", body: "", wantStatus: http.StatusBadRequest},
		{name: "malformed json", target: "/api/documents", body: `{"profiles": [`, wantStatus: http.StatusBadRequest},
		{name: "missing natures", target: "/api/documents", body: `{"profiles": []}`, wantStatus: http.StatusBadRequest},
		{name: "bad strict flag", target: "/api/documents?strict=maybe", body: scenarioJSON, wantStatus: http.StatusBadRequest},
		{
			name:       "strict violation",
			target:     "/api/documents?strict=true",
			body:       `{"natures": [{"id": 1}, {}], "profiles": []}`,
			wantStatus: http.StatusBadRequest,
			wantPath:   "natures[1].id",
		},
		{
			name:       "too large",
			target:     "/api/documents",
			body:       `{"natures": [], "profiles": [], "pad": "` + strings.Repeat("x", 1<<16) + `"}`,
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)

			w := do(t, s, http.MethodPost, tt.target, []byte(tt.body), "application/json")
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())

			resp, data := decode(t, w)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
			if tt.wantPath != "" {
				assert.Equal(t, tt.wantPath, data["path"])
			}

			_, err := s.reports.Current()
			assert.ErrorIs(t, err, service.ErrNoDocument)
		})
	}
}

func TestEndpoints_NoDocument(t *testing.T) {
	s := newTestServer(t, nil)

	for _, target := range []string{
		"/api/tables/rules",
		"/api/tables/rules/export",
		"/api/export/workbook",
		"/api/export/pdf",
		"/api/profiles/Cadre",
		"/api/natures/1/comparison",
		"/api/audit",
	} {
		t.Run(target, func(t *testing.T) {
			w := do(t, s, http.MethodGet, target, nil, "")
			assert.Equal(t, http.StatusConflict, w.Code)
		})
	}
}

func TestGetTable(t *testing.T) {
	s := newTestServer(t, nil)
	upload(t, s)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCount  float64
	}{
		{name: "all rows", target: "/api/tables/profile-natures", wantStatus: http.StatusOK, wantCount: 2},
		{name: "search", target: "/api/tables/profile-natures?q=repas", wantStatus: http.StatusOK, wantCount: 1},
		{name: "nature filter", target: "/api/tables/profile-natures?nature=2", wantStatus: http.StatusOK, wantCount: 1},
		{name: "profile filter", target: "/api/tables/rules?profile=Autre", wantStatus: http.StatusOK, wantCount: 0},
		{name: "rules by nature", target: "/api/tables/rules?nature=1", wantStatus: http.StatusOK, wantCount: 1},
		{name: "comparison", target: "/api/tables/comparison?nature=1", wantStatus: http.StatusOK, wantCount: 1},
		{name: "comparison without nature", target: "/api/tables/comparison", wantStatus: http.StatusNotFound},
		{name: "unknown table", target: "/api/tables/nope", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodGet, tt.target, nil, "")
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			_, data := decode(t, w)
			assert.Equal(t, tt.wantCount, data["count"])
		})
	}
}

func TestExportTable(t *testing.T) {
	s := newTestServer(t, nil)
	upload(t, s)

	w := do(t, s, http.MethodGet, "/api/tables/rules/export?format=csv", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "rapport_rules.csv")
	assert.Equal(t, "1", w.Header().Get("X-Row-Count"))
	assert.Equal(t,
		"Profil,Type de règle,Natures concernées,Type de plafond,Montant,Devise,Période\nCadre,Limit,Repas,Absolute,50,EUR,per day\n",
		w.Body.String())

	w = do(t, s, http.MethodGet, "/api/tables/rules/export?format=pdf", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = do(t, s, http.MethodGet, "/api/tables/rules/export?format=xlsx", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))

	w = do(t, s, http.MethodGet, "/api/tables/rules/export?format=docx", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportBundles(t *testing.T) {
	s := newTestServer(t, nil)
	upload(t, s)

	w := do(t, s, http.MethodGet, "/api/export/workbook", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "rapport_complet.xlsx")

	w = do(t, s, http.MethodGet, "/api/export/pdf", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
}

func TestGetProfileAndComparison(t *testing.T) {
	s := newTestServer(t, nil)
	upload(t, s)

	w := do(t, s, http.MethodGet, "/api/profiles/Cadre", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	_, data := decode(t, w)
	assert.Equal(t, "Cadre", data["profile"])
	assert.Len(t, data["natures"], 2)
	assert.Len(t, data["limits"], 1)

	w = do(t, s, http.MethodGet, "/api/profiles/Inconnu", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/api/natures/1/comparison", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	_, data = decode(t, w)
	assert.Equal(t, "Repas", data["nature"])
	require.Len(t, data["rows"], 1)
	row := data["rows"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Cadre", row["profile"])
	assert.Equal(t, true, row["granted"])

	w = do(t, s, http.MethodGet, "/api/natures/abc/comparison", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/natures/99/comparison", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditEndpoints(t *testing.T) {
	t.Run("report", func(t *testing.T) {
		s := newTestServer(t, nil)
		upload(t, s)

		w := do(t, s, http.MethodGet, "/api/audit", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		_, data := decode(t, w)
		assert.Equal(t, false, data["clean"])
		assert.Equal(t, []interface{}{float64(2)}, data["orphan_nature_ids"])
	})

	t.Run("notifier disabled", func(t *testing.T) {
		s := newTestServer(t, nil)
		upload(t, s)

		w := do(t, s, http.MethodPost, "/api/audit/notify", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("notify", func(t *testing.T) {
		sender := &mockMessageSender{}
		s := newTestServer(t, sender)
		upload(t, s)

		w := do(t, s, http.MethodPost, "/api/audit/notify", nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		_, data := decode(t, w)
		assert.Equal(t, "om_test", data["message_id"])
		require.Len(t, sender.sent, 1)
	})

	t.Run("send failure", func(t *testing.T) {
		s := newTestServer(t, &mockMessageSender{err: errors.New("boom")})
		upload(t, s)

		w := do(t, s, http.MethodPost, "/api/audit/notify", nil, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestResetDocument(t *testing.T) {
	s := newTestServer(t, nil)
	upload(t, s)

	w := do(t, s, http.MethodDelete, "/api/documents", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, http.MethodGet, "/api/audit", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}
