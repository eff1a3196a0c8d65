package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lmoretti/finquery/internal/service"
	"github.com/lmoretti/finquery/internal/storage"
)

type mockPromptService struct {
	analysis *service.Analysis
	err      error
}

func (m *mockPromptService) Analyze(_ context.Context, _ string) (*service.Analysis, error) {
	return m.analysis, m.err
}

var _ service.PromptService = (*mockPromptService)(nil)

type recordingAudit struct {
	entries []storage.QueryLog
	err     error
}

func (r *recordingAudit) EnsureSchema() error { return nil }
func (r *recordingAudit) InsertQueryLog(entry storage.QueryLog) error {
	r.entries = append(r.entries, entry)
	return r.err
}

func setupRouterWithMock(s service.PromptService, audit storage.QueryLogRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, audit)
	r := gin.New()
	r.GET("/", h.GetRoot)
	r.POST("/prompt", h.PostPrompt)
	return r
}

func TestPostPrompt_TableDriven(t *testing.T) {
	okAnalysis := &service.Analysis{
		Result: map[string]any{
			"return": map[string]any{"AAPL": map[string]any{"ytd": 12.34}},
		},
		NaturalLanguage: "AAPL gained 12.34% year to date.",
	}

	cases := []struct {
		name   string
		svc    *mockPromptService
		body   string
		status int
		assert func(t *testing.T, body []byte)
	}{
		{
			name:   "missing prompt",
			svc:    &mockPromptService{},
			body:   `{}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid json body",
			svc:    &mockPromptService{},
			body:   `{`,
			status: http.StatusBadRequest,
		},
		{
			name:   "oracle parse failure",
			svc:    &mockPromptService{err: fmt.Errorf("%w: upstream down", service.ErrOracleParse)},
			body:   `{"prompt": "AAPL return?"}`,
			status: http.StatusBadGateway,
			assert: func(t *testing.T, body []byte) {
				var out map[string]any
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if out["status"] != "error" || out["message"] == "" {
					t.Fatalf("unexpected envelope: %v", out)
				}
			},
		},
		{
			name:   "unrecognizable request shape",
			svc:    &mockPromptService{err: fmt.Errorf("%w: unknown branch", service.ErrResolution)},
			body:   `{"prompt": "AAPL return?"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "success",
			svc:    &mockPromptService{analysis: okAnalysis},
			body:   `{"prompt": "What is AAPL's return this year?"}`,
			status: http.StatusOK,
			assert: func(t *testing.T, body []byte) {
				var out struct {
					Status          string         `json:"status"`
					Result          map[string]any `json:"result"`
					NaturalLanguage string         `json:"natural_language"`
				}
				if err := json.Unmarshal(body, &out); err != nil {
					t.Fatalf("invalid json: %v", err)
				}
				if out.Status != "ok" {
					t.Fatalf("unexpected status: %q", out.Status)
				}
				if out.NaturalLanguage == "" {
					t.Fatalf("missing narrative")
				}
				leaf := out.Result["return"].(map[string]any)["AAPL"].(map[string]any)["ytd"]
				if leaf != 12.34 {
					t.Fatalf("unexpected result leaf: %v", leaf)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := setupRouterWithMock(tc.svc, nil)
			req := httptest.NewRequest(http.MethodPost, "/prompt", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d (body %s)", tc.status, w.Code, w.Body.String())
			}
			if tc.assert != nil {
				tc.assert(t, w.Body.Bytes())
			}
		})
	}
}

func TestPostPrompt_AuditTrail(t *testing.T) {
	audit := &recordingAudit{}
	r := setupRouterWithMock(&mockPromptService{analysis: &service.Analysis{Result: map[string]any{}, NaturalLanguage: "n"}}, audit)

	req := httptest.NewRequest(http.MethodPost, "/prompt", strings.NewReader(`{"prompt": "p"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(audit.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(audit.entries))
	}
	if audit.entries[0].Status != "ok" || audit.entries[0].Prompt != "p" {
		t.Fatalf("unexpected entry: %+v", audit.entries[0])
	}
}

// A failing audit write must not alter the already-sent response.
func TestPostPrompt_AuditFailureIgnored(t *testing.T) {
	audit := &recordingAudit{err: fmt.Errorf("db down")}
	r := setupRouterWithMock(&mockPromptService{analysis: &service.Analysis{Result: map[string]any{}, NaturalLanguage: "n"}}, audit)

	req := httptest.NewRequest(http.MethodPost, "/prompt", strings.NewReader(`{"prompt": "p"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGetRoot(t *testing.T) {
	r := setupRouterWithMock(&mockPromptService{}, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var out struct {
		Message   string            `json:"message"`
		Version   string            `json:"version"`
		Endpoints map[string]string `json:"endpoints"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if out.Message == "" || out.Version == "" || len(out.Endpoints) == 0 {
		t.Fatalf("incomplete descriptor: %+v", out)
	}
}
