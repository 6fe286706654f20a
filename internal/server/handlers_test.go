package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/notevault/vaultindex/internal/config"
	"github.com/notevault/vaultindex/internal/embedding"
	"github.com/notevault/vaultindex/internal/models"
	"github.com/notevault/vaultindex/internal/scheduler"
	"github.com/notevault/vaultindex/internal/store"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Provider.Kind = "mock"
	cfg.Provider.Dimensions = 8
	cfg.Index.SnapshotPath = filepath.Join(t.TempDir(), "snapshot.json")
	cfg.Update.Mode = config.UpdateModeNone

	st, err := store.NewIndexStore(cfg, zap.NewNop(), store.WithProvider(embedding.NewMockProvider(8)))
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	sched := scheduler.NewScheduler(st, cfg, zap.NewNop())
	return NewServer(st, sched, cfg, zap.NewNop())
}

func TestHandleSearchEmptyQuery(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query": ""}`))
	w := httptest.NewRecorder()
	s.handleSearch(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleSearchInvalidBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.handleSearch(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleSearchEmptyIndexReturnsEmptyList(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"query": "anything"}`))
	w := httptest.NewRecorder()
	s.handleSearch(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp models.SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Results == nil {
		t.Error("results must be an empty list, not null")
	}
	if resp.Total != 0 {
		t.Errorf("total = %d, want 0", resp.Total)
	}
	if resp.Query != "anything" {
		t.Errorf("query echo = %q", resp.Query)
	}
}

func TestHandleIndexNoteAndSearch(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Search.SimilarityThreshold = 0.99

	body := `{"path": "/vault/meeting.md", "content": "Minutes from the weekly planning meeting with the team."}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.handleIndexNote(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	// The mock provider is deterministic, so the exact content matches itself.
	search := `{"query": "Minutes from the weekly planning meeting with the team."}`
	req = httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(search))
	w = httptest.NewRecorder()
	s.handleSearch(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp models.SearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].Path != "/vault/meeting.md" {
		t.Fatalf("unexpected results: %+v", resp)
	}
}

func TestHandleIndexNoteMissingPath(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes", strings.NewReader(`{"content": "no path"}`))
	w := httptest.NewRecorder()
	s.handleIndexNote(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRemoveNoteByQueryParam(t *testing.T) {
	s := newTestServer(t)
	if err := s.store.AddNote(context.Background(), "/vault/a.md", strings.Repeat("content ", 10), time.Now()); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notes?path=%2Fvault%2Fa.md", nil)
	w := httptest.NewRecorder()
	s.handleRemoveNote(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if s.store.Count() != 0 {
		t.Error("note still indexed after remove")
	}
}

func TestHandleRemoveNoteByBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notes", strings.NewReader(`{"path": "/vault/b.md"}`))
	w := httptest.NewRecorder()
	s.handleRemoveNote(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (removing an absent note is a no-op)", w.Code)
	}
}

func TestHandleRemoveNoteMissingPath(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notes", nil)
	w := httptest.NewRecorder()
	s.handleRemoveNote(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleFlush(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/flush", nil)
	w := httptest.NewRecorder()
	s.handleFlush(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]int
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["flushed"] != 0 {
		t.Errorf("flushed = %d, want 0", resp["flushed"])
	}
}

func TestHandleRescanAccepted(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rescan", nil)
	w := httptest.NewRecorder()
	s.handleRescan(w, req)
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	s.handleStatus(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["notes"].(float64) != 0 {
		t.Errorf("notes = %v, want 0", resp["notes"])
	}
	cfgMap, ok := resp["config"].(map[string]interface{})
	if !ok {
		t.Fatal("config block missing from status")
	}
	if cfgMap["provider"] != "mock" {
		t.Errorf("provider = %v, want mock", cfgMap["provider"])
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
