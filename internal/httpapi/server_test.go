package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danhigham/otpfeed/internal/domain"
	"github.com/danhigham/otpfeed/internal/httpapi"
)

type fakeService struct {
	forced   int
	cleared  int
	deadline bool
}

func (f *fakeService) Snapshot() domain.Snapshot {
	return domain.Snapshot{
		Messages: []domain.Message{{ID: "1", OTP: "123456", Service: "WhatsApp"}},
		Stats:    domain.Counters{TotalOTPs: 1, LastCheck: "12:00:00", Running: true},
		Debug:    []string{"[12:00:00] New messages: 1"},
	}
}

func (f *fakeService) ForceCheck(ctx context.Context) int {
	f.forced++
	_, f.deadline = ctx.Deadline()
	return 7
}

func (f *fakeService) ClearAll() { f.cleared++ }

func (f *fakeService) Diagnostics() domain.Diagnostics {
	return domain.Diagnostics{
		Logs:          []string{"a", "b"},
		MessagesCount: 3,
		DedupSize:     4,
		Uptime:        "5 minutes",
	}
}

func do(t *testing.T, h http.Handler, method, path string, v any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	if ct := rec.Header().Get("Content-Type"); rec.Code == http.StatusOK && ct != "application/json" {
		t.Errorf("%s %s Content-Type = %q", method, path, ct)
	}
	if v != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec
}

func TestMessages(t *testing.T) {
	h := httpapi.New(&fakeService{}, nil).Routes()

	var got struct {
		Messages []domain.Message `json:"messages"`
		Stats    map[string]any   `json:"stats"`
		Debug    []string         `json:"debug"`
	}
	rec := do(t, h, http.MethodGet, "/api/messages", &got)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(got.Messages) != 1 || got.Messages[0].OTP != "123456" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.Stats["total_otps"] != float64(1) || got.Stats["is_running"] != true {
		t.Errorf("stats = %v", got.Stats)
	}
	if len(got.Debug) != 1 {
		t.Errorf("debug = %v", got.Debug)
	}
}

func TestRefresh(t *testing.T) {
	svc := &fakeService{}
	h := httpapi.New(svc, nil).Routes()

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		var got struct {
			Status string `json:"status"`
			Count  int    `json:"count"`
		}
		do(t, h, method, "/api/refresh", &got)
		if got.Status != "ok" || got.Count != 7 {
			t.Errorf("%s refresh = %+v, want ok/7", method, got)
		}
	}
	if svc.forced != 2 {
		t.Errorf("ForceCheck called %d times, want 2", svc.forced)
	}
	if !svc.deadline {
		t.Error("ForceCheck context has no deadline")
	}
}

func TestClear(t *testing.T) {
	svc := &fakeService{}
	h := httpapi.New(svc, nil).Routes()

	var got map[string]any
	do(t, h, http.MethodPost, "/api/clear", &got)
	if got["status"] != "ok" {
		t.Errorf("clear = %v", got)
	}
	if _, ok := got["count"]; ok {
		t.Error("clear response carries a count")
	}
	if svc.cleared != 1 {
		t.Errorf("ClearAll called %d times, want 1", svc.cleared)
	}
}

func TestDebug(t *testing.T) {
	h := httpapi.New(&fakeService{}, nil).Routes()

	var got struct {
		Logs          []string `json:"logs"`
		MessagesCount int      `json:"messages_count"`
		DedupSize     int      `json:"dedup_size"`
		Uptime        string   `json:"uptime"`
	}
	do(t, h, http.MethodGet, "/api/debug", &got)
	if len(got.Logs) != 2 || got.MessagesCount != 3 || got.DedupSize != 4 || got.Uptime != "5 minutes" {
		t.Errorf("debug = %+v", got)
	}
}

func TestHealthzAndUnknownRoute(t *testing.T) {
	h := httpapi.New(&fakeService{}, nil).Routes()

	var got map[string]string
	do(t, h, http.MethodGet, "/healthz", &got)
	if got["status"] != "ok" {
		t.Errorf("healthz = %v", got)
	}

	if rec := do(t, h, http.MethodGet, "/api/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/clear", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE /api/clear status = %d, want 405", rec.Code)
	}
}
