package panel_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danhigham/otpfeed/internal/panel"
)

type recorder struct {
	mu     sync.Mutex
	status string
	errs   []error
	raw    string
	debug  []string
}

func (r *recorder) OnDebug(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debug = append(r.debug, line)
}

func (r *recorder) OnStatus(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) OnRawResponse(body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raw = body
}

// fakePanel is a minimal panel: one valid user, a token that can be expired
// on demand, and a configurable list response.
type fakePanel struct {
	logins     atomic.Int32
	lists      atomic.Int32
	expireNext atomic.Int32 // number of list calls that answer 401
	listStatus int
	listBody   string
	token      string
}

func (p *fakePanel) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		p.logins.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("login method = %s, want POST", r.Method)
		}
		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := decodeJSON(r, &creds); err != nil || creds.Username != "user" || creds.Password != "pass" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"bad credentials"}`))
			return
		}
		w.Write([]byte(`{"token":"` + p.token + `","user":"user"}`))
	})
	mux.HandleFunc("/api/sms", func(w http.ResponseWriter, r *http.Request) {
		p.lists.Add(1)
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("limit = %q, want 100", got)
		}
		if r.Header.Get("Authorization") != "Bearer "+p.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if p.expireNext.Load() > 0 {
			p.expireNext.Add(-1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		status := p.listStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		w.Write([]byte(p.listBody))
	})
	return mux
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func newClient(url, password string, h panel.EventHandler) *panel.HTTPClient {
	return panel.NewHTTPClient(panel.Options{
		BaseURL:  url + "/",
		Username: "user",
		Password: password,
		Timeout:  2 * time.Second,
		Handler:  h,
	})
}

func TestLogin_Success(t *testing.T) {
	p := &fakePanel{token: "tok-1"}
	srv := httptest.NewServer(p.handler(t))
	defer srv.Close()

	rec := &recorder{}
	c := newClient(srv.URL, "pass", rec)

	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	st := c.State()
	if !st.LoggedIn || st.Token != "tok-1" {
		t.Errorf("State() = %+v, want logged in with tok-1", st)
	}
	if rec.status != "✅ Connected" {
		t.Errorf("status = %q, want connected", rec.status)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	p := &fakePanel{token: "tok-1"}
	srv := httptest.NewServer(p.handler(t))
	defer srv.Close()

	rec := &recorder{}
	c := newClient(srv.URL, "wrong", rec)

	err := c.Login(context.Background())
	if !errors.Is(err, panel.ErrAuth) {
		t.Fatalf("Login() error = %v, want ErrAuth", err)
	}
	var perr *panel.Error
	if !errors.As(err, &perr) || perr.Status != http.StatusUnauthorized {
		t.Errorf("error = %#v, want *panel.Error with status 401", err)
	}
	if c.State().LoggedIn {
		t.Error("client logged in after rejected login")
	}
	if rec.status != "❌ Login failed" {
		t.Errorf("status = %q, want login failed", rec.status)
	}
	if len(rec.errs) != 1 {
		t.Errorf("got %d recorded errors, want 1", len(rec.errs))
	}
}

func TestLogin_MissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newClient(srv.URL, "pass", nil)
	if err := c.Login(context.Background()); !errors.Is(err, panel.ErrAuth) {
		t.Errorf("Login() error = %v, want ErrAuth", err)
	}
}

func TestLogin_NumericToken(t *testing.T) {
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			w.Write([]byte(`{"token":90210}`))
		default:
			auth.Store(r.Header.Get("Authorization"))
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	c := newClient(srv.URL, "pass", nil)
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if got := c.State().Token; got != "90210" {
		t.Errorf("Token = %q, want %q", got, "90210")
	}
	if _, err := c.FetchRaw(context.Background()); err != nil {
		t.Fatalf("FetchRaw() error: %v", err)
	}
	if got, _ := auth.Load().(string); got != "Bearer 90210" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer 90210")
	}
}

func TestLogin_ObjectTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":{"value":"x"}}`))
	}))
	defer srv.Close()

	rec := &recorder{}
	c := newClient(srv.URL, "pass", rec)
	if err := c.Login(context.Background()); !errors.Is(err, panel.ErrAuth) {
		t.Fatalf("Login() error = %v, want ErrAuth", err)
	}
	found := false
	for _, line := range rec.debug {
		if strings.Contains(line, "not a scalar") {
			found = true
		}
	}
	if !found {
		t.Errorf("debug = %q, want token type reported", rec.debug)
	}
}

func TestLogin_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	rec := &recorder{}
	c := newClient(url, "pass", rec)
	if err := c.Login(context.Background()); !errors.Is(err, panel.ErrAuth) {
		t.Errorf("Login() error = %v, want ErrAuth", err)
	}
	if !strings.HasPrefix(rec.status, "❌ Error: ") {
		t.Errorf("status = %q, want error status", rec.status)
	}
}

func TestFetchRaw_LogsInOnDemand(t *testing.T) {
	p := &fakePanel{token: "tok-1", listBody: `[{"id":1}]`}
	srv := httptest.NewServer(p.handler(t))
	defer srv.Close()

	rec := &recorder{}
	c := newClient(srv.URL, "pass", rec)

	body, err := c.FetchRaw(context.Background())
	if err != nil {
		t.Fatalf("FetchRaw() error: %v", err)
	}
	if string(body) != `[{"id":1}]` {
		t.Errorf("body = %q", body)
	}
	if p.logins.Load() != 1 {
		t.Errorf("logins = %d, want 1", p.logins.Load())
	}
	if rec.raw != `[{"id":1}]` {
		t.Errorf("raw response = %q", rec.raw)
	}
}

func TestFetchRaw_ReloginOnExpiredToken(t *testing.T) {
	p := &fakePanel{token: "tok-1", listBody: `{"sms":[{"id":1}]}`}
	srv := httptest.NewServer(p.handler(t))
	defer srv.Close()

	rec := &recorder{}
	c := newClient(srv.URL, "pass", rec)
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	p.expireNext.Store(1)
	body, err := c.FetchRaw(context.Background())
	if err != nil {
		t.Fatalf("FetchRaw() error: %v", err)
	}
	if len(body) == 0 {
		t.Error("empty body after retry")
	}
	if p.logins.Load() != 2 {
		t.Errorf("logins = %d, want 2", p.logins.Load())
	}
	if p.lists.Load() != 2 {
		t.Errorf("list calls = %d, want 2", p.lists.Load())
	}
	if len(rec.errs) != 0 {
		t.Errorf("recorded errors = %v, want none", rec.errs)
	}
}

func TestFetchRaw_SecondExpiryNotRetried(t *testing.T) {
	p := &fakePanel{token: "tok-1", listBody: `[]`}
	srv := httptest.NewServer(p.handler(t))
	defer srv.Close()

	c := newClient(srv.URL, "pass", nil)
	p.expireNext.Store(5)

	_, err := c.FetchRaw(context.Background())
	if !errors.Is(err, panel.ErrTransient) {
		t.Fatalf("FetchRaw() error = %v, want ErrTransient", err)
	}
	if !errors.Is(err, panel.ErrTokenExpired) {
		t.Errorf("FetchRaw() error = %v, want ErrTokenExpired cause", err)
	}
	if p.lists.Load() != 2 {
		t.Errorf("list calls = %d, want 2", p.lists.Load())
	}
	if c.State().LoggedIn {
		t.Error("client still logged in after repeated 401")
	}
}

func TestFetchRaw_ServerError(t *testing.T) {
	p := &fakePanel{token: "tok-1", listStatus: http.StatusBadGateway, listBody: "upstream down"}
	srv := httptest.NewServer(p.handler(t))
	defer srv.Close()

	rec := &recorder{}
	c := newClient(srv.URL, "pass", rec)

	_, err := c.FetchRaw(context.Background())
	if !errors.Is(err, panel.ErrTransient) {
		t.Fatalf("FetchRaw() error = %v, want ErrTransient", err)
	}
	var perr *panel.Error
	if !errors.As(err, &perr) || perr.Status != http.StatusBadGateway || perr.Body != "upstream down" {
		t.Errorf("error = %#v, want status 502 with body", err)
	}
	if !c.State().LoggedIn {
		t.Error("transient failure logged the client out")
	}
}

func TestFetchRaw_InvalidJSON(t *testing.T) {
	p := &fakePanel{token: "tok-1", listBody: "<html>maintenance</html>"}
	srv := httptest.NewServer(p.handler(t))
	defer srv.Close()

	rec := &recorder{}
	c := newClient(srv.URL, "pass", rec)

	if _, err := c.FetchRaw(context.Background()); !errors.Is(err, panel.ErrTransient) {
		t.Fatalf("FetchRaw() error = %v, want ErrTransient", err)
	}
	if rec.raw != "<html>maintenance</html>" {
		t.Errorf("raw response = %q, want body kept for diagnostics", rec.raw)
	}
}

func TestFetchRaw_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/login" {
			w.Write([]byte(`{"token":"t"}`))
			return
		}
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := panel.NewHTTPClient(panel.Options{
		BaseURL:  srv.URL,
		Username: "user",
		Password: "pass",
		Timeout:  100 * time.Millisecond,
	})

	start := time.Now()
	_, err := c.FetchRaw(context.Background())
	if !errors.Is(err, panel.ErrTransient) {
		t.Fatalf("FetchRaw() error = %v, want ErrTransient", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("FetchRaw took %s, want bounded by timeout", time.Since(start))
	}
}
