package panel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/danhigham/otpfeed/internal/domain"
)

const (
	// DefaultTimeout bounds every request to the panel.
	DefaultTimeout = 15 * time.Second
	// DefaultLimit is the capacity requested from the list endpoint.
	DefaultLimit = 100

	loginPath = "/api/auth/login"
	listPath  = "/api/sms"

	userAgent       = "Mozilla/5.0 Chrome/120.0.0.0"
	maxBodyBytes    = 8 << 20
	rawResponseKeep = 1000
	errorBodyKeep   = 300
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Options configure an HTTPClient.
type Options struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	Limit    int

	// HTTP overrides the transport; a client with Timeout is built if nil.
	HTTP    *http.Client
	Handler EventHandler
	Logger  *zap.Logger
}

// HTTPClient implements Client against the panel's JSON API. The bearer
// token is attached to every request once login succeeds.
type HTTPClient struct {
	baseURL  string
	username string
	password string
	timeout  time.Duration
	limit    int

	http    *http.Client
	handler EventHandler
	logger  *zap.Logger

	mu    sync.Mutex
	state domain.SessionState
}

// NewHTTPClient creates a logged-out client.
func NewHTTPClient(opts Options) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Handler == nil {
		opts.Handler = nopHandler{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		username: opts.Username,
		password: opts.Password,
		timeout:  opts.Timeout,
		limit:    opts.Limit,
		http:     opts.HTTP,
		handler:  opts.Handler,
		logger:   opts.Logger,
	}
}

// State returns a copy of the session state.
func (c *HTTPClient) State() domain.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *HTTPClient) setState(s domain.SessionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates and stores the bearer token. On any failure the client
// is left logged out and an *Error of kind ErrAuth is returned.
func (c *HTTPClient) Login(ctx context.Context) error {
	c.handler.OnDebug("Attempting login to " + c.baseURL)

	payload, err := json.Marshal(credentials{Username: c.username, Password: c.password})
	if err != nil {
		return c.loginFailed(&Error{Kind: ErrAuth, Op: "login", Err: err}, "❌ Login failed")
	}

	status, body, err := c.do(ctx, http.MethodPost, c.baseURL+loginPath, payload)
	if err != nil {
		return c.loginFailed(&Error{Kind: ErrAuth, Op: "login", Err: err}, "❌ Error: "+truncate(err.Error(), 50))
	}
	c.handler.OnDebug(fmt.Sprintf("Login response status: %d", status))

	if status != http.StatusOK {
		return c.loginFailed(&Error{Kind: ErrAuth, Op: "login", Status: status, Body: truncate(string(body), 200)}, "❌ Login failed")
	}

	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return c.loginFailed(&Error{Kind: ErrAuth, Op: "login", Status: status, Body: truncate(string(body), 200), Err: err}, "❌ Login failed")
	}
	var token string
	switch tok := json.Get(body, "token"); tok.ValueType() {
	case jsoniter.StringValue, jsoniter.NumberValue, jsoniter.BoolValue:
		token = tok.ToString()
	case jsoniter.InvalidValue, jsoniter.NilValue:
	default:
		c.handler.OnDebug("Login token is not a scalar: " + truncate(tok.ToString(), 50))
	}
	if token == "" {
		return c.loginFailed(&Error{Kind: ErrAuth, Op: "login", Status: status, Body: truncate(string(body), 200), Err: fmt.Errorf("no token in response")}, "❌ Login failed")
	}

	c.setState(domain.SessionState{LoggedIn: true, Token: token})
	c.handler.OnStatus("✅ Connected")
	c.handler.OnDebug("Login successful")
	c.logger.Info("panel login succeeded", zap.String("url", c.baseURL))
	return nil
}

func (c *HTTPClient) loginFailed(err *Error, status string) error {
	c.setState(domain.SessionState{})
	if err.Body != "" {
		c.handler.OnDebug("Login failed: " + err.Body)
	} else {
		c.handler.OnDebug("Login failed: " + err.Error())
	}
	c.handler.OnStatus(status)
	c.handler.OnError(err)
	c.logger.Warn("panel login failed", zap.Error(err))
	return err
}

// FetchRaw returns the raw list response. It logs in first when needed and,
// on a 401, re-authenticates once and retries the request once.
func (c *HTTPClient) FetchRaw(ctx context.Context) ([]byte, error) {
	if !c.State().LoggedIn {
		c.handler.OnDebug("Not logged in, attempting login")
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	listURL := c.listURL()
	c.handler.OnDebug("Fetching from: " + listURL)

	status, body, err := c.do(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, c.fetchFailed(&Error{Kind: ErrTransient, Op: "fetch", Err: err})
	}
	c.handler.OnDebug(fmt.Sprintf("Response status: %d", status))

	if status == http.StatusUnauthorized {
		c.handler.OnDebug("Token expired, re-logging in")
		c.setState(domain.SessionState{})
		if err := c.Login(ctx); err != nil {
			return nil, &Error{Kind: ErrTransient, Op: "fetch", Status: status, Err: err}
		}
		status, body, err = c.do(ctx, http.MethodGet, listURL, nil)
		if err != nil {
			return nil, c.fetchFailed(&Error{Kind: ErrTransient, Op: "fetch", Err: err})
		}
		c.handler.OnDebug(fmt.Sprintf("Retry response status: %d", status))
		if status == http.StatusUnauthorized {
			c.setState(domain.SessionState{})
			return nil, c.fetchFailed(&Error{Kind: ErrTransient, Op: "fetch", Status: status, Body: truncate(string(body), errorBodyKeep), Err: ErrTokenExpired})
		}
	}

	if status != http.StatusOK {
		return nil, c.fetchFailed(&Error{Kind: ErrTransient, Op: "fetch", Status: status, Body: truncate(string(body), errorBodyKeep)})
	}

	raw := truncate(string(body), rawResponseKeep)
	c.handler.OnRawResponse(raw)
	c.handler.OnDebug("Raw response: " + truncate(raw, errorBodyKeep))

	if !json.Valid(body) {
		return nil, c.fetchFailed(&Error{Kind: ErrTransient, Op: "fetch", Status: status, Body: truncate(string(body), errorBodyKeep), Err: fmt.Errorf("invalid JSON response")})
	}
	return body, nil
}

func (c *HTTPClient) fetchFailed(err *Error) error {
	if err.Body != "" {
		c.handler.OnDebug(fmt.Sprintf("Failed to fetch: %d", err.Status))
		c.handler.OnDebug("Response: " + err.Body)
	} else {
		c.handler.OnDebug("Fetch error: " + err.Error())
	}
	c.handler.OnError(err)
	c.logger.Warn("panel fetch failed", zap.Error(err))
	return err
}

func (c *HTTPClient) listURL() string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.limit))
	return c.baseURL + listPath + "?" + q.Encode()
}

// do issues one request bounded by the client timeout and returns the status
// and body.
func (c *HTTPClient) do(ctx context.Context, method, target string, payload []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if token := c.State().Token; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	c.logger.Debug("panel request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)
	return resp.StatusCode, body, nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
