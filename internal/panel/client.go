package panel

import (
	"context"
	"errors"
	"fmt"

	"github.com/danhigham/otpfeed/internal/domain"
)

// Error kinds. Test with errors.Is.
var (
	// ErrAuth means login was rejected or returned no token.
	ErrAuth = errors.New("panel auth failed")
	// ErrTransient means a fetch failed and should simply be retried next cycle.
	ErrTransient = errors.New("panel fetch failed")
	// ErrTokenExpired means the panel answered 401 to an authenticated request.
	ErrTokenExpired = errors.New("panel token expired")
)

// Error describes a failed panel request.
type Error struct {
	Kind   error
	Op     string
	Status int    // HTTP status, 0 when no response was received
	Body   string // truncated response body, if any
	Err    error  // underlying cause, if any
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// EventHandler receives status and diagnostic events from the client.
type EventHandler interface {
	OnDebug(line string)
	OnStatus(status string)
	OnError(err error)
	OnRawResponse(body string)
}

// Client is the interface for panel operations.
type Client interface {
	Login(ctx context.Context) error
	FetchRaw(ctx context.Context) ([]byte, error)
	State() domain.SessionState
}

type nopHandler struct{}

func (nopHandler) OnDebug(string)       {}
func (nopHandler) OnStatus(string)      {}
func (nopHandler) OnError(error)        {}
func (nopHandler) OnRawResponse(string) {}
