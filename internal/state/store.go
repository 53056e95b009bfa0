package state

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/danhigham/otpfeed/internal/dedup"
	"github.com/danhigham/otpfeed/internal/domain"
)

const (
	// DefaultMaxMessages caps the feed length.
	DefaultMaxMessages = 100

	maxDebugLines      = 50
	snapshotDebugLines = 10
	debugTimeLayout    = "15:04:05"
	lastCheckLayout    = "15:04:05"
	maxAPIResponse     = 1000
)

// Store owns the feed, its counters, the diagnostic log and the dedup
// filter. Every mutation happens under mu, so a clear can never interleave
// with a merge.
type Store struct {
	mu          sync.RWMutex
	messages    []domain.Message // newest first
	maxMessages int
	seen        *dedup.Filter
	counters    domain.Counters
	debug       []string // newest first
	drawFunc    func()
	logger      *zap.Logger
	now         func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithMaxMessages sets the feed capacity.
func WithMaxMessages(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxMessages = n
		}
	}
}

// WithFilter replaces the default dedup filter. It must retain at least as
// many ids as the feed holds.
func WithFilter(f *dedup.Filter) Option {
	return func(s *Store) {
		if f != nil {
			s.seen = f
		}
	}
}

// WithLogger mirrors diagnostic lines to logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(drawFunc func(), opts ...Option) *Store {
	s := &Store{
		maxMessages: DefaultMaxMessages,
		drawFunc:    drawFunc,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.seen == nil {
		s.seen = newFilter(s.maxMessages)
	}
	s.counters = domain.Counters{
		StartTime: s.now(),
		LastCheck: "Never",
		Status:    "Not initialized",
	}
	return s
}

// newFilter sizes the dedup filter so a trim never forgets an id that is
// still in a feed of capacity maxMessages.
func newFilter(maxMessages int) *dedup.Filter {
	retain := max(dedup.DefaultRetain, maxMessages)
	return dedup.New(max(dedup.DefaultSoftLimit, 2*retain), retain)
}

func (s *Store) SetDrawFunc(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drawFunc = f
}

func (s *Store) draw() {
	if s.drawFunc != nil {
		s.drawFunc()
	}
}

// MergeNew prepends every message the dedup filter has not seen, then trims
// the feed to capacity. It returns how many messages were inserted.
func (s *Store) MergeNew(msgs []domain.Message) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, m := range msgs {
		if !s.seen.IsNew(m.ID) {
			continue
		}
		s.messages = append(s.messages, domain.Message{})
		copy(s.messages[1:], s.messages)
		s.messages[0] = m
		s.counters.TotalOTPs++
		inserted++
	}
	if len(s.messages) > s.maxMessages {
		clear(s.messages[s.maxMessages:])
		s.messages = s.messages[:s.maxMessages]
	}

	s.counters.LastInserted = inserted
	s.counters.LastCheck = s.now().Format(lastCheckLayout)
	s.addDebugLocked(fmt.Sprintf("New messages: %d", inserted))
	s.draw()
	return inserted
}

// Clear empties the feed and the dedup filter and resets the OTP total.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil
	s.seen.Clear()
	s.counters.TotalOTPs = 0
	s.counters.LastInserted = 0
	s.addDebugLocked("Cache cleared")
	s.draw()
}

// Snapshot returns a copy of the feed, counters and latest diagnostic lines.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Snapshot{
		Messages: s.copyMessagesLocked(),
		Stats:    s.counters,
		Debug:    copyLines(s.debug, snapshotDebugLines),
	}
}

// Diagnostics returns counters, the full diagnostic log and feed size.
func (s *Store) Diagnostics() domain.Diagnostics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Diagnostics{
		Stats:         s.counters,
		Logs:          copyLines(s.debug, len(s.debug)),
		MessagesCount: len(s.messages),
		DedupSize:     s.seen.Len(),
		Uptime:        strings.TrimSpace(humanize.RelTime(s.counters.StartTime, s.now(), "", "")),
	}
}

func (s *Store) GetMessages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyMessagesLocked()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) GetCounters() domain.Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters
}

// SetRunning records whether the poll loop is active.
func (s *Store) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Running = running
	s.draw()
}

// RecordCycle bumps the cycle counters.
func (s *Store) RecordCycle(failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Cycles++
	if failed {
		s.counters.Failures++
	}
}

// Debugf appends a formatted line to the diagnostic log.
func (s *Store) Debugf(format string, args ...any) {
	s.OnDebug(fmt.Sprintf(format, args...))
}

// OnDebug appends line to the diagnostic log.
func (s *Store) OnDebug(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addDebugLocked(line)
}

// OnStatus updates the session status text.
func (s *Store) OnStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.Status = status
	s.draw()
}

// OnError records err as the last error.
func (s *Store) OnError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.LastError = err.Error()
	s.draw()
}

// OnRawResponse keeps a truncated copy of the last panel response.
func (s *Store) OnRawResponse(body string) {
	if r := []rune(body); len(r) > maxAPIResponse {
		body = string(r[:maxAPIResponse])
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters.APIResponse = body
}

func (s *Store) addDebugLocked(line string) {
	entry := fmt.Sprintf("[%s] %s", s.now().Format(debugTimeLayout), line)
	if len(s.debug) < maxDebugLines {
		s.debug = append(s.debug, "")
	}
	copy(s.debug[1:], s.debug)
	s.debug[0] = entry
	s.logger.Info(line)
}

func (s *Store) copyMessagesLocked() []domain.Message {
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func copyLines(lines []string, n int) []string {
	if n > len(lines) {
		n = len(lines)
	}
	out := make([]string, n)
	copy(out, lines[:n])
	return out
}
