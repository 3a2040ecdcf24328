// Package session holds the record of one open conversation with a
// provider: identity, status, transport handle, and the ordered turn log.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusInactive    Status = "inactive"
	StatusStarting    Status = "starting"
	StatusActive      Status = "active"
	StatusError       Status = "error"
	StatusTerminating Status = "terminating"
)

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in a session's conversation log.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Handle is a transport resource owned by a session. Subprocess transports
// hold a live process here; stateless HTTP transports hold nothing.
type Handle interface {
	Close() error
}

// Info is the listing view of a session.
type Info struct {
	SessionID    string    `json:"session_id"`
	Provider     string    `json:"provider"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// Session is one open conversation. It is owned by exactly one provider;
// the provider mutates it through the methods below. The turn log is
// append-only and insertion order is conversation order.
type Session struct {
	id        string
	provider  string
	createdAt time.Time

	mu           sync.Mutex
	status       Status
	lastActivity time.Time
	turns        []Turn
	handle       Handle
}

// New creates a session owned by the named provider. Sessions begin
// Inactive; the owning provider moves them to Active on a successful start.
func New(provider string) *Session {
	now := time.Now()
	return &Session{
		id:           uuid.NewString(),
		provider:     provider,
		createdAt:    now,
		lastActivity: now,
		status:       StatusInactive,
	}
}

// ID returns the immutable session id.
func (s *Session) ID() string { return s.id }

// Provider returns the owning provider name.
func (s *Session) Provider() string { return s.provider }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus moves the session to a new lifecycle state.
func (s *Session) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// LastActivity returns the time of the last successful exchange.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Handle returns the transport resource, or nil for stateless transports.
func (s *Session) Handle() Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// SetHandle attaches or detaches the transport resource.
func (s *Session) SetHandle(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handle = h
}

// RecordExchange appends one user turn and one assistant turn to the log
// and refreshes the activity timestamp. Called by the owning provider after
// a successful round trip.
func (s *Session) RecordExchange(userText, assistantText string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns,
		Turn{ID: newTurnID(), Role: RoleUser, Content: userText, Timestamp: now},
		Turn{ID: newTurnID(), Role: RoleAssistant, Content: assistantText, Timestamp: now},
	)
	s.lastActivity = now
}

// History returns a copy of the conversation log in insertion order.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns in the log.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Info returns the listing view of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		SessionID:    s.id,
		Provider:     s.provider,
		Status:       s.status,
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
		MessageCount: len(s.turns),
	}
}

func newTurnID() string {
	return ulid.Make().String()
}
