package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
)

type SaveDraftRequest struct {
	ID              string                 `json:"id,omitempty"`
	OriginalQuoteID string                 `json:"original_quote_id,omitempty"`
	Operation       Operation              `json:"operation"`
	Snapshot        quotedomain.QuoteInput `json:"snapshot"`
}

type DiscardManyRequest struct {
	IDs []string `json:"ids"`
}

type PurgeRequest struct {
	// OlderThan is a Go duration string such as "720h".
	OlderThan string `json:"older_than"`
}

type SessionState string

const (
	StateIdle    SessionState = "idle"
	StateCached  SessionState = "cached"
	StateCleared SessionState = "cleared"
)

type SessionOptions struct {
	// DraftID resumes an existing draft instead of creating one on first write.
	DraftID         snowflake.ID
	OriginalQuoteID *snowflake.ID
	Operation       Operation
	// Delay overrides the configured debounce delay when positive.
	Delay time.Duration
}

// Session debounces editor changes into draft writes.
type Session interface {
	Schedule(snapshot quotedomain.QuoteInput)
	SetEnabled(enabled bool)
	// Flush writes the pending snapshot now, returning the write error if any.
	Flush(ctx context.Context) error
	// Clear moves the session to cleared; nothing is written afterwards.
	Clear()
	Close()
	DraftID() snowflake.ID
	State() SessionState
}

type Service interface {
	Save(ctx context.Context, req SaveDraftRequest) (Draft, error)
	List(ctx context.Context) ([]Draft, error)
	Recover(ctx context.Context, id string) (Draft, error)
	Discard(ctx context.Context, id string) error
	DiscardMany(ctx context.Context, ids []string) error
	// Commit removes the draft after its quote was saved and stops any session on it.
	Commit(ctx context.Context, id string) error
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)

	NewSession(opts SessionOptions) Session
	OpenSession(opts SessionOptions) (string, Session)
	LookupSession(key string) (Session, bool)
	CloseSession(key string)
	// ExpireIdleSessions flushes and closes sessions untouched for longer than idle.
	ExpireIdleSessions(ctx context.Context, idle time.Duration) (int, error)
}

var (
	ErrNotFound         = errors.New("draft_not_found")
	ErrInvalidID        = errors.New("invalid_draft_id")
	ErrInvalidOperation = errors.New("invalid_draft_operation")
	ErrInvalidAge       = errors.New("invalid_purge_age")
	ErrSessionNotFound  = errors.New("session_not_found")
)
