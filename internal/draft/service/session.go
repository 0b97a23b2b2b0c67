package service

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotedesk/internal/clock"
	"github.com/smallbiznis/quotedesk/internal/draft/domain"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
	"go.uber.org/zap"
)

// session debounces snapshots into draft writes.
//
// idle -> cached(id) on the first successful write, cached -> cleared on Clear.
// Each Schedule restarts the countdown; only the newest snapshot is written. A
// generation counter invalidates timers that were stopped too late to cancel.
type session struct {
	svc *Service

	// writeMu serializes writes so Clear can wait for one in flight.
	writeMu sync.Mutex

	mu          sync.Mutex
	delay       time.Duration
	enabled     bool
	closed      bool
	state       domain.SessionState
	draftID     snowflake.ID
	original    *snowflake.ID
	op          domain.Operation
	pending     *quotedomain.QuoteInput
	touched     time.Time
	timer       clock.Timer
	generation  uint64
	lastWritten []byte
}

func (s *session) Schedule(snapshot quotedomain.QuoteInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state == domain.StateCleared {
		return
	}
	s.touched = s.svc.clock.Now()
	s.pending = &snapshot
	if s.enabled {
		s.restartLocked()
	}
}

func (s *session) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.enabled == enabled {
		return
	}
	s.touched = s.svc.clock.Now()
	s.enabled = enabled
	if !enabled {
		s.stopLocked()
		return
	}
	if s.pending != nil && s.state != domain.StateCleared {
		s.restartLocked()
	}
}

func (s *session) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.touched = s.svc.clock.Now()
	s.stopLocked()
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()

	if snap == nil {
		return nil
	}
	return s.write(ctx, *snap)
}

func (s *session) Clear() {
	s.mu.Lock()
	s.state = domain.StateCleared
	s.pending = nil
	s.stopLocked()
	s.mu.Unlock()

	// wait out a write that already started
	s.writeMu.Lock()
	s.writeMu.Unlock()
}

func (s *session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pending = nil
	s.stopLocked()
}

func (s *session) DraftID() snowflake.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draftID
}

func (s *session) lastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

func (s *session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) restartLocked() {
	s.stopLocked()
	gen := s.generation
	s.timer = s.svc.clock.AfterFunc(s.delay, func() { s.fire(gen) })
}

func (s *session) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

func (s *session) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.closed || !s.enabled || s.pending == nil {
		s.mu.Unlock()
		return
	}
	snap := *s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	// Debounced writes never surface errors; write logs them.
	_ = s.write(context.Background(), snap)
}

func (s *session) write(ctx context.Context, in quotedomain.QuoteInput) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap := domain.NewSnapshot(in)
	encoded, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == domain.StateCleared || s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.lastWritten != nil && bytes.Equal(encoded, s.lastWritten) {
		s.mu.Unlock()
		return nil
	}
	id, original, op := s.draftID, s.original, s.op
	s.mu.Unlock()

	draft, err := s.svc.write(ctx, id, original, op, snap)
	if err != nil {
		s.svc.log.Warn("draft autosave failed",
			zap.String("draft_id", id.String()),
			zap.Error(err),
		)
		s.svc.metrics.RecordDraftFlush(ctx, "error")
		return err
	}
	s.svc.metrics.RecordDraftFlush(ctx, "ok")

	s.mu.Lock()
	if s.state == domain.StateCleared {
		s.mu.Unlock()
		// Cleared while the write was in flight: cleared is terminal, so the row
		// must not outlive the commit or discard that cleared us.
		if err := s.svc.repo.Delete(ctx, draft.ID); err != nil {
			s.svc.log.Warn("draft cleanup after clear failed",
				zap.String("draft_id", draft.ID.String()),
				zap.Error(err),
			)
		}
		return nil
	}
	s.draftID = draft.ID
	s.state = domain.StateCached
	s.lastWritten = encoded
	s.mu.Unlock()
	return nil
}
