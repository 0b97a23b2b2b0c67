package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/quotedesk/internal/clock"
	"github.com/smallbiznis/quotedesk/internal/config"
	"github.com/smallbiznis/quotedesk/internal/draft/domain"
	"github.com/smallbiznis/quotedesk/internal/observability/metrics"
	"github.com/smallbiznis/quotedesk/internal/realtime"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Autosave *config.AutosaveConfigHolder
	Notifier realtime.Notifier
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	autosave *config.AutosaveConfigHolder
	notifier realtime.Notifier
	metrics  *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*session
}

func New(p Params) domain.Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = realtime.NopNotifier{}
	}
	return &Service{
		log:      p.Log.Named("draft.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		autosave: p.Autosave,
		notifier: notifier,
		metrics:  p.Metrics,
		sessions: make(map[string]*session),
	}
}

func (s *Service) Save(ctx context.Context, req domain.SaveDraftRequest) (domain.Draft, error) {
	var id snowflake.ID
	if raw := strings.TrimSpace(req.ID); raw != "" {
		parsed, err := parseID(raw)
		if err != nil {
			return domain.Draft{}, err
		}
		id = parsed
	}

	var original *snowflake.ID
	if raw := strings.TrimSpace(req.OriginalQuoteID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil || parsed == 0 {
			return domain.Draft{}, domain.ErrInvalidID
		}
		original = &parsed
	}

	op := req.Operation
	if op == "" {
		op = domain.OperationCreate
	}
	if !op.Valid() {
		return domain.Draft{}, domain.ErrInvalidOperation
	}

	return s.write(ctx, id, original, op, domain.NewSnapshot(req.Snapshot))
}

// write upserts by id, generating one when id is zero.
func (s *Service) write(ctx context.Context, id snowflake.ID, original *snowflake.ID, op domain.Operation, snap domain.Snapshot) (domain.Draft, error) {
	now := s.clock.Now()
	created := id == 0
	if created {
		id = s.genID.Generate()
	}

	draft := domain.Draft{
		ID:              id,
		OriginalQuoteID: original,
		Operation:       op,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	draft.SetSnapshot(snap)

	if err := s.repo.Upsert(ctx, &draft); err != nil {
		return domain.Draft{}, err
	}

	kind := realtime.KindUpdated
	if created {
		kind = realtime.KindCreated
	}
	s.notifier.Changed(ctx, realtime.TopicDrafts, kind, id.String())
	return draft, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Draft, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	drafts := make([]domain.Draft, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		drafts = append(drafts, *item)
	}
	return drafts, nil
}

func (s *Service) Recover(ctx context.Context, id string) (domain.Draft, error) {
	draftID, err := parseID(id)
	if err != nil {
		return domain.Draft{}, err
	}
	item, err := s.repo.FindByID(ctx, draftID)
	if err != nil {
		return domain.Draft{}, err
	}
	if item == nil {
		return domain.Draft{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Discard(ctx context.Context, id string) error {
	return s.DiscardMany(ctx, []string{id})
}

// DiscardMany is idempotent: unknown ids are ignored.
func (s *Service) DiscardMany(ctx context.Context, ids []string) error {
	parsed := make([]snowflake.ID, 0, len(ids))
	for _, raw := range ids {
		id, err := parseID(raw)
		if err != nil {
			return err
		}
		parsed = append(parsed, id)
	}
	if len(parsed) == 0 {
		return nil
	}

	for _, id := range parsed {
		s.clearSessionsFor(id)
	}
	if err := s.repo.Delete(ctx, parsed...); err != nil {
		return err
	}
	for _, id := range parsed {
		s.notifier.Changed(ctx, realtime.TopicDrafts, realtime.KindDeleted, id.String())
	}
	return nil
}

func (s *Service) Commit(ctx context.Context, id string) error {
	draftID, err := parseID(id)
	if err != nil {
		return err
	}

	s.clearSessionsFor(draftID)
	if err := s.repo.Delete(ctx, draftID); err != nil {
		return err
	}
	s.metrics.RecordDraftCommit(ctx)
	s.notifier.Changed(ctx, realtime.TopicDrafts, realtime.KindDeleted, draftID.String())
	return nil
}

// PurgeOlderThan removes drafts not touched within age. It is only ever run on request.
func (s *Service) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, domain.ErrInvalidAge
	}
	n, err := s.repo.DeleteOlderThan(ctx, s.clock.Now().Add(-age))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("purged stale drafts", zap.Int64("count", n), zap.Duration("older_than", age))
		s.notifier.Notify(ctx, realtime.LevelInfo, fmt.Sprintf("Purged %d stale drafts", n))
	}
	return n, nil
}

func (s *Service) NewSession(opts domain.SessionOptions) domain.Session {
	return s.newSession(opts)
}

// OpenSession creates a session tracked by the service under a ULID key.
func (s *Service) OpenSession(opts domain.SessionOptions) (string, domain.Session) {
	sess := s.newSession(opts)
	key := ulid.Make().String()

	s.mu.Lock()
	s.sessions[key] = sess
	s.mu.Unlock()
	return key, sess
}

func (s *Service) LookupSession(key string) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return nil, false
	}
	return sess, true
}

func (s *Service) CloseSession(key string) {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()
	if ok {
		sess.Close()
	}
}

// ExpireIdleSessions flushes and closes tracked sessions untouched for longer than
// idle. Their drafts stay recoverable.
func (s *Service) ExpireIdleSessions(ctx context.Context, idle time.Duration) (int, error) {
	if idle <= 0 {
		return 0, domain.ErrInvalidAge
	}
	cutoff := s.clock.Now().Add(-idle)

	s.mu.Lock()
	expired := make(map[string]*session)
	for key, sess := range s.sessions {
		if sess.lastTouched().Before(cutoff) {
			expired[key] = sess
			delete(s.sessions, key)
		}
	}
	s.mu.Unlock()

	for key, sess := range expired {
		if err := sess.Flush(ctx); err != nil {
			s.log.Warn("flush of idle editor session failed",
				zap.String("session", key),
				zap.Error(err),
			)
		}
		sess.Close()
	}
	if len(expired) > 0 {
		s.log.Info("expired idle editor sessions", zap.Int("count", len(expired)), zap.Duration("idle", idle))
	}
	return len(expired), nil
}

func (s *Service) newSession(opts domain.SessionOptions) *session {
	cfg := config.DefaultAutosaveConfig()
	if s.autosave != nil {
		cfg = s.autosave.Get()
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = cfg.Delay
	}
	op := opts.Operation
	if !op.Valid() {
		op = domain.OperationCreate
	}

	state := domain.StateIdle
	if opts.DraftID != 0 {
		state = domain.StateCached
	}
	return &session{
		svc:      s,
		delay:    delay,
		enabled:  cfg.Enabled,
		state:    state,
		draftID:  opts.DraftID,
		original: opts.OriginalQuoteID,
		op:       op,
		touched:  s.clock.Now(),
	}
}

// clearSessionsFor clears and forgets every tracked session writing draft id.
func (s *Service) clearSessionsFor(id snowflake.ID) {
	s.mu.Lock()
	var matched []*session
	for key, sess := range s.sessions {
		if sess.DraftID() == id {
			matched = append(matched, sess)
			delete(s.sessions, key)
		}
	}
	s.mu.Unlock()

	for _, sess := range matched {
		sess.Clear()
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
