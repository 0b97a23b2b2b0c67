package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/quotedesk/internal/assembly"
	"github.com/smallbiznis/quotedesk/internal/clock"
	"github.com/smallbiznis/quotedesk/internal/config"
	"github.com/smallbiznis/quotedesk/internal/draft/domain"
	"github.com/smallbiznis/quotedesk/internal/draft/repository"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
	"github.com/smallbiznis/quotedesk/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

const testDelay = 2 * time.Second

// countingRepo counts upserts and can be told to fail them.
type countingRepo struct {
	domain.Repository

	mu      sync.Mutex
	upserts int
	fail    bool
}

func (r *countingRepo) Upsert(ctx context.Context, d *domain.Draft) error {
	r.mu.Lock()
	r.upserts++
	fail := r.fail
	r.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return r.Repository.Upsert(ctx, d)
}

func (r *countingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upserts
}

// gatedRepo holds the next Upsert until released.
type gatedRepo struct {
	domain.Repository

	mu      sync.Mutex
	entered chan struct{}
	release chan struct{}
}

func (r *gatedRepo) hold() (<-chan struct{}, chan<- struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entered = make(chan struct{})
	r.release = make(chan struct{})
	return r.entered, r.release
}

func (r *gatedRepo) Upsert(ctx context.Context, d *domain.Draft) error {
	r.mu.Lock()
	entered, release := r.entered, r.release
	r.entered, r.release = nil, nil
	r.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}
	return r.Repository.Upsert(ctx, d)
}

type fixture struct {
	svc   *Service
	repo  *countingRepo
	clock *clock.FakeClock
	logs  *observer.ObservedLogs
}

func setup(t *testing.T) fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Draft{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	fc := clock.NewFakeClock(time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC))
	repo := &countingRepo{Repository: repository.NewGormRepository(db)}

	svc := New(Params{
		Log:      zap.New(core),
		GenID:    node,
		Clock:    fc,
		Repo:     repo,
		Autosave: config.NewStaticAutosaveConfigHolder(config.AutosaveConfig{Enabled: true, Delay: testDelay}),
		Notifier: realtime.NopNotifier{},
	}).(*Service)

	return fixture{svc: svc, repo: repo, clock: fc, logs: logs}
}

func snapshot(subject string) quotedomain.QuoteInput {
	return quotedomain.QuoteInput{
		Client:  quotedomain.ClientData{Name: "Bianchi"},
		Subject: subject,
		Lines: []quotedomain.LineInput{{
			Description: "Tinteggiatura",
			Unit:        quotedomain.UnitSquareMeter,
			Quantity:    assembly.Raw("12"),
			UnitPrice:   assembly.Raw("8,50"),
		}},
	}
}

func TestSessionDebouncesToLatestSnapshot(t *testing.T) {
	f := setup(t)
	sess := f.svc.NewSession(domain.SessionOptions{})
	defer sess.Close()

	sess.Schedule(snapshot("a"))
	f.clock.Advance(time.Second)
	sess.Schedule(snapshot("ab"))
	f.clock.Advance(1500 * time.Millisecond)

	assert.Equal(t, 0, f.repo.count(), "countdown restarts on every change")
	assert.Equal(t, 1, f.clock.Pending())
	assert.Equal(t, domain.StateIdle, sess.State())

	f.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, 1, f.repo.count())
	assert.Equal(t, domain.StateCached, sess.State())

	draft, err := f.svc.Recover(context.Background(), sess.DraftID().String())
	require.NoError(t, err)
	assert.Equal(t, "ab", draft.Subject)
	assert.True(t, draft.Total.Equal(decimal.NewFromInt(102)))
}

func TestSessionSkipsUnchangedSnapshotAndReusesID(t *testing.T) {
	f := setup(t)
	sess := f.svc.NewSession(domain.SessionOptions{})
	defer sess.Close()

	sess.Schedule(snapshot("bagno"))
	f.clock.Advance(testDelay)
	require.Equal(t, 1, f.repo.count())
	firstID := sess.DraftID()

	sess.Schedule(snapshot("bagno"))
	f.clock.Advance(testDelay)
	assert.Equal(t, 1, f.repo.count(), "unchanged snapshot must not be written again")

	sess.Schedule(snapshot("bagno e cucina"))
	f.clock.Advance(testDelay)
	assert.Equal(t, 2, f.repo.count())
	assert.Equal(t, firstID, sess.DraftID())

	drafts, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestSessionDisableCancelsPendingWrite(t *testing.T) {
	f := setup(t)
	sess := f.svc.NewSession(domain.SessionOptions{})
	defer sess.Close()

	sess.Schedule(snapshot("x"))
	sess.SetEnabled(false)
	assert.Equal(t, 0, f.clock.Pending())

	f.clock.Advance(10 * testDelay)
	assert.Equal(t, 0, f.repo.count())

	sess.Schedule(snapshot("xy"))
	f.clock.Advance(10 * testDelay)
	assert.Equal(t, 0, f.repo.count())

	sess.SetEnabled(true)
	f.clock.Advance(testDelay)
	assert.Equal(t, 1, f.repo.count())
}

func TestSessionCloseCancelsTimer(t *testing.T) {
	f := setup(t)
	sess := f.svc.NewSession(domain.SessionOptions{})

	sess.Schedule(snapshot("x"))
	sess.Close()
	assert.Equal(t, 0, f.clock.Pending())

	f.clock.Advance(testDelay)
	sess.Schedule(snapshot("y"))
	f.clock.Advance(testDelay)
	assert.Equal(t, 0, f.repo.count())
}

func TestSessionFlushFailureIsLoggedOnly(t *testing.T) {
	f := setup(t)
	f.repo.fail = true
	sess := f.svc.NewSession(domain.SessionOptions{})
	defer sess.Close()

	sess.Schedule(snapshot("x"))
	assert.NotPanics(t, func() { f.clock.Advance(testDelay) })

	assert.Equal(t, 1, f.repo.count())
	assert.Equal(t, domain.StateIdle, sess.State())
	assert.Equal(t, 1, f.logs.FilterMessage("draft autosave failed").Len())

	// a later change retries
	f.repo.fail = false
	sess.Schedule(snapshot("x"))
	f.clock.Advance(testDelay)
	assert.Equal(t, domain.StateCached, sess.State())
}

func TestDraftLifecycleCreateFlushCommit(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	key, sess := f.svc.OpenSession(domain.SessionOptions{Operation: domain.OperationCreate})
	defer f.svc.CloseSession(key)

	sess.Schedule(snapshot("tetto"))
	f.clock.Advance(testDelay)
	id := sess.DraftID().String()

	drafts, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, id, drafts[0].ID.String())

	require.NoError(t, f.svc.Commit(ctx, id))
	assert.Equal(t, domain.StateCleared, sess.State())
	_, ok := f.svc.LookupSession(key)
	assert.False(t, ok, "committed sessions are forgotten")

	_, err = f.svc.Recover(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// nothing is written once cleared
	sess.Schedule(snapshot("tetto 2"))
	f.clock.Advance(testDelay)
	require.NoError(t, sess.Flush(ctx))
	_, err = f.svc.Recover(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionResumesExistingDraft(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	saved, err := f.svc.Save(ctx, domain.SaveDraftRequest{Snapshot: snapshot("v1")})
	require.NoError(t, err)

	sess := f.svc.NewSession(domain.SessionOptions{DraftID: saved.ID, Operation: domain.OperationModify})
	defer sess.Close()
	assert.Equal(t, domain.StateCached, sess.State())

	sess.Schedule(snapshot("v2"))
	require.NoError(t, sess.Flush(ctx))

	got, err := f.svc.Recover(ctx, saved.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Subject)
	assert.Equal(t, domain.OperationModify, got.Operation)
}

func TestDiscardManyIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.svc.Save(ctx, domain.SaveDraftRequest{Snapshot: snapshot("a")})
	require.NoError(t, err)
	b, err := f.svc.Save(ctx, domain.SaveDraftRequest{Snapshot: snapshot("b")})
	require.NoError(t, err)

	ids := []string{a.ID.String(), b.ID.String()}
	require.NoError(t, f.svc.DiscardMany(ctx, ids))
	require.NoError(t, f.svc.DiscardMany(ctx, ids))

	drafts, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, drafts)

	assert.ErrorIs(t, f.svc.Discard(ctx, "abc"), domain.ErrInvalidID)
	_, err = f.svc.Recover(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestSaveRejectsUnknownOperation(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Save(context.Background(), domain.SaveDraftRequest{Operation: "merge"})
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestPurgeOlderThan(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, domain.SaveDraftRequest{Snapshot: snapshot("old")})
	require.NoError(t, err)
	f.clock.Advance(48 * time.Hour)
	_, err = f.svc.Save(ctx, domain.SaveDraftRequest{Snapshot: snapshot("fresh")})
	require.NoError(t, err)

	n, err := f.svc.PurgeOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	drafts, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "fresh", drafts[0].Subject)

	_, err = f.svc.PurgeOlderThan(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAge)
}

func TestCommitDuringInFlightWriteStaysCleared(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	gate := &gatedRepo{Repository: f.svc.repo}
	f.svc.repo = gate

	key, sess := f.svc.OpenSession(domain.SessionOptions{})
	defer f.svc.CloseSession(key)

	sess.Schedule(snapshot("v1"))
	require.NoError(t, sess.Flush(ctx))
	id := sess.DraftID().String()

	entered, release := gate.hold()
	sess.Schedule(snapshot("v2"))
	flushed := make(chan error, 1)
	go func() { flushed <- sess.Flush(ctx) }()
	<-entered

	committed := make(chan error, 1)
	go func() { committed <- f.svc.Commit(ctx, id) }()
	require.Eventually(t, func() bool {
		return sess.State() == domain.StateCleared
	}, time.Second, time.Millisecond)
	close(release)

	require.NoError(t, <-flushed)
	require.NoError(t, <-committed)
	assert.Equal(t, domain.StateCleared, sess.State())

	drafts, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, drafts)

	sess.Schedule(snapshot("v3"))
	require.NoError(t, sess.Flush(ctx))
	_, err = f.svc.Recover(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExpireIdleSessionsFlushesAndForgets(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	idleKey, idle := f.svc.OpenSession(domain.SessionOptions{})
	idle.SetEnabled(false)
	idle.Schedule(snapshot("left open"))

	f.clock.Advance(31 * time.Minute)
	activeKey, active := f.svc.OpenSession(domain.SessionOptions{})
	defer f.svc.CloseSession(activeKey)
	active.Schedule(snapshot("still typing"))

	n, err := f.svc.ExpireIdleSessions(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok := f.svc.LookupSession(idleKey)
	assert.False(t, ok)
	_, ok = f.svc.LookupSession(activeKey)
	assert.True(t, ok)

	draft, err := f.svc.Recover(ctx, idle.DraftID().String())
	require.NoError(t, err)
	assert.Equal(t, "left open", draft.Subject)

	_, err = f.svc.ExpireIdleSessions(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAge)
}
