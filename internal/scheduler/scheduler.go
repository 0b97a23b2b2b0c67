package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotedesk/internal/clock"
	draftdomain "github.com/smallbiznis/quotedesk/internal/draft/domain"
	obslogger "github.com/smallbiznis/quotedesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/quotedesk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	jobPurgeDrafts    = "purge_stale_drafts"
	jobExpireSessions = "expire_editor_sessions"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log     *zap.Logger
	Drafts  draftdomain.Service
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  Config              `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	drafts  draftdomain.Service
	metrics *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Drafts == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     p.Config.withDefaults(),
		genID:   p.GenID,
		clock:   p.Clock,
		drafts:  p.Drafts,
		metrics: p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context, run *jobRun) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	run := &jobRun{job: name, runID: s.genID.Generate().String(), startedAt: start}
	s.logJobStart(ctx, run)

	err := fn(ctx, run)
	if err != nil {
		run.IncError()
	}
	s.logJobFinish(ctx, run, s.clock.Now().Sub(start))

	if err == nil {
		s.metrics.RecordJobRun(ctx, name, "ok", s.clock.Now().Sub(start))
		return nil
	}

	// deadline is a soft timeout; the next tick retries
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.RecordJobRun(ctx, name, "timeout", s.clock.Now().Sub(start))
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	s.metrics.RecordJobRun(ctx, name, "error", s.clock.Now().Sub(start))
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context, *jobRun) error
	}{
		{jobPurgeDrafts, s.cfg.DraftRetention > 0, s.PurgeStaleDraftsJob},
		{jobExpireSessions, s.cfg.SessionIdle > 0, s.ExpireEditorSessionsJob},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
		}
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PurgeStaleDraftsJob removes drafts not touched within the retention window.
func (s *Scheduler) PurgeStaleDraftsJob(ctx context.Context, run *jobRun) error {
	purged, err := s.drafts.PurgeOlderThan(ctx, s.cfg.DraftRetention)
	if err != nil {
		return err
	}
	run.AddProcessed(int(purged))
	return nil
}

// ExpireEditorSessionsJob drops editor sessions abandoned without a close.
func (s *Scheduler) ExpireEditorSessionsJob(ctx context.Context, run *jobRun) error {
	expired, err := s.drafts.ExpireIdleSessions(ctx, s.cfg.SessionIdle)
	if err != nil {
		return err
	}
	run.AddProcessed(expired)
	return nil
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
