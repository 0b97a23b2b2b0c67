package realtime

import (
	"context"

	"github.com/smallbiznis/quotedesk/internal/clock"
	"github.com/smallbiznis/quotedesk/internal/observability/logger"
	"github.com/smallbiznis/quotedesk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier is how services report user-facing outcomes and record changes.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
	Changed(ctx context.Context, entity, kind, id string)
}

type NotifierParams struct {
	fx.In

	Hub     *Hub
	Clock   clock.Clock
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type hubNotifier struct {
	hub     *Hub
	clock   clock.Clock
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewNotifier(p NotifierParams) Notifier {
	return &hubNotifier{
		hub:     p.Hub,
		clock:   p.Clock,
		log:     p.Log.Named("notifier"),
		metrics: p.Metrics,
	}
}

func (n *hubNotifier) Notify(ctx context.Context, level Level, message string) {
	if message == "" {
		return
	}
	logger.WithContext(ctx, n.log).Debug("notification",
		zap.String("level", string(level)),
		zap.String("message", message),
	)
	n.metrics.RecordNotification(ctx, string(level))
	n.hub.Publish(Event{
		Kind:    KindNotification,
		Entity:  TopicNotifications,
		Level:   level,
		Message: message,
		Source:  SourceApp,
		At:      n.clock.Now(),
	})
}

func (n *hubNotifier) Changed(ctx context.Context, entity, kind, id string) {
	n.hub.Publish(Event{
		Kind:   kind,
		Entity: entity,
		ID:     id,
		Source: SourceApp,
		At:     n.clock.Now(),
	})
}

// NopNotifier discards everything.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Level, string)         {}
func (NopNotifier) Changed(context.Context, string, string, string) {}
