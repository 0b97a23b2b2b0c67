// Package pglisten forwards postgres NOTIFY payloads into the realtime hub, so
// changes written by other processes (or by hand) reach connected clients.
package pglisten

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/smallbiznis/quotedesk/internal/clock"
	"github.com/smallbiznis/quotedesk/internal/config"
	"github.com/smallbiznis/quotedesk/internal/realtime"
	"github.com/smallbiznis/quotedesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const reconnectDelay = 2 * time.Second

var ErrInvalidPayload = errors.New("invalid_notify_payload")

type payload struct {
	Table string `json:"table"`
	Op    string `json:"op"`
	ID    string `json:"id"`
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	AppCfg    config.Config
	DBCfg     db.Config
	Hub       *realtime.Hub
	Clock     clock.Clock
	Log       *zap.Logger
}

type Listener struct {
	dsn     string
	channel string
	hub     *realtime.Hub
	clock   clock.Clock
	log     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(p Params) *Listener {
	l := &Listener{
		dsn:     p.DBCfg.PostgresDSN(),
		channel: p.AppCfg.DBNotifyChannel,
		hub:     p.Hub,
		clock:   p.Clock,
		log:     p.Log.Named("pglisten"),
	}
	if !p.AppCfg.DBNotifyEnabled || p.DBCfg.Type != db.TypePostgres {
		return l
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			l.cancel = cancel
			l.wg.Add(1)
			go l.run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			if l.cancel != nil {
				l.cancel()
			}
			l.wg.Wait()
			return nil
		},
	})
	return l
}

func (l *Listener) run(ctx context.Context) {
	defer l.wg.Done()
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.log.Warn("listen connection lost", zap.Error(err), zap.Duration("retry_in", reconnectDelay))
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return err
	}
	l.log.Info("listening for database changes", zap.String("channel", l.channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		event, err := Decode(n.Payload, l.clock.Now())
		if err != nil {
			l.log.Debug("ignoring notification", zap.String("payload", n.Payload), zap.Error(err))
			continue
		}
		l.hub.Publish(event)
	}
}

// Decode turns a trigger payload into a hub event.
func Decode(raw string, at time.Time) (realtime.Event, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return realtime.Event{}, ErrInvalidPayload
	}

	topic := topicForTable(p.Table)
	kind := kindForOp(p.Op)
	if topic == "" || kind == "" {
		return realtime.Event{}, ErrInvalidPayload
	}
	return realtime.Event{
		Kind:   kind,
		Entity: topic,
		ID:     p.ID,
		Source: realtime.SourceDB,
		At:     at,
	}, nil
}

func topicForTable(table string) string {
	switch strings.ToLower(table) {
	case "quotes", "quote_lines":
		return realtime.TopicQuotes
	case "quote_drafts":
		return realtime.TopicDrafts
	case "clients":
		return realtime.TopicClients
	case "company_settings":
		return realtime.TopicSettings
	}
	return ""
}

func kindForOp(op string) string {
	switch strings.ToUpper(op) {
	case "INSERT":
		return realtime.KindCreated
	case "UPDATE":
		return realtime.KindUpdated
	case "DELETE":
		return realtime.KindDeleted
	}
	return ""
}
