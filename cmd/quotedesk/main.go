package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotedesk/internal/clock"
	"github.com/smallbiznis/quotedesk/internal/config"
	"github.com/smallbiznis/quotedesk/internal/migration"
	"github.com/smallbiznis/quotedesk/internal/observability"
	"github.com/smallbiznis/quotedesk/internal/scheduler"
	"github.com/smallbiznis/quotedesk/internal/server"
	"github.com/smallbiznis/quotedesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema before anything touches the tables.
		migration.Module,

		server.Module,

		// Functional Domains
		scheduler.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
