package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/quotedesk/internal/client"
	clientdomain "github.com/smallbiznis/quotedesk/internal/client/domain"
	"github.com/smallbiznis/quotedesk/internal/company"
	companydomain "github.com/smallbiznis/quotedesk/internal/company/domain"
	"github.com/smallbiznis/quotedesk/internal/config"
	"github.com/smallbiznis/quotedesk/internal/draft"
	draftdomain "github.com/smallbiznis/quotedesk/internal/draft/domain"
	"github.com/smallbiznis/quotedesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/quotedesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/quotedesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/quotedesk/internal/observability/tracing"
	"github.com/smallbiznis/quotedesk/internal/providers"
	"github.com/smallbiznis/quotedesk/internal/providers/pdf"
	"github.com/smallbiznis/quotedesk/internal/providers/xlsx"
	"github.com/smallbiznis/quotedesk/internal/quote"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
	"github.com/smallbiznis/quotedesk/internal/realtime"
	"github.com/smallbiznis/quotedesk/internal/realtime/pglisten"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	realtime.Module,
	pglisten.Module,
	client.Module,
	company.Module,
	draft.Module,
	quote.Module,
	providers.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	quoteSvc   quotedomain.Service
	draftSvc   draftdomain.Service
	clientSvc  clientdomain.Service
	companySvc companydomain.Service
	pdf        pdf.Provider
	xlsx       xlsx.Exporter
	hub        *realtime.Hub
	notifier   realtime.Notifier
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	QuoteSvc   quotedomain.Service
	DraftSvc   draftdomain.Service
	ClientSvc  clientdomain.Service
	CompanySvc companydomain.Service
	PDF        pdf.Provider
	XLSX       xlsx.Exporter
	Hub        *realtime.Hub
	Notifier   realtime.Notifier
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("http"),
		quoteSvc:   p.QuoteSvc,
		draftSvc:   p.DraftSvc,
		clientSvc:  p.ClientSvc,
		companySvc: p.CompanySvc,
		pdf:        p.PDF,
		xlsx:       p.XLSX,
		hub:        p.Hub,
		notifier:   p.Notifier,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Quotes --------
	api.GET("/quotes", s.ListQuotes)
	api.POST("/quotes", s.CreateQuote)
	api.GET("/quotes/next-number", s.NextQuoteNumber)
	api.GET("/quotes/export.xlsx", s.ExportQuotes)
	api.POST("/quotes/restore", s.RestoreQuote)
	api.GET("/quotes/:id", s.GetQuoteByID)
	api.PUT("/quotes/:id", s.UpdateQuote)
	api.DELETE("/quotes/:id", s.DeleteQuote)
	api.POST("/quotes/:id/clone", s.CloneQuote)
	api.POST("/quotes/:id/renumber", s.RenumberQuote)
	api.GET("/quotes/:id/pdf", s.RenderQuotePDF)

	// -------- Drafts --------
	api.GET("/drafts", s.ListDrafts)
	api.POST("/drafts", s.SaveDraft)
	api.POST("/drafts/discard", s.DiscardDrafts)
	api.POST("/drafts/purge", s.PurgeDrafts)
	api.GET("/drafts/:id", s.RecoverDraft)
	api.PUT("/drafts/:id", s.SaveDraft)
	api.DELETE("/drafts/:id", s.DiscardDraft)

	// -------- Editor sessions --------
	api.POST("/editor/sessions", s.OpenEditorSession)
	api.PUT("/editor/sessions/:sid", s.ScheduleEditorSnapshot)
	api.PATCH("/editor/sessions/:sid", s.ToggleEditorAutosave)
	api.POST("/editor/sessions/:sid/flush", s.FlushEditorSession)
	api.DELETE("/editor/sessions/:sid", s.CloseEditorSession)

	// -------- Clients --------
	api.GET("/clients", s.SearchClients)
	api.POST("/clients", s.UpsertClient)

	// -------- Settings --------
	api.GET("/settings", s.GetSettings)
	api.PUT("/settings", s.SaveSettings)

	api.GET("/events", s.StreamEvents)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			AbortWithError(c, ErrNotFound)
			return
		}

		// static assets (vite)
		if fileExists("./public", c.Request.URL.Path) {
			c.File("./public" + c.Request.URL.Path)
			return
		}

		// SPA fallback
		if fileExists("./public", "/index.html") {
			c.File("./public/index.html")
			return
		}
		AbortWithError(c, ErrNotFound)
	})
}

func fileExists(publicDir, reqPath string) bool {
	clean := filepath.Clean(reqPath)

	// prevent path traversal
	if clean == "." || clean == "/" || clean == ".." {
		return false
	}

	fullPath := filepath.Join(publicDir, clean)

	info, err := os.Stat(fullPath)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
