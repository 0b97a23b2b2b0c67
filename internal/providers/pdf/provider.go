package pdf

import (
	"context"

	companydomain "github.com/smallbiznis/quotedesk/internal/company/domain"
	"github.com/smallbiznis/quotedesk/internal/config"
	"github.com/smallbiznis/quotedesk/internal/observability/metrics"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

type QuoteDocument struct {
	Company companydomain.Settings
	Quote   quotedomain.Quote
}

type Rendered struct {
	Filename string
	Content  []byte
}

type Provider interface {
	RenderQuote(ctx context.Context, doc QuoteDocument) (Rendered, error)
}

type Params struct {
	fx.In

	Cfg     config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type PDFProvider struct {
	defaultLogo string
	log         *zap.Logger
	metrics     *metrics.Metrics
}

func New(p Params) Provider {
	return &PDFProvider{
		defaultLogo: p.Cfg.PDFLogoPath,
		log:         p.Log.Named("pdf"),
		metrics:     p.Metrics,
	}
}
