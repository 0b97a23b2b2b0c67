package draft

import (
	"github.com/smallbiznis/quotedesk/internal/draft/repository"
	"github.com/smallbiznis/quotedesk/internal/draft/service"
	"go.uber.org/fx"
)

var Module = fx.Module("draft.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
