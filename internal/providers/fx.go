package providers

import (
	"github.com/smallbiznis/quotedesk/internal/providers/pdf"
	"github.com/smallbiznis/quotedesk/internal/providers/xlsx"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	pdf.Module,
	xlsx.Module,
)
