package xlsx

import (
	"context"
	"fmt"

	"github.com/smallbiznis/quotedesk/internal/assembly"
	"github.com/smallbiznis/quotedesk/internal/observability/metrics"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sheetName = "Quotes"

var Module = fx.Module("providers.xlsx",
	fx.Provide(New),
)

var header = []any{
	"Key", "Number", "Year", "Client", "Subject", "City",
	"Subtotal", "Discount", "Total", "Created",
}

type Exporter interface {
	ExportQuotes(ctx context.Context, quotes []quotedomain.Quote) (filename string, content []byte, err error)
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type exporter struct {
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(p Params) Exporter {
	return &exporter{log: p.Log.Named("xlsx"), metrics: p.Metrics}
}

func (e *exporter) ExportQuotes(ctx context.Context, quotes []quotedomain.Quote) (string, []byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), sheetName); err != nil {
		return "", nil, err
	}
	if err := xl.SetSheetRow(sheetName, "A1", &header); err != nil {
		return "", nil, err
	}

	bold, err := xl.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", nil, err
	}
	money, err := xl.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return "", nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := xl.SetCellStyle(sheetName, "A1", lastCol+"1", bold); err != nil {
		return "", nil, err
	}

	for i, q := range quotes {
		rowNum := i + 2
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return "", nil, err
		}
		record := []any{
			q.Key(),
			q.Number,
			q.Year,
			q.ClientName,
			q.Subject,
			q.City,
			assembly.RoundMoney(q.Subtotal).InexactFloat64(),
			assembly.RoundMoney(q.DiscountValue).InexactFloat64(),
			assembly.RoundMoney(q.Total).InexactFloat64(),
			q.CreatedAt.Format("2006-01-02"),
		}
		if err := xl.SetSheetRow(sheetName, cell, &record); err != nil {
			return "", nil, err
		}
		if err := xl.SetCellStyle(sheetName, fmt.Sprintf("G%d", rowNum), fmt.Sprintf("I%d", rowNum), money); err != nil {
			return "", nil, err
		}
	}

	_ = xl.SetColWidth(sheetName, "A", "A", 10)
	_ = xl.SetColWidth(sheetName, "D", "E", 32)
	_ = xl.SetColWidth(sheetName, "G", "I", 14)
	if len(quotes) > 0 {
		ref := fmt.Sprintf("A1:%s%d", lastCol, len(quotes)+1)
		if err := xl.AutoFilter(sheetName, ref, nil); err != nil {
			e.log.Debug("autofilter skipped", zap.Error(err))
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, err
	}
	e.metrics.RecordExport(ctx, "xlsx")
	return "quotes.xlsx", buf.Bytes(), nil
}
