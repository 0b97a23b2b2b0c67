package pdf

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	companydomain "github.com/smallbiznis/quotedesk/internal/company/domain"
	"go.uber.org/zap"
)

func (p *PDFProvider) RenderQuote(ctx context.Context, doc QuoteDocument) (Rendered, error) {
	view := BuildQuoteView(doc.Quote)
	company := doc.Company
	sizes := fontSizes(company)

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	// Company line and column headings repeat on every page.
	if err := m.RegisterHeader(
		p.companyRow(company, sizes),
		row.New(8).Add(
			text.NewCol(1, "#", props.Text{Style: fontstyle.Bold, Size: sizes.table}),
			text.NewCol(5, "Description", props.Text{Style: fontstyle.Bold, Size: sizes.table}),
			text.NewCol(1, "Unit", props.Text{Style: fontstyle.Bold, Size: sizes.table, Align: align.Center}),
			text.NewCol(1, "Qty", props.Text{Style: fontstyle.Bold, Size: sizes.table, Align: align.Right}),
			text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: sizes.table, Align: align.Right}),
			text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: sizes.table, Align: align.Right}),
		),
	); err != nil {
		return Rendered{}, err
	}

	m.AddRow(12,
		text.NewCol(12, "Quote "+view.Key, props.Text{
			Size:  sizes.header + 4,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Date: "+view.Date, props.Text{Size: sizes.body}),
			text.New("Subject: "+view.Subject, props.Text{Top: 5, Size: sizes.body}),
			text.New("Work site: "+view.Location, props.Text{Top: 10, Size: sizes.body}),
		),
		col.New(6).Add(
			text.New("Client", props.Text{Style: fontstyle.Bold, Size: sizes.body}),
			text.New(view.ClientName, props.Text{Top: 5, Size: sizes.body}),
		),
	)

	for _, l := range view.Lines {
		m.AddRow(7,
			text.NewCol(1, strconv.Itoa(l.Index), props.Text{Size: sizes.table}),
			text.NewCol(5, l.Description, props.Text{Size: sizes.table}),
			text.NewCol(1, l.Unit, props.Text{Size: sizes.table, Align: align.Center}),
			text.NewCol(1, l.Quantity, props.Text{Size: sizes.table, Align: align.Right}),
			text.NewCol(2, l.UnitPrice, props.Text{Size: sizes.table, Align: align.Right}),
			text.NewCol(2, l.Amount, props.Text{Size: sizes.table, Align: align.Right}),
		)
	}

	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Subtotal", props.Text{Size: sizes.body, Top: 2}),
		text.NewCol(2, view.Subtotal, props.Text{Size: sizes.body, Top: 2, Align: align.Right}),
	)
	if view.ShowDiscount {
		m.AddRow(7,
			col.New(8),
			text.NewCol(2, view.DiscountText, props.Text{Size: sizes.body}),
			text.NewCol(2, "-"+view.Discount, props.Text{Size: sizes.body, Align: align.Right}),
		)
	}
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Style: fontstyle.Bold, Size: sizes.body}),
		text.NewCol(2, view.Total, props.Text{Style: fontstyle.Bold, Size: sizes.body, Align: align.Right}),
	)

	if view.Payment != "" {
		m.AddRow(12,
			text.NewCol(12, "Payment: "+view.Payment, props.Text{Size: sizes.body, Top: 4}),
		)
	}
	if view.Notes != "" {
		m.AddRow(20,
			text.NewCol(12, view.Notes, props.Text{Size: sizes.body, Top: 2}),
		)
	}

	generated, err := m.Generate()
	if err != nil {
		return Rendered{}, err
	}
	p.metrics.RecordExport(ctx, "pdf")

	return Rendered{
		Filename: Filename(doc.Quote),
		Content:  generated.GetBytes(),
	}, nil
}

func (p *PDFProvider) companyRow(company companydomain.Settings, sizes fontSet) core.Row {
	details := col.New(9).Add(
		text.New(company.Name, props.Text{Style: fontstyle.Bold, Size: sizes.header}),
		text.New(joinNonEmpty(" - ", company.Address, joinNonEmpty(" ", company.PostalCode, company.City), wrapProvince(company.Province)),
			props.Text{Top: 7, Size: sizes.body}),
		text.New(joinNonEmpty(" | ", prefixed("VAT ", company.VATNumber), company.Phone, company.Email),
			props.Text{Top: 12, Size: sizes.body}),
	)

	logo := p.logoPath(company)
	if logo == "" {
		return row.New(24).Add(details, col.New(3))
	}
	return row.New(24).Add(
		details,
		image.NewFromFileCol(3, logo, props.Rect{Center: true, Percent: 80}),
	)
}

// logoPath falls back to the configured default and skips files that do not exist.
func (p *PDFProvider) logoPath(company companydomain.Settings) string {
	for _, candidate := range []string{company.LogoPath, p.defaultLogo} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err != nil {
			p.log.Debug("logo not readable", zap.String("path", candidate), zap.Error(err))
			continue
		}
		return candidate
	}
	return ""
}

type fontSet struct {
	header, body, table float64
}

func fontSizes(company companydomain.Settings) fontSet {
	defaults := companydomain.DefaultSettings()
	pick := func(v, def float64) float64 {
		if v <= 0 {
			return def
		}
		return v
	}
	return fontSet{
		header: pick(company.HeaderFontSize, defaults.HeaderFontSize),
		body:   pick(company.BodyFontSize, defaults.BodyFontSize),
		table:  pick(company.TableFontSize, defaults.TableFontSize),
	}
}

func prefixed(prefix, v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return prefix + v
}
