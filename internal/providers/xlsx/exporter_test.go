package xlsx

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	quotedomain "github.com/smallbiznis/quotedesk/internal/quote/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestExportQuotes(t *testing.T) {
	e := New(Params{Log: zap.NewNop()})
	quotes := []quotedomain.Quote{
		{
			Number:        3,
			Year:          2025,
			ClientName:    "Mario Rossi",
			Subject:       "Bagno",
			City:          "Milano",
			Subtotal:      decimal.RequireFromString("25"),
			DiscountValue: decimal.RequireFromString("2.5"),
			Total:         decimal.RequireFromString("22.5"),
			CreatedAt:     time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC),
		},
		{Number: 1, Year: 2024, ClientName: "Bianchi", Total: decimal.RequireFromString("10.005")},
	}

	name, content, err := e.ExportQuotes(context.Background(), quotes)
	require.NoError(t, err)
	assert.Equal(t, "quotes.xlsx", name)

	xl, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows(sheetName, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Key", rows[0][0])
	assert.Equal(t, []string{"03-2025", "3", "2025", "Mario Rossi", "Bagno", "Milano", "25", "2.5", "22.5", "2025-05-06"}, rows[1])
	assert.Equal(t, "01-2024", rows[2][0])
	assert.Equal(t, "10.01", rows[2][8])
}

func TestExportEmptyList(t *testing.T) {
	e := New(Params{Log: zap.NewNop()})

	_, content, err := e.ExportQuotes(context.Background(), nil)
	require.NoError(t, err)

	xl, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
