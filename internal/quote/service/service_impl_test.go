package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/quotedesk/internal/assembly"
	clientdomain "github.com/smallbiznis/quotedesk/internal/client/domain"
	clientrepo "github.com/smallbiznis/quotedesk/internal/client/repository"
	clientservice "github.com/smallbiznis/quotedesk/internal/client/service"
	"github.com/smallbiznis/quotedesk/internal/clock"
	companydomain "github.com/smallbiznis/quotedesk/internal/company/domain"
	companyrepo "github.com/smallbiznis/quotedesk/internal/company/repository"
	companyservice "github.com/smallbiznis/quotedesk/internal/company/service"
	"github.com/smallbiznis/quotedesk/internal/config"
	draftdomain "github.com/smallbiznis/quotedesk/internal/draft/domain"
	draftrepo "github.com/smallbiznis/quotedesk/internal/draft/repository"
	draftservice "github.com/smallbiznis/quotedesk/internal/draft/service"
	"github.com/smallbiznis/quotedesk/internal/numbering"
	"github.com/smallbiznis/quotedesk/internal/quote/domain"
	"github.com/smallbiznis/quotedesk/internal/quote/repository"
	"github.com/smallbiznis/quotedesk/internal/realtime"
	"github.com/smallbiznis/quotedesk/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, level realtime.Level, message string) {
	m.Called(level, message)
}

func (m *mockNotifier) Changed(ctx context.Context, entity, kind, id string) {
	m.Called(entity, kind, id)
}

type fixture struct {
	svc     domain.Service
	drafts  draftdomain.Service
	clients clientdomain.Service
	company companydomain.Service
	clock   *clock.FakeClock
}

func setup(t *testing.T, notifier realtime.Notifier) fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&companydomain.Settings{},
		&domain.Quote{},
		&domain.LineItem{},
		&draftdomain.Draft{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	fc := clock.NewFakeClock(time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC))
	if notifier == nil {
		notifier = realtime.NopNotifier{}
	}

	clients := clientservice.New(clientservice.Params{
		DB: db, Log: log, GenID: node, Clock: fc, Repo: clientrepo.Provide(),
	})
	company := companyservice.New(companyservice.Params{
		DB: db, Log: log, Clock: fc, Repo: companyrepo.Provide(),
	})
	drafts := draftservice.New(draftservice.Params{
		Log:      log,
		GenID:    node,
		Clock:    fc,
		Repo:     draftrepo.NewGormRepository(db),
		Autosave: config.NewStaticAutosaveConfigHolder(config.DefaultAutosaveConfig()),
		Notifier: realtime.NopNotifier{},
	})

	svc := New(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Clock:    fc,
		Repo:     repository.Provide(),
		Clients:  clients,
		Company:  company,
		Drafts:   drafts,
		Notifier: notifier,
	})
	return fixture{svc: svc, drafts: drafts, clients: clients, company: company, clock: fc}
}

func line(desc string, unit domain.Unit, qty, price string) domain.LineInput {
	return domain.LineInput{
		Description: desc,
		Unit:        unit,
		Quantity:    assembly.Raw(qty),
		UnitPrice:   assembly.Raw(price),
	}
}

func sampleInput(client string) domain.QuoteInput {
	return domain.QuoteInput{
		Client:   domain.ClientData{Name: client, City: "Milano"},
		Location: domain.WorkLocation{Address: "Via Roma 1", City: "Milano"},
		Subject:  "Rifacimento bagno",
		Lines: []domain.LineInput{
			line("Demolizione", domain.UnitLumpSum, "2", "10"),
			line("Posa", domain.UnitSquareMeter, "1", "5"),
		},
	}
}

func intPtr(v int) *int { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateAssignsFirstFreeNumber(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		q, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: sampleInput("Rossi")})
		require.NoError(t, err)
		assert.Equal(t, i+1, q.Number)
		assert.Equal(t, 2025, q.Year)
		ids = append(ids, q.ID.String())
	}

	_, err := f.svc.Delete(ctx, ids[1])
	require.NoError(t, err)

	q, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: sampleInput("Rossi")})
	require.NoError(t, err)
	assert.Equal(t, "02-2025", q.Key())
}

func TestCreateWithCustomNumber(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	in := sampleInput("Rossi")
	in.Number, in.Year = intPtr(7), intPtr(2024)
	q, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: in})
	require.NoError(t, err)
	assert.Equal(t, "07-2024", q.Key())

	_, err = f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: in})
	assert.ErrorIs(t, err, numbering.ErrDuplicate)
	assert.Contains(t, err.Error(), "07-2024")

	in.Number = intPtr(0)
	_, err = f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: in})
	assert.ErrorIs(t, err, numbering.ErrInvalidNumber)

	in.Number, in.Year = intPtr(1), intPtr(1999)
	_, err = f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: in})
	assert.ErrorIs(t, err, numbering.ErrInvalidYear)
}

func TestCreateTotalsAgreeAcrossDiscountModes(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	shown := sampleInput("Rossi")
	shown.Discount = domain.DiscountInput{Enabled: true, Percent: assembly.Raw("10"), ShowInTable: true}
	a, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: shown})
	require.NoError(t, err)
	assert.True(t, a.Subtotal.Equal(dec("25")))
	assert.True(t, a.DiscountValue.Equal(dec("2.5")))
	assert.True(t, a.Total.Equal(dec("22.5")))

	spread := shown
	spread.Discount.ShowInTable = false
	b, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: spread})
	require.NoError(t, err)
	assert.True(t, b.Subtotal.Equal(dec("22.5")))
	assert.True(t, b.DiscountValue.IsZero())
	assert.True(t, b.Total.Equal(dec("22.5")))

	stored, err := f.svc.GetByID(ctx, b.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "22.50", assembly.FormatMoney(stored.Total))
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, 1, stored.Lines[0].SequenceIndex)
	assert.True(t, stored.Lines[0].LineTotal.Equal(dec("20")))
}

func TestCreateValidatesInput(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	in := sampleInput("Rossi")
	in.Lines[0].Unit = "boxes"
	_, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: in})
	assert.ErrorIs(t, err, domain.ErrInvalidUnit)

	in = sampleInput("Rossi")
	in.Discount = domain.DiscountInput{Enabled: true, Percent: assembly.Raw("120")}
	_, err = f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: in})
	assert.ErrorIs(t, err, domain.ErrInvalidDiscount)

	in = sampleInput("Rossi")
	in.Client.Email = "broken"
	_, err = f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: in})
	assert.ErrorIs(t, err, clientdomain.ErrInvalidEmail)
}

func TestCreateUpsertsClientAndCommitsDraft(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	draft, err := f.drafts.Save(ctx, draftdomain.SaveDraftRequest{Snapshot: sampleInput("Verdi Srl")})
	require.NoError(t, err)

	q, err := f.svc.Create(ctx, domain.SaveQuoteRequest{
		QuoteInput: sampleInput("Verdi Srl"),
		DraftID:    draft.ID.String(),
	})
	require.NoError(t, err)
	require.NotNil(t, q.ClientID)

	_, err = f.drafts.Recover(ctx, draft.ID.String())
	assert.ErrorIs(t, err, draftdomain.ErrNotFound)

	found, err := f.clients.Search(ctx, "verdi", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, *q.ClientID, found[0].ID)

	// same client name on a second quote reuses the record
	q2, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: sampleInput("  verdi srl ")})
	require.NoError(t, err)
	assert.Equal(t, *q.ClientID, *q2.ClientID)
}

func TestUpdatePreservesKeyAndReplacesLines(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	q, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: sampleInput("Rossi")})
	require.NoError(t, err)

	in := sampleInput("Rossi")
	in.Number = intPtr(99)
	in.Subject = "Bagno completo"
	in.Lines = []domain.LineInput{line("Sanitari", domain.UnitPiece, "3", "100")}
	f.clock.Advance(time.Hour)

	updated, err := f.svc.Update(ctx, q.ID.String(), domain.SaveQuoteRequest{QuoteInput: in})
	require.NoError(t, err)
	assert.Equal(t, q.Number, updated.Number)
	assert.Equal(t, q.Year, updated.Year)

	stored, err := f.svc.GetByID(ctx, q.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Bagno completo", stored.Subject)
	require.Len(t, stored.Lines, 1)
	assert.True(t, stored.Total.Equal(dec("300")))
	assert.True(t, stored.UpdatedAt.After(stored.CreatedAt))

	_, err = f.svc.Update(ctx, "12345", domain.SaveQuoteRequest{QuoteInput: in})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.Update(ctx, "x", domain.SaveQuoteRequest{QuoteInput: in})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestRenumber(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: sampleInput("A")})
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: sampleInput("B")})
	require.NoError(t, err)

	// keeping its own key is not a conflict
	_, err = f.svc.Renumber(ctx, a.ID.String(), domain.RenumberRequest{Number: a.Number, Year: a.Year})
	require.NoError(t, err)

	_, err = f.svc.Renumber(ctx, a.ID.String(), domain.RenumberRequest{Number: b.Number, Year: b.Year})
	assert.ErrorIs(t, err, numbering.ErrDuplicate)

	_, err = f.svc.Renumber(ctx, a.ID.String(), domain.RenumberRequest{Number: 5, Year: 2101})
	assert.ErrorIs(t, err, numbering.ErrInvalidYear)

	moved, err := f.svc.Renumber(ctx, a.ID.String(), domain.RenumberRequest{Number: 12, Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, "12-2024", moved.Key())

	next, err := f.svc.NextNumber(ctx, 0, false)
	require.NoError(t, err)
	assert.Equal(t, "01-2025", next.Key)
}

func TestCloneUsesStartingNumberWhenCustomNumberingEnabled(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	in := sampleInput("Rossi")
	in.Number, in.Year = intPtr(3), intPtr(2023)
	source, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: in})
	require.NoError(t, err)

	clone, err := f.svc.Clone(ctx, source.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "01-2025", clone.Key())

	_, err = f.company.Save(ctx, companydomain.SaveSettingsRequest{
		Name:                   "Edil Rossi",
		StartingQuoteNumber:    40,
		CustomNumberingEnabled: true,
	})
	require.NoError(t, err)

	clone2, err := f.svc.Clone(ctx, source.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "40-2025", clone2.Key())
	assert.NotEqual(t, source.ID, clone2.ID)
	require.Len(t, clone2.Lines, len(source.Lines))
	for i := range source.Lines {
		assert.NotEqual(t, source.Lines[i].ID, clone2.Lines[i].ID)
		assert.Equal(t, source.Lines[i].Description, clone2.Lines[i].Description)
		assert.True(t, source.Lines[i].LineTotal.Equal(clone2.Lines[i].LineTotal))
	}

	next, err := f.svc.NextNumber(ctx, 2025, true)
	require.NoError(t, err)
	assert.Equal(t, 41, next.Number)
}

func TestDeleteAndRestore(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	original, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: sampleInput("Rossi")})
	require.NoError(t, err)
	stored, err := f.svc.GetByID(ctx, original.ID.String())
	require.NoError(t, err)

	deleted, err := f.svc.Delete(ctx, original.ID.String())
	require.NoError(t, err)
	_, err = f.svc.GetByID(ctx, original.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	restored, err := f.svc.Restore(ctx, deleted)
	require.NoError(t, err)
	assert.Equal(t, stored.Key(), restored.Key())

	back, err := f.svc.GetByID(ctx, restored.ID.String())
	require.NoError(t, err)
	require.Len(t, back.Lines, len(stored.Lines))
	for i := range stored.Lines {
		assert.NotEqual(t, stored.Lines[i].ID, back.Lines[i].ID)
		assert.Equal(t, stored.Lines[i].Description, back.Lines[i].Description)
		assert.Equal(t, stored.Lines[i].Unit, back.Lines[i].Unit)
		assert.True(t, stored.Lines[i].Quantity.Equal(back.Lines[i].Quantity))
		assert.True(t, stored.Lines[i].UnitPrice.Equal(back.Lines[i].UnitPrice))
	}
	assert.True(t, stored.Total.Equal(back.Total))

	// undo twice collides with the restored record
	_, err = f.svc.Restore(ctx, deleted)
	assert.ErrorIs(t, err, numbering.ErrDuplicate)

	_, err = f.svc.Delete(ctx, "777")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiltersAndPaginates(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	for _, name := range []string{"Rossi", "Bianchi", "Rossini", "Neri"} {
		_, err := f.svc.Create(ctx, domain.SaveQuoteRequest{QuoteInput: sampleInput(name)})
		require.NoError(t, err)
	}

	res, err := f.svc.List(ctx, domain.ListQuoteRequest{Query: "ross"})
	require.NoError(t, err)
	require.Len(t, res.Quotes, 2)
	assert.Equal(t, 3, res.Quotes[0].Number)

	page1, err := f.svc.List(ctx, domain.ListQuoteRequest{Pagination: pagination.Pagination{PageSize: 3}})
	require.NoError(t, err)
	require.Len(t, page1.Quotes, 3)
	assert.True(t, page1.PageInfo.HasMore)

	page2, err := f.svc.List(ctx, domain.ListQuoteRequest{Pagination: pagination.Pagination{
		PageSize:  3,
		PageToken: page1.PageInfo.NextPageToken,
	}})
	require.NoError(t, err)
	require.Len(t, page2.Quotes, 1)
	assert.Equal(t, 1, page2.Quotes[0].Number)
	assert.False(t, page2.PageInfo.HasMore)

	_, err = f.svc.List(ctx, domain.ListQuoteRequest{Pagination: pagination.Pagination{PageToken: "!!"}})
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)

	all, err := f.svc.ListAll(ctx, domain.ListQuoteRequest{Year: 2025})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCreatePublishesChange(t *testing.T) {
	n := &mockNotifier{}
	n.On("Changed", realtime.TopicQuotes, realtime.KindCreated, mock.AnythingOfType("string")).Once()
	n.On("Notify", realtime.LevelSuccess, "Quote 01-2025 saved").Once()

	f := setup(t, n)
	_, err := f.svc.Create(context.Background(), domain.SaveQuoteRequest{QuoteInput: sampleInput("Rossi")})
	require.NoError(t, err)

	n.AssertExpectations(t)
}
