package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/quotedesk/internal/assembly"
	clientdomain "github.com/smallbiznis/quotedesk/internal/client/domain"
	"github.com/smallbiznis/quotedesk/internal/clock"
	companydomain "github.com/smallbiznis/quotedesk/internal/company/domain"
	draftdomain "github.com/smallbiznis/quotedesk/internal/draft/domain"
	"github.com/smallbiznis/quotedesk/internal/numbering"
	"github.com/smallbiznis/quotedesk/internal/observability/logger"
	"github.com/smallbiznis/quotedesk/internal/observability/metrics"
	"github.com/smallbiznis/quotedesk/internal/quote/domain"
	"github.com/smallbiznis/quotedesk/internal/realtime"
	pkgdb "github.com/smallbiznis/quotedesk/pkg/db"
	"github.com/smallbiznis/quotedesk/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Clients  clientdomain.Service
	Company  companydomain.Service
	Drafts   draftdomain.Service
	Notifier realtime.Notifier
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	clients  clientdomain.Service
	company  companydomain.Service
	drafts   draftdomain.Service
	notifier realtime.Notifier
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = realtime.NopNotifier{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("quote.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		clients:  p.Clients,
		company:  p.Company,
		drafts:   p.Drafts,
		notifier: notifier,
		metrics:  p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListQuoteRequest) (domain.ListQuoteResponse, error) {
	filter, err := s.buildFilter(req)
	if err != nil {
		return domain.ListQuoteResponse{}, err
	}

	limit := req.Pagination.Limit()
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil || cursor.Year == 0 {
			return domain.ListQuoteResponse{}, domain.ErrInvalidCursor
		}
		filter.AfterYear = cursor.Year
		filter.AfterNumber = cursor.Number
	}
	filter.Limit = limit + 1

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListQuoteResponse{}, persistence(err)
	}

	items, pageInfo, err := pagination.Page(items, limit, func(q *domain.Quote) pagination.Cursor {
		return pagination.Cursor{ID: q.ID.String(), Year: q.Year, Number: q.Number}
	})
	if err != nil {
		return domain.ListQuoteResponse{}, err
	}

	return domain.ListQuoteResponse{
		Quotes:   derefQuotes(items),
		PageInfo: pageInfo,
	}, nil
}

func (s *Service) ListAll(ctx context.Context, req domain.ListQuoteRequest) ([]domain.Quote, error) {
	filter, err := s.buildFilter(req)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, persistence(err)
	}
	return derefQuotes(items), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Quote, error) {
	quoteID, err := parseID(id)
	if err != nil {
		return domain.Quote{}, err
	}
	item, err := s.repo.FindByID(ctx, s.db, quoteID)
	if err != nil {
		return domain.Quote{}, persistence(err)
	}
	if item == nil {
		return domain.Quote{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Create(ctx context.Context, req domain.SaveQuoteRequest) (domain.Quote, error) {
	in := req.QuoteInput.Normalize()
	if err := in.Validate(); err != nil {
		return domain.Quote{}, err
	}

	now := s.clock.Now()
	var created domain.Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clientID, err := s.upsertClient(ctx, tx, in.Client)
		if err != nil {
			return err
		}

		keys, err := s.repo.ListKeys(ctx, tx)
		if err != nil {
			return persistence(err)
		}
		number, year, err := resolveNumber(in, keys, now.Year())
		if err != nil {
			return err
		}

		quote := s.buildQuote(s.genID.Generate(), number, year, clientID, in)
		quote.CreatedAt = now
		quote.UpdatedAt = now
		if err := s.repo.Insert(ctx, tx, &quote); err != nil {
			return storeError(err, number, year)
		}
		created = quote
		return nil
	})
	if err != nil {
		return domain.Quote{}, err
	}

	s.commitDraft(ctx, req.DraftID)
	s.saved(ctx, "create", realtime.KindCreated, created)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.SaveQuoteRequest) (domain.Quote, error) {
	quoteID, err := parseID(id)
	if err != nil {
		return domain.Quote{}, err
	}
	in := req.QuoteInput.Normalize()
	if err := in.Validate(); err != nil {
		return domain.Quote{}, err
	}

	now := s.clock.Now()
	var updated domain.Quote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, quoteID)
		if err != nil {
			return persistence(err)
		}
		if current == nil {
			return domain.ErrNotFound
		}

		clientID, err := s.upsertClient(ctx, tx, in.Client)
		if err != nil {
			return err
		}

		quote := s.buildQuote(current.ID, current.Number, current.Year, clientID, in)
		quote.CreatedAt = current.CreatedAt
		quote.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, &quote); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return err
			}
			return persistence(err)
		}
		if err := s.repo.ReplaceLines(ctx, tx, quote.ID, quote.Lines); err != nil {
			return persistence(err)
		}
		updated = quote
		return nil
	})
	if err != nil {
		return domain.Quote{}, err
	}

	s.commitDraft(ctx, req.DraftID)
	s.saved(ctx, "update", realtime.KindUpdated, updated)
	return updated, nil
}

func (s *Service) Renumber(ctx context.Context, id string, req domain.RenumberRequest) (domain.Quote, error) {
	quoteID, err := parseID(id)
	if err != nil {
		return domain.Quote{}, err
	}

	var renumbered domain.Quote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, quoteID)
		if err != nil {
			return persistence(err)
		}
		if current == nil {
			return domain.ErrNotFound
		}

		keys, err := s.repo.ListKeys(ctx, tx)
		if err != nil {
			return persistence(err)
		}
		if err := numbering.ValidateCustomNumber(req.Number, req.Year, keys, quoteID); err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.repo.UpdateNumber(ctx, tx, quoteID, req.Number, req.Year, now); err != nil {
			return storeError(err, req.Number, req.Year)
		}
		current.Number = req.Number
		current.Year = req.Year
		current.UpdatedAt = now
		renumbered = *current
		return nil
	})
	if err != nil {
		return domain.Quote{}, err
	}

	s.saved(ctx, "renumber", realtime.KindUpdated, renumbered)
	return renumbered, nil
}

// Clone copies a quote into a new one numbered progressively in the current year.
func (s *Service) Clone(ctx context.Context, id string) (domain.Quote, error) {
	source, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Quote{}, err
	}
	settings, _, err := s.company.Get(ctx)
	if err != nil {
		return domain.Quote{}, persistence(err)
	}
	base := numbering.BaseNumber(settings.CustomNumberingEnabled, settings.StartingQuoteNumber, true)

	now := s.clock.Now()
	in := domain.InputFromQuote(source)
	in.Number, in.Year = nil, nil

	var cloned domain.Quote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keys, err := s.repo.ListKeys(ctx, tx)
		if err != nil {
			return persistence(err)
		}
		year := now.Year()
		number := numbering.NextProgressiveNumber(numbering.NumbersForYear(keys, year), base)

		quote := s.buildQuote(s.genID.Generate(), number, year, source.ClientID, in)
		quote.CreatedAt = now
		quote.UpdatedAt = now
		if err := s.repo.Insert(ctx, tx, &quote); err != nil {
			return storeError(err, number, year)
		}
		cloned = quote
		return nil
	})
	if err != nil {
		return domain.Quote{}, err
	}

	s.saved(ctx, "clone", realtime.KindCreated, cloned)
	return cloned, nil
}

// Delete removes the quote and returns what Restore needs to undo it.
func (s *Service) Delete(ctx context.Context, id string) (domain.DeletedQuote, error) {
	quoteID, err := parseID(id)
	if err != nil {
		return domain.DeletedQuote{}, err
	}

	var deleted domain.DeletedQuote
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, quoteID)
		if err != nil {
			return persistence(err)
		}
		if current == nil {
			return domain.ErrNotFound
		}
		if err := s.repo.Delete(ctx, tx, quoteID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return err
			}
			return persistence(err)
		}
		deleted = domain.DeletedQuote{Quote: *current, DeletedAt: s.clock.Now()}
		return nil
	})
	if err != nil {
		return domain.DeletedQuote{}, err
	}

	s.notifier.Changed(ctx, realtime.TopicQuotes, realtime.KindDeleted, quoteID.String())
	s.notifier.Notify(ctx, realtime.LevelInfo, fmt.Sprintf("Quote %s deleted", deleted.Quote.Key()))
	return deleted, nil
}

// Restore re-inserts a deleted quote under its original number and year.
func (s *Service) Restore(ctx context.Context, deleted domain.DeletedQuote) (domain.Quote, error) {
	source := deleted.Quote
	if err := numbering.ValidateCustomNumber(source.Number, source.Year, nil, 0); err != nil {
		return domain.Quote{}, err
	}

	in := domain.InputFromQuote(source).Normalize()
	if err := in.Validate(); err != nil {
		return domain.Quote{}, err
	}

	var restored domain.Quote
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keys, err := s.repo.ListKeys(ctx, tx)
		if err != nil {
			return persistence(err)
		}
		if err := numbering.ValidateCustomNumber(source.Number, source.Year, keys, 0); err != nil {
			return err
		}

		id := source.ID
		if id == 0 {
			id = s.genID.Generate()
		} else if existing, err := s.repo.FindByID(ctx, tx, id); err != nil {
			return persistence(err)
		} else if existing != nil {
			id = s.genID.Generate()
		}

		quote := s.buildQuote(id, source.Number, source.Year, source.ClientID, in)
		quote.ClientName = source.ClientName
		quote.CreatedAt = source.CreatedAt
		if quote.CreatedAt.IsZero() {
			quote.CreatedAt = s.clock.Now()
		}
		quote.UpdatedAt = s.clock.Now()
		if err := s.repo.Insert(ctx, tx, &quote); err != nil {
			return storeError(err, source.Number, source.Year)
		}
		restored = quote
		return nil
	})
	if err != nil {
		return domain.Quote{}, err
	}

	s.saved(ctx, "restore", realtime.KindRestored, restored)
	return restored, nil
}

// NextNumber previews the number the next progressive save would get.
func (s *Service) NextNumber(ctx context.Context, year int, clone bool) (domain.NextNumberResponse, error) {
	if year == 0 {
		year = s.clock.Now().Year()
	}
	if year < numbering.MinYear || year > numbering.MaxYear {
		return domain.NextNumberResponse{}, numbering.ErrInvalidYear
	}

	settings, _, err := s.company.Get(ctx)
	if err != nil {
		return domain.NextNumberResponse{}, persistence(err)
	}
	keys, err := s.repo.ListKeys(ctx, s.db)
	if err != nil {
		return domain.NextNumberResponse{}, persistence(err)
	}

	base := numbering.BaseNumber(settings.CustomNumberingEnabled, settings.StartingQuoteNumber, clone)
	number := numbering.NextProgressiveNumber(numbering.NumbersForYear(keys, year), base)
	return domain.NextNumberResponse{
		Number: number,
		Year:   year,
		Key:    numbering.FormatKey(number, year),
	}, nil
}

func (s *Service) buildFilter(req domain.ListQuoteRequest) (domain.ListFilter, error) {
	filter := domain.ListFilter{
		Query: req.Query,
		Year:  req.Year,
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		clientID, err := snowflake.ParseString(raw)
		if err != nil || clientID == 0 {
			return domain.ListFilter{}, clientdomain.ErrInvalidID
		}
		filter.ClientID = clientID
	}
	return filter, nil
}

func (s *Service) upsertClient(ctx context.Context, tx *gorm.DB, data domain.ClientData) (*snowflake.ID, error) {
	if data.Name == "" {
		return nil, nil
	}
	client, err := s.clients.UpsertTx(ctx, tx, clientdomain.UpsertClientRequest{
		Name:       data.Name,
		TaxCode:    data.TaxCode,
		Address:    data.Address,
		City:       data.City,
		Province:   data.Province,
		PostalCode: data.PostalCode,
		Phone:      data.Phone,
		Email:      data.Email,
	})
	if err != nil {
		if errors.Is(err, clientdomain.ErrInvalidName) || errors.Is(err, clientdomain.ErrInvalidEmail) {
			return nil, err
		}
		return nil, persistence(err)
	}
	return &client.ID, nil
}

func (s *Service) buildQuote(id snowflake.ID, number, year int, clientID *snowflake.ID, in domain.QuoteInput) domain.Quote {
	totals := in.Totals()
	quote := domain.Quote{
		ID:                  id,
		Number:              number,
		Year:                year,
		ClientID:            clientID,
		ClientName:          in.Client.Name,
		Subject:             in.Subject,
		Address:             in.Location.Address,
		City:                in.Location.City,
		Province:            in.Location.Province,
		PostalCode:          in.Location.PostalCode,
		Subtotal:            totals.Subtotal,
		DiscountEnabled:     in.Discount.Enabled,
		DiscountPercent:     in.Discount.Percent.Value(),
		DiscountValue:       totals.DiscountAmount,
		ShowDiscountInTable: in.Discount.ShowInTable,
		Total:               totals.Total,
		Notes:               in.Notes,
		PaymentMethod:       in.PaymentMethod,
		Status:              domain.StatusFinal,
	}

	quote.Lines = make([]domain.LineItem, 0, len(in.Lines))
	for i, l := range in.Lines {
		quantity, price := l.Quantity.Value(), l.UnitPrice.Value()
		quote.Lines = append(quote.Lines, domain.LineItem{
			ID:            s.genID.Generate(),
			QuoteID:       id,
			SequenceIndex: i + 1,
			Description:   l.Description,
			Unit:          l.Unit,
			Quantity:      quantity,
			UnitPrice:     price,
			LineTotal:     assembly.LineTotal(quantity, price),
		})
	}
	return quote
}

// commitDraft drops the draft backing a saved quote. The quote is already stored, so
// failures are only logged.
func (s *Service) commitDraft(ctx context.Context, draftID string) {
	if strings.TrimSpace(draftID) == "" || s.drafts == nil {
		return
	}
	if err := s.drafts.Commit(ctx, draftID); err != nil {
		logger.WithContext(ctx, s.log).Warn("failed to commit draft",
			zap.String("draft_id", draftID),
			zap.Error(err),
		)
	}
}

func (s *Service) saved(ctx context.Context, op, kind string, quote domain.Quote) {
	s.metrics.RecordQuoteSaved(ctx, op)
	s.notifier.Changed(ctx, realtime.TopicQuotes, kind, quote.ID.String())
	s.notifier.Notify(ctx, realtime.LevelSuccess, fmt.Sprintf("Quote %s saved", quote.Key()))
	logger.WithContext(ctx, s.log).Info("quote saved",
		zap.String("operation", op),
		zap.String("quote_id", quote.ID.String()),
		zap.String("key", quote.Key()),
	)
}

// resolveNumber returns the custom number when one was given, otherwise the first free
// progressive number of the year.
func resolveNumber(in domain.QuoteInput, keys []numbering.Pair, currentYear int) (int, int, error) {
	year := currentYear
	if in.Year != nil {
		year = *in.Year
	}
	if in.Number != nil {
		if err := numbering.ValidateCustomNumber(*in.Number, year, keys, 0); err != nil {
			return 0, 0, err
		}
		return *in.Number, year, nil
	}
	if year < numbering.MinYear || year > numbering.MaxYear {
		return 0, 0, numbering.ErrInvalidYear
	}
	return numbering.NextProgressiveNumber(numbering.NumbersForYear(keys, year), 1), year, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func persistence(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
}

func storeError(err error, number, year int) error {
	if pkgdb.IsDuplicateKeyErr(err) {
		return &numbering.DuplicateError{Number: number, Year: year}
	}
	return persistence(err)
}

func derefQuotes(items []*domain.Quote) []domain.Quote {
	quotes := make([]domain.Quote, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		quotes = append(quotes, *item)
	}
	return quotes
}
