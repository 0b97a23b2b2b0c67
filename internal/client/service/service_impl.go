package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/quotedesk/internal/client/domain"
	"github.com/smallbiznis/quotedesk/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	validate *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("client.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		validate: validator.New(),
	}
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertClientRequest) (domain.Client, error) {
	return s.UpsertTx(ctx, s.db, req)
}

func (s *Service) UpsertTx(ctx context.Context, tx *gorm.DB, req domain.UpsertClientRequest) (domain.Client, error) {
	req = normalize(req)
	if req.Name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}
	if req.Email != "" {
		if err := s.validate.Var(req.Email, "email"); err != nil {
			return domain.Client{}, domain.ErrInvalidEmail
		}
	}

	existing, err := s.repo.FindByName(ctx, tx, req.Name)
	if err != nil {
		return domain.Client{}, err
	}

	now := s.clock.Now()
	if existing == nil {
		client := domain.Client{
			ID:         s.genID.Generate(),
			Name:       req.Name,
			TaxCode:    req.TaxCode,
			Address:    req.Address,
			City:       req.City,
			Province:   req.Province,
			PostalCode: req.PostalCode,
			Phone:      req.Phone,
			Email:      req.Email,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.Insert(ctx, tx, &client); err != nil {
			return domain.Client{}, err
		}
		s.log.Debug("client created", zap.String("client_id", client.ID.String()))
		return client, nil
	}

	merged := *existing
	merged.Name = req.Name
	mergeField(&merged.TaxCode, req.TaxCode)
	mergeField(&merged.Address, req.Address)
	mergeField(&merged.City, req.City)
	mergeField(&merged.Province, req.Province)
	mergeField(&merged.PostalCode, req.PostalCode)
	mergeField(&merged.Phone, req.Phone)
	mergeField(&merged.Email, req.Email)
	merged.UpdatedAt = now

	if err := s.repo.Update(ctx, tx, &merged); err != nil {
		return domain.Client{}, err
	}
	return merged, nil
}

func (s *Service) Search(ctx context.Context, query string, limit int) ([]domain.Client, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	items, err := s.repo.Search(ctx, s.db, query, limit)
	if err != nil {
		return nil, err
	}

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clients = append(clients, *item)
	}
	return clients, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Client, error) {
	clientID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || clientID == 0 {
		return domain.Client{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *item, nil
}

func normalize(req domain.UpsertClientRequest) domain.UpsertClientRequest {
	return domain.UpsertClientRequest{
		Name:       strings.Join(strings.Fields(req.Name), " "),
		TaxCode:    strings.ToUpper(strings.TrimSpace(req.TaxCode)),
		Address:    strings.TrimSpace(req.Address),
		City:       strings.TrimSpace(req.City),
		Province:   strings.ToUpper(strings.TrimSpace(req.Province)),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Phone:      strings.TrimSpace(req.Phone),
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
	}
}

func mergeField(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
