package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/quotedesk/internal/clock"
	"github.com/smallbiznis/quotedesk/internal/company/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	validate *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("company.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		validate: validator.New(),
	}
}

func (s *Service) Get(ctx context.Context) (domain.Settings, bool, error) {
	stored, err := s.repo.Get(ctx, s.db)
	if err != nil {
		return domain.Settings{}, false, err
	}
	if stored == nil {
		return domain.DefaultSettings(), false, nil
	}
	return *stored, true, nil
}

func (s *Service) Save(ctx context.Context, req domain.SaveSettingsRequest) (domain.Settings, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		return domain.Settings{}, fmt.Errorf("%w: %s", domain.ErrInvalidSettings, describeValidation(err))
	}

	defaults := domain.DefaultSettings()
	settings := domain.Settings{
		ID:                     domain.SettingsID,
		Name:                   req.Name,
		VATNumber:              strings.TrimSpace(req.VATNumber),
		Address:                strings.TrimSpace(req.Address),
		City:                   strings.TrimSpace(req.City),
		Province:               strings.ToUpper(strings.TrimSpace(req.Province)),
		PostalCode:             strings.TrimSpace(req.PostalCode),
		Phone:                  strings.TrimSpace(req.Phone),
		Email:                  req.Email,
		LogoPath:               strings.TrimSpace(req.LogoPath),
		HeaderFontSize:         orDefault(req.HeaderFontSize, defaults.HeaderFontSize),
		BodyFontSize:           orDefault(req.BodyFontSize, defaults.BodyFontSize),
		TableFontSize:          orDefault(req.TableFontSize, defaults.TableFontSize),
		StartingQuoteNumber:    req.StartingQuoteNumber,
		CustomNumberingEnabled: req.CustomNumberingEnabled,
		UpdatedAt:              s.clock.Now(),
	}
	if settings.StartingQuoteNumber < 1 {
		settings.StartingQuoteNumber = defaults.StartingQuoteNumber
	}

	if err := s.repo.Save(ctx, s.db, &settings); err != nil {
		return domain.Settings{}, err
	}
	s.log.Info("company settings saved",
		zap.Bool("custom_numbering", settings.CustomNumberingEnabled),
		zap.Int("starting_quote_number", settings.StartingQuoteNumber),
	)
	return settings, nil
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s:%s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(fields, ",")
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
