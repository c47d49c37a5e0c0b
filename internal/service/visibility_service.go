package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/site-cms-api/internal/dto"
	"github.com/noah-isme/site-cms-api/internal/models"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
	"github.com/noah-isme/site-cms-api/pkg/visibility"
)

type visibilityConfigStore interface {
	Load(ctx context.Context, key string) (*models.SiteConfig, error)
	Save(ctx context.Context, key string, req dto.SaveSiteConfigRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error)
}

// VisibilityService reads and mutates the global visibility record. Only superadmins may
// change it; the record is stored as a reserved site config so it gets history like any
// other write.
type VisibilityService struct {
	configs   visibilityConfigStore
	validator *validator.Validate
	logger    *zap.Logger
	key       string
}

// NewVisibilityService constructs a VisibilityService storing its record under key.
func NewVisibilityService(configs visibilityConfigStore, validate *validator.Validate, logger *zap.Logger, key string) *VisibilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = "_visibility"
	}
	return &VisibilityService{configs: configs, validator: validate, logger: logger, key: key}
}

// Get returns the current record; a missing record is empty.
func (s *VisibilityService) Get(ctx context.Context) (*visibility.Config, error) {
	cfg, err := s.configs.Load(ctx, s.key)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			return visibility.New(), nil
		}
		return nil, err
	}
	return visibility.FromValue(cfg.Value), nil
}

// Resolve answers whether a node of the public site is visible.
func (s *VisibilityService) Resolve(ctx context.Context, query dto.VisibilityResolveQuery) (*dto.VisibilityResolveResult, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid visibility query")
	}
	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.VisibilityResolveResult{
		Page:    query.Page,
		Section: query.Section,
		Field:   query.Field,
		Visible: cfg.IsVisible(query.Page, query.Section, query.Field),
	}, nil
}

// Fields lists the fields of the page's site config with their override state. configKey
// defaults to the page key.
func (s *VisibilityService) Fields(ctx context.Context, page, configKey string) ([]dto.VisibilityField, error) {
	if err := s.validatePage(page); err != nil {
		return nil, err
	}
	fields, err := s.collect(ctx, page, configKey)
	if err != nil {
		return nil, err
	}
	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	overrides := map[string]bool{}
	if p := cfg.Page(page); p != nil {
		overrides = p.Fields
	}
	out := make([]dto.VisibilityField, 0, len(fields))
	for _, f := range fields {
		out = append(out, dto.VisibilityField{
			Path:     f.Path,
			Type:     string(f.Type),
			Category: string(f.Category),
			Hidden:   overrides[f.Path],
		})
	}
	return out, nil
}

// TogglePage flips the page-level hidden flag.
func (s *VisibilityService) TogglePage(ctx context.Context, page string, actor *models.JWTClaims) (*dto.ToggleResult, error) {
	if err := s.validatePage(page); err != nil {
		return nil, err
	}
	var hidden bool
	cfg, err := s.mutate(ctx, actor, "page:"+page, func(cfg *visibility.Config) {
		hidden = cfg.TogglePage(page)
	})
	if err != nil {
		return nil, err
	}
	return &dto.ToggleResult{Page: page, Hidden: hidden, Visibility: cfg}, nil
}

// ToggleSection flips one section override.
func (s *VisibilityService) ToggleSection(ctx context.Context, page, section string, actor *models.JWTClaims) (*dto.ToggleResult, error) {
	if err := s.validatePage(page); err != nil {
		return nil, err
	}
	if strings.TrimSpace(section) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section is required")
	}
	var hidden bool
	cfg, err := s.mutate(ctx, actor, "section:"+page+"/"+section, func(cfg *visibility.Config) {
		hidden = cfg.ToggleSection(page, section)
	})
	if err != nil {
		return nil, err
	}
	return &dto.ToggleResult{Page: page, Section: section, Hidden: hidden, Visibility: cfg}, nil
}

// ToggleField flips one field override.
func (s *VisibilityService) ToggleField(ctx context.Context, page string, req dto.ToggleFieldRequest, actor *models.JWTClaims) (*dto.ToggleResult, error) {
	if err := s.validatePage(page); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid field toggle payload")
	}
	var hidden bool
	cfg, err := s.mutate(ctx, actor, "field:"+page+"/"+req.Path, func(cfg *visibility.Config) {
		hidden = cfg.ToggleField(page, req.Path)
	})
	if err != nil {
		return nil, err
	}
	return &dto.ToggleResult{Page: page, Field: req.Path, Hidden: hidden, Visibility: cfg}, nil
}

// SetFields applies one hidden flag to several fields.
func (s *VisibilityService) SetFields(ctx context.Context, page string, req dto.SetFieldsRequest, actor *models.JWTClaims) (*visibility.Config, error) {
	if err := s.validatePage(page); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fields payload")
	}
	return s.mutate(ctx, actor, "fields:"+page, func(cfg *visibility.Config) {
		cfg.SetFieldsVisibility(page, req.Paths, req.Hidden)
	})
}

// SetCategory hides or shows every field of category in the page's site config.
func (s *VisibilityService) SetCategory(ctx context.Context, page, rawCategory string, req dto.SetCategoryRequest, actor *models.JWTClaims) (*dto.CategoryResult, error) {
	if err := s.validatePage(page); err != nil {
		return nil, err
	}
	category, ok := visibility.ParseCategory(rawCategory)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "category must be one of copy, button, carousel, all")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	if err := requireSuperadmin(actor); err != nil {
		return nil, err
	}
	fields, err := s.collect(ctx, page, req.ConfigKey)
	if err != nil {
		return nil, err
	}
	paths := visibility.SelectCategory(fields, category)
	cfg, err := s.mutate(ctx, actor, "category:"+page+"/"+string(category), func(cfg *visibility.Config) {
		cfg.SetFieldsVisibility(page, paths, req.Hidden)
	})
	if err != nil {
		return nil, err
	}
	return &dto.CategoryResult{Page: page, Category: string(category), Hidden: req.Hidden, Paths: paths, Visibility: cfg}, nil
}

func (s *VisibilityService) collect(ctx context.Context, page, configKey string) ([]visibility.Field, error) {
	if configKey == "" {
		configKey = page
	}
	cfg, err := s.configs.Load(ctx, configKey)
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrNotFound) {
			return []visibility.Field{}, nil
		}
		return nil, err
	}
	return visibility.CollectFields(cfg.Value), nil
}

func (s *VisibilityService) mutate(ctx context.Context, actor *models.JWTClaims, source string, apply func(cfg *visibility.Config)) (*visibility.Config, error) {
	if err := requireSuperadmin(actor); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	apply(next)

	raw, err := jsonvalue.Marshal(visibility.ToValue(next))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode visibility")
	}
	if _, err := s.configs.Save(ctx, s.key, dto.SaveSiteConfigRequest{Value: raw, Note: source}, actor); err != nil {
		return nil, err
	}
	s.logger.Info("visibility updated", zap.String("change", source), zap.String("actor", actor.Username))
	return next, nil
}

func (s *VisibilityService) validatePage(page string) error {
	if err := s.validator.Var(strings.TrimSpace(page), "required,max=128"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid page key")
	}
	return nil
}

func requireSuperadmin(actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only superadmins may change visibility")
	}
	return nil
}
