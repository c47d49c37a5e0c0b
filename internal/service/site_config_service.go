package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/site-cms-api/internal/dto"
	"github.com/noah-isme/site-cms-api/internal/models"
	"github.com/noah-isme/site-cms-api/internal/repository"
	"github.com/noah-isme/site-cms-api/pkg/editor"
	appErrors "github.com/noah-isme/site-cms-api/pkg/errors"
	"github.com/noah-isme/site-cms-api/pkg/jsondiff"
	"github.com/noah-isme/site-cms-api/pkg/jsonvalue"
	"github.com/noah-isme/site-cms-api/pkg/localized"
)

type siteConfigRepository interface {
	Get(ctx context.Context, key string) (*models.SiteConfig, error)
	List(ctx context.Context) ([]models.SiteConfigSummary, error)
	Save(ctx context.Context, key string, value *jsonvalue.Object, updatedBy *string, build repository.HistoryBuilder) (*models.SiteConfigHistory, error)
	ListHistory(ctx context.Context, key string, limit int) ([]models.SiteConfigHistory, error)
	GetHistory(ctx context.Context, id string) (*models.SiteConfigHistory, error)
}

// invalidationRetrier receives cache patterns whose invalidation failed inline.
type invalidationRetrier interface {
	Enqueue(pattern string) error
}

// SiteConfigServiceConfig tunes history listings and the public cache.
type SiteConfigServiceConfig struct {
	HistoryDefaultLimit int
	HistoryMaxLimit     int
	DiffPreview         int
	VisibilityKey       string
	PublicCacheTTL      time.Duration
}

// SiteConfigService owns reads, writes and restores of keyed site configs. Every write
// records one history entry in the same transaction as the upsert.
type SiteConfigService struct {
	repo      siteConfigRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SiteConfigServiceConfig
	now       func() time.Time
	retrier   invalidationRetrier
	renders   singleflight.Group
}

// NewSiteConfigService constructs a SiteConfigService.
func NewSiteConfigService(repo siteConfigRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg SiteConfigServiceConfig) *SiteConfigService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HistoryDefaultLimit <= 0 {
		cfg.HistoryDefaultLimit = 20
	}
	if cfg.HistoryMaxLimit < cfg.HistoryDefaultLimit {
		cfg.HistoryMaxLimit = cfg.HistoryDefaultLimit
	}
	if cfg.DiffPreview <= 0 {
		cfg.DiffPreview = 6
	}
	if cfg.VisibilityKey == "" {
		cfg.VisibilityKey = "_visibility"
	}
	return &SiteConfigService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithInvalidationRetry hands failed public cache invalidations to retrier.
func (s *SiteConfigService) WithInvalidationRetry(retrier invalidationRetrier) *SiteConfigService {
	s.retrier = retrier
	return s
}

// IsReservedKey reports whether key holds system data only superadmins may write.
func (s *SiteConfigService) IsReservedKey(key string) bool {
	return key == s.cfg.VisibilityKey || strings.HasPrefix(key, "_")
}

// List returns every stored key.
func (s *SiteConfigService) List(ctx context.Context) ([]models.SiteConfigSummary, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list site configs")
	}
	if items == nil {
		items = []models.SiteConfigSummary{}
	}
	return items, nil
}

// Load returns the stored config for key.
func (s *SiteConfigService) Load(ctx context.Context, key string) (*models.SiteConfig, error) {
	if err := s.validateKey(key); err != nil {
		return nil, err
	}
	cfg, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "site config not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site config")
	}
	return cfg, nil
}

// Get returns the config and its newest historyLimit entries.
func (s *SiteConfigService) Get(ctx context.Context, key string, historyLimit int) (*dto.SiteConfigDetail, error) {
	cfg, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListHistory(ctx, key, s.clampLimit(historyLimit))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site config history")
	}
	return &dto.SiteConfigDetail{
		Key:       cfg.Key,
		Value:     cfg.Value,
		UpdatedBy: cfg.UpdatedBy,
		UpdatedAt: cfg.UpdatedAt,
		History:   dto.NewHistoryEntries(entries, s.cfg.DiffPreview),
	}, nil
}

// Tree renders the stored document as editor nodes.
func (s *SiteConfigService) Tree(ctx context.Context, key string) (*editor.Node, error) {
	cfg, err := s.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	node := editor.Render(cfg.Value)
	return &node, nil
}

// Save replaces the whole document under key.
func (s *SiteConfigService) Save(ctx context.Context, key string, req dto.SaveSiteConfigRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid site config payload")
	}
	value, err := jsonvalue.ParseObject(req.Value)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "value must be a JSON object")
	}
	return s.write(ctx, key, value, actor, writeOptions{action: models.HistoryActionUpdate, note: req.Note})
}

// ApplyEdits loads the stored document (empty when new), applies every operation atomically
// and saves the result with refreshed _meta.
func (s *SiteConfigService) ApplyEdits(ctx context.Context, key string, req dto.ApplyEditsRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid edit payload")
	}
	session, err := s.openSession(ctx, key, actor)
	if err != nil {
		return nil, err
	}
	session.WithAdminPath(req.AdminPath)
	if err := session.Apply(req.Operations...); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	sourcePath := req.AdminPath
	if sourcePath == "" && len(req.Operations) == 1 {
		sourcePath = req.Operations[0].Path.String()
	}
	return s.saveSession(ctx, session, actor, writeOptions{action: models.HistoryActionUpdate, note: req.Note, sourcePath: sourcePath})
}

// UpdateField replaces the sub-field at req.Path and saves the document. Other fields are
// taken from the stored version.
func (s *SiteConfigService) UpdateField(ctx context.Context, key string, req dto.UpdateFieldRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid field payload")
	}
	value, err := jsonvalue.Parse(req.Value)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "field value must be valid JSON")
	}
	session, err := s.openSession(ctx, key, actor)
	if err != nil {
		return nil, err
	}
	session.WithAdminPath(req.AdminPath)
	draft := session.OpenField(req.Path)
	if err := draft.Set(value); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage field")
	}
	if err := draft.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	sourcePath := req.AdminPath
	if sourcePath == "" {
		sourcePath = req.Path.String()
	}
	return s.saveSession(ctx, session, actor, writeOptions{action: models.HistoryActionUpdate, note: req.Note, sourcePath: sourcePath})
}

// History lists the newest entries for key; diffLimit overrides the preview length.
func (s *SiteConfigService) History(ctx context.Context, key string, query dto.HistoryQuery) ([]dto.HistoryEntry, error) {
	entries, err := s.HistoryRecords(ctx, key, query.Limit)
	if err != nil {
		return nil, err
	}
	diffLimit := s.cfg.DiffPreview
	if query.DiffLimit > 0 {
		diffLimit = query.DiffLimit
	}
	return dto.NewHistoryEntries(entries, diffLimit), nil
}

// HistoryRecords returns the stored entries for key, newest first, with the limit clamped
// to the configured bounds.
func (s *SiteConfigService) HistoryRecords(ctx context.Context, key string, limit int) ([]models.SiteConfigHistory, error) {
	if err := s.validateKey(key); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListHistory(ctx, key, s.clampLimit(limit))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load site config history")
	}
	return entries, nil
}

// Restore writes back one side of a history entry: its value in version mode or the value
// it replaced in previous mode. Restoring the previous side of a first write fails with
// NO_PREVIOUS_VALUE and records nothing.
func (s *SiteConfigService) Restore(ctx context.Context, historyID string, req dto.RestoreRequest, actor *models.JWTClaims) (*dto.HistoryEntry, error) {
	if req.Mode == "" {
		req.Mode = models.RestoreModeVersion
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid restore payload")
	}
	entry, err := s.repo.GetHistory(ctx, historyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "history entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history entry")
	}

	var target *jsonvalue.Object
	switch req.Mode {
	case models.RestoreModePrevious:
		if entry.PreviousValue == nil {
			return nil, appErrors.Clone(appErrors.ErrNoPreviousValue, "history entry has no previous value to restore")
		}
		target = entry.PreviousValue
	default:
		target = entry.Value
	}
	if target == nil {
		target = jsonvalue.NewObject()
	}

	return s.write(ctx, entry.ConfigKey, target.Clone(), actor, writeOptions{
		action:       models.HistoryActionRestore,
		note:         req.Note,
		restoredFrom: entry.ID,
	})
}

// RestoreToVersion writes back the value recorded by the entry.
func (s *SiteConfigService) RestoreToVersion(ctx context.Context, historyID string, actor *models.JWTClaims) (*dto.HistoryEntry, error) {
	return s.Restore(ctx, historyID, dto.RestoreRequest{Mode: models.RestoreModeVersion}, actor)
}

// RestoreToPrevious writes back the value the entry replaced.
func (s *SiteConfigService) RestoreToPrevious(ctx context.Context, historyID string, actor *models.JWTClaims) (*dto.HistoryEntry, error) {
	return s.Restore(ctx, historyID, dto.RestoreRequest{Mode: models.RestoreModePrevious}, actor)
}

// Public returns the config with every localized leaf resolved for locale and _meta
// dropped. Results are cached per key and locale until the next write; the flag reports a
// cache hit.
func (s *SiteConfigService) Public(ctx context.Context, key string, locale localized.Locale) (json.RawMessage, bool, error) {
	if s.IsReservedKey(key) {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "site config not found")
	}
	cacheKey := publicCacheKey(key, string(locale))
	var cached json.RawMessage
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached, true, nil
	}

	// Concurrent misses for the same key and locale share one load, which must outlive a
	// caller that disconnects.
	shared := context.WithoutCancel(ctx)
	rendered, err, _ := s.renders.Do(cacheKey, func() (interface{}, error) {
		cfg, err := s.Load(shared, key)
		if err != nil {
			return nil, err
		}
		value := cfg.Value.Clone()
		value.Delete(editor.MetaKey)
		raw, err := jsonvalue.Marshal(localized.Resolve(value, locale))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode site config")
		}
		_ = s.cache.Set(shared, cacheKey, json.RawMessage(raw), s.cfg.PublicCacheTTL)
		return json.RawMessage(raw), nil
	})
	if err != nil {
		return nil, false, err
	}
	return rendered.(json.RawMessage), false, nil
}

type writeOptions struct {
	action       models.HistoryAction
	note         string
	sourcePath   string
	restoredFrom string
}

func (s *SiteConfigService) openSession(ctx context.Context, key string, actor *models.JWTClaims) (*editor.Session, error) {
	if err := s.authorizeWrite(key, actor); err != nil {
		return nil, err
	}
	var stored *jsonvalue.Object
	cfg, err := s.Load(ctx, key)
	switch {
	case err == nil:
		stored = cfg.Value
	case appErrors.HasCode(err, appErrors.ErrNotFound):
	default:
		return nil, err
	}
	return editor.NewSession(key, stored).WithClock(s.now), nil
}

func (s *SiteConfigService) saveSession(ctx context.Context, session *editor.Session, actor *models.JWTClaims, opts writeOptions) (*dto.HistoryEntry, error) {
	var entry *dto.HistoryEntry
	_, err := session.Save(ctx, func(ctx context.Context, key string, value *jsonvalue.Object) error {
		saved, err := s.write(ctx, key, value, actor, opts)
		if err != nil {
			return err
		}
		entry = saved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *SiteConfigService) write(ctx context.Context, key string, value *jsonvalue.Object, actor *models.JWTClaims, opts writeOptions) (*dto.HistoryEntry, error) {
	if err := s.authorizeWrite(key, actor); err != nil {
		return nil, err
	}
	who := actor.Actor()
	entry, err := s.repo.Save(ctx, key, value, optionalString(who.ID), func(previous *jsonvalue.Object) (*models.SiteConfigHistory, error) {
		return &models.SiteConfigHistory{
			Action:        opts.action,
			Diff:          jsondiff.Compute(previous, value),
			ActorID:       optionalString(who.ID),
			ActorUsername: who.Username,
			ActorRole:     string(who.Role),
			Note:          optionalString(sanitizeNote(opts.note)),
			SourcePath:    optionalString(opts.sourcePath),
			RestoredFrom:  optionalString(opts.restoredFrom),
			CreatedAt:     s.now(),
		}, nil
	})
	s.metrics.RecordConfigWrite(opts.action, err)
	if err != nil {
		s.logger.Error("site config write failed", zap.String("key", key), zap.String("action", string(opts.action)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrSaveFailed.Code, appErrors.ErrSaveFailed.Status, appErrors.ErrSaveFailed.Message)
	}

	s.invalidatePublic(ctx, key)
	s.logger.Info("site config written",
		zap.String("key", key),
		zap.String("action", string(opts.action)),
		zap.String("actor", who.Username),
		zap.Int("changes", len(entry.Diff)),
	)
	result := dto.NewHistoryEntry(*entry, s.cfg.DiffPreview)
	return &result, nil
}

func (s *SiteConfigService) authorizeWrite(key string, actor *models.JWTClaims) error {
	if err := s.validateKey(key); err != nil {
		return err
	}
	if actor == nil || !actor.Role.Valid() {
		return appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	if s.IsReservedKey(key) && actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only superadmins may change this config")
	}
	return nil
}

func (s *SiteConfigService) validateKey(key string) error {
	if err := s.validator.Var(strings.TrimSpace(key), "required,max=128"); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid config key")
	}
	return nil
}

func (s *SiteConfigService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.HistoryDefaultLimit
	}
	if limit > s.cfg.HistoryMaxLimit {
		return s.cfg.HistoryMaxLimit
	}
	return limit
}

func publicCacheKey(key, locale string) string {
	return fmt.Sprintf("site_config:public:%s:%s", key, locale)
}

func publicCachePattern(key string) string {
	return fmt.Sprintf("site_config:public:%s:*", key)
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func sanitizeNote(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(noteSanitizer().Sanitize(trimmed)))
}

var noteSanitizer = sync.OnceValue(func() *bluemonday.Policy {
	policy := bluemonday.StrictPolicy()
	policy.AddSpaceWhenStrippingTag(true)
	return policy
})

func (s *SiteConfigService) invalidatePublic(ctx context.Context, key string) {
	pattern := publicCachePattern(key)
	err := s.cache.Invalidate(ctx, pattern)
	if err == nil {
		return
	}
	if s.retrier == nil {
		s.logger.Warn("public cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	if qErr := s.retrier.Enqueue(pattern); qErr != nil {
		s.logger.Error("queue cache invalidation", zap.String("pattern", pattern), zap.Error(qErr))
	}
}
