// Package categories serves the shared job and service category list from a Redis cache over Postgres.
package categories

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"gig-marketplace/internal/common/auth"
	"gig-marketplace/internal/common/database"
	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/retry"
	"gig-marketplace/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	CacheKey = "categories:all"
	CacheTTL = 10 * time.Minute
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// CreateRequest is the body of POST /categories.
type CreateRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

type Service struct {
	store  Store
	cache  redis.Cmdable
	logger logger.Logger
	retry  retry.Policy
}

// NewService wires the category service. A nil cache reads straight from the store.
func NewService(store Store, cache redis.Cmdable, log logger.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cache,
		logger: log.WithFields(map[string]interface{}{"component": "categories"}),
		retry:  retry.Transient,
	}
}

// Slugify lowercases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// List returns the categories usable for kind ("job" or "service"); an empty kind returns all.
// Cache failures are logged and the list is read from Postgres.
func (s *Service) List(ctx context.Context, kind string) ([]models.Category, error) {
	switch kind {
	case "", "job", "service":
	default:
		return nil, apperrors.NewInvalidArgumentError("Invalid kind", "kind must be job or service")
	}

	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return all, nil
	}
	out := make([]models.Category, 0, len(all))
	for _, c := range all {
		if c.Kind == kind || c.Kind == "both" {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) all(ctx context.Context) ([]models.Category, error) {
	var cached []models.Category
	if s.cache != nil {
		err := database.GetJSON(ctx, s.cache, CacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, database.ErrCacheMiss) {
			s.logger.Warn("category cache read failed", map[string]interface{}{"error": err.Error()})
		}
	}

	var list []models.Category
	err := retry.Do(ctx, s.retry, "list categories", s.logger, database.IsTransient, func(ctx context.Context) error {
		var err error
		list, err = s.store.List(ctx)
		return err
	})
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}

	if s.cache != nil {
		if err := database.SetJSON(ctx, s.cache, CacheKey, list, CacheTTL); err != nil {
			s.logger.Warn("category cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return list, nil
}

// Create adds a category. Admins only.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, req CreateRequest) (*models.Category, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to manage categories")
	}
	if err := auth.RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}

	c := &models.Category{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(req.Name),
		Slug:        req.Slug,
		Description: req.Description,
		Kind:        req.Kind,
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if c.Kind == "" {
		c.Kind = "both"
	}
	if c.Name == "" || c.Slug == "" {
		return nil, apperrors.NewInvalidArgumentError("Invalid category", "name must contain letters or digits")
	}

	err := s.store.Create(ctx, c, caller.UserID)
	if errors.Is(err, ErrDuplicate) {
		return nil, apperrors.NewConflictError("A category with this name or slug already exists")
	}
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, CacheKey).Err(); err != nil {
			s.logger.Warn("category cache invalidation failed", map[string]interface{}{"error": err.Error()})
		}
	}
	s.logger.Info("category created", map[string]interface{}{"categoryId": c.ID, "slug": c.Slug})
	return c, nil
}
