// Package recipe provides the application layer for recipe selection and
// insertion. This implements the use cases defined in the inbound ports.
package recipe

import (
	"context"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/alchemorsel/recipe-server/internal/domain/recipe"
	"github.com/alchemorsel/recipe-server/internal/ports/inbound"
	"github.com/alchemorsel/recipe-server/internal/ports/outbound"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/alchemorsel/recipe-server/internal/application/recipe"

// Service implements the recipe use cases
type Service struct {
	repo     outbound.RecipeRepository
	state    *State
	metrics  outbound.MetricsRecorder
	validate *validator.Validate
	tracer   trace.Tracer
	logger   *zap.Logger
}

var _ inbound.RecipeService = (*Service)(nil)

// NewService creates a new recipe service. A nil metrics recorder
// discards events.
func NewService(
	repo outbound.RecipeRepository,
	state *State,
	metrics outbound.MetricsRecorder,
	logger *zap.Logger,
) *Service {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	if state == nil {
		state = NewState()
	}
	return &Service{
		repo:     repo,
		state:    state,
		metrics:  metrics,
		validate: NewValidator(),
		tracer:   otel.Tracer(tracerName),
		logger:   logger.Named("recipe-service"),
	}
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Select resolves a page request and records the result as the current
// recipe. Store failures are served from the cached recipe when one exists.
func (s *Service) Select(ctx context.Context, query inbound.SelectQuery) (*inbound.Selection, error) {
	ctx, span := s.tracer.Start(ctx, "RecipeService.Select", trace.WithAttributes(
		attribute.Bool("query.has_id", query.ID != ""),
		attribute.Bool("query.has_ingredients", query.Ingredients != ""),
	))
	defer span.End()

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	sel, err := s.selectLocked(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("recipe.id", sel.Recipe.ID),
		attribute.String("selection.source", string(sel.Source)),
		attribute.Bool("selection.fallback", sel.Fallback),
	)
	s.metrics.RecipeSelected(string(sel.Source), sel.Fallback)
	return sel, nil
}

func (s *Service) selectLocked(ctx context.Context, query inbound.SelectQuery) (*inbound.Selection, error) {
	if query.HasID || query.ID != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(query.ID), 10, 64)
		if err != nil || id <= 0 {
			return nil, notFound(query.ID)
		}
		return s.fetchLocked(ctx, id, inbound.SourceID)
	}

	if query.Ingredients != "" {
		parsed := recipe.ParseIngredientQuery(query.Ingredients)
		id, ok, err := s.repo.ResolveByIngredients(ctx, parsed)
		if err != nil {
			return s.fallbackLocked(err, inbound.SourceIngredients)
		}
		if ok {
			return s.fetchLocked(ctx, id, inbound.SourceIngredients)
		}
		s.logger.Debug("No unique ingredient match, selecting at random",
			zap.String("ingredients", parsed.String()),
		)
	}

	id, err := s.repo.RandomID(ctx)
	if err != nil {
		return s.fallbackLocked(err, inbound.SourceRandom)
	}
	return s.fetchLocked(ctx, id, inbound.SourceRandom)
}

// fetchLocked is the single path that produces a renderable recipe.
func (s *Service) fetchLocked(ctx context.Context, id int64, source inbound.SelectionSource) (*inbound.Selection, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, recipe.ErrStoreUnavailable) {
			return s.fallbackLocked(err, source)
		}
		return nil, toAppError(err, id)
	}

	sel := &inbound.Selection{Recipe: toDTO(r), Source: source}
	s.state.setLocked(sel)
	return sel, nil
}

// fallbackLocked serves the cached recipe in place of a failed selection.
func (s *Service) fallbackLocked(cause error, source inbound.SelectionSource) (*inbound.Selection, error) {
	cached := cloneSelection(s.state.current)
	if cached == nil {
		s.logger.Warn("Selection failed with no cached recipe",
			zap.String("source", string(source)),
			zap.Error(cause),
		)
		return nil, toAppError(cause, 0)
	}

	s.logger.Warn("Serving cached recipe",
		zap.String("source", string(source)),
		zap.Int64("recipe_id", cached.Recipe.ID),
		zap.Error(cause),
	)
	cached.Source = inbound.SourceCache
	cached.Fallback = true
	return cached, nil
}

// GetByID returns a recipe without touching the current recipe.
func (s *Service) GetByID(ctx context.Context, id int64) (*inbound.RecipeDTO, error) {
	ctx, span := s.tracer.Start(ctx, "RecipeService.GetByID", trace.WithAttributes(attribute.Int64("recipe.id", id)))
	defer span.End()

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	return s.get(ctx, span, id)
}

// GetByIngredients returns the unique recipe matching every ingredient.
func (s *Service) GetByIngredients(ctx context.Context, ingredients []string) (*inbound.RecipeDTO, error) {
	ctx, span := s.tracer.Start(ctx, "RecipeService.GetByIngredients")
	defer span.End()

	query := recipe.IngredientQueryFromList(ingredients)
	span.SetAttributes(attribute.String("ingredients", query.String()))
	if query.Empty() {
		return nil, notFound("")
	}

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	id, ok, err := s.repo.ResolveByIngredients(ctx, query)
	if err != nil {
		return nil, s.spanError(span, toAppError(err, 0))
	}
	if !ok {
		return nil, notFound("")
	}
	return s.get(ctx, span, id)
}

// GetRandom returns a random recipe.
func (s *Service) GetRandom(ctx context.Context) (*inbound.RecipeDTO, error) {
	ctx, span := s.tracer.Start(ctx, "RecipeService.GetRandom")
	defer span.End()

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	id, err := s.repo.RandomID(ctx)
	if err != nil {
		return nil, s.spanError(span, toAppError(err, 0))
	}
	return s.get(ctx, span, id)
}

func (s *Service) get(ctx context.Context, span trace.Span, id int64) (*inbound.RecipeDTO, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.spanError(span, toAppError(err, id))
	}
	dto := toDTO(r)
	return &dto, nil
}

// AddRecipe validates and stores a new recipe.
func (s *Service) AddRecipe(ctx context.Context, cmd inbound.AddRecipeCommand) (*inbound.RecipeDTO, error) {
	ctx, span := s.tracer.Start(ctx, "RecipeService.AddRecipe", trace.WithAttributes(attribute.Int64("recipe.id", cmd.ID)))
	defer span.End()

	if err := s.validate.StructCtx(ctx, cmd); err != nil {
		return nil, s.spanError(span, fromValidator(err))
	}

	entity, err := recipe.NewRecipe(cmd.ID, cmd.Title, cmd.Category, cmd.IngredientAmount, cmd.Preparation)
	if err != nil {
		return nil, s.spanError(span, toAppError(err, cmd.ID))
	}

	if err := s.repo.Add(ctx, entity); err != nil {
		return nil, s.spanError(span, toAppError(err, cmd.ID))
	}

	for _, event := range entity.PullEvents() {
		s.logger.Info("Recipe added",
			zap.String("event", event.EventName()),
			zap.Int64("recipe_id", entity.ID()),
			zap.String("title", entity.Title()),
			zap.Int("ingredients", len(entity.Ingredients())),
		)
	}
	s.metrics.RecipeAdded()

	dto := toDTO(entity)
	return &dto, nil
}

// Current returns the most recently selected recipe, or nil.
func (s *Service) Current() *inbound.Selection {
	return s.state.Current()
}

func (s *Service) spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func toDTO(r *recipe.Recipe) inbound.RecipeDTO {
	return inbound.RecipeDTO{
		ID:               r.ID(),
		Title:            r.Title(),
		Category:         r.Category(),
		IngredientAmount: r.Ingredients(),
		Preparation:      r.Preparation(),
	}
}
