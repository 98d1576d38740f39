// Package handlers provides the HTML page and JSON API handlers
package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/alchemorsel/recipe-server/internal/ports/inbound"
	apperrors "github.com/alchemorsel/recipe-server/pkg/errors"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Stylesheet is the path the page links its stylesheet from
const Stylesheet = "/style.css"

// FrontendHandlers renders the recipe page
type FrontendHandlers struct {
	templates     *template.Template
	recipeService inbound.RecipeService
	logger        *zap.Logger
}

// PageData is passed to index.html
type PageData struct {
	Title       string
	Stylesheet  string
	Recipe      *inbound.RecipeDTO
	Ingredients string
	Fallback    bool
	Status      int
	Message     string
}

// NewFrontendHandlers parses the embedded templates
func NewFrontendHandlers(recipeService inbound.RecipeService, logger *zap.Logger) (*FrontendHandlers, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &FrontendHandlers{
		templates:     tmpl,
		recipeService: recipeService,
		logger:        logger.Named("frontend"),
	}, nil
}

// Index handles GET /?id=&ingredients=
//
// Recipes found through the ingredient or random path redirect to their
// canonical /?id=N URL. When the store cannot serve the request the cached
// recipe is rendered with a notice.
func (h *FrontendHandlers) Index(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	query := inbound.SelectQuery{
		ID:          params.Get("id"),
		HasID:       params.Has("id"),
		Ingredients: params.Get("ingredients"),
	}

	selection, err := h.recipeService.Select(r.Context(), query)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	if selection.Redirect() {
		http.Redirect(w, r, fmt.Sprintf("/?id=%d", selection.Recipe.ID), http.StatusSeeOther)
		return
	}

	recipe := selection.Recipe
	h.render(w, r, http.StatusOK, PageData{
		Title:       recipe.Title,
		Stylesheet:  Stylesheet,
		Recipe:      &recipe,
		Ingredients: strings.Join(recipe.IngredientAmount, ", "),
		Fallback:    selection.Fallback,
		Status:      http.StatusOK,
	})
}

func (h *FrontendHandlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.From(err)

	status := appErr.StatusCode()
	fields := []zap.Field{
		zap.String("request_id", chimw.GetReqID(r.Context())),
		zap.String("code", string(appErr.Code)),
		zap.Error(err),
	}
	if status >= 500 {
		h.logger.Error("Page request failed", fields...)
	} else {
		h.logger.Info("Page request failed", fields...)
	}

	h.render(w, r, status, PageData{
		Title:      appErr.Message,
		Stylesheet: Stylesheet,
		Status:     status,
		Message:    appErr.Message,
	})
}

func (h *FrontendHandlers) render(w http.ResponseWriter, r *http.Request, status int, data PageData) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		h.logger.Error("Failed to render template",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
