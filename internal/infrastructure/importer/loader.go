package importer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alchemorsel/recipe-server/internal/ports/inbound"
	"github.com/alchemorsel/recipe-server/internal/ports/outbound"
	"go.uber.org/zap"
)

// Loader reads an import document and hands its rows to an Importer.
type Loader struct {
	source   outbound.ObjectSource
	importer inbound.Importer
	logger   *zap.Logger
}

// NewLoader creates a new loader
func NewLoader(source outbound.ObjectSource, importer inbound.Importer, logger *zap.Logger) *Loader {
	return &Loader{
		source:   source,
		importer: importer,
		logger:   logger.Named("import-loader"),
	}
}

// Decode reads a JSON array of recipes from location.
func (l *Loader) Decode(ctx context.Context, location string) ([]inbound.AddRecipeCommand, error) {
	body, err := l.source.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var recipes []inbound.AddRecipeCommand
	if err := json.NewDecoder(body).Decode(&recipes); err != nil {
		return nil, fmt.Errorf("decode import document %s: %w", location, err)
	}
	return recipes, nil
}

// Run decodes location and imports every row. A document that cannot be
// read or decoded is an error; individual rows failing are not.
func (l *Loader) Run(ctx context.Context, location string) (inbound.ImportReport, error) {
	l.logger.Info("Importing recipes", zap.String("from", location))

	recipes, err := l.Decode(ctx, location)
	if err != nil {
		return inbound.ImportReport{}, err
	}
	return l.importer.Import(ctx, recipes), nil
}
