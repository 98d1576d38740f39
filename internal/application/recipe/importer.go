package recipe

import (
	"context"
	"time"

	"github.com/alchemorsel/recipe-server/internal/ports/inbound"
	"github.com/alchemorsel/recipe-server/internal/ports/outbound"
	"go.uber.org/zap"
)

// Importer adds a batch of recipes one transaction at a time. A failing
// row is logged and skipped; it never aborts the batch.
type Importer struct {
	recipes inbound.RecipeService
	metrics outbound.MetricsRecorder
	logger  *zap.Logger
}

var _ inbound.Importer = (*Importer)(nil)

// NewImporter creates a new importer
func NewImporter(recipes inbound.RecipeService, metrics outbound.MetricsRecorder, logger *zap.Logger) *Importer {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	return &Importer{
		recipes: recipes,
		metrics: metrics,
		logger:  logger.Named("importer"),
	}
}

// Import adds every recipe and reports what was skipped.
func (i *Importer) Import(ctx context.Context, recipes []inbound.AddRecipeCommand) inbound.ImportReport {
	start := time.Now()
	report := inbound.ImportReport{Total: len(recipes)}

	for idx, cmd := range recipes {
		if err := ctx.Err(); err != nil {
			i.logger.Warn("Import cancelled",
				zap.Int("processed", idx),
				zap.Int("total", len(recipes)),
				zap.Error(err),
			)
			for rest := idx; rest < len(recipes); rest++ {
				report.Failures = append(report.Failures, inbound.ImportFailure{
					Index:    rest,
					RecipeID: recipes[rest].ID,
					Err:      err,
				})
			}
			break
		}

		if _, err := i.recipes.AddRecipe(ctx, cmd); err != nil {
			i.logger.Warn("Skipping recipe",
				zap.Int("row", idx+1),
				zap.Int64("recipe_id", cmd.ID),
				zap.Error(err),
			)
			report.Failures = append(report.Failures, inbound.ImportFailure{
				Index:    idx,
				RecipeID: cmd.ID,
				Err:      err,
			})
			continue
		}
		report.Imported++
	}

	report.Duration = time.Since(start)
	i.metrics.ImportFinished(report.Imported, len(report.Failures))

	i.logger.Info("Import finished",
		zap.Int("total", report.Total),
		zap.Int("imported", report.Imported),
		zap.Int("failed", len(report.Failures)),
		zap.Duration("duration", report.Duration),
	)
	return report
}
