// Package harvest drives the full crawl: categories, pagination chains,
// item extraction, persistence, and images, strictly sequentially.
package harvest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rsilveira/bookharvest/catalog"
	"github.com/rsilveira/bookharvest/config"
	"github.com/rsilveira/bookharvest/fetch"
	"github.com/rsilveira/bookharvest/images"
	"github.com/rsilveira/bookharvest/metrics"
	"github.com/rsilveira/bookharvest/models"
	"github.com/rsilveira/bookharvest/parser"
	"github.com/rsilveira/bookharvest/sink"
)

// Runner coordinates one harvest run.
type Runner struct {
	cfg     *config.Config
	client  *fetch.Client
	images  *images.Pipeline
	metrics *metrics.Metrics
}

// NewRunner wires the run loop to its collaborators.
func NewRunner(cfg *config.Config, client *fetch.Client, m *metrics.Metrics) *Runner {
	return &Runner{
		cfg:     cfg,
		client:  client,
		images:  images.NewPipeline(client, cfg),
		metrics: m,
	}
}

// Run harvests every discovered category. A category-level failure
// skips that category; an item-level failure skips that item. Only a
// failure to list categories at all fails the run.
func (r *Runner) Run(ctx context.Context) (*models.Summary, error) {
	refs, err := catalog.ListCategories(ctx, r.client, r.cfg.BaseURL, r.cfg.CategoryLimit)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(r.cfg.CSVDir(), 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.cfg.ImagesDir(), 0o755); err != nil {
		return nil, err
	}

	summary := &models.Summary{}
	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		r.harvestCategory(ctx, ref, summary)
	}
	return summary, nil
}

func (r *Runner) harvestCategory(ctx context.Context, ref models.CategoryRef, summary *models.Summary) {
	name, itemURLs, err := catalog.EnumerateItems(ctx, r.client, ref.ListingURL)
	if err != nil {
		slog.Error("category enumeration failed, skipping category",
			slog.String("category", ref.Name),
			slog.String("url", ref.ListingURL),
			slog.Any("error", err),
		)
		summary.CategoriesFailed++
		return
	}
	if name == "" {
		name = ref.Name
	} else if name != ref.Name {
		slog.Warn("listing heading differs from navigation label",
			slog.String("heading", name),
			slog.String("label", ref.Name),
		)
	}

	store, err := sink.NewStore(r.cfg.CSVDir(), name)
	if err != nil {
		slog.Error("cannot open category store, skipping category",
			slog.String("category", name),
			slog.Any("error", err),
		)
		summary.CategoriesFailed++
		return
	}

	imageDir := filepath.Join(r.cfg.ImagesDir(), parser.SanitizeFileName(name))
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		slog.Error("cannot create image directory, skipping category",
			slog.String("category", name),
			slog.Any("error", err),
		)
		summary.CategoriesFailed++
		return
	}

	slog.Info("harvesting category",
		slog.String("category", name),
		slog.Int("items", len(itemURLs)),
	)

	for _, itemURL := range itemURLs {
		if ctx.Err() != nil {
			return
		}
		r.harvestItem(ctx, itemURL, store, imageDir, summary)
	}
	summary.Categories++
}

func (r *Runner) harvestItem(ctx context.Context, itemURL string, store *sink.Store, imageDir string, summary *models.Summary) {
	rec, err := catalog.ExtractItem(ctx, r.client, itemURL)
	if err != nil {
		slog.Error("item extraction failed, skipping item",
			slog.String("url", itemURL),
			slog.Any("error", err),
		)
		summary.ItemsSkipped++
		summary.SkippedURLs = append(summary.SkippedURLs, itemURL)
		r.metrics.IncItemsSkipped()
		return
	}
	r.metrics.IncItems()
	slog.Debug("extracted item", slog.String("title", rec.Title))

	appended, err := store.Append(rec)
	switch {
	case err != nil:
		// Fatal to this row only; the image step below still runs since
		// the two consumers are independent.
		slog.Error("record append failed",
			slog.String("url", itemURL),
			slog.Any("error", err),
		)
	case appended:
		r.metrics.IncRowsWritten()
	default:
		summary.DuplicateRows++
		r.metrics.IncDuplicateRows()
	}

	if rec.ImageURL == "" {
		slog.Warn("item has no image reference", slog.String("url", itemURL))
		summary.ImagesFailed++
		summary.Items++
		return
	}
	if err := r.images.FetchAndStore(ctx, rec.ImageURL, imageDir, rec.Title); err != nil {
		slog.Error("image processing failed, skipping image",
			slog.String("url", rec.ImageURL),
			slog.Any("error", err),
		)
		summary.ImagesFailed++
	} else {
		summary.ImagesStored++
		r.metrics.IncImagesStored()
	}
	summary.Items++
}
