package activities

import (
	"context"
	"fmt"
	"io"

	"github.com/2beens/trainingload/internal/strava"
	"github.com/2beens/trainingload/internal/telemetry/metrics"
	"github.com/2beens/trainingload/internal/telemetry/tracing"
	"github.com/2beens/trainingload/internal/trainingload"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	sourceStrava = "strava"
	sourceFIT    = "fit"
)

type activitySource interface {
	ListActivities(ctx context.Context, page, perPage int, after int64) ([]strava.SummaryActivity, error)
}

type activityStore interface {
	Upsert(ctx context.Context, activities []trainingload.Activity) (int, error)
	Insert(ctx context.Context, a trainingload.Activity) (int64, error)
}

type ImportResult struct {
	AthleteID int64 `json:"athleteId"`
	Fetched   int   `json:"fetched"`
	Saved     int   `json:"saved"`
	Skipped   int   `json:"skipped"`
	Pages     int   `json:"pages"`
}

type Importer struct {
	source         activitySource
	store          activityStore
	pageSize       int
	metricsManager *metrics.Manager
}

// NewImporter creates an importer. source may be nil when only FIT uploads
// are enabled.
func NewImporter(source activitySource, store activityStore, pageSize int, metricsManager *metrics.Manager) *Importer {
	if pageSize <= 0 || pageSize > strava.MaxPageSize {
		pageSize = strava.MaxPageSize
	}
	return &Importer{
		source:         source,
		store:          store,
		pageSize:       pageSize,
		metricsManager: metricsManager,
	}
}

// Import pages through the athlete's activities at the source, optionally
// only those started after the given unix time, and upserts them.
func (i *Importer) Import(ctx context.Context, athleteID int64, after int64) (_ *ImportResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "importer.activities.import")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("athlete-id", athleteID))

	if i.source == nil {
		return nil, fmt.Errorf("import athlete %d: activity source not configured", athleteID)
	}

	result := &ImportResult{AthleteID: athleteID}
	for page := 1; ; page++ {
		items, err := i.source.ListActivities(ctx, page, i.pageSize, after)
		if err != nil {
			return nil, fmt.Errorf("list activities page %d: %w", page, err)
		}
		result.Pages = page
		if len(items) == 0 {
			break
		}
		result.Fetched += len(items)

		batch := make([]trainingload.Activity, 0, len(items))
		for _, item := range items {
			a, err := FromSummary(athleteID, item)
			if err != nil {
				log.Warnf("import athlete %d: skipping activity: %s", athleteID, err)
				result.Skipped++
				continue
			}
			batch = append(batch, a)
		}

		saved, err := i.store.Upsert(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("upsert activities page %d: %w", page, err)
		}
		result.Saved += saved

		if len(items) < i.pageSize {
			break
		}
	}

	i.metricsManager.CounterActivitiesImported.WithLabelValues(sourceStrava).Add(float64(result.Saved))
	log.Infof(
		"import athlete %d: fetched %d, saved %d, skipped %d, pages %d",
		athleteID, result.Fetched, result.Saved, result.Skipped, result.Pages,
	)

	return result, nil
}

// ImportFIT stores the activity recorded in a FIT file.
func (i *Importer) ImportFIT(ctx context.Context, athleteID int64, r io.Reader, name string) (_ *trainingload.Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "importer.activities.importfit")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("athlete-id", athleteID))

	a, err := DecodeFIT(r, athleteID, name)
	if err != nil {
		return nil, err
	}

	a.ID, err = i.store.Insert(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("insert FIT activity: %w", err)
	}

	i.metricsManager.CounterActivitiesImported.WithLabelValues(sourceFIT).Inc()
	log.Infof("import athlete %d: stored FIT activity %d (%s, %s)", athleteID, a.ID, a.SportType, a.StartDate)

	return &a, nil
}
