package trainingload

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/2beens/trainingload/internal/telemetry/metrics"
	"github.com/2beens/trainingload/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	NoteNoActivities        = "no activities for this athlete"
	NoteNoActivitiesInRange = "no activities in the requested range"

	recentLoadDays = 7
)

// RebuildRequest bounds are inclusive; nil means unbounded.
type RebuildRequest struct {
	AthleteID int64
	From      *time.Time
	To        *time.Time
	Force     bool
}

type DayBounds struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

type RebuildResult struct {
	AthleteID              int64          `json:"athleteId"`
	RunID                  string         `json:"runId"`
	UpdatedActivities      int            `json:"updatedActivities"`
	UpdatedDays            int            `json:"updatedDays"`
	UpdatedActivityMetrics int            `json:"updatedActivityMetrics"`
	DailyRows              int            `json:"dailyRows"`
	Range                  *DayBounds     `json:"range"`
	WeeklySummary          *WeeklySummary `json:"weeklySummary,omitempty"`
	Note                   string         `json:"note,omitempty"`
}

type Service struct {
	repo           Repo
	engine         *Engine
	locker         Locker
	cache          *LoadCache
	metricsManager *metrics.Manager
	// ability to inject the run id generator (for unit testing)
	RunIDFunc func() string
}

// NewService creates the rebuild service. locker and cache are optional.
func NewService(
	repo Repo,
	engine *Engine,
	locker Locker,
	cache *LoadCache,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		repo:           repo,
		engine:         engine,
		locker:         locker,
		cache:          cache,
		metricsManager: metricsManager,
		RunIDFunc:      uuid.NewString,
	}
}

// Rebuild backfills activity days and metrics, then rewrites the dense daily
// series over the covered range. All writes happen in one transaction.
func (s *Service) Rebuild(ctx context.Context, req RebuildRequest) (_ *RebuildResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.trainingload.rebuild")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.Int64("athlete-id", req.AthleteID),
		attribute.Bool("force", req.Force),
	)

	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return nil, fmt.Errorf("%w: from %s is after to %s", ErrInvalidRange, FormatDay(*req.From), FormatDay(*req.To))
	}

	startedAt := time.Now()
	status := "ok"
	defer func() {
		if err != nil {
			status = "error"
			if errors.Is(err, ErrRebuildInProgress) {
				status = "locked"
			}
		}
		s.metricsManager.CounterRebuilds.WithLabelValues(status).Inc()
		s.metricsManager.HistRebuildDuration.Observe(time.Since(startedAt).Seconds())
	}()

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, req.AthleteID)
		if err != nil {
			return nil, fmt.Errorf("lock athlete %d: %w", req.AthleteID, err)
		}
		defer func() {
			if unlockErr := unlock(context.WithoutCancel(ctx)); unlockErr != nil {
				log.Errorf("rebuild athlete %d: %s", req.AthleteID, unlockErr)
			}
		}()
	}

	result := &RebuildResult{
		AthleteID: req.AthleteID,
		RunID:     s.RunIDFunc(),
	}
	span.SetAttributes(attribute.String("run-id", result.RunID))

	if err := s.repo.InTx(ctx, func(repo Repo) error {
		return s.rebuild(ctx, repo, req, result)
	}); err != nil {
		return nil, fmt.Errorf("rebuild athlete %d: %w", req.AthleteID, err)
	}

	if s.cache != nil {
		s.cache.Invalidate(req.AthleteID)
	}

	s.metricsManager.CounterActivitiesRecomputed.WithLabelValues("day").Add(float64(result.UpdatedDays))
	s.metricsManager.CounterActivitiesRecomputed.WithLabelValues("metrics").Add(float64(result.UpdatedActivityMetrics))
	s.metricsManager.CounterDailyRowsWritten.Add(float64(result.DailyRows))

	log.Infof(
		"rebuild [%s] athlete %d: days %d, metrics %d, daily rows %d, force %t, took %s",
		result.RunID, req.AthleteID,
		result.UpdatedDays, result.UpdatedActivityMetrics, result.DailyRows,
		req.Force, time.Since(startedAt),
	)

	return result, nil
}

func (s *Service) rebuild(ctx context.Context, repo Repo, req RebuildRequest, result *RebuildResult) error {
	activities, err := repo.ListActivities(ctx, req.AthleteID)
	if err != nil {
		return fmt.Errorf("list activities: %w", err)
	}
	if len(activities) == 0 {
		result.Note = NoteNoActivities
		return nil
	}

	// days are resolved before filtering, so the range applies to local days
	var dayUpdates []Activity
	for i := range activities {
		a := &activities[i]
		if req.Force || a.Day == nil {
			day := ResolveDay(a.StartDate, a.Timezone)
			a.Day = &day
			dayUpdates = append(dayUpdates, *a)
		}
	}
	if len(dayUpdates) > 0 {
		if err := repo.UpdateActivityDays(ctx, dayUpdates); err != nil {
			return fmt.Errorf("update activity days: %w", err)
		}
	}
	result.UpdatedDays = len(dayUpdates)
	result.UpdatedActivities = result.UpdatedDays

	inRange := filterByDay(activities, req.From, req.To)
	if len(inRange) == 0 {
		result.Range = &DayBounds{
			From: formatOptionalDay(req.From),
			To:   formatOptionalDay(req.To),
		}
		result.Note = NoteNoActivitiesInRange
		return nil
	}

	profile, err := repo.GetProfile(ctx, req.AthleteID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("get profile: %w", err)
	}

	var metricUpdates []Activity
	for i := range inRange {
		a := &inRange[i]
		if req.Force || a.needsMetrics() {
			a.ApplyMetrics(s.engine.ComputeActivityMetrics(*a, profile))
			metricUpdates = append(metricUpdates, *a)
		}
	}
	if len(metricUpdates) > 0 {
		if err := repo.UpdateActivityMetrics(ctx, metricUpdates); err != nil {
			return fmt.Errorf("update activity metrics: %w", err)
		}
	}
	result.UpdatedActivityMetrics = len(metricUpdates)
	result.UpdatedActivities += result.UpdatedActivityMetrics

	minDay, maxDay := dayBounds(inRange)

	prev, err := repo.DailyMetricBefore(ctx, req.AthleteID, minDay)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("get seed daily metric: %w", err)
	}

	rows := s.engine.FoldDays(req.AthleteID, SeedFrom(prev), minDay, maxDay, AggregateDays(inRange, minDay, maxDay))
	if err := repo.UpsertDailyMetrics(ctx, rows); err != nil {
		return fmt.Errorf("upsert daily metrics: %w", err)
	}
	result.DailyRows = len(rows)
	result.Range = &DayBounds{
		From: formatOptionalDay(&minDay),
		To:   formatOptionalDay(&maxDay),
	}

	series, err := repo.ListDailyMetrics(ctx, req.AthleteID, minDay.AddDate(0, 0, -rampWindowDays), maxDay)
	if err != nil {
		return fmt.Errorf("list daily metrics: %w", err)
	}
	var target float64
	if profile != nil {
		target = profile.TargetWeeklyTSS
	}
	summary := SummarizeWeeks(series, minDay, maxDay, target)
	result.WeeklySummary = &summary

	return nil
}

// LatestDailyMetric returns the newest daily row of the athlete, or ErrNotFound.
func (s *Service) LatestDailyMetric(ctx context.Context, athleteID int64) (_ *DailyMetric, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.trainingload.dailymetrics.latest")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	rows, err := s.repo.LatestDailyMetrics(ctx, athleteID, 1)
	if err != nil {
		return nil, fmt.Errorf("latest daily metric: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return &rows[0], nil
}

// RecentLoad returns up to the last seven daily rows in ascending order,
// with CTL, ATL and TSB rounded to one decimal.
func (s *Service) RecentLoad(ctx context.Context, athleteID int64) (_ []DailyMetric, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.trainingload.recentload")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if s.cache != nil {
		if rows, ok := s.cache.GetRecentLoad(athleteID); ok {
			log.Tracef("found recent load for athlete %d in cache", athleteID)
			return rows, nil
		}
	}

	latest, err := s.repo.LatestDailyMetrics(ctx, athleteID, recentLoadDays)
	if err != nil {
		return nil, fmt.Errorf("latest daily metrics: %w", err)
	}
	if len(latest) == 0 {
		return nil, ErrNotFound
	}

	rows := make([]DailyMetric, 0, len(latest))
	for i := len(latest) - 1; i >= 0; i-- {
		row := latest[i]
		row.CTL = round1(row.CTL)
		row.ATL = round1(row.ATL)
		row.TSB = round1(row.TSB)
		rows = append(rows, row)
	}

	if s.cache != nil {
		s.cache.SetRecentLoad(athleteID, rows)
	}

	return rows, nil
}

// DailyMetrics returns the stored rows within [from, to].
func (s *Service) DailyMetrics(ctx context.Context, athleteID int64, from, to time.Time) (_ []DailyMetric, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.trainingload.dailymetrics.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	if to.Before(from) {
		return nil, fmt.Errorf("%w: from %s is after to %s", ErrInvalidRange, FormatDay(from), FormatDay(to))
	}

	rows, err := s.repo.ListDailyMetrics(ctx, athleteID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list daily metrics: %w", err)
	}
	return rows, nil
}

func filterByDay(activities []Activity, from, to *time.Time) []Activity {
	filtered := make([]Activity, 0, len(activities))
	for _, a := range activities {
		if a.Day == nil {
			continue
		}
		day := DateOf(*a.Day)
		if from != nil && day.Before(DateOf(*from)) {
			continue
		}
		if to != nil && day.After(DateOf(*to)) {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered
}

// dayBounds expects a non-empty slice of activities with resolved days.
func dayBounds(activities []Activity) (minDay, maxDay time.Time) {
	for i, a := range activities {
		day := DateOf(*a.Day)
		if i == 0 || day.Before(minDay) {
			minDay = day
		}
		if i == 0 || day.After(maxDay) {
			maxDay = day
		}
	}
	return minDay, maxDay
}

func formatOptionalDay(d *time.Time) *string {
	if d == nil {
		return nil
	}
	s := FormatDay(*d)
	return &s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
