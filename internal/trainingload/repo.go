package trainingload

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrRebuildInProgress = errors.New("rebuild already in progress")
	ErrInvalidRange      = errors.New("invalid day range")
)

// Repo is the storage the rebuild pipeline reads from and writes back to.
type Repo interface {
	// ListActivities returns all activities of the athlete ordered by start instant.
	ListActivities(ctx context.Context, athleteID int64) ([]Activity, error)
	// GetProfile returns ErrNotFound when the athlete has no profile.
	GetProfile(ctx context.Context, athleteID int64) (*AthleteProfile, error)
	UpdateActivityDays(ctx context.Context, activities []Activity) error
	UpdateActivityMetrics(ctx context.Context, activities []Activity) error

	// DailyMetricBefore returns the newest row strictly before day, or ErrNotFound.
	DailyMetricBefore(ctx context.Context, athleteID int64, day time.Time) (*DailyMetric, error)
	// UpsertDailyMetrics replaces rows keyed by (athlete, day).
	UpsertDailyMetrics(ctx context.Context, rows []DailyMetric) error
	// ListDailyMetrics returns rows within [from, to] ordered by day.
	ListDailyMetrics(ctx context.Context, athleteID int64, from, to time.Time) ([]DailyMetric, error)
	// LatestDailyMetrics returns up to limit rows, newest first.
	LatestDailyMetrics(ctx context.Context, athleteID int64, limit int) ([]DailyMetric, error)

	// InTx runs fn against a repo bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(repo Repo) error) error
}
