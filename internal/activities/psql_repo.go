package activities

import (
	"context"
	"fmt"

	"github.com/2beens/trainingload/internal/telemetry/tracing"
	"github.com/2beens/trainingload/internal/trainingload"
	"github.com/2beens/trainingload/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

const insertActivity = `
	INSERT INTO activities (
		athlete_id, source_activity_id, name, sport_type, start_date, timezone,
		distance_m, moving_time_s, elapsed_time_s, total_elevation_gain_m,
		average_speed, max_speed, average_cadence, average_temp,
		average_watts, max_watts, weighted_average_watts, kilojoules,
		average_heartrate, max_heartrate, elev_high, elev_low, suffer_score, trainer
	) VALUES (
		$1, $2, $3, $4, $5, $6,
		$7, $8, $9, $10,
		$11, $12, $13, $14,
		$15, $16, $17, $18,
		$19, $20, $21, $22, $23, $24
	)`

// A re-imported activity replaces every source field. The resolved day is
// dropped when the start instant or the timezone changed, and the derived
// metrics are always dropped so the next rebuild recomputes them.
const upsertActivity = insertActivity + `
	ON CONFLICT (source_activity_id) DO UPDATE SET
		name = EXCLUDED.name,
		sport_type = EXCLUDED.sport_type,
		start_date = EXCLUDED.start_date,
		timezone = EXCLUDED.timezone,
		distance_m = EXCLUDED.distance_m,
		moving_time_s = EXCLUDED.moving_time_s,
		elapsed_time_s = EXCLUDED.elapsed_time_s,
		total_elevation_gain_m = EXCLUDED.total_elevation_gain_m,
		average_speed = EXCLUDED.average_speed,
		max_speed = EXCLUDED.max_speed,
		average_cadence = EXCLUDED.average_cadence,
		average_temp = EXCLUDED.average_temp,
		average_watts = EXCLUDED.average_watts,
		max_watts = EXCLUDED.max_watts,
		weighted_average_watts = EXCLUDED.weighted_average_watts,
		kilojoules = EXCLUDED.kilojoules,
		average_heartrate = EXCLUDED.average_heartrate,
		max_heartrate = EXCLUDED.max_heartrate,
		elev_high = EXCLUDED.elev_high,
		elev_low = EXCLUDED.elev_low,
		suffer_score = EXCLUDED.suffer_score,
		trainer = EXCLUDED.trainer,
		day = CASE
			WHEN activities.start_date IS DISTINCT FROM EXCLUDED.start_date
				OR activities.timezone IS DISTINCT FROM EXCLUDED.timezone
			THEN NULL
			ELSE activities.day
		END,
		tss = NULL,
		tss_method = NULL,
		if_value = NULL,
		if_method = NULL,
		work_kj = NULL,
		ef = NULL,
		ef_method = NULL,
		updated_at = now()
	WHERE activities.athlete_id = EXCLUDED.athlete_id`

type PsqlRepo struct {
	db *pgxpool.Pool
}

func NewPsqlRepo(db *pgxpool.Pool) *PsqlRepo {
	return &PsqlRepo{
		db: db,
	}
}

func activityArgs(a trainingload.Activity) []any {
	return []any{
		a.AthleteID, a.SourceActivityID, a.Name, a.SportType, a.StartDate, a.Timezone,
		a.DistanceM, a.MovingTimeS, a.ElapsedTimeS, a.TotalElevationGainM,
		a.AverageSpeed, a.MaxSpeed, a.AverageCadence, a.AverageTemp,
		a.AverageWatts, a.MaxWatts, a.WeightedAverageWatts, a.Kilojoules,
		a.AverageHeartrate, a.MaxHeartrate, a.ElevHigh, a.ElevLow, a.SufferScore, a.Trainer,
	}
}

// Upsert writes the activities keyed by source id and returns the number of
// rows written. A source id owned by another athlete is left untouched.
func (r *PsqlRepo) Upsert(ctx context.Context, activities []trainingload.Activity) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.upsert")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("count", len(activities)))

	if len(activities) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, a := range activities {
		batch.Queue(upsertActivity, activityArgs(a)...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer func() {
		if closeErr := results.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	written := 0
	for i := range activities {
		tag, err := results.Exec()
		if err != nil {
			return written, fmt.Errorf("upsert activity %d: %w", activities[i].SourceActivityID, err)
		}
		written += int(tag.RowsAffected())
	}

	return written, nil
}

// Insert stores a single new activity and returns its id.
// ErrDuplicateActivity is returned when the source id is already stored.
func (r *PsqlRepo) Insert(ctx context.Context, a trainingload.Activity) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.insert")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var id int64
	if err := r.db.QueryRow(ctx, insertActivity+` RETURNING id`, activityArgs(a)...).Scan(&id); err != nil {
		if pkg.IsUniqueViolationError(err) {
			return 0, fmt.Errorf("%w: source id %d", ErrDuplicateActivity, a.SourceActivityID)
		}
		return 0, err
	}

	return id, nil
}
