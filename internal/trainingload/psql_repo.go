package trainingload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/trainingload/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

const activityColumns = `
	id, athlete_id, source_activity_id, name, sport_type, start_date, timezone,
	distance_m, moving_time_s, elapsed_time_s, total_elevation_gain_m,
	average_speed, max_speed, average_cadence, average_temp,
	average_watts, max_watts, weighted_average_watts, kilojoules,
	average_heartrate, max_heartrate, elev_high, elev_low, suffer_score, trainer,
	day, tss, tss_method, if_value, if_method, work_kj, ef, ef_method`

const dailyMetricColumns = `
	athlete_id, day, tss, duration_s, work_kj, if_value, ef, ctl, atl, tsb`

type PsqlRepo struct {
	pool *pgxpool.Pool
	db   dbtx
}

func NewPsqlRepo(pool *pgxpool.Pool) *PsqlRepo {
	return &PsqlRepo{
		pool: pool,
		db:   pool,
	}
}

func (r *PsqlRepo) InTx(ctx context.Context, fn func(repo Repo) error) (err error) {
	// already bound to a transaction
	if r.pool == nil {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	return fn(&PsqlRepo{db: tx})
}

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	err := row.Scan(
		&a.ID, &a.AthleteID, &a.SourceActivityID, &a.Name, &a.SportType, &a.StartDate, &a.Timezone,
		&a.DistanceM, &a.MovingTimeS, &a.ElapsedTimeS, &a.TotalElevationGainM,
		&a.AverageSpeed, &a.MaxSpeed, &a.AverageCadence, &a.AverageTemp,
		&a.AverageWatts, &a.MaxWatts, &a.WeightedAverageWatts, &a.Kilojoules,
		&a.AverageHeartrate, &a.MaxHeartrate, &a.ElevHigh, &a.ElevLow, &a.SufferScore, &a.Trainer,
		&a.Day, &a.TSS, &a.TSSMethod, &a.IFValue, &a.IFMethod, &a.WorkKJ, &a.EF, &a.EFMethod,
	)
	return a, err
}

func scanDailyMetric(row pgx.Row) (DailyMetric, error) {
	var m DailyMetric
	err := row.Scan(
		&m.AthleteID, &m.Day, &m.TSS, &m.DurationS, &m.WorkKJ,
		&m.IFValue, &m.EF, &m.CTL, &m.ATL, &m.TSB,
	)
	return m, err
}

func (r *PsqlRepo) ListActivities(ctx context.Context, athleteID int64) (_ []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainingload.activities.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int64("athlete-id", athleteID))

	rows, err := r.db.Query(ctx, `
		SELECT `+activityColumns+`
		FROM activities
		WHERE athlete_id = $1
		ORDER BY start_date ASC, id ASC
	`, athleteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return activities, nil
}

func (r *PsqlRepo) GetProfile(ctx context.Context, athleteID int64) (_ *AthleteProfile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainingload.profile.get")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	var ftp, lthr, pace, target *float64
	err = r.db.QueryRow(ctx, `
		SELECT ftp_watts, lthr_bpm, threshold_pace_sec_per_km, target_weekly_tss
		FROM athlete_profile
		WHERE athlete_id = $1
	`, athleteID).Scan(&ftp, &lthr, &pace, &target)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &AthleteProfile{
		AthleteID:             athleteID,
		FTPWatts:              valueOrZero(ftp),
		LTHRBpm:               valueOrZero(lthr),
		ThresholdPaceSecPerKm: valueOrZero(pace),
		TargetWeeklyTSS:       valueOrZero(target),
	}, nil
}

func (r *PsqlRepo) UpdateActivityDays(ctx context.Context, activities []Activity) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainingload.activities.updatedays")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("count", len(activities)))

	batch := &pgx.Batch{}
	for _, a := range activities {
		batch.Queue(`
			UPDATE activities SET day = $2, updated_at = now()
			WHERE id = $1
		`, a.ID, a.Day)
	}
	return r.sendBatch(ctx, batch)
}

func (r *PsqlRepo) UpdateActivityMetrics(ctx context.Context, activities []Activity) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainingload.activities.updatemetrics")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("count", len(activities)))

	batch := &pgx.Batch{}
	for _, a := range activities {
		batch.Queue(`
			UPDATE activities SET
				tss = $2, tss_method = $3,
				if_value = $4, if_method = $5,
				work_kj = $6,
				ef = $7, ef_method = $8,
				updated_at = now()
			WHERE id = $1
		`,
			a.ID,
			a.TSS, a.TSSMethod,
			a.IFValue, a.IFMethod,
			a.WorkKJ,
			a.EF, a.EFMethod,
		)
	}
	return r.sendBatch(ctx, batch)
}

func (r *PsqlRepo) DailyMetricBefore(ctx context.Context, athleteID int64, day time.Time) (_ *DailyMetric, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainingload.dailymetrics.before")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	m, err := scanDailyMetric(r.db.QueryRow(ctx, `
		SELECT `+dailyMetricColumns+`
		FROM daily_metrics
		WHERE athlete_id = $1 AND day < $2
		ORDER BY day DESC
		LIMIT 1
	`, athleteID, DateOf(day)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PsqlRepo) UpsertDailyMetrics(ctx context.Context, rows []DailyMetric) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainingload.dailymetrics.upsert")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(attribute.Int("count", len(rows)))

	batch := &pgx.Batch{}
	for _, m := range rows {
		batch.Queue(`
			INSERT INTO daily_metrics (`+dailyMetricColumns+`, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
			ON CONFLICT (athlete_id, day) DO UPDATE SET
				tss = EXCLUDED.tss,
				duration_s = EXCLUDED.duration_s,
				work_kj = EXCLUDED.work_kj,
				if_value = EXCLUDED.if_value,
				ef = EXCLUDED.ef,
				ctl = EXCLUDED.ctl,
				atl = EXCLUDED.atl,
				tsb = EXCLUDED.tsb,
				updated_at = EXCLUDED.updated_at
		`,
			m.AthleteID, m.Day, m.TSS, m.DurationS, m.WorkKJ,
			m.IFValue, m.EF, m.CTL, m.ATL, m.TSB,
		)
	}
	return r.sendBatch(ctx, batch)
}

func (r *PsqlRepo) ListDailyMetrics(ctx context.Context, athleteID int64, from, to time.Time) (_ []DailyMetric, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainingload.dailymetrics.list")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()
	span.SetAttributes(
		attribute.Int64("athlete-id", athleteID),
		attribute.String("from", FormatDay(from)),
		attribute.String("to", FormatDay(to)),
	)

	return r.queryDailyMetrics(ctx, `
		SELECT `+dailyMetricColumns+`
		FROM daily_metrics
		WHERE athlete_id = $1 AND day >= $2 AND day <= $3
		ORDER BY day ASC
	`, athleteID, DateOf(from), DateOf(to))
}

func (r *PsqlRepo) LatestDailyMetrics(ctx context.Context, athleteID int64, limit int) (_ []DailyMetric, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainingload.dailymetrics.latest")
	defer func() { tracing.EndSpanWithErrCheck(span, err) }()

	return r.queryDailyMetrics(ctx, `
		SELECT `+dailyMetricColumns+`
		FROM daily_metrics
		WHERE athlete_id = $1
		ORDER BY day DESC
		LIMIT $2
	`, athleteID, limit)
}

func (r *PsqlRepo) queryDailyMetrics(ctx context.Context, sql string, args ...any) ([]DailyMetric, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metrics := make([]DailyMetric, 0)
	for rows.Next() {
		m, err := scanDailyMetric(rows)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return metrics, nil
}

func (r *PsqlRepo) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	results := r.db.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return results.Close()
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
