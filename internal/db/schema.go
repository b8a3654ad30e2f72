package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const Schema = `
CREATE TABLE IF NOT EXISTS activities (
	id                     BIGSERIAL PRIMARY KEY,
	athlete_id             BIGINT NOT NULL,
	source_activity_id     BIGINT NOT NULL UNIQUE,
	name                   TEXT NOT NULL DEFAULT '',
	sport_type             TEXT NOT NULL DEFAULT '',
	start_date             TIMESTAMPTZ NOT NULL,
	timezone               TEXT NOT NULL DEFAULT '',

	distance_m             DOUBLE PRECISION NOT NULL DEFAULT 0,
	moving_time_s          BIGINT NOT NULL DEFAULT 0,
	elapsed_time_s         BIGINT NOT NULL DEFAULT 0,
	total_elevation_gain_m DOUBLE PRECISION NOT NULL DEFAULT 0,

	average_speed          DOUBLE PRECISION,
	max_speed              DOUBLE PRECISION,
	average_cadence        DOUBLE PRECISION,
	average_temp           DOUBLE PRECISION,
	average_watts          DOUBLE PRECISION,
	max_watts              DOUBLE PRECISION,
	weighted_average_watts DOUBLE PRECISION,
	kilojoules             DOUBLE PRECISION,
	average_heartrate      DOUBLE PRECISION,
	max_heartrate          DOUBLE PRECISION,
	elev_high              DOUBLE PRECISION,
	elev_low               DOUBLE PRECISION,
	suffer_score           DOUBLE PRECISION,
	trainer                BOOLEAN NOT NULL DEFAULT FALSE,

	day                    DATE,
	tss                    DOUBLE PRECISION,
	tss_method             TEXT,
	if_value               DOUBLE PRECISION,
	if_method              TEXT,
	work_kj                DOUBLE PRECISION,
	ef                     DOUBLE PRECISION,
	ef_method              TEXT,

	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS activities_athlete_day_idx ON activities (athlete_id, day);
CREATE INDEX IF NOT EXISTS activities_athlete_start_idx ON activities (athlete_id, start_date);

CREATE TABLE IF NOT EXISTS athlete_profile (
	athlete_id                BIGINT PRIMARY KEY,
	ftp_watts                 DOUBLE PRECISION,
	lthr_bpm                  DOUBLE PRECISION,
	threshold_pace_sec_per_km DOUBLE PRECISION,
	target_weekly_tss         DOUBLE PRECISION,
	updated_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS daily_metrics (
	athlete_id BIGINT NOT NULL,
	day        DATE NOT NULL,
	tss        DOUBLE PRECISION NOT NULL DEFAULT 0,
	duration_s BIGINT NOT NULL DEFAULT 0,
	work_kj    DOUBLE PRECISION NOT NULL DEFAULT 0,
	if_value   DOUBLE PRECISION,
	ef         DOUBLE PRECISION,
	ctl        DOUBLE PRECISION NOT NULL,
	atl        DOUBLE PRECISION NOT NULL,
	tsb        DOUBLE PRECISION NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (athlete_id, day)
);
`

// EnsureSchema creates the tables the service needs if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	log.Debugln("db schema ensured")
	return nil
}
