package activities

import (
	"errors"
	"fmt"
	"time"

	"github.com/2beens/trainingload/internal/strava"
	"github.com/2beens/trainingload/internal/trainingload"
)

var (
	ErrInvalidActivity   = errors.New("invalid activity")
	ErrDuplicateActivity = errors.New("activity already imported")
)

// FromSummary maps a source summary onto an Activity ready to be stored.
// Missing distance, durations and elevation gain become zero, every other
// sensor field stays absent when the source did not send it.
func FromSummary(athleteID int64, s strava.SummaryActivity) (trainingload.Activity, error) {
	if s.ID <= 0 {
		return trainingload.Activity{}, fmt.Errorf("%w: missing source id", ErrInvalidActivity)
	}
	start, err := time.Parse(time.RFC3339, s.StartDate)
	if err != nil {
		return trainingload.Activity{}, fmt.Errorf("%w: source id %d: start date: %s", ErrInvalidActivity, s.ID, err)
	}

	sportType := s.SportType
	if sportType == "" {
		sportType = s.Type
	}

	return trainingload.Activity{
		AthleteID:        athleteID,
		SourceActivityID: s.ID,
		Name:             s.Name,
		SportType:        sportType,
		StartDate:        start.UTC(),
		Timezone:         s.Timezone,

		DistanceM:           valueOrZero(s.Distance),
		MovingTimeS:         valueOrZero(s.MovingTime),
		ElapsedTimeS:        valueOrZero(s.ElapsedTime),
		TotalElevationGainM: valueOrZero(s.TotalElevationGain),

		AverageSpeed:         s.AverageSpeed,
		MaxSpeed:             s.MaxSpeed,
		AverageCadence:       NormalizeCadence(sportType, s.AverageCadence),
		AverageTemp:          s.AverageTemp,
		AverageWatts:         s.AverageWatts,
		MaxWatts:             s.MaxWatts,
		WeightedAverageWatts: s.WeightedAverageWatts,
		Kilojoules:           s.Kilojoules,
		AverageHeartrate:     s.AverageHeartrate,
		MaxHeartrate:         s.MaxHeartrate,
		ElevHigh:             s.ElevHigh,
		ElevLow:              s.ElevLow,
		SufferScore:          s.SufferScore,
		Trainer:              s.Trainer,
	}, nil
}

// NormalizeCadence turns the single-leg cadence reported for running sports
// into steps per minute. Other sports are returned unchanged.
func NormalizeCadence(sportType string, cadence *float64) *float64 {
	if cadence == nil {
		return nil
	}
	c := *cadence
	if trainingload.BucketOf(sportType) == trainingload.SportRunning {
		c *= 2
	}
	return &c
}

func valueOrZero[T int64 | float64](v *T) T {
	if v == nil {
		return 0
	}
	return *v
}
