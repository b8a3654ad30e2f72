package trainingload

import (
	"strings"
	"time"
)

// Activity is one training session as stored by the ingestion layer.
// Fields below Trainer are derived by the rebuild pass and are either all
// nil (never computed) or the output of a single ActivityMetrics computation.
type Activity struct {
	ID               int64     `json:"id"`
	AthleteID        int64     `json:"athleteId"`
	SourceActivityID int64     `json:"sourceActivityId"`
	Name             string    `json:"name"`
	SportType        string    `json:"sportType"`
	StartDate        time.Time `json:"startDate"`
	Timezone         string    `json:"timezone"`

	DistanceM           float64 `json:"distanceM"`
	MovingTimeS         int64   `json:"movingTimeS"`
	ElapsedTimeS        int64   `json:"elapsedTimeS"`
	TotalElevationGainM float64 `json:"totalElevationGainM"`

	AverageSpeed         *float64 `json:"averageSpeed,omitempty"`
	MaxSpeed             *float64 `json:"maxSpeed,omitempty"`
	AverageCadence       *float64 `json:"averageCadence,omitempty"`
	AverageTemp          *float64 `json:"averageTemp,omitempty"`
	AverageWatts         *float64 `json:"averageWatts,omitempty"`
	MaxWatts             *float64 `json:"maxWatts,omitempty"`
	WeightedAverageWatts *float64 `json:"weightedAverageWatts,omitempty"`
	Kilojoules           *float64 `json:"kilojoules,omitempty"`
	AverageHeartrate     *float64 `json:"averageHeartrate,omitempty"`
	MaxHeartrate         *float64 `json:"maxHeartrate,omitempty"`
	ElevHigh             *float64 `json:"elevHigh,omitempty"`
	ElevLow              *float64 `json:"elevLow,omitempty"`
	SufferScore          *float64 `json:"sufferScore,omitempty"`
	Trainer              bool     `json:"trainer"`

	Day       *time.Time `json:"day,omitempty"`
	TSS       *float64   `json:"tss,omitempty"`
	TSSMethod *string    `json:"tssMethod,omitempty"`
	IFValue   *float64   `json:"ifValue,omitempty"`
	IFMethod  *string    `json:"ifMethod,omitempty"`
	WorkKJ    *float64   `json:"workKj,omitempty"`
	EF        *float64   `json:"ef,omitempty"`
	EFMethod  *string    `json:"efMethod,omitempty"`
}

// ApplyMetrics overwrites the derived fields with m.
func (a *Activity) ApplyMetrics(m ActivityMetrics) {
	tss := m.TSS
	tssMethod := string(m.TSSMethod)
	a.TSS = &tss
	a.TSSMethod = &tssMethod
	a.IFValue = m.IFValue
	a.IFMethod = m.IFMethod
	a.WorkKJ = m.WorkKJ
	a.EF = m.EF
	a.EFMethod = m.EFMethod
}

// needsMetrics reports whether the derived fields have gaps an incremental
// rebuild should fill.
func (a *Activity) needsMetrics() bool {
	if a.TSS == nil || a.IFValue == nil || a.EF == nil {
		return true
	}
	return BucketOf(a.SportType) == SportCycling && a.WorkKJ == nil
}

// AthleteProfile holds the threshold values used to normalize intensity.
// A zero value means the threshold is unknown for that modality.
type AthleteProfile struct {
	AthleteID             int64   `json:"athleteId"`
	FTPWatts              float64 `json:"ftpWatts"`
	LTHRBpm               float64 `json:"lthrBpm"`
	ThresholdPaceSecPerKm float64 `json:"thresholdPaceSecPerKm"`
	TargetWeeklyTSS       float64 `json:"targetWeeklyTss"`
}

// DailyMetric is one row of the dense per-athlete day series.
type DailyMetric struct {
	AthleteID int64     `json:"athleteId"`
	Day       time.Time `json:"day"`
	TSS       float64   `json:"tss"`
	DurationS int64     `json:"durationS"`
	WorkKJ    float64   `json:"workKj"`
	IFValue   *float64  `json:"ifValue"`
	EF        *float64  `json:"ef"`
	CTL       float64   `json:"ctl"`
	ATL       float64   `json:"atl"`
	TSB       float64   `json:"tsb"`
}

// Sport is the coarse bucket a free-text sport label falls into.
type Sport string

const (
	SportCycling Sport = "cycling"
	SportRunning Sport = "running"
	SportOther   Sport = "other"
)

// BucketOf classifies a sport label by case-insensitive substring match.
func BucketOf(sportType string) Sport {
	s := strings.ToLower(sportType)
	switch {
	case strings.Contains(s, "ride"),
		strings.Contains(s, "bike"),
		strings.Contains(s, "cycling"):
		return SportCycling
	case strings.Contains(s, "run"):
		return SportRunning
	default:
		return SportOther
	}
}
