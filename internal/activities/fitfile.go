package activities

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/2beens/trainingload/internal/trainingload"

	"github.com/tormoder/fit"
)

// DecodeFIT reads an activity FIT file and maps its first session onto an
// Activity. The source id is negative so it never collides with ids coming
// from the activity source API.
func DecodeFIT(r io.Reader, athleteID int64, name string) (trainingload.Activity, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return trainingload.Activity{}, fmt.Errorf("%w: decode FIT file: %s", ErrInvalidActivity, err)
	}

	activityFile, err := decoded.Activity()
	if err != nil {
		return trainingload.Activity{}, fmt.Errorf("%w: activity FIT expected: %s", ErrInvalidActivity, err)
	}
	if len(activityFile.Sessions) == 0 {
		return trainingload.Activity{}, fmt.Errorf("%w: activity file has no session message", ErrInvalidActivity)
	}
	session := activityFile.Sessions[0]

	start := validTimeOrZero(session.StartTime)
	if start.IsZero() {
		start = validTimeOrZero(decoded.FileId.TimeCreated)
	}
	if start.IsZero() {
		return trainingload.Activity{}, fmt.Errorf("%w: activity file has no start time", ErrInvalidActivity)
	}

	sportType := fmt.Sprint(session.Sport)
	elapsed := safePositive(session.GetTotalElapsedTimeScaled())
	timer := safePositive(session.GetTotalTimerTimeScaled())
	moving := safePositive(session.GetTotalMovingTimeScaled())
	if moving == 0 {
		moving = timer
	}
	if elapsed == 0 {
		elapsed = timer
	}

	a := trainingload.Activity{
		AthleteID:           athleteID,
		SourceActivityID:    fitSourceID(decoded.FileId.SerialNumber, start),
		Name:                name,
		SportType:           sportType,
		StartDate:           start.UTC(),
		DistanceM:           safePositive(session.GetTotalDistanceScaled()),
		MovingTimeS:         int64(math.Round(moving)),
		ElapsedTimeS:        int64(math.Round(elapsed)),
		TotalElevationGainM: float64(validUint16(session.TotalAscent)),

		AverageSpeed:         firstPositive(session.GetEnhancedAvgSpeedScaled(), session.GetAvgSpeedScaled()),
		MaxSpeed:             firstPositive(session.GetEnhancedMaxSpeedScaled(), session.GetMaxSpeedScaled()),
		AverageCadence:       NormalizeCadence(sportType, positiveOrNil(cadenceFromAny(session.GetAvgCadence()))),
		AverageWatts:         positiveOrNil(float64(validUint16(session.AvgPower))),
		MaxWatts:             positiveOrNil(float64(validUint16(session.MaxPower))),
		WeightedAverageWatts: positiveOrNil(float64(validUint16(session.NormalizedPower))),
		Kilojoules:           positiveOrNil(float64(validUint32(session.TotalWork)) / 1000.0),
		AverageHeartrate:     positiveOrNil(float64(validUint8(session.AvgHeartRate))),
		MaxHeartrate:         positiveOrNil(float64(validUint8(session.MaxHeartRate))),
	}
	if session.AvgTemperature != math.MaxInt8 {
		temp := float64(session.AvgTemperature)
		a.AverageTemp = &temp
	}

	if activityFile.Activity != nil {
		a.Timezone = offsetZone(activityFile.Activity.Timestamp, activityFile.Activity.LocalTimestamp)
	}

	return a, nil
}

func fitSourceID(serial uint32, start time.Time) int64 {
	return -(int64(serial&math.MaxInt32)<<32 | int64(uint32(start.Unix())))
}

// offsetZone names the fixed zone implied by the local timestamp the device
// recorded, in the "(GMT+hh:mm) Zone" form the day resolver understands.
// Only whole-hour offsets have an IANA name.
func offsetZone(timestamp, localTimestamp time.Time) string {
	timestamp, localTimestamp = validTimeOrZero(timestamp), validTimeOrZero(localTimestamp)
	if timestamp.IsZero() || localTimestamp.IsZero() {
		return ""
	}

	offset := localTimestamp.Sub(timestamp).Round(time.Minute)
	if offset%time.Hour != 0 || offset > 14*time.Hour || offset < -12*time.Hour {
		return ""
	}

	hours := int(offset / time.Hour)
	sign := "+"
	if hours < 0 {
		sign = "-"
	}
	// Etc zones carry the inverted sign
	zone := "Etc/GMT"
	switch {
	case hours > 0:
		zone = fmt.Sprintf("Etc/GMT-%d", hours)
	case hours < 0:
		zone = fmt.Sprintf("Etc/GMT+%d", -hours)
	}
	return fmt.Sprintf("(GMT%s%02d:00) %s", sign, abs(hours), zone)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func validTimeOrZero(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}

func validUint8(v uint8) uint8 {
	if v == math.MaxUint8 {
		return 0
	}
	return v
}

func validUint16(v uint16) uint16 {
	if v == math.MaxUint16 {
		return 0
	}
	return v
}

func validUint32(v uint32) uint32 {
	if v == math.MaxUint32 {
		return 0
	}
	return v
}

func cadenceFromAny(v any) float64 {
	switch x := v.(type) {
	case uint8:
		return float64(validUint8(x))
	case uint16:
		return float64(validUint16(x))
	case float64:
		return safePositive(x)
	default:
		return 0
	}
}

func safePositive(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return v
}

func positiveOrNil(v float64) *float64 {
	if v = safePositive(v); v == 0 {
		return nil
	}
	return &v
}

func firstPositive(values ...float64) *float64 {
	for _, v := range values {
		if p := positiveOrNil(v); p != nil {
			return p
		}
	}
	return nil
}
