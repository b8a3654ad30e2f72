package trainingload

import (
	"math"
	"time"
)

// LoadState is the fold state carried from one day to the next.
type LoadState struct {
	CTL float64
	ATL float64
}

// SeedFrom returns the state stored in prev, or the zero state.
func SeedFrom(prev *DailyMetric) LoadState {
	if prev == nil {
		return LoadState{}
	}
	return LoadState{
		CTL: prev.CTL,
		ATL: prev.ATL,
	}
}

// Step advances the state by one day of tss and returns the balance
// entering that day together with the new state.
func (e *Engine) Step(prev LoadState, tss float64) (tsb float64, next LoadState) {
	tsb = prev.CTL - prev.ATL
	next = LoadState{
		CTL: prev.CTL + (tss-prev.CTL)/e.constants.CTLTimeConstant,
		ATL: prev.ATL + (tss-prev.ATL)/e.constants.ATLTimeConstant,
	}
	return tsb, next
}

// dailyIF estimates a day's intensity back from its TSS and duration.
func dailyIF(tss float64, durationS int64) *float64 {
	if durationS <= 0 || tss <= 0 {
		return nil
	}
	hours := float64(durationS) / secondsPerHour
	v := math.Sqrt(tss / (hours * 100.0))
	return &v
}

// FoldDays walks every day in [from, to] in ascending order starting from
// seed and returns one DailyMetric per day, including days without training.
func (e *Engine) FoldDays(
	athleteID int64,
	seed LoadState,
	from, to time.Time,
	day2agg map[time.Time]DayAggregate,
) []DailyMetric {
	days := DayRange(from, to)
	rows := make([]DailyMetric, 0, len(days))

	state := seed
	for _, day := range days {
		agg := day2agg[day]

		tsb, next := e.Step(state, agg.TSS)
		rows = append(rows, DailyMetric{
			AthleteID: athleteID,
			Day:       day,
			TSS:       agg.TSS,
			DurationS: agg.DurationS,
			WorkKJ:    agg.WorkKJ,
			IFValue:   dailyIF(agg.TSS, agg.DurationS),
			EF:        agg.EF(),
			CTL:       next.CTL,
			ATL:       next.ATL,
			TSB:       tsb,
		})

		state = next
	}

	return rows
}
