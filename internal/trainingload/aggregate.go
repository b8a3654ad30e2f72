package trainingload

import "time"

// DayAggregate sums the activities resolved to one calendar day.
type DayAggregate struct {
	TSS       float64
	DurationS int64
	WorkKJ    float64
	// EF is time weighted: only activities with an EF contribute seconds
	EFWeightedSum  float64
	EFWeightedSecs int64
}

// EF returns the time-weighted efficiency factor of the day, if any.
func (a DayAggregate) EF() *float64 {
	if a.EFWeightedSecs <= 0 {
		return nil
	}
	ef := a.EFWeightedSum / float64(a.EFWeightedSecs)
	return &ef
}

// AggregateDays groups activities by resolved local day within [from, to].
// Activities without a resolved day are skipped.
func AggregateDays(activities []Activity, from, to time.Time) map[time.Time]DayAggregate {
	from, to = DateOf(from), DateOf(to)
	day2agg := make(map[time.Time]DayAggregate)
	for _, a := range activities {
		if a.Day == nil {
			continue
		}
		day := DateOf(*a.Day)
		if day.Before(from) || day.After(to) {
			continue
		}

		agg := day2agg[day]
		if a.TSS != nil {
			agg.TSS += *a.TSS
		}
		agg.DurationS += a.MovingTimeS
		if a.WorkKJ != nil {
			agg.WorkKJ += *a.WorkKJ
		}
		if a.EF != nil {
			agg.EFWeightedSum += *a.EF * float64(a.MovingTimeS)
			agg.EFWeightedSecs += a.MovingTimeS
		}
		day2agg[day] = agg
	}
	return day2agg
}
