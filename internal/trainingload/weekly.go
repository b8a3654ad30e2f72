package trainingload

import (
	"sort"
	"time"
)

const rampWindowDays = 7

type WeekSummary struct {
	WeekStart       string   `json:"weekStart"`
	TSSWeek         float64  `json:"tssWeek"`
	TargetWeeklyTSS *float64 `json:"targetWeeklyTss"`
	Compliance      *float64 `json:"compliance"`
}

type WeeklySummary struct {
	RampRate7d *float64      `json:"rampRate7d"`
	Weeks      []WeekSummary `json:"weeks"`
}

// SummarizeWeeks buckets the TSS of rows within [from, to] into Monday weeks.
// rows may start before from: the row seven days before to is only used for
// the CTL ramp rate. targetWeeklyTSS <= 0 means no target.
func SummarizeWeeks(rows []DailyMetric, from, to time.Time, targetWeeklyTSS float64) WeeklySummary {
	from, to = DateOf(from), DateOf(to)
	rampFrom := to.AddDate(0, 0, -rampWindowDays)

	var target *float64
	if targetWeeklyTSS > 0 {
		target = &targetWeeklyTSS
	}

	var ctlTo, ctlRampFrom *float64
	week2tss := make(map[time.Time]float64)
	for i := range rows {
		row := rows[i]
		day := DateOf(row.Day)
		switch {
		case day.Equal(to):
			ctlTo = &row.CTL
		case day.Equal(rampFrom):
			ctlRampFrom = &row.CTL
		}
		if day.Before(from) || day.After(to) {
			continue
		}
		week2tss[WeekStart(day)] += row.TSS
	}

	summary := WeeklySummary{
		Weeks: make([]WeekSummary, 0, len(week2tss)),
	}
	if ctlTo != nil && ctlRampFrom != nil {
		ramp := *ctlTo - *ctlRampFrom
		summary.RampRate7d = &ramp
	}

	weekStarts := make([]time.Time, 0, len(week2tss))
	for ws := range week2tss {
		weekStarts = append(weekStarts, ws)
	}
	sort.Slice(weekStarts, func(i, j int) bool {
		return weekStarts[i].Before(weekStarts[j])
	})

	for _, ws := range weekStarts {
		week := WeekSummary{
			WeekStart:       FormatDay(ws),
			TSSWeek:         week2tss[ws],
			TargetWeeklyTSS: target,
		}
		if target != nil {
			compliance := week.TSSWeek / *target
			week.Compliance = &compliance
		}
		summary.Weeks = append(summary.Weeks, week)
	}

	return summary
}
