package trainingload

import "math"

const secondsPerHour = 3600.0

// TSSMethod tags which rule produced an activity's TSS.
type TSSMethod string

const (
	TSSPowerWeighted    TSSMethod = "power_tss_weighted_watts"
	TSSPowerAverage     TSSMethod = "power_tss_avg_watts"
	TSSPace             TSSMethod = "pace_tss"
	TSSHeartRate        TSSMethod = "hr_tss"
	TSSFallbackDuration TSSMethod = "fallback_duration"
	TSSNoDuration       TSSMethod = "no_duration"
	TSSNoDistance       TSSMethod = "no_distance"
)

const (
	IFPowerWeighted = "power_if_weighted_watts"
	IFPowerAverage  = "power_if_avg_watts"
	IFPace          = "pace_if"
	IFHeartRate     = "hr_if"
	IFFallback      = "fallback_if"

	EFPowerPerHR = "power_per_hr"
	EFSpeedPerHR = "speed_per_hr"
)

// Constants are the tunables of the load model.
type Constants struct {
	CTLTimeConstant   float64
	ATLTimeConstant   float64
	FallbackIFCycling float64
	FallbackIFRunning float64
	FallbackIFOther   float64
}

func DefaultConstants() Constants {
	return Constants{
		CTLTimeConstant:   42,
		ATLTimeConstant:   7,
		FallbackIFCycling: 0.60,
		FallbackIFRunning: 0.55,
		FallbackIFOther:   0.50,
	}
}

func (c Constants) fallbackIF(sport Sport) float64 {
	switch sport {
	case SportCycling:
		return c.FallbackIFCycling
	case SportRunning:
		return c.FallbackIFRunning
	default:
		return c.FallbackIFOther
	}
}

// ActivityMetrics is the derived load of a single activity.
type ActivityMetrics struct {
	TSS       float64   `json:"tss"`
	TSSMethod TSSMethod `json:"tssMethod"`
	IFValue   *float64  `json:"ifValue"`
	IFMethod  *string   `json:"ifMethod"`
	WorkKJ    *float64  `json:"workKj"`
	EF        *float64  `json:"ef"`
	EFMethod  *string   `json:"efMethod"`
}

// Engine derives per-activity metrics and the daily load series.
type Engine struct {
	constants Constants
}

func NewEngine(constants Constants) *Engine {
	return &Engine{
		constants: constants,
	}
}

func (e *Engine) Constants() Constants {
	return e.constants
}

// loadInput is what the intensity rules see of an activity.
type loadInput struct {
	sport    Sport
	seconds  float64
	hours    float64
	distance float64
	// power prefers weighted average watts over average watts
	power         *float64
	powerWeighted bool
	avgHR         *float64
	profile       AthleteProfile
}

// loadEstimate is the outcome of one intensity rule.
type loadEstimate struct {
	tss       float64
	tssMethod TSSMethod
	ifValue   *float64
	ifMethod  *string
}

func estimateFromIF(in loadInput, ifValue float64, ifMethod string, tssMethod TSSMethod) loadEstimate {
	return loadEstimate{
		tss:       in.hours * ifValue * ifValue * 100.0,
		tssMethod: tssMethod,
		ifValue:   &ifValue,
		ifMethod:  &ifMethod,
	}
}

type loadRule struct {
	name     string
	applies  func(in loadInput) bool
	estimate func(in loadInput) loadEstimate
}

// loadRules are tried in order; the first applicable one wins.
// The duration fallback is not a rule, it is what estimateLoad returns
// when nothing here applies.
var loadRules = []loadRule{
	{
		name: "cycling_power",
		applies: func(in loadInput) bool {
			return in.sport == SportCycling && in.power != nil && in.profile.FTPWatts > 0
		},
		estimate: func(in loadInput) loadEstimate {
			ifValue := *in.power / in.profile.FTPWatts
			if in.powerWeighted {
				return estimateFromIF(in, ifValue, IFPowerWeighted, TSSPowerWeighted)
			}
			return estimateFromIF(in, ifValue, IFPowerAverage, TSSPowerAverage)
		},
	},
	{
		name: "running_pace",
		applies: func(in loadInput) bool {
			return in.sport == SportRunning && in.profile.ThresholdPaceSecPerKm > 0 && in.distance > 0
		},
		estimate: func(in loadInput) loadEstimate {
			km := in.distance / 1000.0
			if km <= 0 {
				return loadEstimate{tss: 0, tssMethod: TSSNoDistance}
			}
			pace := in.seconds / km
			return estimateFromIF(in, in.profile.ThresholdPaceSecPerKm/pace, IFPace, TSSPace)
		},
	},
	{
		name: "heart_rate",
		applies: func(in loadInput) bool {
			return in.avgHR != nil && in.profile.LTHRBpm > 0
		},
		estimate: func(in loadInput) loadEstimate {
			return estimateFromIF(in, *in.avgHR/in.profile.LTHRBpm, IFHeartRate, TSSHeartRate)
		},
	},
}

func (e *Engine) estimateLoad(in loadInput) loadEstimate {
	for _, rule := range loadRules {
		if rule.applies(in) {
			return rule.estimate(in)
		}
	}
	return estimateFromIF(in, e.constants.fallbackIF(in.sport), IFFallback, TSSFallbackDuration)
}

// ComputeActivityMetrics derives TSS, IF, work and EF for a single activity.
// profile may be nil. It never fails: missing inputs select a fallback rule.
func (e *Engine) ComputeActivityMetrics(a Activity, profile *AthleteProfile) ActivityMetrics {
	seconds := float64(a.MovingTimeS)
	if seconds <= 0 {
		return ActivityMetrics{
			TSS:       0,
			TSSMethod: TSSNoDuration,
		}
	}

	in := loadInput{
		sport:    BucketOf(a.SportType),
		seconds:  seconds,
		hours:    seconds / secondsPerHour,
		distance: a.DistanceM,
		avgHR:    a.AverageHeartrate,
	}
	if profile != nil {
		in.profile = *profile
	}
	if a.WeightedAverageWatts != nil {
		in.power = a.WeightedAverageWatts
		in.powerWeighted = true
	} else {
		in.power = a.AverageWatts
	}

	est := e.estimateLoad(in)
	m := ActivityMetrics{
		TSS:       math.Max(0, est.tss),
		TSSMethod: est.tssMethod,
		IFValue:   est.ifValue,
		IFMethod:  est.ifMethod,
		WorkKJ:    workKJ(a, in),
	}
	m.EF, m.EFMethod = efficiencyFactor(a, in.sport)

	return m
}

// workKJ prefers the measured kilojoules; only cycling gets an estimate.
func workKJ(a Activity, in loadInput) *float64 {
	if a.Kilojoules != nil {
		kj := *a.Kilojoules
		return &kj
	}
	if in.sport == SportCycling && in.power != nil {
		kj := *in.power * in.seconds / 1000.0
		return &kj
	}
	return nil
}

func efficiencyFactor(a Activity, sport Sport) (*float64, *string) {
	if a.AverageHeartrate == nil || *a.AverageHeartrate <= 0 {
		return nil, nil
	}
	hr := *a.AverageHeartrate

	if sport == SportCycling && a.AverageWatts != nil {
		ef := *a.AverageWatts / hr
		method := EFPowerPerHR
		return &ef, &method
	}

	if a.DistanceM > 0 && a.MovingTimeS > 0 {
		ef := (a.DistanceM / float64(a.MovingTimeS)) / hr
		method := EFSpeedPerHR
		return &ef, &method
	}

	return nil, nil
}
