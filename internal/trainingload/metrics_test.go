package trainingload

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestBucketOf(t *testing.T) {
	cases := map[string]Sport{
		"Ride":             SportCycling,
		"VirtualRide":      SportCycling,
		"EBikeRide":        SportCycling,
		"MountainBikeRide": SportCycling,
		"cycling":          SportCycling,
		"Run":              SportRunning,
		"TrailRun":         SportRunning,
		"VirtualRun":       SportRunning,
		"Swim":             SportOther,
		"WeightTraining":   SportOther,
		"":                 SportOther,
	}
	for sport, expected := range cases {
		assert.Equal(t, expected, BucketOf(sport), sport)
	}
}

func TestComputeActivityMetrics_NoDuration(t *testing.T) {
	engine := NewEngine(DefaultConstants())
	profile := &AthleteProfile{FTPWatts: 250, LTHRBpm: 170, ThresholdPaceSecPerKm: 270}

	for _, moving := range []int64{0, -60} {
		m := engine.ComputeActivityMetrics(Activity{
			SportType:            "Ride",
			MovingTimeS:          moving,
			DistanceM:            30000,
			WeightedAverageWatts: ptr(250.0),
			AverageWatts:         ptr(230.0),
			AverageHeartrate:     ptr(150.0),
			Kilojoules:           ptr(800.0),
		}, profile)

		assert.Equal(t, 0.0, m.TSS)
		assert.Equal(t, TSSNoDuration, m.TSSMethod)
		assert.Nil(t, m.IFValue)
		assert.Nil(t, m.IFMethod)
		assert.Nil(t, m.WorkKJ)
		assert.Nil(t, m.EF)
		assert.Nil(t, m.EFMethod)
	}
}

func TestComputeActivityMetrics_CyclingWeightedPower(t *testing.T) {
	engine := NewEngine(DefaultConstants())

	m := engine.ComputeActivityMetrics(Activity{
		SportType:            "Ride",
		MovingTimeS:          3600,
		WeightedAverageWatts: ptr(250.0),
	}, &AthleteProfile{FTPWatts: 250})

	require.NotNil(t, m.IFValue)
	assert.InDelta(t, 1.0, *m.IFValue, 1e-9)
	assert.InDelta(t, 100.0, m.TSS, 1e-9)
	assert.Equal(t, TSSPowerWeighted, m.TSSMethod)
	require.NotNil(t, m.IFMethod)
	assert.Equal(t, IFPowerWeighted, *m.IFMethod)

	// estimated from power since no kilojoules were reported
	require.NotNil(t, m.WorkKJ)
	assert.InDelta(t, 900.0, *m.WorkKJ, 1e-9)
}

func TestComputeActivityMetrics_CyclingAveragePower(t *testing.T) {
	engine := NewEngine(DefaultConstants())

	m := engine.ComputeActivityMetrics(Activity{
		SportType:        "VirtualRide",
		MovingTimeS:      1800,
		AverageWatts:     ptr(200.0),
		AverageHeartrate: ptr(140.0),
		Kilojoules:       ptr(355.5),
	}, &AthleteProfile{FTPWatts: 250})

	require.NotNil(t, m.IFValue)
	assert.InDelta(t, 0.8, *m.IFValue, 1e-9)
	assert.InDelta(t, 0.5*0.64*100, m.TSS, 1e-9)
	assert.Equal(t, TSSPowerAverage, m.TSSMethod)

	// reported kilojoules win over the estimate
	require.NotNil(t, m.WorkKJ)
	assert.Equal(t, 355.5, *m.WorkKJ)

	require.NotNil(t, m.EF)
	assert.InDelta(t, 200.0/140.0, *m.EF, 1e-9)
	assert.Equal(t, EFPowerPerHR, *m.EFMethod)
}

func TestComputeActivityMetrics_CyclingWithoutFTPUsesHeartRate(t *testing.T) {
	engine := NewEngine(DefaultConstants())

	m := engine.ComputeActivityMetrics(Activity{
		SportType:            "Ride",
		MovingTimeS:          7200,
		WeightedAverageWatts: ptr(210.0),
		AverageHeartrate:     ptr(153.0),
	}, &AthleteProfile{LTHRBpm: 170})

	require.NotNil(t, m.IFValue)
	assert.InDelta(t, 0.9, *m.IFValue, 1e-9)
	assert.InDelta(t, 2*0.81*100, m.TSS, 1e-9)
	assert.Equal(t, TSSHeartRate, m.TSSMethod)
	assert.Equal(t, IFHeartRate, *m.IFMethod)
}

func TestComputeActivityMetrics_RunningPace(t *testing.T) {
	engine := NewEngine(DefaultConstants())

	// 10 km in 50 min is 300 s/km against a 270 s/km threshold
	m := engine.ComputeActivityMetrics(Activity{
		SportType:        "Run",
		MovingTimeS:      3000,
		DistanceM:        10000,
		AverageHeartrate: ptr(160.0),
	}, &AthleteProfile{ThresholdPaceSecPerKm: 270, LTHRBpm: 175})

	require.NotNil(t, m.IFValue)
	assert.InDelta(t, 0.9, *m.IFValue, 1e-9)
	assert.InDelta(t, (3000.0/3600.0)*0.81*100, m.TSS, 1e-9)
	assert.Equal(t, TSSPace, m.TSSMethod)
	assert.Equal(t, IFPace, *m.IFMethod)

	// running work is never estimated
	assert.Nil(t, m.WorkKJ)

	require.NotNil(t, m.EF)
	assert.InDelta(t, (10000.0/3000.0)/160.0, *m.EF, 1e-9)
	assert.Equal(t, EFSpeedPerHR, *m.EFMethod)
}

func TestComputeActivityMetrics_RunningWithoutDistanceFallsThrough(t *testing.T) {
	engine := NewEngine(DefaultConstants())

	m := engine.ComputeActivityMetrics(Activity{
		SportType:        "Run",
		MovingTimeS:      1800,
		AverageHeartrate: ptr(170.0),
	}, &AthleteProfile{ThresholdPaceSecPerKm: 270, LTHRBpm: 170})

	assert.Equal(t, TSSHeartRate, m.TSSMethod)
	assert.InDelta(t, 50.0, m.TSS, 1e-9)
	assert.Nil(t, m.EF)
}

func TestRunningPaceRule_NoDistanceAfterConversion(t *testing.T) {
	var rule loadRule
	for _, r := range loadRules {
		if r.name == "running_pace" {
			rule = r
		}
	}
	require.NotNil(t, rule.estimate)

	est := rule.estimate(loadInput{
		sport:    SportRunning,
		seconds:  600,
		hours:    600.0 / secondsPerHour,
		distance: 0,
		profile:  AthleteProfile{ThresholdPaceSecPerKm: 270},
	})
	assert.Equal(t, TSSNoDistance, est.tssMethod)
	assert.Equal(t, 0.0, est.tss)
	assert.Nil(t, est.ifValue)
}

func TestComputeActivityMetrics_Fallback(t *testing.T) {
	engine := NewEngine(DefaultConstants())

	cases := []struct {
		sport      string
		expectedIF float64
	}{
		{sport: "Ride", expectedIF: 0.60},
		{sport: "Run", expectedIF: 0.55},
		{sport: "Swim", expectedIF: 0.50},
	}

	for _, tc := range cases {
		t.Run(tc.sport, func(t *testing.T) {
			m := engine.ComputeActivityMetrics(Activity{
				SportType:   tc.sport,
				MovingTimeS: 3600,
				DistanceM:   5000,
			}, nil)

			assert.Equal(t, TSSFallbackDuration, m.TSSMethod)
			require.NotNil(t, m.IFValue)
			assert.InDelta(t, tc.expectedIF, *m.IFValue, 1e-9)
			assert.Equal(t, IFFallback, *m.IFMethod)
			assert.InDelta(t, tc.expectedIF*tc.expectedIF*100, m.TSS, 1e-9)
			assert.Nil(t, m.EF)
		})
	}
}

func TestComputeActivityMetrics_InjectedConstants(t *testing.T) {
	constants := DefaultConstants()
	constants.FallbackIFOther = 0.7
	engine := NewEngine(constants)

	m := engine.ComputeActivityMetrics(Activity{SportType: "Yoga", MovingTimeS: 3600}, nil)
	assert.InDelta(t, 49.0, m.TSS, 1e-9)
	assert.Equal(t, constants, engine.Constants())
}

func TestComputeActivityMetrics_TSSNeverNegative(t *testing.T) {
	engine := NewEngine(DefaultConstants())

	m := engine.ComputeActivityMetrics(Activity{
		SportType:    "Ride",
		MovingTimeS:  3600,
		AverageWatts: ptr(-40.0),
	}, &AthleteProfile{FTPWatts: 250})

	assert.GreaterOrEqual(t, m.TSS, 0.0)
	assert.False(t, math.IsNaN(m.TSS))
}

func TestComputeActivityMetrics_EFRequiresPositiveHeartRate(t *testing.T) {
	engine := NewEngine(DefaultConstants())

	m := engine.ComputeActivityMetrics(Activity{
		SportType:        "Ride",
		MovingTimeS:      3600,
		DistanceM:        30000,
		AverageWatts:     ptr(200.0),
		AverageHeartrate: ptr(0.0),
	}, nil)
	assert.Nil(t, m.EF)
	assert.Nil(t, m.EFMethod)

	// cycling without power uses speed
	m = engine.ComputeActivityMetrics(Activity{
		SportType:        "Ride",
		MovingTimeS:      3600,
		DistanceM:        30000,
		AverageHeartrate: ptr(120.0),
	}, nil)
	require.NotNil(t, m.EF)
	assert.Equal(t, EFSpeedPerHR, *m.EFMethod)
	assert.InDelta(t, (30000.0/3600.0)/120.0, *m.EF, 1e-9)
}

func TestActivity_NeedsMetrics(t *testing.T) {
	complete := Activity{
		SportType: "Run",
		TSS:       ptr(50.0),
		IFValue:   ptr(0.8),
		EF:        ptr(0.02),
	}
	assert.False(t, complete.needsMetrics())

	missingEF := complete
	missingEF.EF = nil
	assert.True(t, missingEF.needsMetrics())

	ride := complete
	ride.SportType = "Ride"
	assert.True(t, ride.needsMetrics())
	ride.WorkKJ = ptr(500.0)
	assert.False(t, ride.needsMetrics())
}
