package opt

import (
	"math"

	"github.com/cwbudde/lnstsp/internal/lns"
)

// scheduleDims is the number of tuned parameters.
const scheduleDims = 4

// Search ranges of the tuned parameters.
const (
	minTemperatureExp = 0 // 10^0
	maxTemperatureExp = 5 // 10^5
	minCoolingRate    = 0.9
	maxCoolingRate    = 0.9999
	minRandomFraction = 0.1
	maxRandomFraction = 0.9
	minShawAlphaExp   = 1 // 10^1
	maxShawAlphaExp   = 3 // 10^3
)

// Schedule is the set of solver parameters the tuner searches over.
type Schedule struct {
	InitialTemperature float64 `json:"initialTemperature"`
	CoolingRate        float64 `json:"coolingRate"`
	RandomFraction     float64 `json:"randomFraction"`
	ShawAlpha          float64 `json:"shawAlpha"`
}

// DefaultSchedule returns the schedule of lns.DefaultConfig.
func DefaultSchedule() Schedule {
	cfg := lns.DefaultConfig()
	return Schedule{
		InitialTemperature: cfg.InitialTemperature,
		CoolingRate:        cfg.CoolingRate,
		RandomFraction:     cfg.Controller.Params.RandomFraction,
		ShawAlpha:          cfg.Controller.Params.ShawAlpha,
	}
}

// DecodeSchedule maps a point of the unit hypercube onto a schedule.
// Temperature and Shaw alpha are searched on a log scale.
func DecodeSchedule(x []float64) Schedule {
	x = clampUnit(x)
	return Schedule{
		InitialTemperature: math.Pow(10, lerp(minTemperatureExp, maxTemperatureExp, x[0])),
		CoolingRate:        lerp(minCoolingRate, maxCoolingRate, x[1]),
		RandomFraction:     lerp(minRandomFraction, maxRandomFraction, x[2]),
		ShawAlpha:          math.Pow(10, lerp(minShawAlphaExp, maxShawAlphaExp, x[3])),
	}
}

// Encode is the inverse of DecodeSchedule for schedules inside the search
// ranges; values outside are clamped.
func (s Schedule) Encode() []float64 {
	return clampUnit([]float64{
		unlerp(minTemperatureExp, maxTemperatureExp, math.Log10(max(s.InitialTemperature, 1))),
		unlerp(minCoolingRate, maxCoolingRate, s.CoolingRate),
		unlerp(minRandomFraction, maxRandomFraction, s.RandomFraction),
		unlerp(minShawAlphaExp, maxShawAlphaExp, math.Log10(max(s.ShawAlpha, 1))),
	})
}

// Apply returns cfg with the schedule's parameters set.
func (s Schedule) Apply(cfg lns.Config) lns.Config {
	cfg.InitialTemperature = s.InitialTemperature
	cfg.CoolingRate = s.CoolingRate
	cfg.Controller.Params.RandomFraction = s.RandomFraction
	cfg.Controller.Params.ShawAlpha = s.ShawAlpha
	return cfg
}

func lerp(lo, hi, t float64) float64 { return lo + (hi-lo)*t }

func unlerp(lo, hi, v float64) float64 { return (v - lo) / (hi - lo) }
