package lns

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// iterationConfig returns a deterministic configuration bounded by
// iterations rather than wall-clock time.
func iterationConfig(iterations int, seed int64) Config {
	cfg := DefaultConfig()
	cfg.TimeLimit = 0
	cfg.MaxIterations = iterations
	cfg.Seed = seed
	cfg.CheckpointInterval = 0
	cfg.ProgressInterval = 0
	return cfg
}

func solve(t *testing.T, m Matrix, cfg Config, opts ...Option) *Result {
	t.Helper()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	s, err := NewSolver(m, cfg, opts...)
	require.NoError(t, err)
	res, err := s.Solve(context.Background())
	require.NoError(t, err)
	return res
}

func TestAcceptanceProbability(t *testing.T) {
	assert.Equal(t, 1.0, AcceptanceProbability(-1, 6000))
	assert.Equal(t, 1.0, AcceptanceProbability(-1e-9, 0))
	assert.Equal(t, 1.0, AcceptanceProbability(0, 10))
	assert.InDelta(t, math.Exp(-1), AcceptanceProbability(10, 10), 1e-15)

	assert.Zero(t, AcceptanceProbability(5, 0))
	assert.Zero(t, AcceptanceProbability(5, -1))

	prev := 1.0
	for _, temp := range []float64{100, 10, 1, 0.1} {
		p := AcceptanceProbability(5, temp)
		assert.Less(t, p, prev, "probability must fall with the temperature")
		prev = p
	}
	assert.Less(t, prev, 1e-20)
	assert.Less(t, AcceptanceProbability(5, 1e-6), 1e-100)
}

func TestSolve_FourCity(t *testing.T) {
	var saves []Snapshot
	sink := SinkFunc(func(s Snapshot) error {
		saves = append(saves, s)
		return nil
	})

	res := solve(t, fourCity, iterationConfig(25, 1), WithSink(sink))

	assert.Equal(t, 4.0, res.Cost)
	assert.Equal(t, 4.0, res.InitialCost)
	require.NoError(t, ValidatePermutation(res.Tour, 4))
	require.Len(t, saves, 1)
	assert.True(t, saves[0].Final)
	assert.Equal(t, res.Tour, saves[0].Tour)
}

func TestSolve_FromSuppliedTour(t *testing.T) {
	res := solve(t, fourCity, iterationConfig(5, 2), WithInitialTour([]int{0, 2, 1, 3}))

	assert.Equal(t, 20.0, res.InitialCost)
	assert.Equal(t, 4.0, res.Cost)
	assert.Equal(t, 4.0, FullCost(res.Tour, fourCity))
}

func TestSolve_RejectsInvalidSuppliedTour(t *testing.T) {
	s, err := NewSolver(fourCity, iterationConfig(5, 2),
		WithLogger(discardLogger()),
		WithInitialTour([]int{0, 1, 1, 3}),
	)
	require.NoError(t, err)

	_, err = s.Solve(context.Background())
	require.ErrorIs(t, err, ErrInvalidTour)
}

func TestSolve_DeterministicForSeed(t *testing.T) {
	m := euclidean(40, 71)

	a := solve(t, m, iterationConfig(150, 9))
	b := solve(t, m, iterationConfig(150, 9))

	assert.Equal(t, a.Tour, b.Tour)
	assert.Equal(t, a.Cost, b.Cost)
	assert.Equal(t, a.Stats, b.Stats)
	assert.Equal(t, StopMaxIterations, a.StopReason)
	assert.Equal(t, 150, a.Stats.Iterations)
}

func TestSolve_BestIsValidAndNotWorse(t *testing.T) {
	const n = 50
	m := euclidean(n, 72)

	for _, initial := range []InitialKind{InitialGreedy, InitialRandom} {
		t.Run(initial.String(), func(t *testing.T) {
			cfg := iterationConfig(200, 3)
			cfg.Initial = initial
			cfg.VerifyEachIteration = true

			res := solve(t, m, cfg)

			requireConsistent(t, &Solution{Tour: res.Tour, Cost: res.Cost}, n, m)
			assert.LessOrEqual(t, res.Cost, res.InitialCost)
			assert.Equal(t, res.Stats.Iterations, res.Stats.DestroyUses[0]+res.Stats.DestroyUses[1]+res.Stats.DestroyUses[2])
			assert.LessOrEqual(t, res.Stats.AcceptedWorse, res.Stats.Accepted)
		})
	}
}

func TestSolve_RandomStartImproves(t *testing.T) {
	const n = 40
	m := euclidean(n, 73)
	cfg := iterationConfig(100, 4)
	cfg.Initial = InitialRandom

	res := solve(t, m, cfg)

	assert.Less(t, res.Cost, res.InitialCost)
	assert.Positive(t, res.Stats.Improvements)
}

func TestSolve_SinkSeesEveryImprovementThenFinal(t *testing.T) {
	const n = 40
	m := euclidean(n, 74)
	cfg := iterationConfig(150, 5)
	cfg.Initial = InitialRandom

	var saves []Snapshot
	res := solve(t, m, cfg, WithSink(SinkFunc(func(s Snapshot) error {
		saves = append(saves, s)
		return nil
	})))

	require.NotEmpty(t, saves)
	last := saves[len(saves)-1]
	assert.True(t, last.Final)
	assert.Equal(t, res.Tour, last.Tour)
	assert.Equal(t, res.Cost, last.Cost)
	assert.Len(t, saves, res.Stats.Improvements+1)

	for i, s := range saves {
		require.NoError(t, ValidatePermutation(s.Tour, n))
		if i > 0 && !s.Final {
			assert.Less(t, s.Cost, saves[i-1].Cost)
		}
		if i < len(saves)-1 {
			assert.False(t, s.Final)
		}
	}
}

func TestSolve_CheckpointErrorsAreNotFatal(t *testing.T) {
	m := euclidean(30, 75)
	cfg := iterationConfig(50, 6)
	cfg.Initial = InitialRandom
	boom := errors.New("disk full")

	calls := 0
	s, err := NewSolver(m, cfg, WithLogger(discardLogger()), WithSink(SinkFunc(func(snap Snapshot) error {
		calls++
		return boom
	})))
	require.NoError(t, err)

	res, err := s.Solve(context.Background())
	require.ErrorIs(t, err, boom, "only the final save is reported")
	require.NotNil(t, res)
	assert.Equal(t, 50, res.Stats.Iterations)
	assert.Greater(t, calls, 1)
}

func TestSolve_StopsOnCancelledContext(t *testing.T) {
	m := euclidean(30, 76)
	cfg := DefaultConfig()
	cfg.TimeLimit = time.Hour

	s, err := NewSolver(m, cfg, WithLogger(discardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Solve(ctx)
	require.NoError(t, err)
	assert.Equal(t, StopCancelled, res.StopReason)
	assert.Zero(t, res.Stats.Iterations)
	assert.Equal(t, res.InitialCost, res.Cost)
	require.NoError(t, ValidatePermutation(res.Tour, 30))
}

func TestSolve_StopsAtTimeLimit(t *testing.T) {
	m := euclidean(30, 77)
	cfg := DefaultConfig()
	cfg.TimeLimit = 30 * time.Millisecond

	start := time.Now()
	res := solve(t, m, cfg)

	assert.Equal(t, StopTimeLimit, res.StopReason)
	assert.GreaterOrEqual(t, res.Elapsed, cfg.TimeLimit)
	assert.Positive(t, res.Stats.Iterations)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSolve_ReportsProgressAndPhase(t *testing.T) {
	m := euclidean(20, 78)

	var reports []Progress
	s, err := NewSolver(m, iterationConfig(30, 7),
		WithLogger(discardLogger()),
		WithProgress(func(p Progress) { reports = append(reports, p) }),
	)
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, s.Phase())

	res, err := s.Solve(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseTerminated, s.Phase())
	require.Len(t, reports, 1, "without an interval only the final report is sent")
	assert.Equal(t, 30, reports[0].Iteration)
	assert.Equal(t, res.Cost, reports[0].BestCost)
}

func TestNewSolver_Validation(t *testing.T) {
	tests := []struct {
		name    string
		m       Matrix
		mutate  func(*Config)
		wantErr error
	}{
		{"empty matrix", Matrix{}, nil, ErrInvalidMatrix},
		{"ragged matrix", Matrix{{0, 1}, {1}}, nil, ErrInvalidMatrix},
		{"no budget", fourCity, func(c *Config) { c.TimeLimit = 0 }, ErrInvalidConfig},
		{"cooling rate one", fourCity, func(c *Config) { c.CoolingRate = 1 }, ErrInvalidConfig},
		{"negative temperature", fourCity, func(c *Config) { c.InitialTemperature = -1 }, ErrInvalidConfig},
		{"start city out of range", fourCity, func(c *Config) { c.StartCity = 4 }, ErrInvalidConfig},
		{"bad controller", fourCity, func(c *Config) { c.Controller.RotateAt = 0 }, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			_, err := NewSolver(tt.m, cfg)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMultiSink_CallsEverySink(t *testing.T) {
	boom := errors.New("boom")
	var got [][]int

	ms := MultiSink{
		SinkFunc(func(s Snapshot) error {
			s.Tour[0] = 99
			return boom
		}),
		nil,
		SinkFunc(func(s Snapshot) error {
			got = append(got, s.Tour)
			return nil
		}),
	}

	err := ms.Save(Snapshot{Tour: []int{0, 1, 2}, Cost: 3})
	require.ErrorIs(t, err, boom)
	require.Len(t, got, 1)
	assert.Equal(t, []int{0, 1, 2}, got[0], "sinks get independent copies")
}

func TestSolve_FinalTourBeginsAtStartCity(t *testing.T) {
	m := euclidean(25, 9)
	cfg := iterationConfig(80, 3)
	cfg.Initial = InitialRandom
	cfg.StartCity = 7

	res := solve(t, m, cfg)

	assert.Equal(t, 7, res.Tour[0])
	assert.InDelta(t, FullCost(res.Tour, m), res.Cost, 1e-6)
}
