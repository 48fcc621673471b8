package opt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/cwbudde/lnstsp/internal/lns"
)

func testMatrix(n int, seed int64) lns.Matrix {
	rng := rand.New(rand.NewSource(seed))
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i], ys[i] = rng.Float64()*100, rng.Float64()*100
	}
	m := make(lns.Matrix, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			dx, dy := xs[i]-xs[j], ys[i]-ys[j]
			m[i][j] = dx*dx + dy*dy
		}
	}
	return m
}

func testTunerConfig() TunerConfig {
	cfg := DefaultTunerConfig()
	cfg.Iterations = 30
	cfg.Seeds = 1
	cfg.MaxIters = 2
	cfg.PopSize = 20
	return cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewTunerValidation(t *testing.T) {
	if _, err := NewTuner(testTunerConfig(), nil, nil); !errors.Is(err, ErrNoInstances) {
		t.Errorf("Expected ErrNoInstances, got %v", err)
	}

	cfg := testTunerConfig()
	cfg.Iterations = 0
	if _, err := NewTuner(cfg, []lns.Matrix{testMatrix(8, 1)}, nil); !errors.Is(err, lns.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestTunerEvaluateDeterministic(t *testing.T) {
	tuner, err := NewTuner(testTunerConfig(), []lns.Matrix{testMatrix(12, 1), testMatrix(9, 2)}, quietLogger())
	if err != nil {
		t.Fatalf("NewTuner failed: %v", err)
	}

	a, err := tuner.Evaluate(context.Background(), DefaultSchedule())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	b, err := tuner.Evaluate(context.Background(), DefaultSchedule())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if a != b {
		t.Errorf("Scores differ between identical evaluations: %v vs %v", a, b)
	}
	if a <= 0 || a > 1 {
		t.Errorf("Greedy-started score should be in (0, 1], got %v", a)
	}
}

func TestTunerEvaluateCancelled(t *testing.T) {
	tuner, err := NewTuner(testTunerConfig(), []lns.Matrix{testMatrix(8, 1)}, quietLogger())
	if err != nil {
		t.Fatalf("NewTuner failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tuner.Evaluate(ctx, DefaultSchedule()); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestTunerTune(t *testing.T) {
	tuner, err := NewTuner(testTunerConfig(), []lns.Matrix{testMatrix(10, 3)}, quietLogger())
	if err != nil {
		t.Fatalf("NewTuner failed: %v", err)
	}

	res, err := tuner.Tune(context.Background(), NewMayfly(2, 20, 1))
	if err != nil {
		t.Fatalf("Tune failed: %v", err)
	}

	if res.Score > res.BaseScore {
		t.Errorf("Best score %v should not exceed the baseline %v", res.Score, res.BaseScore)
	}
	if res.Evaluations < 2 {
		t.Errorf("Expected several evaluations, got %d", res.Evaluations)
	}
	if err := res.Best.Apply(lns.DefaultConfig()).Validate(); err != nil {
		t.Errorf("Best schedule is invalid: %v", err)
	}
}
