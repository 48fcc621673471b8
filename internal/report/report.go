// Package report summarizes repeated solver runs for benchmarks.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Run is the outcome of one seeded solve.
type Run struct {
	Instance    string        `json:"instance"`
	Seed        int64         `json:"seed"`
	Cost        float64       `json:"cost"`
	InitialCost float64       `json:"initialCost"`
	Iterations  int           `json:"iterations"`
	Elapsed     time.Duration `json:"elapsed"`
	StopReason  string        `json:"stopReason"`

	// Gap is the relative gap to the best known cost; valid only with HasGap.
	Gap    float64 `json:"gap,omitempty"`
	HasGap bool    `json:"hasGap"`
}

// Summary aggregates the runs of one instance.
type Summary struct {
	Instance string  `json:"instance"`
	Runs     int     `json:"runs"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"stdDev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`

	MeanGap float64 `json:"meanGap,omitempty"`
	BestGap float64 `json:"bestGap,omitempty"`
	HasGap  bool    `json:"hasGap"`

	MeanIterations      float64 `json:"meanIterations"`
	IterationsPerSecond float64 `json:"iterationsPerSecond"`
}

// Summarize computes cost statistics over runs. Gaps are summarized only when
// every run has one. The standard deviation is the sample deviation and is
// zero for a single run.
func Summarize(instance string, runs []Run) Summary {
	s := Summary{Instance: instance, Runs: len(runs)}
	if len(runs) == 0 {
		return s
	}

	costs := make([]float64, len(runs))
	iterations := make([]float64, len(runs))
	gaps := make([]float64, 0, len(runs))
	var elapsed time.Duration
	for i, r := range runs {
		costs[i] = r.Cost
		iterations[i] = float64(r.Iterations)
		elapsed += r.Elapsed
		if r.HasGap {
			gaps = append(gaps, r.Gap)
		}
	}

	s.Mean, s.StdDev = stat.MeanStdDev(costs, nil)
	if len(runs) == 1 {
		s.StdDev = 0
	}
	s.Min = floats.Min(costs)
	s.Max = floats.Max(costs)

	sorted := slices.Clone(costs)
	slices.Sort(sorted)
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	if len(gaps) == len(runs) {
		s.HasGap = true
		s.MeanGap = stat.Mean(gaps, nil)
		s.BestGap = floats.Min(gaps)
	}

	s.MeanIterations = stat.Mean(iterations, nil)
	if secs := elapsed.Seconds(); secs > 0 {
		s.IterationsPerSecond = floats.Sum(iterations) / secs
	}
	return s
}

var csvHeader = []string{"instance", "seed", "cost", "initial_cost", "iterations", "elapsed_seconds", "stop_reason", "gap"}

// WriteCSV writes one row per run.
func WriteCSV(w io.Writer, runs []Run) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range runs {
		gap := ""
		if r.HasGap {
			gap = strconv.FormatFloat(r.Gap, 'f', 6, 64)
		}
		record := []string{
			r.Instance,
			strconv.FormatInt(r.Seed, 10),
			strconv.FormatFloat(r.Cost, 'f', 4, 64),
			strconv.FormatFloat(r.InitialCost, 'f', 4, 64),
			strconv.Itoa(r.Iterations),
			strconv.FormatFloat(r.Elapsed.Seconds(), 'f', 3, 64),
			r.StopReason,
			gap,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTable prints summaries as an aligned table.
func WriteTable(w io.Writer, summaries []Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tRUNS\tMEAN\tSTDDEV\tMIN\tMEDIAN\tMAX\tMEAN GAP\tIT/S")
	for _, s := range summaries {
		gap := "-"
		if s.HasGap {
			gap = fmt.Sprintf("%.2f%%", 100*s.MeanGap)
		}
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%.0f\n",
			s.Instance, s.Runs, s.Mean, s.StdDev, s.Min, s.Median, s.Max, gap, s.IterationsPerSecond)
	}
	return tw.Flush()
}
