package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRuns() []Run {
	return []Run{
		{Instance: "a", Seed: 1, Cost: 10, Iterations: 100, Elapsed: time.Second, Gap: 0.1, HasGap: true},
		{Instance: "a", Seed: 2, Cost: 14, Iterations: 300, Elapsed: time.Second, Gap: 0.5, HasGap: true},
		{Instance: "a", Seed: 3, Cost: 12, Iterations: 200, Elapsed: time.Second, Gap: 0.3, HasGap: true},
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize("a", sampleRuns())

	assert.Equal(t, 3, s.Runs)
	assert.InDelta(t, 12.0, s.Mean, 1e-12)
	assert.InDelta(t, 2.0, s.StdDev, 1e-12)
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 14.0, s.Max)
	assert.Equal(t, 12.0, s.Median)
	assert.True(t, s.HasGap)
	assert.InDelta(t, 0.3, s.MeanGap, 1e-12)
	assert.InDelta(t, 0.1, s.BestGap, 1e-12)
	assert.InDelta(t, 200.0, s.MeanIterations, 1e-12)
	assert.InDelta(t, 200.0, s.IterationsPerSecond, 1e-9)
}

func TestSummarizeSingleRun(t *testing.T) {
	s := Summarize("a", sampleRuns()[:1])

	assert.Equal(t, 10.0, s.Mean)
	assert.Equal(t, 0.0, s.StdDev)
	assert.Equal(t, 10.0, s.Median)
}

func TestSummarizeWithoutGaps(t *testing.T) {
	runs := sampleRuns()
	runs[1].HasGap = false

	s := Summarize("a", runs)
	assert.False(t, s.HasGap)
	assert.Zero(t, s.MeanGap)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize("none", nil)
	assert.Equal(t, Summary{Instance: "none"}, s)
}

func TestWriteCSV(t *testing.T) {
	runs := sampleRuns()
	runs[2].HasGap = false

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, runs))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"a", "1", "10.0000", "0.0000", "100", "1.000", "", "0.100000"}, records[1])
	assert.Equal(t, "", records[3][7])
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, []Summary{Summarize("a", sampleRuns())}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "INSTANCE"))
	assert.Contains(t, lines[1], "30.00%")
}

func TestDescribeHost(t *testing.T) {
	h := DescribeHost()
	assert.Positive(t, h.Cores)
	assert.NotEmpty(t, h.GoArch)
	assert.NotEmpty(t, h.String())
}
