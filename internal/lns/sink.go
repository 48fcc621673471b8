package lns

import (
	"errors"
	"time"
)

// Snapshot is the best tour known at some point of a solve.
type Snapshot struct {
	Tour        []int         `json:"tour"`
	Cost        float64       `json:"cost"`
	InitialCost float64       `json:"initialCost"`
	Iteration   int           `json:"iteration"`
	Elapsed     time.Duration `json:"elapsed"`
	Temperature float64       `json:"temperature"`

	// Final is set on the single snapshot written when the solve ends.
	Final bool `json:"final"`
}

// Sink receives the best tour found. Saves overwrite earlier ones; a sink
// never accumulates tours. The Tour slice is owned by the sink.
type Sink interface {
	Save(Snapshot) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Snapshot) error

// Save calls f(snap).
func (f SinkFunc) Save(snap Snapshot) error { return f(snap) }

// MultiSink fans a snapshot out to several sinks. Every sink is called even
// when an earlier one fails; the errors are joined.
type MultiSink []Sink

// Save forwards snap to every sink, each with its own copy of the tour.
func (ms MultiSink) Save(snap Snapshot) error {
	var errs []error
	for _, s := range ms {
		if s == nil {
			continue
		}
		cp := snap
		cp.Tour = append([]int(nil), snap.Tour...)
		if err := s.Save(cp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Progress is a periodic report on a running solve.
type Progress struct {
	Iteration   int           `json:"iteration"`
	BestCost    float64       `json:"bestCost"`
	CurrentCost float64       `json:"currentCost"`
	Temperature float64       `json:"temperature"`
	Elapsed     time.Duration `json:"elapsed"`
	Destroy     DestroyKind   `json:"destroy"`
	Repair      RepairKind    `json:"repair"`
}
