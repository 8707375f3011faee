// Package telemetry records latency and outcome for every external model and
// generation call. The recorder is process-wide, append-only, and must never
// fail the operation it observes; aggregation and export belong to an
// external collector polling the snapshot endpoint.
package telemetry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies the external call being observed.
type Kind string

// Observed call kinds.
const (
	KindMatch    Kind = "match"
	KindInfer    Kind = "infer"
	KindGenerate Kind = "generate"
)

// Outcome is the terminal state of an observed call.
type Outcome string

// Call outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Record is a single observed external call.
type Record struct {
	OperationID string        `json:"operation_id"`
	Kind        Kind          `json:"kind"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration_ms"`
	Outcome     Outcome       `json:"outcome"`
	ErrorKind   string        `json:"error_kind,omitempty"`
}

// Recorder is an append-only in-process telemetry store.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	logger  *slog.Logger
}

// New creates a recorder. Construct once per process and hand down by
// reference to every component that makes external calls.
func New(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// Record appends an entry. It never returns an error: telemetry must not
// break the primary operation. A missing operation ID is filled in.
func (r *Recorder) Record(rec Record) {
	if r == nil {
		return
	}
	if rec.OperationID == "" {
		rec.OperationID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().Add(-rec.Duration)
	}

	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()

	if r.logger != nil && rec.Outcome == OutcomeFailure {
		r.logger.Warn("external call failed",
			"operation_id", rec.OperationID,
			"kind", string(rec.Kind),
			"error_kind", rec.ErrorKind,
			"duration", rec.Duration,
		)
	}
}

// Observe starts a timer for a call of the given kind and returns a finish
// function. Pass the call's terminal error (nil for success) and an error
// kind label for failures.
//
//	done := recorder.Observe(telemetry.KindMatch)
//	resp, err := client.Generate(ctx, ...)
//	done(err, "model_unavailable")
func (r *Recorder) Observe(kind Kind) func(err error, errorKind string) {
	started := time.Now()
	opID := uuid.NewString()
	return func(err error, errorKind string) {
		rec := Record{
			OperationID: opID,
			Kind:        kind,
			StartedAt:   started,
			Duration:    time.Since(started),
			Outcome:     OutcomeSuccess,
		}
		if err != nil {
			rec.Outcome = OutcomeFailure
			rec.ErrorKind = errorKind
		}
		r.Record(rec)
	}
}

// Snapshot returns a copy of all recorded entries in append order.
func (r *Recorder) Snapshot() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Len returns the number of recorded entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}
