// Package datasets implements the asynchronous batch-retrieval protocol of
// the discussion-platform scraping service: trigger a dataset collection,
// poll the snapshot until ready with bounded exponential backoff, then
// download the result.
package datasets

import (
	"time"
)

// Phase is the lifecycle stage of a dataset job. Transitions only move
// forward; a terminal phase is never left.
type Phase string

const (
	PhaseTriggered Phase = "triggered"
	PhasePolling   Phase = "polling"
	PhaseReady     Phase = "ready"
	PhaseTimedOut  Phase = "timed_out"
	PhaseFailed    Phase = "failed"
)

// Statuses reported by the snapshot progress endpoint.
const (
	statusReady   = "ready"
	statusFailed  = "failed"
	statusRunning = "running"
)

// Job represents one trigger/poll/download cycle.
type Job struct {
	ID        string
	DatasetID string
	Phase     Phase
	CreatedAt time.Time
	Deadline  time.Time
}

// NewJob creates a triggered job with a wall-clock deadline for polling.
func NewJob(id, datasetID string, now time.Time, timeout time.Duration) Job {
	return Job{
		ID:        id,
		DatasetID: datasetID,
		Phase:     PhaseTriggered,
		CreatedAt: now,
		Deadline:  now.Add(timeout),
	}
}

// Terminal reports whether the job reached a final phase.
func (j Job) Terminal() bool {
	switch j.Phase {
	case PhaseReady, PhaseTimedOut, PhaseFailed:
		return true
	}
	return false
}

// Advance applies one observed poll status at the given time and returns the
// next job state. The deadline is checked before the status so a late "ready"
// cannot resurrect an expired job.
func (j Job) Advance(status string, now time.Time) Job {
	if j.Terminal() {
		return j
	}
	if !j.Deadline.IsZero() && now.After(j.Deadline) {
		j.Phase = PhaseTimedOut
		return j
	}
	switch status {
	case statusReady:
		j.Phase = PhaseReady
	case statusFailed:
		j.Phase = PhaseFailed
	default:
		// running or unknown: keep polling
		j.Phase = PhasePolling
	}
	return j
}

// Backoff computes bounded exponential delays between poll attempts.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

// Delay returns the wait before poll attempt n (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = 5 * time.Second
	}
	factor := b.Factor
	if factor < 1 {
		factor = 1.5
	}
	d := float64(initial)
	for i := 0; i < attempt; i++ {
		d *= factor
		if b.Max > 0 && d >= float64(b.Max) {
			return b.Max
		}
	}
	delay := time.Duration(d)
	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}
