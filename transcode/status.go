// SPDX-License-Identifier: EPL-2.0

// Package transcode sequences the decoder bridge, normalizer, layout
// transformer, clipping detector, half-wave tucker and encoder bridge into
// the single-pass and iterative-declip transcode state machines, grounded
// on §4.7/§5 of SPEC_FULL.md. It only imports the audio package's
// interfaces for its external collaborators (InputDecoder, OutputSink,
// OpusEncoder, OpusDecoder), never a concrete codec.
package transcode

import "sync"

// Outcome is the final disposition of a Transcode call, read by observers
// through Status.Snapshot once the coordinator returns to Idle.
type Outcome int

const (
	// OutcomeNone means the job is still running (or has not started).
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailure
	OutcomeCanceled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "Success"
	case OutcomeFailure:
		return "Failure"
	case OutcomeCanceled:
		return "Canceled"
	default:
		return "None"
	}
}

// IndeterminateProgress is the sentinel Snapshot.Progress holds while a step's completion fraction cannot be estimated.
const IndeterminateProgress float32 = -1

// Snapshot is the consistent (message, progress, outcome) triple an
// observer reads without ever touching the coordinator's sample buffers.
type Snapshot struct {
	Message  string
	Progress float32
	Outcome  Outcome
	Reason   string
}

// Status is the coordinator's single mutex-protected status triple,
// grounded on ik5-audpbx/audio.Registry's sync.Mutex-guarded map for the
// "one mutex over shared state" idiom, generalized here to guard a status
// struct instead of a map, plus a sync.Cond (stdlib; no example in the pack
// ships a pub/sub primitive for this) so observers can block until the next
// update instead of polling Snapshot in a loop.
type Status struct {
	mu   sync.Mutex
	cond *sync.Cond

	message  string
	progress float32
	outcome  Outcome
	reason   string
}

// NewStatus returns a Status in the initial "running, indeterminate
// progress" state.
func NewStatus() *Status {
	s := &Status{progress: IndeterminateProgress}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// beginStep sets the step message and clears progress to indeterminate,
// then notifies observers — the ordering §5 requires: "(set message, clear
// progress) -> notify step_begun".
func (s *Status) beginStep(message string) {
	s.mu.Lock()
	s.message = message
	s.progress = IndeterminateProgress
	s.mu.Unlock()
	s.cond.Broadcast()
}

// setProgress updates progress within the current step and notifies
// observers. Progress only moves forward within a step; callers (the
// audio.ProgressFunc adapters) are responsible for monotonicity since the
// lower-level packages already report monotonically increasing fractions.
func (s *Status) setProgress(p float32) {
	s.mu.Lock()
	s.progress = p
	s.mu.Unlock()
	s.cond.Broadcast()
}

// finish records the terminal outcome and, for failures, a human-readable
// reason, storing message as given; for OutcomeFailure the coordinator
// passes "Transcoding failed: <reason>" per §7's user-visible failure
// behavior.
func (s *Status) finish(outcome Outcome, message, reason string) {
	s.mu.Lock()
	s.outcome = outcome
	s.message = message
	s.reason = reason
	s.progress = IndeterminateProgress
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Snapshot returns the current (message, progress, outcome, reason) triple.
func (s *Status) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Message: s.message, Progress: s.progress, Outcome: s.outcome, Reason: s.reason}
}

// Wait blocks until the next status update, then returns the fresh
// snapshot. Callers that want to poll instead can just call Snapshot.
func (s *Status) Wait() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cond.Wait()
	return Snapshot{Message: s.message, Progress: s.progress, Outcome: s.outcome, Reason: s.reason}
}
