// SPDX-License-Identifier: EPL-2.0

package audio

// FrameCheckCadence is the number of frames (0x3000 = 12288) between
// cancellation polls and progress notifications in every long-running loop
// across the pipeline (§5): roughly a quarter second of audio at 48 kHz,
// which keeps cancellation responsive without paying a mutex/context check
// per sample.
const FrameCheckCadence = 0x3000

// Canceler is the minimal cancellation-token contract every long-running
// loop in the pipeline polls at FrameCheckCadence. transcode.Canceler is
// the concrete implementation; components here only depend on this
// interface so normalize/layout/clip/tuck never import transcode.
type Canceler interface {
	Canceled() bool
}

// ProgressFunc receives progress in [0, 1], or -1 for indeterminate.
// A nil ProgressFunc is always safe to call through ReportProgress.
type ProgressFunc func(progress float32)

// ReportProgress invokes fn if non-nil. Every component in the pipeline
// goes through this instead of calling fn directly, so a nil progress
// callback (the common case in tests) never needs a guard at the call site.
func ReportProgress(fn ProgressFunc, progress float32) {
	if fn != nil {
		fn(progress)
	}
}

// CheckCanceled reports whether c is non-nil and tripped. Every long loop
// calls this once per FrameCheckCadence frames instead of nil-checking c
// itself at each call site.
func CheckCanceled(c Canceler) bool {
	return c != nil && c.Canceled()
}
