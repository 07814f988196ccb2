// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

// Sentinel errors for the kinds of failure a Source implementation
// or the declipping pipeline itself can report. ErrInvalidDstSize is kept
// from the teacher's streaming-Source days; it still applies to any Source
// implementation that validates dst against its channel count.
var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrCanceled marks a cancellation-token trip. It propagates all the
	// way out of the pipeline; the transcode coordinator is the only
	// place that catches and classifies it into an Outcome.
	ErrCanceled = errors.New("operation canceled")

	// ErrUnsupportedFormat marks a decoder with zero tracks or no float
	// decode path.
	ErrUnsupportedFormat = errors.New("unsupported input format")

	// ErrUnsupportedLayout marks a channel configuration that does not
	// match any supported up/down-mix or re-weave pattern, or an output
	// layout outside {stereo, 5.1}.
	ErrUnsupportedLayout = errors.New("unsupported channel layout")

	// ErrAllocationFailed marks a failure to reserve the sample buffer.
	ErrAllocationFailed = errors.New("could not allocate sample buffer")

	// ErrInvalidState marks a broken internal invariant: a half-wave range
	// outside the buffer, or mismatched channel counts between a source
	// and its decoded-Opus counterpart. Treated as a bug, never expected
	// in normal operation.
	ErrInvalidState = errors.New("invalid internal state")

	// ErrIoFailed marks a backing file open/read/write failure.
	ErrIoFailed = errors.New("i/o failure")
)

// ErrorKind classifies a pipeline failure the way §7 of SPEC_FULL.md names
// them, so a caller can switch on Kind without string-matching error text.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindCanceled
	KindUnsupportedFormat
	KindUnsupportedLayout
	KindDecodeFailed
	KindEncodeFailed
	KindAllocationFailed
	KindInvalidState
	KindIoFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindCanceled:
		return "Canceled"
	case KindUnsupportedFormat:
		return "UnsupportedFormat"
	case KindUnsupportedLayout:
		return "UnsupportedLayout"
	case KindDecodeFailed:
		return "DecodeFailed"
	case KindEncodeFailed:
		return "EncodeFailed"
	case KindAllocationFailed:
		return "AllocationFailed"
	case KindInvalidState:
		return "InvalidState"
	case KindIoFailed:
		return "IoFailed"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying error with a Kind, for DecodeFailed/EncodeFailed
// which must "wrap any external decoder/encoder error verbatim" rather than
// collapse it to a sentinel.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with kind, verbatim.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf classifies err into an ErrorKind: the Kind of the first *Error in
// err's chain when there is one, otherwise the kind of the package sentinel
// err matches, and KindUnknown when neither applies.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	switch {
	case errors.Is(err, ErrCanceled):
		return KindCanceled
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrUnsupportedLayout):
		return KindUnsupportedLayout
	case errors.Is(err, ErrAllocationFailed):
		return KindAllocationFailed
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrIoFailed):
		return KindIoFailed
	default:
		return KindUnknown
	}
}
