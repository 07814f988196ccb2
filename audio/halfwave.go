// SPDX-License-Identifier: EPL-2.0

package audio

// MinusOneThousandthDecibel is the linear amplitude at -0.001 dBFS, used as
// a safety margin so a tucked half-wave's peak lands strictly below 0 dBFS.
const MinusOneThousandthDecibel float32 = 0.99988487737246860830993605587529673614422529030613405900998412734419982883669222875138231966

// ClippingHalfwave describes a contiguous run of samples in one channel
// that lies entirely on one side of zero and contains at least one sample
// whose absolute value exceeds 1.0.
//
// PeakAmplitude is always stored as an absolute value (see SPEC_FULL.md's
// resolution of the sign-convention open question). NextZeroCrossingIndex is
// exclusive; it equals the buffer's frame count, never frameCount-1, when a
// half-wave runs to the end of the buffer.
type ClippingHalfwave struct {
	PriorZeroCrossingIndex    uint64
	PeakIndex                 uint64
	NextZeroCrossingIndex     uint64
	PeakAmplitude             float32
	VolumeQuotient            float32
	IneffectiveIterationCount int
}

// NewClippingHalfwave constructs a half-wave record, normalizing
// PeakAmplitude to its absolute value.
func NewClippingHalfwave(prior, peakIndex, next uint64, peakAmplitude float32) ClippingHalfwave {
	if peakAmplitude < 0 {
		peakAmplitude = -peakAmplitude
	}
	return ClippingHalfwave{
		PriorZeroCrossingIndex: prior,
		PeakIndex:              peakIndex,
		NextZeroCrossingIndex:  next,
		PeakAmplitude:          peakAmplitude,
	}
}

// Contains reports whether frameIndex lies within [Prior, Next).
func (h ClippingHalfwave) Contains(frameIndex uint64) bool {
	return frameIndex >= h.PriorZeroCrossingIndex && frameIndex < h.NextZeroCrossingIndex
}

// Intersects reports whether other begins inside h, ends inside h, or
// envelops h entirely — the three ways ClippingDetector.Integrate treats a
// freshly detected half-wave as "the same" half-wave already on record.
func (h ClippingHalfwave) Intersects(other ClippingHalfwave) bool {
	beginsInside := other.PriorZeroCrossingIndex >= h.PriorZeroCrossingIndex &&
		other.PriorZeroCrossingIndex < h.NextZeroCrossingIndex
	endsInside := h.NextZeroCrossingIndex >= other.NextZeroCrossingIndex &&
		h.PriorZeroCrossingIndex < other.NextZeroCrossingIndex
	envelops := other.PriorZeroCrossingIndex < h.PriorZeroCrossingIndex &&
		other.NextZeroCrossingIndex >= h.NextZeroCrossingIndex
	return beginsInside || endsInside || envelops
}
