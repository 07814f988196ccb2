// SPDX-License-Identifier: EPL-2.0

// Package tuck scales down the samples inside each detected clipping
// half-wave so its peak falls back below 0 dBFS, grounded on the in-place
// variant of original_source/Source/Audio/HalfwaveTucker.cpp — the copying
// variant in that file is compiled out upstream because of an
// audio-corrupting bug, so it has no counterpart here.
package tuck

import (
	"fmt"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
)

// TuckClippingHalfwaves divides every sample inside each channel's recorded
// clipping half-waves by a quotient derived from the half-wave's measured
// peak, in place. A half-wave whose peak no longer exceeds 1.0 reuses its
// previously recorded VolumeQuotient rather than being left untouched,
// since earlier iterations may have already scaled this range down without
// it being enough.
func TuckClippingHalfwaves(t *audio.Track, canceler audio.Canceler, progress audio.ProgressFunc) error {
	channelCount := t.ChannelCount()
	frameCount := t.FrameCount()

	for channelIndex := 0; channelIndex < channelCount; channelIndex++ {
		halfwaves := t.Channels[channelIndex].ClippingHalfwaves
		for i := range halfwaves {
			h := &halfwaves[i]
			if h.NextZeroCrossingIndex > frameCount {
				return fmt.Errorf("tuck: %w: half-wave range extends past the buffer", audio.ErrInvalidState)
			}

			quotient := updateAndReturnVolumeQuotient(h)

			for frame := h.PriorZeroCrossingIndex; frame < h.NextZeroCrossingIndex; frame++ {
				index := frame*uint64(channelCount) + uint64(channelIndex)
				t.Samples[index] /= quotient

				if frame%audio.FrameCheckCadence == 0 {
					if audio.CheckCanceled(canceler) {
						return fmt.Errorf("tuck: %w", audio.ErrCanceled)
					}
					audio.ReportProgress(progress,
						float32(channelIndex)/float32(channelCount)+
							float32(frame)/float32(frameCount)/float32(channelCount))
				}
			}
		}
		audio.ReportProgress(progress, float32(channelIndex+1)/float32(channelCount))
	}

	return nil
}

// updateAndReturnVolumeQuotient mirrors HalfwaveTucker.cpp's anonymous
// updateAndReturnVolumeQuotient: a peak still above 1.0 is scaled by any
// previously recorded quotient (the prior attempt undershot), and the
// result replaces VolumeQuotient for the next iteration; otherwise the
// stored quotient from an earlier pass is reused as-is. The result is
// normalized to -0.001 dB rather than 0 dB for a small safety margin.
func updateAndReturnVolumeQuotient(h *audio.ClippingHalfwave) float32 {
	var quotient float32

	if h.PeakAmplitude > 1.0 {
		quotient = abs32(h.PeakAmplitude)
		if h.VolumeQuotient != 0 {
			quotient *= h.VolumeQuotient
		}
		h.VolumeQuotient = quotient
	} else {
		quotient = h.VolumeQuotient
	}

	return quotient / audio.MinusOneThousandthDecibel
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
