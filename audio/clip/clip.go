// SPDX-License-Identifier: EPL-2.0

// Package clip locates clipping half-waves in a Track and integrates
// detections from a re-decoded Opus buffer back into the source Track
// across iterations, grounded line-for-line on
// original_source/Source/Audio/ClippingDetector.cpp.
package clip

import (
	"fmt"
	"sort"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
)

// Debug gates DebugVerifyConsistency, the package's only assertion-style
// check — left as a cheap package-level knob in the convention
// audio.Registry uses for small mutable config, rather than a constructor
// parameter every caller has to thread through.
var Debug = false

// Detect scans t's sample buffer channel by channel and rebuilds each
// channel's ClippingHalfwaves list from scratch. Zero is treated as
// non-negative, so a half-wave's sign test is sample < 0.
func Detect(t *audio.Track, canceler audio.Canceler, progress audio.ProgressFunc) error {
	channelCount := t.ChannelCount()
	frameCount := t.FrameCount()

	for channelIndex := 0; channelIndex < channelCount; channelIndex++ {
		if err := detectChannel(t, channelIndex, channelCount, frameCount, canceler, progress); err != nil {
			return err
		}
	}
	return nil
}

func detectChannel(t *audio.Track, channelIndex, channelCount int, frameCount uint64, canceler audio.Canceler, progress audio.ProgressFunc) error {
	t.Channels[channelIndex].ClippingHalfwaves = t.Channels[channelIndex].ClippingHalfwaves[:0]

	if frameCount == 0 {
		return nil
	}

	first := t.SampleAt(channelIndex, 0)
	clippingPeak := abs32(first)
	clippingPeakIndex := uint64(0)
	wasClipping := clippingPeak > 1
	wasBelowZero := first < 0
	zeroCrossingIndex := uint64(0)

	for index := uint64(1); index < frameCount; index++ {
		sample := t.SampleAt(channelIndex, index)
		isBelowZero := sample < 0

		if wasBelowZero != isBelowZero {
			if wasClipping {
				t.Channels[channelIndex].ClippingHalfwaves = append(
					t.Channels[channelIndex].ClippingHalfwaves,
					audio.NewClippingHalfwave(zeroCrossingIndex, clippingPeakIndex, index, clippingPeak),
				)
				wasClipping = false
				clippingPeak = 0
			}
			zeroCrossingIndex = index
			wasBelowZero = isBelowZero
		}

		if a := abs32(sample); a > 1 {
			wasClipping = true
			if a > clippingPeak {
				clippingPeak = a
				clippingPeakIndex = index
			}
		}

		if index%audio.FrameCheckCadence == 0 {
			if audio.CheckCanceled(canceler) {
				return fmt.Errorf("clip: %w", audio.ErrCanceled)
			}
			audio.ReportProgress(progress,
				float32(channelIndex)/float32(channelCount)+
					float32(index)/float32(frameCount)/float32(channelCount))
		}
	}

	if wasClipping {
		t.Channels[channelIndex].ClippingHalfwaves = append(
			t.Channels[channelIndex].ClippingHalfwaves,
			audio.NewClippingHalfwave(zeroCrossingIndex, clippingPeakIndex, frameCount, clippingPeak),
		)
	}

	return nil
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Integrate folds decoded's freshly detected half-waves (produced by a
// Detect pass over the re-decoded Opus buffer) back into source. A decoded
// half-wave that intersects an existing source half-wave overwrites its
// PeakAmplitude; one with no match is a clipping peak the codec introduced
// that wasn't already on record, so its extent is rediscovered directly in
// source's buffer around the same peak sample index and inserted in order.
func Integrate(source, decoded *audio.Track) error {
	if source.ChannelCount() != decoded.ChannelCount() {
		return fmt.Errorf("clip: %w: source and decoded channel counts differ", audio.ErrInvalidState)
	}

	for channelIndex := range source.Channels {
		for _, fresh := range decoded.Channels[channelIndex].ClippingHalfwaves {
			existing := source.Channels[channelIndex].ClippingHalfwaves
			if idx := findIntersecting(existing, fresh); idx >= 0 {
				existing[idx].PeakAmplitude = fresh.PeakAmplitude
				continue
			}

			halfwave := halfwaveAroundSample(source, channelIndex, fresh.PeakIndex)
			source.Channels[channelIndex].ClippingHalfwaves = insertOrdered(existing, halfwave)
		}
	}
	return nil
}

func findIntersecting(halfwaves []audio.ClippingHalfwave, fresh audio.ClippingHalfwave) int {
	for i, h := range halfwaves {
		if h.Intersects(fresh) {
			return i
		}
	}
	return -1
}

func insertOrdered(halfwaves []audio.ClippingHalfwave, toInsert audio.ClippingHalfwave) []audio.ClippingHalfwave {
	i := sort.Search(len(halfwaves), func(i int) bool {
		return halfwaves[i].PriorZeroCrossingIndex >= toInsert.PriorZeroCrossingIndex
	})
	halfwaves = append(halfwaves, audio.ClippingHalfwave{})
	copy(halfwaves[i+1:], halfwaves[i:])
	halfwaves[i] = toInsert
	return halfwaves
}

// halfwaveAroundSample walks backward and forward from sampleIndex in
// source's channelIndex column until the sign changes on either side,
// producing a half-wave with PeakAmplitude left at 0 — Update fills it in
// on the following pass, since the true peak lives in the decoded buffer's
// differently-quantized waveform, not this one.
func halfwaveAroundSample(source *audio.Track, channelIndex int, sampleIndex uint64) audio.ClippingHalfwave {
	startsAboveZero := source.SampleAt(channelIndex, sampleIndex) >= 0

	prior := sampleIndex
	for prior > 0 {
		candidate := prior - 1
		if (source.SampleAt(channelIndex, candidate) >= 0) != startsAboveZero {
			break
		}
		prior = candidate
	}

	frameCount := source.FrameCount()
	next := sampleIndex + 1
	for next < frameCount {
		if (source.SampleAt(channelIndex, next) >= 0) != startsAboveZero {
			break
		}
		next++
	}

	return audio.NewClippingHalfwave(prior, sampleIndex, next, 0)
}

// Update re-scans samples (the buffer t's half-wave ranges describe — the
// caller passes the track's own buffer, or an auxiliary one of identical
// shape) within each existing half-wave window, refreshing PeakAmplitude
// (PeakIndex keeps its earlier value). It returns the number of half-waves whose refreshed peak
// still exceeds 1.0 and whose IneffectiveIterationCount is below 10 — the
// iterative declip loop's convergence signal.
func Update(t *audio.Track, samples []float32, canceler audio.Canceler, progress audio.ProgressFunc) (int, error) {
	if len(samples) != len(t.Samples) {
		return 0, fmt.Errorf("clip: %w: samples buffer size mismatch", audio.ErrInvalidState)
	}

	channelCount := t.ChannelCount()
	remaining := 0

	for channelIndex := 0; channelIndex < channelCount; channelIndex++ {
		halfwaves := t.Channels[channelIndex].ClippingHalfwaves
		for i := range halfwaves {
			h := &halfwaves[i]

			// PeakIndex is deliberately not refreshed here — the original
			// leaves it stale too (HalfwaveTucker only needs the range and
			// the peak amplitude to compute a quotient).
			var peak float32
			for sampleIndex := h.PriorZeroCrossingIndex; sampleIndex < h.NextZeroCrossingIndex; sampleIndex++ {
				if s := abs32(samples[sampleIndex*uint64(channelCount)+uint64(channelIndex)]); s > peak {
					peak = s
				}
			}

			if peak != h.PeakAmplitude {
				h.IneffectiveIterationCount = 0
				h.PeakAmplitude = peak
			} else {
				h.IneffectiveIterationCount++
			}

			if peak > 1 && h.IneffectiveIterationCount < 10 {
				remaining++
			}

			if audio.CheckCanceled(canceler) {
				return remaining, fmt.Errorf("clip: %w", audio.ErrCanceled)
			}
		}
		audio.ReportProgress(progress, float32(channelIndex+1)/float32(channelCount))
	}

	return remaining, nil
}

// DebugVerifyConsistency asserts, for every channel, that each half-wave's
// PriorZeroCrossingIndex is no earlier than the previous half-wave's
// NextZeroCrossingIndex. It is a no-op unless Debug is true, matching the
// original's debug-build-only assertion.
func DebugVerifyConsistency(t *audio.Track) error {
	if !Debug {
		return nil
	}

	for channelIndex, ch := range t.Channels {
		var previousEnd uint64
		for _, h := range ch.ClippingHalfwaves {
			if h.PriorZeroCrossingIndex < previousEnd {
				return fmt.Errorf(
					"clip: %w: channel %d has overlapping clipping half-waves",
					audio.ErrInvalidState, channelIndex,
				)
			}
			previousEnd = h.NextZeroCrossingIndex
		}
	}
	return nil
}
