// SPDX-License-Identifier: EPL-2.0

package clip

import (
	"math"
	"testing"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
)

func approxEqual(a, b, epsilon float32) bool {
	return math.Abs(float64(a-b)) <= float64(epsilon)
}

func newTrack(t *testing.T, placements []audio.Placement, channelSamples [][]float32) *audio.Track {
	t.Helper()
	frameCount := uint64(len(channelSamples[0]))
	track, err := audio.NewTrack(48000, placements, frameCount)
	if err != nil {
		t.Fatalf("NewTrack() error = %v", err)
	}
	for c, samples := range channelSamples {
		for f, v := range samples {
			track.SetSampleAt(c, uint64(f), v)
		}
	}
	return track
}

func TestDetect_ClippingAtBufferStart(t *testing.T) {
	t.Parallel()

	left := []float32{1.1, 0.9, 0.5, 0.3, 0.1, -0.1, -0.3, -0.5, -0.3}
	right := make([]float32, len(left))
	track := newTrack(t, []audio.Placement{audio.FrontLeft, audio.FrontRight}, [][]float32{left, right})

	if err := Detect(track, nil, nil); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	halfwaves := track.Channels[0].ClippingHalfwaves
	if len(halfwaves) != 1 {
		t.Fatalf("len(ClippingHalfwaves) = %d, want 1", len(halfwaves))
	}
	h := halfwaves[0]
	if h.PriorZeroCrossingIndex != 0 {
		t.Errorf("PriorZeroCrossingIndex = %d, want 0", h.PriorZeroCrossingIndex)
	}
	if h.NextZeroCrossingIndex != 5 {
		t.Errorf("NextZeroCrossingIndex = %d, want 5", h.NextZeroCrossingIndex)
	}
	if h.PeakIndex != 0 {
		t.Errorf("PeakIndex = %d, want 0", h.PeakIndex)
	}
	if !approxEqual(h.PeakAmplitude, 1.1, 1e-5) {
		t.Errorf("PeakAmplitude = %v, want 1.1", h.PeakAmplitude)
	}
}

func TestDetect_ClippingIntoBufferEnd(t *testing.T) {
	t.Parallel()

	right := []float32{0.3, 0.1, -0.1, -0.3, -0.1, 0.3, 0.9, 1.3, 0.9}
	left := make([]float32, len(right))
	track := newTrack(t, []audio.Placement{audio.FrontLeft, audio.FrontRight}, [][]float32{left, right})

	if err := Detect(track, nil, nil); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	halfwaves := track.Channels[1].ClippingHalfwaves
	if len(halfwaves) != 1 {
		t.Fatalf("len(ClippingHalfwaves) = %d, want 1", len(halfwaves))
	}
	h := halfwaves[0]
	if h.PriorZeroCrossingIndex != 5 {
		t.Errorf("PriorZeroCrossingIndex = %d, want 5", h.PriorZeroCrossingIndex)
	}
	if h.NextZeroCrossingIndex != 9 {
		t.Errorf("NextZeroCrossingIndex = %d, want 9", h.NextZeroCrossingIndex)
	}
	if h.PeakIndex != 7 {
		t.Errorf("PeakIndex = %d, want 7", h.PeakIndex)
	}
	if !approxEqual(h.PeakAmplitude, 1.3, 1e-5) {
		t.Errorf("PeakAmplitude = %v, want 1.3", h.PeakAmplitude)
	}
}

func TestDetect_NoClippingProducesEmptyList(t *testing.T) {
	t.Parallel()

	samples := []float32{0.1, 0.2, -0.1, -0.2, 0.3}
	track := newTrack(t, []audio.Placement{audio.FrontCenter}, [][]float32{samples})

	if err := Detect(track, nil, nil); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(track.Channels[0].ClippingHalfwaves) != 0 {
		t.Errorf("len(ClippingHalfwaves) = %d, want 0", len(track.Channels[0].ClippingHalfwaves))
	}
}

func TestDetect_RerunClearsStaleHalfwaves(t *testing.T) {
	t.Parallel()

	samples := []float32{1.5, 1.2, 0.1, -0.1}
	track := newTrack(t, []audio.Placement{audio.FrontCenter}, [][]float32{samples})

	if err := Detect(track, nil, nil); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	firstCount := len(track.Channels[0].ClippingHalfwaves)
	if firstCount == 0 {
		t.Fatal("expected at least one half-wave on first pass")
	}

	if err := Detect(track, nil, nil); err != nil {
		t.Fatalf("second Detect() error = %v", err)
	}
	if got := len(track.Channels[0].ClippingHalfwaves); got != firstCount {
		t.Errorf("second Detect() produced %d half-waves, want %d (no duplication)", got, firstCount)
	}
}

func TestUpdate_RefreshesPeakAndCountsRemaining(t *testing.T) {
	t.Parallel()

	samples := []float32{1.5, 1.2, 0.1, -0.1}
	track := newTrack(t, []audio.Placement{audio.FrontCenter}, [][]float32{samples})
	if err := Detect(track, nil, nil); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	// Simulate a tuck that brought the peak below 1.0.
	tucked := []float32{0.9, 0.8, 0.1, -0.1}
	remaining, err := Update(track, tucked, nil, nil)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
	if got := track.Channels[0].ClippingHalfwaves[0].PeakAmplitude; !approxEqual(got, 0.9, 1e-5) {
		t.Errorf("PeakAmplitude after Update = %v, want 0.9", got)
	}
}

func TestUpdate_IneffectiveIterationCountIncrementsWhenUnchanged(t *testing.T) {
	t.Parallel()

	samples := []float32{1.5, 1.2, 0.1, -0.1}
	track := newTrack(t, []audio.Placement{audio.FrontCenter}, [][]float32{samples})
	if err := Detect(track, nil, nil); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := Update(track, samples, nil, nil); err != nil {
			t.Fatalf("Update() error = %v", err)
		}
	}
	if got := track.Channels[0].ClippingHalfwaves[0].IneffectiveIterationCount; got != 3 {
		t.Errorf("IneffectiveIterationCount = %d, want 3", got)
	}
}

func TestIntegrate_OverwritesMatchingPeak(t *testing.T) {
	t.Parallel()

	source := newTrack(t, []audio.Placement{audio.FrontCenter}, [][]float32{{1.5, 1.2, 0.1, -0.1}})
	decoded := newTrack(t, []audio.Placement{audio.FrontCenter}, [][]float32{{1.8, 1.2, 0.1, -0.1}})

	if err := Detect(source, nil, nil); err != nil {
		t.Fatalf("Detect(source) error = %v", err)
	}
	if err := Detect(decoded, nil, nil); err != nil {
		t.Fatalf("Detect(decoded) error = %v", err)
	}

	if err := Integrate(source, decoded); err != nil {
		t.Fatalf("Integrate() error = %v", err)
	}

	if got := source.Channels[0].ClippingHalfwaves[0].PeakAmplitude; !approxEqual(got, 1.8, 1e-5) {
		t.Errorf("PeakAmplitude = %v, want 1.8 (overwritten from decoded)", got)
	}
}

func TestIntegrate_SynthesizesMissingHalfwave(t *testing.T) {
	t.Parallel()

	// Source has no clipping; decoded introduces a new clipping peak at index 5.
	source := newTrack(t, []audio.Placement{audio.FrontCenter}, [][]float32{
		{0.1, 0.2, 0.3, 0.2, 0.1, 0.4, 0.3, 0.2, -0.1, -0.2},
	})
	decoded := newTrack(t, []audio.Placement{audio.FrontCenter}, [][]float32{
		{0.1, 0.2, 0.3, 0.2, 0.1, 1.4, 0.3, 0.2, -0.1, -0.2},
	})

	if err := Detect(decoded, nil, nil); err != nil {
		t.Fatalf("Detect(decoded) error = %v", err)
	}
	if err := Integrate(source, decoded); err != nil {
		t.Fatalf("Integrate() error = %v", err)
	}

	halfwaves := source.Channels[0].ClippingHalfwaves
	if len(halfwaves) != 1 {
		t.Fatalf("len(ClippingHalfwaves) = %d, want 1", len(halfwaves))
	}
	h := halfwaves[0]
	if h.PriorZeroCrossingIndex != 0 || h.NextZeroCrossingIndex != 8 {
		t.Errorf("synthesized half-wave = [%d,%d), want [0,8)", h.PriorZeroCrossingIndex, h.NextZeroCrossingIndex)
	}
}

func TestDebugVerifyConsistency_NoopWhenDisabled(t *testing.T) {
	t.Parallel()

	track := newTrack(t, []audio.Placement{audio.FrontCenter}, [][]float32{{1.5, 0.1}})
	track.Channels[0].ClippingHalfwaves = []audio.ClippingHalfwave{
		audio.NewClippingHalfwave(0, 0, 2, 1.5),
		audio.NewClippingHalfwave(1, 1, 2, 1.5), // overlapping, would fail if Debug were on
	}

	if err := DebugVerifyConsistency(track); err != nil {
		t.Errorf("DebugVerifyConsistency() error = %v, want nil when Debug=false", err)
	}
}

func TestDebugVerifyConsistency_CatchesOverlap(t *testing.T) {
	t.Parallel()

	Debug = true
	defer func() { Debug = false }()

	track := newTrack(t, []audio.Placement{audio.FrontCenter}, [][]float32{{1.5, 0.1}})
	track.Channels[0].ClippingHalfwaves = []audio.ClippingHalfwave{
		audio.NewClippingHalfwave(0, 0, 2, 1.5),
		audio.NewClippingHalfwave(1, 1, 2, 1.5),
	}

	if err := DebugVerifyConsistency(track); err == nil {
		t.Error("DebugVerifyConsistency() error = nil, want ErrInvalidState")
	}
}
