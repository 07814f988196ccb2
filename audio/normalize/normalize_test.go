// SPDX-License-Identifier: EPL-2.0

package normalize

import (
	"math"
	"testing"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
)

func approxEqual(a, b, epsilon float32) bool {
	return math.Abs(float64(a-b)) <= float64(epsilon)
}

func newTestTrack(t *testing.T, placements []audio.Placement, frames [][]float32) *audio.Track {
	t.Helper()

	track, err := audio.NewTrack(48000, placements, uint64(len(frames)))
	if err != nil {
		t.Fatalf("NewTrack() error = %v", err)
	}
	for f, frame := range frames {
		for c, v := range frame {
			track.SetSampleAt(c, uint64(f), v)
		}
	}
	return track
}

func TestNormalize_ScalesUpBelowOne(t *testing.T) {
	t.Parallel()

	track := newTestTrack(t, []audio.Placement{audio.FrontLeft, audio.FrontRight}, [][]float32{
		{0.25, -0.1},
		{0.5, 0.2},
	})

	if err := Normalize(track, true, nil, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	want := float32(0.5) * (audio.MinusOneThousandthDecibel / 0.5)
	got := track.SampleAt(0, 1)
	if !approxEqual(got, want, 1e-5) {
		t.Errorf("SampleAt(0,1) = %v, want %v", got, want)
	}
}

func TestNormalize_SkipsDecreaseWhenDisallowed(t *testing.T) {
	t.Parallel()

	track := newTestTrack(t, []audio.Placement{audio.FrontLeft, audio.FrontRight}, [][]float32{
		{1.5, -0.2},
		{0.9, 0.3},
	})

	if err := Normalize(track, false, nil, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if got := track.SampleAt(0, 0); got != 1.5 {
		t.Errorf("SampleAt(0,0) = %v, want unchanged 1.5 (allowVolumeDecrease=false)", got)
	}
}

func TestNormalize_DecreasesWhenAllowed(t *testing.T) {
	t.Parallel()

	track := newTestTrack(t, []audio.Placement{audio.FrontLeft}, [][]float32{
		{1.5},
		{0.9},
	})

	if err := Normalize(track, true, nil, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	want := float32(1.5) * (audio.MinusOneThousandthDecibel / 1.5)
	got := track.SampleAt(0, 0)
	if !approxEqual(got, want, 1e-5) {
		t.Errorf("SampleAt(0,0) = %v, want %v", got, want)
	}
}

func TestNormalize_LFEIndependentFromOthers(t *testing.T) {
	t.Parallel()

	track := newTestTrack(t, []audio.Placement{
		audio.FrontLeft, audio.FrontRight, audio.LowFrequencyEffects,
	}, [][]float32{
		{0.2, 0.2, 0.8},
		{0.1, 0.1, 0.05},
	})

	if err := Normalize(track, true, nil, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	wantOther := audio.MinusOneThousandthDecibel / 0.2
	wantBass := audio.MinusOneThousandthDecibel / 0.8

	if got := track.SampleAt(0, 0); !approxEqual(got, 0.2*wantOther, 1e-5) {
		t.Errorf("FrontLeft scaled = %v, want %v", got, 0.2*wantOther)
	}
	if got := track.SampleAt(2, 0); !approxEqual(got, 0.8*wantBass, 1e-5) {
		t.Errorf("LFE scaled = %v, want %v", got, 0.8*wantBass)
	}
}

func TestNormalize_SilentTrackIsNoop(t *testing.T) {
	t.Parallel()

	track := newTestTrack(t, []audio.Placement{audio.FrontLeft, audio.FrontRight}, [][]float32{
		{0, 0},
		{0, 0},
	})

	if err := Normalize(track, true, nil, nil); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	for f := uint64(0); f < track.FrameCount(); f++ {
		for c := 0; c < track.ChannelCount(); c++ {
			if got := track.SampleAt(c, f); got != 0 {
				t.Errorf("SampleAt(%d,%d) = %v, want 0", c, f, got)
			}
		}
	}
}

type canceledAfterFirst struct{ calls int }

func (c *canceledAfterFirst) Canceled() bool {
	c.calls++
	return c.calls > 1
}

func TestNormalize_Cancellation(t *testing.T) {
	t.Parallel()

	frames := make([][]float32, audio.FrameCheckCadence*2)
	for i := range frames {
		frames[i] = []float32{0.5, 0.5}
	}
	track := newTestTrack(t, []audio.Placement{audio.FrontLeft, audio.FrontRight}, frames)

	err := Normalize(track, true, &canceledAfterFirst{}, nil)
	if err == nil {
		t.Fatal("Normalize() error = nil, want ErrCanceled")
	}
	if got := audio.KindOf(err); got != audio.KindCanceled {
		t.Errorf("KindOf(err) = %v, want KindCanceled", got)
	}
}
