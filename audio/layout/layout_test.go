// SPDX-License-Identifier: EPL-2.0

package layout

import (
	"math"
	"testing"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
)

func approxEqual(a, b, epsilon float32) bool {
	return math.Abs(float64(a-b)) <= float64(epsilon)
}

func newTrack(t *testing.T, placements []audio.Placement, frameCount uint64) *audio.Track {
	t.Helper()
	track, err := audio.NewTrack(48000, placements, frameCount)
	if err != nil {
		t.Fatalf("NewTrack() error = %v", err)
	}
	return track
}

func TestUpmixMonoToStereo(t *testing.T) {
	t.Parallel()

	track := newTrack(t, []audio.Placement{audio.FrontCenter}, 3)
	copy(track.Samples, []float32{0.25, 0.5, 2.0})

	if err := UpmixMonoToStereo(track, nil, nil); err != nil {
		t.Fatalf("UpmixMonoToStereo() error = %v", err)
	}

	want := []float32{0.25, 0.25, 0.5, 0.5, 2.0, 2.0}
	if len(track.Samples) != len(want) {
		t.Fatalf("len(Samples) = %d, want %d", len(track.Samples), len(want))
	}
	for i, v := range want {
		if track.Samples[i] != v {
			t.Errorf("Samples[%d] = %v, want %v", i, track.Samples[i], v)
		}
	}
	if track.ChannelCount() != 2 {
		t.Errorf("ChannelCount() = %d, want 2", track.ChannelCount())
	}
	if track.Channels[0].Placement != audio.FrontLeft || track.Channels[1].Placement != audio.FrontRight {
		t.Errorf("unexpected output placements: %v", track.Placements())
	}
}

func TestUpmixMonoToStereo_RejectsNonMono(t *testing.T) {
	t.Parallel()

	track := newTrack(t, []audio.Placement{audio.FrontLeft, audio.FrontRight}, 2)
	if err := UpmixMonoToStereo(track, nil, nil); err == nil {
		t.Fatal("UpmixMonoToStereo() error = nil, want ErrUnsupportedLayout")
	}
}

func TestDownmixSurroundToStereo_FiveOneAtNightmodeZero(t *testing.T) {
	t.Parallel()

	// L, C, R, BL, BR, LFE Vorbis order, one frame, all samples 1.0
	track := newTrack(t, audio.VorbisOrder(audio.LayoutFiveDotOne), 1)
	for c := range track.Channels {
		track.SetSampleAt(c, 0, 1.0)
	}

	if err := DownmixSurroundToStereo(track, 0, nil, nil); err != nil {
		t.Fatalf("DownmixSurroundToStereo() error = %v", err)
	}

	want := float32(1.0 + math.Sqrt2)
	if !approxEqual(track.SampleAt(0, 0), want, 1e-4) {
		t.Errorf("left = %v, want %v", track.SampleAt(0, 0), want)
	}
	if !approxEqual(track.SampleAt(1, 0), want, 1e-4) {
		t.Errorf("right = %v, want %v", track.SampleAt(1, 0), want)
	}
}

func TestDownmixSevenOneToFiveOne(t *testing.T) {
	t.Parallel()

	placements := []audio.Placement{
		audio.FrontLeft, audio.FrontRight, audio.FrontCenter, audio.LowFrequencyEffects,
		audio.SideLeft, audio.SideRight, audio.BackLeft, audio.BackRight,
	}
	track := newTrack(t, placements, 2)
	// Frame 0: L=1,R=1,C=1,LFE=1,BL=0,BR=0,SL=0,SR=0
	track.SetSampleAt(0, 0, 1)
	track.SetSampleAt(1, 0, 1)
	track.SetSampleAt(2, 0, 1)
	track.SetSampleAt(3, 0, 1)
	// Frame 1: BL=1, SL=1, everything else 0
	track.SetSampleAt(4, 1, 1) // SideLeft
	track.SetSampleAt(6, 1, 1) // BackLeft

	if err := DownmixSevenOneToFiveOne(track, nil, nil); err != nil {
		t.Fatalf("DownmixSevenOneToFiveOne() error = %v", err)
	}

	if track.ChannelCount() != 6 {
		t.Fatalf("ChannelCount() = %d, want 6", track.ChannelCount())
	}
	// frame 0: L,C,R,LFE preserved, BL_out = BR_out = 0
	if got := track.SampleAt(0, 0); got != 1 {
		t.Errorf("frame0 L = %v, want 1", got)
	}
	if got := track.SampleAt(5, 0); got != 1 {
		t.Errorf("frame0 LFE = %v, want 1", got)
	}
	if got := track.SampleAt(3, 0); got != 0 {
		t.Errorf("frame0 BL_out = %v, want 0", got)
	}
	// frame 1: BL_out = (BL+SL)/2 = 1
	if got := track.SampleAt(3, 1); got != 1 {
		t.Errorf("frame1 BL_out = %v, want 1", got)
	}
}

func TestDownmixSevenOneToFiveOne_RejectsMissingChannel(t *testing.T) {
	t.Parallel()

	// Missing SideRight/BackRight entirely.
	placements := []audio.Placement{
		audio.FrontLeft, audio.FrontRight, audio.FrontCenter, audio.LowFrequencyEffects,
		audio.SideLeft, audio.BackLeft, audio.BackLeft, audio.BackLeft,
	}
	track := newTrack(t, placements, 1)

	if err := DownmixSevenOneToFiveOne(track, nil, nil); err == nil {
		t.Fatal("DownmixSevenOneToFiveOne() error = nil, want ErrUnsupportedLayout")
	}
}

func TestReweaveToVorbis_SideAndBackInterchangeable(t *testing.T) {
	t.Parallel()

	// Input order: FL, FR, SL, SR, FC, LFE (not Vorbis order)
	placements := []audio.Placement{
		audio.FrontLeft, audio.FrontRight, audio.SideLeft, audio.SideRight,
		audio.FrontCenter, audio.LowFrequencyEffects,
	}
	track := newTrack(t, placements, 1)
	track.SetSampleAt(0, 0, 10) // FL
	track.SetSampleAt(1, 0, 20) // FR
	track.SetSampleAt(2, 0, 30) // SL -> rear left slot
	track.SetSampleAt(3, 0, 40) // SR -> rear right slot
	track.SetSampleAt(4, 0, 50) // FC
	track.SetSampleAt(5, 0, 60) // LFE

	if err := ReweaveToVorbis(track, nil, nil); err != nil {
		t.Fatalf("ReweaveToVorbis() error = %v", err)
	}

	want := []float32{10, 50, 20, 30, 40, 60} // FL, FC, FR, rear-left, rear-right, LFE
	for i, v := range want {
		if track.Samples[i] != v {
			t.Errorf("Samples[%d] = %v, want %v", i, track.Samples[i], v)
		}
	}
	gotOrder := track.Placements()
	wantOrder := audio.VorbisOrder(audio.LayoutFiveDotOne)
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Errorf("Placements()[%d] = %v, want %v", i, gotOrder[i], wantOrder[i])
		}
	}
}

func TestTransform_NoopWhenAlreadyVorbisOrder(t *testing.T) {
	t.Parallel()

	track := newTrack(t, audio.VorbisOrder(audio.LayoutStereo), 2)
	copy(track.Samples, []float32{0.1, 0.2, 0.3, 0.4})
	before := append([]float32(nil), track.Samples...)

	if err := Transform(track, audio.LayoutStereo, 0, nil, nil); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	for i := range before {
		if track.Samples[i] != before[i] {
			t.Errorf("Transform() mutated buffer at %d: got %v, want %v (no-op)", i, track.Samples[i], before[i])
		}
	}
}

func TestTransform_MonoToStereoDispatchesUpmix(t *testing.T) {
	t.Parallel()

	track := newTrack(t, []audio.Placement{audio.FrontCenter}, 2)
	copy(track.Samples, []float32{0.5, 0.25})

	if err := Transform(track, audio.LayoutStereo, 0, nil, nil); err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if track.ChannelCount() != 2 {
		t.Errorf("ChannelCount() = %d, want 2", track.ChannelCount())
	}
}

func TestTransform_UnsupportedChannelCount(t *testing.T) {
	t.Parallel()

	// Quad (4 channels) has no defined transform to stereo or 5.1 in this module.
	track := newTrack(t, []audio.Placement{
		audio.FrontLeft, audio.FrontRight, audio.BackLeft, audio.BackRight,
	}, 1)

	if err := Transform(track, audio.LayoutStereo, 0, nil, nil); err == nil {
		t.Fatal("Transform() error = nil, want ErrUnsupportedLayout")
	}
}
