// SPDX-License-Identifier: EPL-2.0

// Package layout up-mixes, down-mixes and re-weaves a Track's interleaved
// channels between {mono, stereo, 5.1, 7.1} into the Vorbis I channel order,
// grounded on original_source/Source/Audio/ChannelLayoutTransformer.cpp.
package layout

import (
	"fmt"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
)

// diagonal is half the square root of 2, the sine of a quarter of pi — the
// cinematic-mode downmix coefficient for center and side/back channels.
const diagonal = 0.7071067811865475244008443621048490392848359376884740365883398689953662

func lerp(from, to, t float32) float32 {
	return from*(1-t) + to*t
}

type contribution struct {
	index  int
	factor float32
}

// UpmixMonoToStereo doubles a single FrontCenter channel into FrontLeft and
// FrontRight, copying each mono sample to both outputs verbatim (no -3 dB
// attenuation, so each side carries the mono signal at its original level).
func UpmixMonoToStereo(t *audio.Track, canceler audio.Canceler, progress audio.ProgressFunc) error {
	if t.ChannelCount() != 1 {
		return fmt.Errorf("layout: %w: upmix requires a mono track", audio.ErrUnsupportedLayout)
	}
	if t.Channels[0].Placement != audio.FrontCenter {
		return fmt.Errorf("layout: %w: non-standard mono channel", audio.ErrUnsupportedLayout)
	}

	frameCount := t.FrameCount()
	src := t.Samples
	dst := make([]float32, frameCount*2)

	for frame := uint64(0); frame < frameCount; frame++ {
		sample := src[frame]
		dst[frame*2] = sample
		dst[frame*2+1] = sample

		if frame%audio.FrameCheckCadence == 0 {
			if audio.CheckCanceled(canceler) {
				return fmt.Errorf("layout: %w", audio.ErrCanceled)
			}
			audio.ReportProgress(progress, float32(frame)/float32(frameCount))
		}
	}

	t.Samples = dst
	t.Channels = []audio.Channel{
		{InputOrder: 0, Placement: audio.FrontLeft},
		{InputOrder: 1, Placement: audio.FrontRight},
	}
	audio.ReportProgress(progress, 1)
	return nil
}

// DownmixSurroundToStereo mixes a 5.1 or 7.1 track down to stereo. Each
// source channel's contribution factor is interpolated between a cinematic
// weighting (nightmodeLevel=0) and a speech-forward weighting
// (nightmodeLevel=1); when both a side and a back channel exist on the same
// side (7.1 input), their factors are halved so the pair sums to the
// unsplit coefficient.
func DownmixSurroundToStereo(t *audio.Track, nightmodeLevel float32, canceler audio.Canceler, progress audio.ProgressFunc) error {
	channelCount := t.ChannelCount()
	if channelCount != 6 && channelCount != 8 {
		return fmt.Errorf("layout: %w: only 5.1 and 7.1 can be downmixed to stereo", audio.ErrUnsupportedLayout)
	}

	var left, right []contribution
	for i, ch := range t.Channels {
		switch ch.Placement {
		case audio.FrontCenter:
			f := lerp(diagonal, 1.0, nightmodeLevel)
			left = append(left, contribution{i, f})
			right = append(right, contribution{i, f})
		case audio.FrontLeft:
			left = append(left, contribution{i, lerp(1.0, 0.3, nightmodeLevel)})
		case audio.FrontRight:
			right = append(right, contribution{i, lerp(1.0, 0.3, nightmodeLevel)})
		case audio.SideLeft, audio.BackLeft:
			f := lerp(diagonal, 0.3, nightmodeLevel)
			if channelCount > 6 {
				f /= 2
			}
			left = append(left, contribution{i, f})
		case audio.SideRight, audio.BackRight:
			f := lerp(diagonal, 0.3, nightmodeLevel)
			if channelCount > 6 {
				f /= 2
			}
			right = append(right, contribution{i, f})
		}
	}

	if len(left) != 3 && len(left) != 4 {
		return fmt.Errorf("layout: %w: non-standard channel layout can't be downmixed to stereo", audio.ErrUnsupportedLayout)
	}
	if len(left) != len(right) {
		return fmt.Errorf("layout: %w: asymmetric left/right channel layout", audio.ErrUnsupportedLayout)
	}

	frameCount := t.FrameCount()
	src := t.Samples
	dst := make([]float32, frameCount*2)

	for frame := uint64(0); frame < frameCount; frame++ {
		base := frame * uint64(channelCount)
		var l, r float32
		for _, c := range left {
			l += src[base+uint64(c.index)] * c.factor
		}
		for _, c := range right {
			r += src[base+uint64(c.index)] * c.factor
		}
		dst[frame*2] = l
		dst[frame*2+1] = r

		if frame%audio.FrameCheckCadence == 0 {
			if audio.CheckCanceled(canceler) {
				return fmt.Errorf("layout: %w", audio.ErrCanceled)
			}
			audio.ReportProgress(progress, float32(frame)/float32(frameCount))
		}
	}

	t.Samples = dst
	t.Channels = []audio.Channel{
		{InputOrder: 0, Placement: audio.FrontLeft},
		{InputOrder: 1, Placement: audio.FrontRight},
	}
	audio.ReportProgress(progress, 1)
	return nil
}

// DownmixSevenOneToFiveOne collapses the independent side and back pairs of
// a 7.1 track into a single rear pair, producing L, C, R, (SL+BL)/2,
// (SR+BR)/2, LFE — already in Vorbis 5.1 order.
func DownmixSevenOneToFiveOne(t *audio.Track, canceler audio.Canceler, progress audio.ProgressFunc) error {
	if t.ChannelCount() != 8 {
		return fmt.Errorf("layout: %w: only 7.1 can be downmixed to 5.1", audio.ErrUnsupportedLayout)
	}

	const invalid = -1
	full := [4]int{invalid, invalid, invalid, invalid} // FL, FC, FR, LFE
	half := [4]int{invalid, invalid, invalid, invalid} // SL, BL, SR, BR
	for i, ch := range t.Channels {
		switch ch.Placement {
		case audio.FrontLeft:
			full[0] = i
		case audio.FrontCenter:
			full[1] = i
		case audio.FrontRight:
			full[2] = i
		case audio.LowFrequencyEffects:
			full[3] = i
		case audio.SideLeft:
			half[0] = i
		case audio.BackLeft:
			half[1] = i
		case audio.SideRight:
			half[2] = i
		case audio.BackRight:
			half[3] = i
		}
	}
	for _, v := range full {
		if v == invalid {
			return fmt.Errorf("layout: %w: non-standard 7.1 layout missing a front/LFE channel", audio.ErrUnsupportedLayout)
		}
	}
	for _, v := range half {
		if v == invalid {
			return fmt.Errorf("layout: %w: non-standard 7.1 layout missing a side/back channel", audio.ErrUnsupportedLayout)
		}
	}

	frameCount := t.FrameCount()
	src := t.Samples
	dst := make([]float32, frameCount*6)

	for frame := uint64(0); frame < frameCount; frame++ {
		base := frame * 8
		out := frame * 6
		dst[out+0] = src[base+uint64(full[0])]
		dst[out+1] = src[base+uint64(full[1])]
		dst[out+2] = src[base+uint64(full[2])]
		dst[out+3] = (src[base+uint64(half[0])] + src[base+uint64(half[1])]) / 2
		dst[out+4] = (src[base+uint64(half[2])] + src[base+uint64(half[3])]) / 2
		dst[out+5] = src[base+uint64(full[3])]

		if frame%audio.FrameCheckCadence == 0 {
			if audio.CheckCanceled(canceler) {
				return fmt.Errorf("layout: %w", audio.ErrCanceled)
			}
			audio.ReportProgress(progress, float32(frame)/float32(frameCount))
		}
	}

	t.Samples = dst
	t.Channels = []audio.Channel{
		{InputOrder: 0, Placement: audio.FrontLeft},
		{InputOrder: 1, Placement: audio.FrontCenter},
		{InputOrder: 2, Placement: audio.FrontRight},
		{InputOrder: 3, Placement: audio.BackLeft},
		{InputOrder: 4, Placement: audio.BackRight},
		{InputOrder: 5, Placement: audio.LowFrequencyEffects},
	}
	audio.ReportProgress(progress, 1)
	return nil
}

// ReweaveToVorbis reorders a 5.1 track's six channels per frame into Vorbis
// I order, treating SideLeft/BackLeft (and SideRight/BackRight) as
// interchangeable when locating the rear slot.
func ReweaveToVorbis(t *audio.Track, canceler audio.Canceler, progress audio.ProgressFunc) error {
	if t.ChannelCount() != 6 {
		return fmt.Errorf("layout: %w: only 5.1 surround can be re-weaved", audio.ErrUnsupportedLayout)
	}

	const invalid = -1
	mapping := [6]int{invalid, invalid, invalid, invalid, invalid, invalid}
	for i, ch := range t.Channels {
		switch ch.Placement {
		case audio.FrontLeft:
			mapping[0] = i
		case audio.FrontCenter:
			mapping[1] = i
		case audio.FrontRight:
			mapping[2] = i
		case audio.SideLeft, audio.BackLeft:
			mapping[3] = i
		case audio.SideRight, audio.BackRight:
			mapping[4] = i
		case audio.LowFrequencyEffects:
			mapping[5] = i
		}
	}
	for _, v := range mapping {
		if v == invalid {
			return fmt.Errorf("layout: %w: non-standard 5.1 layout can't be re-weaved", audio.ErrUnsupportedLayout)
		}
	}

	frameCount := t.FrameCount()
	var scratch [6]float32
	for frame := uint64(0); frame < frameCount; frame++ {
		base := frame * 6
		copy(scratch[:], t.Samples[base:base+6])
		for target, source := range mapping {
			t.Samples[base+uint64(target)] = scratch[source]
		}

		if frame%audio.FrameCheckCadence == 0 {
			if audio.CheckCanceled(canceler) {
				return fmt.Errorf("layout: %w", audio.ErrCanceled)
			}
			audio.ReportProgress(progress, float32(frame)/float32(frameCount))
		}
	}

	t.Channels = []audio.Channel{
		{InputOrder: 0, Placement: audio.FrontLeft},
		{InputOrder: 1, Placement: audio.FrontCenter},
		{InputOrder: 2, Placement: audio.FrontRight},
		{InputOrder: 3, Placement: audio.BackLeft},
		{InputOrder: 4, Placement: audio.BackRight},
		{InputOrder: 5, Placement: audio.LowFrequencyEffects},
	}
	audio.ReportProgress(progress, 1)
	return nil
}
