// SPDX-License-Identifier: EPL-2.0

// Package normalize scales a Track's channels so their peak amplitude sits
// at -0.001 dBFS, the way §4.2 specifies: low-frequency-effects channels are
// normalized independently from every other channel so a loud dialog track
// never steals the bass channel's headroom.
package normalize

import (
	"fmt"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
)

// Normalize scans t once for the peak amplitude of the LFE group and the
// peak amplitude of every other channel, then scales each group toward
// audio.MinusOneThousandthDecibel. When allowVolumeDecrease is false, a
// group whose peak is already >= 1 is left untouched instead of being
// scaled down.
//
// Progress is reported as [0, 0.5] during the scan pass and [0.5, 1] during
// the scale pass; cancellation is polled every audio.FrameCheckCadence
// frames in both passes.
func Normalize(t *audio.Track, allowVolumeDecrease bool, canceler audio.Canceler, progress audio.ProgressFunc) error {
	channelCount := t.ChannelCount()
	frameCount := t.FrameCount()
	if channelCount == 0 || frameCount == 0 {
		return nil
	}

	var maxBass, maxOther float32
	for frame := uint64(0); frame < frameCount; frame++ {
		if frame%audio.FrameCheckCadence == 0 {
			if audio.CheckCanceled(canceler) {
				return fmt.Errorf("normalize: %w", audio.ErrCanceled)
			}
			audio.ReportProgress(progress, 0.5*float32(frame)/float32(frameCount))
		}

		for c := 0; c < channelCount; c++ {
			s := t.Samples[frame*uint64(channelCount)+uint64(c)]
			if s < 0 {
				s = -s
			}
			if t.Channels[c].Placement == audio.LowFrequencyEffects {
				if s > maxBass {
					maxBass = s
				}
			} else if s > maxOther {
				maxOther = s
			}
		}
	}
	audio.ReportProgress(progress, 0.5)

	bassScale := scaleFor(maxBass, allowVolumeDecrease)
	otherScale := scaleFor(maxOther, allowVolumeDecrease)

	for frame := uint64(0); frame < frameCount; frame++ {
		if frame%audio.FrameCheckCadence == 0 {
			if audio.CheckCanceled(canceler) {
				return fmt.Errorf("normalize: %w", audio.ErrCanceled)
			}
			audio.ReportProgress(progress, 0.5+0.5*float32(frame)/float32(frameCount))
		}

		for c := 0; c < channelCount; c++ {
			scale := otherScale
			if t.Channels[c].Placement == audio.LowFrequencyEffects {
				scale = bassScale
			}
			if scale == 1 {
				continue
			}
			idx := frame*uint64(channelCount) + uint64(c)
			t.Samples[idx] *= scale
		}
	}
	audio.ReportProgress(progress, 1)

	return nil
}

// scaleFor computes the per-group multiplier: peak is driven toward
// audio.MinusOneThousandthDecibel, except a peak already >= 1 is left alone
// unless allowVolumeDecrease permits scaling it down.
func scaleFor(peak float32, allowVolumeDecrease bool) float32 {
	if peak == 0 {
		return 1
	}
	if peak >= 1 && !allowVolumeDecrease {
		return 1
	}
	return audio.MinusOneThousandthDecibel / peak
}
