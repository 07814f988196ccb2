// SPDX-License-Identifier: EPL-2.0

package layout

import (
	"fmt"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
)

// Transform converts t's channel layout to target's Vorbis order, picking
// whichever of UpmixMonoToStereo / DownmixSurroundToStereo /
// DownmixSevenOneToFiveOne / ReweaveToVorbis applies, or skipping entirely
// (the "no-op" fast path) when t's channels already match target's Vorbis
// order.
func Transform(t *audio.Track, target audio.Layout, nightmodeLevel float32, canceler audio.Canceler, progress audio.ProgressFunc) error {
	if placementsEqual(t.Placements(), audio.VorbisOrder(target)) {
		audio.ReportProgress(progress, 1)
		return nil
	}

	switch target {
	case audio.LayoutStereo:
		switch t.ChannelCount() {
		case 1:
			return UpmixMonoToStereo(t, canceler, progress)
		case 6, 8:
			return DownmixSurroundToStereo(t, nightmodeLevel, canceler, progress)
		default:
			return fmt.Errorf(
				"layout: %w: cannot transform %d channels to stereo",
				audio.ErrUnsupportedLayout, t.ChannelCount(),
			)
		}
	case audio.LayoutFiveDotOne:
		switch t.ChannelCount() {
		case 6:
			return ReweaveToVorbis(t, canceler, progress)
		case 8:
			return DownmixSevenOneToFiveOne(t, canceler, progress)
		default:
			return fmt.Errorf(
				"layout: %w: cannot transform %d channels to 5.1",
				audio.ErrUnsupportedLayout, t.ChannelCount(),
			)
		}
	default:
		return fmt.Errorf("layout: %w: output layout must be stereo or 5.1", audio.ErrUnsupportedLayout)
	}
}

func placementsEqual(a, b []audio.Placement) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
