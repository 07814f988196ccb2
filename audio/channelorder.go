// SPDX-License-Identifier: EPL-2.0

package audio

// StandardChannelOrder returns the conventional (Microsoft/WAVE-style)
// interleave order for a given channel count. Container formats that don't
// carry an explicit channel mask (the canonical 44-byte WAV header, AIFF,
// MP3, Ogg Vorbis as decoded here) are assumed to use this order; the layout
// transformer's Reweave step is what converts it to Vorbis order.
//
// This is deliberately distinct from VorbisOrder: WAVE's 5.1/7.1 convention
// places LFE before the rear channels, Vorbis places it last.
func StandardChannelOrder(channels int) []Placement {
	switch channels {
	case 1:
		return []Placement{FrontCenter}
	case 2:
		return []Placement{FrontLeft, FrontRight}
	case 6:
		return []Placement{
			FrontLeft, FrontRight, FrontCenter, LowFrequencyEffects, BackLeft, BackRight,
		}
	case 8:
		return []Placement{
			FrontLeft, FrontRight, FrontCenter, LowFrequencyEffects,
			BackLeft, BackRight, SideLeft, SideRight,
		}
	default:
		return nil
	}
}
