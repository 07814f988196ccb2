// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// Track owns a sample buffer, a sample rate and an ordered sequence of
// channels. Samples are 32-bit float PCM, interleaved: the sample at
// (channel c, frame f) lives at Samples[f*len(Channels)+c].
type Track struct {
	Samples    []float32
	SampleRate int
	Channels   []Channel
}

// NewTrack allocates a Track with frameCount*len(placements) samples,
// zero-initialized, one Channel per placement in input order.
func NewTrack(sampleRate int, placements []Placement, frameCount uint64) (*Track, error) {
	channelCount := len(placements)
	total := frameCount * uint64(channelCount)
	// Guard against overflow/huge allocations the way the decoder bridge's
	// contract requires: fail with ErrAllocationFailed rather than panic.
	if channelCount == 0 || total/uint64(channelCount) != frameCount {
		return nil, fmt.Errorf("audio: %w", ErrAllocationFailed)
	}

	samples := make([]float32, total)
	channels := make([]Channel, channelCount)
	for i, p := range placements {
		channels[i] = Channel{InputOrder: i, Placement: p}
	}

	return &Track{Samples: samples, SampleRate: sampleRate, Channels: channels}, nil
}

// ChannelCount returns the number of interleaved channels in the track.
func (t *Track) ChannelCount() int { return len(t.Channels) }

// FrameCount returns the number of frames (samples per channel) in the track.
func (t *Track) FrameCount() uint64 {
	if len(t.Channels) == 0 {
		return 0
	}
	return uint64(len(t.Samples)) / uint64(len(t.Channels))
}

// SampleAt returns the sample for the given channel at the given frame.
func (t *Track) SampleAt(channel int, frame uint64) float32 {
	return t.Samples[frame*uint64(len(t.Channels))+uint64(channel)]
}

// SetSampleAt writes the sample for the given channel at the given frame.
func (t *Track) SetSampleAt(channel int, frame uint64, value float32) {
	t.Samples[frame*uint64(len(t.Channels))+uint64(channel)] = value
}

// Placements returns the current placement of each channel, in input order.
func (t *Track) Placements() []Placement {
	placements := make([]Placement, len(t.Channels))
	for i, c := range t.Channels {
		placements[i] = c.Placement
	}
	return placements
}

// VerifyInvariants checks the structural invariants §3 requires of a Track:
// the buffer length matches frameCount*channelCount, every channel's
// InputOrder matches its index, and no placement repeats.
func (t *Track) VerifyInvariants() error {
	channelCount := len(t.Channels)
	if channelCount == 0 {
		if len(t.Samples) != 0 {
			return fmt.Errorf("audio: %w: samples present with no channels", ErrInvalidState)
		}
		return nil
	}
	if len(t.Samples)%channelCount != 0 {
		return fmt.Errorf("audio: %w: sample buffer not a multiple of channel count", ErrInvalidState)
	}

	seen := make(map[Placement]bool, channelCount)
	for i, c := range t.Channels {
		if c.InputOrder != i {
			return fmt.Errorf("audio: %w: channel %d has input order %d", ErrInvalidState, i, c.InputOrder)
		}
		if c.Placement != PlacementInvalid {
			if seen[c.Placement] {
				return fmt.Errorf("audio: %w: placement %s appears twice", ErrInvalidState, c.Placement)
			}
			seen[c.Placement] = true
		}
	}
	return nil
}
