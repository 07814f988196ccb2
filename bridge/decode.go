// SPDX-License-Identifier: EPL-2.0

// Package bridge adapts the pull-based audio.InputDecoder/audio.OutputSink
// external contracts into Track-shaped reads and writes, grounded on
// ik5-audpbx/audio.Source's streaming-loop shape (do_resample.go) but driven
// by bounded chunk sizes instead of an io.Reader-style pull.
package bridge

import (
	"fmt"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
)

// DecodeTrack pulls every frame out of dec into a freshly allocated Track.
// Chunk size is the largest power-of-two fraction of dec.FrameCount() that
// is <= 48000 frames, computed once up front so cancellation stays
// responsive to within about a second of audio regardless of file length.
func DecodeTrack(dec audio.InputDecoder, canceler audio.Canceler, progress audio.ProgressFunc) (*audio.Track, error) {
	channelCount := dec.ChannelCount()
	frameCount := dec.FrameCount()

	if channelCount == 0 {
		return nil, audio.NewError(audio.KindUnsupportedFormat,
			fmt.Errorf("bridge: decoder exposes zero channels"))
	}

	placements := dec.ChannelOrder()
	if len(placements) != channelCount {
		placements = audio.StandardChannelOrder(channelCount)
		if placements == nil {
			return nil, audio.NewError(audio.KindUnsupportedFormat,
				fmt.Errorf("bridge: decoder exposes no channel order for %d channels", channelCount))
		}
	}

	track, err := audio.NewTrack(dec.SampleRate(), placements, frameCount)
	if err != nil {
		return nil, audio.NewError(audio.KindAllocationFailed, err)
	}

	chunkSize := chunkFrames(frameCount)

	for start := uint64(0); start < frameCount; start += chunkSize {
		n := chunkSize
		if remaining := frameCount - start; n > remaining {
			n = remaining
		}

		dest := track.Samples[start*uint64(channelCount) : (start+n)*uint64(channelCount)]
		if err := dec.DecodeInterleavedFloat(dest, start, n); err != nil {
			return nil, audio.NewError(audio.KindDecodeFailed, err)
		}

		if audio.CheckCanceled(canceler) {
			return nil, audio.NewError(audio.KindCanceled, audio.ErrCanceled)
		}
		audio.ReportProgress(progress, float32(start+n)/float32(frameCount))
	}

	return track, nil
}

// chunkFrames returns the largest power-of-two fraction of frameCount that
// is no greater than 48000, or frameCount itself if it is already <= 48000
// (1 when frameCount is 0).
func chunkFrames(frameCount uint64) uint64 {
	if frameCount == 0 {
		return 1
	}
	if frameCount <= 48000 {
		return frameCount
	}

	chunk := frameCount
	for chunk > 48000 {
		chunk /= 2
	}
	if chunk == 0 {
		chunk = 1
	}
	return chunk
}
