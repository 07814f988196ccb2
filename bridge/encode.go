// SPDX-License-Identifier: EPL-2.0

package bridge

import (
	"fmt"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
)

// EncodeChunkFrames is the fixed chunk size §4.6 feeds to the external
// Opus encoder, in frames.
const EncodeChunkFrames = 12000

// EncodeTrack feeds t's interleaved samples to enc in EncodeChunkFrames
// chunks, checking cancellation and reporting progress after each one, then
// flushes enc and returns the encoded bytes as an in-memory VirtualFile. t's
// channel order must already be the Vorbis order for its layout — EncodeTrack
// does not reorder or validate placements, that is layout.Transform's job.
func EncodeTrack(t *audio.Track, enc audio.OpusEncoder, canceler audio.Canceler, progress audio.ProgressFunc) (*MemoryFile, error) {
	channelCount := t.ChannelCount()
	frameCount := t.FrameCount()

	for start := uint64(0); start < frameCount; start += EncodeChunkFrames {
		n := uint64(EncodeChunkFrames)
		if remaining := frameCount - start; n > remaining {
			n = remaining
		}

		chunk := t.Samples[start*uint64(channelCount) : (start+n)*uint64(channelCount)]
		if err := enc.EncodeFloat(chunk); err != nil {
			return nil, audio.NewError(audio.KindEncodeFailed, err)
		}

		if audio.CheckCanceled(canceler) {
			return nil, audio.NewError(audio.KindCanceled, audio.ErrCanceled)
		}
		audio.ReportProgress(progress, float32(start+n)/float32(frameCount))
	}

	if frameCount == 0 {
		audio.ReportProgress(progress, 1)
	}

	encoded, err := enc.Flush()
	if err != nil {
		return nil, audio.NewError(audio.KindEncodeFailed, err)
	}

	file := NewMemoryFile()
	if _, err := file.WriteAt(0, encoded); err != nil {
		return nil, audio.NewError(audio.KindIoFailed, fmt.Errorf("bridge: %w", err))
	}
	return file, nil
}
