// SPDX-License-Identifier: EPL-2.0

package bridge

import (
	"io"
	"os"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
)

// LoadSource drains a formats/* audio.Source completely into memory and
// returns it as an audio.InputDecoder, the way examples/resampler/main.go
// drains a Source into a flat pcm16 slice with a ReadSamples loop — except
// here the drain target is the CORE's random-access InputDecoder contract
// instead of a WAV writer. formats/* decoders are forward-only (a
// compressed stream, not a seekable sample buffer), so buffering the whole
// thing is the only way to give the rest of the pipeline FrameCount() and
// bounded random-access reads.
func LoadSource(src audio.Source) (audio.InputDecoder, error) {
	channelCount := src.Channels()
	if channelCount == 0 {
		return nil, audio.NewError(audio.KindUnsupportedFormat, audio.ErrUnsupportedFormat)
	}

	bufSize := src.BufSize()
	if bufSize <= 0 {
		bufSize = 4096
	}
	buf := make([]float32, bufSize)

	var samples []float32
	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			samples = append(samples, buf[:n]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, audio.NewError(audio.KindDecodeFailed, err)
		}
	}

	order := src.ChannelOrder()
	if len(order) != channelCount {
		order = audio.StandardChannelOrder(channelCount)
		if order == nil {
			return nil, audio.NewError(audio.KindUnsupportedFormat, audio.ErrUnsupportedFormat)
		}
	}

	return &bufferedInput{
		channelCount: channelCount,
		sampleRate:   src.SampleRate(),
		order:        order,
		samples:      samples,
		frameCount:   uint64(len(samples)) / uint64(channelCount),
	}, nil
}

// bufferedInput is the in-memory audio.InputDecoder LoadSource hands the
// rest of the pipeline.
type bufferedInput struct {
	channelCount int
	sampleRate   int
	order        []audio.Placement
	samples      []float32
	frameCount   uint64
}

func (b *bufferedInput) ChannelCount() int               { return b.channelCount }
func (b *bufferedInput) FrameCount() uint64              { return b.frameCount }
func (b *bufferedInput) SampleRate() int                 { return b.sampleRate }
func (b *bufferedInput) ChannelOrder() []audio.Placement { return b.order }

func (b *bufferedInput) DecodeInterleavedFloat(dest []float32, startFrame, frameCount uint64) error {
	base := startFrame * uint64(b.channelCount)
	need := frameCount * uint64(b.channelCount)
	if base+need > uint64(len(b.samples)) {
		return audio.NewError(audio.KindInvalidState, audio.ErrInvalidState)
	}
	copy(dest, b.samples[base:base+need])
	return nil
}

// FileSink adapts an *os.File to audio.OutputSink, the destination
// bridge.WriteTo drains the finished Opus blob into.
type FileSink struct {
	file *os.File
}

// NewFileSink wraps file, grounded on examples/resampler/main.go's
// os.Create/os.Open usage for the CLI's input and output files.
func NewFileSink(file *os.File) *FileSink {
	return &FileSink{file: file}
}

func (s *FileSink) WriteAt(offset int64, p []byte) error {
	n, err := s.file.WriteAt(p, offset)
	if err != nil {
		return audio.NewError(audio.KindIoFailed, err)
	}
	if n != len(p) {
		return audio.NewError(audio.KindIoFailed, io.ErrShortWrite)
	}
	return nil
}
