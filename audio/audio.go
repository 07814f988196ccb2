// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"sync"
)

// Source is a streaming producer of interleaved float32 PCM in [-1, 1].
// It is the contract every formats/* decoder implements; bridge.LoadSource
// adapts a Source into the spec's pull-based InputDecoder (below) by
// reading it sequentially into memory, and bridge.DecodeTrack then pulls
// that InputDecoder into a pre-allocated Track buffer.
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo, 6=5.1, 8=7.1).
	Channels() int
	// ChannelOrder lists each channel's spatial placement, in interleave
	// order. A nil or short slice means the source doesn't know its
	// placements; callers fall back to a default mapping for the channel
	// count.
	ChannelOrder() []Placement
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0
	// with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources.
	Close() error
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry for decoders by format key (e.g., "wav", "mp3", "ogg vorbis").
type Registry struct {
	codecs map[string]Decoder

	mtx *sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		mtx:    &sync.Mutex{},
	}
}

func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[format] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[format]
	return d, ok
}

// InputDecoder is the §6 pull-based external decoder contract: the core
// only ever asks for channel geometry and a bounded, random-access decode
// into a destination slice. bridge.DecodeTrack is the only CORE component
// that calls it directly.
type InputDecoder interface {
	ChannelCount() int
	FrameCount() uint64
	SampleRate() int
	ChannelOrder() []Placement
	// DecodeInterleavedFloat decodes frameCount frames starting at
	// startFrame into dest, interleaved in ChannelCount() order. dest must
	// be at least frameCount*ChannelCount() long.
	DecodeInterleavedFloat(dest []float32, startFrame, frameCount uint64) error
}

// OutputSink is the §6 external output contract: a seekable destination the
// core writes the finished Opus blob into, in increasing-offset windows.
type OutputSink interface {
	WriteAt(offset int64, p []byte) error
}

// VirtualFile is the in-memory "virtual file" the encoder bridge assembles
// before handing it to an OutputSink: size() plus random-access read/write.
type VirtualFile interface {
	Size() int64
	ReadAt(offset int64, buf []byte) (int, error)
	WriteAt(offset int64, buf []byte) (int, error)
}

// OpusEncoder is the external Opus encoder collaborator: it consumes
// interleaved float PCM and emits a byte stream. Mapping family 0 (stereo)
// vs 1 (5.1/7.1 Vorbis order) is the encoder implementation's concern, not
// the bridge's — the bridge only ever calls EncodeFloat/Flush.
type OpusEncoder interface {
	EncodeFloat(pcm []float32) error
	Flush() ([]byte, error)
}

// OpusDecoder is the external Opus decoder collaborator used by the
// iterative de-clipper to play the just-encoded stream back.
type OpusDecoder interface {
	DecodeToFloat(dest []float32) (int, error)
}
