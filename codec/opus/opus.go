// SPDX-License-Identifier: EPL-2.0

// Package opus is the CORE's concrete audio.OpusEncoder/audio.OpusDecoder,
// built on github.com/thesyncim/gopus. gopus hands back one Opus packet per
// fixed-size frame (Encoder.EncodeFloat32/Decoder.Decode); the CORE's
// bridge package pushes and pulls arbitrary-length interleaved runs
// (EncodeFloat/Flush, DecodeToFloat). This package buffers across that
// mismatch and frames each gopus packet with a big-endian uint16 length
// prefix so the byte stream Flush returns can be split back into packets
// on the decode side without an out-of-band index.
package opus

import (
	"encoding/binary"
	"fmt"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
	"github.com/thesyncim/gopus"
)

// frameSize is the frame length in samples per channel gopus uses at its
// default 20ms/48kHz framing (both Encoder and MultistreamEncoder default
// to this; SetFrameSize is never called, so it never changes).
const frameSize = 960

// lengthPrefixSize is the width of the framing header prepended to every
// packet in the byte stream this package produces and consumes.
const lengthPrefixSize = 2

// packetEncoder is the subset of gopus.Encoder and gopus.MultistreamEncoder
// this package drives; both types implement it with identical signatures.
type packetEncoder interface {
	EncodeFloat32(pcm []float32) ([]byte, error)
	SetBitrate(bitrate int) error
	SetComplexity(complexity int) error
}

// packetDecoder is the subset of gopus.Decoder and gopus.MultistreamDecoder
// this package drives; both types implement it with identical signatures.
type packetDecoder interface {
	Decode(data []byte, pcm []float32) (int, error)
}

// NewEncoder builds an audio.OpusEncoder for layout, matching
// transcode.EncoderFactory's signature. channelCount 1-2 uses gopus's
// mapping-family-0 Encoder; 3-8 (5.1/7.1 Vorbis order) uses its
// mapping-family-1 MultistreamEncoder via NewMultistreamEncoderDefault,
// which knows the standard stream/coupled-stream split for each count.
func NewEncoder(layout audio.Layout, channelCount, sampleRate int, bitrateKbps float64, effort float32) (audio.OpusEncoder, error) {
	complexity := int(effort*10 + 0.5)
	if complexity < 0 {
		complexity = 0
	}
	if complexity > 10 {
		complexity = 10
	}

	var enc packetEncoder
	var err error
	if channelCount <= 2 {
		enc, err = gopus.NewEncoder(sampleRate, channelCount, gopus.ApplicationAudio)
	} else {
		enc, err = gopus.NewMultistreamEncoderDefault(sampleRate, channelCount, gopus.ApplicationAudio)
	}
	if err != nil {
		return nil, audio.NewError(audio.KindEncodeFailed, fmt.Errorf("opus: constructing encoder: %w", err))
	}

	if bitrateKbps > 0 {
		if err := enc.SetBitrate(int(bitrateKbps * 1000)); err != nil {
			return nil, audio.NewError(audio.KindEncodeFailed, fmt.Errorf("opus: setting bitrate: %w", err))
		}
	}
	if err := enc.SetComplexity(complexity); err != nil {
		return nil, audio.NewError(audio.KindEncodeFailed, fmt.Errorf("opus: setting complexity: %w", err))
	}

	return &Encoder{underlying: enc, channelCount: channelCount}, nil
}

// NewDecoder builds an audio.OpusDecoder over encoded, matching
// transcode.DecoderFactory's signature.
func NewDecoder(layout audio.Layout, channelCount, sampleRate int, encoded []byte) (audio.OpusDecoder, error) {
	var dec packetDecoder
	var err error
	if channelCount <= 2 {
		dec, err = gopus.NewDecoder(sampleRate, channelCount)
	} else {
		dec, err = gopus.NewMultistreamDecoderDefault(sampleRate, channelCount)
	}
	if err != nil {
		return nil, audio.NewError(audio.KindDecodeFailed, fmt.Errorf("opus: constructing decoder: %w", err))
	}

	return &Decoder{underlying: dec, channelCount: channelCount, encoded: encoded}, nil
}

// Encoder implements audio.OpusEncoder, buffering interleaved samples
// across EncodeFloat calls into whole gopus frames.
type Encoder struct {
	underlying   packetEncoder
	channelCount int

	pending []float32
	packets []byte
}

// EncodeFloat appends pcm to the pending run and encodes every whole frame
// it now contains, framing each resulting packet into the internal byte
// stream.
func (e *Encoder) EncodeFloat(pcm []float32) error {
	e.pending = append(e.pending, pcm...)

	step := frameSize * e.channelCount
	for len(e.pending) >= step {
		if err := e.encodeFrame(e.pending[:step]); err != nil {
			return err
		}
		e.pending = e.pending[step:]
	}
	return nil
}

// Flush zero-pads any partial trailing frame, encodes it, and returns the
// complete framed packet stream.
func (e *Encoder) Flush() ([]byte, error) {
	if len(e.pending) > 0 {
		step := frameSize * e.channelCount
		padded := make([]float32, step)
		copy(padded, e.pending)
		if err := e.encodeFrame(padded); err != nil {
			return nil, err
		}
		e.pending = nil
	}
	return e.packets, nil
}

func (e *Encoder) encodeFrame(frame []float32) error {
	packet, err := e.underlying.EncodeFloat32(frame)
	if err != nil {
		return audio.NewError(audio.KindEncodeFailed, fmt.Errorf("opus: encoding frame: %w", err))
	}
	if len(packet) > 0xFFFF {
		return audio.NewError(audio.KindEncodeFailed, fmt.Errorf("opus: packet of %d bytes exceeds framing limit", len(packet)))
	}

	var header [lengthPrefixSize]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(packet)))
	e.packets = append(e.packets, header[:]...)
	e.packets = append(e.packets, packet...)
	return nil
}

// Decoder implements audio.OpusDecoder, parsing the framed packet stream a
// matching Encoder produced and decoding one gopus frame at a time.
type Decoder struct {
	underlying   packetDecoder
	channelCount int

	encoded []byte
	pos     int

	decoded    []float32
	decodedPos int
}

// DecodeToFloat fills dest with decoded samples, pulling and decoding
// additional packets from the framed stream as needed. It returns 0 once
// the stream is exhausted, matching audio.OpusDecoder's end-of-stream
// contract used by the iterative declip loop's decodeAll helper.
func (d *Decoder) DecodeToFloat(dest []float32) (int, error) {
	filled := 0
	for filled < len(dest) {
		if d.decodedPos >= len(d.decoded) {
			ok, err := d.decodeNextPacket()
			if err != nil {
				return filled, err
			}
			if !ok {
				break
			}
		}
		n := copy(dest[filled:], d.decoded[d.decodedPos:])
		filled += n
		d.decodedPos += n
	}
	return filled, nil
}

func (d *Decoder) decodeNextPacket() (bool, error) {
	if d.pos+lengthPrefixSize > len(d.encoded) {
		return false, nil
	}
	packetLen := int(binary.BigEndian.Uint16(d.encoded[d.pos : d.pos+lengthPrefixSize]))
	d.pos += lengthPrefixSize
	if d.pos+packetLen > len(d.encoded) {
		return false, audio.NewError(audio.KindDecodeFailed, fmt.Errorf("opus: truncated packet framing"))
	}
	packet := d.encoded[d.pos : d.pos+packetLen]
	d.pos += packetLen

	buf := make([]float32, frameSize*d.channelCount)
	samplesPerChannel, err := d.underlying.Decode(packet, buf)
	if err != nil {
		return false, audio.NewError(audio.KindDecodeFailed, fmt.Errorf("opus: decoding frame: %w", err))
	}

	d.decoded = buf[:samplesPerChannel*d.channelCount]
	d.decodedPos = 0
	return true, nil
}
