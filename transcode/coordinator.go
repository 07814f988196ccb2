// SPDX-License-Identifier: EPL-2.0

package transcode

import (
	"fmt"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
	"github.com/nuclex-video-tools/opustranscoder-core/audio/clip"
	"github.com/nuclex-video-tools/opustranscoder-core/audio/layout"
	"github.com/nuclex-video-tools/opustranscoder-core/audio/normalize"
	"github.com/nuclex-video-tools/opustranscoder-core/audio/tuck"
	"github.com/nuclex-video-tools/opustranscoder-core/bridge"
)

// Coordinator runs the Idle -> OpenInput -> Decode -> Normalize? ->
// Transform -> Declip? -> Encode -> IterativeDeclipLoop? -> Write -> Idle
// state machine of §4.7, exposing its progress through a Status. It owns
// exactly one Track (plus, transiently during each iterative-loop round, a
// decoded Track and a scratch copy) and is not safe for concurrent
// Transcode calls.
type Coordinator struct {
	Status *Status

	EncoderFactory EncoderFactory
	DecoderFactory DecoderFactory

	track       *audio.Track
	lastEncoded []byte
}

// NewCoordinator returns a Coordinator with a fresh, running Status.
func NewCoordinator(encoderFactory EncoderFactory, decoderFactory DecoderFactory) *Coordinator {
	return &Coordinator{
		Status:         NewStatus(),
		EncoderFactory: encoderFactory,
		DecoderFactory: decoderFactory,
	}
}

// Transcode runs the full pipeline against input, writing the finished
// Opus blob to output. It returns the same error it leaves recorded in
// Status after setting outcome to Failure or Canceled; on success it
// returns nil and Status.Snapshot().Outcome is OutcomeSuccess.
func (c *Coordinator) Transcode(cfg Config, input audio.InputDecoder, output audio.OutputSink, canceler audio.Canceler) error {
	step := 0
	nextStep := func(message string) {
		step++
		c.Status.beginStep(fmt.Sprintf("Step %d: %s", step, message))
	}

	nextStep("Opening input")
	if err := c.openInput(input); err != nil {
		return c.fail(err)
	}

	nextStep("Decoding")
	track, err := c.decode(input, canceler)
	if err != nil {
		return c.fail(err)
	}
	c.track = track

	if cfg.Normalize {
		nextStep("Normalizing")
		if err := c.normalizeStep(cfg, canceler); err != nil {
			return c.fail(err)
		}
	}

	nextStep("Transforming channel layout")
	if err := c.transformStep(cfg, canceler); err != nil {
		return c.fail(err)
	}

	issueCount := 0
	if cfg.Declip {
		issueCount, err = c.declipStep(canceler)
		if err != nil {
			return c.fail(err)
		}
	}

	nextStep("Encoding")
	file, err := c.encodeStep(cfg, canceler)
	if err != nil {
		return c.fail(err)
	}
	c.lastEncoded = encodedBytesOf(file)

	if cfg.Declip && cfg.IterativeDeclip {
		file, err = c.iterativeDeclipLoop(cfg, canceler, issueCount, file)
		if err != nil {
			return c.fail(err)
		}
	}

	nextStep("Writing output")
	if err := c.write(file, output); err != nil {
		return c.fail(err)
	}

	c.Status.finish(OutcomeSuccess, "Transcoding complete", "")
	return nil
}

func (c *Coordinator) fail(err error) error {
	if audio.KindOf(err) == audio.KindCanceled {
		c.Status.finish(OutcomeCanceled, "Transcoding canceled", err.Error())
		return err
	}
	c.Status.finish(OutcomeFailure, fmt.Sprintf("Transcoding failed: %s", err.Error()), err.Error())
	return err
}

// openInput validates that input exposes a usable channel geometry before
// any allocation happens.
func (c *Coordinator) openInput(input audio.InputDecoder) error {
	if input.ChannelCount() == 0 {
		return audio.NewError(audio.KindUnsupportedFormat, fmt.Errorf("transcode: input exposes zero channels"))
	}
	return nil
}

func (c *Coordinator) decode(input audio.InputDecoder, canceler audio.Canceler) (*audio.Track, error) {
	return bridge.DecodeTrack(input, canceler, func(p float32) { c.Status.setProgress(p) })
}

func (c *Coordinator) normalizeStep(cfg Config, canceler audio.Canceler) error {
	err := normalize.Normalize(c.track, cfg.AllowVolumeDecrease, canceler, func(p float32) { c.Status.setProgress(p) })
	if err != nil {
		return audio.NewError(audio.KindOf(err), err)
	}
	return nil
}

func (c *Coordinator) transformStep(cfg Config, canceler audio.Canceler) error {
	err := layout.Transform(c.track, cfg.OutputLayout, cfg.NightmodeLevel, canceler, func(p float32) { c.Status.setProgress(p) })
	if err != nil {
		return audio.NewError(audio.KindOf(err), err)
	}
	return nil
}

// declipStep detects and tucks clipping half-waves in the source Track,
// returning the number of clipping half-waves detected (counted before the
// tuck) — used only to annotate the step messages with an issue count.
func (c *Coordinator) declipStep(canceler audio.Canceler) (int, error) {
	c.Status.beginStep("Step: Detecting clipping")
	if err := clip.Detect(c.track, canceler, func(p float32) { c.Status.setProgress(p) }); err != nil {
		return 0, audio.NewError(audio.KindOf(err), err)
	}

	issueCount := countHalfwaves(c.track)
	c.Status.beginStep(fmt.Sprintf("Step: Tucking in clipping segments (%d issues)", issueCount))
	if err := tuck.TuckClippingHalfwaves(c.track, canceler, func(p float32) { c.Status.setProgress(p) }); err != nil {
		return 0, audio.NewError(audio.KindOf(err), err)
	}

	return issueCount, nil
}

func countHalfwaves(t *audio.Track) int {
	count := 0
	for _, ch := range t.Channels {
		count += len(ch.ClippingHalfwaves)
	}
	return count
}

func (c *Coordinator) encodeStep(cfg Config, canceler audio.Canceler) (*bridge.MemoryFile, error) {
	enc, err := c.EncoderFactory(cfg.OutputLayout, c.track.ChannelCount(), c.track.SampleRate, cfg.TargetBitrateKbps, cfg.Effort)
	if err != nil {
		return nil, audio.NewError(audio.KindEncodeFailed, err)
	}
	return bridge.EncodeTrack(c.track, enc, canceler, func(p float32) { c.Status.setProgress(p) })
}

func (c *Coordinator) write(file *bridge.MemoryFile, output audio.OutputSink) error {
	if err := bridge.WriteTo(file, output); err != nil {
		return audio.NewError(audio.KindIoFailed, err)
	}
	return nil
}

// iterativeDeclipLoop repeatedly decodes the just-encoded Opus blob,
// re-detects clipping introduced by lossy coding, integrates it into the
// source Track's half-wave lists, and re-encodes a fresh declipped copy
// (never the source buffer itself — see §4.7's scratch-copy rationale) until
// Update reports no remaining issues or IterationCap rounds have run.
func (c *Coordinator) iterativeDeclipLoop(cfg Config, canceler audio.Canceler, issueCount int, file *bridge.MemoryFile) (*bridge.MemoryFile, error) {
	for iteration := 0; iteration < IterationCap; iteration++ {
		c.Status.beginStep(fmt.Sprintf("Step: Verifying declip (iteration %d, %d issues)", iteration+1, issueCount))

		dec, err := c.DecoderFactory(cfg.OutputLayout, c.track.ChannelCount(), c.track.SampleRate, c.lastEncoded)
		if err != nil {
			return nil, audio.NewError(audio.KindDecodeFailed, err)
		}

		decodedSamples, err := decodeAll(dec, len(c.track.Samples))
		if err != nil {
			return nil, audio.NewError(audio.KindDecodeFailed, err)
		}

		decoded := &audio.Track{Samples: decodedSamples, SampleRate: c.track.SampleRate, Channels: cloneChannels(c.track.Channels)}
		if err := clip.Detect(decoded, canceler, nil); err != nil {
			return nil, audio.NewError(audio.KindOf(err), err)
		}
		if err := clip.Integrate(c.track, decoded); err != nil {
			return nil, audio.NewError(audio.KindOf(err), err)
		}

		remaining, err := clip.Update(c.track, decodedSamples, canceler, nil)
		if err != nil {
			return nil, audio.NewError(audio.KindOf(err), err)
		}
		issueCount = remaining

		if remaining == 0 {
			return file, nil
		}

		scratch := &audio.Track{
			Samples:    append([]float32(nil), c.track.Samples...),
			SampleRate: c.track.SampleRate,
			Channels:   cloneChannels(c.track.Channels),
		}
		if err := tuck.TuckClippingHalfwaves(scratch, canceler, nil); err != nil {
			return nil, audio.NewError(audio.KindOf(err), err)
		}

		enc, err := c.EncoderFactory(cfg.OutputLayout, scratch.ChannelCount(), scratch.SampleRate, cfg.TargetBitrateKbps, cfg.Effort)
		if err != nil {
			return nil, audio.NewError(audio.KindEncodeFailed, err)
		}
		file, err = bridge.EncodeTrack(scratch, enc, canceler, nil)
		if err != nil {
			return nil, err
		}
		c.lastEncoded = encodedBytesOf(file)
	}

	return file, nil
}

func cloneChannels(src []audio.Channel) []audio.Channel {
	dst := make([]audio.Channel, len(src))
	copy(dst, src)
	for i := range dst {
		dst[i].ClippingHalfwaves = nil
	}
	return dst
}

// decodeAll pulls exactly wantSamples float32 values out of dec by
// repeatedly calling DecodeToFloat until either the buffer is full or the
// decoder reports it has nothing more to give (n == 0).
func decodeAll(dec audio.OpusDecoder, wantSamples int) ([]float32, error) {
	dest := make([]float32, wantSamples)
	filled := 0
	for filled < wantSamples {
		n, err := dec.DecodeToFloat(dest[filled:])
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		filled += n
	}
	return dest, nil
}

func encodedBytesOf(file *bridge.MemoryFile) []byte {
	buf := make([]byte, file.Size())
	_, _ = file.ReadAt(0, buf)
	return buf
}
