// SPDX-License-Identifier: EPL-2.0

package transcode

import "github.com/nuclex-video-tools/opustranscoder-core/audio"

// IterationCap bounds the encode-decode-re-tuck loop: the iterative
// declipper gives up and writes whatever it has after this many rounds,
// the same cap Update applies per half-wave via IneffectiveIterationCount.
const IterationCap = 10

// Config is the single configuration structure §6 describes, constructed
// by the caller before Transcode — ik5-audpbx has no config-file loading
// layer either (its only "configuration" is constructor parameters), so
// this module matches that rather than pulling in a YAML/env parsing
// library for an eight-field struct.
type Config struct {
	// Declip enables half-wave tucking before encode.
	Declip bool
	// IterativeDeclip enables the encode -> decode -> re-tuck loop.
	// Ignored unless Declip is also true.
	IterativeDeclip bool
	// NightmodeLevel in [0,1] interpolates downmix coefficients when
	// OutputLayout is stereo.
	NightmodeLevel float32
	// OutputLayout is the target layout; only LayoutStereo and
	// LayoutFiveDotOne are supported.
	OutputLayout audio.Layout
	// TargetBitrateKbps is the target Opus bitrate, typically 64-992.
	TargetBitrateKbps float64
	// Normalize enables the pre-encode loudness normalization pass.
	Normalize bool
	// AllowVolumeDecrease, when Normalize is set, lets normalization
	// scale a channel down as well as up. [ADDED]: spec.md's §4.2
	// contract names this switch but §6's configuration table omits it;
	// DESIGN.md records the decision to surface it on Config rather than
	// hardcode a value, since normalize.Normalize requires one.
	AllowVolumeDecrease bool
	// Effort in [0,1] maps to encoder complexity (max 10 at 1.0).
	Effort float32
}

// EncoderFactory constructs the external Opus encoder for a finished,
// Vorbis-ordered Track. Mapping family (0 for stereo, 1 for 5.1) is the
// factory's concern; the coordinator only calls EncodeFloat/Flush on the
// result.
type EncoderFactory func(layout audio.Layout, channelCount int, sampleRate int, bitrateKbps float64, effort float32) (audio.OpusEncoder, error)

// DecoderFactory constructs the external Opus decoder used by the
// iterative declip loop to play back the just-encoded blob.
type DecoderFactory func(layout audio.Layout, channelCount int, sampleRate int, encoded []byte) (audio.OpusDecoder, error)
