// SPDX-License-Identifier: EPL-2.0

// Package audio holds the declipping transcoder's data model and shared
// external contracts.
//
// # Data model
//
// A Track owns one interleaved float32 sample buffer, a sample rate, and an
// ordered list of Channels; each Channel carries the ClippingHalfwaves the
// audio/clip and audio/tuck packages detect and repair:
//
//	track, err := audio.NewTrack(48000, audio.StandardChannelOrder(2), frameCount)
//
// Samples are float32 in [-1.0, 1.0] under normal conditions; values beyond
// that range mark clipping, which audio/clip.Detect finds and audio/tuck
// tucks back in.
//
// # External contracts
//
// InputDecoder, OutputSink, OpusEncoder and OpusDecoder are the interfaces
// the bridge and transcode packages depend on instead of any concrete
// codec or file format — formats/* and codec/opus supply the concrete
// implementations. Source and Decoder are the lower-level, streaming
// contract formats/* decoders implement directly; bridge.LoadSource adapts
// a Source into an InputDecoder by draining it into memory.
//
// # Sample format
//
// Audio samples are float32, nominally in [-1.0, 1.0]:
//   - 0.0 is silence
//   - 1.0 / -1.0 are the nominal peaks
//   - values outside that range are exactly the clipping audio/clip detects
//
// # Format registry
//
// Registry maps a format key (e.g. "wav", "mp3") to a Decoder:
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Decoder{})
//	decoder, ok := registry.Get("wav")
package audio
