// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"fmt"
	"io"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
	"github.com/nuclex-video-tools/opustranscoder-core/internal/audiotest"
)

// mockDecoder is a simple decoder for testing the registry.
type mockDecoder struct{}

func (m mockDecoder) Decode(r io.Reader) (audio.Source, error) {
	return audiotest.NewSineSource(16000, 1, 1000, 440.0), nil
}

// Example_registry demonstrates the format registry.
func Example_registry() {
	registry := audio.NewRegistry()
	registry.Register("mock", mockDecoder{})

	decoder, ok := registry.Get("mock")
	if !ok {
		fmt.Println("Decoder not found")
		return
	}
	fmt.Printf("Retrieved decoder: %T\n", decoder)

	_, ok = registry.Get("unknown")
	if !ok {
		fmt.Println("Unknown format not found in registry")
	}
	// Output:
	// Retrieved decoder: audio_test.mockDecoder
	// Unknown format not found in registry
}

// Example_sampleFormat explains the sample format used.
func Example_sampleFormat() {
	samples := []float32{0.0, 0.5, -0.5, 1.0, -1.0}

	fmt.Println("Sample format: float32 in range [-1.0, 1.0]")
	fmt.Println("Sample values:")
	for i, s := range samples {
		var description string
		switch {
		case s == 0:
			description = "silence"
		case s > 0 && s < 1:
			description = "positive amplitude"
		case s < 0 && s > -1:
			description = "negative amplitude"
		case s == 1:
			description = "maximum positive"
		case s == -1:
			description = "maximum negative"
		}
		fmt.Printf("  samples[%d] = %+.1f (%s)\n", i, s, description)
	}
	// Output:
	// Sample format: float32 in range [-1.0, 1.0]
	// Sample values:
	//   samples[0] = +0.0 (silence)
	//   samples[1] = +0.5 (positive amplitude)
	//   samples[2] = -0.5 (negative amplitude)
	//   samples[3] = +1.0 (maximum positive)
	//   samples[4] = -1.0 (maximum negative)
}

// Example_track builds a Track directly, the shape audio/clip and
// audio/tuck operate on.
func Example_track() {
	track, err := audio.NewTrack(48000, audio.StandardChannelOrder(2), 4)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Printf("Sample rate: %d Hz\n", track.SampleRate)
	fmt.Printf("Channels: %d\n", track.ChannelCount())
	fmt.Printf("Frames: %d\n", track.FrameCount())
	fmt.Printf("Interleaved sample buffer length: %d\n", len(track.Samples))
	// Output:
	// Sample rate: 48000 Hz
	// Channels: 2
	// Frames: 4
	// Interleaved sample buffer length: 8
}

// Example_errorHandling shows proper error handling reading from a Source.
func Example_errorHandling() {
	source := audiotest.NewSineSource(16000, 1, 1000, 440.0) // Short audio

	buf := make([]float32, 4096)
	totalSamples := 0

	for {
		n, err := source.ReadSamples(buf)

		if n > 0 {
			totalSamples += n
		}

		if err == io.EOF {
			fmt.Println("Reached end of audio stream")
			break
		}
		if err != nil {
			fmt.Printf("Error reading samples: %v\n", err)
			break
		}
	}

	fmt.Printf("Successfully processed %d samples\n", totalSamples)
	// Output:
	// Reached end of audio stream
	// Successfully processed 1000 samples
}
