// Command opustranscode runs the CORE's full transcode pipeline over a
// single input file: decode, optional normalize, layout transform, optional
// declip (with an optional iterative encode-decode-re-tuck pass), Opus
// encode, write. Flag handling follows thesyncim/gopus's own examples
// (examples/roundtrip/main.go), extended with file I/O the way
// examples/resampler/main.go opens and registers formats/*.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/nuclex-video-tools/opustranscoder-core/audio"
	"github.com/nuclex-video-tools/opustranscoder-core/bridge"
	"github.com/nuclex-video-tools/opustranscoder-core/codec/opus"
	"github.com/nuclex-video-tools/opustranscoder-core/formats/aiff"
	"github.com/nuclex-video-tools/opustranscoder-core/formats/mp3"
	"github.com/nuclex-video-tools/opustranscoder-core/formats/vorbis"
	"github.com/nuclex-video-tools/opustranscoder-core/formats/wav"
	"github.com/nuclex-video-tools/opustranscoder-core/transcode"
)

func main() {
	inPath := flag.String("in", "", "input audio file (wav, mp3, ogg, aiff)")
	outPath := flag.String("out", "", "output Opus file")
	layoutName := flag.String("layout", "stereo", "output channel layout: stereo or 5.1")
	bitrateKbps := flag.Float64("bitrate", 128, "target Opus bitrate in kbps")
	effort := flag.Float64("effort", 0.5, "encoder effort in [0,1], maps to complexity 0-10")
	declip := flag.Bool("declip", false, "detect and tuck clipping half-waves before encode")
	iterative := flag.Bool("iterative-declip", false, "re-check for clipping introduced by lossy encoding and re-tuck (implies -declip)")
	normalize := flag.Bool("normalize", false, "apply loudness normalization before the layout transform")
	allowVolumeDecrease := flag.Bool("allow-volume-decrease", false, "let normalization scale a channel down as well as up")
	nightmode := flag.Float64("nightmode", 0, "nightmode downmix interpolation in [0,1], stereo output only")
	flag.Parse()

	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: opustranscode -in <input> -out <output.opus> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	layout, err := parseLayout(*layoutName)
	if err != nil {
		fmt.Fprintln(os.Stderr, "opustranscode:", err)
		os.Exit(2)
	}

	if err := run(runOptions{
		inPath:              *inPath,
		outPath:             *outPath,
		layout:              layout,
		bitrateKbps:         *bitrateKbps,
		effort:              float32(*effort),
		declip:              *declip || *iterative,
		iterativeDeclip:     *iterative,
		normalize:           *normalize,
		allowVolumeDecrease: *allowVolumeDecrease,
		nightmodeLevel:      float32(*nightmode),
	}); err != nil {
		fmt.Fprintln(os.Stderr, "opustranscode:", err)
		os.Exit(1)
	}
}

type runOptions struct {
	inPath, outPath     string
	layout              audio.Layout
	bitrateKbps         float64
	effort              float32
	declip              bool
	iterativeDeclip     bool
	normalize           bool
	allowVolumeDecrease bool
	nightmodeLevel      float32
}

func run(opts runOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	registry := audio.NewRegistry()
	registry.Register("wav", wav.Decoder{})
	registry.Register("mp3", mp3.Decoder{})
	registry.Register("ogg", vorbis.Decoder{})
	registry.Register("aiff", aiff.Decoder{})
	registry.Register("aif", aiff.Decoder{})

	ext := strings.TrimPrefix(filepath.Ext(opts.inPath), ".")
	decoder, ok := registry.Get(ext)
	if !ok {
		return fmt.Errorf("unsupported input format %q", ext)
	}

	inFile, err := os.Open(opts.inPath)
	if err != nil {
		return err
	}
	defer inFile.Close()

	source, err := decoder.Decode(inFile)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", opts.inPath, err)
	}
	defer source.Close()

	input, err := bridge.LoadSource(source)
	if err != nil {
		return fmt.Errorf("loading %s: %w", opts.inPath, err)
	}

	outFile, err := os.Create(opts.outPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	coordinator := transcode.NewCoordinator(opus.NewEncoder, opus.NewDecoder)
	go reportProgress(coordinator.Status)

	cfg := transcode.Config{
		Declip:              opts.declip,
		IterativeDeclip:     opts.iterativeDeclip,
		NightmodeLevel:      opts.nightmodeLevel,
		OutputLayout:        opts.layout,
		TargetBitrateKbps:   opts.bitrateKbps,
		Normalize:           opts.normalize,
		AllowVolumeDecrease: opts.allowVolumeDecrease,
		Effort:              opts.effort,
	}

	canceler := transcode.NewCanceler(ctx)
	if err := coordinator.Transcode(cfg, input, bridge.NewFileSink(outFile), canceler); err != nil {
		return err
	}

	fmt.Println("wrote:", opts.outPath)
	return nil
}

func reportProgress(status *transcode.Status) {
	for {
		snap := status.Wait()
		if snap.Progress >= 0 {
			fmt.Printf("\r%s (%.0f%%)", snap.Message, snap.Progress*100)
		} else {
			fmt.Printf("\r%s", snap.Message)
		}
		if snap.Outcome != transcode.OutcomeNone {
			fmt.Println()
			return
		}
	}
}

func parseLayout(name string) (audio.Layout, error) {
	switch strings.ToLower(name) {
	case "stereo":
		return audio.LayoutStereo, nil
	case "5.1", "5_1", "fivedotone":
		return audio.LayoutFiveDotOne, nil
	default:
		return 0, fmt.Errorf("unknown output layout %q (want stereo or 5.1)", name)
	}
}
