// Command aviremux reads every stream of an AVI file into memory and
// writes it back out as a fresh single-RIFF AVI file. It is a thin
// wrapper around avi.AviDemuxer and avi.AviMuxer — remuxing beyond
// "round-trip what was demuxed" is out of scope (see SPEC_FULL.md
// Non-goals), so this stays a verification/repackaging tool rather
// than a general transcoder.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/charlescerisier/avixer/avi"
)

func main() {
	inputFile := flag.String("i", "", "input AVI file (required)")
	outputFile := flag.String("o", "", "output AVI file (required)")
	verbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	if *inputFile == "" || *outputFile == "" {
		fmt.Fprintln(os.Stderr, "usage: aviremux -i input.avi -o output.avi")
		os.Exit(1)
	}

	if err := remux(*inputFile, *outputFile, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "aviremux: %v\n", err)
		os.Exit(1)
	}
}

func remux(inputFile, outputFile string, verbose bool) error {
	in, closeFn, err := avi.OpenFile(inputFile)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer closeFn()

	demuxer := avi.NewAviDemuxer(in, nil)
	out := avi.NewExtractorOutput()

	for demuxer.Streams() == nil {
		if _, err := demuxer.Read(); err != nil {
			return fmt.Errorf("reading header: %w", err)
		}
	}

	sinks := make([]*avi.MemoryTrackSink, len(demuxer.Streams()))
	for i, s := range demuxer.Streams() {
		sink := avi.NewMemoryTrackSink()
		sinks[i] = sink
		out.SetTrack(s.StreamID, sink)
		if verbose {
			fmt.Printf("stream #%d: %s %s\n", s.StreamID, s.TrackType, s.CodecMime)
		}
	}
	demuxer.SetOutput(out)

	if err := demuxer.Demux(); err != nil {
		return fmt.Errorf("demuxing: %w", err)
	}

	outFile, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer outFile.Close()

	muxer := avi.NewAviMuxer(outFile)
	for i, s := range demuxer.Streams() {
		samples := sinks[i].Samples()
		muxer.AddStream(s, samples)
		if verbose {
			fmt.Printf("stream #%d: writing %d samples\n", s.StreamID, len(samples))
		}
	}

	if err := muxer.Write(); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	info, err := os.Stat(outputFile)
	if err == nil && verbose {
		fmt.Printf("wrote %s (%d bytes)\n", outputFile, info.Size())
	}
	return nil
}
