package ape

import (
	"encoding/binary"
	"sort"

	"github.com/charlescerisier/avixer/avi"
)

// Indexer builds and answers seek queries over one .ape file's frame
// table, the audio-side counterpart to avi.StreamIndex: same
// offset/time binary-search shape, no decoding.
type Indexer struct {
	header Header
	frames []Frame
}

// NewIndexer parses cur's header and reconstructs its frame table.
func NewIndexer(cur *avi.ByteCursor) (*Indexer, error) {
	h, err := ParseHeader(cur)
	if err != nil {
		return nil, err
	}
	// The 3980+ dialect always stores seek-table entries relative to
	// FrameDataOffset; the pre-3980 dialect stores absolute offsets.
	absolute := h.Version < dialectVersionCutover
	frames := BuildFrames(h, absolute)
	return &Indexer{header: h, frames: frames}, nil
}

func (ix *Indexer) Header() Header { return ix.header }

func (ix *Indexer) Frames() []Frame { return ix.frames }

func (ix *Indexer) DurationUs() int64 { return TotalDurationUs(ix.header) }

// FrameForTime returns the index of the frame that would be playing
// at timeUs (the floor frame by start time).
func (ix *Indexer) FrameForTime(timeUs int64) (int, bool) {
	n := len(ix.frames)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return ix.frames[i].TimeUs > timeUs })
	if i == 0 {
		return 0, true
	}
	return i - 1, true
}

// FrameForOffset returns the index of the frame that contains
// byteOffset (the floor frame by file offset).
func (ix *Indexer) FrameForOffset(byteOffset int64) (int, bool) {
	n := len(ix.frames)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return ix.frames[i].FileOffset > byteOffset })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

// DecoderConfig is the FFmpeg-compatible "extradata" blob an AVI/other
// container can hand an APE decoder: file version, compression level,
// and format flags — the three fields FFmpeg's ape decoder reads out
// of AVCodecParameters.extradata before it will touch a frame.
type DecoderConfig struct {
	FileVersion      uint16
	CompressionLevel uint16
	FormatFlags      uint16
}

func (ix *Indexer) DecoderConfig() DecoderConfig {
	return DecoderConfig{
		FileVersion:      ix.header.Version,
		CompressionLevel: ix.header.CompressionLevel,
		FormatFlags:      ix.header.FormatFlags,
	}
}

// Bytes serializes DecoderConfig into the 6-byte layout FFmpeg's APE
// decoder expects in extradata: file version (LE16), compression
// level (LE16), format flags (LE16) — the version a decoder needs to
// pick its pre/post-3980 bitstream handling, not reserved padding.
func (c DecoderConfig) Bytes() []byte {
	b := make([]byte, 6)
	binary.LittleEndian.PutUint16(b[0:2], c.FileVersion)
	binary.LittleEndian.PutUint16(b[2:4], c.CompressionLevel)
	binary.LittleEndian.PutUint16(b[4:6], c.FormatFlags)
	return b
}

// SynthesizeFrameHeader builds the minimal per-frame header some
// decoders expect prepended to raw frame data extracted from a
// container that (like AVI) never stores APE's own frame headers
// inline — just the block count this frame covers, matching Frame's
// own BlockCount so a decoder fed this synthetic header plus the raw
// frame bytes can reconstruct exactly what a native .ape stream would
// have provided.
func SynthesizeFrameHeader(f Frame) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, f.BlockCount)
	return b
}
