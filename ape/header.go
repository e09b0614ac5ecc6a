// Package ape parses Monkey's Audio (.ape) headers and seek tables
// well enough to build a frame-level index and an FFmpeg-compatible
// decoder configuration, without decoding any audio. No APE parser
// exists anywhere in the retrieved example pack, so this package's
// wire-format handling is grounded directly in the Monkey's Audio
// container layout rather than in a corpus example; it follows the
// same ByteCursor-over-Input, wire-struct-via-binary.Read idiom the
// avi package uses so the two packages read as one codebase.
package ape

import (
	"fmt"

	"github.com/charlescerisier/avixer/avi"
)

// magic is the 4-byte signature every .ape file starts with.
var magic = [4]byte{'M', 'A', 'C', ' '}

// Header is the subset of a parsed Monkey's Audio header this package
// exposes, normalized across the two on-disk dialects (see
// ParseHeader).
type Header struct {
	Version          uint16
	CompressionLevel uint16
	FormatFlags      uint16
	Channels         int
	SampleRate       int
	BitsPerSample    int
	BlocksPerFrame   uint32
	FinalFrameBlocks uint32
	TotalFrames      uint32
	SeekTableEntries []uint32 // raw byte offsets, meaning depends on dialect (see seektable.go)
	FrameDataOffset  int64    // absolute file offset where frame 0's data begins
}

// formatFlag bits of the header; parseOldHeader consults them for
// every pre-3980 version.
const (
	formatFlag8Bit        = 1 << 0
	formatFlagCRC         = 1 << 1
	formatFlagHasPeakLevel = 1 << 2
	formatFlag24Bit       = 1 << 3
	formatFlagHasSeekElements = 1 << 4
	formatFlagCreateWaveHeader = 1 << 5
)

// dialectVersionCutover is the version at which Monkey's Audio moved
// to the "descriptor + header" two-block layout; versions below it use
// the flat "old header" layout.
const dialectVersionCutover = 3980

// ParseHeader reads and normalizes an .ape file's header from cur,
// dispatching to the pre-3980 or 3980+ dialect.
func ParseHeader(cur *avi.ByteCursor) (Header, error) {
	sig, err := cur.Read(4)
	if err != nil {
		return Header{}, err
	}
	if sig[0] != magic[0] || sig[1] != magic[1] || sig[2] != magic[2] || sig[3] != magic[3] {
		return Header{}, fmt.Errorf("ape: missing MAC signature")
	}
	version, err := cur.ReadU16()
	if err != nil {
		return Header{}, err
	}
	if version >= dialectVersionCutover {
		return parseModernHeader(cur, version)
	}
	return parseOldHeader(cur, version)
}

// parseModernHeader handles the 3980+ descriptor+header dialect.
func parseModernHeader(cur *avi.ByteCursor, version uint16) (Header, error) {
	if _, err := cur.Read(2); err != nil { // padding
		return Header{}, err
	}
	descriptorBytes, err := cur.ReadU32()
	if err != nil {
		return Header{}, err
	}
	headerBytes, err := cur.ReadU32()
	if err != nil {
		return Header{}, err
	}
	seekTableBytes, err := cur.ReadU32()
	if err != nil {
		return Header{}, err
	}
	if _, err := cur.Read(4); err != nil { // header data bytes (WAV header, unused here)
		return Header{}, err
	}
	if _, err := cur.Read(4); err != nil { // APE frame data bytes (low)
		return Header{}, err
	}
	if _, err := cur.Read(4); err != nil { // APE frame data bytes (high)
		return Header{}, err
	}
	if _, err := cur.Read(4); err != nil { // terminating data bytes
		return Header{}, err
	}
	if _, err := cur.Read(16); err != nil { // file MD5
		return Header{}, err
	}
	// Consume any descriptor padding beyond the 52-byte fixed layout
	// this function has read so far: the 4-byte "MAC " signature and
	// 2-byte version were already consumed by ParseHeader before this
	// function was entered, so they count towards descriptorBytes too
	// (4 + 2 + 2 + 4*7 + 16 = 52 when descriptorBytes == 52, the normal
	// case — leaving out the signature and one of the seven 4-byte
	// fields undercounted by 8 bytes and wrongly skipped real header
	// fields on ordinary files).
	const readSoFar = 4 + 2 + 2 + 4*7 + 16
	if int(descriptorBytes) > readSoFar {
		if err := cur.Skip(int64(descriptorBytes) - readSoFar); err != nil {
			return Header{}, err
		}
	}

	compressionLevel, err := cur.ReadU16()
	if err != nil {
		return Header{}, err
	}
	formatFlags, err := cur.ReadU16()
	if err != nil {
		return Header{}, err
	}
	blocksPerFrame, err := cur.ReadU32()
	if err != nil {
		return Header{}, err
	}
	finalFrameBlocks, err := cur.ReadU32()
	if err != nil {
		return Header{}, err
	}
	totalFrames, err := cur.ReadU32()
	if err != nil {
		return Header{}, err
	}
	bitsPerSample, err := cur.ReadU16()
	if err != nil {
		return Header{}, err
	}
	channels, err := cur.ReadU16()
	if err != nil {
		return Header{}, err
	}
	sampleRate, err := cur.ReadU32()
	if err != nil {
		return Header{}, err
	}
	if headerBytes > 24 {
		if err := cur.Skip(int64(headerBytes) - 24); err != nil {
			return Header{}, err
		}
	}

	entries := make([]uint32, seekTableBytes/4)
	for i := range entries {
		v, err := cur.ReadU32()
		if err != nil {
			return Header{}, err
		}
		entries[i] = v
	}

	return Header{
		Version:          version,
		CompressionLevel: compressionLevel,
		FormatFlags:      formatFlags,
		Channels:         int(channels),
		SampleRate:       int(sampleRate),
		BitsPerSample:    int(bitsPerSample),
		BlocksPerFrame:   blocksPerFrame,
		FinalFrameBlocks: finalFrameBlocks,
		TotalFrames:      totalFrames,
		SeekTableEntries: entries,
		FrameDataOffset:  cur.Position(),
	}, nil
}

// parseOldHeader handles the flat pre-3980 layout, where the fields
// that later became the "descriptor" and "header" blocks are a single
// run of fields immediately after the version.
func parseOldHeader(cur *avi.ByteCursor, version uint16) (Header, error) {
	compressionLevel, err := cur.ReadU16()
	if err != nil {
		return Header{}, err
	}
	formatFlags, err := cur.ReadU16()
	if err != nil {
		return Header{}, err
	}
	channels, err := cur.ReadU16()
	if err != nil {
		return Header{}, err
	}
	sampleRate, err := cur.ReadU32()
	if err != nil {
		return Header{}, err
	}
	headerBytes, err := cur.ReadU32() // WAV header bytes preceding frame data
	if err != nil {
		return Header{}, err
	}
	if _, err := cur.Read(4); err != nil { // terminating bytes
		return Header{}, err
	}
	totalFrames, err := cur.ReadU32()
	if err != nil {
		return Header{}, err
	}
	finalFrameBlocks, err := cur.ReadU32()
	if err != nil {
		return Header{}, err
	}

	if formatFlags&formatFlagHasPeakLevel != 0 {
		if _, err := cur.Read(4); err != nil {
			return Header{}, err
		}
	}

	var seekTableLen uint32
	if formatFlags&formatFlagHasSeekElements != 0 {
		v, err := cur.ReadU32()
		if err != nil {
			return Header{}, err
		}
		seekTableLen = v
	} else {
		seekTableLen = totalFrames
	}

	bitsPerSample := 16
	if formatFlags&formatFlag8Bit != 0 {
		bitsPerSample = 8
	} else if formatFlags&formatFlag24Bit != 0 {
		bitsPerSample = 24
	}

	blocksPerFrame := uint32(73728) // Monkey's Audio's fixed pre-3980 frame size at normal/high compression
	if version >= 3950 {
		blocksPerFrame = 73728 * 4
	}

	entries := make([]uint32, seekTableLen)
	for i := range entries {
		v, err := cur.ReadU32()
		if err != nil {
			return Header{}, err
		}
		entries[i] = v
	}

	if headerBytes > 0 {
		if err := cur.Skip(int64(headerBytes)); err != nil {
			return Header{}, err
		}
	}

	return Header{
		Version:          version,
		CompressionLevel: compressionLevel,
		FormatFlags:      formatFlags,
		Channels:         int(channels),
		SampleRate:       int(sampleRate),
		BitsPerSample:    bitsPerSample,
		BlocksPerFrame:   blocksPerFrame,
		FinalFrameBlocks: finalFrameBlocks,
		TotalFrames:      totalFrames,
		SeekTableEntries: entries,
		FrameDataOffset:  cur.Position(),
	}, nil
}
