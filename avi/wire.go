package avi

import (
	"bytes"
	"encoding/binary"
)

// Fixed-layout wire structs, kept binary.Read-compatible in the same
// shape the teacher used (RIFFHeader/ChunkHeader/AVIMainHeader/
// AVIStreamHeader/BitmapInfoHeader/WaveFormatEx), so the parse
// functions below can still read a whole struct in one shot via
// bytes.NewReader+binary.Read instead of field-by-field ByteCursor
// calls, exactly like avi/demuxer.go's parseAVIHChunk/parseSTRHChunk
// did.

type riffHeader struct {
	Signature [4]byte
	FileSize  uint32
	Type      [4]byte
}

type chunkHeader struct {
	ID   [4]byte
	Size uint32
}

// aviMainHeader mirrors avih (sizeof == 56).
type aviMainHeader struct {
	MicroSecPerFrame    uint32
	MaxBytesPerSec      uint32
	PaddingGranularity  uint32
	Flags               uint32
	TotalFrames         uint32
	InitialFrames       uint32
	Streams             uint32
	SuggestedBufferSize uint32
	Width               uint32
	Height              uint32
	Reserved            [4]uint32
}

const sizeofAVIMainHeader = 56

// aviStreamHeader mirrors strh (sizeof == 56).
type aviStreamHeader struct {
	Type                [4]byte
	Handler             [4]byte
	Flags               uint32
	Priority            uint16
	Language            uint16
	InitialFrames       uint32
	Scale               uint32
	Rate                uint32
	Start               uint32
	Length              uint32
	SuggestedBufferSize uint32
	Quality             uint32
	SampleSize          uint32
	Frame               struct {
		Left, Top, Right, Bottom uint16
	}
}

const sizeofAVIStreamHeader = 56

// bitmapInfoHeader mirrors the strf body for a video stream (sizeof == 40).
type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   [4]byte
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

const sizeofBitmapInfoHeader = 40

// waveFormatEx mirrors the strf body for an audio stream (sizeof == 18).
type waveFormatEx struct {
	FormatTag      uint16
	Channels       uint16
	SamplesPerSec  uint32
	AvgBytesPerSec uint32
	BlockAlign     uint16
	BitsPerSample  uint16
	Size           uint16
}

const sizeofWaveFormatEx = 18

// idx1WireEntry mirrors one 16-byte idx1 record.
type idx1WireEntry struct {
	ChunkID [4]byte
	Flags   uint32
	Offset  uint32
	Size    uint32
}

const sizeofIdx1Entry = 16
const idx1FlagKeyFrame = 0x10 // AVIIF_KEYFRAME

func readStruct(raw []byte, v any) error {
	return binary.Read(bytes.NewReader(raw), binary.LittleEndian, v)
}

// WAVE format tags relevant to stream classification.
const (
	wavTagPCM = 0x0001
	wavTagMP3 = 0x0055
	wavTagAC3 = 0x2000
)

// Known video FourCCs (kept from the teacher's format.go constants).
var (
	CodecMJPEG = NewFourCC("MJPG")
	CodecMP4V  = NewFourCC("MP4V")
	CodecH264  = NewFourCC("H264")
	CodecXVID  = NewFourCC("XVID")
	CodecDIVX  = NewFourCC("DIVX")
)
