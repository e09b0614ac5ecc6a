package avi

import (
	"encoding/binary"
	"io"
	"os"
)

// AviMuxer writes a single-RIFF AVI file from a set of StreamDescriptors
// and the samples already collected for each (typically via a
// MemoryTrackSink fed by AviDemuxer during a remux pass). Writing is a
// spec.md non-goal beyond "round-trip what was read", so this stays a
// thin, single-pass writer rather than the full incremental Muxer
// interface the teacher's Writer implemented — adapted from the
// teacher's muxer.go (writeHDRLList/writeSTRLList/writeMOVIList/
// writeIDX1Chunk) onto StreamDescriptor/Sample instead of
// Stream/Codec/Packet.
type AviMuxer struct {
	w       io.WriteSeeker
	streams []*StreamDescriptor
	samples [][]Sample
}

func NewAviMuxer(w io.WriteSeeker) *AviMuxer {
	return &AviMuxer{w: w}
}

// AddStream registers one output stream and the samples to write for
// it, in presentation order. Returns the stream's index in the output
// file.
func (m *AviMuxer) AddStream(desc *StreamDescriptor, samples []Sample) int {
	m.streams = append(m.streams, desc)
	m.samples = append(m.samples, samples)
	return len(m.streams) - 1
}

// Write emits the complete RIFF/hdrl/movi/idx1 structure in one pass.
func (m *AviMuxer) Write() error {
	hdrlSize := m.hdrlSize()
	moviSize := m.moviSize()
	idx1Size := m.idx1Size()
	totalSize := uint32(4 + (8 + hdrlSize) + (8 + moviSize) + (8 + idx1Size))

	if err := m.writeStruct(riffHeader{
		Signature: toFourCCBytes(FourCCRIFF),
		FileSize:  totalSize,
		Type:      toFourCCBytes(FourCCAVI),
	}); err != nil {
		return err
	}
	if err := m.writeHdrl(hdrlSize); err != nil {
		return err
	}
	if err := m.writeMovi(moviSize); err != nil {
		return err
	}
	return m.writeIdx1(idx1Size)
}

func toFourCCBytes(f FourCC) [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(f))
	return b
}

func (m *AviMuxer) writeStruct(v any) error {
	return binary.Write(m.w, binary.LittleEndian, v)
}

func (m *AviMuxer) writeChunkHeader(id FourCC, size uint32) error {
	return m.writeStruct(chunkHeader{ID: toFourCCBytes(id), Size: size})
}

func (m *AviMuxer) hdrlSize() uint32 {
	size := uint32(4) // "hdrl"
	size += 8 + sizeofAVIMainHeader
	for i := range m.streams {
		size += 8 + m.strlSize(i)
	}
	return size
}

func (m *AviMuxer) strlSize(i int) uint32 {
	size := uint32(4) // "strl"
	size += 8 + sizeofAVIStreamHeader
	switch m.streams[i].TrackType {
	case TrackVideo:
		size += 8 + sizeofBitmapInfoHeader
	case TrackAudio:
		size += 8 + sizeofWaveFormatEx
	}
	return size
}

func (m *AviMuxer) moviSize() uint32 {
	size := uint32(4) // "movi"
	for i := range m.streams {
		for _, s := range m.samples[i] {
			size += uint32(8 + AlignedSize(int64(len(s.Data))))
		}
	}
	return size
}

func (m *AviMuxer) idx1Size() uint32 {
	var n int
	for _, ss := range m.samples {
		n += len(ss)
	}
	return uint32(n * sizeofIdx1Entry)
}

func (m *AviMuxer) writeHdrl(size uint32) error {
	if err := m.writeChunkHeader(FourCCLIST, size); err != nil {
		return err
	}
	if err := m.writeStruct(toFourCCBytes(FourCChdrl)); err != nil {
		return err
	}
	if err := m.writeAvih(); err != nil {
		return err
	}
	for i := range m.streams {
		if err := m.writeStrl(i); err != nil {
			return err
		}
	}
	return nil
}

func (m *AviMuxer) writeAvih() error {
	var width, height, usecPerFrame, totalFrames uint32
	for i, s := range m.streams {
		if s.TrackType == TrackVideo {
			width, height = uint32(s.Width), uint32(s.Height)
			if s.FrameRate > 0 {
				usecPerFrame = uint32(1_000_000 / s.FrameRate)
			}
			totalFrames = uint32(len(m.samples[i]))
		}
	}
	if err := m.writeChunkHeader(FourCCavih, sizeofAVIMainHeader); err != nil {
		return err
	}
	return m.writeStruct(aviMainHeader{
		MicroSecPerFrame: usecPerFrame,
		Flags:            0x810, // AVIF_HASINDEX | AVIF_TRUSTCKTYPE
		TotalFrames:      totalFrames,
		Streams:          uint32(len(m.streams)),
		Width:            width,
		Height:           height,
	})
}

func (m *AviMuxer) writeStrl(i int) error {
	desc := m.streams[i]
	if err := m.writeChunkHeader(FourCCLIST, m.strlSize(i)); err != nil {
		return err
	}
	if err := m.writeStruct(toFourCCBytes(FourCCstrl)); err != nil {
		return err
	}
	if err := m.writeStrh(desc, len(m.samples[i])); err != nil {
		return err
	}
	return m.writeStrf(desc)
}

func (m *AviMuxer) writeStrh(desc *StreamDescriptor, frameCount int) error {
	var streamType FourCC
	var scale, rate uint32 = 1, 1
	switch desc.TrackType {
	case TrackVideo:
		streamType = FourCCvids
		if desc.FrameRate > 0 {
			scale, rate = 1000, uint32(desc.FrameRate*1000)
		}
	case TrackAudio:
		streamType = FourCCauds
		rate = uint32(desc.SampleRate)
	}
	if err := m.writeChunkHeader(FourCCstrh, sizeofAVIStreamHeader); err != nil {
		return err
	}
	hdr := aviStreamHeader{
		Type:     toFourCCBytes(streamType),
		Handler:  toFourCCBytes(desc.CodecFourCC),
		Scale:    scale,
		Rate:     rate,
		Length:   uint32(frameCount),
		Quality:  0xFFFFFFFF,
	}
	if desc.TrackType == TrackVideo {
		hdr.Frame.Right = uint16(desc.Width)
		hdr.Frame.Bottom = uint16(desc.Height)
	}
	return m.writeStruct(hdr)
}

func (m *AviMuxer) writeStrf(desc *StreamDescriptor) error {
	switch desc.TrackType {
	case TrackVideo:
		if err := m.writeChunkHeader(FourCCstrf, sizeofBitmapInfoHeader); err != nil {
			return err
		}
		return m.writeStruct(bitmapInfoHeader{
			Size:        sizeofBitmapInfoHeader,
			Width:       int32(desc.Width),
			Height:      int32(desc.Height),
			Planes:      1,
			BitCount:    24,
			Compression: toFourCCBytes(desc.CodecFourCC),
		})
	case TrackAudio:
		if err := m.writeChunkHeader(FourCCstrf, sizeofWaveFormatEx); err != nil {
			return err
		}
		tag := uint16(wavTagPCM)
		switch desc.AudioCodec {
		case AudioCodecMP3:
			tag = wavTagMP3
		case AudioCodecAC3:
			tag = wavTagAC3
		}
		return m.writeStruct(waveFormatEx{
			FormatTag:      tag,
			Channels:       uint16(desc.Channels),
			SamplesPerSec:  uint32(desc.SampleRate),
			AvgBytesPerSec: uint32(desc.SampleRate * desc.Channels * desc.BitsPerSample / 8),
			BlockAlign:     uint16(desc.Channels * desc.BitsPerSample / 8),
			BitsPerSample:  uint16(desc.BitsPerSample),
		})
	}
	return nil
}

func (m *AviMuxer) writeMovi(size uint32) error {
	if err := m.writeChunkHeader(FourCCLIST, size); err != nil {
		return err
	}
	if err := m.writeStruct(toFourCCBytes(FourCCmovi)); err != nil {
		return err
	}
	for i, desc := range m.streams {
		twoCC := "wb"
		if desc.TrackType == TrackVideo {
			twoCC = "dc"
		}
		id := MakeStreamChunkID(i, twoCC)
		for _, s := range m.samples[i] {
			if err := m.writeChunkHeader(id, uint32(len(s.Data))); err != nil {
				return err
			}
			if _, err := m.w.Write(s.Data); err != nil {
				return err
			}
			if len(s.Data)%2 == 1 {
				if _, err := m.w.Write([]byte{0}); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (m *AviMuxer) writeIdx1(size uint32) error {
	if err := m.writeChunkHeader(FourCCidx1, size); err != nil {
		return err
	}
	var offset uint32 = 4
	for i, desc := range m.streams {
		twoCC := "wb"
		if desc.TrackType == TrackVideo {
			twoCC = "dc"
		}
		id := MakeStreamChunkID(i, twoCC)
		for _, s := range m.samples[i] {
			var flags uint32
			if s.IsKeyFrame {
				flags = idx1FlagKeyFrame
			}
			if err := m.writeStruct(idx1WireEntry{
				ChunkID: toFourCCBytes(id),
				Flags:   flags,
				Offset:  offset,
				Size:    uint32(len(s.Data)),
			}); err != nil {
				return err
			}
			offset += uint32(8 + AlignedSize(int64(len(s.Data))))
		}
	}
	return nil
}

// CreateAviFile is a convenience constructor mirroring the teacher's
// Writer.CreateFile.
func CreateAviFile(filename string) (*AviMuxer, func() error, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, nil, &AVIError{Op: "create", Err: err}
	}
	return NewAviMuxer(f), f.Close, nil
}
