package avi

import (
	"bytes"

	"github.com/icza/bitio"
)

// OpenDML indx/ix## wire parsing. Grounded on anaray-fq's
// format/riff/avi.go aviDecodeChunkIndex, which decodes both chunk
// kinds through the same common header before branching on
// index_type: 0 = AVI_INDEX_OF_INDEXES (a super-index row per ix##
// chunk), 1 = AVI_INDEX_OF_CHUNKS (a standard index row per sample).

const (
	aviIndexOfIndexes = 0
	aviIndexOfChunks  = 1
)

type indexChunkHeader struct {
	LongsPerEntry uint16
	IndexSubType  uint8
	IndexType     uint8
	EntriesInUse  uint32
	ChunkID       FourCC
	BaseOffset    uint64
}

func readIndexChunkHeader(cur *ByteCursor) (indexChunkHeader, error) {
	var h indexChunkHeader
	v, err := cur.ReadU16()
	if err != nil {
		return h, err
	}
	h.LongsPerEntry = v
	sub, err := cur.ReadU8()
	if err != nil {
		return h, err
	}
	h.IndexSubType = sub
	typ, err := cur.ReadU8()
	if err != nil {
		return h, err
	}
	h.IndexType = typ
	n, err := cur.ReadU32()
	if err != nil {
		return h, err
	}
	h.EntriesInUse = n
	id, err := cur.ReadFourCC()
	if err != nil {
		return h, err
	}
	h.ChunkID = id
	base, err := cur.ReadU64()
	if err != nil {
		return h, err
	}
	h.BaseOffset = base
	if _, err := cur.Read(4); err != nil { // dwReserved3
		return h, err
	}
	return h, nil
}

// parseSuperIndexChunk parses an "indx" chunk whose IndexType is
// AVI_INDEX_OF_INDEXES: one row per ix## standard-index chunk.
func parseSuperIndexChunk(cur *ByteCursor) ([]SuperIndexEntry, error) {
	h, err := readIndexChunkHeader(cur)
	if err != nil {
		return nil, err
	}
	if h.IndexType != aviIndexOfIndexes {
		return nil, malformed("parseSuperIndexChunk", "index_type %d is not AVI_INDEX_OF_INDEXES", h.IndexType)
	}
	entries := make([]SuperIndexEntry, 0, h.EntriesInUse)
	for i := uint32(0); i < h.EntriesInUse; i++ {
		offset, err := cur.ReadU64()
		if err != nil {
			return nil, err
		}
		size, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		duration, err := cur.ReadU32()
		if err != nil {
			return nil, err
		}
		entries = append(entries, SuperIndexEntry{
			IxChunkOffset: offset,
			IxChunkSize:   size,
			DurationTicks: uint64(duration),
		})
	}
	return entries, nil
}

// decodeIx32Size splits a standard-index entry's little-endian "size"
// dword into its keyframe bit (the top bit, set means NOT a keyframe
// per the OpenDML spec's inverted polarity vs idx1) and the 31-bit
// size. The top bit lives in the high byte of the little-endian
// encoding, so it's read off raw[3] through a bitio.Reader rather than
// a hand-rolled shift-and-mask.
func decodeIx32Size(raw []byte) (isKeyFrame bool, size uint32, err error) {
	br := bitio.NewReader(bytes.NewReader(raw[3:4]))
	notKeyFrame, err := br.ReadBits(1)
	if err != nil {
		return false, 0, err
	}
	highByteLow7, err := br.ReadBits(7)
	if err != nil {
		return false, 0, err
	}
	size = uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(highByteLow7)<<24
	return notKeyFrame == 0, size, nil
}

// parseStandardIndexChunk parses one "ix##" chunk (IndexType ==
// AVI_INDEX_OF_CHUNKS), keeping only keyframe entries per spec.md §3.
// Entry offsets are relative to h.BaseOffset; size's top bit, when
// clear, marks a keyframe (the OpenDML "AVI_INDEX_OF_CHUNKS" encoding
// inverts the polarity idx1 uses).
func parseStandardIndexChunk(cur *ByteCursor) (StandardIndexSegment, error) {
	var seg StandardIndexSegment
	h, err := readIndexChunkHeader(cur)
	if err != nil {
		return seg, err
	}
	if h.IndexType != aviIndexOfChunks {
		return seg, malformed("parseStandardIndexChunk", "index_type %d is not AVI_INDEX_OF_CHUNKS", h.IndexType)
	}
	seg.BaseOffset = h.BaseOffset
	seg.TotalEntryCount = int64(h.EntriesInUse)

	var ordinal int64
	for i := uint32(0); i < h.EntriesInUse; i++ {
		relOffset, err := cur.ReadU32()
		if err != nil {
			return seg, err
		}
		rawSizeField, err := cur.Read(4)
		if err != nil {
			return seg, err
		}
		isKeyFrame, size, err := decodeIx32Size(rawSizeField)
		if err != nil {
			return seg, err
		}
		if isKeyFrame {
			seg.KeyFrameOffsets = append(seg.KeyFrameOffsets, h.BaseOffset+uint64(relOffset))
			seg.KeyFrameSizes = append(seg.KeyFrameSizes, size)
			seg.KeyFrameGlobalOrdinals = append(seg.KeyFrameGlobalOrdinals, ordinal)
		}
		ordinal++
	}
	return seg, nil
}
