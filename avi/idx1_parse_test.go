package avi

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func idx1EntryBytes(t *testing.T, id FourCC, keyFrame bool, offset, size uint32) []byte {
	t.Helper()
	e := idx1WireEntry{Offset: offset, Size: size}
	copy(e.ChunkID[:], id.String())
	if keyFrame {
		e.Flags = idx1FlagKeyFrame
	}
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, e))
	return buf.Bytes()
}

func TestParseIdx1ChunkMoviRelativeOffsets(t *testing.T) {
	const moviDataStart = 2048
	streamID := MakeStreamChunkID(0, "dc")

	var raw bytes.Buffer
	raw.Write(idx1EntryBytes(t, streamID, true, 0, 1000))
	raw.Write(idx1EntryBytes(t, streamID, false, 1008, 500))
	raw.Write(idx1EntryBytes(t, streamID, true, 1516, 1200))

	desc := &StreamDescriptor{StreamID: 0, TrackType: TrackVideo}
	si := newStreamIndex(desc, nil)
	indices := map[FourCC]*StreamIndex{streamID: si}

	cur := newTestByteCursor(raw.Bytes())
	require.NoError(t, parseIdx1Chunk(cur, uint32(raw.Len()), moviDataStart, indices))
	si.finishIdx1()

	require.Equal(t, int64(3), si.idx1.chunkCount)
	require.Equal(t, 2, si.idx1.Len())
	require.Equal(t, uint64(moviDataStart+0), si.idx1.offsets[0])
	require.Equal(t, uint64(moviDataStart+1516), si.idx1.offsets[1])
}

func TestParseIdx1ChunkAbsoluteOffsets(t *testing.T) {
	const moviDataStart = 2048
	streamID := MakeStreamChunkID(0, "dc")

	var raw bytes.Buffer
	// First entry's offset already exceeds moviDataStart, so
	// resolveIdx1Base must treat all offsets as absolute.
	raw.Write(idx1EntryBytes(t, streamID, true, moviDataStart+100, 1000))

	desc := &StreamDescriptor{StreamID: 0, TrackType: TrackVideo}
	si := newStreamIndex(desc, nil)
	indices := map[FourCC]*StreamIndex{streamID: si}

	cur := newTestByteCursor(raw.Bytes())
	require.NoError(t, parseIdx1Chunk(cur, uint32(raw.Len()), moviDataStart, indices))
	si.finishIdx1()

	require.Equal(t, uint64(moviDataStart+100), si.idx1.offsets[0])
}

func TestParseIdx1ChunkSkipsUnknownStreamIDs(t *testing.T) {
	const moviDataStart = 0
	known := MakeStreamChunkID(0, "dc")
	unknown := MakeStreamChunkID(1, "wb")

	var raw bytes.Buffer
	raw.Write(idx1EntryBytes(t, unknown, true, 0, 500))
	raw.Write(idx1EntryBytes(t, known, true, 500, 500))

	desc := &StreamDescriptor{StreamID: 0, TrackType: TrackVideo}
	si := newStreamIndex(desc, nil)
	indices := map[FourCC]*StreamIndex{known: si}

	cur := newTestByteCursor(raw.Bytes())
	require.NoError(t, parseIdx1Chunk(cur, uint32(raw.Len()), moviDataStart, indices))
	si.finishIdx1()

	require.Equal(t, 1, si.idx1.Len())
	require.Equal(t, uint64(500), si.idx1.offsets[0])
}
