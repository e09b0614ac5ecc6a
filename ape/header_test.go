package ape

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/charlescerisier/avixer/avi"
	"github.com/stretchr/testify/require"
)

func newApeCursor(raw []byte) *avi.ByteCursor {
	return avi.NewByteCursor(avi.NewInput(bytes.NewReader(raw), int64(len(raw))))
}

// buildOldHeader builds a pre-3980 "flat" .ape header with no peak
// level and an explicit seek table of seekEntries absolute offsets.
func buildOldHeader(t *testing.T, version uint16, channels, sampleRate, totalFrames, finalFrameBlocks uint32, seekEntries []uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(magic[:])
	binary.Write(&buf, binary.LittleEndian, version)
	binary.Write(&buf, binary.LittleEndian, uint16(2000))                  // compression level
	binary.Write(&buf, binary.LittleEndian, uint16(formatFlagHasSeekElements)) // format flags
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, sampleRate)
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // header bytes (no WAV header)
	buf.Write(make([]byte, 4))                         // terminating bytes
	binary.Write(&buf, binary.LittleEndian, totalFrames)
	binary.Write(&buf, binary.LittleEndian, finalFrameBlocks)
	binary.Write(&buf, binary.LittleEndian, uint32(len(seekEntries)))
	for _, e := range seekEntries {
		binary.Write(&buf, binary.LittleEndian, e)
	}
	return buf.Bytes()
}

func TestParseHeaderOldDialect(t *testing.T) {
	raw := buildOldHeader(t, 3970, 2, 44100, 3, 20000, []uint32{0, 100000, 200000})
	cur := newApeCursor(raw)

	h, err := ParseHeader(cur)
	require.NoError(t, err)
	require.Equal(t, uint16(3970), h.Version)
	require.Equal(t, 2, h.Channels)
	require.Equal(t, 44100, h.SampleRate)
	require.Equal(t, uint32(3), h.TotalFrames)
	require.Equal(t, uint32(20000), h.FinalFrameBlocks)
	require.Equal(t, uint32(73728), h.BlocksPerFrame)
	require.Equal(t, 16, h.BitsPerSample)
	require.Equal(t, []uint32{0, 100000, 200000}, h.SeekTableEntries)
	require.Equal(t, int64(len(raw)), h.FrameDataOffset)
}

func TestParseHeaderOldDialectPost3950QuadruplesBlocksPerFrame(t *testing.T) {
	raw := buildOldHeader(t, 3960, 1, 44100, 1, 1000, []uint32{0})
	cur := newApeCursor(raw)
	h, err := ParseHeader(cur)
	require.NoError(t, err)
	require.Equal(t, uint32(73728*4), h.BlocksPerFrame)
}

// buildModernHeader builds a 3980+ descriptor+header .ape fixture with
// the minimal 52-byte descriptor and a 24-byte header block.
func buildModernHeader(t *testing.T, channels uint16, sampleRate, totalFrames, finalFrameBlocks uint32, seekEntries []uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(magic[:])
	binary.Write(&buf, binary.LittleEndian, uint16(3990)) // version
	binary.Write(&buf, binary.LittleEndian, uint16(0))    // padding

	const descriptorBytes = 52
	const headerBytes = 24
	seekTableBytes := uint32(len(seekEntries) * 4)

	binary.Write(&buf, binary.LittleEndian, uint32(descriptorBytes))
	binary.Write(&buf, binary.LittleEndian, uint32(headerBytes))
	binary.Write(&buf, binary.LittleEndian, seekTableBytes)
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // header data bytes
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // frame data bytes low
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // frame data bytes high
	binary.Write(&buf, binary.LittleEndian, uint32(0)) // terminating data bytes
	buf.Write(make([]byte, 16))                         // md5

	binary.Write(&buf, binary.LittleEndian, uint16(2000)) // compression level
	binary.Write(&buf, binary.LittleEndian, uint16(0))    // format flags
	binary.Write(&buf, binary.LittleEndian, uint32(73728))
	binary.Write(&buf, binary.LittleEndian, finalFrameBlocks)
	binary.Write(&buf, binary.LittleEndian, totalFrames)
	binary.Write(&buf, binary.LittleEndian, uint16(16)) // bits per sample
	binary.Write(&buf, binary.LittleEndian, channels)
	binary.Write(&buf, binary.LittleEndian, sampleRate)

	for _, e := range seekEntries {
		binary.Write(&buf, binary.LittleEndian, e)
	}
	return buf.Bytes()
}

func TestParseHeaderModernDialect(t *testing.T) {
	raw := buildModernHeader(t, 2, 44100, 3, 20000, []uint32{0, 50000, 100000})
	cur := newApeCursor(raw)

	h, err := ParseHeader(cur)
	require.NoError(t, err)
	require.Equal(t, uint16(3990), h.Version)
	require.Equal(t, 2, h.Channels)
	require.Equal(t, 44100, h.SampleRate)
	require.Equal(t, uint32(73728), h.BlocksPerFrame)
	require.Equal(t, []uint32{0, 50000, 100000}, h.SeekTableEntries)
	require.Equal(t, int64(len(raw)), h.FrameDataOffset)
}

func TestParseHeaderRejectsBadSignature(t *testing.T) {
	raw := []byte{'X', 'Y', 'Z', 'W', 0, 0}
	cur := newApeCursor(raw)
	_, err := ParseHeader(cur)
	require.Error(t, err)
}
