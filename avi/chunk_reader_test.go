package avi

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/bogem/id3v2/v2"
	"github.com/stretchr/testify/require"
)

func newTestByteCursor(data []byte) *ByteCursor {
	return NewByteCursor(newSliceInput(data))
}

func TestVideoChunkReaderProducesOneOpaqueSample(t *testing.T) {
	r := &videoChunkReader{}
	data := []byte{1, 2, 3, 4, 5}
	cur := newTestByteCursor(data)
	samples, err := r.ReadChunk(cur, uint32(len(data)), 40000, true)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, data, samples[0].Data)
	require.True(t, samples[0].IsKeyFrame)
}

func TestPcmChunkReaderAlwaysKeyFrame(t *testing.T) {
	r := &pcmChunkReader{}
	data := make([]byte, 16)
	cur := newTestByteCursor(data)
	samples, err := r.ReadChunk(cur, uint32(len(data)), 1000, false)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.True(t, samples[0].IsKeyFrame)
}

// mp3FrameBytes builds one syntactically valid MPEG-1 Layer III, 112kbps,
// 44100Hz, stereo frame of the header's own reported length, padded with
// zero bytes, so the test never hand-computes a frame length independent
// of the production frame-size formula.
func mp3FrameBytes(t *testing.T) []byte {
	t.Helper()
	header := []byte{0xFF, 0xFB, 0x80, 0x00}
	hdr, ok := parseMp3FrameHeader(header)
	require.True(t, ok)
	require.Greater(t, hdr.FrameLen, 4)
	frame := make([]byte, hdr.FrameLen)
	copy(frame, header)
	return frame
}

func TestMp3ChunkReaderSplitsBackToBackFrames(t *testing.T) {
	frame := mp3FrameBytes(t)
	raw := append(append([]byte{}, frame...), frame...)
	cur := newTestByteCursor(raw)

	r := newMp3ChunkReader(&StreamDescriptor{StreamID: 0}, slog.Default())
	samples, err := r.ReadChunk(cur, uint32(len(raw)), 5000, false)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	require.Equal(t, frame, samples[0].Data)
	require.Equal(t, frame, samples[1].Data)
	require.Equal(t, 0, r.silentGapCount)

	// Back-to-back frames in one chunk must get strictly increasing
	// timestamps, not the same chunk-nominal time repeated.
	require.Equal(t, int64(5000), samples[0].TimeUs)
	require.Equal(t, int64(5000)+mp3FrameDurationUs(44100), samples[1].TimeUs)
}

func TestMp3ChunkReaderAdvancesClockAcrossChunks(t *testing.T) {
	frame := mp3FrameBytes(t)
	r := newMp3ChunkReader(&StreamDescriptor{StreamID: 0}, slog.Default())

	first, err := r.ReadChunk(newTestByteCursor(frame), uint32(len(frame)), 0, false)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, int64(0), first[0].TimeUs)

	// A second chunk's caller-supplied timeUs (an index-derived
	// estimate) must not override the reader's own running clock once
	// established.
	second, err := r.ReadChunk(newTestByteCursor(frame), uint32(len(frame)), 999999, false)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, mp3FrameDurationUs(44100), second[0].TimeUs)
}

func TestMp3ChunkReaderSkipsLeadingID3Tag(t *testing.T) {
	frame := mp3FrameBytes(t)

	// Build a real tag through id3v2 itself rather than hand-rolling
	// frame bytes, so the fixture has genuine frames and tag.Size()
	// reports the tag's actual length.
	tag := id3v2.NewEmptyTag()
	tag.SetVersion(3)
	tag.SetTitle("hi")
	var id3Buf bytes.Buffer
	_, err := tag.WriteTo(&id3Buf)
	require.NoError(t, err)

	raw := append(append([]byte{}, id3Buf.Bytes()...), frame...)
	cur := newTestByteCursor(raw)

	r := newMp3ChunkReader(&StreamDescriptor{StreamID: 0}, slog.Default())
	samples, err := r.ReadChunk(cur, uint32(len(raw)), 0, true)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, frame, samples[0].Data)
}

func TestMp3ChunkReaderDropsChunkWithNoSync(t *testing.T) {
	raw := bytes.Repeat([]byte{0x00}, 32)
	cur := newTestByteCursor(raw)

	r := newMp3ChunkReader(&StreamDescriptor{StreamID: 0, SampleRate: 44100}, slog.Default())
	samples, err := r.ReadChunk(cur, uint32(len(raw)), 2000, true)
	require.NoError(t, err)
	require.Empty(t, samples)
	require.Equal(t, int64(2000)+mp3FrameDurationUs(44100), r.nextTimeUs)
}

func TestMp3ChunkReaderEmptyChunkAdvancesClockWithNoSample(t *testing.T) {
	cur := newTestByteCursor(nil)

	r := newMp3ChunkReader(&StreamDescriptor{StreamID: 0, SampleRate: 44100}, slog.Default())
	samples, err := r.ReadChunk(cur, 0, 1000, true)
	require.NoError(t, err)
	require.Empty(t, samples)
	require.Equal(t, int64(1000)+mp3FrameDurationUs(44100), r.nextTimeUs)
}

func ac3FrameBytes() []byte {
	size, _ := ac3FrameSizeBytes(0, 0) // 48kHz, frmsizecod 0
	frame := make([]byte, size)
	frame[0], frame[1] = 0x0B, 0x77
	frame[4] = 0x00 // fscod=0, frmsizecod=0
	return frame
}

func TestAc3ChunkReaderFindsSyncFrame(t *testing.T) {
	frame := ac3FrameBytes()
	cur := newTestByteCursor(frame)

	r := newAc3ChunkReader(&StreamDescriptor{StreamID: 1}, slog.Default())
	samples, err := r.ReadChunk(cur, uint32(len(frame)), 1000, false)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, frame, samples[0].Data)
	require.True(t, samples[0].IsKeyFrame)
}

func TestAc3ChunkReaderFallsBackWhenNoSyncAtStart(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAA}, 16)
	cur := newTestByteCursor(raw)

	r := newAc3ChunkReader(&StreamDescriptor{StreamID: 1}, slog.Default())
	samples, err := r.ReadChunk(cur, uint32(len(raw)), 1000, true)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.Equal(t, raw, samples[0].Data)
}

func TestNewChunkReaderSelectsByCodec(t *testing.T) {
	video := newChunkReader(&StreamDescriptor{TrackType: TrackVideo}, nil)
	_, ok := video.(*videoChunkReader)
	require.True(t, ok)

	mp3 := newChunkReader(&StreamDescriptor{TrackType: TrackAudio, AudioCodec: AudioCodecMP3}, nil)
	_, ok = mp3.(*mp3ChunkReader)
	require.True(t, ok)

	ac3 := newChunkReader(&StreamDescriptor{TrackType: TrackAudio, AudioCodec: AudioCodecAC3}, nil)
	_, ok = ac3.(*ac3ChunkReader)
	require.True(t, ok)

	pcm := newChunkReader(&StreamDescriptor{TrackType: TrackAudio, AudioCodec: AudioCodecPCM}, nil)
	_, ok = pcm.(*pcmChunkReader)
	require.True(t, ok)
}
