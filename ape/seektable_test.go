package ape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildFramesRelativeOffsets(t *testing.T) {
	h := Header{
		SampleRate:       44100,
		BlocksPerFrame:   73728,
		FinalFrameBlocks: 10000,
		FrameDataOffset:  1000,
		SeekTableEntries: []uint32{0, 5000, 10000},
	}
	frames := BuildFrames(h, false)
	require.Len(t, frames, 3)
	require.Equal(t, int64(1000), frames[0].FileOffset)
	require.Equal(t, int64(6000), frames[1].FileOffset)
	require.Equal(t, uint32(73728), frames[0].BlockCount)
	require.Equal(t, uint32(10000), frames[2].BlockCount) // last frame uses FinalFrameBlocks
	require.Equal(t, int64(0), frames[0].TimeUs)

	blockDurationUs := int64(1_000_000) / 44100
	require.Equal(t, blockDurationUs*73728, frames[1].TimeUs)
}

func TestBuildFramesAbsoluteOffsets(t *testing.T) {
	h := Header{
		SampleRate:       44100,
		BlocksPerFrame:   73728,
		FrameDataOffset:  1000,
		SeekTableEntries: []uint32{2000, 7000},
	}
	frames := BuildFrames(h, true)
	require.Equal(t, int64(2000), frames[0].FileOffset)
	require.Equal(t, int64(7000), frames[1].FileOffset)
}

func TestBuildFramesZeroSampleRateProducesZeroDurations(t *testing.T) {
	h := Header{SeekTableEntries: []uint32{0, 100}}
	frames := BuildFrames(h, true)
	require.Equal(t, int64(0), frames[0].TimeUs)
	require.Equal(t, int64(0), frames[1].TimeUs)
}

func TestTotalDurationUs(t *testing.T) {
	h := Header{
		SampleRate:       44100,
		BlocksPerFrame:   73728,
		FinalFrameBlocks: 1000,
		SeekTableEntries: []uint32{0, 100, 200},
	}
	got := TotalDurationUs(h)
	want := int64((uint64(73728)*2 + 1000) * 1_000_000 / 44100)
	require.Equal(t, want, got)
}

func TestTotalDurationUsEmptyTable(t *testing.T) {
	require.Equal(t, int64(0), TotalDurationUs(Header{SampleRate: 44100}))
	require.Equal(t, int64(0), TotalDurationUs(Header{SeekTableEntries: []uint32{1}}))
}
