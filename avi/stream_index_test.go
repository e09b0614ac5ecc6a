package avi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sparseIdx1Stream() *StreamIndex {
	desc := &StreamDescriptor{StreamID: 0, TrackType: TrackVideo, FrameCount: 100, DurationUs: 4_000_000}
	si := newStreamIndex(desc, nil)
	si.appendIdx1KeyFrame(1000, 500)
	si.incrementIdx1ChunkCount()
	si.appendIdx1KeyFrame(2000, 500)
	si.incrementIdx1ChunkCount()
	si.appendIdx1KeyFrame(3000, 500)
	si.incrementIdx1ChunkCount()
	si.finishIdx1()
	return si
}

func TestTimestampForOffsetSparseIdx1(t *testing.T) {
	si := sparseIdx1Stream()

	ts, ok := si.timestampForOffset(1000)
	require.True(t, ok)
	require.InDelta(t, 1_333_333, ts, 5000)

	ts, ok = si.timestampForOffset(2000)
	require.True(t, ok)
	require.InDelta(t, 2_666_667, ts, 5000)

	ts, ok = si.timestampForOffset(3500)
	require.True(t, ok)
	require.InDelta(t, 4_000_000, ts, 5000)
}

func TestSeekPointsSparseIdx1FloorsToFirstKeyframe(t *testing.T) {
	si := sparseIdx1Stream()
	answer := si.seekPoints(0)
	require.True(t, answer.Ready)
	require.Nil(t, answer.Pending)
	require.Equal(t, uint64(1000), answer.First.ByteOffset)
	require.True(t, answer.HasSecond)
	require.Equal(t, uint64(2000), answer.Second.ByteOffset)
}

func TestSeekPointsLastKeyframeHasNoSuccessor(t *testing.T) {
	si := sparseIdx1Stream()
	answer := si.seekPoints(4_000_000)
	require.True(t, answer.Ready)
	require.Equal(t, uint64(3000), answer.First.ByteOffset)
	require.False(t, answer.HasSecond)
}

func TestSeekPointsFloorAndSuccessor(t *testing.T) {
	si := sparseIdx1Stream()
	answer := si.seekPoints(1_500_000)
	require.True(t, answer.Ready)
	require.Equal(t, uint64(1000), answer.First.ByteOffset)
	require.True(t, answer.HasSecond)
	require.Equal(t, uint64(2000), answer.Second.ByteOffset)
}

func TestAllFramesIndexedUsesExactOrdinalArithmetic(t *testing.T) {
	desc := &StreamDescriptor{StreamID: 0, TrackType: TrackVideo, FrameCount: 4, DurationUs: 4_000_000}
	si := newStreamIndex(desc, nil)
	for i := 0; i < 4; i++ {
		si.appendIdx1KeyFrame(uint64(1000*(i+1)), 500)
		si.incrementIdx1ChunkCount()
	}
	si.finishIdx1()
	require.True(t, si.allFramesIndexed())

	ts, ok := si.timestampForOffset(3000)
	require.True(t, ok)
	require.Equal(t, int64(2_000_000), ts)
}

func TestOpenDMLSuperIndexPendingSeekThenResolved(t *testing.T) {
	desc := &StreamDescriptor{StreamID: 0, TrackType: TrackVideo, FrameCount: 10, DurationUs: 10_000_000}
	si := newStreamIndex(desc, nil)
	si.installSuperIndex([]SuperIndexEntry{
		{IxChunkOffset: 5000, IxChunkSize: 100, DurationTicks: 5_000_000},
		{IxChunkOffset: 9000, IxChunkSize: 100, DurationTicks: 5_000_000},
	})
	require.True(t, si.hasSuperIndex())

	answer := si.seekPoints(7_000_000)
	require.False(t, answer.Ready)
	require.NotNil(t, answer.Pending)
	require.Equal(t, 1, answer.Pending.SegmentIndex)

	si.installStandardIndex(1, StandardIndexSegment{
		KeyFrameOffsets:        []uint64{9100, 9200, 9300},
		KeyFrameSizes:          []uint32{50, 50, 50},
		KeyFrameGlobalOrdinals: []int64{0, 1, 2},
		TotalEntryCount:        3,
	})

	answer = si.seekPoints(7_000_000)
	require.True(t, answer.Ready)
	require.Nil(t, answer.Pending)
}

func TestInstallStandardIndexIsIdempotent(t *testing.T) {
	desc := &StreamDescriptor{StreamID: 0, TrackType: TrackVideo, FrameCount: 10, DurationUs: 10_000_000}
	si := newStreamIndex(desc, nil)
	si.installSuperIndex([]SuperIndexEntry{{IxChunkOffset: 100, DurationTicks: 10_000_000}})

	si.installStandardIndex(0, StandardIndexSegment{
		KeyFrameOffsets: []uint64{200}, KeyFrameSizes: []uint32{10}, TotalEntryCount: 1,
	})
	first := si.super.segments[0]

	si.installStandardIndex(0, StandardIndexSegment{
		KeyFrameOffsets: []uint64{9999}, KeyFrameSizes: []uint32{1}, TotalEntryCount: 99,
	})
	require.Equal(t, first, si.super.segments[0])
}

func TestFloorByOffsetAndOrdinal(t *testing.T) {
	offsets := []uint64{10, 20, 30}
	i, ok := floorByOffset(offsets, 25)
	require.True(t, ok)
	require.Equal(t, 1, i)

	_, ok = floorByOffset(offsets, 5)
	require.False(t, ok)

	ordinals := []int64{0, 5, 10}
	i, ok = floorByOrdinal(ordinals, 7)
	require.True(t, ok)
	require.Equal(t, 1, i)
}
