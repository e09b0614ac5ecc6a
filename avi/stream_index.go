package avi

import "log/slog"

// StreamIndex is the seek-table component for one stream: it owns the
// idx1 keyframe table, the OpenDML super-index (if present), and the
// bookkeeping needed to answer "what time does this byte belong to"
// and "what byte do I seek to for this time" without ever decoding a
// frame. See spec.md §4.2.
type StreamIndex struct {
	desc    *StreamDescriptor
	idx1    idx1Store
	super   *superIndex
	pending *PendingSeek
	log     *slog.Logger
}

func newStreamIndex(desc *StreamDescriptor, log *slog.Logger) *StreamIndex {
	if log == nil {
		log = slog.Default()
	}
	return &StreamIndex{desc: desc, log: log}
}

// appendIdx1KeyFrame records one keyframe entry while idx1 is being
// parsed. atOrdinal is the chunk ordinal observed so far for this
// stream (before incrementIdx1ChunkCount is called for this entry).
func (si *StreamIndex) appendIdx1KeyFrame(offset uint64, size uint32) {
	si.idx1.appendKeyFrame(offset, size, si.idx1.chunkCount)
}

// incrementIdx1ChunkCount is called for every idx1 entry belonging to
// this stream, keyframe or not.
func (si *StreamIndex) incrementIdx1ChunkCount() {
	si.idx1.incrementChunkCount()
}

// finishIdx1 compacts the keyframe table once the idx1 chunk has been
// fully consumed.
func (si *StreamIndex) finishIdx1() {
	si.idx1.Compact()
}

// installSuperIndex is called once from hdrl parsing when this
// stream's strl carries an indx chunk. entries is the super-index row
// table; every segment starts out unloaded.
func (si *StreamIndex) installSuperIndex(entries []SuperIndexEntry) {
	si.super = newSuperIndex(entries)
}

// hasSuperIndex reports whether this stream uses OpenDML indexing.
func (si *StreamIndex) hasSuperIndex() bool {
	return si.super != nil
}

// installStandardIndex installs the parsed contents of one ix##
// chunk. segmentIndex identifies which super-index row this segment
// answers; calling this twice for the same segmentIndex is a no-op,
// matching spec.md §4.2's "idempotent" requirement — the demuxer may
// re-encounter the same ix## chunk while re-scanning movi for a
// different stream's pending seek.
func (si *StreamIndex) installStandardIndex(segmentIndex int, seg StandardIndexSegment) {
	if si.super == nil || segmentIndex < 0 || segmentIndex >= len(si.super.segments) {
		return
	}
	if si.super.segments[segmentIndex].Loaded {
		return
	}
	seg.Loaded = true
	seg.CumulativeKeyBytes = make([]uint64, len(seg.KeyFrameSizes))
	var running uint64
	for i, sz := range seg.KeyFrameSizes {
		running += uint64(sz)
		seg.CumulativeKeyBytes[i] = running
	}
	si.super.segments[segmentIndex] = seg

	if si.pending != nil && si.pending.SegmentIndex == segmentIndex {
		si.pending = nil
	}
}

// allFramesIndexed reports whether every frame of this stream has a
// known ordinal — either because idx1 carries one entry per frame, or
// because every OpenDML segment has been loaded and their summed
// entry counts equal the stream's declared frame count. In that case
// timestampForOffset/seekPoints can use exact chunk-ordinal arithmetic
// instead of byte-proportion estimates.
func (si *StreamIndex) allFramesIndexed() bool {
	if si.desc.FrameCount <= 0 {
		return false
	}
	if si.super == nil {
		return si.idx1.chunkCount == si.desc.FrameCount
	}
	return si.super.allLoaded() && si.super.totalEntryCount() == si.desc.FrameCount
}

// flattenKeyframes builds a single offset-sorted (offset, ordinal)
// table out of whichever source is authoritative for the all-frames-
// indexed case: idx1 if it was populated, else the concatenation of
// every (necessarily loaded, by allFramesIndexed's precondition)
// OpenDML segment in indx row order.
func (si *StreamIndex) flattenKeyframes() (offsets []uint64, ordinals []int64) {
	if si.idx1.Len() > 0 || si.super == nil {
		return si.idx1.offsets, si.idx1.ordinals
	}
	for i := range si.super.segments {
		seg := &si.super.segments[i]
		base := si.super.globalOrdinalBase(i)
		offsets = append(offsets, seg.KeyFrameOffsets...)
		for _, o := range seg.KeyFrameGlobalOrdinals {
			ordinals = append(ordinals, base+o)
		}
	}
	return
}

func floorByOffset(offsets []uint64, offset uint64) (int, bool) {
	n := len(offsets)
	if n == 0 {
		return 0, false
	}
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if offsets[mid] > offset {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	if lo == 0 {
		return 0, false
	}
	return lo - 1, true
}

func floorByOrdinal(ordinals []int64, target int64) (int, bool) {
	n := len(ordinals)
	if n == 0 {
		return 0, false
	}
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if ordinals[mid] > target {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	if lo == 0 {
		return 0, false
	}
	return lo - 1, true
}

// segmentIndexForTime maps a presentation time to the super-index row
// whose ticks range contains it, using cumulativeTicks scaled against
// the stream's declared duration.
func (si *StreamIndex) segmentIndexForTime(timeUs int64) int {
	total := si.super.totalTicks()
	n := len(si.super.cumulativeTicks)
	if total == 0 || n == 0 || si.desc.DurationUs <= 0 {
		return 0
	}
	targetTick := uint64(timeUs) * total / uint64(si.desc.DurationUs)
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		if si.super.cumulativeTicks[mid] > targetTick {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	if lo >= n {
		lo = n - 1
	}
	return lo
}

func (si *StreamIndex) timeUsForTick(tick uint64) int64 {
	total := si.super.totalTicks()
	if total == 0 {
		return 0
	}
	return int64(tick * uint64(si.desc.DurationUs) / total)
}

// timestampForOffset derives a presentation timestamp for a chunk at
// byteOffset without decoding it, using whichever of the three
// strategies in spec.md §4.2 applies:
//
//  1. all frames indexed: binary-search the flattened keyframe table
//     by offset, then scale the floor entry's chunk ordinal against
//     the declared frame count and duration.
//  2. a loaded OpenDML segment covers the offset: within that
//     segment, take the floor keyframe's cumulative-byte proportion,
//     scale it across the segment's own ticks range, then convert
//     ticks to time.
//  3. sparse idx1 (no OpenDML, not every frame indexed): take the
//     floor keyframe's cumulative-byte proportion across the whole
//     stream and scale it by total duration.
func (si *StreamIndex) timestampForOffset(offset uint64) (int64, bool) {
	if si.allFramesIndexed() {
		offsets, ordinals := si.flattenKeyframes()
		i, ok := floorByOffset(offsets, offset)
		if !ok {
			return 0, false
		}
		frac := float64(ordinals[i]) / float64(si.desc.FrameCount)
		return int64(frac * float64(si.desc.DurationUs)), true
	}

	if si.super != nil {
		if segIdx, ok := si.super.segmentIndexForOffset(offset); ok {
			seg := &si.super.segments[segIdx]
			i, ok := seg.floorByOffset(offset)
			if !ok {
				return 0, false
			}
			total := seg.totalKeyBytes()
			if total == 0 {
				return 0, false
			}
			frac := float64(seg.CumulativeKeyBytes[i]) / float64(total)
			start, end := si.super.ticksRangeForSegment(segIdx)
			tick := start + uint64(frac*float64(end-start))
			return si.timeUsForTick(tick), true
		}
		return 0, false
	}

	total := si.idx1.totalKeyFrameBytes()
	if total == 0 {
		return 0, false
	}
	i, ok := si.idx1.floorIndexByOffset(offset)
	if !ok {
		return 0, false
	}
	frac := float64(si.idx1.cumulative[i]) / float64(total)
	return int64(frac * float64(si.desc.DurationUs)), true
}

// seekPoints answers "where do I seek to land at or before timeUs",
// following the tie-break rule in spec.md §4.2: prefer the floor
// keyframe; if it exactly matches the target unit return only it;
// otherwise return it paired with its successor (unless it is the
// last keyframe, in which case there is no successor to pair with).
func (si *StreamIndex) seekPoints(timeUs int64) SeekAnswer {
	if si.desc.DurationUs <= 0 {
		return SeekAnswer{Ready: true, First: SeekPoint{TimeUs: 0}}
	}

	if si.allFramesIndexed() {
		offsets, ordinals := si.flattenKeyframes()
		if len(ordinals) == 0 {
			return SeekAnswer{Ready: true}
		}
		targetFrame := int64(float64(timeUs) / float64(si.desc.DurationUs) * float64(si.desc.FrameCount))
		i, ok := floorByOrdinal(ordinals, targetFrame)
		if !ok {
			i = 0
		}
		answer := si.answerFromFlat(offsets, ordinals, i)
		if ordinals[i] == targetFrame {
			answer.Second, answer.HasSecond = SeekPoint{}, false
		}
		return answer
	}

	if si.super != nil {
		segIdx := si.segmentIndexForTime(timeUs)
		seg := &si.super.segments[segIdx]
		if !seg.Loaded {
			p := &PendingSeek{SegmentIndex: segIdx, ByteOffset: si.super.entries[segIdx].IxChunkOffset}
			si.pending = p
			return SeekAnswer{Pending: p}
		}
		start, end := si.super.ticksRangeForSegment(segIdx)
		targetTick := uint64(timeUs) * si.super.totalTicks() / uint64(si.desc.DurationUs)
		var frac float64
		if end > start {
			frac = float64(targetTick-start) / float64(end-start)
		}
		targetBytes := uint64(frac * float64(seg.totalKeyBytes()))
		i, ok := seg.floorByCumulativeBytes(targetBytes)
		if !ok {
			i = 0
		}
		answer := si.answerFromSegment(segIdx, i)
		if seg.CumulativeKeyBytes[i] == targetBytes {
			answer.Second, answer.HasSecond = SeekPoint{}, false
		}
		return answer
	}

	total := si.idx1.totalKeyFrameBytes()
	if total == 0 || si.idx1.Len() == 0 {
		return SeekAnswer{Ready: true}
	}
	targetBytes := uint64(float64(timeUs) / float64(si.desc.DurationUs) * float64(total))
	i, ok := si.idx1.floorIndexByCumulativeBytes(targetBytes)
	if !ok {
		i = 0
	}
	answer := si.answerFromIdx1(i)
	if si.idx1.cumulative[i] == targetBytes {
		answer.Second, answer.HasSecond = SeekPoint{}, false
	}
	return answer
}

func (si *StreamIndex) answerFromFlat(offsets []uint64, ordinals []int64, i int) SeekAnswer {
	first := SeekPoint{
		TimeUs:     int64(float64(ordinals[i]) / float64(si.desc.FrameCount) * float64(si.desc.DurationUs)),
		ByteOffset: offsets[i],
	}
	if i+1 >= len(offsets) {
		return SeekAnswer{Ready: true, First: first}
	}
	second := SeekPoint{
		TimeUs:     int64(float64(ordinals[i+1]) / float64(si.desc.FrameCount) * float64(si.desc.DurationUs)),
		ByteOffset: offsets[i+1],
	}
	return SeekAnswer{Ready: true, First: first, Second: second, HasSecond: true}
}

func (si *StreamIndex) answerFromSegment(segIdx, i int) SeekAnswer {
	seg := &si.super.segments[segIdx]
	start, end := si.super.ticksRangeForSegment(segIdx)
	total := seg.totalKeyBytes()

	pointAt := func(idx int) SeekPoint {
		frac := float64(seg.CumulativeKeyBytes[idx]) / float64(total)
		tick := start + uint64(frac*float64(end-start))
		return SeekPoint{TimeUs: si.timeUsForTick(tick), ByteOffset: seg.KeyFrameOffsets[idx]}
	}

	first := pointAt(i)
	if i+1 >= len(seg.KeyFrameOffsets) {
		return SeekAnswer{Ready: true, First: first}
	}
	return SeekAnswer{Ready: true, First: first, Second: pointAt(i + 1), HasSecond: true}
}

func (si *StreamIndex) answerFromIdx1(i int) SeekAnswer {
	total := si.idx1.totalKeyFrameBytes()
	pointAt := func(idx int) SeekPoint {
		frac := float64(si.idx1.cumulative[idx]) / float64(total)
		return SeekPoint{
			TimeUs:     int64(frac * float64(si.desc.DurationUs)),
			ByteOffset: si.idx1.offsets[idx],
		}
	}
	first := pointAt(i)
	if i+1 >= si.idx1.Len() {
		return SeekAnswer{Ready: true, First: first}
	}
	return SeekAnswer{Ready: true, First: first, Second: pointAt(i + 1), HasSecond: true}
}

// isKeyFrameOffset reports whether the chunk at byteOffset is a
// keyframe, consulting whichever index data is currently available —
// the idx1 keyframe table (populated incrementally as idx1 is parsed,
// so this also works before finishIdx1 has run) if it has any entries
// yet, else a loaded OpenDML segment covering the offset. It falls
// back to true only when neither source has anything to say about
// this offset yet, matching spec.md §4.3.1's "key-frame flag is set
// when the chunk offset is present in the keyframe index or in a
// loaded standard-index segment" — everything else is assumed a
// keyframe rather than assumed not one.
func (si *StreamIndex) isKeyFrameOffset(byteOffset uint64) bool {
	if si.idx1.Len() > 0 {
		return si.idx1.isKeyFrameOffset(byteOffset)
	}
	if si.super != nil {
		if segIdx, ok := si.super.segmentIndexForOffset(byteOffset); ok {
			seg := &si.super.segments[segIdx]
			i, ok := seg.floorByOffset(byteOffset)
			return ok && seg.KeyFrameOffsets[i] == byteOffset
		}
	}
	return true
}

// pendingSeekOffset reports the byte offset the demuxer must reposition
// to in order to resolve an outstanding pending seek, if any.
func (si *StreamIndex) pendingSeekOffset() (uint64, bool) {
	if si.pending == nil {
		return 0, false
	}
	return si.pending.ByteOffset, true
}

// willSeekTo reports whether a chunk observed at position, presenting
// at timeUs, would be the destination of a seek to timeUs — i.e.
// whether the demuxer may stop repositioning once it reaches it. The
// demuxer does not call it; Seek reads seekPoints directly.
func (si *StreamIndex) willSeekTo(position uint64, timeUs int64) bool {
	answer := si.seekPoints(timeUs)
	if answer.Pending != nil || !answer.Ready {
		return false
	}
	return answer.First.ByteOffset == position
}
