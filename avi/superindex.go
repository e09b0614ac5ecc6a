package avi

import "sort"

// SuperIndexEntry is one row of an OpenDML "indx" super-index: a
// pointer to one "ix##" standard-index chunk plus its share of the
// stream's total duration.
type SuperIndexEntry struct {
	IxChunkOffset  uint64
	IxChunkSize    uint32
	DurationTicks  uint64
}

// StandardIndexSegment is the parsed form of one "ix##" chunk. Only
// keyframe entries are retained (spec.md §3); TotalEntryCount is kept
// separately so the next segment's global ordinal numbering is
// correct even though non-key entries are discarded.
type StandardIndexSegment struct {
	BaseOffset             uint64
	KeyFrameOffsets        []uint64
	KeyFrameGlobalOrdinals []int64
	KeyFrameSizes          []uint32
	CumulativeKeyBytes     []uint64
	TotalEntryCount        int64
	Loaded                 bool
}

func (s *StandardIndexSegment) floorByOffset(offset uint64) (int, bool) {
	n := len(s.KeyFrameOffsets)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return s.KeyFrameOffsets[i] > offset })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

func (s *StandardIndexSegment) floorByCumulativeBytes(targetBytes uint64) (int, bool) {
	n := len(s.CumulativeKeyBytes)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return s.CumulativeKeyBytes[i] > targetBytes })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

func (s *StandardIndexSegment) totalKeyBytes() uint64 {
	if n := len(s.CumulativeKeyBytes); n > 0 {
		return s.CumulativeKeyBytes[n-1]
	}
	return 0
}

// superIndex aggregates the indx row(s) and their lazily-loaded
// standard-index segments for one stream.
type superIndex struct {
	entries         []SuperIndexEntry
	cumulativeTicks []uint64
	segments        []StandardIndexSegment
}

func newSuperIndex(entries []SuperIndexEntry) *superIndex {
	si := &superIndex{
		entries:  entries,
		segments: make([]StandardIndexSegment, len(entries)),
	}
	si.cumulativeTicks = make([]uint64, len(entries))
	var running uint64
	for i, e := range entries {
		running += e.DurationTicks
		si.cumulativeTicks[i] = running
		si.segments[i].BaseOffset = 0 // filled in once the ix## chunk is loaded
	}
	return si
}

func (si *superIndex) totalTicks() uint64 {
	if len(si.cumulativeTicks) == 0 {
		return 0
	}
	return si.cumulativeTicks[len(si.cumulativeTicks)-1]
}

// ticksRangeForSegment returns [start,end) ticks covered by segment i.
func (si *superIndex) ticksRangeForSegment(i int) (start, end uint64) {
	if i > 0 {
		start = si.cumulativeTicks[i-1]
	}
	end = si.cumulativeTicks[i]
	return
}

// globalOrdinalBase returns the running count of all entries in every
// segment before i (loaded or not — an unloaded segment contributes
// nothing yet, which is fine because its own ordinals aren't asked
// for until it is loaded).
func (si *superIndex) globalOrdinalBase(i int) int64 {
	var base int64
	for j := 0; j < i; j++ {
		base += si.segments[j].TotalEntryCount
	}
	return base
}

// segmentIndexForOffset finds which super-index row's ix## chunk
// would contain chunk payload at byteOffset, using the loaded
// segments' byte ranges when available, else falling back to the
// indx row ordering (segments are contiguous in the file in the
// common case, but nothing here assumes that beyond using it as a
// last resort to pick a pending target).
func (si *superIndex) segmentIndexForOffset(byteOffset uint64) (int, bool) {
	for i := range si.segments {
		seg := &si.segments[i]
		if !seg.Loaded || len(seg.KeyFrameOffsets) == 0 {
			continue
		}
		first := seg.KeyFrameOffsets[0]
		last := seg.KeyFrameOffsets[len(seg.KeyFrameOffsets)-1]
		if byteOffset >= first && byteOffset <= last {
			return i, true
		}
	}
	return 0, false
}

// allLoaded reports whether every segment has been installed.
func (si *superIndex) allLoaded() bool {
	for i := range si.segments {
		if !si.segments[i].Loaded {
			return false
		}
	}
	return true
}

func (si *superIndex) totalEntryCount() int64 {
	var total int64
	for i := range si.segments {
		total += si.segments[i].TotalEntryCount
	}
	return total
}
