package avi

import "sort"

// idx1Store holds one stream's legacy-index keyframe table as a
// struct-of-arrays, per spec.md §9 ("Prefer struct-of-arrays layout
// for the idx1 table for cache-friendliness"). Only keyframe entries
// are retained; appendIdx1KeyFrame is the sole writer, called while
// idx1 is being parsed, then Compact freezes the table.
type idx1Store struct {
	offsets      []uint64
	sizes        []uint32
	ordinals     []int64 // chunkOrdinal at the time this keyframe was appended
	cumulative   []uint64
	chunkCount   int64 // total idx1 entries for the stream, key or not
}

// appendKeyFrame records one keyframe entry. offset/size come straight
// off the wire; atOrdinal is the stream-relative chunk ordinal at the
// time of this call (i.e. chunkCount at the moment the caller observed
// the keyframe flag).
func (s *idx1Store) appendKeyFrame(offset uint64, size uint32, atOrdinal int64) {
	var cum uint64
	if n := len(s.cumulative); n > 0 {
		cum = s.cumulative[n-1]
	}
	s.offsets = append(s.offsets, offset)
	s.sizes = append(s.sizes, size)
	s.ordinals = append(s.ordinals, atOrdinal)
	s.cumulative = append(s.cumulative, cum+uint64(size))
}

func (s *idx1Store) incrementChunkCount() {
	s.chunkCount++
}

// Compact shrinks the backing arrays to exactly their length, per
// spec.md §9 ("compacted once at end-of-idx1 parse").
func (s *idx1Store) Compact() {
	s.offsets = append([]uint64(nil), s.offsets...)
	s.sizes = append([]uint32(nil), s.sizes...)
	s.ordinals = append([]int64(nil), s.ordinals...)
	s.cumulative = append([]uint64(nil), s.cumulative...)
}

func (s *idx1Store) Len() int { return len(s.offsets) }

func (s *idx1Store) totalKeyFrameBytes() uint64 {
	if len(s.cumulative) == 0 {
		return 0
	}
	return s.cumulative[len(s.cumulative)-1]
}

// floorIndexByOffset returns the largest i such that offsets[i] <= offset.
func (s *idx1Store) floorIndexByOffset(offset uint64) (int, bool) {
	n := len(s.offsets)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return s.offsets[i] > offset })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

// floorIndexByOrdinal returns the largest i such that ordinals[i] <= targetOrdinal.
func (s *idx1Store) floorIndexByOrdinal(targetOrdinal int64) (int, bool) {
	n := len(s.ordinals)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return s.ordinals[i] > targetOrdinal })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

// floorIndexByCumulativeBytes returns the largest i such that
// cumulative[i] <= targetBytes.
func (s *idx1Store) floorIndexByCumulativeBytes(targetBytes uint64) (int, bool) {
	n := len(s.cumulative)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return s.cumulative[i] > targetBytes })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

func (s *idx1Store) isKeyFrameOffset(offset uint64) bool {
	i, ok := s.floorIndexByOffset(offset)
	return ok && s.offsets[i] == offset
}
