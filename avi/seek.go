package avi

// PendingSeek records that a seek request landed inside a
// not-yet-loaded OpenDML segment: the demuxer must route to
// IxChunkOffset, load that segment, then re-ask.
type PendingSeek struct {
	SegmentIndex int
	ByteOffset   uint64
}

// SeekPoint is one (timeUs, byteOffset) candidate returned from
// seekPoints.
type SeekPoint struct {
	TimeUs     int64
	ByteOffset uint64
}

// SeekAnswer is the sum type StreamIndex.seekPoints returns: either a
// concrete set of candidate points, or a Pending detour the demuxer
// must satisfy first. Exactly one of the two is populated, per
// spec.md §9 ("Pending seek coordination").
type SeekAnswer struct {
	Ready   bool
	First   SeekPoint
	Second  SeekPoint
	HasSecond bool
	Pending *PendingSeek
}
