package ape

// Frame is one reconstructed Monkey's Audio frame: a byte offset into
// the file and the presentation time it starts at. Every frame but the
// last covers Header.BlocksPerFrame audio blocks; the last covers
// Header.FinalFrameBlocks.
type Frame struct {
	FileOffset int64
	BlockCount uint32
	TimeUs     int64
}

// BuildFrames reconstructs the per-frame table from a parsed Header's
// seek table. Seek-table entries are byte offsets; the 3980+ dialect
// stores them relative to FrameDataOffset, while pre-3980 files store
// absolute file offsets — absoluteOffsets is passed in so the caller can
// supply whichever is correct once it knows the dialect (ParseHeader
// already resolved it, so NewIndexer always passes the right one).
func BuildFrames(h Header, absoluteOffsets bool) []Frame {
	frames := make([]Frame, len(h.SeekTableEntries))
	var t int64
	blockDurationUs := int64(0)
	if h.SampleRate > 0 {
		blockDurationUs = 1_000_000 / int64(h.SampleRate)
	}
	for i, raw := range h.SeekTableEntries {
		offset := int64(raw)
		if !absoluteOffsets {
			offset += h.FrameDataOffset
		}
		blocks := h.BlocksPerFrame
		if i == len(h.SeekTableEntries)-1 && h.FinalFrameBlocks > 0 {
			blocks = h.FinalFrameBlocks
		}
		frames[i] = Frame{FileOffset: offset, BlockCount: blocks, TimeUs: t}
		t += int64(blocks) * blockDurationUs
	}
	return frames
}

// TotalDurationUs sums every frame's block count into microseconds.
func TotalDurationUs(h Header) int64 {
	if h.SampleRate == 0 || len(h.SeekTableEntries) == 0 {
		return 0
	}
	total := uint64(h.BlocksPerFrame) * uint64(len(h.SeekTableEntries)-1)
	total += uint64(h.FinalFrameBlocks)
	return int64(total * 1_000_000 / uint64(h.SampleRate))
}
