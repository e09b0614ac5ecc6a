package avi

import "sort"

// TrackOutput receives the samples the demuxer produces for one
// track, in presentation order within that track (but interleaved
// with other tracks at the AviDemuxer level — see demuxer.go).
type TrackOutput interface {
	WriteSample(s Sample) error
}

// TrackSink is a TrackOutput plus random access into what it has
// already buffered, needed by the extract/seek CLI subcommands to
// answer "give me everything from this track between these two
// timestamps" without re-demuxing.
type TrackSink interface {
	TrackOutput
	Samples() []Sample
	SeekMap() SeekMap
}

// SeekMap is the read side of a TrackSink: the presentation
// timestamps and byte offsets (within the sink's own buffer, not the
// source file) of every sample written so far, plus lookup by time.
type SeekMap interface {
	Len() int
	TimeUsAt(i int) int64
	FloorIndexForTime(timeUs int64) (int, bool)
}

// MemoryTrackSink is the reference TrackSink: it buffers every
// sample's bytes in a SeekableBuffer (the teacher's buffer.go,
// repurposed here as a per-track sample store instead of a whole-file
// muxer scratch buffer) and keeps a parallel sample-metadata slice for
// SeekMap lookups.
type MemoryTrackSink struct {
	buf     *SeekableBuffer
	offsets []int64
	sizes   []int
	times   []int64
	keyOnly []bool
}

func NewMemoryTrackSink() *MemoryTrackSink {
	return &MemoryTrackSink{buf: NewSeekableBuffer()}
}

func (m *MemoryTrackSink) WriteSample(s Sample) error {
	offset := int64(m.buf.Len())
	if _, err := m.buf.Write(s.Data); err != nil {
		return err
	}
	m.offsets = append(m.offsets, offset)
	m.sizes = append(m.sizes, len(s.Data))
	m.times = append(m.times, s.TimeUs)
	m.keyOnly = append(m.keyOnly, s.IsKeyFrame)
	return nil
}

func (m *MemoryTrackSink) Samples() []Sample {
	out := make([]Sample, len(m.offsets))
	all := m.buf.Bytes()
	for i := range out {
		out[i] = Sample{
			Data:       all[m.offsets[i] : m.offsets[i]+int64(m.sizes[i])],
			TimeUs:     m.times[i],
			IsKeyFrame: m.keyOnly[i],
		}
	}
	return out
}

func (m *MemoryTrackSink) SeekMap() SeekMap { return (*memorySeekMap)(m) }

type memorySeekMap MemoryTrackSink

func (m *memorySeekMap) Len() int { return len(m.times) }

func (m *memorySeekMap) TimeUsAt(i int) int64 { return m.times[i] }

func (m *memorySeekMap) FloorIndexForTime(timeUs int64) (int, bool) {
	n := len(m.times)
	if n == 0 {
		return 0, false
	}
	i := sort.Search(n, func(i int) bool { return m.times[i] > timeUs })
	if i == 0 {
		return 0, false
	}
	return i - 1, true
}

// ExtractorOutput fans out demuxed samples to one TrackOutput per
// stream, keyed by StreamDescriptor.StreamID. It is what AviDemuxer
// writes to; callers supply whichever TrackOutput implementation they
// want per track (MemoryTrackSink, a file writer, ...).
type ExtractorOutput struct {
	tracks map[int]TrackOutput
}

func NewExtractorOutput() *ExtractorOutput {
	return &ExtractorOutput{tracks: make(map[int]TrackOutput)}
}

func (e *ExtractorOutput) SetTrack(streamID int, out TrackOutput) {
	e.tracks[streamID] = out
}

func (e *ExtractorOutput) Track(streamID int) (TrackOutput, bool) {
	t, ok := e.tracks[streamID]
	return t, ok
}

func (e *ExtractorOutput) WriteSample(streamID int, s Sample) error {
	out, ok := e.tracks[streamID]
	if !ok {
		return nil
	}
	return out.WriteSample(s)
}
