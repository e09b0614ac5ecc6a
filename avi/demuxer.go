package avi

import (
	"log/slog"

	pkgerrors "github.com/pkg/errors"
)

// ReadResult is what one call to AviDemuxer.Read produced.
type ReadResult int

const (
	// ReadContinue means progress was made (a chunk was consumed,
	// possibly producing samples); call Read again.
	ReadContinue ReadResult = iota
	// ReadSeek means the underlying Input was repositioned (e.g. to
	// satisfy a RequestIndices detour); call Read again.
	ReadSeek
	// ReadEnd means the file (including any AVIX continuations) has
	// been fully consumed.
	ReadEnd
)

type demuxerState int

const (
	stateSkipToHdrl demuxerState = iota
	stateReadHdrlHeader
	stateReadHdrlBody
	stateFindMovi
	stateFindIdx1
	stateReadIdx1
	stateReadSamples
	stateRequestIndices
)

// reloadMinSkip is the default for Config.MinReloadSkipBytes (256 KiB).
// The demuxer itself does not consult it: every reposition, Seek
// included, goes through RandomAccessInput.SeekTo whatever the
// distance, never through SkipFully.
const reloadMinSkip = 256 * 1024

// AviDemuxer is the explicit state machine driving an AVI/OpenDML
// parse from a raw Input to demuxed Samples. Grounded on the teacher's
// Reader.parseFile/parseChunks single-pass walk in the now-removed
// avi/demuxer.go, generalized from "read everything into memory" to
// an explicit resumable state machine so Seek can interleave with
// ReadSamples (spec.md §6).
type AviDemuxer struct {
	state demuxerState
	in    Input
	cur   *ByteCursor
	log   *slog.Logger

	streams    []*StreamDescriptor
	indices    []*StreamIndex
	readers    []ChunkReader
	chunkIDMap map[FourCC]int // "NNdc"/"NNdb"/"NNwb" -> index into streams/indices/readers

	output *ExtractorOutput

	hdrlEnd       int64
	moviDataStart int64
	moviListEnd   int64

	idx1Parsed bool

	// seekTimeUs/seekActive track an in-progress Seek across states.
	seekActive bool
	seekTimeUs int64

	ended bool
}

// NewAviDemuxer constructs a demuxer over in. log may be nil (defaults
// to slog.Default()).
func NewAviDemuxer(in Input, log *slog.Logger) *AviDemuxer {
	if log == nil {
		log = slog.Default()
	}
	return &AviDemuxer{
		state:      stateSkipToHdrl,
		in:         in,
		cur:        NewByteCursor(in),
		log:        log,
		chunkIDMap: make(map[FourCC]int),
	}
}

// SetOutput attaches the sink samples are delivered to. Must be called
// before the first Read that reaches stateReadSamples (i.e. any time
// before or shortly after construction).
func (d *AviDemuxer) SetOutput(out *ExtractorOutput) { d.output = out }

// Streams returns the parsed stream descriptors. Empty until hdrl has
// been consumed.
func (d *AviDemuxer) Streams() []*StreamDescriptor { return d.streams }

// Read advances the state machine by one step.
func (d *AviDemuxer) Read() (ReadResult, error) {
	switch d.state {
	case stateSkipToHdrl:
		return d.doSkipToHdrl()
	case stateReadHdrlHeader:
		return d.doReadHdrlHeader()
	case stateReadHdrlBody:
		return d.doReadHdrlBody()
	case stateFindMovi:
		return d.doFindMovi()
	case stateFindIdx1:
		return d.doFindIdx1()
	case stateReadIdx1:
		return d.doReadIdx1()
	case stateReadSamples:
		return d.doReadSamples()
	case stateRequestIndices:
		return d.doRequestIndices()
	default:
		return ReadEnd, nil
	}
}

// Demux drives Read to completion, useful for callers that don't need
// to interleave a Seek mid-stream.
func (d *AviDemuxer) Demux() error {
	for {
		result, err := d.Read()
		if err != nil {
			return err
		}
		if result == ReadEnd {
			return nil
		}
	}
}

func (d *AviDemuxer) doSkipToHdrl() (ReadResult, error) {
	raw, err := d.cur.Read(12)
	if err != nil {
		return ReadEnd, wrapEOF("doSkipToHdrl", err)
	}
	var hdr riffHeader
	if err := readStruct(raw, &hdr); err != nil {
		return ReadEnd, err
	}
	if FourCC(fourCCFromBytes(hdr.Signature)) != FourCCRIFF {
		return ReadEnd, malformed("doSkipToHdrl", "missing RIFF signature")
	}
	riffType := FourCC(fourCCFromBytes(hdr.Type))
	if riffType != FourCCAVI && riffType != NewFourCC("AVIX") {
		return ReadEnd, malformed("doSkipToHdrl", "unexpected RIFF type %s", riffType)
	}
	d.state = stateReadHdrlHeader
	return ReadContinue, nil
}

func (d *AviDemuxer) doReadHdrlHeader() (ReadResult, error) {
	id, size, err := d.readChunkHeader()
	if err != nil {
		return ReadEnd, err
	}
	if id != FourCCLIST {
		// AVIX continuation RIFFs go straight to movi, no hdrl.
		if err := d.cur.Skip(0); err != nil {
			return ReadEnd, err
		}
		d.state = stateFindMovi
		return ReadContinue, d.unreadChunkHeader(id, size)
	}
	listType, err := d.cur.ReadFourCC()
	if err != nil {
		return ReadEnd, err
	}
	if listType == FourCCmovi {
		// An AVIX continuation RIFF has no hdrl of its own: its very
		// first chunk is "LIST <size> movi", picking up right where
		// the previous RIFF's chunk ordinals left off.
		d.moviDataStart = d.cur.Position()
		d.moviListEnd = d.moviDataStart + int64(AlignedSize(int64(size)-4))
		d.state = stateReadSamples
		return ReadContinue, nil
	}
	if listType != FourCChdrl {
		if err := d.cur.Skip(int64(AlignedSize(int64(size) - 4))); err != nil {
			return ReadEnd, err
		}
		return ReadContinue, nil
	}
	d.hdrlEnd = d.cur.Position() + int64(size) - 4
	d.state = stateReadHdrlBody
	return ReadContinue, nil
}

func (d *AviDemuxer) doReadHdrlBody() (ReadResult, error) {
	for d.cur.Position() < d.hdrlEnd {
		id, size, err := d.readChunkHeader()
		if err != nil {
			return ReadEnd, err
		}
		switch id {
		case FourCCavih:
			if _, err := parseAVIMainHeader(d.cur, size); err != nil {
				return ReadEnd, err
			}
		case FourCCLIST:
			listType, err := d.cur.ReadFourCC()
			if err != nil {
				return ReadEnd, err
			}
			if listType == FourCCstrl {
				parsed, err := parseStrl(d.cur, size-4, len(d.streams))
				if err != nil {
					return ReadEnd, err
				}
				d.registerStream(parsed)
			} else {
				if err := d.cur.Skip(int64(AlignedSize(int64(size) - 4))); err != nil {
					return ReadEnd, err
				}
			}
		default:
			if err := d.cur.Skip(int64(AlignedSize(int64(size)))); err != nil {
				return ReadEnd, err
			}
		}
	}
	d.state = stateFindMovi
	return ReadContinue, nil
}

func (d *AviDemuxer) registerStream(p parsedStrl) {
	idx := newStreamIndex(p.desc, d.log)
	if len(p.superIndex) > 0 {
		idx.installSuperIndex(p.superIndex)
	}
	d.streams = append(d.streams, p.desc)
	d.indices = append(d.indices, idx)
	d.readers = append(d.readers, newChunkReader(p.desc, d.log))

	si := len(d.streams) - 1
	switch p.desc.TrackType {
	case TrackVideo:
		d.chunkIDMap[MakeStreamChunkID(si, "dc")] = si
		d.chunkIDMap[MakeStreamChunkID(si, "db")] = si
	case TrackAudio:
		d.chunkIDMap[MakeStreamChunkID(si, "wb")] = si
	}
}

func (d *AviDemuxer) doFindMovi() (ReadResult, error) {
	for {
		id, size, err := d.readChunkHeader()
		if err != nil {
			return ReadEnd, err
		}
		if id != FourCCLIST {
			if err := d.cur.Skip(int64(AlignedSize(int64(size)))); err != nil {
				return ReadEnd, err
			}
			continue
		}
		listType, err := d.cur.ReadFourCC()
		if err != nil {
			return ReadEnd, err
		}
		if listType != FourCCmovi {
			if err := d.cur.Skip(int64(AlignedSize(int64(size) - 4))); err != nil {
				return ReadEnd, err
			}
			continue
		}
		d.moviDataStart = d.cur.Position()
		d.moviListEnd = d.moviDataStart + int64(AlignedSize(int64(size)-4))
		break
	}
	d.state = stateReadSamples
	return ReadContinue, nil
}

// doFindIdx1 jumps to the end of the movi list to pick up a trailing
// idx1. It is reached from doReadSamples once the cursor arrives at
// moviListEnd with idx1 not yet parsed, and from Seek's early-index
// step while the cursor still sits at moviDataStart, so a seek
// arriving before playback starts doesn't have to linear-scan movi
// first.
func (d *AviDemuxer) doFindIdx1() (ReadResult, error) {
	ra, ok := d.in.(RandomAccessInput)
	if !ok {
		d.state = stateReadSamples
		return ReadContinue, nil
	}
	if err := ra.SeekTo(d.moviListEnd); err != nil {
		d.state = stateReadSamples
		return ReadContinue, nil
	}
	d.cur = NewByteCursor(d.in)
	id, size, err := d.readChunkHeader()
	if err != nil || id != FourCCidx1 {
		if err2 := ra.SeekTo(d.moviDataStart); err2 != nil {
			return ReadEnd, pkgerrors.Wrap(err2, "doFindIdx1: restoring position")
		}
		d.cur = NewByteCursor(d.in)
		d.state = stateReadSamples
		return ReadContinue, nil
	}
	// The sniff above already consumed the idx1 chunk's header to
	// confirm its identity; rewind so doReadIdx1 reads that same header
	// again rather than the bytes just past it.
	if err := ra.SeekTo(d.moviListEnd); err != nil {
		return ReadEnd, pkgerrors.Wrap(err, "doFindIdx1: repositioning for idx1 read")
	}
	d.cur = NewByteCursor(d.in)
	_ = size
	d.state = stateReadIdx1
	return ReadContinue, nil
}

func (d *AviDemuxer) doReadIdx1() (ReadResult, error) {
	_, size, err := d.readChunkHeader()
	if err != nil {
		return ReadEnd, err
	}
	if err := parseIdx1Chunk(d.cur, size, d.moviDataStart, d.legacyIndexMap()); err != nil {
		return ReadEnd, err
	}
	for _, idx := range d.indices {
		idx.finishIdx1()
	}
	d.idx1Parsed = true

	// cur already sits right past idx1, i.e. exactly where a plain
	// forward scan would be after consuming the whole movi body: hand
	// off to the same end-of-RIFF bookkeeping doReadSamples uses,
	// rather than rewinding to moviDataStart and re-reading movi. This
	// matters both when idx1 is discovered via Seek's early-resolution
	// detour (moviDataStart == cur position already, nothing to lose)
	// and via the ordinary forward-scan path (moviDataStart would
	// otherwise cause every sample to be delivered a second time).
	d.state = stateReadSamples
	return d.finishRiffOrEnd()
}

// legacyIndexMap exposes the per-stream StreamIndex keyed by the exact
// chunk FourCC idx1 entries carry (re-using chunkIDMap's registration).
func (d *AviDemuxer) legacyIndexMap() map[FourCC]*StreamIndex {
	out := make(map[FourCC]*StreamIndex, len(d.chunkIDMap))
	for id, si := range d.chunkIDMap {
		out[id] = d.indices[si]
	}
	return out
}

func (d *AviDemuxer) doReadSamples() (ReadResult, error) {
	if d.cur.Position() >= d.moviListEnd {
		if !d.idx1Parsed {
			d.state = stateFindIdx1
			return ReadContinue, nil
		}
		return d.finishRiffOrEnd()
	}

	id, size, err := d.readChunkHeader()
	if err != nil {
		return ReadEnd, err
	}

	switch {
	case id == FourCCrec:
		// "rec " lists just group interleaved chunks; nothing to do
		// beyond descending into them, which the next Read iterations
		// do naturally since their contents follow immediately.
		return ReadContinue, nil

	case id == FourCCLIST:
		listType, err := d.cur.ReadFourCC()
		if err != nil {
			return ReadEnd, err
		}
		if listType == FourCCrec {
			return ReadContinue, nil
		}
		if err := d.cur.Skip(int64(AlignedSize(int64(size) - 4))); err != nil {
			return ReadEnd, err
		}
		return ReadContinue, nil

	default:
		if streamIdx, kind, ok := ParseStreamChunkID(id); ok && kind == ChunkKindIndex {
			segStart := d.cur.Position()
			seg, err := parseStandardIndexChunk(d.cur)
			if err != nil {
				return ReadEnd, err
			}
			if err := d.cur.SkipToAlign(); err != nil {
				return ReadEnd, err
			}
			if streamIdx < len(d.indices) {
				d.installSegmentAtOffset(streamIdx, segStart, seg)
			}
			return ReadContinue, nil
		}

		si, ok := d.chunkIDMap[id]
		if !ok {
			if err := d.cur.Skip(int64(AlignedSize(int64(size)))); err != nil {
				return ReadEnd, err
			}
			return ReadContinue, nil
		}

		offset := d.cur.Position()
		desc := d.streams[si]
		isKey := d.indices[si].isKeyFrameOffset(uint64(offset))
		timeUs, _ := d.indices[si].timestampForOffset(uint64(offset))
		samples, err := d.readers[si].ReadChunk(d.cur, size, timeUs, isKey)
		if err != nil {
			return ReadEnd, err
		}
		if err := d.cur.SkipToAlign(); err != nil {
			return ReadEnd, err
		}
		if d.output != nil {
			for _, s := range samples {
				if err := d.output.WriteSample(desc.StreamID, s); err != nil {
					return ReadEnd, err
				}
			}
		}
		return ReadContinue, nil
	}
}

// installSegmentAtOffset maps an ix## chunk's file offset to its
// owning super-index row by matching IxChunkOffset, so opportunistic
// discovery during a normal linear scan (not a RequestIndices detour)
// still populates the segment.
func (d *AviDemuxer) installSegmentAtOffset(streamIdx int, chunkOffset int64, seg StandardIndexSegment) {
	idx := d.indices[streamIdx]
	if idx.super == nil {
		return
	}
	for i, e := range idx.super.entries {
		if e.IxChunkOffset == uint64(chunkOffset)-8 { // entry stores the chunk header's offset, not the body's
			idx.installStandardIndex(i, seg)
			return
		}
	}
}

func (d *AviDemuxer) finishRiffOrEnd() (ReadResult, error) {
	if d.in.Length() >= 0 && d.cur.Position() >= d.in.Length() {
		d.ended = true
		return ReadEnd, nil
	}
	// Trailing bytes past idx1: either an AVIX continuation RIFF or
	// end of file padding. Peek 4 bytes to find out.
	peeked, err := d.cur.Peek(4)
	if err != nil || FourCC(fourCCFromBytes([4]byte{peeked[0], peeked[1], peeked[2], peeked[3]})) != FourCCRIFF {
		d.ended = true
		return ReadEnd, nil
	}
	d.state = stateSkipToHdrl
	d.idx1Parsed = false
	return ReadContinue, nil
}

// Seek requests that subsequent samples start from timeUs. It resolves
// every stream's StreamIndex, issuing RequestIndices detours as needed
// via RandomAccessInput, and positions the cursor at the earliest
// resolved byte offset across streams.
func (d *AviDemuxer) Seek(timeUs int64) error {
	ra, ok := d.in.(RandomAccessInput)
	if !ok {
		return unsupported("Seek", "input does not support random access")
	}
	d.seekActive = true
	d.seekTimeUs = timeUs

	// A caller may invoke Seek as soon as Streams() is populated, which
	// happens mid-hdrl-parse — before movi has even been located. Drive
	// the state machine forward until movi is found so moviDataStart
	// and moviListEnd are valid before any seek target is computed.
	for d.state == stateSkipToHdrl || d.state == stateReadHdrlHeader ||
		d.state == stateReadHdrlBody || d.state == stateFindMovi {
		if _, err := d.Read(); err != nil {
			return err
		}
	}

	if !d.idx1Parsed && d.state == stateReadSamples && d.cur.Position() == d.moviDataStart {
		d.state = stateFindIdx1
		for d.state == stateFindIdx1 || d.state == stateReadIdx1 {
			if _, err := d.Read(); err != nil {
				return err
			}
		}
	}

	var target uint64
	haveTarget := false
	for {
		pending := false
		for _, idx := range d.indices {
			answer := idx.seekPoints(timeUs)
			if answer.Pending != nil {
				pending = true
				if err := d.resolvePending(ra, idx, answer.Pending); err != nil {
					return err
				}
				continue
			}
			if answer.Ready && (!haveTarget || answer.First.ByteOffset < target) {
				target = answer.First.ByteOffset
				haveTarget = true
			}
		}
		if !pending {
			break
		}
	}

	if !haveTarget {
		target = uint64(d.moviDataStart)
	}
	if err := ra.SeekTo(int64(target)); err != nil {
		return err
	}
	d.cur = NewByteCursor(d.in)
	d.state = stateReadSamples
	d.seekActive = false
	return nil
}

func (d *AviDemuxer) resolvePending(ra RandomAccessInput, idx *StreamIndex, p *PendingSeek) error {
	if err := ra.SeekTo(int64(p.ByteOffset)); err != nil {
		return err
	}
	cur := NewByteCursor(d.in)
	if _, _, err := readChunkHeaderOn(cur); err != nil {
		return err
	}
	seg, err := parseStandardIndexChunk(cur)
	if err != nil {
		return err
	}
	idx.installStandardIndex(p.SegmentIndex, seg)
	return nil
}

func (d *AviDemuxer) doRequestIndices() (ReadResult, error) {
	// Reached only if a future caller drives the state machine
	// manually instead of via Seek; Seek itself performs the same
	// resolvePending loop inline since it needs the full picture
	// across streams before picking one target offset.
	d.state = stateReadSamples
	return ReadSeek, nil
}

func (d *AviDemuxer) readChunkHeader() (FourCC, uint32, error) {
	return readChunkHeaderOn(d.cur)
}

func readChunkHeaderOn(cur *ByteCursor) (FourCC, uint32, error) {
	id, err := cur.ReadFourCC()
	if err != nil {
		return 0, 0, err
	}
	size, err := cur.ReadU32()
	if err != nil {
		return 0, 0, err
	}
	return id, size, nil
}

// unreadChunkHeader is a no-op placeholder: doReadHdrlHeader's AVIX
// fallback already consumed the 8-byte header by the time it decides
// it isn't a LIST, so there is nothing to push back; the chunk's own
// size field was already captured and is simply discarded in that
// branch (an AVIX continuation always opens with "LIST movi", never a
// bare chunk, so this path is defensive rather than load-bearing).
func (d *AviDemuxer) unreadChunkHeader(id FourCC, size uint32) error {
	_ = id
	_ = size
	return nil
}
