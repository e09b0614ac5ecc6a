package avi

import (
	"bytes"
	"log/slog"

	"github.com/bogem/id3v2/v2"
)

// mp3ChunkReader splits an AVI audio chunk into one or more MPEG audio
// frames by sync-word scanning, the same sliding-window technique
// sukus21-go-mp3's decoder uses to build its frameStarts table, rather
// than trusting the AVI chunk boundary to equal a frame boundary.
//
// It owns a running presentation clock (nextTimeUs) rather than
// stamping every frame with the caller-supplied, index-derived timeUs:
// per spec.md §4.3.2 step 1 that value only seeds the clock the first
// time it's unknown, after which every emitted frame (and every
// dropped chunk) advances it by the frame duration, so back-to-back
// frames from one chunk — or across chunks — get strictly increasing
// timestamps instead of repeating the chunk's nominal time.
//
// Open question from spec.md §9 ("what to do when sync is lost mid
// chunk"): resolved here as "log + count, keep scanning" — a single
// corrupt or padded chunk should not abort the whole stream, but the
// frequency is worth surfacing as a diagnostic.
type mp3ChunkReader struct {
	desc           *StreamDescriptor
	log            *slog.Logger
	sawFirstChunk  bool
	haveClock      bool
	nextTimeUs     int64
	silentGapCount int
	silentGapBytes int64
}

func newMp3ChunkReader(desc *StreamDescriptor, log *slog.Logger) *mp3ChunkReader {
	return &mp3ChunkReader{desc: desc, log: log}
}

// mp3FrameDurationUs is the nominal inter-frame advance for MPEG-1
// Layer III (samplesPerFrame = 1152), per spec.md §4.3.2 step 4.
func mp3FrameDurationUs(sampleRate int) int64 {
	if sampleRate <= 0 {
		return 0
	}
	return 1152 * 1_000_000 / int64(sampleRate)
}

func (r *mp3ChunkReader) ReadChunk(cur *ByteCursor, chunkSize uint32, timeUs int64, isKeyFrame bool) ([]Sample, error) {
	raw, err := cur.Read(int(chunkSize))
	if err != nil {
		return nil, err
	}

	if !r.sawFirstChunk {
		r.sawFirstChunk = true
		raw = r.skipLeadingID3(raw)
	}

	if !r.haveClock {
		r.nextTimeUs = timeUs
		r.haveClock = true
	}

	var samples []Sample
	pos := 0
	gapStart := -1
	for pos < len(raw) {
		if pos+4 > len(raw) {
			break
		}
		hdr, ok := parseMp3FrameHeader(raw[pos : pos+4])
		if !ok || pos+hdr.FrameLen > len(raw) {
			if gapStart < 0 {
				gapStart = pos
			}
			pos++
			continue
		}
		if gapStart >= 0 {
			r.recordGap(pos - gapStart)
			gapStart = -1
		}
		samples = append(samples, Sample{
			Data:       raw[pos : pos+hdr.FrameLen],
			TimeUs:     r.nextTimeUs,
			IsKeyFrame: true,
		})
		r.nextTimeUs += mp3FrameDurationUs(hdr.SampleRate)
		pos += hdr.FrameLen
	}
	if gapStart >= 0 {
		r.recordGap(len(raw) - gapStart)
	}

	if len(samples) == 0 {
		// Empty chunk, or no findable header anywhere in it: drop it
		// rather than emit garbage bytes as a sample (spec.md §4.3.2
		// step 5), but still advance the clock by one nominal frame so
		// the next real frame's timestamp isn't skewed by the gap.
		r.nextTimeUs += mp3FrameDurationUs(r.desc.SampleRate)
		return nil, nil
	}
	return samples, nil
}

func (r *mp3ChunkReader) recordGap(n int) {
	r.silentGapCount++
	r.silentGapBytes += int64(n)
	r.log.Warn("mp3 frame sync gap", "stream", r.desc.StreamID, "bytes", n, "total_gaps", r.silentGapCount)
}

// skipLeadingID3 drops a leading ID3v2 tag some encoders prepend to
// the first audio chunk, using id3v2's own synchsafe size parsing
// rather than reimplementing it.
func (r *mp3ChunkReader) skipLeadingID3(raw []byte) []byte {
	if len(raw) < 10 || !bytes.Equal(raw[:3], []byte("ID3")) {
		return raw
	}
	tag, err := id3v2.ParseReader(bytes.NewReader(raw), id3v2.Options{Parse: true})
	if err != nil || tag == nil {
		return raw
	}
	size := tag.Size()
	if size <= 0 || size > len(raw) {
		return raw
	}
	r.log.Debug("skipped leading ID3 tag", "stream", r.desc.StreamID, "bytes", size)
	return raw[size:]
}
