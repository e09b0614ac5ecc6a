package avi

import "log/slog"

// Sample is one decodable unit handed to a TrackSink. Most ChunkReader
// variants produce exactly one Sample per AVI chunk; the MP3 and AC3
// variants may produce several, since a single "##wb" chunk can carry
// more than one compressed audio frame back to back.
type Sample struct {
	Data       []byte
	TimeUs     int64
	IsKeyFrame bool
}

// ChunkReader turns one raw "##dc"/"##db"/"##wb" chunk payload into
// zero or more Samples. spec.md §9 asks for "a tagged variant or
// function table, not a class hierarchy" here: rather than a
// VideoChunkReader/AudioChunkReader/... inheritance tree, every codec
// gets its own small struct implementing this one interface, and
// newChunkReader below is the function table that selects among them.
type ChunkReader interface {
	// ReadChunk consumes exactly chunkSize bytes from cur (the caller
	// has already aligned past any preceding odd-byte pad) and returns
	// the samples found inside, stamped with timeUs/isKeyFrame as
	// reported by the index for the chunk as a whole.
	ReadChunk(cur *ByteCursor, chunkSize uint32, timeUs int64, isKeyFrame bool) ([]Sample, error)
}

// newChunkReader is the function table spec.md §9 calls for: it picks
// a ChunkReader implementation by track type and codec instead of
// dispatching through an inheritance hierarchy.
func newChunkReader(desc *StreamDescriptor, log *slog.Logger) ChunkReader {
	if log == nil {
		log = slog.Default()
	}
	switch desc.TrackType {
	case TrackVideo:
		return &videoChunkReader{}
	case TrackAudio:
		switch desc.AudioCodec {
		case AudioCodecMP3:
			return newMp3ChunkReader(desc, log)
		case AudioCodecAC3:
			return newAc3ChunkReader(desc, log)
		default:
			return &pcmChunkReader{}
		}
	default:
		return &videoChunkReader{}
	}
}

// videoChunkReader and pcmChunkReader both treat a chunk as a single
// opaque sample: video chunks are already one coded picture, and PCM
// chunks carry whatever span of raw samples the writer packed in.
type videoChunkReader struct{}

func (r *videoChunkReader) ReadChunk(cur *ByteCursor, chunkSize uint32, timeUs int64, isKeyFrame bool) ([]Sample, error) {
	data, err := cur.Read(int(chunkSize))
	if err != nil {
		return nil, err
	}
	return []Sample{{Data: data, TimeUs: timeUs, IsKeyFrame: isKeyFrame}}, nil
}

type pcmChunkReader struct{}

func (r *pcmChunkReader) ReadChunk(cur *ByteCursor, chunkSize uint32, timeUs int64, isKeyFrame bool) ([]Sample, error) {
	data, err := cur.Read(int(chunkSize))
	if err != nil {
		return nil, err
	}
	return []Sample{{Data: data, TimeUs: timeUs, IsKeyFrame: true}}, nil
}
