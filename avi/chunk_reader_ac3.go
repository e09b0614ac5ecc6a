package avi

import "log/slog"

// ac3ChunkReader splits an AVI audio chunk into AC-3 sync frames via
// an Ac3PacketReader, mirroring mp3ChunkReader's approach but cutting
// through to a dedicated interface per spec.md §9.
type ac3ChunkReader struct {
	desc   *StreamDescriptor
	log    *slog.Logger
	reader Ac3PacketReader
}

func newAc3ChunkReader(desc *StreamDescriptor, log *slog.Logger) *ac3ChunkReader {
	return &ac3ChunkReader{desc: desc, log: log, reader: defaultAc3PacketReader{}}
}

func (r *ac3ChunkReader) ReadChunk(cur *ByteCursor, chunkSize uint32, timeUs int64, isKeyFrame bool) ([]Sample, error) {
	raw, err := cur.Read(int(chunkSize))
	if err != nil {
		return nil, err
	}

	var samples []Sample
	offset := 0
	for offset < len(raw) {
		start, end, ok := r.reader.NextFrame(raw, offset)
		if !ok {
			if offset == 0 {
				return []Sample{{Data: raw, TimeUs: timeUs, IsKeyFrame: isKeyFrame}}, nil
			}
			break
		}
		if start > offset {
			r.log.Debug("ac3 frame sync gap", "stream", r.desc.StreamID, "bytes", start-offset)
		}
		samples = append(samples, Sample{Data: raw[start:end], TimeUs: timeUs, IsKeyFrame: true})
		offset = end
	}
	if len(samples) == 0 {
		return []Sample{{Data: raw, TimeUs: timeUs, IsKeyFrame: isKeyFrame}}, nil
	}
	return samples, nil
}
