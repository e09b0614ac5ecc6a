package avi

// hdrl/strl parsing: avih gives the file-wide header, each strl gives
// one stream's strh+strf (+ optional indx super-index). Grounded on
// the teacher's parseAVIHChunk/parseSTRLList/parseSTRHChunk/
// parseSTRFChunk in the now-removed avi/demuxer.go, generalized to
// also recognize an indx chunk and to build a StreamDescriptor instead
// of the teacher's flatter Stream struct.

type fileHeader struct {
	MicroSecPerFrame uint32
	TotalFrames      uint32
	Streams          uint32
	Width            uint32
	Height           uint32
}

func parseAVIMainHeader(cur *ByteCursor, size uint32) (fileHeader, error) {
	raw, err := cur.Read(int(size))
	if err != nil {
		return fileHeader{}, err
	}
	if err := cur.SkipToAlign(); err != nil {
		return fileHeader{}, err
	}
	if len(raw) < sizeofAVIMainHeader {
		return fileHeader{}, malformed("parseAVIMainHeader", "avih chunk too small: %d bytes", len(raw))
	}
	var h aviMainHeader
	if err := readStruct(raw[:sizeofAVIMainHeader], &h); err != nil {
		return fileHeader{}, err
	}
	return fileHeader{
		MicroSecPerFrame: h.MicroSecPerFrame,
		TotalFrames:      h.TotalFrames,
		Streams:          h.Streams,
		Width:            h.Width,
		Height:           h.Height,
	}, nil
}

// parsedStrl is the result of fully consuming one "LIST strl" chunk.
type parsedStrl struct {
	desc       *StreamDescriptor
	superIndex []SuperIndexEntry // nil unless an indx chunk was present
}

func parseStrl(cur *ByteCursor, listSize uint32, streamID int) (parsedStrl, error) {
	end := cur.Position() + int64(listSize)
	var result parsedStrl
	desc := &StreamDescriptor{StreamID: streamID}
	var strh aviStreamHeader
	haveStrh := false

	for cur.Position() < end {
		id, err := cur.ReadFourCC()
		if err != nil {
			return result, err
		}
		size, err := cur.ReadU32()
		if err != nil {
			return result, err
		}

		switch id {
		case FourCCstrh:
			raw, err := cur.Read(int(size))
			if err != nil {
				return result, err
			}
			if err := cur.SkipToAlign(); err != nil {
				return result, err
			}
			if len(raw) < sizeofAVIStreamHeader {
				return result, malformed("parseStrl", "strh chunk too small: %d bytes", len(raw))
			}
			if err := readStruct(raw[:sizeofAVIStreamHeader], &strh); err != nil {
				return result, err
			}
			haveStrh = true
			applyStreamHeader(desc, strh)

		case FourCCstrf:
			raw, err := cur.Read(int(size))
			if err != nil {
				return result, err
			}
			if err := cur.SkipToAlign(); err != nil {
				return result, err
			}
			if !haveStrh {
				return result, malformed("parseStrl", "strf encountered before strh")
			}
			if err := applyStreamFormat(desc, strh, raw); err != nil {
				return result, err
			}

		case FourCCindx:
			raw, err := cur.Read(int(size))
			if err != nil {
				return result, err
			}
			if err := cur.SkipToAlign(); err != nil {
				return result, err
			}
			entries, err := parseSuperIndexChunk(NewByteCursor(newSliceInput(raw)))
			if err != nil {
				return result, err
			}
			result.superIndex = entries

		default:
			if err := cur.Skip(int64(AlignedSize(int64(size)))); err != nil {
				return result, err
			}
		}
	}

	result.desc = desc
	return result, nil
}

func applyStreamHeader(desc *StreamDescriptor, strh aviStreamHeader) {
	switch FourCC(fourCCFromBytes(strh.Type)) {
	case FourCCvids:
		desc.TrackType = TrackVideo
	case FourCCauds:
		desc.TrackType = TrackAudio
	default:
		desc.TrackType = TrackUnknown
	}
	desc.CodecFourCC = FourCC(fourCCFromBytes(strh.Handler))
	desc.FrameCount = int64(strh.Length)
	desc.SuggestedBufferSize = int(strh.SuggestedBufferSize)
	if strh.Rate > 0 {
		desc.FrameRate = float64(strh.Rate) / float64(scaleOrOne(strh.Scale))
		desc.DurationUs = int64(uint64(strh.Length) * uint64(scaleOrOne(strh.Scale)) * 1_000_000 / uint64(strh.Rate))
	}
}

func scaleOrOne(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	return v
}

func applyStreamFormat(desc *StreamDescriptor, strh aviStreamHeader, raw []byte) error {
	switch desc.TrackType {
	case TrackVideo:
		if len(raw) < sizeofBitmapInfoHeader {
			return malformed("applyStreamFormat", "strf(video) chunk too small: %d bytes", len(raw))
		}
		var bih bitmapInfoHeader
		if err := readStruct(raw[:sizeofBitmapInfoHeader], &bih); err != nil {
			return err
		}
		desc.Width = int(bih.Width)
		desc.Height = int(bih.Height)
		if desc.CodecFourCC == 0 {
			desc.CodecFourCC = FourCC(fourCCFromBytes(bih.Compression))
		}
		desc.CodecMime = mimeForVideoFourCC(desc.CodecFourCC)
		if len(raw) > sizeofBitmapInfoHeader {
			desc.CodecInit = [][]byte{append([]byte(nil), raw[sizeofBitmapInfoHeader:]...)}
		}

	case TrackAudio:
		if len(raw) < sizeofWaveFormatEx {
			return malformed("applyStreamFormat", "strf(audio) chunk too small: %d bytes", len(raw))
		}
		var wfx waveFormatEx
		if err := readStruct(raw[:sizeofWaveFormatEx], &wfx); err != nil {
			return err
		}
		desc.SampleRate = int(wfx.SamplesPerSec)
		desc.Channels = int(wfx.Channels)
		desc.BitsPerSample = int(wfx.BitsPerSample)
		desc.CodecMime, desc.AudioCodec = mimeForAudioTag(wfx.FormatTag)
		if len(raw) > sizeofWaveFormatEx {
			desc.CodecInit = [][]byte{append([]byte(nil), raw[sizeofWaveFormatEx:]...)}
		}

	default:
		// Text/unknown stream: strf exists but carries nothing this
		// package exposes.
	}
	return nil
}

func fourCCFromBytes(b [4]byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
