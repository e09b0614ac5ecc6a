package avi

// TrackType classifies a StreamDescriptor as audio or video (text
// streams are parsed far enough to skip but are never exposed as a
// track, per spec's "track types other than audio/video" non-goal).
type TrackType int

const (
	TrackUnknown TrackType = iota
	TrackVideo
	TrackAudio
)

func (t TrackType) String() string {
	switch t {
	case TrackVideo:
		return "video"
	case TrackAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// AudioCodec narrows TrackAudio into the three codecs this package's
// ChunkReader variants understand.
type AudioCodec int

const (
	AudioCodecUnknown AudioCodec = iota
	AudioCodecPCM
	AudioCodecMP3
	AudioCodecAC3
)

// StreamDescriptor is immutable once hdrl parsing completes: every
// field is filled during strl parsing, by applyStreamHeader and
// applyStreamFormat (StreamID by the caller), and
// never mutated afterward (spec.md §3 "Lifecycle").
type StreamDescriptor struct {
	StreamID            int
	TrackType           TrackType
	CodecMime           string
	CodecFourCC         FourCC
	AudioCodec          AudioCodec
	SampleRate          int
	Channels            int
	BitsPerSample       int
	Width               int
	Height              int
	FrameCount          int64 // streamHeaderChunkCount, from strh.Length
	DurationUs          int64
	SuggestedBufferSize int
	FrameRate           float64
	CodecInit           [][]byte
}

func mimeForVideoFourCC(cc FourCC) string {
	switch cc {
	case CodecH264:
		return "video/avc"
	case CodecMP4V, CodecXVID, CodecDIVX:
		return "video/mp4v-es"
	case CodecMJPEG:
		return "video/mjpeg"
	default:
		return "video/" + cc.String()
	}
}

func mimeForAudioTag(tag uint16) (string, AudioCodec) {
	switch tag {
	case wavTagMP3:
		return "audio/mpeg", AudioCodecMP3
	case wavTagAC3:
		return "audio/ac3", AudioCodecAC3
	case wavTagPCM:
		return "audio/raw", AudioCodecPCM
	default:
		return "audio/raw", AudioCodecPCM
	}
}
