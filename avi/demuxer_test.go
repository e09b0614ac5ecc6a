package avi

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// muxToFile writes video/audio streams through AviMuxer and returns the
// path of the resulting file, cleaned up by t.Cleanup.
func muxToFile(t *testing.T, video, audio *StreamDescriptor, videoSamples, audioSamples []Sample) string {
	t.Helper()
	path := t.TempDir() + "/fixture.avi"
	f, err := os.Create(path)
	require.NoError(t, err)

	m := NewAviMuxer(f)
	if video != nil {
		m.AddStream(video, videoSamples)
	}
	if audio != nil {
		m.AddStream(audio, audioSamples)
	}
	require.NoError(t, m.Write())
	require.NoError(t, f.Close())
	return path
}

func videoSamplesWithKeyframeEvery(n, keyframePeriod int) []Sample {
	samples := make([]Sample, n)
	for i := 0; i < n; i++ {
		samples[i] = Sample{
			Data:       make([]byte, 500+i),
			TimeUs:     int64(i) * 40000,
			IsKeyFrame: i%keyframePeriod == 0,
		}
	}
	return samples
}

func TestDemuxerDeliversSamplesThroughExtractorOutput(t *testing.T) {
	video := &StreamDescriptor{StreamID: 0, TrackType: TrackVideo, Width: 320, Height: 240, FrameRate: 25, CodecFourCC: CodecMJPEG}
	audio := &StreamDescriptor{StreamID: 1, TrackType: TrackAudio, Channels: 2, SampleRate: 44100, BitsPerSample: 16}

	videoSamples := videoSamplesWithKeyframeEvery(6, 3)
	audioSamples := make([]Sample, 6)
	for i := range audioSamples {
		audioSamples[i] = Sample{Data: make([]byte, 200), TimeUs: int64(i) * 23000, IsKeyFrame: true}
	}

	path := muxToFile(t, video, audio, videoSamples, audioSamples)

	in, closeFn, err := OpenFile(path)
	require.NoError(t, err)
	defer closeFn()

	d := NewAviDemuxer(in, nil)
	videoSink := NewMemoryTrackSink()
	audioSink := NewMemoryTrackSink()
	out := NewExtractorOutput()

	for d.Streams() == nil {
		_, err := d.Read()
		require.NoError(t, err)
	}
	out.SetTrack(0, videoSink)
	out.SetTrack(1, audioSink)
	d.SetOutput(out)

	require.NoError(t, d.Demux())

	require.Len(t, videoSink.Samples(), len(videoSamples))
	require.Len(t, audioSink.Samples(), len(audioSamples))
	for i, s := range videoSink.Samples() {
		require.Equal(t, videoSamples[i].Data, s.Data)
	}
}

func TestDemuxerSeekLandsOnKeyframe(t *testing.T) {
	video := &StreamDescriptor{StreamID: 0, TrackType: TrackVideo, Width: 160, Height: 120, FrameRate: 25, CodecFourCC: CodecMJPEG}
	videoSamples := videoSamplesWithKeyframeEvery(20, 5)

	path := muxToFile(t, video, nil, videoSamples, nil)

	in, closeFn, err := OpenFile(path)
	require.NoError(t, err)
	defer closeFn()

	d := NewAviDemuxer(in, nil)
	for d.Streams() == nil {
		_, err := d.Read()
		require.NoError(t, err)
	}

	// Frame 12 (480000us) is not a keyframe; the floor keyframe is
	// frame 10 at 400000us.
	require.NoError(t, d.Seek(480000))

	sink := NewMemoryTrackSink()
	out := NewExtractorOutput()
	out.SetTrack(0, sink)
	d.SetOutput(out)

	require.NoError(t, d.Demux())
	require.NotEmpty(t, sink.Samples())
	first := sink.Samples()[0]
	require.True(t, first.IsKeyFrame)
	require.Equal(t, int64(400000), first.TimeUs)
}

func TestDemuxerSeekToStartReturnsAllFrames(t *testing.T) {
	video := &StreamDescriptor{StreamID: 0, TrackType: TrackVideo, Width: 160, Height: 120, FrameRate: 25, CodecFourCC: CodecMJPEG}
	videoSamples := videoSamplesWithKeyframeEvery(10, 5)

	path := muxToFile(t, video, nil, videoSamples, nil)

	in, closeFn, err := OpenFile(path)
	require.NoError(t, err)
	defer closeFn()

	d := NewAviDemuxer(in, nil)
	for d.Streams() == nil {
		_, err := d.Read()
		require.NoError(t, err)
	}
	require.NoError(t, d.Seek(0))

	sink := NewMemoryTrackSink()
	out := NewExtractorOutput()
	out.SetTrack(0, sink)
	d.SetOutput(out)

	require.NoError(t, d.Demux())
	require.Len(t, sink.Samples(), len(videoSamples))
	require.True(t, sink.Samples()[0].IsKeyFrame)
}

func TestDemuxerSeekRejectsNonRandomAccessInput(t *testing.T) {
	video := &StreamDescriptor{StreamID: 0, TrackType: TrackVideo, Width: 160, Height: 120, FrameRate: 25, CodecFourCC: CodecMJPEG}
	videoSamples := videoSamplesWithKeyframeEvery(4, 2)
	path := muxToFile(t, video, nil, videoSamples, nil)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	// bytes.Buffer is an io.Reader but not an io.Seeker, so the
	// wrapped bufferedInput's SeekTo fails at the underlying-reader
	// check even though it still satisfies the RandomAccessInput
	// interface at the type level.
	in := NewInput(bytes.NewBuffer(raw), int64(len(raw)))
	d := NewAviDemuxer(in, nil)
	for d.Streams() == nil {
		_, err := d.Read()
		require.NoError(t, err)
	}

	err = d.Seek(1000)
	require.Error(t, err)
}
