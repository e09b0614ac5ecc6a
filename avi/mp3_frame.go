package avi

// MPEG audio frame-header parsing, grounded on the frame-sync scanning
// approach in sukus21-go-mp3's decode.go (readFrame/ensureFrameStarts):
// a sliding 1-byte window looking for the 11-bit sync word, followed by
// a fixed-table frame-length computation. AVI "##wb" chunks for MP3
// streams are not always chunk-aligned to frame boundaries, so the
// reader below re-derives frame boundaries from the bitstream itself
// rather than trusting chunk size.

var mpeg1BitrateKbps = [3][15]int{
	// Layer I
	{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448},
	// Layer II
	{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384},
	// Layer III
	{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320},
}

var mpeg2BitrateKbps = [3][15]int{
	// Layer I
	{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256},
	// Layer II/III
	{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
	{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
}

var mpeg1SampleRates = [3]int{44100, 48000, 32000}
var mpeg2SampleRates = [3]int{22050, 24000, 16000}
var mpeg25SampleRates = [3]int{11025, 12000, 8000}

// mp3FrameHeader is the decoded form of the 4-byte MPEG audio frame
// header beginning at a sync word.
type mp3FrameHeader struct {
	FrameLen   int
	SampleRate int
	Channels   int
}

// parseMp3FrameHeader decodes a 4-byte candidate header. ok is false
// when the bytes don't encode a valid MPEG-1/2 Layer I/II/III header.
func parseMp3FrameHeader(b []byte) (mp3FrameHeader, bool) {
	if len(b) < 4 {
		return mp3FrameHeader{}, false
	}
	if b[0] != 0xFF || b[1]&0xE0 != 0xE0 {
		return mp3FrameHeader{}, false
	}
	versionBits := (b[1] >> 3) & 0x3
	layerBits := (b[1] >> 1) & 0x3
	bitrateIdx := (b[2] >> 4) & 0xF
	sampleRateIdx := (b[2] >> 2) & 0x3
	padding := (b[2] >> 1) & 0x1
	channelMode := (b[3] >> 6) & 0x3

	if layerBits == 0 || bitrateIdx == 0xF || sampleRateIdx == 0x3 {
		return mp3FrameHeader{}, false
	}

	layer := 3 - int(layerBits) // 1=I,2=II,3=III -> index 0,1,2
	var sampleRate int
	switch versionBits {
	case 0b11: // MPEG-1
		sampleRate = mpeg1SampleRates[sampleRateIdx]
	case 0b10: // MPEG-2
		sampleRate = mpeg2SampleRates[sampleRateIdx]
	default: // MPEG-2.5
		sampleRate = mpeg25SampleRates[sampleRateIdx]
	}

	var bitrateKbps int
	if versionBits == 0b11 {
		bitrateKbps = mpeg1BitrateKbps[layer][bitrateIdx]
	} else {
		bitrateKbps = mpeg2BitrateKbps[layer][bitrateIdx]
	}
	if bitrateKbps == 0 || sampleRate == 0 {
		return mp3FrameHeader{}, false
	}

	var samplesPerFrame int
	switch {
	case layer == 0: // Layer I
		samplesPerFrame = 384
	case versionBits == 0b11: // Layer II/III, MPEG-1
		samplesPerFrame = 1152
	default: // Layer II/III, MPEG-2/2.5
		samplesPerFrame = 576
	}

	bitrate := bitrateKbps * 1000
	var frameLen int
	if layer == 0 {
		frameLen = (12*bitrate/sampleRate + int(padding)) * 4
	} else {
		frameLen = samplesPerFrame/8*bitrate/sampleRate + int(padding)
	}

	channels := 2
	if channelMode == 0x3 {
		channels = 1
	}

	return mp3FrameHeader{FrameLen: frameLen, SampleRate: sampleRate, Channels: channels}, true
}
