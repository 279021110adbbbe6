// ABOUTME: Audio type definitions
// ABOUTME: Defines sample types, channel configs, and PCM formats
package audio

// SampleType identifies the in-memory encoding of one sample.
type SampleType int

const (
	SampleUInt8 SampleType = iota
	SampleInt16
	SampleFloat32
)

// String returns a short human-readable name for the sample type.
func (t SampleType) String() string {
	switch t {
	case SampleUInt8:
		return "U8"
	case SampleInt16:
		return "S16"
	case SampleFloat32:
		return "Float32"
	}
	return "(unknown sample type)"
}

// Bytes returns the size of one sample in bytes.
func (t SampleType) Bytes() int {
	switch t {
	case SampleUInt8:
		return 1
	case SampleInt16:
		return 2
	case SampleFloat32:
		return 4
	}
	return 0
}

// ChannelConfig identifies the speaker layout of a PCM stream.
type ChannelConfig int

const (
	ChannelsMono ChannelConfig = iota
	ChannelsStereo
	ChannelsQuad
	Channels5point1
	Channels7point1
)

// String returns a short human-readable name for the channel config.
func (c ChannelConfig) String() string {
	switch c {
	case ChannelsMono:
		return "Mono"
	case ChannelsStereo:
		return "Stereo"
	case ChannelsQuad:
		return "Quad"
	case Channels5point1:
		return "5.1 Surround"
	case Channels7point1:
		return "7.1 Surround"
	}
	return "(unknown channel config)"
}

// Count returns the number of channels in the config.
func (c ChannelConfig) Count() int {
	switch c {
	case ChannelsMono:
		return 1
	case ChannelsStereo:
		return 2
	case ChannelsQuad:
		return 4
	case Channels5point1:
		return 6
	case Channels7point1:
		return 8
	}
	return 0
}

// ChannelsFromCount maps a raw channel count to a ChannelConfig.
func ChannelsFromCount(n int) (ChannelConfig, bool) {
	switch n {
	case 1:
		return ChannelsMono, true
	case 2:
		return ChannelsStereo, true
	case 4:
		return ChannelsQuad, true
	case 6:
		return Channels5point1, true
	case 8:
		return Channels7point1, true
	}
	return ChannelsMono, false
}

// Format describes a decoded PCM stream.
type Format struct {
	SampleRate int
	Channels   ChannelConfig
	Type       SampleType
}

// FramesToBytes converts a frame count to a byte count for the format.
func (f Format) FramesToBytes(frames int) int {
	return frames * f.Channels.Count() * f.Type.Bytes()
}

// BytesToFrames converts a byte count to a frame count for the format.
func (f Format) BytesToFrames(bytes int) int {
	frameSize := f.Channels.Count() * f.Type.Bytes()
	if frameSize == 0 {
		return 0
	}
	return bytes / frameSize
}
