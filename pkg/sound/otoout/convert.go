// ABOUTME: PCM conversion for the oto device format
// ABOUTME: Linear resampling, channel expansion and gain math
package otoout

import (
	"math"

	"github.com/openrift/audio/pkg/world"
)

// resampleLinear converts interleaved s16 samples between rates by
// linear interpolation. Channel count is preserved.
func resampleLinear(src []int16, channels, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(src) == 0 || channels == 0 {
		out := make([]int16, len(src))
		copy(out, src)
		return out
	}

	inFrames := len(src) / channels
	outFrames := int(int64(inFrames) * int64(toRate) / int64(fromRate))
	out := make([]int16, outFrames*channels)

	step := float64(fromRate) / float64(toRate)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * step
		i0 := int(pos)
		i1 := i0 + 1
		if i1 >= inFrames {
			i1 = inFrames - 1
		}
		frac := pos - float64(i0)
		for ch := 0; ch < channels; ch++ {
			a := float64(src[i0*channels+ch])
			b := float64(src[i1*channels+ch])
			out[i*channels+ch] = int16(a + (b-a)*frac)
		}
	}
	return out
}

// toStereo expands or narrows interleaved s16 samples to two channels.
// Mono duplicates; wider layouts keep the front pair.
func toStereo(src []int16, channels int) []int16 {
	if channels == 2 {
		out := make([]int16, len(src))
		copy(out, src)
		return out
	}
	frames := len(src) / channels
	out := make([]int16, frames*2)
	for i := 0; i < frames; i++ {
		l := src[i*channels]
		r := l
		if channels > 1 {
			r = src[i*channels+1]
		}
		out[i*2] = l
		out[i*2+1] = r
	}
	return out
}

// bytesToSamples reinterprets s16le bytes as samples.
func bytesToSamples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(uint16(b[i*2]) | uint16(b[i*2+1])<<8)
	}
	return out
}

// samplesToBytes serializes samples as s16le.
func samplesToBytes(s []int16) []byte {
	out := make([]byte, len(s)*2)
	for i, v := range s {
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// attenuate computes the inverse-distance gain of a source heard from
// the listener, clamped to the source's min and max range.
func attenuate(listener, source world.Vec3, minDist, maxDist float32) float32 {
	d := listener.Dist(source)
	if d < minDist {
		d = minDist
	}
	if d > maxDist {
		d = maxDist
	}
	if d <= 0 {
		return 1
	}
	return minDist / d
}

// rms computes the loudness of an s16 chunk in [0, 1].
func rms(samples []int16) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		f := float64(v)
		sum += f * f
	}
	return float32(math.Sqrt(sum/float64(len(samples))) / 32768)
}
