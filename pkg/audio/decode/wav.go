// ABOUTME: WAV codec reader
// ABOUTME: Decodes RIFF/WAVE PCM to s16le via go-audio/wav
package decode

import (
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/openrift/audio/pkg/audio"
)

// wavReader decodes PCM WAV files. 8-bit unsigned and 24-bit input are
// widened/narrowed to signed 16-bit output.
type wavReader struct {
	dec  *wav.Decoder
	fmt  audio.Format
	bits int
	buf  *gaudio.IntBuffer
	rest []byte
}

func newWAV(f io.ReadSeeker) (*wavReader, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("wav has no pcm data: %w", err)
	}

	channels, ok := audio.ChannelsFromCount(int(dec.NumChans))
	if !ok {
		return nil, fmt.Errorf("unsupported wav channel count: %d", dec.NumChans)
	}

	bits := int(dec.BitDepth)
	switch bits {
	case 8, 16, 24:
	default:
		return nil, fmt.Errorf("unsupported wav bit depth: %d", bits)
	}

	return &wavReader{
		dec: dec,
		fmt: audio.Format{
			SampleRate: int(dec.SampleRate),
			Channels:   channels,
			Type:       audio.SampleInt16,
		},
		bits: bits,
		buf: &gaudio.IntBuffer{
			Format: &gaudio.Format{
				NumChannels: int(dec.NumChans),
				SampleRate:  int(dec.SampleRate),
			},
			Data: make([]int, 4096),
		},
	}, nil
}

func (r *wavReader) format() audio.Format { return r.fmt }

func (r *wavReader) Read(p []byte) (int, error) {
	if len(r.rest) == 0 {
		n, err := r.dec.PCMBuffer(r.buf)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, io.EOF
		}

		r.rest = r.rest[:0]
		for _, v := range r.buf.Data[:n] {
			s := toInt16(v, r.bits)
			r.rest = append(r.rest, byte(s), byte(s>>8))
		}
	}

	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}

// toInt16 maps a sample at the given source bit depth to signed 16-bit.
func toInt16(v, bits int) int16 {
	switch bits {
	case 8:
		// 8-bit wav is unsigned
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	default:
		return int16(v)
	}
}
