// ABOUTME: Ogg Vorbis codec reader
// ABOUTME: Decodes Vorbis to s16le via jfreymuth/oggvorbis
package decode

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/openrift/audio/pkg/audio"
)

// vorbisReader decodes Ogg Vorbis files. oggvorbis yields float32
// samples which are clamped and scaled to s16le.
type vorbisReader struct {
	dec  *oggvorbis.Reader
	fmt  audio.Format
	fbuf []float32
}

func newVorbis(f io.Reader) (*vorbisReader, error) {
	dec, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create vorbis decoder: %w", err)
	}

	channels, ok := audio.ChannelsFromCount(dec.Channels())
	if !ok {
		return nil, fmt.Errorf("unsupported vorbis channel count: %d", dec.Channels())
	}

	return &vorbisReader{
		dec: dec,
		fmt: audio.Format{
			SampleRate: dec.SampleRate(),
			Channels:   channels,
			Type:       audio.SampleInt16,
		},
	}, nil
}

func (r *vorbisReader) format() audio.Format { return r.fmt }

func (r *vorbisReader) Read(p []byte) (int, error) {
	want := len(p) / 2
	if want == 0 {
		return 0, nil
	}
	if cap(r.fbuf) < want {
		r.fbuf = make([]float32, want)
	}

	n, err := r.dec.Read(r.fbuf[:want])
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	for i := 0; i < n; i++ {
		v := r.fbuf[i]
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		s := int16(v * 32767)
		p[i*2] = byte(s)
		p[i*2+1] = byte(s >> 8)
	}
	return n * 2, nil
}
