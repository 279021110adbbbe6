// ABOUTME: MP3 codec reader
// ABOUTME: Decodes MP3 to s16le via hajimehoshi/go-mp3
package decode

import (
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/openrift/audio/pkg/audio"
)

// mp3Reader decodes MP3 files. go-mp3 always emits 16-bit stereo.
type mp3Reader struct {
	dec *mp3.Decoder
	fmt audio.Format
}

func newMP3(f io.ReadSeeker) (*mp3Reader, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &mp3Reader{
		dec: dec,
		fmt: audio.Format{
			SampleRate: dec.SampleRate(),
			Channels:   audio.ChannelsStereo,
			Type:       audio.SampleInt16,
		},
	}, nil
}

func (r *mp3Reader) format() audio.Format { return r.fmt }

func (r *mp3Reader) Read(p []byte) (int, error) {
	return r.dec.Read(p)
}
