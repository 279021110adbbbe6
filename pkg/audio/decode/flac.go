// ABOUTME: FLAC codec reader
// ABOUTME: Decodes FLAC frames to s16le via mewkiz/flac
package decode

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"

	"github.com/openrift/audio/pkg/audio"
)

// flacReader decodes FLAC files frame by frame, interleaving the
// subframe channels into s16le. Samples wider than 16 bits are
// shifted down, narrower ones shifted up.
type flacReader struct {
	stream *flac.Stream
	fmt    audio.Format
	shift  int
	rest   []byte
}

func newFLAC(f io.Reader) (*flacReader, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse flac stream: %w", err)
	}

	info := stream.Info
	channels, ok := audio.ChannelsFromCount(int(info.NChannels))
	if !ok {
		return nil, fmt.Errorf("unsupported flac channel count: %d", info.NChannels)
	}

	return &flacReader{
		stream: stream,
		fmt: audio.Format{
			SampleRate: int(info.SampleRate),
			Channels:   channels,
			Type:       audio.SampleInt16,
		},
		shift: int(info.BitsPerSample) - 16,
	}, nil
}

func (r *flacReader) format() audio.Format { return r.fmt }

func (r *flacReader) Read(p []byte) (int, error) {
	for len(r.rest) == 0 {
		frame, err := r.stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("failed to parse flac frame: %w", err)
		}

		nch := len(frame.Subframes)
		buf := make([]byte, 0, int(frame.BlockSize)*nch*2)
		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < nch; ch++ {
				s := frame.Subframes[ch].Samples[i]
				if r.shift > 0 {
					s >>= r.shift
				} else if r.shift < 0 {
					s <<= -r.shift
				}
				buf = append(buf, byte(s), byte(s>>8))
			}
		}
		r.rest = buf
	}

	n := copy(p, r.rest)
	r.rest = r.rest[n:]
	return n, nil
}
