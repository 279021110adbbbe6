// ABOUTME: Device reader tests
// ABOUTME: Passthrough, pitch resampling, looping and source draining
package otoout

import (
	"io"
	"testing"

	"github.com/openrift/audio/pkg/audio"
)

// seqDecoder yields a fixed mono sample sequence and supports Rewind.
type seqDecoder struct {
	data    []int16
	pos     int
	rewinds int
}

func (d *seqDecoder) Open(name string) error { return nil }

func (d *seqDecoder) Format() audio.Format {
	return audio.Format{SampleRate: 8000, Channels: audio.ChannelsMono, Type: audio.SampleInt16}
}

func (d *seqDecoder) ReadFrames(p []byte) (int, error) {
	if d.pos >= len(d.data) {
		return 0, io.EOF
	}
	frames := 0
	for ; d.pos < len(d.data) && (frames+1)*2 <= len(p); d.pos++ {
		s := d.data[d.pos]
		p[frames*2] = byte(s)
		p[frames*2+1] = byte(s >> 8)
		frames++
	}
	return frames, nil
}

func (d *seqDecoder) Rewind() error {
	d.pos = 0
	d.rewinds++
	return nil
}

func (d *seqDecoder) Close() error { return nil }

func readAllDevice(t *testing.T, r *deviceReader, chunk int) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, chunk)
	for i := 0; i < 10000; i++ {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
	}
	t.Fatal("reader never drained")
	return nil
}

func TestDeviceReaderPassthrough(t *testing.T) {
	// Stereo source already at the device rate: frames come through
	// unchanged.
	pcm := []int16{1, 2, 3, 4, 5, 6}
	src := newBufferChunks(pcm, deviceRate, 2, false, 0)
	r := newDeviceReader(src, deviceRate, 1)

	out := bytesToSamples(readAllDevice(t, r, 8))
	if len(out) != len(pcm) {
		t.Fatalf("samples = %d, want %d", len(out), len(pcm))
	}
	for i := range pcm {
		if out[i] != pcm[i] {
			t.Errorf("sample %d = %d, want %d", i, out[i], pcm[i])
		}
	}
}

func TestDeviceReaderMonoToStereo(t *testing.T) {
	pcm := []int16{100, 200}
	src := newBufferChunks(pcm, deviceRate, 1, false, 0)
	r := newDeviceReader(src, deviceRate, 1)

	out := bytesToSamples(readAllDevice(t, r, 16))
	if len(out) != 4 {
		t.Fatalf("samples = %d, want 4", len(out))
	}
	if out[0] != 100 || out[1] != 100 {
		t.Errorf("frame 0 = [%d %d], want duplicated mono", out[0], out[1])
	}
}

func TestDeviceReaderPitchConsumesFaster(t *testing.T) {
	pcm := make([]int16, 200) // 100 stereo frames
	src := newBufferChunks(pcm, deviceRate, 2, false, 0)
	r := newDeviceReader(src, deviceRate, 2)

	out := readAllDevice(t, r, 64)
	frames := len(out) / 4
	// Pitch 2 halves the output length.
	if frames < 45 || frames > 55 {
		t.Errorf("output frames = %d, want about 50", frames)
	}
}

func TestDeviceReaderOffsetSkipsFrames(t *testing.T) {
	pcm := []int16{1, 1, 2, 2, 3, 3}
	src := newBufferChunks(pcm, deviceRate, 2, false, 2)
	r := newDeviceReader(src, deviceRate, 1)

	out := bytesToSamples(readAllDevice(t, r, 64))
	if len(out) == 0 || out[0] != 3 {
		t.Errorf("first sample = %v, want playback to start at frame 2", out)
	}
}

func TestBufferChunksLoops(t *testing.T) {
	src := newBufferChunks([]int16{7, 8}, deviceRate, 2, true, 0)
	buf := make([]int16, 2)
	for i := 0; i < 5; i++ {
		n, err := src.read(buf)
		if err != nil {
			t.Fatalf("looping source returned %v", err)
		}
		if n != 2 || buf[0] != 7 || buf[1] != 8 {
			t.Fatalf("read %d = %v, want the same frame again", i, buf[:n])
		}
	}
}

func TestDecoderChunksLoops(t *testing.T) {
	dec := &seqDecoder{data: []int16{5, 6}}
	src := newDecoderChunks(dec, true)

	buf := make([]int16, 2)
	for i := 0; i < 3; i++ {
		n, err := src.read(buf)
		if err != nil {
			t.Fatalf("pass %d: read returned %v", i, err)
		}
		if n != 2 || buf[0] != 5 || buf[1] != 6 {
			t.Fatalf("pass %d: read %v, want the stream from the top", i, buf[:n])
		}
	}
	if dec.rewinds != 2 {
		t.Errorf("rewinds = %d, want 2", dec.rewinds)
	}
}

func TestDecoderChunksPlaysOnceWithoutLoop(t *testing.T) {
	dec := &seqDecoder{data: []int16{5, 6}}
	src := newDecoderChunks(dec, false)

	buf := make([]int16, 2)
	if n, err := src.read(buf); n != 2 || err != nil {
		t.Fatalf("first read = %d, %v", n, err)
	}
	if _, err := src.read(buf); err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
	if dec.rewinds != 0 {
		t.Errorf("rewinds = %d, want 0", dec.rewinds)
	}
}

func TestDeviceReaderEmptySource(t *testing.T) {
	src := newBufferChunks(nil, deviceRate, 2, false, 0)
	r := newDeviceReader(src, deviceRate, 1)
	if _, err := r.Read(make([]byte, 16)); err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}
