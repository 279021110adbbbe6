// ABOUTME: Sample sources and the device-format reader fed to oto players
// ABOUTME: Applies pitch resampling on the fly and meters loudness
package otoout

import (
	"io"
	"sync"

	"github.com/openrift/audio/pkg/audio"
	"github.com/openrift/audio/pkg/audio/decode"
)

// chunkSource yields interleaved s16 samples in its native format.
type chunkSource interface {
	read(buf []int16) (int, error)
	rate() int
	channels() int
}

// bufferChunks reads a preloaded PCM buffer, optionally looping.
type bufferChunks struct {
	pcm   []int16
	pos   int
	nrate int
	nch   int
	loop  bool
}

func newBufferChunks(pcm []int16, rate, ch int, loop bool, startFrame int) *bufferChunks {
	pos := startFrame * ch
	if pos > len(pcm) {
		pos = len(pcm)
	}
	return &bufferChunks{pcm: pcm, pos: pos, nrate: rate, nch: ch, loop: loop}
}

func (b *bufferChunks) rate() int     { return b.nrate }
func (b *bufferChunks) channels() int { return b.nch }

func (b *bufferChunks) read(buf []int16) (int, error) {
	if b.pos >= len(b.pcm) {
		if !b.loop || len(b.pcm) == 0 {
			return 0, io.EOF
		}
		b.pos = 0
	}
	n := copy(buf, b.pcm[b.pos:])
	b.pos += n
	return n, nil
}

// decoderChunks pulls samples from a decoder as the device drains.
type decoderChunks struct {
	dec   decode.Decoder
	fmt   audio.Format
	bytes []byte
	loop  bool
}

func newDecoderChunks(dec decode.Decoder, loop bool) *decoderChunks {
	return &decoderChunks{dec: dec, fmt: dec.Format(), loop: loop}
}

func (d *decoderChunks) rate() int     { return d.fmt.SampleRate }
func (d *decoderChunks) channels() int { return d.fmt.Channels.Count() }

func (d *decoderChunks) read(buf []int16) (int, error) {
	want := len(buf) * 2
	if cap(d.bytes) < want {
		d.bytes = make([]byte, want)
	}
	frames, err := d.dec.ReadFrames(d.bytes[:want])
	if err == io.EOF && frames == 0 && d.loop {
		if rerr := d.dec.Rewind(); rerr == nil {
			frames, err = d.dec.ReadFrames(d.bytes[:want])
		}
	}
	n := d.fmt.FramesToBytes(frames) / 2
	for i := 0; i < n; i++ {
		buf[i] = int16(uint16(d.bytes[i*2]) | uint16(d.bytes[i*2+1])<<8)
	}
	return n, err
}

// deviceReader is the io.Reader handed to an oto player. It converts a
// chunk source to the device rate and stereo layout, applies the
// current pitch as a resample ratio, and meters output loudness.
// oto reads it from its own goroutine, so all state is locked.
type deviceReader struct {
	mu      sync.Mutex
	src     chunkSource
	outRate int
	pitch   float32

	srcBuf  []int16
	readBuf []int16
	pos     float64
	eof     bool

	loudness float32
}

func newDeviceReader(src chunkSource, outRate int, pitch float32) *deviceReader {
	if pitch <= 0 {
		pitch = 1
	}
	return &deviceReader{
		src:     src,
		outRate: outRate,
		pitch:   pitch,
		readBuf: make([]int16, 4096),
	}
}

// setPitch adjusts the playback rate of everything read from now on.
func (r *deviceReader) setPitch(pitch float32) {
	if pitch <= 0 {
		return
	}
	r.mu.Lock()
	r.pitch = pitch
	r.mu.Unlock()
}

// getLoudness returns the RMS loudness of the last chunk delivered.
func (r *deviceReader) getLoudness() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loudness
}

func (r *deviceReader) fill(need int) {
	for len(r.srcBuf) < need && !r.eof {
		n, err := r.src.read(r.readBuf)
		r.srcBuf = append(r.srcBuf, r.readBuf[:n]...)
		if err != nil || n == 0 {
			r.eof = true
		}
	}
}

func (r *deviceReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := r.src.channels()
	if ch == 0 {
		return 0, io.EOF
	}
	outFrames := len(p) / 4
	step := float64(r.src.rate()) * float64(r.pitch) / float64(r.outRate)

	written := 0
	for written < outFrames {
		i0 := int(r.pos)
		r.fill((i0 + 2) * ch)
		if len(r.srcBuf) < (i0+1)*ch {
			break
		}

		i1 := i0 + 1
		if len(r.srcBuf) < (i1+1)*ch {
			i1 = i0
		}
		frac := r.pos - float64(i0)

		var l, rr int16
		switch {
		case ch == 1:
			a := float64(r.srcBuf[i0])
			b := float64(r.srcBuf[i1])
			l = int16(a + (b-a)*frac)
			rr = l
		default:
			a := float64(r.srcBuf[i0*ch])
			b := float64(r.srcBuf[i1*ch])
			l = int16(a + (b-a)*frac)
			a = float64(r.srcBuf[i0*ch+1])
			b = float64(r.srcBuf[i1*ch+1])
			rr = int16(a + (b-a)*frac)
		}

		p[written*4] = byte(l)
		p[written*4+1] = byte(l >> 8)
		p[written*4+2] = byte(rr)
		p[written*4+3] = byte(rr >> 8)
		written++
		r.pos += step
	}

	// Drop frames the cursor has moved past, keeping one behind for
	// interpolation.
	if drop := int(r.pos) - 1; drop > 0 {
		if avail := len(r.srcBuf) / ch; drop > avail {
			drop = avail
		}
		r.srcBuf = append(r.srcBuf[:0], r.srcBuf[drop*ch:]...)
		r.pos -= float64(drop)
	}

	if written == 0 {
		return 0, io.EOF
	}
	r.loudness = rms(bytesToSamples(p[:written*4]))
	return written * 4, nil
}
