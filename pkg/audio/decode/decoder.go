// ABOUTME: Decoder interface and codec dispatch
// ABOUTME: Opens sound resources by name and yields signed 16-bit PCM frames
package decode

import (
	"fmt"
	"io"
	"path"

	"github.com/openrift/audio/pkg/audio"
	"github.com/openrift/audio/pkg/vfs"
)

// Decoder yields decoded PCM audio from one named resource. All decoders
// in this package emit interleaved signed 16-bit little-endian samples.
type Decoder interface {
	// Open resolves and opens the named resource.
	Open(name string) error

	// Format returns the PCM format of the decoded output. Valid only
	// after a successful Open.
	Format() audio.Format

	// ReadFrames fills p with whole frames of PCM data and returns the
	// number of frames read. It returns io.EOF at end of stream.
	ReadFrames(p []byte) (int, error)

	// Rewind restarts the stream from the beginning.
	Rewind() error

	// Close releases the underlying resource.
	Close() error
}

// codec is the streaming core of one container/codec pairing. It reads
// s16le PCM bytes, unaligned.
type codec interface {
	io.Reader
	format() audio.Format
}

// fileDecoder dispatches to a codec based on the resource name extension.
type fileDecoder struct {
	fs    vfs.FS
	name  string
	file  vfs.File
	inner codec
}

// New creates a decoder that resolves resources through fs.
func New(fs vfs.FS) Decoder {
	return &fileDecoder{fs: fs}
}

// Open resolves and opens the named resource.
func (d *fileDecoder) Open(name string) error {
	if d.file != nil {
		return fmt.Errorf("decoder already open")
	}

	f, err := d.fs.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}

	var inner codec
	switch ext := path.Ext(vfs.Normalize(name)); ext {
	case ".wav":
		inner, err = newWAV(f)
	case ".mp3":
		inner, err = newMP3(f)
	case ".flac":
		inner, err = newFLAC(f)
	case ".ogg":
		inner, err = newVorbis(f)
	default:
		err = fmt.Errorf("unsupported audio format: %s", ext)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}

	d.name = name
	d.file = f
	d.inner = inner
	return nil
}

// Rewind restarts the stream by reopening the resource. The codecs
// here only read forward, so a rewind is a fresh open.
func (d *fileDecoder) Rewind() error {
	if d.file == nil {
		return fmt.Errorf("decoder not open")
	}
	name := d.name
	if err := d.Close(); err != nil {
		return err
	}
	return d.Open(name)
}

// Format returns the PCM format of the decoded output.
func (d *fileDecoder) Format() audio.Format {
	if d.inner == nil {
		return audio.Format{}
	}
	return d.inner.format()
}

// ReadFrames fills p with whole frames and returns the frame count.
func (d *fileDecoder) ReadFrames(p []byte) (int, error) {
	if d.inner == nil {
		return 0, fmt.Errorf("decoder not open")
	}

	f := d.inner.format()
	frameSize := f.FramesToBytes(1)
	p = p[:len(p)/frameSize*frameSize]
	if len(p) == 0 {
		return 0, nil
	}

	// Accumulate whole frames; a codec may return short reads that
	// split a frame across calls.
	total := 0
	for total == 0 || total%frameSize != 0 {
		n, err := d.inner.Read(p[total:])
		total += n
		if err != nil {
			if err == io.EOF && total%frameSize == 0 {
				if total == 0 {
					return 0, io.EOF
				}
				break
			}
			return total / frameSize, err
		}
		if total == len(p) {
			break
		}
	}

	return total / frameSize, nil
}

// Close releases the underlying resource.
func (d *fileDecoder) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	d.inner = nil
	return err
}

// ReadAll composes repeated reads into a single buffer holding the whole
// decoded stream.
func ReadAll(d Decoder) ([]byte, error) {
	f := d.Format()
	chunk := f.FramesToBytes(8192)
	if chunk == 0 {
		return nil, fmt.Errorf("decoder has no format")
	}

	var out []byte
	buf := make([]byte, chunk)
	for {
		frames, err := d.ReadFrames(buf)
		out = append(out, buf[:f.FramesToBytes(frames)]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}
