// ABOUTME: Mock output backend for orchestrator tests
// ABOUTME: Records backend calls and simulates residency and playback
package sound

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/openrift/audio/pkg/audio"
	"github.com/openrift/audio/pkg/audio/decode"
	"github.com/openrift/audio/pkg/vfs"
)

type mockHandle struct {
	path string
	size int
}

// mockOutput implements Output in memory. A sound whose pushed volume
// reaches zero reports as no longer playing, which is how a fade to
// silence retires an instance.
type mockOutput struct {
	mu sync.Mutex

	initOK   bool
	failPlay bool

	loadSize map[string]int  // resource path -> byte size, default 1024
	failLoad map[string]bool // resource path -> load fails

	loadCalls   map[string]int
	playCalls   int
	streamCalls int

	soundPlaying  map[*Sound]bool
	streamPlaying map[*Stream]bool
	soundVolume   map[*Sound]float32
	streams       map[*Stream]decode.Decoder

	loudness    float32
	delay       float32
	paused      Flags
	suspended   bool
	listener    Listener
	updateDepth int
	closed      bool
}

func newMockOutput() *mockOutput {
	return &mockOutput{
		initOK:        true,
		loadSize:      make(map[string]int),
		failLoad:      make(map[string]bool),
		loadCalls:     make(map[string]int),
		soundPlaying:  make(map[*Sound]bool),
		streamPlaying: make(map[*Stream]bool),
		soundVolume:   make(map[*Sound]float32),
		streams:       make(map[*Stream]decode.Decoder),
	}
}

func (o *mockOutput) Init(device string, hrtf HrtfMode) bool { return o.initOK }

func (o *mockOutput) EnumerateDevices() []string { return []string{"mock"} }

func (o *mockOutput) LoadSound(path string) (any, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loadCalls[path]++
	if o.failLoad[path] {
		return nil, 0
	}
	size := o.loadSize[path]
	if size == 0 {
		size = 1024
	}
	return &mockHandle{path: path, size: size}, size
}

func (o *mockOutput) UnloadSound(handle any) int {
	return handle.(*mockHandle).size
}

func (o *mockOutput) playSound(s *Sound, handle any) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failPlay {
		return false
	}
	o.playCalls++
	s.SetHandle(handle)
	o.soundPlaying[s] = true
	o.soundVolume[s] = s.RealVolume()
	return true
}

func (o *mockOutput) PlaySound(s *Sound, handle any, offset float32) bool {
	return o.playSound(s, handle)
}

func (o *mockOutput) PlaySound3D(s *Sound, handle any, offset float32) bool {
	return o.playSound(s, handle)
}

func (o *mockOutput) streamSound(dec decode.Decoder, s *Stream) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failPlay {
		return false
	}
	o.streamCalls++
	o.streamPlaying[s] = true
	o.streams[s] = dec
	return true
}

func (o *mockOutput) StreamSound(dec decode.Decoder, s *Stream, loop bool) bool {
	return o.streamSound(dec, s)
}

func (o *mockOutput) StreamSound3D(dec decode.Decoder, s *Stream, loop bool) bool {
	return o.streamSound(dec, s)
}

func (o *mockOutput) IsSoundPlaying(s *Sound) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.soundPlaying[s] {
		return false
	}
	return o.soundVolume[s] > 0
}

func (o *mockOutput) IsStreamPlaying(s *Stream) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.streamPlaying[s]
}

func (o *mockOutput) FinishSound(s *Sound) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.soundPlaying[s] = false
}

func (o *mockOutput) FinishStream(s *Stream) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.streamPlaying[s] = false
	if dec, ok := o.streams[s]; ok && dec != nil {
		dec.Close()
		delete(o.streams, s)
	}
}

func (o *mockOutput) UpdateSound(s *Sound) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.soundVolume[s] = s.RealVolume()
}

func (o *mockOutput) UpdateStream(s *Stream) {}

func (o *mockOutput) StreamLoudness(s *Stream) float32 { return o.loudness }

func (o *mockOutput) StreamDelay(s *Stream) float32 { return o.delay }

func (o *mockOutput) PauseSounds(types Flags) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused |= types
}

func (o *mockOutput) ResumeSounds(types Flags) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused &^= types
}

func (o *mockOutput) PauseActiveDevice()  { o.suspended = true }
func (o *mockOutput) ResumeActiveDevice() { o.suspended = false }

func (o *mockOutput) StartUpdate() { o.updateDepth++ }

func (o *mockOutput) UpdateListener(l Listener) { o.listener = l }

func (o *mockOutput) FinishUpdate() { o.updateDepth-- }

func (o *mockOutput) Close() { o.closed = true }

// memFS is an in-memory vfs.FS for streaming tests.
type memFS struct {
	files map[string][]byte
}

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func (f memFS) Open(name string) (vfs.File, error) {
	b, ok := f.files[vfs.Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("resource not found: %s", name)
	}
	return memFile{bytes.NewReader(b)}, nil
}

func (f memFS) Exists(name string) bool {
	_, ok := f.files[vfs.Normalize(name)]
	return ok
}

func (f memFS) List(prefix string) []string {
	prefix = vfs.Normalize(prefix)
	var out []string
	for name := range f.files {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// wavBytes assembles a minimal mono 16-bit 8kHz WAV file.
func wavBytes(samples []int16) []byte {
	data := new(bytes.Buffer)
	for _, s := range samples {
		binary.Write(data, binary.LittleEndian, s)
	}

	buf := new(bytes.Buffer)
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint16(1))
	binary.Write(buf, binary.LittleEndian, uint32(8000))
	binary.Write(buf, binary.LittleEndian, uint32(8000*2))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

// fakeDecoder satisfies decode.Decoder without touching any file.
type fakeDecoder struct {
	frames int
	closed bool
}

func (d *fakeDecoder) Open(name string) error { return nil }

func (d *fakeDecoder) Format() audio.Format {
	return audio.Format{SampleRate: 8000, Channels: audio.ChannelsMono, Type: audio.SampleInt16}
}

func (d *fakeDecoder) ReadFrames(p []byte) (int, error) {
	if d.frames == 0 {
		return 0, io.EOF
	}
	n := len(p) / 2
	if n > d.frames {
		n = d.frames
	}
	d.frames -= n
	return n, nil
}

func (d *fakeDecoder) Rewind() error { return nil }

func (d *fakeDecoder) Close() error {
	d.closed = true
	return nil
}
