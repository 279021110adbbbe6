// ABOUTME: Output backend over the oto audio device
// ABOUTME: Loads buffers through the decode package and mixes via oto players
package otoout

import (
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/openrift/audio/pkg/audio/decode"
	"github.com/openrift/audio/pkg/sound"
	"github.com/openrift/audio/pkg/vfs"
)

const (
	deviceRate     = 44100
	deviceChannels = 2
	bytesPerFrame  = deviceChannels * 2
)

// buffer is the backend-resident form of one sound resource: s16
// samples already at the device rate and channel layout.
type buffer struct {
	pcm []int16
}

func (b *buffer) size() int { return len(b.pcm) * 2 }

type soundPlayer struct {
	player *oto.Player
	reader *deviceReader
	flags  sound.Flags
	paused bool
}

type streamPlayer struct {
	player *oto.Player
	reader *deviceReader
	dec    decode.Decoder
	flags  sound.Flags
	paused bool
}

// Output drives a single oto device. The orchestrator calls it from
// the frame thread; LoadSound is also safe from decode workers since
// it only runs the decode pipeline and never touches the device or
// the player tables.
type Output struct {
	fs  vfs.FS
	ctx *oto.Context

	mu       sync.Mutex
	sounds   map[*sound.Sound]*soundPlayer
	streams  map[*sound.Stream]*streamPlayer
	listener sound.Listener
}

// New creates an Output resolving resources through fs. The device is
// not opened until Init.
func New(fs vfs.FS) *Output {
	return &Output{
		fs:      fs,
		sounds:  make(map[*sound.Sound]*soundPlayer),
		streams: make(map[*sound.Stream]*streamPlayer),
	}
}

// Init opens the audio device. oto owns device selection, so the
// device name is advisory; HRTF is not available and logged when
// requested.
func (o *Output) Init(device string, hrtf sound.HrtfMode) bool {
	if o.ctx != nil {
		return true
	}
	if hrtf == sound.HrtfOn {
		log.Printf("hrtf requested but not supported by this backend")
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   deviceRate,
		ChannelCount: deviceChannels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		log.Printf("failed to open audio device: %v", err)
		return false
	}

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		log.Printf("audio device not ready after 5s")
		return false
	}
	o.ctx = ctx
	return true
}

// EnumerateDevices lists selectable devices. oto exposes only the
// system default.
func (o *Output) EnumerateDevices() []string {
	return []string{"default"}
}

// LoadSound decodes a resource fully and converts it to the device
// format. Pure CPU work, safe off the frame thread.
func (o *Output) LoadSound(path string) (any, int) {
	dec := decode.New(o.fs)
	if err := dec.Open(path); err != nil {
		log.Printf("failed to open %s: %v", path, err)
		return nil, 0
	}
	defer dec.Close()

	raw, err := decode.ReadAll(dec)
	if err != nil {
		log.Printf("failed to decode %s: %v", path, err)
		return nil, 0
	}

	f := dec.Format()
	samples := bytesToSamples(raw)
	samples = toStereo(samples, f.Channels.Count())
	samples = resampleLinear(samples, deviceChannels, f.SampleRate, deviceRate)

	buf := &buffer{pcm: samples}
	return buf, buf.size()
}

// UnloadSound releases a loaded buffer.
func (o *Output) UnloadSound(handle any) int {
	buf, ok := handle.(*buffer)
	if !ok {
		return 0
	}
	size := buf.size()
	buf.pcm = nil
	return size
}

func (o *Output) gain(s *sound.Params, real float32) float64 {
	g := real
	if s.Flags.Is3D() {
		g *= attenuate(o.listener.Pos, s.Pos, s.MinDistance, s.MaxDistance)
	}
	if g < 0 {
		g = 0
	}
	if g > 1 {
		g = 1
	}
	return float64(g)
}

func (o *Output) startSound(s *sound.Sound, handle any, offset float32) bool {
	if o.ctx == nil {
		return false
	}
	buf, ok := handle.(*buffer)
	if !ok || len(buf.pcm) == 0 {
		return false
	}

	p := s.Params()
	start := int(offset * deviceRate)
	src := newBufferChunks(buf.pcm, deviceRate, deviceChannels, p.Flags&sound.ModeLoop != 0, start)
	reader := newDeviceReader(src, deviceRate, p.Pitch)

	player := o.ctx.NewPlayer(reader)
	player.SetVolume(o.gain(p, s.RealVolume()))
	player.Play()

	o.mu.Lock()
	o.sounds[s] = &soundPlayer{player: player, reader: reader, flags: p.Flags}
	o.mu.Unlock()
	s.SetHandle(handle)
	return true
}

// PlaySound starts a non-positional buffer instance.
func (o *Output) PlaySound(s *sound.Sound, handle any, offset float32) bool {
	return o.startSound(s, handle, offset)
}

// PlaySound3D starts a positional buffer instance.
func (o *Output) PlaySound3D(s *sound.Sound, handle any, offset float32) bool {
	return o.startSound(s, handle, offset)
}

func (o *Output) startStream(dec decode.Decoder, s *sound.Stream, loop bool) bool {
	if o.ctx == nil {
		return false
	}

	p := s.Params()
	reader := newDeviceReader(newDecoderChunks(dec, loop), deviceRate, p.Pitch)

	player := o.ctx.NewPlayer(reader)
	player.SetVolume(o.gain(p, s.RealVolume()))
	player.Play()

	o.mu.Lock()
	o.streams[s] = &streamPlayer{player: player, reader: reader, dec: dec, flags: p.Flags}
	o.mu.Unlock()
	return true
}

// StreamSound starts a non-positional decoder-fed stream. The backend
// takes ownership of the decoder and closes it with the stream.
func (o *Output) StreamSound(dec decode.Decoder, s *sound.Stream, loop bool) bool {
	return o.startStream(dec, s, loop)
}

// StreamSound3D starts a positional decoder-fed stream.
func (o *Output) StreamSound3D(dec decode.Decoder, s *sound.Stream, loop bool) bool {
	return o.startStream(dec, s, loop)
}

// IsSoundPlaying reports liveness. Paused instances count as playing
// so the orchestrator does not retire them.
func (o *Output) IsSoundPlaying(s *sound.Sound) bool {
	o.mu.Lock()
	sp, ok := o.sounds[s]
	o.mu.Unlock()
	if !ok {
		return false
	}
	if sp.paused {
		return true
	}
	return sp.player.IsPlaying()
}

// IsStreamPlaying reports stream liveness.
func (o *Output) IsStreamPlaying(s *sound.Stream) bool {
	o.mu.Lock()
	sp, ok := o.streams[s]
	o.mu.Unlock()
	if !ok {
		return false
	}
	if sp.paused {
		return true
	}
	return sp.player.IsPlaying()
}

// FinishSound stops an instance and releases its player.
func (o *Output) FinishSound(s *sound.Sound) {
	o.mu.Lock()
	sp, ok := o.sounds[s]
	delete(o.sounds, s)
	o.mu.Unlock()
	if !ok {
		return
	}
	sp.player.Close()
}

// FinishStream stops a stream, releasing its player and decoder.
func (o *Output) FinishStream(s *sound.Stream) {
	o.mu.Lock()
	sp, ok := o.streams[s]
	delete(o.streams, s)
	o.mu.Unlock()
	if !ok {
		return
	}
	sp.player.Close()
	sp.dec.Close()
}

// UpdateSound pushes volume, attenuation and pitch.
func (o *Output) UpdateSound(s *sound.Sound) {
	o.mu.Lock()
	sp, ok := o.sounds[s]
	o.mu.Unlock()
	if !ok {
		return
	}
	p := s.Params()
	sp.player.SetVolume(o.gain(p, s.RealVolume()))
	sp.reader.setPitch(p.Pitch)
}

// UpdateStream pushes volume, attenuation and pitch.
func (o *Output) UpdateStream(s *sound.Stream) {
	o.mu.Lock()
	sp, ok := o.streams[s]
	o.mu.Unlock()
	if !ok {
		return
	}
	p := s.Params()
	sp.player.SetVolume(o.gain(p, s.RealVolume()))
	sp.reader.setPitch(p.Pitch)
}

// StreamLoudness reports the momentary loudness of a stream.
func (o *Output) StreamLoudness(s *sound.Stream) float32 {
	o.mu.Lock()
	sp, ok := o.streams[s]
	o.mu.Unlock()
	if !ok {
		return 0
	}
	return sp.reader.getLoudness()
}

// StreamDelay reports the seconds of audio fed to the device but not
// yet audible.
func (o *Output) StreamDelay(s *sound.Stream) float32 {
	o.mu.Lock()
	sp, ok := o.streams[s]
	o.mu.Unlock()
	if !ok {
		return 0
	}
	return float32(sp.player.BufferedSize()) / (deviceRate * bytesPerFrame)
}

// PauseSounds pauses every instance whose type is in the mask.
func (o *Output) PauseSounds(types sound.Flags) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, sp := range o.sounds {
		if sp.flags&types != 0 && !sp.paused {
			sp.player.Pause()
			sp.paused = true
		}
	}
	for _, sp := range o.streams {
		if sp.flags&types != 0 && !sp.paused {
			sp.player.Pause()
			sp.paused = true
		}
	}
}

// ResumeSounds resumes every instance whose type is in the mask.
func (o *Output) ResumeSounds(types sound.Flags) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, sp := range o.sounds {
		if sp.flags&types != 0 && sp.paused {
			sp.player.Play()
			sp.paused = false
		}
	}
	for _, sp := range o.streams {
		if sp.flags&types != 0 && sp.paused {
			sp.player.Play()
			sp.paused = false
		}
	}
}

// PauseActiveDevice suspends the whole device.
func (o *Output) PauseActiveDevice() {
	if o.ctx != nil {
		o.ctx.Suspend()
	}
}

// ResumeActiveDevice resumes a suspended device.
func (o *Output) ResumeActiveDevice() {
	if o.ctx != nil {
		o.ctx.Resume()
	}
}

// StartUpdate begins a frame's batch. oto applies changes immediately,
// so batching is a no-op here.
func (o *Output) StartUpdate() {}

// UpdateListener stores the listener pose used for attenuation.
func (o *Output) UpdateListener(l sound.Listener) {
	o.listener = l
}

// FinishUpdate ends a frame's batch.
func (o *Output) FinishUpdate() {}

// Close stops every player. The oto context itself cannot be closed;
// it is suspended instead.
func (o *Output) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for s, sp := range o.sounds {
		sp.player.Close()
		delete(o.sounds, s)
	}
	for s, sp := range o.streams {
		sp.player.Close()
		sp.dec.Close()
		delete(o.streams, s)
	}
	if o.ctx != nil {
		o.ctx.Suspend()
	}
}
