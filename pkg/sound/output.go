// ABOUTME: Output backend capability interface
// ABOUTME: The single seam between the orchestrator and the audio device
package sound

import (
	"github.com/openrift/audio/pkg/audio/decode"
	"github.com/openrift/audio/pkg/world"
)

// HrtfMode selects head-related transfer function processing on
// backends that support it.
type HrtfMode int

const (
	HrtfAuto HrtfMode = iota
	HrtfOff
	HrtfOn
)

// Environment is the listener's acoustic environment.
type Environment int

const (
	EnvNormal Environment = iota
	EnvUnderwater
)

// Listener is the frame's listener pose and environment, pushed to the
// backend once per update.
type Listener struct {
	Pos world.Vec3
	Dir world.Vec3 // forward
	Up  world.Vec3
	Env Environment
}

// Output is the hardware backend. The orchestrator drives it from the
// frame thread; LoadSound alone may additionally be called from decode
// workers and must be safe for that.
type Output interface {
	// Init opens the device. A false return disables audio for the
	// process lifetime.
	Init(device string, hrtf HrtfMode) bool

	// EnumerateDevices lists selectable output devices.
	EnumerateDevices() []string

	// LoadSound decodes a resource into a backend-resident buffer and
	// returns an opaque handle with the buffer's byte size. A nil
	// handle means the load failed.
	LoadSound(path string) (any, int)

	// UnloadSound frees a loaded buffer and returns the bytes freed.
	UnloadSound(handle any) int

	// PlaySound starts a non-positional instance from a loaded buffer
	// at the given offset in seconds.
	PlaySound(s *Sound, handle any, offset float32) bool

	// PlaySound3D starts a positional instance from a loaded buffer.
	PlaySound3D(s *Sound, handle any, offset float32) bool

	// StreamSound starts a non-positional stream fed by the decoder.
	StreamSound(dec decode.Decoder, s *Stream, loop bool) bool

	// StreamSound3D starts a positional stream fed by the decoder.
	StreamSound3D(dec decode.Decoder, s *Stream, loop bool) bool

	IsSoundPlaying(s *Sound) bool
	IsStreamPlaying(s *Stream) bool

	FinishSound(s *Sound)
	FinishStream(s *Stream)

	// UpdateSound pushes the instance's current position, volume and
	// pitch to the device.
	UpdateSound(s *Sound)

	// UpdateStream pushes the stream's current position, volume and
	// pitch to the device.
	UpdateStream(s *Stream)

	// StreamLoudness reports the momentary loudness of a stream in
	// [0, 1], for lip sync.
	StreamLoudness(s *Stream) float32

	// StreamDelay reports how far, in seconds, the stream's audible
	// output lags what has been fed to the device.
	StreamDelay(s *Stream) float32

	// PauseSounds pauses every instance whose type is in the mask.
	PauseSounds(types Flags)

	// ResumeSounds resumes every instance whose type is in the mask.
	ResumeSounds(types Flags)

	// PauseActiveDevice suspends the whole device.
	PauseActiveDevice()

	// ResumeActiveDevice resumes a suspended device.
	ResumeActiveDevice()

	// StartUpdate begins a frame's batch of backend commands.
	StartUpdate()

	// UpdateListener sets the listener pose for the current batch.
	UpdateListener(l Listener)

	// FinishUpdate commits the frame's batch.
	FinishUpdate()

	// Close releases the device.
	Close()
}
