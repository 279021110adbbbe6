// ABOUTME: Sound and Stream instances and their lifecycle
// ABOUTME: Loading transitions to Playing or LoadCancelled, never back
package sound

import "github.com/openrift/audio/pkg/world"

// State is the lifecycle of one instance. The only legal transitions
// are Loading to Playing and Loading to LoadCancelled.
type State uint8

const (
	// Loading is the initial state: the instance exists but has not
	// been committed to the backend.
	Loading State = iota

	// Playing means the backend accepted the instance.
	Playing

	// LoadCancelled is terminal: decode results for this instance must
	// be discarded without committing.
	LoadCancelled
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case LoadCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Params is the parameter block every live instance carries.
type Params struct {
	Pos world.Vec3

	// VolumeFactor is the caller-requested volume, scaled down by an
	// active fade.
	VolumeFactor float32

	// SfxVolume is the per-source volume from the sound record.
	SfxVolume float32

	// BaseVolume is the type-category volume at creation time.
	BaseVolume float32

	Pitch       float32
	MinDistance float32
	MaxDistance float32
	Flags       Flags

	// FadeOutTime is the remaining fade-out in seconds, zero when no
	// fade is active.
	FadeOutTime float32
}

// instance is the shared core of Sound and Stream.
type instance struct {
	params Params
	state  State
	handle any // backend-private, attached on commit
}

// Params returns a pointer to the instance's parameter block. Callers
// on the frame thread may mutate it before and while the instance is
// audible.
func (s *instance) Params() *Params { return &s.params }

// State returns the lifecycle state.
func (s *instance) State() State { return s.state }

// SetPlaying commits the instance. Only valid from Loading.
func (s *instance) SetPlaying() bool {
	if s.state != Loading {
		return false
	}
	s.state = Playing
	return true
}

// CancelLoading marks the instance as stopped before its data was
// ready. Only valid from Loading.
func (s *instance) CancelLoading() bool {
	if s.state != Loading {
		return false
	}
	s.state = LoadCancelled
	return true
}

// Handle returns the backend handle, nil before commit.
func (s *instance) Handle() any { return s.handle }

// SetHandle attaches the backend handle.
func (s *instance) SetHandle(h any) { s.handle = h }

// RealVolume is the effective gain pushed to the backend.
func (s *instance) RealVolume() float32 {
	return s.params.VolumeFactor * s.params.SfxVolume * s.params.BaseVolume
}

// SetFadeout starts or restarts a fade-out over the given seconds.
func (s *instance) SetFadeout(seconds float32) {
	s.params.FadeOutTime = seconds
}

// UpdateFade advances an active fade-out by dt. Mutates only Playing
// instances. When the remaining fade reaches zero the volume factor is
// zero and the next liveness check retires the instance.
func (s *instance) UpdateFade(dt float32) {
	if s.state != Playing || s.params.FadeOutTime <= 0 {
		return
	}
	step := dt
	if step > s.params.FadeOutTime {
		step = s.params.FadeOutTime
	}
	s.params.VolumeFactor *= (s.params.FadeOutTime - step) / s.params.FadeOutTime
	s.params.FadeOutTime -= step
}

// Sound is one emission of a preloaded buffer.
type Sound struct {
	instance
}

// NewSound creates a Sound in Loading state.
func NewSound(p Params) *Sound {
	if p.SfxVolume == 0 {
		p.SfxVolume = 1
	}
	if p.Pitch == 0 {
		p.Pitch = 1
	}
	return &Sound{instance{params: p}}
}

// Stream is one emission fed incrementally by a decoder.
type Stream struct {
	instance
}

// NewStream creates a Stream in Loading state.
func NewStream(p Params) *Stream {
	if p.SfxVolume == 0 {
		p.SfxVolume = 1
	}
	if p.Pitch == 0 {
		p.Pitch = 1
	}
	return &Stream{instance{params: p}}
}
