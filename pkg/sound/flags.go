// ABOUTME: Play-mode and type flags carried by every instance
// ABOUTME: Modes control looping and culling, types group instances for volume and pause
package sound

// Flags combine a play mode, a sound type and internal routing bits
// into one field on the instance parameters.
type Flags uint16

// Play modes.
const (
	ModeNormal           Flags = 0
	ModeLoop             Flags = 1 << 0
	ModeNoEnv            Flags = 1 << 1
	ModeRemoveAtDistance Flags = 1 << 2
	ModeNoPlayerLocal    Flags = 1 << 3

	ModeLoopNoEnv            = ModeLoop | ModeNoEnv
	ModeLoopRemoveAtDistance = ModeLoop | ModeRemoveAtDistance
)

// Sound types. Every instance carries exactly one.
const (
	TypeSfx   Flags = 1 << 4
	TypeVoice Flags = 1 << 5
	TypeFoot  Flags = 1 << 6
	TypeMusic Flags = 1 << 7
	TypeMovie Flags = 1 << 8

	TypeMask = TypeSfx | TypeVoice | TypeFoot | TypeMusic | TypeMovie
)

// play3D marks an instance as positional. Set internally by the
// request path, never by callers.
const play3D Flags = 1 << 9

// Is3D reports whether the flags mark a positional instance.
func (f Flags) Is3D() bool { return f&play3D != 0 }

// Type returns the type bits of f.
func (f Flags) Type() Flags { return f & TypeMask }
