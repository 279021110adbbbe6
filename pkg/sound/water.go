// ABOUTME: Near-water ambience policy
// ABOUTME: Computes the near-water sound and volume from listener proximity to water
package sound

import (
	"math"

	"github.com/openrift/audio/pkg/world"
)

// WaterSettings tunes the near-water ambience.
type WaterSettings struct {
	// NearWaterRadius is how close, vertically, the listener must be
	// to a water surface before the ambience fades in.
	NearWaterRadius float32

	// NearWaterPoints is how many points around the listener are
	// sampled to scale exterior volume by actual water coverage.
	NearWaterPoints int

	IndoorID  string
	OutdoorID string
}

// DefaultWaterSettings mirrors the game's stock tuning.
func DefaultWaterSettings() WaterSettings {
	return WaterSettings{
		NearWaterRadius: 1000,
		NearWaterPoints: 20,
		IndoorID:        "near water indoor",
		OutdoorID:       "near water outdoor",
	}
}

// waterUpdate is the policy result for one frame.
type waterUpdate struct {
	soundID string
	volume  float32
}

// waterUpdater computes the near-water sound target each frame. The
// orchestrator turns consecutive targets into play/volume/finish
// actions.
type waterUpdater struct {
	settings   WaterSettings
	underwater bool
}

func (u *waterUpdater) setUnderwater(submerged bool) { u.underwater = submerged }

func (u *waterUpdater) update(w world.World, pos world.Vec3, cell world.Cell) waterUpdate {
	out := waterUpdate{soundID: u.settings.IndoorID}
	if cell.IsExterior {
		out.soundID = u.settings.OutdoorID
	}
	out.volume = u.volume(w, pos, cell)
	if out.volume > 1 {
		out.volume = 1
	}
	return out
}

func (u *waterUpdater) volume(w world.World, pos world.Vec3, cell world.Cell) float32 {
	if u.underwater {
		return 1
	}
	if !cell.HasWater {
		return 0
	}
	dist := float32(math.Abs(float64(cell.WaterLevel - pos.Z)))
	if dist >= u.settings.NearWaterRadius {
		return 0
	}
	volume := (u.settings.NearWaterRadius - dist) / u.settings.NearWaterRadius

	// Exterior cells scale by how much of the surrounding area is
	// actually water; an interior with water is water everywhere.
	if cell.IsExterior && u.settings.NearWaterPoints > 0 {
		submerged := w.SubmergedPoints(pos, u.settings.NearWaterRadius, u.settings.NearWaterPoints)
		volume *= float32(submerged) / float32(u.settings.NearWaterPoints)
	}
	return volume
}

// waterAction is what the orchestrator should do with the near-water
// sound this frame.
type waterAction int

const (
	waterDoNothing waterAction = iota
	waterSetVolume
	waterFinishSound
	waterPlaySound
)

// waterSoundAction compares this frame's target against the live
// near-water sound. A cell transition that changes the target id
// replaces the sound; otherwise the live sound just tracks volume.
func waterSoundAction(upd waterUpdate, playing bool, cellChanged bool, prevID string) waterAction {
	if playing {
		if upd.volume == 0 {
			return waterFinishSound
		}
		if cellChanged && upd.soundID != prevID {
			return waterPlaySound
		}
		return waterSetVolume
	}
	if upd.volume > 0 {
		return waterPlaySound
	}
	return waterDoNothing
}
