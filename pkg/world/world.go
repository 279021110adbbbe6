// ABOUTME: World context consumed by the audio engine
// ABOUTME: Entity transforms, cells, regions and sound records behind one interface
package world

import (
	"math"

	"github.com/google/uuid"
)

// Vec3 is a position in world units.
type Vec3 struct {
	X, Y, Z float32
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Len2 returns the squared length of v.
func (v Vec3) Len2() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Dist2 returns the squared distance between v and o.
func (v Vec3) Dist2(o Vec3) float32 {
	return v.Sub(o).Len2()
}

// Dist returns the distance between v and o.
func (v Vec3) Dist(o Vec3) float32 {
	return float32(math.Sqrt(float64(v.Sub(o).Len2())))
}

// Cell describes the cell an entity stands in.
type Cell struct {
	Key        string
	IsExterior bool
	Region     string // region name, exterior cells only
	HasWater   bool
	WaterLevel float32
}

// SoundRecord is one sound definition: the resource it plays and its
// authored volume and range.
type SoundRecord struct {
	File     string
	Volume   uint8 // 0..255, mapped through a logarithmic curve
	MinRange float32
	MaxRange float32
}

// RegionSoundRef is one ambient sound a region may play, with the
// weight of drawing it.
type RegionSoundRef struct {
	SoundID string
	Chance  uint8
}

// Region is a named exterior region and its ambient sound list.
type Region struct {
	Name   string
	Sounds []RegionSoundRef
}

// World exposes the game state the audio engine reads. Implementations
// must tolerate concurrent reads; the engine queries from its update
// loop and from decode workers.
type World interface {
	// Player returns the id of the player entity, or uuid.Nil when no
	// player exists yet.
	Player() uuid.UUID

	// EntityPosition returns the world position of an entity.
	EntityPosition(id uuid.UUID) (Vec3, bool)

	// EntityHeadPosition returns the position voice lines emit from.
	EntityHeadPosition(id uuid.UUID) (Vec3, bool)

	// EntityCell returns the cell an entity currently occupies.
	EntityCell(id uuid.UUID) (Cell, bool)

	// SoundRecord resolves a sound id to its definition.
	SoundRecord(id string) (SoundRecord, bool)

	// Region resolves a region name to its ambient sound list.
	Region(name string) (Region, bool)

	// SubmergedPoints samples points in a circle of the given radius
	// around pos and returns how many of them lie at or below a water
	// surface.
	SubmergedPoints(pos Vec3, radius float32, points int) int

	// InGame reports whether a game session is active. Ambience
	// subsystems only run in a session.
	InGame() bool
}
