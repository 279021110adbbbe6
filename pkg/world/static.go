// ABOUTME: In-memory World implementation
// ABOUTME: Backs tests and the demo binary with settable state
package world

import (
	"sync"

	"github.com/google/uuid"
)

// Entity is the mutable state of one entity in a Static world.
type Entity struct {
	Position Vec3
	Head     Vec3
	CellKey  string
}

// Static is a World held entirely in memory. All state is settable;
// reads and writes may interleave from different goroutines.
type Static struct {
	mu        sync.RWMutex
	player    uuid.UUID
	entities  map[uuid.UUID]Entity
	cells     map[string]Cell
	sounds    map[string]SoundRecord
	regions   map[string]Region
	submerged int
	inGame    bool
}

// NewStatic returns an empty world with no player and no session.
func NewStatic() *Static {
	return &Static{
		entities: make(map[uuid.UUID]Entity),
		cells:    make(map[string]Cell),
		sounds:   make(map[string]SoundRecord),
		regions:  make(map[string]Region),
	}
}

// SetPlayer designates the player entity.
func (w *Static) SetPlayer(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.player = id
}

// SetEntity adds or replaces an entity.
func (w *Static) SetEntity(id uuid.UUID, e Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entities[id] = e
}

// RemoveEntity deletes an entity.
func (w *Static) RemoveEntity(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entities, id)
}

// SetCell adds or replaces a cell.
func (w *Static) SetCell(c Cell) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cells[c.Key] = c
}

// SetSoundRecord adds or replaces a sound definition.
func (w *Static) SetSoundRecord(id string, rec SoundRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sounds[id] = rec
}

// SetRegion adds or replaces a region.
func (w *Static) SetRegion(r Region) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.regions[r.Name] = r
}

// SetSubmergedPoints fixes the value SubmergedPoints reports.
func (w *Static) SetSubmergedPoints(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.submerged = n
}

// SetInGame toggles the active session flag.
func (w *Static) SetInGame(active bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inGame = active
}

func (w *Static) Player() uuid.UUID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.player
}

func (w *Static) EntityPosition(id uuid.UUID) (Vec3, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	return e.Position, ok
}

func (w *Static) EntityHeadPosition(id uuid.UUID) (Vec3, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	return e.Head, ok
}

func (w *Static) EntityCell(id uuid.UUID) (Cell, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	e, ok := w.entities[id]
	if !ok {
		return Cell{}, false
	}
	c, ok := w.cells[e.CellKey]
	return c, ok
}

func (w *Static) SoundRecord(id string) (SoundRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rec, ok := w.sounds[id]
	return rec, ok
}

func (w *Static) Region(name string) (Region, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.regions[name]
	return r, ok
}

func (w *Static) SubmergedPoints(pos Vec3, radius float32, points int) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.submerged > points {
		return points
	}
	return w.submerged
}

func (w *Static) InGame() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.inGame
}
