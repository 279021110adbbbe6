// ABOUTME: Per-frame drain and update loop
// ABOUTME: Commits finished async work and advances every live instance
package sound

import (
	"log"

	"github.com/google/uuid"
)

// Update advances the engine by dt seconds of frame time. Work
// accumulates until at least the minimum update interval has passed.
func (m *Manager) Update(dt float32) {
	if !m.enabled {
		return
	}
	m.updateTimer += dt
	if m.updateTimer < minUpdateInterval {
		return
	}
	dt = m.updateTimer
	m.updateTimer = 0

	m.promoteSayQueue()
	m.waitOverdue()
	m.updateEnvironment()

	m.out.StartUpdate()
	m.out.UpdateListener(m.listener)

	m.playLoadedSounds()
	m.playVoicesFromDecoders()
	m.playMusicFromDecoder()

	m.updateSounds(dt)
	m.updateVoices(dt)
	m.updateTracks(dt)
	m.updateMusic(dt)

	if m.w.InGame() {
		m.updateRegionSound(dt)
		m.updateWaterSound()
	}

	m.out.FinishUpdate()
}

// waitOverdue blocks on every pending task whose deadline has elapsed.
// This bounds staleness at roughly one decode's worth of work; tasks
// inside their deadline are never waited on.
func (m *Manager) waitOverdue() {
	now := m.now()
	for _, ps := range m.pendingSounds {
		if !ps.task.Done() && now.After(ps.deadline) {
			ps.task.Wait()
		}
	}
	for _, pv := range m.pendingVoices {
		if !pv.task.Done() && now.After(pv.deadline) {
			pv.task.Wait()
		}
	}
	if pm := m.pendingMusic; pm != nil && !pm.task.Done() && now.After(pm.deadline) {
		pm.task.Wait()
	}
}

// updateEnvironment resolves the player's cell, derives the listener
// environment and keeps the underwater loop in step with it.
func (m *Manager) updateEnvironment() {
	m.havePlayerCell = false
	if player := m.w.Player(); player != uuid.Nil {
		if cell, ok := m.w.EntityCell(player); ok {
			m.playerCell = cell
			m.havePlayerCell = true
		}
	}

	underwater := m.havePlayerCell && m.playerCell.HasWater &&
		m.listener.Pos.Z < m.playerCell.WaterLevel
	m.water.setUnderwater(underwater)
	if underwater {
		m.listener.Env = EnvUnderwater
	} else {
		m.listener.Env = EnvNormal
	}

	if underwater && m.underwaterSound == nil {
		m.underwaterSound = m.PlaySound(m.cfg.UnderwaterSoundID, 1, 1, TypeSfx|ModeLoopNoEnv, 0)
	} else if !underwater && m.underwaterSound != nil {
		m.StopSound(m.underwaterSound)
		m.underwaterSound = nil
	}
}

// playLoadedSounds drains finished buffer loads and commits the
// requests waiting on them. Cancelled requests and failed loads are
// discarded without touching the backend.
func (m *Manager) playLoadedSounds() {
	results := m.loadedCache.drain()
	if len(results) == 0 {
		return
	}
	for id := range results {
		delete(m.loadTasks, id)
	}

	kept := m.pendingSounds[:0]
	for _, ps := range m.pendingSounds {
		buf, done := results[ps.id]
		if !done {
			kept = append(kept, ps)
			continue
		}
		if ps.sound.State() != Loading {
			continue
		}
		if buf == nil {
			ps.sound.CancelLoading()
			continue
		}
		if !m.commitSound(ps.entity, buf, ps.sound, ps.offset) {
			log.Printf("failed to play sound %q", ps.id)
			ps.sound.CancelLoading()
		}
	}
	m.pendingSounds = kept
}

// updateSounds advances every live sound: track the emitting entity,
// apply the hard distance cull, retire instances the backend no longer
// plays and push parameters for the rest.
func (m *Manager) updateSounds(dt float32) {
	for entity, sounds := range m.active {
		kept := sounds[:0]
		for _, as := range sounds {
			s := as.sound

			if s.params.Flags.Is3D() && entity != uuid.Nil {
				if pos, ok := m.w.EntityPosition(entity); ok {
					s.params.Pos = pos
				}
			}
			if s.params.Flags.Is3D() && s.params.Flags&ModeRemoveAtDistance != 0 &&
				m.listener.Pos.Dist2(s.params.Pos) > cullDistance*cullDistance {
				m.out.FinishSound(s)
			}

			if !m.out.IsSoundPlaying(s) {
				m.buffers.release(as.buf)
				if s == m.underwaterSound {
					m.underwaterSound = nil
				}
				if s == m.nearWaterSound {
					m.nearWaterSound = nil
				}
				continue
			}

			s.UpdateFade(dt)
			m.out.UpdateSound(s)
			kept = append(kept, as)
		}
		if len(kept) == 0 {
			delete(m.active, entity)
		} else {
			m.active[entity] = kept
		}
	}
}

// updateRegionSound asks the region selector for an ambient trigger
// when the player stands in an exterior region.
func (m *Manager) updateRegionSound(dt float32) {
	if !m.havePlayerCell || !m.playerCell.IsExterior || m.playerCell.Region == "" {
		return
	}
	if id := m.region.next(dt, m.playerCell.Region, m.w); id != "" {
		m.PlaySound(id, 1, 1, TypeSfx, 0)
	}
}

// updateWaterSound drives the near-water loop from this frame's
// policy target. The loop starts once on entry, tracks volume while
// inside, and is replaced when a cell transition changes the target
// sound.
func (m *Manager) updateWaterSound() {
	if !m.havePlayerCell {
		if m.nearWaterSound != nil {
			m.StopSound(m.nearWaterSound)
			m.nearWaterSound = nil
		}
		return
	}

	upd := m.water.update(m.w, m.listener.Pos, m.playerCell)
	cellChanged := m.haveLastCell && m.lastCell.Key != m.playerCell.Key
	live := m.nearWaterSound != nil && m.nearWaterSound.State() != LoadCancelled

	switch waterSoundAction(upd, live, cellChanged, m.lastWaterID) {
	case waterFinishSound:
		m.StopSound(m.nearWaterSound)
		m.nearWaterSound = nil
	case waterPlaySound:
		if m.nearWaterSound != nil {
			m.StopSound(m.nearWaterSound)
		}
		m.nearWaterSound = m.PlaySound(upd.soundID, upd.volume, 1, TypeSfx|ModeLoop, 0)
		m.lastWaterID = upd.soundID
	case waterSetVolume:
		m.nearWaterSound.params.VolumeFactor = upd.volume
	}

	m.lastCell = m.playerCell
	m.haveLastCell = true
}
