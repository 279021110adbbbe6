// ABOUTME: Voice line playback
// ABOUTME: Queued say requests promote to async decoder opens, then stream
package sound

import (
	"log"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/openrift/audio/pkg/audio/decode"
	"github.com/openrift/audio/pkg/vfs"
)

// voicePath normalizes a voice file name. References authored against
// .wav sources fall back to a .mp3 of the same name when only that
// exists.
func (m *Manager) voicePath(file string) string {
	p := vfs.Normalize(file)
	if m.fs.Exists(p) {
		return p
	}
	if path.Ext(p) == ".wav" {
		mp3 := strings.TrimSuffix(p, ".wav") + ".mp3"
		if m.fs.Exists(mp3) {
			return mp3
		}
	}
	return p
}

// Say plays a voice line from an entity's head. Any previous say on
// the entity is stopped first.
func (m *Manager) Say(entity uuid.UUID, file string) {
	if !m.enabled {
		return
	}
	m.StopSay(entity)

	st := NewStream(Params{
		VolumeFactor: 1,
		BaseVolume:   m.volumeFromType(TypeVoice),
		Pitch:        1,
		MinDistance:  m.cfg.DefaultMinDistance,
		MaxDistance:  m.cfg.DefaultMaxDistance,
		Flags:        TypeVoice | ModeNoEnv | play3D,
	})
	if pos, ok := m.w.EntityHeadPosition(entity); ok {
		st.params.Pos = pos
	}
	m.sayQueue = append(m.sayQueue, &pendingVoice{
		entity: entity,
		path:   m.voicePath(file),
		stream: st,
	})
}

// SayLocal plays a voice line with no 3D position, for announcements
// and player thoughts.
func (m *Manager) SayLocal(file string) {
	if !m.enabled {
		return
	}
	m.StopSay(uuid.Nil)

	st := NewStream(Params{
		VolumeFactor: 1,
		BaseVolume:   m.volumeFromType(TypeVoice),
		Pitch:        1,
		MinDistance:  m.cfg.DefaultMinDistance,
		MaxDistance:  m.cfg.DefaultMaxDistance,
		Flags:        TypeVoice | ModeNoEnv,
	})
	m.sayQueue = append(m.sayQueue, &pendingVoice{
		entity: uuid.Nil,
		path:   m.voicePath(file),
		stream: st,
	})
}

// StopSay stops the active or pending voice line on an entity.
func (m *Manager) StopSay(entity uuid.UUID) {
	kept := m.sayQueue[:0]
	for _, pv := range m.sayQueue {
		if pv.entity == entity {
			pv.stream.CancelLoading()
			continue
		}
		kept = append(kept, pv)
	}
	m.sayQueue = kept

	if pv, ok := m.pendingVoices[entity]; ok {
		pv.stream.CancelLoading()
		pv.task.Abort()
		delete(m.pendingVoices, entity)
	}
	if st, ok := m.activeSays[entity]; ok {
		m.out.FinishStream(st)
		delete(m.activeSays, entity)
	}
}

// SayActive reports whether a voice line is playing or pending on an
// entity.
func (m *Manager) SayActive(entity uuid.UUID) bool {
	for _, pv := range m.sayQueue {
		if pv.entity == entity && pv.stream.State() == Loading {
			return true
		}
	}
	if pv, ok := m.pendingVoices[entity]; ok && pv.stream.State() == Loading {
		return true
	}
	if st, ok := m.activeSays[entity]; ok {
		return m.out.IsStreamPlaying(st)
	}
	return false
}

// SayDone reports whether an entity has finished speaking.
func (m *Manager) SayDone(entity uuid.UUID) bool {
	return !m.SayActive(entity)
}

// SaySoundLoudness reports the momentary loudness of an entity's voice
// line in [0, 1], zero when it is not speaking.
func (m *Manager) SaySoundLoudness(entity uuid.UUID) float32 {
	st, ok := m.activeSays[entity]
	if !ok || !m.out.IsStreamPlaying(st) {
		return 0
	}
	return m.out.StreamLoudness(st)
}

// promoteSayQueue submits decoder opens for say requests queued since
// the last frame.
func (m *Manager) promoteSayQueue() {
	for _, pv := range m.sayQueue {
		if pv.stream.State() != Loading {
			continue
		}
		if old, ok := m.pendingVoices[pv.entity]; ok {
			old.stream.CancelLoading()
			old.task.Abort()
		}

		pv.task = m.queue.Submit(func() {
			dec := decode.New(m.fs)
			if err := dec.Open(pv.path); err != nil {
				log.Printf("failed to load voice %s: %v", pv.path, err)
				return
			}
			m.voiceCache.put(pv.entity, dec)
		})
		pv.deadline = m.now().Add(m.cfg.OpTimeout)
		m.pendingVoices[pv.entity] = pv
	}
	m.sayQueue = m.sayQueue[:0]
}

// playVoicesFromDecoders drains finished decoder opens and starts the
// corresponding streams. Done-but-undelivered tasks are failed opens;
// their requests are dropped.
func (m *Manager) playVoicesFromDecoders() {
	var settled []uuid.UUID
	for entity, pv := range m.pendingVoices {
		if pv.task.Done() {
			settled = append(settled, entity)
		}
	}

	for entity, dec := range m.voiceCache.drain() {
		pv, ok := m.pendingVoices[entity]
		if !ok || pv.stream.State() != Loading {
			if ok {
				delete(m.pendingVoices, entity)
			}
			dec.Close()
			continue
		}
		delete(m.pendingVoices, entity)

		var played bool
		if pv.stream.params.Flags.Is3D() {
			if pos, ok := m.w.EntityHeadPosition(entity); ok {
				pv.stream.params.Pos = pos
			}
			played = m.out.StreamSound3D(dec, pv.stream, false)
		} else {
			played = m.out.StreamSound(dec, pv.stream, false)
		}
		if !played {
			log.Printf("failed to play voice %s", pv.path)
			dec.Close()
			continue
		}

		pv.stream.SetPlaying()
		if old, ok := m.activeSays[entity]; ok {
			m.out.FinishStream(old)
		}
		m.activeSays[entity] = pv.stream
	}

	// Tasks seen done before the drain and still pending delivered no
	// decoder: the open failed.
	for _, entity := range settled {
		if pv, ok := m.pendingVoices[entity]; ok {
			pv.stream.CancelLoading()
			delete(m.pendingVoices, entity)
		}
	}
}

// updateVoices tracks speakers and retires finished voice streams.
func (m *Manager) updateVoices(dt float32) {
	for entity, st := range m.activeSays {
		if !m.out.IsStreamPlaying(st) {
			delete(m.activeSays, entity)
			continue
		}
		if st.params.Flags.Is3D() {
			if pos, ok := m.w.EntityHeadPosition(entity); ok {
				st.params.Pos = pos
			}
		}
		st.UpdateFade(dt)
		m.out.UpdateStream(st)
	}
}
