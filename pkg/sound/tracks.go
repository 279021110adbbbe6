// ABOUTME: Externally decoded track playback
// ABOUTME: Streams caller-supplied decoders, used for cutscene audio
package sound

import (
	"github.com/openrift/audio/pkg/audio/decode"
)

// PlayTrack streams audio from a decoder the caller owns and has
// already opened. The stream starts immediately; no async work is
// involved. Returns nil when the backend rejects it.
func (m *Manager) PlayTrack(dec decode.Decoder, flags Flags) *Stream {
	if !m.enabled {
		return nil
	}

	st := NewStream(Params{
		VolumeFactor: 1,
		BaseVolume:   m.volumeFromType(flags),
		Pitch:        1,
		MinDistance:  m.cfg.DefaultMinDistance,
		MaxDistance:  m.cfg.DefaultMaxDistance,
		Flags:        flags &^ play3D,
	})
	if !m.out.StreamSound(dec, st, false) {
		return nil
	}
	st.SetPlaying()
	m.activeTracks = append(m.activeTracks, st)
	return st
}

// StopTrack stops a stream started by PlayTrack.
func (m *Manager) StopTrack(st *Stream) {
	if st == nil {
		return
	}
	m.out.FinishStream(st)
	kept := m.activeTracks[:0]
	for _, t := range m.activeTracks {
		if t != st {
			kept = append(kept, t)
		}
	}
	m.activeTracks = kept
}

// TrackTimeDelay reports how far the track's audible output lags what
// has been fed to the device, in seconds. Used to sync video frames
// to audio.
func (m *Manager) TrackTimeDelay(st *Stream) float32 {
	if st == nil || !m.enabled {
		return 0
	}
	return m.out.StreamDelay(st)
}

// updateTracks retires finished tracks and pushes parameters on the
// rest.
func (m *Manager) updateTracks(dt float32) {
	kept := m.activeTracks[:0]
	for _, st := range m.activeTracks {
		if !m.out.IsStreamPlaying(st) {
			continue
		}
		st.UpdateFade(dt)
		m.out.UpdateStream(st)
		kept = append(kept, st)
	}
	m.activeTracks = kept
}
