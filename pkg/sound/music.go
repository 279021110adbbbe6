// ABOUTME: Music streaming and playlist hand-off
// ABOUTME: The outgoing track fades for one second before its successor starts
package sound

import (
	"log"

	"github.com/openrift/audio/pkg/audio/decode"
	"github.com/openrift/audio/pkg/vfs"
)

// StreamMusic plays a music file. A currently playing track fades out
// first and the new one starts when it falls silent.
func (m *Manager) StreamMusic(file string) {
	if !m.enabled {
		return
	}
	m.curPlaylist = nil
	m.advanceMusic(vfs.Normalize(file))
}

// PlayPlaylist starts random playback over the music files under
// music/<name>/. Tracks draw without replacement and the playlist
// keeps running until stopped or replaced.
func (m *Manager) PlayPlaylist(name string) {
	if !m.enabled {
		return
	}
	tracks := m.fs.List("music/" + vfs.Normalize(name) + "/")
	if len(tracks) == 0 {
		log.Printf("no music files for playlist %q", name)
		return
	}
	if m.curPlaylist != nil && m.curPlaylist.name == name {
		return
	}
	m.curPlaylist = newPlaylist(name, tracks, func(n int) int { return m.rng.IntN(n) })
	m.advanceMusic(m.curPlaylist.next())
}

// PlayTitleMusic plays the title screen playlist.
func (m *Manager) PlayTitleMusic() {
	m.PlayPlaylist("special")
}

// StopMusic stops the current track and forgets any playlist.
func (m *Manager) StopMusic() {
	if m.pendingMusic != nil {
		m.pendingMusic.stream.CancelLoading()
		m.pendingMusic.task.Abort()
		m.pendingMusic = nil
	}
	if m.music != nil {
		m.out.FinishStream(m.music)
		m.music = nil
	}
	m.nextMusic = ""
	m.curPlaylist = nil
}

// IsMusicPlaying reports whether a track is audible or on its way.
func (m *Manager) IsMusicPlaying() bool {
	if m.pendingMusic != nil || m.nextMusic != "" {
		return true
	}
	return m.music != nil && m.out.IsStreamPlaying(m.music)
}

// advanceMusic queues a track. A live track gets a fade-out and the
// successor waits for it; otherwise streaming starts at once.
func (m *Manager) advanceMusic(path string) {
	if path == "" {
		return
	}
	if m.music != nil && m.out.IsStreamPlaying(m.music) {
		m.nextMusic = path
		m.music.SetFadeout(musicFadeTime)
		return
	}
	m.startStreamingMusic(path)
}

// startStreamingMusic submits the async decoder open for a track.
func (m *Manager) startStreamingMusic(path string) {
	if m.pendingMusic != nil {
		m.pendingMusic.stream.CancelLoading()
		m.pendingMusic.task.Abort()
	}
	if m.music != nil {
		m.out.FinishStream(m.music)
		m.music = nil
	}

	st := NewStream(Params{
		VolumeFactor: 1,
		BaseVolume:   m.volumeFromType(TypeMusic),
		Pitch:        1,
		MinDistance:  m.cfg.DefaultMinDistance,
		MaxDistance:  m.cfg.DefaultMaxDistance,
		Flags:        TypeMusic | ModeNoEnv,
	})
	pm := &pendingMusic{
		path:     path,
		stream:   st,
		deadline: m.now().Add(m.cfg.OpTimeout),
	}
	pm.task = m.queue.Submit(func() {
		dec := decode.New(m.fs)
		if err := dec.Open(path); err != nil {
			log.Printf("failed to load music %s: %v", path, err)
			return
		}
		m.musicCache.put(dec)
	})
	m.pendingMusic = pm
}

// playMusicFromDecoder commits a finished music decoder open.
func (m *Manager) playMusicFromDecoder() {
	pm := m.pendingMusic
	var done bool
	if pm != nil {
		done = pm.task.Done()
	}

	dec := m.musicCache.take()
	if dec == nil {
		if pm != nil && done {
			// Open failed; try the next playlist track if any.
			pm.stream.CancelLoading()
			m.pendingMusic = nil
			if m.curPlaylist != nil {
				m.nextMusic = m.curPlaylist.next()
			}
		}
		return
	}
	if pm == nil || pm.stream.State() != Loading {
		dec.Close()
		m.pendingMusic = nil
		return
	}

	m.pendingMusic = nil
	if !m.out.StreamSound(dec, pm.stream, false) {
		log.Printf("failed to play music %s", pm.path)
		dec.Close()
		return
	}
	pm.stream.SetPlaying()
	m.music = pm.stream
}

// updateMusic advances the music fade and hands off to the queued or
// playlist successor when the current track ends or falls silent.
func (m *Manager) updateMusic(dt float32) {
	if m.music != nil {
		if !m.out.IsStreamPlaying(m.music) {
			m.music = nil
			if m.nextMusic == "" && m.curPlaylist != nil {
				m.nextMusic = m.curPlaylist.next()
			}
		} else {
			m.music.UpdateFade(dt)
			m.out.UpdateStream(m.music)
			if m.nextMusic != "" && m.music.RealVolume() <= 0 {
				m.out.FinishStream(m.music)
				m.music = nil
			}
		}
	}

	if m.music == nil && m.pendingMusic == nil && m.nextMusic != "" {
		path := m.nextMusic
		m.nextMusic = ""
		m.startStreamingMusic(path)
	}
}
