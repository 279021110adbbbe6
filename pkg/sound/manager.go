// ABOUTME: Playback orchestrator facade and its request paths
// ABOUTME: Owns the tracking tables, ledgers and worker pool
package sound

import (
	"log"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openrift/audio/internal/task"
	"github.com/openrift/audio/pkg/audio/decode"
	"github.com/openrift/audio/pkg/vfs"
	"github.com/openrift/audio/pkg/world"
)

const (
	// cullDistance is the hard radius beyond which sounds flagged
	// ModeRemoveAtDistance are rejected or finished.
	cullDistance = 2000.0

	// minUpdateInterval accumulates frame time so the engine updates
	// at most 30 times a second.
	minUpdateInterval = 1.0 / 30.0

	// musicFadeTime is the fade applied to the outgoing track when a
	// successor is queued.
	musicFadeTime = 1.0
)

// Config tunes the engine. Zero values fall back to defaults.
type Config struct {
	Device string
	HRTF   HrtfMode

	// BufferCacheMin and BufferCacheMax bound the decoded buffer
	// cache in bytes. Defaults 14 MB and 16 MB, floored at 1 MB.
	BufferCacheMin int
	BufferCacheMax int

	// OpTimeout is the deadline granted to each async decode before
	// the frame thread blocks on it. Default 200 ms.
	OpTimeout time.Duration

	// Workers sizes the decode pool. Default 1.
	Workers int

	Volumes VolumeSettings

	DefaultMinDistance float32 // default 1
	DefaultMaxDistance float32 // default 1000
	MinDistanceMult    float32 // default 1
	MaxDistanceMult    float32 // default 1

	Water WaterSettings

	// RegionMinTime and RegionMaxTime bound the pause between region
	// ambience draws, in seconds. Defaults 2.5 and 7.5.
	RegionMinTime float32
	RegionMaxTime float32

	// UnderwaterSoundID loops while the listener is submerged.
	UnderwaterSoundID string
}

func (c Config) withDefaults() Config {
	const mb = 1024 * 1024
	if c.BufferCacheMin == 0 {
		c.BufferCacheMin = 14 * mb
	}
	if c.BufferCacheMax == 0 {
		c.BufferCacheMax = 16 * mb
	}
	if c.BufferCacheMin < mb {
		c.BufferCacheMin = mb
	}
	if c.BufferCacheMax < mb {
		c.BufferCacheMax = mb
	}
	if c.BufferCacheMax < c.BufferCacheMin {
		c.BufferCacheMax = c.BufferCacheMin
	}
	if c.OpTimeout == 0 {
		c.OpTimeout = 200 * time.Millisecond
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.Volumes == (VolumeSettings{}) {
		c.Volumes = DefaultVolumeSettings()
	}
	if c.DefaultMinDistance == 0 {
		c.DefaultMinDistance = 1
	}
	if c.DefaultMaxDistance == 0 {
		c.DefaultMaxDistance = 1000
	}
	if c.MinDistanceMult == 0 {
		c.MinDistanceMult = 1
	}
	if c.MaxDistanceMult == 0 {
		c.MaxDistanceMult = 1
	}
	if c.Water == (WaterSettings{}) {
		c.Water = DefaultWaterSettings()
	}
	if c.RegionMinTime == 0 {
		c.RegionMinTime = 2.5
	}
	if c.RegionMaxTime == 0 {
		c.RegionMaxTime = 7.5
	}
	if c.UnderwaterSoundID == "" {
		c.UnderwaterSoundID = "underwater"
	}
	return c
}

// Blocker identifies who asked for sounds to pause. Pause masks from
// different blockers compose.
type Blocker uint8

const (
	BlockerVideoPlayback Blocker = iota
	BlockerStatusMenu
	BlockerMainMenu
)

// activeSound pairs a live instance with the buffer it holds a use on.
type activeSound struct {
	sound *Sound
	buf   *Buffer
}

// pendingSound is one play request waiting on its buffer load.
type pendingSound struct {
	entity   uuid.UUID
	id       string
	offset   float32
	sound    *Sound
	task     *task.Task
	deadline time.Time
}

// pendingVoice is one voice line waiting on its decoder.
type pendingVoice struct {
	entity   uuid.UUID
	path     string
	stream   *Stream
	task     *task.Task
	deadline time.Time
}

// pendingMusic is the (single) music track waiting on its decoder.
type pendingMusic struct {
	path     string
	stream   *Stream
	task     *task.Task
	deadline time.Time
}

// Manager is the playback orchestrator. All methods are frame-thread
// only; background workers touch nothing here except the mutex-guarded
// decoder caches and the buffer cache.
type Manager struct {
	cfg     Config
	fs      vfs.FS
	out     Output
	w       world.World
	queue   *task.Queue
	buffers *bufferCache
	volumes VolumeSettings

	enabled bool

	pendingSounds []*pendingSound
	loadTasks     map[string]*task.Task
	loadedCache   *loadedCache

	active map[uuid.UUID][]activeSound

	sayQueue      []*pendingVoice
	pendingVoices map[uuid.UUID]*pendingVoice
	voiceCache    *voiceCache
	activeSays    map[uuid.UUID]*Stream

	music        *Stream
	nextMusic    string
	curPlaylist  *playlist
	pendingMusic *pendingMusic
	musicCache   *musicCache

	activeTracks []*Stream

	underwaterSound *Sound
	nearWaterSound  *Sound
	water           waterUpdater
	playerCell      world.Cell
	havePlayerCell  bool
	lastCell        world.Cell
	haveLastCell    bool
	lastWaterID     string
	region          *regionSelector

	listener       Listener
	pausedBlockers map[Blocker]Flags
	pushedPaused   Flags

	updateTimer float32
	rng         *rand.Rand
	now         func() time.Time
}

// NewManager opens the backend and returns a ready engine. A backend
// that fails to open leaves the engine permanently disabled; every
// request then yields no instance.
func NewManager(cfg Config, fs vfs.FS, out Output, w world.World) *Manager {
	cfg = cfg.withDefaults()
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	m := &Manager{
		cfg:            cfg,
		fs:             fs,
		out:            out,
		w:              w,
		queue:          task.NewQueue(cfg.Workers),
		buffers:        newBufferCache(out, w, cfg),
		volumes:        cfg.Volumes,
		loadTasks:      make(map[string]*task.Task),
		loadedCache:    newLoadedCache(),
		active:         make(map[uuid.UUID][]activeSound),
		pendingVoices:  make(map[uuid.UUID]*pendingVoice),
		voiceCache:     newVoiceCache(),
		activeSays:     make(map[uuid.UUID]*Stream),
		musicCache:     newMusicCache(),
		water:          waterUpdater{settings: cfg.Water},
		pausedBlockers: make(map[Blocker]Flags),
		rng:            rng,
		now:            time.Now,
	}
	m.region = newRegionSelector(cfg.RegionMinTime, cfg.RegionMaxTime,
		func(n int) int { return m.rng.IntN(n) },
		func() float32 { return m.rng.Float32() })

	if !out.Init(cfg.Device, cfg.HRTF) {
		log.Printf("audio backend failed to initialize, sound disabled")
		return m
	}
	m.enabled = true
	return m
}

// Enabled reports whether the backend opened.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) volumeFromType(t Flags) float32 {
	return m.volumes.ForType(t)
}

// PlaySound plays a non-positional sound at the listener. Returns nil
// when audio is unavailable; the instance otherwise, already audible
// or still loading.
func (m *Manager) PlaySound(id string, volume, pitch float32, flags Flags, offset float32) *Sound {
	if !m.enabled {
		return nil
	}
	s := NewSound(Params{
		VolumeFactor: volume,
		BaseVolume:   m.volumeFromType(flags),
		Pitch:        pitch,
		MinDistance:  m.cfg.DefaultMinDistance,
		MaxDistance:  m.cfg.DefaultMaxDistance,
		Flags:        flags,
	})
	m.requestSound(uuid.Nil, strings.ToLower(id), offset, s)
	return s
}

// PlaySound3D plays a sound emitted by an entity. A request flagged
// ModeRemoveAtDistance from beyond the cull radius is rejected
// outright. A sound emitted by the player routes through the
// non-positional path unless ModeNoPlayerLocal asks otherwise.
func (m *Manager) PlaySound3D(entity uuid.UUID, id string, volume, pitch float32, flags Flags, offset float32) *Sound {
	if !m.enabled {
		return nil
	}

	pos, ok := m.w.EntityPosition(entity)
	if !ok {
		return nil
	}

	if entity == m.w.Player() && entity != uuid.Nil && flags&ModeNoPlayerLocal == 0 {
		s := NewSound(Params{
			VolumeFactor: volume,
			BaseVolume:   m.volumeFromType(flags),
			Pitch:        pitch,
			MinDistance:  m.cfg.DefaultMinDistance,
			MaxDistance:  m.cfg.DefaultMaxDistance,
			Flags:        flags,
		})
		m.requestSound(entity, strings.ToLower(id), offset, s)
		return s
	}

	if flags&ModeRemoveAtDistance != 0 && m.listener.Pos.Dist2(pos) > cullDistance*cullDistance {
		return nil
	}

	s := NewSound(Params{
		Pos:          pos,
		VolumeFactor: volume,
		BaseVolume:   m.volumeFromType(flags),
		Pitch:        pitch,
		Flags:        flags | play3D,
	})
	m.requestSound(entity, strings.ToLower(id), offset, s)
	return s
}

// PlaySound3DAt plays a sound at a fixed position with no emitting
// entity.
func (m *Manager) PlaySound3DAt(pos world.Vec3, id string, volume, pitch float32, flags Flags, offset float32) *Sound {
	if !m.enabled {
		return nil
	}
	if flags&ModeRemoveAtDistance != 0 && m.listener.Pos.Dist2(pos) > cullDistance*cullDistance {
		return nil
	}
	s := NewSound(Params{
		Pos:          pos,
		VolumeFactor: volume,
		BaseVolume:   m.volumeFromType(flags),
		Pitch:        pitch,
		Flags:        flags | play3D,
	})
	m.requestSound(uuid.Nil, strings.ToLower(id), offset, s)
	return s
}

// requestSound satisfies a play request from the resident cache when
// possible, otherwise ledgers it behind a buffer load. Loads for the
// same id share one task.
func (m *Manager) requestSound(entity uuid.UUID, id string, offset float32, s *Sound) {
	if buf := m.buffers.lookup(id); buf != nil {
		if !m.commitSound(entity, buf, s, offset) {
			s.CancelLoading()
		}
		return
	}

	t, ok := m.loadTasks[id]
	if !ok {
		t = m.queue.Submit(func() {
			buf := m.buffers.load(id)
			m.loadedCache.put(id, buf)
		})
		m.loadTasks[id] = t
	}
	m.pendingSounds = append(m.pendingSounds, &pendingSound{
		entity:   entity,
		id:       id,
		offset:   offset,
		sound:    s,
		task:     t,
		deadline: m.now().Add(m.cfg.OpTimeout),
	})
}

// commitSound hands a loaded buffer to the backend for one instance,
// stopping any prior instance of the same buffer on the same entity
// first. The buffer is pinned before use so eviction cannot race the
// commit.
func (m *Manager) commitSound(entity uuid.UUID, buf *Buffer, s *Sound, offset float32) bool {
	handle, ok := m.buffers.pin(buf)
	if !ok {
		return false
	}

	m.stopEntityBuffer(entity, buf)

	s.params.SfxVolume = buf.Volume
	if s.params.Flags.Is3D() {
		s.params.MinDistance = buf.MinDist
		s.params.MaxDistance = buf.MaxDist
	}

	var played bool
	if s.params.Flags.Is3D() {
		played = m.out.PlaySound3D(s, handle, offset)
	} else {
		played = m.out.PlaySound(s, handle, offset)
	}
	if !played {
		m.buffers.release(buf)
		return false
	}

	s.SetPlaying()
	m.active[entity] = append(m.active[entity], activeSound{sound: s, buf: buf})
	return true
}

// stopEntityBuffer finishes any live instance of buf on entity so that
// at most one instance per entity and buffer exists.
func (m *Manager) stopEntityBuffer(entity uuid.UUID, buf *Buffer) {
	sounds := m.active[entity]
	kept := sounds[:0]
	for _, as := range sounds {
		if as.buf == buf {
			m.out.FinishSound(as.sound)
			m.buffers.release(as.buf)
			continue
		}
		kept = append(kept, as)
	}
	if len(kept) == 0 {
		delete(m.active, entity)
	} else {
		m.active[entity] = kept
	}
}

// StopSound stops one instance. A still-loading instance is cancelled
// so its decode result is discarded on drain.
func (m *Manager) StopSound(s *Sound) {
	if s == nil {
		return
	}
	switch s.State() {
	case Playing:
		m.out.FinishSound(s)
	case Loading:
		s.CancelLoading()
	}
}

// StopSound3D stops every instance of a sound id on an entity.
func (m *Manager) StopSound3D(entity uuid.UUID, id string) {
	id = strings.ToLower(id)
	for _, as := range m.active[entity] {
		if as.buf.ID == id {
			m.out.FinishSound(as.sound)
		}
	}
	for _, ps := range m.pendingSounds {
		if ps.entity == entity && ps.id == id {
			ps.sound.CancelLoading()
		}
	}
}

// StopSounds3D stops every sound on an entity.
func (m *Manager) StopSounds3D(entity uuid.UUID) {
	for _, as := range m.active[entity] {
		m.out.FinishSound(as.sound)
	}
	for _, ps := range m.pendingSounds {
		if ps.entity == entity {
			ps.sound.CancelLoading()
		}
	}
}

// StopSoundsInCell stops every entity-attached sound and voice whose
// emitter currently stands in the given cell. Used on cell unload.
func (m *Manager) StopSoundsInCell(cellKey string) {
	inCell := func(entity uuid.UUID) bool {
		if entity == uuid.Nil {
			return false
		}
		c, ok := m.w.EntityCell(entity)
		return ok && c.Key == cellKey
	}
	for entity, sounds := range m.active {
		if !inCell(entity) {
			continue
		}
		for _, as := range sounds {
			m.out.FinishSound(as.sound)
		}
	}
	for _, ps := range m.pendingSounds {
		if inCell(ps.entity) {
			ps.sound.CancelLoading()
		}
	}
	for entity := range m.activeSays {
		if inCell(entity) {
			m.StopSay(entity)
		}
	}
}

// FadeOutSound3D fades every instance of a sound id on an entity over
// the given seconds.
func (m *Manager) FadeOutSound3D(entity uuid.UUID, id string, seconds float32) {
	id = strings.ToLower(id)
	for _, as := range m.active[entity] {
		if as.buf.ID == id {
			as.sound.SetFadeout(seconds)
		}
	}
}

// GetSoundPlaying reports whether a sound id is live or pending on an
// entity.
func (m *Manager) GetSoundPlaying(entity uuid.UUID, id string) bool {
	id = strings.ToLower(id)
	for _, as := range m.active[entity] {
		if as.buf.ID == id && m.out.IsSoundPlaying(as.sound) {
			return true
		}
	}
	for _, ps := range m.pendingSounds {
		if ps.entity == entity && ps.id == id && ps.sound.State() == Loading {
			return true
		}
	}
	return false
}

// SetListener sets the listener pose for subsequent frames.
func (m *Manager) SetListener(pos, dir, up world.Vec3) {
	m.listener.Pos = pos
	m.listener.Dir = dir
	m.listener.Up = up
}

// PauseSounds pauses all instances of the masked types on behalf of a
// blocker. Masks from multiple blockers compose; a type resumes only
// when no blocker holds it.
func (m *Manager) PauseSounds(b Blocker, types Flags) {
	m.pausedBlockers[b] = types & TypeMask
	m.pushPauseState()
}

// ResumeSounds lifts a blocker's pause mask.
func (m *Manager) ResumeSounds(b Blocker) {
	delete(m.pausedBlockers, b)
	m.pushPauseState()
}

func (m *Manager) pushPauseState() {
	if !m.enabled {
		return
	}
	var want Flags
	for _, types := range m.pausedBlockers {
		want |= types
	}
	if newly := want &^ m.pushedPaused; newly != 0 {
		m.out.PauseSounds(newly)
	}
	if lifted := m.pushedPaused &^ want; lifted != 0 {
		m.out.ResumeSounds(lifted)
	}
	m.pushedPaused = want
}

// PausePlayback suspends the whole output device.
func (m *Manager) PausePlayback() {
	if m.enabled {
		m.out.PauseActiveDevice()
	}
}

// ResumePlayback resumes a suspended device.
func (m *Manager) ResumePlayback() {
	if m.enabled {
		m.out.ResumeActiveDevice()
	}
}

// ApplyVolumeSettings re-bases every live and pending instance on new
// volume sliders.
func (m *Manager) ApplyVolumeSettings(v VolumeSettings) {
	m.volumes = v
	rebase := func(p *Params) {
		p.BaseVolume = m.volumeFromType(p.Flags)
	}
	for _, sounds := range m.active {
		for _, as := range sounds {
			rebase(&as.sound.params)
		}
	}
	for _, ps := range m.pendingSounds {
		rebase(&ps.sound.params)
	}
	for _, st := range m.activeSays {
		rebase(&st.params)
	}
	for _, pv := range m.sayQueue {
		rebase(&pv.stream.params)
	}
	for _, pv := range m.pendingVoices {
		rebase(&pv.stream.params)
	}
	if m.music != nil {
		rebase(&m.music.params)
	}
	if m.pendingMusic != nil {
		rebase(&m.pendingMusic.stream.params)
	}
	for _, st := range m.activeTracks {
		rebase(&st.params)
	}
}

// Clear stops and discards everything: live instances, ledgers and
// decoder caches. Pause state is reset.
func (m *Manager) Clear() {
	for entity, sounds := range m.active {
		for _, as := range sounds {
			m.out.FinishSound(as.sound)
			m.buffers.release(as.buf)
		}
		delete(m.active, entity)
	}
	for _, ps := range m.pendingSounds {
		ps.sound.CancelLoading()
		ps.task.Abort()
		ps.task.Wait()
	}
	m.pendingSounds = nil
	for id := range m.loadTasks {
		delete(m.loadTasks, id)
	}
	m.loadedCache.drain()

	for _, pv := range m.sayQueue {
		pv.stream.CancelLoading()
	}
	m.sayQueue = nil
	for entity, pv := range m.pendingVoices {
		pv.stream.CancelLoading()
		pv.task.Abort()
		pv.task.Wait()
		delete(m.pendingVoices, entity)
	}
	for _, dec := range m.voiceCache.drain() {
		dec.Close()
	}
	for entity, st := range m.activeSays {
		m.out.FinishStream(st)
		delete(m.activeSays, entity)
	}

	if m.pendingMusic != nil {
		m.pendingMusic.stream.CancelLoading()
		m.pendingMusic.task.Abort()
		m.pendingMusic.task.Wait()
		m.pendingMusic = nil
	}
	if dec := m.musicCache.take(); dec != nil {
		dec.Close()
	}
	if m.music != nil {
		m.out.FinishStream(m.music)
		m.music = nil
	}
	m.nextMusic = ""
	m.curPlaylist = nil

	for _, st := range m.activeTracks {
		m.out.FinishStream(st)
	}
	m.activeTracks = nil

	m.underwaterSound = nil
	m.nearWaterSound = nil
	m.haveLastCell = false
	m.lastWaterID = ""

	for b := range m.pausedBlockers {
		delete(m.pausedBlockers, b)
	}
	m.pushPauseState()
}

// Close tears the engine down. The worker pool is drained and the
// device released.
func (m *Manager) Close() {
	if m.enabled {
		m.Clear()
		m.buffers.clear()
	}
	m.queue.Close()
	if m.enabled {
		m.out.Close()
	}
}

// loadedCache is the mutex-guarded landing zone for finished buffer
// loads, written by workers and drained by the frame thread. A nil
// buffer records a failed load.
type loadedCache struct {
	mu  sync.Mutex
	buf map[string]*Buffer
}

func newLoadedCache() *loadedCache {
	return &loadedCache{buf: make(map[string]*Buffer)}
}

func (c *loadedCache) put(id string, buf *Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf[id] = buf
}

func (c *loadedCache) drain() map[string]*Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.buf
	c.buf = make(map[string]*Buffer)
	return out
}

// voiceCache lands finished voice decoders keyed by entity.
type voiceCache struct {
	mu  sync.Mutex
	dec map[uuid.UUID]decode.Decoder
}

func newVoiceCache() *voiceCache {
	return &voiceCache{dec: make(map[uuid.UUID]decode.Decoder)}
}

func (c *voiceCache) put(entity uuid.UUID, dec decode.Decoder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.dec[entity]; ok {
		old.Close()
	}
	c.dec[entity] = dec
}

func (c *voiceCache) drain() map[uuid.UUID]decode.Decoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.dec
	c.dec = make(map[uuid.UUID]decode.Decoder)
	return out
}

// musicCache lands the single pending music decoder.
type musicCache struct {
	mu  sync.Mutex
	dec decode.Decoder
}

func newMusicCache() *musicCache {
	return &musicCache{}
}

func (c *musicCache) put(dec decode.Decoder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dec != nil {
		c.dec.Close()
	}
	c.dec = dec
}

func (c *musicCache) take() decode.Decoder {
	c.mu.Lock()
	defer c.mu.Unlock()
	dec := c.dec
	c.dec = nil
	return dec
}
