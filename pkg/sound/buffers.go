// ABOUTME: Buffer registry with a bounded cache of decoded audio
// ABOUTME: Evicts least-recently-unused buffers when over budget
package sound

import (
	"container/list"
	"log"
	"math"
	"sync"

	"github.com/openrift/audio/pkg/world"
)

// Buffer describes one sound resource: where it lives, how loud it
// plays and over what range, and the backend handle while resident.
type Buffer struct {
	ID           string
	ResourceName string
	Volume       float32
	MinDist      float32
	MaxDist      float32

	handle any
	size   int
	uses   int
	elem   *list.Element // position in the unused pool, nil while in use
}

// Handle returns the backend handle, nil while not resident.
func (b *Buffer) Handle() any { return b.handle }

// Uses returns the number of live instances playing this buffer.
func (b *Buffer) Uses() int { return b.uses }

// recordVolume maps an authored 0..255 volume through the logarithmic
// curve the game's sound records use.
func recordVolume(v uint8) float32 {
	return float32(math.Pow(10, (float64(v)/255*3348-3348)/2000))
}

// bufferCache owns every Buffer and the residency budget. The mutex
// makes load safe to call from decode workers while the frame thread
// reads through lookup.
type bufferCache struct {
	mu   sync.Mutex
	out  Output
	w    world.World
	byID map[string]*Buffer

	// unused holds resident buffers with zero uses, most recently
	// unused at the front. Eviction takes from the back.
	unused *list.List

	sizeTotal int
	minSize   int
	maxSize   int

	minDistMult float32
	maxDistMult float32
	defaultMin  float32
	defaultMax  float32
}

func newBufferCache(out Output, w world.World, cfg Config) *bufferCache {
	return &bufferCache{
		out:         out,
		w:           w,
		byID:        make(map[string]*Buffer),
		unused:      list.New(),
		minSize:     cfg.BufferCacheMin,
		maxSize:     cfg.BufferCacheMax,
		minDistMult: cfg.MinDistanceMult,
		maxDistMult: cfg.MaxDistanceMult,
		defaultMin:  cfg.DefaultMinDistance,
		defaultMax:  cfg.DefaultMaxDistance,
	}
}

// lookup returns the buffer for id only if it is already resident.
// No I/O; safe on the frame thread every request.
func (c *bufferCache) lookup(id string) *Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if buf, ok := c.byID[id]; ok && buf.handle != nil {
		return buf
	}
	return nil
}

// load resolves id and makes its buffer resident, evicting unused
// buffers as needed to stay inside the budget. Returns nil when the
// id does not resolve or the backend load fails. The decode itself
// runs with the mutex released so the frame thread's lookup and
// release calls never wait on it; one task per id means no two loads
// of the same buffer overlap.
func (c *bufferCache) load(id string) *Buffer {
	c.mu.Lock()
	buf, ok := c.byID[id]
	if !ok {
		rec, found := c.w.SoundRecord(id)
		if !found {
			c.mu.Unlock()
			log.Printf("unknown sound id %q", id)
			return nil
		}
		buf = &Buffer{
			ID:           id,
			ResourceName: rec.File,
			Volume:       recordVolume(rec.Volume),
		}
		if rec.MinRange == 0 && rec.MaxRange == 0 {
			buf.MinDist = c.defaultMin
			buf.MaxDist = c.defaultMax
		} else {
			buf.MinDist = rec.MinRange * c.minDistMult
			buf.MaxDist = rec.MaxRange * c.maxDistMult
		}
		if buf.MinDist < 1 {
			buf.MinDist = 1
		}
		if buf.MaxDist < buf.MinDist {
			buf.MaxDist = buf.MinDist
		}
		c.byID[id] = buf
	}
	if buf.handle != nil {
		c.mu.Unlock()
		return buf
	}
	c.mu.Unlock()

	handle, size := c.out.LoadSound(buf.ResourceName)

	c.mu.Lock()
	defer c.mu.Unlock()
	if handle == nil {
		log.Printf("failed to load sound %q from %s", id, buf.ResourceName)
		if !ok {
			delete(c.byID, id)
		}
		return nil
	}
	buf.handle = handle
	buf.size = size
	c.sizeTotal += size

	if c.sizeTotal > c.maxSize {
		for {
			evict := c.unused.Back()
			if evict == nil {
				log.Printf("sound buffer cache over budget: %d bytes used, %d allowed, nothing to evict",
					c.sizeTotal, c.maxSize)
				break
			}
			c.evictLocked(evict.Value.(*Buffer))
			if c.sizeTotal <= c.minSize {
				break
			}
		}
	}

	// The fresh buffer has no uses yet; it is the most recently
	// unused until an instance plays it.
	buf.elem = c.unused.PushFront(buf)
	return buf
}

func (c *bufferCache) evictLocked(buf *Buffer) {
	c.sizeTotal -= c.out.UnloadSound(buf.handle)
	buf.handle = nil
	buf.size = 0
	c.unused.Remove(buf.elem)
	buf.elem = nil
}

// pin takes a use on buf and returns its handle, failing if the buffer
// was evicted since it was looked up. A pinned buffer cannot be
// evicted until released.
func (c *bufferCache) pin(buf *Buffer) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if buf.handle == nil {
		return nil, false
	}
	buf.uses++
	if buf.uses == 1 && buf.elem != nil {
		c.unused.Remove(buf.elem)
		buf.elem = nil
	}
	return buf.handle, true
}

// release drops one use, returning buf to the front of the eviction
// pool when the count reaches zero.
func (c *bufferCache) release(buf *Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if buf.uses == 0 {
		return
	}
	buf.uses--
	if buf.uses == 0 && buf.handle != nil {
		buf.elem = c.unused.PushFront(buf)
	}
}

// size returns the current resident byte total.
func (c *bufferCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sizeTotal
}

// clear evicts every buffer with no uses. Called on teardown after
// all instances are finished.
func (c *bufferCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for e := c.unused.Front(); e != nil; {
		next := e.Next()
		c.evictLocked(e.Value.(*Buffer))
		e = next
	}
}
