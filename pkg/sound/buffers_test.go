// ABOUTME: Buffer cache tests
// ABOUTME: Covers residency, budget eviction order and the over-budget warning path
package sound

import (
	"testing"
	"time"

	"github.com/openrift/audio/pkg/world"
)

const mb = 1024 * 1024

func testCache(out Output, w world.World, minSize, maxSize int) *bufferCache {
	return newBufferCache(out, w, Config{
		BufferCacheMin:     minSize,
		BufferCacheMax:     maxSize,
		DefaultMinDistance: 1,
		DefaultMaxDistance: 1000,
		MinDistanceMult:    1,
		MaxDistanceMult:    1,
	})
}

func soundWorld(ids ...string) *world.Static {
	w := world.NewStatic()
	for _, id := range ids {
		w.SetSoundRecord(id, world.SoundRecord{File: "sound/" + id + ".wav", Volume: 255})
	}
	return w
}

func TestLookupOnlyReturnsResident(t *testing.T) {
	out := newMockOutput()
	c := testCache(out, soundWorld("chime"), 4*mb, 8*mb)

	if c.lookup("chime") != nil {
		t.Error("lookup before load must return nil")
	}
	if c.load("chime") == nil {
		t.Fatal("load failed")
	}
	buf := c.lookup("chime")
	if buf == nil {
		t.Fatal("lookup after load returned nil")
	}
	if buf.Handle() == nil {
		t.Error("resident buffer must carry a handle")
	}
}

// gatedOutput stalls inside LoadSound until released, standing in for
// a slow decode running on a worker.
type gatedOutput struct {
	*mockOutput
	started chan struct{}
	release chan struct{}
}

func (o *gatedOutput) LoadSound(path string) (any, int) {
	close(o.started)
	<-o.release
	return o.mockOutput.LoadSound(path)
}

func TestLookupDoesNotWaitOnLoad(t *testing.T) {
	out := &gatedOutput{newMockOutput(), make(chan struct{}), make(chan struct{})}
	c := testCache(out, soundWorld("chime", "thud"), 4*mb, 8*mb)

	loaded := make(chan struct{})
	go func() {
		c.load("chime")
		close(loaded)
	}()
	<-out.started

	looked := make(chan *Buffer, 1)
	go func() { looked <- c.lookup("thud") }()
	select {
	case buf := <-looked:
		if buf != nil {
			t.Error("thud was never loaded")
		}
	case <-time.After(time.Second):
		t.Fatal("lookup blocked behind an in-flight decode")
	}

	close(out.release)
	<-loaded
	if c.lookup("chime") == nil {
		t.Error("load did not complete")
	}
}

func TestUnknownIDDoesNotRegister(t *testing.T) {
	out := newMockOutput()
	c := testCache(out, soundWorld(), 4*mb, 8*mb)

	if c.load("ghost") != nil {
		t.Error("unknown id must not load")
	}
	if len(c.byID) != 0 {
		t.Error("unknown id must not register a descriptor")
	}
}

func TestFailedLoadDoesNotRegisterPhantom(t *testing.T) {
	out := newMockOutput()
	out.failLoad["sound/chime.wav"] = true
	c := testCache(out, soundWorld("chime"), 4*mb, 8*mb)

	if c.load("chime") != nil {
		t.Error("failed backend load must yield nil")
	}
	if len(c.byID) != 0 {
		t.Error("failed first load must not leave a descriptor behind")
	}
	if c.size() != 0 {
		t.Errorf("cache size = %d, want 0", c.size())
	}
}

func TestEvictionKeepsLeastRecentlyUnused(t *testing.T) {
	out := newMockOutput()
	out.loadSize["sound/a.wav"] = 3 * mb
	out.loadSize["sound/b.wav"] = 3 * mb
	out.loadSize["sound/c.wav"] = 3 * mb
	c := testCache(out, soundWorld("a", "b", "c"), 3*mb, 7*mb)

	a := c.load("a")
	b := c.load("b")
	// Loading c pushes the total to 9 MB; eviction drops to the 3 MB
	// floor from the back of the unused pool: a first, then b.
	cc := c.load("c")

	if a.Handle() != nil {
		t.Error("a should have been evicted")
	}
	if b.Handle() != nil {
		t.Error("b should have been evicted")
	}
	if cc.Handle() == nil {
		t.Error("c must stay resident")
	}
	if c.size() != 3*mb {
		t.Errorf("cache size = %d, want %d", c.size(), 3*mb)
	}
}

func TestPinnedBuffersSurviveEviction(t *testing.T) {
	out := newMockOutput()
	out.loadSize["sound/a.wav"] = 4 * mb
	out.loadSize["sound/b.wav"] = 4 * mb
	out.loadSize["sound/c.wav"] = 4 * mb
	c := testCache(out, soundWorld("a", "b", "c"), 5*mb, 10*mb)

	a := c.load("a")
	if _, ok := c.pin(a); !ok {
		t.Fatal("pin failed")
	}
	b := c.load("b")
	if _, ok := c.pin(b); !ok {
		t.Fatal("pin failed")
	}

	// Third load goes over budget with nothing evictable: logged and
	// left over budget.
	c.load("c")
	if c.size() != 12*mb {
		t.Errorf("cache size = %d, want %d", c.size(), 12*mb)
	}
	if a.Handle() == nil || b.Handle() == nil {
		t.Error("pinned buffers must not be evicted")
	}
}

func TestReleaseReturnsToEvictionPool(t *testing.T) {
	out := newMockOutput()
	c := testCache(out, soundWorld("a"), 4*mb, 8*mb)

	a := c.load("a")
	c.pin(a)
	if a.elem != nil {
		t.Error("pinned buffer must leave the unused pool")
	}
	c.release(a)
	if a.Uses() != 0 {
		t.Errorf("uses = %d, want 0", a.Uses())
	}
	if a.elem == nil {
		t.Error("released buffer must rejoin the unused pool")
	}
	if c.unused.Front().Value.(*Buffer) != a {
		t.Error("released buffer must be most recently unused")
	}
}

func TestPinFailsAfterEviction(t *testing.T) {
	out := newMockOutput()
	out.loadSize["sound/a.wav"] = 4 * mb
	out.loadSize["sound/b.wav"] = 8 * mb
	c := testCache(out, soundWorld("a", "b"), 2*mb, 8*mb)

	a := c.load("a")
	c.load("b") // evicts a
	if _, ok := c.pin(a); ok {
		t.Error("pin must fail on an evicted buffer")
	}
}

func TestRecordVolumeCurve(t *testing.T) {
	if got := recordVolume(255); got != 1 {
		t.Errorf("recordVolume(255) = %v, want 1", got)
	}
	if got := recordVolume(0); got >= 0.025 {
		t.Errorf("recordVolume(0) = %v, want under 0.025", got)
	}
	if recordVolume(128) <= recordVolume(64) {
		t.Error("volume curve must be monotonic")
	}
}
