// ABOUTME: Region ambience selector
// ABOUTME: Throttled weighted draw over a region's ambient sound list
package sound

import "github.com/openrift/audio/pkg/world"

// regionSelector decides when an exterior region should trigger an
// ambient sound and which one. Stateless over world data apart from
// the time accumulator.
type regionSelector struct {
	timeToNext float32
	minTime    float32
	maxTime    float32
	rng        func(n int) int
	rngFloat   func() float32 // in [0, 1)
}

func newRegionSelector(minTime, maxTime float32, rng func(n int) int, rngFloat func() float32) *regionSelector {
	return &regionSelector{
		minTime:  minTime,
		maxTime:  maxTime,
		rng:      rng,
		rngFloat: rngFloat,
	}
}

// next returns the sound id to trigger, or "" when the throttle has
// not elapsed or no sound wins the draw. The chance draw rolls against
// at least 100 so that regions whose chances sum below 100 can stay
// silent.
func (r *regionSelector) next(dt float32, regionName string, w world.World) string {
	r.timeToNext -= dt
	if r.timeToNext > 0 {
		return ""
	}
	r.timeToNext = r.minTime + (r.maxTime-r.minTime)*r.rngFloat()

	region, ok := w.Region(regionName)
	if !ok || len(region.Sounds) == 0 {
		return ""
	}

	sum := 0
	for _, ref := range region.Sounds {
		sum += int(ref.Chance)
	}
	if sum == 0 {
		return ""
	}

	sides := sum
	if sides < 100 {
		sides = 100
	}
	roll := r.rng(sides)
	if roll >= sum {
		return ""
	}

	for _, ref := range region.Sounds {
		if roll < int(ref.Chance) {
			return ref.SoundID
		}
		roll -= int(ref.Chance)
	}
	return ""
}
