// ABOUTME: Music playlist with draw-without-replacement track selection
// ABOUTME: Repopulates when exhausted and avoids repeating the previous track
package sound

// playlist draws tracks randomly without replacement. When the pool of
// untried tracks empties it is repopulated; a draw that would repeat
// the immediately previous track is advanced once.
type playlist struct {
	name   string
	tracks []string
	pool   []int // indices not yet drawn this round
	last   int   // index of the last drawn track, -1 initially
	rng    func(n int) int
}

func newPlaylist(name string, tracks []string, rng func(n int) int) *playlist {
	return &playlist{name: name, tracks: tracks, last: -1, rng: rng}
}

// next draws the next track, or "" for an empty playlist.
func (p *playlist) next() string {
	if len(p.tracks) == 0 {
		return ""
	}

	if len(p.pool) == 0 {
		p.pool = make([]int, len(p.tracks))
		for i := range p.pool {
			p.pool[i] = i
		}
	}

	i := p.rng(len(p.pool))
	if p.pool[i] == p.last && len(p.pool) > 1 {
		i = (i + 1) % len(p.pool)
	}

	idx := p.pool[i]
	p.pool = append(p.pool[:i], p.pool[i+1:]...)
	p.last = idx
	return p.tracks[idx]
}
