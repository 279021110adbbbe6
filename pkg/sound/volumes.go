// ABOUTME: Per-type volume settings
// ABOUTME: Maps a sound type to its category volume scaled by the master volume
package sound

// VolumeSettings holds the user-facing volume sliders. Values are
// linear gains in [0, 1].
type VolumeSettings struct {
	Master float32
	Sfx    float32
	Voice  float32
	Foot   float32
	Music  float32
	Movie  float32
}

// DefaultVolumeSettings returns all sliders at full volume.
func DefaultVolumeSettings() VolumeSettings {
	return VolumeSettings{Master: 1, Sfx: 1, Voice: 1, Foot: 1, Music: 1, Movie: 1}
}

// ForType returns the category volume for a type, scaled by master.
func (v VolumeSettings) ForType(t Flags) float32 {
	vol := v.Master
	switch t.Type() {
	case TypeSfx:
		vol *= v.Sfx
	case TypeVoice:
		vol *= v.Voice
	case TypeFoot:
		vol *= v.Foot
	case TypeMusic:
		vol *= v.Music
	case TypeMovie:
		vol *= v.Movie
	}
	return vol
}
