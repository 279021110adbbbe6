// ABOUTME: Lifecycle and fade tests for instances
// ABOUTME: Forbids every transition except Loading to Playing or LoadCancelled
package sound

import "testing"

func TestLifecycleTransitions(t *testing.T) {
	s := NewSound(Params{VolumeFactor: 1})
	if s.State() != Loading {
		t.Fatalf("initial state = %v, want loading", s.State())
	}

	if !s.SetPlaying() {
		t.Error("Loading -> Playing should succeed")
	}
	if s.State() != Playing {
		t.Errorf("state = %v, want playing", s.State())
	}
	if s.CancelLoading() {
		t.Error("Playing -> LoadCancelled must be forbidden")
	}
	if s.SetPlaying() {
		t.Error("Playing -> Playing must be forbidden")
	}

	s = NewSound(Params{VolumeFactor: 1})
	if !s.CancelLoading() {
		t.Error("Loading -> LoadCancelled should succeed")
	}
	if s.SetPlaying() {
		t.Error("LoadCancelled -> Playing must be forbidden")
	}
	if s.State() != LoadCancelled {
		t.Errorf("state = %v, want cancelled", s.State())
	}
}

func TestUpdateFadeOnlyAffectsPlaying(t *testing.T) {
	s := NewSound(Params{VolumeFactor: 1, FadeOutTime: 1})
	s.UpdateFade(0.5)
	if s.params.VolumeFactor != 1 {
		t.Error("fade must not advance on a loading instance")
	}

	s.SetPlaying()
	s.UpdateFade(0.5)
	if s.params.VolumeFactor != 0.5 {
		t.Errorf("volume factor = %v, want 0.5", s.params.VolumeFactor)
	}
	if s.params.FadeOutTime != 0.5 {
		t.Errorf("remaining fade = %v, want 0.5", s.params.FadeOutTime)
	}
}

func TestFadeReachesZero(t *testing.T) {
	s := NewSound(Params{VolumeFactor: 1, SfxVolume: 1, BaseVolume: 1, FadeOutTime: 0.25})
	s.SetPlaying()

	// dt larger than the remaining fade clamps to it.
	s.UpdateFade(1.0)
	if s.params.VolumeFactor != 0 {
		t.Errorf("volume factor = %v, want 0", s.params.VolumeFactor)
	}
	if s.params.FadeOutTime != 0 {
		t.Errorf("remaining fade = %v, want 0", s.params.FadeOutTime)
	}
	if s.RealVolume() != 0 {
		t.Errorf("real volume = %v, want 0", s.RealVolume())
	}

	// A finished fade stays put.
	s.UpdateFade(1.0)
	if s.params.VolumeFactor != 0 {
		t.Error("finished fade must not change the volume factor")
	}
}

func TestRealVolumeComposes(t *testing.T) {
	s := NewSound(Params{VolumeFactor: 0.5, SfxVolume: 0.5, BaseVolume: 0.5})
	if got := s.RealVolume(); got != 0.125 {
		t.Errorf("real volume = %v, want 0.125", got)
	}
}
