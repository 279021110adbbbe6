// ABOUTME: Entry point for the aural demo player
// ABOUTME: Parses CLI flags and drives the audio engine over a data directory
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/openrift/audio/pkg/sound"
	"github.com/openrift/audio/pkg/sound/otoout"
	"github.com/openrift/audio/pkg/vfs"
	"github.com/openrift/audio/pkg/world"
)

var (
	dataDir   = flag.String("data", ".", "Data directory holding sound and music files")
	playFile  = flag.String("play", "", "Sound file to play (relative to the data directory)")
	playlist  = flag.String("playlist", "", "Music playlist directory under music/ to shuffle")
	volume    = flag.Float64("volume", 1.0, "Playback volume (0..1)")
	pitch     = flag.Float64("pitch", 1.0, "Playback pitch")
	loop      = flag.Bool("loop", false, "Loop the played sound")
	masterVol = flag.Float64("master", 1.0, "Master volume (0..1)")
)

func main() {
	flag.Parse()

	if *playFile == "" && *playlist == "" {
		log.Fatalf("nothing to do: pass -play or -playlist")
	}

	fs, err := vfs.NewDir(*dataDir)
	if err != nil {
		log.Fatalf("Failed to index data directory: %v", err)
	}

	w := world.NewStatic()
	if *playFile != "" {
		w.SetSoundRecord(soundID(*playFile), world.SoundRecord{File: *playFile, Volume: 255})
	}

	volumes := sound.DefaultVolumeSettings()
	volumes.Master = float32(*masterVol)

	m := sound.NewManager(sound.Config{Volumes: volumes}, fs, otoout.New(fs), w)
	defer m.Close()
	if !m.Enabled() {
		log.Fatalf("No audio device available")
	}

	var playing *sound.Sound
	if *playFile != "" {
		flags := sound.TypeSfx
		if *loop {
			flags |= sound.ModeLoop
		}
		playing = m.PlaySound(soundID(*playFile), float32(*volume), float32(*pitch), flags, 0)
		if playing == nil {
			log.Fatalf("Failed to request %s", *playFile)
		}
		log.Printf("Playing %s", *playFile)
	}

	if *playlist != "" {
		m.PlayPlaylist(*playlist)
		log.Printf("Shuffling playlist %s", *playlist)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			log.Printf("Shutting down")
			return
		case <-ticker.C:
			m.Update(1.0 / 60)
			if *playlist == "" && playing != nil && !*loop &&
				playing.State() != sound.Loading && !m.GetSoundPlaying(uuid.Nil, soundID(*playFile)) {
				log.Printf("Done")
				return
			}
		}
	}
}

func soundID(file string) string {
	return strings.TrimSuffix(path.Base(vfs.Normalize(file)), path.Ext(file))
}
