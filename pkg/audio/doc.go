// ABOUTME: Package documentation for audio types
// ABOUTME: Shared PCM format vocabulary used by decoders and outputs

// Package audio defines the PCM format vocabulary shared between the
// decoders in pkg/audio/decode and the output backends in pkg/sound.
package audio
