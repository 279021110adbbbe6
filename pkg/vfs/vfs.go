// ABOUTME: Virtual file system interface
// ABOUTME: Resolves normalized sound resource names to readable files
package vfs

import (
	"io"
	"strings"
)

// File is a readable, seekable handle to one resource.
type File interface {
	io.ReadSeekCloser
}

// FS resolves sound resource names. All names passed in are normalized
// first, so "Sound\Fx\Swish.WAV" and "sound/fx/swish.wav" refer to the
// same resource.
type FS interface {
	// Open returns a handle to the named resource.
	Open(name string) (File, error)

	// Exists reports whether the named resource is present.
	Exists(name string) bool

	// List returns the normalized names of all resources under the
	// given prefix, in lexical order.
	List(prefix string) []string
}

// Normalize lowercases a resource name and converts backslashes to
// forward slashes.
func Normalize(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
}
