//go:build !unix

package dxa

import "io"

// OpenMmap falls back to buffered *os.File reads on platforms without a
// unix mmap implementation, grounded on the teacher's unix/darwin
// build-tag split for platform-specific file APIs (see ino_unix.go).
func OpenMmap(path string, key string) (*Archive, io.Closer, error) {
	return OpenPath(path, key)
}
