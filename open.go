package dxa

import (
	"io"
	"os"

	"github.com/Daviid-P/Wolf-RPG-Decompyler/internal/sectionreader"
)

// OpenPath opens the archive at path with buffered *os.File reads, parses
// and walks it, and returns a ready Archive alongside a closer the caller
// must invoke when done with it. The *os.File is wrapped in a
// sectionreader.ReaderAt (the teacher's io.ReaderAt-with-known-length
// adapter) rather than *io.SectionReader, so nesting Open inside another
// archive's extracted bytes later collapses through the same
// outer-reader-unwrapping Section does.
func OpenPath(path string, key string) (*Archive, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &ErrIO{Op: "open", Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, &ErrIO{Op: "stat", Err: err}
	}

	a, err := Open(sectionreader.Section(f, 0, info.Size()), key)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return a, f, nil
}
