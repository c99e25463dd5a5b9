//go:build unix

package dxa

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// mmapReaderAt is a SizedReaderAt backed by a memory-mapped file, avoiding
// the extra buffered-read copy *os.File.ReadAt performs for every payload.
type mmapReaderAt struct {
	data []byte
}

func (m *mmapReaderAt) Size() int64 { return int64(len(m.data)) }

func (m *mmapReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(m.data)) {
		return 0, &ErrIO{Op: "mmap read", Err: os.ErrInvalid}
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

type mmapCloser struct{ data []byte }

func (c mmapCloser) Close() error { return unix.Munmap(c.data) }

// OpenMmap opens the archive at path with a memory-mapped read-only view
// instead of buffered file reads, build-tag-split the way the teacher
// splits platform-specific file APIs (see ino_unix.go). The returned
// closer unmaps the file; call it when done.
func OpenMmap(path string, key string) (*Archive, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &ErrIO{Op: "open", Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, &ErrIO{Op: "stat", Err: err}
	}
	if info.Size() == 0 {
		return nil, nil, &ErrHeaderSizeInvalid{Reason: "archive file is empty"}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, &ErrIO{Op: "mmap", Err: err}
	}

	a, err := Open(&mmapReaderAt{data: data}, key)
	if err != nil {
		_ = unix.Munmap(data)
		return nil, nil, err
	}
	return a, mmapCloser{data}, nil
}
