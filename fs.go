package dxa

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"sort"
	"time"
)

// FS presents a parsed Archive as a read-only io/fs.FS: it answers Open,
// Stat, ReadDir, and ReadFile directly from the already-walked plan list,
// building directories implicitly from file paths the way archive formats
// that store only leaves (not directory nodes) must. Grounded on the
// teacher's plaindirentry.go/wrapdirentry.go idiom of small, explicit
// FileInfo/DirEntry adapters rather than a generic tree structure.
type FS struct {
	a     *Archive
	files map[string]ExtractPlan
	dirs  map[string]map[string]struct{} // dir path -> immediate child names
}

// FS builds (once per call) a read-only io/fs.FS view of the archive's
// tree, satisfying fs.StatFS, fs.ReadDirFS, and fs.ReadFileFS.
func (a *Archive) FS() fs.FS {
	files := make(map[string]ExtractPlan, len(a.plans))
	dirs := map[string]map[string]struct{}{".": {}}

	ensureDir := func(p string) {
		if _, ok := dirs[p]; !ok {
			dirs[p] = map[string]struct{}{}
		}
	}
	addChild := func(parent, name string) {
		ensureDir(parent)
		dirs[parent][name] = struct{}{}
	}

	for _, p := range a.plans {
		files[p.Path] = p

		parent := path.Dir(p.Path)
		addChild(parent, path.Base(p.Path))

		for d := parent; d != "."; {
			gp := path.Dir(d)
			addChild(gp, path.Base(d))
			d = gp
		}
	}

	return &FS{a: a, files: files, dirs: dirs}
}

func (f *FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if p, ok := f.files[name]; ok {
		data, err := f.a.Extract(p)
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &openFile{info: fileInfoFor(p), r: bytes.NewReader(data)}, nil
	}
	if children, ok := f.dirs[name]; ok {
		return &openDir{info: dirInfoFor(name), entries: f.dirEntries(name, children)}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func (f *FS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if p, ok := f.files[name]; ok {
		return fileInfoFor(p), nil
	}
	if _, ok := f.dirs[name]; ok {
		return dirInfoFor(name), nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	children, ok := f.dirs[name]
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return f.dirEntries(name, children), nil
}

func (f *FS) ReadFile(name string) ([]byte, error) {
	p, ok := f.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrNotExist}
	}
	data, err := f.a.Extract(p)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return data, nil
}

func (f *FS) dirEntries(dir string, children map[string]struct{}) []fs.DirEntry {
	names := make([]string, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]fs.DirEntry, len(names))
	for i, n := range names {
		childPath := n
		if dir != "." {
			childPath = dir + "/" + n
		}
		if _, isDir := f.dirs[childPath]; isDir {
			out[i] = dirInfoFor(childPath)
		} else {
			out[i] = fileInfoFor(f.files[childPath])
		}
	}
	return out
}

// archiveFileInfo implements both fs.FileInfo and fs.DirEntry for a file
// leaf, per the teacher's plaindirentry.go pattern of one small struct
// answering both interfaces rather than composing wrappers.
type archiveFileInfo struct {
	name string
	size int64
}

func fileInfoFor(p ExtractPlan) archiveFileInfo {
	return archiveFileInfo{name: path.Base(p.Path), size: int64(p.DataSize)}
}

func (fi archiveFileInfo) Name() string               { return fi.name }
func (fi archiveFileInfo) Size() int64                { return fi.size }
func (fi archiveFileInfo) Mode() fs.FileMode          { return 0o444 }
func (fi archiveFileInfo) ModTime() time.Time         { return time.Time{} }
func (fi archiveFileInfo) IsDir() bool                { return false }
func (fi archiveFileInfo) Sys() any                   { return nil }
func (fi archiveFileInfo) Type() fs.FileMode          { return 0 }
func (fi archiveFileInfo) Info() (fs.FileInfo, error) { return fi, nil }

// archiveDirInfo is the directory counterpart: no archive entry backs it
// (DXA stores no directory timestamps or sizes), so every field beyond
// Name/IsDir is a constant.
type archiveDirInfo struct{ name string }

func dirInfoFor(dirPath string) archiveDirInfo {
	if dirPath == "." {
		return archiveDirInfo{name: "."}
	}
	return archiveDirInfo{name: path.Base(dirPath)}
}

func (di archiveDirInfo) Name() string               { return di.name }
func (di archiveDirInfo) Size() int64                { return 0 }
func (di archiveDirInfo) Mode() fs.FileMode          { return fs.ModeDir | 0o555 }
func (di archiveDirInfo) ModTime() time.Time         { return time.Time{} }
func (di archiveDirInfo) IsDir() bool                { return true }
func (di archiveDirInfo) Sys() any                   { return nil }
func (di archiveDirInfo) Type() fs.FileMode          { return fs.ModeDir }
func (di archiveDirInfo) Info() (fs.FileInfo, error) { return di, nil }

type openFile struct {
	info archiveFileInfo
	r    *bytes.Reader
}

func (o *openFile) Stat() (fs.FileInfo, error) { return o.info, nil }
func (o *openFile) Read(b []byte) (int, error) { return o.r.Read(b) }
func (o *openFile) Close() error               { return nil }

type openDir struct {
	info    archiveDirInfo
	entries []fs.DirEntry
	pos     int
}

func (o *openDir) Stat() (fs.FileInfo, error) { return o.info, nil }
func (o *openDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: o.info.Name(), Err: fs.ErrInvalid}
}
func (o *openDir) Close() error { return nil }

func (o *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if n <= 0 {
		out := o.entries[o.pos:]
		o.pos = len(o.entries)
		return out, nil
	}
	if o.pos >= len(o.entries) {
		return nil, io.EOF
	}
	end := o.pos + n
	if end > len(o.entries) {
		end = len(o.entries)
	}
	out := o.entries[o.pos:end]
	o.pos = end
	return out, nil
}
