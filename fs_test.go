package dxa

import (
	"io"
	"io/fs"
	"testing"
	"testing/fstest"
)

func TestFSBuildsImplicitDirectoryTree(t *testing.T) {
	a := &Archive{
		h: &header{ver: versionV8},
		plans: []ExtractPlan{
			{Path: "a/b/c.txt", DataSize: 5, PressSize: sentinelAddr, HuffPressSize: sentinelAddr},
			{Path: "a/d.txt", DataSize: 3, PressSize: sentinelAddr, HuffPressSize: sentinelAddr},
			{Path: "root.txt", DataSize: 1, PressSize: sentinelAddr, HuffPressSize: sentinelAddr},
		},
	}
	afs := a.FS()

	entries, err := fs.ReadDir(afs, ".")
	if err != nil {
		t.Fatalf("ReadDir(.): %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"a", "root.txt"}
	if len(names) != len(want) {
		t.Fatalf("root entries = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("root entries = %v, want %v", names, want)
		}
	}

	aEntries, err := fs.ReadDir(afs, "a")
	if err != nil {
		t.Fatalf("ReadDir(a): %v", err)
	}
	if len(aEntries) != 2 || aEntries[0].Name() != "b" || aEntries[1].Name() != "d.txt" {
		t.Fatalf("a/ entries = %+v, want [b d.txt]", aEntries)
	}
	if !aEntries[0].IsDir() {
		t.Fatalf("a/b should be a directory")
	}

	info, err := fs.Stat(afs, "a/b/c.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 5 || info.IsDir() {
		t.Fatalf("Stat(a/b/c.txt) = %+v", info)
	}
}

func TestFSReadFileRoundTrip(t *testing.T) {
	plaintext := []byte("hello fs")
	key := []byte{1, 2, 3}
	cipher := append([]byte(nil), plaintext...)
	xorApply(cipher, int64(len(plaintext)), key)

	a := &Archive{
		r: memReaderAt(cipher),
		h: &header{ver: versionV8},
		plans: []ExtractPlan{
			{Path: "note.txt", DataStart: 0, DataSize: uint64(len(plaintext)), PressSize: sentinelAddr, HuffPressSize: sentinelAddr, CipherKey: key},
		},
	}
	afs := a.FS()

	got, err := fs.ReadFile(afs, "note.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("ReadFile = %q, want %q", got, plaintext)
	}
}

func TestFSOpenDirPaginatedReadDir(t *testing.T) {
	a := &Archive{
		h: &header{ver: versionV8},
		plans: []ExtractPlan{
			{Path: "x/1.txt", PressSize: sentinelAddr, HuffPressSize: sentinelAddr},
			{Path: "x/2.txt", PressSize: sentinelAddr, HuffPressSize: sentinelAddr},
			{Path: "x/3.txt", PressSize: sentinelAddr, HuffPressSize: sentinelAddr},
		},
	}
	afs := a.FS()

	f, err := afs.Open("x")
	if err != nil {
		t.Fatalf("Open(x): %v", err)
	}
	rdf, ok := f.(fs.ReadDirFile)
	if !ok {
		t.Fatalf("Open(x) did not return an fs.ReadDirFile")
	}

	first, err := rdf.ReadDir(2)
	if err != nil || len(first) != 2 {
		t.Fatalf("ReadDir(2) = %+v, %v", first, err)
	}
	second, err := rdf.ReadDir(2)
	if err != nil || len(second) != 1 {
		t.Fatalf("ReadDir(2) second call = %+v, %v", second, err)
	}
	if _, err := rdf.ReadDir(2); err != io.EOF {
		t.Fatalf("ReadDir past the end = %v, want io.EOF", err)
	}
}

// TestFSSatisfiesFSTest runs the standard library's own FS conformance
// suite against a small synthetic tree.
func TestFSSatisfiesFSTest(t *testing.T) {
	a := &Archive{
		h: &header{ver: versionV8},
		plans: []ExtractPlan{
			{Path: "dir/file.txt", PressSize: sentinelAddr, HuffPressSize: sentinelAddr},
			{Path: "top.txt", PressSize: sentinelAddr, HuffPressSize: sentinelAddr},
		},
	}
	afs := a.FS()
	if err := fstest.TestFS(afs, "dir/file.txt", "top.txt", "dir"); err != nil {
		t.Fatalf("fstest.TestFS: %v", err)
	}
}
