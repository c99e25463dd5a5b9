package dxa

import (
	"encoding/binary"
	"testing"
)

// buildSingleFileHeaderRegion builds the nameTable/fileTable/dirTable triple
// for one root-level file, in the same self-indirecting nameTable layout
// buildNestedTestArchive (walk_test.go) uses.
func buildSingleFileHeaderRegion(name string, dataSize uint64) (nameTable, fileTable, dirTable []byte) {
	nameTable = make([]byte, 4+len(name)+1)
	binary.LittleEndian.PutUint32(nameTable[0:4], 0) // prefix 0 -> start = 0*4+4 = 4
	copy(nameTable[4:], name)

	fileTable = buildFileEntryV8(0, 0, 0, dataSize, sentinelAddr, sentinelAddr)
	dirTable = buildDirEntryBytes(sentinelAddr, sentinelAddr, 1, 0)
	return
}

func TestOpenRoundTripNoHeadPress(t *testing.T) {
	userKey := []byte("testkey")
	plaintext := []byte("hello world!")

	nameTable, fileTable, dirTable := buildSingleFileHeaderRegion("data.bin", uint64(len(plaintext)))
	plainRegion := append(append(append([]byte{}, nameTable...), fileTable...), dirTable...)

	const nameTableStart = uint64(headerSizeV8)
	fileTableStart := uint64(len(nameTable))
	dirTableStart := fileTableStart + uint64(len(fileTable))
	dataStart := nameTableStart + uint64(len(plainRegion))

	cipherRegion := append([]byte(nil), plainRegion...)
	hk := derive7ByteKey(userKey)
	xorApply(cipherRegion, int64(nameTableStart), hk[:])

	perFileKeyString := buildKeyString(userKey, []byte("data.bin"), nil)
	perFileKey := derive7ByteKey(perFileKeyString)
	cipherPayload := append([]byte(nil), plaintext...)
	xorApply(cipherPayload, int64(len(plaintext)), perFileKey[:])

	header := buildV8Header(uint32(len(plainRegion)), dataStart, nameTableStart, fileTableStart, dirTableStart, flagNoHeadPress, huffmanEncodeWholeFile)

	archive := append(append(append([]byte{}, header...), cipherRegion...), cipherPayload...)

	a, err := Open(memReaderAt(archive), string(userKey))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	plans := a.Plans()
	if len(plans) != 1 {
		t.Fatalf("got %d plans, want 1", len(plans))
	}
	if plans[0].Path != "data.bin" {
		t.Fatalf("Path = %q, want %q", plans[0].Path, "data.bin")
	}

	got, err := a.Extract(plans[0])
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("Extract = %q, want %q", got, plaintext)
	}
}

// pickUnusedByte returns a byte value absent from body, suitable as an LZ
// key_code for a pure-literal (no back-references, no escapes) stream: the
// header region's sentinelAddr fields are literally 0xFF repeated, so a
// fixed key_code like 0xFF cannot be assumed free.
func pickUnusedByte(body []byte) byte {
	var used [256]bool
	for _, b := range body {
		used[b] = true
	}
	for v := 0; v < 256; v++ {
		if !used[byte(v)] {
			return byte(v)
		}
	}
	panic("pickUnusedByte: all 256 byte values present")
}

func TestOpenRoundTripCompressedHeader(t *testing.T) {
	userKey := []byte("anotherkey")
	plaintext := []byte("payload bytes for the compressed-header test")

	nameTable, fileTable, dirTable := buildSingleFileHeaderRegion("x.txt", uint64(len(plaintext)))
	plainRegion := append(append(append([]byte{}, nameTable...), fileTable...), dirTable...)

	keyCode := pickUnusedByte(plainRegion)
	lzStream := prologue(uint32(len(plainRegion)), plainRegion, keyCode)
	huffPlain := encodeHuffmanForTest(t, lzStream)

	const nameTableStart = uint64(headerSizeV8)
	fileTableStart := uint64(len(nameTable))
	dirTableStart := fileTableStart + uint64(len(fileTable))
	dataStart := nameTableStart + uint64(len(huffPlain))

	cipherRegion := append([]byte(nil), huffPlain...)
	hk := derive7ByteKey(userKey)
	xorApply(cipherRegion, int64(nameTableStart), hk[:])

	perFileKeyString := buildKeyString(userKey, []byte("x.txt"), nil)
	perFileKey := derive7ByteKey(perFileKeyString)
	cipherPayload := append([]byte(nil), plaintext...)
	xorApply(cipherPayload, int64(len(plaintext)), perFileKey[:])

	header := buildV8Header(uint32(len(plainRegion)), dataStart, nameTableStart, fileTableStart, dirTableStart, 0, huffmanEncodeWholeFile)

	archive := append(append(append([]byte{}, header...), cipherRegion...), cipherPayload...)

	a, err := Open(memReaderAt(archive), string(userKey))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	plans := a.Plans()
	if len(plans) != 1 || plans[0].Path != "x.txt" {
		t.Fatalf("unexpected plans: %+v", plans)
	}

	got, err := a.Extract(plans[0])
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("Extract = %q, want %q", got, plaintext)
	}
}

func TestOpenNoKeyFlagSkipsHeaderEncryption(t *testing.T) {
	plaintext := []byte("no key at all")

	nameTable, fileTable, dirTable := buildSingleFileHeaderRegion("f.dat", uint64(len(plaintext)))
	plainRegion := append(append(append([]byte{}, nameTable...), fileTable...), dirTable...)

	const nameTableStart = uint64(headerSizeV8)
	fileTableStart := uint64(len(nameTable))
	dirTableStart := fileTableStart + uint64(len(fileTable))
	dataStart := nameTableStart + uint64(len(plainRegion))

	header := buildV8Header(uint32(len(plainRegion)), dataStart, nameTableStart, fileTableStart, dirTableStart, flagNoHeadPress|flagNoKey, huffmanEncodeWholeFile)
	archive := append(append(append([]byte{}, header...), plainRegion...), plaintext...)

	a, err := Open(memReaderAt(archive), "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	plans := a.Plans()
	if len(plans) != 1 || len(plans[0].CipherKey) != 0 {
		t.Fatalf("unexpected plans: %+v", plans)
	}

	got, err := a.Extract(plans[0])
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("Extract = %q, want %q", got, plaintext)
	}
}

// TestOpenWrongKeyFailsDownstream adapts spec.md §8 scenario 6: the wrong
// key leaves the header-region XOR un-undone, so the garbled file/dir
// tables either fail a bounds check during the walk or, if they happen to
// parse, resolve to something other than the real file.
func TestOpenWrongKeyFailsDownstream(t *testing.T) {
	userKey := []byte("rightkey")
	plaintext := []byte("hello world!")

	nameTable, fileTable, dirTable := buildSingleFileHeaderRegion("y.bin", uint64(len(plaintext)))
	plainRegion := append(append(append([]byte{}, nameTable...), fileTable...), dirTable...)

	const nameTableStart = uint64(headerSizeV8)
	fileTableStart := uint64(len(nameTable))
	dirTableStart := fileTableStart + uint64(len(fileTable))
	dataStart := nameTableStart + uint64(len(plainRegion))

	cipherRegion := append([]byte(nil), plainRegion...)
	hk := derive7ByteKey(userKey)
	xorApply(cipherRegion, int64(nameTableStart), hk[:])

	header := buildV8Header(uint32(len(plainRegion)), dataStart, nameTableStart, fileTableStart, dirTableStart, flagNoHeadPress, huffmanEncodeWholeFile)
	archive := append(append(append([]byte{}, header...), cipherRegion...), plaintext...)

	a, err := Open(memReaderAt(archive), "wrongkey")
	if err != nil {
		return // failed during the walk, as expected
	}
	plans := a.Plans()
	if len(plans) == 1 && plans[0].Path == "y.bin" {
		got, err := a.Extract(plans[0])
		if err == nil && string(got) == string(plaintext) {
			t.Fatalf("wrong key still reproduced the original file and contents")
		}
	}
}

func TestOpenTruncatedArchiveErrors(t *testing.T) {
	_, err := Open(memReaderAt(make([]byte, 10)), "k")
	if _, ok := err.(*ErrTruncatedStream); !ok {
		t.Fatalf("got %v (%T), want *ErrTruncatedStream", err, err)
	}
}

func TestOpenBadMagicErrors(t *testing.T) {
	b := make([]byte, headerSizeV6)
	copy(b, "ZZ")
	_, err := Open(memReaderAt(b), "k")
	if _, ok := err.(*ErrBadMagic); !ok {
		t.Fatalf("got %v (%T), want *ErrBadMagic", err, err)
	}
}

func TestLoadHeaderTablesRejectsOutOfRangeOffsets(t *testing.T) {
	h := &header{ver: versionV8, headSize: 8, nameTableStart: 0, fileTableStart: 100, dirTableStart: 4, flags: flagNoHeadPress | flagNoKey}
	_, _, _, err := loadHeaderTables(memReaderAt(make([]byte, 8)), h, []byte("k"))
	if _, ok := err.(*ErrHeaderSizeInvalid); !ok {
		t.Fatalf("got %v (%T), want *ErrHeaderSizeInvalid", err, err)
	}
}
