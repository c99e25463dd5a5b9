package dxa

import (
	"encoding/binary"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

const (
	keyStringUserMax  = 63   // DXA_KEY_STRING_LENGTH, V8 context
	keyStringMaxTotal = 2048 // DXA_KEY_STRING_MAXLENGTH
)

// ExtractPlan names one resolved, extractable file: its path inside the
// archive, where its bytes live, which codecs its payload needs, and the
// key to XOR-decrypt it with (empty when NO_KEY is set).
type ExtractPlan struct {
	Path            string
	DataStart       uint64
	DataSize        uint64
	PressSize       uint64 // sentinelAddr if not LZ-compressed
	HuffPressSize   uint64 // sentinelAddr if not Huffman-compressed
	HuffmanEncodeKB uint8  // only meaningful when HuffPressSize != sentinelAddr
	CipherKey       []byte

	// LegacyXOROffset is true for true-V5 archives (on-disk version < 5):
	// their payload XOR phase restarts at the read's absolute archive
	// position (DataStart-relative) instead of being threaded from
	// DataSize the way V6/V8 are (header.legacyXOROffset).
	LegacyXOROffset bool
}

func (p *ExtractPlan) isLZCompressed() bool      { return p.PressSize != sentinelAddr }
func (p *ExtractPlan) isHuffmanCompressed() bool { return p.HuffPressSize != sentinelAddr }

// walker holds the three decompressed header tables for the duration of one
// tree walk and accumulates the resulting plans.
type walker struct {
	h         *header
	nameTable []byte
	fileTable []byte
	dirTable  []byte
	userKey   []byte
	legacyKey [legacyKeyLength]byte
	plans     []ExtractPlan
}

// walkFrame is one unit of work for the explicit-stack tree walk: the
// directory to visit, plus the output path and per-file key-string tail
// accumulated by its ancestors (nearest ancestor first).
type walkFrame struct {
	dirAddr uint64
	path    []string
	keySegs [][]byte
}

// walkArchive parses the directory tree (C6) into an ordered ExtractPlan
// list, walking with an explicit stack rather than recursive calls so a
// deeply nested archive cannot exhaust the Go call stack.
func walkArchive(h *header, nameTable, fileTable, dirTable, userKey []byte) ([]ExtractPlan, error) {
	w := &walker{
		h:         h,
		nameTable: nameTable,
		fileTable: fileTable,
		dirTable:  dirTable,
		userKey:   userKey,
	}
	if h.ver != versionV8 {
		w.legacyKey = deriveLegacyKey(userKey)
	}

	stack := []walkFrame{{dirAddr: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		dir, err := w.readDirEntry(f.dirAddr)
		if err != nil {
			return nil, err
		}

		path, keySegs := f.path, f.keySegs
		if !dir.isRoot() {
			selfEntry, err := w.readFileEntry(dir.selfAddr)
			if err != nil {
				return nil, err
			}
			raw, err := w.resolveNameRaw(selfEntry.nameOffset)
			if err != nil {
				return nil, err
			}
			name, err := decodeName(raw)
			if err != nil {
				return nil, err
			}
			path = appendCopy(path, name)
			keySegs = prependCopy(keySegs, raw)
		}

		for i := uint64(0); i < dir.fileCount; i++ {
			addr := dir.filesAddr + i*uint64(h.fileEntrySize())
			entry, err := w.readFileEntry(addr)
			if err != nil {
				return nil, err
			}
			if entry.isDirectory() {
				stack = append(stack, walkFrame{dirAddr: entry.dataOffset, path: path, keySegs: keySegs})
				continue
			}
			plan, err := w.buildPlan(entry, path, keySegs)
			if err != nil {
				return nil, err
			}
			w.plans = append(w.plans, plan)
		}
	}

	return w.plans, nil
}

func appendCopy(s []string, v string) []string {
	out := make([]string, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}

func prependCopy(s [][]byte, v []byte) [][]byte {
	out := make([][]byte, 0, len(s)+1)
	out = append(out, v)
	return append(out, s...)
}

func (w *walker) readDirEntry(addr uint64) (*dirEntry, error) {
	if addr+dirEntrySize > uint64(len(w.dirTable)) {
		return nil, &ErrTruncatedStream{Component: "dir-table", Need: int(addr + dirEntrySize), Have: len(w.dirTable)}
	}
	return parseDirEntry(w.dirTable[addr : addr+dirEntrySize])
}

func (w *walker) readFileEntry(addr uint64) (*fileEntry, error) {
	size := uint64(w.h.fileEntrySize())
	if addr+size > uint64(len(w.fileTable)) {
		return nil, &ErrTruncatedStream{Component: "file-table", Need: int(addr + size), Have: len(w.fileTable)}
	}
	return parseFileEntry(w.h, w.fileTable[addr:addr+size])
}

// resolveNameRaw implements spec §4.6.2: the 4-byte value at offset is a
// prefix whose value, scaled by 4 and offset by 4, gives the absolute start
// of the name's raw bytes (independent of offset itself); they run to the
// next NUL.
func (w *walker) resolveNameRaw(offset uint64) ([]byte, error) {
	if offset+4 > uint64(len(w.nameTable)) {
		return nil, &ErrTruncatedStream{Component: "name-table", Need: int(offset + 4), Have: len(w.nameTable)}
	}
	prefix := binary.LittleEndian.Uint32(w.nameTable[offset : offset+4])
	start := uint64(prefix)*4 + 4
	if start > uint64(len(w.nameTable)) {
		return nil, &ErrHeaderSizeInvalid{Reason: "name table entry start out of range"}
	}
	end := start
	for end < uint64(len(w.nameTable)) && w.nameTable[end] != 0 {
		end++
	}
	return w.nameTable[start:end], nil
}

// decodeName applies the UTF-8-then-Shift-JIS fallback policy.
func decodeName(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(raw)
	if err != nil {
		return "", &ErrNameDecodeError{Raw: append([]byte(nil), raw...)}
	}
	return string(out), nil
}

// nulTerminateKeyPrefix copies s as a C-string would into a fixed
// maxLen+1-byte buffer: if s already contains a NUL within the first maxLen
// bytes, the copy stops there (inclusive); otherwise exactly maxLen bytes
// are taken and a NUL is appended. This is what makes the literal default
// key string "DXBDXARC\x00" (which already carries its own terminator)
// pass through buildKeyString unchanged rather than gaining a second NUL.
func nulTerminateKeyPrefix(s []byte, maxLen int) []byte {
	limit := maxLen
	if limit > len(s) {
		limit = len(s)
	}
	for i := 0; i < limit; i++ {
		if s[i] == 0 {
			return append([]byte(nil), s[:i+1]...)
		}
	}
	out := append([]byte(nil), s[:limit]...)
	return append(out, 0)
}

// buildKeyString implements spec §4.6.1: user key (truncated, NUL
// terminated) + the file's own raw name bytes + each ancestor directory's
// raw name bytes, nearest ancestor first, capped at keyStringMaxTotal.
func buildKeyString(userKey, fileNameRaw []byte, keySegs [][]byte) []byte {
	k := make([]byte, 0, keyStringUserMax+1+len(fileNameRaw)+64)
	k = append(k, nulTerminateKeyPrefix(userKey, keyStringUserMax)...)
	k = append(k, fileNameRaw...)
	for _, seg := range keySegs {
		k = append(k, seg...)
	}
	if len(k) > keyStringMaxTotal {
		k = k[:keyStringMaxTotal]
	}
	return k
}

func (w *walker) buildPlan(entry *fileEntry, path []string, keySegs [][]byte) (ExtractPlan, error) {
	raw, err := w.resolveNameRaw(entry.nameOffset)
	if err != nil {
		return ExtractPlan{}, err
	}
	name, err := decodeName(raw)
	if err != nil {
		return ExtractPlan{}, err
	}

	fullPath := strings.Join(appendCopy(path, name), "/")

	var cipherKey []byte
	if !w.h.noKey() {
		if w.h.ver == versionV8 {
			ks := buildKeyString(w.userKey, raw, keySegs)
			k := derive7ByteKey(ks)
			cipherKey = k[:]
		} else {
			cipherKey = w.legacyKey[:]
		}
	}

	return ExtractPlan{
		Path:            fullPath,
		DataStart:       w.h.dataStart + entry.dataOffset,
		DataSize:        entry.dataSize,
		PressSize:       entry.pressSize,
		HuffPressSize:   entry.huffPressSize,
		HuffmanEncodeKB: w.h.huffmanEncodeKB,
		CipherKey:       cipherKey,
		LegacyXOROffset: w.h.legacyXOROffset(),
	}, nil
}
