package dxa

import (
	"encoding/binary"
)

// version names the three header/codec capability sets a DXA archive can
// declare. V5 is a catch-all for every version value <= 5.
type version int

const (
	versionV8 version = 8
	versionV6 version = 6
	versionV5 version = 5
)

const (
	flagNoKey       = 0x1
	flagNoHeadPress = 0x2
)

const (
	headerSizeV8 = 64
	headerSizeV6 = 48 // magic,version,head_size + data_start, 3 u64 table offsets, u64 char_code

	fileEntrySizeV8 = 72
	fileEntrySizeV6 = 64
	dirEntrySize    = 32

	attrDirectory = 0x10

	sentinelAddr = 0xFFFF_FFFF_FFFF_FFFF

	huffmanEncodeWholeFile = 0xFF
)

// header is the decoded form of an archive's fixed-size header, normalised
// across the V8/V6/V5 on-disk layouts (spec.md §3, §6).
type header struct {
	ver    version
	rawVer uint16 // the on-disk version field, before collapsing into ver

	headSize       uint32
	dataStart      uint64
	nameTableStart uint64
	fileTableStart uint64
	dirTableStart  uint64

	flags           uint32 // always 0 for V6/V5, which have no flags field
	huffmanEncodeKB uint8  // only meaningful for V8
}

func (h *header) noKey() bool       { return h.flags&flagNoKey != 0 }
func (h *header) noHeadPress() bool { return h.flags&flagNoHeadPress != 0 }

// legacyXOROffset reports whether this archive uses true-V5 payload XOR
// phasing: per DXArchive6.py, keyConvFileRead's offset argument is only
// passed when head.version >= 5 (threaded from data_size, spec.md's "XOR
// offset semantics"); for version < 5 the call omits it and the reference
// implementation falls back to the archive file's current absolute read
// position instead (spec.md's V5 file-format note). Versions 5 and 6 both
// share the 48-byte header layout (versionV5/versionV6 here), but only
// rawVer < 5 gets the unthreaded phase — version 5 itself behaves like V6.
func (h *header) legacyXOROffset() bool { return h.rawVer < 5 }

// fileEntrySize and dirEntrySize (within the header region, post
// decompression) depend only on the archive's version.
func (h *header) fileEntrySize() int {
	if h.ver == versionV8 {
		return fileEntrySizeV8
	}
	return fileEntrySizeV6
}

// parseHeader reads and validates the fixed-size archive header at offset 0
// and dispatches to the version-specific layout.
func parseHeader(src []byte) (*header, error) {
	if len(src) < 4 {
		return nil, &ErrTruncatedStream{Component: "header", Need: 4, Have: len(src)}
	}
	if src[0] != 'D' || src[1] != 'X' {
		return nil, &ErrBadMagic{Got: [2]byte{src[0], src[1]}}
	}
	ver := binary.LittleEndian.Uint16(src[2:4])

	switch {
	case ver == 0x0008:
		return parseHeaderV8(src)
	case ver == 0x0006:
		return parseHeaderV6(src, versionV6, ver)
	case ver <= 0x0005:
		return parseHeaderV6(src, versionV5, ver)
	default:
		return nil, &ErrUnsupportedVersion{Version: ver}
	}
}

// parseHeaderV8 reads the 64-byte V8 header (spec.md §3): magic, version,
// head_size, data_start, name_table_start, file_table_start, dir_table_start,
// char_code, flags, huffman_encode_kb, reserve(14), trailer.
func parseHeaderV8(src []byte) (*header, error) {
	if len(src) < headerSizeV8 {
		return nil, &ErrTruncatedStream{Component: "header-v8", Need: headerSizeV8, Have: len(src)}
	}
	h := &header{ver: versionV8, rawVer: 0x0008}
	h.headSize = binary.LittleEndian.Uint32(src[4:8])
	h.dataStart = binary.LittleEndian.Uint64(src[8:16])
	h.nameTableStart = binary.LittleEndian.Uint64(src[16:24])
	h.fileTableStart = binary.LittleEndian.Uint64(src[24:32])
	h.dirTableStart = binary.LittleEndian.Uint64(src[32:40])
	// src[40:44] is char_code, unused by the codec.
	h.flags = binary.LittleEndian.Uint32(src[44:48])
	h.huffmanEncodeKB = src[48]
	// src[49:63] is reserve, src[63] is a trailer byte; both unused.

	if h.headSize == 0 {
		return nil, &ErrHeaderSizeInvalid{Reason: "head_size is zero"}
	}
	// name_table_start is an absolute archive offset, while file_table_start
	// and dir_table_start are offsets within the decoded header region, so
	// only the latter two are ordered against each other.
	if h.fileTableStart > h.dirTableStart {
		return nil, &ErrHeaderSizeInvalid{Reason: "table offsets out of order"}
	}
	return h, nil
}

// parseHeaderV6 reads the 48-byte V6/V5 header: magic, version, head_size,
// data_start, name_table_start, file_table_start, dir_table_start, and a
// trailing u64 char_code the codec does not use. There is no flags field, no
// huffman_encode_kb, and no reserve block; V6/V5 archives never have
// NO_KEY/NO_HEAD_PRESS semantics (their header region is always XOR-only,
// never LZ/Huffman-compressed — see spec.md §6).
func parseHeaderV6(src []byte, v version, rawVer uint16) (*header, error) {
	if len(src) < headerSizeV6 {
		return nil, &ErrTruncatedStream{Component: "header-v6", Need: headerSizeV6, Have: len(src)}
	}
	h := &header{ver: v, rawVer: rawVer}
	h.headSize = binary.LittleEndian.Uint32(src[4:8])
	h.dataStart = binary.LittleEndian.Uint64(src[8:16])
	h.nameTableStart = binary.LittleEndian.Uint64(src[16:24])
	h.fileTableStart = binary.LittleEndian.Uint64(src[24:32])
	h.dirTableStart = binary.LittleEndian.Uint64(src[32:40])
	// src[40:48] is char_code, unused by the codec.

	if h.headSize == 0 {
		return nil, &ErrHeaderSizeInvalid{Reason: "head_size is zero"}
	}
	if h.fileTableStart > h.dirTableStart {
		return nil, &ErrHeaderSizeInvalid{Reason: "table offsets out of order"}
	}
	return h, nil
}

// fileEntry is one record of the file table, normalised across the V8
// (with huff_press_size) and V6/V5 (without it) layouts.
type fileEntry struct {
	nameOffset    uint64
	attributes    uint64
	ctime         uint64
	atime         uint64
	mtime         uint64
	dataOffset    uint64
	dataSize      uint64
	pressSize     uint64
	huffPressSize uint64 // sentinelAddr on V6/V5, which have no such field
}

func (e *fileEntry) isDirectory() bool { return e.attributes&attrDirectory != 0 }
func (e *fileEntry) isLZCompressed() bool {
	return e.pressSize != sentinelAddr
}
func (e *fileEntry) isHuffmanCompressed() bool {
	return e.huffPressSize != sentinelAddr
}

func parseFileEntry(h *header, src []byte) (*fileEntry, error) {
	size := h.fileEntrySize()
	if len(src) < size {
		return nil, &ErrTruncatedStream{Component: "file-entry", Need: size, Have: len(src)}
	}
	e := &fileEntry{
		nameOffset: binary.LittleEndian.Uint64(src[0:8]),
		attributes: binary.LittleEndian.Uint64(src[8:16]),
		ctime:      binary.LittleEndian.Uint64(src[16:24]),
		atime:      binary.LittleEndian.Uint64(src[24:32]),
		mtime:      binary.LittleEndian.Uint64(src[32:40]),
		dataOffset: binary.LittleEndian.Uint64(src[40:48]),
		dataSize:   binary.LittleEndian.Uint64(src[48:56]),
		pressSize:  binary.LittleEndian.Uint64(src[56:64]),
	}
	if h.ver == versionV8 {
		e.huffPressSize = binary.LittleEndian.Uint64(src[64:72])
	} else {
		e.huffPressSize = sentinelAddr
	}
	return e, nil
}

// dirEntry is one record of the directory table; identical across versions.
type dirEntry struct {
	selfAddr   uint64
	parentAddr uint64
	fileCount  uint64
	filesAddr  uint64
}

func (d *dirEntry) isRoot() bool { return d.selfAddr == sentinelAddr && d.parentAddr == sentinelAddr }

func parseDirEntry(src []byte) (*dirEntry, error) {
	if len(src) < dirEntrySize {
		return nil, &ErrTruncatedStream{Component: "dir-entry", Need: dirEntrySize, Have: len(src)}
	}
	return &dirEntry{
		selfAddr:   binary.LittleEndian.Uint64(src[0:8]),
		parentAddr: binary.LittleEndian.Uint64(src[8:16]),
		fileCount:  binary.LittleEndian.Uint64(src[16:24]),
		filesAddr:  binary.LittleEndian.Uint64(src[24:32]),
	}, nil
}
