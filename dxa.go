package dxa

import "io"

// SizedReaderAt is the minimal capability Open needs from its source:
// random reads plus a known total length, so the header region (which runs
// to end-of-file rather than a length the header itself declares) can be
// located. *io.SectionReader satisfies it directly; OpenPath wraps *os.File
// in an internal/sectionreader.ReaderAt and OpenMmap serves a memory-mapped
// view of the file.
type SizedReaderAt interface {
	io.ReaderAt
	Size() int64
}

// Archive is one parsed DXA archive: the decoded header plus the
// fully-walked list of extractable files. Open does all header and
// tree-walk work eagerly, matching the format's "parse once, own for the
// session" lifecycle; Extract decodes one file's payload (C7) lazily, on
// demand.
type Archive struct {
	r     SizedReaderAt
	h     *header
	plans []ExtractPlan
}

// Open parses an archive's header — auto-detecting the V8/V6/V5 family
// from the version field — decompresses and walks its header tables, and
// returns an Archive ready for Plans/Extract/FS. key is the archive's key
// string; an empty key behaves as the format's default "DXBDXARC\0".
func Open(r SizedReaderAt, key string) (*Archive, error) {
	size := r.Size()
	if size < int64(headerSizeV6) {
		return nil, &ErrTruncatedStream{Component: "header", Need: headerSizeV6, Have: int(size)}
	}

	probeLen := int64(headerSizeV8)
	if size < probeLen {
		probeLen = size
	}
	probe := make([]byte, probeLen)
	if _, err := r.ReadAt(probe, 0); err != nil && err != io.EOF {
		return nil, &ErrIO{Op: "read header", Err: err}
	}

	h, err := parseHeader(probe)
	if err != nil {
		return nil, err
	}

	keyBytes := []byte(key)
	if len(keyBytes) == 0 {
		keyBytes = []byte(defaultKeyString)
	}

	nameTable, fileTable, dirTable, err := loadHeaderTables(r, h, keyBytes)
	if err != nil {
		return nil, err
	}

	plans, err := walkArchive(h, nameTable, fileTable, dirTable, keyBytes)
	if err != nil {
		return nil, err
	}

	return &Archive{r: r, h: h, plans: plans}, nil
}

// loadHeaderTables reads, XOR-decrypts, and (V8 only) Huffman+LZ-decodes the
// header region, then slices the result into the name/file/directory
// tables per the offsets the header itself declares.
func loadHeaderTables(r SizedReaderAt, h *header, keyBytes []byte) (nameTable, fileTable, dirTable []byte, err error) {
	var buf []byte

	if h.ver == versionV8 {
		blobLen := r.Size() - int64(h.nameTableStart)
		if blobLen < 0 {
			return nil, nil, nil, &ErrHeaderSizeInvalid{Reason: "name_table_start beyond end of archive"}
		}
		blob := make([]byte, blobLen)
		if _, rerr := r.ReadAt(blob, int64(h.nameTableStart)); rerr != nil && rerr != io.EOF {
			return nil, nil, nil, &ErrIO{Op: "read header region", Err: rerr}
		}
		if !h.noKey() {
			hk := derive7ByteKey(keyBytes)
			xorApply(blob, int64(h.nameTableStart), hk[:])
		}

		if h.noHeadPress() {
			buf = blob
		} else {
			lzStream, herr := huffmanDecode(blob)
			if herr != nil {
				return nil, nil, nil, herr
			}
			buf, err = lzDecode(lzStream)
			if err != nil {
				return nil, nil, nil, err
			}
		}
	} else {
		buf = make([]byte, h.headSize)
		if _, rerr := r.ReadAt(buf, int64(h.nameTableStart)); rerr != nil && rerr != io.EOF {
			return nil, nil, nil, &ErrIO{Op: "read header region", Err: rerr}
		}
		lk := deriveLegacyKey(keyBytes)
		xorApply(buf, int64(h.nameTableStart), lk[:])
	}

	if uint64(len(buf)) < uint64(h.headSize) {
		return nil, nil, nil, &ErrHeaderSizeInvalid{Reason: "decoded header region shorter than head_size"}
	}
	buf = buf[:h.headSize]

	if h.fileTableStart > h.dirTableStart || h.dirTableStart > uint64(len(buf)) {
		return nil, nil, nil, &ErrHeaderSizeInvalid{Reason: "table offsets out of range within header region"}
	}

	return buf[:h.fileTableStart], buf[h.fileTableStart:h.dirTableStart], buf[h.dirTableStart:], nil
}

// Plans returns every extractable file discovered by the tree walk, in
// walk order. The returned slice must not be mutated.
func (a *Archive) Plans() []ExtractPlan { return a.plans }

// Extract runs the payload pipeline (C7) for one plan and returns the
// file's decoded bytes. p must come from this Archive's Plans(); it is
// safe to call Extract concurrently for distinct plans.
func (a *Archive) Extract(p ExtractPlan) ([]byte, error) {
	return decodePayload(a.r, p)
}
