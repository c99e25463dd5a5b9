package dxa

import "io"

// bufferSize is DXA_BUFFERSIZE: the chunk size used when streaming an
// uncompressed payload so a multi-gigabyte file doesn't force a second
// full-size copy through an intermediate buffer.
const bufferSize = 16 * 1024 * 1024

// decodePayload runs C7 for one plan: it dispatches on the
// (lz_compressed, huffman_compressed) combination and returns the file's
// final, decoded bytes.
func decodePayload(r io.ReaderAt, p ExtractPlan) ([]byte, error) {
	switch {
	case !p.isLZCompressed() && !p.isHuffmanCompressed():
		return decodeRawPayload(r, p)
	case p.isLZCompressed() && !p.isHuffmanCompressed():
		return decodeLZOnlyPayload(r, p)
	case !p.isLZCompressed() && p.isHuffmanCompressed():
		return decodeHuffmanOnlyPayload(r, p)
	default:
		return decodeLZHuffmanPayload(r, p)
	}
}

// xorPhase returns the keystream phase for a payload read that has already
// consumed consumed bytes of this file's own data. V6/V8 thread the phase
// from data_size (spec.md's "XOR offset semantics"); true V5 archives
// (LegacyXOROffset) instead restart the phase at the read's absolute
// archive position, data_start + consumed, matching DXArchive6.py's
// keyConvFileRead falling back to the file pointer's current tell() when
// no offset argument is passed (spec.md's V5 file-format note).
func (p *ExtractPlan) xorPhase(consumed uint64) int64 {
	if p.LegacyXOROffset {
		return int64(p.DataStart + consumed)
	}
	return int64(p.DataSize + consumed)
}

// decodeRawPayload handles (no LZ, no Huffman): data_size ciphertext bytes,
// XOR-decrypted at absolute offset data_size, read in bufferSize chunks
// with the XOR phase threaded across chunk boundaries.
func decodeRawPayload(r io.ReaderAt, p ExtractPlan) ([]byte, error) {
	out := make([]byte, p.DataSize)
	var consumed uint64
	for consumed < p.DataSize {
		chunk := p.DataSize - consumed
		if chunk > bufferSize {
			chunk = bufferSize
		}
		buf := out[consumed : consumed+chunk]
		if _, err := r.ReadAt(buf, int64(p.DataStart+consumed)); err != nil {
			return nil, &ErrIO{Op: "read raw payload", Err: err}
		}
		xorApply(buf, p.xorPhase(consumed), p.CipherKey)
		consumed += chunk
	}
	return out, nil
}

// decodeLZOnlyPayload handles (LZ, no Huffman): press_size ciphertext
// bytes, XOR-decrypted at offset data_size, then C4.
func decodeLZOnlyPayload(r io.ReaderAt, p ExtractPlan) ([]byte, error) {
	buf := make([]byte, p.PressSize)
	if _, err := r.ReadAt(buf, int64(p.DataStart)); err != nil {
		return nil, &ErrIO{Op: "read lz payload", Err: err}
	}
	xorApply(buf, p.xorPhase(0), p.CipherKey)

	out, err := lzDecode(buf)
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != p.DataSize {
		return nil, &ErrCodecInvariantViolated{Reason: "lz-only payload decoded length mismatch"}
	}
	return out, nil
}

// decodeHuffmanOnlyPayload handles (no LZ, Huffman), including the
// partial-Huffman-at-ends policy.
func decodeHuffmanOnlyPayload(r io.ReaderAt, p ExtractPlan) ([]byte, error) {
	if p.HuffmanEncodeKB != huffmanEncodeWholeFile && p.DataSize > 2*uint64(p.HuffmanEncodeKB)*1024 {
		return reconstructPartialHuffmanStream(r, p, p.DataSize)
	}

	buf := make([]byte, p.HuffPressSize)
	if _, err := r.ReadAt(buf, int64(p.DataStart)); err != nil {
		return nil, &ErrIO{Op: "read huffman payload", Err: err}
	}
	xorApply(buf, p.xorPhase(0), p.CipherKey)

	out, err := huffmanDecode(buf)
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != p.DataSize {
		return nil, &ErrCodecInvariantViolated{Reason: "huffman-only payload decoded length mismatch"}
	}
	return out, nil
}

// decodeLZHuffmanPayload handles (LZ, Huffman): the Huffman layer
// reconstructs an LZ-compressed stream of length press_size (the
// partial-ends policy, when it applies, operates on that stream rather
// than on the final decoded bytes), which C4 then decodes to data_size.
func decodeLZHuffmanPayload(r io.ReaderAt, p ExtractPlan) ([]byte, error) {
	var lzStream []byte
	var err error

	if p.HuffmanEncodeKB != huffmanEncodeWholeFile && p.PressSize > 2*uint64(p.HuffmanEncodeKB)*1024 {
		lzStream, err = reconstructPartialHuffmanStream(r, p, p.PressSize)
	} else {
		buf := make([]byte, p.HuffPressSize)
		if _, ferr := r.ReadAt(buf, int64(p.DataStart)); ferr != nil {
			return nil, &ErrIO{Op: "read huffman+lz payload", Err: ferr}
		}
		xorApply(buf, p.xorPhase(0), p.CipherKey)
		lzStream, err = huffmanDecode(buf)
		if err == nil && uint64(len(lzStream)) != p.PressSize {
			err = &ErrCodecInvariantViolated{Reason: "huffman-decoded lz-stream length mismatch"}
		}
	}
	if err != nil {
		return nil, err
	}

	out, err := lzDecode(lzStream)
	if err != nil {
		return nil, err
	}
	if uint64(len(out)) != p.DataSize {
		return nil, &ErrCodecInvariantViolated{Reason: "lz(huffman) payload decoded length mismatch"}
	}
	return out, nil
}

// reconstructPartialHuffmanStream implements the partial-Huffman-at-ends
// policy shared by the Huffman-only and Huffman+LZ paths: only the first
// and last huffman_encode_kb KiB of the totalLen-byte stream are
// Huffman-compressed (concatenated in that order in the archive); the
// middle segment is stored raw, XOR-decrypted at offset
// data_size + huff_press_size, immediately following the Huffman blob.
func reconstructPartialHuffmanStream(r io.ReaderAt, p ExtractPlan, totalLen uint64) ([]byte, error) {
	endsLen := 2 * uint64(p.HuffmanEncodeKB) * 1024
	if endsLen > totalLen {
		return nil, &ErrHeaderSizeInvalid{Reason: "huffman_encode_kb ends span exceeds stream length"}
	}
	halfLen := uint64(p.HuffmanEncodeKB) * 1024
	middleLen := totalLen - endsLen

	huffBuf := make([]byte, p.HuffPressSize)
	if _, err := r.ReadAt(huffBuf, int64(p.DataStart)); err != nil {
		return nil, &ErrIO{Op: "read partial-huffman ends", Err: err}
	}
	xorApply(huffBuf, p.xorPhase(0), p.CipherKey)

	ends, err := huffmanDecode(huffBuf)
	if err != nil {
		return nil, err
	}
	if uint64(len(ends)) != endsLen {
		return nil, &ErrCodecInvariantViolated{Reason: "partial-huffman ends length mismatch"}
	}

	out := make([]byte, totalLen)
	copy(out[:halfLen], ends[:halfLen])
	copy(out[halfLen+middleLen:], ends[halfLen:])

	if middleLen > 0 {
		middlePos := int64(p.DataStart + p.HuffPressSize)
		mid := out[halfLen : halfLen+middleLen]
		if _, err := r.ReadAt(mid, middlePos); err != nil {
			return nil, &ErrIO{Op: "read partial-huffman middle", Err: err}
		}
		xorApply(mid, p.xorPhase(p.HuffPressSize), p.CipherKey)
	}

	return out, nil
}
