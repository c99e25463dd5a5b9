package dxa

import "encoding/binary"

// defaultKeyString is substituted (appended, per spec) whenever the
// caller-supplied key string is too short for the 7-byte derivation.
const defaultKeyString = "DXBDXARC\x00"

// legacyKeyLength is the width of the V5/V6-legacy key buffer.
const legacyKeyLength = 12

// derive7ByteKey implements the V8/V6 key-string-to-keystream derivation:
// split the (possibly default-padded) key string into even- and odd-indexed
// byte streams, CRC-32 each independently, and concatenate the first CRC
// (little-endian, 4 bytes) with the low 3 bytes of the second CRC
// (little-endian) to make a 7-byte keystream seed.
func derive7ByteKey(s []byte) [7]byte {
	if len(s) < 4 {
		s = append(append([]byte(nil), s...), []byte(defaultKeyString)...)
	}

	var even, odd []byte
	for i, b := range s {
		if i%2 == 0 {
			even = append(even, b)
		} else {
			odd = append(odd, b)
		}
	}

	c0 := crc32sum(even)
	c1 := crc32sum(odd)

	var out [7]byte
	binary.LittleEndian.PutUint32(out[0:4], c0)
	var c1le [4]byte
	binary.LittleEndian.PutUint32(c1le[:], c1)
	copy(out[4:7], c1le[:3])
	return out
}

// deriveLegacyKey implements the V5/V6-legacy 12-byte key derivation: tile
// (or default-fill) the key string to 12 bytes, then apply a fixed,
// position-specific bijective scramble (bitwise complement, nibble
// rotation, and xor against constants 0x8A/0xAC/0x7F/0xD6/0xCC).
func deriveLegacyKey(s []byte) [legacyKeyLength]byte {
	var buf [legacyKeyLength]byte
	if len(s) == 0 {
		for i := range buf {
			buf[i] = 0xAA
		}
	} else {
		for i := range buf {
			buf[i] = s[i%len(s)]
		}
	}

	buf[0] = ^buf[0]
	buf[1] = rotateNibbles(buf[1])
	buf[2] = buf[2] ^ 0x8A
	buf[3] = ^rotateNibbles(buf[3])
	buf[4] = ^buf[4]
	buf[5] = buf[5] ^ 0xAC
	buf[6] = ^buf[6]
	buf[7] = ^rotateLeft8(buf[7], 5)
	buf[8] = rotateLeft8(buf[8], 3)
	buf[9] = buf[9] ^ 0x7F
	buf[10] = rotateNibbles(buf[10]) ^ 0xD6
	buf[11] = buf[11] ^ 0xCC

	return buf
}

func rotateNibbles(b byte) byte {
	return b>>4 | b<<4
}

func rotateLeft8(b byte, n uint) byte {
	n &= 7
	return b<<n | b>>(8-n)
}
