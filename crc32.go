package dxa

import "hash/crc32"

// crc32sum computes the standard reflected CRC-32 (polynomial 0xEDB88320,
// initial 0xFFFFFFFF, final xor 0xFFFFFFFF) that DXA's key derivation
// relies on. This is bit-for-bit the IEEE CRC-32 the rest of the Go
// ecosystem already standardised on, so the table lives in the standard
// library rather than being redefined here; see DESIGN.md for the
// stdlib-usage justification required for every component that isn't
// grounded on a third-party dependency.
func crc32sum(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}
