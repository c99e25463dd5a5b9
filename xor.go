package dxa

// xorApply XORs buf in place against key, treating key as an infinitely
// repeating keystream whose phase at buf[0] is absoluteOffset. Every caller
// must thread absoluteOffset through successive reads of the same logical
// stream so the keystream phase stays continuous; the cipher itself is
// stateless and pure, so it can be tested independently of any I/O.
func xorApply(buf []byte, absoluteOffset int64, key []byte) {
	k := int64(len(key))
	if k == 0 {
		return
	}
	phase := absoluteOffset % k
	if phase < 0 {
		phase += k
	}
	for i := range buf {
		buf[i] ^= key[(phase+int64(i))%k]
	}
}
