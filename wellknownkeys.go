package dxa

// WellKnownKey names one of the handful of key strings known to appear in
// the wild for specific Wolf RPG Editor release ranges, paired with the
// release range it was observed with.
type WellKnownKey struct {
	Version string // the release range this key was observed with
	Key     string
}

// WellKnownKeys mirrors original_source/__init__.py's decompiler_pairs: that
// module tries each of these in turn against an archive and keeps the
// first that parses. This module's Open already auto-detects the version
// family from the header, so a caller reproduces the same retry loop with
// a plain range over WellKnownKeys, using the typed errors from errors.go
// as the signal to try the next one.
var WellKnownKeys = []WellKnownKey{
	{Version: "1.01-2.02", Key: "\x0f\x53\xe1\x3e\x04\x37\x12\x17\x60\x0f\x53\xe1"},
	{Version: "2.10", Key: "\x4c\xd9\x2a\xb7\x28\x9b\xac\x07\x3e\x77\xec\x4c"},
	{Version: "2.20-2.24", Key: "8P@(rO!p;s58"},
	{Version: "2.25-2.81", Key: "WLFRPrO!p(;s5((8P@((UFWlu$#5(="},
}
