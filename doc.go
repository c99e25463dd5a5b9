// Package dxa decodes DXA archives, the proprietary asset-container format
// produced by the DX Library and used by Wolf RPG Editor projects.
//
// An archive is opened with [Open], which parses the header, decompresses
// and walks the name/file/directory tables, and returns an [Archive] whose
// [Archive.Plans] lists every extractable file. [Archive.Extract] then
// decodes one file on demand; [ExtractAll] fans that out across many files
// concurrently. [Archive.FS] exposes the same tree as a read-only
// [io/fs.FS].
//
// Three on-disk version families are supported: V8 (header itself
// Huffman+LZ compressed, per-file XOR keys), V6 (smaller header, single
// archive-wide XOR key), and V5 (as V6; for on-disk versions below 5 the
// payload XOR phase follows the absolute archive read position instead of
// starting from the file's data_size).
package dxa
