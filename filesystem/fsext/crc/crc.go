// Package crc computes the two checksum variants an ext4 volume uses: the
// standard reflected IEEE CRC-32 (metadata_csum EA-block and superblock
// checksums) and the older nibble-at-a-time "weak" CRC-32 used by group
// descriptors and some pre-metadata_csum structures. Both share the same
// 256-entry table, per libfsext_checksum.h in the original C library this
// was ported from.
package crc

import "hash/crc32"

var table = crc32.MakeTable(crc32.IEEE)

// Checksum32 computes the standard reflected CRC-32 (IEEE polynomial) of b,
// seeded with initial.
func Checksum32(b []byte, initial uint32) uint32 {
	return crc32.Update(initial, table, b)
}

// WeakChecksum32 computes the nibble-shifted "weak" CRC-32 variant: each
// byte is folded into the checksum as two 4-bit lookups against the low
// 16 entries of the same table, rather than the standard 8-bit lookup.
// This matches the checksum scheme used by metadata predating
// metadata_csum (e.g. some group-descriptor and directory-entry
// checksums).
func WeakChecksum32(b []byte, initial uint32) uint32 {
	checksum := initial
	for _, c := range b {
		checksum = table[(checksum^uint32(c))&0x0f] ^ (checksum >> 4)
		checksum = table[(checksum^uint32(c>>4))&0x0f] ^ (checksum >> 4)
	}
	return checksum
}
