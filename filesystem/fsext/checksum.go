package fsext

import (
	"encoding/binary"

	"github.com/libyal/libfsext-sub001/filesystem/fsext/crc"
)

// verifySuperblockChecksum checks the superblock's self-checksum when
// the metadata_csum read-only-compatible feature is set. A mismatch is
// logged rather than treated as fatal: this core favors surfacing as
// much of a damaged volume as it safely can over refusing to open it,
// per spec.md §4.1's error-handling guidance.
func (vol *Volume) verifySuperblockChecksum(raw []byte) {
	if !vol.sb.features.metadataChecksums {
		return
	}
	if len(raw) < superblockSize {
		return
	}
	stored := binary.LittleEndian.Uint32(raw[0x3fc:0x400])
	computed := crc.Checksum32(raw[:0x3fc], 0xffffffff^0xffffffff)
	if computed != stored {
		warnw(vol.logger, "superblock checksum mismatch", "stored", stored, "computed", computed)
	}
}

// verifyGroupDescriptorChecksum checks one group descriptor's checksum
// against the scheme selected by the superblock's feature flags,
// logging a warning on mismatch rather than failing the open.
func (vol *Volume) verifyGroupDescriptorChecksum(gd groupDescriptor, raw []byte) {
	switch vol.sb.gdtChecksumType() {
	case gdtChecksumNone:
		return
	case gdtChecksumWeak:
		seed := crc.WeakChecksum32(vol.sb.uuid[:], 0xffffffff)
		numberBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(numberBytes, uint32(gd.number))
		seed = crc.WeakChecksum32(numberBytes, seed)
		computed := uint16(crc.WeakChecksum32(raw, seed) & 0xffff)
		if computed != gd.checksum {
			warnw(vol.logger, "group descriptor checksum mismatch (weak)",
				"group", gd.number, "stored", gd.checksum, "computed", computed)
		}
	case gdtChecksumMetadata:
		seed := vol.sb.checksumSeed
		if !vol.sb.checksumSeedPresent {
			seed = crc.Checksum32(vol.sb.uuid[:], 0xffffffff)
		}
		numberBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(numberBytes, uint32(gd.number))
		seed = crc.Checksum32(numberBytes, seed)
		computed := uint16(crc.Checksum32(raw, seed) & 0xffff)
		if computed != gd.checksum {
			warnw(vol.logger, "group descriptor checksum mismatch (metadata_csum)",
				"group", gd.number, "stored", gd.checksum, "computed", computed)
		}
	}
}
