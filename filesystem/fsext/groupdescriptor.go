package fsext

import (
	"encoding/binary"
	"fmt"
)

// groupDescriptorFlags are the per-group lazy-initialization bits from
// the descriptor's bg_flags field at offset 0x12, present in both the
// 32-byte and the 64-byte forms, per spec.md §4.2.
type groupDescriptorFlags struct {
	inodeTableZeroed          bool
	inodesUninitialized       bool
	blockBitmapUninitialized  bool
}

// groupDescriptor is one block group's descriptor, decoded from either
// the 32-byte classic form or the 64-byte form used when the 64BIT
// incompatible feature is set.
type groupDescriptor struct {
	number uint64

	blockBitmapLocation uint64
	blockBitmapChecksum uint32
	inodeBitmapLocation uint64
	inodeBitmapChecksum uint32
	inodeTableLocation  uint64

	freeBlocks       uint32
	freeInodes       uint32
	usedDirectories  uint32
	unusedInodes     uint32

	flags    groupDescriptorFlags
	checksum uint16
}

const (
	gdtFlagInodeUninit   uint16 = 0x1
	gdtFlagBlockUninit   uint16 = 0x2
	gdtFlagInodeZeroed   uint16 = 0x4
)

// groupDescriptorsFromBytes decodes count group descriptors out of b,
// which must hold count*descSize bytes read starting at the block
// immediately following the superblock's block. descSize is 32 unless
// the volume has the 64BIT incompatible feature and the superblock's
// group_descriptor_size field names a larger size.
func groupDescriptorsFromBytes(b []byte, count uint64, descSize uint16) ([]groupDescriptor, error) {
	if descSize < 32 {
		descSize = 32
	}
	need := uint64(descSize) * count
	if uint64(len(b)) < need {
		return nil, newErr("groupDescriptorsFromBytes", CorruptFormat,
			fmt.Errorf("group descriptor table truncated: need %d bytes, have %d", need, len(b)))
	}

	out := make([]groupDescriptor, count)
	for i := uint64(0); i < count; i++ {
		rec := b[uint64(descSize)*i : uint64(descSize)*(i+1)]
		gd, err := groupDescriptorFromBytes(rec, descSize)
		if err != nil {
			return nil, err
		}
		gd.number = i
		out[i] = gd
	}
	return out, nil
}

func groupDescriptorFromBytes(b []byte, descSize uint16) (groupDescriptor, error) {
	if len(b) < 32 {
		return groupDescriptor{}, newErr("groupDescriptorFromBytes", CorruptFormat,
			fmt.Errorf("group descriptor record too short: %d bytes", len(b)))
	}

	var gd groupDescriptor
	blockBitmapLo := binary.LittleEndian.Uint32(b[0x00:0x04])
	inodeBitmapLo := binary.LittleEndian.Uint32(b[0x04:0x08])
	inodeTableLo := binary.LittleEndian.Uint32(b[0x08:0x0c])
	freeBlocksLo := binary.LittleEndian.Uint16(b[0x0c:0x0e])
	freeInodesLo := binary.LittleEndian.Uint16(b[0x0e:0x10])
	usedDirLo := binary.LittleEndian.Uint16(b[0x10:0x12])
	flags := binary.LittleEndian.Uint16(b[0x12:0x14])

	var blockBitmapChecksumLo, inodeBitmapChecksumLo uint16
	var unusedInodesLo uint16
	var checksum uint16
	if len(b) >= 32 {
		// 0x14:0x18 is bg_exclude_bitmap_lo, unused by this read-only core.
		blockBitmapChecksumLo = binary.LittleEndian.Uint16(b[0x18:0x1a])
		inodeBitmapChecksumLo = binary.LittleEndian.Uint16(b[0x1a:0x1c])
		unusedInodesLo = binary.LittleEndian.Uint16(b[0x1c:0x1e])
		checksum = binary.LittleEndian.Uint16(b[0x1e:0x20])
	}

	var blockBitmapHi, inodeBitmapHi, inodeTableHi uint32
	var freeBlocksHi, freeInodesHi, usedDirHi, unusedInodesHi uint16
	var blockBitmapChecksumHi, inodeBitmapChecksumHi uint16
	if descSize >= 64 && len(b) >= 64 {
		blockBitmapHi = binary.LittleEndian.Uint32(b[0x20:0x24])
		inodeBitmapHi = binary.LittleEndian.Uint32(b[0x24:0x28])
		inodeTableHi = binary.LittleEndian.Uint32(b[0x28:0x2c])
		freeBlocksHi = binary.LittleEndian.Uint16(b[0x2c:0x2e])
		freeInodesHi = binary.LittleEndian.Uint16(b[0x2e:0x30])
		usedDirHi = binary.LittleEndian.Uint16(b[0x30:0x32])
		unusedInodesHi = binary.LittleEndian.Uint16(b[0x32:0x34])
		// 0x34:0x38 is bg_exclude_bitmap_hi, unused by this read-only core.
		blockBitmapChecksumHi = binary.LittleEndian.Uint16(b[0x38:0x3a])
		inodeBitmapChecksumHi = binary.LittleEndian.Uint16(b[0x3a:0x3c])
	}

	gd.blockBitmapLocation = uint64(blockBitmapHi)<<32 | uint64(blockBitmapLo)
	gd.inodeBitmapLocation = uint64(inodeBitmapHi)<<32 | uint64(inodeBitmapLo)
	gd.inodeTableLocation = uint64(inodeTableHi)<<32 | uint64(inodeTableLo)
	gd.freeBlocks = uint32(freeBlocksHi)<<16 | uint32(freeBlocksLo)
	gd.freeInodes = uint32(freeInodesHi)<<16 | uint32(freeInodesLo)
	gd.usedDirectories = uint32(usedDirHi)<<16 | uint32(usedDirLo)
	gd.unusedInodes = uint32(unusedInodesHi)<<16 | uint32(unusedInodesLo)
	gd.blockBitmapChecksum = uint32(blockBitmapChecksumHi)<<16 | uint32(blockBitmapChecksumLo)
	gd.inodeBitmapChecksum = uint32(inodeBitmapChecksumHi)<<16 | uint32(inodeBitmapChecksumLo)
	gd.checksum = checksum

	gd.flags = groupDescriptorFlags{
		inodesUninitialized:      flags&gdtFlagInodeUninit != 0,
		blockBitmapUninitialized: flags&gdtFlagBlockUninit != 0,
		inodeTableZeroed:         flags&gdtFlagInodeZeroed != 0,
	}

	return gd, nil
}
