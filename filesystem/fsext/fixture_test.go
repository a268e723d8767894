package fsext

import "encoding/binary"

// le16/le32 write little-endian integers into b at off, matching the
// on-disk byte order every structure in this package decodes.
func le16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:off+2], v) }
func le32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:off+4], v) }
func le64(b []byte, off int, v uint64) { binary.LittleEndian.PutUint64(b[off:off+8], v) }

// buildSuperblock returns a 1024-byte superblock buffer for a small
// single-group ext4 volume: blockSize bytes per block, one block
// group holding inodesPerGroup inodes and blocksPerGroup blocks.
func buildSuperblock(blockSize uint32, blocksPerGroup, inodesPerGroup, blockCount, inodeCount uint32) []byte {
	b := make([]byte, superblockSize)
	le32(b, 0x00, inodeCount)
	le32(b, 0x04, blockCount)
	le32(b, 0x08, 0)    // reserved blocks
	le32(b, 0x0c, 100)  // free blocks
	le32(b, 0x10, 100)  // free inodes
	le32(b, 0x14, 0)    // first data block (0 for block size > 1024)
	logSize := uint32(0)
	for (1024 << logSize) < blockSize {
		logSize++
	}
	le32(b, 0x18, logSize)
	le32(b, 0x20, blocksPerGroup)
	le32(b, 0x28, inodesPerGroup)
	le32(b, 0x2c, 1700000000) // mtime
	le32(b, 0x30, 1700000000) // wtime
	le16(b, 0x34, 1)          // mount count
	le16(b, 0x36, 20)         // max mount count
	le16(b, 0x38, superblockMagic)
	le16(b, 0x3a, 1) // state: clean
	le16(b, 0x3c, 1) // errors: continue
	le32(b, 0x4c, 1) // revision level: dynamic
	le32(b, 0x54, 11) // first non-reserved inode
	le16(b, 0x58, 256) // inode size
	le32(b, 0x5c, compatHasJournal|compatExtAttr)
	le32(b, 0x60, incompatFiletype|incompatExtents|incompatInlineData)
	le32(b, 0x64, roCompatSparseSuper|roCompatExtraIsize)
	for i, c := range []byte("fsext-fixture\x00") {
		if 0x78+i < 0x88 {
			b[0x78+i] = c
		}
	}
	return b
}

func buildGroupDescriptor(inodeTableBlock uint64, freeBlocks, freeInodes uint32) []byte {
	b := make([]byte, 32)
	le32(b, 0x00, 0) // block bitmap, unused by this core
	le32(b, 0x04, 0) // inode bitmap, unused by this core
	le32(b, 0x08, uint32(inodeTableBlock))
	le16(b, 0x0c, uint16(freeBlocks))
	le16(b, 0x0e, uint16(freeInodes))
	le16(b, 0x10, 1) // used directories
	return b
}

const fixtureInodeSize = 256

// buildInode returns a fixtureInodeSize-byte inode record with the
// given mode, size, and link count; extents/dataBlock must be filled
// in by the caller afterward.
func buildInode(mode uint16, sizeBytes uint64, links uint16, flags uint32) []byte {
	b := make([]byte, fixtureInodeSize)
	le16(b, 0x00, mode)
	le32(b, 0x04, uint32(sizeBytes))
	le32(b, 0x08, 1700000000) // atime
	le32(b, 0x0c, 1700000000) // ctime
	le32(b, 0x10, 1700000000) // mtime
	le16(b, 0x1a, links)
	le32(b, 0x1c, uint32((sizeBytes+511)/512))
	le32(b, 0x20, flags)
	le16(b, 0x80, 32) // extra_isize
	return b
}

func setExtentRoot(b []byte, entries []extentFixtureEntry) {
	le16(b, 0x28+0, extentHeaderMagic)
	le16(b, 0x28+2, uint16(len(entries)))
	le16(b, 0x28+4, 4) // max entries in a 60-byte root node
	le16(b, 0x28+6, 0) // depth 0: leaf
	for i, e := range entries {
		rec := 0x28 + extentHeaderSize + i*extentRecordSize
		le32(b, rec+0, uint32(e.logical))
		le16(b, rec+4, uint16(e.length))
		le16(b, rec+6, uint16(e.physical>>32))
		le32(b, rec+8, uint32(e.physical))
	}
}

type extentFixtureEntry struct {
	logical, length, physical uint64
}

func setIndirectBlocks(b []byte, direct []uint32) {
	for i, blk := range direct {
		if i >= directBlockCount {
			break
		}
		le32(b, 0x28+4*i, blk)
	}
}

func appendDirEntry(block []byte, off int, inode uint32, name string, fileTypeByte uint8) int {
	recLen := 8 + len(name)
	recLen = (recLen + 3) &^ 3
	le32(block, off, inode)
	le16(block, off+4, uint16(recLen))
	block[off+6] = uint8(len(name))
	block[off+7] = fileTypeByte
	copy(block[off+8:], name)
	return off + recLen
}
