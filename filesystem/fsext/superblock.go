package fsext

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	superblockOffset int64 = 1024
	superblockSize         = 1024
	superblockMagic  uint16 = 0xef53

	minBlockLogSize = 0  // block size 1024 << 0
	maxBlockLogSize = 6  // block size 1024 << 6 == 65536
)

// formatVersion is the ext2/ext3/ext4 generation derived from the
// superblock's feature flags, per spec.md §2/§3.
type formatVersion int

const (
	formatExt2 formatVersion = 2
	formatExt3 formatVersion = 3
	formatExt4 formatVersion = 4
)

// compat/incompat/ro-compat feature bits, per the Linux ext4 on-disk
// format (include/linux/ext4.h in the kernel source tree).
const (
	compatDirPrealloc  uint32 = 0x1
	compatImagicInodes uint32 = 0x2
	compatHasJournal   uint32 = 0x4
	compatExtAttr      uint32 = 0x8
	compatResizeInode  uint32 = 0x10
	compatDirIndex     uint32 = 0x20
	compatSparseSuper2 uint32 = 0x200

	incompatCompression uint32 = 0x1
	incompatFiletype    uint32 = 0x2
	incompatRecover     uint32 = 0x4
	incompatJournalDev  uint32 = 0x8
	incompatMetaBG      uint32 = 0x10
	incompatExtents     uint32 = 0x40
	incompat64Bit       uint32 = 0x80
	incompatMMP         uint32 = 0x100
	incompatFlexBG      uint32 = 0x200
	incompatEAInode     uint32 = 0x400
	incompatDirdata     uint32 = 0x1000
	incompatCsumSeed    uint32 = 0x2000
	incompatLargeDir    uint32 = 0x4000
	incompatInlineData  uint32 = 0x8000
	incompatEncrypt     uint32 = 0x10000
	incompatCasefold    uint32 = 0x20000

	// knownIncompat is the set of incompatible features this core
	// understands. Anything else makes the volume Unsupported, per
	// spec.md §4.1.
	knownIncompat = incompatFiletype | incompatExtents | incompat64Bit |
		incompatFlexBG | incompatMetaBG | incompatRecover |
		incompatJournalDev | incompatInlineData

	roCompatSparseSuper  uint32 = 0x1
	roCompatLargeFile    uint32 = 0x2
	roCompatBTreeDir     uint32 = 0x4
	roCompatHugeFile      uint32 = 0x8
	roCompatGDTCsum      uint32 = 0x10
	roCompatDirNlink     uint32 = 0x20
	roCompatExtraIsize   uint32 = 0x40
	roCompatQuota        uint32 = 0x100
	roCompatBigalloc     uint32 = 0x200
	roCompatMetadataCsum uint32 = 0x400
	roCompatReadonly     uint32 = 0x1000
	roCompatProject      uint32 = 0x2000
	roCompatVerity       uint32 = 0x8000
	roCompatOrphanFile   uint32 = 0x10000

	// knownROCompat is the set of read-only-compatible features this
	// core understands well enough to still read the volume safely.
	knownROCompat = roCompatSparseSuper | roCompatLargeFile | roCompatBTreeDir |
		roCompatHugeFile | roCompatGDTCsum | roCompatDirNlink |
		roCompatExtraIsize | roCompatQuota | roCompatBigalloc |
		roCompatMetadataCsum | roCompatReadonly | roCompatProject |
		roCompatVerity | roCompatOrphanFile
)

// superblockFeatures holds the decoded, named view of the three feature
// bitmaps, mirroring how the teacher's ext4 superblock exposes a
// "features" sub-struct rather than raw bitmasks to callers.
type superblockFeatures struct {
	// compat
	hasJournal             bool
	extendedAttributes     bool
	resizeInode            bool
	directoryIndices       bool
	sparseSuperblock2      bool
	// incompat
	directoryEntriesRecordFileType bool
	extents                        bool
	sixtyFourBit                   bool
	flexBlockGroups                bool
	metaBlockGroups                bool
	needsRecovery                  bool
	separateJournalDevice          bool
	inlineData                     bool
	// ro-compat
	sparseSuperblock                bool
	largeFile                       bool
	hugeFile                        bool
	gdtChecksums                    bool
	largeSubdirectoryCount          bool
	largeInodes                     bool
	quota                           bool
	bigalloc                        bool
	metadataChecksums               bool
	metadataChecksumSeedInSuperblock bool
}

// superblock is the parsed 1024-byte superblock, per spec.md §3/§4.1.
type superblock struct {
	inodeCount            uint32
	blockCount            uint64
	reservedBlocks        uint64
	freeBlocks            uint64
	freeInodes            uint32
	firstDataBlock        uint32
	logBlockSize          uint32
	blockSize             uint32
	blocksPerGroup        uint32
	inodesPerGroup        uint32
	mountTime             time.Time
	writeTime             time.Time
	mountCount            uint16
	maxMountCount         uint16
	filesystemState       uint16
	errorBehaviour        uint16
	minorRevisionLevel    uint16
	lastCheck             time.Time
	checkInterval         uint32
	creatorOS             uint32
	revisionLevel         uint32
	reservedBlocksDefaultUID uint16
	reservedBlocksDefaultGID uint16
	firstNonReservedInode uint32
	inodeSize             uint16
	blockGroupNumberOfThisCopy uint16
	featureCompat         uint32
	featureIncompat       uint32
	featureROCompat       uint32
	features              superblockFeatures
	uuid                  uuid.UUID
	volumeLabel           string
	lastMountedDirectory  string
	reservedGDTBlocks     uint16
	journalUUID           uuid.UUID
	journalInode          uint32
	journalDevice         uint32
	lastOrphanInode       uint32
	hashSeed              [4]uint32
	hashVersion           uint8
	groupDescriptorSize   uint16
	checksumSeed          uint32
	checksumSeedPresent   bool
	mkfsTime              time.Time
	format                formatVersion
}

// gdtChecksumType reports which of the two group-descriptor checksum
// schemes is in effect: metadata_csum (strong CRC-32c/CRC-32) supersedes
// the older GDT_CSUM ("weak" crc16/uninit_bg) scheme when both bits are
// set, mirroring the kernel's own precedence.
type gdtChecksumType int

const (
	gdtChecksumNone gdtChecksumType = iota
	gdtChecksumWeak
	gdtChecksumMetadata
)

func (sb *superblock) gdtChecksumType() gdtChecksumType {
	switch {
	case sb.features.metadataChecksums:
		return gdtChecksumMetadata
	case sb.features.gdtChecksums:
		return gdtChecksumWeak
	default:
		return gdtChecksumNone
	}
}

var allowedBlockSizes = map[uint32]bool{
	1024: true, 2048: true, 4096: true, 8192: true,
	16384: true, 32768: true, 65536: true,
}

// superblockFromBytes decodes the 1024-byte superblock buffer b, which
// must have been read from byte offset volumeOffset+1024 of the source.
func superblockFromBytes(b []byte) (*superblock, error) {
	if len(b) < superblockSize {
		return nil, newErr("superblockFromBytes", CorruptFormat,
			fmt.Errorf("superblock buffer too short: %d bytes", len(b)))
	}

	magic := binary.LittleEndian.Uint16(b[0x38:0x3a])
	if magic != superblockMagic {
		return nil, newErr("superblockFromBytes", CorruptFormat,
			fmt.Errorf("bad superblock magic %#04x, want %#04x", magic, superblockMagic))
	}

	sb := &superblock{}
	sb.inodeCount = binary.LittleEndian.Uint32(b[0x00:0x04])
	blocksLo := binary.LittleEndian.Uint32(b[0x04:0x08])
	reservedLo := binary.LittleEndian.Uint32(b[0x08:0x0c])
	freeBlocksLo := binary.LittleEndian.Uint32(b[0x0c:0x10])
	sb.freeInodes = binary.LittleEndian.Uint32(b[0x10:0x14])
	sb.firstDataBlock = binary.LittleEndian.Uint32(b[0x14:0x18])
	sb.logBlockSize = binary.LittleEndian.Uint32(b[0x18:0x1c])
	sb.blocksPerGroup = binary.LittleEndian.Uint32(b[0x20:0x24])
	sb.inodesPerGroup = binary.LittleEndian.Uint32(b[0x28:0x2c])
	mtime := int64(binary.LittleEndian.Uint32(b[0x2c:0x30]))
	wtime := int64(binary.LittleEndian.Uint32(b[0x30:0x34]))
	sb.mountCount = binary.LittleEndian.Uint16(b[0x34:0x36])
	sb.maxMountCount = binary.LittleEndian.Uint16(b[0x36:0x38])
	sb.filesystemState = binary.LittleEndian.Uint16(b[0x3a:0x3c])
	sb.errorBehaviour = binary.LittleEndian.Uint16(b[0x3c:0x3e])
	sb.minorRevisionLevel = binary.LittleEndian.Uint16(b[0x3e:0x40])
	lastCheck := int64(binary.LittleEndian.Uint32(b[0x40:0x44]))
	sb.checkInterval = binary.LittleEndian.Uint32(b[0x44:0x48])
	sb.creatorOS = binary.LittleEndian.Uint32(b[0x48:0x4c])
	sb.revisionLevel = binary.LittleEndian.Uint32(b[0x4c:0x50])
	sb.reservedBlocksDefaultUID = binary.LittleEndian.Uint16(b[0x50:0x52])
	sb.reservedBlocksDefaultGID = binary.LittleEndian.Uint16(b[0x52:0x54])

	if sb.revisionLevel == 0 {
		// EXT2_GOOD_OLD_REV: no dynamic fields, fixed 128-byte inodes,
		// first non-reserved inode is always 11.
		sb.firstNonReservedInode = 11
		sb.inodeSize = 128
	} else {
		sb.firstNonReservedInode = binary.LittleEndian.Uint32(b[0x54:0x58])
		sb.inodeSize = binary.LittleEndian.Uint16(b[0x58:0x5a])
		sb.blockGroupNumberOfThisCopy = binary.LittleEndian.Uint16(b[0x5a:0x5c])
		sb.featureCompat = binary.LittleEndian.Uint32(b[0x5c:0x60])
		sb.featureIncompat = binary.LittleEndian.Uint32(b[0x60:0x64])
		sb.featureROCompat = binary.LittleEndian.Uint32(b[0x64:0x68])
	}

	if u, err := uuid.FromBytes(b[0x68:0x78]); err == nil {
		sb.uuid = u
	}
	sb.volumeLabel = cString(b[0x78:0x88])
	sb.lastMountedDirectory = cString(b[0x88:0xc8])

	sb.reservedGDTBlocks = binary.LittleEndian.Uint16(b[0xce:0xd0])
	if ju, err := uuid.FromBytes(b[0xd0:0xe0]); err == nil {
		sb.journalUUID = ju
	}
	sb.journalInode = binary.LittleEndian.Uint32(b[0xe0:0xe4])
	sb.journalDevice = binary.LittleEndian.Uint32(b[0xe4:0xe8])
	sb.lastOrphanInode = binary.LittleEndian.Uint32(b[0xe8:0xec])
	for i := 0; i < 4; i++ {
		sb.hashSeed[i] = binary.LittleEndian.Uint32(b[0xec+4*i : 0xf0+4*i])
	}
	sb.hashVersion = b[0xfc]

	descSize := uint16(32)
	if len(b) >= 0x100 {
		if ds := binary.LittleEndian.Uint16(b[0xfe:0x100]); ds != 0 {
			descSize = ds
		}
	}
	sb.groupDescriptorSize = descSize

	var mkfsTime int64
	if len(b) >= 0x10c {
		mkfsTime = int64(binary.LittleEndian.Uint32(b[0x108:0x10c]))
	}

	var blocksHi, reservedHi, freeBlocksHi uint32
	if len(b) >= 0x160 {
		blocksHi = binary.LittleEndian.Uint32(b[0x150:0x154])
		reservedHi = binary.LittleEndian.Uint32(b[0x154:0x158])
		freeBlocksHi = binary.LittleEndian.Uint32(b[0x158:0x15c])
	}

	var checksumSeed uint32
	var checksumSeedPresent bool
	var mtimeHi, wtimeHi, mkfsTimeHi, lastCheckHi byte
	if len(b) >= 0x274 {
		checksumSeed = binary.LittleEndian.Uint32(b[0x270:0x274])
		checksumSeedPresent = true
		wtimeHi = b[0x274]
		mtimeHi = b[0x275]
		mkfsTimeHi = b[0x276]
		lastCheckHi = b[0x277]
	}
	_ = mtimeHi // widened below

	sb.blockCount = uint64(blocksHi)<<32 | uint64(blocksLo)
	sb.reservedBlocks = uint64(reservedHi)<<32 | uint64(reservedLo)
	sb.freeBlocks = uint64(freeBlocksHi)<<32 | uint64(freeBlocksLo)

	widen := func(seconds int64, hi byte) time.Time {
		return posixTime(seconds+(int64(hi)<<32), 0)
	}
	sb.mountTime = widen(mtime, mtimeHi)
	sb.writeTime = widen(wtime, wtimeHi)
	sb.lastCheck = widen(lastCheck, lastCheckHi)
	sb.mkfsTime = widen(mkfsTime, mkfsTimeHi)
	sb.checksumSeed = checksumSeed
	sb.checksumSeedPresent = checksumSeedPresent

	sb.features = decodeFeatures(sb.featureCompat, sb.featureIncompat, sb.featureROCompat)

	if sb.featureIncompat&^knownIncompat != 0 {
		return nil, newErr("superblockFromBytes", Unsupported,
			fmt.Errorf("unknown incompatible feature bits %#x", sb.featureIncompat&^knownIncompat))
	}
	if sb.featureROCompat&^knownROCompat != 0 {
		return nil, newErr("superblockFromBytes", Unsupported,
			fmt.Errorf("unknown read-only-compatible feature bits %#x", sb.featureROCompat&^knownROCompat))
	}

	switch {
	case !sb.features.hasJournal:
		sb.format = formatExt2
	case !sb.features.extents:
		sb.format = formatExt3
	default:
		sb.format = formatExt4
	}

	sb.blockSize = 1024 << sb.logBlockSize
	if !allowedBlockSizes[sb.blockSize] {
		return nil, newErr("superblockFromBytes", CorruptFormat,
			fmt.Errorf("invalid block size %d", sb.blockSize))
	}

	if sb.revisionLevel == 0 {
		sb.inodeSize = 128
	}
	if sb.inodeSize < 128 || sb.inodeSize > uint16(sb.blockSize) || sb.inodeSize&(sb.inodeSize-1) != 0 {
		return nil, newErr("superblockFromBytes", CorruptFormat,
			fmt.Errorf("invalid inode size %d", sb.inodeSize))
	}

	return sb, nil
}

func decodeFeatures(compat, incompat, roCompat uint32) superblockFeatures {
	return superblockFeatures{
		hasJournal:                       compat&compatHasJournal != 0,
		extendedAttributes:               compat&compatExtAttr != 0,
		resizeInode:                      compat&compatResizeInode != 0,
		directoryIndices:                 compat&compatDirIndex != 0,
		sparseSuperblock2:                compat&compatSparseSuper2 != 0,
		directoryEntriesRecordFileType:   incompat&incompatFiletype != 0,
		extents:                          incompat&incompatExtents != 0,
		sixtyFourBit:                     incompat&incompat64Bit != 0,
		flexBlockGroups:                  incompat&incompatFlexBG != 0,
		metaBlockGroups:                  incompat&incompatMetaBG != 0,
		needsRecovery:                    incompat&incompatRecover != 0,
		separateJournalDevice:            incompat&incompatJournalDev != 0,
		inlineData:                       incompat&incompatInlineData != 0,
		sparseSuperblock:                 roCompat&roCompatSparseSuper != 0,
		largeFile:                        roCompat&roCompatLargeFile != 0,
		hugeFile:                         roCompat&roCompatHugeFile != 0,
		gdtChecksums:                     roCompat&roCompatGDTCsum != 0,
		largeSubdirectoryCount:           roCompat&roCompatDirNlink != 0,
		largeInodes:                      roCompat&roCompatExtraIsize != 0,
		quota:                            roCompat&roCompatQuota != 0,
		bigalloc:                         roCompat&roCompatBigalloc != 0,
		metadataChecksums:                roCompat&roCompatMetadataCsum != 0,
		metadataChecksumSeedInSuperblock: incompat&incompatCsumSeed != 0,
	}
}

// numberOfGroups is the number of block groups the volume is divided
// into, per spec.md §4.2.
func (sb *superblock) numberOfGroups() uint64 {
	if sb.blocksPerGroup == 0 {
		return 0
	}
	n := sb.blockCount / uint64(sb.blocksPerGroup)
	if sb.blockCount%uint64(sb.blocksPerGroup) != 0 {
		n++
	}
	return n
}

// utf8Length / utf16Length satisfy spec.md §4.1's "expose size
// functions that give UTF-8 or UTF-16 length excluding terminator".
func utf8Length(s string) int { return len(s) }

func utf16Length(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xffff {
			n += 2
		} else {
			n++
		}
	}
	return n
}
