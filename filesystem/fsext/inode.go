package fsext

import (
	"encoding/binary"
	"fmt"
)

// fileType is the subset of S_IFMT that spec.md §4.4 distinguishes.
type fileType uint16

const (
	fileTypeFIFO    fileType = 0x1000
	fileTypeChar    fileType = 0x2000
	fileTypeDir     fileType = 0x4000
	fileTypeBlock   fileType = 0x6000
	fileTypeRegular fileType = 0x8000
	fileTypeSymlink fileType = 0xa000
	fileTypeSocket  fileType = 0xc000

	modeFormatMask fileType = 0xf000
	modePermMask   uint16   = 0x0fff
)

func (t fileType) String() string {
	switch t {
	case fileTypeFIFO:
		return "fifo"
	case fileTypeChar:
		return "character device"
	case fileTypeDir:
		return "directory"
	case fileTypeBlock:
		return "block device"
	case fileTypeRegular:
		return "regular"
	case fileTypeSymlink:
		return "symlink"
	case fileTypeSocket:
		return "socket"
	default:
		return "unknown"
	}
}

// inode flag bits used by this core, per spec.md §4.4.
const (
	inodeFlagIndexed      uint32 = 0x1000
	inodeFlagImmutable    uint32 = 0x10
	inodeFlagAppend       uint32 = 0x20
	inodeFlagNoDump       uint32 = 0x40
	inodeFlagNoAtime      uint32 = 0x80
	inodeFlagHugeFile     uint32 = 0x40000
	inodeFlagExtents      uint32 = 0x80000
	inodeFlagEAInode      uint32 = 0x200000
	inodeFlagEofBlocks    uint32 = 0x400000
	inodeFlagInlineData   uint32 = 0x10000000
	inodeFlagInconsistent uint32 = 0x00100000
)

type inodeFlags struct {
	indexed      bool // htree-indexed directory
	immutable    bool
	append       bool
	noDump       bool
	noAtime      bool
	hugeFile     bool
	usesExtents  bool
	isEAInode    bool
	eofBlocks    bool
	hasInlineData bool
}

func parseInodeFlags(raw uint32) inodeFlags {
	return inodeFlags{
		indexed:       raw&inodeFlagIndexed != 0,
		immutable:     raw&inodeFlagImmutable != 0,
		append:        raw&inodeFlagAppend != 0,
		noDump:        raw&inodeFlagNoDump != 0,
		noAtime:       raw&inodeFlagNoAtime != 0,
		hugeFile:      raw&inodeFlagHugeFile != 0,
		usesExtents:   raw&inodeFlagExtents != 0,
		isEAInode:     raw&inodeFlagEAInode != 0,
		eofBlocks:     raw&inodeFlagEofBlocks != 0,
		hasInlineData: raw&inodeFlagInlineData != 0,
	}
}

// dataReferenceKind names which of the three ways an inode can point at
// its content applies, per spec.md §4.4/§4.6/§4.7.
type dataReferenceKind int

const (
	dataReferenceIndirect dataReferenceKind = iota
	dataReferenceExtents
	dataReferenceInline
	dataReferenceDevice
	dataReferenceFastSymlink
)

// inode is the parsed on-disk inode, common to the 128-byte classic
// layout and the larger ext4 layout carrying nanosecond timestamps,
// a creation time, and a project id.
type inode struct {
	number uint32

	mode        uint16
	fileType    fileType
	permissions uint16

	uid uint32
	gid uint32

	sizeBytes uint64
	links     uint16
	blocks512 uint64 // i_blocks, in 512-byte sectors

	flagsRaw uint32
	flags    inodeFlags

	accessTime     int64
	accessTimeNsec int64
	changeTime     int64
	changeTimeNsec int64
	modifyTime     int64
	modifyTimeNsec int64
	deletionTime   int64
	creationTime   int64
	creationTimeNsec int64
	creationTimePresent bool

	generation uint32
	fileACL    uint64
	checksum   uint32

	projectID uint32

	dataKind   dataReferenceKind
	dataBlock  [60]byte // raw i_block area, interpreted per dataKind
	deviceNumber uint32 // valid when dataKind == dataReferenceDevice

	// isEmpty is set when every byte of the inode record is zero. Such
	// a record is not parsed further: all other fields are left at
	// their zero values, per spec.md §3.
	isEmpty bool
}

const (
	classicInodeSize = 128
)

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// inodeFromBytes decodes one inode record. b must hold exactly
// inodeSize bytes, the size the superblock names. largeFile mirrors
// the superblock's RO_COMPAT_LARGE_FILE bit: only when it is set does
// a regular file's high size word (i_size_high, overlapping
// i_dir_acl) carry meaning, per spec.md §4.4.
func inodeFromBytes(number uint32, b []byte, inodeSize uint16, largeFile bool) (*inode, error) {
	if len(b) < classicInodeSize || uint16(len(b)) < inodeSize {
		return nil, newErr("inodeFromBytes", CorruptFormat,
			fmt.Errorf("inode %d record too short: %d bytes", number, len(b)))
	}

	if allZero(b[:inodeSize]) {
		return &inode{number: number, isEmpty: true}, nil
	}

	in := &inode{number: number}
	in.mode = binary.LittleEndian.Uint16(b[0x00:0x02])
	in.fileType = fileType(in.mode) & modeFormatMask
	in.permissions = in.mode & modePermMask

	uidLo := binary.LittleEndian.Uint16(b[0x02:0x04])
	sizeLo := binary.LittleEndian.Uint32(b[0x04:0x08])
	atime := int32(binary.LittleEndian.Uint32(b[0x08:0x0c]))
	ctime := int32(binary.LittleEndian.Uint32(b[0x0c:0x10]))
	mtime := int32(binary.LittleEndian.Uint32(b[0x10:0x14]))
	dtime := int32(binary.LittleEndian.Uint32(b[0x14:0x18]))
	gidLo := binary.LittleEndian.Uint16(b[0x18:0x1a])
	in.links = binary.LittleEndian.Uint16(b[0x1a:0x1c])
	blocksLo := binary.LittleEndian.Uint32(b[0x1c:0x20])
	in.flagsRaw = binary.LittleEndian.Uint32(b[0x20:0x24])
	in.flags = parseInodeFlags(in.flagsRaw)

	copy(in.dataBlock[:], b[0x28:0x64])

	in.generation = binary.LittleEndian.Uint32(b[0x64:0x68])
	fileACLLo := binary.LittleEndian.Uint32(b[0x68:0x6c])
	sizeHi := binary.LittleEndian.Uint32(b[0x6c:0x70])

	blocksHi := uint16(0)
	fileACLHi := uint16(0)
	uidHi := uint16(0)
	gidHi := uint16(0)
	checksumLo := uint16(0)
	if len(b) >= 0x80 {
		blocksHi = binary.LittleEndian.Uint16(b[0x74:0x76])
		fileACLHi = binary.LittleEndian.Uint16(b[0x76:0x78])
		uidHi = binary.LittleEndian.Uint16(b[0x78:0x7a])
		gidHi = binary.LittleEndian.Uint16(b[0x7a:0x7c])
		checksumLo = binary.LittleEndian.Uint16(b[0x7c:0x7e])
	}

	in.uid = uint32(uidHi)<<16 | uint32(uidLo)
	in.gid = uint32(gidHi)<<16 | uint32(gidLo)
	in.blocks512 = uint64(blocksHi)<<32 | uint64(blocksLo)
	in.fileACL = uint64(fileACLHi)<<32 | uint64(fileACLLo)

	if in.fileType == fileTypeRegular && largeFile {
		in.sizeBytes = uint64(sizeHi)<<32 | uint64(sizeLo)
	} else {
		// directories/symlinks/devices store only the low 32 bits; the
		// high word is an overlapping i_dir_acl for these types. A
		// regular file on a volume without RO_COMPAT_LARGE_FILE also
		// has no meaningful high word.
		in.sizeBytes = uint64(sizeLo)
	}

	checksumHi := uint16(0)
	var ctimeExtra, mtimeExtra, atimeExtra, crtime, crtimeExtra uint32
	extraIsize := uint16(0)
	if inodeSize > classicInodeSize && len(b) >= 0x84 {
		extraIsize = binary.LittleEndian.Uint16(b[0x80:0x82])
		checksumHi = binary.LittleEndian.Uint16(b[0x82:0x84])
		end := int(classicInodeSize) + int(extraIsize)
		if end > len(b) {
			end = len(b)
		}
		if end >= 0x88 {
			ctimeExtra = binary.LittleEndian.Uint32(b[0x84:0x88])
		}
		if end >= 0x8c {
			mtimeExtra = binary.LittleEndian.Uint32(b[0x88:0x8c])
		}
		if end >= 0x90 {
			atimeExtra = binary.LittleEndian.Uint32(b[0x8c:0x90])
		}
		if end >= 0x94 {
			crtime = binary.LittleEndian.Uint32(b[0x90:0x94])
			in.creationTimePresent = true
		}
		if end >= 0x98 {
			crtimeExtra = binary.LittleEndian.Uint32(b[0x94:0x98])
		}
		if end >= 0xa0 {
			in.projectID = binary.LittleEndian.Uint32(b[0x9c:0xa0])
		}
	}

	in.checksum = uint32(checksumHi)<<16 | uint32(checksumLo)

	in.accessTime, in.accessTimeNsec = decodeExtraTimestamp(atime, atimeExtra)
	in.changeTime, in.changeTimeNsec = decodeExtraTimestamp(ctime, ctimeExtra)
	in.modifyTime, in.modifyTimeNsec = decodeExtraTimestamp(mtime, mtimeExtra)
	in.deletionTime = int64(dtime)
	if in.creationTimePresent {
		in.creationTime, in.creationTimeNsec = decodeExtraTimestamp(int32(crtime), crtimeExtra)
	}

	in.dataKind = classifyDataReference(in)
	if in.dataKind == dataReferenceDevice {
		old := binary.LittleEndian.Uint32(in.dataBlock[0:4])
		if old != 0 {
			in.deviceNumber = old
		} else {
			in.deviceNumber = binary.LittleEndian.Uint32(in.dataBlock[4:8])
		}
	}

	return in, nil
}

// classifyDataReference decides, per spec.md §4.4, which of inline
// data / extent tree / indirect block map / device number / fast
// symlink this inode's i_block area holds.
func classifyDataReference(in *inode) dataReferenceKind {
	switch in.fileType {
	case fileTypeChar, fileTypeBlock, fileTypeFIFO, fileTypeSocket:
		return dataReferenceDevice
	case fileTypeSymlink:
		if in.blocks512 == 0 && in.sizeBytes > 0 && in.sizeBytes < 60 {
			return dataReferenceFastSymlink
		}
	}
	if in.flags.hasInlineData {
		return dataReferenceInline
	}
	if in.flags.usesExtents {
		return dataReferenceExtents
	}
	return dataReferenceIndirect
}

func (in *inode) isDirectory() bool { return in.fileType == fileTypeDir }
func (in *inode) isRegular() bool   { return in.fileType == fileTypeRegular }
func (in *inode) isSymlink() bool   { return in.fileType == fileTypeSymlink }
