package fsext

import (
	"fmt"
	"sync"
	"time"

	"github.com/libyal/libfsext-sub001/backend"
)

const defaultInodeCacheSize = 128

// OpenOptions configures Open. The zero value is valid: it opens at
// byte offset zero with the default inode cache size and no logger.
type OpenOptions struct {
	// Offset is the byte offset of the volume within src, for a volume
	// embedded inside a larger disk image or partition table.
	Offset int64

	// InodeCacheSize bounds the inode-table LRU cache. Zero selects
	// the default (128); values below 8 are raised to 8, per
	// spec.md §4.3.
	InodeCacheSize int

	// Logger receives structured diagnostic events. Nil disables
	// logging entirely.
	Logger Logger

	// Clock overrides time.Now for deterministic tests. Nil uses
	// time.Now.
	Clock func() time.Time
}

// Volume is an opened, read-only ext2/ext3/ext4 filesystem. All of its
// methods are safe for concurrent use.
type Volume struct {
	src    backend.Source
	logger Logger
	clock  func() time.Time

	mu   sync.RWMutex
	sb   *superblock
	gdt  []groupDescriptor

	inodes *inodeTable
	abort  abortFlag
}

// Open parses the volume found in src at opts.Offset and validates its
// superblock and group-descriptor table, per spec.md §4.11.
func Open(src backend.Source, opts OpenOptions) (*Volume, error) {
	if src == nil {
		return nil, newErr("Open", InvalidArgument, fmt.Errorf("source must not be nil"))
	}

	base := src
	if opts.Offset != 0 {
		base = backend.WithOffset(src, opts.Offset, 0)
	}

	cacheSize := opts.InodeCacheSize
	if cacheSize == 0 {
		cacheSize = defaultInodeCacheSize
	}

	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	vol := &Volume{
		src:    base,
		logger: opts.Logger,
		clock:  clock,
	}

	if info, err := base.Stat(); err == nil && info != nil && info.Size() < superblockOffset+superblockSize {
		return nil, newErr("Open", CorruptFormat,
			fmt.Errorf("source is %d bytes, too short to hold a superblock", info.Size()))
	}

	sbBuf := make([]byte, superblockSize)
	if _, err := base.ReadAt(sbBuf, superblockOffset); err != nil {
		return nil, newErr("Open", IoFailure, fmt.Errorf("reading superblock: %w", err))
	}
	sb, err := superblockFromBytes(sbBuf)
	if err != nil {
		return nil, err
	}
	vol.sb = sb
	debugw(vol.logger, "parsed superblock", "format", sb.format, "block_size", sb.blockSize,
		"inode_count", sb.inodeCount, "block_count", sb.blockCount)
	vol.verifySuperblockChecksum(sbBuf)

	if err := vol.readGroupDescriptorTable(); err != nil {
		return nil, err
	}

	vol.inodes = newInodeTable(vol, cacheSize)

	if err := vol.validateGeometry(); err != nil {
		return nil, err
	}

	return vol, nil
}

// validateGeometry cross-checks the superblock and group-descriptor
// table against each other, per spec.md §4.11: the table must hold one
// descriptor per group, the groups must have room for every inode,
// every group's inode table must start inside the source, and the
// groups' free-inode counts must not add up to more than the inode
// count. Bitmap locations are not checked.
func (vol *Volume) validateGeometry() error {
	groups := vol.sb.numberOfGroups()
	if uint64(len(vol.gdt)) != groups {
		return newErr("validateGeometry", CorruptFormat,
			fmt.Errorf("group descriptor table has %d entries, expected %d", len(vol.gdt), groups))
	}
	if groups*uint64(vol.sb.inodesPerGroup) < uint64(vol.sb.inodeCount) {
		return newErr("validateGeometry", CorruptFormat,
			fmt.Errorf("%d groups of %d inodes cannot cover %d inodes", groups, vol.sb.inodesPerGroup, vol.sb.inodeCount))
	}

	size, err := vol.sourceSize()
	if err == nil && size > 0 {
		totalBlocks := uint64(size) / uint64(vol.sb.blockSize)
		for _, gd := range vol.gdt {
			if gd.inodeTableLocation != 0 && gd.inodeTableLocation >= totalBlocks {
				return newErr("validateGeometry", CorruptFormat,
					fmt.Errorf("group %d inode table at block %d is past end of volume (%d blocks)",
						gd.number, gd.inodeTableLocation, totalBlocks))
			}
		}
	}

	var freeInodes uint64
	for _, gd := range vol.gdt {
		freeInodes += uint64(gd.freeInodes)
	}
	if freeInodes > uint64(vol.sb.inodeCount) {
		return newErr("validateGeometry", CorruptFormat,
			fmt.Errorf("sum of free inodes across groups (%d) exceeds inode count (%d)", freeInodes, vol.sb.inodeCount))
	}

	return nil
}

func (vol *Volume) sourceSize() (int64, error) {
	info, err := vol.src.Stat()
	if err != nil || info == nil {
		return 0, fmt.Errorf("size unavailable")
	}
	return info.Size(), nil
}

func (vol *Volume) readGroupDescriptorTable() error {
	groups := vol.sb.numberOfGroups()
	if groups == 0 {
		return newErr("readGroupDescriptorTable", CorruptFormat, fmt.Errorf("volume has zero block groups"))
	}

	descSize := vol.sb.groupDescriptorSize
	if !vol.sb.features.sixtyFourBit {
		descSize = 32
	}

	gdtBlock := uint64(1)
	if vol.sb.blockSize > 1024 {
		gdtBlock = 1
	} else {
		gdtBlock = 2
	}
	gdtOffset := gdtBlock * uint64(vol.sb.blockSize)

	need := groups * uint64(descSize)
	buf := make([]byte, need)
	if _, err := vol.src.ReadAt(buf, int64(gdtOffset)); err != nil {
		return newErr("readGroupDescriptorTable", IoFailure, fmt.Errorf("reading group descriptor table: %w", err))
	}

	gdt, err := groupDescriptorsFromBytes(buf, groups, descSize)
	if err != nil {
		return err
	}
	vol.gdt = gdt

	for i, gd := range gdt {
		rec := buf[uint64(i)*uint64(descSize) : uint64(i+1)*uint64(descSize)]
		vol.verifyGroupDescriptorChecksum(gd, rec)
	}

	return nil
}

// readBlock reads one filesystem block by its absolute block number.
func (vol *Volume) readBlock(blockNumber uint64) ([]byte, error) {
	if blockNumber == 0 {
		return make([]byte, vol.sb.blockSize), nil
	}
	buf := make([]byte, vol.sb.blockSize)
	off := int64(blockNumber) * int64(vol.sb.blockSize)
	n, err := vol.src.ReadAt(buf, off)
	if err != nil && n < len(buf) {
		return nil, newErr("readBlock", IoFailure, fmt.Errorf("reading block %d: %w", blockNumber, err))
	}
	return buf, nil
}

// readInodeFromVolume locates and decodes inode number, bypassing the
// inode-table cache; inodeTable.get is the cache-aware entry point
// every other component should call instead.
func (vol *Volume) readInodeFromVolume(number uint32) (*inode, error) {
	idx := uint64(number-1) % uint64(vol.sb.inodesPerGroup)
	group := uint64(number-1) / uint64(vol.sb.inodesPerGroup)
	if group >= uint64(len(vol.gdt)) {
		return nil, newErr("readInodeFromVolume", OutOfRange,
			fmt.Errorf("inode %d maps to group %d, volume has %d groups", number, group, len(vol.gdt)))
	}

	gd := vol.gdt[group]
	inodeSize := uint64(vol.sb.inodeSize)
	tableOffset := gd.inodeTableLocation*uint64(vol.sb.blockSize) + idx*inodeSize

	buf := make([]byte, inodeSize)
	if _, err := vol.src.ReadAt(buf, int64(tableOffset)); err != nil {
		return nil, newErr("readInodeFromVolume", IoFailure,
			fmt.Errorf("reading inode %d at offset %d: %w", number, tableOffset, err))
	}

	return inodeFromBytes(number, buf, vol.sb.inodeSize, vol.sb.features.largeFile)
}

// SignalAbort asks any in-progress or future tree-walking operation on
// this volume to stop at its next cooperative checkpoint, per
// spec.md §4.13. It never un-sets.
func (vol *Volume) SignalAbort() { vol.abort.signal() }

func (vol *Volume) aborted() bool { return vol.abort.isSet() }

// RootInode is the well-known inode number of the volume's root
// directory.
const RootInode = 2

// LostAndFoundInode is the well-known inode number ext2/3/4 reserve
// for lost+found.
const LostAndFoundInode = 11

// GetRootFileEntry returns the FileEntry for the volume's root
// directory.
func (vol *Volume) GetRootFileEntry() (*FileEntry, error) {
	return vol.GetFileEntryByInode(RootInode)
}

// GetFileEntryByInode resolves an inode number directly to a
// FileEntry, without any path lookup.
func (vol *Volume) GetFileEntryByInode(number uint32) (*FileEntry, error) {
	in, err := vol.inodes.get(number)
	if err != nil {
		return nil, err
	}
	return newFileEntry(vol, number, in), nil
}

// NumberOfFileEntries reports the volume's total inode count
// (s_inodes_count), the same figure the original library returns from
// this operation, per spec.md §4.11. This includes reserved and
// currently-unallocated inodes; see NumberOfAllocatedFileEntries for
// the in-use subset.
func (vol *Volume) NumberOfFileEntries() uint64 {
	return uint64(vol.sb.inodeCount)
}

// NumberOfAllocatedFileEntries reports how many inodes the volume's
// metadata claims are in use (inode_count - sum(free_inodes) across
// groups).
func (vol *Volume) NumberOfAllocatedFileEntries() uint64 {
	var free uint64
	for _, gd := range vol.gdt {
		free += uint64(gd.freeInodes)
	}
	total := uint64(vol.sb.inodeCount)
	if free > total {
		return 0
	}
	return total - free
}

// Label is the volume's label field, decoded as UTF-8 and truncated
// at its first zero byte.
func (vol *Volume) Label() string { return vol.sb.volumeLabel }

// LabelUTF8Length is the volume label's length in bytes, excluding
// its terminator, as UTF-8.
func (vol *Volume) LabelUTF8Length() int { return utf8Length(vol.sb.volumeLabel) }

// LabelUTF16Length is the volume label's length in UTF-16 code units,
// excluding its terminator.
func (vol *Volume) LabelUTF16Length() int { return utf16Length(vol.sb.volumeLabel) }

// LastMountedPath is the path the volume was last mounted at,
// according to the superblock.
func (vol *Volume) LastMountedPath() string { return vol.sb.lastMountedDirectory }

// LastMountedPathUTF8Length is the last-mounted-path's length in
// bytes, excluding its terminator, as UTF-8.
func (vol *Volume) LastMountedPathUTF8Length() int { return utf8Length(vol.sb.lastMountedDirectory) }

// LastMountedPathUTF16Length is the last-mounted-path's length in
// UTF-16 code units, excluding its terminator.
func (vol *Volume) LastMountedPathUTF16Length() int {
	return utf16Length(vol.sb.lastMountedDirectory)
}

// LastMountTime returns the superblock's last-mount timestamp in
// POSIX seconds.
func (vol *Volume) LastMountTime() int64 { return vol.sb.mountTime.Unix() }

// LastWrittenTime returns the superblock's last-write timestamp in
// POSIX seconds.
func (vol *Volume) LastWrittenTime() int64 { return vol.sb.writeTime.Unix() }

// UUID is the volume's 16-byte identifier from the superblock.
func (vol *Volume) UUID() [16]byte {
	var out [16]byte
	copy(out[:], vol.sb.uuid[:])
	return out
}

// FormatVersion reports which of ext2 (2), ext3 (3), or ext4 (4) this
// volume's feature flags select.
func (vol *Volume) FormatVersion() int { return int(vol.sb.format) }

// BlockSize is the volume's block size in bytes.
func (vol *Volume) BlockSize() uint32 { return vol.sb.blockSize }
