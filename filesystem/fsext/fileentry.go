package fsext

import (
	"fmt"
	"io"
)

// FileEntry is a navigable handle onto one inode, with its metadata,
// content stream, extended attributes, and (for directories) child
// entries, per spec.md §4.10. A FileEntry is immutable once returned:
// it reflects the inode's state at the moment it was read, and does
// not update if the underlying volume changes.
type FileEntry struct {
	vol    *Volume
	number uint32
	name   string
	in     *inode
}

func newFileEntry(vol *Volume, number uint32, in *inode) *FileEntry {
	return &FileEntry{vol: vol, number: number, in: in}
}

// InodeNumber is this entry's inode number.
func (f *FileEntry) InodeNumber() uint32 { return f.number }

// Name is the directory-entry name this FileEntry was reached by, or
// empty for an entry obtained directly by inode number (such as the
// volume root).
func (f *FileEntry) Name() string { return f.name }

// IsEmpty reports whether every byte of the backing inode record is
// zero, per spec.md §3. An empty inode carries no other meaningful
// field and is not a directory, file, or symlink.
func (f *FileEntry) IsEmpty() bool { return f.in.isEmpty }

func (f *FileEntry) IsDirectory() bool { return f.in.isDirectory() }
func (f *FileEntry) IsRegular() bool   { return f.in.isRegular() }
func (f *FileEntry) IsSymlink() bool   { return f.in.isSymlink() }

// FileType reports the inode's on-disk type (regular, directory,
// symlink, character/block device, FIFO, socket).
func (f *FileEntry) FileType() string { return f.in.fileType.String() }

// Size is the file's logical size in bytes, as recorded in the inode.
func (f *FileEntry) Size() uint64 { return f.in.sizeBytes }

// Permissions is the low 12 bits of the inode's mode (permission bits
// and the setuid/setgid/sticky bits).
func (f *FileEntry) Permissions() uint16 { return f.in.permissions }

func (f *FileEntry) UID() uint32 { return f.in.uid }
func (f *FileEntry) GID() uint32 { return f.in.gid }
func (f *FileEntry) LinkCount() uint16 { return f.in.links }

// AccessTime, ModificationTime, and InodeChangeTime are the inode's
// standard POSIX timestamps, widened to nanosecond precision when the
// inode carries the ext4 "extra" timestamp words.
func (f *FileEntry) AccessTime() (sec, nsec int64) { return f.in.accessTime, f.in.accessTimeNsec }
func (f *FileEntry) ModificationTime() (sec, nsec int64) { return f.in.modifyTime, f.in.modifyTimeNsec }
func (f *FileEntry) InodeChangeTime() (sec, nsec int64) { return f.in.changeTime, f.in.changeTimeNsec }

// CreationTime is the ext4 crtime field. ok is false when the inode's
// layout has no room for it (a classic 128-byte ext2/ext3 inode).
func (f *FileEntry) CreationTime() (sec, nsec int64, ok bool) {
	return f.in.creationTime, f.in.creationTimeNsec, f.in.creationTimePresent
}

// IsHashIndexed reports whether the inode's INDEX flag is set,
// marking the directory as htree-indexed. This core never consults
// the index: GetChildren always falls back to a full linear scan, per
// SPEC_FULL.md §4.
func (f *FileEntry) IsHashIndexed() bool { return f.in.flags.indexed }

// GetChildren lists this directory's immediate children. It returns
// InvalidArgument if the entry is not a directory.
func (f *FileEntry) GetChildren() ([]*FileEntry, error) {
	if !f.in.isDirectory() {
		return nil, newErr("FileEntry.GetChildren", InvalidArgument,
			fmt.Errorf("inode %d is not a directory", f.number))
	}

	entries, err := f.vol.listDirectoryEntries(f.in)
	if err != nil {
		return nil, err
	}

	out := make([]*FileEntry, 0, len(entries))
	for _, e := range entries {
		if f.vol.aborted() {
			return nil, newErr("FileEntry.GetChildren", Aborted, fmt.Errorf("operation aborted"))
		}
		child, err := f.vol.inodes.get(e.inode)
		if err != nil {
			warnw(f.vol.logger, "skipping directory entry with unreadable inode",
				"parent", f.number, "name", string(e.name), "inode", e.inode, "error", err)
			continue
		}
		out = append(out, &FileEntry{vol: f.vol, number: e.inode, name: string(e.name), in: child})
	}
	return out, nil
}

// GetChildByUTF8Name looks up a single immediate child by exact
// byte-for-byte name comparison. It returns NotFound if the entry is
// not a directory or has no child of that name.
func (f *FileEntry) GetChildByUTF8Name(name string) (*FileEntry, error) {
	if !f.in.isDirectory() {
		return nil, newErr("FileEntry.GetChildByUTF8Name", NotFound,
			fmt.Errorf("inode %d is not a directory", f.number))
	}
	children, err := f.GetChildren()
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		if c.name == name {
			return c, nil
		}
	}
	return nil, newErr("FileEntry.GetChildByUTF8Name", NotFound,
		fmt.Errorf("no child named %q", name))
}

// GetChildByUTF16Name behaves like GetChildByUTF8Name, comparing
// against a little-endian UTF-16 encoded name.
func (f *FileEntry) GetChildByUTF16Name(name []byte) (*FileEntry, error) {
	return f.GetChildByUTF8Name(utf16ToUTF8(name))
}

// ExtentInfo is one byte-level mapped or sparse range within a file's
// content, per spec.md §4.7's get_extents() observable.
type ExtentInfo struct {
	ByteOffset    uint64
	ByteSize      uint64
	Sparse        bool
	Uninitialized bool
}

// Extents returns the file's content ranges as byte offsets and
// sizes within the backing volume, rather than the block-numbered
// form extent.go/indirect.go compute internally. An inline-data inode
// reports a single extent covering min(60, data size) bytes of
// inline-held data, followed by a sparse extent for any tail beyond
// that (the bytes the original library treats as a hole, even though
// they actually live in a "system.data" extended attribute), per
// spec.md §4.7.
func (f *FileEntry) Extents() ([]ExtentInfo, error) {
	if f.in.dataKind == dataReferenceInline {
		inlineSize := f.in.sizeBytes
		if inlineSize > uint64(len(f.in.dataBlock)) {
			inlineSize = uint64(len(f.in.dataBlock))
		}
		out := []ExtentInfo{{ByteOffset: 0, ByteSize: inlineSize}}
		if f.in.sizeBytes > inlineSize {
			out = append(out, ExtentInfo{
				ByteOffset: inlineSize,
				ByteSize:   f.in.sizeBytes - inlineSize,
				Sparse:     true,
			})
		}
		return out, nil
	}
	if f.in.dataKind == dataReferenceDevice || f.in.dataKind == dataReferenceFastSymlink {
		return nil, nil
	}

	extents, err := f.vol.extentsForInode(f.in)
	if err != nil {
		return nil, err
	}

	blockSize := uint64(f.vol.sb.blockSize)
	out := make([]ExtentInfo, 0, len(extents))
	for _, e := range extents {
		out = append(out, ExtentInfo{
			ByteOffset:    e.physicalBlock * blockSize,
			ByteSize:      uint64(e.length) * blockSize,
			Sparse:        e.physicalBlock == 0,
			Uninitialized: e.uninitialized,
		})
	}
	return out, nil
}

// Open returns a read-only, seekable stream over the file's content.
// It returns InvalidArgument for a directory.
func (f *FileEntry) Open() (io.ReadSeeker, error) {
	if f.in.isDirectory() {
		return nil, newErr("FileEntry.Open", InvalidArgument,
			fmt.Errorf("inode %d is a directory", f.number))
	}

	switch f.in.dataKind {
	case dataReferenceDevice:
		return nil, newErr("FileEntry.Open", InvalidArgument,
			fmt.Errorf("inode %d is a device special file", f.number))
	case dataReferenceInline:
		data, err := f.vol.inlineDataBytes(f.in)
		if err != nil {
			return nil, err
		}
		return newBlockStream(f.vol, f.in, data, nil), nil
	case dataReferenceFastSymlink:
		return nil, newErr("FileEntry.Open", InvalidArgument,
			fmt.Errorf("inode %d is a symlink; use SymlinkTarget", f.number))
	default:
		extents, err := f.vol.extentsForInode(f.in)
		if err != nil {
			return nil, err
		}
		return newBlockStream(f.vol, f.in, nil, extents), nil
	}
}

// SymlinkTarget returns the path a symlink inode points at. It
// returns InvalidArgument if the entry is not a symlink.
func (f *FileEntry) SymlinkTarget() (string, error) {
	if !f.in.isSymlink() {
		return "", newErr("FileEntry.SymlinkTarget", InvalidArgument,
			fmt.Errorf("inode %d is not a symlink", f.number))
	}

	if f.in.dataKind == dataReferenceFastSymlink {
		return cString(f.in.dataBlock[:f.in.sizeBytes]), nil
	}

	extents, err := f.vol.extentsForInode(f.in)
	if err != nil {
		return "", err
	}
	stream := newBlockStream(f.vol, f.in, nil, extents)
	buf := make([]byte, f.in.sizeBytes)
	if _, err := stream.ReadAt(buf, 0); err != nil && err != io.EOF {
		return "", err
	}
	return string(buf), nil
}

// DeviceNumber returns the major/minor-encoded device number for a
// character or block device inode. ok is false for any other type.
func (f *FileEntry) DeviceNumber() (dev uint32, ok bool) {
	if f.in.dataKind != dataReferenceDevice {
		return 0, false
	}
	if f.in.fileType != fileTypeChar && f.in.fileType != fileTypeBlock {
		return 0, false
	}
	return f.in.deviceNumber, true
}

// ExtendedAttributes returns every extended attribute attached to this
// inode, per spec.md §4.9.
func (f *FileEntry) ExtendedAttributes() ([]ExtendedAttribute, error) {
	return f.vol.extendedAttributes(f.in)
}

// IsEAInode reports whether this inode exists only to hold another
// inode's out-of-line extended-attribute value, per the EA_INODE
// incompatible feature.
func (f *FileEntry) IsEAInode() bool { return f.in.flags.isEAInode }
