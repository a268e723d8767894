package fsext

import "testing"

// buildImageWithSymlink extends buildSingleGroupImage's layout with a
// fast symlink "link" at inode 13 pointing at "hello.txt", placed
// alongside it in the root directory.
func buildImageWithSymlink(t *testing.T) []byte {
	t.Helper()
	img := buildSingleGroupImage(t)

	const (
		blockSize     = 1024
		inodeTableBlk = 5
		rootDirBlock  = 20
	)

	root := img[rootDirBlock*blockSize : rootDirBlock*blockSize+blockSize]
	off := appendDirEntry(root, 0, RootInode, ".", dirEntryFileTypeDir)
	off = appendDirEntry(root, off, RootInode, "..", dirEntryFileTypeDir)
	off = appendDirEntry(root, off, 12, "hello.txt", dirEntryFileTypeRegular)
	off = appendDirEntry(root, off, 13, "link", dirEntryFileTypeSymlink)
	le32(root, off, 0)
	le16(root, off+4, uint16(blockSize-off))

	target := "hello.txt"
	symInode := buildInode(uint16(fileTypeSymlink)|0o777, uint64(len(target)), 1, 0)
	le32(symInode, 0x1c, 0) // i_blocks = 0: a fast symlink stores its target inline, no data block
	copy(symInode[0x28:], target)

	inodeTableOffset := uint64(inodeTableBlk) * blockSize
	copy(img[inodeTableOffset+uint64(13-1)*fixtureInodeSize:], symInode)

	return img
}

func TestResolvePathRejectsSymlinkMidPath(t *testing.T) {
	img := buildImageWithSymlink(t)
	vol, err := Open(&memSource{data: img}, OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := vol.GetFileEntryByUTF8Path("/link/hello.txt"); err == nil {
		t.Fatal("expected NotFound resolving through a symlink component")
	}
}

func TestResolvePathSymlinkAsFinalComponent(t *testing.T) {
	img := buildImageWithSymlink(t)
	vol, err := Open(&memSource{data: img}, OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	entry, err := vol.GetFileEntryByUTF8Path("/link")
	if err != nil {
		t.Fatalf("GetFileEntryByUTF8Path: %v", err)
	}
	if !entry.IsSymlink() {
		t.Fatal("expected /link to resolve to the symlink itself, not its target")
	}
	target, err := entry.SymlinkTarget()
	if err != nil {
		t.Fatalf("SymlinkTarget: %v", err)
	}
	if target != "hello.txt" {
		t.Errorf("SymlinkTarget() = %q, want hello.txt", target)
	}
}

func TestResolvePathRoot(t *testing.T) {
	img := buildSingleGroupImage(t)
	vol, err := Open(&memSource{data: img}, OpenOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	entry, err := vol.GetFileEntryByUTF8Path("/")
	if err != nil {
		t.Fatalf("GetFileEntryByUTF8Path(/): %v", err)
	}
	if !entry.IsDirectory() {
		t.Fatal("expected root path to resolve to a directory")
	}
}
