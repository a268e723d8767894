package fsext

import (
	"io/fs"
	"testing"
)

func newTestVolumeForBlocks(blockSize uint32, blocks map[uint64][]byte) *Volume {
	sb := &superblock{blockSize: blockSize}
	vol := &Volume{sb: sb}
	vol.src = &stubBlockSource{blockSize: blockSize, blocks: blocks}
	return vol
}

// stubBlockSource serves fixed blocks directly by absolute byte
// offset, bypassing backend.Source entirely; extent/indirect walking
// only ever calls Volume.readBlock, so tests exercise that path
// without needing a full backend.Source.
type stubBlockSource struct {
	blockSize uint32
	blocks    map[uint64][]byte
}

func (s *stubBlockSource) ReadAt(p []byte, off int64) (int, error) {
	blockNum := uint64(off) / uint64(s.blockSize)
	data, ok := s.blocks[blockNum]
	if !ok {
		data = make([]byte, s.blockSize)
	}
	n := copy(p, data)
	return n, nil
}

func (s *stubBlockSource) Stat() (fs.FileInfo, error)            { return nil, nil }
func (s *stubBlockSource) Read(p []byte) (int, error)            { return 0, nil }
func (s *stubBlockSource) Close() error                          { return nil }
func (s *stubBlockSource) Seek(offset int64, whence int) (int64, error) { return 0, nil }

func TestExtentTreeSingleLeaf(t *testing.T) {
	vol := newTestVolumeForBlocks(4096, nil)

	dataRef := make([]byte, 60)
	le16(dataRef, 0, extentHeaderMagic)
	le16(dataRef, 2, 2)
	le16(dataRef, 4, 4)
	le16(dataRef, 6, 0)
	le32(dataRef, extentHeaderSize+0, 0)
	le16(dataRef, extentHeaderSize+4, 4)
	le32(dataRef, extentHeaderSize+8, 1000)
	le32(dataRef, extentHeaderSize+12, 4)
	le16(dataRef, extentHeaderSize+16, 2)
	le32(dataRef, extentHeaderSize+20, 2000)

	var in inode
	copy(in.dataBlock[:], dataRef)

	extents, err := vol.extentsFromInode(&in)
	if err != nil {
		t.Fatalf("extentsFromInode: %v", err)
	}
	if len(extents) != 2 {
		t.Fatalf("got %d extents, want 2", len(extents))
	}
	if extents[0].physicalBlock != 1000 || extents[0].length != 4 {
		t.Errorf("extent[0] = %+v", extents[0])
	}
	if extents[1].logicalBlock != 4 || extents[1].physicalBlock != 2000 {
		t.Errorf("extent[1] = %+v", extents[1])
	}
}

func TestExtentTreeUninitialized(t *testing.T) {
	dataRef := make([]byte, 60)
	le16(dataRef, 0, extentHeaderMagic)
	le16(dataRef, 2, 1)
	le16(dataRef, 4, 4)
	le16(dataRef, 6, 0)
	le32(dataRef, extentHeaderSize+0, 0)
	le16(dataRef, extentHeaderSize+4, 5+32768) // uninitialized, length 5
	le32(dataRef, extentHeaderSize+8, 9000)

	var in inode
	copy(in.dataBlock[:], dataRef)

	vol := newTestVolumeForBlocks(4096, nil)
	extents, err := vol.extentsFromInode(&in)
	if err != nil {
		t.Fatalf("extentsFromInode: %v", err)
	}
	if len(extents) != 1 || !extents[0].uninitialized || extents[0].length != 5 {
		t.Errorf("extents = %+v, want one uninitialized extent of length 5", extents)
	}
}

func TestExtentTreeBadMagic(t *testing.T) {
	var in inode
	vol := newTestVolumeForBlocks(4096, nil)
	_, err := vol.extentsFromInode(&in)
	if err == nil {
		t.Fatal("expected error for bad extent header magic")
	}
}

func TestExtentTreeIndexNode(t *testing.T) {
	leaf := make([]byte, 4096)
	le16(leaf, 0, extentHeaderMagic)
	le16(leaf, 2, 1)
	le16(leaf, 4, 340)
	le16(leaf, 6, 0)
	le32(leaf, extentHeaderSize+0, 0)
	le16(leaf, extentHeaderSize+4, 10)
	le32(leaf, extentHeaderSize+8, 500)

	vol := newTestVolumeForBlocks(4096, map[uint64][]byte{7: leaf})

	root := make([]byte, 60)
	le16(root, 0, extentHeaderMagic)
	le16(root, 2, 1)
	le16(root, 4, 4)
	le16(root, 6, 1) // depth 1: index node
	le32(root, extentHeaderSize+0, 0)
	le32(root, extentHeaderSize+4, 7) // child block 7
	le16(root, extentHeaderSize+8, 0)

	var in inode
	copy(in.dataBlock[:], root)

	extents, err := vol.extentsFromInode(&in)
	if err != nil {
		t.Fatalf("extentsFromInode: %v", err)
	}
	if len(extents) != 1 || extents[0].physicalBlock != 500 || extents[0].length != 10 {
		t.Errorf("extents = %+v", extents)
	}
}
