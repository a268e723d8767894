package fsext

import "testing"

func TestIndirectDirectBlocksOnly(t *testing.T) {
	vol := newTestVolumeForBlocks(4096, nil)

	var in inode
	for i, blk := range []uint32{10, 11, 12, 0, 20} {
		le32(in.dataBlock[:], 4*i, blk)
	}

	extents, err := vol.extentsFromIndirectInode(&in)
	if err != nil {
		t.Fatalf("extentsFromIndirectInode: %v", err)
	}

	if len(extents) != 2 {
		t.Fatalf("got %d extents, want 2 (one run of 10-12, one hole-separated 20): %+v", len(extents), extents)
	}
	if extents[0].physicalBlock != 10 || extents[0].length != 3 {
		t.Errorf("extent[0] = %+v, want start=10 length=3", extents[0])
	}
	if extents[1].physicalBlock != 20 || extents[1].logicalBlock != 4 {
		t.Errorf("extent[1] = %+v, want start=20 logical=4", extents[1])
	}
}

func TestIndirectSingleIndirectBlock(t *testing.T) {
	blockSize := uint32(1024)
	pointers := make([]byte, blockSize)
	le32(pointers, 0, 500)
	le32(pointers, 4, 501)

	vol := newTestVolumeForBlocks(blockSize, map[uint64][]byte{9: pointers})

	var in inode
	le32(in.dataBlock[:], 4*singleIndirectSlot, 9)

	extents, err := vol.extentsFromIndirectInode(&in)
	if err != nil {
		t.Fatalf("extentsFromIndirectInode: %v", err)
	}

	found := false
	for _, e := range extents {
		if e.physicalBlock == 500 && e.length == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("extents = %+v, want a run starting at block 500 of length 2", extents)
	}
}

func TestCollapseRunsSkipsHoles(t *testing.T) {
	physical := []uint64{0, 0, 7, 8, 0, 20}
	out := collapseRuns(physical)
	if len(out) != 2 {
		t.Fatalf("got %d runs, want 2: %+v", len(out), out)
	}
	if out[0].logicalBlock != 2 || out[0].physicalBlock != 7 || out[0].length != 2 {
		t.Errorf("run[0] = %+v", out[0])
	}
	if out[1].logicalBlock != 5 || out[1].physicalBlock != 20 || out[1].length != 1 {
		t.Errorf("run[1] = %+v", out[1])
	}
}
