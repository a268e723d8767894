package fsext

import (
	"io"
	"testing"
)

func TestFileEntrySymlinkTargetFastPath(t *testing.T) {
	vol := newTestVolumeForBlocks(1024, nil)
	in := &inode{
		fileType:  fileTypeSymlink,
		dataKind:  dataReferenceFastSymlink,
		sizeBytes: 11,
	}
	copy(in.dataBlock[:], "/etc/passwd")
	f := newFileEntry(vol, 30, in)

	target, err := f.SymlinkTarget()
	if err != nil {
		t.Fatalf("SymlinkTarget: %v", err)
	}
	if target != "/etc/passwd" {
		t.Errorf("target = %q", target)
	}
}

func TestFileEntrySymlinkTargetOnRegularFails(t *testing.T) {
	vol := newTestVolumeForBlocks(1024, nil)
	in := &inode{fileType: fileTypeRegular}
	f := newFileEntry(vol, 31, in)

	if _, err := f.SymlinkTarget(); err == nil {
		t.Fatal("expected error calling SymlinkTarget on a regular file")
	}
}

func TestFileEntryDeviceNumber(t *testing.T) {
	vol := newTestVolumeForBlocks(1024, nil)
	in := &inode{fileType: fileTypeBlock, dataKind: dataReferenceDevice, deviceNumber: 0x0801}
	f := newFileEntry(vol, 32, in)

	dev, ok := f.DeviceNumber()
	if !ok || dev != 0x0801 {
		t.Errorf("DeviceNumber = (%#x, %v), want (0x801, true)", dev, ok)
	}

	regular := newFileEntry(vol, 33, &inode{fileType: fileTypeRegular})
	if _, ok := regular.DeviceNumber(); ok {
		t.Error("DeviceNumber on a regular file should report ok=false")
	}
}

func TestFileEntryOpenRejectsDirectory(t *testing.T) {
	vol := newTestVolumeForBlocks(1024, nil)
	in := &inode{fileType: fileTypeDir}
	f := newFileEntry(vol, 2, in)
	if _, err := f.Open(); err == nil {
		t.Fatal("expected error opening a directory")
	}
}

func TestFileEntryOpenInline(t *testing.T) {
	vol := newTestVolumeForBlocks(1024, nil)
	in := &inode{fileType: fileTypeRegular, dataKind: dataReferenceInline, sizeBytes: 4}
	copy(in.dataBlock[:], "data")
	f := newFileEntry(vol, 40, in)

	rs, err := f.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := rs.Read(buf); err != nil && err != io.EOF {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "data" {
		t.Errorf("content = %q", buf)
	}
}

func TestFileEntryExtentsByteConversion(t *testing.T) {
	vol := newTestVolumeForBlocks(1024, nil)
	dataRef := make([]byte, 60)
	le16(dataRef, 0, extentHeaderMagic)
	le16(dataRef, 2, 1)
	le16(dataRef, 4, 4)
	le32(dataRef, extentHeaderSize+0, 0)
	le16(dataRef, extentHeaderSize+4, 2)
	le32(dataRef, extentHeaderSize+8, 50)

	in := &inode{fileType: fileTypeRegular, dataKind: dataReferenceExtents, sizeBytes: 2048}
	copy(in.dataBlock[:], dataRef)
	f := newFileEntry(vol, 41, in)

	infos, err := f.Extents()
	if err != nil {
		t.Fatalf("Extents: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("got %d extents, want 1", len(infos))
	}
	if infos[0].ByteOffset != 50*1024 || infos[0].ByteSize != 2*1024 {
		t.Errorf("infos[0] = %+v", infos[0])
	}
}

func TestFileEntryExtentsInline(t *testing.T) {
	vol := newTestVolumeForBlocks(1024, nil)
	in := &inode{fileType: fileTypeRegular, dataKind: dataReferenceInline, sizeBytes: 30}
	f := newFileEntry(vol, 42, in)

	infos, err := f.Extents()
	if err != nil {
		t.Fatalf("Extents: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("got %d extents, want 1: %+v", len(infos), infos)
	}
	if infos[0].ByteOffset != 0 || infos[0].ByteSize != 30 || infos[0].Sparse {
		t.Errorf("infos[0] = %+v, want offset=0 size=30 sparse=false", infos[0])
	}
}

func TestFileEntryExtentsInlineWithSpliceTail(t *testing.T) {
	vol := newTestVolumeForBlocks(1024, nil)
	in := &inode{fileType: fileTypeRegular, dataKind: dataReferenceInline, sizeBytes: 100}
	f := newFileEntry(vol, 43, in)

	infos, err := f.Extents()
	if err != nil {
		t.Fatalf("Extents: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d extents, want 2: %+v", len(infos), infos)
	}
	if infos[0].ByteOffset != 0 || infos[0].ByteSize != 60 || infos[0].Sparse {
		t.Errorf("infos[0] = %+v, want offset=0 size=60 sparse=false", infos[0])
	}
	if infos[1].ByteOffset != 60 || infos[1].ByteSize != 40 || !infos[1].Sparse {
		t.Errorf("infos[1] = %+v, want offset=60 size=40 sparse=true", infos[1])
	}
}

func TestFileEntryIsEmpty(t *testing.T) {
	vol := newTestVolumeForBlocks(1024, nil)
	f := newFileEntry(vol, 50, &inode{isEmpty: true})
	if !f.IsEmpty() {
		t.Error("IsEmpty() = false, want true")
	}
}
