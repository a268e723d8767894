package fsext

import "testing"

func TestParseDirEntriesLinearFileType(t *testing.T) {
	block := make([]byte, 64)
	off := appendDirEntry(block, 0, 2, ".", dirEntryFileTypeDir)
	off = appendDirEntry(block, off, 2, "..", dirEntryFileTypeDir)
	off = appendDirEntry(block, off, 12, "hello.txt", dirEntryFileTypeRegular)
	// pad the remainder with a single trailing record covering the rest.
	le32(block, off, 0)
	le16(block, off+4, uint16(len(block)-off))

	entries, err := parseDirEntriesLinear(block, true)
	if err != nil {
		t.Fatalf("parseDirEntriesLinear: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3: %+v", len(entries), entries)
	}
	if string(entries[2].name) != "hello.txt" || entries[2].inode != 12 {
		t.Errorf("entries[2] = %+v", entries[2])
	}
	if entries[2].fileType != dirEntryFileTypeRegular {
		t.Errorf("fileType = %d, want regular", entries[2].fileType)
	}
}

func TestParseDirEntriesLinearNoFileTypeByte(t *testing.T) {
	block := make([]byte, 32)
	name := "abc"
	recLen := (8 + len(name) + 3) &^ 3
	le32(block, 0, 5)
	le16(block, 4, uint16(recLen))
	block[6] = uint8(len(name))
	block[7] = 0 // high byte of name length, not a file-type byte here
	copy(block[8:], name)
	le32(block, recLen, 0)
	le16(block, recLen+4, uint16(len(block)-recLen))

	entries, err := parseDirEntriesLinear(block, false)
	if err != nil {
		t.Fatalf("parseDirEntriesLinear: %v", err)
	}
	if len(entries) != 1 || string(entries[0].name) != "abc" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestParseDirEntriesLinearSkipsChecksumTail(t *testing.T) {
	block := make([]byte, 16)
	le32(block, 0, 0xffffffff)
	le16(block, 4, 16)
	block[6] = 0
	block[7] = dirEntryFileTypeChecksum

	entries, err := parseDirEntriesLinear(block, true)
	if err != nil {
		t.Fatalf("parseDirEntriesLinear: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %+v, want none (checksum tail record)", entries)
	}
}

func TestParseDirEntriesLinearBadRecordLength(t *testing.T) {
	block := make([]byte, 16)
	le32(block, 0, 1)
	le16(block, 4, 2) // below minDirEntryLength
	_, err := parseDirEntriesLinear(block, true)
	if err == nil {
		t.Fatal("expected error for undersized record length")
	}
}

func TestParseDirEntriesLinearOverflowingRecord(t *testing.T) {
	block := make([]byte, 16)
	le32(block, 0, 1)
	le16(block, 4, 64) // overflows the 16-byte block
	_, err := parseDirEntriesLinear(block, true)
	if err == nil {
		t.Fatal("expected error for record length overflowing block")
	}
}

func TestDirEntryFileTypeFromInodeFileType(t *testing.T) {
	cases := map[fileType]uint8{
		fileTypeRegular: dirEntryFileTypeRegular,
		fileTypeDir:     dirEntryFileTypeDir,
		fileTypeSymlink: dirEntryFileTypeSymlink,
		fileTypeFIFO:    dirEntryFileTypeFIFO,
	}
	for ft, want := range cases {
		if got := dirEntryFileTypeFromInodeFileType(ft); got != want {
			t.Errorf("dirEntryFileTypeFromInodeFileType(%v) = %d, want %d", ft, got, want)
		}
	}
}
