package fsext

import (
	"encoding/binary"
	"fmt"
)

const (
	minDirEntryLength = 8

	dirEntryFileTypeUnknown  uint8 = 0
	dirEntryFileTypeRegular  uint8 = 1
	dirEntryFileTypeDir      uint8 = 2
	dirEntryFileTypeChar     uint8 = 3
	dirEntryFileTypeBlock    uint8 = 4
	dirEntryFileTypeFIFO     uint8 = 5
	dirEntryFileTypeSocket   uint8 = 6
	dirEntryFileTypeSymlink  uint8 = 7
	dirEntryFileTypeChecksum uint8 = 0xde
)

// directoryEntry is one linear directory-block record, per spec.md
// §4.8. Name is the raw stored bytes; this core compares names
// byte-for-byte and never normalizes case or Unicode form.
type directoryEntry struct {
	inode        uint32
	recordLength uint16
	fileType     uint8
	name         []byte
}

// parseDirEntriesLinear scans one directory block's worth of bytes as
// a linear chain of directory-entry records. recordFileType reports
// whether the on-disk format stores a file-type byte (the FILETYPE
// incompatible feature) or, in its absence, an extra byte of name
// length (the ext2 format predates the file-type byte).
func parseDirEntriesLinear(block []byte, recordFileType bool) ([]directoryEntry, error) {
	var entries []directoryEntry
	off := 0
	for off+minDirEntryLength <= len(block) {
		inodeNum := binary.LittleEndian.Uint32(block[off : off+4])
		recLen := binary.LittleEndian.Uint16(block[off+4 : off+6])
		nameLen := block[off+6]
		typeByte := block[off+7]

		if recLen < minDirEntryLength {
			return nil, newErr("parseDirEntriesLinear", CorruptFormat,
				fmt.Errorf("directory record length %d below minimum %d at offset %d", recLen, minDirEntryLength, off))
		}
		if recLen%4 != 0 {
			return nil, newErr("parseDirEntriesLinear", CorruptFormat,
				fmt.Errorf("directory record length %d not a multiple of 4 at offset %d", recLen, off))
		}
		if off+int(recLen) > len(block) {
			return nil, newErr("parseDirEntriesLinear", CorruptFormat,
				fmt.Errorf("directory record length %d overflows block at offset %d", recLen, off))
		}

		nameLength := int(nameLen)
		var fileType uint8 = dirEntryFileTypeUnknown
		if recordFileType {
			fileType = typeByte
		} else {
			nameLength |= int(typeByte) << 8
		}

		if inodeNum != 0 && fileType != dirEntryFileTypeChecksum {
			if off+8+nameLength > off+int(recLen) {
				return nil, newErr("parseDirEntriesLinear", CorruptFormat,
					fmt.Errorf("directory entry name length %d overflows record length %d", nameLength, recLen))
			}
			name := make([]byte, nameLength)
			copy(name, block[off+8:off+8+nameLength])
			entries = append(entries, directoryEntry{
				inode:        inodeNum,
				recordLength: recLen,
				fileType:     fileType,
				name:         name,
			})
		}

		off += int(recLen)
	}
	return entries, nil
}

func dirEntryFileTypeFromInodeFileType(t fileType) uint8 {
	switch t {
	case fileTypeRegular:
		return dirEntryFileTypeRegular
	case fileTypeDir:
		return dirEntryFileTypeDir
	case fileTypeChar:
		return dirEntryFileTypeChar
	case fileTypeBlock:
		return dirEntryFileTypeBlock
	case fileTypeFIFO:
		return dirEntryFileTypeFIFO
	case fileTypeSocket:
		return dirEntryFileTypeSocket
	case fileTypeSymlink:
		return dirEntryFileTypeSymlink
	default:
		return dirEntryFileTypeUnknown
	}
}
