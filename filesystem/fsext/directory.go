package fsext

import "bytes"

// listDirectoryEntries returns every named entry in the directory
// inode in, excluding "." and "..", per spec.md §4.8. It does not
// consult a hashed-directory (htree) index even when the inode's
// indexed flag is set: every directory block is scanned linearly,
// and the indexed flag is surfaced only as an observable label on the
// FileEntry, per SPEC_FULL.md §4.
func (vol *Volume) listDirectoryEntries(in *inode) ([]directoryEntry, error) {
	recordFileType := vol.sb.features.directoryEntriesRecordFileType

	var raw []byte
	if in.dataKind == dataReferenceInline {
		inline, err := vol.inlineDataBytes(in)
		if err != nil {
			return nil, err
		}
		// The first 4 bytes of an inline directory's data reference hold
		// the parent inode number, not a directory-entry record; the
		// parent is already known from traversal, so it is never exposed.
		if len(inline) >= 4 {
			inline = inline[4:]
		}
		raw = inline
	} else {
		extents, err := vol.extentsForInode(in)
		if err != nil {
			return nil, err
		}
		stream := newBlockStream(vol, in, nil, extents)
		raw = make([]byte, in.sizeBytes)
		if _, err := stream.ReadAt(raw, 0); err != nil {
			return nil, err
		}
	}

	blockSize := int(vol.sb.blockSize)
	if in.dataKind == dataReferenceInline || blockSize > len(raw) {
		blockSize = len(raw)
	}

	var all []directoryEntry
	for off := 0; off+minDirEntryLength <= len(raw); off += blockSize {
		end := off + blockSize
		if end > len(raw) {
			end = len(raw)
		}
		entries, err := parseDirEntriesLinear(raw[off:end], recordFileType)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
		if blockSize == 0 {
			break
		}
	}

	out := all[:0]
	for _, e := range all {
		if bytes.Equal(e.name, []byte(".")) || bytes.Equal(e.name, []byte("..")) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// extentsForInode returns the inode's content extents regardless of
// whether it uses the ext4 extent tree or the classic indirect block
// map, per spec.md §4.6/§4.7.
func (vol *Volume) extentsForInode(in *inode) ([]extent, error) {
	if in.dataKind == dataReferenceExtents {
		return vol.extentsFromInode(in)
	}
	return vol.extentsFromIndirectInode(in)
}
