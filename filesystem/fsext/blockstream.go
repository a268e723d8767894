package fsext

import (
	"fmt"
	"io"
	"sort"
)

// blockStream is a lazily-read, seekable view over a file's content,
// whether that content lives inline in the inode, in an extent-mapped
// block run, or in a classic indirect block map. Reads past the last
// mapped extent but before the inode's recorded size return zeros: an
// ext4 file can have sparse holes that were never allocated, per
// spec.md §4.6/§4.7.
type blockStream struct {
	vol     *Volume
	size    int64
	pos     int64
	inline  []byte   // non-nil when the data lives inline in the inode
	extents []extent // sorted by logicalBlock, used when inline == nil
}

func newBlockStream(vol *Volume, in *inode, inlineData []byte, extents []extent) *blockStream {
	sorted := make([]extent, len(extents))
	copy(sorted, extents)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].logicalBlock < sorted[j].logicalBlock })
	return &blockStream{
		vol:     vol,
		size:    int64(in.sizeBytes),
		inline:  inlineData,
		extents: sorted,
	}
}

func (s *blockStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		target = s.size + offset
	default:
		return 0, newErr("blockStream.Seek", InvalidArgument, fmt.Errorf("bad whence %d", whence))
	}
	if target < 0 {
		return 0, newErr("blockStream.Seek", InvalidArgument, fmt.Errorf("negative seek position %d", target))
	}
	s.pos = target
	return s.pos, nil
}

func (s *blockStream) Read(p []byte) (int, error) {
	n, err := s.ReadAt(p, s.pos)
	s.pos += int64(n)
	return n, err
}

func (s *blockStream) ReadAt(p []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}
	maxLen := s.size - off
	if int64(len(p)) > maxLen {
		p = p[:maxLen]
	}
	if len(p) == 0 {
		return 0, nil
	}

	if s.inline != nil {
		if off >= int64(len(s.inline)) {
			return 0, io.EOF
		}
		n := copy(p, s.inline[off:])
		return n, nil
	}

	n, err := s.readExtentMapped(p, off)
	if err != nil {
		return n, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// readExtentMapped fills p starting at logical byte offset off,
// consulting the extent list and zero-filling any logical range no
// extent covers.
func (s *blockStream) readExtentMapped(p []byte, off int64) (int, error) {
	blockSize := int64(s.vol.sb.blockSize)
	total := 0
	for total < len(p) {
		if s.vol.aborted() {
			return total, newErr("blockStream.ReadAt", Aborted, fmt.Errorf("operation aborted"))
		}
		logicalOff := off + int64(total)
		logicalBlock := uint64(logicalOff / blockSize)
		blockStart := int64(logicalBlock) * blockSize
		inBlockOff := logicalOff - blockStart
		want := len(p) - total
		if int64(want) > blockSize-inBlockOff {
			want = int(blockSize - inBlockOff)
		}

		ext := findExtent(s.extents, logicalBlock)
		if ext == nil {
			for i := 0; i < want; i++ {
				p[total+i] = 0
			}
			total += want
			continue
		}

		blockIndexInExtent := logicalBlock - ext.logicalBlock
		physBlock := ext.physicalBlock + blockIndexInExtent
		if ext.uninitialized {
			for i := 0; i < want; i++ {
				p[total+i] = 0
			}
			total += want
			continue
		}

		data, err := s.vol.readBlock(physBlock)
		if err != nil {
			return total, err
		}
		n := copy(p[total:total+want], data[inBlockOff:])
		total += n
		if n < want {
			return total, io.EOF
		}
	}
	return total, nil
}

// findExtent returns the extent covering logicalBlock, or nil if the
// block falls in a hole. extents must be sorted by logicalBlock.
func findExtent(extents []extent, logicalBlock uint64) *extent {
	i := sort.Search(len(extents), func(i int) bool {
		return extents[i].logicalBlock+uint64(extents[i].length) > logicalBlock
	})
	if i >= len(extents) {
		return nil
	}
	e := &extents[i]
	if logicalBlock < e.logicalBlock {
		return nil
	}
	return e
}
