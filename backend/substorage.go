package backend

import (
	"io"
	"io/fs"
)

// offsetSource wraps a Source so that every read and seek is relative to a
// fixed base offset within the underlying Source. This is how a volume
// embedded at a nonzero offset inside a larger disk image is presented to
// the superblock/group-descriptor/inode-table readers as if it began at
// byte zero.
type offsetSource struct {
	underlying Source
	offset     int64
	size       int64
}

// WithOffset returns a Source whose byte zero is offset bytes into u.
// size is the length Seek uses for io.SeekEnd; size <= 0 makes
// io.SeekEnd relative to the end of u. ReadAt does not clamp reads to
// size, and Stat reports u's own FileInfo.
func WithOffset(u Source, offset, size int64) Source {
	return offsetSource{
		underlying: u,
		offset:     offset,
		size:       size,
	}
}

func (s offsetSource) Stat() (fs.FileInfo, error) {
	return s.underlying.Stat()
}

func (s offsetSource) Read(b []byte) (int, error) {
	return s.underlying.Read(b)
}

func (s offsetSource) Close() error {
	return s.underlying.Close()
}

func (s offsetSource) ReadAt(p []byte, off int64) (n int, err error) {
	return s.underlying.ReadAt(p, s.offset+off)
}

func (s offsetSource) Seek(offset int64, whence int) (int64, error) {
	var (
		pos int64
		err error
	)

	switch whence {
	case io.SeekStart:
		pos, err = s.underlying.Seek(offset+s.offset, io.SeekStart)
	case io.SeekCurrent:
		pos, err = s.underlying.Seek(offset, io.SeekCurrent)
	case io.SeekEnd:
		if s.size <= 0 {
			pos, err = s.underlying.Seek(offset, io.SeekEnd)
		} else {
			pos, err = s.underlying.Seek(s.offset+s.size+offset, io.SeekStart)
		}
	default:
		return -1, ErrNotSuitable
	}

	if err != nil {
		return -1, err
	}

	return pos - s.offset, nil
}
