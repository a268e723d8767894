// Package testhelper provides a small stand-in for backend.Source and byte
// diffing utilities for tests. The fsext package's tests use their own
// fixtures (memSource, stubBlockSource) and do not import it.
package testhelper

import (
	"fmt"
	"io/fs"
)

type reader func(b []byte, offset int64) (int, error)

// SourceImpl is a stub backend.Source backed by an in-memory buffer, or a
// caller-supplied reader function, for feeding fixed byte fixtures to code
// that reads through a backend.Source without touching a real file.
type SourceImpl struct {
	Reader reader
}

// NewBufferSource returns a SourceImpl that reads out of b.
func NewBufferSource(b []byte) *SourceImpl {
	return &SourceImpl{
		Reader: func(p []byte, offset int64) (int, error) {
			if offset >= int64(len(b)) {
				return 0, fmt.Errorf("EOF")
			}
			n := copy(p, b[offset:])
			return n, nil
		},
	}
}

func (f *SourceImpl) Stat() (fs.FileInfo, error) {
	return nil, nil
}

func (f *SourceImpl) Read(b []byte) (int, error) {
	return f.Reader(b, 0)
}

func (f *SourceImpl) Close() error {
	return nil
}

// ReadAt reads at a particular offset.
func (f *SourceImpl) ReadAt(b []byte, offset int64) (int, error) {
	return f.Reader(b, offset)
}

// Seek is unsupported; every read through a SourceImpl is offset-addressed.
//
//nolint:revive // part of the Source interface, intentionally unsupported here
func (f *SourceImpl) Seek(offset int64, whence int) (int64, error) {
	return 0, fmt.Errorf("SourceImpl does not implement Seek()")
}
