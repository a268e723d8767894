// Package file adapts an *os.File (regular file or block device) into a
// backend.Source for the fsext parser.
package file

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/libyal/libfsext-sub001/backend"
)

type rawSource struct {
	storage fs.File
}

// New wraps an already-open fs.File as a backend.Source.
func New(f fs.File) backend.Source {
	return rawSource{storage: f}
}

// OpenFromPath opens a path to a regular image file or a block device
// (e.g. /tmp/foo.img or /dev/sda) read-only. The path must exist.
func OpenFromPath(pathName string) (backend.Source, error) {
	if pathName == "" {
		return nil, errors.New("must pass a device or file name")
	}
	if _, err := os.Stat(pathName); os.IsNotExist(err) {
		return nil, fmt.Errorf("provided device/file %s does not exist", pathName)
	}
	f, err := os.OpenFile(pathName, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("could not open %s read-only: %w", pathName, err)
	}
	return rawSource{storage: f}, nil
}

// SizeOfPath returns the size in bytes of the file or block device at
// pathName, using an OS ioctl for devices that do not report a size via
// stat (see size_linux.go / size_other.go).
func SizeOfPath(pathName string) (int64, error) {
	f, err := os.Open(pathName)
	if err != nil {
		return 0, fmt.Errorf("could not open %s: %w", pathName, err)
	}
	defer f.Close()
	return deviceSize(f)
}

func (f rawSource) Stat() (fs.FileInfo, error) {
	return f.storage.Stat()
}

func (f rawSource) Read(b []byte) (int, error) {
	return f.storage.Read(b)
}

func (f rawSource) Close() error {
	return f.storage.Close()
}

func (f rawSource) ReadAt(p []byte, off int64) (n int, err error) {
	if readerAt, ok := f.storage.(io.ReaderAt); ok {
		return readerAt.ReadAt(p, off)
	}
	return -1, backend.ErrNotSuitable
}

func (f rawSource) Seek(offset int64, whence int) (int64, error) {
	if seeker, ok := f.storage.(io.Seeker); ok {
		return seeker.Seek(offset, whence)
	}
	return -1, backend.ErrNotSuitable
}

var _ backend.Source = rawSource{}
