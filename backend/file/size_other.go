//go:build !linux

package file

import "os"

// deviceSize falls back to Stat().Size() on platforms without a
// BLKGETSIZE64-style ioctl wired up; callers on those platforms should pass
// an explicit size when opening a raw block device.
func deviceSize(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
