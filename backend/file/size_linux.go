//go:build linux

package file

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// blkGetSize64 is BLKGETSIZE64 from linux/fs.h: _IOR(0x12, 114, size_t).
const blkGetSize64 = 0x80081272

// deviceSize returns f's size, using the BLKGETSIZE64 ioctl when f is a
// block device (whose regular Stat().Size() is always reported as zero by
// the kernel) and falling back to Stat() for a regular image file.
func deviceSize(f *os.File) (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if info.Mode()&os.ModeDevice == 0 {
		return info.Size(), nil
	}

	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), blkGetSize64, uintptr(unsafe.Pointer(&size)))
	if errno != 0 {
		return 0, errno
	}
	return int64(size), nil
}
