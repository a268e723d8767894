package fsext

import (
	"bytes"
	"time"
	"unicode/utf16"
)

// cString truncates a fixed-width, possibly-unterminated byte field at its
// first zero byte and returns the rest as a UTF-8 string, matching how the
// superblock's label and last-mount-path fields are stored on disk.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// decodeExtraTimestamp widens a 32-bit signed seconds-since-epoch value
// using the ext4 "extra" 32-bit word: the low 2 bits extend the seconds
// field to 34 bits, and the upper 30 bits carry nanoseconds. See spec.md
// §4.4 and the Linux kernel's Documentation/filesystems/ext4/inodes.rst.
func decodeExtraTimestamp(seconds int32, extra uint32) (sec int64, nsec int64) {
	sec = int64(seconds) + (int64(extra&0x3) << 32)
	nsec = int64(extra >> 2)
	return sec, nsec
}

// posixTime builds a UTC time.Time from decoded seconds/nanoseconds,
// normalizing through time.Unix so callers get a well-formed time.Time
// even for negative (pre-1970) second values.
func posixTime(sec, nsec int64) time.Time {
	return time.Unix(sec, nsec).UTC()
}

// utf16ToUTF8 converts a little-endian UTF-16 byte sequence to UTF-8. Used
// only to convert a caller's UTF-16 path query into the UTF-8 comparison
// the on-disk directory entries are held in; stored names are never
// re-encoded.
func utf16ToUTF8(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(units))
}
