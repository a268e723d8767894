package fsext

import (
	"fmt"
	"strings"
)

// GetFileEntryByUTF8Path resolves a slash-separated path, rooted at
// the volume root, to its FileEntry. It never follows symlinks: a
// symlink component encountered before the final segment is reported
// as NotFound rather than resolved, per spec.md §4.12.
func (vol *Volume) GetFileEntryByUTF8Path(path string) (*FileEntry, error) {
	return vol.resolvePath(path)
}

// GetFileEntryByUTF16Path behaves like GetFileEntryByUTF8Path, but
// accepts its path encoded as little-endian UTF-16.
func (vol *Volume) GetFileEntryByUTF16Path(path []byte) (*FileEntry, error) {
	return vol.resolvePath(utf16ToUTF8(path))
}

func (vol *Volume) resolvePath(path string) (*FileEntry, error) {
	current, err := vol.GetRootFileEntry()
	if err != nil {
		return nil, err
	}

	path = strings.Trim(path, "/")
	if path == "" {
		return current, nil
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if vol.aborted() {
			return nil, newErr("resolvePath", Aborted, fmt.Errorf("operation aborted"))
		}
		if !current.IsDirectory() {
			return nil, newErr("resolvePath", NotFound,
				fmt.Errorf("path component %q: %q is not a directory", seg, current.name))
		}

		children, err := current.GetChildren()
		if err != nil {
			return nil, err
		}

		var next *FileEntry
		for _, c := range children {
			if c.name == seg {
				next = c
				break
			}
		}
		if next == nil {
			return nil, newErr("resolvePath", NotFound,
				fmt.Errorf("path component %q not found", seg))
		}
		if next.IsSymlink() && i != len(segments)-1 {
			return nil, newErr("resolvePath", NotFound,
				fmt.Errorf("path component %q is a symlink, not a directory", seg))
		}
		current = next
	}

	return current, nil
}
