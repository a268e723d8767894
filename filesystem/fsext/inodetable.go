package fsext

import (
	"container/list"
	"fmt"
	"sync"
)

const minInodeCacheSize = 8

// inodeTable resolves an inode number to its decoded inode, reading
// through a bounded LRU cache so repeated lookups of the same inode
// (a directory being walked, the root inode on every path lookup)
// don't re-read the inode table block each time. Reads of distinct
// inodes are fully concurrent; only the cache bookkeeping is
// serialized.
type inodeTable struct {
	vol  *Volume
	size int

	mu    sync.Mutex
	ll    *list.List
	cache map[uint32]*list.Element
}

type inodeCacheEntry struct {
	number uint32
	inode  *inode
}

func newInodeTable(vol *Volume, size int) *inodeTable {
	if size < minInodeCacheSize {
		size = minInodeCacheSize
	}
	return &inodeTable{
		vol:   vol,
		size:  size,
		ll:    list.New(),
		cache: make(map[uint32]*list.Element, size),
	}
}

// get returns the decoded inode for number, reading it from the
// backing source on a cache miss.
func (t *inodeTable) get(number uint32) (*inode, error) {
	if number == 0 {
		return nil, newErr("inodeTable.get", InvalidArgument,
			fmt.Errorf("inode number 0 is reserved and invalid"))
	}
	if uint64(number) > uint64(t.vol.sb.inodeCount) {
		return nil, newErr("inodeTable.get", OutOfRange,
			fmt.Errorf("inode %d exceeds inode count %d", number, t.vol.sb.inodeCount))
	}

	t.mu.Lock()
	if el, ok := t.cache[number]; ok {
		t.ll.MoveToFront(el)
		entry := el.Value.(*inodeCacheEntry)
		t.mu.Unlock()
		return entry.inode, nil
	}
	t.mu.Unlock()

	in, err := t.vol.readInodeFromVolume(number)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if el, ok := t.cache[number]; ok {
		t.ll.MoveToFront(el)
		return el.Value.(*inodeCacheEntry).inode, nil
	}
	el := t.ll.PushFront(&inodeCacheEntry{number: number, inode: in})
	t.cache[number] = el
	for t.ll.Len() > t.size {
		back := t.ll.Back()
		if back == nil {
			break
		}
		t.ll.Remove(back)
		delete(t.cache, back.Value.(*inodeCacheEntry).number)
	}
	return in, nil
}
