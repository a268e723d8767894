package fsext

import (
	"encoding/binary"
	"fmt"
)

const (
	extentHeaderMagic = 0xf30a
	extentHeaderSize  = 12
	extentRecordSize  = 12

	// maxExtentTreeDepth bounds recursive descent into index nodes,
	// guarding against a corrupt or cyclic tree.
	maxExtentTreeDepth = 5
)

// extent is one leaf mapping: logicalBlock..logicalBlock+length-1 map
// to physicalBlock..physicalBlock+length-1. Logical holes between
// extents are implicit: nothing maps them, and readers must supply
// zero bytes for a hole, per spec.md §4.6.
type extent struct {
	logicalBlock  uint64
	physicalBlock uint64
	length        uint32
	uninitialized bool
}

type extentHeader struct {
	entries uint16
	max     uint16
	depth   uint16
}

func parseExtentHeader(b []byte) (extentHeader, error) {
	if len(b) < extentHeaderSize {
		return extentHeader{}, newErr("parseExtentHeader", CorruptFormat,
			fmt.Errorf("extent header truncated"))
	}
	magic := binary.LittleEndian.Uint16(b[0:2])
	if magic != extentHeaderMagic {
		return extentHeader{}, newErr("parseExtentHeader", CorruptFormat,
			fmt.Errorf("bad extent header magic %#04x", magic))
	}
	return extentHeader{
		entries: binary.LittleEndian.Uint16(b[2:4]),
		max:     binary.LittleEndian.Uint16(b[4:6]),
		depth:   binary.LittleEndian.Uint16(b[6:8]),
	}, nil
}

// extentsFromInode walks the extent tree rooted in the inode's 60-byte
// data-reference area, reading internal nodes through readBlock, and
// returns a flat, logical-order list of leaf extents.
func (vol *Volume) extentsFromInode(in *inode) ([]extent, error) {
	var out []extent
	err := vol.walkExtentNode(in.dataBlock[:], 0, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (vol *Volume) walkExtentNode(node []byte, depth int, out *[]extent) error {
	if vol.aborted() {
		return newErr("walkExtentNode", Aborted, fmt.Errorf("operation aborted"))
	}
	if depth > maxExtentTreeDepth {
		return newErr("walkExtentNode", CorruptFormat,
			fmt.Errorf("extent tree exceeds maximum depth %d", maxExtentTreeDepth))
	}

	hdr, err := parseExtentHeader(node)
	if err != nil {
		return err
	}
	if int(hdr.entries) > int(hdr.max) {
		return newErr("walkExtentNode", CorruptFormat,
			fmt.Errorf("extent header entries %d exceeds max %d", hdr.entries, hdr.max))
	}
	need := extentHeaderSize + int(hdr.entries)*extentRecordSize
	if need > len(node) {
		return newErr("walkExtentNode", CorruptFormat,
			fmt.Errorf("extent node truncated: need %d bytes, have %d", need, len(node)))
	}

	if hdr.depth == 0 {
		for i := 0; i < int(hdr.entries); i++ {
			rec := node[extentHeaderSize+i*extentRecordSize : extentHeaderSize+(i+1)*extentRecordSize]
			logical := binary.LittleEndian.Uint32(rec[0:4])
			rawLen := binary.LittleEndian.Uint16(rec[4:6])
			startHi := binary.LittleEndian.Uint16(rec[6:8])
			startLo := binary.LittleEndian.Uint32(rec[8:12])

			uninit := rawLen > 32768
			length := uint32(rawLen)
			if uninit {
				length = uint32(rawLen) - 32768
			}
			*out = append(*out, extent{
				logicalBlock:  uint64(logical),
				physicalBlock: uint64(startHi)<<32 | uint64(startLo),
				length:        length,
				uninitialized: uninit,
			})
		}
		return nil
	}

	for i := 0; i < int(hdr.entries); i++ {
		rec := node[extentHeaderSize+i*extentRecordSize : extentHeaderSize+(i+1)*extentRecordSize]
		leafLo := binary.LittleEndian.Uint32(rec[4:8])
		leafHi := binary.LittleEndian.Uint16(rec[8:10])
		child := uint64(leafHi)<<32 | uint64(leafLo)

		if vol.sb.blockCount != 0 && child >= vol.sb.blockCount {
			return newErr("walkExtentNode", CorruptFormat,
				fmt.Errorf("extent child block %d exceeds volume block count %d", child, vol.sb.blockCount))
		}

		block, err := vol.readBlock(child)
		if err != nil {
			return err
		}
		childHdr, err := parseExtentHeader(block)
		if err != nil {
			return err
		}
		if childHdr.depth != hdr.depth-1 {
			return newErr("walkExtentNode", CorruptFormat,
				fmt.Errorf("extent child depth %d disagrees with parent depth %d minus one", childHdr.depth, hdr.depth))
		}
		if err := vol.walkExtentNode(block, depth+1, out); err != nil {
			return err
		}
	}
	return nil
}
