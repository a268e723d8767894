package fsext

// inlineDataBytes returns the content an inode with the INLINE_DATA
// flag carries directly in its i_block area, extended into the EA
// area's "system.data" attribute when the content does not fit in the
// base 60 bytes, per spec.md §4.4 and libfsext_attribute_values.c's
// handling of stored inline data.
func (vol *Volume) inlineDataBytes(in *inode) ([]byte, error) {
	base := in.dataBlock[:]
	if uint64(len(base)) >= in.sizeBytes {
		return append([]byte(nil), base[:in.sizeBytes]...), nil
	}

	attrs, err := vol.extendedAttributes(in)
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		if a.Name == "system.data" {
			out := make([]byte, 0, len(base)+len(a.Value))
			out = append(out, base...)
			out = append(out, a.Value...)
			if uint64(len(out)) > in.sizeBytes {
				out = out[:in.sizeBytes]
			}
			return out, nil
		}
	}

	out := append([]byte(nil), base...)
	if uint64(len(out)) > in.sizeBytes {
		out = out[:in.sizeBytes]
	}
	return out, nil
}
