package avi

// parseIdx1Chunk reads the legacy flat index and routes each entry to
// the StreamIndex for the stream its chunk ID names. Grounded on the
// teacher's parseIDX1Chunk, generalized to feed idx1Store instead of
// building a flat []IndexEntry, and to resolve the well-known
// ambiguity in idx1 offsets: some writers store them relative to the
// first byte of the movi list's data (offset 0 == the "movi" FourCC
// itself + 4), others store absolute file offsets. base is the
// movi-relative candidate's absolute byte position (moviDataStart);
// resolveIdx1Base picks between the two by comparing the first entry's
// offset against moviDataStart.
func parseIdx1Chunk(cur *ByteCursor, size uint32, moviDataStart int64, indices map[FourCC]*StreamIndex) error {
	n := int(size) / sizeofIdx1Entry
	raw, err := cur.Read(n * sizeofIdx1Entry)
	if err != nil {
		return err
	}
	if err := cur.SkipToAlign(); err != nil {
		return err
	}

	base, err := resolveIdx1Base(raw, moviDataStart)
	if err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		entryRaw := raw[i*sizeofIdx1Entry : (i+1)*sizeofIdx1Entry]
		var e idx1WireEntry
		if err := readStruct(entryRaw, &e); err != nil {
			return err
		}
		id := FourCC(fourCCFromBytes(e.ChunkID))
		idx, ok := indices[id]
		if !ok {
			continue
		}
		if e.Flags&idx1FlagKeyFrame != 0 {
			idx.appendIdx1KeyFrame(base+uint64(e.Offset), e.Size)
		}
		idx.incrementIdx1ChunkCount()
	}
	return nil
}

// resolveIdx1Base decides the base from the first entry's offset alone,
// without reading the file at that offset: movi-relative offsets are
// the default (base moviDataStart), and offsets are treated as absolute
// (base 0) only when the first entry's offset is already >=
// moviDataStart, which a movi-relative value could never be for a
// well-formed small file.
func resolveIdx1Base(raw []byte, moviDataStart int64) (uint64, error) {
	if len(raw) < sizeofIdx1Entry {
		return uint64(moviDataStart), nil
	}
	var first idx1WireEntry
	if err := readStruct(raw[:sizeofIdx1Entry], &first); err != nil {
		return 0, err
	}
	if uint64(first.Offset) >= uint64(moviDataStart) {
		return 0, nil
	}
	return uint64(moviDataStart), nil
}
