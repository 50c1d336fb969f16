package commands

import (
	"errors"
	"time"

	"github.com/grailbio/mapeditr/mapblock"
	"github.com/grailbio/mapeditr/mapdb"
	"github.com/grailbio/mapeditr/spatial"
)

// overlayNoOffset implements spec.md §4.E.2: overlay with Offset == 0.
// A block blob that needs no per-node merge is written through
// verbatim without ever being decoded — the "zero-copy opportunity"
// spec.md §9 calls out.
func overlayNoOffset(dstDB, srcDB *mapdb.DB, status Reporter, area *spatial.Area, invert bool) (MergeReport, error) {
	start := time.Now()
	status.BeginEditing()
	defer status.EndEditing()
	var report MergeReport

	switch {
	case area == nil:
		if err := overlayAllVerbatim(dstDB, srcDB, status, &report); err != nil {
			return report, err
		}
	case !invert:
		if err := overlayAreaNoInvert(dstDB, srcDB, status, *area, &report); err != nil {
			return report, err
		}
	default:
		if err := overlayAreaInvert(dstDB, srcDB, status, *area, &report); err != nil {
			return report, err
		}
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// overlayAllVerbatim handles "no area": every generated source block is
// copied to the destination key-for-key without decoding.
func overlayAllVerbatim(dstDB, srcDB *mapdb.DB, status Reporter, report *MergeReport) error {
	rows, err := srcDB.IterRows()
	if err != nil {
		return err
	}
	defer rows.Close()
	for {
		row, ok := rows.Next()
		if !ok {
			break
		}
		if !mapblock.IsValidGenerated(row.Data) {
			report.BlocksFailed++
			status.BlockFailed()
			continue
		}
		if err := dstDB.SetBlock(row.Key, row.Data); err != nil {
			return err
		}
		report.BlocksWritten++
		status.BlockDone()
	}
	return rows.Err()
}

// overlayAreaNoInvert handles an area without invert: blocks fully
// inside area are copied verbatim; blocks only partially covered are
// decoded on both sides and merged over the overlap.
func overlayAreaNoInvert(dstDB, srcDB *mapdb.DB, status Reporter, area spatial.Area, report *MergeReport) error {
	for _, bp := range blockPositionsTouching(area.ToTouchingBlockArea()) {
		key := bp.ToBlockKey()
		srcBlob, err := srcDB.GetBlock(key)
		if errors.Is(err, mapdb.ErrMissingData) {
			continue
		}
		if err != nil {
			return err
		}
		if !mapblock.IsValidGenerated(srcBlob) {
			report.BlocksFailed++
			status.BlockFailed()
			continue
		}

		if area.ContainsBlock(bp) {
			if err := dstDB.SetBlock(key, srcBlob); err != nil {
				return err
			}
			report.BlocksWritten++
			status.BlockDone()
			continue
		}

		dstBlock, ok, err := decodeGeneratedAt(dstDB, key, &report.BlocksFailed, status)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		srcBlock, err := mapblock.Decode(srcBlob)
		if err != nil {
			report.BlocksFailed++
			status.BlockFailed()
			continue
		}
		rel, ok := area.RelBlockOverlap(bp)
		if !ok {
			continue
		}
		MergeBlocks(srcBlock, dstBlock, rel, rel)
		MergeMetadata(srcBlock, dstBlock, rel, rel)
		CleanNameIDMap(dstBlock)
		if err := dstDB.SetBlock(key, dstBlock.Encode()); err != nil {
			return err
		}
		report.BlocksWritten++
		status.BlockDone()
	}
	return nil
}

// overlayAreaInvert handles an area with invert: the selection (area)
// is excluded from the overlay, so the destination keeps its own
// content inside area and receives src's content everywhere else.
// Every row of srcDB participates, not just blocks touching area,
// since a block entirely outside area is still "outside the
// selection" even though it never touches it.
func overlayAreaInvert(dstDB, srcDB *mapdb.DB, status Reporter, area spatial.Area, report *MergeReport) error {
	rows, err := srcDB.IterRows()
	if err != nil {
		return err
	}
	defer rows.Close()
	for {
		row, ok := rows.Next()
		if !ok {
			break
		}
		bp := spatial.FromBlockKey(row.Key)
		if area.ContainsBlock(bp) {
			continue
		}
		if !mapblock.IsValidGenerated(row.Data) {
			report.BlocksFailed++
			status.BlockFailed()
			continue
		}
		if !area.TouchesBlock(bp) {
			if err := dstDB.SetBlock(row.Key, row.Data); err != nil {
				return err
			}
			report.BlocksWritten++
			status.BlockDone()
			continue
		}

		dstBlock, ok, err := decodeGeneratedAt(dstDB, row.Key, &report.BlocksFailed, status)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		srcBlock, err := mapblock.Decode(row.Data)
		if err != nil {
			report.BlocksFailed++
			status.BlockFailed()
			continue
		}
		rel, ok := area.RelBlockOverlap(bp)
		if !ok {
			continue
		}
		copyBlockOutsideArea(srcBlock, dstBlock, rel)
		CleanNameIDMap(dstBlock)
		if err := dstDB.SetBlock(row.Key, dstBlock.Encode()); err != nil {
			return err
		}
		report.BlocksWritten++
		status.BlockDone()
	}
	return rows.Err()
}

// copyBlockOutsideArea copies nodes, param1/param2, and metadata from
// src into dst at every intra-block position NOT inside relSelected,
// within the same block (no coordinate offset).
func copyBlockOutsideArea(src, dst *mapblock.MapBlock, relSelected spatial.Area) {
	var shift uint16
	if max, ok := dst.NIMap.GetMaxID(); ok {
		shift = max + 1
	}
	for _, id := range src.NIMap.SortedIDs() {
		name, _ := src.NIMap.Get(id)
		dst.NIMap.Set(id+shift, name)
	}

	it := spatial.NewInverseBlockIterator(relSelected)
	for {
		idx, ok := it.Next()
		if !ok {
			break
		}
		dst.NodeData.Nodes[idx] = src.NodeData.Nodes[idx] + shift
		dst.NodeData.Param1[idx] = src.NodeData.Param1[idx]
		dst.NodeData.Param2[idx] = src.NodeData.Param2[idx]
	}
	dst.MarkNodeDataModified()

	for _, pos := range dst.Metadata.SortedPositions() {
		if !relSelected.Contains(spatial.FromU16Key(pos)) {
			dst.Metadata.Delete(pos)
		}
	}
	for _, pos := range src.Metadata.SortedPositions() {
		p := spatial.FromU16Key(pos)
		if relSelected.Contains(p) {
			continue
		}
		meta, _ := src.Metadata.Get(pos)
		dst.Metadata.Set(pos, meta.Clone())
	}
	dst.MarkMetadataModified()
}
