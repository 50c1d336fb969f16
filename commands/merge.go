package commands

import (
	"github.com/grailbio/mapeditr/mapblock"
	"github.com/grailbio/mapeditr/spatial"
)

// CleanNameIDMap rebuilds b's name-ID map so it contains no duplicates
// and no unused entries, with IDs densely packed 0..n, rewriting every
// node ID through the resulting old-to-new table. Applying it twice in
// a row is a no-op: the second pass finds every ID already used,
// unique, and dense.
func CleanNameIDMap(b *mapblock.MapBlock) {
	used := make(map[uint16]bool, 64)
	for _, id := range b.NodeData.Nodes {
		used[id] = true
	}

	type entry struct {
		id   uint16
		name []byte
	}
	var kept []entry
	seen := make(map[string]uint16, 64)
	remap := make(map[uint16]uint16, 64)

	for _, id := range b.NIMap.SortedIDs() {
		if !used[id] {
			continue
		}
		name, _ := b.NIMap.Get(id)
		if newID, ok := seen[string(name)]; ok {
			remap[id] = newID
			continue
		}
		newID := uint16(len(kept))
		seen[string(name)] = newID
		remap[id] = newID
		kept = append(kept, entry{id: newID, name: name})
	}

	for _, id := range b.NIMap.SortedIDs() {
		b.NIMap.Delete(id)
	}
	for _, e := range kept {
		b.NIMap.Set(e.id, e.name)
	}

	for i, id := range b.NodeData.Nodes {
		if newID, ok := remap[id]; ok {
			b.NodeData.Nodes[i] = newID
		}
	}
	b.MarkNodeDataModified()
}

// MergeBlocks copies nodes, param1, and param2 from src's sub-area into
// dst's sub-area of equal extent, appending src's name-ID map into
// dst's at IDs shifted past dst's current maximum. Duplicate names are
// left for a subsequent CleanNameIDMap to fold together.
func MergeBlocks(src, dst *mapblock.MapBlock, srcRel, dstRel spatial.Area) {
	var shift uint16
	if max, ok := dst.NIMap.GetMaxID(); ok {
		shift = max + 1
	}
	for _, id := range src.NIMap.SortedIDs() {
		name, _ := src.NIMap.Get(id)
		dst.NIMap.Set(id+shift, name)
	}

	srcIt := srcRel.Iterator()
	dstIt := dstRel.Iterator()
	for {
		sp, sok := srcIt.Next()
		dp, dok := dstIt.Next()
		if !sok || !dok {
			break
		}
		si := sp.LinearIndex()
		di := dp.LinearIndex()
		dst.NodeData.Nodes[di] = src.NodeData.Nodes[si] + shift
		dst.NodeData.Param1[di] = src.NodeData.Param1[si]
		dst.NodeData.Param2[di] = src.NodeData.Param2[si]
	}
	dst.MarkNodeDataModified()
}

// MergeMetadata overwrites dst's metadata inside dstRel with src's
// metadata from srcRel, translated by dstRel.Min - srcRel.Min. Existing
// dst entries inside dstRel are dropped first regardless of whether src
// has a replacement, matching the overwrite semantics of a node copy.
func MergeMetadata(src, dst *mapblock.MapBlock, srcRel, dstRel spatial.Area) {
	for _, pos := range dst.Metadata.SortedPositions() {
		if dstRel.Contains(spatial.FromU16Key(pos)) {
			dst.Metadata.Delete(pos)
		}
	}

	delta := dstRel.Min.Sub(srcRel.Min)
	for _, pos := range src.Metadata.SortedPositions() {
		p := spatial.FromU16Key(pos)
		if !srcRel.Contains(p) {
			continue
		}
		meta, _ := src.Metadata.Get(pos)
		dst.Metadata.Set(p.Add(delta).ToU16Key(), meta.Clone())
	}
	dst.MarkMetadataModified()
}
