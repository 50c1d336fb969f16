package commands

import (
	"fmt"
	"time"

	"github.com/grailbio/mapeditr/mapblock"
	"github.com/grailbio/mapeditr/mapdb"
	"github.com/grailbio/mapeditr/spatial"
)

// fullyCovers reports whether the whole of the block at bp is selected
// by area/invert: a nil area always selects the whole block; otherwise
// it's the non-inverted containment test, or (inverted) the block not
// touching area at all.
func fullyCovers(area *spatial.Area, invert bool, bp spatial.Vec3) bool {
	if area == nil {
		return true
	}
	if invert {
		return !area.TouchesBlock(bp)
	}
	return area.ContainsBlock(bp)
}

// candidateKeysForArea returns the block keys an operator with an
// optional area/invert pair should visit: every generated block when
// area is nil or invert is set (blocks entirely outside area are then
// selected too), otherwise every block touching area.
func candidateKeysForArea(db *mapdb.DB, area *spatial.Area, invert bool) ([]int64, error) {
	if area == nil || invert {
		return allGeneratedKeys(db)
	}
	return blockKeysTouching(*area), nil
}

// ReplaceNodesArgs is the replacenodes command's input. Area nil means
// the whole map.
type ReplaceNodesArgs struct {
	Area   *spatial.Area
	Invert bool
	Old    []byte
	New    []byte
}

// ReplaceNodesReport is replacenodes's trailing summary.
type ReplaceNodesReport struct {
	NodesReplaced int64
	BlocksFailed  int64
	Elapsed       time.Duration
}

func (r ReplaceNodesReport) String() string {
	return fmt.Sprintf("replaced %s node%s (%s block%s failed) in %s",
		fmtBigNum(r.NodesReplaced), plural(r.NodesReplaced), fmtBigNum(r.BlocksFailed), plural(r.BlocksFailed), fmtDuration(r.Elapsed))
}

// ReplaceNodes implements spec.md §4.E.4.
func ReplaceNodes(db *mapdb.DB, status Reporter, args ReplaceNodesArgs) (ReplaceNodesReport, error) {
	start := time.Now()
	status.BeginEditing()
	defer status.EndEditing()
	var report ReplaceNodesReport

	keys, err := candidateKeysForArea(db, args.Area, args.Invert)
	if err != nil {
		return report, err
	}

	for _, key := range keys {
		block, ok, err := decodeGeneratedAt(db, key, &report.BlocksFailed, status)
		if err != nil {
			return report, err
		}
		if !ok {
			continue
		}

		oldID, ok := block.NIMap.GetID(args.Old)
		if !ok {
			status.BlockDone()
			continue
		}

		bp := spatial.FromBlockKey(key)
		if fullyCovers(args.Area, args.Invert, bp) {
			report.NodesReplaced += replaceWholeBlock(block, oldID, args.New)
		} else {
			rel, ok := args.Area.RelBlockOverlap(bp)
			if !ok {
				status.BlockDone()
				continue
			}
			report.NodesReplaced += replacePartialBlock(block, oldID, args.New, rel, args.Invert)
		}

		if err := db.SetBlock(key, block.Encode()); err != nil {
			return report, err
		}
		status.BlockDone()
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// replacePartialBlock implements ReplaceNodes case 1: only indices
// inside (or, inverted, outside) rel are rewritten; if the last
// occurrence of oldID is eliminated from the whole block, the ID is
// removed and the array renumbered.
func replacePartialBlock(block *mapblock.MapBlock, oldID uint16, newName []byte, rel spatial.Area, invert bool) int64 {
	var count int64
	apply := func(idx int) {
		if block.NodeData.Nodes[idx] == oldID {
			newID := block.AllocateID(newName)
			block.NodeData.Nodes[idx] = newID
			count++
		}
	}
	if !invert {
		it := rel.Iterator()
		for {
			p, ok := it.Next()
			if !ok {
				break
			}
			apply(p.LinearIndex())
		}
	} else {
		it := spatial.NewInverseBlockIterator(rel)
		for {
			idx, ok := it.Next()
			if !ok {
				break
			}
			apply(idx)
		}
	}
	if count == 0 {
		return 0
	}
	block.MarkNodeDataModified()
	if !nodeIDStillUsed(block, oldID) {
		shiftIDDown(block, oldID)
	}
	return count
}

// replaceWholeBlock implements ReplaceNodes cases 2 and 3: the whole
// block is selected, so the rename can often be done purely in the
// name-ID map without touching nodes[] at all.
func replaceWholeBlock(block *mapblock.MapBlock, oldID uint16, newName []byte) int64 {
	if newID, exists := block.NIMap.GetID(newName); exists {
		var count int64
		for i, v := range block.NodeData.Nodes {
			if v == oldID {
				block.NodeData.Nodes[i] = newID
				count++
			}
		}
		if count > 0 {
			block.MarkNodeDataModified()
		}
		shiftIDDown(block, oldID)
		return count
	}

	var count int64
	for _, v := range block.NodeData.Nodes {
		if v == oldID {
			count++
		}
	}
	block.NIMap.Set(oldID, newName)
	return count
}

// nodeIDStillUsed reports whether id appears anywhere in nodes[].
func nodeIDStillUsed(block *mapblock.MapBlock, id uint16) bool {
	for _, v := range block.NodeData.Nodes {
		if v == id {
			return true
		}
	}
	return false
}

// shiftIDDown removes id from the name-ID map and decrements every
// node value greater than id, keeping the ID space dense.
func shiftIDDown(block *mapblock.MapBlock, id uint16) {
	block.NIMap.RemoveShift(id)
	for i, v := range block.NodeData.Nodes {
		if v > id {
			block.NodeData.Nodes[i] = v - 1
		}
	}
	block.MarkNodeDataModified()
}

// decodeGeneratedAt fetches and decodes the block at key, counting it
// as failed (and continuing the command) on a codec or not-generated
// outcome. A key with no row is skipped without being counted; any
// other storage error is returned.
func decodeGeneratedAt(db *mapdb.DB, key int64, failed *int64, status Reporter) (*mapblock.MapBlock, bool, error) {
	blob, err := db.GetBlock(key)
	if err == mapdb.ErrMissingData {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if !mapblock.IsValidGenerated(blob) {
		*failed++
		status.BlockFailed()
		return nil, false, nil
	}
	block, err := mapblock.Decode(blob)
	if err != nil {
		*failed++
		status.BlockFailed()
		return nil, false, nil
	}
	return block, true, nil
}

// SetParam2Args is the setparam2 command's input. Area nil means the
// whole map; Node nil means no node-name filter (every node in the
// selected region gets Value).
type SetParam2Args struct {
	Area   *spatial.Area
	Invert bool
	Node   []byte
	Value  uint8
}

// SetParam2Report is setparam2's trailing summary.
type SetParam2Report struct {
	NodesSet     int64
	BlocksFailed int64
	Elapsed      time.Duration
}

func (r SetParam2Report) String() string {
	return fmt.Sprintf("set param2 on %s node%s (%s block%s failed) in %s",
		fmtBigNum(r.NodesSet), plural(r.NodesSet), fmtBigNum(r.BlocksFailed), plural(r.BlocksFailed), fmtDuration(r.Elapsed))
}

// SetParam2 implements spec.md §4.E.5: like ReplaceNodes but writes
// Param2[i] = Value instead of changing node IDs.
func SetParam2(db *mapdb.DB, status Reporter, args SetParam2Args) (SetParam2Report, error) {
	start := time.Now()
	status.BeginEditing()
	defer status.EndEditing()
	var report SetParam2Report

	keys, err := candidateKeysForArea(db, args.Area, args.Invert)
	if err != nil {
		return report, err
	}

	for _, key := range keys {
		block, ok, err := decodeGeneratedAt(db, key, &report.BlocksFailed, status)
		if err != nil {
			return report, err
		}
		if !ok {
			continue
		}

		var filterID uint16
		hasFilter := len(args.Node) > 0
		if hasFilter {
			id, ok := block.NIMap.GetID(args.Node)
			if !ok {
				status.BlockDone()
				continue
			}
			filterID = id
		}

		bp := spatial.FromBlockKey(key)
		indices := indicesForArea(args.Area, args.Invert, bp)

		var n int64
		for _, idx := range indices {
			if hasFilter && block.NodeData.Nodes[idx] != filterID {
				continue
			}
			if block.NodeData.Param2[idx] != args.Value {
				block.NodeData.Param2[idx] = args.Value
				block.MarkNodeDataModified()
			}
			n++
		}
		report.NodesSet += n

		if n > 0 {
			if err := db.SetBlock(key, block.Encode()); err != nil {
				return report, err
			}
		}
		status.BlockDone()
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// indicesForArea returns the linear node indices an operator with an
// optional area/invert pair should touch within the block at bp.
func indicesForArea(area *spatial.Area, invert bool, bp spatial.Vec3) []int {
	if fullyCovers(area, invert, bp) {
		indices := make([]int, mapblock.NodeCount)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	rel, ok := area.RelBlockOverlap(bp)
	if !ok {
		return nil
	}
	var indices []int
	if !invert {
		it := rel.Iterator()
		for {
			p, ok := it.Next()
			if !ok {
				break
			}
			indices = append(indices, p.LinearIndex())
		}
	} else {
		it := spatial.NewInverseBlockIterator(rel)
		for {
			idx, ok := it.Next()
			if !ok {
				break
			}
			indices = append(indices, idx)
		}
	}
	return indices
}
