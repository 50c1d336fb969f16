package commands

import (
	"fmt"
	"time"

	"github.com/grailbio/mapeditr/mapblock"
	"github.com/grailbio/mapeditr/mapdb"
	"github.com/grailbio/mapeditr/spatial"
)

// metaSelected reports whether the metadata entry at local position pos
// is selected by area/invert, with an optional node-name filter applied
// against the node standing at that position.
func metaSelected(block *mapblock.MapBlock, pos uint16, area *spatial.Area, invert bool, bp spatial.Vec3, hasFilter bool, filterID uint16) bool {
	if area != nil {
		local := spatial.FromU16Key(pos)
		if area.Contains(bp.Scale(16).Add(local)) == invert {
			return false
		}
	}
	if hasFilter {
		idx := spatial.FromU16Key(pos).LinearIndex()
		if block.NodeData.Nodes[idx] != filterID {
			return false
		}
	}
	return true
}

// resolveNodeFilter looks up Node in block's name-ID map, reporting
// false when the block has no such node (meaning nothing in it can
// match a node-name filter).
func resolveNodeFilter(block *mapblock.MapBlock, node []byte) (id uint16, has bool, ok bool) {
	if len(node) == 0 {
		return 0, false, true
	}
	id, exists := block.NIMap.GetID(node)
	return id, true, exists
}

// DeleteMetaArgs is the deletemeta command's input.
type DeleteMetaArgs struct {
	Area   *spatial.Area
	Invert bool
	Node   []byte
}

// DeleteMetaReport is deletemeta's trailing summary.
type DeleteMetaReport struct {
	EntriesDeleted int64
	Elapsed        time.Duration
}

func (r DeleteMetaReport) String() string {
	return fmt.Sprintf("deleted %s metadata entr%s in %s", fmtBigNum(r.EntriesDeleted), pluralY(r.EntriesDeleted), fmtDuration(r.Elapsed))
}

// pluralY renders "y"/"ies" for counts that read naturally as "entry"/"entries".
func pluralY(n int64) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// DeleteMeta implements the delete_meta half of spec.md §4.E.9.
func DeleteMeta(db *mapdb.DB, status Reporter, args DeleteMetaArgs) (DeleteMetaReport, error) {
	start := time.Now()
	status.BeginEditing()
	defer status.EndEditing()
	var report DeleteMetaReport

	keys, err := selectTouchingKeys(db, status, args.Area, args.Invert)
	if err != nil {
		return report, err
	}

	for _, key := range keys {
		block, ok, err := decodeGeneratedAt(db, key, new(int64), status)
		if err != nil {
			return report, err
		}
		if !ok {
			continue
		}

		filterID, hasFilter, filterOK := resolveNodeFilter(block, args.Node)
		if hasFilter && !filterOK {
			status.BlockDone()
			continue
		}

		bp := spatial.FromBlockKey(key)
		var toDelete []uint16
		block.Metadata.Range(func(pos uint16, meta *mapblock.NodeMetadata) bool {
			if metaSelected(block, pos, args.Area, args.Invert, bp, hasFilter, filterID) {
				toDelete = append(toDelete, pos)
			}
			return true
		})
		for _, pos := range toDelete {
			block.Metadata.Delete(pos)
		}
		report.EntriesDeleted += int64(len(toDelete))

		if len(toDelete) > 0 {
			block.MarkMetadataModified()
			if err := db.SetBlock(key, block.Encode()); err != nil {
				return report, err
			}
		}
		status.BlockDone()
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// SetMetaVarArgs is the setmetavar command's input. Delete requests
// that Key be removed instead of set to Value.
type SetMetaVarArgs struct {
	Area   *spatial.Area
	Invert bool
	Node   []byte
	Key    string
	Value  []byte
	Delete bool
}

// SetMetaVarReport is setmetavar's trailing summary.
type SetMetaVarReport struct {
	EntriesChanged int64
	Delete         bool
	Elapsed        time.Duration
}

func (r SetMetaVarReport) String() string {
	verb := "set"
	if r.Delete {
		verb = "deleted"
	}
	return fmt.Sprintf("%s var on %s metadata entr%s in %s", verb, fmtBigNum(r.EntriesChanged), pluralY(r.EntriesChanged), fmtDuration(r.Elapsed))
}

// SetMetaVar implements the set_meta_var half of spec.md §4.E.9: write
// or delete a single variable on every selected metadata entry. A
// selected position with no existing metadata record gets a fresh one
// created only when Delete is false (there's nothing to delete from
// an absent record).
func SetMetaVar(db *mapdb.DB, status Reporter, args SetMetaVarArgs) (SetMetaVarReport, error) {
	start := time.Now()
	status.BeginEditing()
	defer status.EndEditing()
	report := SetMetaVarReport{Delete: args.Delete}

	keys, err := selectTouchingKeys(db, status, args.Area, args.Invert)
	if err != nil {
		return report, err
	}

	for _, key := range keys {
		block, ok, err := decodeGeneratedAt(db, key, new(int64), status)
		if err != nil {
			return report, err
		}
		if !ok {
			continue
		}

		filterID, hasFilter, filterOK := resolveNodeFilter(block, args.Node)
		if hasFilter && !filterOK {
			status.BlockDone()
			continue
		}

		bp := spatial.FromBlockKey(key)
		var changed int64
		for _, pos := range allLocalPositions() {
			if !metaSelected(block, pos, args.Area, args.Invert, bp, hasFilter, filterID) {
				continue
			}
			meta, exists := block.Metadata.Get(pos)
			if args.Delete {
				if !exists {
					continue
				}
				meta.DeleteVar(args.Key)
				changed++
				continue
			}
			if !exists {
				meta = mapblock.NewNodeMetadata()
				block.Metadata.Set(pos, meta)
			}
			meta.SetVar(args.Key, args.Value, false)
			changed++
		}
		report.EntriesChanged += changed

		if changed > 0 {
			block.MarkMetadataModified()
			if err := db.SetBlock(key, block.Encode()); err != nil {
				return report, err
			}
		}
		status.BlockDone()
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// allLocalPositions returns every intra-block node position as a u16
// key, the full candidate set set_meta_var scans since a selected
// position may not yet carry a metadata record.
func allLocalPositions() []uint16 {
	positions := make([]uint16, mapblock.NodeCount)
	for i := range positions {
		positions[i] = spatial.FromLinearIndex(i).ToU16Key()
	}
	return positions
}
