package commands

import (
	"fmt"
	"time"

	"github.com/grailbio/mapeditr/mapblock"
	"github.com/grailbio/mapeditr/mapdb"
	"github.com/grailbio/mapeditr/spatial"
)

// DeleteTimersArgs is the deletetimers command's input. Area nil means
// the whole map; Node nil means no node-name filter.
type DeleteTimersArgs struct {
	Area   *spatial.Area
	Invert bool
	Node   []byte
}

// DeleteTimersReport is deletetimers's trailing summary.
type DeleteTimersReport struct {
	TimersDeleted int64
	Elapsed       time.Duration
}

func (r DeleteTimersReport) String() string {
	return fmt.Sprintf("deleted %s timer%s in %s", fmtBigNum(r.TimersDeleted), plural(r.TimersDeleted), fmtDuration(r.Elapsed))
}

// DeleteTimers implements spec.md §4.E.8: drop node timers whose
// position is inside Area (or outside it, when Invert), optionally
// restricted to timers on nodes named Node.
func DeleteTimers(db *mapdb.DB, status Reporter, args DeleteTimersArgs) (DeleteTimersReport, error) {
	start := time.Now()
	status.BeginEditing()
	defer status.EndEditing()
	var report DeleteTimersReport

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
		kept := block.NodeTimers[:0]
		var deleted int64
		for _, t := range block.NodeTimers {
			if timerMatches(block, t, args.Area, args.Invert, bp, hasFilter, filterID) {
				deleted++
				continue
			}
			kept = append(kept, t)
		}
		block.NodeTimers = kept
		report.TimersDeleted += deleted

		if deleted > 0 {
			if err := db.SetBlock(key, block.Encode()); err != nil {
				return report, err
			}
		}
		status.BlockDone()
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// timerMatches reports whether t should be deleted.
func timerMatches(block *mapblock.MapBlock, t mapblock.NodeTimer, area *spatial.Area, invert bool, bp spatial.Vec3, hasFilter bool, filterID uint16) bool {
	if area != nil {
		local := spatial.FromU16Key(t.Pos)
		if area.Contains(bp.Scale(16).Add(local)) == invert {
			return false
		}
	}
	if hasFilter {
		idx := spatial.FromU16Key(t.Pos).LinearIndex()
		if block.NodeData.Nodes[idx] != filterID {
			return false
		}
	}
	return true
}
