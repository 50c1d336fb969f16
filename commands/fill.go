package commands

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/grailbio/mapeditr/mapblock"
	"github.com/grailbio/mapeditr/mapdb"
	"github.com/grailbio/mapeditr/spatial"
)

// FillArgs is the fill command's input.
type FillArgs struct {
	Area    spatial.Area
	Invert  bool
	NewNode []byte
}

// FillReport is fill's trailing summary.
type FillReport struct {
	NodesSet     int64
	BlocksFailed int64
	Elapsed      time.Duration
}

func (r FillReport) String() string {
	return fmt.Sprintf("filled %s node%s (%s block%s failed) in %s",
		fmtBigNum(r.NodesSet), plural(r.NodesSet), fmtBigNum(r.BlocksFailed), plural(r.BlocksFailed), fmtDuration(r.Elapsed))
}

// Fill implements spec.md §4.E.3: set every node inside Area (or
// outside it, when Invert) to NewNode.
func Fill(db *mapdb.DB, status Reporter, args FillArgs) (FillReport, error) {
	start := time.Now()
	status.BeginEditing()
	defer status.EndEditing()
	var report FillReport

	var keys []int64
	var err error
	if !args.Invert {
		keys = blockKeysTouching(args.Area)
	} else {
		keys, err = allGeneratedKeys(db)
		if err != nil {
			return report, err
		}
	}

	for _, key := range keys {
		blob, err := db.GetBlock(key)
		if errors.Is(err, mapdb.ErrMissingData) {
			continue
		}
		if err != nil {
			return report, err
		}
		if !mapblock.IsValidGenerated(blob) {
			report.BlocksFailed++
			status.BlockFailed()
			continue
		}
		block, err := mapblock.Decode(blob)
		if err != nil {
			report.BlocksFailed++
			status.BlockFailed()
			continue
		}

		bp := spatial.FromBlockKey(key)
		touches := args.Area.TouchesBlock(bp)
		contains := args.Area.ContainsBlock(bp)
		var entire bool
		if !args.Invert {
			entire = contains
		} else {
			entire = !touches
		}

		if entire {
			block.NIMap = mapblock.NewNameIdMap()
			block.NIMap.Set(0, args.NewNode)
			for i := range block.NodeData.Nodes {
				block.NodeData.Nodes[i] = 0
			}
			block.MarkNodeDataModified()
			report.NodesSet += mapblock.NodeCount
		} else {
			rel, ok := args.Area.RelBlockOverlap(bp)
			if !ok {
				status.BlockDone()
				continue
			}
			id := block.AllocateID(args.NewNode)
			var n int64
			if !args.Invert {
				it := rel.Iterator()
				for {
					p, ok := it.Next()
					if !ok {
						break
					}
					block.NodeData.Nodes[p.LinearIndex()] = id
					n++
				}
			} else {
				it := spatial.NewInverseBlockIterator(rel)
				for {
					idx, ok := it.Next()
					if !ok {
						break
					}
					block.NodeData.Nodes[idx] = id
					n++
				}
			}
			block.MarkNodeDataModified()
			CleanNameIDMap(block)
			report.NodesSet += n
		}

		if err := db.SetBlock(key, block.Encode()); err != nil {
			return report, err
		}
		status.BlockDone()
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// allGeneratedKeys returns the key of every row whose blob passes
// IsValidGenerated, for fill's inverted case where the candidate set is
// "every generated block" rather than just the ones touching Area.
func allGeneratedKeys(db *mapdb.DB) ([]int64, error) {
	rows, err := db.IterRows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []int64
	for {
		row, ok := rows.Next()
		if !ok {
			break
		}
		if mapblock.IsValidGenerated(row.Data) {
			keys = append(keys, row.Key)
		}
	}
	return keys, rows.Err()
}
