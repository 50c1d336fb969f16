package commands

import (
	"fmt"
	"time"

	"github.com/grailbio/mapeditr/mapdb"
	"github.com/grailbio/mapeditr/spatial"
)

// DeleteBlocksArgs is the deleteblocks command's input. Area nil means
// the whole map (every row is deleted).
type DeleteBlocksArgs struct {
	Area   *spatial.Area
	Invert bool
}

// DeleteBlocksReport is deleteblocks's trailing summary.
type DeleteBlocksReport struct {
	BlocksDeleted int64
	Elapsed       time.Duration
}

func (r DeleteBlocksReport) String() string {
	return fmt.Sprintf("deleted %s block%s in %s", fmtBigNum(r.BlocksDeleted), plural(r.BlocksDeleted), fmtDuration(r.Elapsed))
}

// DeleteBlocks implements spec.md §4.E.6: delete every row whose block
// key is in Area (or outside it, when Invert).
func DeleteBlocks(db *mapdb.DB, status Reporter, args DeleteBlocksArgs) (DeleteBlocksReport, error) {
	start := time.Now()
	status.BeginEditing()
	defer status.EndEditing()
	var report DeleteBlocksReport

	keys, err := selectContainedKeys(db, status, args.Area, args.Invert)
	if err != nil {
		return report, err
	}
	for _, key := range keys {
		if err := db.DeleteBlock(key); err != nil {
			return report, err
		}
		report.BlocksDeleted++
		status.BlockDone()
	}

	report.Elapsed = time.Since(start)
	return report, nil
}
