package commands

import (
	"fmt"
	"time"

	"github.com/grailbio/mapeditr/mapdb"
)

// VacuumReport is vacuum's trailing summary.
type VacuumReport struct {
	Elapsed time.Duration
}

func (r VacuumReport) String() string {
	return fmt.Sprintf("vacuumed in %s", fmtDuration(r.Elapsed))
}

// Vacuum implements spec.md §4.E.10: commit any pending transaction,
// then ask the store to compact. There's no per-block loop and no
// ETA, so the caller should suppress the progress bar for this one.
func Vacuum(db *mapdb.DB, status Reporter) (VacuumReport, error) {
	start := time.Now()
	status.BeginEditing()
	defer status.EndEditing()

	if err := db.CommitIfNeeded(); err != nil {
		return VacuumReport{}, err
	}
	if err := db.Vacuum(); err != nil {
		return VacuumReport{}, err
	}

	return VacuumReport{Elapsed: time.Since(start)}, nil
}
