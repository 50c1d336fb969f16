// Package commands implements the geometric bulk-edit operators that
// realize every user-facing mapeditr command: clone, overlay, fill,
// replace-nodes, set-param2, delete-blocks, delete-objects,
// delete-timers, delete-meta, set-meta-var, replace-in-inv, and vacuum.
//
// Every operator shares the same skeleton: select a candidate key set
// via the query package, iterate it, decode each selected block, mutate
// it using the spatial package's geometry, re-encode, and write it
// back. A codec failure on an otherwise-selected block is recovered
// locally (the block is skipped and counted as failed); only a storage
// error aborts the command.
package commands

import "github.com/grailbio/mapeditr/query"

// Reporter is the status-protocol surface every operator drives: the
// query-time progress methods (shared with component D) plus the
// per-block editing-stage counters. instance.StatusServer satisfies
// this structurally, the same way it satisfies query.ProgressReporter.
type Reporter interface {
	query.ProgressReporter
	BeginEditing()
	EndEditing()
	BlockDone()
	BlockFailed()
}
