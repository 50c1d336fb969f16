package instance

import (
	"fmt"

	"github.com/grailbio/base/errorreporter"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/grailbio/mapeditr/mapdb"
)

// Worker runs exactly one command end to end, the single background
// compute task spec.md §4.F describes. It owns no state beyond what's
// needed for that one run; a fresh Worker is created per invocation of
// the CLI.
type Worker struct {
	status *StatusServer
}

// NewWorker wraps status, the channel endpoint the UI reads from.
func NewWorker(status *StatusServer) *Worker {
	return &Worker{status: status}
}

// Run opens the primary (and, for overlay, secondary) database,
// validates args, runs the confirm round-trip, dispatches to the
// registered command, and reports the trailing summary as a Log event.
// It never panics on a command failure; every error reaches the UI as
// a Log event before Run returns it.
func (w *Worker) Run(mapPath, secondaryMapPath string, args InstArgs) error {
	var errs errorreporter.T
	ctx := vcontext.Background()

	verdict, msg := args.Validate()
	if verdict == ArgError {
		w.status.Logf(LogError, "argument error: %s", msg)
		return errors.Errorf("mapeditr: %s", msg)
	}
	if verdict == ArgWarning {
		w.status.Logf(LogWarning, "argument warning: %s", msg)
	}

	entry := catalogue[args.Command]

	db, err := openPrimary(mapPath)
	if err != nil {
		errs.Set(err)
		w.status.Logf(LogError, "failed to open %s: %v", mapPath, err)
		return errs.Err()
	}
	defer func() { errs.Set(db.Close()) }()

	var secondaryDB *mapdb.DB
	if secondaryMapPath != "" {
		secondaryDB, err = mapdb.Open(secondaryMapPath, true)
		if err != nil {
			errs.Set(err)
			w.status.Logf(LogError, "failed to open %s: %v", secondaryMapPath, err)
			return errs.Err()
		}
		defer func() { errs.Set(secondaryDB.Close()) }()
	}

	confirmPrompt := msg
	if verdict == ArgOk {
		confirmPrompt = fmt.Sprintf("about to run %s on %s", args.Command, mapPath)
	}
	if !w.status.RequestConfirm(ctx, args.SkipConfirm, confirmPrompt) {
		w.status.Logf(LogInfo, "aborted: not confirmed")
		return nil
	}

	if err := db.BeginIfNeeded(); err != nil {
		errs.Set(err)
		w.status.Logf(LogError, "failed to begin transaction: %v", err)
		return errs.Err()
	}

	report, err := entry.run(db, secondaryDB, w.status, args)
	if err != nil {
		errs.Set(err)
		vlog.Errorf("%s: %v", args.Command, err)
		w.status.Logf(LogError, "%s failed: %v", args.Command, err)
		return errs.Err()
	}

	w.status.Logf(LogInfo, "Committing...")
	if err := db.CommitIfNeeded(); err != nil {
		errs.Set(err)
		w.status.Logf(LogError, "commit failed: %v", err)
		return errs.Err()
	}

	w.status.Logf(LogInfo, report.String())
	w.status.Logf(LogInfo, "Done.")
	return errs.Err()
}

func openPrimary(mapPath string) (*mapdb.DB, error) {
	return mapdb.Open(mapPath, false)
}
