package instance

import (
	"fmt"

	"github.com/grailbio/mapeditr/commands"
	"github.com/grailbio/mapeditr/mapdb"
)

// catalogueEntry is one command's validator and runner, the "small
// static catalogue name → {validator?, run}" spec.md §9 calls for.
type catalogueEntry struct {
	validate func(InstArgs) (ArgVerdict, string)
	run      func(db, secondaryDB *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error)
}

var catalogue = map[string]catalogueEntry{
	"clone": {
		validate: validateClone,
		run: func(db, _ *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error) {
			r, err := commands.Clone(db, status, commands.CloneArgs{SrcArea: *a.Area(), Offset: a.Offset})
			return r, err
		},
	},
	"overlay": {
		validate: validateOverlay,
		run: func(db, secondaryDB *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error) {
			r, err := commands.Overlay(db, secondaryDB, status, commands.OverlayArgs{
				SrcArea: a.Area(),
				Offset:  a.Offset,
				Invert:  a.Invert,
			})
			return r, err
		},
	},
	"fill": {
		validate: validateFill,
		run: func(db, _ *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error) {
			r, err := commands.Fill(db, status, commands.FillArgs{
				Area:    *a.Area(),
				Invert:  a.Invert,
				NewNode: a.NewNode,
			})
			return r, err
		},
	},
	"replacenodes": {
		validate: validateReplaceNodes,
		run: func(db, _ *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error) {
			r, err := commands.ReplaceNodes(db, status, commands.ReplaceNodesArgs{
				Area:   a.Area(),
				Invert: a.Invert,
				Old:    a.Node,
				New:    a.NewNode,
			})
			return r, err
		},
	},
	"setparam2": {
		validate: validateSetParam2,
		run: func(db, _ *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error) {
			r, err := commands.SetParam2(db, status, commands.SetParam2Args{
				Area:   a.Area(),
				Invert: a.Invert,
				Node:   a.Node,
				Value:  a.Param2,
			})
			return r, err
		},
	},
	"deleteblocks": {
		validate: validateDeleteBlocksLike,
		run: func(db, _ *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error) {
			r, err := commands.DeleteBlocks(db, status, commands.DeleteBlocksArgs{Area: a.Area(), Invert: a.Invert})
			return r, err
		},
	},
	"deleteobjects": {
		validate: validateDeleteObjects,
		run: func(db, _ *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error) {
			r, err := commands.DeleteObjects(db, status, commands.DeleteObjectsArgs{
				Area:    a.Area(),
				Invert:  a.Invert,
				ObjName: a.Obj,
				Items:   a.Items,
			})
			return r, err
		},
	},
	"deletetimers": {
		validate: validateDeleteBlocksLike,
		run: func(db, _ *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error) {
			r, err := commands.DeleteTimers(db, status, commands.DeleteTimersArgs{
				Area:   a.Area(),
				Invert: a.Invert,
				Node:   a.Node,
			})
			return r, err
		},
	},
	"deletemeta": {
		validate: validateDeleteBlocksLike,
		run: func(db, _ *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error) {
			r, err := commands.DeleteMeta(db, status, commands.DeleteMetaArgs{
				Area:   a.Area(),
				Invert: a.Invert,
				Node:   a.Node,
			})
			return r, err
		},
	},
	"setmetavar": {
		validate: validateSetMetaVar,
		run: func(db, _ *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error) {
			r, err := commands.SetMetaVar(db, status, commands.SetMetaVarArgs{
				Area:   a.Area(),
				Invert: a.Invert,
				Node:   a.Node,
				Key:    a.Key,
				Value:  a.Value,
				Delete: a.Delete,
			})
			return r, err
		},
	},
	"replaceininv": {
		validate: validateReplaceInInv,
		run: func(db, _ *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error) {
			r, err := commands.ReplaceInInv(db, status, commands.ReplaceInInvArgs{
				Area:       a.Area(),
				Invert:     a.Invert,
				Node:       a.Node,
				OldItem:    a.Item,
				NewItem:    a.NewItem,
				DeleteMeta: a.DeleteMeta,
			})
			return r, err
		},
	},
	"vacuum": {
		run: func(db, _ *mapdb.DB, status *StatusServer, a InstArgs) (fmt.Stringer, error) {
			status.SuppressProgress()
			r, err := commands.Vacuum(db, status)
			return r, err
		},
	},
}
