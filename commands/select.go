package commands

import (
	"github.com/grailbio/mapeditr/mapdb"
	"github.com/grailbio/mapeditr/query"
	"github.com/grailbio/mapeditr/spatial"
)

// selectContainedKeys selects whole-block-granularity candidates: a
// block qualifies only when it's fully (not just partially) inside
// area, the semantics deleteblocks needs since it can't partially
// delete a block. A nil area always selects every row.
func selectContainedKeys(db *mapdb.DB, status Reporter, area *spatial.Area, invert bool) ([]int64, error) {
	return query.Keys(db, status, nil, area, invert, false)
}

// selectTouchingKeys selects every block whose cube merely touches
// area, for operators that apply at sub-block (node-index) granularity
// and so need to visit partially-covered blocks too.
func selectTouchingKeys(db *mapdb.DB, status Reporter, area *spatial.Area, invert bool) ([]int64, error) {
	return query.Keys(db, status, nil, area, invert, true)
}
