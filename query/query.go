// Package query implements the candidate-key selection edit operators
// run before their per-block loop: a combined geometric and name-prefix
// filter over every row of the map database, plus the bounded
// insertion-order cache operators use for cross-block reads.
package query

import (
	"bytes"
	"encoding/binary"

	"github.com/grailbio/mapeditr/mapblock"
	"github.com/grailbio/mapeditr/mapdb"
	"github.com/grailbio/mapeditr/spatial"
)

// ProgressReporter is the narrow slice of the worker's status protocol
// query_keys needs; instance.StatusServer satisfies it structurally so
// this package never imports instance (which in turn depends on the
// commands built on top of query).
type ProgressReporter interface {
	BeginQuerying()
	SetTotal(n int)
	EndQuerying()
}

// progressTickMask amortizes status-lock updates: total is refreshed
// only every 1024 rows scanned.
const progressTickMask = 1023

// Keys selects every block key in db matching both an optional
// geometric filter and an optional name prefilter, in a single
// streaming pass.
//
// Geometric filter: when area is non-nil, a block is kept iff its
// position is inside the derived block area, XORed by invert (see
// blockAreaFor). When the derived area is empty and invert is false, no
// block can match and the scan is skipped entirely.
//
// Name prefilter: for each entry of searchNames, the pattern
// u16_be(len(name)) ++ name is searched for in the block's raw bytes
// (the exact wire form of a name-ID map entry). A block whose raw bytes
// contain at least one pattern is kept; if searchNames is empty the
// filter passes everything. The prefilter is skipped for block version
// >= 29, since the entire block body is compressed there and a raw
// substring match would never find anything.
func Keys(
	db *mapdb.DB,
	status ProgressReporter,
	searchNames [][]byte,
	area *spatial.Area,
	invert bool,
	includePartial bool,
) ([]int64, error) {
	status.BeginQuerying()
	defer status.EndQuerying()

	patterns := make([][]byte, len(searchNames))
	for i, n := range searchNames {
		var lenPrefix [2]byte
		binary.BigEndian.PutUint16(lenPrefix[:], uint16(len(n)))
		p := make([]byte, 0, 2+len(n))
		p = append(p, lenPrefix[:]...)
		p = append(p, n...)
		patterns[i] = p
	}

	blockArea, emptyArea := blockAreaFor(area, invert, includePartial)
	if emptyArea && !invert {
		status.SetTotal(0)
		return nil, nil
	}

	rows, err := db.IterRows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []int64
	i := 0
	for {
		row, ok := rows.Next()
		if !ok {
			break
		}

		if !emptyArea && area != nil {
			blockPos := spatial.FromBlockKey(row.Key)
			if blockArea.Contains(blockPos) == invert {
				i++
				continue
			}
		}

		if len(row.Data) > 0 {
			version := row.Data[0]
			if version <= 28 && len(patterns) > 0 && !anyPatternMatches(patterns, row.Data) {
				i++
				continue
			}
		}

		keys = append(keys, row.Key)
		i++
		if i&progressTickMask == 0 {
			status.SetTotal(len(keys))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	status.SetTotal(len(keys))
	return keys, nil
}

func anyPatternMatches(patterns [][]byte, data []byte) bool {
	for _, p := range patterns {
		if bytes.Contains(data, p) {
			return true
		}
	}
	return false
}

// blockAreaFor computes the block-position area a user-facing node area
// maps to, per the invert/includePartial combination, and reports
// whether that derived area is empty (there is no block fully/partially
// selected).
func blockAreaFor(area *spatial.Area, invert, includePartial bool) (spatial.Area, bool) {
	if area == nil {
		return spatial.Area{}, false
	}
	if invert == includePartial {
		contained, ok := area.ToContainedBlockArea()
		if !ok {
			return spatial.Area{}, true
		}
		return contained, false
	}
	return area.ToTouchingBlockArea(), false
}

// IsValidGenerated re-exports mapblock.IsValidGenerated for callers that
// only import query (kept here since several operators classify a block
// using exactly the query package's row bytes before ever decoding it).
func IsValidGenerated(data []byte) bool {
	return mapblock.IsValidGenerated(data)
}
