package commands

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/grailbio/mapeditr/mapblock"
	"github.com/grailbio/mapeditr/mapdb"
	"github.com/grailbio/mapeditr/spatial"
)

// DeleteObjectsArgs is the deleteobjects command's input. Every set
// field is an active predicate; an object is deleted only when all
// active predicates match (spec.md §4.E.7).
type DeleteObjectsArgs struct {
	Area    *spatial.Area
	Invert  bool
	ObjName []byte
	Items   [][]byte
}

// DeleteObjectsReport is deleteobjects's trailing summary.
type DeleteObjectsReport struct {
	ObjectsDeleted int64
	Elapsed        time.Duration
}

func (r DeleteObjectsReport) String() string {
	return fmt.Sprintf("deleted %s object%s in %s", fmtBigNum(r.ObjectsDeleted), plural(r.ObjectsDeleted), fmtDuration(r.Elapsed))
}

// DeleteObjects implements spec.md §4.E.7.
func DeleteObjects(db *mapdb.DB, status Reporter, args DeleteObjectsArgs) (DeleteObjectsReport, error) {
	start := time.Now()
	status.BeginEditing()
	defer status.EndEditing()
	var report DeleteObjectsReport

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

		var deleted int64
		for i := len(block.StaticObjects) - 1; i >= 0; i-- {
			match, err := deleteObjectMatches(block.StaticObjects[i], args)
			if err != nil {
				continue // decode failure: conservative, do not delete
			}
			if match {
				block.StaticObjects = append(block.StaticObjects[:i], block.StaticObjects[i+1:]...)
				deleted++
			}
		}
		report.ObjectsDeleted += deleted

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

// deleteObjectMatches evaluates every active predicate in args against
// obj, AND-ing them together. It returns an error only when a
// name/item predicate is active and the object's LuaEntity payload
// fails to decode; callers treat that as "do not delete".
func deleteObjectMatches(obj mapblock.StaticObject, args DeleteObjectsArgs) (bool, error) {
	if args.Area != nil {
		pos := objectNodePos(obj)
		if args.Area.Contains(pos) == args.Invert {
			return false, nil
		}
	}

	if len(args.ObjName) > 0 {
		ent, err := mapblock.DecodeLuaEntity(&obj)
		if err != nil {
			return false, err
		}
		if !bytes.Equal(ent.Name, args.ObjName) {
			return false, nil
		}
	}

	if len(args.Items) > 0 {
		ent, err := mapblock.DecodeLuaEntity(&obj)
		if err != nil {
			return false, err
		}
		itemName, ok := parseItemName(ent.Data)
		if !ok {
			return false, nil
		}
		matched := false
		for _, want := range args.Items {
			if bytes.Equal(itemName, want) {
				matched = true
				break
			}
		}
		if !matched {
			return false, nil
		}
	}

	return true, nil
}

// objectNodePos converts a StaticObject's fixed-point position (10000
// units = 1 node) to a node coordinate. spec.md §9 notes two rounding
// rules appear across source revisions; this module follows the later
// one: floor((v + 5000) / 10000).
func objectNodePos(obj mapblock.StaticObject) spatial.Vec3 {
	round := func(v int32) int32 {
		q := (v + 5000) / 10000
		if (v+5000)%10000 != 0 && (v+5000 < 0) != (10000 < 0) {
			q--
		}
		return q
	}
	return spatial.New(round(obj.FPos.X), round(obj.FPos.Y), round(obj.FPos.Z))
}

// itemstringNew and itemstringLegacy are the two wire forms a dropped
// item's data payload spells its itemstring field in, matching the
// original's get_item_name/get_item_name_start.
const (
	itemstringNew    = `itemstring="`
	itemstringLegacy = `["itemstring"] = "`
)

// parseItemName extracts the item name from a dropped-item LuaEntity's
// data payload, recognizing both the modern (itemstring="name") and
// legacy (["itemstring"] = "name") Lua table forms. The name is
// whatever precedes the first closing quote or space.
func parseItemName(data []byte) ([]byte, bool) {
	s := string(data)
	if idx := strings.Index(s, itemstringNew); idx >= 0 {
		return tokenAfter(s, idx+len(itemstringNew)), true
	}
	if idx := strings.Index(s, itemstringLegacy); idx >= 0 {
		return tokenAfter(s, idx+len(itemstringLegacy)), true
	}
	return nil, false
}

func tokenAfter(s string, start int) []byte {
	rest := s[start:]
	end := strings.IndexAny(rest, `" `)
	if end < 0 {
		end = len(rest)
	}
	return []byte(rest[:end])
}
