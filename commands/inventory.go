package commands

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grailbio/mapeditr/mapblock"
	"github.com/grailbio/mapeditr/mapdb"
	"github.com/grailbio/mapeditr/spatial"
)

// ReplaceInInvArgs is the replaceininv command's input.
type ReplaceInInvArgs struct {
	Area       *spatial.Area
	Invert     bool
	Node       []byte
	OldItem    []byte
	NewItem    []byte
	DeleteMeta bool
}

// ReplaceInInvReport is replaceininv's trailing summary.
type ReplaceInInvReport struct {
	ItemsReplaced int64
	Elapsed       time.Duration
}

func (r ReplaceInInvReport) String() string {
	return fmt.Sprintf("replaced %s item%s in %s", fmtBigNum(r.ItemsReplaced), plural(r.ItemsReplaced), fmtDuration(r.Elapsed))
}

// ReplaceInInv implements the replace_in_inv half of spec.md §4.E.9:
// rewrite every `Item <old> ...` line of a selected entry's inventory
// stream whose item name is OldItem to name NewItem instead.
func ReplaceInInv(db *mapdb.DB, status Reporter, args ReplaceInInvArgs) (ReplaceInInvReport, error) {
	start := time.Now()
	status.BeginEditing()
	defer status.EndEditing()
	var report ReplaceInInvReport

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

		filterID, hasFilter, filterOK := resolveNodeFilter(block, args.Node)
		if hasFilter && !filterOK {
			status.BlockDone()
			continue
		}

		bp := spatial.FromBlockKey(key)
		var changed int64
		block.Metadata.Range(func(pos uint16, meta *mapblock.NodeMetadata) bool {
			if !metaSelected(block, pos, args.Area, args.Invert, bp, hasFilter, filterID) {
				return true
			}
			newInv, n := rewriteInventory(meta.Inv, args.OldItem, args.NewItem, args.DeleteMeta)
			if n > 0 {
				meta.Inv = newInv
				changed += int64(n)
			}
			return true
		})
		report.ItemsReplaced += changed

		if changed > 0 {
			block.MarkMetadataModified()
			if err := db.SetBlock(key, block.Encode()); err != nil {
				return report, err
			}
		}
		status.BlockDone()
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// rewriteInventory rewrites every "Item <old> ..." line of inv to name
// newItem, per spec.md §4.E.9's grammar: each non-empty line is one of
// Empty, "List name count", "Width n", "Item name [count [wear
// [metadata]]]", EndInventoryList, or EndInventory. Lines other than
// Item are passed through verbatim.
func rewriteInventory(inv []byte, oldItem, newItem []byte, deleteMeta bool) ([]byte, int) {
	scanner := bufio.NewScanner(bytes.NewReader(inv))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	var out bytes.Buffer
	var n int
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == "Item" && fields[1] == string(oldItem) {
			out.WriteString(rewriteItemLine(fields, newItem, deleteMeta))
			out.WriteByte('\n')
			n++
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.Bytes(), n
}

// rewriteItemLine renders "Item name [count [wear [metadata]]]" with
// name replaced by newItem. Trailing default fields (count == 1, wear
// == 0, no metadata) are only omitted when deleteMeta is set, per the
// documented resolution to an otherwise underspecified format question.
func rewriteItemLine(fields []string, newItem []byte, deleteMeta bool) string {
	count := 1
	wear := 0
	meta := ""
	if len(fields) >= 3 {
		if v, err := strconv.Atoi(fields[2]); err == nil {
			count = v
		}
	}
	if len(fields) >= 4 {
		if v, err := strconv.Atoi(fields[3]); err == nil {
			wear = v
		}
	}
	if len(fields) >= 5 {
		meta = strings.Join(fields[4:], " ")
		if deleteMeta {
			meta = ""
		}
	}

	if deleteMeta && count == 1 && wear == 0 && meta == "" {
		return fmt.Sprintf("Item %s", newItem)
	}
	if meta != "" {
		return fmt.Sprintf("Item %s %d %d %s", newItem, count, wear, meta)
	}
	return fmt.Sprintf("Item %s %d %d", newItem, count, wear)
}
