package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/grailbio/mapeditr/mapblock"
	"github.com/grailbio/mapeditr/mapdb"
	"github.com/grailbio/mapeditr/query"
	"github.com/grailbio/mapeditr/spatial"
)

// MergeReport is the trailing-summary shape shared by clone and
// overlay: the two operators that write whole merged blocks rather
// than touching individual node fields.
type MergeReport struct {
	BlocksWritten int64
	BlocksFailed  int64
	Elapsed       time.Duration
}

// String renders the "wrote N blocks (M failed) in T" summary log line.
func (r MergeReport) String() string {
	return fmt.Sprintf("wrote %s block%s (%s failed) in %s",
		fmtBigNum(r.BlocksWritten), plural(r.BlocksWritten), fmtBigNum(r.BlocksFailed), fmtDuration(r.Elapsed))
}

func plural(n int64) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// CloneArgs is the clone command's input: copy SrcArea to SrcArea +
// Offset within the same database.
type CloneArgs struct {
	SrcArea spatial.Area
	Offset  spatial.Vec3
}

// Clone copies nodes, param1, param2, and node metadata from SrcArea to
// SrcArea+Offset in db. Static objects and node timers are not
// translated (spec.md Non-goal for this operator).
func Clone(db *mapdb.DB, status Reporter, args CloneArgs) (MergeReport, error) {
	return runOffsetMerge(db, db, status, args.SrcArea, args.Offset)
}

// OverlayArgs is the overlay command's input. SrcArea nil means "the
// whole map" (only legal when Offset is zero, the fast verbatim-copy
// path). Invert is only legal when Offset is zero; the combination of a
// nonzero Offset and Invert is rejected at argument validation
// (spec.md §9 Open Questions).
type OverlayArgs struct {
	SrcArea *spatial.Area
	Offset  spatial.Vec3
	Invert  bool
}

var zeroVec spatial.Vec3

// Overlay copies from srcDB (opened read-only) into dstDB. With a zero
// offset it delegates to the no-decode-needed fast paths of §4.E.2;
// with a nonzero offset it runs the same cross-block merge engine as
// Clone, reading the source through srcDB instead of dstDB.
func Overlay(dstDB, srcDB *mapdb.DB, status Reporter, args OverlayArgs) (MergeReport, error) {
	if args.Offset == zeroVec {
		return overlayNoOffset(dstDB, srcDB, status, args.SrcArea, args.Invert)
	}
	if args.SrcArea == nil {
		return MergeReport{}, errors.New("commands: overlay with a nonzero offset requires an area")
	}
	return runOffsetMerge(dstDB, srcDB, status, *args.SrcArea, args.Offset)
}

// cacheEntry is what the cross-block read cache stores: either a
// decoded block or the error that made it undecodable, so a block that
// fails once isn't redecoded on every subsequent touch.
type cacheEntry struct {
	block *mapblock.MapBlock
	err   error
}

// runOffsetMerge implements spec.md §4.E.1: the shared clone/overlay
// merge engine. dstDB and srcDB are the same *mapdb.DB for Clone.
func runOffsetMerge(dstDB, srcDB *mapdb.DB, status Reporter, srcArea spatial.Area, offset spatial.Vec3) (MergeReport, error) {
	start := time.Now()
	status.BeginEditing()
	defer status.EndEditing()

	dstArea := srcArea.Add(offset)
	keys, err := selectTouchingKeys(dstDB, status, &dstArea, false)
	if err != nil {
		return MergeReport{}, err
	}
	sortForOffsetMerge(keys, offset)

	cache := query.NewCacheMap(query.DefaultBlockCacheSize)
	var report MergeReport

	for _, key := range keys {
		blockPos := spatial.FromBlockKey(key)
		dstBlock, ok, err := decodeGeneratedAt(dstDB, key, &report.BlocksFailed, status)
		if err != nil {
			return report, err
		}
		if !ok {
			continue
		}

		dstPartAbs, ok := dstArea.AbsBlockOverlap(blockPos)
		if !ok {
			continue
		}
		srcPartAbs := dstPartAbs.Sub(offset)

		for _, srcBlockPos := range blockPositionsTouching(srcPartAbs.ToTouchingBlockArea()) {
			srcBlock, err := fetchCached(srcDB, cache, srcBlockPos.ToBlockKey())
			if err != nil {
				continue
			}
			srcFragAbs, ok := srcPartAbs.AbsBlockOverlap(srcBlockPos)
			if !ok {
				continue
			}
			dstFragAbs := srcFragAbs.Add(offset)
			srcFragRel, ok1 := srcFragAbs.RelBlockOverlap(srcBlockPos)
			dstFragRel, ok2 := dstFragAbs.RelBlockOverlap(blockPos)
			if !ok1 || !ok2 {
				continue
			}
			MergeBlocks(srcBlock, dstBlock, srcFragRel, dstFragRel)
			MergeMetadata(srcBlock, dstBlock, srcFragRel, dstFragRel)
		}

		CleanNameIDMap(dstBlock)
		if err := dstDB.SetBlock(key, dstBlock.Encode()); err != nil {
			return report, err
		}
		report.BlocksWritten++
		status.BlockDone()
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// fetchCached decodes the block at key from db, or returns the cached
// outcome of a previous fetch within this command.
func fetchCached(db *mapdb.DB, cache *query.CacheMap, key int64) (*mapblock.MapBlock, error) {
	if v, ok := cache.Get(key); ok {
		e := v.(cacheEntry)
		return e.block, e.err
	}
	block, err := decodeForRead(db, key)
	cache.Insert(key, cacheEntry{block: block, err: err})
	return block, err
}

func decodeForRead(db *mapdb.DB, key int64) (*mapblock.MapBlock, error) {
	blob, err := db.GetBlock(key)
	if err != nil {
		return nil, err
	}
	if !mapblock.IsValidGenerated(blob) {
		return nil, errors.New("commands: source block is not a valid generated block")
	}
	return mapblock.Decode(blob)
}

// blockKeysTouching returns the block key for every block position
// whose cube touches area.
func blockKeysTouching(area spatial.Area) []int64 {
	touching := area.ToTouchingBlockArea()
	var keys []int64
	it := touching.Iterator()
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		keys = append(keys, p.ToBlockKey())
	}
	return keys
}

// blockPositionsTouching returns every block position in a block-area
// (already in block-position units, e.g. the result of
// Area.ToTouchingBlockArea).
func blockPositionsTouching(blockArea spatial.Area) []spatial.Vec3 {
	var positions []spatial.Vec3
	it := blockArea.Iterator()
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		positions = append(positions, p)
	}
	return positions
}

// sortForOffsetMerge orders keys so that block-iteration order never
// reads a source block that this pass has already overwritten as a
// destination: it sorts by the block key of block_pos*sortDir+sortOff,
// where sortDir is sign(-offset) componentwise (zero maps to +1) and
// sortOff is -1 on axes where sortDir is -1 (keeping the remapped
// position within the legal block-key range).
func sortForOffsetMerge(keys []int64, offset spatial.Vec3) {
	dir := spatial.New(signOfNeg(offset.X), signOfNeg(offset.Y), signOfNeg(offset.Z))
	off := spatial.New(offsetFor(dir.X), offsetFor(dir.Y), offsetFor(dir.Z))
	sort.Slice(keys, func(i, j int) bool {
		return remapSortKey(keys[i], dir, off) < remapSortKey(keys[j], dir, off)
	})
}

func signOfNeg(c int32) int32 {
	switch {
	case -c > 0:
		return 1
	case -c < 0:
		return -1
	default:
		return 1
	}
}

func offsetFor(dir int32) int32 {
	if dir == -1 {
		return -1
	}
	return 0
}

func remapSortKey(key int64, dir, off spatial.Vec3) int64 {
	bp := spatial.FromBlockKey(key)
	remapped := spatial.New(bp.X*dir.X+off.X, bp.Y*dir.Y+off.Y, bp.Z*dir.Z+off.Z)
	return remapped.ToBlockKey()
}
