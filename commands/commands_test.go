package commands

import (
	"database/sql"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/grailbio/mapeditr/mapblock"
	"github.com/grailbio/mapeditr/mapdb"
	"github.com/grailbio/mapeditr/spatial"
)

// fakeReporter is a no-op commands.Reporter for tests that don't care
// about the status protocol.
type fakeReporter struct{}

func (fakeReporter) BeginQuerying()  {}
func (fakeReporter) SetTotal(int)    {}
func (fakeReporter) EndQuerying()    {}
func (fakeReporter) BeginEditing()   {}
func (fakeReporter) EndEditing()     {}
func (fakeReporter) BlockDone()      {}
func (fakeReporter) BlockFailed()    {}

// newTestDB creates a fresh sqlite file with the blocks(pos, data)
// schema mapdb expects, and opens it read-write.
func newTestDB(t *testing.T) *mapdb.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.sqlite")
	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = conn.Exec(`CREATE TABLE blocks (pos INTEGER PRIMARY KEY, data BLOB)`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	db, err := mapdb.Open(path, false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func putBlock(t *testing.T, db *mapdb.DB, pos spatial.Vec3, b *mapblock.MapBlock) {
	t.Helper()
	require.NoError(t, db.SetBlock(pos.ToBlockKey(), b.Encode()))
	require.NoError(t, db.CommitIfNeeded())
}

func getBlock(t *testing.T, db *mapdb.DB, pos spatial.Vec3) *mapblock.MapBlock {
	t.Helper()
	blob, err := db.GetBlock(pos.ToBlockKey())
	require.NoError(t, err)
	block, err := mapblock.Decode(blob)
	require.NoError(t, err)
	return block
}

func allAirBlock() *mapblock.MapBlock {
	return mapblock.NewEmptyBlock(mapblock.MaxVersion)
}

func TestCleanNameIDMapIdempotent(t *testing.T) {
	b := allAirBlock()
	stoneID := b.AllocateID([]byte("default:stone"))
	dirtID := b.AllocateID([]byte("default:dirt"))
	b.NodeData.Nodes[0] = stoneID
	b.NodeData.Nodes[1] = dirtID
	// dirt never actually used after this overwrite, so clean should drop it.
	b.NodeData.Nodes[1] = stoneID

	CleanNameIDMap(b)
	firstLen := b.NIMap.Len()
	firstIDs := append([]uint16{}, b.NIMap.SortedIDs()...)

	CleanNameIDMap(b)
	assert.Equal(t, firstLen, b.NIMap.Len())
	assert.Equal(t, firstIDs, b.NIMap.SortedIDs())

	name, ok := b.NIMap.Get(b.NodeData.Nodes[0])
	require.True(t, ok)
	assert.Equal(t, []byte("default:stone"), name)
}

func TestFillWithInvert(t *testing.T) {
	db := newTestDB(t)
	b := allAirBlock()
	stoneID := b.AllocateID([]byte("default:stone"))
	for i := range b.NodeData.Nodes {
		b.NodeData.Nodes[i] = stoneID
	}
	b.MarkNodeDataModified()
	putBlock(t, db, spatial.New(0, 0, 0), b)

	area := spatial.NewArea(spatial.New(4, 4, 4), spatial.New(11, 11, 11))
	report, err := Fill(db, fakeReporter{}, FillArgs{Area: area, Invert: true, NewNode: []byte("air")})
	require.NoError(t, err)
	assert.Greater(t, report.NodesSet, int64(0))

	got := getBlock(t, db, spatial.New(0, 0, 0))
	insideID, ok := got.NIMap.GetID([]byte("default:stone"))
	require.True(t, ok)
	it := area.Iterator()
	for {
		p, ok := it.Next()
		if !ok {
			break
		}
		assert.Equal(t, insideID, got.NodeData.Nodes[p.LinearIndex()])
	}
	outsideAirID, ok := got.NIMap.GetID([]byte("air"))
	require.True(t, ok)
	assert.Equal(t, outsideAirID, got.NodeData.Nodes[0])
}

func TestReplaceNodesEliminatesOldID(t *testing.T) {
	db := newTestDB(t)
	b := allAirBlock()
	stoneID := b.AllocateID([]byte("default:stone"))
	dirtID := b.AllocateID([]byte("default:dirt"))
	grassID := b.AllocateID([]byte("default:grass"))
	b.NodeData.Nodes[0] = stoneID
	b.NodeData.Nodes[1] = dirtID
	b.NodeData.Nodes[2] = grassID
	b.MarkNodeDataModified()
	putBlock(t, db, spatial.New(0, 0, 0), b)

	report, err := ReplaceNodes(db, fakeReporter{}, ReplaceNodesArgs{
		Old: []byte("default:dirt"),
		New: []byte("default:stone"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.NodesReplaced)

	got := getBlock(t, db, spatial.New(0, 0, 0))
	_, hasDirt := got.NIMap.GetID([]byte("default:dirt"))
	assert.False(t, hasDirt)
	grassID2, ok := got.NIMap.GetID([]byte("default:grass"))
	require.True(t, ok)
	assert.Equal(t, grassID2, got.NodeData.Nodes[2])
	stoneID2, ok := got.NIMap.GetID([]byte("default:stone"))
	require.True(t, ok)
	assert.Equal(t, stoneID2, got.NodeData.Nodes[1])
}

func TestCloneWithinOneDB(t *testing.T) {
	db := newTestDB(t)
	src := allAirBlock()
	aID := src.AllocateID([]byte("mod:a"))
	src.NodeData.Nodes[0] = aID
	src.MarkNodeDataModified()
	putBlock(t, db, spatial.New(0, 0, 0), src)

	// The destination block must already exist as a generated row: clone
	// never invents map data mapgen hasn't produced yet.
	putBlock(t, db, spatial.New(1, 0, 0), allAirBlock())

	report, err := Clone(db, fakeReporter{}, CloneArgs{
		SrcArea: spatial.NewArea(spatial.New(0, 0, 0), spatial.New(0, 0, 0)),
		Offset:  spatial.New(16, 0, 0),
	})
	require.NoError(t, err)
	assert.Greater(t, report.BlocksWritten, int64(0))

	dst := getBlock(t, db, spatial.New(1, 0, 0))
	name, ok := dst.NIMap.Get(dst.NodeData.Nodes[0])
	require.True(t, ok)
	assert.Equal(t, []byte("mod:a"), name)

	srcAfter := getBlock(t, db, spatial.New(0, 0, 0))
	srcName, ok := srcAfter.NIMap.Get(srcAfter.NodeData.Nodes[0])
	require.True(t, ok)
	assert.Equal(t, []byte("mod:a"), srcName)
}

func TestCloneSkipsUngeneratedDestination(t *testing.T) {
	db := newTestDB(t)
	src := allAirBlock()
	aID := src.AllocateID([]byte("mod:a"))
	src.NodeData.Nodes[0] = aID
	src.MarkNodeDataModified()
	putBlock(t, db, spatial.New(0, 0, 0), src)

	// No row at (1,0,0): clone must skip it rather than synthesize one,
	// or mapgen would never be able to populate that position.
	report, err := Clone(db, fakeReporter{}, CloneArgs{
		SrcArea: spatial.NewArea(spatial.New(0, 0, 0), spatial.New(0, 0, 0)),
		Offset:  spatial.New(16, 0, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.BlocksWritten)
	assert.Equal(t, int64(0), report.BlocksFailed)

	_, err = db.GetBlock(spatial.New(1, 0, 0).ToBlockKey())
	assert.ErrorIs(t, err, mapdb.ErrMissingData)
}

// encodeLuaEntityFixture builds the raw payload mapblock.DecodeLuaEntity
// expects: sub-version 1, then string16(name), then string32(data).
func encodeLuaEntityFixture(name, data string) []byte {
	buf := []byte{1}
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], uint16(len(name)))
	buf = append(buf, u16[:]...)
	buf = append(buf, name...)
	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], uint32(len(data)))
	buf = append(buf, u32[:]...)
	buf = append(buf, data...)
	return buf
}

func TestDeleteObjectsByItemName(t *testing.T) {
	db := newTestDB(t)
	b := allAirBlock()
	b.StaticObjects = []mapblock.StaticObject{
		{Type: 7, FPos: spatial.New(0, 0, 0), Data: encodeLuaEntityFixture("__builtin:item", `itemstring="mod:a"`)},
		{Type: 7, FPos: spatial.New(0, 0, 0), Data: encodeLuaEntityFixture("__builtin:item", `itemstring="mod:b"`)},
	}
	putBlock(t, db, spatial.New(0, 0, 0), b)

	report, err := DeleteObjects(db, fakeReporter{}, DeleteObjectsArgs{Items: [][]byte{[]byte("mod:a")}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.ObjectsDeleted)

	got := getBlock(t, db, spatial.New(0, 0, 0))
	require.Len(t, got.StaticObjects, 1)
	ent, err := mapblock.DecodeLuaEntity(&got.StaticObjects[0])
	require.NoError(t, err)
	name, ok := parseItemName(ent.Data)
	require.True(t, ok)
	assert.Equal(t, []byte("mod:b"), name)
}
