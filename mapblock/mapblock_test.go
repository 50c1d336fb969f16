package mapblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBlock(version uint8) *MapBlock {
	b := &MapBlock{
		Version:          version,
		Flags:            0,
		LightingComplete: 0xFFFF,
		Timestamp:        12345,
		NodeData:         &NodeData{},
		NIMap:            newNameIdMap(),
		Metadata:         newNodeMetadataList(),
	}
	b.NIMap.Set(0, []byte("air"))
	b.NIMap.Set(1, []byte("default:stone"))
	for i := range b.NodeData.Nodes {
		if i%7 == 0 {
			b.NodeData.Nodes[i] = 1
		}
	}
	meta := newNodeMetadata()
	meta.Vars["formspec"] = metaVar{Val: []byte("size[4,1]"), Private: false}
	meta.Inv = append([]byte("List main 1\nWidth 0\nEmpty\nEndInventoryList\n"), endInventoryMarker...)
	b.Metadata.Set(0x10, meta)
	b.StaticObjects = []StaticObject{}
	b.NodeTimers = []NodeTimer{{Pos: 5, Timeout: 10, Elapsed: 2}}
	return b
}

func TestRoundTripAllVersions(t *testing.T) {
	for _, v := range []uint8{25, 27, 28, 29} {
		v := v
		t.Run(string(rune('0'+v%10)), func(t *testing.T) {
			b := sampleBlock(v)
			blob := b.Encode()
			got, err := Decode(blob)
			require.NoError(t, err)
			assert.Equal(t, b.Version, got.Version)
			assert.Equal(t, b.Flags, got.Flags)
			assert.Equal(t, b.Timestamp, got.Timestamp)
			assert.Equal(t, b.NodeData.Nodes, got.NodeData.Nodes)
			name0, ok := got.NIMap.Get(0)
			require.True(t, ok)
			assert.Equal(t, []byte("air"), name0)
			name1, ok := got.NIMap.Get(1)
			require.True(t, ok)
			assert.Equal(t, []byte("default:stone"), name1)
			gotMeta, ok := got.Metadata.Get(0x10)
			require.True(t, ok)
			assert.Equal(t, []byte("size[4,1]"), gotMeta.Vars["formspec"].Val)
			require.Len(t, got.NodeTimers, 1)
			assert.Equal(t, NodeTimer{Pos: 5, Timeout: 10, Elapsed: 2}, got.NodeTimers[0])

			if v >= firstLightingVersion {
				assert.Equal(t, b.LightingComplete, got.LightingComplete)
			} else {
				assert.Equal(t, uint16(0xFFFF), got.LightingComplete)
			}
		})
	}
}

func TestDecodeIdempotence(t *testing.T) {
	for _, v := range []uint8{25, 28, 29} {
		b := sampleBlock(v)
		blob1 := b.Encode()
		decoded1, err := Decode(blob1)
		require.NoError(t, err)
		blob2 := decoded1.Encode()
		decoded2, err := Decode(blob2)
		require.NoError(t, err)
		assert.Equal(t, decoded1.NodeData.Nodes, decoded2.NodeData.Nodes)
		assert.Equal(t, decoded1.Timestamp, decoded2.Timestamp)
	}
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	_, err := Decode([]byte{24, 0})
	require.Error(t, err)
	assert.True(t, IsKind(err, InvalidBlockVersion))

	_, err = Decode([]byte{30, 0})
	require.Error(t, err)
	assert.True(t, IsKind(err, InvalidBlockVersion))
}

func TestDecodeRejectsEmptyBlob(t *testing.T) {
	_, err := Decode(nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, BadData))
}

func TestDecodeRejectsTruncatedBuffer(t *testing.T) {
	b := sampleBlock(25)
	blob := b.Encode()
	_, err := Decode(blob[:len(blob)-5])
	require.Error(t, err)
}

func TestDecodeRejectsBadContentWidth(t *testing.T) {
	b := sampleBlock(25)
	blob := b.Encode()
	// Byte layout for v25: [version][flags][content_width][params_width]...
	corrupt := append([]byte(nil), blob...)
	corrupt[2] = 3 // content_width
	_, err := Decode(corrupt)
	require.Error(t, err)
	assert.True(t, IsKind(err, InvalidFeature))
}

func TestIsValidGenerated(t *testing.T) {
	b := sampleBlock(28)
	blob := b.Encode()
	assert.True(t, IsValidGenerated(blob))

	b.Flags = NotGeneratedFlag
	blob = b.Encode()
	assert.False(t, IsValidGenerated(blob))

	assert.False(t, IsValidGenerated([]byte{1}))
	assert.False(t, IsValidGenerated(nil))

	b29 := sampleBlock(29)
	blob29 := b29.Encode()
	assert.True(t, IsValidGenerated(blob29))
}

func TestNameIdMapRemoveShift(t *testing.T) {
	m := newNameIdMap()
	m.Set(0, []byte("a"))
	m.Set(1, []byte("b"))
	m.Set(2, []byte("c"))
	m.RemoveShift(1)
	assert.Equal(t, 2, m.Len())
	n0, _ := m.Get(0)
	assert.Equal(t, []byte("a"), n0)
	n1, _ := m.Get(1)
	assert.Equal(t, []byte("c"), n1)
	_, ok := m.Get(2)
	assert.False(t, ok)
}

func TestNodeMetadataIsEmpty(t *testing.T) {
	m := newNodeMetadata()
	m.Inv = endInventoryMarker
	assert.True(t, m.IsEmpty())

	m.Vars["x"] = metaVar{Val: []byte("y")}
	assert.False(t, m.IsEmpty())
}

func TestMetadataMissingTerminatorIsBadData(t *testing.T) {
	r := newReader([]byte{0, 0, 0, 0}) // var_count=0, then no EndInventory
	_, err := decodeNodeMetadata(r, 2)
	require.Error(t, err)
	assert.True(t, IsKind(err, BadData))
}

func TestLuaEntityRequiresObjectType7(t *testing.T) {
	obj := &StaticObject{Type: 1, Data: []byte{1, 0, 3, 'f', 'o', 'o'}}
	_, err := DecodeLuaEntity(obj)
	require.Error(t, err)
	assert.True(t, IsKind(err, InvalidFeature))
}
