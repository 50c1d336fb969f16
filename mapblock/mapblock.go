// Package mapblock implements the byte-exact codec for a single 16x16x16
// Minetest mapblock: decoding and re-encoding every on-disk block
// version from 25 through 29, including its name-ID map, node metadata,
// static objects, and node timers.
package mapblock

// NotGeneratedFlag is the mapblock flags bit meaning "this block has
// not yet been mapgen-populated".
const NotGeneratedFlag uint8 = 0x08

// requiredWidth is the only supported content/param width.
const requiredWidth uint8 = 2

// MinVersion and MaxVersion bound the set of block versions this codec
// reads. 26 is reserved (network-only) and never expected on disk, but
// it decodes with the same layout as 25 since no on-disk format ever
// actually used it.
const (
	MinVersion = 25
	MaxVersion = 29
	// firstTimestampV29 is the version at which the name-ID map and
	// timestamp move to the front of the per-block layout.
	firstTimestampV29 = 29
	// firstLightingVersion is the version at which lighting_complete
	// starts being serialized.
	firstLightingVersion = 27
)

// MapBlock is one decoded 16^3 mapblock, ready for mutation by an edit
// operator and re-encoding back to its wire form.
type MapBlock struct {
	Version           uint8
	Flags             uint8
	LightingComplete  uint16
	Timestamp         uint32
	NodeData          *NodeData
	NIMap             *NameIdMap
	Metadata          *NodeMetadataList
	StaticObjects     []StaticObject
	NodeTimers        []NodeTimer

	// nodeDataRaw caches the exact compressed bytes NodeData was
	// decoded from (version <= 28 only); Encode reuses it verbatim when
	// NodeData hasn't been mutated since decode, preserving byte
	// identity for anything this command didn't touch.
	nodeDataRaw      []byte
	nodeDataModified bool

	// metadataRaw is NodeMetadataList's sibling cache of the same kind,
	// for the same reason.
	metadataRaw      []byte
	metadataModified bool
}

// NewEmptyBlock returns a freshly generated, all-air block of the given
// version: a name-ID map of {0: air}, every node 0, and no metadata,
// static objects or node timers.
func NewEmptyBlock(version uint8) *MapBlock {
	b := &MapBlock{
		Version:          version,
		Flags:            0,
		LightingComplete: 0xFFFF,
		NodeData:         &NodeData{},
		NIMap:            newNameIdMap(),
		Metadata:         newNodeMetadataList(),
	}
	b.NIMap.Set(0, []byte("air"))
	b.MarkNodeDataModified()
	b.MarkMetadataModified()
	return b
}

// AllocateID returns the ID for name in the block's name-ID map,
// inserting it at one past the current maximum if it isn't already
// present.
func (b *MapBlock) AllocateID(name []byte) uint16 {
	if id, ok := b.NIMap.GetID(name); ok {
		return id
	}
	var next uint16
	if max, ok := b.NIMap.GetMaxID(); ok {
		next = max + 1
	}
	b.NIMap.Set(next, name)
	return next
}

// isSupportedVersion reports whether v is a version this codec reads.
func isSupportedVersion(v uint8) bool {
	return v >= MinVersion && v <= MaxVersion
}

// MarkNodeDataModified must be called by any edit operator that mutates
// block.NodeData directly, so Encode knows to recompute the
// (version <= 28) zlib frame rather than reusing the cached original.
func (b *MapBlock) MarkNodeDataModified() {
	b.nodeDataModified = true
}

// MarkMetadataModified must be called by any edit operator that mutates
// block.Metadata directly, so Encode knows to recompute the
// (version <= 28) zlib frame rather than reusing the cached original.
func (b *MapBlock) MarkMetadataModified() {
	b.metadataModified = true
}

// Decode parses a raw mapblock blob (database value).
func Decode(blob []byte) (*MapBlock, error) {
	if len(blob) < 1 {
		return nil, newErr(BadData, "empty mapblock blob")
	}
	version := blob[0]
	if !isSupportedVersion(version) {
		return nil, newErr(InvalidBlockVersion, "version %d", version)
	}

	body := blob[1:]
	if version >= firstTimestampV29 {
		decompressed, err := decompressZstd(body)
		if err != nil {
			return nil, err
		}
		body = decompressed
	}

	r := newReader(body)
	b := &MapBlock{Version: version}

	flags, err := r.readU8()
	if err != nil {
		return nil, err
	}
	b.Flags = flags

	if version >= firstLightingVersion {
		lc, err := r.readU16()
		if err != nil {
			return nil, err
		}
		b.LightingComplete = lc
	} else {
		b.LightingComplete = 0xFFFF
	}

	if version >= firstTimestampV29 {
		ts, err := r.readU32()
		if err != nil {
			return nil, err
		}
		b.Timestamp = ts
		nimap, err := decodeNameIdMap(r)
		if err != nil {
			return nil, err
		}
		b.NIMap = nimap
	}

	contentWidth, err := r.readU8()
	if err != nil {
		return nil, err
	}
	paramsWidth, err := r.readU8()
	if err != nil {
		return nil, err
	}
	if contentWidth != requiredWidth || paramsWidth != requiredWidth {
		return nil, newErr(InvalidFeature, "content_width=%d params_width=%d", contentWidth, paramsWidth)
	}

	if version >= firstTimestampV29 {
		nd, err := decodeNodeData(r)
		if err != nil {
			return nil, err
		}
		b.NodeData = nd
	} else {
		nd, raw, err := decodeNodeDataCompressed(r)
		if err != nil {
			return nil, err
		}
		b.NodeData = nd
		b.nodeDataRaw = raw
	}

	if version >= firstTimestampV29 {
		ml, err := decodeNodeMetadataList(r)
		if err != nil {
			return nil, err
		}
		b.Metadata = ml
	} else {
		ml, raw, err := decodeNodeMetadataListCompressed(r)
		if err != nil {
			return nil, err
		}
		b.Metadata = ml
		b.metadataRaw = raw
	}

	objs, err := decodeStaticObjectList(r)
	if err != nil {
		return nil, err
	}
	b.StaticObjects = objs

	if version < firstTimestampV29 {
		ts, err := r.readU32()
		if err != nil {
			return nil, err
		}
		b.Timestamp = ts
		nimap, err := decodeNameIdMap(r)
		if err != nil {
			return nil, err
		}
		b.NIMap = nimap
	}

	timers, err := decodeNodeTimerList(r)
	if err != nil {
		return nil, err
	}
	b.NodeTimers = timers

	return b, nil
}

// Encode re-serializes the block to its wire form, inverting Decode.
func (b *MapBlock) Encode() []byte {
	w := newWriter()
	w.writeU8(b.Flags)
	if b.Version >= firstLightingVersion {
		w.writeU16(b.LightingComplete)
	}

	if b.Version >= firstTimestampV29 {
		w.writeU32(b.Timestamp)
		b.NIMap.encode(w)
	}

	w.writeU8(requiredWidth)
	w.writeU8(requiredWidth)

	if b.Version >= firstTimestampV29 {
		b.NodeData.encode(w)
	} else if !b.nodeDataModified && b.nodeDataRaw != nil {
		w.writeBytes(b.nodeDataRaw)
	} else {
		w.writeBytes(compressNodeData(b.NodeData))
	}

	if b.Version >= firstTimestampV29 {
		b.Metadata.encode(w, b.Version)
	} else if !b.metadataModified && b.metadataRaw != nil {
		w.writeBytes(b.metadataRaw)
	} else {
		w.writeBytes(compressNodeMetadataList(b.Metadata, b.Version))
	}

	encodeStaticObjectList(b.StaticObjects, w)

	if b.Version < firstTimestampV29 {
		w.writeU32(b.Timestamp)
		b.NIMap.encode(w)
	}

	encodeNodeTimerList(b.NodeTimers, w)

	body := w.Bytes()
	out := newWriter()
	out.writeU8(b.Version)
	if b.Version >= firstTimestampV29 {
		out.writeBytes(compressZstd(body))
	} else {
		out.writeBytes(body)
	}
	return out.Bytes()
}

// IsValidGenerated is a cheap prefilter used by edit operators before a
// full Decode: it reports whether blob looks like a well-formed
// mapblock whose "not generated" flag is clear, without building the
// full structured representation.
func IsValidGenerated(blob []byte) bool {
	if len(blob) < 2 {
		return false
	}
	version := blob[0]
	if !isSupportedVersion(version) {
		return false
	}

	var flags byte
	if version >= firstTimestampV29 {
		f, err := peekZstdFirstByte(blob[1:])
		if err != nil {
			return false
		}
		flags = f
	} else {
		flags = blob[1]
	}
	return flags&NotGeneratedFlag == 0
}
