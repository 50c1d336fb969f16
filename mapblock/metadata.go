package mapblock

import (
	"bytes"
	"compress/zlib"
	"io"
	"sort"
)

// endInventoryMarker terminates every node metadata's inventory stream.
var endInventoryMarker = []byte("EndInventory\n")

// metaVar is one variable of a NodeMetadata: a value plus the private
// flag introduced in sub-version 2.
type metaVar struct {
	Val     []byte
	Private bool
}

// NodeMetadata is the per-node metadata record: a set of named
// variables plus a raw, human-readable inventory byte stream.
type NodeMetadata struct {
	Vars map[string]metaVar
	Inv  []byte
}

func newNodeMetadata() *NodeMetadata {
	return &NodeMetadata{Vars: make(map[string]metaVar)}
}

// NewNodeMetadata returns an empty metadata record with an empty
// inventory (just the terminator), for edit operators that create a
// fresh entry at a position that previously had none.
func NewNodeMetadata() *NodeMetadata {
	m := newNodeMetadata()
	m.Inv = append([]byte(nil), endInventoryMarker...)
	return m
}

// SetVar installs or overwrites the variable named name on m.
func (m *NodeMetadata) SetVar(name string, val []byte, private bool) {
	m.Vars[name] = metaVar{Val: val, Private: private}
}

// DeleteVar removes the variable named name, if present.
func (m *NodeMetadata) DeleteVar(name string) {
	delete(m.Vars, name)
}

// GetVar returns the value of the variable named name, or (nil, false).
func (m *NodeMetadata) GetVar(name string) ([]byte, bool) {
	v, ok := m.Vars[name]
	if !ok {
		return nil, false
	}
	return v.Val, true
}

// IsEmpty reports whether the record has no variables and an inventory
// stream that is just the empty terminator — the condition under which
// serialize drops the entry entirely.
func (m *NodeMetadata) IsEmpty() bool {
	return len(m.Vars) == 0 && bytes.HasPrefix(m.Inv, endInventoryMarker)
}

// Clone returns a deep copy.
func (m *NodeMetadata) Clone() *NodeMetadata {
	out := newNodeMetadata()
	for k, v := range m.Vars {
		val := make([]byte, len(v.Val))
		copy(val, v.Val)
		out.Vars[k] = metaVar{Val: val, Private: v.Private}
	}
	out.Inv = append([]byte(nil), m.Inv...)
	return out
}

func decodeNodeMetadata(r *reader, subVersion uint8) (*NodeMetadata, error) {
	varCount, err := r.readU32()
	if err != nil {
		return nil, err
	}
	m := newNodeMetadata()
	n := capAlloc(int(varCount), 64)
	m.Vars = make(map[string]metaVar, n)

	for i := uint32(0); i < varCount; i++ {
		name, err := r.readString16()
		if err != nil {
			return nil, err
		}
		val, err := r.readString32()
		if err != nil {
			return nil, err
		}
		private := false
		if subVersion >= 2 {
			p, err := r.readU8()
			if err != nil {
				return nil, err
			}
			private = p != 0
		}
		m.Vars[string(name)] = metaVar{Val: val, Private: private}
	}

	rest := r.buf[r.pos:]
	end := bytes.Index(rest, endInventoryMarker)
	if end < 0 {
		return nil, newErr(BadData, "node metadata inventory missing EndInventory terminator")
	}
	invLen := end + len(endInventoryMarker)
	inv, err := r.tryReadN(invLen)
	if err != nil {
		return nil, err
	}
	m.Inv = append([]byte(nil), inv...)
	return m, nil
}

func (m *NodeMetadata) encode(w *writer, subVersion uint8) {
	w.writeU32(uint32(len(m.Vars)))
	names := make([]string, 0, len(m.Vars))
	for n := range m.Vars {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		v := m.Vars[name]
		w.writeString16([]byte(name))
		w.writeString32(v.Val)
		if subVersion >= 2 {
			if v.Private {
				w.writeU8(1)
			} else {
				w.writeU8(0)
			}
		}
	}
	w.writeBytes(m.Inv)
}

// NodeMetadataList is the per-block map from intra-block index to
// NodeMetadata, ordered by key on the wire.
type NodeMetadataList struct {
	entries map[uint16]*NodeMetadata
}

func newNodeMetadataList() *NodeMetadataList {
	return &NodeMetadataList{entries: make(map[uint16]*NodeMetadata)}
}

// NewNodeMetadataList returns an empty metadata list.
func NewNodeMetadataList() *NodeMetadataList {
	return newNodeMetadataList()
}

// Len returns the number of entries (including empty ones not yet
// pruned).
func (l *NodeMetadataList) Len() int {
	return len(l.entries)
}

// Get returns the metadata at pos, or (nil, false).
func (l *NodeMetadataList) Get(pos uint16) (*NodeMetadata, bool) {
	m, ok := l.entries[pos]
	return m, ok
}

// Set installs meta at pos.
func (l *NodeMetadataList) Set(pos uint16, meta *NodeMetadata) {
	l.entries[pos] = meta
}

// Delete removes the entry at pos, if present.
func (l *NodeMetadataList) Delete(pos uint16) {
	delete(l.entries, pos)
}

// SortedPositions returns every key in ascending order.
func (l *NodeMetadataList) SortedPositions() []uint16 {
	ps := make([]uint16, 0, len(l.entries))
	for p := range l.entries {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	return ps
}

// Range calls f for every entry in ascending key order, stopping early
// if f returns false.
func (l *NodeMetadataList) Range(f func(pos uint16, meta *NodeMetadata) bool) {
	for _, p := range l.SortedPositions() {
		if !f(p, l.entries[p]) {
			return
		}
	}
}

func decodeNodeMetadataList(r *reader) (*NodeMetadataList, error) {
	version, err := r.readU8()
	if err != nil {
		return nil, err
	}
	if version > 2 {
		return nil, newErr(InvalidSubVersion, "node metadata sub-version %d", version)
	}

	var count uint16
	if version != 0 {
		count, err = r.readU16()
		if err != nil {
			return nil, err
		}
	}

	list := newNodeMetadataList()
	for i := 0; i < int(count); i++ {
		pos, err := r.readU16()
		if err != nil {
			return nil, err
		}
		meta, err := decodeNodeMetadata(r, version)
		if err != nil {
			return nil, err
		}
		list.entries[pos] = meta
	}
	return list, nil
}

// encode writes the plain (uncompressed) wire form of the list, using
// sub-version 2 for block versions >= 28 and 1 otherwise, and dropping
// entries that are empty.
func (l *NodeMetadataList) encode(w *writer, blockVersion uint8) {
	count := 0
	for _, p := range l.SortedPositions() {
		if !l.entries[p].IsEmpty() {
			count++
		}
	}

	if count == 0 {
		w.writeU8(0)
		return
	}

	subVersion := uint8(1)
	if blockVersion >= 28 {
		subVersion = 2
	}
	w.writeU8(subVersion)
	w.writeU16(uint16(count))
	for _, p := range l.SortedPositions() {
		meta := l.entries[p]
		if meta.IsEmpty() {
			continue
		}
		w.writeU16(p)
		meta.encode(w, subVersion)
	}
}

// decodeNodeMetadataListCompressed reads a zlib frame (the v<=28 on-disk
// form) containing the plain wire form above. It returns the decoded
// list together with the exact compressed bytes consumed, so an
// unmodified NodeMetadataList can be re-emitted byte-for-byte.
func decodeNodeMetadataListCompressed(r *reader) (*NodeMetadataList, []byte, error) {
	start := r.pos
	br := bytes.NewReader(r.buf[r.pos:])
	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, nil, newErr(BadData, "zlib: %v", err)
	}
	defer zr.Close()

	plain, err := io.ReadAll(zr)
	if err != nil {
		return nil, nil, newErr(BadData, "zlib: %v", err)
	}

	inner := newReader(plain)
	list, err := decodeNodeMetadataList(inner)
	if err != nil {
		return nil, nil, err
	}
	if inner.remaining() > 0 {
		return nil, nil, newErr(BadData, "trailing bytes after NodeMetadataList payload")
	}

	consumed := len(r.buf[r.pos:]) - br.Len()
	raw := r.buf[start : start+consumed]
	r.pos = start + consumed
	return list, raw, nil
}

// compressNodeMetadataList zlib-compresses the plain wire form at
// default compression.
func compressNodeMetadataList(l *NodeMetadataList, blockVersion uint8) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	w := newWriter()
	l.encode(w, blockVersion)
	if _, err := zw.Write(w.Bytes()); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
