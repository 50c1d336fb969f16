package mapblock

import (
	"bytes"
	"sort"
)

// NameIdMap is the per-block name-interning table: a bijection from a
// dense-ish u16 ID space to node name byte strings. Decode may leave
// gaps in the ID space (a name removed by a prior edit);
// commands.CleanNameIDMap (commands/merge.go) restores density.
//
// The table is small (the original notes typically <= 256 entries), so
// it is kept as a plain map plus an explicit ordered-key helper rather
// than a general-purpose balanced tree: every operation the format
// needs (ordered iteration by key, a linear scan by name, largest key,
// remove-with-shift) is simpler and no slower expressed this way than
// through a boxed-Comparable tree, and avoids spending a dependency on
// a generic container for a handful of entries.
type NameIdMap struct {
	entries map[uint16][]byte
}

func newNameIdMap() *NameIdMap {
	return &NameIdMap{entries: make(map[uint16][]byte)}
}

// NewNameIdMap returns an empty name-ID map, for edit operators that
// rebuild a block's map from scratch (e.g. fill on a fully-covered
// block).
func NewNameIdMap() *NameIdMap {
	return newNameIdMap()
}

// Len returns the number of entries.
func (m *NameIdMap) Len() int {
	return len(m.entries)
}

// Get returns the name for id, or (nil, false).
func (m *NameIdMap) Get(id uint16) ([]byte, bool) {
	n, ok := m.entries[id]
	return n, ok
}

// Set installs name at id, overwriting any existing entry.
func (m *NameIdMap) Set(id uint16, name []byte) {
	m.entries[id] = name
}

// Delete removes id, if present.
func (m *NameIdMap) Delete(id uint16) {
	delete(m.entries, id)
}

// GetID performs the linear scan the original uses to resolve a name to
// its ID: tables are small enough that this beats maintaining a reverse
// index.
func (m *NameIdMap) GetID(name []byte) (uint16, bool) {
	for id, n := range m.entries {
		if bytes.Equal(n, name) {
			return id, true
		}
	}
	return 0, false
}

// GetMaxID returns the largest key present, or (0, false) if the map is
// empty.
func (m *NameIdMap) GetMaxID() (uint16, bool) {
	if len(m.entries) == 0 {
		return 0, false
	}
	var max uint16
	first := true
	for id := range m.entries {
		if first || id > max {
			max = id
			first = false
		}
	}
	return max, true
}

// SortedIDs returns every key in ascending order.
func (m *NameIdMap) SortedIDs() []uint16 {
	ids := make([]uint16, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RemoveShift deletes id and shifts every greater key down by one,
// closing the gap. Used after the last occurrence of a node has been
// replaced, so the ID space stays dense.
func (m *NameIdMap) RemoveShift(id uint16) {
	delete(m.entries, id)
	for _, k := range m.SortedIDs() {
		if k > id {
			name := m.entries[k]
			delete(m.entries, k)
			m.entries[k-1] = name
		}
	}
}

// Clone returns a deep copy.
func (m *NameIdMap) Clone() *NameIdMap {
	out := newNameIdMap()
	for id, name := range m.entries {
		cp := make([]byte, len(name))
		copy(cp, name)
		out.entries[id] = cp
	}
	return out
}

func decodeNameIdMap(r *reader) (*NameIdMap, error) {
	version, err := r.readU8()
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, newErr(InvalidSubVersion, "name-ID map sub-version %d", version)
	}
	count, err := r.readU16()
	if err != nil {
		return nil, err
	}
	m := newNameIdMap()
	for i := 0; i < int(count); i++ {
		id, err := r.readU16()
		if err != nil {
			return nil, err
		}
		name, err := r.readString16()
		if err != nil {
			return nil, err
		}
		m.entries[id] = name
	}
	return m, nil
}

func (m *NameIdMap) encode(w *writer) {
	w.writeU8(0) // sub-version
	ids := m.SortedIDs()
	w.writeU16(uint16(len(ids)))
	for _, id := range ids {
		w.writeU16(id)
		w.writeString16(m.entries[id])
	}
}
