package spatial

// Area is an axis-aligned box, inclusive on both ends on every axis.
// A well-formed Area always satisfies Min.X <= Max.X (and similarly for
// Y, Z); callers that build one from two unordered corners should use
// FromUnsorted.
type Area struct {
	Min, Max Vec3
}

// NewArea constructs an Area from already-sorted corners. It panics if
// the corners are not sorted (min > max on some axis) — mirroring the
// original's assert-on-construction discipline for this invariant.
func NewArea(min, max Vec3) Area {
	a := Area{Min: min, Max: max}
	if !a.IsValid() {
		panic("spatial: invalid area: min must be <= max on every axis")
	}
	return a
}

// FromUnsorted builds an Area from two corners in any order.
func FromUnsorted(a, b Vec3) Area {
	return Area{
		Min: Vec3{min32(a.X, b.X), min32(a.Y, b.Y), min32(a.Z, b.Z)},
		Max: Vec3{max32(a.X, b.X), max32(a.Y, b.Y), max32(a.Z, b.Z)},
	}
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

// IsValid reports whether Min <= Max on every axis.
func (a Area) IsValid() bool {
	return a.Min.X <= a.Max.X && a.Min.Y <= a.Max.Y && a.Min.Z <= a.Max.Z
}

// Volume returns the number of unit cells the area covers.
func (a Area) Volume() uint64 {
	return uint64(a.Max.X-a.Min.X+1) *
		uint64(a.Max.Y-a.Min.Y+1) *
		uint64(a.Max.Z-a.Min.Z+1)
}

// Contains reports whether pos lies inside the area.
func (a Area) Contains(pos Vec3) bool {
	return a.Min.X <= pos.X && pos.X <= a.Max.X &&
		a.Min.Y <= pos.Y && pos.Y <= a.Max.Y &&
		a.Min.Z <= pos.Z && pos.Z <= a.Max.Z
}

// ContainsBlock reports whether the 16^3 cube of the block at blockPos
// lies entirely inside the area.
func (a Area) ContainsBlock(blockPos Vec3) bool {
	corner := blockPos.Scale(16)
	return a.Min.X <= corner.X && corner.X+15 <= a.Max.X &&
		a.Min.Y <= corner.Y && corner.Y+15 <= a.Max.Y &&
		a.Min.Z <= corner.Z && corner.Z+15 <= a.Max.Z
}

// TouchesBlock reports whether the 16^3 cube of the block at blockPos
// intersects the area.
func (a Area) TouchesBlock(blockPos Vec3) bool {
	corner := blockPos.Scale(16)
	return a.Min.X <= corner.X+15 && corner.X <= a.Max.X &&
		a.Min.Y <= corner.Y+15 && corner.Y <= a.Max.Y &&
		a.Min.Z <= corner.Z+15 && corner.Z <= a.Max.Z
}

// ToContainedBlockArea returns the set of block positions wholly inside
// the area, or (zero, false) if no block is wholly contained.
func (a Area) ToContainedBlockArea() (Area, bool) {
	contained := Area{
		Min: Vec3{
			X: floorDivEuclid(a.Min.X+15, 16),
			Y: floorDivEuclid(a.Min.Y+15, 16),
			Z: floorDivEuclid(a.Min.Z+15, 16),
		},
		Max: Vec3{
			X: floorDivEuclid(a.Max.X-15, 16),
			Y: floorDivEuclid(a.Max.Y-15, 16),
			Z: floorDivEuclid(a.Max.Z-15, 16),
		},
	}
	if !contained.IsValid() {
		return Area{}, false
	}
	return contained, true
}

// ToTouchingBlockArea returns the set of block positions intersecting
// the area.
func (a Area) ToTouchingBlockArea() Area {
	return Area{
		Min: Vec3{
			X: floorDivEuclid(a.Min.X, 16),
			Y: floorDivEuclid(a.Min.Y, 16),
			Z: floorDivEuclid(a.Min.Z, 16),
		},
		Max: Vec3{
			X: floorDivEuclid(a.Max.X, 16),
			Y: floorDivEuclid(a.Max.Y, 16),
			Z: floorDivEuclid(a.Max.Z, 16),
		},
	}
}

// AbsBlockOverlap returns the intersection of the area with the block's
// cube, in absolute node coordinates, or (zero, false) if they don't
// intersect.
func (a Area) AbsBlockOverlap(blockPos Vec3) (Area, bool) {
	blockMin := blockPos.Scale(16)
	blockMax := blockMin.AddScalar(15)
	overlap := Area{
		Min: Vec3{max32(a.Min.X, blockMin.X), max32(a.Min.Y, blockMin.Y), max32(a.Min.Z, blockMin.Z)},
		Max: Vec3{min32(a.Max.X, blockMax.X), min32(a.Max.Y, blockMax.Y), min32(a.Max.Z, blockMax.Z)},
	}
	if !overlap.IsValid() {
		return Area{}, false
	}
	return overlap, true
}

// RelBlockOverlap is AbsBlockOverlap translated into [0,15]^3 coordinates
// relative to the block's own corner.
func (a Area) RelBlockOverlap(blockPos Vec3) (Area, bool) {
	corner := blockPos.Scale(16)
	relMin := a.Min.Sub(corner)
	relMax := a.Max.Sub(corner)
	overlap := Area{
		Min: Vec3{max32(relMin.X, 0), max32(relMin.Y, 0), max32(relMin.Z, 0)},
		Max: Vec3{min32(relMax.X, 15), min32(relMax.Y, 15), min32(relMax.Z, 15)},
	}
	if !overlap.IsValid() {
		return Area{}, false
	}
	return overlap, true
}

// Add translates the area by v.
func (a Area) Add(v Vec3) Area {
	return Area{Min: a.Min.Add(v), Max: a.Max.Add(v)}
}

// Sub translates the area by -v.
func (a Area) Sub(v Vec3) Area {
	return Area{Min: a.Min.Sub(v), Max: a.Max.Sub(v)}
}

// EQ reports whether a and b cover the same box.
func (a Area) EQ(b Area) bool {
	return a.Min.EQ(b.Min) && a.Max.EQ(b.Max)
}

// Iterator returns an AreaIterator over every Vec3 in the area, in
// z-outer / y-middle / x-inner order — matching the linear node index
// order (x + 16*y + 256*z).
func (a Area) Iterator() *AreaIterator {
	return &AreaIterator{min: a.Min, max: a.Max, pos: a.Min}
}

// AreaIterator walks every integer point in an Area.
type AreaIterator struct {
	min, max, pos Vec3
}

// Next returns the next position and true, or the zero Vec3 and false
// once iteration is exhausted.
func (it *AreaIterator) Next() (Vec3, bool) {
	if it.pos.Z > it.max.Z {
		return Vec3{}, false
	}
	last := it.pos
	it.pos.X++
	if it.pos.X > it.max.X {
		it.pos.X = it.min.X
		it.pos.Y++
		if it.pos.Y > it.max.Y {
			it.pos.Y = it.min.Y
			it.pos.Z++
		}
	}
	return last, true
}
