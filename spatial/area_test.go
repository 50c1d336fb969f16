package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAreaValidity(t *testing.T) {
	assert.False(t, Area{Min: New(0, 3, 1), Max: New(-1, 4, -2)}.IsValid())
	assert.Equal(t,
		NewArea(New(-8, 0, -10), New(8, 0, 10)),
		FromUnsorted(New(8, 0, -10), New(-8, 0, 10)))
	assert.Equal(t,
		NewArea(New(10, -50, 42), New(10, 80, 99)),
		FromUnsorted(New(10, 80, 42), New(10, -50, 99)))
	assert.Equal(t, uint64(1), NewArea(New(0, 0, 0), New(0, 0, 0)).Volume())
	assert.Equal(t, uint64(4000*4000*4000),
		NewArea(New(1, -3000, 800), New(4000, 999, 4799)).Volume())
}

func TestAreaValidityPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewArea(New(0, 3, 1), New(0, 2, 3))
	})
}

func TestAreaIteration(t *testing.T) {
	iterArea := func(a Area) {
		it := a.Iterator()
		for z := a.Min.Z; z <= a.Max.Z; z++ {
			for y := a.Min.Y; y <= a.Max.Y; y++ {
				for x := a.Min.X; x <= a.Max.X; x++ {
					got, ok := it.Next()
					assert.True(t, ok)
					assert.Equal(t, New(x, y, z), got)
				}
			}
		}
		_, ok := it.Next()
		assert.False(t, ok)
	}

	iterArea(NewArea(New(-1, -1, -1), New(-1, -1, -1)))
	iterArea(NewArea(New(10, -99, 11), New(10, -99, 12)))
	iterArea(NewArea(New(0, -1, -2), New(5, 7, 11)))
}

func TestAreaContainment(t *testing.T) {
	area := NewArea(New(-1, -32, 16), New(30, -17, 54))

	assert.True(t, area.Contains(New(0, -32, 32)))
	assert.True(t, area.Contains(New(30, -32, 54)))
	assert.False(t, area.Contains(New(30, -17, 55)))
	assert.False(t, area.Contains(New(-2, -30, 16)))

	contained := NewArea(New(0, -2, 1), New(0, -2, 2))
	touching := NewArea(New(-1, -2, 1), New(1, -2, 3))

	gotContained, ok := area.ToContainedBlockArea()
	assert.True(t, ok)
	assert.Equal(t, contained, gotContained)
	assert.Equal(t, touching, area.ToTouchingBlockArea())

	probe := NewArea(touching.Min.AddScalar(-2), touching.Max.AddScalar(2))
	it := probe.Iterator()
	for {
		pos, ok := it.Next()
		if !ok {
			break
		}
		assert.Equal(t, touching.Contains(pos), area.TouchesBlock(pos))
		assert.Equal(t, contained.Contains(pos), area.ContainsBlock(pos))
	}

	_, ok = NewArea(New(16, 0, 1), New(31, 15, 15)).ToContainedBlockArea()
	assert.False(t, ok)
}

func TestAreaBlockOverlap(t *testing.T) {
	area := NewArea(New(-3, -3, -3), New(15, 15, 15))
	cases := []struct {
		pos  Vec3
		want Area
		ok   bool
	}{
		{New(-1, -1, -1), NewArea(New(-3, -3, -3), New(-1, -1, -1)), true},
		{New(0, 0, 0), NewArea(New(0, 0, 0), New(15, 15, 15)), true},
		{New(1, 1, 1), Area{}, false},
		{New(-1, 0, 0), NewArea(New(-3, 0, 0), New(-1, 15, 15)), true},
	}
	for _, c := range cases {
		got, ok := area.AbsBlockOverlap(c.pos)
		assert.Equal(t, c.ok, ok)
		if ok {
			assert.Equal(t, c.want, got)
		}

		rel, relOk := area.RelBlockOverlap(c.pos)
		assert.Equal(t, c.ok, relOk)
		if relOk {
			assert.Equal(t, c.want, rel.Add(c.pos.Scale(16)))
		}
	}
}
