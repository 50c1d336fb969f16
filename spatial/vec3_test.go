package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockKeyBijection(t *testing.T) {
	for x := int32(-2048); x < 2048; x += 317 {
		for y := int32(-2048); y < 2048; y += 511 {
			for z := int32(-2048); z < 2048; z += 673 {
				p := New(x, y, z)
				got := FromBlockKey(p.ToBlockKey())
				assert.Equal(t, p, got)
			}
		}
	}
	// Exhaustive over a small representative subset at the boundaries.
	for _, x := range []int32{-2048, -1, 0, 1, 2047} {
		for _, y := range []int32{-2048, -1, 0, 1, 2047} {
			for _, z := range []int32{-2048, -1, 0, 1, 2047} {
				p := New(x, y, z)
				assert.Equal(t, p, FromBlockKey(p.ToBlockKey()))
			}
		}
	}
}

func TestU16KeyRoundTrip(t *testing.T) {
	for x := int32(0); x < 16; x++ {
		for y := int32(0); y < 16; y++ {
			for z := int32(0); z < 16; z++ {
				p := New(x, y, z)
				assert.Equal(t, p, FromU16Key(p.ToU16Key()))
			}
		}
	}
}

func TestLinearIndexRoundTrip(t *testing.T) {
	for i := 0; i < 4096; i++ {
		p := FromLinearIndex(i)
		assert.Equal(t, i, p.LinearIndex())
	}
}

func TestValidPositions(t *testing.T) {
	assert.True(t, New(31000, -31000, 0).IsValidNodePos())
	assert.False(t, New(31001, 0, 0).IsValidNodePos())
	assert.True(t, New(1937, -1937, 0).IsValidBlockPos())
	assert.False(t, New(1938, 0, 0).IsValidBlockPos())
}
