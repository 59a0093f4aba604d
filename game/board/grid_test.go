package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	g := NewGrid(3, 4, -1)
	assert.Equal(t, 3, g.Height())
	assert.Equal(t, 4, g.Width())
	assert.Equal(t, -1, g.Get(C(2, 3)))

	g.Set(C(1, 2), 7)
	assert.Equal(t, 7, g.Get(C(1, 2)))

	_, ok := g.Lookup(C(3, 0))
	assert.False(t, ok)
	_, ok = g.Lookup(C(0, -1))
	assert.False(t, ok)

	clone := g.Clone()
	clone.Set(C(0, 0), 9)
	assert.Equal(t, -1, g.Get(C(0, 0)))
	assert.False(t, Equal(g, clone))

	g.Reset(0)
	assert.Equal(t, 12, Count(g, 0))
}

func TestGridFindAll(t *testing.T) {
	g := NewGrid(2, 3, false)
	g.Set(C(1, 0), true)
	g.Set(C(0, 2), true)
	assert.Equal(t, []Coord{C(0, 2), C(1, 0)}, FindAll(g, true))
}

func TestGridFromRows(t *testing.T) {
	g, err := GridFromRows([][]int{{1, 2}, {3, 4}})
	require.NoError(t, err)
	assert.Equal(t, 4, g.Get(C(1, 1)))

	_, err = GridFromRows([][]int{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrNotRectangular)

	var empty Grid[int]
	assert.Zero(t, empty.Width())
	assert.False(t, empty.InBounds(C(0, 0)))
}

func TestCoord(t *testing.T) {
	a, b := C(1, 2), C(4, -3)
	assert.Equal(t, C(5, -1), a.Add(b))
	assert.Equal(t, C(3, -5), b.Sub(a))
	assert.Equal(t, C(1, -1), b.Sign())
	assert.Equal(t, C(0, 0), C(0, 0).Sign())
	assert.Equal(t, C(4, 3), b.Abs())
	assert.Equal(t, "(1,2)", a.String())
}

func TestParseCoord(t *testing.T) {
	for _, s := range []string{"3,4", " 3, 4 ", "(3,4)", C(3, 4).String()} {
		pos, err := ParseCoord(s)
		require.NoError(t, err, s)
		assert.Equal(t, C(3, 4), pos, s)
	}
	pos, err := ParseCoord("-1,0")
	require.NoError(t, err)
	assert.Equal(t, C(-1, 0), pos)

	for _, s := range []string{"", "3", "3;4", "a,b", "3,4,5"} {
		_, err := ParseCoord(s)
		assert.ErrorIs(t, err, ErrBadCoord, s)
	}
}
