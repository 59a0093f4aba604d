package tour

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/knightboard/game/board"
)

func candidates() []Candidate {
	return []Candidate{
		{Degree: 3, Pos: board.C(0, 0)},
		{Degree: 1, Pos: board.C(0, 1)},
		{Degree: 3, Pos: board.C(0, 2)},
		{Degree: 2, Pos: board.C(0, 3)},
	}
}

func positions(cs []Candidate) []board.Coord {
	out := make([]board.Coord, len(cs))
	for i, c := range cs {
		out[i] = c.Pos
	}
	return out
}

func TestHeuristicOrder(t *testing.T) {
	tests := []struct {
		h    Heuristic
		want []board.Coord
	}{
		{Identity{}, []board.Coord{board.C(0, 0), board.C(0, 1), board.C(0, 2), board.C(0, 3)}},
		{DenseFirst{}, []board.Coord{board.C(0, 1), board.C(0, 3), board.C(0, 0), board.C(0, 2)}},
		{SparseFirst{}, []board.Coord{board.C(0, 0), board.C(0, 2), board.C(0, 3), board.C(0, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.h.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, positions(tt.h.Order(candidates())))
		})
	}
}

func TestRandomIsAPermutation(t *testing.T) {
	h := NewRandom(7)
	for range 20 {
		got := h.Order(candidates())
		assert.ElementsMatch(t, positions(candidates()), positions(got))
	}

	a := positions(NewRandom(11).Order(candidates()))
	b := positions(NewRandom(11).Order(candidates()))
	assert.Equal(t, a, b)
}

func TestHeuristicByName(t *testing.T) {
	for _, name := range HeuristicNames {
		h, err := HeuristicByName(name, 1)
		require.NoError(t, err)
		assert.Equal(t, name, h.Name())
	}

	h, err := HeuristicByName("Warnsdorff", 0)
	require.NoError(t, err)
	assert.Equal(t, "dense", h.Name())

	_, err = HeuristicByName("greedy", 0)
	assert.ErrorIs(t, err, ErrUnknownHeuristic)
}

func TestCompare(t *testing.T) {
	r := rulesFor(t, board3x4)
	before := r.Board().Clone()

	results, err := Compare(context.Background(), r, board.C(0, 0), nil, 5, WithBudget(time.Minute))
	require.NoError(t, err)
	require.Len(t, results, len(HeuristicNames))

	seen := map[string]bool{}
	for _, res := range results {
		seen[res.Heuristic] = true
		assert.Equal(t, 12, res.Cost)
		assert.True(t, res.Complete())
	}
	assert.Len(t, seen, len(HeuristicNames))
	assert.Equal(t, "identity", results[0].Heuristic)
	assert.True(t, board.Equal(before, r.Board()))
}

func TestCompareRanksByCost(t *testing.T) {
	r := loadRules(t, "../../boards/8x8.txt")
	results, err := Compare(context.Background(), r, board.C(2, 1), []string{"sparse", "dense"}, 0,
		WithBudget(time.Minute), WithAcceptCost(20))
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.True(t, res.Accepted)
		assert.Equal(t, 20, res.Cost)
	}
	assert.Equal(t, "sparse", results[0].Heuristic)

	_, err = Compare(context.Background(), r, board.C(2, 1), []string{"bogus"}, 0)
	assert.ErrorIs(t, err, ErrUnknownHeuristic)
}
