package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/knightboard/game/board"
)

func TestValidateSequence(t *testing.T) {
	r := mustRules(t, board8x8)

	t.Run("valid walk including the corner", func(t *testing.T) {
		path := []board.Coord{
			board.C(0, 0), board.C(2, 1), board.C(4, 0),
			board.C(3, 2), board.C(4, 4), board.C(6, 5),
		}
		assert.NoError(t, r.ValidateSequence(path))
	})

	t.Run("walks off the board", func(t *testing.T) {
		err := r.ValidateSequence([]board.Coord{board.C(0, 0), board.C(2, 1), board.C(1, -1)})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrOffBoard)

		var seqErr *SequenceError
		require.ErrorAs(t, err, &seqErr)
		assert.Equal(t, 2, seqErr.Index)
	})

	t.Run("not an L", func(t *testing.T) {
		err := r.ValidateSequence([]board.Coord{board.C(0, 0), board.C(2, 1), board.C(4, 4)})
		assert.ErrorIs(t, err, ErrNotKnightMove)
	})

	t.Run("empty", func(t *testing.T) {
		assert.ErrorIs(t, r.ValidateSequence(nil), ErrEmptySequence)
	})

	t.Run("single position", func(t *testing.T) {
		assert.NoError(t, r.ValidateSequence([]board.Coord{board.C(3, 3)}))
	})
}

func TestValidateSequenceBlockedAndTeleport(t *testing.T) {
	r := mustRules(t, `S . . .
. . R .
T . . .
. . . T`)

	err := r.ValidateSequence([]board.Coord{board.C(0, 0), board.C(1, 2)})
	assert.ErrorIs(t, err, ErrOffBoard)

	assert.NoError(t, r.ValidateSequence([]board.Coord{board.C(0, 1), board.C(2, 0), board.C(3, 3), board.C(2, 1)}))
}

func TestPathCost(t *testing.T) {
	r := mustRules(t, `S . . .
. . L .
. W . E`)

	cost, err := r.PathCost([]board.Coord{board.C(0, 0), board.C(1, 2), board.C(2, 0)})
	require.NoError(t, err)
	assert.Equal(t, 7, cost)

	cost, err = r.PathCost([]board.Coord{board.C(0, 0)})
	require.NoError(t, err)
	assert.Zero(t, cost)
}
