package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/knightboard/game/board"
)

func TestMoveCost(t *testing.T) {
	tests := []struct {
		piece   board.Piece
		want    int
		wantErr error
	}{
		{board.Empty, 1, nil},
		{board.Water, 2, nil},
		{board.Teleport, 1, nil},
		{board.Lava, 5, nil},
		{board.Start, 0, nil},
		{board.End, 1, nil},
		{board.Barrier, 0, ErrImpassable},
		{board.Rock, 0, ErrImpassable},
		{board.Piece('x'), 0, board.ErrUnknownPiece},
	}

	for _, tt := range tests {
		t.Run(tt.piece.Name(), func(t *testing.T) {
			got, err := MoveCost(tt.piece)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCostAt(t *testing.T) {
	r := mustRules(t, "S W\nL B")

	c, err := r.CostAt(board.C(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, c)

	c, err = r.CostAt(board.C(1, 0))
	require.NoError(t, err)
	assert.Equal(t, 5, c)

	_, err = r.CostAt(board.C(1, 1))
	assert.ErrorIs(t, err, ErrImpassable)
	assert.Contains(t, err.Error(), "(1,1)")

	_, err = r.CostAt(board.C(2, 0))
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestValidateBoard(t *testing.T) {
	tests := []struct {
		name    string
		board   string
		wantErr error
	}{
		{"no teleports", "S . .\n. . E", nil},
		{"one pair", "S T .\n. T E", nil},
		{"single teleport", "S T .\n. . E", ErrTeleportCount},
		{"three teleports", "T T .\n. T E", ErrTeleportCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := board.MustParse(tt.board)
			err := ValidateBoard(b)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsConfigError(err))
		})
	}

	err := ValidateBoard(board.NewBoard(0, 0))
	assert.ErrorIs(t, err, board.ErrEmptyBoard)
}

func TestValidateLayout(t *testing.T) {
	assert.NoError(t, ValidateLayout(board.MustParse("S . .\n. . E")))
	assert.Error(t, ValidateLayout(board.MustParse(". . .\n. . E")))
	assert.Error(t, ValidateLayout(board.MustParse("S . E\n. . E")))
}

func TestNewRulesRejectsMalformedBoard(t *testing.T) {
	_, err := NewRules(board.MustParse("T . .\n. . ."))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestDegreeMap(t *testing.T) {
	r := mustRules(t, board8x8)
	degrees, err := DegreeMap(r)
	require.NoError(t, err)

	assert.Equal(t, 2, degrees.Get(board.C(0, 0)))
	assert.Equal(t, 3, degrees.Get(board.C(0, 1)))
	assert.Equal(t, 4, degrees.Get(board.C(1, 1)))
	assert.Equal(t, 8, degrees.Get(board.C(3, 3)))

	r = mustRules(t, "S R .\n. . .\n. . .")
	degrees, err = DegreeMap(r)
	require.NoError(t, err)
	assert.Equal(t, 0, degrees.Get(board.C(0, 1)))

	// Teleports a knight move apart count as one destination.
	r = mustRules(t, "T . .\n. . T\n. . .")
	degrees, err = DegreeMap(r)
	require.NoError(t, err)
	assert.Equal(t, 2, degrees.Get(board.C(0, 0)))
	assert.Equal(t, 2, degrees.Get(board.C(1, 2)))
}

func TestCountPieces(t *testing.T) {
	b := board.MustParse("S W W\nL B E")
	counts := CountPieces(b)
	assert.Equal(t, 2, counts[board.Water])
	assert.Equal(t, 1, counts[board.Barrier])
	assert.Equal(t, 5, LandableCells(b))
}
