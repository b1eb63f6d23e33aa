package dominoes_test

import (
	"errors"
	"testing"

	"github.com/chrisrodz/domino-game-cli/internal/dominoes"
	"github.com/stretchr/testify/assert"
)

func assertConnected(t *testing.T, b *dominoes.Board) {
	t.Helper()
	tiles := b.Tiles()
	for i := 0; i+1 < len(tiles); i++ {
		if tiles[i].Right != tiles[i+1].Left {
			t.Errorf("tiles %d and %d do not connect: %s %s", i, i+1, tiles[i], tiles[i+1])
		}
	}
}

func TestEmptyBoard(t *testing.T) {
	assert := assert.New(t)
	board := dominoes.NewBoard()

	assert.True(board.IsEmpty())
	_, ok := board.LeftValue()
	assert.False(ok)
	_, ok = board.RightValue()
	assert.False(ok)
	assert.True(board.CanPlace(dominoes.NewTile(4, 4)))
	assert.Equal("Empty board", board.String())
}

func TestPlacementSequence(t *testing.T) {
	assert := assert.New(t)
	board := dominoes.NewBoard()

	assert.NoError(board.Place(dominoes.NewTile(3, 5), false))
	left, _ := board.LeftValue()
	right, _ := board.RightValue()
	assert.Equal(3, left)
	assert.Equal(5, right)

	assert.NoError(board.Place(dominoes.NewTile(5, 2), false))
	right, _ = board.RightValue()
	assert.Equal(2, right)

	assert.NoError(board.Place(dominoes.NewTile(6, 3), true))
	left, _ = board.LeftValue()
	assert.Equal(6, left)

	assert.False(board.CanPlace(dominoes.NewTile(4, 4)))
	assert.Equal("[6|3] [3|5] [5|2]", board.String())
	assertConnected(t, board)
}

func TestPlaceFlipsTile(t *testing.T) {
	tests := []struct {
		name   string
		tile   dominoes.Tile
		atLeft bool
		want   []dominoes.Tile
	}{
		{
			name:   "left as-is",
			tile:   dominoes.NewTile(1, 3),
			atLeft: true,
			want:   []dominoes.Tile{{Left: 1, Right: 3}, {Left: 3, Right: 5}},
		},
		{
			name:   "left flipped",
			tile:   dominoes.NewTile(3, 1),
			atLeft: true,
			want:   []dominoes.Tile{{Left: 1, Right: 3}, {Left: 3, Right: 5}},
		},
		{
			name:   "right as-is",
			tile:   dominoes.NewTile(5, 0),
			atLeft: false,
			want:   []dominoes.Tile{{Left: 3, Right: 5}, {Left: 5, Right: 0}},
		},
		{
			name:   "right flipped",
			tile:   dominoes.NewTile(0, 5),
			atLeft: false,
			want:   []dominoes.Tile{{Left: 3, Right: 5}, {Left: 5, Right: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := dominoes.NewBoard()
			assert.NoError(t, board.Place(dominoes.NewTile(3, 5), false))

			err := board.Place(tt.tile, tt.atLeft)

			assert.NoError(t, err)
			assert.Equal(t, tt.want, board.Tiles())
			assertConnected(t, board)
		})
	}
}

func TestPlaceFirstTileIgnoresEnd(t *testing.T) {
	board := dominoes.NewBoard()

	assert.NoError(t, board.Place(dominoes.NewTile(1, 2), true))
	assert.Equal(t, []dominoes.Tile{{Left: 1, Right: 2}}, board.Tiles())
}

func TestPlaceMismatchLeavesBoardUntouched(t *testing.T) {
	board := dominoes.NewBoard()
	assert.NoError(t, board.Place(dominoes.NewTile(6, 2), false))
	before := board.Tiles()

	for _, atLeft := range []bool{true, false} {
		err := board.Place(dominoes.NewTile(4, 4), atLeft)
		if !errors.Is(err, dominoes.ErrTileDoesNotMatch) {
			t.Errorf("expected ErrTileDoesNotMatch, got %v", err)
		}
	}

	assert.Equal(t, before, board.Tiles())
}

func TestTilesReturnsCopy(t *testing.T) {
	board := dominoes.NewBoard()
	assert.NoError(t, board.Place(dominoes.NewTile(1, 2), false))

	tiles := board.Tiles()
	tiles[0] = dominoes.NewTile(6, 6)

	assert.Equal(t, dominoes.NewTile(1, 2), board.Tiles()[0])
}
