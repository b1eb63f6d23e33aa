package dominoes

import "strings"

// Board is the line of tiles on the table. Every stored tile's right face equals
// the next tile's left face.
type Board struct {
	tiles []Tile
}

func NewBoard() *Board {
	return &Board{tiles: make([]Tile, 0, PlayerCount*HandSize)}
}

func (b *Board) IsEmpty() bool {
	return len(b.tiles) == 0
}

func (b *Board) Len() int {
	return len(b.tiles)
}

// LeftValue reports the open face on the left end. ok is false on an empty board.
func (b *Board) LeftValue() (value int, ok bool) {
	if b.IsEmpty() {
		return 0, false
	}
	return b.tiles[0].Left, true
}

// RightValue reports the open face on the right end. ok is false on an empty board.
func (b *Board) RightValue() (value int, ok bool) {
	if b.IsEmpty() {
		return 0, false
	}
	return b.tiles[len(b.tiles)-1].Right, true
}

func (b *Board) CanPlace(tile Tile) bool {
	if b.IsEmpty() {
		return true
	}
	left, _ := b.LeftValue()
	right, _ := b.RightValue()
	return tile.HasFace(left) || tile.HasFace(right)
}

// Place puts tile on the chosen end, flipping it when needed. The first tile on an
// empty board ignores atLeft. On failure the board is left as it was.
func (b *Board) Place(tile Tile, atLeft bool) error {
	if b.IsEmpty() {
		b.tiles = append(b.tiles, tile)
		return nil
	}

	if atLeft {
		left, _ := b.LeftValue()
		switch {
		case tile.Right == left:
			b.tiles = append([]Tile{tile}, b.tiles...)
		case tile.Left == left:
			b.tiles = append([]Tile{tile.Flip()}, b.tiles...)
		default:
			return ErrTileDoesNotMatch
		}
		return nil
	}

	right, _ := b.RightValue()
	switch {
	case tile.Left == right:
		b.tiles = append(b.tiles, tile)
	case tile.Right == right:
		b.tiles = append(b.tiles, tile.Flip())
	default:
		return ErrTileDoesNotMatch
	}
	return nil
}

// Tiles returns a copy of the line, left to right.
func (b *Board) Tiles() []Tile {
	tiles := make([]Tile, len(b.tiles))
	copy(tiles, b.tiles)
	return tiles
}

func (b *Board) String() string {
	if b.IsEmpty() {
		return "Empty board"
	}
	parts := make([]string, len(b.tiles))
	for i, t := range b.tiles {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
