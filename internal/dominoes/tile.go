package dominoes

import (
	"fmt"
	"math/rand"
)

const (
	MaxFace      = 6
	HandSize     = 7
	PlayerCount  = 4
	DoubleBonus  = 5
	DefaultScore = 200
	QuickScore   = 100
)

type Tile struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// TileKey is the orientation-independent identity of a tile. Use it as a map key.
type TileKey struct {
	Low  int
	High int
}

func NewTile(a, b int) Tile {
	return Tile{Left: a, Right: b}
}

func (t Tile) Value() int {
	return t.Left + t.Right
}

func (t Tile) IsDouble() bool {
	return t.Left == t.Right
}

func (t Tile) HasFace(v int) bool {
	return t.Left == v || t.Right == v
}

// Flip returns the same tile with its faces swapped.
func (t Tile) Flip() Tile {
	return Tile{Left: t.Right, Right: t.Left}
}

func (t Tile) Key() TileKey {
	if t.Left <= t.Right {
		return TileKey{Low: t.Left, High: t.Right}
	}
	return TileKey{Low: t.Right, High: t.Left}
}

// Equal ignores orientation: [3|5] equals [5|3].
func (t Tile) Equal(other Tile) bool {
	return t.Key() == other.Key()
}

func (t Tile) String() string {
	return fmt.Sprintf("[%d|%d]", t.Left, t.Right)
}

// NewSet returns every face pair (i, j) with 0 <= i <= j <= maxFace, ordered by i then j.
func NewSet(maxFace int) []Tile {
	tiles := make([]Tile, 0, (maxFace+1)*(maxFace+2)/2)
	for i := 0; i <= maxFace; i++ {
		for j := i; j <= maxFace; j++ {
			tiles = append(tiles, Tile{Left: i, Right: j})
		}
	}
	return tiles
}

type Boneyard struct {
	Tiles []Tile `json:"tiles"`
}

func NewBoneyard(maxFace int) *Boneyard {
	return &Boneyard{NewSet(maxFace)}
}

func (b Boneyard) Count() int {
	return len(b.Tiles)
}

// Draw takes n tiles off the end of the boneyard.
func (b *Boneyard) Draw(n int) (tiles []Tile) {
	for range n {
		tile := b.Tiles[len(b.Tiles)-1]
		tiles = append(tiles, tile)
		b.Tiles = b.Tiles[:len(b.Tiles)-1]
	}
	return
}

func (b *Boneyard) Shuffle(rng *rand.Rand) {
	Shuffle(b.Tiles, rng)
}

// Shuffle permutes tiles in place. Pass a seeded source for reproducible deals.
func Shuffle(tiles []Tile, rng *rand.Rand) {
	rng.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})
}
