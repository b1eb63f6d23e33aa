package dominoes

import "slices"

type Team int

const (
	TeamA Team = iota
	TeamB
)

func (t Team) String() string {
	if t == TeamA {
		return "Team 1"
	}
	return "Team 2"
}

type PlayerKind string

const (
	Human    PlayerKind = "human"
	Computer PlayerKind = "computer"
)

type Player struct {
	Name   string     `json:"name"`
	Kind   PlayerKind `json:"kind"`
	Team   Team       `json:"team"`
	Seat   int        `json:"seat"`
	Hand   []Tile     `json:"hand"`
	Passed bool       `json:"passed"`
}

func NewPlayer(name string, kind PlayerKind, team Team) *Player {
	return &Player{
		Name: name,
		Kind: kind,
		Team: team,
		Hand: make([]Tile, 0, HandSize),
	}
}

func (p *Player) IsHuman() bool {
	return p.Kind == Human
}

func (p *Player) AddTile(t Tile) {
	p.Hand = append(p.Hand, t)
}

func (p *Player) RemoveTile(t Tile) error {
	i := slices.IndexFunc(p.Hand, t.Equal)
	if i < 0 {
		return ErrTileNotInHand
	}
	p.Hand = slices.Delete(p.Hand, i, i+1)
	return nil
}

func (p *Player) HasTile(a, b int) bool {
	return slices.ContainsFunc(p.Hand, NewTile(a, b).Equal)
}

func (p *Player) HandValue() (total int) {
	for _, t := range p.Hand {
		total += t.Value()
	}
	return
}

func (p *Player) IsOut() bool {
	return len(p.Hand) == 0
}

func (p *Player) resetHand() {
	p.Hand = make([]Tile, 0, HandSize)
	p.Passed = false
}

// LegalMoves lists the placements open to the player. On an empty board only the
// starting tile may open; a player without it may open with any tile.
func (p *Player) LegalMoves(b *Board, starting Tile) []Move {
	if b.IsEmpty() {
		if p.HasTile(starting.Left, starting.Right) {
			return []Move{{Tile: starting, End: EndFirst}}
		}
		moves := make([]Move, 0, len(p.Hand))
		for _, t := range p.Hand {
			moves = append(moves, Move{Tile: t, End: EndFirst})
		}
		return moves
	}

	left, _ := b.LeftValue()
	right, _ := b.RightValue()

	moves := make([]Move, 0)
	for _, t := range p.Hand {
		if t.HasFace(left) {
			moves = append(moves, Move{Tile: t, End: EndLeft})
			if left == right {
				// Both ends show the same face: one placement is enough
				continue
			}
		}
		if t.HasFace(right) {
			moves = append(moves, Move{Tile: t, End: EndRight})
		}
	}
	return moves
}
