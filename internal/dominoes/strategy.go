package dominoes

import "fmt"

// Strategy picks one move for a computer seat from the legal moves it was offered.
type Strategy interface {
	ChooseMove(moves []Move) (Move, bool)
}

const StrategyGreedy = "greedy"

// GreedyStrategy dumps the heaviest tile, favouring doubles. Ties go to the
// earliest move in the list.
type GreedyStrategy struct{}

func (GreedyStrategy) ChooseMove(moves []Move) (Move, bool) {
	if len(moves) == 0 {
		return Move{}, false
	}

	best := 0
	bestScore := greedyScore(moves[0])
	for i, m := range moves[1:] {
		if score := greedyScore(m); score > bestScore {
			best, bestScore = i+1, score
		}
	}
	return moves[best], true
}

func greedyScore(m Move) int {
	score := m.Tile.Value()
	if m.Tile.IsDouble() {
		score += DoubleBonus
	}
	return score
}

// NewStrategy builds the strategy registered under name.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case StrategyGreedy, "":
		return GreedyStrategy{}, nil
	default:
		return nil, fmt.Errorf("UNKNOWN_STRATEGY: %q", name)
	}
}
