package dominoes

import "fmt"

type TurnState string

const (
	TurnAwaitingMoves  TurnState = "awaiting_moves"
	TurnAwaitingChoice TurnState = "awaiting_choice"
	TurnApplying       TurnState = "applying"
	TurnDone           TurnState = "done"
)

type RoundStatus string

const (
	RoundContinues RoundStatus = "continues"
	RoundWentOut   RoundStatus = "went_out"
	RoundBlocked   RoundStatus = "blocked"
)

// Turn is one seat's decision point.
type Turn struct {
	Seat  int       `json:"seat"`
	State TurnState `json:"state"`
	Moves []Move    `json:"moves"`
}

type TurnResult struct {
	Seat   int         `json:"seat"`
	Passed bool        `json:"passed"`
	Move   *Move       `json:"move,omitempty"`
	Status RoundStatus `json:"status"`
}

// startTurn opens the current seat's turn. It returns a nil result when the
// seat is human and the turn is waiting on ApplyMove.
func (g *Game) startTurn() (*TurnResult, error) {
	seat := g.CurrentSeat
	player := g.Players[seat]
	g.Turn = &Turn{Seat: seat, State: TurnAwaitingMoves}

	moves := player.LegalMoves(g.Board, g.StartingTile())
	if len(moves) == 0 {
		player.Passed = true
		g.ConsecutivePasses++
		g.Turn.State = TurnDone

		status := RoundContinues
		if g.ConsecutivePasses >= len(g.Players) {
			status = RoundBlocked
		}
		return &TurnResult{Seat: seat, Passed: true, Status: status}, nil
	}

	player.Passed = false
	g.ConsecutivePasses = 0
	g.Turn.Moves = moves
	g.Turn.State = TurnAwaitingChoice

	if player.IsHuman() {
		return nil, nil
	}

	move, ok := g.strategy.ChooseMove(moves)
	if !ok {
		return nil, fmt.Errorf("%w: strategy returned no move for seat %d", ErrInconsistentState, seat)
	}
	return g.applyMove(move)
}

func (g *Game) applyMove(m Move) (*TurnResult, error) {
	seat := g.Turn.Seat
	player := g.Players[seat]
	g.Turn.State = TurnApplying

	if !player.HasTile(m.Tile.Left, m.Tile.Right) {
		return nil, fmt.Errorf("%w: seat %d playing %s: %w", ErrInconsistentState, seat, m.Tile, ErrTileNotInHand)
	}
	if err := g.Board.Place(m.Tile, m.End == EndLeft); err != nil {
		return nil, fmt.Errorf("%w: seat %d playing %s: %w", ErrInconsistentState, seat, m, err)
	}
	if err := player.RemoveTile(m.Tile); err != nil {
		return nil, fmt.Errorf("%w: seat %d playing %s: %w", ErrInconsistentState, seat, m.Tile, err)
	}

	team := player.Team
	g.LastTeam = &team
	g.Turn.State = TurnDone

	status := RoundContinues
	if player.IsOut() {
		status = RoundWentOut
	}
	return &TurnResult{Seat: seat, Move: &m, Status: status}, nil
}

// finishTurn records a resolved turn and either hands play to the next seat or
// moves the round to scoring.
func (g *Game) finishTurn(result *TurnResult) {
	if result.Passed {
		g.logger.Debug("pass", "round", g.Round, "seat", result.Seat, "passes", g.ConsecutivePasses)
	} else {
		g.logger.Debug("play", "round", g.Round, "seat", result.Seat, "move", result.Move.String())
	}

	for _, o := range g.observers {
		o.TurnPlayed(*result, g.observerState())
	}

	if result.Status != RoundContinues {
		g.RoundStatus = result.Status
		g.Phase = PhaseScoring
		return
	}
	g.CurrentSeat = (g.CurrentSeat + 1) % len(g.Players)
}

// AwaitingChoice reports whether a human seat must pick a move before play can continue.
func (g *Game) AwaitingChoice() bool {
	return g.Phase == PhaseTurnLoop && g.Turn != nil && g.Turn.State == TurnAwaitingChoice
}

// PendingMoves is the legal-move list the next ApplyMove index refers to.
func (g *Game) PendingMoves() []Move {
	if !g.AwaitingChoice() {
		return nil
	}
	moves := make([]Move, len(g.Turn.Moves))
	copy(moves, g.Turn.Moves)
	return moves
}

// ApplyMove plays the move at index in the pending legal-move list, then lets the
// computer seats play until the next human decision or the end of the round.
// An out-of-range index returns ErrInvalidMoveIndex and changes nothing.
func (g *Game) ApplyMove(index int) error {
	if g.Phase == PhaseGameOver {
		return ErrGameOver
	}
	if !g.AwaitingChoice() {
		return ErrNoPendingMove
	}
	if index < 0 || index >= len(g.Turn.Moves) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidMoveIndex, index, len(g.Turn.Moves))
	}

	result, err := g.applyMove(g.Turn.Moves[index])
	if err != nil {
		return err
	}
	g.finishTurn(result)

	return g.Advance()
}
