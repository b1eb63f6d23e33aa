package dominoes

import (
	"errors"
	"fmt"
)

type End string

const (
	// Opening tile on an empty board
	EndFirst End = "first"

	EndLeft  End = "left"
	EndRight End = "right"
)

type Move struct {
	Tile Tile `json:"tile"`
	End  End  `json:"end"`
}

func (m Move) String() string {
	return fmt.Sprintf("%s on %s", m.Tile, m.End)
}

var (
	ErrInvalidMoveIndex  = errors.New("INVALID_MOVE: move index out of range")
	ErrNoPendingMove     = errors.New("NOT_YOUR_TURN: no move is awaiting a choice")
	ErrTileNotInHand     = errors.New("TILE_NOT_IN_HAND: tile is not in the player's hand")
	ErrTileDoesNotMatch  = errors.New("TILE_MISMATCH: tile matches neither open end")
	ErrInconsistentState = errors.New("INCONSISTENT_STATE: move generation and board disagree")
	ErrRoundInProgress   = errors.New("ROUND_IN_PROGRESS: the current round has not finished")
	ErrGameOver          = errors.New("GAME_OVER: the game has ended")
)
