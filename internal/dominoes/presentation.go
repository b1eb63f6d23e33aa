package dominoes

type ClientState struct {
	GameId      string       `json:"gameId"`
	Seat        int          `json:"seat"`
	Name        string       `json:"name"`
	Team        Team         `json:"team"`
	Hand        []Tile       `json:"hand"`
	HandValue   int          `json:"handValue"`
	Board       []Tile       `json:"board"`
	LeftEnd     *int         `json:"leftEnd"` // nil on an empty board
	RightEnd    *int         `json:"rightEnd"`
	Players     []SeatState  `json:"players"`
	TeamScores  [2]int       `json:"teamScores"`
	Round       int          `json:"round"`
	TargetScore int          `json:"targetScore"`
	SingleRound bool         `json:"singleRound"`
	CurrentSeat int          `json:"currentSeat"`
	Phase       Phase        `json:"phase"`
	LegalMoves  []Move       `json:"legalMoves"` // only filled in when this seat must choose
	LastRound   *RoundResult `json:"lastRound"`
	Winner      *Team        `json:"winner"`
}

type SeatState struct {
	Name       string     `json:"name"`
	Seat       int        `json:"seat"`
	Team       Team       `json:"team"`
	Kind       PlayerKind `json:"kind"`
	HandLength int        `json:"handLength"`
	Passed     bool       `json:"passed"`
}

// ClientState is what the player at seat is allowed to see: the whole table,
// their own hand, and only the hand sizes of everybody else.
func (g *Game) ClientState(seat int) *ClientState {
	player := g.Players[seat]

	seats := make([]SeatState, 0, len(g.Players))
	for _, p := range g.Players {
		seats = append(seats, GetSeatState(p))
	}

	hand := make([]Tile, len(player.Hand))
	copy(hand, player.Hand)

	state := &ClientState{
		GameId:      g.Id,
		Seat:        seat,
		Name:        player.Name,
		Team:        player.Team,
		Hand:        hand,
		HandValue:   player.HandValue(),
		Board:       g.Board.Tiles(),
		Players:     seats,
		TeamScores:  g.TeamScores,
		Round:       g.Round,
		TargetScore: g.TargetScore,
		SingleRound: g.SingleRound,
		CurrentSeat: g.CurrentSeat,
		Phase:       g.Phase,
		LegalMoves:  []Move{},
		LastRound:   g.LastRound(),
	}

	if left, ok := g.Board.LeftValue(); ok {
		state.LeftEnd = &left
	}
	if right, ok := g.Board.RightValue(); ok {
		state.RightEnd = &right
	}

	if g.AwaitingChoice() && g.Turn.Seat == seat {
		state.LegalMoves = g.PendingMoves()
	}

	if winner, ok := g.Winner(); ok {
		state.Winner = &winner
	}

	return state
}

func GetSeatState(p *Player) SeatState {
	return SeatState{
		Name:       p.Name,
		Seat:       p.Seat,
		Team:       p.Team,
		Kind:       p.Kind,
		HandLength: len(p.Hand),
		Passed:     p.Passed,
	}
}
