package dominoes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
)

type Phase string

const (
	PhaseDealing          Phase = "dealing"
	PhaseSelectingStarter Phase = "selecting_starter"
	PhaseTurnLoop         Phase = "turn_loop"
	PhaseScoring          Phase = "scoring"
	PhaseRoundOver        Phase = "round_over"
	PhaseGameOver         Phase = "game_over"
)

var DefaultSeatNames = [PlayerCount]string{"You", "Opponent 1", "Ally", "Opponent 2"}

type Game struct {
	Id                string        `json:"id"`
	Players           []*Player     `json:"players"`
	Board             *Board        `json:"-"`
	Boneyard          *Boneyard     `json:"-"`
	TeamScores        [2]int        `json:"teamScores"`
	Round             int           `json:"round"`
	TargetScore       int           `json:"targetScore"`
	SingleRound       bool          `json:"singleRound"`
	WinnerStarts      bool          `json:"winnerStarts"`
	Phase             Phase         `json:"phase"`
	CurrentSeat       int           `json:"currentSeat"`
	ConsecutivePasses int           `json:"consecutivePasses"`
	LastTeam          *Team         `json:"lastTeam"`
	RoundStatus       RoundStatus   `json:"roundStatus"`
	Turn              *Turn         `json:"turn"`
	History           []RoundResult `json:"history"`

	strategy  Strategy
	rng       *rand.Rand
	logger    *log.Logger
	observers []Observer
}

// Input is the human side of a blocking game: it is handed the human seat's view
// and returns an index into state.LegalMoves.
type Input interface {
	ChooseMove(ctx context.Context, state *ClientState) (int, error)
}

// Observer is told about every resolved turn and every scored round.
type Observer interface {
	TurnPlayed(result TurnResult, state *ClientState)
	RoundEnded(result RoundResult, state *ClientState)
}

type Option func(*Game)

func WithTargetScore(score int) Option {
	return func(g *Game) { g.TargetScore = score }
}

func WithSingleRound() Option {
	return func(g *Game) { g.SingleRound = true }
}

// WithWinnerStarts lets the previous round's winner open every round after the
// first, instead of seat 0.
func WithWinnerStarts() Option {
	return func(g *Game) { g.WinnerStarts = true }
}

func WithStrategy(s Strategy) Option {
	return func(g *Game) { g.strategy = s }
}

func WithSeed(seed int64) Option {
	return func(g *Game) { g.rng = rand.New(rand.NewSource(seed)) }
}

func WithLogger(l *log.Logger) Option {
	return func(g *Game) { g.logger = l }
}

func WithObserver(o Observer) Option {
	return func(g *Game) { g.observers = append(g.observers, o) }
}

// WithComputerOnly seats a computer in every chair, including the human one.
func WithComputerOnly() Option {
	return func(g *Game) {
		for _, p := range g.Players {
			p.Kind = Computer
		}
	}
}

// NewGame seats humanName at seat 0 and three computer players around it.
// Seats 0 and 2 form Team 1, seats 1 and 3 Team 2.
func NewGame(id string, humanName string, opts ...Option) *Game {
	players := make([]*Player, 0, PlayerCount)
	for i, name := range DefaultSeatNames {
		kind := Computer
		if i == 0 {
			kind = Human
			if humanName != "" {
				name = humanName
			}
		}
		p := NewPlayer(name, kind, Team(i%2))
		p.Seat = i
		players = append(players, p)
	}

	g := &Game{
		Id:          id,
		Players:     players,
		Board:       NewBoard(),
		TargetScore: DefaultScore,
		Round:       1,
		Phase:       PhaseDealing,
		RoundStatus: RoundContinues,
		History:     make([]RoundResult, 0),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.strategy == nil {
		g.strategy = GreedyStrategy{}
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if g.logger == nil {
		g.logger = log.New(io.Discard)
	}

	return g
}

// StartingTile is the highest double, which must open the first round.
func (g *Game) StartingTile() Tile {
	return NewTile(MaxFace, MaxFace)
}

// Advance runs the game forward until a human has to choose a move, a round has
// been scored, or the game is over.
func (g *Game) Advance() error {
	for {
		switch g.Phase {
		case PhaseDealing:
			g.Deal()
			g.Phase = PhaseSelectingStarter

		case PhaseSelectingStarter:
			g.CurrentSeat = g.selectStarter()
			g.logger.Info("round started", "round", g.Round, "starter", g.Players[g.CurrentSeat].Name)
			g.Phase = PhaseTurnLoop

		case PhaseTurnLoop:
			if g.AwaitingChoice() {
				return nil
			}
			result, err := g.startTurn()
			if err != nil {
				return err
			}
			if result == nil {
				return nil
			}
			g.finishTurn(result)

		case PhaseScoring:
			g.scoreRound()

		case PhaseRoundOver, PhaseGameOver:
			return nil

		default:
			return fmt.Errorf("%w: unknown phase %q", ErrInconsistentState, g.Phase)
		}
	}
}

// NextRound moves past a scored round and deals the next one.
func (g *Game) NextRound() error {
	switch g.Phase {
	case PhaseGameOver:
		return ErrGameOver
	case PhaseRoundOver:
	default:
		return ErrRoundInProgress
	}

	g.Round++
	g.Phase = PhaseDealing
	return g.Advance()
}

// Deal clears every hand and deals a freshly shuffled set round-robin.
func (g *Game) Deal() {
	g.Board = NewBoard()
	g.LastTeam = nil
	g.ConsecutivePasses = 0
	g.Turn = nil
	g.RoundStatus = RoundContinues

	g.Boneyard = NewBoneyard(MaxFace)
	g.Boneyard.Shuffle(g.rng)

	for _, p := range g.Players {
		p.resetHand()
	}
	for range HandSize {
		for _, p := range g.Players {
			p.AddTile(g.Boneyard.Draw(1)[0])
		}
	}
}

func (g *Game) selectStarter() int {
	if g.Round == 1 {
		start := g.StartingTile()
		for i, p := range g.Players {
			if p.HasTile(start.Left, start.Right) {
				return i
			}
		}
		return 0
	}
	if g.WinnerStarts && len(g.History) > 0 {
		return g.History[len(g.History)-1].WinnerSeat
	}
	return 0
}

func (g *Game) scoreRound() {
	result := ScoreRound(g.Players, g.LastTeam)
	result.Round = g.Round
	g.TeamScores[result.WinningTeam] += result.Points
	g.History = append(g.History, result)

	g.logger.Info("round scored",
		"round", g.Round,
		"outcome", result.Outcome,
		"team", result.WinningTeam.String(),
		"points", result.Points,
		"scores", fmt.Sprintf("%d-%d", g.TeamScores[0], g.TeamScores[1]))

	if g.finished() {
		g.Phase = PhaseGameOver
	} else {
		g.Phase = PhaseRoundOver
	}

	for _, o := range g.observers {
		o.RoundEnded(result, g.observerState())
	}
}

func (g *Game) finished() bool {
	if g.SingleRound {
		return len(g.History) > 0
	}
	return g.TeamScores[TeamA] >= g.TargetScore || g.TeamScores[TeamB] >= g.TargetScore
}

// Winner reports the winning team once the game is over. Team 1 is checked first.
func (g *Game) Winner() (Team, bool) {
	if g.Phase != PhaseGameOver {
		return 0, false
	}
	if g.SingleRound {
		return g.History[len(g.History)-1].WinningTeam, true
	}
	if g.TeamScores[TeamA] >= g.TargetScore {
		return TeamA, true
	}
	return TeamB, true
}

// LastRound returns the most recently scored round, if any.
func (g *Game) LastRound() *RoundResult {
	if len(g.History) == 0 {
		return nil
	}
	r := g.History[len(g.History)-1]
	return &r
}

// Play drives the whole game, asking input whenever the human seat must move.
// Invalid choices are asked for again.
func (g *Game) Play(ctx context.Context, input Input) (Team, error) {
	if err := g.Advance(); err != nil {
		return 0, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		switch {
		case g.Phase == PhaseGameOver:
			winner, _ := g.Winner()
			return winner, nil

		case g.Phase == PhaseRoundOver:
			if err := g.NextRound(); err != nil {
				return 0, err
			}

		case g.AwaitingChoice():
			index, err := input.ChooseMove(ctx, g.ClientState(g.CurrentSeat))
			if err != nil {
				return 0, err
			}
			if err := g.ApplyMove(index); err != nil {
				if errors.Is(err, ErrInvalidMoveIndex) {
					g.logger.Warn("rejected move", "err", err)
					continue
				}
				return 0, err
			}

		default:
			return 0, fmt.Errorf("%w: stalled in phase %q", ErrInconsistentState, g.Phase)
		}
	}
}

func (g *Game) humanSeat() int {
	for i, p := range g.Players {
		if p.IsHuman() {
			return i
		}
	}
	return 0
}

func (g *Game) observerState() *ClientState {
	return g.ClientState(g.humanSeat())
}
