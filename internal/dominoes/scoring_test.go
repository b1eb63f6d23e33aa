package dominoes_test

import (
	"testing"

	"github.com/chrisrodz/domino-game-cli/internal/dominoes"
	"github.com/stretchr/testify/assert"
)

// tableOf seats four players in the usual team layout holding the given hands.
func tableOf(hands ...[]dominoes.Tile) []*dominoes.Player {
	players := make([]*dominoes.Player, 0, len(hands))
	for i, hand := range hands {
		p := dominoes.NewPlayer(dominoes.DefaultSeatNames[i], dominoes.Computer, dominoes.Team(i%2))
		p.Seat = i
		for _, tile := range hand {
			p.AddTile(tile)
		}
		players = append(players, p)
	}
	return players
}

func teamPtr(t dominoes.Team) *dominoes.Team {
	return &t
}

func TestScoreRoundWentOut(t *testing.T) {
	assert := assert.New(t)
	players := tableOf(
		nil,
		[]dominoes.Tile{{Left: 6, Right: 6}},
		[]dominoes.Tile{{Left: 3, Right: 4}},
		[]dominoes.Tile{{Left: 2, Right: 2}, {Left: 0, Right: 4}},
	)

	result := dominoes.ScoreRound(players, teamPtr(dominoes.TeamA))

	assert.Equal(dominoes.OutcomeWentOut, result.Outcome)
	assert.Equal(dominoes.TeamA, result.WinningTeam)
	assert.Equal(0, result.WinnerSeat)
	assert.Equal(27, result.Points)
	assert.Equal([]int{0, 12, 7, 8}, result.HandValues)
}

func TestScoreRoundBlocked(t *testing.T) {
	tests := []struct {
		name       string
		hands      [][]dominoes.Tile
		lastTeam   *dominoes.Team
		outcome    dominoes.Outcome
		team       dominoes.Team
		winnerSeat int
		points     int
		contenders []int
	}{
		{
			name: "single lowest hand",
			hands: [][]dominoes.Tile{
				{{Left: 4, Right: 4}},
				{{Left: 3, Right: 3}},
				{{Left: 4, Right: 5}},
				{{Left: 6, Right: 6}},
			},
			lastTeam:   teamPtr(dominoes.TeamA),
			outcome:    dominoes.OutcomeBlocked,
			team:       dominoes.TeamB,
			winnerSeat: 1,
			points:     8 + 9 + 12,
			contenders: []int{1},
		},
		{
			name: "draw within one team",
			hands: [][]dominoes.Tile{
				{{Left: 3, Right: 3}},
				{{Left: 4, Right: 5}},
				{{Left: 2, Right: 4}},
				{{Left: 6, Right: 6}},
			},
			lastTeam:   teamPtr(dominoes.TeamB),
			outcome:    dominoes.OutcomeDrawSameTeam,
			team:       dominoes.TeamA,
			winnerSeat: 0,
			points:     6 + 9 + 6 + 12,
			contenders: []int{0, 2},
		},
		{
			name: "draw across teams goes to the blocking team",
			hands: [][]dominoes.Tile{
				{{Left: 3, Right: 3}},
				{{Left: 1, Right: 5}},
				{{Left: 4, Right: 5}},
				{{Left: 6, Right: 6}},
			},
			lastTeam:   teamPtr(dominoes.TeamB),
			outcome:    dominoes.OutcomeDrawCrossTeam,
			team:       dominoes.TeamB,
			winnerSeat: 1,
			points:     6 + 6 + 9 + 12,
			contenders: []int{0, 1},
		},
		{
			name: "draw across teams with team one blocking",
			hands: [][]dominoes.Tile{
				{{Left: 3, Right: 3}},
				{{Left: 1, Right: 5}},
				{{Left: 4, Right: 5}},
				{{Left: 6, Right: 6}},
			},
			lastTeam:   teamPtr(dominoes.TeamA),
			outcome:    dominoes.OutcomeDrawCrossTeam,
			team:       dominoes.TeamA,
			winnerSeat: 0,
			points:     33,
			contenders: []int{0, 1},
		},
		{
			name: "draw across teams without a known blocker",
			hands: [][]dominoes.Tile{
				{{Left: 4, Right: 5}},
				{{Left: 1, Right: 5}},
				{{Left: 3, Right: 3}},
				{{Left: 6, Right: 6}},
			},
			lastTeam:   nil,
			outcome:    dominoes.OutcomeDrawCrossTeam,
			team:       dominoes.TeamB,
			winnerSeat: 1,
			points:     33,
			contenders: []int{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)

			result := dominoes.ScoreRound(tableOf(tt.hands...), tt.lastTeam)

			assert.Equal(tt.outcome, result.Outcome)
			assert.Equal(tt.team, result.WinningTeam)
			assert.Equal(tt.winnerSeat, result.WinnerSeat)
			assert.Equal(tt.points, result.Points)
			assert.Equal(tt.contenders, result.Contenders)
			assert.Equal(tt.outcome.IsDraw(), len(tt.contenders) > 1)
		})
	}
}

func TestScoreRoundCrossTeamPointsIgnoreWinner(t *testing.T) {
	hands := [][]dominoes.Tile{
		{{Left: 3, Right: 3}},
		{{Left: 1, Right: 5}},
		{{Left: 4, Right: 5}},
		{{Left: 6, Right: 6}},
	}

	a := dominoes.ScoreRound(tableOf(hands...), teamPtr(dominoes.TeamA))
	b := dominoes.ScoreRound(tableOf(hands...), teamPtr(dominoes.TeamB))

	assert.NotEqual(t, a.WinningTeam, b.WinningTeam)
	assert.Equal(t, a.Points, b.Points)
}
