package terminal

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/chrisrodz/domino-game-cli/internal/database"
	"github.com/chrisrodz/domino-game-cli/internal/dominoes"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("3")).
			Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	scoreStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
)

func endLabel(end dominoes.End) string {
	switch end {
	case dominoes.EndFirst:
		return "first move"
	case dominoes.EndLeft:
		return "play on left"
	default:
		return "play on right"
	}
}

// RenderBoard draws the line of play with its open ends.
func RenderBoard(state *dominoes.ClientState) string {
	line := "Empty board"
	if len(state.Board) > 0 {
		parts := make([]string, len(state.Board))
		for i, t := range state.Board {
			parts[i] = t.String()
		}
		line = strings.Join(parts, " ")
	}

	ends := "Left: - | Right: -"
	if state.LeftEnd != nil && state.RightEnd != nil {
		ends = fmt.Sprintf("Left: [%d] | Right: [%d]", *state.LeftEnd, *state.RightEnd)
	}
	return boardStyle.Render(line + "\n" + dimStyle.Render(ends))
}

func RenderScores(state *dominoes.ClientState) string {
	target := fmt.Sprintf("first to %d", state.TargetScore)
	if state.SingleRound {
		target = "single round"
	}
	return fmt.Sprintf("%s  Team 1 (You & Ally): %s  Team 2 (Opponents): %s  %s",
		titleStyle.Render(fmt.Sprintf("Round %d", state.Round)),
		scoreStyle.Render(fmt.Sprintf("%d", state.TeamScores[dominoes.TeamA])),
		scoreStyle.Render(fmt.Sprintf("%d", state.TeamScores[dominoes.TeamB])),
		dimStyle.Render("("+target+")"))
}

func RenderHand(state *dominoes.ClientState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Your hand") + "\n")
	for _, t := range state.Hand {
		fmt.Fprintf(&b, "  %s (value: %d)\n", t, t.Value())
	}
	fmt.Fprintf(&b, "  Total: %d", state.HandValue)
	return b.String()
}

func RenderOpponents(state *dominoes.ClientState) string {
	parts := make([]string, 0, len(state.Players))
	for _, p := range state.Players {
		if p.Seat == state.Seat {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %d", p.Name, p.HandLength))
	}
	return dimStyle.Render("Tiles left  " + strings.Join(parts, "  "))
}

// RenderMoves numbers the legal moves from 1, the way the prompt reads them back.
func RenderMoves(moves []dominoes.Move) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Available moves") + "\n")
	for i, m := range moves {
		fmt.Fprintf(&b, "  %d. %s - %s (value: %d)\n", i+1, m.Tile, endLabel(m.End), m.Tile.Value())
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderTurn describes a resolved turn from the viewer's table.
func RenderTurn(result dominoes.TurnResult, state *dominoes.ClientState) string {
	name := state.Players[result.Seat].Name
	if result.Passed {
		return badStyle.Render(fmt.Sprintf("%s has no valid moves and must pass.", name))
	}
	return goodStyle.Render("✓") + fmt.Sprintf(" %s played %s (%s)", name, result.Move.Tile, endLabel(result.Move.End))
}

// DescribeRound explains how a round was decided.
func DescribeRound(result dominoes.RoundResult, state *dominoes.ClientState) string {
	winner := state.Players[result.WinnerSeat].Name
	switch result.Outcome {
	case dominoes.OutcomeWentOut:
		return fmt.Sprintf("%s went out! %s scores %d points.", winner, result.WinningTeam, result.Points)
	case dominoes.OutcomeBlocked:
		return fmt.Sprintf("Game blocked. %s has the lowest hand (%d). %s scores %d points.",
			winner, result.MinValue, result.WinningTeam, result.Points)
	case dominoes.OutcomeDrawSameTeam:
		return fmt.Sprintf("Game blocked with a tie inside %s at %d. %s scores %d points.",
			result.WinningTeam, result.MinValue, result.WinningTeam, result.Points)
	default:
		return fmt.Sprintf("Game blocked with a tie between teams at %d. %s placed the last tile and scores %d points.",
			result.MinValue, result.WinningTeam, result.Points)
	}
}

func RenderRound(result dominoes.RoundResult, state *dominoes.ClientState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Round %d over", result.Round)) + "\n")
	b.WriteString(DescribeRound(result, state) + "\n")
	for seat, value := range result.HandValues {
		marker := ""
		if len(result.Contenders) > 1 && slices.Contains(result.Contenders, seat) {
			marker = " (tied)"
		}
		fmt.Fprintf(&b, "  %-11s %3d%s\n", state.Players[seat].Name, value, marker)
	}
	b.WriteString(RenderScores(state))
	if state.Winner != nil {
		b.WriteString("\n" + RenderWinner(*state.Winner, state))
	}
	return b.String()
}

func RenderWinner(team dominoes.Team, state *dominoes.ClientState) string {
	if team == state.Team {
		return goodStyle.Bold(true).Render(fmt.Sprintf("%s wins the game. Well played!", team))
	}
	return badStyle.Bold(true).Render(fmt.Sprintf("%s wins the game.", team))
}

// RenderHistory lists archived games, newest first.
func RenderHistory(games []database.GameRecord) string {
	if len(games) == 0 {
		return dimStyle.Render("No finished games yet.")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Recent games") + "\n")
	for _, g := range games {
		result := badStyle.Render("lost")
		if g.WinningTeam == dominoes.TeamA {
			result = goodStyle.Render("won ")
		}
		length := fmt.Sprintf("to %d", g.TargetScore)
		if g.SingleRound {
			length = "single round"
		}
		fmt.Fprintf(&b, "  %s  %-20s %s %s  %3d-%-3d  %d rounds, %s\n",
			g.FinishedAt.Local().Format("2006-01-02 15:04"),
			g.PlayerName,
			result,
			scoreStyle.Render("Team 1"),
			g.TeamScores[dominoes.TeamA],
			g.TeamScores[dominoes.TeamB],
			g.RoundsPlayed,
			length,
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

const rules = `Caribbean Dominoes Rules

Setup:
  - 4 players in 2 teams (You + Ally vs 2 Opponents)
  - Each player gets 7 dominoes from a double-six set
  - The first round starts with the [6|6] domino

Gameplay:
  - Players take turns counter-clockwise
  - Match your domino to either end of the line
  - If you can't play, you must pass
  - A round ends when someone plays all their dominoes or all players pass

Scoring:
  - Whoever goes out scores the sum of the dominoes left in the other hands
  - If the game is blocked, the lowest hand wins the other hands' points
  - A tie inside one team scores every hand, including the winners'
  - A tie between teams goes to the team that placed the last tile
  - First team to reach the target score (default 200) wins`

func Rules() string {
	return titleStyle.Render("How to play") + "\n\n" + rules
}
