package dominoes

type Outcome string

const (
	OutcomeWentOut       Outcome = "went_out"
	OutcomeBlocked       Outcome = "blocked"
	OutcomeDrawSameTeam  Outcome = "draw_same_team"
	OutcomeDrawCrossTeam Outcome = "draw_cross_team"
)

// IsDraw reports whether several players tied for the lowest hand.
func (o Outcome) IsDraw() bool {
	return o == OutcomeDrawSameTeam || o == OutcomeDrawCrossTeam
}

type RoundResult struct {
	Round       int     `json:"round"`
	Outcome     Outcome `json:"outcome"`
	WinningTeam Team    `json:"winningTeam"`
	WinnerSeat  int     `json:"winnerSeat"`
	Points      int     `json:"points"`
	MinValue    int     `json:"minValue"`
	Contenders  []int   `json:"contenders"`
	HandValues  []int   `json:"handValues"`
}

// ScoreRound decides who takes a finished round and for how many points.
// lastTeam is the team that placed the last tile, or nil if nobody placed one.
func ScoreRound(players []*Player, lastTeam *Team) RoundResult {
	values := make([]int, len(players))
	for i, p := range players {
		values[i] = p.HandValue()
	}

	result := RoundResult{HandValues: values}

	for i, p := range players {
		if p.IsOut() {
			result.Outcome = OutcomeWentOut
			result.WinningTeam = p.Team
			result.WinnerSeat = i
			result.Points = sumExcept(values, i)
			result.Contenders = []int{i}
			return result
		}
	}

	minValue := values[0]
	for _, v := range values[1:] {
		minValue = min(minValue, v)
	}

	var contenders []int
	teams := make(map[Team]bool)
	for i, v := range values {
		if v == minValue {
			contenders = append(contenders, i)
			teams[players[i].Team] = true
		}
	}
	result.MinValue = minValue
	result.Contenders = contenders

	switch {
	case len(contenders) == 1:
		winner := contenders[0]
		result.Outcome = OutcomeBlocked
		result.WinnerSeat = winner
		result.WinningTeam = players[winner].Team
		result.Points = sumExcept(values, winner)

	case len(teams) == 1:
		winner := contenders[0]
		result.Outcome = OutcomeDrawSameTeam
		result.WinnerSeat = winner
		result.WinningTeam = players[winner].Team
		result.Points = sumExcept(values, -1)

	default:
		winner := contenders[0]
		if lastTeam != nil {
			for _, seat := range contenders {
				if players[seat].Team == *lastTeam {
					winner = seat
					break
				}
			}
		}
		result.Outcome = OutcomeDrawCrossTeam
		result.WinnerSeat = winner
		result.WinningTeam = players[winner].Team
		result.Points = sumExcept(values, -1)
	}

	return result
}

// sumExcept adds every value but the one at skip. Pass -1 to add them all.
func sumExcept(values []int, skip int) (total int) {
	for i, v := range values {
		if i != skip {
			total += v
		}
	}
	return
}
