package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chrisrodz/domino-game-cli/internal/dominoes"
)

var (
	ErrGameNotFound    = errors.New("GAME_NOT_FOUND: no finished game with that id")
	ErrGameNotFinished = errors.New("GAME_NOT_FINISHED: only finished games are archived")
)

// GameRecord is the archived summary of one finished match.
type GameRecord struct {
	ID           string                 `json:"id"`
	TableCode    string                 `json:"tableCode"`
	PlayerName   string                 `json:"playerName"`
	TargetScore  int                    `json:"targetScore"`
	SingleRound  bool                   `json:"singleRound"`
	WinningTeam  dominoes.Team          `json:"winningTeam"`
	TeamScores   [2]int                 `json:"teamScores"`
	RoundsPlayed int                    `json:"roundsPlayed"`
	Rounds       []dominoes.RoundResult `json:"rounds,omitempty"`
	FinishedAt   time.Time              `json:"finishedAt"`
}

// NewGameRecord summarises a game that has reached PhaseGameOver.
func NewGameRecord(g *dominoes.Game, tableCode string) (GameRecord, error) {
	winner, ok := g.Winner()
	if !ok {
		return GameRecord{}, ErrGameNotFinished
	}

	human := g.Players[0]
	for _, p := range g.Players {
		if p.IsHuman() {
			human = p
			break
		}
	}

	rounds := make([]dominoes.RoundResult, len(g.History))
	copy(rounds, g.History)

	return GameRecord{
		ID:           g.Id,
		TableCode:    tableCode,
		PlayerName:   human.Name,
		TargetScore:  g.TargetScore,
		SingleRound:  g.SingleRound,
		WinningTeam:  winner,
		TeamScores:   g.TeamScores,
		RoundsPlayed: len(rounds),
		Rounds:       rounds,
		FinishedAt:   time.Now().UTC(),
	}, nil
}

// ResultStore archives finished games and their rounds.
type ResultStore struct {
	db *sql.DB
}

func NewResultStore(db *sql.DB) *ResultStore {
	return &ResultStore{db: db}
}

// SaveGame writes the game and replaces its rounds in a single transaction.
func (rs *ResultStore) SaveGame(ctx context.Context, rec GameRecord) error {
	tx, err := rs.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save of game %s: %w", rec.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO games (id, table_code, player_name, target_score, single_round,
			winning_team, team_a_score, team_b_score, rounds_played, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			table_code = EXCLUDED.table_code,
			player_name = EXCLUDED.player_name,
			target_score = EXCLUDED.target_score,
			single_round = EXCLUDED.single_round,
			winning_team = EXCLUDED.winning_team,
			team_a_score = EXCLUDED.team_a_score,
			team_b_score = EXCLUDED.team_b_score,
			rounds_played = EXCLUDED.rounds_played,
			finished_at = EXCLUDED.finished_at
	`,
		rec.ID,
		rec.TableCode,
		rec.PlayerName,
		rec.TargetScore,
		rec.SingleRound,
		int(rec.WinningTeam),
		rec.TeamScores[dominoes.TeamA],
		rec.TeamScores[dominoes.TeamB],
		len(rec.Rounds),
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save game %s: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rounds WHERE game_id = $1`, rec.ID); err != nil {
		return fmt.Errorf("failed to clear rounds of game %s: %w", rec.ID, err)
	}

	for _, r := range rec.Rounds {
		contenders, err := json.Marshal(r.Contenders)
		if err != nil {
			return fmt.Errorf("failed to serialize contenders: %w", err)
		}
		handValues, err := json.Marshal(r.HandValues)
		if err != nil {
			return fmt.Errorf("failed to serialize hand values: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO rounds (game_id, round, outcome, winning_team, winner_seat,
				points, min_value, contenders, hand_values)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			rec.ID,
			r.Round,
			string(r.Outcome),
			int(r.WinningTeam),
			r.WinnerSeat,
			r.Points,
			r.MinValue,
			string(contenders),
			string(handValues),
		)
		if err != nil {
			return fmt.Errorf("failed to save round %d of game %s: %w", r.Round, rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit game %s: %w", rec.ID, err)
	}
	return nil
}

// LoadGame retrieves a game and all of its rounds.
func (rs *ResultStore) LoadGame(ctx context.Context, id string) (*GameRecord, error) {
	row := rs.db.QueryRowContext(ctx, `
		SELECT id, table_code, player_name, target_score, single_round,
			winning_team, team_a_score, team_b_score, rounds_played, finished_at
		FROM games WHERE id = $1
	`, id)

	rec, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", id, err)
	}

	rows, err := rs.db.QueryContext(ctx, `
		SELECT round, outcome, winning_team, winner_seat, points, min_value, contenders, hand_values
		FROM rounds WHERE game_id = $1
		ORDER BY round
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds of game %s: %w", id, err)
	}
	defer rows.Close()

	rec.Rounds = make([]dominoes.RoundResult, 0, rec.RoundsPlayed)
	for rows.Next() {
		var (
			r                      dominoes.RoundResult
			outcome                string
			team                   int
			contenders, handValues []byte
		)
		if err := rows.Scan(&r.Round, &outcome, &team, &r.WinnerSeat, &r.Points, &r.MinValue, &contenders, &handValues); err != nil {
			return nil, fmt.Errorf("failed to scan round row: %w", err)
		}
		r.Outcome = dominoes.Outcome(outcome)
		r.WinningTeam = dominoes.Team(team)
		if err := json.Unmarshal(contenders, &r.Contenders); err != nil {
			return nil, fmt.Errorf("failed to deserialize contenders: %w", err)
		}
		if err := json.Unmarshal(handValues, &r.HandValues); err != nil {
			return nil, fmt.Errorf("failed to deserialize hand values: %w", err)
		}
		rec.Rounds = append(rec.Rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating round rows: %w", err)
	}

	return rec, nil
}

// RecentGames lists the latest finished games, newest first, without their rounds.
func (rs *ResultStore) RecentGames(ctx context.Context, limit int) ([]GameRecord, error) {
	rows, err := rs.db.QueryContext(ctx, `
		SELECT id, table_code, player_name, target_score, single_round,
			winning_team, team_a_score, team_b_score, rounds_played, finished_at
		FROM games
		ORDER BY finished_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []GameRecord
	for rows.Next() {
		rec, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		games = append(games, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game rows: %w", err)
	}

	return games, nil
}

// DeleteGame removes a game. Its rounds go with it.
func (rs *ResultStore) DeleteGame(ctx context.Context, id string) error {
	result, err := rs.db.ExecContext(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion result: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return nil
}

// CleanupOldGames deletes games that finished more than olderThan ago.
func (rs *ResultStore) CleanupOldGames(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := rs.db.ExecContext(ctx, `DELETE FROM games WHERE finished_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old games: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check cleanup result: %w", err)
	}
	return int(rowsAffected), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*GameRecord, error) {
	var (
		rec          GameRecord
		team         int
		teamA, teamB int
	)
	err := row.Scan(
		&rec.ID,
		&rec.TableCode,
		&rec.PlayerName,
		&rec.TargetScore,
		&rec.SingleRound,
		&team,
		&teamA,
		&teamB,
		&rec.RoundsPlayed,
		&rec.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.WinningTeam = dominoes.Team(team)
	rec.TeamScores = [2]int{teamA, teamB}
	return &rec, nil
}
