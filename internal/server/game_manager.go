package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chrisrodz/domino-game-cli/internal/config"
	"github.com/chrisrodz/domino-game-cli/internal/dominoes"
	"github.com/chrisrodz/domino-game-cli/internal/log"
)

// The remote player always sits in seat 0; the other three seats are computers.
const humanSeat = 0

var (
	ErrTableNotFound = errors.New("TABLE_NOT_FOUND: Table not found")
	ErrTokenMismatch = errors.New("TOKEN_MISMATCH: Token does not belong to this table")
	ErrTargetInvalid = errors.New("TARGET_INVALID: Target score must be positive")
)

type TableStatus string

const (
	StatusPlaying   TableStatus = "playing"
	StatusRoundOver TableStatus = "round_over"
	StatusPaused    TableStatus = "paused"
	StatusCompleted TableStatus = "completed"
)

type GameManager struct {
	tables    map[string]*Table
	usedCodes map[string]bool
	defaults  config.Config
	mu        sync.RWMutex
}

// Table is one remote player's game against three computer seats.
// Game must only be touched while holding mu.
type Table struct {
	Game      *dominoes.Game
	Code      string
	Token     string
	Username  string
	Status    TableStatus
	Connected bool
	Archived  bool
	CreatedAt time.Time
	UpdatedAt time.Time

	events tableEvents
	mu     sync.Mutex
}

// TableUpdate is everything one action on a table produced.
type TableUpdate struct {
	Turns    []dominoes.TurnResult
	Rounds   []dominoes.RoundResult
	State    *dominoes.ClientState
	Status   TableStatus
	GameOver bool
}

// tableEvents buffers what the game reports between two client messages.
type tableEvents struct {
	turns  []dominoes.TurnResult
	rounds []dominoes.RoundResult
}

func (e *tableEvents) TurnPlayed(result dominoes.TurnResult, _ *dominoes.ClientState) {
	e.turns = append(e.turns, result)
}

func (e *tableEvents) RoundEnded(result dominoes.RoundResult, _ *dominoes.ClientState) {
	e.rounds = append(e.rounds, result)
}

func (e *tableEvents) drain() ([]dominoes.TurnResult, []dominoes.RoundResult) {
	turns, rounds := e.turns, e.rounds
	e.turns, e.rounds = nil, nil
	return turns, rounds
}

// NewGameManager creates tables with defaults for anything a create_game
// request leaves out.
func NewGameManager(defaults config.Config) *GameManager {
	return &GameManager{
		tables:    make(map[string]*Table),
		usedCodes: make(map[string]bool),
		defaults:  defaults,
	}
}

// CreateTable deals a new game and plays the computer seats up to the first
// decision the player has to make.
func (gm *GameManager) CreateTable(req CreateGameRequest) (*Table, string, error) {
	if err := ValidateUsername(req.Username); err != nil {
		return nil, "", err
	}

	cfg := gm.defaults
	cfg.PlayerName = strings.TrimSpace(req.Username)
	switch {
	case req.Quick:
		cfg.TargetScore = dominoes.QuickScore
	case req.TargetScore < 0:
		return nil, "", ErrTargetInvalid
	case req.TargetScore > 0:
		cfg.TargetScore = req.TargetScore
	}
	if req.SingleRound {
		cfg.SingleRound = true
	}

	gm.mu.Lock()
	code := GenerateTableCode(gm.usedCodes)
	gm.usedCodes[code] = true
	gm.mu.Unlock()

	opts, err := cfg.GameOptions(log.Logger().With("table", code))
	if err != nil {
		gm.releaseCode(code)
		return nil, "", err
	}

	now := time.Now()
	table := &Table{
		Code:      code,
		Token:     uuid.New().String(),
		Username:  cfg.PlayerName,
		Connected: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	opts = append(opts, dominoes.WithObserver(&table.events))
	table.Game = dominoes.NewGame(uuid.New().String(), cfg.PlayerName, opts...)

	if err := table.Game.Advance(); err != nil {
		gm.releaseCode(code)
		return nil, "", fmt.Errorf("starting game: %w", err)
	}
	table.refreshStatus()

	gm.mu.Lock()
	gm.tables[code] = table
	gm.mu.Unlock()

	return table, table.Token, nil
}

func (gm *GameManager) GetTable(code string) (*Table, error) {
	code = NormalizeTableCode(code)
	if err := ValidateTableCode(code); err != nil {
		return nil, err
	}

	gm.mu.RLock()
	defer gm.mu.RUnlock()

	table, exists := gm.tables[code]
	if !exists {
		return nil, ErrTableNotFound
	}
	return table, nil
}

func (gm *GameManager) GetTableByToken(token string) (*Table, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	for _, table := range gm.tables {
		if table.Token == token {
			return table, nil
		}
	}
	return nil, ErrTokenNotFound
}

// RemoveTable drops a table and frees its code.
func (gm *GameManager) RemoveTable(code string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	delete(gm.tables, code)
	delete(gm.usedCodes, code)
}

// LeaveTable removes the table owned by token.
func (gm *GameManager) LeaveTable(token string) (*Table, error) {
	table, err := gm.GetTableByToken(token)
	if err != nil {
		return nil, err
	}
	gm.RemoveTable(table.Code)
	return table, nil
}

// MarkDisconnected pauses the table owned by token.
func (gm *GameManager) MarkDisconnected(token string) (*Table, error) {
	table, err := gm.GetTableByToken(token)
	if err != nil {
		return nil, err
	}

	table.mu.Lock()
	defer table.mu.Unlock()
	table.Connected = false
	table.UpdatedAt = time.Now()
	table.refreshStatus()

	return table, nil
}

func (gm *GameManager) ReconnectPlayer(token, code string) (*Table, error) {
	table, err := gm.GetTable(code)
	if err != nil {
		return nil, err
	}
	if table.Token != token {
		return nil, ErrTokenMismatch
	}

	table.mu.Lock()
	defer table.mu.Unlock()
	table.Connected = true
	table.UpdatedAt = time.Now()
	table.refreshStatus()

	return table, nil
}

// CleanupTables removes paused and completed tables untouched for longer
// than idle, and returns them.
func (gm *GameManager) CleanupTables(idle time.Duration) []*Table {
	cutoff := time.Now().Add(-idle)

	gm.mu.Lock()
	defer gm.mu.Unlock()

	var removed []*Table
	for code, table := range gm.tables {
		table.mu.Lock()
		stale := table.Status != StatusPlaying && table.Status != StatusRoundOver && table.UpdatedAt.Before(cutoff)
		table.mu.Unlock()

		if stale {
			delete(gm.tables, code)
			delete(gm.usedCodes, code)
			removed = append(removed, table)
		}
	}
	return removed
}

func (gm *GameManager) Count() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.tables)
}

func (gm *GameManager) releaseCode(code string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	delete(gm.usedCodes, code)
}

// ExecuteMove plays the pending legal move at index for the player, then lets
// the computer seats play until the player is needed again.
func (t *Table) ExecuteMove(index int) (TableUpdate, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.Game.ApplyMove(index); err != nil {
		return TableUpdate{}, err
	}
	return t.updateLocked(), nil
}

// NextRound deals the next round once the current one has been scored.
func (t *Table) NextRound() (TableUpdate, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.Game.NextRound(); err != nil {
		return TableUpdate{}, err
	}
	return t.updateLocked(), nil
}

// Flush returns the current view along with any events not yet sent.
func (t *Table) Flush() TableUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.updateLocked()
}

// claimArchive reports whether the caller is the first to archive a finished game.
func (t *Table) claimArchive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Archived || t.Game.Phase != dominoes.PhaseGameOver {
		return false
	}
	t.Archived = true
	return true
}

func (t *Table) updateLocked() TableUpdate {
	turns, rounds := t.events.drain()
	t.UpdatedAt = time.Now()
	t.refreshStatus()

	return TableUpdate{
		Turns:    turns,
		Rounds:   rounds,
		State:    t.Game.ClientState(humanSeat),
		Status:   t.Status,
		GameOver: t.Game.Phase == dominoes.PhaseGameOver,
	}
}

func (t *Table) refreshStatus() {
	switch {
	case t.Game.Phase == dominoes.PhaseGameOver:
		t.Status = StatusCompleted
	case !t.Connected:
		t.Status = StatusPaused
	case t.Game.Phase == dominoes.PhaseRoundOver:
		t.Status = StatusRoundOver
	default:
		t.Status = StatusPlaying
	}
}
