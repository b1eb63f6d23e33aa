package server

import "github.com/chrisrodz/domino-game-cli/internal/dominoes"

type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Client → Server

type CreateGameRequest struct {
	Username    string `json:"username"`
	TargetScore int    `json:"targetScore,omitempty"` // 0 uses the server default
	Quick       bool   `json:"quick,omitempty"`
	SingleRound bool   `json:"singleRound,omitempty"`
}

type MoveRequest struct {
	Index int `json:"index"`
}

type ReconnectRequest struct {
	Token string `json:"token"`
}

// Server → Client

type CreateGameResponse struct {
	TableCode string `json:"tableCode"`
	Token     string `json:"token"`
	Seat      int    `json:"seat"`
}

type MoveResultResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Move    *dominoes.Move `json:"move,omitempty"`
}

type ReconnectResponse struct {
	Success   bool   `json:"success"`
	TableCode string `json:"tableCode"`
	Seat      int    `json:"seat"`
	Message   string `json:"message"`
}

type GameStateMessage struct {
	TableCode string                `json:"tableCode"`
	Status    TableStatus           `json:"status"`
	State     *dominoes.ClientState `json:"state"`
}

type TurnPlayedNotification struct {
	Seat   int            `json:"seat"`
	Name   string         `json:"name"`
	Passed bool           `json:"passed"`
	Move   *dominoes.Move `json:"move,omitempty"`
}

type RoundEndedNotification struct {
	Result     dominoes.RoundResult `json:"result"`
	WinnerName string               `json:"winnerName"`
	TeamScores [2]int               `json:"teamScores"`
	GameOver   bool                 `json:"gameOver"`
}

type GameEndedNotification struct {
	GameID     string        `json:"gameId"`
	Winner     dominoes.Team `json:"winner"`
	WinnerName string        `json:"winnerName"`
	TeamScores [2]int        `json:"teamScores"`
	Archived   bool          `json:"archived"`
}

type GameLeftResponse struct {
	Message string `json:"message"`
}
