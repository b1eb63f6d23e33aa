package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/chrisrodz/domino-game-cli/internal/dominoes"
	"github.com/chrisrodz/domino-game-cli/internal/log"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)

	mux.HandleFunc("/websocket", s.websocketHandler)

	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := map[string]string{"database": "disabled"}
	if s.db != nil {
		for k, v := range s.db.Health(r.Context()) {
			stats["database_"+k] = v
		}
		stats["database"] = stats["database_status"]
	}
	stats["status"] = "up"
	stats["tables"] = fmt.Sprint(s.gameManager.Count())
	stats["connections"] = fmt.Sprint(s.connectionManager.Count())

	resp, err := json.Marshal(stats)
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Error("Failed to write response: %v", err)
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	log.Debug("New connection: %s", connectionID)
	s.connectionManager.AddConnection(connectionID, socket)
	s.idleTracker.Touch(connectionID)
	defer func() {
		token := s.connectionManager.GetTokenByConnection(connectionID)

		s.connectionManager.RemoveConnection(connectionID)
		s.rateLimiter.RemoveConnection(connectionID)
		s.idleTracker.Forget(connectionID)
		log.Debug("Connection closed: %s", connectionID)

		if token == "" {
			return
		}
		table, err := s.gameManager.MarkDisconnected(token)
		if err != nil {
			// The player left the table before the socket closed.
			if !errors.Is(err, ErrTokenNotFound) {
				log.Error("Error marking player disconnected: %v", err)
			}
			return
		}
		log.Info("%s disconnected from table %s, table is %s", table.Username, table.Code, table.Status)
	}()

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Debug("Connection %s read error: %v", connectionID, err)
			return
		}

		if msgType != websocket.MessageText {
			log.Debug("Non-text input from %s", connectionID)
			continue
		}

		if !s.rateLimiter.Allow(connectionID) {
			s.sendError(socket, ctx, "RATE_LIMIT_EXCEEDED: Too many messages, slow down")
			continue
		}
		s.idleTracker.Touch(connectionID)

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug("Invalid JSON from %s: %v", connectionID, err)
			s.sendError(socket, ctx, "INVALID_JSON: Invalid JSON")
			continue
		}

		if err := ValidateMessageType(msg.Type); err != nil {
			log.Debug("Unknown message type '%s' from %s", msg.Type, connectionID)
			s.sendError(socket, ctx, err.Error())
			continue
		}

		log.Debug("Message type '%s' from %s", msg.Type, connectionID)

		switch msg.Type {
		case "ping":
			s.handlePing(socket, ctx, connectionID)

		case "create_game":
			s.handleCreateGame(socket, ctx, connectionID, msg.Payload)

		case "reconnect":
			s.handleReconnect(socket, ctx, connectionID, msg.Payload)

		case "execute_move":
			s.handleExecuteMove(socket, ctx, connectionID, msg.Payload)

		case "next_round":
			s.handleNextRound(socket, ctx, connectionID)

		case "get_state":
			s.handleGetState(socket, ctx, connectionID)

		case "leave_game":
			s.handleLeaveGame(socket, ctx, connectionID)
		}
	}
}

func (s *Server) handlePing(socket *websocket.Conn, ctx context.Context, connectionID string) {
	response := ServerMessage{
		Type:    "pong",
		Payload: struct{}{},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Debug("Failed to send pong to %s: %v", connectionID, err)
	}
}

func (s *Server) sendMessage(socket *websocket.Conn, ctx context.Context, msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	return socket.Write(ctx, websocket.MessageText, data)
}

func (s *Server) sendError(socket *websocket.Conn, ctx context.Context, msg string) {
	response := ServerMessage{
		Type: "error",
		Payload: ErrorMessage{
			Message: msg,
			Code:    errorCode(msg),
		},
	}

	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Debug("Failed to send error message: %v", err)
	}
}

// errorCode extracts the CODE from a "CODE: message" error string.
func errorCode(msg string) string {
	code, _, found := strings.Cut(msg, ":")
	if !found || code == "" || strings.ToUpper(code) != code || strings.ContainsAny(code, " \t") {
		return ""
	}
	return code
}

// tableFor resolves the table the connection is playing at, reporting an
// error to the client when there is none.
func (s *Server) tableFor(socket *websocket.Conn, ctx context.Context, connectionID string) (*Table, string, bool) {
	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_GAME: No active game session")
		return nil, "", false
	}

	table, err := s.gameManager.GetTableByToken(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return nil, "", false
	}
	return table, token, true
}

func (s *Server) handleCreateGame(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req CreateGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "INVALID_PAYLOAD: Invalid create_game payload")
		return
	}

	if token := s.connectionManager.GetTokenByConnection(connectionID); token != "" {
		s.sendError(socket, ctx, "ALREADY_IN_GAME: Leave your current table first")
		return
	}

	table, token, err := s.gameManager.CreateTable(req)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.sessionManager.Save(SessionInfo{
		Token:     token,
		TableCode: table.Code,
		Seat:      humanSeat,
		Username:  table.Username,
	})
	s.connectionManager.AddConnectionWithToken(connectionID, socket, token)
	s.connectionManager.SetPlayer(connectionID, PlayerConnection{
		TableCode: table.Code,
		Seat:      humanSeat,
		Username:  table.Username,
		Token:     token,
	})
	log.Info("%s opened table %s (target %d)", table.Username, table.Code, table.Game.TargetScore)

	response := ServerMessage{
		Type: "game_created",
		Payload: CreateGameResponse{
			TableCode: table.Code,
			Token:     token,
			Seat:      humanSeat,
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Debug("Failed to send game_created: %v", err)
		return
	}

	s.sendUpdate(socket, ctx, table, table.Flush())
}

func (s *Server) handleReconnect(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req ReconnectRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "INVALID_PAYLOAD: Invalid reconnect payload")
		return
	}

	session, err := s.sessionManager.Lookup(req.Token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	table, err := s.gameManager.ReconnectPlayer(req.Token, session.TableCode)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}

	oldConnectionID := s.connectionManager.AddConnectionWithToken(connectionID, socket, req.Token)
	if oldConnectionID != "" && oldConnectionID != connectionID {
		if oldConn := s.connectionManager.GetConnection(oldConnectionID); oldConn != nil {
			s.sendMessage(oldConn, context.Background(), ServerMessage{
				Type:    "disconnected_elsewhere",
				Payload: GameLeftResponse{Message: "You connected on another device"},
			})
			oldConn.Close(websocket.StatusNormalClosure, "Connected from another device")
		}
		s.connectionManager.RemoveConnection(oldConnectionID)
	}
	s.connectionManager.SetPlayer(connectionID, PlayerConnection{
		TableCode: session.TableCode,
		Seat:      session.Seat,
		Username:  session.Username,
		Token:     req.Token,
	})
	log.Info("%s reconnected to table %s", session.Username, session.TableCode)

	response := ServerMessage{
		Type: "reconnected",
		Payload: ReconnectResponse{
			Success:   true,
			TableCode: session.TableCode,
			Seat:      session.Seat,
			Message:   "Successfully reconnected",
		},
	}
	if err := s.sendMessage(socket, ctx, response); err != nil {
		log.Debug("Failed to send reconnected response: %v", err)
		return
	}

	s.sendUpdate(socket, ctx, table, table.Flush())
}

func (s *Server) handleExecuteMove(socket *websocket.Conn, ctx context.Context, connectionID string, payload json.RawMessage) {
	var req MoveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.sendError(socket, ctx, "INVALID_PAYLOAD: Invalid move request")
		return
	}

	table, token, ok := s.tableFor(socket, ctx, connectionID)
	if !ok {
		return
	}

	update, err := table.ExecuteMove(req.Index)
	switch {
	case errors.Is(err, dominoes.ErrInconsistentState):
		s.dropTable(socket, ctx, table, token, err)
		return
	case err != nil:
		s.sendMessage(socket, ctx, ServerMessage{
			Type: "move_result",
			Payload: MoveResultResponse{
				Success: false,
				Message: err.Error(),
			},
		})
		return
	}

	s.sendUpdate(socket, ctx, table, update)

	var played *dominoes.Move
	for _, turn := range update.Turns {
		if turn.Seat == humanSeat && !turn.Passed {
			played = turn.Move
			break
		}
	}
	s.sendMessage(socket, ctx, ServerMessage{
		Type: "move_result",
		Payload: MoveResultResponse{
			Success: true,
			Move:    played,
		},
	})
}

func (s *Server) handleNextRound(socket *websocket.Conn, ctx context.Context, connectionID string) {
	table, token, ok := s.tableFor(socket, ctx, connectionID)
	if !ok {
		return
	}

	update, err := table.NextRound()
	switch {
	case errors.Is(err, dominoes.ErrInconsistentState):
		s.dropTable(socket, ctx, table, token, err)
		return
	case err != nil:
		s.sendError(socket, ctx, err.Error())
		return
	}

	s.sendUpdate(socket, ctx, table, update)
}

func (s *Server) handleGetState(socket *websocket.Conn, ctx context.Context, connectionID string) {
	table, _, ok := s.tableFor(socket, ctx, connectionID)
	if !ok {
		return
	}

	s.sendUpdate(socket, ctx, table, table.Flush())
}

func (s *Server) handleLeaveGame(socket *websocket.Conn, ctx context.Context, connectionID string) {
	token := s.connectionManager.GetTokenByConnection(connectionID)
	if token == "" {
		s.sendError(socket, ctx, "NOT_IN_GAME: No active game session")
		return
	}

	table, err := s.gameManager.LeaveTable(token)
	if err != nil {
		s.sendError(socket, ctx, err.Error())
		return
	}
	s.sessionManager.Release(token)
	s.connectionManager.UnmapToken(token)
	log.Info("%s left table %s", table.Username, table.Code)

	s.sendMessage(socket, ctx, ServerMessage{
		Type:    "game_left",
		Payload: GameLeftResponse{Message: fmt.Sprintf("You left table %s", table.Code)},
	})
}

// dropTable abandons a table whose game can no longer be trusted.
func (s *Server) dropTable(socket *websocket.Conn, ctx context.Context, table *Table, token string, cause error) {
	log.Error("Dropping table %s: %v", table.Code, cause)

	s.gameManager.RemoveTable(table.Code)
	s.sessionManager.Release(token)
	s.connectionManager.UnmapToken(token)

	s.sendError(socket, ctx, cause.Error())
}

// sendUpdate reports every turn and round an action produced, the end of the
// game if it came, and finally the player's view of the table.
func (s *Server) sendUpdate(socket *websocket.Conn, ctx context.Context, table *Table, update TableUpdate) {
	state := update.State

	for _, turn := range update.Turns {
		s.sendMessage(socket, ctx, ServerMessage{
			Type: "turn_played",
			Payload: TurnPlayedNotification{
				Seat:   turn.Seat,
				Name:   state.Players[turn.Seat].Name,
				Passed: turn.Passed,
				Move:   turn.Move,
			},
		})
	}

	for i, round := range update.Rounds {
		s.sendMessage(socket, ctx, ServerMessage{
			Type: "round_ended",
			Payload: RoundEndedNotification{
				Result:     round,
				WinnerName: state.Players[round.WinnerSeat].Name,
				TeamScores: state.TeamScores,
				GameOver:   update.GameOver && i == len(update.Rounds)-1,
			},
		})
	}

	// Only the action that scored the last round announces the end of the game.
	if update.GameOver && len(update.Rounds) > 0 && state.Winner != nil {
		archived := s.archive(table)
		winner := *state.Winner
		log.Info("Table %s finished, %s wins %d-%d", table.Code, winner,
			state.TeamScores[dominoes.TeamA], state.TeamScores[dominoes.TeamB])

		s.sendMessage(socket, ctx, ServerMessage{
			Type: "game_ended",
			Payload: GameEndedNotification{
				GameID:     state.GameId,
				Winner:     winner,
				WinnerName: winner.String(),
				TeamScores: state.TeamScores,
				Archived:   archived,
			},
		})
	}

	s.sendMessage(socket, ctx, ServerMessage{
		Type: "game_state",
		Payload: GameStateMessage{
			TableCode: table.Code,
			Status:    update.Status,
			State:     state,
		},
	})
}
