package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/chrisrodz/domino-game-cli/internal/database"
	"github.com/chrisrodz/domino-game-cli/internal/dominoes"
)

func setupTestServer() (*Server, string, func()) {
	s := newServer(testDefaults())

	server := httptest.NewServer(http.HandlerFunc(s.websocketHandler))
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/websocket"

	return s, url, server.Close
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	msg := ClientMessage{Type: msgType}
	if payload != nil {
		msg.Payload = mustMarshal(payload)
	}
	if err := conn.Write(ctx, websocket.MessageText, mustMarshal(msg)); err != nil {
		t.Fatalf("sending %s: %v", msgType, err)
	}
}

// readUntil reads messages until one of type msgType arrives and returns it
// along with the types of everything read before it.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string) (ClientMessage, []string) {
	t.Helper()
	var seen []string
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("waiting for %s after %v: %v", msgType, seen, err)
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad server message %s: %v", data, err)
		}
		if msg.Type == msgType {
			return msg, seen
		}
		seen = append(seen, msg.Type)
	}
}

func decode[T any](t *testing.T, msg ClientMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		t.Fatalf("decoding %s payload: %v", msg.Type, err)
	}
	return v
}

func createGame(t *testing.T, ctx context.Context, conn *websocket.Conn, req CreateGameRequest) (CreateGameResponse, GameStateMessage) {
	t.Helper()
	send(t, ctx, conn, "create_game", req)
	created, _ := readUntil(t, ctx, conn, "game_created")
	state, _ := readUntil(t, ctx, conn, "game_state")
	return decode[CreateGameResponse](t, created), decode[GameStateMessage](t, state)
}

func tableStatus(table *Table) TableStatus {
	table.mu.Lock()
	defer table.mu.Unlock()
	return table.Status
}

func TestHealthHandler(t *testing.T) {
	assert := assert.New(t)
	s := newServer(testDefaults())
	server := httptest.NewServer(s.RegisterRoutes())
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("error making request to server. Err: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	assert.NoError(json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(http.StatusOK, resp.StatusCode)
	assert.Equal("application/json", resp.Header.Get("Content-Type"))
	assert.Equal("up", body["status"])
	assert.Equal("disabled", body["database"])
	assert.Equal("0", body["tables"])
}

func TestCORSPreflight(t *testing.T) {
	s := newServer(testDefaults())
	server := httptest.NewServer(s.RegisterRoutes())
	defer server.Close()

	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/websocket", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocketPing(t *testing.T) {
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()
	conn := dial(t, ctx, url)

	send(t, ctx, conn, "ping", nil)

	_, data, err := conn.Read(ctx)
	assert.NoError(t, err)
	var response ServerMessage
	assert.NoError(t, json.Unmarshal(data, &response))
	assert.Equal(t, "pong", response.Type)
}

func TestWebSocketRejectsBadMessages(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantCode string
	}{
		{"invalid json", "{not json", "INVALID_JSON"},
		{"unknown type", `{"type":"join_game"}`, "INVALID_MESSAGE_TYPE"},
		{"move outside a game", `{"type":"execute_move","payload":{"index":0}}`, "NOT_IN_GAME"},
		{"next round outside a game", `{"type":"next_round"}`, "NOT_IN_GAME"},
		{"leave outside a game", `{"type":"leave_game"}`, "NOT_IN_GAME"},
		{"bad create payload", `{"type":"create_game","payload":"Alice"}`, "INVALID_PAYLOAD"},
		{"empty username", `{"type":"create_game","payload":{"username":""}}`, "USERNAME_INVALID"},
		{"unknown token", `{"type":"reconnect","payload":{"token":"nope"}}`, "TOKEN_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			_, url, cleanup := setupTestServer()
			defer cleanup()
			conn := dial(t, ctx, url)

			assert.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(tt.raw)))

			msg, seen := readUntil(t, ctx, conn, "error")
			assert.Empty(t, seen)
			errMsg := decode[ErrorMessage](t, msg)
			assert.Equal(t, tt.wantCode, errMsg.Code)
			assert.Contains(t, errMsg.Message, tt.wantCode)
		})
	}
}

func TestWebSocketRateLimiting(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, url, cleanup := setupTestServer()
	defer cleanup()

	s.rateLimiter = NewRateLimiter(2, time.Second)
	conn := dial(t, ctx, url)

	for i := range 2 {
		send(t, ctx, conn, "ping", nil)
		msg, _ := readUntil(t, ctx, conn, "pong")
		assert.Equal("pong", msg.Type, "request %d should succeed", i+1)
	}

	send(t, ctx, conn, "ping", nil)
	_, data, err := conn.Read(ctx)
	assert.NoError(err)

	var response ServerMessage
	assert.NoError(json.Unmarshal(data, &response))
	assert.Equal("error", response.Type)
	errorPayload := response.Payload.(map[string]interface{})
	assert.Contains(errorPayload["message"].(string), "RATE_LIMIT_EXCEEDED")
}

func TestHandleCreateGame(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, url, cleanup := setupTestServer()
	defer cleanup()
	conn := dial(t, ctx, url)

	created, state := createGame(t, ctx, conn, CreateGameRequest{Username: "Alice", TargetScore: 150})

	assert.NoError(ValidateTableCode(created.TableCode))
	assert.NotEmpty(created.Token)
	assert.Equal(0, created.Seat)

	assert.Equal(created.TableCode, state.TableCode)
	assert.Contains([]TableStatus{StatusPlaying, StatusRoundOver}, state.Status)
	if assert.NotNil(state.State) {
		assert.Equal("Alice", state.State.Name)
		assert.Equal(150, state.State.TargetScore)
		assert.Len(state.State.Players, dominoes.PlayerCount)
		if state.Status == StatusPlaying {
			assert.NotEmpty(state.State.LegalMoves)
			assert.Equal(0, state.State.CurrentSeat)
		}
	}

	session, err := s.sessionManager.Lookup(created.Token)
	assert.NoError(err)
	assert.Equal(created.TableCode, session.TableCode)
	assert.Equal(1, s.gameManager.Count())

	send(t, ctx, conn, "create_game", CreateGameRequest{Username: "Alice"})
	msg, _ := readUntil(t, ctx, conn, "error")
	assert.Equal("ALREADY_IN_GAME", decode[ErrorMessage](t, msg).Code)
}

func TestHandleExecuteMove(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()
	conn := dial(t, ctx, url)

	_, state := createGame(t, ctx, conn, CreateGameRequest{Username: "Alice"})
	if state.Status != StatusPlaying {
		t.Skip("seeded deal ended the first round before the player moved")
	}

	send(t, ctx, conn, "execute_move", MoveRequest{Index: len(state.State.LegalMoves)})
	msg, _ := readUntil(t, ctx, conn, "move_result")
	rejected := decode[MoveResultResponse](t, msg)
	assert.False(rejected.Success)
	assert.Contains(rejected.Message, "INVALID_MOVE")

	want := state.State.LegalMoves[0]
	send(t, ctx, conn, "execute_move", MoveRequest{Index: 0})
	stateMsg, seen := readUntil(t, ctx, conn, "game_state")
	assert.Contains(seen, "turn_played")
	after := decode[GameStateMessage](t, stateMsg)
	assert.NotContains(after.State.Hand, want.Tile)

	msg, _ = readUntil(t, ctx, conn, "move_result")
	accepted := decode[MoveResultResponse](t, msg)
	assert.True(accepted.Success)
	if assert.NotNil(accepted.Move) {
		assert.Equal(want.Tile, accepted.Move.Tile)
	}
}

func TestHandleNextRoundWhilePlaying(t *testing.T) {
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()
	conn := dial(t, ctx, url)

	_, state := createGame(t, ctx, conn, CreateGameRequest{Username: "Alice"})
	if state.Status != StatusPlaying {
		t.Skip("seeded deal ended the first round before the player moved")
	}

	send(t, ctx, conn, "next_round", nil)

	msg, _ := readUntil(t, ctx, conn, "error")
	assert.Equal(t, "ROUND_IN_PROGRESS", decode[ErrorMessage](t, msg).Code)
}

// playOverSocket plays the first legal move each turn until the game ends and
// returns the final state and every message type seen along the way.
func playOverSocket(t *testing.T, ctx context.Context, conn *websocket.Conn, state GameStateMessage) (GameStateMessage, []string) {
	t.Helper()
	var seen []string
	for range 5000 {
		if state.Status == StatusCompleted {
			return state, seen
		}

		moved := state.Status != StatusRoundOver
		if moved {
			send(t, ctx, conn, "execute_move", MoveRequest{Index: 0})
		} else {
			send(t, ctx, conn, "next_round", nil)
		}

		msg, before := readUntil(t, ctx, conn, "game_state")
		seen = append(seen, before...)
		state = decode[GameStateMessage](t, msg)

		if moved {
			result, _ := readUntil(t, ctx, conn, "move_result")
			if !decode[MoveResultResponse](t, result).Success {
				t.Fatalf("first legal move was rejected")
			}
		}
	}
	t.Fatal("game did not finish")
	return state, seen
}

func TestPlayFullGameOverWebSocket(t *testing.T) {
	assert := assert.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	s, url, cleanup := setupTestServer()
	defer cleanup()
	s.rateLimiter = NewRateLimiter(100000, time.Second)
	conn := dial(t, ctx, url)

	_, state := createGame(t, ctx, conn, CreateGameRequest{Username: "Alice", Quick: true})
	final, seen := playOverSocket(t, ctx, conn, state)

	assert.Equal(StatusCompleted, final.Status)
	if assert.NotNil(final.State.Winner) {
		assert.GreaterOrEqual(final.State.TeamScores[*final.State.Winner], dominoes.QuickScore)
	}
	assert.Contains(seen, "round_ended")
	assert.Contains(seen, "game_ended")

	send(t, ctx, conn, "execute_move", MoveRequest{Index: 0})
	msg, _ := readUntil(t, ctx, conn, "move_result")
	result := decode[MoveResultResponse](t, msg)
	assert.False(result.Success)
	assert.Contains(result.Message, "GAME_OVER")
}

func TestReconnectAfterDisconnect(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, url, cleanup := setupTestServer()
	defer cleanup()

	first, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	created, before := createGame(t, ctx, first, CreateGameRequest{Username: "Alice"})
	table, err := s.gameManager.GetTable(created.TableCode)
	assert.NoError(err)

	first.Close(websocket.StatusNormalClosure, "")
	assert.Eventually(func() bool { return tableStatus(table) == StatusPaused }, 2*time.Second, 10*time.Millisecond)

	second := dial(t, ctx, url)
	send(t, ctx, second, "reconnect", ReconnectRequest{Token: created.Token})

	msg, _ := readUntil(t, ctx, second, "reconnected")
	reconnected := decode[ReconnectResponse](t, msg)
	assert.True(reconnected.Success)
	assert.Equal(created.TableCode, reconnected.TableCode)

	stateMsg, _ := readUntil(t, ctx, second, "game_state")
	after := decode[GameStateMessage](t, stateMsg)
	assert.Equal(before.Status, after.Status)
	assert.Equal(before.State.Hand, after.State.Hand)
}

func TestSilentConnectionIsDropped(t *testing.T) {
	assert := assert.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, url, cleanup := setupTestServer()
	defer cleanup()

	silent, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer silent.CloseNow()
	created, _ := createGame(t, ctx, silent, CreateGameRequest{Username: "Alice"})
	table, err := s.gameManager.GetTable(created.TableCode)
	assert.NoError(err)

	s.socketIdleTimeout = 100 * time.Millisecond
	time.Sleep(200 * time.Millisecond)

	chatty := dial(t, ctx, url)
	send(t, ctx, chatty, "ping", nil)
	readUntil(t, ctx, chatty, "pong")

	s.cleanup(ctx)

	_, _, err = silent.Read(ctx)
	assert.Error(err, "the silent socket is hung up")
	assert.Eventually(func() bool { return tableStatus(table) == StatusPaused }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(func() bool { return s.connectionManager.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	send(t, ctx, chatty, "ping", nil)
	readUntil(t, ctx, chatty, "pong")

	resumed := dial(t, ctx, url)
	send(t, ctx, resumed, "reconnect", ReconnectRequest{Token: created.Token})
	readUntil(t, ctx, resumed, "reconnected")
}

func TestReconnectFromAnotherDevice(t *testing.T) {
	ctx := context.Background()
	_, url, cleanup := setupTestServer()
	defer cleanup()
	first := dial(t, ctx, url)
	created, _ := createGame(t, ctx, first, CreateGameRequest{Username: "Alice"})

	second := dial(t, ctx, url)
	send(t, ctx, second, "reconnect", ReconnectRequest{Token: created.Token})

	msg, _ := readUntil(t, ctx, first, "disconnected_elsewhere")
	assert.Contains(t, decode[GameLeftResponse](t, msg).Message, "another device")
	_, _, err := first.Read(ctx)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))

	readUntil(t, ctx, second, "reconnected")
}

func TestHandleLeaveGame(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, url, cleanup := setupTestServer()
	defer cleanup()
	conn := dial(t, ctx, url)
	created, _ := createGame(t, ctx, conn, CreateGameRequest{Username: "Alice"})

	send(t, ctx, conn, "leave_game", nil)
	msg, _ := readUntil(t, ctx, conn, "game_left")
	assert.Contains(decode[GameLeftResponse](t, msg).Message, created.TableCode)
	assert.Equal(0, s.gameManager.Count())
	_, err := s.sessionManager.Lookup(created.Token)
	assert.Error(err)

	send(t, ctx, conn, "get_state", nil)
	msg, _ = readUntil(t, ctx, conn, "error")
	assert.Equal("NOT_IN_GAME", decode[ErrorMessage](t, msg).Code)
}

func TestShutdownNotifiesPlayers(t *testing.T) {
	ctx := context.Background()
	s, url, cleanup := setupTestServer()
	defer cleanup()
	conn := dial(t, ctx, url)
	send(t, ctx, conn, "ping", nil)
	readUntil(t, ctx, conn, "pong")

	done := make(chan error, 1)
	go func() { done <- s.Shutdown(ctx) }()

	readUntil(t, ctx, conn, "server_shutdown")
	_, _, err := conn.Read(ctx)
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))
	assert.NoError(t, <-done)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"NOT_IN_GAME: No active game session", "NOT_IN_GAME"},
		{"INVALID_MOVE: move index out of range: 9 not in [0, 2)", "INVALID_MOVE"},
		{"starting game: boom", ""},
		{"no code here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, errorCode(tt.msg))
		})
	}
}

func TestFinishedGameIsArchived(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in -short mode")
	}
	assert := assert.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("dominoes"),
		postgres.WithUsername("dominoes"),
		postgres.WithPassword("dominoes"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer testcontainers.TerminateContainer(container)

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	assert.NoError(err)
	db, err := database.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	s, url, cleanup := setupTestServer()
	defer cleanup()
	s.db = db
	s.results = database.NewResultStore(db.DB())
	s.rateLimiter = NewRateLimiter(100000, time.Second)
	conn := dial(t, ctx, url)

	created, state := createGame(t, ctx, conn, CreateGameRequest{Username: "Alice", SingleRound: true})
	final, _ := playOverSocket(t, ctx, conn, state)
	assert.Equal(StatusCompleted, final.Status)

	rec, err := s.results.LoadGame(ctx, final.State.GameId)
	if assert.NoError(err) {
		assert.Equal(created.TableCode, rec.TableCode)
		assert.Equal("Alice", rec.PlayerName)
		assert.Len(rec.Rounds, 1)
		assert.Equal(final.State.TeamScores, rec.TeamScores)
	}
}
