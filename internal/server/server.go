package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/chrisrodz/domino-game-cli/internal/config"
	"github.com/chrisrodz/domino-game-cli/internal/database"
	"github.com/chrisrodz/domino-game-cli/internal/log"
)

const (
	cleanupInterval   = 5 * time.Minute
	tableIdleTimeout  = 30 * time.Minute
	socketIdleTimeout = 10 * time.Minute
	historyRetention  = 90 * 24 * time.Hour
	archiveTimeout    = 5 * time.Second
)

type Server struct {
	port              int
	db                database.Service      // nil when no database_url is configured
	results           *database.ResultStore // nil when no database_url is configured
	connectionManager *ConnectionManager
	gameManager       *GameManager
	sessionManager    *SessionManager
	rateLimiter       *RateLimiter
	idleTracker       *IdleTracker
	socketIdleTimeout time.Duration
	stopBackground    context.CancelFunc
}

// NewServer builds the table server from cfg. When cfg.DatabaseURL is set it
// connects to Postgres, migrates it, and archives every finished game there.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, *http.Server, error) {
	s := newServer(*cfg)

	if cfg.DatabaseURL != "" {
		db, err := database.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s.db = db
		s.results = database.NewResultStore(db.DB())
		log.Info("Archiving finished games to the database")
	} else {
		log.Warn("No database_url configured, finished games will not be archived")
	}

	bg, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go s.cleanupTask(bg)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, httpServer, nil
}

func newServer(cfg config.Config) *Server {
	return &Server{
		port:              cfg.Port,
		connectionManager: NewConnectionManager(),
		gameManager:       NewGameManager(cfg),
		sessionManager:    NewSessionManager(),
		rateLimiter:       NewRateLimiter(10, time.Second),
		idleTracker:       NewIdleTracker(),
		socketIdleTimeout: socketIdleTimeout,
	}
}

// Shutdown tells every connected player the server is going away, closes
// their sockets, and disconnects from the database.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopBackground != nil {
		s.stopBackground()
	}

	notice := ServerMessage{
		Type:    "server_shutdown",
		Payload: GameLeftResponse{Message: "Server is shutting down"},
	}
	conns := s.connectionManager.Snapshot()
	for id, conn := range conns {
		if conn == nil {
			continue
		}
		if err := s.sendMessage(conn, ctx, notice); err != nil {
			log.Debug("Failed to notify %s of shutdown: %v", id, err)
		}
		conn.Close(websocket.StatusGoingAway, "Server shutting down")
	}
	log.Info("Notified %d connections of shutdown", len(conns))

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// cleanupTask hangs up silent sockets, drops abandoned and finished tables,
// and prunes the archive.
func (s *Server) cleanupTask(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cleanup(ctx)
		}
	}
}

func (s *Server) cleanup(ctx context.Context) {
	s.rateLimiter.Cleanup()
	s.dropIdleConnections()

	for _, table := range s.gameManager.CleanupTables(tableIdleTimeout) {
		s.sessionManager.Release(table.Token)
		log.Info("Removed idle table %s (%s)", table.Code, table.Status)
	}

	if s.results == nil {
		return
	}
	deleted, err := s.results.CleanupOldGames(ctx, historyRetention)
	if err != nil {
		log.Error("Archive cleanup failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Info("Archive cleanup: deleted %d old games", deleted)
	}
}

// dropIdleConnections closes sockets that went quiet without closing. Their
// handlers then pause the tables they were playing at.
func (s *Server) dropIdleConnections() {
	for _, id := range s.idleTracker.IdleFor(s.socketIdleTimeout) {
		s.idleTracker.Forget(id)
		conn := s.connectionManager.GetConnection(id)
		if conn == nil {
			continue
		}
		log.Info("Hanging up idle connection %s", id)
		conn.CloseNow()
	}
}

// archive stores a finished table's game once. It is a no-op without a database.
func (s *Server) archive(table *Table) bool {
	if s.results == nil || !table.claimArchive() {
		return false
	}

	rec, err := database.NewGameRecord(table.Game, table.Code)
	if err != nil {
		log.Error("Failed to summarise table %s: %v", table.Code, err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()
	if err := s.results.SaveGame(ctx, rec); err != nil {
		log.Error("Failed to archive table %s: %v", table.Code, err)
		return false
	}

	log.Info("Archived game %s from table %s", rec.ID, table.Code)
	return true
}
