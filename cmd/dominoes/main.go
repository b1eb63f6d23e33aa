package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chrisrodz/domino-game-cli/internal/config"
	"github.com/chrisrodz/domino-game-cli/internal/database"
	"github.com/chrisrodz/domino-game-cli/internal/dominoes"
	"github.com/chrisrodz/domino-game-cli/internal/log"
	"github.com/chrisrodz/domino-game-cli/internal/server"
	"github.com/chrisrodz/domino-game-cli/internal/terminal"
)

var (
	configFile   string
	historyLimit int
)

var rootCmd = &cobra.Command{
	Use:          "dominoes",
	Short:        "Caribbean partnership dominoes against the computer",
	Long:         `Play partnership dominoes with a computer ally against two computer opponents, in the terminal or through the table server.`,
	SilenceUsage: true,
	RunE:         runPlay,
}

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a match in the terminal",
	RunE:  runPlay,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket table server",
	RunE:  runServe,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the rules",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), terminal.Rules())
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently finished games",
	RunE:  runHistory,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, toml or json)")
	config.RegisterFlags(rootCmd.PersistentFlags())
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of games to list")

	rootCmd.AddCommand(playCmd, serveCmd, rulesCmd, historyCmd)
}

func loadConfig(cmd *cobra.Command) (*viper.Viper, *config.Config, error) {
	v, err := config.New(configFile, cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, nil, err
	}
	log.InitLog("dominoes", cfg.LogLevel)
	return v, cfg, nil
}

func runPlay(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Game-level logging would interleave with the board, so it is only on for debugging.
	var gameLogger *charmlog.Logger
	if log.ParseLevel(cfg.LogLevel) == charmlog.DebugLevel {
		gameLogger = log.Logger()
	}
	opts, err := cfg.GameOptions(gameLogger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	term := terminal.New(cmd.InOrStdin(), out)
	defer term.Close()
	g := dominoes.NewGame(uuid.New().String(), cfg.PlayerName, append(opts, dominoes.WithObserver(term))...)

	fmt.Fprintln(out, terminal.Rules())
	if _, err := g.Play(ctx, term); err != nil {
		if errors.Is(err, terminal.ErrInputClosed) || errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, "\nGame abandoned.")
			return nil
		}
		return err
	}

	archiveGame(cfg, g)
	return nil
}

// archiveGame stores a finished terminal game when a database is configured.
// Failing to archive never fails the match.
func archiveGame(cfg *config.Config, g *dominoes.Game) {
	if cfg.DatabaseURL == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Warn("Game not archived: %v", err)
		return
	}
	defer db.Close()

	rec, err := database.NewGameRecord(g, "")
	if err != nil {
		log.Warn("Game not archived: %v", err)
		return
	}
	if err := database.NewResultStore(db.DB()).SaveGame(ctx, rec); err != nil {
		log.Warn("Game not archived: %v", err)
		return
	}
	log.Info("Archived game %s", rec.ID)
}

func gracefulShutdown(customServer *server.Server, httpServer *http.Server, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info("Shutdown signal received, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := customServer.Shutdown(ctx); err != nil {
		log.Error("Error during custom shutdown: %v", err)
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("HTTP server forced to shutdown with error: %v", err)
	}

	done <- true
}

func runServe(cmd *cobra.Command, _ []string) error {
	v, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	customServer, httpServer, err := server.NewServer(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if configFile != "" {
		config.Watch(v, func(name string, next *config.Config, err error) {
			if err != nil {
				log.Warn("Ignoring invalid config change in %s: %v", name, err)
				return
			}
			log.SetLevel(next.LogLevel)
			log.Info("Reloaded %s, log level is %s", name, next.LogLevel)
		})
	}

	done := make(chan bool, 1)
	go gracefulShutdown(customServer, httpServer, done)

	log.Info("Table server listening on %s", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	<-done
	log.Info("Graceful shutdown complete.")
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("CONFIG_INVALID: history needs database_url")
	}

	ctx := cmd.Context()
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	games, err := database.NewResultStore(db.DB()).RecentGames(ctx, historyLimit)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), terminal.RenderHistory(games))
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}
