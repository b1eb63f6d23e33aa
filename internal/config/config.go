package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/chrisrodz/domino-game-cli/internal/dominoes"
)

const EnvPrefix = "DOMINOES"

// TargetPresets are the match lengths offered by the command line help.
var TargetPresets = []int{dominoes.QuickScore, dominoes.DefaultScore, 300, 500}

type Config struct {
	TargetScore  int    `mapstructure:"target_score"`
	Quick        bool   `mapstructure:"quick"`
	SingleRound  bool   `mapstructure:"single_round"`
	WinnerStarts bool   `mapstructure:"winner_starts"`
	Strategy     string `mapstructure:"strategy"`
	Seed         int64  `mapstructure:"seed"`
	PlayerName   string `mapstructure:"player_name"`
	Port         int    `mapstructure:"port"`
	DatabaseURL  string `mapstructure:"database_url"`
	LogLevel     string `mapstructure:"log_level"`
}

// flag name -> config key
var flagKeys = map[string]string{
	"target":        "target_score",
	"quick":         "quick",
	"single-round":  "single_round",
	"winner-starts": "winner_starts",
	"strategy":      "strategy",
	"seed":          "seed",
	"name":          "player_name",
	"port":          "port",
	"database-url":  "database_url",
	"log-level":     "log_level",
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("target_score", dominoes.DefaultScore)
	v.SetDefault("quick", false)
	v.SetDefault("single_round", false)
	v.SetDefault("winner_starts", false)
	v.SetDefault("strategy", dominoes.StrategyGreedy)
	v.SetDefault("seed", 0)
	v.SetDefault("player_name", dominoes.DefaultSeatNames[0])
	v.SetDefault("port", 8080)
	v.SetDefault("database_url", "")
	v.SetDefault("log_level", "info")
}

// RegisterFlags declares every config key as a command line flag on flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.Int("target", dominoes.DefaultScore, fmt.Sprintf("points needed to win the match (presets: %v)", TargetPresets))
	flags.Bool("quick", false, fmt.Sprintf("quick match to %d points", dominoes.QuickScore))
	flags.Bool("single-round", false, "play a single round")
	flags.Bool("winner-starts", false, "the previous round's winner opens the next round")
	flags.String("strategy", dominoes.StrategyGreedy, "computer player strategy")
	flags.Int64("seed", 0, "shuffle seed, 0 for a random deal")
	flags.String("name", dominoes.DefaultSeatNames[0], "your name at the table")
	flags.Int("port", 8080, "table server port")
	flags.String("database-url", "", "postgres URL for finished-game history")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
}

// New builds a viper instance layered as: flags set on the command line, then
// DOMINOES_* environment (including .env), then configFile, then defaults.
func New(configFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("CONFIG_INVALID: reading .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("CONFIG_INVALID: reading %s: %w", configFile, err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key, ok := flagKeys[f.Name]
			if !ok || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("CONFIG_INVALID: binding flags: %w", bindErr)
		}
	}

	return v, nil
}

// Decode reads the current settings out of v and validates them.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("CONFIG_INVALID: %w", err)
	}
	if cfg.Quick {
		cfg.TargetScore = dominoes.QuickScore
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v, err := New(configFile, flags)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

func (c *Config) Validate() error {
	if c.TargetScore <= 0 {
		return fmt.Errorf("CONFIG_INVALID: target score must be positive, got %d", c.TargetScore)
	}
	if _, err := dominoes.NewStrategy(c.Strategy); err != nil {
		return fmt.Errorf("CONFIG_INVALID: %w", err)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("CONFIG_INVALID: port %d out of range", c.Port)
	}
	if strings.TrimSpace(c.PlayerName) == "" {
		return errors.New("CONFIG_INVALID: player name cannot be empty")
	}
	return nil
}

// GameOptions turns the match settings into options for dominoes.NewGame.
func (c *Config) GameOptions(logger *log.Logger) ([]dominoes.Option, error) {
	strategy, err := dominoes.NewStrategy(c.Strategy)
	if err != nil {
		return nil, err
	}

	opts := []dominoes.Option{
		dominoes.WithTargetScore(c.TargetScore),
		dominoes.WithStrategy(strategy),
	}
	if c.SingleRound {
		opts = append(opts, dominoes.WithSingleRound())
	}
	if c.WinnerStarts {
		opts = append(opts, dominoes.WithWinnerStarts())
	}
	if c.Seed != 0 {
		opts = append(opts, dominoes.WithSeed(c.Seed))
	}
	if logger != nil {
		opts = append(opts, dominoes.WithLogger(logger))
	}
	return opts, nil
}

// Watch reloads the config file on change and hands the result to onChange.
// A file that fails to decode is reported through err and the previous
// settings stay in force.
func Watch(v *viper.Viper, onChange func(name string, cfg *Config, err error)) {
	v.OnConfigChange(func(in fsnotify.Event) {
		cfg, err := Decode(v)
		onChange(in.Name, cfg, err)
	})
	v.WatchConfig()
}
