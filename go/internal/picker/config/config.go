package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/fingerpicker/go/internal/picker"
	"github.com/mcdev12/fingerpicker/go/internal/picker/color"
	"github.com/mcdev12/fingerpicker/go/internal/picker/feedback"
	"github.com/mcdev12/fingerpicker/go/internal/picker/pick"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Game    GameConfig      `yaml:"game"`
	Colors  color.Options   `yaml:"colors"`
	Teams   pick.TeamColors `yaml:"teams"`
	Gateway GatewayConfig   `yaml:"gateway"`
	NATS    NATSConfig      `yaml:"nats"`
	Log     LogConfig       `yaml:"log"`
}

type GameConfig struct {
	Mode          pick.Mode     `yaml:"mode"`
	Countdown     time.Duration `yaml:"countdown"`
	FeedbackDelay time.Duration `yaml:"feedback_delay"`
	WinPulse      time.Duration `yaml:"win_pulse"`
	NeutralColor  color.RGB     `yaml:"neutral_color"`
	ArrowRadius   float64       `yaml:"arrow_radius"`

	EnableTeamMode            bool `yaml:"enable_team_mode"`
	EnableProgressiveFeedback bool `yaml:"enable_progressive_feedback"`
	EnableWinnerBurst         bool `yaml:"enable_winner_burst"`
}

type GatewayConfig struct {
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	TableIdleTTL   time.Duration `yaml:"table_idle_ttl"`
}

type NATSConfig struct {
	Enabled bool                `yaml:"enabled"`
	Conn    feedback.NATSConfig `yaml:",inline"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	opts := picker.DefaultOptions()
	return Config{
		Game: GameConfig{
			Mode:                      opts.Mode,
			Countdown:                 opts.Countdown,
			FeedbackDelay:             opts.FeedbackDelay,
			WinPulse:                  opts.WinPulse,
			NeutralColor:              opts.NeutralColor,
			ArrowRadius:               opts.ArrowRadius,
			EnableTeamMode:            opts.EnableTeamMode,
			EnableProgressiveFeedback: opts.EnableProgressiveFeedback,
			EnableWinnerBurst:         opts.EnableWinnerBurst,
		},
		Colors: opts.Colors,
		Teams:  opts.TeamColors,
		Gateway: GatewayConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			TableIdleTTL:   30 * time.Minute,
		},
		NATS: NATSConfig{Conn: feedback.DefaultNATSConfig()},
		Log:  LogConfig{Level: "info", Pretty: true},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := getEnv("PICKER_MODE", ""); v != "" {
		mode, err := pick.ParseMode(v)
		if err != nil {
			return fmt.Errorf("PICKER_MODE: %w", err)
		}
		c.Game.Mode = mode
	}
	c.Game.Countdown = getEnvAsMillis("PICKER_COUNTDOWN_MS", c.Game.Countdown)
	c.Game.FeedbackDelay = getEnvAsMillis("PICKER_FEEDBACK_DELAY_MS", c.Game.FeedbackDelay)
	c.Game.EnableTeamMode = getEnvAsBool("PICKER_TEAM_MODE", c.Game.EnableTeamMode)
	c.Game.EnableProgressiveFeedback = getEnvAsBool("PICKER_PROGRESSIVE_FEEDBACK", c.Game.EnableProgressiveFeedback)
	c.Game.EnableWinnerBurst = getEnvAsBool("PICKER_WINNER_BURST", c.Game.EnableWinnerBurst)

	c.Gateway.Port = getEnvAsInt("PORT", c.Gateway.Port)
	if v := getEnv("PICKER_ALLOWED_ORIGINS", ""); v != "" {
		c.Gateway.AllowedOrigins = strings.Split(v, ",")
	}

	if v := getEnv("NATS_URL", ""); v != "" {
		c.NATS.Conn.URL = v
		c.NATS.Enabled = true
	}
	c.NATS.Conn.StreamName = getEnv("PICKER_NATS_STREAM", c.NATS.Conn.StreamName)

	c.Log.Level = getEnv("PICKER_LOG_LEVEL", c.Log.Level)
	c.Log.Pretty = getEnvAsBool("PICKER_LOG_PRETTY", c.Log.Pretty)
	return nil
}

// Validate reports the first problem found, wrapped in ErrInvalid.
func (c Config) Validate() error {
	g := c.Game
	switch {
	case g.Countdown <= 0:
		return fmt.Errorf("%w: countdown must be positive, got %v", ErrInvalid, g.Countdown)
	case g.FeedbackDelay <= 0:
		return fmt.Errorf("%w: feedback delay must be positive, got %v", ErrInvalid, g.FeedbackDelay)
	case g.FeedbackDelay >= g.Countdown:
		return fmt.Errorf("%w: feedback delay %v must be shorter than the countdown %v", ErrInvalid, g.FeedbackDelay, g.Countdown)
	case g.Mode.Key() == "":
		return fmt.Errorf("%w: %v", ErrInvalid, pick.ErrUnknownMode)
	case g.Mode == pick.ModeGroup && !g.EnableTeamMode:
		return fmt.Errorf("%w: group mode needs enable_team_mode", ErrInvalid)
	case c.Colors.MaxAttempts <= 0:
		return fmt.Errorf("%w: colors.max_attempts must be positive", ErrInvalid)
	case c.Gateway.Port <= 0 || c.Gateway.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Gateway.Port)
	case c.NATS.Enabled && c.NATS.Conn.URL == "":
		return fmt.Errorf("%w: nats.url is required when NATS is enabled", ErrInvalid)
	case c.NATS.Conn.StreamName != "" && c.NATS.Conn.PublishTimeout <= 0:
		return fmt.Errorf("%w: nats.publish_timeout must be positive when a stream is set", ErrInvalid)
	}
	return nil
}

// PickerOptions converts the game settings into state machine options.
func (c Config) PickerOptions() picker.Options {
	return picker.Options{
		Mode:                      c.Game.Mode,
		Countdown:                 c.Game.Countdown,
		FeedbackDelay:             c.Game.FeedbackDelay,
		WinPulse:                  c.Game.WinPulse,
		Colors:                    c.Colors,
		TeamColors:                c.Teams,
		NeutralColor:              c.Game.NeutralColor,
		ArrowRadius:               c.Game.ArrowRadius,
		EnableTeamMode:            c.Game.EnableTeamMode,
		EnableProgressiveFeedback: c.Game.EnableProgressiveFeedback,
		EnableWinnerBurst:         c.Game.EnableWinnerBurst,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsMillis(key string, defaultValue time.Duration) time.Duration {
	ms := getEnvAsInt(key, -1)
	if ms < 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}
