// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MasterChief05/gesture-alert-vision-83/internal/detector"
	"github.com/MasterChief05/gesture-alert-vision-83/internal/session"
)

// Sink kinds.
const (
	SinkWS     = "ws"
	SinkPubSub = "pubsub"
	SinkExec   = "exec"
)

// Frame source kinds.
const (
	SourceWS      = "ws"
	SourceStdin   = "stdin"
	SourceTracker = "tracker"
)

type Config struct {
	App       AppConfig
	Detection DetectionConfig
	Output    OutputConfig
}

type AppConfig struct {
	Addr        string
	DataDir     string
	StaticDir   string
	Environment string
	LogFilePath string
}

type DetectionConfig struct {
	WindowSize       int
	Consistency      int
	Cooldown         time.Duration
	EmptyFrameReset  int
	SessionTimeout   time.Duration
	RequireTemplates bool
	FrameWidth       float64
	FrameHeight      float64
	MatchScale       float64
	MatchThreshold   float64
	SequenceLength   int
	FrameSource      string
	TrackerCommand   string
}

type OutputConfig struct {
	Sink        string
	SinkCommand string
	SinkTimeout time.Duration
	AlertTTL    time.Duration
}

// Load reads .env (if present) and the process environment.
// Returns whether a .env file was loaded so the caller can log it once a logger exists.
func Load() (*Config, bool) {
	loaded := godotenv.Load() == nil

	return &Config{
		App: AppConfig{
			Addr:        getEnv("ADDR", ":8080"),
			DataDir:     getEnv("DATA_DIR", defaultDataDir()),
			StaticDir:   getEnv("STATIC_DIR", ""),
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "gesture-alert.log"),
		},
		Detection: DetectionConfig{
			WindowSize:       getEnvAsInt("WINDOW_SIZE", 5),
			Consistency:      getEnvAsInt("CONSISTENCY", 3),
			Cooldown:         getEnvAsMillis("COOLDOWN_MS", 1500),
			EmptyFrameReset:  getEnvAsInt("EMPTY_FRAME_RESET", 30),
			SessionTimeout:   getEnvAsMillis("SESSION_TIMEOUT_MS", 10000),
			RequireTemplates: getEnvAsBool("REQUIRE_TEMPLATES", false),
			FrameWidth:       getEnvAsFloat("FRAME_WIDTH", 640),
			FrameHeight:      getEnvAsFloat("FRAME_HEIGHT", 480),
			MatchScale:       getEnvAsFloat("MATCH_SCALE", 50),
			MatchThreshold:   getEnvAsFloat("MATCH_THRESHOLD", 0.72),
			SequenceLength:   getEnvAsInt("SEQUENCE_LENGTH", 0),
			FrameSource:      strings.ToLower(getEnv("FRAME_SOURCE", SourceWS)),
			TrackerCommand:   getEnv("TRACKER_COMMAND", ""),
		},
		Output: OutputConfig{
			Sink:        strings.ToLower(getEnv("SINK", SinkWS)),
			SinkCommand: getEnv("SINK_COMMAND", ""),
			SinkTimeout: getEnvAsMillis("SINK_TIMEOUT_MS", 5000),
			AlertTTL:    getEnvAsMillis("ALERT_TTL_MS", 3000),
		},
	}, loaded
}

// IsProduction reports whether GO_ENV is "production".
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// DBPath returns the SQLite database location inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.App.DataDir, "gesture-alert.db")
}

// FrameSize returns the reference frame for threshold units.
func (c *Config) FrameSize() detector.FrameSize {
	return detector.FrameSize{Width: c.Detection.FrameWidth, Height: c.Detection.FrameHeight}
}

// Session projects the detection settings into a session configuration.
func (c *Config) Session() session.Config {
	d := c.Detection
	return session.Config{
		WindowSize:       d.WindowSize,
		Consistency:      d.Consistency,
		Cooldown:         d.Cooldown,
		EmptyFrameReset:  d.EmptyFrameReset,
		RequireTemplates: d.RequireTemplates,
		SequenceLength:   d.SequenceLength,
		MatchScale:       d.MatchScale,
		MatchThreshold:   d.MatchThreshold,
	}
}

// Validate rejects settings the recognizer cannot run with.
func (c *Config) Validate() error {
	d := c.Detection
	var errs []error

	if d.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("WINDOW_SIZE must be at least 1, got %d", d.WindowSize))
	}
	if d.Consistency < 1 || d.Consistency > d.WindowSize {
		errs = append(errs, fmt.Errorf("CONSISTENCY must be between 1 and WINDOW_SIZE (%d), got %d", d.WindowSize, d.Consistency))
	}
	if d.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("COOLDOWN_MS must not be negative"))
	}
	if d.EmptyFrameReset < 0 {
		errs = append(errs, fmt.Errorf("EMPTY_FRAME_RESET must not be negative"))
	}
	if d.SessionTimeout < 0 {
		errs = append(errs, fmt.Errorf("SESSION_TIMEOUT_MS must not be negative"))
	}
	if d.FrameWidth <= 0 || d.FrameHeight <= 0 {
		errs = append(errs, fmt.Errorf("FRAME_WIDTH and FRAME_HEIGHT must be positive"))
	}
	if d.MatchScale <= 0 {
		errs = append(errs, fmt.Errorf("MATCH_SCALE must be positive"))
	}
	if d.MatchThreshold < 0 || d.MatchThreshold >= 1 {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD must be in [0,1), got %g", d.MatchThreshold))
	}
	if d.SequenceLength < 0 {
		errs = append(errs, fmt.Errorf("SEQUENCE_LENGTH must not be negative"))
	}
	switch d.FrameSource {
	case SourceWS, SourceStdin:
	case SourceTracker:
		if strings.TrimSpace(d.TrackerCommand) == "" {
			errs = append(errs, fmt.Errorf("TRACKER_COMMAND is required when FRAME_SOURCE=tracker"))
		}
	default:
		errs = append(errs, fmt.Errorf("FRAME_SOURCE must be one of ws, stdin, tracker, got %q", d.FrameSource))
	}

	switch c.Output.Sink {
	case SinkWS, SinkPubSub:
	case SinkExec:
		if strings.TrimSpace(c.Output.SinkCommand) == "" {
			errs = append(errs, fmt.Errorf("SINK_COMMAND is required when SINK=exec"))
		}
	default:
		errs = append(errs, fmt.Errorf("SINK must be one of ws, pubsub, exec, got %q", c.Output.Sink))
	}

	return errors.Join(errs...)
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".gesture-alert"
	}
	return filepath.Join(homeDir, ".gesture-alert")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsMillis(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Millisecond
}
