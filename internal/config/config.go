package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the Memory Garden service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	// Storage backend selection. DatabaseURL wins when set; otherwise
	// DataDir selects the file (directory) or sqlite (.db path) backend;
	// empty means in-memory.
	DatabaseURL string
	DataDir     string

	// Memory store policy knobs. Values are product policy, not design
	// decisions; both are overridable per deployment.
	MemoryDedupWindow time.Duration
	MaxMemories       int
	MaxStacks         int

	ChatSessionInactivityTimeout time.Duration

	BrainAdapterMode string
	BrainPython      string
	BrainScriptPath  string
	BrainHTTPURL     string

	ImageProvider     string
	ReplicateAPIKey   string
	ReplicateAPIURL   string
	ReplicateModel    string
	ImagePollInterval time.Duration

	TranscribeProvider string
	DeepgramAPIKey     string
	DeepgramAPIURL     string
	WhisperCLI         string
	WhisperModelPath   string
	WhisperLanguage    string

	AIConfigPath string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "memorygarden"),
		AllowAnyOrigin:     false,
		DatabaseURL:        stringsTrimSpace("DATABASE_URL"),
		DataDir:            envOrDefault("APP_DATA_DIR", ".data"),
		BrainAdapterMode:   envOrDefault("BRAIN_ADAPTER_MODE", "auto"),
		BrainPython:        envOrDefault("BRAIN_PYTHON", "python3"),
		BrainScriptPath:    envOrDefault("BRAIN_SCRIPT_PATH", "scripts/chat_api_simple.py"),
		BrainHTTPURL:       stringsTrimSpace("BRAIN_HTTP_URL"),
		ImageProvider:      envOrDefault("IMAGE_PROVIDER", "auto"),
		ReplicateAPIKey:    stringsTrimSpace("REPLICATE_API_KEY"),
		ReplicateAPIURL:    envOrDefault("REPLICATE_API_URL", "https://api.replicate.com/v1"),
		ReplicateModel:     envOrDefault("REPLICATE_IMAGE_MODEL", "google/imagen-4-fast"),
		TranscribeProvider: envOrDefault("TRANSCRIBE_PROVIDER", "auto"),
		DeepgramAPIKey:     stringsTrimSpace("DEEPGRAM_API_KEY"),
		DeepgramAPIURL:     envOrDefault("DEEPGRAM_API_URL", "https://api.deepgram.com/v1/listen"),
		WhisperCLI:         envOrDefault("LOCAL_WHISPER_CLI", "whisper-cli"),
		WhisperModelPath:   envOrDefault("LOCAL_WHISPER_MODEL_PATH", ".models/whisper/ggml-base.bin"),
		WhisperLanguage:    envOrDefault("LOCAL_WHISPER_LANGUAGE", "en"),
		AIConfigPath:       envOrDefault("APP_AI_CONFIG_PATH", "ai_config.json"),

		ShutdownTimeout:              15 * time.Second,
		MemoryDedupWindow:            5 * time.Second,
		MaxMemories:                  100,
		MaxStacks:                    100,
		ChatSessionInactivityTimeout: 2 * time.Minute,
		ImagePollInterval:            800 * time.Millisecond,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryDedupWindow, err = durationFromEnv("APP_MEMORY_DEDUP_WINDOW", cfg.MemoryDedupWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxMemories, err = intFromEnv("APP_MAX_MEMORIES", cfg.MaxMemories)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxStacks, err = intFromEnv("APP_MAX_STACKS", cfg.MaxStacks)
	if err != nil {
		return Config{}, err
	}
	cfg.ChatSessionInactivityTimeout, err = durationFromEnv("APP_CHAT_SESSION_INACTIVITY_TIMEOUT", cfg.ChatSessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ImagePollInterval, err = durationFromEnv("IMAGE_POLL_INTERVAL", cfg.ImagePollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.MemoryDedupWindow <= 0 {
		return Config{}, fmt.Errorf("APP_MEMORY_DEDUP_WINDOW must be positive")
	}
	if cfg.MaxMemories <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_MEMORIES must be positive")
	}
	if cfg.MaxStacks <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_STACKS must be positive")
	}
	if cfg.ChatSessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_CHAT_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.ImagePollInterval <= 0 {
		return Config{}, fmt.Errorf("IMAGE_POLL_INTERVAL must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
