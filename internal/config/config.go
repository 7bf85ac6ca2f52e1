package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	LogConfig   logger.LogConfig `json:"log_config"`
	CORSOrigins []string         `json:"cors_origins"`
	Drive       DriveConfig      `json:"drive"`
	AI          AIConfig         `json:"ai"`
	LogSink     LogSinkConfig    `json:"log_sink"`
	Roles       []RoleConfig     `json:"roles"`
	Ingest      IngestConfig     `json:"ingest"`
	Chat        ChatConfig       `json:"chat"`
	ResyncCron  string           `json:"resync_cron"`
}

type DriveConfig struct {
	CredentialsFile string `json:"credentials_file"`
	RootFolderID    string `json:"root_folder_id"`
}

type AIConfig struct {
	Provider string      `json:"provider"`
	Data     interface{} `json:"data"`
}

type LogSinkConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type RoleConfig struct {
	Tag     string `json:"tag"`
	Persona string `json:"persona"`
}

type IngestConfig struct {
	PollIntervalMs  int    `json:"poll_interval_ms"`
	MaxPollAttempts int    `json:"max_poll_attempts"`
	StagingDir      string `json:"staging_dir"`
}

type ChatConfig struct {
	HistoryWindow       int    `json:"history_window"`
	GroundingPrompt     string `json:"grounding_prompt"`
	AnswerCacheSize     int    `json:"answer_cache_size"`
	AnswerCacheTTLMins  int    `json:"answer_cache_ttl_minutes"`
	GenerateTimeoutSecs int    `json:"generate_timeout_seconds"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Drive.RootFolderID == "" {
		return nil, fmt.Errorf("drive.root_folder_id is required")
	}
	if cfg.Drive.CredentialsFile == "" {
		cfg.Drive.CredentialsFile = "credentials.json"
	}
	if len(cfg.Roles) == 0 {
		return nil, fmt.Errorf("at least one role is required")
	}
	seen := map[string]bool{}
	for _, role := range cfg.Roles {
		if role.Tag == "" {
			return nil, fmt.Errorf("roles[].tag must not be empty")
		}
		if seen[role.Tag] {
			return nil, fmt.Errorf("duplicate role tag: %s", role.Tag)
		}
		seen[role.Tag] = true
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.LogSink.Type == "" {
		cfg.LogSink.Type = "local"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Ingest.PollIntervalMs == 0 {
		cfg.Ingest.PollIntervalMs = 2000
	}
	if cfg.Ingest.MaxPollAttempts == 0 {
		cfg.Ingest.MaxPollAttempts = 30
	}
	if cfg.Chat.HistoryWindow == 0 {
		cfg.Chat.HistoryWindow = 4
	}
	if cfg.Chat.AnswerCacheSize == 0 {
		cfg.Chat.AnswerCacheSize = 1000
	}
	if cfg.Chat.AnswerCacheTTLMins == 0 {
		cfg.Chat.AnswerCacheTTLMins = 30
	}
	if cfg.Chat.GenerateTimeoutSecs == 0 {
		cfg.Chat.GenerateTimeoutSecs = 60
	}
	return &cfg, nil
}
