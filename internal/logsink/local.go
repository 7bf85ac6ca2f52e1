package logsink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

type localConfig struct {
	Path string `json:"path"`
}

// localSink appends one JSON line per answered question. It exists for
// deployments without a spreadsheet and for local development.
type localSink struct {
	mu   sync.Mutex
	path string
}

func init() {
	Register("local", createLocalSink)
}

func createLocalSink(args interface{}) (ISink, error) {
	cfg := &localConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		cfg.Path = "chatlog.jsonl"
	}
	return &localSink{path: cfg.Path}, nil
}

type localRecord struct {
	Timestamp string `json:"timestamp"`
	Role      string `json:"role"`
	Question  string `json:"question"`
	Answer    string `json:"answer"`
}

func (s *localSink) Append(ctx context.Context, ts time.Time, role string, question string, answer string) error {
	_ = ctx
	record := localRecord{
		Timestamp: ts.Format(time.RFC3339),
		Role:      role,
		Question:  question,
		Answer:    answer,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write log line: %w", err)
	}
	return nil
}
