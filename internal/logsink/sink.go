package logsink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ISink records one answered question. Callers treat Append as
// best-effort: a sink failure never fails the chat response.
type ISink interface {
	Append(ctx context.Context, ts time.Time, role string, question string, answer string) error
}

type Factory func(args interface{}) (ISink, error)

var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func New(name string, args interface{}) (ISink, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("log_sink.type is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported log sink type: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("sink config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode sink config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode sink config: %w", err)
	}
	return nil
}
