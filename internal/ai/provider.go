package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrUnavailable = errors.New("ai provider not available")
	// ErrBlocked means the service refused to answer for content
	// safety reasons. It is a normal outcome, not a system failure.
	ErrBlocked     = errors.New("generation blocked")
	ErrRateLimited = errors.New("generation rate limited")
)

type HandleState string

const (
	HandleStatePending HandleState = "pending"
	HandleStateReady   HandleState = "ready"
	HandleStateFailed  HandleState = "failed"
)

// DocumentHandle is the provider's reference to a submitted document.
// The ingest worker owns it while State is pending; ownership moves to
// the knowledge cache once it is ready. A failed handle is discarded.
type DocumentHandle struct {
	ID          string
	URI         string
	MIMEType    string
	DisplayName string
	State       HandleState
}

// Part is one element of an ordered generation request: either plain
// text or a ready document handle.
type Part struct {
	Text     string
	Document *DocumentHandle
}

type IProvider interface {
	Name() string
	SubmitDocument(ctx context.Context, r io.Reader, displayName string) (*DocumentHandle, error)
	GetHandleState(ctx context.Context, handleID string) (HandleState, error)
	Generate(ctx context.Context, parts []Part) (string, error)
}

type ProviderFactory func(args interface{}) (IProvider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
