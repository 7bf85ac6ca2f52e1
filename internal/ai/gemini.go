package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const pdfMIMEType = "application/pdf"

type geminiConfig struct {
	APIKey          string  `json:"api_key"`
	Model           string  `json:"model"`
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"top_p"`
	TopK            float32 `json:"top_k"`
	MaxOutputTokens int32   `json:"max_output_tokens"`
}

type geminiProvider struct {
	cfg geminiConfig

	initOnce sync.Once
	client   *genai.Client
	initErr  error
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	if p.cfg.APIKey == "" {
		return nil, ErrUnavailable
	}
	p.initOnce.Do(func() {
		p.client, p.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  p.cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
	})
	return p.client, p.initErr
}

func (p *geminiProvider) SubmitDocument(ctx context.Context, r io.Reader, displayName string) (*DocumentHandle, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}
	file, err := client.Files.Upload(ctx, r, &genai.UploadFileConfig{
		DisplayName: displayName,
		MIMEType:    pdfMIMEType,
	})
	if err != nil {
		return nil, err
	}
	return &DocumentHandle{
		ID:          file.Name,
		URI:         file.URI,
		MIMEType:    pdfMIMEType,
		DisplayName: displayName,
		State:       mapFileState(file.State),
	}, nil
}

func (p *geminiProvider) GetHandleState(ctx context.Context, handleID string) (HandleState, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return HandleStateFailed, err
	}
	file, err := client.Files.Get(ctx, handleID, nil)
	if err != nil {
		return HandleStateFailed, err
	}
	return mapFileState(file.State), nil
}

func (p *geminiProvider) Generate(ctx context.Context, parts []Part) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}
	genParts := make([]*genai.Part, 0, len(parts))
	for _, part := range parts {
		if part.Document != nil {
			genParts = append(genParts, genai.NewPartFromURI(part.Document.URI, part.Document.MIMEType))
			continue
		}
		genParts = append(genParts, genai.NewPartFromText(part.Text))
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		p.cfg.Model,
		[]*genai.Content{{Parts: genParts}},
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(p.cfg.Temperature),
			TopP:            genai.Ptr(p.cfg.TopP),
			TopK:            genai.Ptr(p.cfg.TopK),
			MaxOutputTokens: p.cfg.MaxOutputTokens,
		},
	)
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("%w: %s", ErrRateLimited, err.Error())
		}
		return "", err
	}
	if reason, blocked := blockReason(resp); blocked {
		return "", fmt.Errorf("%w: %s", ErrBlocked, reason)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty model response")
	}
	return text, nil
}

func mapFileState(state genai.FileState) HandleState {
	switch state {
	case genai.FileStateActive:
		return HandleStateReady
	case genai.FileStateFailed:
		return HandleStateFailed
	default:
		return HandleStatePending
	}
}

func blockReason(resp *genai.GenerateContentResponse) (string, bool) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return string(resp.PromptFeedback.BlockReason), true
	}
	for _, candidate := range resp.Candidates {
		if candidate.FinishReason == genai.FinishReasonSafety ||
			candidate.FinishReason == genai.FinishReasonProhibitedContent {
			return string(candidate.FinishReason), true
		}
	}
	return "", false
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	return strings.Contains(err.Error(), "429") || strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}

func createGeminiFactory(args interface{}) (IProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash-lite"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.TopP == 0 {
		cfg.TopP = 0.95
	}
	if cfg.TopK == 0 {
		cfg.TopK = 40
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 8192
	}
	return &geminiProvider{cfg: *cfg}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
}
