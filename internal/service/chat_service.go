package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/campuskb/campuskb/internal/ai"
	"github.com/campuskb/campuskb/internal/config"
	"github.com/campuskb/campuskb/internal/knowledge"
	"github.com/campuskb/campuskb/internal/logsink"
	"github.com/campuskb/campuskb/internal/model"
	appErr "github.com/campuskb/campuskb/internal/pkg/errors"
)

const defaultGroundingPrompt = `You are a strict fact-checking question answering system for a school.

Rules:
1. Answer only from the content of the attached documents (PDF).
2. Read graphs, tables, maps and photos inside the documents and use them in your answer.
3. Speculation and general knowledge are forbidden. If the documents do not contain the information, answer "No information is available".
4. Keep a polite, formal register.
5. State the file name of the source document you based the answer on, and the page number where determinable.`

const (
	fallbackBlocked     = "I am sorry, but I cannot answer that question. Please ask something related to the published documents."
	fallbackRateLimited = "I am sorry, the service is currently over capacity. Please wait a minute and try again."
	fallbackGeneric     = "An error occurred while generating the answer. Please try again."
)

const sinkTimeout = 10 * time.Second

// ChatService assembles one generation request per question: grounding
// rules and role persona, the truncated conversation, the role's ready
// document handles, then the question. The reply is normalized so a
// caller always gets some text back.
type ChatService struct {
	provider        ai.IProvider
	cache           *knowledge.Cache
	sink            logsink.ISink
	historyWindow   int
	grounding       string
	personas        map[model.RoleTag]string
	answers         *expirable.LRU[string, string]
	generateTimeout time.Duration
	now             func() time.Time
}

func NewChatService(provider ai.IProvider, cache *knowledge.Cache, sink logsink.ISink, cfg config.ChatConfig, roles []config.RoleConfig) *ChatService {
	grounding := cfg.GroundingPrompt
	if grounding == "" {
		grounding = defaultGroundingPrompt
	}
	personas := make(map[model.RoleTag]string, len(roles))
	for _, role := range roles {
		if role.Persona != "" {
			personas[model.RoleTag(role.Tag)] = role.Persona
		}
	}
	return &ChatService{
		provider:        provider,
		cache:           cache,
		sink:            sink,
		historyWindow:   cfg.HistoryWindow,
		grounding:       grounding,
		personas:        personas,
		answers:         expirable.NewLRU[string, string](cfg.AnswerCacheSize, nil, time.Duration(cfg.AnswerCacheTTLMins)*time.Minute),
		generateTimeout: time.Duration(cfg.GenerateTimeoutSecs) * time.Second,
		now:             time.Now,
	}
}

// Answer never surfaces a provider failure: a safety block, a rate
// limit and any other generation error each map to a fixed fallback
// text. Only an empty question is an error.
func (s *ChatService) Answer(ctx context.Context, role model.RoleTag, question string, history []model.ConversationTurn) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx).With(zap.String("role", string(role)))

	renderedHistory := renderHistory(truncateHistory(history, s.historyWindow))
	cacheKey := s.answerKey(role, renderedHistory, question)
	if cached, ok := s.answers.Get(cacheKey); ok {
		s.appendLog(role, question, cached)
		return cached, nil
	}

	snapshot := s.cache.Snapshot()
	documents := snapshot.Documents(role)

	parts := make([]ai.Part, 0, len(documents)+2)
	parts = append(parts, ai.Part{Text: s.buildInstruction(role, renderedHistory)})
	for _, handle := range documents {
		parts = append(parts, ai.Part{Document: handle})
	}
	parts = append(parts, ai.Part{Text: "\n[User question]\n" + question})

	genCtx := ctx
	if s.generateTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.generateTimeout)
		defer cancel()
	}
	answer, err := s.provider.Generate(genCtx, parts)
	switch {
	case err == nil:
		s.answers.Add(cacheKey, answer)
		s.appendLog(role, question, answer)
		return answer, nil
	case errors.Is(err, ai.ErrBlocked):
		logger.Warn("generation blocked", zap.Error(err))
		s.appendLog(role, question, fallbackBlocked)
		return fallbackBlocked, nil
	case errors.Is(err, ai.ErrRateLimited):
		logger.Warn("generation rate limited", zap.Error(err))
		return fallbackRateLimited, nil
	default:
		logger.Error("generation failed", zap.Error(err))
		return fallbackGeneric, nil
	}
}

func (s *ChatService) buildInstruction(role model.RoleTag, renderedHistory string) string {
	var b strings.Builder
	b.WriteString(s.grounding)
	if persona, ok := s.personas[role]; ok {
		b.WriteString("\n\n")
		b.WriteString(persona)
	}
	b.WriteString("\n\n[Conversation so far]\n")
	b.WriteString(renderedHistory)
	return b.String()
}

// appendLog is fire-and-forget: the request is answered regardless of
// whether the row lands.
func (s *ChatService) appendLog(role model.RoleTag, question string, answer string) {
	if s.sink == nil {
		return
	}
	ts := s.now()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := s.sink.Append(ctx, ts, string(role), question, answer); err != nil {
			logutil.GetLogger(ctx).Warn("chat log append failed", zap.Error(err))
		}
	}()
}

func (s *ChatService) answerKey(role model.RoleTag, renderedHistory string, question string) string {
	hash := sha256.Sum256([]byte(string(role) + "\x00" + renderedHistory + "\x00" + question))
	return hex.EncodeToString(hash[:])
}

func truncateHistory(history []model.ConversationTurn, window int) []model.ConversationTurn {
	if window <= 0 || len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}

func renderHistory(history []model.ConversationTurn) string {
	var b strings.Builder
	for _, turn := range history {
		label := "AI"
		if turn.Role == model.TurnRoleUser {
			label = "User"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	return b.String()
}
