package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campuskb/campuskb/internal/ai"
	"github.com/campuskb/campuskb/internal/config"
	"github.com/campuskb/campuskb/internal/knowledge"
	"github.com/campuskb/campuskb/internal/logsink"
	"github.com/campuskb/campuskb/internal/model"
	appErr "github.com/campuskb/campuskb/internal/pkg/errors"
)

type fakeGenProvider struct {
	answer   string
	err      error
	calls    int
	lastReqs [][]ai.Part
}

func (p *fakeGenProvider) Name() string {
	return "fake"
}

func (p *fakeGenProvider) SubmitDocument(ctx context.Context, r io.Reader, displayName string) (*ai.DocumentHandle, error) {
	return nil, fmt.Errorf("not used")
}

func (p *fakeGenProvider) GetHandleState(ctx context.Context, handleID string) (ai.HandleState, error) {
	return ai.HandleStateReady, nil
}

func (p *fakeGenProvider) Generate(ctx context.Context, parts []ai.Part) (string, error) {
	p.calls++
	p.lastReqs = append(p.lastReqs, parts)
	if p.err != nil {
		return "", p.err
	}
	return p.answer, nil
}

type sinkRow struct {
	role     string
	question string
	answer   string
}

type fakeSink struct {
	rows chan sinkRow
	err  error
}

func newFakeSink() *fakeSink {
	return &fakeSink{rows: make(chan sinkRow, 16)}
}

func (s *fakeSink) Append(ctx context.Context, ts time.Time, role string, question string, answer string) error {
	s.rows <- sinkRow{role: role, question: question, answer: answer}
	return s.err
}

func (s *fakeSink) waitRow(t *testing.T) sinkRow {
	t.Helper()
	select {
	case row := <-s.rows:
		return row
	case <-time.After(2 * time.Second):
		t.Fatal("no log row appended")
		return sinkRow{}
	}
}

const prospectivePersona = "The reader is a prospective student; highlight admissions information."

func newChatFixture(t *testing.T, provider ai.IProvider, sink logsink.ISink) (*ChatService, *knowledge.Cache) {
	t.Helper()
	cache := knowledge.NewCache()
	chat := NewChatService(provider, cache, sink, config.ChatConfig{
		HistoryWindow:       4,
		AnswerCacheSize:     16,
		AnswerCacheTTLMins:  1,
		GenerateTimeoutSecs: 5,
	}, []config.RoleConfig{
		{Tag: "Prospective", Persona: prospectivePersona},
		{Tag: "Student"},
		{Tag: "Guardian"},
	})
	return chat, cache
}

func publishDocs(cache *knowledge.Cache, role model.RoleTag, ids ...string) {
	builder := knowledge.NewBuilder()
	for _, id := range ids {
		builder.AddDocument(role, &ai.DocumentHandle{
			ID:          "files/" + id,
			URI:         "uri://" + id,
			MIMEType:    "application/pdf",
			DisplayName: id + ".pdf",
			State:       ai.HandleStateReady,
		})
		builder.AddEntry(model.DocumentEntry{DisplayName: id + ".pdf", Role: role, Ready: true})
	}
	cache.Publish(builder)
}

func TestAnswer_PartOrderAndPersona(t *testing.T) {
	provider := &fakeGenProvider{answer: "We offer several programs."}
	sink := newFakeSink()
	chat, cache := newChatFixture(t, provider, sink)
	publishDocs(cache, "Prospective", "brochure")

	reply, err := chat.Answer(context.Background(), "Prospective", "What programs are offered?", nil)
	require.NoError(t, err)
	require.Equal(t, "We offer several programs.", reply)

	require.Len(t, provider.lastReqs, 1)
	parts := provider.lastReqs[0]
	require.Len(t, parts, 3)

	require.Nil(t, parts[0].Document)
	require.Contains(t, parts[0].Text, "Answer only from the content of the attached documents")
	require.Contains(t, parts[0].Text, prospectivePersona)

	require.NotNil(t, parts[1].Document)
	require.Equal(t, "files/brochure", parts[1].Document.ID)

	require.Nil(t, parts[2].Document)
	require.True(t, strings.HasPrefix(parts[2].Text, "\n[User question]\n"))
	require.Contains(t, parts[2].Text, "What programs are offered?")

	row := sink.waitRow(t)
	require.Equal(t, "Prospective", row.role)
	require.Equal(t, "We offer several programs.", row.answer)
}

func TestAnswer_UnknownRoleHasNoDocumentParts(t *testing.T) {
	provider := &fakeGenProvider{answer: "General reply."}
	sink := newFakeSink()
	chat, cache := newChatFixture(t, provider, sink)
	publishDocs(cache, "Student", "handbook")

	reply, err := chat.Answer(context.Background(), "Guardian", "When does term start?", nil)
	require.NoError(t, err)
	require.Equal(t, "General reply.", reply)

	parts := provider.lastReqs[0]
	require.Len(t, parts, 2, "no document parts for a role without documents")

	// The reply is ungrounded but still logged.
	row := sink.waitRow(t)
	require.Equal(t, "Guardian", row.role)
}

func TestAnswer_HistoryTruncatedToWindow(t *testing.T) {
	provider := &fakeGenProvider{answer: "ok"}
	chat, _ := newChatFixture(t, provider, newFakeSink())

	history := make([]model.ConversationTurn, 0, 10)
	for i := 0; i < 10; i++ {
		role := model.TurnRoleUser
		if i%2 == 1 {
			role = model.TurnRoleAssistant
		}
		history = append(history, model.ConversationTurn{Role: role, Text: fmt.Sprintf("turn-%d", i)})
	}

	_, err := chat.Answer(context.Background(), "Student", "next?", history)
	require.NoError(t, err)

	instruction := provider.lastReqs[0][0].Text
	for i := 0; i < 6; i++ {
		require.NotContains(t, instruction, fmt.Sprintf("turn-%d", i))
	}
	for i := 6; i < 10; i++ {
		require.Contains(t, instruction, fmt.Sprintf("turn-%d", i))
	}
	// Chronological order preserved.
	require.Less(t,
		strings.Index(instruction, "turn-6"),
		strings.Index(instruction, "turn-9"),
	)
	require.Contains(t, instruction, "User: turn-6")
	require.Contains(t, instruction, "AI: turn-7")
}

func TestAnswer_EmptyQuestionRejected(t *testing.T) {
	provider := &fakeGenProvider{answer: "ok"}
	chat, _ := newChatFixture(t, provider, newFakeSink())

	_, err := chat.Answer(context.Background(), "Student", "   ", nil)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	require.Zero(t, provider.calls)
}

func TestAnswer_BlockedFallbackIsLogged(t *testing.T) {
	provider := &fakeGenProvider{err: fmt.Errorf("%w: SAFETY", ai.ErrBlocked)}
	sink := newFakeSink()
	chat, _ := newChatFixture(t, provider, sink)

	reply, err := chat.Answer(context.Background(), "Student", "something inappropriate", nil)
	require.NoError(t, err)
	require.Equal(t, fallbackBlocked, reply)

	row := sink.waitRow(t)
	require.Equal(t, fallbackBlocked, row.answer, "the fallback text is recorded as the answer")
}

func TestAnswer_RateLimitedFallback(t *testing.T) {
	provider := &fakeGenProvider{err: fmt.Errorf("%w: quota", ai.ErrRateLimited)}
	chat, _ := newChatFixture(t, provider, newFakeSink())

	reply, err := chat.Answer(context.Background(), "Student", "hello?", nil)
	require.NoError(t, err)
	require.Equal(t, fallbackRateLimited, reply)
}

func TestAnswer_GenericFailureFallback(t *testing.T) {
	provider := &fakeGenProvider{err: fmt.Errorf("connection reset")}
	chat, _ := newChatFixture(t, provider, newFakeSink())

	reply, err := chat.Answer(context.Background(), "Student", "hello?", nil)
	require.NoError(t, err)
	require.Equal(t, fallbackGeneric, reply)
}

func TestAnswer_SinkFailureDoesNotFailChat(t *testing.T) {
	provider := &fakeGenProvider{answer: "fine"}
	sink := newFakeSink()
	sink.err = fmt.Errorf("sheet unavailable")
	chat, _ := newChatFixture(t, provider, sink)

	reply, err := chat.Answer(context.Background(), "Student", "hello?", nil)
	require.NoError(t, err)
	require.Equal(t, "fine", reply)
	sink.waitRow(t)
}

func TestAnswer_MemoizedAnswerSkipsProviderButStillLogs(t *testing.T) {
	provider := &fakeGenProvider{answer: "cached answer"}
	sink := newFakeSink()
	chat, _ := newChatFixture(t, provider, sink)

	_, err := chat.Answer(context.Background(), "Student", "same question", nil)
	require.NoError(t, err)
	sink.waitRow(t)

	reply, err := chat.Answer(context.Background(), "Student", "same question", nil)
	require.NoError(t, err)
	require.Equal(t, "cached answer", reply)
	require.Equal(t, 1, provider.calls)
	sink.waitRow(t)
}

func TestAnswer_UsesCurrentSnapshotPerCall(t *testing.T) {
	provider := &fakeGenProvider{answer: "ok"}
	chat, cache := newChatFixture(t, provider, newFakeSink())

	_, err := chat.Answer(context.Background(), "Student", "first", nil)
	require.NoError(t, err)
	require.Len(t, provider.lastReqs[0], 2)

	publishDocs(cache, "Student", "handbook", "calendar")

	_, err = chat.Answer(context.Background(), "Student", "second", nil)
	require.NoError(t, err)
	require.Len(t, provider.lastReqs[1], 4, "new snapshot's documents are picked up")
}
