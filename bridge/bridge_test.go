package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/athenabridge/config"
	"github.com/hupe1980/athenabridge/core"
	"github.com/hupe1980/athenabridge/gateway"
	"github.com/hupe1980/athenabridge/internal/testutil"
)

type invocation struct {
	tool string
	args map[string]any
}

// fakeSession is a scripted transport double recording lifecycle transitions
// and invocations.
type fakeSession struct {
	connectErr  error
	connected   bool
	connects    int
	disconnects int
	invocations []invocation
	replies     map[string]json.RawMessage
	invokeErr   error
}

func (s *fakeSession) Connect(context.Context) error {
	if s.connectErr != nil {
		return s.connectErr
	}
	if !s.connected {
		s.connected = true
		s.connects++
	}
	return nil
}

func (s *fakeSession) Disconnect() {
	s.connected = false
	s.disconnects++
}

func (s *fakeSession) IsConnected() bool { return s.connected }

func (s *fakeSession) Invoke(_ context.Context, tool string, args map[string]any) (json.RawMessage, error) {
	if !s.connected {
		return nil, &core.NotConnectedError{Transport: core.TransportStdio}
	}
	s.invocations = append(s.invocations, invocation{tool: tool, args: args})
	if s.invokeErr != nil {
		return nil, s.invokeErr
	}
	if reply, ok := s.replies[tool]; ok {
		return reply, nil
	}
	return testutil.ToolReply("ok", false), nil
}

func (s *fakeSession) calls(tool string) []invocation {
	var out []invocation
	for _, inv := range s.invocations {
		if inv.tool == tool {
			out = append(out, inv)
		}
	}
	return out
}

var _ core.Session = (*fakeSession)(nil)

func newTestBridge(t *testing.T, session *fakeSession) *Bridge {
	t.Helper()
	cfg, err := config.FromSettings(map[string]any{"athenaProjectDir": "/tmp"})
	require.NoError(t, err)
	return New(cfg, func(o *Options) { o.Session = session })
}

func searchReply(results ...core.SearchResult) json.RawMessage {
	return testutil.ToolReply(testutil.SearchPayload(results...), false)
}

func TestTurnStart_ShortPromptSkipsRecall(t *testing.T) {
	session := &fakeSession{}
	b := newTestBridge(t, session)

	assert.Nil(t, b.TurnStart(context.Background(), TurnStartEvent{Prompt: "hi"}))
	assert.Nil(t, b.TurnStart(context.Background(), TurnStartEvent{Prompt: ""}))
	assert.Nil(t, b.TurnStart(context.Background(), TurnStartEvent{Prompt: "0123456789"})) // exactly 10
	assert.Zero(t, session.connects, "short prompts must not open a connection")
}

func TestTurnStart_PromptLengthCountsRunes(t *testing.T) {
	session := &fakeSession{replies: map[string]json.RawMessage{
		gateway.ToolSmartSearch: searchReply(
			core.SearchResult{Content: "prefers dark mode", Score: 0.2},
		),
	}}
	b := newTestBridge(t, session)

	// 10 runes but 30 bytes: still below the gate
	assert.Nil(t, b.TurnStart(context.Background(), TurnStartEvent{Prompt: "你好你好你好你好你好"}))
	assert.Zero(t, session.connects, "a 10-rune prompt must not trigger recall")

	// 11 runes crosses it
	d := b.TurnStart(context.Background(), TurnStartEvent{Prompt: "你好你好你好你好你好吗"})
	require.NotNil(t, d)
	assert.Contains(t, d.Context, "prefers dark mode")
}

func TestTurnStart_InjectsScoredContext(t *testing.T) {
	session := &fakeSession{replies: map[string]json.RawMessage{
		gateway.ToolSmartSearch: searchReply(
			core.SearchResult{Content: "Sam prefers dark mode", Score: 0.25},
		),
	}}
	b := newTestBridge(t, session)

	d := b.TurnStart(context.Background(), TurnStartEvent{Prompt: "what are my preferences?"})
	require.NotNil(t, d)
	assert.Contains(t, d.Context, "25.0%")
	assert.Contains(t, d.Context, "Sam prefers dark mode")
	assert.True(t, session.connected, "connection stays open across the turn")
	assert.Zero(t, session.disconnects)
}

func TestTurnStart_PhoneNumberEndToEnd(t *testing.T) {
	session := &fakeSession{replies: map[string]json.RawMessage{
		gateway.ToolSmartSearch: searchReply(
			core.SearchResult{Content: "Sam's phone number is +12025550123", Score: 0.5},
		),
	}}
	b := newTestBridge(t, session)

	d := b.TurnStart(context.Background(), TurnStartEvent{Prompt: "What's my phone number?"})
	require.NotNil(t, d)

	var lines []string
	for _, line := range strings.Split(d.Context, "\n") {
		if strings.HasPrefix(line, "- ") {
			lines = append(lines, line)
		}
	}
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "50.0%")

	searches := session.calls(gateway.ToolSmartSearch)
	require.Len(t, searches, 1)
	assert.Equal(t, "What's my phone number?", searches[0].args["query"])
	assert.Equal(t, 3, searches[0].args["limit"])
	assert.Equal(t, false, searches[0].args["strict"])
	assert.Equal(t, false, searches[0].args["rerank"])
}

func TestTurnStart_LowScoresProduceNoDirective(t *testing.T) {
	session := &fakeSession{replies: map[string]json.RawMessage{
		gateway.ToolSmartSearch: searchReply(
			core.SearchResult{Content: "barely related", Score: 0.01},
			core.SearchResult{Content: "noise", Score: 0.002},
		),
	}}
	b := newTestBridge(t, session)

	assert.Nil(t, b.TurnStart(context.Background(), TurnStartEvent{Prompt: "tell me about the project"}))
}

func TestTurnStart_FailuresDegradeToNil(t *testing.T) {
	t.Run("connect failure", func(t *testing.T) {
		session := &fakeSession{connectErr: &core.ConnectionError{Transport: core.TransportStdio, Cause: errors.New("spawn failed")}}
		b := newTestBridge(t, session)
		assert.Nil(t, b.TurnStart(context.Background(), TurnStartEvent{Prompt: "a long enough prompt"}))
	})
	t.Run("remote fault", func(t *testing.T) {
		session := &fakeSession{invokeErr: &core.RemoteInvocationError{Tool: gateway.ToolSmartSearch, Cause: errors.New("timeout")}}
		b := newTestBridge(t, session)
		assert.Nil(t, b.TurnStart(context.Background(), TurnStartEvent{Prompt: "a long enough prompt"}))
	})
	t.Run("peer error flag", func(t *testing.T) {
		session := &fakeSession{replies: map[string]json.RawMessage{
			gateway.ToolSmartSearch: testutil.ToolReply("index rebuilding", true),
		}}
		b := newTestBridge(t, session)
		assert.Nil(t, b.TurnStart(context.Background(), TurnStartEvent{Prompt: "a long enough prompt"}))
	})
	t.Run("malformed payload", func(t *testing.T) {
		session := &fakeSession{replies: map[string]json.RawMessage{
			gateway.ToolSmartSearch: testutil.ToolReply("not json at all {", false),
		}}
		b := newTestBridge(t, session)
		assert.Nil(t, b.TurnStart(context.Background(), TurnStartEvent{Prompt: "a long enough prompt"}))
	})
	t.Run("unexpected payload shape", func(t *testing.T) {
		session := &fakeSession{replies: map[string]json.RawMessage{
			gateway.ToolSmartSearch: testutil.ToolReply(`{"results":"gone"}`, false),
		}}
		b := newTestBridge(t, session)
		assert.Nil(t, b.TurnStart(context.Background(), TurnStartEvent{Prompt: "a long enough prompt"}))
	})
}

func TestTurnEnd_SingleExchangeSkipsSave(t *testing.T) {
	session := &fakeSession{connected: true}
	b := newTestBridge(t, session)

	b.TurnEnd(context.Background(), TurnEndEvent{
		Success:  true,
		Messages: []core.Message{core.UserText("hi")},
	})

	assert.Empty(t, session.calls(gateway.ToolQuicksave))
	assert.Equal(t, 1, session.disconnects)
	assert.False(t, session.connected)
}

func TestTurnEnd_FailedOrEmptyTurnSkipsSave(t *testing.T) {
	session := &fakeSession{connected: true}
	b := newTestBridge(t, session)

	b.TurnEnd(context.Background(), TurnEndEvent{Success: false, Messages: testutil.Conversation("a", "b", "c")})
	b.TurnEnd(context.Background(), TurnEndEvent{Success: true})

	assert.Empty(t, session.invocations)
	assert.Equal(t, 2, session.disconnects)
}

func TestTurnEnd_CapturesDigest(t *testing.T) {
	session := &fakeSession{}
	b := newTestBridge(t, session)

	b.TurnEnd(context.Background(), TurnEndEvent{
		Success:  true,
		Messages: testutil.Conversation("My name is Sam", "Nice to meet you", "Remember to call Sam"),
	})

	saves := session.calls(gateway.ToolQuicksave)
	require.Len(t, saves, 1)
	assert.Equal(t, "My name is Sam -> Remember to call Sam", saves[0].args["summary"])

	bullets, ok := saves[0].args["bullets"].([]string)
	require.True(t, ok, "expected fact bullets, got %#v", saves[0].args["bullets"])
	joined := strings.Join(bullets, "|")
	assert.Contains(t, joined, "My name is Sam")
	assert.Contains(t, joined, "Remember to call Sam")

	assert.Equal(t, 1, session.disconnects, "session must be released after capture")
	assert.False(t, session.connected)
}

func TestTurnEnd_DisconnectsEvenWhenSaveFails(t *testing.T) {
	session := &fakeSession{invokeErr: &core.RemoteInvocationError{Tool: gateway.ToolQuicksave, Cause: errors.New("broken pipe")}}
	b := newTestBridge(t, session)

	b.TurnEnd(context.Background(), TurnEndEvent{
		Success:  true,
		Messages: testutil.Conversation("first question", "answer", "second question"),
	})

	assert.Equal(t, 1, session.disconnects)
	assert.False(t, session.connected)
}

func TestDisabledBridgeIsInert(t *testing.T) {
	cfg, err := config.FromSettings(map[string]any{"enabled": false, "athenaProjectDir": "/tmp"})
	require.NoError(t, err)
	b := New(cfg)

	assert.Nil(t, b.TurnStart(context.Background(), TurnStartEvent{Prompt: "a long enough prompt"}))
	b.TurnEnd(context.Background(), TurnEndEvent{Success: true, Messages: testutil.Conversation("a", "b", "c")})

	for _, a := range b.Actions() {
		res := a.Run(context.Background(), map[string]any{})
		assert.True(t, res.IsError)
		assert.Contains(t, res.Text, "disabled")
	}
}
