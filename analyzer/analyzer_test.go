package analyzer

import (
	"reflect"
	"strings"
	"testing"

	"github.com/hupe1980/athenabridge/core"
	"github.com/hupe1980/athenabridge/internal/testutil"
)

func TestExtractTexts_FlattensBothContentShapes(t *testing.T) {
	msgs := []core.Message{
		core.UserText("plain"),
		testutil.BlockMessage(core.RoleAssistant,
			core.TextPart{Text: "block one"},
			core.DataPart{Data: map[string]any{"tool": "x"}},
			core.TextPart{Text: "block two"},
		),
	}
	got := ExtractTexts(msgs)
	want := []string{"plain", "block one", "block two"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected texts: %#v", got)
	}
}

func TestExtractTexts_EmptyHistory(t *testing.T) {
	if got := ExtractTexts(nil); len(got) != 0 {
		t.Fatalf("expected no texts, got %#v", got)
	}
}

func TestHasEnoughExchanges(t *testing.T) {
	single := []core.Message{core.UserText("hi"), core.AssistantText("hello")}
	if HasEnoughExchanges(single, DefaultMinExchanges) {
		t.Fatal("single user message should not be enough")
	}
	double := testutil.Conversation("first", "reply", "second")
	if !HasEnoughExchanges(double, DefaultMinExchanges) {
		t.Fatal("two user messages should be enough")
	}
	// assistant-only history never counts
	if HasEnoughExchanges([]core.Message{core.AssistantText("a"), core.AssistantText("b")}, 1) {
		t.Fatal("assistant messages must not count as exchanges")
	}
}

func TestGenerateSummary_JoinsTopicAndOutcome(t *testing.T) {
	msgs := testutil.Conversation("How do I deploy the service?", "like this", "Great, the deploy worked")
	got := GenerateSummary(msgs)
	want := "How do I deploy the service? -> Great, the deploy worked"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestGenerateSummary_SingleUserMessage(t *testing.T) {
	got := GenerateSummary([]core.Message{core.UserText("just one question"), core.AssistantText("answer")})
	if got != "just one question" {
		t.Fatalf("got %q", got)
	}
}

func TestGenerateSummary_TruncatesEachSideTo80(t *testing.T) {
	msgs := testutil.Conversation("topic "+strings.Repeat("x", 200), "ok", "outcome "+strings.Repeat("y", 200))
	got := GenerateSummary(msgs)
	parts := strings.Split(got, " -> ")
	if len(parts) != 2 {
		t.Fatalf("expected two joined parts, got %q", got)
	}
	for _, p := range parts {
		if n := len([]rune(p)); n > 80 {
			t.Fatalf("part exceeds 80 characters: %d", n)
		}
	}
}

func TestGenerateSummary_NoUserMessageFallback(t *testing.T) {
	if got := GenerateSummary(nil); got != "General conversation" {
		t.Fatalf("got %q", got)
	}
	if got := GenerateSummary([]core.Message{core.AssistantText("hi")}); got != "General conversation" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractKeyFacts_Categories(t *testing.T) {
	msgs := []core.Message{
		core.UserText("My name is Sam and you can reach me at sam@example.com or +12025550123"),
		core.AssistantText("Noted, I am an assistant."), // must be ignored
		core.UserText("Remember to call Sam tomorrow"),
	}
	facts := ExtractKeyFacts(msgs)
	if len(facts) > 5 {
		t.Fatalf("fact cap violated: %d", len(facts))
	}
	joined := strings.Join(facts, "|")
	for _, want := range []string{"+12025550123", "sam@example.com", "My name is Sam", "Remember to call Sam"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing fact %q in %#v", want, facts)
		}
	}
	if strings.Contains(joined, "I am an assistant") {
		t.Fatalf("assistant text leaked into facts: %#v", facts)
	}
}

func TestExtractKeyFacts_DedupAndCap(t *testing.T) {
	var msgs []core.Message
	for i := 0; i < 4; i++ {
		msgs = append(msgs, core.UserText("My name is Sam"))
	}
	msgs = append(msgs,
		core.UserText("contact a@example.com"),
		core.UserText("contact b@example.com"),
		core.UserText("contact c@example.com"),
		core.UserText("I prefer tabs over spaces"),
		core.UserText("Remember to water the plants"),
		core.UserText("We decided to ship on Friday"),
	)
	facts := ExtractKeyFacts(msgs)
	if len(facts) != 5 {
		t.Fatalf("expected exactly 5 facts, got %d: %#v", len(facts), facts)
	}
	seen := map[string]int{}
	for _, f := range facts {
		seen[f]++
		if seen[f] > 1 {
			t.Fatalf("duplicate fact %q", f)
		}
	}
}

func TestExtractKeyFacts_Deterministic(t *testing.T) {
	msgs := testutil.Conversation(
		"My name is Sam, I prefer dark mode",
		"ok",
		"Remember to email sam@example.com",
	)
	first := ExtractKeyFacts(msgs)
	for i := 0; i < 10; i++ {
		if got := ExtractKeyFacts(msgs); !reflect.DeepEqual(got, first) {
			t.Fatalf("non-deterministic output: %#v vs %#v", got, first)
		}
	}
}

func TestAnalyze_Digest(t *testing.T) {
	msgs := testutil.Conversation("My name is Sam", "hi Sam", "Remember to call Sam")
	d := Analyze(msgs)
	if d.Summary != "My name is Sam -> Remember to call Sam" {
		t.Fatalf("unexpected summary %q", d.Summary)
	}
	if len(d.KeyFacts) != 2 {
		t.Fatalf("expected identity and reminder facts, got %#v", d.KeyFacts)
	}
}
