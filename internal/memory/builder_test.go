package memory

import (
	"strings"
	"testing"
	"time"

	"github.com/easeaico/chat-characters/internal/types"
)

const testPersona = "You are Zara, a music producer."

func TestBuildWithoutMemoryIsSystemAndUser(t *testing.T) {
	builder := NewContextBuilder(DefaultConfig())
	messages := builder.Build(testPersona, nil, "hi", testNow)

	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d: %+v", len(messages), messages)
	}
	if messages[0].Role != types.RoleSystem || messages[0].Content != testPersona {
		t.Fatalf("unexpected system message: %+v", messages[0])
	}
	if strings.Contains(messages[0].Content, memoryContextHeader) {
		t.Fatalf("expected no memory block, got %q", messages[0].Content)
	}
	if messages[1].Role != types.RoleUser || messages[1].Content != "hi" {
		t.Fatalf("unexpected user message: %+v", messages[1])
	}
}

func TestBuildRendersSingleMemory(t *testing.T) {
	e := exchangeAt(1, 2*time.Hour, 8, 1.0)
	e.UserMessage = "I adopted a cat"
	e.AssistantMessage = "What is the cat called?"
	pool := Rank([]types.Exchange{e}, RecencyScorer{}, testNow, 15)

	builder := NewContextBuilder(DefaultConfig())
	messages := builder.Build(testPersona, pool, "she is called Miso", testNow)

	if len(messages) != 4 {
		t.Fatalf("expected system, user, assistant, user; got %d messages", len(messages))
	}
	system := messages[0].Content
	if !strings.HasPrefix(system, testPersona) {
		t.Fatalf("expected persona prompt first, got %q", system)
	}
	want := `2h ago: user said "I adopted a cat" (importance 8/10)`
	if !strings.Contains(system, want) {
		t.Fatalf("expected memory line %q in %q", want, system)
	}
	if !strings.Contains(system, `you replied: "What is the cat called?"`) {
		t.Fatalf("expected assistant preview in %q", system)
	}
	if messages[1].Role != types.RoleUser || messages[1].Content != e.UserMessage {
		t.Fatalf("unexpected recent user message: %+v", messages[1])
	}
	if messages[2].Role != types.RoleAssistant || messages[2].Content != e.AssistantMessage {
		t.Fatalf("unexpected recent assistant message: %+v", messages[2])
	}
	if messages[3].Content != "she is called Miso" {
		t.Fatalf("expected new user message last, got %+v", messages[3])
	}
}

func TestBuildThresholdExcludesFadedMemoryButKeepsRecentTurn(t *testing.T) {
	faded := Scored{Exchange: exchangeAt(1, 0, 1, 0.29), Score: 0.29}
	faded.UserMessage = "faded memory"

	builder := NewContextBuilder(DefaultConfig())
	messages := builder.Build(testPersona, []Scored{faded}, "next", testNow)

	if strings.Contains(messages[0].Content, "faded memory") {
		t.Fatalf("expected faded exchange to be left out of the memory block, got %q", messages[0].Content)
	}
	if messages[0].Content != testPersona {
		t.Fatalf("expected bare persona prompt, got %q", messages[0].Content)
	}
	if len(messages) != 4 || messages[1].Content != "faded memory" {
		t.Fatalf("expected faded exchange in the recent window, got %+v", messages)
	}
}

func TestBuildRecentWindowIsChronologicalAndBounded(t *testing.T) {
	var exchanges []types.Exchange
	for i := 0; i < 5; i++ {
		e := exchangeAt(int64(i+1), time.Duration(5-i)*time.Hour, 5, 1.0)
		e.UserMessage = string(rune('a' + i))
		exchanges = append(exchanges, e)
	}
	pool := Rank(exchanges, RecencyScorer{}, testNow, 15)

	builder := NewContextBuilder(DefaultConfig())
	messages := builder.Build(testPersona, pool, "now", testNow)

	// system + 3 exchanges * 2 + user
	if len(messages) != 8 {
		t.Fatalf("expected 8 messages, got %d", len(messages))
	}
	got := []string{messages[1].Content, messages[3].Content, messages[5].Content}
	want := []string{"c", "d", "e"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected recent window %v, got %v", want, got)
		}
	}
}

func TestRenderMemoryContextTruncatesPreview(t *testing.T) {
	e := exchangeAt(1, time.Hour, 6, 1.0)
	e.AssistantMessage = strings.Repeat("x", 250)
	builder := NewContextBuilder(DefaultConfig())

	block := builder.RenderMemoryContext([]Scored{{Exchange: e, Score: 5}}, testNow)
	if strings.Contains(block, strings.Repeat("x", 101)) {
		t.Fatalf("expected preview to be truncated, got %q", block)
	}
	if !strings.Contains(block, strings.Repeat("x", 97)+"...") {
		t.Fatalf("expected 100 character preview, got %q", block)
	}
}

func TestRenderMemoryContextQuotesVerbatim(t *testing.T) {
	e := exchangeAt(1, 3*time.Hour, 7, 1.0)
	e.UserMessage = "she said \"hi\"\nthen left"
	e.AssistantMessage = "did she say \"bye\"?"
	builder := NewContextBuilder(DefaultConfig())

	block := builder.RenderMemoryContext([]Scored{{Exchange: e, Score: 5}}, testNow)
	want := "Memory Context:\n- 3h ago: user said \"she said \"hi\"\nthen left\" (importance 7/10)" +
		"\n  you replied: \"did she say \"bye\"?\""
	if block != want {
		t.Fatalf("expected %q, got %q", want, block)
	}
}

func TestNewContextBuilderFillsDefaults(t *testing.T) {
	cfg := NewContextBuilder(Config{}).Config()
	if cfg.PoolSize != 15 || cfg.DecayFactor != 0.95 || cfg.DecayAge != time.Hour || cfg.PreviewChars != 100 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
