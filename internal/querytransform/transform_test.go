package querytransform

import (
	"context"
	"errors"
	"testing"

	"github.com/ragforge/ragindex/internal/clients/chat"
	"github.com/ragforge/ragindex/internal/domain"
)

// stubChat returns a fixed response or error regardless of input,
// recording every request it was asked to complete.
type stubChat struct {
	responses []string
	err       error
	calls     []chat.Request
}

func (s *stubChat) CreateChatCompletion(ctx context.Context, req chat.Request) (*chat.Response, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	idx := len(s.calls) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return &chat.Response{Choices: []chat.Choice{{Message: chat.Message{Content: s.responses[idx]}}}}, nil
}

func TestTransform_ClassifierDirect(t *testing.T) {
	c := &stubChat{responses: []string{`{"strategy":"direct","reason":"exact identifier","confidence":0.9}`}}
	tr := New(c, "test-model")
	result := tr.Transform(context.Background(), "getUserById")
	if result.Strategy != domain.StrategyDirect {
		t.Fatalf("expected direct, got %s", result.Strategy)
	}
	if result.EffectiveQuery != "getUserById" {
		t.Fatalf("direct strategy must leave query unchanged, got %q", result.EffectiveQuery)
	}
	if len(c.calls) != 1 {
		t.Fatalf("direct strategy should not trigger a rewrite call, got %d calls", len(c.calls))
	}
}

func TestTransform_ClassifierExpansionTriggersRewrite(t *testing.T) {
	c := &stubChat{responses: []string{
		`{"strategy":"expansion","reason":"short query","confidence":0.7}`,
		"a much longer rewritten query with synonyms and related terms",
	}}
	tr := New(c, "test-model")
	result := tr.Transform(context.Background(), "auth")
	if result.Strategy != domain.StrategyExpansion {
		t.Fatalf("expected expansion, got %s", result.Strategy)
	}
	if result.EffectiveQuery != "a much longer rewritten query with synonyms and related terms" {
		t.Fatalf("expected rewritten query, got %q", result.EffectiveQuery)
	}
	if len(c.calls) != 2 {
		t.Fatalf("expected classifier call + rewrite call, got %d", len(c.calls))
	}
}

func TestTransform_MalformedClassifierJSONFallsBackToRules(t *testing.T) {
	c := &stubChat{responses: []string{"not json at all"}}
	tr := New(c, "test-model")

	result := tr.Transform(context.Background(), "how do I configure the database connection?")
	if result.Strategy != domain.StrategyHyDE {
		t.Fatalf("expected rule-based hyde fallback, got %s", result.Strategy)
	}
}

func TestTransform_ClassifierTransportFailureFallsBackToRules(t *testing.T) {
	c := &stubChat{err: errors.New("connection refused")}
	tr := New(c, "test-model")

	result := tr.Transform(context.Background(), "getUserById")
	// A single code-like token still has fewer than 3 whitespace tokens,
	// so the length/token-count rule fires before the code-shape rule.
	if result.Strategy != domain.StrategyExpansion {
		t.Fatalf("expected rule-based expansion fallback, got %s", result.Strategy)
	}
	if result.EffectiveQuery != "getUserById" {
		t.Fatalf("expected original query on total failure, got %q", result.EffectiveQuery)
	}
}

func TestRuleBasedClassify(t *testing.T) {
	cases := []struct {
		name  string
		query string
		want  domain.QueryStrategy
	}{
		{"question word hyde", "how do I configure the database connection?", domain.StrategyHyDE},
		{"chinese question word hyde", "如何配置数据库连接?", domain.StrategyHyDE},
		{"short query expansion", "auth", domain.StrategyExpansion},
		{"few tokens expansion", "database config", domain.StrategyExpansion},
		{"camel case direct", "call getUserById to fetch a record", domain.StrategyDirect},
		{"snake case direct", "look at the user_id column in the table", domain.StrategyDirect},
		{"backtick direct", "use `Fetch` to load the record from storage", domain.StrategyDirect},
		{"plain sentence expansion", "explain the general retrieval pipeline design", domain.StrategyExpansion},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ruleBasedClassify(tc.query); got != tc.want {
				t.Fatalf("ruleBasedClassify(%q) = %s, want %s", tc.query, got, tc.want)
			}
		})
	}
}

func TestTransformManual_ExpansionTakesPrecedence(t *testing.T) {
	c := &stubChat{responses: []string{"rewritten"}}
	tr := New(c, "test-model")
	result := tr.TransformManual(context.Background(), "q", true, true)
	if result.Strategy != domain.StrategyExpansion {
		t.Fatalf("expected expansion to take precedence, got %s", result.Strategy)
	}
}

func TestTransformManual_DefaultsDirect(t *testing.T) {
	c := &stubChat{}
	tr := New(c, "test-model")
	result := tr.TransformManual(context.Background(), "q", false, false)
	if result.Strategy != domain.StrategyDirect || result.EffectiveQuery != "q" {
		t.Fatalf("expected unmodified direct query, got %+v", result)
	}
}

func TestTransform_RewriteFailureDegradesToOriginalQuery(t *testing.T) {
	c := &stubChat{
		responses: []string{`{"strategy":"hyde","reason":"question","confidence":0.8}`},
	}
	// First call (classify) succeeds; force the second (rewrite) call to fail.
	tr := New(&twoStageChat{first: c, failAfter: 1}, "test-model")
	result := tr.Transform(context.Background(), "how does caching work?")
	if result.EffectiveQuery != "how does caching work?" {
		t.Fatalf("expected fallback to original query, got %q", result.EffectiveQuery)
	}
}

// twoStageChat lets the classify call succeed while the rewrite call fails.
type twoStageChat struct {
	first     *stubChat
	failAfter int
	n         int
}

func (s *twoStageChat) CreateChatCompletion(ctx context.Context, req chat.Request) (*chat.Response, error) {
	s.n++
	if s.n > s.failAfter {
		return nil, errors.New("rewrite call failed")
	}
	return s.first.CreateChatCompletion(ctx, req)
}
