// Package querytransform implements the adaptive query transformation
// step (component C5): classifying a user query into direct/expansion/
// hyde and producing the effective query text used for embedding.
package querytransform

import (
	"context"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/ragforge/ragindex/internal/clients/chat"
	"github.com/ragforge/ragindex/internal/domain"
	"github.com/ragforge/ragindex/internal/promptlib"
)

// Result is the outcome of transforming a query: the effective text to
// embed, the strategy that produced it, and (when available) the
// classifier's own reasoning.
type Result struct {
	EffectiveQuery string
	Strategy       domain.QueryStrategy
	Reason         string
}

// Transformer classifies and rewrites queries before retrieval.
type Transformer struct {
	chat  chat.ChatCompleter
	model string
}

func New(c chat.ChatCompleter, model string) *Transformer {
	return &Transformer{chat: c, model: model}
}

// Transform runs smart-mode classification: a chat-based classifier
// with a rule-based fallback on malformed JSON, followed by the
// strategy-specific rewrite call. Any LLM failure degrades to the
// original query unchanged.
func (t *Transformer) Transform(ctx context.Context, query string) Result {
	strategy, reason := t.classify(ctx, query)
	return t.apply(ctx, query, strategy, reason)
}

// TransformManual forces expansion or hyde per caller-set booleans,
// skipping classification. If both are set, expansion takes
// precedence; if neither, the query passes through as direct.
func (t *Transformer) TransformManual(ctx context.Context, query string, useExpansion, useHyde bool) Result {
	switch {
	case useExpansion:
		return t.apply(ctx, query, domain.StrategyExpansion, "forced by caller")
	case useHyde:
		return t.apply(ctx, query, domain.StrategyHyDE, "forced by caller")
	default:
		return Result{EffectiveQuery: query, Strategy: domain.StrategyDirect, Reason: "forced direct by caller"}
	}
}

type classifierJSON struct {
	Strategy   string  `json:"strategy"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// classify asks the chat model to classify the query, falling back to
// the rule-based chain on any transport failure or malformed response.
func (t *Transformer) classify(ctx context.Context, query string) (domain.QueryStrategy, string) {
	prompt := promptlib.Classifier()
	resp, err := t.chat.CreateChatCompletion(ctx, chat.Request{
		Model: t.model,
		Messages: []chat.Message{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.Render(map[string]string{"query": query})},
		},
	})
	if err != nil {
		return ruleBasedClassify(query), "rule-based fallback: classifier call failed"
	}

	raw := jsonObjectPattern.FindString(resp.Text())
	if raw == "" {
		return ruleBasedClassify(query), "rule-based fallback: no JSON object in classifier response"
	}
	var parsed classifierJSON
	if err := sonic.UnmarshalString(raw, &parsed); err != nil {
		return ruleBasedClassify(query), "rule-based fallback: malformed classifier JSON"
	}
	strategy, ok := parseStrategy(parsed.Strategy)
	if !ok {
		return ruleBasedClassify(query), "rule-based fallback: unrecognized classifier strategy"
	}
	return strategy, parsed.Reason
}

func parseStrategy(s string) (domain.QueryStrategy, bool) {
	switch domain.QueryStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case domain.StrategyDirect:
		return domain.StrategyDirect, true
	case domain.StrategyExpansion:
		return domain.StrategyExpansion, true
	case domain.StrategyHyDE:
		return domain.StrategyHyDE, true
	default:
		return "", false
	}
}

var questionWords = []string{
	"如何", "怎么", "为什么", "什么是",
	"how", "what", "why", "when", "where",
}

var (
	camelCasePattern = regexp.MustCompile(`[a-z][A-Z]`)
	snakeCasePattern = regexp.MustCompile(`[a-zA-Z]_[a-zA-Z]`)
	dottedCallPattern = regexp.MustCompile(`[a-zA-Z0-9_]\.[a-zA-Z_]`)
)

// ruleBasedClassify implements the exact fallback chain used when the
// chat classifier is unavailable or returns something unparseable:
// question-word prefix, then length/token count, then code-like token
// shape, defaulting to expansion.
func ruleBasedClassify(query string) domain.QueryStrategy {
	lower := strings.ToLower(strings.TrimSpace(query))
	for _, w := range questionWords {
		if strings.HasPrefix(lower, w) {
			return domain.StrategyHyDE
		}
	}

	if runeLen(query) < 10 || len(strings.Fields(query)) < 3 {
		return domain.StrategyExpansion
	}

	if looksCodeLike(query) {
		return domain.StrategyDirect
	}

	return domain.StrategyExpansion
}

func looksCodeLike(s string) bool {
	if strings.Contains(s, "`") {
		return true
	}
	return camelCasePattern.MatchString(s) || snakeCasePattern.MatchString(s) || dottedCallPattern.MatchString(s)
}

func runeLen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// apply produces the effective query for the chosen strategy. Direct
// passes the query through unchanged; expansion/hyde call the chat
// model and fall back to the original query on failure.
func (t *Transformer) apply(ctx context.Context, query string, strategy domain.QueryStrategy, reason string) Result {
	if strategy == domain.StrategyDirect {
		return Result{EffectiveQuery: query, Strategy: strategy, Reason: reason}
	}

	var prompt promptlib.Prompt
	if strategy == domain.StrategyHyDE {
		prompt = promptlib.HyDE()
	} else {
		prompt = promptlib.Expansion()
	}

	resp, err := t.chat.CreateChatCompletion(ctx, chat.Request{
		Model: t.model,
		Messages: []chat.Message{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.Render(map[string]string{"query": query})},
		},
	})
	if err != nil || strings.TrimSpace(resp.Text()) == "" {
		return Result{EffectiveQuery: query, Strategy: strategy, Reason: reason + "; rewrite unavailable, using original query"}
	}
	return Result{EffectiveQuery: strings.TrimSpace(resp.Text()), Strategy: strategy, Reason: reason}
}
