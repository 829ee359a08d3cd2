// Package summarizer produces concise, type-specialized summaries of
// parent spans using a chat endpoint (component C2).
package summarizer

import (
	"context"
	"strings"
	"sync"

	"github.com/ragforge/ragindex/internal/clients/chat"
	"github.com/ragforge/ragindex/internal/domain"
	"github.com/ragforge/ragindex/internal/promptlib"
)

// DefaultFanOut bounds concurrent summarization requests within one
// batch call.
const DefaultFanOut = 5

// DefaultMaxTokens bounds summary length.
const DefaultMaxTokens = 220

// fallbackTruncateLen is how much of the source is kept when the model
// returns an empty summary.
const fallbackTruncateLen = 200

// Summarizer produces a summary for a parent span's content.
type Summarizer struct {
	chat  chat.ChatCompleter
	model string
}

func New(c chat.ChatCompleter, model string) *Summarizer {
	return &Summarizer{chat: c, model: model}
}

// Summarize returns a short summary of content for docType. Blank input
// returns "" without calling the model. A model that returns an empty
// completion falls back to a truncation of the source with an ellipsis.
func (s *Summarizer) Summarize(ctx context.Context, content string, docType domain.DocumentType) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", nil
	}

	prompt := promptlib.Summary(docType)
	req := chat.Request{
		Model: s.model,
		Messages: []chat.Message{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.Render(map[string]string{"content": content})},
		},
		MaxTokens: DefaultMaxTokens,
	}

	resp, err := s.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", domain.Wrap(domain.KindRemoteService, "summarizer.Summarize", err)
	}

	summary := strings.TrimSpace(resp.Text())
	if summary == "" {
		return truncateWithEllipsis(content, fallbackTruncateLen), nil
	}
	return summary, nil
}

// SummarizeBatch summarizes every input with bounded fan-out, preserving
// input order. The first error encountered is returned; no new request
// starts after it, and requests already in flight are allowed to finish
// but their results are discarded.
func (s *Summarizer) SummarizeBatch(ctx context.Context, contents []string, docType domain.DocumentType) ([]string, error) {
	results := make([]string, len(contents))
	sem := make(chan struct{}, DefaultFanOut)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, content := range contents {
		sem <- struct{}{}
		mu.Lock()
		failed := firstErr != nil
		mu.Unlock()
		if failed {
			<-sem
			break
		}
		wg.Add(1)
		go func(i int, content string) {
			defer wg.Done()
			defer func() { <-sem }()

			summary, err := s.Summarize(ctx, content, docType)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[i] = summary
		}(i, content)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

func truncateWithEllipsis(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
