// Package promptlib centralizes the chat prompts used by the
// summarizer, query transformer, and re-ranker, keyed by purpose the
// way the corpus's own prompt manager does.
package promptlib

import (
	"fmt"
	"strings"

	"github.com/ragforge/ragindex/internal/domain"
)

// PromptType names one of the fixed prompt purposes in the pipeline.
type PromptType string

const (
	PromptSummary    PromptType = "summary"
	PromptClassifier PromptType = "classifier"
	PromptExpansion  PromptType = "expansion"
	PromptHyDE       PromptType = "hyde"
	PromptRerank     PromptType = "rerank"
)

// Prompt bundles a system instruction with a user-message template using
// {{var}} placeholders.
type Prompt struct {
	Type         PromptType
	System       string
	UserTemplate string
}

// Render substitutes {{key}} placeholders in the user template.
func (p Prompt) Render(vars map[string]string) string {
	out := p.UserTemplate
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}

var summaryInstructionByType = map[domain.DocumentType]string{
	domain.DocumentTypeAPIDoc:    "Call out endpoint paths, HTTP verbs, and exact API names where present.",
	domain.DocumentTypeTechDoc:   "Call out architectural elements, components, and how they relate.",
	domain.DocumentTypeCodeLogic: "Call out function and symbol names and the control flow they implement.",
	domain.DocumentTypeGeneralDoc: "Summarize the key points a reader needs to understand the passage.",
}

// Summary returns the type-specialized summarization prompt. Unknown
// types fall back to the generic variant.
func Summary(docType domain.DocumentType) Prompt {
	instruction, ok := summaryInstructionByType[docType]
	if !ok {
		instruction = summaryInstructionByType[domain.DocumentTypeGeneralDoc]
	}
	return Prompt{
		Type: PromptSummary,
		System: fmt.Sprintf(
			"You write concise, information-dense summaries of document sections. "+
				"Keep summaries under 200 tokens. %s Respond with the summary text only, no preamble.",
			instruction,
		),
		UserTemplate: "{{content}}",
	}
}

// Classifier returns the query-classification prompt; the model is
// instructed to respond with a single JSON object.
func Classifier() Prompt {
	return Prompt{
		Type: PromptClassifier,
		System: "You classify a search query into one of three retrieval strategies: " +
			"\"direct\" (the query already names precise identifiers — code-like tokens, exact API names), " +
			"\"expansion\" (the query is short or vocabulary-sparse and benefits from added synonyms), or " +
			"\"hyde\" (the query is a how/why/what-is question, troubleshooting request, or concept explanation " +
			"best matched by a hypothetical answer passage). " +
			"Respond with exactly one JSON object: {\"strategy\": \"direct\"|\"expansion\"|\"hyde\", " +
			"\"reason\": string, \"confidence\": number between 0 and 1}. No other text.",
		UserTemplate: "Query: {{query}}",
	}
}

// Expansion returns the query-expansion rewrite prompt.
func Expansion() Prompt {
	return Prompt{
		Type: PromptExpansion,
		System: "Rewrite the user's query into a 100-150 character version that adds relevant synonyms " +
			"and related technical terms while preserving the original intent. Respond with the rewritten " +
			"query text only.",
		UserTemplate: "Query: {{query}}",
	}
}

// HyDE returns the hypothetical-document-generation prompt.
func HyDE() Prompt {
	return Prompt{
		Type: PromptHyDE,
		System: "Write a 150-250 character passage, in the voice of technical documentation, that would " +
			"answer the user's question if it existed in the corpus. You may include a short illustrative " +
			"code fragment. Respond with the passage text only.",
		UserTemplate: "Question: {{query}}",
	}
}

// Rerank returns the relevance-scoring prompt used to fuse an LLM
// judgment with vector similarity.
func Rerank() Prompt {
	return Prompt{
		Type: PromptRerank,
		System: "You score how relevant each numbered candidate passage is to the query, on a 0-10 scale " +
			"(10 = directly answers the query, 0 = unrelated). Respond with exactly one JSON array: " +
			"[{\"id\": number, \"score\": number}, ...], one entry per candidate, no other text.",
		UserTemplate: "Query: {{query}}\n\nCandidates:\n{{candidates}}",
	}
}
