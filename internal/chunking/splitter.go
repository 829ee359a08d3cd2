// Package chunking implements the recursive hierarchical text splitter:
// documents are first split into large parent spans, then each parent is
// split again into smaller child spans, with overlap injected between
// adjacent siblings at both levels.
package chunking

import (
	"strings"

	"github.com/ragforge/ragindex/internal/domain"
)

// DefaultSeparators is the priority list used by the recursive splitter,
// from most to least semantic.
var DefaultSeparators = []string{
	"\n\n",    // paragraph break
	"\n",      // newline
	"。", "！", "？", // CJK sentence terminators
	".", "!", "?", // Latin sentence terminators
	";", "；", // semicolons
	",", "，", // commas
	" ",  // space
	"", // character-level fallback
}

const (
	DefaultParentSize    = 2000
	DefaultChildSize     = 800
	DefaultOverlapPct    = 25
)

// Span is a contiguous, positioned slice of a larger text.
type Span struct {
	Content string
	Start   int
	End     int
}

// ParentSpan is a parent-level span carrying its child spans.
type ParentSpan struct {
	Span
	Children []Span
}

// Splitter implements the recursive character splitter described for the
// Chunker component: try a priority list of separators, escalating to
// finer ones only when coarser ones fail to keep spans within budget.
type Splitter struct {
	separators []string
}

// NewSplitter builds a Splitter using DefaultSeparators.
func NewSplitter() *Splitter {
	return &Splitter{separators: DefaultSeparators}
}

// SplitHierarchical produces the full parent/child tree for text under
// strategy (parentSize, childSize, overlapPercent). overlapPercent must
// be in [0, 100).
func (s *Splitter) SplitHierarchical(text string, parentSize, childSize, overlapPercent int) ([]ParentSpan, error) {
	if overlapPercent >= 100 || overlapPercent < 0 {
		return nil, domain.Newf(domain.KindValidation, "chunking.SplitHierarchical", "overlap_percent %d out of range [0,100)", overlapPercent)
	}
	if text == "" {
		return nil, nil
	}

	parentOverlap := parentSize * overlapPercent / 100
	parents := s.splitWithOverlap(text, 0, parentSize, parentOverlap)

	childOverlap := childSize * overlapPercent / 100
	result := make([]ParentSpan, 0, len(parents))
	for _, p := range parents {
		children := s.splitWithOverlap(text[:p.End], p.Start, childSize, childOverlap)
		result = append(result, ParentSpan{Span: p, Children: children})
	}
	return result, nil
}

// splitWithOverlap splits text[base:] into spans of at most targetSize
// runes, then injects overlap between adjacent spans. Returned Span
// offsets are absolute into the original document (base + local offset).
func (s *Splitter) splitWithOverlap(text string, base, targetSize, overlap int) []Span {
	sub := text[base:]
	raw := s.recursiveSplit(sub, s.separators, targetSize)
	if len(raw) == 0 {
		return nil
	}

	spans := make([]Span, 0, len(raw))
	pos := 0
	for i, fragment := range raw {
		content := fragment
		if i > 0 && overlap > 0 {
			prev := raw[i-1]
			content = applyOverlap(prev, fragment, overlap, s.separators)
		}
		start := base + pos
		end := start + len([]byte(fragment))
		actualStart, actualEnd := start, end
		if content != fragment {
			// Overlap was prepended, so the naive offsets no longer
			// bound the fragment's true position; relocate within a
			// window anchored at the naive start rather than the whole
			// document, since a full-document search can resolve to an
			// earlier, unrelated occurrence of recurring text.
			actualStart, actualEnd = locate(text, content, start, end)
		}
		spans = append(spans, Span{Content: content, Start: actualStart, End: actualEnd})
		pos += len([]byte(fragment))
	}
	return spans
}

// recursiveSplit implements steps 1-4 of the Chunker algorithm: escalate
// through the separator list, greedily accumulating fragments up to
// targetSize runes, recursing into oversized fragments with the next
// separator.
func (s *Splitter) recursiveSplit(text string, separators []string, targetSize int) []string {
	if runeLen(text) <= targetSize || len(separators) == 0 {
		if text == "" {
			return nil
		}
		if runeLen(text) <= targetSize {
			return []string{text}
		}
		// Character-level fallback: force-split at targetSize runes.
		return forceSplit(text, targetSize)
	}

	sep := separators[0]
	rest := separators[1:]

	var parts []string
	if sep == "" {
		parts = forceSplit(text, targetSize)
		return parts
	}
	if !strings.Contains(text, sep) {
		return s.recursiveSplit(text, rest, targetSize)
	}
	parts = strings.Split(text, sep)

	var chunks []string
	var acc strings.Builder
	flush := func() {
		if acc.Len() > 0 {
			chunks = append(chunks, acc.String())
			acc.Reset()
		}
	}
	for i, part := range parts {
		piece := part
		if i < len(parts)-1 {
			piece = part + sep
		}
		if runeLen(piece) > targetSize {
			flush()
			chunks = append(chunks, s.recursiveSplit(piece, rest, targetSize)...)
			continue
		}
		if runeLen(acc.String())+runeLen(piece) > targetSize {
			flush()
		}
		acc.WriteString(piece)
	}
	flush()
	return chunks
}

// applyOverlap prepends the tail of prev to fragment, trimmed at the
// first occurrence of a separator to preserve semantic boundaries where
// possible.
func applyOverlap(prev, fragment string, overlap int, separators []string) string {
	tail := lastRunes(prev, overlap)
	if tail == "" {
		return fragment
	}
	for _, sep := range separators {
		if sep == "" || sep == " " {
			continue
		}
		if idx := strings.Index(tail, sep); idx >= 0 {
			tail = tail[idx+len(sep):]
			break
		}
	}
	if tail == "" {
		return fragment
	}
	return tail + fragment
}

// locate resolves the absolute position of an overlap-augmented
// fragment by searching a window anchored at its naive offsets, not
// the whole document: a document-wide search can match an earlier
// occurrence of recurring text (headers, boilerplate, repeated
// sentences), which would put the span outside its parent's bounds.
func locate(source, content string, naiveStart, naiveEnd int) (int, int) {
	window := len(content) * 2
	if window < 256 {
		window = 256
	}
	lo := naiveStart - window
	if lo < 0 {
		lo = 0
	}
	hi := naiveEnd + window
	if hi > len(source) {
		hi = len(source)
	}
	if idx := strings.Index(source[lo:hi], content); idx >= 0 {
		start := lo + idx
		return start, start + len(content)
	}
	return naiveStart, naiveEnd
}

func runeLen(s string) int { return len([]rune(s)) }

func lastRunes(s string, n int) string {
	r := []rune(s)
	if n >= len(r) {
		return s
	}
	if n <= 0 {
		return ""
	}
	return string(r[len(r)-n:])
}

func forceSplit(text string, targetSize int) []string {
	if targetSize <= 0 {
		return []string{text}
	}
	r := []rune(text)
	var out []string
	for i := 0; i < len(r); i += targetSize {
		end := i + targetSize
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[i:end]))
	}
	return out
}
