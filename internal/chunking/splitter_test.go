package chunking

import (
	"strings"
	"testing"
)

func TestSplitHierarchical_EmptyText(t *testing.T) {
	s := NewSplitter()
	parents, err := s.SplitHierarchical("", 2000, 800, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parents) != 0 {
		t.Fatalf("expected zero parents for empty text, got %d", len(parents))
	}
}

func TestSplitHierarchical_RejectsInvalidOverlap(t *testing.T) {
	s := NewSplitter()
	if _, err := s.SplitHierarchical("hello", 2000, 800, 100); err == nil {
		t.Fatal("expected error for overlap_percent=100")
	}
	if _, err := s.SplitHierarchical("hello", 2000, 800, -1); err == nil {
		t.Fatal("expected error for negative overlap_percent")
	}
}

func TestSplitHierarchical_ShortTextSingleParentSingleChild(t *testing.T) {
	s := NewSplitter()
	text := "The getUserById API fetches a user by primary key."
	parents, err := s.SplitHierarchical(text, DefaultParentSize, DefaultChildSize, DefaultOverlapPct)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parents) != 1 {
		t.Fatalf("expected 1 parent, got %d", len(parents))
	}
	if len(parents[0].Children) != 1 {
		t.Fatalf("expected 1 child, got %d", len(parents[0].Children))
	}
	if parents[0].Children[0].Content != text {
		t.Fatalf("expected child content to equal input, got %q", parents[0].Children[0].Content)
	}
}

func TestSplitHierarchical_NoOverlapReconstructs(t *testing.T) {
	s := NewSplitter()
	text := strings.Repeat("abcdefghij ", 400) // 4400 chars, ascii words
	parents, err := s.SplitHierarchical(text, 500, 200, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parents) < 2 {
		t.Fatalf("expected multiple parents, got %d", len(parents))
	}
	var rebuilt strings.Builder
	for _, p := range parents {
		rebuilt.WriteString(p.Content)
	}
	if rebuilt.String() != text {
		t.Fatalf("concatenation with zero overlap did not reproduce original text")
	}
}

func TestSplitHierarchical_OverlapInjectsSharedPrefix(t *testing.T) {
	s := NewSplitter()
	pangram := "The quick brown fox jumps over the lazy dog. "
	text := strings.Repeat(pangram, 70) // 3150 chars
	parents, err := s.SplitHierarchical(text, 2000, 800, 25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parents) < 2 {
		t.Fatalf("expected at least 2 parents for a 3000+ char document, got %d", len(parents))
	}
	for i := 1; i < len(parents); i++ {
		prevTail := lastRunes(parents[i-1].Content, 50)
		if !strings.Contains(parents[i].Content, prevTail[len(prevTail)-10:]) {
			t.Errorf("expected parent %d to share a trailing fragment of parent %d's tail", i, i-1)
		}
	}
}

func TestRecursiveSplit_ForcesCharacterLevelWhenNoSeparatorFits(t *testing.T) {
	s := NewSplitter()
	text := strings.Repeat("x", 50)
	chunks := s.recursiveSplit(text, []string{""}, 10)
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks of 10 chars, got %d", len(chunks))
	}
}
