package redis

import (
	"testing"

	"github.com/hasti304/ai-pdf-rag/internal/domain"
)

func TestVectorBytesRoundTrip(t *testing.T) {
	vector := []float32{0.1, -2.5, 0, 1536.25}

	got := bytesToVector(vectorToBytes(vector))
	if len(got) != len(vector) {
		t.Fatalf("expected %d elements, got %d", len(vector), len(got))
	}
	for i := range vector {
		if got[i] != vector[i] {
			t.Errorf("element %d: expected %v, got %v", i, vector[i], got[i])
		}
	}
}

func TestBytesToVector_InvalidLength(t *testing.T) {
	if got := bytesToVector("abc"); got != nil {
		t.Errorf("expected nil for truncated data, got %v", got)
	}
	if got := bytesToVector(""); got != nil {
		t.Errorf("expected nil for empty data, got %v", got)
	}
}

func TestEscapeQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain words", "revenue growth", "revenue growth"},
		{"punctuation", "what is the total revenue?", "what is the total revenue"},
		{"search syntax", `@content:(hack) | *`, "content hack"},
		{"collapses whitespace", "a  -  b", "a b"},
		{"only specials", "?!*()", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeQuery(tt.input); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDiversify(t *testing.T) {
	results := []domain.SearchResult{
		{ChunkID: "a1", DocumentID: "docA", RelevanceScore: 0.9},
		{ChunkID: "a2", DocumentID: "docA", RelevanceScore: 0.8},
		{ChunkID: "a3", DocumentID: "docA", RelevanceScore: 0.7},
		{ChunkID: "b1", DocumentID: "docB", RelevanceScore: 0.6},
		{ChunkID: "b2", DocumentID: "docB", RelevanceScore: 0.5},
		{ChunkID: "c1", DocumentID: "docC", RelevanceScore: 0.4},
	}

	got := diversify(results, 4)
	if len(got) != 4 {
		t.Fatalf("expected 4 results, got %d", len(got))
	}

	// With k=4 each document contributes at most 2 results, so docA's
	// third chunk yields its slot to docB.
	perDoc := make(map[string]int)
	for _, r := range got {
		perDoc[r.DocumentID]++
	}
	if perDoc["docA"] != 2 || perDoc["docB"] != 2 {
		t.Errorf("unexpected per-document distribution: %v", perDoc)
	}
	if got[0].ChunkID != "a1" {
		t.Errorf("expected score order preserved, got %q first", got[0].ChunkID)
	}
}

func TestDiversify_BackfillsWhenCapTooTight(t *testing.T) {
	results := []domain.SearchResult{
		{ChunkID: "a1", DocumentID: "docA", RelevanceScore: 0.9},
		{ChunkID: "a2", DocumentID: "docA", RelevanceScore: 0.8},
		{ChunkID: "a3", DocumentID: "docA", RelevanceScore: 0.7},
	}

	// Single-document corpus: the per-document cap would leave slots
	// open, so skipped results fill them back in.
	got := diversify(results, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got))
	}
}

func TestDiversify_ZeroK(t *testing.T) {
	if got := diversify([]domain.SearchResult{{ChunkID: "a"}}, 0); got != nil {
		t.Errorf("expected nil for k=0, got %v", got)
	}
}
