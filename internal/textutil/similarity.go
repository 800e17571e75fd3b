package textutil

import "math"

// WordVector is a folded word-frequency vector. Word order is ignored.
type WordVector struct {
	counts map[string]float64
	norm   float64
}

// NewWordVector builds a vector over the folded words of text. It returns
// nil when text has no words.
func NewWordVector(text string) *WordVector {
	words := Words(text)
	if len(words) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(words))
	for _, w := range words {
		counts[w]++
	}
	var sum float64
	for _, c := range counts {
		sum += c * c
	}
	return &WordVector{counts: counts, norm: math.Sqrt(sum)}
}

// Distinct returns the number of distinct words.
func (v *WordVector) Distinct() int {
	if v == nil {
		return 0
	}
	return len(v.counts)
}

// Cosine returns the cosine similarity of two vectors, or 0 when either is
// nil.
func Cosine(a, b *WordVector) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for w, c := range a.counts {
		dot += c * b.counts[w]
	}
	return dot / (a.norm * b.norm)
}

// Similarity scores how much of the vocabulary two texts share, from 0 to 1.
// A punctuation-only rewrite scores 1.
func Similarity(a, b string) float64 {
	return Cosine(NewWordVector(a), NewWordVector(b))
}
