package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/doeshing/aicmd-go/internal/domain"
)

const (
	jaccardWeight  = 0.7
	sequenceWeight = 0.3
)

// Match is one ranked candidate.
type Match struct {
	Query   string
	Command string
	Score   float64
}

// Matcher scores lexical similarity between queries.
type Matcher struct {
	vocab *Vocabulary
}

// NewMatcher builds a matcher. A nil vocabulary uses the default dictionary.
func NewMatcher(vocab *Vocabulary) *Matcher {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Matcher{vocab: vocab}
}

// Similarity returns 0.7*jaccard + 0.3*sequence ratio over the normalized
// word sets of a and b, rounded to three decimals.
func (m *Matcher) Similarity(a, b string) float64 {
	setA := m.vocab.TokenSet(a)
	setB := m.vocab.TokenSet(b)

	switch {
	case len(setA) == 0 && len(setB) == 0:
		return 1.0
	case len(setA) == 0 || len(setB) == 0:
		return 0.0
	}

	jaccard := jaccardIndex(setA, setB)
	seqA, seqB := joinSorted(setA), joinSorted(setB)
	if seqB < seqA {
		// block matching is order dependent; fix the order so the score is symmetric
		seqA, seqB = seqB, seqA
	}
	sequence := SequenceRatio(seqA, seqB)
	return round3(jaccardWeight*jaccard + sequenceWeight*sequence)
}

// Rank scores every candidate against target and returns those at or above
// threshold, highest first. Equal scores keep candidate order. Candidates
// with an empty query are skipped.
func (m *Matcher) Rank(target string, candidates []domain.QueryCommand, threshold float64) []Match {
	if strings.TrimSpace(target) == "" || len(candidates) == 0 {
		return nil
	}

	var matches []Match
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate.Query) == "" {
			continue
		}
		score := m.Similarity(target, candidate.Query)
		if score >= threshold {
			matches = append(matches, Match{Query: candidate.Query, Command: candidate.Command, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

// Best returns the highest ranked candidate, if any.
func (m *Matcher) Best(target string, candidates []domain.QueryCommand, threshold float64) (Match, bool) {
	ranked := m.Rank(target, candidates, threshold)
	if len(ranked) == 0 {
		return Match{}, false
	}
	return ranked[0], true
}

func jaccardIndex(a, b map[string]struct{}) float64 {
	intersection := 0
	for word := range a {
		if _, ok := b[word]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func joinSorted(set map[string]struct{}) string {
	words := make([]string, 0, len(set))
	for word := range set {
		words = append(words, word)
	}
	sort.Strings(words)
	return strings.Join(words, " ")
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
