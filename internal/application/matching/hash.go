package matching

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// HashStrategy selects how queries are canonicalized before hashing.
type HashStrategy string

const (
	// HashSimple lowercases and collapses whitespace. Word order matters.
	HashSimple HashStrategy = "simple"
	// HashNormalized additionally drops stop-words, folds synonyms and sorts words.
	HashNormalized HashStrategy = "normalized"
)

const hashLength = 16

// ParseHashStrategy validates a configured strategy name.
func ParseHashStrategy(name string) (HashStrategy, error) {
	switch HashStrategy(strings.ToLower(strings.TrimSpace(name))) {
	case "", HashSimple:
		return HashSimple, nil
	case HashNormalized:
		return HashNormalized, nil
	default:
		return "", fmt.Errorf("unknown hash strategy %q (want simple or normalized)", name)
	}
}

// Hasher produces durable cache keys. It is safe for concurrent use.
type Hasher struct {
	strategy HashStrategy
	vocab    *Vocabulary
}

// NewHasher builds a hasher. A nil vocabulary uses the default dictionary.
func NewHasher(strategy HashStrategy, vocab *Vocabulary) *Hasher {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if strategy != HashNormalized {
		strategy = HashSimple
	}
	return &Hasher{strategy: strategy, vocab: vocab}
}

// Strategy returns the active strategy.
func (h *Hasher) Strategy() HashStrategy {
	return h.strategy
}

// Hash returns the 16 hex character key of query.
func (h *Hasher) Hash(query string) string {
	if h.strategy == HashNormalized {
		return NormalizedHash(query, h.vocab)
	}
	return SimpleHash(query)
}

// SimpleHash lowercases query, collapses whitespace runs and hashes the result.
func SimpleHash(query string) string {
	return digest(strings.Join(strings.Fields(strings.ToLower(query)), " "))
}

// NormalizedHash hashes the sorted normalized words of query. Queries with no
// meaningful words fall back to the lowercased, trimmed text.
func NormalizedHash(query string, vocab *Vocabulary) string {
	words := vocab.Normalize(query)
	sort.Strings(words)
	text := strings.Join(words, " ")
	if text == "" {
		text = strings.TrimSpace(strings.ToLower(query))
	}
	return digest(text)
}

func digest(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:hashLength]
}
