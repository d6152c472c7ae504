package analytics

import (
	"sort"
	"strings"
)

// Similarity weights: message token overlap dominates, with smaller
// bonuses for matching context fields.
const (
	similarityMessageWeight   = 0.6
	similarityComponentWeight = 0.2
	similarityOperationWeight = 0.1
	similarityTypeWeight      = 0.1

	similarityFloor = 0.5
	similarityLimit = 5
)

// SimilarFailure pairs a buffered record with its similarity score.
type SimilarFailure struct {
	Record *FailureRecord
	Score  float64
}

// FindSimilar returns up to five buffered failures resembling the
// given one, scored by message token overlap plus context bonuses.
// Only scores above 0.5 are returned, highest first.
func (a *Analytics) FindSimilar(target *FailureRecord) []SimilarFailure {
	targetTokens := tokenize(target.Message)

	a.mu.Lock()
	defer a.mu.Unlock()

	var out []SimilarFailure
	for _, r := range a.buffer {
		if r.ID == target.ID {
			continue
		}

		score := similarityMessageWeight * jaccard(targetTokens, tokenize(r.Message))
		if r.Component != "" && r.Component == target.Component {
			score += similarityComponentWeight
		}
		if r.Operation != "" && r.Operation == target.Operation {
			score += similarityOperationWeight
		}
		if r.ErrorType == target.ErrorType {
			score += similarityTypeWeight
		}

		if score > similarityFloor {
			out = append(out, SimilarFailure{Record: r, Score: score})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > similarityLimit {
		out = out[:similarityLimit]
	}
	return out
}

// tokenize lower-cases the message and keeps alphanumeric tokens
// longer than two characters.
func tokenize(message string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if len(tok) > 2 {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// jaccard computes set intersection over union.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	common := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			common++
		}
	}
	union := len(a) + len(b) - common
	if union == 0 {
		return 0
	}
	return float64(common) / float64(union)
}
