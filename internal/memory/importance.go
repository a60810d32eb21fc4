package memory

import (
	"sort"
	"strings"
)

const (
	MinImportance      = 1
	MaxImportance      = 10
	baselineImportance = 5
)

// ImportanceScorer rates how memorable a finished exchange is, in [1,10].
type ImportanceScorer interface {
	Importance(userText, assistantText string) int
}

var defaultEmotionKeywords = []string{
	"love", "hate", "excited", "sad", "afraid", "amazing",
	"happy", "angry", "scared", "lonely", "worried", "miss you",
}

var defaultPersonalPhrases = []string{
	"my", "i am", "i feel", "i think", "i want", "i need", "my family", "my job",
}

// KeywordImportance is the keyword heuristic: baseline 5, +1 per emotional
// keyword present, +1 per personal-disclosure phrase present, +1 when the
// user asked a question.
type KeywordImportance struct {
	EmotionKeywords []string
	PersonalPhrases []string
}

// NewKeywordImportance returns the heuristic with the built-in keyword lists.
func NewKeywordImportance() *KeywordImportance {
	return &KeywordImportance{
		EmotionKeywords: defaultEmotionKeywords,
		PersonalPhrases: defaultPersonalPhrases,
	}
}

// Importance scores the combined user and assistant text.
func (k *KeywordImportance) Importance(userText, assistantText string) int {
	text := strings.ToLower(userText + "\n" + assistantText)
	score := baselineImportance

	for _, kw := range k.EmotionKeywords {
		if strings.Contains(text, kw) {
			score++
		}
	}
	score += countPhrases(text, k.PersonalPhrases)

	if strings.Contains(userText, "?") {
		score++
	}
	return ClampImportance(score)
}

// countPhrases counts distinct phrases present in text. Longer phrases are
// matched first and consume their span, so "my job" is not also counted as "my".
func countPhrases(text string, phrases []string) int {
	ordered := make([]string, len(phrases))
	copy(ordered, phrases)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })

	count := 0
	for _, p := range ordered {
		if p == "" || !strings.Contains(text, p) {
			continue
		}
		count++
		text = strings.ReplaceAll(text, p, strings.Repeat(" ", len(p)))
	}
	return count
}

// ClampImportance bounds score to [1,10].
func ClampImportance(score int) int {
	switch {
	case score < MinImportance:
		return MinImportance
	case score > MaxImportance:
		return MaxImportance
	default:
		return score
	}
}
