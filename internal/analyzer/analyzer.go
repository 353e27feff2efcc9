// Package analyzer infers a coarse emotional tone from free-form transcribed speech.
// It is a keyword heuristic, not a language model.
package analyzer

import (
	"regexp"
	"strings"

	"github.com/alucardeht/ghostnote/internal/lexicon"
)

const maxVirality = 100

var sentenceTerminators = regexp.MustCompile(`[.!?]+`)

// Fallback is the signal returned for empty input.
func Fallback() TextSignal {
	return TextSignal{
		WordCount:     0,
		Tone:          ToneNeutral,
		Emotion:       EmotionCalm,
		ViralityScore: 0,
		Suggestions:   []string{},
	}
}

// Analyze never fails. The empty string yields Fallback.
func Analyze(text string) TextSignal {
	if text == "" {
		return Fallback()
	}

	lowered := strings.ToLower(text)
	wordCount := len(strings.FieldsFunc(text, isSpace))

	angry := lexicon.CountAnger(lowered)
	excited := lexicon.CountExcitement(lowered)

	sentences := len(sentenceTerminators.Split(text, -1))
	avgSentenceLength := float64(wordCount) / float64(max(sentences, 1))

	emotion := classify(angry, excited, avgSentenceLength)

	return TextSignal{
		WordCount:     wordCount,
		Tone:          ToneFor(emotion),
		Emotion:       emotion,
		ViralityScore: ViralityScore(wordCount),
		Suggestions:   []string{},
	}
}

// classify checks anger before excitement; short sentences lower the bar for both.
func classify(angry, excited int, avgSentenceLength float64) Emotion {
	switch {
	case angry >= 2 || (angry >= 1 && avgSentenceLength < 10):
		return EmotionAngry
	case excited >= 2 || (excited >= 1 && avgSentenceLength < 12):
		return EmotionExcited
	default:
		return EmotionCalm
	}
}

func ViralityScore(wordCount int) int {
	return min(maxVirality, wordCount+50)
}

// isSpace matches the ECMAScript \s class the word count was defined against.
// It differs from unicode.IsSpace on U+0085 (not a separator) and U+FEFF (a separator).
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0x00A0, 0x1680,
		0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}
