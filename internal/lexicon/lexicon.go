// Package lexicon holds the fixed marker phrase tables used to score transcripts.
package lexicon

import "strings"

var angerMarkers = []string{
	"stop", "enough", "tired of", "sick of", "frustrated", "annoying",
	"wrong", "problem", "issue", "terrible", "awful", "hate", "never",
	"always", "stupid", "ridiculous", "unacceptable", "can't believe",
}

var excitementMarkers = []string{
	"amazing", "incredible", "fantastic", "can't wait", "love",
	"excited", "opportunity", "future", "imagine", "vision",
	"breakthrough", "revolutionary", "game-changing", "transform",
}

// Count reports how many distinct markers occur in lowered. Matching is plain
// substring containment, so "stopwatch" counts for "stop". Each marker counts once.
func Count(lowered string, markers []string) int {
	n := 0
	for _, m := range markers {
		if strings.Contains(lowered, m) {
			n++
		}
	}
	return n
}

func CountAnger(lowered string) int {
	return Count(lowered, angerMarkers)
}

func CountExcitement(lowered string) int {
	return Count(lowered, excitementMarkers)
}
