package analyzer

import "fmt"

type Emotion string

const (
	EmotionCalm    Emotion = "calm"
	EmotionAngry   Emotion = "angry"
	EmotionExcited Emotion = "excited"
)

type Tone string

const (
	ToneReflective Tone = "Reflective"
	ToneDirect     Tone = "Direct"
	ToneVisionary  Tone = "Visionary"
	ToneNeutral    Tone = "Neutral"
)

var toneByEmotion = map[Emotion]Tone{
	EmotionAngry:   ToneDirect,
	EmotionExcited: ToneVisionary,
	EmotionCalm:    ToneReflective,
}

// ToneFor maps an emotion to its display tone. Unknown emotions are Neutral.
func ToneFor(e Emotion) Tone {
	if t, ok := toneByEmotion[e]; ok {
		return t
	}
	return ToneNeutral
}

// TextSignal is the structured result of analyzing one transcript.
type TextSignal struct {
	WordCount     int      `json:"word_count"`
	Tone          Tone     `json:"tone"`
	Emotion       Emotion  `json:"emotion"`
	ViralityScore int      `json:"virality_score"`
	Suggestions   []string `json:"suggestions"`
}

// AlignmentAudit is produced by the remote strategy service, not by this package.
// It travels next to a TextSignal so presentation layers get one payload.
type AlignmentAudit struct {
	IsAligned       bool   `json:"is_aligned"`
	Insight         string `json:"insight"`
	StatedIntent    string `json:"stated_intent"`
	ActualObsession string `json:"actual_obsession"`
}

func (a AlignmentAudit) Validate() error {
	if a.IsAligned {
		return nil
	}
	if a.Insight == "" {
		return fmt.Errorf("misaligned audit requires an insight")
	}
	return nil
}
