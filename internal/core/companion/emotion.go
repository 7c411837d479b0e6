package companion

import (
	"strings"
)

type Emotion string

const (
	Neutral   Emotion = "neutral"
	Anger     Emotion = "anger"
	Disgust   Emotion = "disgust"
	Fear      Emotion = "fear"
	Happiness Emotion = "happiness"
	Sadness   Emotion = "sadness"
	Surprise  Emotion = "surprise"
)

// Emotions - канонический порядок, он же порядок разрешения ничьих.
var Emotions = []Emotion{Neutral, Anger, Disgust, Fear, Happiness, Sadness, Surprise}

var positiveValence = map[Emotion]bool{Happiness: true, Surprise: true, Neutral: true}

// Positive - эмоция с положительной валентностью.
func (e Emotion) Positive() bool {
	return positiveValence[e]
}

// Negative - anger, disgust, fear, sadness.
func (e Emotion) Negative() bool {
	return e.Known() && !positiveValence[e]
}

func (e Emotion) Known() bool {
	for _, k := range Emotions {
		if k == e {
			return true
		}
	}
	return false
}

// Scores - оценка по каждой эмоции.
type Scores map[Emotion]float64

// Uniform возвращает оценки с одинаковым значением v.
func Uniform(v float64) Scores {
	s := make(Scores, len(Emotions))
	for _, e := range Emotions {
		s[e] = v
	}
	return s
}

// ParseScores переводит внешние метки в Scores, неизвестные метки отбрасываются.
func ParseScores(raw map[string]float64) Scores {
	s := Uniform(0)
	for label, v := range raw {
		e := Emotion(strings.ToLower(strings.TrimSpace(label)))
		if e.Known() {
			s[e] = v
		}
	}
	return s
}

// Top возвращает эмоцию с максимальной оценкой.
func (s Scores) Top() (Emotion, float64) {
	best, bestScore := Emotions[0], s[Emotions[0]]
	for _, e := range Emotions[1:] {
		if s[e] > bestScore {
			best, bestScore = e, s[e]
		}
	}
	return best, bestScore
}

func (s Scores) Map() map[string]float64 {
	m := make(map[string]float64, len(Emotions))
	for _, e := range Emotions {
		m[string(e)] = s[e]
	}
	return m
}
