package insights

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neuralninjas/wellness/internal/adapters/types"
	"github.com/neuralninjas/wellness/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func session(day int, in types.Insights, turns ...types.TurnScore) types.SessionLog {
	l := types.NewSessionLog(time.Date(2025, 3, day, 10, 0, 0, 0, time.UTC))
	l.Username = "amy"
	l.EmoScores = append([]types.TurnScore{{Turn: 1, Scores: map[string]float64{"neutral": 0}, Emotion: "neutral"}}, turns...)
	l.AIInsights = in
	return *l
}

func score(turn int, emotion string, surety float64) types.TurnScore {
	return types.TurnScore{Turn: turn, Emotion: emotion, Scores: map[string]float64{emotion: surety, "neutral": 0.05}}
}

func TestDaily(t *testing.T) {
	l := session(14, types.Insights{Triggers: "exam"},
		score(2, "happiness", 0.8),
		score(3, "sadness", 0.6),
		score(4, "happiness", 0.7),
	)

	s := Daily(&l)
	assert.Equal(t, "2025-03-14", s.Date)
	assert.Equal(t, "happiness", s.DominantEmotion)
	assert.Equal(t, 3, s.Responses)
	assert.InDelta(t, 70.0, s.MoodClarity, 1e-9)
	require.Len(t, s.Flow, 3)
	assert.Equal(t, TurnPoint{Turn: 3, Emotion: "sadness", Surety: 0.6}, s.Flow[1])
	assert.Equal(t, "exam", s.Insights.Triggers)

	empty := session(14, types.Insights{})
	s = Daily(&empty)
	assert.Zero(t, s.MoodClarity)
	assert.Empty(t, s.DominantEmotion)
	assert.NotNil(t, s.Flow)
}

func TestWeeklyLocked(t *testing.T) {
	w := Weekly([]types.SessionLog{
		session(10, types.Insights{}, score(2, "fear", 0.9)),
		session(10, types.Insights{}, score(2, "fear", 0.9)),
		session(11, types.Insights{}, score(2, "fear", 0.9)),
	})
	assert.False(t, w.Unlocked)
	assert.Equal(t, 2, w.Days)
	assert.Equal(t, 1, w.Remaining)
	assert.InDelta(t, 66.7, w.Progress, 1e-9)
	assert.Empty(t, w.Trends)

	w = Weekly(nil)
	assert.False(t, w.Unlocked)
	assert.Equal(t, 3, w.Remaining)
}

func TestWeeklyTrends(t *testing.T) {
	logs := []types.SessionLog{
		session(10, types.Insights{Triggers: "deadline", HappyMoments: "walk"}, score(2, "happiness", 0.9), score(3, "sadness", 0.5)),
		session(10, types.Insights{Triggers: "N/A", HappyMoments: ""}, score(2, "happiness", 0.7)),
		session(11, types.Insights{Triggers: "traffic", HappyMoments: "N/A"}, score(2, "anger", 0.6)),
		session(12, types.Insights{HappyMoments: "dinner"}, score(2, "happiness", 1)),
	}

	w := Weekly(logs)
	require.True(t, w.Unlocked)
	assert.Equal(t, 3, w.Days)
	assert.InDelta(t, 100.0, w.Progress, 1e-9)
	require.Len(t, w.Trends, 3)

	day := w.Trends[0]
	assert.Equal(t, "2025-03-10", day.Date)
	assert.Equal(t, map[string]int{"happiness": 2, "sadness": 1}, day.Emotions)
	assert.InDelta(t, 66.7, day.HappinessShare, 1e-9)
	assert.InDelta(t, 0.7, day.MeanSurety, 1e-9)
	assert.Zero(t, w.Trends[1].HappinessShare)

	assert.Equal(t, []string{"deadline", "traffic"}, w.Triggers)
	assert.Equal(t, []string{"walk", "dinner"}, w.HappyMoments)
	require.Len(t, w.Sessions, 4)
	assert.Equal(t, "anger", w.Sessions[2].DominantEmotion)
}

type fakeLLM struct {
	mu      sync.Mutex
	prompts []string
	fail    string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.fail != "" && strings.Contains(prompt, f.fail) {
		return "", errors.New("quota")
	}
	if strings.Contains(prompt, "clinical psychologist") {
		return "OVERALL EMOTIONAL STATE\nSteady.", nil
	}
	return " Plan: rest more. ", nil
}

func TestNarrator(t *testing.T) {
	llm := &fakeLLM{}
	n := NewNarrator(logger.Nop(), llm)

	sessions := []SessionSummary{{Date: "2025-03-10", DominantEmotion: "fear", Insights: types.Insights{Triggers: "exam"}}}
	out := n.Weekly(context.Background(), sessions, []string{"exam", "rent"}, []string{"cat"})
	assert.Equal(t, "OVERALL EMOTIONAL STATE\nSteady.", out.Profile)
	assert.Equal(t, "Plan: rest more.", out.Plan)

	require.Len(t, llm.prompts, 2)
	joined := strings.Join(llm.prompts, "\n---\n")
	assert.Contains(t, joined, "Date: 2025-03-10 | Dominant: fear | Triggers: exam | Happy: N/A")
	assert.Contains(t, joined, "Triggers this week: exam. rent. Joy sources: cat.")

	llm = &fakeLLM{fail: "wellness coach"}
	out = NewNarrator(logger.Nop(), llm).Weekly(context.Background(), nil, nil, nil)
	assert.Equal(t, fallbackPlan, out.Plan)
	assert.NotEqual(t, fallbackProfile, out.Profile)
}

func TestIsSectionHeader(t *testing.T) {
	assert.True(t, IsSectionHeader("  clinical observations "))
	assert.False(t, IsSectionHeader("Clinical observations are fine"))
}
