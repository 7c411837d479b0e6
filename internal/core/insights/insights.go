// Package insights - аналитика по завершенным сессиям.
package insights

import (
	"math"

	"github.com/neuralninjas/wellness/internal/adapters/types"
)

// UnlockDays - сколько разных дней с сессиями нужно для недельного обзора.
const UnlockDays = 3

const notAvailable = "N/A"

// TurnPoint - эмоция хода и уверенность в ней.
type TurnPoint struct {
	Turn    int     `json:"turn"`
	Emotion string  `json:"emotion"`
	Surety  float64 `json:"surety"`
}

type DailySnapshot struct {
	Date            string         `json:"date"`
	DominantEmotion string         `json:"dominant_emotion"`
	MoodClarity     float64        `json:"mood_clarity"`
	Responses       int            `json:"responses"`
	Flow            []TurnPoint    `json:"flow"`
	Insights        types.Insights `json:"insights"`
}

// Daily считает срез одной сессии. MoodClarity - средняя максимальная оценка хода в процентах.
func Daily(log *types.SessionLog) DailySnapshot {
	turns := log.DiagnosticTurns()
	s := DailySnapshot{
		Date:            log.DayOf(),
		DominantEmotion: types.Dominant(turns),
		Responses:       len(turns),
		Flow:            make([]TurnPoint, 0, len(turns)),
		Insights:        log.AIInsights,
	}

	var total float64
	for _, t := range turns {
		surety := maxScore(t.Scores)
		total += surety
		s.Flow = append(s.Flow, TurnPoint{Turn: t.Turn, Emotion: t.Emotion, Surety: surety})
	}
	if len(turns) > 0 {
		s.MoodClarity = round(total / float64(len(turns)) * 100)
	}
	return s
}

// DayTrend - сводка эмоций за одну дату.
type DayTrend struct {
	Date           string         `json:"date"`
	Emotions       map[string]int `json:"emotions"`
	HappinessShare float64        `json:"happiness_share"`
	MeanSurety     float64        `json:"mean_surety"`
}

// SessionSummary - строка недельного отчета о сессии.
type SessionSummary struct {
	Date            string         `json:"date"`
	DominantEmotion string         `json:"dominant_emotion"`
	Insights        types.Insights `json:"insights"`
}

type WeeklyTrends struct {
	Unlocked     bool             `json:"unlocked"`
	Days         int              `json:"days"`
	Required     int              `json:"required"`
	Remaining    int              `json:"remaining"`
	Progress     float64          `json:"progress"`
	Trends       []DayTrend       `json:"trends,omitempty"`
	Sessions     []SessionSummary `json:"sessions,omitempty"`
	Triggers     []string         `json:"triggers,omitempty"`
	HappyMoments []string         `json:"happy_moments,omitempty"`
}

// Weekly строит недельные тренды. Пока дней меньше UnlockDays, возвращает только прогресс.
func Weekly(logs []types.SessionLog) WeeklyTrends {
	days := distinctDays(logs)
	w := WeeklyTrends{
		Days:      len(days),
		Required:  UnlockDays,
		Remaining: max(UnlockDays-len(days), 0),
		Progress:  round(math.Min(float64(len(days))/UnlockDays, 1) * 100),
	}
	if len(days) < UnlockDays {
		return w
	}
	w.Unlocked = true

	type acc struct {
		counts map[string]int
		total  int
		happy  int
		surety float64
	}
	byDate := make(map[string]*acc, len(days))
	for _, d := range days {
		byDate[d] = &acc{counts: make(map[string]int)}
	}

	w.Sessions = Summaries(logs)
	for i := range logs {
		a := byDate[logs[i].DayOf()]
		if a == nil {
			continue
		}
		for _, t := range logs[i].DiagnosticTurns() {
			a.counts[t.Emotion]++
			a.total++
			a.surety += maxScore(t.Scores)
			if t.Emotion == "happiness" {
				a.happy++
			}
		}
	}

	w.Trends = make([]DayTrend, 0, len(days))
	for _, d := range days {
		a := byDate[d]
		t := DayTrend{Date: d, Emotions: a.counts}
		if a.total > 0 {
			t.HappinessShare = round(float64(a.happy) / float64(a.total) * 100)
			t.MeanSurety = math.Round(a.surety/float64(a.total)*1000) / 1000
		}
		w.Trends = append(w.Trends, t)
	}

	w.Triggers, w.HappyMoments = Highlights(logs)
	return w
}

// Summaries возвращает доминирующую эмоцию и выводы каждой сессии.
func Summaries(logs []types.SessionLog) []SessionSummary {
	out := make([]SessionSummary, 0, len(logs))
	for i := range logs {
		out = append(out, SessionSummary{
			Date:            logs[i].DayOf(),
			DominantEmotion: logs[i].DominantEmotion(),
			Insights:        logs[i].AIInsights,
		})
	}
	return out
}

// Highlights собирает стрессоры и радости недели без пустых значений.
func Highlights(logs []types.SessionLog) (triggers, happies []string) {
	triggers, happies = []string{}, []string{}
	for i := range logs {
		if t := logs[i].AIInsights.Triggers; meaningful(t) {
			triggers = append(triggers, t)
		}
		if h := logs[i].AIInsights.HappyMoments; meaningful(h) {
			happies = append(happies, h)
		}
	}
	return triggers, happies
}

func meaningful(s string) bool {
	return s != "" && s != notAvailable
}

// distinctDays возвращает даты в порядке первого появления.
func distinctDays(logs []types.SessionLog) []string {
	seen := make(map[string]struct{})
	days := make([]string, 0)
	for i := range logs {
		d := logs[i].DayOf()
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	return days
}

func maxScore(scores map[string]float64) float64 {
	var m float64
	for _, v := range scores {
		m = math.Max(m, v)
	}
	return m
}

// round оставляет один знак после запятой.
func round(v float64) float64 {
	return math.Round(v*10) / 10
}
