package types

import "time"

// Exchange - одна реплика пользователя и ответ ассистента.
type Exchange struct {
	User    string `json:"u"`
	Bot     string `json:"b"`
	Emotion string `json:"e"`
}

// TurnScore - оценки эмоций для хода диалога.
type TurnScore struct {
	Turn    int                `json:"turn"`
	Scores  map[string]float64 `json:"scores"`
	Emotion string             `json:"emotion"`
}

// Insights - выжимка сессии для отчетов.
type Insights struct {
	Triggers     string `json:"triggers" yaml:"triggers"`
	HappyMoments string `json:"happy_moments" yaml:"happy_moments"`
	Suggestions  string `json:"suggestions" yaml:"suggestions"`
}

// SessionLog - завершенная сессия в том виде, как она пишется на диск.
type SessionLog struct {
	Timestamp   string      `json:"timestamp"`
	Date        string      `json:"date"`
	Username    string      `json:"username"`
	SessionID   string      `json:"session_id"`
	Schedule    string      `json:"schedule"`
	History     []Exchange  `json:"history"`
	EmoScores   []TurnScore `json:"emo_scores"`
	AIInsights  Insights    `json:"ai_insights"`
	SummaryText string      `json:"summary_text"`
}

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "20060102_150405"
)

// NewSessionLog заполняет дату и метку времени из t.
func NewSessionLog(t time.Time) *SessionLog {
	return &SessionLog{
		Timestamp: t.Format(TimestampLayout),
		Date:      t.Format(DateLayout),
	}
}

// DiagnosticTurns возвращает оценки без первого хода (сбор расписания).
func (l *SessionLog) DiagnosticTurns() []TurnScore {
	turns := make([]TurnScore, 0, len(l.EmoScores))
	for _, t := range l.EmoScores {
		if t.Turn > 1 {
			turns = append(turns, t)
		}
	}
	return turns
}

// DominantEmotion - самая частая эмоция диагностических ходов.
// При равенстве побеждает та, что встретилась раньше. Пустая строка, если ходов нет.
func (l *SessionLog) DominantEmotion() string {
	return Dominant(l.DiagnosticTurns())
}

// Dominant - самая частая эмоция среди ходов, при равенстве первая встретившаяся.
func Dominant(turns []TurnScore) string {
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, t := range turns {
		counts[t.Emotion]++
	}
	for _, t := range turns {
		if counts[t.Emotion] > bestCount {
			best, bestCount = t.Emotion, counts[t.Emotion]
		}
	}
	return best
}

// DayOf возвращает дату сессии, для старых логов берет ее из метки времени.
func (l *SessionLog) DayOf() string {
	if l.Date != "" {
		return l.Date
	}
	if t, err := time.Parse(TimestampLayout, l.Timestamp); err == nil {
		return t.Format(DateLayout)
	}
	return ""
}

// DisplayDate переводит yyyy-mm-dd в dd-mm-yyyy.
func DisplayDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("02-01-2006")
}
