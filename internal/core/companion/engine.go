package companion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/neuralninjas/wellness/internal/adapters/apperror"
	"github.com/neuralninjas/wellness/internal/adapters/types"
	"github.com/neuralninjas/wellness/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultUsername = "Guest"

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// Generator - языковая модель.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// TextClassifier возвращает оценки эмоций по тексту.
type TextClassifier interface {
	Classify(ctx context.Context, text string) (map[string]float64, error)
}

// AudioResult - оценки эмоций по голосу и, если есть, расшифровка.
type AudioResult struct {
	Scores     map[string]float64 `json:"scores"`
	Transcript string             `json:"transcript"`
}

type AudioClassifier interface {
	ClassifyAudio(ctx context.Context, audio []byte, filename string) (*AudioResult, error)
}

// Recorder получает лог завершенной сессии.
type Recorder interface {
	Record(ctx context.Context, log *types.SessionLog) error
}

type TurnRequest struct {
	SessionID  string
	Username   string
	Text       string
	Audio      []byte
	AudioName  string
	ExtraPhase bool
}

type TurnResult struct {
	Response        string            `json:"response"`
	Emotion         string            `json:"emotion,omitempty"`
	CurrentTurn     int               `json:"current_turn,omitempty"`
	IsFinal         bool              `json:"is_final"`
	Concluded       bool              `json:"concluded"`
	TranscribedText string            `json:"transcribed_text,omitempty"`
	Analytics       []types.TurnScore `json:"analytics,omitempty"`
}

type Engine struct {
	log       *logger.Logger
	llm       Generator
	store     SessionStore
	policy    *Policy
	text      TextClassifier
	audio     AudioClassifier
	recorders []Recorder
	locks     *keyedMutex
	now       func() time.Time
}

type Option func(e *Engine)

func WithPolicy(p *Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

func WithTextClassifier(c TextClassifier) Option {
	return func(e *Engine) {
		e.text = c
	}
}

func WithAudioClassifier(c AudioClassifier) Option {
	return func(e *Engine) {
		e.audio = c
	}
}

// WithRecorders - получатели завершенных сессий: логи, архив, события.
func WithRecorders(r ...Recorder) Option {
	return func(e *Engine) {
		e.recorders = append(e.recorders, r...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func New(log *logger.Logger, llm Generator, store SessionStore, opts ...Option) (*Engine, error) {
	e := &Engine{
		log:   log,
		llm:   llm,
		store: store,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(e)
	}

	if e.policy == nil {
		p, err := LoadPolicy("")
		if err != nil {
			return nil, err
		}
		e.policy = p
	}
	return e, nil
}

func (e *Engine) Policy() *Policy {
	return e.policy
}

// Turn обрабатывает один ход диалога. Ходы одной сессии выполняются по очереди.
// При ошибке состояние сессии не меняется и ход можно повторить.
func (e *Engine) Turn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if req.SessionID == "" {
		return nil, fmt.Errorf("session id required: %w", apperror.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Text) == "" && len(req.Audio) == 0 {
		return nil, fmt.Errorf("text or audio required: %w", apperror.ErrInvalidInput)
	}
	if req.Username == "" {
		req.Username = defaultUsername
	}

	unlock := e.locks.Lock(req.SessionID)
	defer unlock()

	sess, err := e.store.Load(ctx, req.SessionID)
	if errors.Is(err, apperror.ErrNotFoundData) {
		sess = newSession(req.SessionID, req.Username)
	} else if err != nil {
		return nil, fmt.Errorf("failed load session: %w", err)
	}

	if e.concluded(sess, req.ExtraPhase) {
		return &TurnResult{Response: e.policy.ConcludedReply, Concluded: true}, nil
	}

	var audio *AudioResult
	if len(req.Audio) > 0 && e.audio != nil {
		audio, err = e.audio.ClassifyAudio(ctx, req.Audio, req.AudioName)
		if err != nil {
			e.log.Warn("audio classifier failed", zap.Error(err), zap.String("session", sess.ID))
			audio = nil
		}
	}

	raw := strings.TrimSpace(req.Text)
	if raw == "" && audio != nil {
		raw = strings.TrimSpace(audio.Transcript)
	}

	if sess.Turns == 1 && !req.ExtraPhase {
		return e.scheduleTurn(ctx, sess, raw)
	}
	return e.diagnosticTurn(ctx, sess, raw, audio, req.ExtraPhase)
}

func (e *Engine) concluded(sess *Session, extra bool) bool {
	if extra {
		return sess.ExtraTurns >= e.policy.ExtraTurns
	}
	return sess.Turns >= e.policy.MainTurns
}

// scheduleTurn - первый ход: пользователь рассказывает расписание дня.
func (e *Engine) scheduleTurn(ctx context.Context, sess *Session, raw string) (*TurnResult, error) {
	prompt, err := render(e.policy.schedule, promptData{Text: raw, MainTurns: e.policy.MainTurns})
	if err != nil {
		return nil, err
	}
	reply, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed acknowledge schedule: %w: %w", apperror.ErrUpstream, err)
	}
	reply = strings.TrimSpace(reply)

	sess.Schedule = raw
	sess.History = append(sess.History, types.Exchange{User: raw, Bot: reply, Emotion: string(Neutral)})
	sess.EmoScores = append(sess.EmoScores, types.TurnScore{Turn: 1, Scores: Uniform(0).Map(), Emotion: string(Neutral)})
	sess.Turns++

	if err := e.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	return &TurnResult{
		Response:        reply,
		Emotion:         string(Neutral),
		CurrentTurn:     sess.Turns,
		TranscribedText: raw,
	}, nil
}

func (e *Engine) diagnosticTurn(ctx context.Context, sess *Session, raw string, audio *AudioResult, extra bool) (*TurnResult, error) {
	resolved, llmScores := e.resolve(ctx, sess, raw)

	classifierScores := Uniform(0)
	if e.text != nil {
		scores, err := e.text.Classify(ctx, resolved)
		if err != nil {
			e.log.Warn("text classifier failed", zap.Error(err), zap.String("session", sess.ID))
		} else {
			classifierScores = ParseScores(scores)
		}
	}

	final := e.policy.Fusion.FuseText(classifierScores, llmScores)
	if audio != nil && len(audio.Scores) > 0 {
		final = e.policy.Fusion.BlendAudio(final, ParseScores(audio.Scores))
	}
	emotion, _ := final.Top()

	score := types.TurnScore{Turn: sess.Turns, Scores: final.Map(), Emotion: string(emotion)}

	current, isFinal := sess.Turns+1, false
	if extra {
		current = sess.ExtraTurns + 1
		isFinal = current == e.policy.ExtraTurns
	} else {
		isFinal = current == e.policy.MainTurns
	}

	prompt, err := render(e.policy.reply, promptData{
		Text:             resolved,
		Emotion:          strings.ToUpper(string(emotion)),
		Schedule:         sess.Schedule,
		PhaseInstruction: e.policy.PhaseInstruction(current),
		Turn:             current,
		Final:            isFinal,
	})
	if err != nil {
		return nil, err
	}
	reply, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed generate reply: %w: %w", apperror.ErrUpstream, err)
	}
	reply = strings.TrimSpace(reply)

	sess.EmoScores = append(sess.EmoScores, score)
	if extra {
		sess.ExtraTurns = current
	} else {
		sess.Turns = current
	}
	sess.History = append(sess.History, types.Exchange{User: resolved, Bot: reply, Emotion: string(emotion)})

	if err := e.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	if isFinal {
		e.complete(context.WithoutCancel(ctx), sess)
	}

	return &TurnResult{
		Response:        reply,
		Emotion:         string(emotion),
		CurrentTurn:     current,
		IsFinal:         isFinal,
		TranscribedText: resolved,
		Analytics:       sess.EmoScores,
	}, nil
}

type resolution struct {
	ResolvedText string             `json:"resolved_text"`
	Scores       map[string]float64 `json:"scores"`
}

// resolve раскрывает местоимения по контексту и оценивает эмоции через LLM.
func (e *Engine) resolve(ctx context.Context, sess *Session, raw string) (string, Scores) {
	fallback := Uniform(e.policy.LLMFallbackScore)

	names := make([]string, len(Emotions))
	for i, em := range Emotions {
		names[i] = string(em)
	}
	prompt, err := render(e.policy.resolve, promptData{
		Text:     raw,
		History:  formatHistory(lastExchanges(sess.History, e.policy.HistoryWindow)),
		Schedule: sess.Schedule,
		Emotions: "[" + strings.Join(names, ", ") + "]",
	})
	if err != nil {
		e.log.Error("failed render resolve prompt", zap.Error(err))
		return raw, fallback
	}

	out, err := e.llm.GenerateJSON(ctx, prompt)
	if err != nil {
		e.log.Warn("context resolution failed", zap.Error(err), zap.String("session", sess.ID))
		return raw, fallback
	}

	var res resolution
	if err := json.Unmarshal([]byte(extractJSON(out)), &res); err != nil {
		e.log.Warn("context resolution returned bad json", zap.Error(err), zap.String("session", sess.ID))
		return raw, fallback
	}

	text := strings.TrimSpace(res.ResolvedText)
	if text == "" {
		text = raw
	}
	if len(res.Scores) == 0 {
		return text, fallback
	}
	return text, ParseScores(res.Scores)
}

// complete пишет итог сессии во все получатели параллельно.
func (e *Engine) complete(ctx context.Context, sess *Session) {
	log := types.NewSessionLog(e.now())
	log.Username = sess.Username
	log.SessionID = sess.ID
	log.Schedule = sess.Schedule
	log.History = sess.History
	log.EmoScores = sess.EmoScores
	log.AIInsights = e.summarize(ctx, sess)
	if n := len(sess.History); n > 0 {
		log.SummaryText = sess.History[n-1].Bot
	}

	var g errgroup.Group
	for _, r := range e.recorders {
		g.Go(func() error {
			if err := r.Record(ctx, log); err != nil {
				e.log.Error("failed record session", zap.Error(err), zap.String("session", sess.ID))
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.log.Warn("session completed with recorder errors", zap.String("session", sess.ID))
		return
	}
	e.log.Info("session completed", zap.String("session", sess.ID), zap.String("user", sess.Username))
}

// summarize извлекает из сессии стрессоры, радости и совет на завтра.
func (e *Engine) summarize(ctx context.Context, sess *Session) types.Insights {
	fallback := e.policy.FallbackInsights

	prompt, err := render(e.policy.summary, promptData{
		Schedule: sess.Schedule,
		History:  formatHistory(sess.History),
	})
	if err != nil {
		e.log.Error("failed render summary prompt", zap.Error(err))
		return fallback
	}

	out, err := e.llm.Generate(ctx, prompt)
	if err != nil {
		e.log.Warn("summary generation failed", zap.Error(err), zap.String("session", sess.ID))
		return fallback
	}

	var in types.Insights
	if err := json.Unmarshal([]byte(extractJSON(out)), &in); err != nil {
		e.log.Warn("summary returned bad json", zap.Error(err), zap.String("session", sess.ID))
		return fallback
	}
	if in.Triggers == "" {
		in.Triggers = fallback.Triggers
	}
	if in.HappyMoments == "" {
		in.HappyMoments = fallback.HappyMoments
	}
	if in.Suggestions == "" {
		in.Suggestions = fallback.Suggestions
	}
	return in
}

func extractJSON(s string) string {
	if m := jsonObject.FindString(s); m != "" {
		return m
	}
	return s
}

func lastExchanges(h []types.Exchange, n int) []types.Exchange {
	if n <= 0 || len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}

func formatHistory(h []types.Exchange) string {
	lines := make([]string, len(h))
	for i, x := range h {
		lines[i] = fmt.Sprintf("U: %s | B: %s", x.User, x.Bot)
	}
	return strings.Join(lines, "\n")
}
