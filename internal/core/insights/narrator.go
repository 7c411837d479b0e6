package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/neuralninjas/wellness/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProfileSections - заголовки разделов глубокого профиля в порядке вывода.
var ProfileSections = []string{
	"OVERALL EMOTIONAL STATE",
	"DOMINANT EMOTIONS & PATTERNS",
	"STRESS TRIGGERS & ROOT CAUSES",
	"SOURCES OF JOY & POSITIVE ANCHORS",
	"EMOTIONAL VULNERABILITIES",
	"CLINICAL OBSERVATIONS",
	"PERSONALIZED RECOMMENDATIONS",
}

const (
	fallbackProfile = "Deep profile generation unavailable. Please try again later."
	fallbackPlan    = "Keep going, you've shown real resilience this week. Use what brought you joy as your fuel for next week."
)

const profilePrompt = `You are a senior clinical psychologist writing a comprehensive weekly emotional health report for a patient.

Session data:
%s

Write a detailed, empathetic, structured emotional health profile with EXACTLY these sections (use the section names as headers, one per line, then the body):

%s

Rules: speak directly to the patient, be specific not generic, 3-5 sentences per section, no markdown symbols.`

const planPrompt = `You are a supportive wellness coach. Triggers this week: %s. Joy sources: %s.
Write a warm, encouraging 1-paragraph plan for next week (under 100 words, speak directly to the user, no generic advice).`

// IsSectionHeader - строка профиля является заголовком раздела.
func IsSectionHeader(line string) bool {
	line = strings.ToUpper(strings.TrimSpace(line))
	for _, s := range ProfileSections {
		if line == s {
			return true
		}
	}
	return false
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Narrative - текстовая часть недельного отчета.
type Narrative struct {
	Profile string `json:"profile"`
	Plan    string `json:"plan"`
}

type Narrator struct {
	log *logger.Logger
	llm Generator
}

func NewNarrator(log *logger.Logger, llm Generator) *Narrator {
	return &Narrator{log: log, llm: llm}
}

// Weekly пишет глубокий профиль и план на неделю параллельно.
// Ошибки модели заменяются запасными текстами.
func (n *Narrator) Weekly(ctx context.Context, sessions []SessionSummary, triggers, happies []string) Narrative {
	lines := make([]string, 0, len(sessions))
	for _, s := range sessions {
		dominant := s.DominantEmotion
		if dominant == "" {
			dominant = notAvailable
		}
		lines = append(lines, fmt.Sprintf("Date: %s | Dominant: %s | Triggers: %s | Happy: %s",
			s.Date, dominant, orNA(s.Insights.Triggers), orNA(s.Insights.HappyMoments)))
	}

	var out Narrative
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Profile = n.generate(gctx, "profile",
			fmt.Sprintf(profilePrompt, strings.Join(lines, "\n"), strings.Join(ProfileSections, "\n")),
			fallbackProfile)
		return nil
	})
	g.Go(func() error {
		out.Plan = n.generate(gctx, "plan",
			fmt.Sprintf(planPrompt, strings.Join(triggers, ". "), strings.Join(happies, ". ")),
			fallbackPlan)
		return nil
	})
	_ = g.Wait()
	return out
}

func (n *Narrator) generate(ctx context.Context, what, prompt, fallback string) string {
	text, err := n.llm.Generate(ctx, prompt)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		n.log.Warn("weekly narrative fallback", zap.String("part", what), zap.Error(err))
		return fallback
	}
	return text
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
