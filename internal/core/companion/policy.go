package companion

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/neuralninjas/wellness/internal/adapters/types"
	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Policy - параметры диалога: число ходов, веса, промпты и запасные ответы.
type Policy struct {
	MainTurns          int            `yaml:"main_turns"`
	ExtraTurns         int            `yaml:"extra_turns"`
	PositivePhaseUntil int            `yaml:"positive_phase_until"`
	HistoryWindow      int            `yaml:"history_window"`
	LLMFallbackScore   float64        `yaml:"llm_fallback_score"`
	ConcludedReply     string         `yaml:"concluded_reply"`
	Fusion             FusionPolicy   `yaml:"fusion"`
	FallbackInsights   types.Insights `yaml:"fallback_insights"`
	PhaseInstructions  struct {
		Positive    string `yaml:"positive"`
		Challenging string `yaml:"challenging"`
	} `yaml:"phase_instructions"`
	Prompts struct {
		Schedule string `yaml:"schedule"`
		Resolve  string `yaml:"resolve"`
		Reply    string `yaml:"reply"`
		Summary  string `yaml:"summary"`
	} `yaml:"prompts"`

	schedule *template.Template
	resolve  *template.Template
	reply    *template.Template
	summary  *template.Template
}

// promptData - поля, доступные в шаблонах промптов.
type promptData struct {
	Text             string
	History          string
	Schedule         string
	Emotions         string
	Emotion          string
	PhaseInstruction string
	Turn             int
	MainTurns        int
	Final            bool
}

// LoadPolicy читает политику из файла. Пустой путь - встроенная политика.
func LoadPolicy(path string) (*Policy, error) {
	data := defaultPolicy
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed read policy file: %w", err)
		}
	}
	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed parse policy: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	var err error
	for _, t := range []struct {
		dst  **template.Template
		name string
		text string
	}{
		{&p.schedule, "schedule", p.Prompts.Schedule},
		{&p.resolve, "resolve", p.Prompts.Resolve},
		{&p.reply, "reply", p.Prompts.Reply},
		{&p.summary, "summary", p.Prompts.Summary},
	} {
		if *t.dst, err = template.New(t.name).Option("missingkey=error").Parse(t.text); err != nil {
			return nil, fmt.Errorf("failed parse %s prompt: %w", t.name, err)
		}
	}
	return &p, nil
}

func (p *Policy) validate() error {
	switch {
	case p.MainTurns < 2:
		return errors.New("main_turns must be at least 2")
	case p.ExtraTurns < 1:
		return errors.New("extra_turns must be positive")
	case p.Fusion.AudioWeight < 0 || p.Fusion.AudioWeight > 1:
		return errors.New("audio_weight must be within [0, 1]")
	case p.ConcludedReply == "":
		return errors.New("concluded_reply is empty")
	}
	return nil
}

// PhaseInstruction - позитивные вопросы до PositivePhaseUntil, затем сложные.
func (p *Policy) PhaseInstruction(turn int) string {
	if turn <= p.PositivePhaseUntil {
		return p.PhaseInstructions.Positive
	}
	return p.PhaseInstructions.Challenging
}

func render(t *template.Template, data promptData) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed render %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}
