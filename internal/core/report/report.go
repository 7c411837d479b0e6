// Package report рендерит pdf отчеты по сессиям.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/neuralninjas/wellness/internal/adapters/types"
	"github.com/neuralninjas/wellness/internal/core/insights"
)

const (
	margin     = 19.0
	lineHeight = 5.5
	notAvail   = "N/A"
)

type rgb struct{ r, g, b int }

var (
	colorText    = rgb{30, 41, 59}
	colorUser    = rgb{16, 185, 129}
	colorAI      = rgb{59, 130, 246}
	colorTrigger = rgb{239, 68, 68}
	colorRule    = rgb{51, 65, 85}
)

type Renderer struct {
	compress bool
}

type Option func(r *Renderer)

// WithCompression включает сжатие потоков pdf, по умолчанию включено.
func WithCompression(on bool) Option {
	return func(r *Renderer) {
		r.compress = on
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{compress: true}
	for _, o := range opts {
		o(r)
	}
	return r
}

// WeeklyInput - данные недельного отчета.
type WeeklyInput struct {
	Username     string
	Generated    time.Time
	Sessions     []insights.SessionSummary
	Triggers     []string
	HappyMoments []string
	Narrative    insights.Narrative
}

type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (r *Renderer) newDocument(title string) *document {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle(title, true)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()
	return &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

// Daily - отчет об одной сессии: выводы, расписание, итог и переписка.
func (r *Renderer) Daily(log *types.SessionLog) ([]byte, error) {
	d := r.newDocument("Wellness Session Report")

	d.title("Wellness Session Report")
	d.subtitle(fmt.Sprintf("User: %s | Date: %s", log.Username, types.DisplayDate(log.DayOf())))
	d.pdf.Ln(6)

	d.section("Clinical Summary", colorText)
	d.labeled("Triggers/Stressors: ", orNA(log.AIInsights.Triggers), colorText)
	d.labeled("Happy Moments: ", orNA(log.AIInsights.HappyMoments), colorText)
	d.labeled("Suggestions: ", orNA(log.AIInsights.Suggestions), colorText)
	d.pdf.Ln(4)

	d.section("Session Details", colorText)
	d.labeled("Reported Schedule: ", orNA(log.Schedule), colorText)
	d.labeled("Closing Thoughts: ", log.SummaryText, colorText)
	d.pdf.Ln(4)

	d.section("Conversation Transcript", colorText)
	if len(log.History) == 0 {
		d.paragraph("No transcript available.", colorText)
	}
	for _, x := range log.History {
		d.labeled("User: ", x.User, colorUser)
		d.labeled("AI: ", x.Bot, colorAI)
		d.pdf.Ln(2)
	}

	return d.output()
}

// Weekly - недельный отчет: сессии по дням, итоги недели, профиль и план.
func (r *Renderer) Weekly(in WeeklyInput) ([]byte, error) {
	d := r.newDocument("Weekly Wellness Report")

	d.title("Weekly Wellness Report")
	d.subtitle(fmt.Sprintf("User: %s  |  Generated: %s  |  Sessions: %d",
		in.Username, in.Generated.Format("02-01-2006"), len(in.Sessions)))
	d.rule(1)
	d.pdf.Ln(4)

	d.section("Day-by-Day Session Summaries", colorUser)
	for _, s := range in.Sessions {
		dominant := s.DominantEmotion
		if dominant == "" {
			dominant = notAvail
		}
		d.bold(fmt.Sprintf("Date: %s  |  Dominant Emotion: %s", types.DisplayDate(s.Date), strings.ToUpper(dominant)), colorText)
		d.labeled("Triggers/Stressors: ", orNA(s.Insights.Triggers), colorTrigger)
		d.labeled("Happy Moments: ", orNA(s.Insights.HappyMoments), colorUser)
		d.labeled("Suggestion: ", orNA(s.Insights.Suggestions), colorText)
		d.rule(0.3)
		d.pdf.Ln(2)
	}
	d.pdf.Ln(3)

	d.section("Week Highlights", colorUser)
	d.bold("Repeated Stressors:", colorText)
	for _, t := range in.Triggers {
		d.paragraph("- "+t, colorText)
	}
	d.pdf.Ln(2)
	d.bold("Moments of Joy:", colorText)
	for _, h := range in.HappyMoments {
		d.paragraph("- "+h, colorText)
	}
	d.pdf.Ln(5)

	d.section("Deep Emotional Health Profile", colorUser)
	for _, line := range strings.Split(in.Narrative.Profile, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case insights.IsSectionHeader(line):
			d.pdf.Ln(2)
			d.bold(strings.ToUpper(line), colorUser)
		case line != "":
			d.paragraph(line, colorText)
		}
	}
	d.pdf.Ln(5)

	d.section("Your Personalized Plan for Next Week", colorUser)
	d.paragraph(in.Narrative.Plan, colorText)

	return d.output()
}

func (d *document) title(text string) {
	d.color(colorText)
	d.pdf.SetFont("Helvetica", "B", 18)
	d.pdf.CellFormat(0, 10, d.tr(text), "", 1, "C", false, 0, "")
}

func (d *document) subtitle(text string) {
	d.color(colorText)
	d.pdf.SetFont("Helvetica", "B", 12)
	d.pdf.CellFormat(0, 8, d.tr(text), "", 1, "C", false, 0, "")
}

func (d *document) section(text string, c rgb) {
	d.color(c)
	d.pdf.SetFont("Helvetica", "B", 13)
	d.pdf.CellFormat(0, 8, d.tr(text), "", 1, "L", false, 0, "")
}

func (d *document) bold(text string, c rgb) {
	d.color(c)
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.MultiCell(0, lineHeight, d.tr(text), "", "L", false)
}

func (d *document) paragraph(text string, c rgb) {
	d.color(c)
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.MultiCell(0, lineHeight, d.tr(text), "", "L", false)
}

// labeled пишет жирную метку и текст в одном абзаце.
func (d *document) labeled(label, text string, c rgb) {
	d.color(c)
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.Write(lineHeight, d.tr(label))
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.Write(lineHeight, d.tr(text))
	d.pdf.Ln(lineHeight + 1)
}

func (d *document) rule(width float64) {
	w, _ := d.pdf.GetPageSize()
	y := d.pdf.GetY() + 1
	d.pdf.SetDrawColor(colorRule.r, colorRule.g, colorRule.b)
	d.pdf.SetLineWidth(width * 0.35)
	d.pdf.Line(margin, y, w-margin, y)
	d.pdf.Ln(2)
}

func (d *document) color(c rgb) {
	d.pdf.SetTextColor(c.r, c.g, c.b)
}

func (d *document) output() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func orNA(s string) string {
	if s == "" {
		return notAvail
	}
	return s
}
