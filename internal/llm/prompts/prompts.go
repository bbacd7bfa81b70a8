package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/qbank/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	// Markup that would let document text break out of its delimiters.
	delimiterTagRegex = regexp.MustCompile(`(?i)</?\s*(question|options|system-instructions)\b[^>]*>`)
)

const maxFieldRunes = 4000

var (
	loadOnce      sync.Once
	loadErr       error
	explainTmpl   *template.Template
	studyPlanTmpl *template.Template
)

// ExplainData holds template data for question explanation prompts.
type ExplainData struct {
	Subject     string
	Topic       string
	Prompt      string
	Options     []string
	Correct     int
	CorrectText string
}

// StudyPlanData holds template data for study plan prompts.
type StudyPlanData struct {
	Subject    string
	WeakTopics []string
}

var funcs = template.FuncMap{
	"letter": OptionLetter,
	"join":   strings.Join,
}

// Load parses the embedded prompt templates. It runs once; later calls return
// the first result.
func Load() error {
	loadOnce.Do(func() {
		explainTmpl, loadErr = parse("templates/explain.txt")
		if loadErr != nil {
			return
		}
		studyPlanTmpl, loadErr = parse("templates/study_plan.txt")
	})
	return loadErr
}

func parse(name string) (*template.Template, error) {
	content, err := templateFS.ReadFile(name)
	if err != nil {
		return nil, errors.New("failed to read prompt file " + name + ": " + err.Error())
	}
	tmpl, err := template.New(name).Funcs(funcs).Parse(string(content))
	if err != nil {
		return nil, errors.New("failed to parse prompt template " + name + ": " + err.Error())
	}
	return tmpl, nil
}

// BuildExplainPrompt builds the prompt asking why q's correct option is right.
func BuildExplainPrompt(q model.MCQQuestion) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}

	data := ExplainData{
		Subject: q.Subject,
		Topic:   q.Topic,
		Prompt:  sanitize(q.Prompt),
		Correct: q.CorrectOptionIndex,
	}
	for _, o := range q.Options {
		data.Options = append(data.Options, sanitize(o))
	}
	if q.CorrectOptionIndex >= 0 && q.CorrectOptionIndex < len(data.Options) {
		data.CorrectText = data.Options[q.CorrectOptionIndex]
	}

	var buf bytes.Buffer
	if err := explainTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// BuildStudyPlanPrompt builds the prompt for a revision note on weakTopics.
func BuildStudyPlanPrompt(subject string, weakTopics []string) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}

	data := StudyPlanData{Subject: sanitize(subject)}
	for _, t := range weakTopics {
		if t = sanitize(t); t != "" {
			data.WeakTopics = append(data.WeakTopics, t)
		}
	}

	var buf bytes.Buffer
	if err := studyPlanTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// OptionLetter returns the letter printed for option index i.
func OptionLetter(i int) string {
	if i < 0 || i >= 26 {
		return "?"
	}
	return string(rune('a' + i))
}

func sanitize(s string) string {
	s = delimiterTagRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxFieldRunes {
		runes := []rune(s)
		s = string(runes[:maxFieldRunes]) + " [truncated]"
	}
	return s
}
