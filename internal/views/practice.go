// Package views renders the HTML practice pages.
package views

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/qbank/internal/i18n"
	"github.com/pavelanni/qbank/internal/llm/prompts"
	"github.com/pavelanni/qbank/internal/model"
)

// TestPage is the data behind a practice test form.
type TestPage struct {
	Subject   string
	Questions []model.MCQQuestion
}

// ResultPage is the data behind a graded practice test.
type ResultPage struct {
	Subject    string
	Total      int
	Correct    int
	Wrong      []model.MCQQuestion
	WeakTopics []string
	StudyPlan  string
}

const style = `body{font-family:system-ui,sans-serif;max-width:48rem;margin:2rem auto;padding:0 1rem}` +
	`fieldset{margin:1rem 0;border:1px solid #ccc;border-radius:4px}` +
	`legend{font-weight:600}label{display:block;margin:.25rem 0}.answer{color:#060}`

// layout wraps body in the page chrome. Output is buffered so a failed
// render writes nothing.
func layout(title string, body func(ctx context.Context, b *bytes.Buffer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b bytes.Buffer
		fmt.Fprintf(&b, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>%s</title><style>%s</style></head><body>`,
			templ.EscapeString(title), style)
		fmt.Fprintf(&b, `<h1>%s</h1>`, templ.EscapeString(title))
		body(ctx, &b)
		b.WriteString(`</body></html>`)
		_, err := w.Write(b.Bytes())
		return err
	})
}

func pageTitle(ctx context.Context, subject string) string {
	return appI18n.Td(ctx, "PracticeTitle", map[string]any{"Subject": subject})
}

// PracticeTest renders the form for one practice test. Answers post back to
// the same URL as fields named "a.<question id>".
func PracticeTest(ctx context.Context, p TestPage) templ.Component {
	return layout(pageTitle(ctx, p.Subject), func(ctx context.Context, b *bytes.Buffer) {
		if len(p.Questions) == 0 {
			fmt.Fprintf(b, `<p>%s</p>`, templ.EscapeString(appI18n.Td(ctx, "ErrSubjectNotFound", map[string]any{"Subject": p.Subject})))
			return
		}
		b.WriteString(`<form method="post">`)
		for i, q := range p.Questions {
			fmt.Fprintf(b, `<input type="hidden" name="q" value="%s">`, templ.EscapeString(q.ID))
			fmt.Fprintf(b, `<fieldset><legend>%d. %s</legend>`, i+1, templ.EscapeString(q.Prompt))
			for j, opt := range q.Options {
				fmt.Fprintf(b, `<label><input type="radio" name="a.%s" value="%d"> %s) %s</label>`,
					templ.EscapeString(q.ID), j, prompts.OptionLetter(j), templ.EscapeString(opt))
			}
			b.WriteString(`</fieldset>`)
		}
		fmt.Fprintf(b, `<button type="submit">%s</button></form>`, templ.EscapeString(appI18n.T(ctx, "PracticeSubmit")))
	})
}

// PracticeResult renders the score, the missed questions with their correct
// options, and a study plan for the weak topics.
func PracticeResult(ctx context.Context, p ResultPage) templ.Component {
	return layout(pageTitle(ctx, p.Subject), func(ctx context.Context, b *bytes.Buffer) {
		fmt.Fprintf(b, `<p><strong>%s</strong></p>`, templ.EscapeString(appI18n.Tp(ctx, "PracticeScore", p.Total,
			map[string]any{"Correct": p.Correct})))

		if len(p.Wrong) > 0 {
			fmt.Fprintf(b, `<h2>%s</h2>`, templ.EscapeString(appI18n.T(ctx, "PracticeReview")))
			for _, q := range p.Wrong {
				fmt.Fprintf(b, `<fieldset><legend>%s</legend>`, templ.EscapeString(q.Prompt))
				if q.CorrectOptionIndex >= 0 && q.CorrectOptionIndex < len(q.Options) {
					fmt.Fprintf(b, `<p class="answer">%s) %s</p>`, prompts.OptionLetter(q.CorrectOptionIndex),
						templ.EscapeString(q.Options[q.CorrectOptionIndex]))
				}
				if q.Explanation != "" {
					fmt.Fprintf(b, `<p>%s</p>`, templ.EscapeString(q.Explanation))
				}
				b.WriteString(`</fieldset>`)
			}
		}

		if len(p.WeakTopics) > 0 {
			fmt.Fprintf(b, `<h2>%s</h2><p>%s</p>`, templ.EscapeString(appI18n.T(ctx, "PracticeWeakTopics")),
				templ.EscapeString(strings.Join(p.WeakTopics, ", ")))
		}
		if p.StudyPlan != "" {
			fmt.Fprintf(b, `<p>%s</p>`, templ.EscapeString(p.StudyPlan))
		}
		fmt.Fprintf(b, `<p><a href="">%s</a></p>`, templ.EscapeString(appI18n.T(ctx, "PracticeAgain")))
	})
}
