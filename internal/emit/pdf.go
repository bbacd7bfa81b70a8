package emit

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/pavelanni/qbank/internal/model"
)

// PDF writes a printable quiz sheet followed by an answer key table.
type PDF struct {
	opts Options
}

// Emit implements Emitter.
func (e *PDF) Emit(w io.Writer, bank model.QuestionBank) error {
	title := e.opts.Title
	if title == "" {
		title = bank.Subject + " Question Bank"
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; translate UTF-8 text so accented prompts survive.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, tr(title), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("%d questions | generated %s", len(bank.MCQ), e.opts.now().Format("2006-01-02")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	lastTopic := ""
	for i, q := range bank.MCQ {
		if q.Topic != lastTopic {
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", 13)
			pdf.CellFormat(0, 8, tr(fmt.Sprintf("Unit %d: %s", q.Unit, q.Topic)), "B", 1, "L", false, 0, "")
			pdf.Ln(2)
			lastTopic = q.Topic
		}

		pdf.SetFont("Helvetica", "B", 11)
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, q.Prompt)), "", "L", false)
		pdf.SetFont("Helvetica", "", 10)
		for j, opt := range q.Options {
			pdf.MultiCell(0, 5, tr(fmt.Sprintf("    %s) %s", optionLabel(j), opt)), "", "L", false)
		}
		pdf.Ln(3)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Answer Key", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(20, 7, "No.", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 7, "ID", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Answer", "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 7, "Topic", "1", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for i, q := range bank.MCQ {
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 7, tr(q.ID), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, optionLabel(q.CorrectOptionIndex), "1", 0, "C", false, 0, "")
		pdf.CellFormat(95, 7, tr(q.Topic), "1", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render PDF: %w", err)
	}
	return nil
}

// optionLabel returns the letter printed for option index i: a, b, c, ...
func optionLabel(i int) string {
	if i < 0 || i >= 26 {
		return "?"
	}
	return string(rune('a' + i))
}
