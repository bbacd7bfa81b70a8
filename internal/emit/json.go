package emit

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pavelanni/qbank/internal/model"
)

// JSON writes a bank as an indented model.BankExport document.
type JSON struct {
	opts Options
}

// Emit implements Emitter.
func (e *JSON) Emit(w io.Writer, bank model.QuestionBank) error {
	export := model.BankExport{
		Subject:     bank.Subject,
		GeneratedAt: e.opts.now(),
		TotalCount:  len(bank.MCQ) + len(bank.Subjective),
		MCQ:         bank.MCQ,
		Subjective:  bank.Subjective,
	}
	if export.MCQ == nil {
		export.MCQ = []model.MCQQuestion{}
	}
	if export.Subjective == nil {
		export.Subjective = []model.SubjectiveQuestion{}
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
