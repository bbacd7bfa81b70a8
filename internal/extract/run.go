package extract

import (
	"github.com/pavelanni/qbank/internal/model"
	"github.com/pavelanni/qbank/internal/source"
)

// Result is the outcome of one extraction.
type Result struct {
	Answers model.AnswerMap
	Bank    model.QuestionBank
	Stats   model.ExtractStats
}

// Run parses the answer key, scans the question document and returns the
// resulting bank. It never fails: unusable input yields an empty bank.
func Run(questionText, answerText string, rules Rules) Result {
	answers := ParseAnswerKey(answerText)
	records := NewScanner(rules, answers).Scan(source.Lines(questionText))
	return Result{
		Answers: answers,
		Bank:    model.NewQuestionBank(rules.Subject, records),
		Stats:   Summarize(records, answers, rules),
	}
}

// Summarize counts how many records relied on each default policy.
// Records are expected to come from a scan with the same rules.
func Summarize(records []model.MCQQuestion, answers model.AnswerMap, rules Rules) model.ExtractStats {
	st := model.ExtractStats{Questions: len(records)}
	for _, q := range records {
		if n, ok := rules.questionNumber(q.ID); ok && answers.Has(n) {
			st.Answered++
		} else {
			st.Unanswered++
		}
		for _, o := range q.Options {
			if o == model.SentinelOption {
				st.Padded++
				break
			}
		}
		if len(q.Options) > model.OptionCount {
			st.Overfull++
		}
	}
	return st
}
