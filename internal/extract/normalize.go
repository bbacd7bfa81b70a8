package extract

import "github.com/pavelanni/qbank/internal/model"

// Normalize returns q with its option list padded to model.OptionCount using
// model.SentinelOption and an out-of-range correct index reset to
// model.DefaultCorrectIndex. Existing options are never dropped or reordered,
// so a record with more than OptionCount options keeps all of them. The input
// is not modified, and normalizing a valid record returns an equal record.
func Normalize(q model.MCQQuestion) model.MCQQuestion {
	opts := make([]string, len(q.Options), max(len(q.Options), model.OptionCount))
	copy(opts, q.Options)
	for len(opts) < model.OptionCount {
		opts = append(opts, model.SentinelOption)
	}
	q.Options = opts

	if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= model.OptionCount {
		q.CorrectOptionIndex = model.DefaultCorrectIndex
	}
	return q
}
