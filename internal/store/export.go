package store

import (
	"fmt"

	"github.com/pavelanni/qbank/internal/model"
)

// Bank assembles the stored questions of subject into a question bank in
// their original document order.
func (s *Store) Bank(subject string) (model.QuestionBank, error) {
	questions, err := s.ListQuestions(model.QuestionFilter{Subject: subject})
	if err != nil {
		return model.QuestionBank{}, fmt.Errorf("list questions of %s: %w", subject, err)
	}
	return model.NewQuestionBank(subject, questions), nil
}

// MissingExplanations returns the questions of subject that have no
// explanation yet.
func (s *Store) MissingExplanations(subject string) ([]model.MCQQuestion, error) {
	questions, err := s.ListQuestions(model.QuestionFilter{Subject: subject})
	if err != nil {
		return nil, fmt.Errorf("list questions of %s: %w", subject, err)
	}
	var missing []model.MCQQuestion
	for _, q := range questions {
		if q.Explanation == "" {
			missing = append(missing, q)
		}
	}
	return missing, nil
}
