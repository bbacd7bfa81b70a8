package model

import "time"

// BankExport is the top-level JSON structure for a question bank export.
type BankExport struct {
	Subject     string               `json:"subject"`
	GeneratedAt time.Time            `json:"generated_at"`
	TotalCount  int                  `json:"total_count"`
	MCQ         []MCQQuestion        `json:"mcq"`
	Subjective  []SubjectiveQuestion `json:"subjective"`
}

// ExtractStats summarizes how much of a bank relied on default policies.
type ExtractStats struct {
	Questions  int `json:"questions"`
	Answered   int `json:"answered"`   // had an answer key entry
	Unanswered int `json:"unanswered"` // fell back to DefaultCorrectIndex
	Padded     int `json:"padded"`     // received at least one SentinelOption
	Overfull   int `json:"overfull"`   // kept more than OptionCount options
}
