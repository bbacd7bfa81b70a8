package model

import "time"

// Kind discriminates question records in a bank.
type Kind string

const (
	// KindMCQ marks a multiple-choice question.
	KindMCQ Kind = "mcq"
	// KindSubjective marks a free-response question. Nothing produces these yet.
	KindSubjective Kind = "subjective"
)

// Default policies applied when a source document is incomplete.
const (
	// OptionCount is the fixed width of every emitted option list.
	OptionCount = 4
	// SentinelOption pads option lists shorter than OptionCount.
	SentinelOption = "N/A"
	// DefaultCorrectIndex is used when the answer key has no entry for a question.
	DefaultCorrectIndex = 0
)

// AnswerMap maps a question number to its zero-based correct option index.
type AnswerMap map[int]int

// Lookup returns the correct option index for question n, or DefaultCorrectIndex
// when the key has no entry for it.
func (m AnswerMap) Lookup(n int) int {
	if idx, ok := m[n]; ok {
		return idx
	}
	return DefaultCorrectIndex
}

// Has reports whether the key holds an entry for question n.
func (m AnswerMap) Has(n int) bool {
	_, ok := m[n]
	return ok
}

// MCQQuestion is one normalized multiple-choice question.
type MCQQuestion struct {
	ID                 string   `json:"id"`
	Subject            string   `json:"subject"`
	Unit               int      `json:"unit"`
	Topic              string   `json:"topic"`
	TopicSlug          string   `json:"topicSlug"`
	Prompt             string   `json:"prompt"`
	Kind               Kind     `json:"kind"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
	Explanation        string   `json:"explanation,omitempty"`
}

// SubjectiveQuestion is a free-response question. The extractor skips the
// free-response section, so banks carry an empty list of these.
type SubjectiveQuestion struct {
	ID          string   `json:"id"`
	Subject     string   `json:"subject"`
	Unit        int      `json:"unit"`
	Topic       string   `json:"topic"`
	TopicSlug   string   `json:"topicSlug,omitempty"`
	Prompt      string   `json:"prompt"`
	Kind        Kind     `json:"kind"`
	IdealAnswer string   `json:"idealAnswer"`
	Keywords    []string `json:"keywords"`
}

// QuestionBank is the artifact handed to the quiz application.
type QuestionBank struct {
	Subject    string               `json:"subject"`
	MCQ        []MCQQuestion        `json:"mcq"`
	Subjective []SubjectiveQuestion `json:"subjective"`
}

// NewQuestionBank returns a bank whose collections are never nil, so they
// serialize as empty arrays.
func NewQuestionBank(subject string, mcq []MCQQuestion) QuestionBank {
	if mcq == nil {
		mcq = []MCQQuestion{}
	}
	return QuestionBank{
		Subject:    subject,
		MCQ:        mcq,
		Subjective: []SubjectiveQuestion{},
	}
}

// ImportBatch records one extraction stored in the question database.
type ImportBatch struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	QuestionsPath string    `json:"questions_path"`
	AnswersPath   string    `json:"answers_path"`
	Hash          string    `json:"hash"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// SubjectSummary is a subject with the number of stored questions.
type SubjectSummary struct {
	Subject       string `json:"subject"`
	QuestionCount int    `json:"question_count"`
}

// QuestionFilter narrows a question listing. Zero values mean no filtering.
type QuestionFilter struct {
	Subject   string
	Unit      int
	TopicSlug string
}

// ServerConfig holds runtime parameters for the HTTP API set via CLI flags.
type ServerConfig struct {
	AdminUser         string
	AdminPasswordHash string // bcrypt; empty disables import endpoints
	RulesPath         string // default extraction rules for uploads without a rules part
	MaxUploadBytes    int64
}
