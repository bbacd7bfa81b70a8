package extract

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pavelanni/qbank/internal/model"
)

var (
	// questionRegex matches an opening line such as "**Q7.** What is TCP?".
	questionRegex = regexp.MustCompile(`^\*\*Q(\d+)\.\*\*\s*(.*)$`)
	// optionRegex matches an option line such as "c) Transport layer".
	optionRegex = regexp.MustCompile(`^([a-d])\)\s*(.*)$`)
)

// Mode is the section the scanner is in.
type Mode int

const (
	// ModeCollecting extracts multiple-choice questions.
	ModeCollecting Mode = iota
	// ModeSkipping discards every line. It is entered once the boundary
	// marker is seen and never left.
	ModeSkipping
)

func (m Mode) String() string {
	switch m {
	case ModeCollecting:
		return "collecting"
	case ModeSkipping:
		return "skipping"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// State is the scanner state between two lines. It is a value: Step never
// modifies the state it is given, so any intermediate state can be kept and
// inspected on its own.
type State struct {
	Unit    int
	Topic   string
	Mode    Mode
	Current *model.MCQQuestion // open question, nil when none
	Records []model.MCQQuestion
}

// NewState returns the state before the first line.
func NewState(rules Rules) State {
	return State{
		Unit:  rules.InitialUnit,
		Topic: rules.InitialTopic,
		Mode:  ModeCollecting,
	}
}

// Step applies one line to s and returns the resulting state.
func Step(rules Rules, answers model.AnswerMap, s State, line string) State {
	line = strings.TrimSpace(line)

	if t, ok := rules.matchTrigger(line); ok {
		s.Unit = t.Unit
		s.Topic = t.Topic
	}

	if rules.BoundaryMarker != "" && strings.Contains(line, rules.BoundaryMarker) {
		s.Mode = ModeSkipping
		return s
	}
	if s.Mode == ModeSkipping {
		return s
	}

	if m := questionRegex.FindStringSubmatch(line); m != nil {
		// A number too large for int still opens a question; it just
		// cannot have an answer key entry.
		id, correct := rules.IDPrefix+"_"+m[1], model.DefaultCorrectIndex
		if n, err := strconv.Atoi(m[1]); err == nil {
			id, correct = rules.questionID(n), answers.Lookup(n)
		}
		s = seal(s)
		q := model.MCQQuestion{
			ID:                 id,
			Subject:            rules.Subject,
			Unit:               s.Unit,
			Topic:              s.Topic,
			TopicSlug:          Slugify(s.Topic),
			Prompt:             m[2],
			Kind:               model.KindMCQ,
			Options:            []string{},
			CorrectOptionIndex: correct,
		}
		s.Current = &q
		return s
	}

	if s.Current != nil {
		if m := optionRegex.FindStringSubmatch(line); m != nil {
			q := *s.Current
			q.Options = append(slices.Clip(q.Options), m[2])
			s.Current = &q
		}
	}
	return s
}

// Finish seals the open question, if any, and returns the records in the
// order their questions were opened.
func Finish(s State) []model.MCQQuestion {
	return seal(s).Records
}

func seal(s State) State {
	if s.Current == nil {
		return s
	}
	s.Records = append(slices.Clip(s.Records), Normalize(*s.Current))
	s.Current = nil
	return s
}

// Scanner walks a question document line by line.
type Scanner struct {
	rules   Rules
	answers model.AnswerMap
}

// NewScanner creates a scanner that resolves correct answers from answers.
func NewScanner(rules Rules, answers model.AnswerMap) *Scanner {
	return &Scanner{rules: rules, answers: answers}
}

// Scan returns the normalized records of the multiple-choice section of lines.
func (sc *Scanner) Scan(lines []string) []model.MCQQuestion {
	s := NewState(sc.rules)
	for _, line := range lines {
		s = Step(sc.rules, sc.answers, s, line)
	}
	return Finish(s)
}
