package extract

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pavelanni/qbank/internal/model"
)

func scan(t *testing.T, doc string, answers model.AnswerMap) []model.MCQQuestion {
	t.Helper()
	return NewScanner(DefaultRules(), answers).Scan(strings.Split(doc, "\n"))
}

func TestScanQuestionWithAnswer(t *testing.T) {
	answers := ParseAnswerKey("| 7 | c |")
	got := scan(t, "**Q7.** What is TCP?\na) X\nb) Y\nc) Z\nd) W", answers)

	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	q := got[0]
	if q.ID != "cn_mcq_7" {
		t.Errorf("ID = %q, want cn_mcq_7", q.ID)
	}
	if q.Prompt != "What is TCP?" {
		t.Errorf("Prompt = %q", q.Prompt)
	}
	if want := []string{"X", "Y", "Z", "W"}; !reflect.DeepEqual(q.Options, want) {
		t.Errorf("Options = %v, want %v", q.Options, want)
	}
	if q.CorrectOptionIndex != 2 {
		t.Errorf("CorrectOptionIndex = %d, want 2", q.CorrectOptionIndex)
	}
	if q.Subject != "CN" || q.Kind != model.KindMCQ {
		t.Errorf("unexpected subject/kind: %q/%q", q.Subject, q.Kind)
	}
	if q.Unit != 1 || q.Topic != "Introduction" || q.TopicSlug != "introduction" {
		t.Errorf("unexpected initial context: %d/%q/%q", q.Unit, q.Topic, q.TopicSlug)
	}
}

func TestScanStopsAtBoundary(t *testing.T) {
	doc := `**Q1.** First?
a) one
PART B
**Q2.** Second?
a) two
Chapter 3
**Q3.** Third?`
	got := scan(t, doc, nil)

	if len(got) != 1 {
		t.Fatalf("expected 1 record before the boundary, got %d", len(got))
	}
	if got[0].ID != "cn_mcq_1" {
		t.Errorf("unexpected record %q", got[0].ID)
	}
	if got[0].Options[0] != "one" || got[0].Options[1] != model.SentinelOption {
		t.Errorf("options after the boundary must not attach: %v", got[0].Options)
	}
}

func TestScanPadsOptions(t *testing.T) {
	got := scan(t, "**Q1.** Pick one\na) opt1\nb) opt2", nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	want := []string{"opt1", "opt2", "N/A", "N/A"}
	if !reflect.DeepEqual(got[0].Options, want) {
		t.Errorf("Options = %v, want %v", got[0].Options, want)
	}
}

func TestScanKeepsExtraOptions(t *testing.T) {
	got := scan(t, "**Q1.** Pick\na) 1\nb) 2\nc) 3\nd) 4\na) 5", nil)
	if n := len(got[0].Options); n != 5 {
		t.Errorf("expected all 5 option lines kept, got %d", n)
	}
}

func TestScanIgnoresUppercaseOptionLetters(t *testing.T) {
	got := scan(t, "**Q1.** Pick\na) one\nb) two\nc) three\nd) four\nA) Note: see chapter 2\nE) five", nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if want := []string{"one", "two", "three", "four"}; !reflect.DeepEqual(got[0].Options, want) {
		t.Errorf("Options = %v, want %v", got[0].Options, want)
	}
}

func TestScanHugeQuestionNumber(t *testing.T) {
	answers := ParseAnswerKey("| 1 | b |")
	got := scan(t, "**Q1.** First\na) x\n**Q99999999999999999999.** Second\na) y\nb) z", answers)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if want := []string{"x", model.SentinelOption, model.SentinelOption, model.SentinelOption}; !reflect.DeepEqual(got[0].Options, want) {
		t.Errorf("options after the second opening line leaked into Q1: %v", got[0].Options)
	}
	q := got[1]
	if q.ID != "cn_mcq_99999999999999999999" || q.Prompt != "Second" {
		t.Errorf("unexpected record: %+v", q)
	}
	if q.Options[1] != "z" || q.CorrectOptionIndex != model.DefaultCorrectIndex {
		t.Errorf("unexpected options/index: %v/%d", q.Options, q.CorrectOptionIndex)
	}
}

func TestScanDefaultsMissingAnswer(t *testing.T) {
	answers := ParseAnswerKey("| 1 | d |")
	got := scan(t, "**Q1.** a?\n**Q2.** b?", answers)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].CorrectOptionIndex != 3 {
		t.Errorf("Q1 index = %d, want 3", got[0].CorrectOptionIndex)
	}
	if got[1].CorrectOptionIndex != model.DefaultCorrectIndex {
		t.Errorf("Q2 index = %d, want default", got[1].CorrectOptionIndex)
	}
}

func TestScanHeaderTriggers(t *testing.T) {
	doc := `# Chapter 2: Application Layer
**Q1.** DNS?
## Chapter 3 - Transport
**Q2.** TCP?
Chapter 1 again
**Q3.** Intro?`
	got := scan(t, doc, nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}

	tests := []struct {
		unit  int
		topic string
		slug  string
	}{
		{1, "Application Layer", "application-layer"},
		{2, "Transport Layer", "transport-layer"},
		{1, "Introduction", "introduction"},
	}
	for i, tt := range tests {
		q := got[i]
		if q.Unit != tt.unit || q.Topic != tt.topic || q.TopicSlug != tt.slug {
			t.Errorf("record %d: got %d/%q/%q, want %d/%q/%q", i, q.Unit, q.Topic, q.TopicSlug, tt.unit, tt.topic, tt.slug)
		}
	}
}

func TestScanContextAppliesToNextQuestionOnly(t *testing.T) {
	// A trigger between a question and its options does not reclassify it.
	got := scan(t, "**Q1.** a?\nChapter 3\na) x\n**Q2.** b?", nil)
	if got[0].Unit != 1 || got[0].Topic != "Introduction" {
		t.Errorf("Q1 context changed after opening: %d/%q", got[0].Unit, got[0].Topic)
	}
	if got[0].Options[0] != "x" {
		t.Errorf("option after trigger should attach to Q1, got %v", got[0].Options)
	}
	if got[1].Unit != 2 {
		t.Errorf("Q2 unit = %d, want 2", got[1].Unit)
	}
}

func TestScanDocumentOrder(t *testing.T) {
	got := scan(t, "**Q10.** ten\n**Q2.** two\n**Q7.** seven\n**Q2.** two again", nil)
	var ids []string
	for _, q := range got {
		ids = append(ids, q.ID)
	}
	want := []string{"cn_mcq_10", "cn_mcq_2", "cn_mcq_7", "cn_mcq_2"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestScanIgnoresNoise(t *testing.T) {
	doc := `a) orphan option before any question
Some intro text.
   **Q1.**   Indented question   
  b) indented option
e) not an option
Q2. not bold
**Q3** missing dot`
	got := scan(t, doc, nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d: %+v", len(got), got)
	}
	if got[0].Prompt != "Indented question" {
		t.Errorf("Prompt = %q", got[0].Prompt)
	}
	if got[0].Options[0] != "indented option" || got[0].Options[1] != model.SentinelOption {
		t.Errorf("Options = %v", got[0].Options)
	}
}

func TestScanEmpty(t *testing.T) {
	if got := scan(t, "", nil); len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
	if got := NewScanner(DefaultRules(), nil).Scan(nil); len(got) != 0 {
		t.Errorf("expected no records for nil input, got %d", len(got))
	}
}

func TestStepDoesNotModifyInput(t *testing.T) {
	rules := DefaultRules()
	s0 := NewState(rules)
	s1 := Step(rules, nil, s0, "**Q1.** first")
	s2 := Step(rules, nil, s1, "a) x")
	s3 := Step(rules, nil, s2, "b) y")
	// Branch from s2 and make sure s3 is unaffected.
	alt := Step(rules, nil, s2, "b) other")

	if s0.Current != nil || len(s0.Records) != 0 {
		t.Error("initial state changed")
	}
	if len(s1.Current.Options) != 0 {
		t.Errorf("s1 options changed: %v", s1.Current.Options)
	}
	if got := s2.Current.Options; !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("s2 options changed: %v", got)
	}
	if got := s3.Current.Options; !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("s3 options = %v", got)
	}
	if got := alt.Current.Options; !reflect.DeepEqual(got, []string{"x", "other"}) {
		t.Errorf("alt options = %v", got)
	}

	s4 := Step(rules, nil, s3, "**Q2.** second")
	s5 := Step(rules, nil, s4, "**Q3.** third")
	altSealed := Step(rules, nil, s4, "**Q9.** nine")
	if len(s4.Records) != 1 || len(s5.Records) != 2 || len(altSealed.Records) != 2 {
		t.Fatalf("unexpected record counts %d/%d/%d", len(s4.Records), len(s5.Records), len(altSealed.Records))
	}
	if s5.Records[1].ID != "cn_mcq_2" || altSealed.Records[1].ID != "cn_mcq_2" {
		t.Error("sealed records differ between branches")
	}
}

func TestStepModeIsIrreversible(t *testing.T) {
	rules := DefaultRules()
	s := NewState(rules)
	if s.Mode != ModeCollecting {
		t.Fatalf("initial mode = %v", s.Mode)
	}
	s = Step(rules, nil, s, "Section PART B: answer in detail")
	if s.Mode != ModeSkipping {
		t.Fatalf("mode after boundary = %v", s.Mode)
	}
	for _, line := range []string{"**Q1.** x", "a) y", "Chapter 1", "PART A"} {
		s = Step(rules, nil, s, line)
		if s.Mode != ModeSkipping {
			t.Fatalf("mode changed back on %q", line)
		}
	}
	if s.Current != nil || len(s.Records) != 0 {
		t.Error("skipping mode must not collect")
	}
}

func TestStepBoundarySealsOnFinish(t *testing.T) {
	rules := DefaultRules()
	s := NewState(rules)
	s = Step(rules, nil, s, "**Q4.** open")
	s = Step(rules, nil, s, "PART B")
	if s.Current == nil {
		t.Fatal("boundary should leave the open question for Finish")
	}
	got := Finish(s)
	if len(got) != 1 || got[0].ID != "cn_mcq_4" {
		t.Errorf("Finish = %+v", got)
	}
}

func TestScanCustomRules(t *testing.T) {
	rules := Rules{
		Subject:        "OS",
		IDPrefix:       "os_mcq",
		InitialUnit:    3,
		InitialTopic:   "Memory",
		BoundaryMarker: "SECTION 2",
		Triggers: []HeaderTrigger{
			{Marker: "Scheduling", Unit: 4, Topic: "CPU Scheduling"},
		},
	}
	doc := "**Q1.** paging?\n# Scheduling\n**Q2.** RR?\nSECTION 2\n**Q3.** essay"
	got := NewScanner(rules, nil).Scan(strings.Split(doc, "\n"))
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ID != "os_mcq_1" || got[0].Unit != 3 || got[0].Topic != "Memory" {
		t.Errorf("unexpected first record: %+v", got[0])
	}
	if got[1].Unit != 4 || got[1].TopicSlug != "cpu-scheduling" || got[1].Subject != "OS" {
		t.Errorf("unexpected second record: %+v", got[1])
	}
}

func TestModeString(t *testing.T) {
	if ModeCollecting.String() != "collecting" || ModeSkipping.String() != "skipping" {
		t.Error("unexpected mode names")
	}
	if Mode(9).String() != "Mode(9)" {
		t.Errorf("unknown mode = %q", Mode(9).String())
	}
}
