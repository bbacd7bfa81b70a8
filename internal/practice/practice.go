// Package practice assembles practice tests from a question bank and grades
// submitted answers.
package practice

import (
	"math/rand/v2"
	"slices"

	"github.com/pavelanni/qbank/internal/model"
)

const (
	// DefaultTestSize is the number of questions in a practice test.
	DefaultTestSize = 24
	// DefaultFollowupSize is the number of questions in a follow-up set.
	DefaultFollowupSize = 10
)

// Picker draws questions at random. A Picker is not safe for concurrent use.
type Picker struct {
	rng *rand.Rand
}

// NewPicker returns a picker seeded from the runtime's random source.
func NewPicker() *Picker {
	return &Picker{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededPicker returns a picker that repeats its draws for the same seed.
func NewSeededPicker(seed uint64) *Picker {
	return &Picker{rng: rand.New(rand.NewPCG(seed, seed))}
}

func shuffled[T any](p *Picker, s []T) []T {
	out := slices.Clone(s)
	p.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// TopicKey is the grouping key of q: its slug, or its topic when the slug is
// empty.
func TopicKey(q model.MCQQuestion) string {
	if q.TopicSlug != "" {
		return q.TopicSlug
	}
	return q.Topic
}

// BalancedTest picks up to n questions from pool. The count is split evenly
// across the units present in the pool, and within a unit questions are taken
// round-robin across topics. Any shortfall is filled from the rest of the pool.
// The result is shuffled and never repeats an id.
func (p *Picker) BalancedTest(pool []model.MCQQuestion, n int) []model.MCQQuestion {
	if n <= 0 || len(pool) == 0 {
		return []model.MCQQuestion{}
	}

	byUnit := map[int][]model.MCQQuestion{}
	var units []int
	for _, q := range pool {
		if _, ok := byUnit[q.Unit]; !ok {
			units = append(units, q.Unit)
		}
		byUnit[q.Unit] = append(byUnit[q.Unit], q)
	}
	slices.Sort(units)

	perUnit := n / len(units)
	picked := map[string]bool{}
	var selected []model.MCQQuestion
	for _, u := range units {
		for _, q := range p.roundRobin(byUnit[u], perUnit, picked) {
			picked[q.ID] = true
			selected = append(selected, q)
		}
	}

	for _, q := range shuffled(p, pool) {
		if len(selected) >= n {
			break
		}
		if !picked[q.ID] {
			picked[q.ID] = true
			selected = append(selected, q)
		}
	}
	return shuffled(p, selected)
}

// roundRobin takes one question per topic per round, visiting topics in a
// fresh random order each round, until count questions are taken or every
// topic is exhausted.
func (p *Picker) roundRobin(pool []model.MCQQuestion, count int, skip map[string]bool) []model.MCQQuestion {
	byTopic := map[string][]model.MCQQuestion{}
	var topics []string
	for _, q := range pool {
		key := TopicKey(q)
		if _, ok := byTopic[key]; !ok {
			topics = append(topics, key)
		}
		byTopic[key] = append(byTopic[key], q)
	}
	for _, t := range topics {
		byTopic[t] = shuffled(p, byTopic[t])
	}

	var selected []model.MCQQuestion
	seen := map[string]bool{}
	for round := 0; len(selected) < count; round++ {
		added := false
		for _, t := range shuffled(p, topics) {
			if len(selected) >= count {
				break
			}
			if round >= len(byTopic[t]) {
				continue
			}
			q := byTopic[t][round]
			added = true
			if skip[q.ID] || seen[q.ID] {
				continue
			}
			seen[q.ID] = true
			selected = append(selected, q)
		}
		if !added {
			break
		}
	}
	return selected
}

// Followup picks up to n questions from pool that are not in exclude,
// preferring those whose topic key is in weakTopics. The result is shuffled.
func (p *Picker) Followup(pool []model.MCQQuestion, weakTopics, exclude []string, n int) []model.MCQQuestion {
	if n <= 0 {
		return []model.MCQQuestion{}
	}
	excluded := map[string]bool{}
	for _, id := range exclude {
		excluded[id] = true
	}
	weak := map[string]bool{}
	for _, t := range weakTopics {
		weak[t] = true
	}

	var priority, rest []model.MCQQuestion
	for _, q := range pool {
		switch {
		case excluded[q.ID]:
		case weak[TopicKey(q)]:
			priority = append(priority, q)
		default:
			rest = append(rest, q)
		}
	}

	selected := append(shuffled(p, priority), shuffled(p, rest)...)
	if len(selected) > n {
		selected = selected[:n]
	}
	return shuffled(p, selected)
}

// Report is the outcome of grading one submission.
type Report struct {
	Total   int                 `json:"total"`
	Correct int                 `json:"correct"`
	Wrong   []model.MCQQuestion `json:"wrong"`
}

// Grade scores answers, keyed by question id, against questions. A question
// with no answer counts as wrong.
func Grade(questions []model.MCQQuestion, answers map[string]int) Report {
	r := Report{Total: len(questions), Wrong: []model.MCQQuestion{}}
	for _, q := range questions {
		if idx, ok := answers[q.ID]; ok && idx == q.CorrectOptionIndex {
			r.Correct++
			continue
		}
		r.Wrong = append(r.Wrong, q)
	}
	return r
}

// WeakTopics returns the distinct topic keys of the wrong answers, in the
// order they first appear.
func (r Report) WeakTopics() []string {
	topics := []string{}
	for _, q := range r.Wrong {
		if key := TopicKey(q); !slices.Contains(topics, key) {
			topics = append(topics, key)
		}
	}
	return topics
}
