package extract

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidRules is returned when a rules file cannot drive a scan.
var ErrInvalidRules = errors.New("invalid extraction rules")

// HeaderTrigger sets the classification context when Marker appears in a line.
type HeaderTrigger struct {
	Marker string `yaml:"marker"`
	Unit   int    `yaml:"unit"`
	Topic  string `yaml:"topic"`
}

// Rules is the data-driven policy of a scan: which header lines change the
// unit/topic context, which marker ends the multiple-choice section, and how
// record identifiers are formed.
type Rules struct {
	Subject        string          `yaml:"subject"`
	IDPrefix       string          `yaml:"id_prefix"`
	InitialUnit    int             `yaml:"initial_unit"`
	InitialTopic   string          `yaml:"initial_topic"`
	BoundaryMarker string          `yaml:"boundary_marker"`
	Triggers       []HeaderTrigger `yaml:"triggers"`
}

// DefaultRules returns the policy for the computer networks question document.
func DefaultRules() Rules {
	return Rules{
		Subject:        "CN",
		IDPrefix:       "cn_mcq",
		InitialUnit:    1,
		InitialTopic:   "Introduction",
		BoundaryMarker: "PART B",
		Triggers: []HeaderTrigger{
			{Marker: "Chapter 1", Unit: 1, Topic: "Introduction"},
			{Marker: "Chapter 2", Unit: 1, Topic: "Application Layer"},
			{Marker: "Chapter 3", Unit: 2, Topic: "Transport Layer"},
		},
	}
}

// LoadRules reads a YAML rules file. Fields the file leaves out keep their
// DefaultRules values, except that a file naming its own subject gets an id
// prefix derived from that subject unless it sets one.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes YAML rules on top of DefaultRules and validates them.
func ParseRules(data []byte) (Rules, error) {
	var raw struct {
		Subject        *string          `yaml:"subject"`
		IDPrefix       *string          `yaml:"id_prefix"`
		InitialUnit    *int             `yaml:"initial_unit"`
		InitialTopic   *string          `yaml:"initial_topic"`
		BoundaryMarker *string          `yaml:"boundary_marker"`
		Triggers       *[]HeaderTrigger `yaml:"triggers"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Rules{}, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}

	r := DefaultRules()
	if raw.Subject != nil {
		r.Subject = strings.TrimSpace(*raw.Subject)
		r.IDPrefix = defaultIDPrefix(r.Subject)
	}
	if raw.IDPrefix != nil {
		r.IDPrefix = strings.TrimSpace(*raw.IDPrefix)
	}
	if raw.InitialUnit != nil {
		r.InitialUnit = *raw.InitialUnit
	}
	if raw.InitialTopic != nil {
		r.InitialTopic = *raw.InitialTopic
	}
	if raw.BoundaryMarker != nil {
		r.BoundaryMarker = *raw.BoundaryMarker
	}
	if raw.Triggers != nil {
		r.Triggers = *raw.Triggers
	}

	if err := r.Validate(); err != nil {
		return Rules{}, err
	}
	return r, nil
}

// Validate reports whether the rules can drive a scan.
func (r Rules) Validate() error {
	if r.Subject == "" {
		return fmt.Errorf("%w: subject is empty", ErrInvalidRules)
	}
	if r.IDPrefix == "" {
		return fmt.Errorf("%w: id_prefix is empty", ErrInvalidRules)
	}
	if r.BoundaryMarker == "" {
		return fmt.Errorf("%w: boundary_marker is empty", ErrInvalidRules)
	}
	if r.InitialUnit < 1 {
		return fmt.Errorf("%w: initial_unit must be >= 1, got %d", ErrInvalidRules, r.InitialUnit)
	}
	for i, t := range r.Triggers {
		if t.Marker == "" {
			return fmt.Errorf("%w: trigger %d has an empty marker", ErrInvalidRules, i)
		}
		if t.Unit < 1 {
			return fmt.Errorf("%w: trigger %q has unit %d", ErrInvalidRules, t.Marker, t.Unit)
		}
	}
	return nil
}

// WithSubject returns a copy of r for another subject, deriving a fresh id prefix.
func (r Rules) WithSubject(subject string) Rules {
	r.Subject = subject
	r.IDPrefix = defaultIDPrefix(subject)
	r.Triggers = append([]HeaderTrigger(nil), r.Triggers...)
	return r
}

// matchTrigger returns the first trigger whose marker occurs in line.
func (r Rules) matchTrigger(line string) (HeaderTrigger, bool) {
	for _, t := range r.Triggers {
		if t.Marker != "" && strings.Contains(line, t.Marker) {
			return t, true
		}
	}
	return HeaderTrigger{}, false
}

func (r Rules) questionID(n int) string {
	return fmt.Sprintf("%s_%d", r.IDPrefix, n)
}

// questionNumber is the inverse of questionID.
func (r Rules) questionNumber(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, r.IDPrefix+"_")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func defaultIDPrefix(subject string) string {
	return strings.ToLower(subject) + "_mcq"
}
