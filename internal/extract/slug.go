package extract

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Slugify lowercases a topic label and replaces each space with a hyphen.
// Other characters are kept as they are.
func Slugify(topic string) string {
	// A Caser carries state, so each call gets its own.
	return strings.ReplaceAll(cases.Lower(language.Und).String(topic), " ", "-")
}
