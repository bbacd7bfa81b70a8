package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pavelanni/qbank/internal/model"
)

// answerRowRegex matches a table row fragment such as "| 7 | c".
var answerRowRegex = regexp.MustCompile(`\|\s*(\d+)\s*\|\s*([a-dA-D])\b`)

const optionLetters = "abcd"

// ParseAnswerKey builds the answer lookup from an answer-key document. Every
// row fragment contributes one entry and a repeated question number keeps the
// last row seen. Text that does not look like a row is ignored, so the result
// may be empty but is never nil.
func ParseAnswerKey(text string) model.AnswerMap {
	answers := make(model.AnswerMap)
	for _, m := range answerRowRegex.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		answers[n] = letterIndex(m[2])
	}
	return answers
}

// letterIndex maps a-d (any case) to 0-3.
func letterIndex(letter string) int {
	return strings.Index(optionLetters, strings.ToLower(letter))
}
