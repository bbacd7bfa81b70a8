// Package source reads question and answer-key documents into plain text.
package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ReadFile returns the text of the document at path. HTML documents are
// flattened into one line per block element first.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if IsHTML(path) {
		text, err := HTMLText(data)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", path, err)
		}
		return text, nil
	}
	return string(data), nil
}

// IsHTML reports whether path names an HTML document.
func IsHTML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	}
	return false
}

// Lines splits text into lines. A trailing newline does not produce an extra
// empty line; carriage returns are left for the scanner's trimming.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, pre, tr"

// HTMLText converts an HTML export of a quiz document into the line-oriented
// text the extractor reads. Bold runs are rendered as **text** and table rows
// as "| cell | cell |".
func HTMLText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	var lines []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "tr":
			var cells []string
			s.Find("th, td").Each(func(_ int, c *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(c.Text()))
			})
			if len(cells) > 0 {
				lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
			}
		case "pre":
			lines = append(lines, strings.Split(s.Text(), "\n")...)
		case "li":
			// Paragraphs inside the item are emitted on their own.
			if s.Find("p").Length() > 0 {
				return
			}
			lines = append(lines, inlineText(s))
		default:
			// Rows and preformatted blocks already carry their text.
			if s.ParentsFiltered("tr, pre").Length() > 0 {
				return
			}
			lines = append(lines, inlineText(s))
		}
	})
	return strings.Join(lines, "\n"), nil
}

// inlineText renders the text of s with bold runs wrapped in double asterisks.
func inlineText(s *goquery.Selection) string {
	var sb strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			sb.WriteString(c.Text())
		case "strong", "b":
			sb.WriteString("**" + strings.TrimSpace(c.Text()) + "**")
		case "br":
			sb.WriteString(" ")
		default:
			sb.WriteString(inlineText(c))
		}
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}
