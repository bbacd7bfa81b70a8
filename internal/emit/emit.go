// Package emit serializes question banks into the formats the quiz
// application and its authors consume.
package emit

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/pavelanni/qbank/internal/model"
)

var (
	// ErrUnknownFormat is returned by New for an unsupported format name.
	ErrUnknownFormat = errors.New("unknown output format")
	// ErrInvalidExportName is returned by New when Options.ExportName is not
	// a usable TypeScript identifier.
	ErrInvalidExportName = errors.New("invalid export name")
)

// Format names an artifact format.
type Format string

const (
	// FormatTS is a TypeScript data module (the application's native format).
	FormatTS Format = "ts"
	// FormatJSON is an indented JSON document.
	FormatJSON Format = "json"
	// FormatPDF is a printable quiz sheet with an answer key page.
	FormatPDF Format = "pdf"
)

// Formats lists the supported formats.
var Formats = []Format{FormatTS, FormatJSON, FormatPDF}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/typescript; charset=utf-8"
	}
}

// Emitter writes a bank to w.
type Emitter interface {
	Emit(w io.Writer, bank model.QuestionBank) error
}

// Options tune emitter output. Zero values select defaults.
type Options struct {
	ExportName  string           // TS constant name; default "<SUBJECT>_QUESTIONS"
	TypesImport string           // TS module providing SubjectQuestionBank; default "@/lib/types"
	Title       string           // PDF title; default "<SUBJECT> Question Bank"
	Now         func() time.Time // clock for generated timestamps
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

// New returns the emitter for format.
func New(format Format, opts Options) (Emitter, error) {
	switch format {
	case FormatTS:
		if opts.ExportName != "" && !IsIdentifier(opts.ExportName) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidExportName, opts.ExportName)
		}
		return &TypeScript{opts: opts}, nil
	case FormatJSON:
		return &JSON{opts: opts}, nil
	case FormatPDF:
		return &PDF{opts: opts}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ExportName derives the TypeScript constant name for a subject, e.g. CN_QUESTIONS.
func ExportName(subject string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(subject) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	name := sb.String()
	if name == "" {
		return "QUESTIONS"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name + "_QUESTIONS"
}

// reservedWords cannot be used as a binding name in a TypeScript module.
var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "enum": true, "export": true, "extends": true, "false": true,
	"finally": true, "for": true, "function": true, "if": true, "import": true,
	"in": true, "instanceof": true, "new": true, "null": true, "return": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "await": true, "yield": true, "let": true, "static": true,
	"implements": true, "interface": true, "package": true, "private": true,
	"protected": true, "public": true, "arguments": true, "eval": true,
}

// IsIdentifier reports whether name can be declared with export const.
func IsIdentifier(name string) bool {
	if name == "" || reservedWords[name] {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || unicode.In(r, unicode.Mn, unicode.Mc, unicode.Pc)):
		default:
			return false
		}
	}
	return true
}
