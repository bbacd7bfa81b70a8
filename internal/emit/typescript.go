package emit

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/template"

	"github.com/pavelanni/qbank/internal/model"
)

//go:embed templates/bank.ts.tmpl
var templateFS embed.FS

var (
	tsOnce sync.Once
	tsTmpl *template.Template
	tsErr  error
)

func loadTSTemplate() (*template.Template, error) {
	tsOnce.Do(func() {
		tsTmpl, tsErr = template.New("bank.ts.tmpl").
			Funcs(template.FuncMap{"lit": jsLiteral, "litList": jsList}).
			ParseFS(templateFS, "templates/bank.ts.tmpl")
	})
	return tsTmpl, tsErr
}

// TypeScript writes a bank as a TypeScript module exporting one
// SubjectQuestionBank constant.
type TypeScript struct {
	opts Options
}

type tsData struct {
	TypesImport string
	ExportName  string
	Bank        model.QuestionBank
}

// Emit implements Emitter.
func (e *TypeScript) Emit(w io.Writer, bank model.QuestionBank) error {
	tmpl, err := loadTSTemplate()
	if err != nil {
		return fmt.Errorf("load template: %w", err)
	}

	data := tsData{
		TypesImport: e.opts.TypesImport,
		ExportName:  e.opts.ExportName,
		Bank:        bank,
	}
	if data.TypesImport == "" {
		data.TypesImport = "@/lib/types"
	}
	if data.ExportName == "" {
		data.ExportName = ExportName(bank.Subject)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("render typescript: %w", err)
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// jsLiteral renders s as a double-quoted string literal valid in TypeScript.
func jsLiteral(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func jsList(items []string) (string, error) {
	parts := make([]string, len(items))
	for i, it := range items {
		lit, err := jsLiteral(it)
		if err != nil {
			return "", err
		}
		parts[i] = lit
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}
