package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/qbank/internal/extract"
	appI18n "github.com/pavelanni/qbank/internal/i18n"
	"github.com/pavelanni/qbank/internal/ingest"
)

var errMissingFile = errors.New("missing form file")

// handleImport replaces a subject's questions from a multipart upload with
// "questions" and "answers" files and an optional "rules" YAML file.
// ?force=true re-imports unchanged inputs.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, appI18n.T(r.Context(), "ErrUploadTooLarge"))
			return
		}
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrBadRequest"))
		return
	}

	questions, err := formDocument(r, "questions")
	if err != nil {
		h.formError(w, r, "questions", err)
		return
	}
	answers, err := formDocument(r, "answers")
	if err != nil {
		h.formError(w, r, "answers", err)
		return
	}

	rules, err := h.uploadRules(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, appI18n.Td(r.Context(), "ErrInvalidRules", map[string]any{"Error": err.Error()}))
		return
	}
	if rules.Subject != subject {
		rules = rules.WithSubject(subject)
	}

	out, err := ingest.Import(h.store, ingest.Request{
		Questions: questions,
		Answers:   answers,
		Rules:     rules,
		Force:     r.URL.Query().Get("force") == "true",
	})
	if errors.Is(err, ingest.ErrNoQuestions) {
		writeError(w, http.StatusUnprocessableEntity, appI18n.T(r.Context(), "ErrNoQuestions"))
		return
	}
	if err != nil {
		h.internalError(w, r, "import failed", err)
		return
	}

	status := http.StatusCreated
	if out.Unchanged {
		status = http.StatusOK
	}
	writeJSON(w, status, out)
}

// uploadRules returns the rules from the upload's "rules" part, or the
// server's configured rules file, or the built-in defaults.
func (h *Handler) uploadRules(r *http.Request) (extract.Rules, error) {
	doc, err := formDocument(r, "rules")
	switch {
	case err == nil:
		return extract.ParseRules(doc.Data)
	case !errors.Is(err, errMissingFile):
		return extract.Rules{}, err
	case h.config.RulesPath != "":
		return extract.LoadRules(h.config.RulesPath)
	default:
		return extract.DefaultRules(), nil
	}
}

func (h *Handler) formError(w http.ResponseWriter, r *http.Request, field string, err error) {
	if errors.Is(err, errMissingFile) {
		writeError(w, http.StatusBadRequest, appI18n.Td(r.Context(), "ErrMissingFile", map[string]any{"Field": field}))
		return
	}
	h.internalError(w, r, "failed to read upload", err)
}

func formDocument(r *http.Request, field string) (ingest.Document, error) {
	f, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return ingest.Document{}, fmt.Errorf("%s: %w", field, errMissingFile)
	}
	if err != nil {
		return ingest.Document{}, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return ingest.Document{}, fmt.Errorf("read %s: %w", field, err)
	}
	slog.Debug("received upload", "field", field, "name", header.Filename, "bytes", len(data))
	return ingest.Document{Name: header.Filename, Data: data}, nil
}
