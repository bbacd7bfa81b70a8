package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	appI18n "github.com/pavelanni/qbank/internal/i18n"
	"github.com/pavelanni/qbank/internal/model"
	"github.com/pavelanni/qbank/internal/practice"
	"github.com/pavelanni/qbank/internal/views"
)

const maxTestSize = 200

// testQuestion is a question as handed to a test taker, without its answer.
type testQuestion struct {
	ID        string   `json:"id"`
	Unit      int      `json:"unit"`
	Topic     string   `json:"topic"`
	TopicSlug string   `json:"topicSlug"`
	Prompt    string   `json:"prompt"`
	Options   []string `json:"options"`
}

func toTestQuestions(qs []model.MCQQuestion) []testQuestion {
	out := make([]testQuestion, 0, len(qs))
	for _, q := range qs {
		out = append(out, testQuestion{
			ID:        q.ID,
			Unit:      q.Unit,
			Topic:     q.Topic,
			TopicSlug: q.TopicSlug,
			Prompt:    q.Prompt,
			Options:   q.Options,
		})
	}
	return out
}

type testResponse struct {
	Subject   string         `json:"subject"`
	Questions []testQuestion `json:"questions"`
}

type gradeRequest struct {
	QuestionIDs []string       `json:"questionIds"`
	Answers     map[string]int `json:"answers"`
	Followup    int            `json:"followup"`
}

type gradeResponse struct {
	Total      int                 `json:"total"`
	Correct    int                 `json:"correct"`
	Wrong      []model.MCQQuestion `json:"wrong"`
	WeakTopics []string            `json:"weakTopics"`
	StudyPlan  string              `json:"studyPlan"`
	Followup   []testQuestion      `json:"followup"`
}

// picker returns a picker for r, seeded from the "seed" query parameter when
// present.
func picker(r *http.Request) (*practice.Picker, bool) {
	s := r.URL.Query().Get("seed")
	if s == "" {
		return practice.NewPicker(), true
	}
	seed, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, false
	}
	return practice.NewSeededPicker(seed), true
}

func testSize(r *http.Request) (int, bool) {
	s := r.URL.Query().Get("n")
	if s == "" {
		return practice.DefaultTestSize, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxTestSize {
		return 0, false
	}
	return n, true
}

func (h *Handler) subjectPool(w http.ResponseWriter, r *http.Request, subject string) ([]model.MCQQuestion, bool) {
	pool, err := h.store.ListQuestions(model.QuestionFilter{Subject: subject})
	if err != nil {
		h.internalError(w, r, "failed to list questions", err)
		return nil, false
	}
	if len(pool) == 0 {
		writeError(w, http.StatusNotFound, appI18n.Td(r.Context(), "ErrSubjectNotFound", map[string]any{"Subject": subject}))
		return nil, false
	}
	return pool, true
}

func (h *Handler) handleNewTest(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	n, ok := testSize(r)
	if !ok {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrBadRequest"))
		return
	}
	p, ok := picker(r)
	if !ok {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrBadRequest"))
		return
	}
	pool, ok := h.subjectPool(w, r, subject)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, testResponse{
		Subject:   subject,
		Questions: toTestQuestions(p.BalancedTest(pool, n)),
	})
}

func (h *Handler) handleGradeTest(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	var req gradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Followup < 0 || req.Followup > maxTestSize {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrBadRequest"))
		return
	}
	if len(req.QuestionIDs) == 0 {
		for id := range req.Answers {
			req.QuestionIDs = append(req.QuestionIDs, id)
		}
		slices.Sort(req.QuestionIDs)
	}
	if len(req.QuestionIDs) == 0 {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrBadRequest"))
		return
	}
	if req.Followup == 0 {
		req.Followup = practice.DefaultFollowupSize
	}

	pool, ok := h.subjectPool(w, r, subject)
	if !ok {
		return
	}
	taken, missing := pick(pool, req.QuestionIDs)
	if missing != "" {
		writeError(w, http.StatusBadRequest, appI18n.Td(r.Context(), "ErrQuestionNotFound", map[string]any{"ID": missing}))
		return
	}

	report := practice.Grade(taken, req.Answers)
	weak := report.WeakTopics()
	followup := practice.NewPicker().Followup(pool, weak, req.QuestionIDs, req.Followup)
	slog.Info("test graded", "subject", subject, "total", report.Total, "correct", report.Correct)

	writeJSON(w, http.StatusOK, gradeResponse{
		Total:      report.Total,
		Correct:    report.Correct,
		Wrong:      report.Wrong,
		WeakTopics: weak,
		StudyPlan:  h.planFor(r.Context(), subject, weak),
		Followup:   toTestQuestions(followup),
	})
}

// pick returns the questions of pool with the given ids, in the order of ids. missing
// names the first id that is not in pool.
func pick(pool []model.MCQQuestion, ids []string) (taken []model.MCQQuestion, missing string) {
	byID := make(map[string]model.MCQQuestion, len(pool))
	for _, q := range pool {
		byID[q.ID] = q
	}
	seen := map[string]bool{}
	for _, id := range ids {
		q, ok := byID[id]
		if !ok {
			return nil, id
		}
		if !seen[id] {
			seen[id] = true
			taken = append(taken, q)
		}
	}
	return taken, ""
}

func (h *Handler) handlePracticePage(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	pool, err := h.store.ListQuestions(model.QuestionFilter{Subject: subject})
	if err != nil {
		slog.Error("failed to list questions", "subject", subject, "error", err)
		http.Error(w, appI18n.T(r.Context(), "ErrInternal"), http.StatusInternalServerError)
		return
	}
	n, ok := testSize(r)
	if !ok {
		n = practice.DefaultTestSize
	}

	status := http.StatusOK
	if len(pool) == 0 {
		status = http.StatusNotFound
	}
	h.render(w, r, status, views.PracticeTest(r.Context(), views.TestPage{
		Subject:   subject,
		Questions: practice.NewPicker().BalancedTest(pool, n),
	}))
}

func (h *Handler) handlePracticeSubmit(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	if err := r.ParseForm(); err != nil {
		http.Error(w, appI18n.T(r.Context(), "ErrBadRequest"), http.StatusBadRequest)
		return
	}
	ids := r.PostForm["q"]
	answers := map[string]int{}
	for _, id := range ids {
		if idx, err := strconv.Atoi(r.PostForm.Get("a." + id)); err == nil {
			answers[id] = idx
		}
	}

	pool, err := h.store.ListQuestions(model.QuestionFilter{Subject: subject})
	if err != nil {
		slog.Error("failed to list questions", "subject", subject, "error", err)
		http.Error(w, appI18n.T(r.Context(), "ErrInternal"), http.StatusInternalServerError)
		return
	}
	taken, missing := pick(pool, ids)
	if missing != "" || len(taken) == 0 {
		http.Error(w, appI18n.T(r.Context(), "ErrBadRequest"), http.StatusBadRequest)
		return
	}

	report := practice.Grade(taken, answers)
	weak := report.WeakTopics()
	page := views.ResultPage{
		Subject:    subject,
		Total:      report.Total,
		Correct:    report.Correct,
		Wrong:      report.Wrong,
		WeakTopics: weak,
	}
	if len(weak) > 0 {
		page.StudyPlan = h.planFor(r.Context(), subject, weak)
	}
	h.render(w, r, http.StatusOK, views.PracticeResult(r.Context(), page))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		slog.Error("render error", "path", r.URL.Path, "error", err)
		http.Error(w, appI18n.T(r.Context(), "ErrInternal"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("write response", "error", err)
	}
}
