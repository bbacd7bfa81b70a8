package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/qbank/internal/emit"
	appI18n "github.com/pavelanni/qbank/internal/i18n"
	"github.com/pavelanni/qbank/internal/llm"
	"github.com/pavelanni/qbank/internal/model"
	"github.com/pavelanni/qbank/internal/store"
)

// StudyPlanner writes revision notes. *llm.Client implements it.
type StudyPlanner interface {
	StudyPlan(ctx context.Context, subject string, weakTopics []string) (string, error)
}

const studyPlanTimeout = 60 * time.Second

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	planner StudyPlanner
	config  model.ServerConfig
}

// New creates a new Handler. planner may be nil, in which case study plans
// use the fixed fallback text.
func New(s *store.Store, planner StudyPlanner, cfg model.ServerConfig) (*Handler, error) {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.AdminUser == "" {
		cfg.AdminUser = "admin"
	}
	return &Handler{store: s, planner: planner, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Post("/api/explain", h.handleExplain)

	r.Route("/api/subjects", func(r chi.Router) {
		r.Get("/", h.handleListSubjects)
		r.Route("/{subject}", func(r chi.Router) {
			r.Get("/questions", h.handleListQuestions)
			r.Get("/questions/{id}", h.handleGetQuestion)
			r.Get("/bank.{format}", h.handleBank)
			r.Get("/batches", h.handleListBatches)
			r.Post("/study-plan", h.handleStudyPlan)
			r.Get("/test", h.handleNewTest)
			r.Post("/test/grade", h.handleGradeTest)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAdmin)
				r.Post("/import", h.handleImport)
			})
		})
	})

	r.Route("/practice/{subject}", func(r chi.Router) {
		r.Get("/", h.handlePracticePage)
		r.Post("/", h.handlePracticeSubmit)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.store.ListSubjects()
	if err != nil {
		h.internalError(w, r, "failed to list subjects", err)
		return
	}
	if subjects == nil {
		subjects = []model.SubjectSummary{}
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	filter := model.QuestionFilter{
		Subject:   chi.URLParam(r, "subject"),
		TopicSlug: r.URL.Query().Get("topic"),
	}
	if u := r.URL.Query().Get("unit"); u != "" {
		unit, err := strconv.Atoi(u)
		if err != nil || unit < 1 {
			writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrBadRequest"))
			return
		}
		filter.Unit = unit
	}

	questions, err := h.store.ListQuestions(filter)
	if err != nil {
		h.internalError(w, r, "failed to list questions", err)
		return
	}
	if questions == nil {
		questions = []model.MCQQuestion{}
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	id := chi.URLParam(r, "id")

	q, err := h.store.GetQuestion(subject, id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, appI18n.Td(r.Context(), "ErrQuestionNotFound", map[string]any{"ID": id}))
		return
	}
	if err != nil {
		h.internalError(w, r, "failed to get question", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) handleBank(w http.ResponseWriter, r *http.Request) {
	subject := chi.URLParam(r, "subject")
	name := chi.URLParam(r, "format")

	format, err := emit.ParseFormat(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, appI18n.Td(r.Context(), "ErrUnknownFormat", map[string]any{"Format": name}))
		return
	}

	bank, err := h.store.Bank(subject)
	if err != nil {
		h.internalError(w, r, "failed to load bank", err)
		return
	}
	if len(bank.MCQ) == 0 {
		writeError(w, http.StatusNotFound, appI18n.Td(r.Context(), "ErrSubjectNotFound", map[string]any{"Subject": subject}))
		return
	}

	emitter, err := emit.New(format, emit.Options{})
	if err != nil {
		h.internalError(w, r, "failed to create emitter", err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": strings.ToLower(subject) + "." + string(format),
	}))
	if err := emitter.Emit(w, bank); err != nil {
		slog.Error("emit error", "subject", subject, "format", format, "error", err)
	}
}

func (h *Handler) handleListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.store.ListBatches(chi.URLParam(r, "subject"))
	if err != nil {
		h.internalError(w, r, "failed to list batches", err)
		return
	}
	if batches == nil {
		batches = []model.ImportBatch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

type studyPlanRequest struct {
	Subject    string   `json:"subject"`
	WeakTopics []string `json:"weakTopics"`
}

type studyPlanResponse struct {
	Explanation string `json:"explanation"`
}

func (h *Handler) handleStudyPlan(w http.ResponseWriter, r *http.Request) {
	var req studyPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrBadRequest"))
		return
	}
	req.Subject = chi.URLParam(r, "subject")
	h.studyPlan(w, r, req)
}

// handleExplain serves the quiz front end's endpoint, which carries the
// subject in the body.
func (h *Handler) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req studyPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Subject == "" {
		writeError(w, http.StatusBadRequest, appI18n.T(r.Context(), "ErrBadRequest"))
		return
	}
	h.studyPlan(w, r, req)
}

func (h *Handler) studyPlan(w http.ResponseWriter, r *http.Request, req studyPlanRequest) {
	if req.WeakTopics == nil {
		req.WeakTopics = []string{}
	}
	writeJSON(w, http.StatusOK, studyPlanResponse{Explanation: h.planFor(r.Context(), req.Subject, req.WeakTopics)})
}

// planFor asks the planner for a revision note and falls back to the fixed
// text when there is no planner or it fails.
func (h *Handler) planFor(ctx context.Context, subject string, weakTopics []string) string {
	if h.planner == nil {
		return llm.FallbackStudyPlan(subject, weakTopics)
	}
	ctx, cancel := context.WithTimeout(ctx, studyPlanTimeout)
	defer cancel()
	text, err := h.planner.StudyPlan(ctx, subject, weakTopics)
	if err != nil {
		slog.Warn("study plan generation failed, using fallback", "subject", subject, "error", err)
		return llm.FallbackStudyPlan(subject, weakTopics)
	}
	return text
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.Error(msg, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, appI18n.T(r.Context(), "ErrInternal"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
