package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hiresim/interview-evaluator/internal/config"
	"github.com/hiresim/interview-evaluator/internal/domain"
	"github.com/hiresim/interview-evaluator/internal/questions"
	"github.com/hiresim/interview-evaluator/internal/usecase"
	"github.com/hiresim/interview-evaluator/pkg/textx"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg         config.Config
	Interviews  usecase.InterviewService
	Evaluate    usecase.EvaluationService
	Transcriber domain.Transcriber
	Bank        *questions.Bank
	DBCheck     func(ctx context.Context) error
	RedisCheck  func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, interviews usecase.InterviewService, eval usecase.EvaluationService, tr domain.Transcriber, bank *questions.Bank, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Interviews: interviews, Evaluate: eval, Transcriber: tr, Bank: bank, DBCheck: dbCheck, RedisCheck: redisCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// notAcceptable rejects requests that refuse JSON responses.
func notAcceptable(w http.ResponseWriter, r *http.Request) bool {
	a := r.Header.Get("Accept")
	if a == "" || a == "*/*" || strings.Contains(a, "application/json") {
		return false
	}
	writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a}}})
	return true
}

func validationDetails(err error) map[string]string {
	verrs := map[string]string{}
	if ve, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range ve {
			verrs[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	return verrs
}

// StartInterviewHandler creates a conversation opened by an interviewer
// question, drawn from the bank unless the client supplies one.
func (s *Server) StartInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		user, ok := UserFrom(r.Context())
		if !ok {
			writeError(w, r, fmt.Errorf("%w: no session", domain.ErrUnauthenticated), nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
		var req struct {
			Role     string `json:"role" validate:"required,max=100"`
			Question string `json:"question" validate:"omitempty,max=2000"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
			return
		}
		started, err := s.Interviews.Start(r.Context(), user, textx.SanitizeText(req.Role), textx.SanitizeText(req.Question))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, started)
	}
}

// AnswerHandler runs the evaluation pipeline for one submitted answer and
// returns the structured feedback text.
func (s *Server) AnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		user, ok := UserFrom(r.Context())
		if !ok {
			writeError(w, r, fmt.Errorf("%w: no session", domain.ErrUnauthenticated), nil)
			return
		}
		id := chi.URLParam(r, "id")
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req struct {
			Answer string `json:"answer" validate:"required,max=20000"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
			return
		}
		// The conversation's opening message carries the question and role;
		// loading it also enforces ownership.
		history, err := s.Interviews.History(r.Context(), user, id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		question, role := history[0].Text, history[0].Category
		feedbackText, err := s.Evaluate.SubmitAnswer(r.Context(), user, id, role, question, req.Answer)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"conversation_id": id, "feedback": feedbackText})
	}
}

// ListInterviewsHandler returns the caller's conversations, newest first.
func (s *Server) ListInterviewsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		if !ok {
			writeError(w, r, fmt.Errorf("%w: no session", domain.ErrUnauthenticated), nil)
			return
		}
		list, err := s.Interviews.List(r.Context(), user)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]map[string]any, 0, len(list))
		for _, c := range list {
			out = append(out, map[string]any{"id": c.ID, "title": c.Title, "created_at": c.CreatedAt})
		}
		writeJSON(w, http.StatusOK, map[string]any{"conversations": out})
	}
}

// MessagesHandler returns the ordered history of one conversation.
func (s *Server) MessagesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		if !ok {
			writeError(w, r, fmt.Errorf("%w: no session", domain.ErrUnauthenticated), nil)
			return
		}
		id := chi.URLParam(r, "id")
		msgs, err := s.Interviews.History(r.Context(), user, id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		out := make([]map[string]any, 0, len(msgs))
		for _, m := range msgs {
			out = append(out, map[string]any{
				"id":         m.ID,
				"text":       m.Text,
				"sender":     m.Sender,
				"category":   m.Category,
				"created_at": m.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"conversation_id": id, "messages": out})
	}
}

// FeedbackHandler returns the parsed feedback report for a conversation.
func (s *Server) FeedbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		if !ok {
			writeError(w, r, fmt.Errorf("%w: no session", domain.ErrUnauthenticated), nil)
			return
		}
		id := chi.URLParam(r, "id")
		rep, err := s.Interviews.FeedbackReport(r.Context(), user, id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// DeleteInterviewHandler removes a conversation and its feedback.
func (s *Server) DeleteInterviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		if !ok {
			writeError(w, r, fmt.Errorf("%w: no session", domain.ErrUnauthenticated), nil)
			return
		}
		id := chi.URLParam(r, "id")
		if err := s.Interviews.Delete(r.Context(), user, id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"conversation_id": id, "status": "deleted"})
	}
}

// TranscribeHandler accepts a multipart audio recording and returns its
// transcript.
func (s *Server) TranscribeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if notAcceptable(w, r) {
			return
		}
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxAudioMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "payload too large", Details: map[string]any{"max_mb": s.Cfg.MaxAudioMB}}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		file, _, err := r.FormFile("audio")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: audio file required", domain.ErrInvalidArgument), map[string]string{"field": "audio"})
			return
		}
		defer func() { _ = file.Close() }()
		audio, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: audio read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		mt := mimetype.Detect(audio)
		if !allowedAudioMIME(mt.String()) {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "unsupported media type for audio", Details: map[string]any{"mime": mt.String()}}})
			return
		}
		transcript, err := s.Transcriber.Transcribe(r.Context(), audio, mt.String())
		if err != nil {
			writeError(w, r, fmt.Errorf("transcribe: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"transcript": textx.SanitizeText(transcript)})
	}
}

// allowedAudioMIME accepts common browser recording formats. MediaRecorder
// output is often sniffed as video/webm even for audio-only tracks.
func allowedAudioMIME(m string) bool {
	m = strings.ToLower(m)
	return strings.HasPrefix(m, "audio/") || m == "video/webm" || m == "application/ogg"
}

// QuestionsHandler returns the embedded question bank.
func (s *Server) QuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"questions": s.Bank.All()})
	}
}

// HealthzHandler reports liveness.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes the database and Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		if s.DBCheck != nil {
			if err := s.DBCheck(ctx); err != nil {
				checks = append(checks, check{Name: "db", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "db", OK: true})
			}
		}
		if s.RedisCheck != nil {
			if err := s.RedisCheck(ctx); err != nil {
				checks = append(checks, check{Name: "redis", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "redis", OK: true})
			}
		}
		ok := true
		for _, c := range checks {
			if !c.OK {
				ok = false
				break
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
