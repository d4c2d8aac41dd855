package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	scholar "github.com/bbiangul/go-scholar"
)

// maxUploadBytes bounds a multipart request.
const maxUploadBytes = 100 << 20

type handler struct {
	assistant scholar.Assistant
}

func newHandler(a scholar.Assistant) *handler {
	return &handler{assistant: a}
}

// POST /sessions
func (h *handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.assistant.NewSession(r.Context())
	if err != nil {
		h.fail(w, "create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

// GET /sessions/{id}
func (h *handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.assistant.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "get session", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// DELETE /sessions/{id}
func (h *handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.assistant.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, "delete session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// GET /sessions/{id}/documents
func (h *handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.assistant.Documents(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "list documents", err)
		return
	}
	if docs == nil {
		docs = []scholar.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// POST /sessions/{id}/documents
// Multipart upload, one or more parts in the "files" field.
func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Minute)
	defer cancel()

	uploads, err := readUploads(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(uploads) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded: use the multipart field \"files\"")
		return
	}

	results, err := h.assistant.Ingest(ctx, r.PathValue("id"), uploads)
	if err != nil {
		h.fail(w, "ingest", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": results})
}

// POST /sessions/{id}/tasks/{task}
func (h *handler) handleRunTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	task, err := scholar.ParseTask(r.PathValue("task"))
	if err != nil {
		h.fail(w, "run task", err)
		return
	}
	res, err := h.assistant.RunTask(ctx, r.PathValue("id"), task)
	if err != nil {
		h.fail(w, "run task", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /sessions/{id}/chat
func (h *handler) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Question   string `json:"question"`
		MaxResults int    `json:"max_results,omitempty"`
		MaxRounds  int    `json:"max_rounds,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	// Bound parameters.
	var opts []scholar.ChatOption
	if req.MaxResults > 0 && req.MaxResults <= 100 {
		opts = append(opts, scholar.WithMaxResults(req.MaxResults))
	}
	if req.MaxRounds > 0 && req.MaxRounds <= 10 {
		opts = append(opts, scholar.WithMaxRounds(req.MaxRounds))
	}

	answer, err := h.assistant.Chat(ctx, r.PathValue("id"), req.Question, opts...)
	if err != nil {
		h.fail(w, "chat", err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// POST /sessions/{id}/translate
// Translates the session's last output, or "content" when given.
func (h *handler) handleTranslate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	var req struct {
		Language string `json:"language"`
		Content  string `json:"content,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Language) == "" {
		writeError(w, http.StatusBadRequest, "language is required")
		return
	}

	var (
		out string
		err error
	)
	if req.Content != "" {
		out, err = h.assistant.TranslateText(ctx, req.Content, req.Language)
	} else {
		out, err = h.assistant.Translate(ctx, r.PathValue("id"), req.Language)
	}
	if err != nil {
		h.fail(w, "translate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"language":    req.Language,
		"translation": out,
	})
}

// GET /sessions/{id}/history?limit=N
func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	hist, err := h.assistant.History(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		h.fail(w, "history", err)
		return
	}
	if hist == nil {
		hist = []scholar.TaskLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": hist})
}

// POST /sessions/{id}/insights
// Optional multipart "files"; without them the session's uploads are used.
func (h *handler) handleCreateInsights(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	var uploads []scholar.Upload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		var err error
		if uploads, err = readUploads(w, r); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	b, err := h.assistant.VisualInsights(ctx, r.PathValue("id"), uploads)
	if err != nil {
		h.fail(w, "visual insights", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// GET /sessions/{id}/insights
func (h *handler) handleGetInsights(w http.ResponseWriter, r *http.Request) {
	in, err := h.assistant.Insights(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "get insights", err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// GET /sessions/{id}/insights/static.png
func (h *handler) handleInsightPNG(w http.ResponseWriter, r *http.Request) {
	in, err := h.assistant.Insights(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "insight image", err)
		return
	}
	if len(in.StaticPNG) == 0 {
		writeError(w, http.StatusNotFound, "no static chart")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(in.StaticPNG)))
	w.WriteHeader(http.StatusOK)
	w.Write(in.StaticPNG)
}

// GET /sessions/{id}/insights/chart.html
func (h *handler) handleInsightHTML(w http.ResponseWriter, r *http.Request) {
	in, err := h.assistant.Insights(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "insight chart", err)
		return
	}
	if in.Bundle == nil || in.Bundle.InteractiveChart == nil {
		writeError(w, http.StatusNotFound, "no interactive chart")
		return
	}
	page, err := in.Bundle.InteractiveChart.HTML()
	if err != nil {
		h.fail(w, "insight chart", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}

// DELETE /sessions/{id}/insights
func (h *handler) handleClearInsights(w http.ResponseWriter, r *http.Request) {
	if err := h.assistant.ClearInsights(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, "clear insights", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// readUploads reads every part of the "files" multipart field.
func readUploads(w http.ResponseWriter, r *http.Request) ([]scholar.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, errors.New("invalid multipart upload")
	}

	var uploads []scholar.Upload
	for _, fh := range r.MultipartForm.File["files"] {
		u, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, nil
}

func readPart(fh *multipart.FileHeader) (scholar.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return scholar.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return scholar.Upload{}, err
	}
	// Sanitise filename to prevent path traversal.
	return scholar.Upload{Name: filepath.Base(fh.Filename), Data: data}, nil
}

// fail maps assistant errors to HTTP statuses. Client errors carry their
// message, server errors a generic one.
func (h *handler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" error", "error", err)
		writeError(w, status, op+" failed")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, scholar.ErrSessionNotFound),
		errors.Is(err, scholar.ErrNoInsights),
		errors.Is(err, scholar.ErrNoResults):
		return http.StatusNotFound
	case errors.Is(err, scholar.ErrUnknownTask),
		errors.Is(err, scholar.ErrQuestionRequired),
		errors.Is(err, scholar.ErrNoDocuments):
		return http.StatusBadRequest
	case errors.Is(err, scholar.ErrNoOutput):
		return http.StatusConflict
	case errors.Is(err, scholar.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, scholar.ErrParsingFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scholar.ErrLLMRequestFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
