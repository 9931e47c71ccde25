package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parcelworks/addrsplit/internal/model"
	"github.com/parcelworks/addrsplit/internal/prompt"
	"github.com/parcelworks/addrsplit/internal/store"
)

// handleSplit resolves one address across the requested pipelines and
// persists the submission.
func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	user := userSub(r)

	var req model.SplitInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if strings.TrimSpace(req.RawAddress) == "" {
		writeError(w, http.StatusBadRequest, "missing_raw_address")
		return
	}

	tpl, err := s.store.GetPromptTemplate(r.Context(), user)
	if err != nil {
		zap.L().Warn("server: prompt template lookup failed", zap.Error(err))
		tpl = ""
	}

	results := s.resolver.Resolve(r.Context(), req, tpl)

	sub := &model.Submission{
		UserID:  user,
		Input:   req,
		Results: results,
	}
	if err := s.store.PutSubmission(r.Context(), sub); err != nil {
		zap.L().Error("server: persist submission", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "persist_failed")
		return
	}

	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = n
	}

	subs, err := s.store.ListRecent(r.Context(), userSub(r), limit)
	if err != nil {
		zap.L().Error("server: list recent", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.store.GetSubmission(r.Context(), userSub(r), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		zap.L().Error("server: get submission", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get_failed")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleSetPreferred(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PreferredMethod string `json:"preferred_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	method := strings.TrimSpace(req.PreferredMethod)
	if !validPipeline(method) {
		writeError(w, http.StatusBadRequest, "invalid_method")
		return
	}

	err := s.store.SetPreferred(r.Context(), userSub(r), chi.URLParam(r, "id"), method)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	if err != nil {
		zap.L().Error("server: set preferred", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "update_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.store.GetPromptTemplate(r.Context(), userSub(r))
	if err != nil {
		zap.L().Error("server: get prompt", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get_failed")
		return
	}

	isDefault := tpl == ""
	if isDefault {
		tpl = prompt.DefaultTemplate
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prompt_template": tpl,
		"is_default":      isDefault,
	})
}

func (s *Server) handlePutPrompt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PromptTemplate string `json:"prompt_template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	tpl := strings.TrimSpace(req.PromptTemplate)
	if err := prompt.Validate(tpl); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "invalid_prompt",
			"message": err.Error(),
		})
		return
	}

	if err := s.store.PutPromptTemplate(r.Context(), userSub(r), tpl); err != nil {
		zap.L().Error("server: put prompt", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "put_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func validPipeline(method string) bool {
	for _, p := range model.AllPipelines {
		if string(p) == method {
			return true
		}
	}
	return false
}
