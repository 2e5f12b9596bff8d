package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"predictmarket/internal/domain"
	"predictmarket/internal/store"
)

// ListQuestions returns the question list per domain. The active list of
// each domain is the hot path and is served from redis between
// invalidations; other statuses always hit the database.
func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	status := query.Get("status")
	if status == "" {
		status = domain.QuestionActive
	}
	if status != domain.QuestionActive && status != domain.QuestionResolvedYes && status != domain.QuestionResolvedNo {
		respondError(w, http.StatusBadRequest, "invalid status filter")
		return
	}
	limit := parseInt(query.Get("limit"), 100)
	page := parseInt(query.Get("page"), 1)
	offset := (page - 1) * limit

	domains := make([]domain.Domain, 0, len(h.questions))
	if raw := query.Get("domain"); raw != "" {
		d, err := domain.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		domains = append(domains, d)
	} else {
		domains = append(domains, domain.News, domain.Sports)
	}

	cacheable := status == domain.QuestionActive && page == 1 && query.Get("limit") == ""
	response := make(map[string]json.RawMessage, len(domains))
	for _, d := range domains {
		if cacheable {
			if payload, ok := h.cache.Get(r.Context(), d); ok {
				response[d.String()] = payload
				continue
			}
		}
		questions, ok := h.questions[d]
		if !ok {
			respondError(w, http.StatusBadRequest, domain.ErrUnknownDomain.Error())
			return
		}
		rows, err := questions.ListByStatus(r.Context(), status, limit, offset)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to load questions")
			return
		}
		normalized := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			normalized = append(normalized, normalizeQuestion(d, row))
		}
		payload, err := json.Marshal(normalized)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to load questions")
			return
		}
		if cacheable {
			h.cache.Set(r.Context(), d, payload)
		}
		response[d.String()] = payload
	}
	respondJSON(w, http.StatusOK, response)
}

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	d, err := domain.Parse(chi.URLParam(r, "domain"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	questions, ok := h.questions[d]
	if !ok {
		respondError(w, http.StatusBadRequest, domain.ErrUnknownDomain.Error())
		return
	}
	question, err := questions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "question not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load question")
		return
	}
	respondJSON(w, http.StatusOK, normalizeQuestion(d, question))
}

func normalizeQuestion(d domain.Domain, row store.Question) map[string]any {
	normalized := map[string]any{
		"id":             row.ID,
		"domain":         d.String(),
		"title":          row.Title,
		"category":       row.Category,
		"yes_percentage": row.YesPercentage,
		"no_percentage":  row.NoPercentage,
		"status":         row.Status,
		"closes_at":      row.ClosesAt,
		"created_at":     row.CreatedAt,
	}
	if row.MatchID != nil {
		normalized["match_id"] = *row.MatchID
	}
	if side, ok := domain.WinningSide(row.Status); ok {
		normalized["winning_side"] = string(side)
		normalized["resolved_at"] = row.ResolvedAt
	}
	return normalized
}
