package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"predictmarket/internal/middleware"
	"predictmarket/internal/money"
)

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	entryType := query.Get("type")
	limit := parseInt(query.Get("limit"), 50)
	page := parseInt(query.Get("page"), 1)
	offset := (page - 1) * limit
	entries, err := h.journal.ListByUser(r.Context(), userID, entryType, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load transactions")
		return
	}
	normalized := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		row := map[string]any{
			"id":          entry.ID,
			"type":        entry.Type,
			"status":      entry.Status,
			"amount":      money.FormatMinor(entry.Amount),
			"description": entry.Description,
			"created_at":  entry.CreatedAt,
			"updated_at":  entry.UpdatedAt,
		}
		if entry.TradeID != nil {
			row["trade_id"] = *entry.TradeID
		}
		if entry.TradeDomain != nil {
			row["trade_domain"] = *entry.TradeDomain
		}
		normalized = append(normalized, row)
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	balance, err := h.balances.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "balance not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load balance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"total_value": money.FormatMinor(balance),
	})
}
