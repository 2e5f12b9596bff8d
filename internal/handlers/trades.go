package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"predictmarket/internal/auth"
	"predictmarket/internal/domain"
	"predictmarket/internal/middleware"
	"predictmarket/internal/money"
	"predictmarket/internal/services"
	"predictmarket/internal/store"
	"predictmarket/internal/websocket"
)

type placeTradeItem struct {
	Domain     string `json:"domain"`
	QuestionID string `json:"question_id"`
	Prediction string `json:"prediction"`
	Amount     string `json:"amount"`
}

type placeTradesRequest struct {
	Trades []placeTradeItem `json:"trades"`
}

func (h *Handler) PlaceTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req placeTradesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	proposals := make([]services.ProposedTrade, 0, len(req.Trades))
	for _, item := range req.Trades {
		d, err := domain.Parse(item.Domain)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		side, err := domain.ParseSide(item.Prediction)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		amountMinor, err := money.ParseMinor(item.Amount)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_amount")
			return
		}
		proposals = append(proposals, services.ProposedTrade{
			Domain:     d,
			QuestionID: item.QuestionID,
			Prediction: side,
			Amount:     amountMinor,
		})
	}
	result, err := h.placement.PlaceTrades(r.Context(), userID, proposals)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoTrades),
			errors.Is(err, services.ErrInvalidAmount),
			errors.Is(err, domain.ErrInvalidSide),
			errors.Is(err, domain.ErrUnknownDomain):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrQuestionNotFound):
			respondError(w, http.StatusNotFound, "question not found")
		case errors.Is(err, services.ErrQuestionNotActive):
			respondError(w, http.StatusConflict, "question is not open for trading")
		case errors.Is(err, services.ErrInsufficientBalance):
			respondError(w, http.StatusUnprocessableEntity, "insufficient_balance")
		default:
			respondError(w, http.StatusInternalServerError, "placement failed")
		}
		return
	}
	trades := make([]map[string]any, 0, len(result.Trades))
	for _, placed := range result.Trades {
		trades = append(trades, map[string]any{
			"trade_id":    placed.TradeID,
			"domain":      placed.Domain.String(),
			"question_id": placed.QuestionID,
			"amount":      money.FormatMinor(placed.Amount),
			"payout":      money.FormatMinor(placed.Payout),
		})
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"trades":        trades,
		"total_debited": money.FormatMinor(result.TotalDebited),
	})
}

func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), 50)
	page := parseInt(query.Get("page"), 1)
	offset := (page - 1) * limit

	domains := []domain.Domain{domain.News, domain.Sports}
	if raw := query.Get("domain"); raw != "" {
		d, err := domain.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		domains = []domain.Domain{d}
	}
	response := make(map[string][]map[string]any, len(domains))
	for _, d := range domains {
		trades, ok := h.trades[d]
		if !ok {
			respondError(w, http.StatusBadRequest, domain.ErrUnknownDomain.Error())
			return
		}
		rows, err := trades.ListByUser(r.Context(), userID, limit, offset)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to load trades")
			return
		}
		normalized := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			normalized = append(normalized, normalizeTrade(d, row))
		}
		response[d.String()] = normalized
	}
	respondJSON(w, http.StatusOK, response)
}

func normalizeTrade(d domain.Domain, row store.Trade) map[string]any {
	normalized := map[string]any{
		"id":          row.ID,
		"domain":      d.String(),
		"question_id": row.QuestionID,
		"prediction":  row.Prediction,
		"amount":      money.FormatMinor(row.Amount),
		"payout":      money.FormatMinor(row.Payout),
		"status":      row.Status,
		"created_at":  row.CreatedAt,
	}
	if row.SettledAt != nil {
		normalized["settled_at"] = *row.SettledAt
	}
	return normalized
}

// WSUpdates upgrades the connection after validating the token from the
// query string or the Authorization header. Browsers cannot set headers on
// websocket dials, hence the query parameter.
func (h *Handler) WSUpdates(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID)
}
