package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"predictmarket/internal/domain"
	"predictmarket/internal/middleware"
	"predictmarket/internal/money"
	"predictmarket/internal/services"
	"predictmarket/internal/store"
	"predictmarket/internal/validator"
	"predictmarket/internal/websocket"
)

type createQuestionRequest struct {
	Domain        string  `json:"domain"`
	Title         string  `json:"title"`
	Category      string  `json:"category"`
	MatchID       *string `json:"match_id"`
	YesPercentage string  `json:"yes_percentage"`
	NoPercentage  string  `json:"no_percentage"`
	ClosesAt      string  `json:"closes_at"`
}

func (h *Handler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	d, err := domain.Parse(req.Domain)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validator.ValidateQuestionTitle(req.Title); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Category == "" {
		respondError(w, http.StatusBadRequest, "category is required")
		return
	}
	yesPct, err := parsePercentage(req.YesPercentage)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid yes_percentage")
		return
	}
	noPct, err := parsePercentage(req.NoPercentage)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid no_percentage")
		return
	}
	closesAt, err := time.Parse(time.RFC3339, req.ClosesAt)
	if err != nil || !closesAt.After(time.Now()) {
		respondError(w, http.StatusBadRequest, "closes_at must be a future RFC3339 timestamp")
		return
	}
	if d == domain.News && req.MatchID != nil {
		respondError(w, http.StatusBadRequest, "match_id is only valid for sports questions")
		return
	}
	questions, ok := h.questions[d]
	if !ok {
		respondError(w, http.StatusBadRequest, domain.ErrUnknownDomain.Error())
		return
	}
	questionID := uuid.NewString()
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := questions.Create(r.Context(), tx, store.QuestionInput{
			ID:            questionID,
			Title:         req.Title,
			Category:      req.Category,
			MatchID:       req.MatchID,
			YesPercentage: yesPct,
			NoPercentage:  noPct,
			ClosesAt:      closesAt,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"domain": d.String(),
			"title":  req.Title,
		})
		return h.audit.Log(r.Context(), tx, actorID, "create_question", "question", questionID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create question")
		return
	}
	h.cache.Invalidate(r.Context(), d)
	h.hub.NotifyAll(websocket.Event{Channels: []string{"questions"}})
	respondJSON(w, http.StatusCreated, map[string]string{
		"id":     questionID,
		"domain": d.String(),
	})
}

func parsePercentage(raw string) (string, error) {
	pct, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(1000)) {
		return "", errors.New("percentage out of range")
	}
	return pct.StringFixedBank(2), nil
}

type resolveRequest struct {
	Winner string `json:"winner"`
}

func (h *Handler) ResolveQuestion(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	d, err := domain.Parse(chi.URLParam(r, "domain"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	side, err := domain.ParseSide(req.Winner)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := h.resolution.ResolveQuestion(r.Context(), d, chi.URLParam(r, "id"), side, actorID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrQuestionNotFound):
			respondError(w, http.StatusNotFound, "question not found")
		case errors.Is(err, services.ErrQuestionResolved):
			respondError(w, http.StatusConflict, "question already resolved")
		case errors.Is(err, domain.ErrUnknownDomain):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "resolution failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"message": summary.Message(),
	})
}

func (h *Handler) ResolveTrade(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	d, err := domain.Parse(chi.URLParam(r, "domain"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	side, err := domain.ParseSide(req.Winner)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	settlement, err := h.resolution.ResolveTrade(r.Context(), d, chi.URLParam(r, "id"), side, actorID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTradeNotFound):
			respondError(w, http.StatusNotFound, "trade not found")
		case errors.Is(err, services.ErrTradeSettled):
			respondError(w, http.StatusConflict, "trade already settled")
		case errors.Is(err, domain.ErrUnknownDomain):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "resolution failed")
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"trade_id": settlement.TradeID,
		"domain":   settlement.Domain.String(),
		"won":      settlement.Won,
		"payout":   money.FormatMinor(settlement.Payout),
	})
}

type adjustFundsRequest struct {
	Identifier string `json:"identifier"`
	Amount     string `json:"amount"`
}

var errAdjustUncovered = errors.New("balance does not cover deduction")

// GrantFunds adjusts a user's balance outside of settlement, the support
// path for promotions and corrections. Positive amounts credit, negative
// amounts debit with the same coverage guard placement uses; either way
// the adjustment lands in the journal.
func (h *Handler) GrantFunds(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req adjustFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identifier == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amountMinor, err := money.ParseMinor(req.Amount)
	if err != nil || amountMinor == 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	targetUserID, err := h.resolveUserID(r.Context(), req.Identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to resolve user")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		var rows int64
		var description string
		if amountMinor > 0 {
			rows, err = h.balances.Credit(r.Context(), tx, targetUserID, amountMinor)
			description = "Admin fund grant"
		} else {
			rows, err = h.balances.Debit(r.Context(), tx, targetUserID, -amountMinor)
			description = "Admin fund deduction"
		}
		if err != nil {
			return err
		}
		if rows == 0 {
			if amountMinor < 0 {
				return errAdjustUncovered
			}
			return sql.ErrNoRows
		}
		if err := h.journal.Insert(r.Context(), tx, store.JournalEntryInput{
			ID:          uuid.NewString(),
			UserID:      targetUserID,
			Type:        domain.TxAdjustment,
			Status:      "completed",
			Amount:      amountMinor,
			Description: description,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"target_user_id": targetUserID,
			"amount":         money.FormatMinor(amountMinor),
		})
		return h.audit.Log(r.Context(), tx, actorID, "adjust_funds", "balance", targetUserID, string(data))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "balance not found")
			return
		}
		if errors.Is(err, errAdjustUncovered) {
			respondError(w, http.StatusUnprocessableEntity, "insufficient_balance")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to adjust funds")
		return
	}
	h.hub.Notify(targetUserID, websocket.Event{Channels: []string{"transactions", "balance"}})
	respondJSON(w, http.StatusCreated, map[string]string{
		"user_id": targetUserID,
		"amount":  money.FormatMinor(amountMinor),
	})
}

func (h *Handler) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), 50)
	page := parseInt(query.Get("page"), 1)
	offset := (page - 1) * limit
	rows, err := h.users.ListWithBalances(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load users")
		return
	}
	normalized := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		normalized = append(normalized, map[string]any{
			"id":          row.ID,
			"username":    row.Username,
			"email":       row.Email,
			"total_value": money.FormatMinor(row.TotalValue),
			"created_at":  row.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), 50)
	page := parseInt(query.Get("page"), 1)
	offset := (page - 1) * limit
	rows, err := h.audit.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load audit logs")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

type promoteRequest struct {
	Identifier string `json:"identifier"`
}

func (h *Handler) PromoteAdmin(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	_, isSuper, err := h.admin.IsAdmin(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to verify admin")
		return
	}
	if !isSuper {
		respondError(w, http.StatusForbidden, "super_admin_required")
		return
	}
	var req promoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identifier == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	targetUserID, err := h.resolveUserID(r.Context(), req.Identifier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to resolve user")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admin.CreateAdmin(r.Context(), tx, targetUserID, false, &userID); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"target_user_id": targetUserID,
		})
		return h.audit.Log(r.Context(), tx, userID, "promote_admin", "admin", targetUserID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to promote admin")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "promoted"})
}

type grantRoleRequest struct {
	AdminUserID string `json:"admin_user_id"`
	Role        string `json:"role"`
}

func (h *Handler) GrantRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	_, isSuper, err := h.admin.IsAdmin(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to verify admin")
		return
	}
	if !isSuper {
		respondError(w, http.StatusForbidden, "super_admin_required")
		return
	}
	var req grantRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AdminUserID == "" || req.Role == "" {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	isAdmin, targetIsSuper, err := h.admin.IsAdmin(r.Context(), req.AdminUserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to verify target admin")
		return
	}
	if !isAdmin {
		respondError(w, http.StatusBadRequest, "target is not an admin")
		return
	}
	if targetIsSuper {
		respondError(w, http.StatusBadRequest, "cannot assign roles to super admin")
		return
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.admin.GrantRole(r.Context(), tx, req.AdminUserID, req.Role); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]string{
			"admin_user_id": req.AdminUserID,
			"role":          req.Role,
		})
		return h.audit.Log(r.Context(), tx, userID, "grant_role", "admin_role", req.AdminUserID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to grant role")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"status": "role_granted"})
}

func (h *Handler) resolveUserID(ctx context.Context, identifier string) (string, error) {
	var user map[string]any
	var err error
	if strings.Contains(identifier, "@") {
		user, err = h.users.GetByEmail(ctx, identifier)
	} else {
		user, err = h.users.GetByUsername(ctx, identifier)
	}
	if err != nil {
		return "", err
	}
	return valueToString(user["id"]), nil
}
