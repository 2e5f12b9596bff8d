package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"predictmarket/internal/domain"
	"predictmarket/internal/middleware"
	"predictmarket/internal/services"
	"predictmarket/internal/store"
)

func TestPlaceTradesParsesAmountsToMinorUnits(t *testing.T) {
	var captured []services.ProposedTrade
	handler := newTestHandler(testDeps{
		placement: stubPlacementService{
			placeFn: func(_ context.Context, userID string, proposals []services.ProposedTrade) (services.PlacementResult, error) {
				if userID != "user-1" {
					t.Fatalf("unexpected user: %s", userID)
				}
				captured = proposals
				return services.PlacementResult{
					TotalDebited: 4000,
					Trades: []services.PlacedTrade{
						{Domain: domain.News, TradeID: "t1", QuestionID: "q1", Amount: 4000, Payout: 6400},
					},
				}, nil
			},
		},
	})
	body := `{"trades":[{"domain":"news","question_id":"q1","prediction":"yes","amount":"40.00"}]}`
	req := authedRequest(t, http.MethodPost, "/trades", body, "user-1")
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(http.HandlerFunc(handler.PlaceTrades)).ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(captured) != 1 || captured[0].Amount != 4000 || captured[0].Prediction != domain.SideYes {
		t.Fatalf("unexpected proposals: %#v", captured)
	}
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload["total_debited"] != "40.00" {
		t.Fatalf("unexpected total_debited: %v", payload["total_debited"])
	}
	trades := payload["trades"].([]any)
	first := trades[0].(map[string]any)
	if first["payout"] != "64.00" {
		t.Fatalf("unexpected payout: %v", first["payout"])
	}
}

func TestPlaceTradesErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{services.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{services.ErrQuestionNotActive, http.StatusConflict},
		{services.ErrQuestionNotFound, http.StatusNotFound},
		{services.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrUnknownDomain, http.StatusBadRequest},
	}
	for _, tc := range cases {
		handler := newTestHandler(testDeps{
			placement: stubPlacementService{
				placeFn: func(context.Context, string, []services.ProposedTrade) (services.PlacementResult, error) {
					return services.PlacementResult{}, tc.err
				},
			},
		})
		body := `{"trades":[{"domain":"news","question_id":"q1","prediction":"yes","amount":"40.00"}]}`
		req := authedRequest(t, http.MethodPost, "/trades", body, "user-1")
		rr := httptest.NewRecorder()
		middleware.Auth("secret")(http.HandlerFunc(handler.PlaceTrades)).ServeHTTP(rr, req)
		if rr.Code != tc.status {
			t.Fatalf("error %v: expected %d, got %d", tc.err, tc.status, rr.Code)
		}
	}
}

func TestPlaceTradesRejectsBadPayload(t *testing.T) {
	handler := newTestHandler(testDeps{})
	cases := []string{
		`{"trades":[{"domain":"casino","question_id":"q1","prediction":"yes","amount":"40.00"}]}`,
		`{"trades":[{"domain":"news","question_id":"q1","prediction":"maybe","amount":"40.00"}]}`,
		`{"trades":[{"domain":"news","question_id":"q1","prediction":"yes","amount":"40.123"}]}`,
	}
	for _, body := range cases {
		req := authedRequest(t, http.MethodPost, "/trades", body, "user-1")
		rr := httptest.NewRecorder()
		middleware.Auth("secret")(http.HandlerFunc(handler.PlaceTrades)).ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rr.Code)
		}
	}
}

func TestListTradesGroupsByDomain(t *testing.T) {
	handler := newTestHandler(testDeps{
		trades: map[domain.Domain]TradeStore{
			domain.News: stubTradeStore{
				listByUserFn: func(context.Context, string, int, int) ([]store.Trade, error) {
					return []store.Trade{{ID: "t1", QuestionID: "q1", Prediction: "yes", Amount: 4000, Payout: 6400, Status: domain.TradePending}}, nil
				},
			},
			domain.Sports: stubTradeStore{},
		},
	})
	req := authedRequest(t, http.MethodGet, "/trades", "", "user-1")
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(http.HandlerFunc(handler.ListTrades)).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var payload map[string][]map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload["news"]) != 1 || len(payload["sports"]) != 0 {
		t.Fatalf("unexpected grouping: %#v", payload)
	}
	if payload["news"][0]["amount"] != "40.00" || payload["news"][0]["payout"] != "64.00" {
		t.Fatalf("unexpected formatting: %#v", payload["news"][0])
	}
}
