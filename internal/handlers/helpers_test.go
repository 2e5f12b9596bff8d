package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"predictmarket/internal/auth"
	"predictmarket/internal/config"
	"predictmarket/internal/domain"
	"predictmarket/internal/services"
	"predictmarket/internal/store"
	"predictmarket/internal/websocket"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn           func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	getByEmailFn       func(ctx context.Context, email string) (map[string]any, error)
	getByUsernameFn    func(ctx context.Context, username string) (map[string]any, error)
	getByIDFn          func(ctx context.Context, userID string) (map[string]any, error)
	listWithBalancesFn func(ctx context.Context, limit, offset int) ([]store.UserWithBalance, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (map[string]any, error) {
	if s.getByEmailFn == nil {
		return nil, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByUsername(ctx context.Context, username string) (map[string]any, error) {
	if s.getByUsernameFn == nil {
		return nil, nil
	}
	return s.getByUsernameFn(ctx, username)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (map[string]any, error) {
	if s.getByIDFn == nil {
		return nil, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) ListWithBalances(ctx context.Context, limit, offset int) ([]store.UserWithBalance, error) {
	if s.listWithBalancesFn == nil {
		return nil, nil
	}
	return s.listWithBalancesFn(ctx, limit, offset)
}

type stubQuestionStore struct {
	createFn       func(ctx context.Context, tx store.Execer, input store.QuestionInput) error
	getFn          func(ctx context.Context, questionID string) (store.Question, error)
	listByStatusFn func(ctx context.Context, status string, limit, offset int) ([]store.Question, error)
}

func (s stubQuestionStore) Create(ctx context.Context, tx store.Execer, input store.QuestionInput) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, input)
}

func (s stubQuestionStore) Get(ctx context.Context, questionID string) (store.Question, error) {
	if s.getFn == nil {
		return store.Question{}, nil
	}
	return s.getFn(ctx, questionID)
}

func (s stubQuestionStore) ListByStatus(ctx context.Context, status string, limit, offset int) ([]store.Question, error) {
	if s.listByStatusFn == nil {
		return nil, nil
	}
	return s.listByStatusFn(ctx, status, limit, offset)
}

type stubTradeStore struct {
	getFn        func(ctx context.Context, tradeID string) (store.Trade, error)
	listByUserFn func(ctx context.Context, userID string, limit, offset int) ([]store.Trade, error)
}

func (s stubTradeStore) Get(ctx context.Context, tradeID string) (store.Trade, error) {
	if s.getFn == nil {
		return store.Trade{}, nil
	}
	return s.getFn(ctx, tradeID)
}

func (s stubTradeStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]store.Trade, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, limit, offset)
}

type stubBalanceStore struct {
	createFn func(ctx context.Context, tx store.Execer, userID string, totalValue int64) error
	getFn    func(ctx context.Context, userID string) (int64, error)
	creditFn func(ctx context.Context, tx store.Execer, userID string, amount int64) (int64, error)
	debitFn  func(ctx context.Context, tx store.Execer, userID string, amount int64) (int64, error)
}

func (s stubBalanceStore) Create(ctx context.Context, tx store.Execer, userID string, totalValue int64) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, userID, totalValue)
}

func (s stubBalanceStore) Get(ctx context.Context, userID string) (int64, error) {
	if s.getFn == nil {
		return 0, nil
	}
	return s.getFn(ctx, userID)
}

func (s stubBalanceStore) Credit(ctx context.Context, tx store.Execer, userID string, amount int64) (int64, error) {
	if s.creditFn == nil {
		return 1, nil
	}
	return s.creditFn(ctx, tx, userID, amount)
}

func (s stubBalanceStore) Debit(ctx context.Context, tx store.Execer, userID string, amount int64) (int64, error) {
	if s.debitFn == nil {
		return 1, nil
	}
	return s.debitFn(ctx, tx, userID, amount)
}

type stubJournalStore struct {
	insertFn     func(ctx context.Context, tx store.Execer, input store.JournalEntryInput) error
	listByUserFn func(ctx context.Context, userID, entryType string, limit, offset int) ([]store.JournalEntry, error)
}

func (s stubJournalStore) Insert(ctx context.Context, tx store.Execer, input store.JournalEntryInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, input)
}

func (s stubJournalStore) ListByUser(ctx context.Context, userID, entryType string, limit, offset int) ([]store.JournalEntry, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, entryType, limit, offset)
}

type stubAdminStore struct {
	isAdminFn     func(ctx context.Context, userID string) (bool, bool, error)
	hasRoleFn     func(ctx context.Context, userID, role string) (bool, error)
	createAdminFn func(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	grantRoleFn   func(ctx context.Context, tx store.Execer, adminUserID, role string) error
	hasAnyAdminFn func(ctx context.Context) (bool, error)
}

func (s stubAdminStore) IsAdmin(ctx context.Context, userID string) (bool, bool, error) {
	if s.isAdminFn == nil {
		return false, false, nil
	}
	return s.isAdminFn(ctx, userID)
}

func (s stubAdminStore) HasRole(ctx context.Context, userID, role string) (bool, error) {
	if s.hasRoleFn == nil {
		return false, nil
	}
	return s.hasRoleFn(ctx, userID, role)
}

func (s stubAdminStore) CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error {
	if s.createAdminFn == nil {
		return nil
	}
	return s.createAdminFn(ctx, tx, userID, isSuper, createdBy)
}

func (s stubAdminStore) GrantRole(ctx context.Context, tx store.Execer, adminUserID, role string) error {
	if s.grantRoleFn == nil {
		return nil
	}
	return s.grantRoleFn(ctx, tx, adminUserID, role)
}

func (s stubAdminStore) HasAnyAdmin(ctx context.Context) (bool, error) {
	if s.hasAnyAdminFn == nil {
		return false, nil
	}
	return s.hasAnyAdminFn(ctx)
}

type stubAuditStore struct {
	logFn  func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	listFn func(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

func (s stubAuditStore) List(ctx context.Context, limit, offset int) ([]map[string]any, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubPlacementService struct {
	placeFn func(ctx context.Context, userID string, proposals []services.ProposedTrade) (services.PlacementResult, error)
}

func (s stubPlacementService) PlaceTrades(ctx context.Context, userID string, proposals []services.ProposedTrade) (services.PlacementResult, error) {
	if s.placeFn == nil {
		return services.PlacementResult{}, nil
	}
	return s.placeFn(ctx, userID, proposals)
}

type stubResolutionService struct {
	resolveQuestionFn func(ctx context.Context, d domain.Domain, questionID string, side domain.Side, actorID string) (services.ResolutionSummary, error)
	resolveTradeFn    func(ctx context.Context, d domain.Domain, tradeID string, side domain.Side, actorID string) (services.TradeSettlement, error)
}

func (s stubResolutionService) ResolveQuestion(ctx context.Context, d domain.Domain, questionID string, side domain.Side, actorID string) (services.ResolutionSummary, error) {
	if s.resolveQuestionFn == nil {
		return services.ResolutionSummary{}, nil
	}
	return s.resolveQuestionFn(ctx, d, questionID, side, actorID)
}

func (s stubResolutionService) ResolveTrade(ctx context.Context, d domain.Domain, tradeID string, side domain.Side, actorID string) (services.TradeSettlement, error) {
	if s.resolveTradeFn == nil {
		return services.TradeSettlement{}, nil
	}
	return s.resolveTradeFn(ctx, d, tradeID, side, actorID)
}

type testDeps struct {
	txRunner   fakeTxRunner
	users      stubUserStore
	questions  map[domain.Domain]QuestionStore
	trades     map[domain.Domain]TradeStore
	balances   stubBalanceStore
	journal    stubJournalStore
	admin      stubAdminStore
	audit      stubAuditStore
	placement  stubPlacementService
	resolution stubResolutionService
}

func newTestHandler(deps testDeps) *Handler {
	cfg := config.Config{
		AppEnv:          "test",
		Port:            "0",
		JWTSecret:       "secret",
		TokenTTL:        time.Minute,
		AllowedOrigins:  "*",
		StartingBalance: 100000,
	}
	if deps.questions == nil {
		deps.questions = map[domain.Domain]QuestionStore{
			domain.News:   stubQuestionStore{},
			domain.Sports: stubQuestionStore{},
		}
	}
	if deps.trades == nil {
		deps.trades = map[domain.Domain]TradeStore{
			domain.News:   stubTradeStore{},
			domain.Sports: stubTradeStore{},
		}
	}
	return New(deps.txRunner, cfg, deps.users, deps.questions, deps.trades, deps.balances, deps.journal, deps.admin, deps.audit, deps.placement, deps.resolution, websocket.NewHub(), nil, zap.NewNop())
}

func authedRequest(t *testing.T, method, target, body, userID string) *http.Request {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
