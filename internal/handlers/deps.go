package handlers

import (
	"context"

	"predictmarket/internal/domain"
	"predictmarket/internal/services"
	"predictmarket/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string) error
	GetByEmail(ctx context.Context, email string) (map[string]any, error)
	GetByUsername(ctx context.Context, username string) (map[string]any, error)
	GetByID(ctx context.Context, userID string) (map[string]any, error)
	ListWithBalances(ctx context.Context, limit, offset int) ([]store.UserWithBalance, error)
}

type QuestionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.QuestionInput) error
	Get(ctx context.Context, questionID string) (store.Question, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]store.Question, error)
}

type TradeStore interface {
	Get(ctx context.Context, tradeID string) (store.Trade, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]store.Trade, error)
}

type BalanceStore interface {
	Create(ctx context.Context, tx store.Execer, userID string, totalValue int64) error
	Get(ctx context.Context, userID string) (int64, error)
	Credit(ctx context.Context, tx store.Execer, userID string, amount int64) (int64, error)
	Debit(ctx context.Context, tx store.Execer, userID string, amount int64) (int64, error)
}

type JournalStore interface {
	Insert(ctx context.Context, tx store.Execer, input store.JournalEntryInput) error
	ListByUser(ctx context.Context, userID, entryType string, limit, offset int) ([]store.JournalEntry, error)
}

type AdminStore interface {
	IsAdmin(ctx context.Context, userID string) (bool, bool, error)
	HasRole(ctx context.Context, userID, role string) (bool, error)
	CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	GrantRole(ctx context.Context, tx store.Execer, adminUserID, role string) error
	HasAnyAdmin(ctx context.Context) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
	List(ctx context.Context, limit, offset int) ([]map[string]any, error)
}

type PlacementService interface {
	PlaceTrades(ctx context.Context, userID string, proposals []services.ProposedTrade) (services.PlacementResult, error)
}

type ResolutionService interface {
	ResolveQuestion(ctx context.Context, d domain.Domain, questionID string, side domain.Side, actorID string) (services.ResolutionSummary, error)
	ResolveTrade(ctx context.Context, d domain.Domain, tradeID string, side domain.Side, actorID string) (services.TradeSettlement, error)
}
