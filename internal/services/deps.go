package services

import (
	"context"

	"predictmarket/internal/domain"
	"predictmarket/internal/store"
	"predictmarket/internal/websocket"
)

type QuestionStore interface {
	Get(ctx context.Context, questionID string) (store.Question, error)
	GetForUpdate(ctx context.Context, tx store.Getter, questionID string) (store.Question, error)
	FindWinnerSiblings(ctx context.Context, matchID, excludeID string) ([]store.Question, error)
	MarkResolved(ctx context.Context, tx store.Execer, questionID, status, resolvedBy string) (int64, error)
}

type TradeStore interface {
	Insert(ctx context.Context, tx store.Execer, input store.TradeInput) error
	GetForUpdate(ctx context.Context, tx store.Getter, tradeID string) (store.Trade, error)
	ListByQuestion(ctx context.Context, questionID string) ([]store.Trade, error)
	MarkSettled(ctx context.Context, tx store.Execer, tradeID, status string) (int64, error)
}

type BalanceStore interface {
	Credit(ctx context.Context, tx store.Execer, userID string, amount int64) (int64, error)
	Debit(ctx context.Context, tx store.Execer, userID string, amount int64) (int64, error)
}

type JournalStore interface {
	Insert(ctx context.Context, tx store.Execer, input store.JournalEntryInput) error
	UpdateByTradeAndType(ctx context.Context, tx store.Execer, tradeID, entryType, status, description string) (int64, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type Notifier interface {
	Notify(userID string, event websocket.Event)
	NotifyAll(event websocket.Event)
}

// DomainStores bundles the per-domain table set. Both engines are written
// against this pair, so news and sports share one code path selected by the
// domain tag.
type DomainStores struct {
	Questions QuestionStore
	Trades    TradeStore
}

type StoreSet map[domain.Domain]DomainStores

func (s StoreSet) forDomain(d domain.Domain) (DomainStores, error) {
	stores, ok := s[d]
	if !ok {
		return DomainStores{}, domain.ErrUnknownDomain
	}
	return stores, nil
}
