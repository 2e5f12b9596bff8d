package services

import (
	"context"

	"github.com/jmoiron/sqlx"

	"predictmarket/internal/store"
	"predictmarket/internal/websocket"
)

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubQuestionStore struct {
	getFn          func(ctx context.Context, questionID string) (store.Question, error)
	getForUpdateFn func(ctx context.Context, tx store.Getter, questionID string) (store.Question, error)
	findSiblingsFn func(ctx context.Context, matchID, excludeID string) ([]store.Question, error)
	markResolvedFn func(ctx context.Context, tx store.Execer, questionID, status, resolvedBy string) (int64, error)
}

func (s *stubQuestionStore) Get(ctx context.Context, questionID string) (store.Question, error) {
	if s.getFn == nil {
		return store.Question{}, nil
	}
	return s.getFn(ctx, questionID)
}

func (s *stubQuestionStore) GetForUpdate(ctx context.Context, tx store.Getter, questionID string) (store.Question, error) {
	if s.getForUpdateFn == nil {
		return store.Question{}, nil
	}
	return s.getForUpdateFn(ctx, tx, questionID)
}

func (s *stubQuestionStore) FindWinnerSiblings(ctx context.Context, matchID, excludeID string) ([]store.Question, error) {
	if s.findSiblingsFn == nil {
		return nil, nil
	}
	return s.findSiblingsFn(ctx, matchID, excludeID)
}

func (s *stubQuestionStore) MarkResolved(ctx context.Context, tx store.Execer, questionID, status, resolvedBy string) (int64, error) {
	if s.markResolvedFn == nil {
		return 1, nil
	}
	return s.markResolvedFn(ctx, tx, questionID, status, resolvedBy)
}

type stubTradeStore struct {
	insertFn         func(ctx context.Context, tx store.Execer, input store.TradeInput) error
	getForUpdateFn   func(ctx context.Context, tx store.Getter, tradeID string) (store.Trade, error)
	listByQuestionFn func(ctx context.Context, questionID string) ([]store.Trade, error)
	markSettledFn    func(ctx context.Context, tx store.Execer, tradeID, status string) (int64, error)
}

func (s *stubTradeStore) Insert(ctx context.Context, tx store.Execer, input store.TradeInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, input)
}

func (s *stubTradeStore) GetForUpdate(ctx context.Context, tx store.Getter, tradeID string) (store.Trade, error) {
	if s.getForUpdateFn == nil {
		return store.Trade{}, nil
	}
	return s.getForUpdateFn(ctx, tx, tradeID)
}

func (s *stubTradeStore) ListByQuestion(ctx context.Context, questionID string) ([]store.Trade, error) {
	if s.listByQuestionFn == nil {
		return nil, nil
	}
	return s.listByQuestionFn(ctx, questionID)
}

func (s *stubTradeStore) MarkSettled(ctx context.Context, tx store.Execer, tradeID, status string) (int64, error) {
	if s.markSettledFn == nil {
		return 1, nil
	}
	return s.markSettledFn(ctx, tx, tradeID, status)
}

type stubBalanceStore struct {
	creditFn func(ctx context.Context, tx store.Execer, userID string, amount int64) (int64, error)
	debitFn  func(ctx context.Context, tx store.Execer, userID string, amount int64) (int64, error)
}

func (s *stubBalanceStore) Credit(ctx context.Context, tx store.Execer, userID string, amount int64) (int64, error) {
	if s.creditFn == nil {
		return 1, nil
	}
	return s.creditFn(ctx, tx, userID, amount)
}

func (s *stubBalanceStore) Debit(ctx context.Context, tx store.Execer, userID string, amount int64) (int64, error) {
	if s.debitFn == nil {
		return 1, nil
	}
	return s.debitFn(ctx, tx, userID, amount)
}

type stubJournalStore struct {
	insertFn func(ctx context.Context, tx store.Execer, input store.JournalEntryInput) error
	updateFn func(ctx context.Context, tx store.Execer, tradeID, entryType, status, description string) (int64, error)
}

func (s *stubJournalStore) Insert(ctx context.Context, tx store.Execer, input store.JournalEntryInput) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, tx, input)
}

func (s *stubJournalStore) UpdateByTradeAndType(ctx context.Context, tx store.Execer, tradeID, entryType, status, description string) (int64, error) {
	if s.updateFn == nil {
		return 1, nil
	}
	return s.updateFn(ctx, tx, tradeID, entryType, status, description)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func (s *stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubHub struct {
	notified    map[string][]websocket.Event
	notifiedAll []websocket.Event
}

func newStubHub() *stubHub {
	return &stubHub{notified: make(map[string][]websocket.Event)}
}

func (s *stubHub) Notify(userID string, event websocket.Event) {
	s.notified[userID] = append(s.notified[userID], event)
}

func (s *stubHub) NotifyAll(event websocket.Event) {
	s.notifiedAll = append(s.notifiedAll, event)
}
