package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"predictmarket/internal/domain"
)

func TestTradeStoreInsertPending(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO sports_trades") {
				t.Fatalf("unexpected query: %s", query)
			}
			if !strings.Contains(query, "'pending'") {
				t.Fatalf("new trades must start pending: %s", query)
			}
			if len(args) != 6 || args[4] != int64(4000) || args[5] != int64(6400) {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewTradeStore(stubDB{}, domain.Sports)
	err := store.Insert(ctx, execer, TradeInput{
		ID: "t1", QuestionID: "q1", UserID: "user-1", Prediction: "yes", Amount: 4000, Payout: 6400,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTradeStoreMarkSettledPendingGuard(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "UPDATE news_trades") {
				t.Fatalf("unexpected query: %s", query)
			}
			if !strings.Contains(query, "AND status = 'pending'") {
				t.Fatalf("missing pending guard: %s", query)
			}
			return stubResult{rows: 0}, nil
		},
	}
	store := NewTradeStore(stubDB{}, domain.News)
	rows, err := store.MarkSettled(ctx, execer, "t1", "completed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected 0 rows for already-settled trade, got %d", rows)
	}
}

func TestTradeStoreListByQuestion(t *testing.T) {
	ctx := context.Background()
	store := NewTradeStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM news_trades WHERE question_id = $1") {
				t.Fatalf("unexpected query: %s", query)
			}
			if strings.Contains(query, "status") {
				t.Fatalf("sweep must load trades regardless of status: %s", query)
			}
			return nil
		},
	}, domain.News)
	if _, err := store.ListByQuestion(ctx, "q1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
