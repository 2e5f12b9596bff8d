package store

import (
	"context"
	"fmt"
	"time"

	"predictmarket/internal/domain"
)

type TradeStore struct {
	db    DB
	table string
}

type Trade struct {
	ID         string     `db:"id"`
	QuestionID string     `db:"question_id"`
	UserID     string     `db:"user_id"`
	Prediction string     `db:"prediction"`
	Amount     int64      `db:"amount"`
	Payout     int64      `db:"payout"`
	Status     string     `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
	SettledAt  *time.Time `db:"settled_at"`
}

type TradeInput struct {
	ID         string
	QuestionID string
	UserID     string
	Prediction string
	Amount     int64
	Payout     int64
}

func NewTradeStore(db DB, d domain.Domain) *TradeStore {
	return &TradeStore{db: db, table: string(d) + "_trades"}
}

const tradeColumns = "id, question_id, user_id, prediction, amount, payout, status, created_at, settled_at"

func (s *TradeStore) Insert(ctx context.Context, tx Execer, input TradeInput) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, question_id, user_id, prediction, amount, payout, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
	`, s.table)
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.QuestionID, input.UserID, input.Prediction, input.Amount, input.Payout,
	)
	return err
}

func (s *TradeStore) Get(ctx context.Context, tradeID string) (Trade, error) {
	var row Trade
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, tradeColumns, s.table)
	if err := s.db.GetContext(ctx, &row, query, tradeID); err != nil {
		return Trade{}, err
	}
	return row, nil
}

func (s *TradeStore) GetForUpdate(ctx context.Context, tx Getter, tradeID string) (Trade, error) {
	var row Trade
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, tradeColumns, s.table)
	if err := tx.GetContext(ctx, &row, query, tradeID); err != nil {
		return Trade{}, err
	}
	return row, nil
}

// ListByQuestion returns every trade against a question regardless of
// status; the resolution sweep decides what still needs settling.
func (s *TradeStore) ListByQuestion(ctx context.Context, questionID string) ([]Trade, error) {
	var rows []Trade
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE question_id = $1`, tradeColumns, s.table)
	if err := s.db.SelectContext(ctx, &rows, query, questionID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TradeStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Trade, error) {
	var rows []Trade
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, tradeColumns, s.table)
	if err := s.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkSettled moves a pending trade to its terminal status. The pending
// guard makes settlement single-shot; zero rows means the trade was
// already terminal.
func (s *TradeStore) MarkSettled(ctx context.Context, tx Execer, tradeID, status string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, settled_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`, s.table)
	res, err := tx.ExecContext(ctx, query, status, tradeID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
