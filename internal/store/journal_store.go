package store

import (
	"context"
	"time"
)

// JournalStore is the append/update log of monetary events. Entries are
// never deleted: a trade's placement entry is created once and its status
// and description are rewritten exactly once at settlement.
type JournalStore struct {
	db DB
}

type JournalEntry struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	TradeID     *string   `db:"trade_id"`
	TradeDomain *string   `db:"trade_domain"`
	Type        string    `db:"type"`
	Status      string    `db:"status"`
	Amount      int64     `db:"amount"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type JournalEntryInput struct {
	ID          string
	UserID      string
	TradeID     *string
	TradeDomain *string
	Type        string
	Status      string
	Amount      int64
	Description string
}

func NewJournalStore(db DB) *JournalStore {
	return &JournalStore{db: db}
}

func (s *JournalStore) Insert(ctx context.Context, tx Execer, input JournalEntryInput) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, trade_id, trade_domain, type, status, amount, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, input.ID, input.UserID, input.TradeID, input.TradeDomain, input.Type, input.Status, input.Amount, input.Description)
	return err
}

// UpdateByTradeAndType flips the placement entry of a settled trade. The
// trade id plus entry type is the natural key: one placement entry exists
// per trade.
func (s *JournalStore) UpdateByTradeAndType(ctx context.Context, tx Execer, tradeID, entryType, status, description string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET status = $1, description = $2, updated_at = NOW()
		WHERE trade_id = $3 AND type = $4
	`, status, description, tradeID, entryType)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *JournalStore) ListByUser(ctx context.Context, userID, entryType string, limit, offset int) ([]JournalEntry, error) {
	var rows []JournalEntry
	query := `
		SELECT id, user_id, trade_id, trade_domain, type, status, amount, description, created_at, updated_at
		FROM transactions
		WHERE user_id = $1
	`
	args := []any{userID}
	if entryType != "" {
		query += " AND type = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4"
		args = append(args, entryType, limit, offset)
	} else {
		query += " ORDER BY created_at DESC LIMIT $2 OFFSET $3"
		args = append(args, limit, offset)
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
