package store

import "context"

// BalanceStore holds the single scalar balance per user. Settlement only
// credits and placement only debits with a precondition, both as server-side
// atomic updates so overlapping settlements cannot lose increments.
type BalanceStore struct {
	db DB
}

type Balance struct {
	UserID     string `db:"user_id"`
	TotalValue int64  `db:"total_value"`
}

func NewBalanceStore(db DB) *BalanceStore {
	return &BalanceStore{db: db}
}

func (s *BalanceStore) Create(ctx context.Context, tx Execer, userID string, totalValue int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (user_id, total_value)
		VALUES ($1, $2)
	`, userID, totalValue)
	return err
}

func (s *BalanceStore) Get(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, `
		SELECT total_value
		FROM balances
		WHERE user_id = $1
	`, userID)
	return total, err
}

// Credit adds amount atomically. Used by settlement payouts and admin
// fund grants.
func (s *BalanceStore) Credit(ctx context.Context, tx Execer, userID string, amount int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE balances
		SET total_value = total_value + $1, updated_at = NOW()
		WHERE user_id = $2
	`, amount, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Debit subtracts amount only when the balance covers it; zero rows
// affected means insufficient funds. The balance can never go negative
// through this path.
func (s *BalanceStore) Debit(ctx context.Context, tx Execer, userID string, amount int64) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE balances
		SET total_value = total_value - $1, updated_at = NOW()
		WHERE user_id = $2 AND total_value >= $1
	`, amount, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
