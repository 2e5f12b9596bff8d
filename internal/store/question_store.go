package store

import (
	"context"
	"fmt"
	"time"

	"predictmarket/internal/domain"
)

// QuestionStore reads and writes one domain's question table. News and
// sports questions share a schema; the domain tag picks the table, which
// keeps resolution logic identical across both.
type QuestionStore struct {
	db    DB
	table string
}

type Question struct {
	ID            string     `db:"id"`
	Title         string     `db:"title"`
	Category      string     `db:"category"`
	MatchID       *string    `db:"match_id"`
	YesPercentage string     `db:"yes_percentage"`
	NoPercentage  string     `db:"no_percentage"`
	Status        string     `db:"status"`
	ClosesAt      time.Time  `db:"closes_at"`
	CreatedAt     time.Time  `db:"created_at"`
	ResolvedAt    *time.Time `db:"resolved_at"`
	ResolvedBy    *string    `db:"resolved_by"`
}

type QuestionInput struct {
	ID            string
	Title         string
	Category      string
	MatchID       *string
	YesPercentage string
	NoPercentage  string
	ClosesAt      time.Time
}

func NewQuestionStore(db DB, d domain.Domain) *QuestionStore {
	return &QuestionStore{db: db, table: string(d) + "_questions"}
}

const questionColumns = "id, title, category, match_id, yes_percentage, no_percentage, status, closes_at, created_at, resolved_at, resolved_by"

func (s *QuestionStore) Create(ctx context.Context, tx Execer, input QuestionInput) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, category, match_id, yes_percentage, no_percentage, status, closes_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'active', $7)
	`, s.table)
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.Title, input.Category, input.MatchID,
		input.YesPercentage, input.NoPercentage, input.ClosesAt,
	)
	return err
}

func (s *QuestionStore) Get(ctx context.Context, questionID string) (Question, error) {
	var row Question
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, questionColumns, s.table)
	if err := s.db.GetContext(ctx, &row, query, questionID); err != nil {
		return Question{}, err
	}
	return row, nil
}

func (s *QuestionStore) GetForUpdate(ctx context.Context, tx Getter, questionID string) (Question, error) {
	var row Question
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 FOR UPDATE`, questionColumns, s.table)
	if err := tx.GetContext(ctx, &row, query, questionID); err != nil {
		return Question{}, err
	}
	return row, nil
}

func (s *QuestionStore) ListByStatus(ctx context.Context, status string, limit, offset int) ([]Question, error) {
	var rows []Question
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE status = $1
		ORDER BY closes_at ASC
		LIMIT $2 OFFSET $3
	`, questionColumns, s.table)
	if err := s.db.SelectContext(ctx, &rows, query, status, limit, offset); err != nil {
		return nil, err
	}
	return rows, nil
}

// FindWinnerSiblings returns the other still-active Winner questions on the
// same match, the set a Winner resolution cascades into.
func (s *QuestionStore) FindWinnerSiblings(ctx context.Context, matchID, excludeID string) ([]Question, error) {
	var rows []Question
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE match_id = $1 AND category = $2 AND status = 'active' AND id <> $3
	`, questionColumns, s.table)
	if err := s.db.SelectContext(ctx, &rows, query, matchID, domain.WinnerCategory, excludeID); err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkResolved writes the terminal status exactly once: the status guard
// makes a repeated resolution update zero rows.
func (s *QuestionStore) MarkResolved(ctx context.Context, tx Execer, questionID, status, resolvedBy string) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, resolved_at = NOW(), resolved_by = $2
		WHERE id = $3 AND status = 'active'
	`, s.table)
	res, err := tx.ExecContext(ctx, query, status, resolvedBy, questionID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
