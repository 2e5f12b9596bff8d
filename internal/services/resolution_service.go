package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"predictmarket/internal/cache"
	"predictmarket/internal/db"
	"predictmarket/internal/domain"
	"predictmarket/internal/metrics"
	"predictmarket/internal/money"
	"predictmarket/internal/store"
	"predictmarket/internal/websocket"

	"github.com/google/uuid"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrQuestionResolved = errors.New("question already resolved")
	ErrTradeNotFound    = errors.New("trade not found")
	ErrTradeSettled     = errors.New("trade already settled")
)

// ResolutionService settles questions: it writes the terminal question
// status, sweeps every trade against the question, credits winners, flips
// journal entries, and cascades Winner-market resolutions to sibling
// questions on the same match.
type ResolutionService struct {
	txRunner db.TxRunner
	stores   StoreSet
	balances BalanceStore
	journal  JournalStore
	audit    AuditStore
	hub      Notifier
	cache    *cache.QuestionCache
	logger   *zap.Logger
}

func NewResolutionService(txRunner db.TxRunner, stores StoreSet, balances BalanceStore, journal JournalStore, audit AuditStore, hub Notifier, questionCache *cache.QuestionCache, logger *zap.Logger) *ResolutionService {
	return &ResolutionService{
		txRunner: txRunner,
		stores:   stores,
		balances: balances,
		journal:  journal,
		audit:    audit,
		hub:      hub,
		cache:    questionCache,
		logger:   logger,
	}
}

type ResolutionSummary struct {
	Domain      domain.Domain       `json:"domain"`
	QuestionID  string              `json:"question_id"`
	WinningSide domain.Side         `json:"winning_side"`
	Settled     int                 `json:"settled"`
	Winners     int                 `json:"winners"`
	Losers      int                 `json:"losers"`
	Skipped     int                 `json:"skipped"`
	Failed      int                 `json:"failed"`
	Cascaded    []ResolutionSummary `json:"cascaded,omitempty"`
}

func (r ResolutionSummary) Message() string {
	msg := fmt.Sprintf("question %s resolved %s: %d settled (%d won, %d lost)",
		r.QuestionID, r.WinningSide, r.Settled, r.Winners, r.Losers)
	if r.Failed > 0 {
		msg += fmt.Sprintf(", %d failed", r.Failed)
	}
	if len(r.Cascaded) > 0 {
		msg += fmt.Sprintf(", %d sibling question(s) resolved", len(r.Cascaded))
	}
	return msg
}

// ResolveQuestion transitions the question to its terminal status and
// settles all trades against it. The status write commits before the trade
// sweep starts, so concurrent placements observe the question as non-active
// the moment settlement begins.
func (s *ResolutionService) ResolveQuestion(ctx context.Context, d domain.Domain, questionID string, side domain.Side, actorID string) (ResolutionSummary, error) {
	return s.resolve(ctx, d, questionID, side, actorID, true)
}

func (s *ResolutionService) resolve(ctx context.Context, d domain.Domain, questionID string, side domain.Side, actorID string, cascade bool) (ResolutionSummary, error) {
	stores, err := s.stores.forDomain(d)
	if err != nil {
		return ResolutionSummary{}, err
	}

	var question store.Question
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		question, err = stores.Questions.GetForUpdate(ctx, tx, questionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrQuestionNotFound
			}
			return err
		}
		if question.Status != domain.QuestionActive {
			return ErrQuestionResolved
		}
		rows, err := stores.Questions.MarkResolved(ctx, tx, questionID, domain.ResolvedStatus(side), actorID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrQuestionResolved
		}
		data, _ := json.Marshal(map[string]string{
			"domain": d.String(),
			"side":   string(side),
		})
		return s.audit.Log(ctx, tx, actorID, "resolve_question", "question", questionID, string(data))
	})
	if err != nil {
		return ResolutionSummary{}, err
	}
	metrics.QuestionsResolved.WithLabelValues(d.String()).Inc()

	summary := ResolutionSummary{Domain: d, QuestionID: questionID, WinningSide: side}
	trades, err := stores.Trades.ListByQuestion(ctx, questionID)
	if err != nil {
		// The question is already terminal; surface the failure so the
		// operator can retry the sweep (re-resolution is rejected, but the
		// pending trades can still be settled individually).
		return summary, fmt.Errorf("question resolved but trade sweep failed: %w", err)
	}

	affected := make(map[string]struct{})
	for _, trade := range trades {
		outcome, err := s.settleOne(ctx, d, stores, trade, side)
		if err != nil {
			summary.Failed++
			metrics.SettlementFailures.WithLabelValues(d.String()).Inc()
			s.logger.Warn("trade settlement failed, continuing sweep",
				zap.String("domain", d.String()),
				zap.String("question_id", questionID),
				zap.String("trade_id", trade.ID),
				zap.Error(err),
			)
			continue
		}
		switch outcome {
		case outcomeWon:
			summary.Settled++
			summary.Winners++
			affected[trade.UserID] = struct{}{}
			metrics.TradesSettled.WithLabelValues(d.String(), "won").Inc()
			metrics.PayoutAmount.Observe(float64(trade.Payout))
		case outcomeLost:
			summary.Settled++
			summary.Losers++
			affected[trade.UserID] = struct{}{}
			metrics.TradesSettled.WithLabelValues(d.String(), "lost").Inc()
		case outcomeSkipped:
			summary.Skipped++
		}
	}

	if cascade && d == domain.Sports && question.Category == domain.WinnerCategory && question.MatchID != nil {
		siblings, err := stores.Questions.FindWinnerSiblings(ctx, *question.MatchID, questionID)
		if err != nil {
			s.logger.Error("winner cascade lookup failed",
				zap.String("match_id", *question.MatchID),
				zap.Error(err),
			)
		}
		for _, sibling := range siblings {
			sibSummary, err := s.resolve(ctx, d, sibling.ID, side.Invert(), actorID, false)
			if err != nil {
				if errors.Is(err, ErrQuestionResolved) {
					continue
				}
				s.logger.Error("winner cascade resolution failed",
					zap.String("question_id", sibling.ID),
					zap.Error(err),
				)
				continue
			}
			summary.Cascaded = append(summary.Cascaded, sibSummary)
		}
	}

	s.cache.Invalidate(ctx, d)
	s.hub.NotifyAll(websocket.Event{Channels: []string{"questions"}})
	for userID := range affected {
		s.hub.Notify(userID, websocket.Event{Channels: []string{"trades", "transactions", "balance"}})
	}
	return summary, nil
}

// ResolveTrade settles a single trade without touching its parent question,
// the admin override path for stuck or disputed trades.
func (s *ResolutionService) ResolveTrade(ctx context.Context, d domain.Domain, tradeID string, side domain.Side, actorID string) (TradeSettlement, error) {
	stores, err := s.stores.forDomain(d)
	if err != nil {
		return TradeSettlement{}, err
	}
	var settlement TradeSettlement
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		trade, err := stores.Trades.GetForUpdate(ctx, tx, tradeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTradeNotFound
			}
			return err
		}
		if trade.Status != domain.TradePending {
			return ErrTradeSettled
		}
		won, err := s.applySettlement(ctx, tx, d, stores, trade, side)
		if err != nil {
			return err
		}
		settlement = TradeSettlement{
			Domain:  d,
			TradeID: trade.ID,
			UserID:  trade.UserID,
			Won:     won,
			Payout:  trade.Payout,
		}
		data, _ := json.Marshal(map[string]string{
			"domain": d.String(),
			"side":   string(side),
		})
		return s.audit.Log(ctx, tx, actorID, "resolve_trade", "trade", tradeID, string(data))
	})
	if err != nil {
		return TradeSettlement{}, err
	}
	result := "lost"
	if settlement.Won {
		result = "won"
		metrics.PayoutAmount.Observe(float64(settlement.Payout))
	}
	metrics.TradesSettled.WithLabelValues(d.String(), result).Inc()
	s.hub.Notify(settlement.UserID, websocket.Event{Channels: []string{"trades", "transactions", "balance"}})
	return settlement, nil
}

type TradeSettlement struct {
	Domain  domain.Domain `json:"domain"`
	TradeID string        `json:"trade_id"`
	UserID  string        `json:"user_id"`
	Won     bool          `json:"won"`
	Payout  int64         `json:"payout"`
}

type settleOutcome int

const (
	outcomeSkipped settleOutcome = iota
	outcomeWon
	outcomeLost
)

// settleOne runs one trade's settlement in its own transaction so a failure
// cannot poison the rest of the sweep.
func (s *ResolutionService) settleOne(ctx context.Context, d domain.Domain, stores DomainStores, trade store.Trade, winningSide domain.Side) (settleOutcome, error) {
	if trade.Status != domain.TradePending {
		return outcomeSkipped, nil
	}
	outcome := outcomeSkipped
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		won, err := s.applySettlement(ctx, tx, d, stores, trade, winningSide)
		if err != nil {
			return err
		}
		if won {
			outcome = outcomeWon
		} else {
			outcome = outcomeLost
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTradeSettled) {
			// Lost the race with another settlement of the same trade.
			return outcomeSkipped, nil
		}
		return outcomeSkipped, err
	}
	return outcome, nil
}

// applySettlement writes one trade's terminal status plus its balance and
// journal effects. Caller supplies the transaction.
func (s *ResolutionService) applySettlement(ctx context.Context, tx *sqlx.Tx, d domain.Domain, stores DomainStores, trade store.Trade, winningSide domain.Side) (bool, error) {
	isWinner := trade.Prediction == string(winningSide)
	status := domain.TradeFailed
	if isWinner {
		status = domain.TradeCompleted
	}
	rows, err := stores.Trades.MarkSettled(ctx, tx, trade.ID, status)
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, ErrTradeSettled
	}

	if isWinner {
		credited, err := s.balances.Credit(ctx, tx, trade.UserID, trade.Payout)
		if err != nil {
			return false, err
		}
		if credited == 0 {
			return false, fmt.Errorf("no balance row for user %s", trade.UserID)
		}
		tradeID := trade.ID
		tradeDomain := d.String()
		wonDescription := fmt.Sprintf("WON: payout %s on question %s", money.FormatMinor(trade.Payout), trade.QuestionID)
		if err := s.journal.Insert(ctx, tx, store.JournalEntryInput{
			ID:          uuid.NewString(),
			UserID:      trade.UserID,
			TradeID:     &tradeID,
			TradeDomain: &tradeDomain,
			Type:        domain.TxTradePayout,
			Status:      "completed",
			Amount:      trade.Payout,
			Description: wonDescription,
		}); err != nil {
			return false, err
		}
		if _, err := s.journal.UpdateByTradeAndType(ctx, tx, trade.ID, domain.TxTradePlacement, "completed", wonDescription); err != nil {
			return false, err
		}
		return true, nil
	}

	lostDescription := fmt.Sprintf("LOST: stake %s on question %s", money.FormatMinor(trade.Amount), trade.QuestionID)
	if _, err := s.journal.UpdateByTradeAndType(ctx, tx, trade.ID, domain.TxTradePlacement, "failed", lostDescription); err != nil {
		return false, err
	}
	return false, nil
}
