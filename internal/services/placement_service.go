package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"predictmarket/internal/db"
	"predictmarket/internal/domain"
	"predictmarket/internal/metrics"
	"predictmarket/internal/money"
	"predictmarket/internal/store"
	"predictmarket/internal/websocket"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrQuestionNotActive   = errors.New("question is not open for trading")
	ErrInvalidAmount       = errors.New("invalid stake amount")
	ErrNoTrades            = errors.New("no trades to place")
)

// PlacementService opens positions: it validates every referenced question,
// precomputes payouts from the offered percentages, debits the stake total
// once, and records pending trades plus their journal entries. The whole
// placement is one transaction, so a failure on any step leaves no partial
// debit or orphaned trade behind.
type PlacementService struct {
	txRunner db.TxRunner
	stores   StoreSet
	balances BalanceStore
	journal  JournalStore
	hub      Notifier
	logger   *zap.Logger
}

func NewPlacementService(txRunner db.TxRunner, stores StoreSet, balances BalanceStore, journal JournalStore, hub Notifier, logger *zap.Logger) *PlacementService {
	return &PlacementService{
		txRunner: txRunner,
		stores:   stores,
		balances: balances,
		journal:  journal,
		hub:      hub,
		logger:   logger,
	}
}

// ProposedTrade carries the domain tag end to end; nothing downstream
// infers the domain from id shapes.
type ProposedTrade struct {
	Domain     domain.Domain
	QuestionID string
	Prediction domain.Side
	Amount     int64
}

type PlacedTrade struct {
	Domain     domain.Domain `json:"domain"`
	TradeID    string        `json:"trade_id"`
	QuestionID string        `json:"question_id"`
	Amount     int64         `json:"amount"`
	Payout     int64         `json:"payout"`
}

type PlacementResult struct {
	Trades       []PlacedTrade `json:"trades"`
	TotalDebited int64         `json:"total_debited"`
}

func (s *PlacementService) PlaceTrades(ctx context.Context, userID string, proposals []ProposedTrade) (PlacementResult, error) {
	if len(proposals) == 0 {
		return PlacementResult{}, ErrNoTrades
	}
	var total int64
	for _, p := range proposals {
		if p.Amount <= 0 {
			return PlacementResult{}, ErrInvalidAmount
		}
		if p.Prediction != domain.SideYes && p.Prediction != domain.SideNo {
			return PlacementResult{}, domain.ErrInvalidSide
		}
		if _, err := s.stores.forDomain(p.Domain); err != nil {
			return PlacementResult{}, err
		}
		total += p.Amount
	}

	var result PlacementResult
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		result = PlacementResult{TotalDebited: total}
		type placement struct {
			proposal ProposedTrade
			question store.Question
			payout   int64
		}
		placements := make([]placement, 0, len(proposals))
		now := time.Now()
		for _, p := range proposals {
			stores, err := s.stores.forDomain(p.Domain)
			if err != nil {
				return err
			}
			// Row lock on the question serializes placement against a
			// concurrent resolution of the same question.
			question, err := stores.Questions.GetForUpdate(ctx, tx, p.QuestionID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrQuestionNotFound
				}
				return err
			}
			if question.Status != domain.QuestionActive {
				return ErrQuestionNotActive
			}
			if !question.ClosesAt.IsZero() && question.ClosesAt.Before(now) {
				return ErrQuestionNotActive
			}
			offered := question.YesPercentage
			if p.Prediction == domain.SideNo {
				offered = question.NoPercentage
			}
			payout, err := money.Payout(p.Amount, offered)
			if err != nil {
				return err
			}
			placements = append(placements, placement{proposal: p, question: question, payout: payout})
		}

		debited, err := s.balances.Debit(ctx, tx, userID, total)
		if err != nil {
			return err
		}
		if debited == 0 {
			return ErrInsufficientBalance
		}

		for _, pl := range placements {
			stores, err := s.stores.forDomain(pl.proposal.Domain)
			if err != nil {
				return err
			}
			tradeID := uuid.NewString()
			if err := stores.Trades.Insert(ctx, tx, store.TradeInput{
				ID:         tradeID,
				QuestionID: pl.proposal.QuestionID,
				UserID:     userID,
				Prediction: string(pl.proposal.Prediction),
				Amount:     pl.proposal.Amount,
				Payout:     pl.payout,
			}); err != nil {
				return err
			}
			tradeDomain := pl.proposal.Domain.String()
			if err := s.journal.Insert(ctx, tx, store.JournalEntryInput{
				ID:          uuid.NewString(),
				UserID:      userID,
				TradeID:     &tradeID,
				TradeDomain: &tradeDomain,
				Type:        domain.TxTradePlacement,
				Status:      "pending",
				Amount:      -pl.proposal.Amount,
				Description: fmt.Sprintf("Placed %s on %s: %s", money.FormatMinor(pl.proposal.Amount), pl.proposal.Prediction, pl.question.Title),
			}); err != nil {
				return err
			}
			result.Trades = append(result.Trades, PlacedTrade{
				Domain:     pl.proposal.Domain,
				TradeID:    tradeID,
				QuestionID: pl.proposal.QuestionID,
				Amount:     pl.proposal.Amount,
				Payout:     pl.payout,
			})
		}
		return nil
	})
	if err != nil {
		return PlacementResult{}, err
	}

	for _, placed := range result.Trades {
		metrics.TradesPlaced.WithLabelValues(placed.Domain.String()).Inc()
	}
	s.logger.Info("trades placed",
		zap.String("user_id", userID),
		zap.Int("count", len(result.Trades)),
		zap.Int64("total_debited", total),
	)
	s.hub.Notify(userID, websocket.Event{Channels: []string{"trades", "transactions", "balance"}})
	return result, nil
}
