package domain

import "errors"

var ErrUnknownDomain = errors.New("unknown question domain")

// Domain selects which question/trade table set an operation targets.
// News and sports questions behave identically at settlement time; sports
// questions additionally carry a match reference used by Winner cascades.
type Domain string

const (
	News   Domain = "news"
	Sports Domain = "sports"
)

func Parse(raw string) (Domain, error) {
	switch Domain(raw) {
	case News:
		return News, nil
	case Sports:
		return Sports, nil
	default:
		return "", ErrUnknownDomain
	}
}

func (d Domain) String() string {
	return string(d)
}

type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

var ErrInvalidSide = errors.New("side must be yes or no")

func ParseSide(raw string) (Side, error) {
	switch Side(raw) {
	case SideYes:
		return SideYes, nil
	case SideNo:
		return SideNo, nil
	default:
		return "", ErrInvalidSide
	}
}

// Invert flips a side for Winner-market cascades: resolving one team's
// question yes resolves the sibling team's question no, and vice versa.
func (s Side) Invert() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Question lifecycle. Transitions are monotonic: active moves to exactly one
// resolved status and never back.
const (
	QuestionActive      = "active"
	QuestionResolvedYes = "resolved_yes"
	QuestionResolvedNo  = "resolved_no"
)

// ResolvedStatus maps a winning side to the terminal question status.
func ResolvedStatus(side Side) string {
	if side == SideYes {
		return QuestionResolvedYes
	}
	return QuestionResolvedNo
}

// WinningSide is the reverse mapping, for terminal statuses only.
func WinningSide(status string) (Side, bool) {
	switch status {
	case QuestionResolvedYes:
		return SideYes, true
	case QuestionResolvedNo:
		return SideNo, true
	default:
		return "", false
	}
}

// Trade lifecycle. A pending trade settles to exactly one terminal status.
const (
	TradePending   = "pending"
	TradeCompleted = "completed"
	TradeFailed    = "failed"
)

// Journal entry types.
const (
	TxTradePlacement = "trade_placement"
	TxTradePayout    = "trade_payout"
	TxDeposit        = "deposit"
	TxAdjustment     = "adjustment"
)

// WinnerCategory marks sports questions whose resolution cascades to
// sibling questions on the same match.
const WinnerCategory = "Winner"
