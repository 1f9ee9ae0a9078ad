package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameKind identifies one of the supported on-chain games
type GameKind string

const (
	GameCoinFlip    GameKind = "coinflip"
	GameRPS         GameKind = "rps"
	GameLuckyNumber GameKind = "luckynumber"
)

// GameStatus is the lifecycle state of a pending game record.
// Transitions only move forward: pending -> ready -> guessed -> resolved
// (the ready/guessed steps exist only for the lucky-number game).
type GameStatus string

const (
	GameStatusPending  GameStatus = "pending"
	GameStatusReady    GameStatus = "ready"
	GameStatusGuessed  GameStatus = "guessed"
	GameStatusResolved GameStatus = "resolved"
)

// Coin flip choices as encoded in the contract call
const (
	FlipHeads = 0
	FlipTails = 1
)

// Rock-paper-scissors choices as encoded in the contract call
const (
	RPSRock    = 0
	RPSPaper   = 1
	RPSScissor = 2
)

// GameRecord tracks a submitted wager awaiting on-chain resolution.
// It is keyed by the request identifier the game contract assigned to
// the wager and reaches a terminal status exactly once.
type GameRecord struct {
	RequestKey   string          `db:"request_key"`
	ChatID       string          `db:"chat_id"`
	Username     string          `db:"username"`
	Kind         GameKind        `db:"kind"`
	Wager        decimal.Decimal `db:"wager"`
	Choice       int             `db:"choice"`        // flip/RPS choice; unused for lucky-number
	GuessIndex   *int            `db:"guess_index"`   // lucky-number only, set when the guess is submitted
	WinningIndex *int            `db:"winning_index"` // lucky-number only, set on resolution
	DrawnNumbers []int64         `db:"drawn_numbers"` // lucky-number only, set on GameReady
	Status       GameStatus      `db:"status"`
	Result       string          `db:"result"`
	Payout       decimal.Decimal `db:"payout"`
	TxHash       string          `db:"tx_hash"`
	GuessTxHash  string          `db:"guess_tx_hash"`
	CreatedAt    time.Time       `db:"created_at"`
	ResolvedAt   *time.Time      `db:"resolved_at"`
}

// IsTerminal reports whether the record has reached its final status
func (r *GameRecord) IsTerminal() bool {
	return r.Status == GameStatusResolved
}

// FlipChoiceLabel returns the display name of a coin flip choice
func FlipChoiceLabel(choice int) string {
	if choice == FlipHeads {
		return "Heads"
	}
	return "Tails"
}

// FlipComplement returns the opposite coin side
func FlipComplement(choice int) int {
	return 1 - choice
}

// RPSChoiceLabel returns the display name of an RPS choice
func RPSChoiceLabel(choice int) string {
	switch choice {
	case RPSRock:
		return "Rock"
	case RPSPaper:
		return "Paper"
	case RPSScissor:
		return "Scissor"
	default:
		return "Unknown"
	}
}
