// Package events defines the decoded on-chain event variants consumed by the
// reconciler. Raw logs are decoded at the subscription boundary so everything
// past that point is a pure function of (record status, event).
package events

import (
	"mort/domain/entities"

	"github.com/shopspring/decimal"
)

// EventType represents the different chain events the system watches
type EventType string

const (
	EventTypeFlipResolved EventType = "flip_resolved"
	EventTypeRPSResult    EventType = "rps_result"
	EventTypeLuckyReady   EventType = "lucky_ready"
	EventTypeLuckyResult  EventType = "lucky_result"
)

// Event is the base interface for all decoded game events
type Event interface {
	Type() EventType
	Game() entities.GameKind
	// RequestKey is the string form of the contract-assigned request
	// identifier; it keys the pending game record the event settles.
	RequestKey() string
}

// FlipResolvedEvent reports the outcome of a coin flip wager
type FlipResolvedEvent struct {
	Key    string
	Won    bool
	Payout decimal.Decimal
	Block  uint64
}

func (e FlipResolvedEvent) Type() EventType         { return EventTypeFlipResolved }
func (e FlipResolvedEvent) Game() entities.GameKind { return entities.GameCoinFlip }
func (e FlipResolvedEvent) RequestKey() string      { return e.Key }

// RPS outcomes as encoded by the contract
const (
	RPSOutcomeWin  = 0
	RPSOutcomeLoss = 1
	RPSOutcomeDraw = 2
)

// RPSResultEvent reports the outcome of a rock-paper-scissors wager
type RPSResultEvent struct {
	Key            string
	Outcome        int
	PlayerChoice   int
	ComputerChoice int
	Prize          decimal.Decimal
	Block          uint64
}

func (e RPSResultEvent) Type() EventType         { return EventTypeRPSResult }
func (e RPSResultEvent) Game() entities.GameKind { return entities.GameRPS }
func (e RPSResultEvent) RequestKey() string      { return e.Key }

// LuckyReadyEvent reveals the drawn numbers for a lucky-number game.
// It is an intermediate signal: the winner has not been chosen yet.
type LuckyReadyEvent struct {
	Key     string
	Numbers []int64
	Block   uint64
}

func (e LuckyReadyEvent) Type() EventType         { return EventTypeLuckyReady }
func (e LuckyReadyEvent) Game() entities.GameKind { return entities.GameLuckyNumber }
func (e LuckyReadyEvent) RequestKey() string      { return e.Key }

// Lucky-number outcomes as encoded by the contract
const (
	LuckyOutcomeWin  = 0
	LuckyOutcomeLoss = 1
)

// LuckyResultEvent reports the final outcome of a lucky-number game
type LuckyResultEvent struct {
	Key          string
	Outcome      int
	WinningIndex int
	Prize        decimal.Decimal
	Block        uint64
}

func (e LuckyResultEvent) Type() EventType         { return EventTypeLuckyResult }
func (e LuckyResultEvent) Game() entities.GameKind { return entities.GameLuckyNumber }
func (e LuckyResultEvent) RequestKey() string      { return e.Key }
