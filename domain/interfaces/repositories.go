package interfaces

import (
	"context"

	"mort/domain/entities"

	"github.com/shopspring/decimal"
)

// UserRepository provides typed access to user records and the username index.
// Lookups return (nil, nil) when no record exists; absence is a normal branch,
// not an error.
type UserRepository interface {
	// GetByChatID retrieves a user by their channel address
	GetByChatID(ctx context.Context, chatID string) (*entities.User, error)

	// Create inserts the user record together with its username index entry.
	// The pair is written atomically so the index never points at a missing
	// user beyond a single failed registration attempt.
	Create(ctx context.Context, user *entities.User) error

	// UsernameExists reports whether a username is taken (case-insensitive)
	UsernameExists(ctx context.Context, username string) (bool, error)

	// ResolveUsername returns the user owning a username, or (nil, nil)
	ResolveUsername(ctx context.Context, username string) (*entities.User, error)

	// UpdateLastSeen bumps the user's last-seen timestamp
	UpdateLastSeen(ctx context.Context, chatID string) error

	// RecordGameOutcome increments games-played and, on a win, adds the
	// payout to total-earned
	RecordGameOutcome(ctx context.Context, chatID string, payout decimal.Decimal, won bool) error

	// IncrementTransactionCount bumps the user's transfer counter
	IncrementTransactionCount(ctx context.Context, chatID string) error
}

// GameResolution carries the terminal fields written when a record resolves
type GameResolution struct {
	Result       string
	Payout       decimal.Decimal
	WinningIndex *int
}

// GameRecordRepository provides typed access to pending game records
type GameRecordRepository interface {
	// Get retrieves a record by request key, or (nil, nil) when absent
	Get(ctx context.Context, requestKey string) (*entities.GameRecord, error)

	// Create inserts a freshly submitted wager record in status pending
	Create(ctx context.Context, record *entities.GameRecord) error

	// MarkReadyIfPending transitions pending -> ready and stores the drawn
	// numbers. Returns false without error when the record is absent or not
	// pending, which callers treat as a duplicate delivery.
	MarkReadyIfPending(ctx context.Context, requestKey string, numbers []int64) (bool, error)

	// MarkGuessed records the submitted guess on a lucky-number record
	MarkGuessed(ctx context.Context, requestKey string, guessIndex int, guessTxHash string) error

	// ResolveFrom transitions the record to resolved iff its current status
	// is one of allowed. The conditional write is the idempotency guard: a
	// duplicate or racing resolution sees false, nil and applies nothing.
	ResolveFrom(ctx context.Context, requestKey string, allowed []entities.GameStatus, res GameResolution) (bool, error)
}
