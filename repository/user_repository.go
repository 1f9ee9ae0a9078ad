package repository

import (
	"context"
	"fmt"
	"strings"

	"mort/database"
	"mort/domain/entities"
	"mort/observability"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository implements the interfaces.UserRepository contract over postgres
type UserRepository struct {
	q       Queryable
	metrics *observability.MetricsProvider
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB, metrics *observability.MetricsProvider) *UserRepository {
	return &UserRepository{q: db.Pool, metrics: metrics}
}

const userColumns = `
	chat_id, username, email, secret_hash, wallet_id, wallet_address,
	games_played, total_earned, transaction_count, created_at, last_seen`

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(
		&user.ChatID,
		&user.Username,
		&user.Email,
		&user.SecretHash,
		&user.WalletID,
		&user.WalletAddress,
		&user.GamesPlayed,
		&user.TotalEarned,
		&user.TransactionCount,
		&user.CreatedAt,
		&user.LastSeen,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByChatID retrieves a user by their channel address
func (r *UserRepository) GetByChatID(ctx context.Context, chatID string) (*entities.User, error) {
	defer r.metrics.MeasureDatabaseQuery("user", "GetByChatID")()
	query := `SELECT ` + userColumns + ` FROM users WHERE chat_id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, chatID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by chat ID %s: %w", chatID, err)
	}
	return user, nil
}

// Create inserts the user record and its username index entry in one
// transaction, so the index never points at a missing user.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	defer r.metrics.MeasureDatabaseQuery("user", "Create")()
	tx, err := r.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	userQuery := `
		INSERT INTO users (chat_id, username, email, secret_hash, wallet_id, wallet_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, last_seen
	`
	err = tx.QueryRow(ctx, userQuery,
		user.ChatID,
		user.Username,
		user.Email,
		user.SecretHash,
		user.WalletID,
		user.WalletAddress,
	).Scan(&user.CreatedAt, &user.LastSeen)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.ChatID, err)
	}

	indexQuery := `INSERT INTO usernames (username_lower, chat_id) VALUES ($1, $2)`
	if _, err := tx.Exec(ctx, indexQuery, strings.ToLower(user.Username), user.ChatID); err != nil {
		return fmt.Errorf("failed to index username %s: %w", user.Username, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit user creation: %w", err)
	}
	return nil
}

// UsernameExists reports whether a username is taken (case-insensitive)
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	defer r.metrics.MeasureDatabaseQuery("user", "UsernameExists")()
	query := `SELECT EXISTS (SELECT 1 FROM usernames WHERE username_lower = $1)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, strings.ToLower(username)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username %s: %w", username, err)
	}
	return exists, nil
}

// ResolveUsername returns the user owning a username, or (nil, nil)
func (r *UserRepository) ResolveUsername(ctx context.Context, username string) (*entities.User, error) {
	defer r.metrics.MeasureDatabaseQuery("user", "ResolveUsername")()
	query := `
		SELECT ` + userColumns + `
		FROM users u
		JOIN usernames idx ON idx.chat_id = u.chat_id
		WHERE idx.username_lower = $1
	`

	user, err := scanUser(r.q.QueryRow(ctx, query, strings.ToLower(username)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve username %s: %w", username, err)
	}
	return user, nil
}

// UpdateLastSeen bumps the user's last-seen timestamp
func (r *UserRepository) UpdateLastSeen(ctx context.Context, chatID string) error {
	defer r.metrics.MeasureDatabaseQuery("user", "UpdateLastSeen")()
	query := `UPDATE users SET last_seen = NOW() WHERE chat_id = $1`

	if _, err := r.q.Exec(ctx, query, chatID); err != nil {
		return fmt.Errorf("failed to update last seen for %s: %w", chatID, err)
	}
	return nil
}

// RecordGameOutcome increments games-played and, on a win, adds the payout
// to total-earned. A single statement so the stat pair moves together.
func (r *UserRepository) RecordGameOutcome(ctx context.Context, chatID string, payout decimal.Decimal, won bool) error {
	defer r.metrics.MeasureDatabaseQuery("user", "RecordGameOutcome")()
	earned := decimal.Zero
	if won {
		earned = payout
	}

	query := `
		UPDATE users
		SET games_played = games_played + 1,
		    total_earned = total_earned + $1
		WHERE chat_id = $2
	`
	result, err := r.q.Exec(ctx, query, earned, chatID)
	if err != nil {
		return fmt.Errorf("failed to record game outcome for %s: %w", chatID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", chatID)
	}
	return nil
}

// IncrementTransactionCount bumps the user's transfer counter
func (r *UserRepository) IncrementTransactionCount(ctx context.Context, chatID string) error {
	defer r.metrics.MeasureDatabaseQuery("user", "IncrementTransactionCount")()
	query := `UPDATE users SET transaction_count = transaction_count + 1 WHERE chat_id = $1`

	result, err := r.q.Exec(ctx, query, chatID)
	if err != nil {
		return fmt.Errorf("failed to increment transaction count for %s: %w", chatID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found", chatID)
	}
	return nil
}
