package repository

import (
	"context"
	"fmt"

	"mort/database"
	"mort/domain/entities"
	"mort/domain/interfaces"
	"mort/observability"

	"github.com/jackc/pgx/v5"
)

// GameRecordRepository implements the interfaces.GameRecordRepository
// contract over postgres. Status transitions use conditional updates so a
// duplicate or racing writer degrades to a no-op instead of a double-credit.
type GameRecordRepository struct {
	q       Queryable
	metrics *observability.MetricsProvider
}

// NewGameRecordRepository creates a new game record repository
func NewGameRecordRepository(db *database.DB, metrics *observability.MetricsProvider) *GameRecordRepository {
	return &GameRecordRepository{q: db.Pool, metrics: metrics}
}

const gameRecordColumns = `
	request_key, chat_id, username, kind, wager, choice, guess_index,
	winning_index, drawn_numbers, status, result, payout, tx_hash,
	guess_tx_hash, created_at, resolved_at`

// Get retrieves a record by request key, or (nil, nil) when absent
func (r *GameRecordRepository) Get(ctx context.Context, requestKey string) (*entities.GameRecord, error) {
	defer r.metrics.MeasureDatabaseQuery("game_record", "Get")()
	query := `SELECT ` + gameRecordColumns + ` FROM game_records WHERE request_key = $1`

	var record entities.GameRecord
	var kind, status string
	err := r.q.QueryRow(ctx, query, requestKey).Scan(
		&record.RequestKey,
		&record.ChatID,
		&record.Username,
		&kind,
		&record.Wager,
		&record.Choice,
		&record.GuessIndex,
		&record.WinningIndex,
		&record.DrawnNumbers,
		&status,
		&record.Result,
		&record.Payout,
		&record.TxHash,
		&record.GuessTxHash,
		&record.CreatedAt,
		&record.ResolvedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game record %s: %w", requestKey, err)
	}

	record.Kind = entities.GameKind(kind)
	record.Status = entities.GameStatus(status)
	return &record, nil
}

// Create inserts a freshly submitted wager record in status pending
func (r *GameRecordRepository) Create(ctx context.Context, record *entities.GameRecord) error {
	defer r.metrics.MeasureDatabaseQuery("game_record", "Create")()
	query := `
		INSERT INTO game_records (request_key, chat_id, username, kind, wager, choice, status, tx_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err := r.q.QueryRow(ctx, query,
		record.RequestKey,
		record.ChatID,
		record.Username,
		string(record.Kind),
		record.Wager,
		record.Choice,
		string(entities.GameStatusPending),
		record.TxHash,
	).Scan(&record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game record %s: %w", record.RequestKey, err)
	}

	record.Status = entities.GameStatusPending
	return nil
}

// MarkReadyIfPending transitions pending -> ready and stores the drawn
// numbers. Returns false when the record is absent or not pending.
func (r *GameRecordRepository) MarkReadyIfPending(ctx context.Context, requestKey string, numbers []int64) (bool, error) {
	defer r.metrics.MeasureDatabaseQuery("game_record", "MarkReadyIfPending")()
	query := `
		UPDATE game_records
		SET status = $1, drawn_numbers = $2
		WHERE request_key = $3 AND status = $4
	`
	result, err := r.q.Exec(ctx, query,
		string(entities.GameStatusReady),
		numbers,
		requestKey,
		string(entities.GameStatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark game record %s ready: %w", requestKey, err)
	}
	return result.RowsAffected() > 0, nil
}

// MarkGuessed records the submitted guess on a lucky-number record
func (r *GameRecordRepository) MarkGuessed(ctx context.Context, requestKey string, guessIndex int, guessTxHash string) error {
	defer r.metrics.MeasureDatabaseQuery("game_record", "MarkGuessed")()
	query := `
		UPDATE game_records
		SET status = $1, guess_index = $2, guess_tx_hash = $3
		WHERE request_key = $4 AND status = $5
	`
	result, err := r.q.Exec(ctx, query,
		string(entities.GameStatusGuessed),
		guessIndex,
		guessTxHash,
		requestKey,
		string(entities.GameStatusReady),
	)
	if err != nil {
		return fmt.Errorf("failed to mark game record %s guessed: %w", requestKey, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("game record %s is not awaiting a guess", requestKey)
	}
	return nil
}

// ResolveFrom transitions the record to resolved iff its current status is
// one of allowed. The WHERE clause is the compare-and-swap that makes
// resolution idempotent under redelivery.
func (r *GameRecordRepository) ResolveFrom(ctx context.Context, requestKey string, allowed []entities.GameStatus, res interfaces.GameResolution) (bool, error) {
	defer r.metrics.MeasureDatabaseQuery("game_record", "ResolveFrom")()
	states := make([]string, len(allowed))
	for i, s := range allowed {
		states[i] = string(s)
	}

	query := `
		UPDATE game_records
		SET status = $1, result = $2, payout = $3, winning_index = $4, resolved_at = NOW()
		WHERE request_key = $5 AND status = ANY($6)
	`
	result, err := r.q.Exec(ctx, query,
		string(entities.GameStatusResolved),
		res.Result,
		res.Payout,
		res.WinningIndex,
		requestKey,
		states,
	)
	if err != nil {
		return false, fmt.Errorf("failed to resolve game record %s: %w", requestKey, err)
	}
	return result.RowsAffected() > 0, nil
}
