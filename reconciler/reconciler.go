// Package reconciler applies decoded chain events to pending game records.
// Every handler follows the same shape: load the record, attempt the guarded
// status transition, and only on a successful transition update user stats
// and notify the player. The conditional transition makes redelivery and
// backfill replays harmless.
package reconciler

import (
	"context"
	"fmt"

	"mort/domain/entities"
	"mort/domain/events"
	"mort/domain/interfaces"
	"mort/observability"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Terminal result values written to game records
const (
	ResultWon  = "won"
	ResultLost = "lost"
	ResultDraw = "draw"
)

// Reconciler consumes the supervisor's event stream
type Reconciler struct {
	games     interfaces.GameRecordRepository
	users     interfaces.UserRepository
	messenger interfaces.Messenger
	prompter  interfaces.GuessPrompter
	metrics   *observability.MetricsProvider
}

// New creates a reconciler
func New(
	games interfaces.GameRecordRepository,
	users interfaces.UserRepository,
	messenger interfaces.Messenger,
	prompter interfaces.GuessPrompter,
	metrics *observability.MetricsProvider,
) *Reconciler {
	return &Reconciler{
		games:     games,
		users:     users,
		messenger: messenger,
		prompter:  prompter,
		metrics:   metrics,
	}
}

// Run drains the event stream until ctx is cancelled or the stream closes.
// Handler errors are logged and never stop the loop: an event that fails to
// apply leaves its record non-terminal, so a later redelivery can retry it.
func (r *Reconciler) Run(ctx context.Context, stream <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			if err := r.HandleEvent(ctx, event); err != nil {
				log.WithError(err).WithFields(log.Fields{
					"eventType":  event.Type(),
					"requestKey": event.RequestKey(),
				}).Error("Failed to reconcile chain event")
			}
		}
	}
}

// HandleEvent applies a single decoded event to its game record
func (r *Reconciler) HandleEvent(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.FlipResolvedEvent:
		return r.handleFlipResolved(ctx, e)
	case events.RPSResultEvent:
		return r.handleRPSResult(ctx, e)
	case events.LuckyReadyEvent:
		return r.handleLuckyReady(ctx, e)
	case events.LuckyResultEvent:
		return r.handleLuckyResult(ctx, e)
	default:
		log.WithField("eventType", event.Type()).Warn("Ignoring unknown event type")
		return nil
	}
}

func (r *Reconciler) handleFlipResolved(ctx context.Context, e events.FlipResolvedEvent) error {
	record, err := r.loadRecord(ctx, e.Type(), e.Key)
	if err != nil || record == nil {
		return err
	}

	result, payout := ResultLost, decimal.Zero
	if e.Won {
		result, payout = ResultWon, e.Payout
	}

	applied, err := r.games.ResolveFrom(ctx, e.Key,
		[]entities.GameStatus{entities.GameStatusPending},
		interfaces.GameResolution{Result: result, Payout: payout})
	if err != nil {
		return fmt.Errorf("failed to resolve flip record %s: %w", e.Key, err)
	}
	if !applied {
		r.skipDuplicate(e.Type(), e.Key)
		return nil
	}
	r.metrics.RecordEventReconciled(string(e.Type()))

	r.recordOutcome(ctx, record.ChatID, payout, e.Won)
	r.notify(ctx, record.ChatID, flipOutcomeMessage(record.Choice, e))

	log.WithFields(log.Fields{
		"requestKey": e.Key,
		"result":     result,
		"payout":     payout,
	}).Info("Resolved coin flip")
	return nil
}

func (r *Reconciler) handleRPSResult(ctx context.Context, e events.RPSResultEvent) error {
	record, err := r.loadRecord(ctx, e.Type(), e.Key)
	if err != nil || record == nil {
		return err
	}

	var result string
	payout := decimal.Zero
	switch e.Outcome {
	case events.RPSOutcomeWin:
		result, payout = ResultWon, e.Prize
	case events.RPSOutcomeDraw:
		// A draw returns the stake; it counts as neither a win nor a loss
		// for the earnings tally.
		result, payout = ResultDraw, e.Prize
	default:
		result = ResultLost
	}

	applied, err := r.games.ResolveFrom(ctx, e.Key,
		[]entities.GameStatus{entities.GameStatusPending},
		interfaces.GameResolution{Result: result, Payout: payout})
	if err != nil {
		return fmt.Errorf("failed to resolve RPS record %s: %w", e.Key, err)
	}
	if !applied {
		r.skipDuplicate(e.Type(), e.Key)
		return nil
	}
	r.metrics.RecordEventReconciled(string(e.Type()))

	r.recordOutcome(ctx, record.ChatID, payout, e.Outcome == events.RPSOutcomeWin)
	r.notify(ctx, record.ChatID, rpsOutcomeMessage(e))

	log.WithFields(log.Fields{
		"requestKey": e.Key,
		"result":     result,
		"payout":     payout,
	}).Info("Resolved rock-paper-scissors game")
	return nil
}

func (r *Reconciler) handleLuckyReady(ctx context.Context, e events.LuckyReadyEvent) error {
	record, err := r.loadRecord(ctx, e.Type(), e.Key)
	if err != nil || record == nil {
		return err
	}

	applied, err := r.games.MarkReadyIfPending(ctx, e.Key, e.Numbers)
	if err != nil {
		return fmt.Errorf("failed to mark record %s ready: %w", e.Key, err)
	}
	if !applied {
		r.skipDuplicate(e.Type(), e.Key)
		return nil
	}
	r.metrics.RecordEventReconciled(string(e.Type()))

	log.WithFields(log.Fields{
		"requestKey": e.Key,
		"numbers":    e.Numbers,
	}).Info("Lucky-number game ready for a guess")

	r.prompter.OfferGuess(ctx, record.ChatID, e.Key, e.Numbers)
	return nil
}

func (r *Reconciler) handleLuckyResult(ctx context.Context, e events.LuckyResultEvent) error {
	record, err := r.loadRecord(ctx, e.Type(), e.Key)
	if err != nil || record == nil {
		return err
	}

	won := e.Outcome == events.LuckyOutcomeWin
	result, payout := ResultLost, decimal.Zero
	if won {
		result, payout = ResultWon, e.Prize
	}

	// The result can legitimately arrive from any non-terminal status: the
	// contract resolves unguessed games on its own once the guess window
	// closes.
	winningIndex := e.WinningIndex
	applied, err := r.games.ResolveFrom(ctx, e.Key,
		[]entities.GameStatus{
			entities.GameStatusPending,
			entities.GameStatusReady,
			entities.GameStatusGuessed,
		},
		interfaces.GameResolution{Result: result, Payout: payout, WinningIndex: &winningIndex})
	if err != nil {
		return fmt.Errorf("failed to resolve lucky record %s: %w", e.Key, err)
	}
	if !applied {
		r.skipDuplicate(e.Type(), e.Key)
		return nil
	}
	r.metrics.RecordEventReconciled(string(e.Type()))

	r.recordOutcome(ctx, record.ChatID, payout, won)
	r.notify(ctx, record.ChatID, luckyOutcomeMessage(record, e))

	log.WithFields(log.Fields{
		"requestKey":   e.Key,
		"result":       result,
		"winningIndex": e.WinningIndex,
		"payout":       payout,
	}).Info("Resolved lucky-number game")
	return nil
}

// loadRecord fetches the record an event settles. A missing record is not an
// error: the event may belong to a wager submitted outside this deployment.
func (r *Reconciler) loadRecord(ctx context.Context, eventType events.EventType, key string) (*entities.GameRecord, error) {
	record, err := r.games.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", key, err)
	}
	if record == nil {
		log.WithFields(log.Fields{
			"eventType":  eventType,
			"requestKey": key,
		}).Debug("No record for chain event, skipping")
		r.metrics.RecordEventSkipped(string(eventType), observability.SkipReasonNoRecord)
		return nil, nil
	}
	return record, nil
}

func (r *Reconciler) skipDuplicate(eventType events.EventType, key string) {
	log.WithFields(log.Fields{
		"eventType":  eventType,
		"requestKey": key,
	}).Debug("Record already past this transition, skipping duplicate event")
	r.metrics.RecordEventSkipped(string(eventType), observability.SkipReasonDuplicate)
}

// recordOutcome updates the player's aggregate stats. Failures are logged
// and swallowed: the game record is already resolved and stats are advisory.
func (r *Reconciler) recordOutcome(ctx context.Context, chatID string, payout decimal.Decimal, won bool) {
	if err := r.users.RecordGameOutcome(ctx, chatID, payout, won); err != nil {
		log.WithError(err).WithField("chatId", chatID).Error("Failed to update game stats")
	}
}

// notify sends the outcome message. Fire-and-forget: a failed send is logged
// and never retried, the chain state is already settled.
func (r *Reconciler) notify(ctx context.Context, chatID, body string) {
	if err := r.messenger.SendText(ctx, chatID, body); err != nil {
		log.WithError(err).WithField("chatId", chatID).Error("Failed to send outcome notification")
	}
}

func flipOutcomeMessage(choice int, e events.FlipResolvedEvent) string {
	if e.Won {
		return fmt.Sprintf("🎉 The coin landed on %s — you won!\n\n%s AVAX has been sent to your wallet.",
			entities.FlipChoiceLabel(choice), e.Payout.String())
	}
	return fmt.Sprintf("😔 The coin landed on %s — you lost this one. Better luck next time!",
		entities.FlipChoiceLabel(entities.FlipComplement(choice)))
}

func rpsOutcomeMessage(e events.RPSResultEvent) string {
	player := entities.RPSChoiceLabel(e.PlayerChoice)
	computer := entities.RPSChoiceLabel(e.ComputerChoice)

	switch e.Outcome {
	case events.RPSOutcomeWin:
		return fmt.Sprintf("🎉 %s beats %s — you won!\n\n%s AVAX has been sent to your wallet.",
			player, computer, e.Prize.String())
	case events.RPSOutcomeDraw:
		return fmt.Sprintf("🤝 You both played %s — it's a draw. Your stake has been returned.", player)
	default:
		return fmt.Sprintf("😔 %s beats %s — you lost this one. Better luck next time!", computer, player)
	}
}

func luckyOutcomeMessage(record *entities.GameRecord, e events.LuckyResultEvent) string {
	position := e.WinningIndex + 1
	detail := fmt.Sprintf("number %d", position)
	if e.WinningIndex >= 0 && e.WinningIndex < len(record.DrawnNumbers) {
		detail = fmt.Sprintf("%d (number %d)", record.DrawnNumbers[e.WinningIndex], position)
	}

	if e.Outcome == events.LuckyOutcomeWin {
		return fmt.Sprintf("🎉 The winning number was %s — you guessed right!\n\n%s AVAX has been sent to your wallet.",
			detail, e.Prize.String())
	}
	return fmt.Sprintf("😔 The winning number was %s — not your pick this time. Better luck next time!", detail)
}
