package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"mort/domain/entities"
	"mort/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// Button identifiers for the game wizards
const (
	buttonGameFlip  = "game_flip"
	buttonGameRPS   = "game_rps"
	buttonGameLucky = "game_lucky"

	buttonFlipHeads = "flip_heads"
	buttonFlipTails = "flip_tails"

	buttonRPSRock    = "rps_rock"
	buttonRPSPaper   = "rps_paper"
	buttonRPSScissor = "rps_scissor"

	buttonStakePrefix = "stake_"
	buttonGuessPrefix = "guess_"
)

func (b *Bot) sendGameMenu(ctx context.Context, chatID string) error {
	b.sendMenu(ctx, chatID, interfaces.Menu{
		Header: "🎲 Pick a game",
		Body:   "All games run on-chain — results land in this chat as soon as the contract settles.",
		Buttons: []interfaces.Button{
			{ID: buttonGameFlip, Title: "Coin Flip"},
			{ID: buttonGameRPS, Title: "Rock Paper Scissors"},
			{ID: buttonGameLucky, Title: "Lucky Number"},
		},
	})
	return nil
}

func (b *Bot) startFlip(ctx context.Context, user *entities.User) error {
	b.sendMenu(ctx, user.ChatID, interfaces.Menu{
		Header: "🪙 Coin Flip",
		Body:   "Heads or tails? Win and double your stake.",
		Buttons: []interfaces.Button{
			{ID: buttonFlipHeads, Title: "Heads"},
			{ID: buttonFlipTails, Title: "Tails"},
		},
	})
	return nil
}

func (b *Bot) startRPS(ctx context.Context, user *entities.User) error {
	b.sendMenu(ctx, user.ChatID, interfaces.Menu{
		Header: "✂️ Rock Paper Scissors",
		Body:   "Beat the house to double your stake. A draw returns it.",
		Buttons: []interfaces.Button{
			{ID: buttonRPSRock, Title: "Rock"},
			{ID: buttonRPSPaper, Title: "Paper"},
			{ID: buttonRPSScissor, Title: "Scissor"},
		},
	})
	return nil
}

// startLucky skips the choice step: the guess comes later, after the
// contract reveals the drawn numbers.
func (b *Bot) startLucky(ctx context.Context, user *entities.User) error {
	return b.startStakeSelection(ctx, user, entities.GameLuckyNumber, 0)
}

// startStakeSelection stores the chosen game and offers the fixed stakes.
// Free-form amounts are deliberately not accepted.
func (b *Bot) startStakeSelection(ctx context.Context, user *entities.User, kind entities.GameKind, choice int) error {
	b.sessions.Put(&Session{
		ChatID: user.ChatID,
		Step:   StepGameAmount,
		Game:   kind,
		Choice: choice,
	})

	buttons := make([]interfaces.Button, 0, len(b.cfg.StakeAmounts))
	for i, stake := range b.cfg.StakeAmounts {
		buttons = append(buttons, interfaces.Button{
			ID:    fmt.Sprintf("%s%d", buttonStakePrefix, i),
			Title: stake.String() + " AVAX",
		})
	}

	b.sendMenu(ctx, user.ChatID, interfaces.Menu{
		Header:  "💰 Choose your stake",
		Body:    "How much do you want to wager?",
		Buttons: buttons,
	})
	return nil
}

func (b *Bot) handleGameAmount(ctx context.Context, user *entities.User, session *Session, buttonID string) error {
	if !strings.HasPrefix(buttonID, buttonStakePrefix) {
		b.send(ctx, user.ChatID, "Please pick one of the stake buttons above.")
		return nil
	}
	index, err := strconv.Atoi(strings.TrimPrefix(buttonID, buttonStakePrefix))
	if err != nil || index < 0 || index >= len(b.cfg.StakeAmounts) {
		b.send(ctx, user.ChatID, "Please pick one of the stake buttons above.")
		return nil
	}

	session.Amount = b.cfg.StakeAmounts[index]
	session.Step = StepGameSecret
	b.sessions.Put(session)

	b.send(ctx, user.ChatID, fmt.Sprintf("You're wagering %s AVAX. Enter your PIN to confirm.", session.Amount.String()))
	return nil
}

// handleGameSecret is the gate in front of the wager submission. A wrong PIN
// cancels the whole wizard.
func (b *Bot) handleGameSecret(ctx context.Context, user *entities.User, session *Session, text string) error {
	ok, err := b.verifier.Verify(ctx, strings.TrimSpace(text), user.SecretHash)
	if err != nil {
		return fmt.Errorf("failed to verify secret: %w", err)
	}
	if !ok {
		b.sessions.Clear(user.ChatID)
		b.send(ctx, user.ChatID, "❌ Wrong PIN — wager cancelled. Send *play* to start over.")
		return nil
	}

	b.sessions.Clear(user.ChatID)
	return b.submitWager(ctx, user, session)
}

func (b *Bot) submitWager(ctx context.Context, user *entities.User, session *Session) error {
	submission, err := b.chain.SubmitGameCall(ctx, user.Wallet(), session.Game, session.Choice, session.Amount)
	if err != nil {
		b.send(ctx, user.ChatID, "⚠️ The wager didn't go through — your funds are untouched. Please try again.")
		return fmt.Errorf("failed to submit %s wager: %w", session.Game, err)
	}

	record := &entities.GameRecord{
		RequestKey: submission.RequestKey,
		ChatID:     user.ChatID,
		Username:   user.Username,
		Kind:       session.Game,
		Wager:      session.Amount,
		Choice:     session.Choice,
		Status:     entities.GameStatusPending,
		TxHash:     submission.TxHash,
	}
	if err := b.games.Create(ctx, record); err != nil {
		// The wager is on-chain but untracked; its resolution event will
		// find no record. Surface loudly.
		return fmt.Errorf("failed to store game record %s: %w", submission.RequestKey, err)
	}
	b.metrics.RecordGameSubmitted(string(session.Game))

	log.WithFields(log.Fields{
		"chatId":     user.ChatID,
		"game":       session.Game,
		"requestKey": submission.RequestKey,
		"wager":      session.Amount,
	}).Info("Submitted wager")

	if session.Game == entities.GameLuckyNumber {
		b.send(ctx, user.ChatID, "🎰 Game on! The contract is drawing your numbers — I'll send them over in a moment.")
	} else {
		b.send(ctx, user.ChatID, "🎰 Wager placed! I'll message you the moment the contract settles.")
	}
	return nil
}

// OfferGuess asks the player to pick one of the drawn numbers. Called by the
// event reconciler when a lucky-number game becomes ready; implements
// interfaces.GuessPrompter.
func (b *Bot) OfferGuess(ctx context.Context, chatID, requestKey string, numbers []int64) {
	b.sessions.Put(&Session{
		ChatID:     chatID,
		Step:       StepGuessNumber,
		RequestKey: requestKey,
		Numbers:    numbers,
	})
	b.sendGuessMenu(ctx, chatID, numbers)
}

func (b *Bot) sendGuessMenu(ctx context.Context, chatID string, numbers []int64) {
	buttons := make([]interfaces.Button, 0, len(numbers))
	for i, n := range numbers {
		buttons = append(buttons, interfaces.Button{
			ID:    fmt.Sprintf("%s%d", buttonGuessPrefix, i),
			Title: strconv.FormatInt(n, 10),
		})
	}
	b.sendMenu(ctx, chatID, interfaces.Menu{
		Header:  "🔢 Your numbers are in!",
		Body:    "One of these is the winner. Which one do you pick?",
		Buttons: buttons,
	})
}

func (b *Bot) handleGuessNumber(ctx context.Context, user *entities.User, session *Session, buttonID string) error {
	if !strings.HasPrefix(buttonID, buttonGuessPrefix) {
		b.send(ctx, user.ChatID, "Please pick one of the number buttons above.")
		return nil
	}
	index, err := strconv.Atoi(strings.TrimPrefix(buttonID, buttonGuessPrefix))
	if err != nil || index < 0 || index >= len(session.Numbers) {
		b.send(ctx, user.ChatID, "Please pick one of the number buttons above.")
		return nil
	}

	session.GuessIndex = index
	session.Step = StepGuessSecret
	b.sessions.Put(session)

	b.send(ctx, user.ChatID, fmt.Sprintf("You picked %d. Enter your PIN to lock it in.", session.Numbers[index]))
	return nil
}

// handleGuessSecret gates the guess submission. Unlike the wager gate, a
// wrong PIN re-offers the numbers: the game is already paid for and waiting.
func (b *Bot) handleGuessSecret(ctx context.Context, user *entities.User, session *Session, text string) error {
	ok, err := b.verifier.Verify(ctx, strings.TrimSpace(text), user.SecretHash)
	if err != nil {
		return fmt.Errorf("failed to verify secret: %w", err)
	}
	if !ok {
		session.Step = StepGuessNumber
		b.sessions.Put(session)
		b.send(ctx, user.ChatID, "❌ Wrong PIN. Your game is still waiting — pick your number again.")
		b.sendGuessMenu(ctx, user.ChatID, session.Numbers)
		return nil
	}

	txHash, err := b.chain.SubmitGuess(ctx, user.Wallet(), session.RequestKey, session.GuessIndex)
	if err != nil {
		b.send(ctx, user.ChatID, "⚠️ The guess didn't go through. Pick your number again.")
		session.Step = StepGuessNumber
		b.sessions.Put(session)
		return fmt.Errorf("failed to submit guess for %s: %w", session.RequestKey, err)
	}

	if err := b.games.MarkGuessed(ctx, session.RequestKey, session.GuessIndex, txHash); err != nil {
		log.WithError(err).WithField("requestKey", session.RequestKey).Error("Failed to record guess")
	}
	b.sessions.Clear(user.ChatID)

	b.send(ctx, user.ChatID, fmt.Sprintf("🤞 Guess locked in: %d. I'll message you when the contract reveals the winner.",
		session.Numbers[session.GuessIndex]))
	return nil
}
