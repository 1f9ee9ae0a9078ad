// Package bot implements the conversational core: the command router, the
// per-chat session wizards and the outbound message composition. It is
// transport-agnostic; the chat adapter hands it normalized inbound messages
// and it talks back through the Messenger interface.
package bot

import (
	"context"
	"fmt"
	"strings"

	"mort/config"
	"mort/domain/entities"
	"mort/domain/interfaces"
	"mort/observability"

	log "github.com/sirupsen/logrus"
)

// Bot routes inbound chat messages to command and wizard handlers
type Bot struct {
	users     interfaces.UserRepository
	games     interfaces.GameRecordRepository
	chain     interfaces.ChainClient
	verifier  interfaces.SecretVerifier
	messenger interfaces.Messenger
	price     interfaces.PriceSource
	sessions  *SessionStore
	cfg       *config.Config
	metrics   *observability.MetricsProvider
}

// New creates the bot
func New(
	users interfaces.UserRepository,
	games interfaces.GameRecordRepository,
	chain interfaces.ChainClient,
	verifier interfaces.SecretVerifier,
	messenger interfaces.Messenger,
	price interfaces.PriceSource,
	sessions *SessionStore,
	cfg *config.Config,
	metrics *observability.MetricsProvider,
) *Bot {
	return &Bot{
		users:     users,
		games:     games,
		chain:     chain,
		verifier:  verifier,
		messenger: messenger,
		price:     price,
		sessions:  sessions,
		cfg:       cfg,
		metrics:   metrics,
	}
}

// HandleUserAction processes one inbound message. text is the free-form body;
// buttonID is set instead when the user tapped an interactive reply button.
// Errors are handled here: the user gets an apology, the log gets the cause.
func (b *Bot) HandleUserAction(ctx context.Context, chatID, text, buttonID string) {
	b.metrics.RecordMessageHandled()

	if err := b.dispatch(ctx, chatID, strings.TrimSpace(text), buttonID); err != nil {
		log.WithError(err).WithField("chatId", chatID).Error("Failed to handle user action")
		b.send(ctx, chatID, "⚠️ Something went wrong on our side. Please try again in a moment.")
	}
}

func (b *Bot) dispatch(ctx context.Context, chatID, text, buttonID string) error {
	user, err := b.users.GetByChatID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	// Unknown numbers go through registration before anything else.
	if user == nil {
		return b.handleRegistration(ctx, chatID, text)
	}

	if err := b.users.UpdateLastSeen(ctx, chatID); err != nil {
		log.WithError(err).WithField("chatId", chatID).Warn("Failed to update last seen")
	}

	// A live wizard step consumes the message before command parsing.
	if session := b.sessions.Get(chatID); session != nil {
		return b.handleWizardStep(ctx, user, session, text, buttonID)
	}

	if buttonID != "" {
		return b.handleButton(ctx, user, buttonID)
	}
	return b.handleCommand(ctx, user, text)
}

// handleWizardStep routes a message to the handler for the session's step.
// A cancel signal aborts any wizard, whatever step it is on.
func (b *Bot) handleWizardStep(ctx context.Context, user *entities.User, session *Session, text, buttonID string) error {
	if isCancelSignal(text, buttonID) {
		b.sessions.Clear(session.ChatID)
		b.send(ctx, user.ChatID, "👌 Cancelled. Send *help* to see what I can do.")
		return nil
	}

	switch session.Step {
	case StepGameAmount:
		return b.handleGameAmount(ctx, user, session, buttonID)
	case StepGameSecret:
		return b.handleGameSecret(ctx, user, session, text)
	case StepTransferDetails:
		return b.handleTransferDetails(ctx, user, text)
	case StepTransferSecret:
		return b.handleTransferSecret(ctx, user, session, text)
	case StepGuessNumber:
		return b.handleGuessNumber(ctx, user, session, buttonID)
	case StepGuessSecret:
		return b.handleGuessSecret(ctx, user, session, text)
	default:
		// A registration step for an already-registered user means stale
		// state; drop it and parse the message normally.
		b.sessions.Clear(session.ChatID)
		if buttonID != "" {
			return b.handleButton(ctx, user, buttonID)
		}
		return b.handleCommand(ctx, user, text)
	}
}

func (b *Bot) handleCommand(ctx context.Context, user *entities.User, text string) error {
	if match := transferPattern.FindStringSubmatch(text); match != nil {
		return b.startTransfer(ctx, user, match[1], match[2])
	}

	switch strings.ToLower(text) {
	case "play", "games", "game":
		return b.sendGameMenu(ctx, user.ChatID)
	case "balance":
		return b.handleBalance(ctx, user)
	case "receive", "address", "deposit":
		return b.handleReceive(ctx, user)
	case "send", "transfer":
		return b.startTransferDetails(ctx, user)
	case "help", "menu", "hi", "hello", "start":
		b.send(ctx, user.ChatID, helpText(user.Username))
		return nil
	default:
		// A send attempt that didn't parse gets the guided entry rather
		// than a shrug.
		if strings.HasPrefix(strings.ToLower(text), "send ") {
			return b.startTransferDetails(ctx, user)
		}
		b.send(ctx, user.ChatID, "I didn't catch that. Send *help* to see what I can do.")
		return nil
	}
}

func (b *Bot) handleButton(ctx context.Context, user *entities.User, buttonID string) error {
	switch buttonID {
	case buttonGameFlip:
		return b.startFlip(ctx, user)
	case buttonGameRPS:
		return b.startRPS(ctx, user)
	case buttonGameLucky:
		return b.startLucky(ctx, user)
	case buttonFlipHeads:
		return b.startStakeSelection(ctx, user, entities.GameCoinFlip, entities.FlipHeads)
	case buttonFlipTails:
		return b.startStakeSelection(ctx, user, entities.GameCoinFlip, entities.FlipTails)
	case buttonRPSRock:
		return b.startStakeSelection(ctx, user, entities.GameRPS, entities.RPSRock)
	case buttonRPSPaper:
		return b.startStakeSelection(ctx, user, entities.GameRPS, entities.RPSPaper)
	case buttonRPSScissor:
		return b.startStakeSelection(ctx, user, entities.GameRPS, entities.RPSScissor)
	default:
		b.send(ctx, user.ChatID, "That button has expired. Send *play* to start a new game.")
		return nil
	}
}

// send delivers a plain text message, logging delivery failures
func (b *Bot) send(ctx context.Context, chatID, body string) {
	if err := b.messenger.SendText(ctx, chatID, body); err != nil {
		log.WithError(err).WithField("chatId", chatID).Error("Failed to send message")
	}
}

// sendMenu delivers an interactive menu, logging delivery failures
func (b *Bot) sendMenu(ctx context.Context, chatID string, menu interfaces.Menu) {
	if err := b.messenger.SendMenu(ctx, chatID, menu); err != nil {
		log.WithError(err).WithField("chatId", chatID).Error("Failed to send menu")
	}
}

func helpText(username string) string {
	return fmt.Sprintf(`Hey %s! 👋 Here's what I can do:

🎲 *play* — pick a game and place a wager
💰 *balance* — check your wallet balance
📥 *receive* — show your deposit address
💸 *send <amount> to <user or 0x address>* — transfer AVAX

Every wager and transfer is confirmed with your PIN, and *cancel* backs out of whatever we're doing.`, username)
}

// buttonCancel is accepted alongside the literal text "cancel" at every
// wizard step.
const buttonCancel = "cancel_operation"

// isCancelSignal reports whether a message is a request to abort the
// current wizard
func isCancelSignal(text, buttonID string) bool {
	return buttonID == buttonCancel || strings.EqualFold(strings.TrimSpace(text), "cancel")
}
