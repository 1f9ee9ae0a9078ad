package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"mort/domain/entities"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// transferPattern matches "send <amount> to <recipient>" where the recipient
// is either a raw address or a registered username.
var transferPattern = regexp.MustCompile(`(?i)^send\s+([\d.]+)\s+to\s+(0x[a-fA-F0-9]{40}|[a-zA-Z0-9_]{3,20})$`)

// startTransferDetails opens the guided transfer entry for a bare "send"
// command or one that didn't parse.
func (b *Bot) startTransferDetails(ctx context.Context, user *entities.User) error {
	b.sessions.Put(&Session{ChatID: user.ChatID, Step: StepTransferDetails})
	b.send(ctx, user.ChatID, "💸 Who gets the funds? Use the format:\n\n*send <amount> to <username or 0x address>*\n\nSend *cancel* to back out.")
	return nil
}

// handleTransferDetails parses the details message. Bad syntax re-prompts
// and keeps the step alive.
func (b *Bot) handleTransferDetails(ctx context.Context, user *entities.User, text string) error {
	match := transferPattern.FindStringSubmatch(text)
	if match == nil {
		b.send(ctx, user.ChatID, "I couldn't read that. Use *send <amount> to <username or 0x address>*, or send *cancel*.")
		return nil
	}
	return b.startTransfer(ctx, user, match[1], match[2])
}

// startTransfer resolves the recipient and parks the transfer behind the PIN
// gate.
func (b *Bot) startTransfer(ctx context.Context, user *entities.User, rawAmount, recipient string) error {
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil || !amount.IsPositive() {
		b.send(ctx, user.ChatID, "That amount doesn't look right. Try something like *send 0.01 to alice*.")
		return nil
	}

	toAddress, toLabel, err := b.resolveRecipient(ctx, user, recipient)
	if err != nil {
		return err
	}
	if toAddress == "" {
		return nil
	}

	b.sessions.Put(&Session{
		ChatID:          user.ChatID,
		Step:            StepTransferSecret,
		TransferTo:      toAddress,
		TransferToLabel: toLabel,
		TransferAmount:  amount,
	})
	b.send(ctx, user.ChatID, fmt.Sprintf("You're sending %s AVAX to %s. Enter your PIN to confirm.", amount.String(), toLabel))
	return nil
}

// resolveRecipient turns a username or raw address into a destination
// address. An empty address with nil error means the user already got an
// explanation.
func (b *Bot) resolveRecipient(ctx context.Context, user *entities.User, recipient string) (address, label string, err error) {
	if strings.HasPrefix(strings.ToLower(recipient), "0x") {
		if strings.EqualFold(recipient, user.WalletAddress) {
			b.send(ctx, user.ChatID, "That's your own wallet — sending to yourself would only burn gas.")
			return "", "", nil
		}
		return recipient, recipient, nil
	}

	target, err := b.users.ResolveUsername(ctx, recipient)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve username %q: %w", recipient, err)
	}
	if target == nil {
		b.send(ctx, user.ChatID, fmt.Sprintf("I don't know anyone called *%s*. Check the username or use a wallet address.", recipient))
		return "", "", nil
	}
	if target.ChatID == user.ChatID {
		b.send(ctx, user.ChatID, "That's you! Sending to yourself would only burn gas.")
		return "", "", nil
	}
	return target.WalletAddress, target.Username, nil
}

// handleTransferSecret is the PIN gate in front of the transfer. A wrong PIN
// cancels it.
func (b *Bot) handleTransferSecret(ctx context.Context, user *entities.User, session *Session, text string) error {
	ok, err := b.verifier.Verify(ctx, strings.TrimSpace(text), user.SecretHash)
	if err != nil {
		return fmt.Errorf("failed to verify secret: %w", err)
	}
	if !ok {
		b.sessions.Clear(user.ChatID)
		b.send(ctx, user.ChatID, "❌ Wrong PIN — transfer cancelled.")
		return nil
	}
	b.sessions.Clear(user.ChatID)

	txHash, err := b.chain.SubmitValueTransfer(ctx, user.Wallet(), session.TransferTo, session.TransferAmount)
	if err != nil {
		b.send(ctx, user.ChatID, "⚠️ The transfer didn't go through — your funds are untouched. Please try again.")
		return fmt.Errorf("failed to submit transfer: %w", err)
	}
	b.metrics.RecordTransfer()

	if err := b.users.IncrementTransactionCount(ctx, user.ChatID); err != nil {
		log.WithError(err).WithField("chatId", user.ChatID).Warn("Failed to bump transaction count")
	}

	log.WithFields(log.Fields{
		"chatId": user.ChatID,
		"to":     session.TransferTo,
		"amount": session.TransferAmount,
		"txHash": txHash,
	}).Info("Submitted transfer")

	b.send(ctx, user.ChatID, fmt.Sprintf("✅ Sent %s AVAX to %s.\n\nTransaction: %s",
		session.TransferAmount.String(), session.TransferToLabel, txHash))
	return nil
}
