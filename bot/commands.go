package bot

import (
	"context"
	"fmt"

	"mort/domain/entities"

	log "github.com/sirupsen/logrus"
)

// handleBalance reads the wallet balance and, when the price source answers,
// adds a USD estimate.
func (b *Bot) handleBalance(ctx context.Context, user *entities.User) error {
	balance, err := b.chain.Balance(ctx, user.WalletAddress)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}

	body := fmt.Sprintf("💰 Your balance: %s AVAX", balance.String())

	price, err := b.price.USDPrice(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch AVAX price")
	} else if price.IsPositive() {
		body += fmt.Sprintf(" (≈ $%s)", balance.Mul(price).Round(2).String())
	}

	b.send(ctx, user.ChatID, body)
	return nil
}

// handleReceive shows the user's deposit address
func (b *Bot) handleReceive(ctx context.Context, user *entities.User) error {
	b.send(ctx, user.ChatID, fmt.Sprintf("📥 Your deposit address:\n\n%s\n\nAnything sent here lands in your casino wallet.", user.WalletAddress))
	return nil
}
