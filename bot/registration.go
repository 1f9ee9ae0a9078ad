package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"mort/domain/entities"

	log "github.com/sirupsen/logrus"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	secretPattern   = regexp.MustCompile(`^\d{4,6}$`)
)

// handleRegistration drives the sign-up wizard for numbers without an
// account. Every message from an unknown number lands here until the wizard
// completes.
func (b *Bot) handleRegistration(ctx context.Context, chatID, text string) error {
	session := b.sessions.Get(chatID)
	if session == nil {
		b.sessions.Put(&Session{ChatID: chatID, Step: StepRegisterUsername})
		b.send(ctx, chatID, "👋 Welcome! I'm your casino wallet agent.\n\nLet's set up your account. First, pick a username (3-20 letters, numbers or underscores).")
		return nil
	}

	if isCancelSignal(text, "") {
		b.sessions.Clear(chatID)
		b.send(ctx, chatID, "👌 Cancelled. Message me again whenever you want to set up your account.")
		return nil
	}

	switch session.Step {
	case StepRegisterUsername:
		return b.registerUsername(ctx, session, text)
	case StepRegisterEmail:
		return b.registerEmail(ctx, session, text)
	case StepRegisterSecret:
		return b.registerSecret(ctx, session, text)
	case StepRegisterConfirm:
		return b.registerConfirm(ctx, session, text)
	default:
		// The account disappeared mid-wizard or the session is stale;
		// start over.
		b.sessions.Clear(chatID)
		return b.handleRegistration(ctx, chatID, text)
	}
}

func (b *Bot) registerUsername(ctx context.Context, session *Session, text string) error {
	username := strings.TrimSpace(text)
	if !usernamePattern.MatchString(username) {
		b.send(ctx, session.ChatID, "That username won't work — use 3-20 letters, numbers or underscores. Try another one.")
		return nil
	}

	taken, err := b.users.UsernameExists(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		b.send(ctx, session.ChatID, fmt.Sprintf("*%s* is already taken. Try another username.", username))
		return nil
	}

	session.Username = username
	session.Step = StepRegisterEmail
	b.sessions.Put(session)
	b.send(ctx, session.ChatID, fmt.Sprintf("Nice to meet you, %s! What's your email address?", username))
	return nil
}

func (b *Bot) registerEmail(ctx context.Context, session *Session, text string) error {
	email := strings.TrimSpace(text)
	if !emailPattern.MatchString(email) {
		b.send(ctx, session.ChatID, "That doesn't look like an email address. Try again.")
		return nil
	}

	session.Email = email
	session.Step = StepRegisterSecret
	b.sessions.Put(session)
	b.send(ctx, session.ChatID, "Almost done. Choose a PIN of 4-6 digits — you'll confirm it with every wager and transfer.")
	return nil
}

func (b *Bot) registerSecret(ctx context.Context, session *Session, text string) error {
	secret := strings.TrimSpace(text)
	if !secretPattern.MatchString(secret) {
		b.send(ctx, session.ChatID, "The PIN must be 4-6 digits. Try again.")
		return nil
	}

	session.Secret = secret
	session.Step = StepRegisterConfirm
	b.sessions.Put(session)
	b.send(ctx, session.ChatID, "Got it. Enter the same PIN once more to confirm.")
	return nil
}

func (b *Bot) registerConfirm(ctx context.Context, session *Session, text string) error {
	if strings.TrimSpace(text) != session.Secret {
		// Back to the PIN step with the rest of the wizard intact.
		session.Secret = ""
		session.Step = StepRegisterSecret
		b.sessions.Put(session)
		b.send(ctx, session.ChatID, "❌ The PINs didn't match. Choose a PIN of 4-6 digits.")
		return nil
	}

	hash, err := b.verifier.Hash(ctx, session.Secret)
	if err != nil {
		return fmt.Errorf("failed to hash secret: %w", err)
	}

	wallet, err := b.chain.CreateWallet(ctx, session.Username)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	user := &entities.User{
		ChatID:        session.ChatID,
		Username:      session.Username,
		Email:         session.Email,
		SecretHash:    hash,
		WalletID:      wallet.ID,
		WalletAddress: wallet.Address,
	}
	if err := b.users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	b.sessions.Clear(session.ChatID)

	log.WithFields(log.Fields{
		"chatId":   session.ChatID,
		"username": session.Username,
		"address":  wallet.Address,
	}).Info("Registered new user")

	b.fundNewWallet(ctx, wallet.Address)

	b.send(ctx, session.ChatID, fmt.Sprintf(`🎉 You're all set, %s!

Your wallet address:
%s

I've sent you %s AVAX to get started. Send *help* anytime to see what I can do.`,
		session.Username, wallet.Address, b.cfg.FundingAmount.String()))
	return nil
}

// fundNewWallet seeds a fresh wallet from the treasury. Best effort: a
// funding failure is logged and registration still completes.
func (b *Bot) fundNewWallet(ctx context.Context, address string) {
	if b.cfg.TreasuryWalletID == "" || b.cfg.FundingAmount.IsZero() {
		return
	}
	treasury := entities.Wallet{ID: b.cfg.TreasuryWalletID, Address: b.cfg.TreasuryAddress}
	txHash, err := b.chain.SubmitValueTransfer(ctx, treasury, address, b.cfg.FundingAmount)
	if err != nil {
		log.WithError(err).WithField("address", address).Error("Failed to fund new wallet")
		return
	}
	log.WithFields(log.Fields{
		"address": address,
		"amount":  b.cfg.FundingAmount,
		"txHash":  txHash,
	}).Info("Funded new wallet from treasury")
}
