package interfaces

import (
	"context"

	"mort/domain/entities"

	"github.com/shopspring/decimal"
)

// SecretVerifier hashes and checks the short numeric secret gating every
// fund-moving action. Only the salted hash is ever stored.
type SecretVerifier interface {
	Hash(ctx context.Context, secret string) (string, error)
	Verify(ctx context.Context, secret, hash string) (bool, error)
}

// GameSubmission is the confirmed result of a wager-placing call: the
// request identifier the contract assigned and the submitting transaction.
type GameSubmission struct {
	RequestKey string
	TxHash     string
}

// ChainClient submits signed transactions for custodial wallets and answers
// read-only chain queries. Every method blocks until the chain has answered;
// submissions block until the transaction is included.
type ChainClient interface {
	// CreateWallet provisions a wallet at the remote signer
	CreateWallet(ctx context.Context, ownerHint string) (entities.Wallet, error)

	// SubmitValueTransfer sends native currency and waits for inclusion
	SubmitValueTransfer(ctx context.Context, from entities.Wallet, toAddress string, amount decimal.Decimal) (string, error)

	// SubmitGameCall places a wager on the given game, waits for inclusion
	// and decodes the submission event from the receipt
	SubmitGameCall(ctx context.Context, from entities.Wallet, kind entities.GameKind, choice int, amount decimal.Decimal) (*GameSubmission, error)

	// SubmitGuess locks in a lucky-number guess for an earlier wager
	SubmitGuess(ctx context.Context, from entities.Wallet, requestKey string, guessIndex int) (string, error)

	// Balance reads the native balance of an address
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Button is one tappable reply option on an interactive message
type Button struct {
	ID    string
	Title string
}

// Menu is an interactive message with reply buttons
type Menu struct {
	Header  string
	Body    string
	Footer  string
	Buttons []Button
}

// Messenger is the outbound side of the chat transport. Sends are
// fire-and-forget from the core's point of view: failures are logged by the
// caller and never retried or rolled back.
type Messenger interface {
	SendText(ctx context.Context, chatID, body string) error
	SendMenu(ctx context.Context, chatID string, menu Menu) error
}

// GuessPrompter lets the reconciler hand a ready lucky-number game back to
// the session layer so the user can be asked for a guess.
type GuessPrompter interface {
	OfferGuess(ctx context.Context, chatID, requestKey string, numbers []int64)
}

// PriceSource quotes the native token's fiat price for balance displays
type PriceSource interface {
	// USDPrice returns the current USD price of the native token; a zero
	// price with nil error means the source was unavailable.
	USDPrice(ctx context.Context) (decimal.Decimal, error)
}
