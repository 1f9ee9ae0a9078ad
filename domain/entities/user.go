package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered chat user with a custodial wallet
type User struct {
	ChatID           string          `db:"chat_id"` // opaque channel address (e.g. WhatsApp phone number)
	Username         string          `db:"username"`
	Email            string          `db:"email"`
	SecretHash       string          `db:"secret_hash"`
	WalletID         string          `db:"wallet_id"`
	WalletAddress    string          `db:"wallet_address"`
	GamesPlayed      int64           `db:"games_played"`
	TotalEarned      decimal.Decimal `db:"total_earned"`
	TransactionCount int64           `db:"transaction_count"`
	CreatedAt        time.Time       `db:"created_at"`
	LastSeen         time.Time       `db:"last_seen"`
}

// Wallet returns the signer handle and address pair for on-chain calls
func (u *User) Wallet() Wallet {
	return Wallet{ID: u.WalletID, Address: u.WalletAddress}
}

// Wallet is the handle the remote signer knows a user's account by,
// together with its public address.
type Wallet struct {
	ID      string
	Address string
}
