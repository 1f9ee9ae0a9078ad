package testutil

import (
	"fmt"

	"mort/domain/entities"

	"github.com/shopspring/decimal"
)

// NewTestUser builds a user entity with sensible defaults
func NewTestUser(chatID, username string) *entities.User {
	return &entities.User{
		ChatID:        chatID,
		Username:      username,
		Email:         fmt.Sprintf("%s@example.com", username),
		SecretHash:    "$2a$12$testhashtesthashtesthashtesthashtesthashtesthashtest",
		WalletID:      "wallet-" + username,
		WalletAddress: fmt.Sprintf("0x%040x", len(username)),
		TotalEarned:   decimal.Zero,
	}
}

// NewTestGameRecord builds a pending game record
func NewTestGameRecord(requestKey, chatID string, kind entities.GameKind) *entities.GameRecord {
	return &entities.GameRecord{
		RequestKey: requestKey,
		ChatID:     chatID,
		Username:   "testuser",
		Kind:       kind,
		Wager:      decimal.RequireFromString("0.001"),
		Choice:     entities.FlipHeads,
		Status:     entities.GameStatusPending,
		TxHash:     "0xsubmission",
		Payout:     decimal.Zero,
	}
}
