package bot

import (
	"context"
	"testing"

	"mort/config"
	"mort/domain/entities"
	"mort/domain/interfaces"
	"mort/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

const testChatID = "15551234567"

type botFixture struct {
	users     *testhelpers.MockUserRepository
	games     *testhelpers.MockGameRecordRepository
	chain     *testhelpers.MockChainClient
	verifier  *testhelpers.MockSecretVerifier
	messenger *testhelpers.MockMessenger
	price     *testhelpers.MockPriceSource
	sessions  *SessionStore
	bot       *Bot

	texts []string
	menus []interfaces.Menu
}

func newBotFixture() *botFixture {
	f := &botFixture{
		users:     &testhelpers.MockUserRepository{},
		games:     &testhelpers.MockGameRecordRepository{},
		chain:     &testhelpers.MockChainClient{},
		verifier:  &testhelpers.MockSecretVerifier{},
		messenger: &testhelpers.MockMessenger{},
		price:     &testhelpers.MockPriceSource{},
		sessions:  NewSessionStore(0),
	}

	f.messenger.On("SendText", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { f.texts = append(f.texts, args.String(2)) }).
		Return(nil)
	f.messenger.On("SendMenu", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { f.menus = append(f.menus, args.Get(2).(interfaces.Menu)) }).
		Return(nil)

	f.bot = New(f.users, f.games, f.chain, f.verifier, f.messenger, f.price, f.sessions, config.NewTestConfig(), nil)
	return f
}

func (f *botFixture) lastText() string {
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

func (f *botFixture) lastMenu() interfaces.Menu {
	if len(f.menus) == 0 {
		return interfaces.Menu{}
	}
	return f.menus[len(f.menus)-1]
}

func registeredUser() *entities.User {
	return &entities.User{
		ChatID:        testChatID,
		Username:      "alice",
		Email:         "alice@example.com",
		SecretHash:    "stored-hash",
		WalletID:      "wallet-1",
		WalletAddress: "0x00000000000000000000000000000000000000aa",
		TotalEarned:   decimal.Zero,
	}
}

// expectKnownUser wires the lookups every message from a registered user hits
func (f *botFixture) expectKnownUser(user *entities.User) {
	f.users.On("GetByChatID", mock.Anything, user.ChatID).Return(user, nil)
	f.users.On("UpdateLastSeen", mock.Anything, user.ChatID).Return(nil)
}

func (f *botFixture) message(t *testing.T, text string) {
	t.Helper()
	f.bot.HandleUserAction(context.Background(), testChatID, text, "")
}

func (f *botFixture) tap(t *testing.T, buttonID string) {
	t.Helper()
	f.bot.HandleUserAction(context.Background(), testChatID, "", buttonID)
}
