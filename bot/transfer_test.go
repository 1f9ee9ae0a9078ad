package bot

import (
	"testing"

	"mort/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTransferToUsername(t *testing.T) {
	f := newBotFixture()
	user := registeredUser()
	f.expectKnownUser(user)

	recipient := &entities.User{
		ChatID:        "15559876543",
		Username:      "bob",
		WalletAddress: "0x00000000000000000000000000000000000000bb",
	}
	amount := decimal.RequireFromString("0.01")

	f.users.On("ResolveUsername", mock.Anything, "bob").Return(recipient, nil)
	f.verifier.On("Verify", mock.Anything, "1234", "stored-hash").Return(true, nil)
	f.chain.On("SubmitValueTransfer", mock.Anything, user.Wallet(), recipient.WalletAddress, amount).
		Return("0xtransfer", nil)
	f.users.On("IncrementTransactionCount", mock.Anything, testChatID).Return(nil)

	f.message(t, "send 0.01 to bob")
	assert.Contains(t, f.lastText(), "bob")
	assert.Contains(t, f.lastText(), "PIN")

	session := f.sessions.Get(testChatID)
	require.NotNil(t, session)
	assert.Equal(t, StepTransferSecret, session.Step)

	f.message(t, "1234")

	assert.Contains(t, f.lastText(), "0xtransfer")
	assert.Nil(t, f.sessions.Get(testChatID))
	f.chain.AssertExpectations(t)
	f.users.AssertExpectations(t)
}

func TestTransferToRawAddress(t *testing.T) {
	f := newBotFixture()
	user := registeredUser()
	f.expectKnownUser(user)

	target := "0x00000000000000000000000000000000000000cc"
	amount := decimal.RequireFromString("0.5")

	f.verifier.On("Verify", mock.Anything, "1234", "stored-hash").Return(true, nil)
	f.chain.On("SubmitValueTransfer", mock.Anything, user.Wallet(), target, amount).Return("0xtransfer", nil)
	f.users.On("IncrementTransactionCount", mock.Anything, testChatID).Return(nil)

	f.message(t, "send 0.5 to "+target)
	f.message(t, "1234")

	f.chain.AssertExpectations(t)
}

func TestTransferToSelfByUsernameIsRejected(t *testing.T) {
	f := newBotFixture()
	user := registeredUser()
	f.expectKnownUser(user)

	f.users.On("ResolveUsername", mock.Anything, "alice").Return(user, nil)

	f.message(t, "send 0.01 to alice")

	assert.Contains(t, f.lastText(), "yourself")
	assert.Nil(t, f.sessions.Get(testChatID))
	f.chain.AssertNotCalled(t, "SubmitValueTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransferToOwnAddressIsRejected(t *testing.T) {
	f := newBotFixture()
	user := registeredUser()
	f.expectKnownUser(user)

	f.message(t, "send 0.01 to "+user.WalletAddress)

	assert.Contains(t, f.lastText(), "own wallet")
	assert.Nil(t, f.sessions.Get(testChatID))
}

func TestTransferToUnknownUsername(t *testing.T) {
	f := newBotFixture()
	f.expectKnownUser(registeredUser())

	f.users.On("ResolveUsername", mock.Anything, "nosuchuser").Return(nil, nil)

	f.message(t, "send 0.01 to nosuchuser")

	assert.Contains(t, f.lastText(), "nosuchuser")
	assert.Nil(t, f.sessions.Get(testChatID))
}

func TestWrongSecretCancelsTransfer(t *testing.T) {
	f := newBotFixture()
	user := registeredUser()
	f.expectKnownUser(user)

	recipient := &entities.User{
		ChatID:        "15559876543",
		Username:      "bob",
		WalletAddress: "0x00000000000000000000000000000000000000bb",
	}
	f.users.On("ResolveUsername", mock.Anything, "bob").Return(recipient, nil)
	f.verifier.On("Verify", mock.Anything, "9999", "stored-hash").Return(false, nil)

	f.message(t, "send 0.01 to bob")
	f.message(t, "9999")

	assert.Contains(t, f.lastText(), "cancelled")
	assert.Nil(t, f.sessions.Get(testChatID))
	f.chain.AssertNotCalled(t, "SubmitValueTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelAbandonsTransferAtSecretStep(t *testing.T) {
	f := newBotFixture()
	f.expectKnownUser(registeredUser())

	recipient := &entities.User{
		ChatID:        "15559876543",
		Username:      "bob",
		WalletAddress: "0x00000000000000000000000000000000000000bb",
	}
	f.users.On("ResolveUsername", mock.Anything, "bob").Return(recipient, nil)

	f.message(t, "send 0.01 to bob")
	f.message(t, "cancel")

	assert.Contains(t, f.lastText(), "Cancelled")
	assert.Nil(t, f.sessions.Get(testChatID))
	f.verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything)
	f.chain.AssertNotCalled(t, "SubmitValueTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGuidedTransferEntry(t *testing.T) {
	f := newBotFixture()
	f.expectKnownUser(registeredUser())

	recipient := &entities.User{
		ChatID:        "15559876543",
		Username:      "bob",
		WalletAddress: "0x00000000000000000000000000000000000000bb",
	}
	f.users.On("ResolveUsername", mock.Anything, "bob").Return(recipient, nil)

	f.message(t, "send")
	session := f.sessions.Get(testChatID)
	require.NotNil(t, session)
	assert.Equal(t, StepTransferDetails, session.Step)
	assert.Contains(t, f.lastText(), "send <amount> to")

	// Bad syntax re-prompts without losing the step.
	f.message(t, "give bob some money")
	assert.Equal(t, StepTransferDetails, f.sessions.Get(testChatID).Step)
	assert.Contains(t, f.lastText(), "couldn't read")

	f.message(t, "send 0.01 to bob")
	assert.Equal(t, StepTransferSecret, f.sessions.Get(testChatID).Step)
	assert.Contains(t, f.lastText(), "PIN")
}

func TestMalformedSendOpensGuidedEntry(t *testing.T) {
	f := newBotFixture()
	f.expectKnownUser(registeredUser())

	f.message(t, "send 5 bob")

	session := f.sessions.Get(testChatID)
	require.NotNil(t, session)
	assert.Equal(t, StepTransferDetails, session.Step)
}

func TestTransferPatternParsing(t *testing.T) {
	cases := []struct {
		text      string
		amount    string
		recipient string
	}{
		{"send 0.01 to bob", "0.01", "bob"},
		{"SEND 1 TO bob", "1", "bob"},
		{"send 0.5 to 0x00000000000000000000000000000000000000cc", "0.5", "0x00000000000000000000000000000000000000cc"},
	}
	for _, tc := range cases {
		match := transferPattern.FindStringSubmatch(tc.text)
		require.NotNil(t, match, tc.text)
		assert.Equal(t, tc.amount, match[1])
		assert.Equal(t, tc.recipient, match[2])
	}

	for _, text := range []string{
		"send to bob",
		"send 0.01 bob",
		"send 0.01 to x",
		"transfer 0.01 to bob",
	} {
		assert.Nil(t, transferPattern.FindStringSubmatch(text), text)
	}
}
