// Package testhelpers provides mock implementations of the domain interfaces
// for unit tests.
package testhelpers

import (
	"context"

	"mort/domain/entities"
	"mort/domain/interfaces"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByChatID(ctx context.Context, chatID string) (*entities.User, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ResolveUsername(ctx context.Context, username string) (*entities.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) UpdateLastSeen(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

func (m *MockUserRepository) RecordGameOutcome(ctx context.Context, chatID string, payout decimal.Decimal, won bool) error {
	args := m.Called(ctx, chatID, payout, won)
	return args.Error(0)
}

func (m *MockUserRepository) IncrementTransactionCount(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

// MockGameRecordRepository is a mock implementation of GameRecordRepository
type MockGameRecordRepository struct {
	mock.Mock
}

func (m *MockGameRecordRepository) Get(ctx context.Context, requestKey string) (*entities.GameRecord, error) {
	args := m.Called(ctx, requestKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GameRecord), args.Error(1)
}

func (m *MockGameRecordRepository) Create(ctx context.Context, record *entities.GameRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockGameRecordRepository) MarkReadyIfPending(ctx context.Context, requestKey string, numbers []int64) (bool, error) {
	args := m.Called(ctx, requestKey, numbers)
	return args.Bool(0), args.Error(1)
}

func (m *MockGameRecordRepository) MarkGuessed(ctx context.Context, requestKey string, guessIndex int, guessTxHash string) error {
	args := m.Called(ctx, requestKey, guessIndex, guessTxHash)
	return args.Error(0)
}

func (m *MockGameRecordRepository) ResolveFrom(ctx context.Context, requestKey string, allowed []entities.GameStatus, res interfaces.GameResolution) (bool, error) {
	args := m.Called(ctx, requestKey, allowed, res)
	return args.Bool(0), args.Error(1)
}

// MockChainClient is a mock implementation of ChainClient
type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) CreateWallet(ctx context.Context, ownerHint string) (entities.Wallet, error) {
	args := m.Called(ctx, ownerHint)
	return args.Get(0).(entities.Wallet), args.Error(1)
}

func (m *MockChainClient) SubmitValueTransfer(ctx context.Context, from entities.Wallet, toAddress string, amount decimal.Decimal) (string, error) {
	args := m.Called(ctx, from, toAddress, amount)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) SubmitGameCall(ctx context.Context, from entities.Wallet, kind entities.GameKind, choice int, amount decimal.Decimal) (*interfaces.GameSubmission, error) {
	args := m.Called(ctx, from, kind, choice, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.GameSubmission), args.Error(1)
}

func (m *MockChainClient) SubmitGuess(ctx context.Context, from entities.Wallet, requestKey string, guessIndex int) (string, error) {
	args := m.Called(ctx, from, requestKey, guessIndex)
	return args.String(0), args.Error(1)
}

func (m *MockChainClient) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockMessenger is a mock implementation of Messenger
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendText(ctx context.Context, chatID, body string) error {
	args := m.Called(ctx, chatID, body)
	return args.Error(0)
}

func (m *MockMessenger) SendMenu(ctx context.Context, chatID string, menu interfaces.Menu) error {
	args := m.Called(ctx, chatID, menu)
	return args.Error(0)
}

// MockSecretVerifier is a mock implementation of SecretVerifier
type MockSecretVerifier struct {
	mock.Mock
}

func (m *MockSecretVerifier) Hash(ctx context.Context, secret string) (string, error) {
	args := m.Called(ctx, secret)
	return args.String(0), args.Error(1)
}

func (m *MockSecretVerifier) Verify(ctx context.Context, secret, hash string) (bool, error) {
	args := m.Called(ctx, secret, hash)
	return args.Bool(0), args.Error(1)
}

// MockGuessPrompter is a mock implementation of GuessPrompter
type MockGuessPrompter struct {
	mock.Mock
}

func (m *MockGuessPrompter) OfferGuess(ctx context.Context, chatID, requestKey string, numbers []int64) {
	m.Called(ctx, chatID, requestKey, numbers)
}

// MockPriceSource is a mock implementation of PriceSource
type MockPriceSource struct {
	mock.Mock
}

func (m *MockPriceSource) USDPrice(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
