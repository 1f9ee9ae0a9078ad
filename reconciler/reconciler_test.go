package reconciler

import (
	"context"
	"testing"

	"mort/domain/entities"
	"mort/domain/events"
	"mort/domain/interfaces"
	"mort/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	games     *testhelpers.MockGameRecordRepository
	users     *testhelpers.MockUserRepository
	messenger *testhelpers.MockMessenger
	prompter  *testhelpers.MockGuessPrompter
	rec       *Reconciler
}

func newFixture() *fixture {
	f := &fixture{
		games:     &testhelpers.MockGameRecordRepository{},
		users:     &testhelpers.MockUserRepository{},
		messenger: &testhelpers.MockMessenger{},
		prompter:  &testhelpers.MockGuessPrompter{},
	}
	f.rec = New(f.games, f.users, f.messenger, f.prompter, nil)
	return f
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.games.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.messenger.AssertExpectations(t)
	f.prompter.AssertExpectations(t)
}

func pendingRecord(kind entities.GameKind, choice int) *entities.GameRecord {
	return &entities.GameRecord{
		RequestKey: "42",
		ChatID:     "15551234567",
		Username:   "alice",
		Kind:       kind,
		Wager:      decimal.RequireFromString("0.001"),
		Choice:     choice,
		Status:     entities.GameStatusPending,
	}
}

func TestHandleFlipResolvedWin(t *testing.T) {
	f := newFixture()
	payout := decimal.RequireFromString("0.002")

	f.games.On("Get", mock.Anything, "42").Return(pendingRecord(entities.GameCoinFlip, entities.FlipHeads), nil)
	f.games.On("ResolveFrom", mock.Anything, "42",
		[]entities.GameStatus{entities.GameStatusPending},
		interfaces.GameResolution{Result: ResultWon, Payout: payout}).Return(true, nil)
	f.users.On("RecordGameOutcome", mock.Anything, "15551234567", payout, true).Return(nil)
	var sent string
	f.messenger.On("SendText", mock.Anything, "15551234567", mock.MatchedBy(func(body string) bool {
		sent = body
		return true
	})).Return(nil)

	err := f.rec.HandleEvent(context.Background(), events.FlipResolvedEvent{Key: "42", Won: true, Payout: payout})
	require.NoError(t, err)

	assert.Contains(t, sent, "0.002")
	f.assertExpectations(t)
}

func TestHandleFlipResolvedLossReportsOppositeSide(t *testing.T) {
	f := newFixture()

	f.games.On("Get", mock.Anything, "42").Return(pendingRecord(entities.GameCoinFlip, entities.FlipHeads), nil)
	f.games.On("ResolveFrom", mock.Anything, "42",
		[]entities.GameStatus{entities.GameStatusPending},
		interfaces.GameResolution{Result: ResultLost, Payout: decimal.Zero}).Return(true, nil)
	f.users.On("RecordGameOutcome", mock.Anything, "15551234567", decimal.Zero, false).Return(nil)

	var sent string
	f.messenger.On("SendText", mock.Anything, "15551234567", mock.MatchedBy(func(body string) bool {
		sent = body
		return true
	})).Return(nil)

	err := f.rec.HandleEvent(context.Background(), events.FlipResolvedEvent{Key: "42", Won: false})
	require.NoError(t, err)

	// Player picked heads and lost, so the coin must have landed on tails.
	assert.Contains(t, sent, "Tails")
	f.assertExpectations(t)
}

func TestHandleFlipResolvedDuplicateIsSkipped(t *testing.T) {
	f := newFixture()

	f.games.On("Get", mock.Anything, "42").Return(pendingRecord(entities.GameCoinFlip, entities.FlipHeads), nil)
	f.games.On("ResolveFrom", mock.Anything, "42", mock.Anything, mock.Anything).Return(false, nil)

	err := f.rec.HandleEvent(context.Background(), events.FlipResolvedEvent{Key: "42", Won: true, Payout: decimal.RequireFromString("0.002")})
	require.NoError(t, err)

	f.users.AssertNotCalled(t, "RecordGameOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.messenger.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleFlipResolvedWithoutRecordIsSkipped(t *testing.T) {
	f := newFixture()

	f.games.On("Get", mock.Anything, "42").Return(nil, nil)

	err := f.rec.HandleEvent(context.Background(), events.FlipResolvedEvent{Key: "42", Won: true})
	require.NoError(t, err)

	f.games.AssertNotCalled(t, "ResolveFrom", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleRPSDrawReturnsStake(t *testing.T) {
	f := newFixture()
	stake := decimal.RequireFromString("0.01")

	f.games.On("Get", mock.Anything, "42").Return(pendingRecord(entities.GameRPS, entities.RPSRock), nil)
	f.games.On("ResolveFrom", mock.Anything, "42",
		[]entities.GameStatus{entities.GameStatusPending},
		interfaces.GameResolution{Result: ResultDraw, Payout: stake}).Return(true, nil)
	// A draw never counts as a win for the earnings tally.
	f.users.On("RecordGameOutcome", mock.Anything, "15551234567", stake, false).Return(nil)

	var sent string
	f.messenger.On("SendText", mock.Anything, "15551234567", mock.MatchedBy(func(body string) bool {
		sent = body
		return true
	})).Return(nil)

	err := f.rec.HandleEvent(context.Background(), events.RPSResultEvent{
		Key:            "42",
		Outcome:        events.RPSOutcomeDraw,
		PlayerChoice:   entities.RPSRock,
		ComputerChoice: entities.RPSRock,
		Prize:          stake,
	})
	require.NoError(t, err)

	assert.Contains(t, sent, "draw")
	f.assertExpectations(t)
}

func TestHandleLuckyReadyOffersGuess(t *testing.T) {
	f := newFixture()
	numbers := []int64{13, 48, 7}

	f.games.On("Get", mock.Anything, "42").Return(pendingRecord(entities.GameLuckyNumber, 0), nil)
	f.games.On("MarkReadyIfPending", mock.Anything, "42", numbers).Return(true, nil)
	f.prompter.On("OfferGuess", mock.Anything, "15551234567", "42", numbers).Return()

	err := f.rec.HandleEvent(context.Background(), events.LuckyReadyEvent{Key: "42", Numbers: numbers})
	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestHandleLuckyReadyDuplicateDoesNotReprompt(t *testing.T) {
	f := newFixture()
	numbers := []int64{13, 48, 7}

	f.games.On("Get", mock.Anything, "42").Return(pendingRecord(entities.GameLuckyNumber, 0), nil)
	f.games.On("MarkReadyIfPending", mock.Anything, "42", numbers).Return(false, nil)

	err := f.rec.HandleEvent(context.Background(), events.LuckyReadyEvent{Key: "42", Numbers: numbers})
	require.NoError(t, err)

	f.prompter.AssertNotCalled(t, "OfferGuess", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleLuckyResultAcceptsAnyNonTerminalStatus(t *testing.T) {
	f := newFixture()
	prize := decimal.RequireFromString("0.03")

	record := pendingRecord(entities.GameLuckyNumber, 0)
	record.Status = entities.GameStatusGuessed
	record.DrawnNumbers = []int64{13, 48, 7}

	winningIndex := 1
	f.games.On("Get", mock.Anything, "42").Return(record, nil)
	f.games.On("ResolveFrom", mock.Anything, "42",
		[]entities.GameStatus{
			entities.GameStatusPending,
			entities.GameStatusReady,
			entities.GameStatusGuessed,
		},
		interfaces.GameResolution{Result: ResultWon, Payout: prize, WinningIndex: &winningIndex}).Return(true, nil)
	f.users.On("RecordGameOutcome", mock.Anything, "15551234567", prize, true).Return(nil)

	var sent string
	f.messenger.On("SendText", mock.Anything, "15551234567", mock.MatchedBy(func(body string) bool {
		sent = body
		return true
	})).Return(nil)

	err := f.rec.HandleEvent(context.Background(), events.LuckyResultEvent{
		Key:          "42",
		Outcome:      events.LuckyOutcomeWin,
		WinningIndex: 1,
		Prize:        prize,
	})
	require.NoError(t, err)

	// Winning index 1 maps to drawn number 48.
	assert.Contains(t, sent, "48")
	f.assertExpectations(t)
}

func TestHandleLuckyResultDuplicateIsSkipped(t *testing.T) {
	f := newFixture()

	record := pendingRecord(entities.GameLuckyNumber, 0)
	record.Status = entities.GameStatusResolved

	f.games.On("Get", mock.Anything, "42").Return(record, nil)
	f.games.On("ResolveFrom", mock.Anything, "42", mock.Anything, mock.Anything).Return(false, nil)

	err := f.rec.HandleEvent(context.Background(), events.LuckyResultEvent{Key: "42", Outcome: events.LuckyOutcomeLoss, WinningIndex: 0})
	require.NoError(t, err)

	f.users.AssertNotCalled(t, "RecordGameOutcome", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.messenger.AssertNotCalled(t, "SendText", mock.Anything, mock.Anything, mock.Anything)
}
