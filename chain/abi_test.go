package chain

import (
	"math/big"
	"testing"

	"mort/domain/entities"
	"mort/domain/events"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContracts() Contracts {
	return Contracts{
		Flip:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
		RPS:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Lucky: common.HexToAddress("0x3333333333333333333333333333333333333333"),
	}
}

func decimalFromString(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func flipResolvedLog(t *testing.T, contract common.Address, requestID int64, won bool, payoutWei *big.Int, block uint64) types.Log {
	t.Helper()
	data, err := flipABI.Events["FlipResolved"].Inputs.NonIndexed().Pack(won, payoutWei)
	require.NoError(t, err)
	return types.Log{
		Address:     contract,
		Topics:      []common.Hash{flipABI.Events["FlipResolved"].ID, common.BigToHash(big.NewInt(requestID))},
		Data:        data,
		BlockNumber: block,
	}
}

func TestDecodeLogFlipResolved(t *testing.T) {
	contracts := testContracts()
	payout := decimalFromString(t, "0.002")

	lg := flipResolvedLog(t, contracts.Flip, 42, true, avaxToWei(payout), 100)
	decoded, err := DecodeLog(contracts, lg)
	require.NoError(t, err)

	flip, ok := decoded.(events.FlipResolvedEvent)
	require.True(t, ok)
	assert.Equal(t, "42", flip.Key)
	assert.True(t, flip.Won)
	assert.True(t, payout.Equal(flip.Payout))
	assert.Equal(t, uint64(100), flip.Block)
}

func TestDecodeLogRPSResult(t *testing.T) {
	contracts := testContracts()
	prize := decimalFromString(t, "0.02")

	data, err := rpsABI.Events["GameResult"].Inputs.NonIndexed().Pack(
		uint8(events.RPSOutcomeWin), uint8(0), uint8(2), avaxToWei(prize))
	require.NoError(t, err)

	lg := types.Log{
		Address:     contracts.RPS,
		Topics:      []common.Hash{rpsABI.Events["GameResult"].ID, common.BigToHash(big.NewInt(7))},
		Data:        data,
		BlockNumber: 55,
	}

	decoded, err := DecodeLog(contracts, lg)
	require.NoError(t, err)

	rps, ok := decoded.(events.RPSResultEvent)
	require.True(t, ok)
	assert.Equal(t, "7", rps.Key)
	assert.Equal(t, events.RPSOutcomeWin, rps.Outcome)
	assert.Equal(t, 0, rps.PlayerChoice)
	assert.Equal(t, 2, rps.ComputerChoice)
	assert.True(t, prize.Equal(rps.Prize))
}

func TestDecodeLogLuckyReady(t *testing.T) {
	contracts := testContracts()

	numbers := []*big.Int{big.NewInt(13), big.NewInt(48), big.NewInt(7)}
	data, err := luckyABI.Events["GameReady"].Inputs.NonIndexed().Pack(numbers)
	require.NoError(t, err)

	lg := types.Log{
		Address:     contracts.Lucky,
		Topics:      []common.Hash{luckyABI.Events["GameReady"].ID, common.BigToHash(big.NewInt(9))},
		Data:        data,
		BlockNumber: 80,
	}

	decoded, err := DecodeLog(contracts, lg)
	require.NoError(t, err)

	ready, ok := decoded.(events.LuckyReadyEvent)
	require.True(t, ok)
	assert.Equal(t, "9", ready.Key)
	assert.Equal(t, []int64{13, 48, 7}, ready.Numbers)
}

func TestDecodeLogLuckyResult(t *testing.T) {
	contracts := testContracts()
	prize := decimalFromString(t, "0.03")

	data, err := luckyABI.Events["GameResult"].Inputs.NonIndexed().Pack(
		uint8(events.LuckyOutcomeWin), uint8(1), avaxToWei(prize))
	require.NoError(t, err)

	lg := types.Log{
		Address:     contracts.Lucky,
		Topics:      []common.Hash{luckyABI.Events["GameResult"].ID, common.BigToHash(big.NewInt(9))},
		Data:        data,
		BlockNumber: 81,
	}

	decoded, err := DecodeLog(contracts, lg)
	require.NoError(t, err)

	result, ok := decoded.(events.LuckyResultEvent)
	require.True(t, ok)
	assert.Equal(t, "9", result.Key)
	assert.Equal(t, events.LuckyOutcomeWin, result.Outcome)
	assert.Equal(t, 1, result.WinningIndex)
	assert.True(t, prize.Equal(result.Prize))
}

func TestDecodeLogIgnoresUnrelatedLogs(t *testing.T) {
	contracts := testContracts()

	// Unknown contract address.
	decoded, err := DecodeLog(contracts, types.Log{
		Address: common.HexToAddress("0x9999999999999999999999999999999999999999"),
		Topics:  []common.Hash{flipABI.Events["FlipResolved"].ID},
	})
	require.NoError(t, err)
	assert.Nil(t, decoded)

	// Known contract but an event we do not watch.
	decoded, err = DecodeLog(contracts, types.Log{
		Address: contracts.Flip,
		Topics:  []common.Hash{flipABI.Events["FlipRequested"].ID, common.BigToHash(big.NewInt(1))},
	})
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestExtractRequestKey(t *testing.T) {
	contracts := testContracts()

	receipt := &types.Receipt{
		TxHash: common.HexToHash("0xabcdef"),
		Logs: []*types.Log{
			{
				Address: contracts.Flip,
				Topics:  []common.Hash{flipABI.Events["FlipRequested"].ID, common.BigToHash(big.NewInt(1337))},
			},
		},
	}

	key, err := extractRequestKey(entities.GameCoinFlip, contracts.Flip, receipt)
	require.NoError(t, err)
	assert.Equal(t, "1337", key)
}

func TestExtractRequestKeyMissingEvent(t *testing.T) {
	contracts := testContracts()
	receipt := &types.Receipt{TxHash: common.HexToHash("0xabcdef")}

	_, err := extractRequestKey(entities.GameCoinFlip, contracts.Flip, receipt)
	assert.Error(t, err)
}

func TestWeiConversionRoundTrip(t *testing.T) {
	amount := decimalFromString(t, "0.001")
	assert.True(t, amount.Equal(weiToAVAX(avaxToWei(amount))))

	wei, ok := new(big.Int).SetString("1000000000000000000", 10)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(1).Equal(weiToAVAX(wei)))
}
