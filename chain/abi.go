package chain

import (
	"fmt"
	"math/big"
	"strings"

	"mort/domain/entities"
	"mort/domain/events"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const flipABIJSON = `[
	{"type":"function","name":"flip","stateMutability":"payable","inputs":[{"name":"choice","type":"uint8"}],"outputs":[]},
	{"type":"event","name":"FlipRequested","inputs":[{"name":"requestId","type":"uint256","indexed":true},{"name":"player","type":"address","indexed":true},{"name":"choice","type":"uint8","indexed":false},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"FlipResolved","inputs":[{"name":"requestId","type":"uint256","indexed":true},{"name":"won","type":"bool","indexed":false},{"name":"payout","type":"uint256","indexed":false}]}
]`

const rpsABIJSON = `[
	{"type":"function","name":"play","stateMutability":"payable","inputs":[{"name":"choice","type":"uint8"}],"outputs":[]},
	{"type":"event","name":"GamePlayed","inputs":[{"name":"requestId","type":"uint256","indexed":true},{"name":"player","type":"address","indexed":true},{"name":"choice","type":"uint8","indexed":false},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"GameResult","inputs":[{"name":"requestId","type":"uint256","indexed":true},{"name":"outcome","type":"uint8","indexed":false},{"name":"playerChoice","type":"uint8","indexed":false},{"name":"computerChoice","type":"uint8","indexed":false},{"name":"prizeAmount","type":"uint256","indexed":false}]}
]`

const luckyABIJSON = `[
	{"type":"function","name":"play","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"makeGuess","stateMutability":"nonpayable","inputs":[{"name":"id","type":"uint256"},{"name":"guessIndex","type":"uint8"}],"outputs":[]},
	{"type":"event","name":"GameStarted","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"player","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"GameReady","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"numbers","type":"uint256[]","indexed":false}]},
	{"type":"event","name":"GameResult","inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"outcome","type":"uint8","indexed":false},{"name":"winningIndex","type":"uint8","indexed":false},{"name":"prize","type":"uint256","indexed":false}]}
]`

var (
	flipABI  = mustParseABI(flipABIJSON)
	rpsABI   = mustParseABI(rpsABIJSON)
	luckyABI = mustParseABI(luckyABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

// Contracts maps each game kind to its deployed address
type Contracts struct {
	Flip  common.Address
	RPS   common.Address
	Lucky common.Address
}

func (c Contracts) address(kind entities.GameKind) (common.Address, error) {
	switch kind {
	case entities.GameCoinFlip:
		return c.Flip, nil
	case entities.GameRPS:
		return c.RPS, nil
	case entities.GameLuckyNumber:
		return c.Lucky, nil
	default:
		return common.Address{}, fmt.Errorf("unknown game kind %q", kind)
	}
}

func gameABI(kind entities.GameKind) abi.ABI {
	switch kind {
	case entities.GameCoinFlip:
		return flipABI
	case entities.GameRPS:
		return rpsABI
	default:
		return luckyABI
	}
}

// submissionEventName is the event confirming a wager was accepted on-chain
func submissionEventName(kind entities.GameKind) string {
	switch kind {
	case entities.GameCoinFlip:
		return "FlipRequested"
	case entities.GameRPS:
		return "GamePlayed"
	default:
		return "GameStarted"
	}
}

// requestKeyFromLog extracts the indexed request identifier from a log. All
// four watched events put it in the first topic slot.
func requestKeyFromLog(lg types.Log) (string, error) {
	if len(lg.Topics) < 2 {
		return "", fmt.Errorf("log from %s has no indexed request id", lg.Address.Hex())
	}
	return new(big.Int).SetBytes(lg.Topics[1].Bytes()).String(), nil
}

// extractRequestKey scans a receipt for the game's submission event and
// returns the contract-assigned request identifier.
func extractRequestKey(kind entities.GameKind, contractAddr common.Address, receipt *types.Receipt) (string, error) {
	parsed := gameABI(kind)
	wantTopic := parsed.Events[submissionEventName(kind)].ID

	for _, lg := range receipt.Logs {
		if lg.Address != contractAddr {
			continue
		}
		if len(lg.Topics) == 0 || lg.Topics[0] != wantTopic {
			continue
		}
		return requestKeyFromLog(*lg)
	}
	return "", fmt.Errorf("no %s event in receipt %s", submissionEventName(kind), receipt.TxHash.Hex())
}

// DecodeLog maps a raw log from one of the watched contracts to a typed game
// event. Returns (nil, nil) for logs the reconciler does not care about.
func DecodeLog(contracts Contracts, lg types.Log) (events.Event, error) {
	if len(lg.Topics) == 0 {
		return nil, nil
	}
	topic := lg.Topics[0]

	switch lg.Address {
	case contracts.Flip:
		if topic != flipABI.Events["FlipResolved"].ID {
			return nil, nil
		}
		key, err := requestKeyFromLog(lg)
		if err != nil {
			return nil, err
		}
		var payload struct {
			Won    bool
			Payout *big.Int
		}
		if err := flipABI.UnpackIntoInterface(&payload, "FlipResolved", lg.Data); err != nil {
			return nil, fmt.Errorf("failed to decode FlipResolved: %w", err)
		}
		return events.FlipResolvedEvent{
			Key:    key,
			Won:    payload.Won,
			Payout: weiToAVAX(payload.Payout),
			Block:  lg.BlockNumber,
		}, nil

	case contracts.RPS:
		if topic != rpsABI.Events["GameResult"].ID {
			return nil, nil
		}
		key, err := requestKeyFromLog(lg)
		if err != nil {
			return nil, err
		}
		var payload struct {
			Outcome        uint8
			PlayerChoice   uint8
			ComputerChoice uint8
			PrizeAmount    *big.Int
		}
		if err := rpsABI.UnpackIntoInterface(&payload, "GameResult", lg.Data); err != nil {
			return nil, fmt.Errorf("failed to decode RPS GameResult: %w", err)
		}
		return events.RPSResultEvent{
			Key:            key,
			Outcome:        int(payload.Outcome),
			PlayerChoice:   int(payload.PlayerChoice),
			ComputerChoice: int(payload.ComputerChoice),
			Prize:          weiToAVAX(payload.PrizeAmount),
			Block:          lg.BlockNumber,
		}, nil

	case contracts.Lucky:
		switch topic {
		case luckyABI.Events["GameReady"].ID:
			key, err := requestKeyFromLog(lg)
			if err != nil {
				return nil, err
			}
			var payload struct {
				Numbers []*big.Int
			}
			if err := luckyABI.UnpackIntoInterface(&payload, "GameReady", lg.Data); err != nil {
				return nil, fmt.Errorf("failed to decode GameReady: %w", err)
			}
			numbers := make([]int64, len(payload.Numbers))
			for i, n := range payload.Numbers {
				numbers[i] = n.Int64()
			}
			return events.LuckyReadyEvent{Key: key, Numbers: numbers, Block: lg.BlockNumber}, nil

		case luckyABI.Events["GameResult"].ID:
			key, err := requestKeyFromLog(lg)
			if err != nil {
				return nil, err
			}
			var payload struct {
				Outcome      uint8
				WinningIndex uint8
				Prize        *big.Int
			}
			if err := luckyABI.UnpackIntoInterface(&payload, "GameResult", lg.Data); err != nil {
				return nil, fmt.Errorf("failed to decode lucky GameResult: %w", err)
			}
			return events.LuckyResultEvent{
				Key:          key,
				Outcome:      int(payload.Outcome),
				WinningIndex: int(payload.WinningIndex),
				Prize:        weiToAVAX(payload.Prize),
				Block:        lg.BlockNumber,
			}, nil
		}
	}
	return nil, nil
}
