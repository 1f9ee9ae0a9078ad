// Package chain adapts the remote signer and an RPC node into the
// ChainClient contract, and owns log subscription plumbing for the
// reconciler.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"mort/domain/entities"
	"mort/domain/interfaces"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const transferGasLimit = 21000

// Client implements interfaces.ChainClient over an RPC node plus the remote
// signer. Submissions block until the transaction is mined.
type Client struct {
	eth       *ethclient.Client
	signer    *RemoteSigner
	contracts Contracts
	chainID   int64
}

// NewClient dials the HTTP RPC endpoint and wires the signer
func NewClient(ctx context.Context, rpcURL string, signer *RemoteSigner, contracts Contracts, chainID int64) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC %s: %w", rpcURL, err)
	}
	return &Client{eth: eth, signer: signer, contracts: contracts, chainID: chainID}, nil
}

// CreateWallet provisions a wallet at the remote signer
func (c *Client) CreateWallet(ctx context.Context, ownerHint string) (entities.Wallet, error) {
	id, address, err := c.signer.CreateWallet(ctx, ownerHint)
	if err != nil {
		return entities.Wallet{}, err
	}
	log.WithFields(log.Fields{
		"walletId": id,
		"address":  address,
	}).Info("Created wallet")
	return entities.Wallet{ID: id, Address: address}, nil
}

// Balance reads the native balance of an address
func (c *Client) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	wei, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance of %s: %w", address, err)
	}
	return weiToAVAX(wei), nil
}

// SubmitValueTransfer sends native currency and waits for inclusion
func (c *Client) SubmitValueTransfer(ctx context.Context, from entities.Wallet, toAddress string, amount decimal.Decimal) (string, error) {
	to := common.HexToAddress(toAddress)
	receipt, err := c.submit(ctx, from, &to, avaxToWei(amount), nil, transferGasLimit)
	if err != nil {
		return "", err
	}
	return receipt.TxHash.Hex(), nil
}

// SubmitGameCall places a wager, waits for inclusion and decodes the
// submission event from the receipt into the request key that will later
// match the resolution event.
func (c *Client) SubmitGameCall(ctx context.Context, from entities.Wallet, kind entities.GameKind, choice int, amount decimal.Decimal) (*interfaces.GameSubmission, error) {
	contractAddr, err := c.contracts.address(kind)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch kind {
	case entities.GameCoinFlip:
		data, err = flipABI.Pack("flip", uint8(choice))
	case entities.GameRPS:
		data, err = rpsABI.Pack("play", uint8(choice))
	case entities.GameLuckyNumber:
		data, err = luckyABI.Pack("play")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", kind, err)
	}

	receipt, err := c.submit(ctx, from, &contractAddr, avaxToWei(amount), data, 0)
	if err != nil {
		return nil, err
	}

	requestKey, err := extractRequestKey(kind, contractAddr, receipt)
	if err != nil {
		return nil, err
	}

	return &interfaces.GameSubmission{
		RequestKey: requestKey,
		TxHash:     receipt.TxHash.Hex(),
	}, nil
}

// SubmitGuess locks in a lucky-number guess for an earlier wager
func (c *Client) SubmitGuess(ctx context.Context, from entities.Wallet, requestKey string, guessIndex int) (string, error) {
	id, ok := new(big.Int).SetString(requestKey, 10)
	if !ok {
		return "", fmt.Errorf("invalid request key %q", requestKey)
	}

	data, err := luckyABI.Pack("makeGuess", id, uint8(guessIndex))
	if err != nil {
		return "", fmt.Errorf("failed to pack makeGuess call: %w", err)
	}

	receipt, err := c.submit(ctx, from, &c.contracts.Lucky, common.Big0, data, 0)
	if err != nil {
		return "", err
	}
	return receipt.TxHash.Hex(), nil
}

// submit builds a transaction, has the remote signer sign it, broadcasts it
// and waits until it is mined. gasLimit zero means estimate.
func (c *Client) submit(ctx context.Context, from entities.Wallet, to *common.Address, value *big.Int, data []byte, gasLimit uint64) (*types.Receipt, error) {
	sender := common.HexToAddress(from.Address)

	nonce, err := c.eth.PendingNonceAt(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce for %s: %w", from.Address, err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	if gasLimit == 0 {
		gasLimit, err = c.eth.EstimateGas(ctx, ethereum.CallMsg{
			From:  sender,
			To:    to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := c.signer.SignTransaction(ctx, from.ID, c.chainID, unsigned)
	if err != nil {
		return nil, err
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"txHash": signed.Hash().Hex(),
		"from":   from.Address,
	}).Debug("Broadcast transaction, awaiting inclusion")

	receipt, err := bind.WaitMined(ctx, c.eth, signed)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for transaction %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction %s reverted", signed.Hash().Hex())
	}
	return receipt, nil
}
