package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

// RemoteSigner is a client for the custodial wallet service. Keys never leave
// the service; we hand it an unsigned transaction and get back the raw signed
// bytes.
type RemoteSigner struct {
	baseURL   string
	appID     string
	appSecret string
	http      *http.Client
}

// NewRemoteSigner creates a signer client
func NewRemoteSigner(baseURL, appID, appSecret string) *RemoteSigner {
	return &RemoteSigner{
		baseURL:   baseURL,
		appID:     appID,
		appSecret: appSecret,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

type createWalletRequest struct {
	ChainType string `json:"chain_type"`
	OwnerHint string `json:"owner_hint,omitempty"`
}

type createWalletResponse struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// CreateWallet provisions a new wallet and returns its handle and address
func (s *RemoteSigner) CreateWallet(ctx context.Context, ownerHint string) (id, address string, err error) {
	var resp createWalletResponse
	err = s.post(ctx, "/v1/wallets", createWalletRequest{ChainType: "ethereum", OwnerHint: ownerHint}, &resp)
	if err != nil {
		return "", "", fmt.Errorf("failed to create wallet: %w", err)
	}
	return resp.ID, resp.Address, nil
}

type signRequest struct {
	IdempotencyKey string          `json:"idempotency_key"`
	Transaction    json.RawMessage `json:"transaction"`
}

type signResponse struct {
	SignedTransaction string `json:"signed_transaction"`
}

type unsignedTx struct {
	ChainID  int64  `json:"chain_id"`
	Nonce    uint64 `json:"nonce"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Gas      uint64 `json:"gas"`
	GasPrice string `json:"gas_price"`
	Data     string `json:"data"`
}

// SignTransaction has the wallet service sign an unsigned transaction and
// returns it decoded, ready for submission.
func (s *RemoteSigner) SignTransaction(ctx context.Context, walletID string, chainID int64, tx *types.Transaction) (*types.Transaction, error) {
	to := ""
	if tx.To() != nil {
		to = tx.To().Hex()
	}
	payload, err := json.Marshal(unsignedTx{
		ChainID:  chainID,
		Nonce:    tx.Nonce(),
		To:       to,
		Value:    tx.Value().String(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice().String(),
		Data:     hexutil.Encode(tx.Data()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}

	req := signRequest{
		IdempotencyKey: uuid.NewString(),
		Transaction:    payload,
	}

	var resp signResponse
	if err := s.post(ctx, "/v1/wallets/"+walletID+"/sign", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to sign transaction with wallet %s: %w", walletID, err)
	}

	raw, err := hexutil.Decode(resp.SignedTransaction)
	if err != nil {
		return nil, fmt.Errorf("signer returned malformed transaction: %w", err)
	}
	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("signer returned undecodable transaction: %w", err)
	}
	return signed, nil
}

func (s *RemoteSigner) post(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.appID, s.appSecret)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("signer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("signer returned %d: %s", resp.StatusCode, string(detail))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode signer response: %w", err)
	}
	return nil
}
