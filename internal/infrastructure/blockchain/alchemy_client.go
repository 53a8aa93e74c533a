package blockchain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"eoa-transfer-analyzer/internal/domain/entity"
	"eoa-transfer-analyzer/internal/domain/service"
	"eoa-transfer-analyzer/internal/infrastructure/config"
	"eoa-transfer-analyzer/internal/infrastructure/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// transferCategories selects which asset movements the upstream API
// returns; external ETH plus token transfers
var transferCategories = []string{"external", "internal", "erc20"}

// AlchemyClient talks to an Alchemy-compatible JSON-RPC endpoint. It is
// the only network boundary of the pipeline; everything downstream is a
// pure transformation.
type AlchemyClient struct {
	rpc    *rpc.Client
	cfg    *config.AlchemyConfig
	logger *logger.Logger
}

// NewAlchemyClient creates a client for the configured endpoint
func NewAlchemyClient(cfg *config.AlchemyConfig, logger *logger.Logger) (*AlchemyClient, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("alchemy rpc url is not configured")
	}
	client, err := rpc.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc endpoint: %w", err)
	}
	return &AlchemyClient{
		rpc:    client,
		cfg:    cfg,
		logger: logger.WithComponent("alchemy-client"),
	}, nil
}

// Close releases the underlying RPC connection
func (c *AlchemyClient) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

// assetTransferParams is the request body of alchemy_getAssetTransfers
type assetTransferParams struct {
	FromBlock    string   `json:"fromBlock"`
	ToBlock      string   `json:"toBlock"`
	FromAddress  string   `json:"fromAddress,omitempty"`
	ToAddress    string   `json:"toAddress,omitempty"`
	Category     []string `json:"category"`
	WithMetadata bool     `json:"withMetadata"`
	MaxCount     string   `json:"maxCount"`
	PageKey      string   `json:"pageKey,omitempty"`
}

// assetTransferResult is one page of alchemy_getAssetTransfers
type assetTransferResult struct {
	Transfers []wireTransfer `json:"transfers"`
	PageKey   string         `json:"pageKey"`
}

// wireTransfer mirrors the upstream transfer shape; value arrives as a
// JSON number already denominated in the asset
type wireTransfer struct {
	Hash     string                   `json:"hash"`
	From     string                   `json:"from"`
	To       string                   `json:"to"`
	Value    json.Number              `json:"value"`
	Asset    string                   `json:"asset"`
	BlockNum string                   `json:"blockNum"`
	Metadata *entity.TransferMetadata `json:"metadata"`
}

// FetchTransfers returns both directions of an address's transfer
// history, following page keys up to the configured page cap
func (c *AlchemyClient) FetchTransfers(ctx context.Context, address string) (*entity.TransferPage, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %s", service.ErrInvalidAddress, address)
	}

	sent, err := c.fetchDirection(ctx, assetTransferParams{FromAddress: address})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sent transfers: %w", err)
	}
	received, err := c.fetchDirection(ctx, assetTransferParams{ToAddress: address})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch received transfers: %w", err)
	}

	c.logger.Info("Fetched transfer history",
		zap.String("address", address),
		zap.Int("sent", len(sent)),
		zap.Int("received", len(received)))

	return &entity.TransferPage{Sent: sent, Received: received}, nil
}

func (c *AlchemyClient) fetchDirection(ctx context.Context, params assetTransferParams) ([]entity.RawTransfer, error) {
	params.FromBlock = "0x0"
	params.ToBlock = "latest"
	params.Category = transferCategories
	params.WithMetadata = true
	params.MaxCount = "0x3e8"

	var transfers []entity.RawTransfer
	for page := 0; page < c.cfg.MaxTransferPages; page++ {
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		var result assetTransferResult
		err := c.rpc.CallContext(callCtx, &result, "alchemy_getAssetTransfers", params)
		cancel()
		if err != nil {
			return nil, err
		}

		for _, t := range result.Transfers {
			transfers = append(transfers, entity.RawTransfer{
				Hash:     t.Hash,
				From:     t.From,
				To:       t.To,
				Value:    t.Value.String(),
				Asset:    t.Asset,
				BlockNum: t.BlockNum,
				Metadata: t.Metadata,
			})
		}

		if result.PageKey == "" {
			break
		}
		params.PageKey = result.PageKey
	}
	return transfers, nil
}

// wireReceipt mirrors the upstream receipt shape
type wireReceipt struct {
	GasUsed           hexutil.Uint64 `json:"gasUsed"`
	EffectiveGasPrice hexutil.Big    `json:"effectiveGasPrice"`
	CumulativeGasUsed hexutil.Uint64 `json:"cumulativeGasUsed"`
	Status            hexutil.Uint64 `json:"status"`
	BlockNumber       hexutil.Big    `json:"blockNumber"`
}

// wireTransaction carries the only transaction field the analyzer needs,
// the gas limit, which receipts do not include
type wireTransaction struct {
	Gas hexutil.Uint64 `json:"gas"`
}

// FetchTransactionReceipt returns the receipt joined with the
// transaction's gas limit, or nil when no receipt exists yet
func (c *AlchemyClient) FetchTransactionReceipt(ctx context.Context, hash string) (*entity.GasReceipt, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var receipt *wireReceipt
	if err := c.rpc.CallContext(callCtx, &receipt, "eth_getTransactionReceipt", hash); err != nil {
		return nil, fmt.Errorf("failed to fetch receipt %s: %w", hash, err)
	}
	if receipt == nil {
		return nil, nil
	}

	result := &entity.GasReceipt{
		GasUsed:           uint64(receipt.GasUsed),
		EffectiveGasPrice: receipt.EffectiveGasPrice.ToInt().Uint64(),
		CumulativeGasUsed: uint64(receipt.CumulativeGasUsed),
		Status:            uint64(receipt.Status),
		BlockNumber:       receipt.BlockNumber.ToInt().Uint64(),
	}

	// The gas limit lives on the transaction, not the receipt; a failed
	// lookup leaves it at zero and gas efficiency degrades gracefully
	var tx *wireTransaction
	if err := c.rpc.CallContext(callCtx, &tx, "eth_getTransactionByHash", hash); err != nil {
		c.logger.Warn("Transaction lookup failed, gas limit unavailable",
			zap.String("hash", hash),
			zap.Error(err))
	} else if tx != nil {
		result.GasLimit = uint64(tx.Gas)
	}

	return result, nil
}

// FetchCode returns the bytecode at an address, "0x" for an EOA
func (c *AlchemyClient) FetchCode(ctx context.Context, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %s", service.ErrInvalidAddress, address)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var code string
	if err := c.rpc.CallContext(callCtx, &code, "eth_getCode", address, "latest"); err != nil {
		return "", fmt.Errorf("failed to fetch code at %s: %w", address, err)
	}
	return code, nil
}

// MockTransferClient provides a canned in-memory implementation for
// testing without a network
type MockTransferClient struct {
	Transfers map[string]*entity.TransferPage
	Receipts  map[string]*entity.GasReceipt
	Code      map[string]string
	Err       error
}

// NewMockTransferClient creates an empty mock client
func NewMockTransferClient() *MockTransferClient {
	return &MockTransferClient{
		Transfers: make(map[string]*entity.TransferPage),
		Receipts:  make(map[string]*entity.GasReceipt),
		Code:      make(map[string]string),
	}
}

// FetchTransfers mock implementation
func (m *MockTransferClient) FetchTransfers(_ context.Context, address string) (*entity.TransferPage, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	page, ok := m.Transfers[strings.ToLower(address)]
	if !ok {
		return &entity.TransferPage{}, nil
	}
	return page, nil
}

// FetchTransactionReceipt mock implementation; unknown hashes return nil
func (m *MockTransferClient) FetchTransactionReceipt(_ context.Context, hash string) (*entity.GasReceipt, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Receipts[hash], nil
}

// FetchCode mock implementation; unknown addresses are EOAs
func (m *MockTransferClient) FetchCode(_ context.Context, address string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Code[strings.ToLower(address)], nil
}
