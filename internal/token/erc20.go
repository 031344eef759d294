package token

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// erc20ABI covers the three methods the ledger consumes.
const erc20ABI = `[
  {"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// receiptPollInterval is how often a pending transaction's receipt is polled.
const receiptPollInterval = 2 * time.Second

// ERC20Client implements domain.TokenClient against real ERC-20 contracts.
// Custody is the address derived from the signing key; all outbound transfers
// are signed with it.
type ERC20Client struct {
	eth     *ethclient.Client
	abi     abi.ABI
	key     *ecdsa.PrivateKey
	custody common.Address
	chainID *big.Int
	logger  *slog.Logger
}

var _ domain.TokenClient = (*ERC20Client)(nil)

// NewERC20Client dials rpcURL and prepares a client signing with key.
func NewERC20Client(ctx context.Context, rpcURL string, key *ecdsa.PrivateKey, logger *slog.Logger) (*ERC20Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("token: dial %s: %w", rpcURL, err)
	}
	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("token: chain id: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("token: parse abi: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ERC20Client{
		eth:     eth,
		abi:     parsed,
		key:     key,
		custody: ethcrypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		logger:  logger.With("component", "erc20"),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *ERC20Client) Close() {
	c.eth.Close()
}

// Custody returns the address derived from the signing key.
func (c *ERC20Client) Custody() common.Address { return c.custody }

// BalanceOf calls balanceOf(account) on the token contract.
func (c *ERC20Client) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data, err := c.abi.Pack("balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("token: pack balanceOf: %w", err)
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("token: call balanceOf: %w", err)
	}
	results, err := c.abi.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("token: unpack balanceOf: %w", err)
	}
	bal, ok := results[0].(*big.Int)
	if !ok {
		return nil, errors.New("token: balanceOf returned unexpected type")
	}
	return bal, nil
}

// Transfer sends transfer(to, amount) from custody and waits for inclusion.
func (c *ERC20Client) Transfer(ctx context.Context, token, to common.Address, amount *big.Int) error {
	data, err := c.abi.Pack("transfer", to, amount)
	if err != nil {
		return fmt.Errorf("token: pack transfer: %w", err)
	}
	return c.sendAndWait(ctx, token, data)
}

// TransferFrom sends transferFrom(from, custody, amount) and waits for
// inclusion. The account must have approved custody beforehand.
func (c *ERC20Client) TransferFrom(ctx context.Context, token, from common.Address, amount *big.Int) error {
	data, err := c.abi.Pack("transferFrom", from, c.custody, amount)
	if err != nil {
		return fmt.Errorf("token: pack transferFrom: %w", err)
	}
	return c.sendAndWait(ctx, token, data)
}

// sendAndWait signs and submits a dynamic-fee transaction to the token
// contract, then blocks until it is mined. A reverted transaction is a
// transfer failure.
func (c *ERC20Client) sendAndWait(ctx context.Context, token common.Address, data []byte) error {
	nonce, err := c.eth.PendingNonceAt(ctx, c.custody)
	if err != nil {
		return fmt.Errorf("token: pending nonce: %w", err)
	}
	tip, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return fmt.Errorf("token: gas tip: %w", err)
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return fmt.Errorf("token: head: %w", err)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.custody,
		To:   &token,
		Data: data,
	})
	if err != nil {
		return fmt.Errorf("token: estimate gas: %w: %v", domain.ErrTransferFailed, err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &token,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return fmt.Errorf("token: sign tx: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("token: send tx: %w: %v", domain.ErrTransferFailed, err)
	}

	c.logger.DebugContext(ctx, "transaction submitted",
		"hash", signed.Hash().Hex(), "token", token.Hex(), "nonce", nonce)

	receipt, err := c.waitMined(ctx, signed.Hash())
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("token: tx %s reverted: %w", signed.Hash().Hex(), domain.ErrTransferFailed)
	}
	return nil
}

// waitMined polls for the transaction's receipt until found or ctx ends.
func (c *ERC20Client) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("token: receipt %s: %w", hash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("token: waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
