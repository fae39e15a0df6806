// Package chain submits ERC-20 payouts on an EVM chain.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// USDC on Base.
const (
	DefaultRPCURL = "https://mainnet.base.org"
	DefaultChain  = 8453
	USDCAddress   = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	TokenDecimals = 6
)

const erc20TransferABI = `[{"name":"transfer","type":"function","stateMutability":"nonpayable",
"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
"outputs":[{"name":"","type":"bool"}]}]`

var (
	// ErrReverted means the transfer was mined but failed; no tokens moved.
	ErrReverted = errors.New("chain: transfer reverted")
	// ErrNonceSpent means another transaction from the payer took this
	// transfer's nonce, so it can never be mined and must be signed again.
	ErrNonceSpent = errors.New("chain: nonce spent by another transaction")
)

// Backend is the subset of the JSON-RPC client the payer uses. ethclient and
// the simulated backend both satisfy it.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	TransactionByHash(ctx context.Context, hash common.Hash) (*ethtypes.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}

// Transfer is a signed, not necessarily broadcast, token transfer. Raw can be
// rebroadcast any number of times; the nonce makes it land at most once.
type Transfer struct {
	Hash string
	Raw  []byte
}

type Config struct {
	RPCURL       string
	ChainID      int64
	TokenAddress string
	PrivateKey   string
	PollInterval time.Duration
}

// EVM signs transfers with the platform wallet and talks to one JSON-RPC node.
type EVM struct {
	client  Backend
	closer  func()
	chainID *big.Int
	token   common.Address
	key     *ecdsa.PrivateKey
	from    common.Address
	erc20   abi.ABI
	poll    time.Duration
}

func Dial(ctx context.Context, cfg Config) (*EVM, error) {
	if cfg.RPCURL == "" {
		cfg.RPCURL = DefaultRPCURL
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}
	e, err := New(client, cfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	e.closer = client.Close
	return e, nil
}

// New wraps an already connected backend. cfg.RPCURL is ignored.
func New(client Backend, cfg Config) (*EVM, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: invalid payer key: %w", err)
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = DefaultChain
	}
	if cfg.TokenAddress == "" {
		cfg.TokenAddress = USDCAddress
	}
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("chain: invalid token address %q", cfg.TokenAddress)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}

	parsed, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return nil, err
	}
	return &EVM{
		client:  client,
		chainID: big.NewInt(cfg.ChainID),
		token:   common.HexToAddress(cfg.TokenAddress),
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		erc20:   parsed,
		poll:    cfg.PollInterval,
	}, nil
}

func (e *EVM) Close() {
	if e.closer != nil {
		e.closer()
	}
}

// Payer returns the platform wallet address.
func (e *EVM) Payer() string { return e.from.Hex() }

// PrepareTransfer builds and signs transfer(to, units) without sending it, so
// the hash can be recorded before anything reaches the network.
func (e *EVM) PrepareTransfer(ctx context.Context, to string, units *big.Int) (*Transfer, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("chain: invalid destination %q", to)
	}
	data, err := e.erc20.Pack("transfer", common.HexToAddress(to), units)
	if err != nil {
		return nil, fmt.Errorf("chain: pack transfer: %w", err)
	}

	nonce, err := e.client.PendingNonceAt(ctx, e.from)
	if err != nil {
		return nil, fmt.Errorf("chain: nonce: %w", err)
	}
	tip, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain: gas tip: %w", err)
	}
	head, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: head: %w", err)
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(baseFee, big.NewInt(2)))

	gas, err := e.client.EstimateGas(ctx, ethereum.CallMsg{From: e.from, To: &e.token, Data: data})
	if err != nil {
		return nil, fmt.Errorf("chain: estimate gas: %w", err)
	}
	gas = gas * 12 / 10

	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   e.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &e.token,
		Value:     big.NewInt(0),
		Data:      data,
	})
	signed, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(e.chainID), e.key)
	if err != nil {
		return nil, fmt.Errorf("chain: sign: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &Transfer{Hash: signed.Hash().Hex(), Raw: raw}, nil
}

// Broadcast sends a signed transfer. Resending a transfer the node already has,
// or one that was already mined, is not an error. A nonce taken by a different
// transaction yields ErrNonceSpent.
func (e *EVM) Broadcast(ctx context.Context, raw []byte) error {
	var tx ethtypes.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return fmt.Errorf("chain: decode tx: %w", err)
	}
	err := e.client.SendTransaction(ctx, &tx)
	if err == nil || isAlreadyKnown(err) {
		return nil
	}
	if !isNonceTooLow(err) {
		return fmt.Errorf("chain: send: %w", err)
	}

	if _, rerr := e.client.TransactionReceipt(ctx, tx.Hash()); rerr == nil {
		return nil
	} else if !errors.Is(rerr, ethereum.NotFound) {
		return fmt.Errorf("chain: receipt: %w", rerr)
	}
	if _, _, terr := e.client.TransactionByHash(ctx, tx.Hash()); terr == nil {
		return nil
	} else if !errors.Is(terr, ethereum.NotFound) {
		return fmt.Errorf("chain: lookup tx: %w", terr)
	}
	return fmt.Errorf("%w (nonce %d): %v", ErrNonceSpent, tx.Nonce(), err)
}

// WaitConfirmed polls for the receipt until it appears or ctx ends.
func (e *EVM) WaitConfirmed(ctx context.Context, hash string) error {
	h := common.HexToHash(hash)
	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()

	for {
		receipt, err := e.client.TransactionReceipt(ctx, h)
		switch {
		case err == nil:
			if receipt.Status == ethtypes.ReceiptStatusSuccessful {
				return nil
			}
			return ErrReverted
		case !errors.Is(err, ethereum.NotFound):
			return fmt.Errorf("chain: receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func isAlreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}

func isNonceTooLow(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "nonce too low")
}
