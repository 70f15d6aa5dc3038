// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpc adapts an ethclient.Client plus one signing key to the
// narrow monitor.ChainReader and wallet.Broadcaster interfaces. It is
// deliberately not a general-purpose RPC client: ethclient.Client already
// is one, this package only shapes it to what the core needs.
package rpc

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/crypto"
	"github.com/luxfi/geth/ethclient"
	"github.com/luxfi/underwriter/internal/wallet"
)

// Adapter wraps one ethclient.Client and one signing key, implementing
// monitor.ChainReader and wallet.Broadcaster.
type Adapter struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// Dial connects to rpcURL and loads privateKeyHex (with or without a "0x"
// prefix) as the signing key.
func Dial(ctx context.Context, rpcURL, privateKeyHex string) (*Adapter, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}
	return &Adapter{
		client:  client,
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

func (a *Adapter) Close() { a.client.Close() }

// LatestHeader implements monitor.ChainReader.
func (a *Adapter) LatestHeader(ctx context.Context) (uint64, common.Hash, int64, error) {
	header, err := a.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, common.Hash{}, 0, err
	}
	return header.Number.Uint64(), header.Hash(), int64(header.Time), nil
}

// Query implements wallet.FeeOracle.
func (a *Adapter) Query(ctx context.Context) (wallet.QueriedFeeData, error) {
	head, err := a.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return wallet.QueriedFeeData{}, err
	}
	if head.BaseFee != nil {
		tip, err := a.client.SuggestGasTipCap(ctx)
		if err != nil {
			return wallet.QueriedFeeData{}, err
		}
		return wallet.QueriedFeeData{
			IsEIP1559:            true,
			BaseFee:              uint256.MustFromBig(head.BaseFee),
			MaxPriorityFeePerGas: uint256.MustFromBig(tip),
		}, nil
	}
	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return wallet.QueriedFeeData{}, err
	}
	return wallet.QueriedFeeData{IsEIP1559: false, GasPrice: uint256.MustFromBig(gasPrice)}, nil
}

// NonceAt implements wallet.Broadcaster.
func (a *Adapter) NonceAt(ctx context.Context) (uint64, error) {
	return a.client.PendingNonceAt(ctx, a.address)
}

// SignAndSend implements wallet.Broadcaster.
func (a *Adapter) SignAndSend(ctx context.Context, txReq wallet.TxRequest, nonce uint64, fee wallet.FeeData) (wallet.SignedTx, error) {
	var tx *types.Transaction
	value := txReq.Value.ToBig()
	if fee.IsEIP1559 {
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   a.chainID,
			Nonce:     nonce,
			GasTipCap: fee.MaxPriorityFeePerGas.ToBig(),
			GasFeeCap: fee.MaxFeePerGas.ToBig(),
			Gas:       txReq.GasLimit,
			To:        &txReq.To,
			Value:     value,
			Data:      txReq.Data,
		})
	} else {
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: fee.GasPrice.ToBig(),
			Gas:      txReq.GasLimit,
			To:       &txReq.To,
			Value:    value,
			Data:     txReq.Data,
		})
	}

	signer := types.LatestSignerForChainID(a.chainID)
	signed, err := types.SignTx(tx, signer, a.key)
	if err != nil {
		return wallet.SignedTx{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := a.client.SendTransaction(ctx, signed); err != nil {
		return wallet.SignedTx{}, err
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return wallet.SignedTx{}, fmt.Errorf("marshal signed tx: %w", err)
	}
	return wallet.SignedTx{Hash: signed.Hash(), Nonce: nonce, Fee: fee, Raw: raw}, nil
}

// nonceScanLookback bounds how many recent blocks ReceiptFor will scan
// looking for the transaction that actually consumed a nonce whose own
// submission never got a receipt. A foreign replacement can only have
// landed within the confirmation window the wallet itself is waiting out,
// so this never needs to reach further back than that.
const nonceScanLookback = 256

// ReceiptFor implements wallet.Broadcaster. It first looks up hash
// directly; if that is not yet mined, it checks whether the chain's nonce
// for this account has already advanced past nonce, which only happens if
// some other transaction (not hash) was mined at that nonce. In that case
// it locates the transaction that actually consumed the nonce and returns
// its own hash, so the caller's hash comparison can detect the mismatch.
func (a *Adapter) ReceiptFor(ctx context.Context, nonce uint64, hash common.Hash) (wallet.Receipt, bool, error) {
	receipt, err := a.client.TransactionReceipt(ctx, hash)
	if err == nil {
		return a.receiptFrom(ctx, hash, receipt)
	}

	onChainNonce, nerr := a.client.NonceAt(ctx, a.address, nil)
	if nerr != nil || onChainNonce <= nonce {
		return wallet.Receipt{}, false, nil
	}

	foreignHash, ferr := a.findTxHashAtNonce(ctx, nonce)
	if ferr != nil || foreignHash == (common.Hash{}) {
		return wallet.Receipt{}, false, nil
	}
	foreignReceipt, rerr := a.client.TransactionReceipt(ctx, foreignHash)
	if rerr != nil {
		return wallet.Receipt{}, false, nil
	}
	return a.receiptFrom(ctx, foreignHash, foreignReceipt)
}

func (a *Adapter) receiptFrom(ctx context.Context, hash common.Hash, receipt *types.Receipt) (wallet.Receipt, bool, error) {
	head, err := a.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return wallet.Receipt{}, false, err
	}
	var confirmations uint64
	if head.Number.Uint64() >= receipt.BlockNumber.Uint64() {
		confirmations = head.Number.Uint64() - receipt.BlockNumber.Uint64() + 1
	}
	return wallet.Receipt{
		TxHash:        hash,
		BlockNumber:   receipt.BlockNumber.Uint64(),
		Confirmations: confirmations,
		Success:       receipt.Status == types.ReceiptStatusSuccessful,
	}, true, nil
}

// findTxHashAtNonce scans recent blocks for a transaction from this
// wallet's own address carrying nonce, returning its hash. Returns the
// zero hash if none is found within the lookback window.
func (a *Adapter) findTxHashAtNonce(ctx context.Context, nonce uint64) (common.Hash, error) {
	head, err := a.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, err
	}
	tip := head.Number.Uint64()
	from := uint64(0)
	if tip > nonceScanLookback {
		from = tip - nonceScanLookback
	}

	signer := types.LatestSignerForChainID(a.chainID)
	for n := tip; n > from; n-- {
		block, err := a.client.BlockByNumber(ctx, new(big.Int).SetUint64(n))
		if err != nil {
			continue
		}
		for _, tx := range block.Transactions() {
			if tx.Nonce() != nonce {
				continue
			}
			sender, err := types.Sender(signer, tx)
			if err != nil || sender != a.address {
				continue
			}
			return tx.Hash(), nil
		}
	}
	return common.Hash{}, nil
}

// BalanceAt implements wallet.Broadcaster.
func (a *Adapter) BalanceAt(ctx context.Context) (*uint256.Int, error) {
	bal, err := a.client.BalanceAt(ctx, a.address, nil)
	if err != nil {
		return nil, err
	}
	return uint256.MustFromBig(bal), nil
}
