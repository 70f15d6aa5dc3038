// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Broadcaster is the chain transport this package depends on: sign, send,
// and poll for confirmation. The concrete implementation (RPC client + key
// management) lives outside this package; this interface is the whole of
// what the wallet needs from it.
type Broadcaster interface {
	FeeOracle

	// NonceAt returns the next usable nonce for the signer, as seen by the
	// chain (used on startup and on nonce resync).
	NonceAt(ctx context.Context) (uint64, error)

	// SignAndSend signs txReq with the wallet's key at the given nonce and
	// fee, broadcasts it, and returns the signed handle.
	SignAndSend(ctx context.Context, txReq TxRequest, nonce uint64, fee FeeData) (SignedTx, error)

	// ReceiptFor polls for a mined receipt of hash, the transaction broadcast
	// at nonce. ok is false if nothing is mined at nonce yet. If a different
	// transaction was mined at nonce instead of hash (a foreign replacement,
	// or manual intervention), the returned Receipt.TxHash is that
	// transaction's own hash, not hash, so the caller can detect the
	// mismatch.
	ReceiptFor(ctx context.Context, nonce uint64, hash common.Hash) (receipt Receipt, ok bool, err error)

	// BalanceAt returns the signer's native-token balance.
	BalanceAt(ctx context.Context) (*uint256.Int, error)
}
