// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wallet serializes all outbound transactions for one signing key
// on one chain: nonce assignment, fee computation, broadcast,
// replacement-by-fee, and confirmation tracking.
package wallet

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// TxRequest is the unsigned call the wallet is asked to carry out.
type TxRequest struct {
	To       common.Address
	Data     []byte
	Value    *uint256.Int
	GasLimit uint64
}

// Options tunes how one request is handled.
type Options struct {
	// RetryOnNonceConfirmationError, when nil or true, means "on a
	// nonce-taken broadcast error, resync nextNonce and retry this same
	// logical order at a new nonce". False means reject immediately.
	RetryOnNonceConfirmationError *bool
}

func (o Options) retryOnNonceTaken() bool {
	return o.RetryOnNonceConfirmationError == nil || *o.RetryOnNonceConfirmationError
}

// OptionsNoNonceRetry returns an Options with RetryOnNonceConfirmationError explicitly
// disabled, used by callers (e.g. the approval handler) that must not
// preserve order across a nonce conflict.
func OptionsNoNonceRetry() Options {
	f := false
	return Options{RetryOnNonceConfirmationError: &f}
}

// SignedTx is an opaque broadcast handle: the signed transaction bytes plus
// the fields the wallet needs to track and replace it.
type SignedTx struct {
	Hash    common.Hash
	Nonce   uint64
	Fee     FeeData
	Raw     []byte
}

// Receipt is the minimal confirmation info the wallet needs.
type Receipt struct {
	TxHash        common.Hash
	BlockNumber   uint64
	Confirmations uint64
	Success       bool
}

// Reply is what a Port delivers back for one request: exactly one of
// (TxReceipt) or one of the error fields is set. Metadata is echoed
// verbatim for caller correlation.
type Reply struct {
	MessageID         string
	TxReceipt         *Receipt
	SubmissionError   error
	ConfirmationError error
	Metadata          interface{}
}

// PortRequest is what a caller sends on a Port.
type PortRequest struct {
	MessageID string
	TxRequest TxRequest
	Metadata  interface{}
	Options   Options
}

// Port is the bidirectional channel pair one caller uses to talk to the
// wallet: send requests, receive replies.
type Port struct {
	Requests chan<- PortRequest
	Replies  <-chan Reply
}
