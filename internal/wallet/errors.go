// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import "fmt"

// SubmissionError wraps a broadcast failure: network, nonce conflict, or
// fee rejection. Retried by the submit queue unless classified
// unrecoverable.
type SubmissionError struct {
	Cause         error
	Unrecoverable bool
}

func (e SubmissionError) Error() string {
	return fmt.Sprintf("submission failed (unrecoverable=%v): %v", e.Unrecoverable, e.Cause)
}

func (e SubmissionError) Unwrap() error { return e.Cause }

// ConfirmationExceededError is returned when maxTries replacements have
// been issued without confirmation.
type ConfirmationExceededError struct {
	Nonce uint64
	Tries int
}

func (e ConfirmationExceededError) Error() string {
	return fmt.Sprintf("confirmation exceeded after %d replacement(s) at nonce %d", e.Tries, e.Nonce)
}

// NonceConsumedElsewhereError is returned when the chain reveals a
// different hash confirmed at our nonce than anything we signed.
type NonceConsumedElsewhereError struct {
	Nonce        uint64
	ObservedHash string
}

func (e NonceConsumedElsewhereError) Error() string {
	return fmt.Sprintf("nonce %d was consumed by a transaction we did not sign (hash=%s)", e.Nonce, e.ObservedHash)
}

// isNonceTaken classifies a broadcast error as "an out-of-band transaction
// (or a restart) has already used this nonce", requiring a nonce resync.
func isNonceTaken(err error) bool {
	if err == nil {
		return false
	}
	switch err.Error() {
	case "nonce too low", "replacement transaction underpriced", "already known":
		return true
	default:
		return false
	}
}
