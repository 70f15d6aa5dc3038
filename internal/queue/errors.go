// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import "fmt"

// DeadlineExceededError is returned (never retried) when an order is seen
// past its deadline, either at launch or before a retry reinsertion.
type DeadlineExceededError struct {
	OrderID string
}

func (e DeadlineExceededError) Error() string {
	return fmt.Sprintf("order %s exceeded its deadline", e.OrderID)
}

// ValidationError marks an order rejected during evaluation: bad data,
// failed profitability, or missing upstream state. Always terminal.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// UpstreamError marks a dependency (Store, Monitor, chain RPC) being
// unavailable. The order is left in the retry bucket by the caller.
type UpstreamError struct {
	Subsystem string
	Cause     error
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s unavailable: %v", e.Subsystem, e.Cause)
}

func (e UpstreamError) Unwrap() error { return e.Cause }
