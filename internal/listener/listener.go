// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package listener defines the contract for the external event-ingestion
// component: decoding on-chain logs (CatalystVaultEvents.SendAsset,
// CatalystChainInterface.SwapUnderwritten/SwapUnderwriteComplete,
// ExpireUnderwrite) and publishing them on the shared Store's channels.
// The decoder itself is out of scope for this core; only the contract and
// a no-op implementation live here.
package listener

import "context"

// Listener runs until ctx is cancelled, publishing decoded chain events to
// the Store it was constructed with.
type Listener interface {
	Run(ctx context.Context) error
}

// Noop satisfies Listener without ingesting anything, for deployments that
// feed the Store some other way (e.g. a relayer push or a sidecar process).
type Noop struct{}

func (Noop) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
