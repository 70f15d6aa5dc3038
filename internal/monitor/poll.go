// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package monitor

import (
	"context"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
)

// ChainReader is the minimal transport contract PollSource needs: fetch the
// header at the chain's current latest height. The real implementation is
// an ethclient.Client, kept behind this narrow interface so tests can fake
// it without a live RPC endpoint.
type ChainReader interface {
	LatestHeader(ctx context.Context) (number uint64, hash common.Hash, timestamp int64, err error)
}

// PollSource polls ChainReader.LatestHeader every interval and republishes
// it as a BlockInfo (pre block-delay; Monitor applies the delay).
type PollSource struct {
	chainID  string
	reader   ChainReader
	interval time.Duration
	logger   log.Logger

	out chan BlockInfo
}

func NewPollSource(chainID string, reader ChainReader, interval time.Duration, logger log.Logger) *PollSource {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollSource{
		chainID:  chainID,
		reader:   reader,
		interval: interval,
		logger:   logger,
		out:      make(chan BlockInfo, 4),
	}
}

func (p *PollSource) Blocks() <-chan BlockInfo { return p.out }

func (p *PollSource) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer close(p.out)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			number, hash, ts, err := p.reader.LatestHeader(ctx)
			if err != nil {
				p.logger.Warn("poll monitor: latest header fetch failed", "chain", p.chainID, "err", err)
				continue
			}
			select {
			case p.out <- BlockInfo{ChainID: p.chainID, BlockNumber: number, BlockHash: hash, Timestamp: ts}:
			case <-ctx.Done():
				return
			}
		}
	}
}
