// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package relayer implements the client side of the relayer WebSocket
// protocol: connect, send {"event":"monitor"} once, then decode pushed
// block-tip messages until the connection drops, reconnecting after a
// configured backoff.
package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/luxfi/underwriter/internal/monitor"
)

// wireMessage is the envelope pushed by the relayer server.
type wireMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type wireBlockData struct {
	ChainID     string `json:"chainId"`
	BlockNumber int64  `json:"blockNumber"`
	BlockHash   string `json:"blockHash"`
	Timestamp   int64  `json:"timestamp"`
}

// Source implements monitor.Source over the relayer WebSocket feed for one
// chain.
type Source struct {
	chainID       string
	url           string
	retryInterval time.Duration
	logger        log.Logger

	dial func(url string) (*websocket.Conn, error)

	out chan monitor.BlockInfo
}

// NewSource builds a relayer-backed monitor.Source. url is the full
// ws(s):// endpoint.
func NewSource(chainID, url string, retryInterval time.Duration, logger log.Logger) *Source {
	if retryInterval <= 0 {
		retryInterval = 5 * time.Second
	}
	return &Source{
		chainID:       chainID,
		url:           url,
		retryInterval: retryInterval,
		logger:        logger,
		dial: func(url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			return conn, err
		},
		out: make(chan monitor.BlockInfo, 4),
	}
}

func (s *Source) Blocks() <-chan monitor.BlockInfo { return s.out }

func (s *Source) Run(ctx context.Context) {
	defer close(s.out)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.runOnce(ctx); err != nil {
			s.logger.Warn("relayer monitor source disconnected", "chain", s.chainID, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryInterval):
		}
	}
}

func (s *Source) runOnce(ctx context.Context) error {
	conn, err := s.dial(s.url)
	if err != nil {
		return fmt.Errorf("dial relayer: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(wireMessage{Event: "monitor"}); err != nil {
		return fmt.Errorf("send monitor subscription: %w", err)
	}

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		conn.Close()
		close(done)
	}()

	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-done:
				return nil
			default:
				return fmt.Errorf("read relayer message: %w", err)
			}
		}

		if msg.Event != "monitor" {
			s.logger.Debug("relayer: ignoring unknown event type", "event", msg.Event)
			continue
		}

		var data wireBlockData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			s.logger.Warn("relayer: malformed monitor payload", "err", err)
			continue
		}
		if data.BlockNumber <= 0 || data.Timestamp <= 0 {
			s.logger.Warn("relayer: rejecting monitor payload failing schema", "data", data)
			continue
		}

		info := monitor.BlockInfo{
			ChainID:     data.ChainID,
			BlockNumber: uint64(data.BlockNumber),
			BlockHash:   common.HexToHash(data.BlockHash),
			Timestamp:   data.Timestamp,
		}
		select {
		case s.out <- info:
		case <-ctx.Done():
			return nil
		}
	}
}
