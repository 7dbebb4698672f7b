package parlink

import (
	"time"

	"github.com/xx25/go-parlink/internal/metrics"
)

// Config controls sender/receiver behavior. Every field has a
// specification-mandated default, filled in by defaults() the same way
// the teacher's zmodem.Config.defaults() fills in its own zero values.
type Config struct {
	// BlockSize is the maximum payload size per data packet. The protocol
	// invariant (payload_len in [1, BlockSize]) is unaffected by this
	// being configurable; it exists so tests can exercise boundary sizes
	// without hand-editing a constant. Default 100 (BLOCK_SIZE).
	BlockSize int

	// AckTimeout bounds how long the sender waits for a single response
	// byte ('A'/'N') after emitting a data packet. Default 3s.
	AckTimeout time.Duration
	// HandshakeTimeout bounds how long the sender waits for ACK_STATUS
	// after each START attempt. Default 3s.
	HandshakeTimeout time.Duration
	// StartWaitTimeout bounds how long the receiver waits for the first
	// valid START line. Default 30s.
	StartWaitTimeout time.Duration
	// HeaderTimeout bounds how long the receiver waits for the next
	// 9-byte header (or END marker) between packets. Default 10s.
	HeaderTimeout time.Duration
	// PayloadTimeout bounds how long the receiver waits for a declared
	// payload to complete once the header has been read. Default 2s.
	PayloadTimeout time.Duration

	// MaxRetries bounds retransmission attempts, both for the handshake
	// and for the data ARQ loop. Default 5.
	MaxRetries int

	// InterPacketPause is a short fixed pause the sender takes between
	// successive packets, to tolerate slow receivers even without
	// hardware flow control. Default 5ms.
	InterPacketPause time.Duration

	// Progress, when non-nil, is invoked after each block is sent (by the
	// sender) or written and acknowledged (by the receiver).
	Progress ProgressFunc

	// Metrics, when non-nil, receives Prometheus counter updates for
	// blocks, retransmissions, NAKs, CRC failures and checkpoint saves.
	Metrics *metrics.Collector
}

// ProgressFunc reports transfer progress. blockIndex is 0-based. The
// receiver does not know the sender's file size and reports totalBlocks
// and bytesTotal as -1.
type ProgressFunc func(blockIndex, totalBlocks int, bytesDone, bytesTotal int64)

const (
	defaultBlockSize        = 100
	defaultAckTimeout       = 3 * time.Second
	defaultHandshakeTimeout = 3 * time.Second
	defaultStartWaitTimeout = 30 * time.Second
	defaultHeaderTimeout    = 10 * time.Second
	defaultPayloadTimeout   = 2 * time.Second
	defaultMaxRetries       = 5
	defaultInterPacketPause = 5 * time.Millisecond
)

func (c *Config) defaults() {
	if c.BlockSize <= 0 {
		c.BlockSize = defaultBlockSize
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = defaultAckTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.StartWaitTimeout <= 0 {
		c.StartWaitTimeout = defaultStartWaitTimeout
	}
	if c.HeaderTimeout <= 0 {
		c.HeaderTimeout = defaultHeaderTimeout
	}
	if c.PayloadTimeout <= 0 {
		c.PayloadTimeout = defaultPayloadTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.InterPacketPause <= 0 {
		c.InterPacketPause = defaultInterPacketPause
	}
}

// resolvedConfig returns a populated Config, treating a nil cfg as the
// all-defaults configuration. Mirrors NewSession's "var c Config; if
// cfg != nil { c = *cfg }; c.defaults()" pattern from the teacher.
func resolvedConfig(cfg *Config) Config {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c.defaults()
	return c
}
