package parlink

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Receiver implements the receiver state machine of spec.md §4.6:
// AwaitingStart → Receiving(expected_seq) → Complete.
type Receiver struct {
	ch     *Channel
	cfg    Config
	logger *slog.Logger
	cancel *CancelToken
}

// NewReceiver returns a Receiver bound to ch. cfg may be nil (all
// defaults); logger may be nil (slog.Default()); cancel may be nil
// (never cancelled).
func NewReceiver(ch *Channel, cfg *Config, logger *slog.Logger, cancel *CancelToken) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{ch: ch, cfg: resolvedConfig(cfg), logger: logger, cancel: cancel}
}

// Run waits for a START request, negotiates a resume offset, and writes
// the incoming file to disk. It returns the output path and nil on a
// clean EndMarker. A peer timeout or interruption returns a non-nil error
// with the checkpoint left intact for a later resume.
func (r *Receiver) Run() (outPath string, err error) {
	outPath, basename, resumeBlock, err := receiverHandshake(r.ch, r.cfg, r.logger, r.cancel)
	if err != nil {
		return "", err
	}

	flags := os.O_WRONLY | os.O_CREATE
	if resumeBlock > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(outPath, flags, 0o644)
	if err != nil {
		return "", fmt.Errorf("parlink: open output file: %w", err)
	}
	defer f.Close()

	lastAcked := resumeBlock
	expectedSeq := byte(lastAcked % 2)
	bytesReceived := int64(lastAcked) * int64(r.cfg.BlockSize)

	r.logger.Info("receiver waiting for data", "file", basename, "out", outPath, "expected_seq", expectedSeq)

	for {
		if r.cancel.Cancelled() {
			return outPath, ErrInterrupted
		}

		done, err := r.receiveOne(f, &lastAcked, &expectedSeq, &bytesReceived)
		if err != nil {
			return outPath, err
		}
		if done {
			return outPath, nil
		}
	}
}

// receiveOne handles a single iteration of the Receiving state: it peeks
// for the END marker, otherwise parses one DataPacket and applies the
// size/CRC/sequence validation of spec.md §4.6. done is true once
// EndMarker has been observed.
func (r *Receiver) receiveOne(f *os.File, lastAcked *uint64, expectedSeq *byte, bytesReceived *int64) (done bool, err error) {
	first, err := r.ch.ReadExact(1, r.cfg.HeaderTimeout)
	if err != nil {
		if errors.Is(err, ErrInterrupted) {
			return false, ErrInterrupted
		}
		return false, fmt.Errorf("%w: peer idle past header timeout", err)
	}

	if first[0] == 'E' {
		rest, err := r.ch.ReadExact(3, r.cfg.HeaderTimeout)
		if err != nil {
			return false, err
		}
		if isEndMarker(append([]byte{first[0]}, rest...)) {
			r.logger.Info("END received", "last_acked_block", *lastAcked)
			if err := removeCheckpoint(f.Name()); err != nil {
				return false, err
			}
			return true, nil
		}
		// Not actually an END marker: garbled framing. NAK and resync.
		r.logger.Warn("malformed frame after leading 'E'", "bytes", rest)
		return false, r.ch.WriteAll([]byte{nakByte})
	}

	headerRest, err := r.ch.ReadExact(headerSize-1, r.cfg.HeaderTimeout)
	if err != nil {
		return false, err
	}
	full := append([]byte{first[0]}, headerRest...)

	hdr, err := DecodeHeader(full, r.cfg.BlockSize)
	if err != nil {
		r.logger.Debug("frame decode error, sending NAK", "err", err)
		return false, r.ch.WriteAll([]byte{nakByte})
	}

	payload, err := r.ch.ReadExact(int(hdr.PayloadLen), r.cfg.PayloadTimeout)
	if err != nil {
		r.logger.Debug("payload read error, sending NAK", "err", err)
		return false, r.ch.WriteAll([]byte{nakByte})
	}

	if crc32Checksum(payload) != hdr.CRC32 {
		r.logger.Debug("sending NAK", "err", ErrCrcMismatch, "seq", hdr.Seq)
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.CRCFailures.Inc()
		}
		return false, r.ch.WriteAll([]byte{nakByte})
	}

	switch {
	case hdr.Seq == *expectedSeq:
		if _, err := f.Write(payload); err != nil {
			return false, fmt.Errorf("parlink: write output file: %w", err)
		}
		if err := f.Sync(); err != nil {
			return false, fmt.Errorf("parlink: sync output file: %w", err)
		}
		*lastAcked++
		*bytesReceived += int64(len(payload))
		if err := saveCheckpoint(f.Name(), *lastAcked); err != nil {
			return false, err
		}
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.BlocksReceived.Inc()
			r.cfg.Metrics.CheckpointsSaved.Inc()
		}
		if err := r.ch.WriteAll([]byte{ackByte}); err != nil {
			return false, err
		}
		if r.cfg.Progress != nil {
			r.cfg.Progress(int(*lastAcked-1), -1, *bytesReceived, -1)
		}
		*expectedSeq ^= 1
		r.logger.Debug("block accepted", "block", *lastAcked, "seq", hdr.Seq)

	case hdr.Seq == 1-*expectedSeq:
		r.logger.Debug("duplicate block, re-ACKing without write", "seq", hdr.Seq)
		if err := r.ch.WriteAll([]byte{ackByte}); err != nil {
			return false, err
		}

	default:
		r.logger.Debug("sending NAK", "err", ErrSequenceMismatch, "seq", hdr.Seq, "expected", *expectedSeq)
		if err := r.ch.WriteAll([]byte{nakByte}); err != nil {
			return false, err
		}
	}

	return false, nil
}
