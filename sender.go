package parlink

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Sender implements the sender state machine of spec.md §4.5:
// Handshaking → Sending(block_i, attempt_k) → Sent → Ending → Done.
type Sender struct {
	ch     *Channel
	cfg    Config
	logger *slog.Logger
	cancel *CancelToken
}

// NewSender returns a Sender bound to ch. cfg may be nil (all defaults);
// logger may be nil (slog.Default()); cancel may be nil (never cancelled).
func NewSender(ch *Channel, cfg *Config, logger *slog.Logger, cancel *CancelToken) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{ch: ch, cfg: resolvedConfig(cfg), logger: logger, cancel: cancel}
}

// Run sends the file at path to the peer, resuming from whatever offset
// the peer's handshake response indicates. It returns nil only after the
// peer has acknowledged every block and the END marker has been sent.
func (s *Sender) Run(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("parlink: open source file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("parlink: stat source file: %w", err)
	}
	fileSize := stat.Size()
	totalBlocks := int((fileSize + int64(s.cfg.BlockSize) - 1) / int64(s.cfg.BlockSize))

	basename := filepath.Base(path)
	s.logger.Info("sender starting", "file", basename, "size", fileSize, "total_blocks", totalBlocks)

	resumeBlock, err := senderHandshake(s.ch, s.cfg, basename, s.logger, s.cancel)
	if err != nil {
		return err
	}

	if resumeBlock >= uint64(totalBlocks) {
		s.logger.Info("peer already has the complete file", "resume_block", resumeBlock)
		return s.sendEnd()
	}

	if _, err := f.Seek(int64(resumeBlock)*int64(s.cfg.BlockSize), io.SeekStart); err != nil {
		return fmt.Errorf("parlink: seek source file: %w", err)
	}

	seq := byte(resumeBlock % 2)
	buf := make([]byte, s.cfg.BlockSize)

	for blockIndex := resumeBlock; blockIndex < uint64(totalBlocks); blockIndex++ {
		if s.cancel.Cancelled() {
			s.logger.Info("interrupted between blocks, exiting without END", "block", blockIndex)
			return ErrInterrupted
		}

		n, readErr := f.Read(buf)
		if n == 0 && readErr != nil {
			return fmt.Errorf("parlink: read source file: %w", readErr)
		}
		if readErr != nil && readErr != io.EOF {
			return fmt.Errorf("parlink: read source file: %w", readErr)
		}
		payload := append([]byte(nil), buf[:n]...)

		if err := s.sendBlockWithRetries(blockIndex, seq, payload); err != nil {
			return err
		}

		bytesDone := int64(blockIndex+1) * int64(s.cfg.BlockSize)
		if bytesDone > fileSize {
			bytesDone = fileSize
		}
		if s.cfg.Progress != nil {
			s.cfg.Progress(int(blockIndex), totalBlocks, bytesDone, fileSize)
		}

		seq ^= 1
		if s.cfg.InterPacketPause > 0 {
			time.Sleep(s.cfg.InterPacketPause)
		}
	}

	return s.sendEnd()
}

// sendBlockWithRetries sends one data packet and waits for its response,
// retransmitting the identical packet on NAK or timeout, up to
// cfg.MaxRetries attempts (spec.md §4.5 steps 2-4).
func (s *Sender) sendBlockWithRetries(blockIndex uint64, seq byte, payload []byte) error {
	pkt := EncodeDataPacket(seq, payload)

	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if s.cancel.Cancelled() {
			return ErrInterrupted
		}
		if attempt > 0 && s.cfg.Metrics != nil {
			s.cfg.Metrics.Retransmissions.Inc()
		}

		s.logger.Debug("sending block", "block", blockIndex, "seq", seq, "len", len(payload), "attempt", attempt+1)
		if err := s.ch.WriteAll(pkt); err != nil {
			return err
		}

		if s.cfg.Metrics != nil {
			s.cfg.Metrics.BlocksSent.Inc()
		}

		resp, err := s.ch.ReadExact(1, s.cfg.AckTimeout)
		if err != nil {
			if errors.Is(err, ErrInterrupted) {
				return ErrInterrupted
			}
			if errors.Is(err, ErrLinkBroken) {
				return err
			}
			s.logger.Debug("ack wait failed, retransmitting", "block", blockIndex, "err", err)
			continue
		}

		switch resp[0] {
		case ackByte:
			return nil
		case nakByte:
			s.logger.Debug("NAK received, retransmitting", "block", blockIndex)
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.NAKsReceived.Inc()
			}
		default:
			s.logger.Warn("unexpected response byte, retransmitting", "block", blockIndex, "byte", resp[0])
		}
	}

	return fmt.Errorf("%w: block %d after %d attempts", ErrPeerUnresponsive, blockIndex, s.cfg.MaxRetries)
}

func (s *Sender) sendEnd() error {
	s.logger.Info("transfer complete, sending END")
	return s.ch.WriteAll([]byte(endMarkerText))
}
