package parlink

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// outputPrefix is prepended to the sanitized basename the sender sends in
// its START request, per spec.md §3 ("StartRequest ... The receiver
// derives its output path as \"recebido_\" + basename").
const outputPrefix = "recebido_"

// OutputPath returns the path the receiver would write basename to.
// filepath.Base strips any directory components the sender's basename
// might (maliciously or accidentally) still contain.
func OutputPath(basename string) string {
	return outputPrefix + filepath.Base(basename)
}

// senderHandshake runs the START/ACK_STATUS exchange from the sender's
// side (spec.md §4.4 steps 1 and 3). It returns the block index to
// resume from (0 if the receiver has nothing yet).
func senderHandshake(ch *Channel, cfg Config, basename string, logger *slog.Logger, cancel *CancelToken) (resumeBlock uint64, err error) {
	req := EncodeStartRequest(basename)

	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if cancel.Cancelled() {
			return 0, ErrInterrupted
		}

		logger.Debug("sending START", "basename", basename, "attempt", attempt+1)
		if err := ch.WriteAll(req); err != nil {
			return 0, err
		}

		line, err := ch.ReadLine(cfg.HandshakeTimeout)
		if err != nil {
			logger.Debug("handshake response failed", "err", err, "attempt", attempt+1)
			continue
		}

		n, ok := ParseAckStatus(line)
		if !ok {
			logger.Warn("unexpected handshake response", "line", string(line))
			continue
		}

		logger.Info("handshake complete", "resume_block", n)
		return n, nil
	}

	return 0, ErrHandshakeFailed
}

// receiverHandshake runs the START/ACK_STATUS exchange from the
// receiver's side (spec.md §4.4 step 2). It returns the output path, the
// sanitized basename, and the already-acknowledged block count read from
// the checkpoint (0 if none exists).
func receiverHandshake(ch *Channel, cfg Config, logger *slog.Logger, cancel *CancelToken) (outPath, basename string, resumeBlock uint64, err error) {
	deadline := time.Now().Add(cfg.StartWaitTimeout)
	var name string
	for {
		line, err := ch.ReadLine(time.Until(deadline))
		if err != nil {
			if errors.Is(err, ErrInterrupted) {
				return "", "", 0, ErrInterrupted
			}
			return "", "", 0, fmt.Errorf("%w: %v", ErrNoStartSignal, err)
		}
		n, ok := ParseStartRequest(line)
		if ok {
			name = n
			break
		}
		logger.Warn("ignoring non-START line while waiting for START", "line", string(line))
	}

	basename = filepath.Base(name)
	outPath = OutputPath(basename)
	resumeBlock = loadCheckpoint(outPath)

	logger.Info("received START", "file", basename, "out", outPath, "resume_block", resumeBlock)

	if err := ch.WriteAll(EncodeAckStatus(resumeBlock)); err != nil {
		return "", "", 0, err
	}
	ch.FlushInput()

	return outPath, basename, resumeBlock, nil
}
