package parlink

import "errors"

// Error kinds per the link-protocol error taxonomy. Recoverable kinds
// (ErrCrcMismatch, ErrSequenceMismatch, ErrShortFrame, ErrOversizedPayload,
// the sender's per-attempt timeouts and the receiver's payload timeout)
// are handled inside the ARQ loop and never escape Sender.Run/Receiver.Run.
// The receiver returns ErrLinkTimeout when no header or END marker arrives
// within HeaderTimeout. The rest are fatal and are returned to the caller,
// which maps them to a process exit code.
var (
	// ErrLinkTimeout is returned by channel reads that exceed their deadline.
	ErrLinkTimeout = errors.New("parlink: link timeout")
	// ErrLinkBroken is returned by channel writes, or reads, that fail for
	// reasons other than a deadline (closed transport, OS error).
	ErrLinkBroken = errors.New("parlink: link broken")
	// ErrInterrupted is returned from any suspension point once a
	// CancelToken has been cancelled.
	ErrInterrupted = errors.New("parlink: interrupted")

	// ErrShortFrame is returned when fewer than 9 header bytes are present.
	ErrShortFrame = errors.New("parlink: short frame")
	// ErrInconsistentLength is returned when the payload is shorter than
	// declared by payload_len.
	ErrInconsistentLength = errors.New("parlink: inconsistent payload length")
	// ErrOversizedPayload is returned when payload_len is 0 or exceeds
	// BlockSize.
	ErrOversizedPayload = errors.New("parlink: oversized payload")

	// ErrCrcMismatch is raised by the receiver on a failed CRC-32 check.
	ErrCrcMismatch = errors.New("parlink: crc mismatch")
	// ErrSequenceMismatch is raised by the receiver for a seq value that is
	// neither the expected one nor the previously-acked one.
	ErrSequenceMismatch = errors.New("parlink: sequence mismatch")

	// ErrHandshakeFailed is returned by the sender after MaxRetries START
	// attempts with no valid ACK_STATUS response.
	ErrHandshakeFailed = errors.New("parlink: handshake failed")
	// ErrNoStartSignal is returned by the receiver after its initial
	// START wait deadline elapses.
	ErrNoStartSignal = errors.New("parlink: no start signal")
	// ErrPeerUnresponsive is returned by the sender after MaxRetries
	// retransmissions of the same block without an ACK.
	ErrPeerUnresponsive = errors.New("parlink: peer unresponsive")
)
