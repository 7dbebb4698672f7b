package parlink

import (
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestHandshakeFreshTransfer(t *testing.T) {
	senderSide, receiverSide, closeSender, closeReceiver := newLinkPair(16)
	defer closeSender()
	defer closeReceiver()

	cfg := resolvedConfig(nil)
	logger := discardLogger()

	senderCh := NewChannel(senderSide, nil)
	receiverCh := NewChannel(receiverSide, nil)

	var wg sync.WaitGroup
	var resumeBlock uint64
	var outPath, basename string
	var senderErr, receiverErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		resumeBlock, senderErr = senderHandshake(senderCh, cfg, "notes.txt", logger, nil)
	}()
	go func() {
		defer wg.Done()
		outPath, basename, _, receiverErr = receiverHandshake(receiverCh, cfg, logger, nil)
	}()
	wg.Wait()

	if senderErr != nil {
		t.Fatalf("senderHandshake: %v", senderErr)
	}
	if receiverErr != nil {
		t.Fatalf("receiverHandshake: %v", receiverErr)
	}
	if resumeBlock != 0 {
		t.Errorf("resumeBlock = %d, want 0 for a fresh transfer", resumeBlock)
	}
	if basename != "notes.txt" {
		t.Errorf("basename = %q, want notes.txt", basename)
	}
	if outPath != "recebido_notes.txt" {
		t.Errorf("outPath = %q, want recebido_notes.txt", outPath)
	}
}

func TestHandshakeResumesFromCheckpoint(t *testing.T) {
	dir := t.TempDir()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(origWD)

	if err := saveCheckpoint(OutputPath("big.bin"), 4); err != nil {
		t.Fatal(err)
	}

	senderSide, receiverSide, closeSender, closeReceiver := newLinkPair(16)
	defer closeSender()
	defer closeReceiver()

	cfg := resolvedConfig(nil)
	logger := discardLogger()
	senderCh := NewChannel(senderSide, nil)
	receiverCh := NewChannel(receiverSide, nil)

	var wg sync.WaitGroup
	var resumeBlock uint64
	var senderErr, receiverErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		resumeBlock, senderErr = senderHandshake(senderCh, cfg, "big.bin", logger, nil)
	}()
	go func() {
		defer wg.Done()
		_, _, _, receiverErr = receiverHandshake(receiverCh, cfg, logger, nil)
	}()
	wg.Wait()

	if senderErr != nil {
		t.Fatalf("senderHandshake: %v", senderErr)
	}
	if receiverErr != nil {
		t.Fatalf("receiverHandshake: %v", receiverErr)
	}
	if resumeBlock != 4 {
		t.Errorf("resumeBlock = %d, want 4", resumeBlock)
	}
}

func TestSenderHandshakeFailsAfterRetriesExhausted(t *testing.T) {
	senderSide, _, closeSender, closeReceiver := newLinkPair(16)
	defer closeSender()
	defer closeReceiver()

	cfg := resolvedConfig(&Config{MaxRetries: 2, HandshakeTimeout: 20 * time.Millisecond})
	senderCh := NewChannel(senderSide, nil)

	_, err := senderHandshake(senderCh, cfg, "orphan.txt", discardLogger(), nil)
	if err == nil {
		t.Fatal("expected an error when no peer ever responds")
	}
}

func TestReceiverHandshakeNoStartSignal(t *testing.T) {
	receiverSide, _, closeReceiver, closeSender := newLinkPair(16)
	defer closeReceiver()
	defer closeSender()

	cfg := resolvedConfig(&Config{StartWaitTimeout: 20 * time.Millisecond})
	receiverCh := NewChannel(receiverSide, nil)

	_, _, _, err := receiverHandshake(receiverCh, cfg, discardLogger(), nil)
	if err == nil {
		t.Fatal("expected ErrNoStartSignal when no START line ever arrives")
	}
}
