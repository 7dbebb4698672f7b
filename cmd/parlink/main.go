// Command parlink sends or receives a single file over a serial link
// using the Stop-and-Wait protocol implemented by package parlink.
package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xx25/go-parlink"
	"github.com/xx25/go-parlink/internal/metrics"
	"github.com/xx25/go-parlink/internal/serialchan"
)

func main() {
	var (
		mode        = flag.String("mode", "", "send or receive")
		port        = flag.String("port", "/dev/ttyUSB0", "serial device path")
		baud        = flag.Int("baud", 115200, "serial baud rate")
		rtscts      = flag.Bool("rtscts", false, "assert RTS on the serial port (no hardware flow control)")
		filePath    = flag.String("file", "", "file to send (sender mode only)")
		metricsAddr = flag.String("metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9110 (disabled if empty)")
		verbose     = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if *mode != "send" && *mode != "receive" {
		logger.Error("-mode must be send or receive")
		os.Exit(2)
	}
	if *mode == "send" && *filePath == "" {
		logger.Error("-file is required in send mode")
		os.Exit(2)
	}

	cancel := parlink.NewCancelToken()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("interrupt received, stopping transfer")
		cancel.Cancel()
	}()

	var collector *metrics.Collector
	if *metricsAddr != "" {
		collector = metrics.NewCollector(*mode)
		go func() {
			if err := collector.Serve(*metricsAddr); err != nil {
				logger.Warn("metrics server stopped", "err", err)
			}
		}()
		logger.Info("serving metrics", "addr", *metricsAddr)
	}

	sp, err := serialchan.Open(serialchan.Options{Port: *port, Baud: *baud, RTSCTS: *rtscts})
	if err != nil {
		logger.Error("open serial port", "err", err)
		os.Exit(1)
	}
	defer sp.Close()

	ch := parlink.NewChannel(sp, cancel)
	cfg := &parlink.Config{Metrics: collector}

	switch *mode {
	case "send":
		cfg.Progress = func(blockIndex, totalBlocks int, bytesDone, bytesTotal int64) {
			logger.Info("progress", "block", blockIndex+1, "of", totalBlocks, "bytes", bytesDone, "total", bytesTotal)
		}
		s := parlink.NewSender(ch, cfg, logger, cancel)
		if err := s.Run(*filePath); err != nil {
			logger.Error("transfer failed", "err", err)
			os.Exit(1)
		}
		logger.Info("transfer complete")

	case "receive":
		r := parlink.NewReceiver(ch, cfg, logger, cancel)
		outPath, err := r.Run()
		if err != nil {
			logger.Error("transfer failed", "out", outPath, "err", err)
			os.Exit(1)
		}
		logger.Info("transfer complete", "out", outPath)
	}

	// Give any in-flight pump goroutine a moment to unwind before the
	// port closes out from under it.
	time.Sleep(10 * time.Millisecond)
}
