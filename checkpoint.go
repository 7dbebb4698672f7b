package parlink

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// checkpointPath returns the sibling checkpoint file for an output path
// (spec.md §4.7: "<out_path>.temp").
func checkpointPath(outPath string) string {
	return outPath + ".temp"
}

// loadCheckpoint returns the number of contiguous, acknowledged blocks
// recorded for outPath, or 0 if the checkpoint is missing or unparseable
// (spec.md §4.7: "Missing or unparseable checkpoint ⇒ load returns 0").
func loadCheckpoint(outPath string) uint64 {
	data, err := os.ReadFile(checkpointPath(outPath))
	if err != nil {
		return 0
	}
	n, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// saveCheckpoint durably records blockCount for outPath. Per spec.md §9
// "Design Notes", a single write-then-close is not strictly atomic on a
// power-loss filesystem: write to a ".new" sibling, fsync it, then rename
// over the checkpoint file, so an interrupted write never corrupts a
// previously-valid checkpoint.
func saveCheckpoint(outPath string, blockCount uint64) error {
	path := checkpointPath(outPath)
	tmp := path + ".new"

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("parlink: open checkpoint temp: %w", err)
	}
	if _, err := f.WriteString(strconv.FormatUint(blockCount, 10)); err != nil {
		f.Close()
		return fmt.Errorf("parlink: write checkpoint temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("parlink: sync checkpoint temp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("parlink: close checkpoint temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("parlink: rename checkpoint: %w", err)
	}
	return nil
}

// removeCheckpoint deletes the checkpoint file. Idempotent: a missing
// file is not an error.
func removeCheckpoint(outPath string) error {
	err := os.Remove(checkpointPath(outPath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("parlink: remove checkpoint: %w", err)
	}
	return nil
}
