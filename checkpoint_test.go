package parlink

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckpointSaveLoadRoundTrip(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "recebido_report.csv")

	if got := loadCheckpoint(outPath); got != 0 {
		t.Fatalf("loadCheckpoint before save = %d, want 0", got)
	}

	if err := saveCheckpoint(outPath, 7); err != nil {
		t.Fatalf("saveCheckpoint: %v", err)
	}
	if got := loadCheckpoint(outPath); got != 7 {
		t.Errorf("loadCheckpoint after save = %d, want 7", got)
	}

	if err := saveCheckpoint(outPath, 8); err != nil {
		t.Fatalf("saveCheckpoint (overwrite): %v", err)
	}
	if got := loadCheckpoint(outPath); got != 8 {
		t.Errorf("loadCheckpoint after overwrite = %d, want 8", got)
	}
}

func TestCheckpointLoadMissingOrCorrupt(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "recebido_missing.bin")
	if got := loadCheckpoint(outPath); got != 0 {
		t.Errorf("loadCheckpoint for missing file = %d, want 0", got)
	}

	if err := os.WriteFile(checkpointPath(outPath), []byte("not-a-number"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := loadCheckpoint(outPath); got != 0 {
		t.Errorf("loadCheckpoint for corrupt file = %d, want 0", got)
	}
}

func TestCheckpointRemoveIsIdempotent(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "recebido_report.csv")
	if err := saveCheckpoint(outPath, 3); err != nil {
		t.Fatal(err)
	}
	if err := removeCheckpoint(outPath); err != nil {
		t.Fatalf("removeCheckpoint: %v", err)
	}
	if _, err := os.Stat(checkpointPath(outPath)); !os.IsNotExist(err) {
		t.Errorf("checkpoint file still exists after removeCheckpoint")
	}
	if err := removeCheckpoint(outPath); err != nil {
		t.Errorf("second removeCheckpoint returned %v, want nil", err)
	}
}

func TestCheckpointSaveLeavesNoTempSibling(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "recebido_report.csv")
	if err := saveCheckpoint(outPath, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(checkpointPath(outPath) + ".new"); !os.IsNotExist(err) {
		t.Error("saveCheckpoint left its .new temp file behind")
	}
}
