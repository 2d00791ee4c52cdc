package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestRunWritesOneShareFilePerSigner(t *testing.T) {
	dir := t.TempDir()

	if err := run("group-a", "bls", 2, 3, dir); err != nil {
		t.Fatalf("run: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 share files, got %d", len(entries))
	}

	buf, err := os.ReadFile(filepath.Join(dir, "group-a-signer-1.json"))
	if err != nil {
		t.Fatalf("read share 1: %v", err)
	}
	var sf shareFile
	if err := json.Unmarshal(buf, &sf); err != nil {
		t.Fatalf("unmarshal share 1: %v", err)
	}
	if sf.GroupID != "group-a" || sf.Threshold != 2 || sf.Total != 3 {
		t.Errorf("unexpected share contents: %+v", sf)
	}
	if sf.ShareValueHex == "" || sf.GroupPublicKey == "" {
		t.Errorf("expected non-empty share value and group public key, got %+v", sf)
	}
}

func TestRunRejectsInvalidThreshold(t *testing.T) {
	dir := t.TempDir()
	if err := run("group-a", "bls", 5, 3, dir); err == nil {
		t.Fatal("expected an error when threshold exceeds total signers")
	}
}

func TestRunRejectsEmptyGroupID(t *testing.T) {
	dir := t.TempDir()
	if err := run("", "bls", 2, 3, dir); err == nil {
		t.Fatal("expected an error for an empty group id")
	}
}
