package sftpops

import (
	"os"
	"testing"
)

func TestEnsureDirMode_ZeroUsesDefault(t *testing.T) {
	got := EnsureDirMode(0)
	if got&os.ModeDir == 0 {
		t.Fatalf("expected dir bit set, got %v", got)
	}
	if got.Perm() != 0755 {
		t.Fatalf("expected default 0755, got %v", got.Perm())
	}
}

func TestEnsureDirMode_PreservesRequestedPerm(t *testing.T) {
	got := EnsureDirMode(0700)
	if got.Perm() != 0700 {
		t.Fatalf("expected 0700 preserved, got %v", got.Perm())
	}
	if got&os.ModeDir == 0 {
		t.Fatalf("expected dir bit set even when caller omitted it")
	}
}
