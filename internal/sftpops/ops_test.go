package sftpops

import (
	"os"
	"testing"
	"time"
)

type fakeFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	isDir   bool
}

func (fi fakeFileInfo) Name() string       { return fi.name }
func (fi fakeFileInfo) Size() int64        { return fi.size }
func (fi fakeFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi fakeFileInfo) ModTime() time.Time { return fi.modTime }
func (fi fakeFileInfo) IsDir() bool        { return fi.isDir }
func (fi fakeFileInfo) Sys() any           { return nil }

func TestToRemoteAttr_RegularFile(t *testing.T) {
	now := time.Now()
	ra := toRemoteAttr(fakeFileInfo{name: "f", size: 42, mode: 0644, modTime: now})
	if !ra.HasPerm || ra.Perm != 0644 {
		t.Fatalf("expected perm 0644, got %v (hasPerm=%v)", ra.Perm, ra.HasPerm)
	}
	if !ra.HasSize || ra.Size != 42 {
		t.Fatalf("expected size 42, got %d (hasSize=%v)", ra.Size, ra.HasSize)
	}
	if !ra.HasTimes || !ra.ModTime.Equal(now) {
		t.Fatalf("expected mod time to be propagated")
	}
}

func TestToRemoteAttr_DirectorySetsDirBit(t *testing.T) {
	ra := toRemoteAttr(fakeFileInfo{name: "d", mode: 0755, isDir: true})
	if ra.Perm&os.ModeDir == 0 {
		t.Fatalf("expected directory bit to be set in mapped perm, got %v", ra.Perm)
	}
}
