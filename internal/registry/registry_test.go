package registry

import (
	"path/filepath"
	"testing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := OpenAt(filepath.Join(t.TempDir(), "remotefs"))
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	return reg
}

func TestRegisterAndLookupMount(t *testing.T) {
	reg := newTestRegistry(t)
	entry := MountEntry{
		MountPoint: "/mnt/remote",
		Host:       "example.com",
		Port:       "22",
		User:       "alice",
		RemotePath: "/home/alice",
		KeyPath:    "/home/alice/.ssh/id_ed25519",
	}
	if err := reg.RegisterMount(entry); err != nil {
		t.Fatalf("RegisterMount: %v", err)
	}

	got, ok, err := reg.Lookup("/mnt/remote")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatalf("expected mount to be found")
	}
	if got != entry {
		t.Fatalf("expected %+v, got %+v", entry, got)
	}
}

func TestRegisterMountReplacesExistingEntry(t *testing.T) {
	reg := newTestRegistry(t)
	first := MountEntry{MountPoint: "/mnt/remote", Host: "a.example.com", RemotePath: "/a"}
	second := MountEntry{MountPoint: "/mnt/remote", Host: "b.example.com", RemotePath: "/b"}

	if err := reg.RegisterMount(first); err != nil {
		t.Fatalf("RegisterMount(first): %v", err)
	}
	if err := reg.RegisterMount(second); err != nil {
		t.Fatalf("RegisterMount(second): %v", err)
	}

	got, ok, err := reg.Lookup("/mnt/remote")
	if err != nil || !ok {
		t.Fatalf("Lookup: ok=%v err=%v", ok, err)
	}
	if got.Host != "b.example.com" {
		t.Fatalf("expected replaced entry, got host %q", got.Host)
	}

	entries, err := reg.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one mounts.conf row after replace, got %d", len(entries))
	}
}

func TestDeregisterMountRemovesBothFiles(t *testing.T) {
	reg := newTestRegistry(t)
	entry := MountEntry{MountPoint: "/mnt/remote", Host: "example.com", RemotePath: "/home"}
	if err := reg.RegisterMount(entry); err != nil {
		t.Fatalf("RegisterMount: %v", err)
	}
	if err := reg.DeregisterMount("/mnt/remote"); err != nil {
		t.Fatalf("DeregisterMount: %v", err)
	}
	if _, ok, err := reg.Lookup("/mnt/remote"); err != nil || ok {
		t.Fatalf("expected mount to be gone, ok=%v err=%v", ok, err)
	}
}

func TestLookupUnknownMountPoint(t *testing.T) {
	reg := newTestRegistry(t)
	_, ok, err := reg.Lookup("/not/registered")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected unknown mount point to report not found")
	}
}

func TestConnectionV1RoundTrip(t *testing.T) {
	entry := MountEntry{
		MountPoint: "/mnt/x",
		Host:       "h",
		User:       "u",
		Port:       "2222",
		RemotePath: "/remote/path",
		KeyPath:    "/home/u/.ssh/id_rsa",
		Password:   "",
	}
	line := encodeConnectionV1(entry)
	got, err := decodeConnectionV1(line)
	if err != nil {
		t.Fatalf("decodeConnectionV1: %v", err)
	}
	if got != entry {
		t.Fatalf("expected %+v, got %+v", entry, got)
	}
}

func TestConnectionV1RoundTrip_EmptyFieldsPermitted(t *testing.T) {
	entry := MountEntry{MountPoint: "/m", Host: "h", RemotePath: "/r"}
	line := encodeConnectionV1(entry)
	got, err := decodeConnectionV1(line)
	if err != nil {
		t.Fatalf("decodeConnectionV1: %v", err)
	}
	if got.KeyPath != "" || got.Password != "" {
		t.Fatalf("expected empty key/password fields preserved, got %+v", got)
	}
}

func TestConnectionV2RoundTrip_FieldsWithColonsAndPipes(t *testing.T) {
	entry := MountEntry{
		MountPoint: "/mnt:weird",
		Host:       "example.com",
		User:       "bob",
		Port:       "22",
		RemotePath: "/some|path:with:colons",
		KeyPath:    "",
		Password:   "p@ss:word|here",
	}
	encoded := encodeConnectionV2(entry)
	data := append([]byte{v2FormatVersion}, encoded...)
	got, consumed, err := decodeConnectionV2Record(data[1:])
	if err != nil {
		t.Fatalf("decodeConnectionV2Record: %v", err)
	}
	if consumed != len(encoded) {
		t.Fatalf("expected to consume exactly the encoded record, got %d of %d", consumed, len(encoded))
	}
	if got != entry {
		t.Fatalf("expected %+v, got %+v", entry, got)
	}
}

func TestLegacyV1ConnectionsFileStillReadableAfterV2Write(t *testing.T) {
	reg := newTestRegistry(t)

	v1Entry := MountEntry{MountPoint: "/legacy", Host: "old.example.com", RemotePath: "/old"}
	if err := rewriteLines(reg.connectionsPath(), func(lines []string) []string {
		return append(lines, encodeConnectionV1(v1Entry))
	}); err != nil {
		t.Fatalf("seeding legacy v1 record: %v", err)
	}
	if err := reg.RegisterMount(MountEntry{MountPoint: "/new", Host: "new.example.com", RemotePath: "/new"}); err != nil {
		t.Fatalf("RegisterMount (v2 write): %v", err)
	}

	got, ok, err := reg.Lookup("/legacy")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatalf("expected legacy v1 record to still be found")
	}
	if got.Host != "old.example.com" {
		t.Fatalf("expected legacy host preserved, got %q", got.Host)
	}
}
