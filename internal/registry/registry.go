// Package registry is the Mount Registry: on-disk persistence of live
// mounts and their full connection parameters, so the cp/mv CLI tools can
// discover and reconnect to a mount running in a different process.
//
// Grounded on rclone's config.Data reader/writer (config/config.go), which
// also rewrites a flat config file through a sibling temp file and rename
// rather than locking; generalized here from rclone's single INI file to
// colon/pipe mounts.conf and connections.conf files plus a length-prefixed
// connections.v2.conf.
package registry

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// dirName is the per-user configuration directory name under $HOME/.config.
const dirName = "remotefs"

// MountEntry is one row of mounts.conf joined with the matching
// connections.conf row: everything needed to reconnect to a running mount.
type MountEntry struct {
	MountPoint string
	RemotePath string
	Host       string
	Port       string
	User       string
	KeyPath    string
	Password   string
}

// Registry owns the on-disk registry files (mounts.conf, connections.conf,
// connections.v2.conf) under one configuration directory.
type Registry struct {
	dir string
}

// Open resolves (and creates, mode 0700) the per-user configuration
// directory.
func Open() (*Registry, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.Wrap(err, "resolving home directory")
	}
	dir := filepath.Join(home, ".config", dirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrapf(err, "creating config directory %q", dir)
	}
	return &Registry{dir: dir}, nil
}

// OpenAt is Open with an explicit directory, used by tests to avoid
// touching the real user configuration directory.
func OpenAt(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrapf(err, "creating config directory %q", dir)
	}
	return &Registry{dir: dir}, nil
}

func (r *Registry) mountsPath() string      { return filepath.Join(r.dir, "mounts.conf") }
func (r *Registry) connectionsPath() string { return filepath.Join(r.dir, "connections.conf") }
func (r *Registry) connectionsV2Path() string {
	return filepath.Join(r.dir, "connections.v2.conf")
}

// RegisterMount writes (or replaces) the mounts.conf row and the
// connections.v2.conf record for entry.MountPoint. The connections record
// uses the length-prefixed v2 format; mounts.conf keeps its original colon
// format since it never holds a password or an unrestricted path component.
func (r *Registry) RegisterMount(entry MountEntry) error {
	if err := r.upsertMountsLine(entry.MountPoint, entry.RemotePath); err != nil {
		return err
	}
	return r.upsertConnectionV2(entry)
}

// DeregisterMount removes mountPoint's rows from all three files. Missing rows
// are not an error: unmount on an already-deregistered or never-registered
// mount point is a no-op.
func (r *Registry) DeregisterMount(mountPoint string) error {
	if err := r.removeMountsLine(mountPoint); err != nil {
		return err
	}
	return r.removeConnectionRows(mountPoint)
}

// Lookup resolves mountPoint to a full MountEntry, preferring a v2
// connections row, falling back to a v1 colon/pipe row, and finally to a
// mounts.conf-only entry (remote base path known, credentials unknown).
func (r *Registry) Lookup(mountPoint string) (MountEntry, bool, error) {
	if entry, ok, err := r.lookupConnectionV2(mountPoint); err != nil {
		return MountEntry{}, false, err
	} else if ok {
		return entry, true, nil
	}
	if entry, ok, err := r.lookupConnectionV1(mountPoint); err != nil {
		return MountEntry{}, false, err
	} else if ok {
		return entry, true, nil
	}

	remotePath, ok, err := r.lookupMountsLine(mountPoint)
	if err != nil {
		return MountEntry{}, false, err
	}
	if !ok {
		return MountEntry{}, false, nil
	}
	return MountEntry{MountPoint: mountPoint, RemotePath: remotePath}, true, nil
}

// List returns every mount point currently recorded in mounts.conf.
func (r *Registry) List() ([]MountEntry, error) {
	lines, err := readLines(r.mountsPath())
	if err != nil {
		return nil, err
	}
	var entries []MountEntry
	for _, line := range lines {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		entries = append(entries, MountEntry{MountPoint: parts[0], RemotePath: parts[1]})
	}
	return entries, nil
}

func (r *Registry) upsertMountsLine(mountPoint, remotePath string) error {
	return rewriteLines(r.mountsPath(), func(lines []string) []string {
		prefix := mountPoint + ":"
		out := make([]string, 0, len(lines)+1)
		replaced := false
		for _, line := range lines {
			if strings.HasPrefix(line, prefix) {
				out = append(out, prefix+remotePath)
				replaced = true
				continue
			}
			out = append(out, line)
		}
		if !replaced {
			out = append(out, prefix+remotePath)
		}
		return out
	})
}

func (r *Registry) removeMountsLine(mountPoint string) error {
	return rewriteLines(r.mountsPath(), func(lines []string) []string {
		prefix := mountPoint + ":"
		out := make([]string, 0, len(lines))
		for _, line := range lines {
			if strings.HasPrefix(line, prefix) {
				continue
			}
			out = append(out, line)
		}
		return out
	})
}

func (r *Registry) lookupMountsLine(mountPoint string) (string, bool, error) {
	lines, err := readLines(r.mountsPath())
	if err != nil {
		return "", false, err
	}
	prefix := mountPoint + ":"
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimPrefix(line, prefix), true, nil
		}
	}
	return "", false, nil
}

// readLines reads a registry file's newline-terminated records, returning
// an empty slice (not an error) if the file does not yet exist.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scanning %q", path)
	}
	return lines, nil
}

// rewriteLines implements an atomic temp-file-then-rename update: read the
// current lines, let transform produce the new set, write them to a
// sibling temp file, then rename over the original.
func rewriteLines(path string, transform func([]string) []string) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	newLines := transform(lines)

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return errors.Wrapf(err, "creating temp file %q", tmp)
	}
	w := bufio.NewWriter(f)
	for _, line := range newLines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			f.Close()
			return errors.Wrapf(err, "writing temp file %q", tmp)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "flushing temp file %q", tmp)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing temp file %q", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "renaming %q into place", path)
	}
	return nil
}
