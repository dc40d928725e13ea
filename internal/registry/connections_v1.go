package registry

import (
	"strings"

	"github.com/pkg/errors"
)

// v1 connections.conf record format:
//   <mount point>:<host>:<user>:<port>:<remote base path>:<key path>|<password>
// The final two fields are joined with a pipe, so colons inside the key
// path or the password survive the five-colon split; a colon in any of the
// first five fields does not. Either side of the pipe may be empty.
func encodeConnectionV1(e MountEntry) string {
	return strings.Join([]string{
		e.MountPoint, e.Host, e.User, e.Port, e.RemotePath,
	}, ":") + ":" + e.KeyPath + "|" + e.Password
}

func decodeConnectionV1(line string) (MountEntry, error) {
	parts := strings.SplitN(line, ":", 6)
	if len(parts) != 6 {
		return MountEntry{}, errors.Errorf("malformed v1 connection record: %q", line)
	}
	keyAndPassword := strings.SplitN(parts[5], "|", 2)
	if len(keyAndPassword) != 2 {
		return MountEntry{}, errors.Errorf("malformed v1 connection record (missing pipe): %q", line)
	}
	return MountEntry{
		MountPoint: parts[0],
		Host:       parts[1],
		User:       parts[2],
		Port:       parts[3],
		RemotePath: parts[4],
		KeyPath:    keyAndPassword[0],
		Password:   keyAndPassword[1],
	}, nil
}

func (r *Registry) lookupConnectionV1(mountPoint string) (MountEntry, bool, error) {
	lines, err := readLines(r.connectionsPath())
	if err != nil {
		return MountEntry{}, false, err
	}
	prefix := mountPoint + ":"
	for _, line := range lines {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		entry, err := decodeConnectionV1(line)
		if err != nil {
			return MountEntry{}, false, err
		}
		return entry, true, nil
	}
	return MountEntry{}, false, nil
}

func (r *Registry) removeConnectionRows(mountPoint string) error {
	if err := rewriteLines(r.connectionsPath(), func(lines []string) []string {
		prefix := mountPoint + ":"
		out := make([]string, 0, len(lines))
		for _, line := range lines {
			if !strings.HasPrefix(line, prefix) {
				out = append(out, line)
			}
		}
		return out
	}); err != nil {
		return err
	}
	return r.removeConnectionV2Rows(mountPoint)
}
