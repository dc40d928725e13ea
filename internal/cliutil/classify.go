// Package cliutil implements the path classification and transfer
// orchestration shared by the remotefs-cp and remotefs-mv binaries: each
// argument is classified as local or remote-inside-a-managed-mount by
// consulting the Mount Registry, and the four local/remote combinations
// are dispatched to the matching helper.
package cliutil

import (
	"path/filepath"
	"strings"

	"github.com/remotefs/remotefs/internal/registry"
)

// Location is a classified CLI argument: either a plain local path, or a
// path inside a registered mount, translated to its remote-side path.
type Location struct {
	LocalPath string // always populated with the argument as given

	IsRemote   bool
	MountPoint string
	RemotePath string // only meaningful when IsRemote
}

// Classify implements the is_remote invariant: for a path P and the set
// of registered mount points, P is remote iff the realpath of P, after
// resolution, equals some mount point M or begins with M + "/". mounts is
// the full list from the registry; the first match wins (mount points
// are not expected to nest).
func Classify(path string, mounts []registry.MountEntry) (Location, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Location{}, err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// A not-yet-existing destination path (e.g. cp's new file name)
		// can't be resolved through symlinks; fall back to the
		// lexically-cleaned absolute form, which is still correct for
		// prefix matching against a mount point.
		resolved = abs
	}

	for _, m := range mounts {
		mountAbs, err := filepath.Abs(m.MountPoint)
		if err != nil {
			continue
		}
		if resolved == mountAbs || strings.HasPrefix(resolved, mountAbs+string(filepath.Separator)) {
			rel := strings.TrimPrefix(resolved, mountAbs)
			rel = strings.TrimPrefix(rel, string(filepath.Separator))
			remotePath := filepath.Join(m.RemotePath, rel)
			return Location{
				LocalPath:  path,
				IsRemote:   true,
				MountPoint: mountAbs,
				RemotePath: remotePath,
			}, nil
		}
	}

	return Location{LocalPath: path}, nil
}
