package posix

import (
	"os"
	"testing"
	"time"
)

func TestMapAttr_MountRootDefaultsToDirectory(t *testing.T) {
	a := MapAttr(RemoteAttr{}, MappingContext{IsMountRoot: true})
	if a.Mode&os.ModeDir == 0 {
		t.Fatalf("expected directory type bit, got mode %v", a.Mode)
	}
	if a.Mode.Perm() != 0555 {
		t.Fatalf("expected perm 0555, got %o", a.Mode.Perm())
	}
	if a.Nlink != 2 {
		t.Fatalf("expected link count 2 for directory, got %d", a.Nlink)
	}
}

func TestMapAttr_NonRootDefaultsToRegularFile(t *testing.T) {
	a := MapAttr(RemoteAttr{}, MappingContext{})
	if a.Mode.IsDir() {
		t.Fatalf("expected regular file, got directory")
	}
	if a.Mode.Perm() != 0444 {
		t.Fatalf("expected perm 0444, got %o", a.Mode.Perm())
	}
	if a.Nlink != 1 {
		t.Fatalf("expected link count 1 for file, got %d", a.Nlink)
	}
}

func TestMapAttr_OwnerFallsBackToMountingUser(t *testing.T) {
	a := MapAttr(RemoteAttr{}, MappingContext{MountUID: 1000, MountGID: 1000})
	if a.UID != 1000 || a.GID != 1000 {
		t.Fatalf("expected mounting user's ids, got %d/%d", a.UID, a.GID)
	}
}

func TestMapAttr_OwnerCarriesThroughWhenPresent(t *testing.T) {
	a := MapAttr(RemoteAttr{HasOwner: true, UID: 42, GID: 7}, MappingContext{MountUID: 1000, MountGID: 1000})
	if a.UID != 42 || a.GID != 7 {
		t.Fatalf("expected remote ids to carry through, got %d/%d", a.UID, a.GID)
	}
}

func TestMapAttr_ProcShimInflatesZeroSizeFile(t *testing.T) {
	a := MapAttr(RemoteAttr{HasSize: true, Size: 0}, MappingContext{RemoteBasePath: "/proc"})
	if a.Size != 4096 {
		t.Fatalf("expected /proc shim to report 4096, got %d", a.Size)
	}
}

func TestMapAttr_ProcShimDoesNotActivateForOtherBasePaths(t *testing.T) {
	a := MapAttr(RemoteAttr{HasSize: true, Size: 0}, MappingContext{RemoteBasePath: "/etc"})
	if a.Size != 0 {
		t.Fatalf("expected size 0 outside /proc, got %d", a.Size)
	}
}

func TestMapAttr_ProcShimDoesNotActivateWhenRemoteNeverReportedSize(t *testing.T) {
	a := MapAttr(RemoteAttr{}, MappingContext{RemoteBasePath: "/proc"})
	if a.Size != 0 {
		t.Fatalf("expected size to stay 0 when the remote never reported a size attribute, got %d", a.Size)
	}
}

func TestMapAttr_ProcShimDoesNotActivateForDirectories(t *testing.T) {
	a := MapAttr(RemoteAttr{HasPerm: true, Perm: os.ModeDir | 0755, HasSize: true, Size: 0}, MappingContext{RemoteBasePath: "/proc"})
	if a.Size != 0 {
		t.Fatalf("expected directory size to stay 0, got %d", a.Size)
	}
}

func TestMapAttr_BlockAccounting(t *testing.T) {
	a := MapAttr(RemoteAttr{HasSize: true, Size: 4097}, MappingContext{})
	if a.BlockSize != 4096 {
		t.Fatalf("expected block size 4096, got %d", a.BlockSize)
	}
	if a.Blocks != 2 {
		t.Fatalf("expected ceil(4097/4096) = 2 blocks, got %d", a.Blocks)
	}
}

func TestMapAttr_TimesCarryThroughAndChangeTimeMirrorsModTime(t *testing.T) {
	mtime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	atime := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	a := MapAttr(RemoteAttr{HasTimes: true, AccessTime: atime, ModTime: mtime}, MappingContext{})
	if !a.Mtime.Equal(mtime) || !a.Atime.Equal(atime) || !a.Ctime.Equal(mtime) {
		t.Fatalf("expected times to carry through with ctime == mtime, got %+v", a)
	}
}

func TestCheckAccess_UserBitsWhenUIDMatches(t *testing.T) {
	if !CheckAccess(0o640, 1000, 2000, 1000, 9999, MaskRead) {
		t.Fatalf("expected owning uid to pass a read check against user-bits")
	}
	if CheckAccess(0o440, 1000, 2000, 1000, 9999, MaskWrite) {
		t.Fatalf("expected owning uid to fail a write check once the bit is absent")
	}
}

func TestCheckAccess_GroupBitsWhenGIDMatchesButUIDDoesNot(t *testing.T) {
	if !CheckAccess(0o640, 1000, 2000, 9999, 2000, MaskRead) {
		t.Fatalf("expected matching gid to pass a read check against group-bits")
	}
}

func TestCheckAccess_OtherBitsWhenNeitherMatches(t *testing.T) {
	if CheckAccess(0o640, 1000, 2000, 9999, 9999, MaskRead) {
		t.Fatalf("expected no read bit set for other, so the check should fail")
	}
	if !CheckAccess(0o644, 1000, 2000, 9999, 9999, MaskRead) {
		t.Fatalf("expected other-read bit to satisfy the read check")
	}
}

func TestMapAttr_MissingTimesStampWallClock(t *testing.T) {
	before := time.Now()
	a := MapAttr(RemoteAttr{}, MappingContext{})
	after := time.Now()
	for _, tm := range []time.Time{a.Atime, a.Mtime, a.Ctime} {
		if tm.Before(before) || tm.After(after) {
			t.Fatalf("expected wall-clock stamp between %v and %v, got %v", before, after, tm)
		}
	}
}
