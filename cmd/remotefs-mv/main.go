// Command remotefs-mv moves a file, transparently routing through SFTP
// when either endpoint lies inside a managed mount. Directory moves are
// rejected; the user is referred to `remotefs-cp -r` plus `rm`.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remotefs/remotefs/internal/cliutil"
	"github.com/remotefs/remotefs/internal/registry"
)

func main() {
	os.Exit(run())
}

func run() int {
	var verbose bool

	root := &cobra.Command{
		Use:          "remotefs-mv [-v] <src> <dst>",
		Short:        "Move a file, routing through a managed SFTP mount when needed",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doMove(args[0], args[1], verbose)
		},
	}
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the move as it happens")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "remotefs-mv:", err)
		return 1
	}
	return 0
}

func doMove(src, dst string, verbose bool) error {
	reg, err := registry.Open()
	if err != nil {
		return fmt.Errorf("opening mount registry: %w", err)
	}
	mounts, err := reg.List()
	if err != nil {
		return fmt.Errorf("listing mounts: %w", err)
	}

	srcLoc, err := cliutil.Classify(src, mounts)
	if err != nil {
		return fmt.Errorf("classifying %q: %w", src, err)
	}
	dstLoc, err := cliutil.Classify(dst, mounts)
	if err != nil {
		return fmt.Errorf("classifying %q: %w", dst, err)
	}

	if isDirectorySource(srcLoc, reg) {
		return fmt.Errorf("mv: source is a directory; use 'remotefs-cp -r' followed by 'rm' instead")
	}

	plan := cliutil.Plan{Src: srcLoc, Dst: dstLoc}
	return cliutil.Move(reg, plan, verbose)
}

// isDirectorySource stats the source through whichever side it lives on,
// local or remote, so a directory source can be rejected before any
// transfer is attempted.
func isDirectorySource(loc cliutil.Location, reg *registry.Registry) bool {
	if !loc.IsRemote {
		info, err := os.Stat(loc.LocalPath)
		return err == nil && info.IsDir()
	}
	return cliutil.IsRemoteDirectory(reg, loc)
}
