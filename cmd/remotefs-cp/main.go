// Command remotefs-cp copies a file or directory, transparently routing
// through SFTP when either endpoint lies inside a managed mount.
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
	var recurse, verbose bool

	root := &cobra.Command{
		Use:          "remotefs-cp [-v] [-r] <src> <dst>",
		Short:        "Copy a file or directory, routing through a managed SFTP mount when needed",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doCopy(args[0], args[1], recurse, verbose)
		},
	}
	root.Flags().BoolVarP(&recurse, "recursive", "r", false, "copy directories recursively")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each file as it is copied")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "remotefs-cp:", err)
		return 1
	}
	return 0
}

func doCopy(src, dst string, recurse, verbose bool) error {
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

	plan := cliutil.Plan{Src: srcLoc, Dst: dstLoc, Recurse: recurse}
	if err := cliutil.Copy(reg, plan, verbose); err != nil {
		return err
	}
	return nil
}
