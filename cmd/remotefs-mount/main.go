// Command remotefs-mount mounts a remote directory tree over SFTP as a
// local POSIX filesystem.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/remotefs/remotefs/internal/fusefs"
	"github.com/remotefs/remotefs/internal/metrics"
	"github.com/remotefs/remotefs/internal/mountopts"
	"github.com/remotefs/remotefs/internal/registry"
	"github.com/remotefs/remotefs/internal/rlog"
	"github.com/remotefs/remotefs/internal/session"
)

// version is overwritten at release build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var opts []string
	var logLevel string
	var metricsAddr string

	root := &cobra.Command{
		Use:     "remotefs-mount <mountpoint> -o host=HOST -o user=USER [options]",
		Short:   "Mount a remote directory over SFTP as a local filesystem",
		Version: version,
		Args:    cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doMount(args[0], mountopts.Parse(opts), logLevel, metricsAddr)
		},
	}
	root.Flags().StringArrayVarP(&opts, "option", "o", nil, "mount option, key=value (may be repeated)")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (disabled if empty)")
	root.SetVersionTemplate("remotefs-mount {{.Version}}\n")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "remotefs-mount:", err)
		return 1
	}
	return 0
}

func doMount(mountPoint string, opts map[string]string, logLevel, metricsAddr string) error {
	log := rlog.New(logLevel)

	host, ok := mountopts.Get(opts, "host")
	if !ok || host == "" {
		return fmt.Errorf("missing required -o host=HOST")
	}
	user, ok := mountopts.Get(opts, "user")
	if !ok || user == "" {
		return fmt.Errorf("missing required -o user=USER")
	}
	password, _ := mountopts.Get(opts, "pass")
	keyPath, _ := mountopts.Get(opts, "key")
	if password == "" && keyPath == "" {
		return fmt.Errorf("one of -o pass=PW or -o key=PATH is required")
	}

	cfg := session.Config{
		Host:           host,
		Port:           mountopts.GetDefault(opts, "port", "22"),
		User:           user,
		RemoteBasePath: mountopts.GetDefault(opts, "remotepath", "/"),
		Auth: session.AuthConfig{
			Password: password,
			KeyPath:  keyPath,
		},
	}
	if v, ok := mountopts.Get(opts, "knownhosts"); ok {
		cfg.KnownHosts.Path = v
	}
	if mountopts.Has(opts, "insecure_no_hostkey_check") {
		cfg.KnownHosts.InsecureSkipVerify = true
	}

	record := session.New(cfg, log.WithField("mount", mountPoint))

	reg, err := registry.Open()
	if err != nil {
		return fmt.Errorf("opening mount registry: %w", err)
	}

	var collector *metrics.Collector
	if metricsAddr != "" {
		collector = metrics.New(prometheus.DefaultRegisterer)
		go func() {
			if err := http.ListenAndServe(metricsAddr, metrics.Handler()); err != nil {
				log.WithError(err).Warn("metrics server stopped")
			}
		}()
	}

	fs := fusefs.New(record, mountPoint, reg, collector, log)
	fs.ReadOnly = mountopts.Has(opts, "readonly")

	// init's attr/entry/negative-cache timeouts and inode-number reporting,
	// per spec: 5s attribute and directory-entry caching, 1s negative
	// (not-found) caching, real inode numbers rather than go-fuse's
	// synthesized ones.
	nodeFS := pathfs.NewPathNodeFs(fs, &pathfs.PathNodeFsOptions{
		ClientInodes: true,
	})
	connector := nodefs.NewFileSystemConnector(nodeFS.Root(), &nodefs.Options{
		EntryTimeout:    5 * time.Second,
		AttrTimeout:     5 * time.Second,
		NegativeTimeout: 1 * time.Second,
	})

	mountOptions := fuse.MountOptions{
		Name:   "remotefs",
		FsName: "remotefs@" + host,
	}
	if mountopts.Has(opts, "allow_other") {
		mountOptions.AllowOther = true
	}

	server, err := fuse.NewServer(connector.RawFS(), mountPoint, &mountOptions)
	if err != nil {
		return fmt.Errorf("mounting %q: %w", mountPoint, err)
	}

	server.Serve()
	return nil
}
