package session

import (
	"net"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// hostKeyCallback builds the connect-time host key callback: the host key
// fingerprint is always logged, and verification against a known_hosts
// store is required unless the caller explicitly opted out.
func (r *Record) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if r.KnownHosts.InsecureSkipVerify {
		return loggingHostKeyCallback(r.log, ssh.InsecureIgnoreHostKey()), nil
	}

	path := r.KnownHosts.Path
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "resolving default known_hosts path")
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "known_hosts file %q not usable (pass -o knownhosts=PATH or -o insecure_no_hostkey_check)", path)
	}

	callback, err := knownhosts.New(path)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing known_hosts file %q", path)
	}
	return loggingHostKeyCallback(r.log, callback), nil
}

// loggingHostKeyCallback wraps an ssh.HostKeyCallback so the key
// fingerprint is always logged before the underlying policy is consulted.
func loggingHostKeyCallback(log *logrus.Entry, next ssh.HostKeyCallback) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		log.WithFields(logrus.Fields{
			"host":        hostname,
			"fingerprint": ssh.FingerprintSHA256(key),
		}).Debug("ssh host key offered")
		return next(hostname, remote, key)
	}
}

// loadPrivateKey reads and parses a PEM-encoded private key file, applying
// passphrase decryption if one is configured.
func loadPrivateKey(path, passphrase string) (ssh.Signer, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading private key file %q", path)
	}
	if passphrase == "" {
		return ssh.ParsePrivateKey(key)
	}
	return ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
}
