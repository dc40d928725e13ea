// Package session owns the Connection Record: the session manager that
// dials, authenticates, and tears down the single SFTP session backing one
// mount, plus the typed table of opaque remote file handles that crosses
// the filesystem callback boundary.
//
// Grounded on rclone's backend/sftp (dial/newSftpClient/conn pooling) but
// simplified to a single-session-per-mount model: no connection pool,
// since only one Connection Record is ever live per mount.
package session

import (
	"net"
	"os/user"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"github.com/sirupsen/logrus"
	sshagent "github.com/xanzy/ssh-agent"
	"golang.org/x/crypto/ssh"
)

// KeepaliveInterval is how often the session manager sends an SSH keepalive
// request over the established connection.
const KeepaliveInterval = 30 * time.Second

// HandshakeTimeout bounds socket connect and SSH handshake.
const HandshakeTimeout = 30 * time.Second

// SessionInactivityTimeout bounds how long the ssh.Client's connection may
// go without any observed activity (a successful operation or a successful
// keepalive reply) before the keepalive loop gives up on it and tears the
// session down, rather than leaving every blocked future call hanging
// against a socket the remote has silently dropped.
const SessionInactivityTimeout = 60 * time.Second

// AuthConfig carries the password and/or private-key credentials; when both
// are set, publickey authentication is offered first, then password.
type AuthConfig struct {
	Password      string
	KeyPath       string
	KeyPassphrase string
}

// KnownHostsPolicy controls host-key verification: required by default.
type KnownHostsPolicy struct {
	// Path to a known_hosts file. Empty means "$HOME/.ssh/known_hosts".
	Path string
	// InsecureSkipVerify disables verification entirely. Must be set
	// explicitly by the caller (-o insecure_no_hostkey_check); it is never
	// the default.
	InsecureSkipVerify bool
}

// Config is the parsed, immutable configuration a Connection Record is
// built from.
type Config struct {
	Host           string
	Port           string // default "22"
	User           string
	Auth           AuthConfig
	RemoteBasePath string // default "/"
	KnownHosts     KnownHostsPolicy
}

func (c Config) addr() string {
	port := c.Port
	if port == "" {
		port = "22"
	}
	return net.JoinHostPort(c.Host, port)
}

// Record is the Connection Record: configuration plus the three runtime
// slots (socket, ssh session, sftp session), which are either all idle or
// all established. It exclusively owns its strings and its handle table;
// destroying it never aliases state elsewhere.
type Record struct {
	Config

	mu         sync.Mutex
	sshClient  *ssh.Client
	sftpClient *sftp.Client
	connected  bool

	handles         handleTable
	keepaliveCancel func()
	lastActivity    int64 // unix nanoseconds, accessed atomically
	log             *logrus.Entry
}

// New constructs an idle Connection Record. It performs no I/O.
func New(cfg Config, log *logrus.Entry) *Record {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.RemoteBasePath == "" {
		cfg.RemoteBasePath = "/"
	}
	return &Record{
		Config: cfg,
		handles: handleTable{
			entries: make(map[uint64]any),
		},
		log: log,
	}
}

// Connect performs the connect-and-authenticate sequence: dial, SSH
// handshake, open the SFTP session. Each step's failure is wrapped with
// context and propagates; on any failure the Record remains fully idle.
func (r *Record) Connect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connected {
		return nil
	}

	sshConfig, err := r.buildSSHClientConfig()
	if err != nil {
		return errors.Wrap(err, "connect: building ssh client config")
	}

	conn, err := net.DialTimeout("tcp", r.addr(), HandshakeTimeout)
	if err != nil {
		return errors.Wrapf(err, "connect: dialing %s", r.addr())
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, r.addr(), sshConfig)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "connect: ssh handshake failed")
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		_ = client.Close()
		return errors.Wrap(err, "connect: initializing sftp session failed")
	}

	r.sshClient = client
	r.sftpClient = sftpClient
	r.connected = true
	r.touchActivity()
	r.keepaliveCancel = startKeepaliveLoop(r, client)

	return nil
}

// touchActivity records that the session was just used, resetting the
// idle clock the keepalive loop checks against SessionInactivityTimeout.
func (r *Record) touchActivity() {
	atomic.StoreInt64(&r.lastActivity, time.Now().UnixNano())
}

// idleFor reports how long it has been since the last recorded activity.
func (r *Record) idleFor() time.Duration {
	last := atomic.LoadInt64(&r.lastActivity)
	return time.Since(time.Unix(0, last))
}

// Disconnect performs the strict-reverse-order teardown: SFTP session,
// then ssh session, then socket. Every step is idempotent; a
// partially-established Record disconnects cleanly.
func (r *Record) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected && r.sshClient == nil && r.sftpClient == nil {
		return nil
	}

	if r.keepaliveCancel != nil {
		r.keepaliveCancel()
		r.keepaliveCancel = nil
	}

	var firstErr error
	if r.sftpClient != nil {
		if err := r.sftpClient.Close(); err != nil {
			firstErr = errors.Wrap(err, "disconnect: closing sftp session")
		}
		r.sftpClient = nil
	}
	if r.sshClient != nil {
		if err := r.sshClient.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "disconnect: closing ssh connection")
		}
		r.sshClient = nil
	}
	r.connected = false
	return firstErr
}

// Connected reports whether the Record currently owns an established session.
func (r *Record) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// SFTP returns the live *sftp.Client, or an error translating to
// ENotConn-equivalent i/o-error semantics if the session is not connected.
func (r *Record) SFTP() (*sftp.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected || r.sftpClient == nil {
		return nil, errors.New("session: not connected")
	}
	r.touchActivity()
	return r.sftpClient, nil
}

// SSHClient exposes the underlying ssh.Client for operations that need a
// raw session; none of the current callers do, but it's kept for symmetry
// with SFTP().
func (r *Record) SSHClient() (*ssh.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected || r.sshClient == nil {
		return nil, errors.New("session: not connected")
	}
	return r.sshClient, nil
}

// Handles exposes the Record's opaque handle table to the SFTP operation
// surface and the filesystem callback layer.
func (r *Record) Handles() *handleTable {
	return &r.handles
}

func (r *Record) buildSSHClientConfig() (*ssh.ClientConfig, error) {
	authMethods, err := r.authMethods()
	if err != nil {
		return nil, err
	}

	hostKeyCallback, err := r.hostKeyCallback()
	if err != nil {
		return nil, errors.Wrap(err, "building host key callback")
	}

	username := r.User
	if username == "" {
		if u, err := user.Current(); err == nil {
			username = u.Username
		}
	}

	return &ssh.ClientConfig{
		User:            username,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         HandshakeTimeout,
	}, nil
}

// authMethods enumerates auth methods in attempt order: publickey first
// when configured, then password, failing with a permission-denied style
// error if neither is usable.
func (r *Record) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if r.Auth.KeyPath != "" {
		signer, err := loadPrivateKey(r.Auth.KeyPath, r.Auth.KeyPassphrase)
		if err != nil {
			return nil, errors.Wrap(err, "loading private key")
		}
		methods = append(methods, ssh.PublicKeys(signer))
	} else if agentSigners, err := sshAgentSigners(); err == nil && len(agentSigners) > 0 {
		methods = append(methods, ssh.PublicKeys(agentSigners...))
	}

	if r.Auth.Password != "" {
		methods = append(methods, ssh.Password(r.Auth.Password))
	}

	if len(methods) == 0 {
		return nil, errors.New("no usable authentication method configured (need key or password)")
	}
	return methods, nil
}

func sshAgentSigners() ([]ssh.Signer, error) {
	agentClient, _, err := sshagent.New()
	if err != nil {
		return nil, err
	}
	return agentClient.Signers()
}

var handleIDCounter uint64

// nextHandleID mints a process-unique identifier for an opaque remote
// handle.
func nextHandleID() uint64 {
	return atomic.AddUint64(&handleIDCounter, 1)
}

// handleTable maps a process-unique identifier to the library-owned
// *sftp.File reference it represents. Scoped to the
// Connection Record's lifetime: every handle came from a successful open
// on the same session.
type handleTable struct {
	mu      sync.Mutex
	entries map[uint64]any
}

// Put stores value and returns a fresh identifier for it.
func (t *handleTable) Put(value any) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := nextHandleID()
	t.entries[id] = value
	return id
}

// Get retrieves the value stored under id.
func (t *handleTable) Get(id uint64) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[id]
	return v, ok
}

// Replace swaps the value stored under an existing id (used by truncate's
// close-then-reopen fallback, which must keep the same identifier stable
// across the reopen so the holder never observes the substitution).
func (t *handleTable) Replace(id uint64, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[id] = value
}

// Delete removes id from the table.
func (t *handleTable) Delete(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// startKeepaliveLoop is grounded on rclone's backend/sftp/ssh_internal.go
// SendKeepAlive, which pings over the same mechanism, extended with the
// SessionInactivityTimeout check: a successful ping resets the idle clock,
// but once the connection has gone SessionInactivityTimeout without any
// activity at all (pings or real operations), the loop gives up and
// disconnects the Record itself rather than leave a dead socket idle
// until the next caller blocks on it.
func startKeepaliveLoop(r *Record, client *ssh.Client) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(KeepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
					r.log.WithError(err).Debug("keepalive request failed")
				} else {
					r.touchActivity()
				}
				if r.idleFor() >= SessionInactivityTimeout {
					r.log.Warn("session inactivity timeout exceeded, disconnecting")
					_ = r.Disconnect()
					return
				}
			}
		}
	}()
	return func() { close(done) }
}
