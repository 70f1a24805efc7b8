package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"licensesync/internal/config"
	"licensesync/internal/logging"
	"licensesync/internal/services"
)

const dialTimeout = 20 * time.Second

// Uploader copies export files to the configured SFTP server.
type Uploader struct {
	cfg            config.Export
	knownHostsPath string
	logger         *slog.Logger
}

// NewUploader builds an Uploader. Host keys are verified against
// ~/.ssh/known_hosts unless export.insecure_ignore_host_key is set.
func NewUploader(cfg config.Export, logger *slog.Logger) *Uploader {
	knownHosts := ""
	if home, err := os.UserHomeDir(); err == nil {
		knownHosts = filepath.Join(home, ".ssh", "known_hosts")
	}
	return &Uploader{
		cfg:            cfg,
		knownHostsPath: knownHosts,
		logger:         logging.NewComponentLogger(logger, "export"),
	}
}

// WithKnownHosts overrides the known_hosts file used for host key checks.
func (u *Uploader) WithKnownHosts(path string) *Uploader {
	u.knownHostsPath = path
	return u
}

// Configured reports whether an upload target is set.
func (u *Uploader) Configured() bool {
	return u.cfg.SFTPHost != "" && u.cfg.SFTPUser != "" && u.cfg.SFTPPassword != ""
}

// Upload copies localPath to the remote directory and returns the remote path.
func (u *Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	if !u.Configured() {
		return "", services.Wrap(services.ErrConfiguration, "export", "upload",
			"export.sftp_host, export.sftp_user and export.sftp_password must be set", nil)
	}

	hostKey, err := u.hostKeyCallback()
	if err != nil {
		return "", err
	}

	client, err := u.dial(ctx, hostKey)
	if err != nil {
		return "", err
	}
	defer client.Close()

	sftpCli, err := sftp.NewClient(client)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "export", "sftp client", "", err)
	}
	defer sftpCli.Close()

	remoteDir := u.cfg.SFTPRemoteDir
	if remoteDir == "" {
		remoteDir = "/"
	}
	if err := sftpCli.MkdirAll(remoteDir); err != nil {
		return "", services.Wrap(services.ErrTransport, "export", "mkdir", remoteDir, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open export file: %w", err)
	}
	defer src.Close()

	remotePath := path.Join(remoteDir, filepath.Base(localPath))
	dst, err := sftpCli.Create(remotePath)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "export", "create", remotePath, err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, src)
	if err != nil {
		return "", services.Wrap(services.ErrTransport, "export", "copy", remotePath, err)
	}
	u.logger.Info("export uploaded",
		logging.String("remote_path", remotePath),
		logging.Int64("bytes", written),
	)
	return remotePath, nil
}

func (u *Uploader) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if u.cfg.InsecureIgnoreHostKey {
		u.logger.Warn("sftp host key verification disabled")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if u.knownHostsPath == "" {
		return nil, services.Wrap(services.ErrConfiguration, "export", "host key", "no known_hosts file available", nil)
	}
	cb, err := knownhosts.New(u.knownHostsPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "export", "host key", "load "+u.knownHostsPath, err)
	}
	return cb, nil
}

func (u *Uploader) dial(ctx context.Context, hostKey ssh.HostKeyCallback) (*ssh.Client, error) {
	port := u.cfg.SFTPPort
	if port <= 0 {
		port = 22
	}
	addr := net.JoinHostPort(u.cfg.SFTPHost, strconv.Itoa(port))
	sshCfg := &ssh.ClientConfig{
		User:            u.cfg.SFTPUser,
		Auth:            []ssh.AuthMethod{ssh.Password(u.cfg.SFTPPassword)},
		HostKeyCallback: hostKey,
		Timeout:         dialTimeout,
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, "export", "dial", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return nil, services.Wrap(services.ErrTransport, "export", "handshake", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(sshConn, chans, reqs), nil
}
