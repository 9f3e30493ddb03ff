package transfer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"strconv"
	"strings"

	"aircheck/internal/config"
	"aircheck/internal/services"
)

var commandContext = exec.CommandContext

// SCP uploads over SSH using the system scp and ssh binaries.
type SCP struct {
	user           string
	host           string
	port           int
	keyPath        string
	connectTimeout int
}

// NewSCP constructs the scp backend from transfer configuration.
func NewSCP(cfg config.Transfer) *SCP {
	return &SCP{
		user:           cfg.SSHUser,
		host:           cfg.SSHHost,
		port:           cfg.SSHPort,
		keyPath:        cfg.SSHKey,
		connectTimeout: cfg.ConnectTimeout,
	}
}

// Name identifies the backend.
func (s *SCP) Name() string { return "scp" }

func (s *SCP) sshOptions() []string {
	opts := []string{
		"-o", "StrictHostKeyChecking=no",
		"-o", "BatchMode=yes",
		"-o", fmt.Sprintf("ConnectTimeout=%d", s.connectTimeout),
	}
	if s.keyPath != "" {
		opts = append(opts, "-i", s.keyPath)
	}
	return opts
}

func (s *SCP) target() string {
	return fmt.Sprintf("%s@%s", s.user, s.host)
}

// Upload creates the remote directory and copies the file into it.
func (s *SCP) Upload(ctx context.Context, localPath, remotePath string) error {
	remoteDir := path.Dir(remotePath)

	mkdirArgs := append(s.sshOptions(), "-p", strconv.Itoa(s.port), s.target(),
		fmt.Sprintf("mkdir -p %s", shellQuote(remoteDir)))
	if err := s.run(ctx, "ssh", mkdirArgs, "transferring", "mkdir"); err != nil {
		return err
	}

	// scp resolves the remote path through the remote shell, so spaces must
	// be escaped on top of local argument quoting.
	scpArgs := append(s.sshOptions(), "-P", strconv.Itoa(s.port), localPath,
		fmt.Sprintf("%s:%s", s.target(), escapeRemotePath(remotePath)))
	return s.run(ctx, "scp", scpArgs, "transferring", "copy")
}

// Verify stats the remote file and compares its size.
func (s *SCP) Verify(ctx context.Context, remotePath string, size int64) error {
	args := append(s.sshOptions(), "-p", strconv.Itoa(s.port), s.target(),
		fmt.Sprintf("stat -c %%s %s", shellQuote(remotePath)))
	cmd := commandContext(ctx, "ssh", args...) //nolint:gosec
	out, err := cmd.Output()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transferring", "verify",
			fmt.Sprintf("remote file %s not found", remotePath), err)
	}
	remoteSize, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transferring", "verify", "unparseable stat output", err)
	}
	if remoteSize != size {
		return services.Wrap(services.ErrExternalTool, "transferring", "verify",
			fmt.Sprintf("size mismatch: local %d, remote %d", size, remoteSize), nil)
	}
	return nil
}

// Ready checks SSH connectivity to the archive host.
func (s *SCP) Ready(ctx context.Context) error {
	args := append(s.sshOptions(), "-p", strconv.Itoa(s.port), s.target(), "true")
	cmd := commandContext(ctx, "ssh", args...) //nolint:gosec
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ssh connectivity to %s: %w", s.host, err)
	}
	return nil
}

func (s *SCP) run(ctx context.Context, binary string, args []string, stage, operation string) error {
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = binary + " failed"
		}
		return services.Wrap(services.ErrExternalTool, stage, operation, detail, err)
	}
	return nil
}

// LocalSize is a helper for callers that verify after upload.
func LocalSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// shellQuote wraps a path in single quotes for the remote shell.
func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// escapeRemotePath backslash-escapes spaces for scp remote targets.
func escapeRemotePath(value string) string {
	return strings.ReplaceAll(value, " ", `\ `)
}

var _ Service = (*SCP)(nil)
