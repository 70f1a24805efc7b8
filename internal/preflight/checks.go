package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"licensesync/internal/config"
)

const reachTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCredentials verifies the three upstream credentials are present.
func CheckCredentials(up config.Upstream) Result {
	const name = "Upstream credentials"
	var missing []string
	if strings.TrimSpace(up.Token) == "" {
		missing = append(missing, "token")
	}
	if strings.TrimSpace(up.Password) == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(up.ID) == "" {
		missing = append(missing, "id")
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: "missing " + strings.Join(missing, ", ")}
	}
	return Result{Name: name, Passed: true, Detail: "present"}
}

// CheckReachable pings target with a short timeout.
func CheckReachable(ctx context.Context, name string, target Pinger) Result {
	checkCtx, cancel := context.WithTimeout(ctx, reachTimeout)
	defer cancel()
	if err := target.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckSFTPConfig verifies the export upload settings are complete.
func CheckSFTPConfig(exp config.Export) Result {
	const name = "SFTP export"
	switch {
	case strings.TrimSpace(exp.SFTPUser) == "":
		return Result{Name: name, Detail: "missing sftp_user"}
	case exp.SFTPPassword == "":
		return Result{Name: name, Detail: "missing sftp_password (LICENSESYNC_SFTP_PASSWORD)"}
	case exp.InsecureIgnoreHostKey:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s:%d (host key not verified)", exp.SFTPHost, exp.SFTPPort)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s:%d", exp.SFTPHost, exp.SFTPPort)}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (unreachable)"
	}
	return err.Error()
}
