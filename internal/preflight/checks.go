package preflight

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"shotbuddy/internal/config"
	"shotbuddy/internal/deps"
)

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

// CheckBindAddress validates the HTTP bind address without opening it.
func CheckBindAddress(addr string) Result {
	const name = "HTTP bind"
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", addr, err)}
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: invalid port %q)", addr, port)}
	}
	if host != "" && net.ParseIP(host) == nil && host != "localhost" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: host must be an IP address or localhost)", addr)}
	}
	return Result{Name: name, Passed: true, Detail: addr}
}

// CheckSystemDeps evaluates the external binaries for the given config. The
// daemon and the CLI status command share this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	if cfg == nil {
		return nil
	}
	return []deps.Status{deps.CheckFFmpeg(cfg.Thumbnails.FFmpegBinary)}
}
