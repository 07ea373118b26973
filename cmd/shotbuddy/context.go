package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"shotbuddy/internal/config"
	"shotbuddy/internal/ipc"
	"shotbuddy/internal/logging"
	"shotbuddy/internal/sequence"
)

type commandContext struct {
	socketFlag *string
	configFlag *string
	logLevel   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	stderr     io.Writer
	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// cliLogger returns the logger handed to the board components. Warnings go to
// the command's stderr; a config that fails to load yields a default logger.
func (c *commandContext) cliLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		w := c.stderr
		if w == nil {
			w = os.Stderr
		}
		cfg, _ := c.ensureConfig()
		logger, err := logging.NewForCLI(cfg, w, shouldColorize(w))
		if err != nil {
			logger, _ = logging.NewForCLI(nil, w, false)
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) resolvedLogLevel(cfg *config.Config) string {
	if c.logLevel != nil && strings.TrimSpace(*c.logLevel) != "" {
		return strings.TrimSpace(*c.logLevel)
	}
	if cfg != nil {
		return cfg.Logging.Level
	}
	return ""
}

func (c *commandContext) socketPath() string {
	if c.socketFlag == nil {
		return c.defaultSocketPath()
	}
	if strings.TrimSpace(*c.socketFlag) == "" {
		*c.socketFlag = c.defaultSocketPath()
	}
	return *c.socketFlag
}

func (c *commandContext) defaultSocketPath() string {
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return cfg.SocketPath()
	}
	stateDir, err := config.ExpandPath("~/.local/share/shotbuddy")
	if err != nil {
		return filepath.Join(os.TempDir(), "shotbuddy.sock")
	}
	return filepath.Join(stateDir, "shotbuddy.sock")
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, wrapDialError(err, socket)
	}
	return client, nil
}

// withBoard dials the daemon and loads the shot sequence mirror.
func (c *commandContext) withBoard(ctx context.Context, fn func(*ipc.Client, *sequence.Manager) error) error {
	return c.withClient(func(client *ipc.Client) error {
		var opts []sequence.Option
		if status, err := client.Status(ctx); err == nil && status.MaxShots > 0 {
			opts = append(opts, sequence.WithMaxShots(status.MaxShots))
		}
		seq := sequence.NewManager(client, c.cliLogger(), opts...)
		if err := seq.Refresh(ctx); err != nil {
			return err
		}
		return fn(client, seq)
	})
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `shotbuddy start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
