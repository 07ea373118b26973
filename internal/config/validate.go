package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateThumbnails(); err != nil {
		return err
	}
	if err := c.validateBoard(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.ProjectDir == "" {
		return errors.New("paths.project_dir must be set (or SHOTBUDDY_PROJECT)")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	_, port, err := net.SplitHostPort(c.Paths.APIBind)
	if err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("paths.api_bind %q: invalid port", c.Paths.APIBind)
	}
	return nil
}

func (c *Config) validateThumbnails() error {
	if c.Thumbnails.Width <= 0 || c.Thumbnails.Height <= 0 {
		return errors.New("thumbnails.width and thumbnails.height must be positive")
	}
	if c.Thumbnails.JPEGQuality < 1 || c.Thumbnails.JPEGQuality > 100 {
		return errors.New("thumbnails.jpeg_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateBoard() error {
	if c.Board.MaxShots > defaultMaxShots {
		return fmt.Errorf("board.max_shots must not exceed %d", defaultMaxShots)
	}
	if !ValidClickBehavior(c.Board.ThumbnailClickBehavior) {
		return fmt.Errorf("board.thumbnail_click_behavior: unsupported value %q", c.Board.ThumbnailClickBehavior)
	}
	return nil
}

// ValidClickBehavior reports whether v is a known thumbnail click action.
func ValidClickBehavior(v string) bool {
	switch v {
	case "open", "reveal", "none":
		return true
	}
	return false
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
