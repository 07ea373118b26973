package config

import (
	"fmt"
	"net"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeThumbnails()
	c.normalizeBoard()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("SHOTBUDDY_PROJECT"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ProjectDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		c.Paths.ProjectDir = defaultProjectDir
	}
	var err error
	if c.Paths.ProjectDir, err = expandPath(c.Paths.ProjectDir); err != nil {
		return fmt.Errorf("paths.project_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ThumbnailCacheDir) == "" {
		c.Paths.ThumbnailCacheDir = defaultThumbnailCacheDir()
	}
	if c.Paths.ThumbnailCacheDir, err = expandPath(c.Paths.ThumbnailCacheDir); err != nil {
		return fmt.Errorf("paths.thumbnail_cache_dir: %w", err)
	}

	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	envHost := strings.TrimSpace(os.Getenv("SHOTBUDDY_HOST"))
	envPort := strings.TrimSpace(os.Getenv("SHOTBUDDY_PORT"))
	if envHost != "" || envPort != "" {
		host, port, err := net.SplitHostPort(c.Paths.APIBind)
		if err != nil {
			host, port, _ = net.SplitHostPort(defaultAPIBind)
		}
		if envHost != "" {
			host = envHost
		}
		if envPort != "" {
			port = envPort
		}
		c.Paths.APIBind = net.JoinHostPort(host, port)
	}

	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("SHOTBUDDY_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeThumbnails() {
	c.Thumbnails.FFmpegBinary = strings.TrimSpace(c.Thumbnails.FFmpegBinary)
	if c.Thumbnails.FFmpegBinary == "" {
		c.Thumbnails.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Thumbnails.Workers <= 0 {
		c.Thumbnails.Workers = defaultThumbnailWorkers
	}
	if c.Thumbnails.VideoSeekSeconds < 0 {
		c.Thumbnails.VideoSeekSeconds = 0
	}
}

func (c *Config) normalizeBoard() {
	if c.Board.MaxShots <= 0 {
		c.Board.MaxShots = defaultMaxShots
	}
	c.Board.ThumbnailClickBehavior = strings.ToLower(strings.TrimSpace(c.Board.ThumbnailClickBehavior))
	if c.Board.ThumbnailClickBehavior == "" {
		c.Board.ThumbnailClickBehavior = defaultThumbnailClickBehavior
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
