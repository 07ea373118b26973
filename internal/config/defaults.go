package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultProjectDir             = "~/shotbuddy"
	defaultStateDir               = "~/.local/share/shotbuddy"
	defaultLogDir                 = "~/.local/share/shotbuddy/logs"
	defaultAPIBind                = "127.0.0.1:5001"
	defaultThumbnailWidth         = 320
	defaultThumbnailHeight        = 180
	defaultThumbnailJPEGQuality   = 85
	defaultFFmpegBinary           = "ffmpeg"
	defaultThumbnailWorkers       = 4
	defaultVideoSeekSeconds       = 1.0
	defaultMaxShots               = 999
	defaultThumbnailClickBehavior = "open"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectDir:        defaultProjectDir,
			StateDir:          defaultStateDir,
			LogDir:            defaultLogDir,
			ThumbnailCacheDir: defaultThumbnailCacheDir(),
			APIBind:           defaultAPIBind,
		},
		Thumbnails: Thumbnails{
			Width:            defaultThumbnailWidth,
			Height:           defaultThumbnailHeight,
			JPEGQuality:      defaultThumbnailJPEGQuality,
			FFmpegBinary:     defaultFFmpegBinary,
			Workers:          defaultThumbnailWorkers,
			VideoSeekSeconds: defaultVideoSeekSeconds,
		},
		Board: Board{
			MaxShots:               defaultMaxShots,
			ThumbnailClickBehavior: defaultThumbnailClickBehavior,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

func defaultThumbnailCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "shotbuddy", "thumbnails")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/shotbuddy/thumbnails"
	}
	return filepath.Join(home, ".cache", "shotbuddy", "thumbnails")
}
