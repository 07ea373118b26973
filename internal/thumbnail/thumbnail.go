package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"shotbuddy/internal/config"
	"shotbuddy/internal/logging"
)

var (
	// ErrUnsupported marks a source whose extension has no preview path.
	ErrUnsupported = errors.New("unsupported thumbnail source")
	// ErrUnavailable marks a video preview that cannot be produced because
	// ffmpeg is missing.
	ErrUnavailable = errors.New("video thumbnails unavailable")
)

// background is the flatten colour for transparent stills.
var background = color.RGBA{R: 64, G: 64, B: 64, A: 255}

var (
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}
	videoExtensions = map[string]bool{".mp4": true, ".mov": true}
)

// Generator produces thumbnails into a target path.
type Generator struct {
	width   int
	height  int
	quality int
	ffmpeg  string
	seek    time.Duration
	logger  *slog.Logger
}

// New builds a generator from the thumbnail config section.
func New(cfg config.Thumbnails, logger *slog.Logger) *Generator {
	g := &Generator{
		width:   cfg.Width,
		height:  cfg.Height,
		quality: cfg.JPEGQuality,
		ffmpeg:  strings.TrimSpace(cfg.FFmpegBinary),
		seek:    time.Duration(cfg.VideoSeekSeconds * float64(time.Second)),
		logger:  logging.NewComponentLogger(logger, "thumbnail"),
	}
	if g.width <= 0 {
		g.width = 320
	}
	if g.height <= 0 {
		g.height = 180
	}
	if g.quality <= 0 || g.quality > 100 {
		g.quality = 85
	}
	if g.ffmpeg == "" {
		g.ffmpeg = "ffmpeg"
	}
	return g
}

// Supported reports whether a file extension has a preview path.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return imageExtensions[ext] || videoExtensions[ext]
}

// Generate writes a JPEG preview of src to dst, choosing the still or video
// path from the source extension.
func (g *Generator) Generate(ctx context.Context, src, dst string) error {
	ext := strings.ToLower(filepath.Ext(src))
	switch {
	case imageExtensions[ext]:
		return g.Image(src, dst)
	case videoExtensions[ext]:
		return g.Video(ctx, src, dst)
	}
	return fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(src))
}

// Image scales a still into the preview box.
func (g *Generator) Image(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	return g.encodeFrom(f, dst)
}

// Video grabs a single frame with ffmpeg and scales it. Clips shorter than
// the configured seek offset fall back to their first frame.
func (g *Generator) Video(ctx context.Context, src, dst string) error {
	binary, err := exec.LookPath(g.ffmpeg)
	if err != nil {
		return fmt.Errorf("%w: %s not found", ErrUnavailable, g.ffmpeg)
	}
	frame, err := g.grabFrame(ctx, binary, src, g.seek)
	if (err != nil || len(frame) == 0) && g.seek > 0 {
		g.logger.Debug("frame grab at offset failed; retrying first frame",
			logging.String("source", filepath.Base(src)), logging.Error(err))
		frame, err = g.grabFrame(ctx, binary, src, 0)
	}
	if err != nil {
		return err
	}
	if len(frame) == 0 {
		return fmt.Errorf("ffmpeg produced no frame for %s", filepath.Base(src))
	}
	return g.encodeFrom(bytes.NewReader(frame), dst)
}

func (g *Generator) grabFrame(ctx context.Context, binary, src string, seek time.Duration) ([]byte, error) {
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(seek.Seconds(), 'f', 3, 64),
		"-i", src,
		"-frames:v", "1",
		"-f", "image2pipe", "-vcodec", "png", "-",
	}
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("ffmpeg frame grab: %w", err)
		}
		return nil, fmt.Errorf("ffmpeg frame grab: %w: %s", err, msg)
	}
	return stdout.Bytes(), nil
}

func (g *Generator) encodeFrom(r io.Reader, dst string) error {
	img, _, err := image.Decode(r)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	scaled := g.scale(img)
	return writeJPEG(dst, scaled, g.quality)
}

// scale fits img inside the preview box without upscaling and flattens any
// transparency onto the background colour.
func (g *Generator) scale(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	w, h := fitBox(bounds.Dx(), bounds.Dy(), g.width, g.height)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func fitBox(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 1, 1
	}
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := max(int(float64(w)*ratio+0.5), 1)
	nh := max(int(float64(h)*ratio+0.5), 1)
	return nw, nh
}

func writeJPEG(dst string, img image.Image, quality int) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create thumbnail dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".thumb-*.jpg")
	if err != nil {
		return fmt.Errorf("create thumbnail: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: quality}); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close thumbnail: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod thumbnail: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("install thumbnail: %w", err)
	}
	return nil
}
