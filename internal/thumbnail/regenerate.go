package thumbnail

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"shotbuddy/internal/logging"
)

// Maker is the preview surface Regenerate drives.
type Maker interface {
	Generate(ctx context.Context, src, dst string) error
}

// Job pairs an asset with its preview path.
type Job struct {
	Source string
	Target string
}

// Report summarises a regeneration pass.
type Report struct {
	Generated   int
	UpToDate    int
	Unavailable int
	Failed      int
}

// Regenerate rebuilds missing or outdated previews with at most workers jobs
// in flight. Individual failures are logged and counted; only cancellation of
// ctx aborts the pass.
func Regenerate(ctx context.Context, maker Maker, jobs []Job, workers int, logger *slog.Logger) (Report, error) {
	logger = logging.NewComponentLogger(logger, "thumbnail")
	if workers <= 0 {
		workers = 1
	}
	var generated, upToDate, unavailable, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if fresh(job) {
				upToDate.Add(1)
				return nil
			}
			err := maker.Generate(gctx, job.Source, job.Target)
			switch {
			case err == nil:
				generated.Add(1)
			case gctx.Err() != nil:
				return gctx.Err()
			case errors.Is(err, ErrUnavailable):
				unavailable.Add(1)
			default:
				failed.Add(1)
				logger.Warn("thumbnail regeneration failed",
					logging.String("source", filepath.Base(job.Source)),
					logging.Error(err),
					logging.String(logging.FieldEventType, "thumbnail_regenerate_failed"),
					logging.String(logging.FieldErrorHint, "check the asset is a readable image or video"),
					logging.String(logging.FieldImpact, "slot shown without preview"),
				)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return Report{
		Generated:   int(generated.Load()),
		UpToDate:    int(upToDate.Load()),
		Unavailable: int(unavailable.Load()),
		Failed:      int(failed.Load()),
	}, err
}

func fresh(job Job) bool {
	target, err := os.Stat(job.Target)
	if err != nil {
		return false
	}
	source, err := os.Stat(job.Source)
	if err != nil {
		return true
	}
	return !target.ModTime().Before(source.ModTime())
}
