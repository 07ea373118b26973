package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	maxLineBytes        = 1024 * 1024
	DefaultPollInterval = 250 * time.Millisecond
)

// Chunk is a batch of complete lines and the byte offset just past them.
type Chunk struct {
	Lines  []string
	Offset int64
}

// Last returns up to n trailing lines of the file. A missing file yields an
// empty chunk at offset zero so a follow can start before the daemon logs.
func Last(path string, n int) (Chunk, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return Chunk{}, err
	}
	defer file.Close()

	scanner := newScanner(file)
	var ring []string
	for scanner.Scan() {
		if n <= 0 {
			continue
		}
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return Chunk{}, fmt.Errorf("read log file: %w", err)
	}
	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return Chunk{}, fmt.Errorf("determine log offset: %w", err)
	}
	return Chunk{Lines: ring, Offset: end}, nil
}

// From reads every complete line written at or after offset. A trailing
// partial line is left for the next read. An offset past the end of the file
// (the log was rotated or truncated) restarts from the beginning.
func From(path string, offset int64) (Chunk, error) {
	file, err := open(path)
	if err != nil || file == nil {
		return Chunk{}, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Chunk{}, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return Chunk{}, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	chunk := Chunk{Offset: offset}
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return chunk, nil
			}
			return chunk, fmt.Errorf("read log file: %w", err)
		}
		chunk.Offset += int64(len(line))
		chunk.Lines = append(chunk.Lines, trimNewline(line))
	}
}

// Follow polls the file from offset and hands each new line to emit until ctx
// is done. The context's error is not reported as a failure.
func Follow(ctx context.Context, path string, offset int64, poll time.Duration, emit func(string)) error {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		chunk, err := From(path, offset)
		if err != nil {
			return err
		}
		for _, line := range chunk.Lines {
			emit(line)
		}
		offset = chunk.Offset
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func open(path string) (*os.File, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	return file, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

func trimNewline(line string) string {
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line
}
