package promptmeta

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// maxChunkSize bounds a single chunk so a corrupt length cannot exhaust memory.
const maxChunkSize = 64 << 20

// ErrNotPNG is returned when the stream does not start with the PNG signature.
var ErrNotPNG = errors.New("not a png stream")

// TextChunks returns the keyword/text pairs of every tEXt, zTXt and iTXt chunk
// before IEND. Later chunks with a repeated keyword win.
func TextChunks(r io.Reader) (map[string]string, error) {
	br := bufio.NewReader(r)
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(br, sig); err != nil {
		return nil, ErrNotPNG
	}
	if !bytes.Equal(sig, pngSignature) {
		return nil, ErrNotPNG
	}

	out := make(map[string]string)
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(br, header); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return out, nil
			}
			return out, fmt.Errorf("read chunk header: %w", err)
		}
		length := binary.BigEndian.Uint32(header[:4])
		kind := string(header[4:8])
		if length > maxChunkSize {
			return out, fmt.Errorf("chunk %s too large: %d bytes", kind, length)
		}
		if kind == "IEND" {
			return out, nil
		}

		switch kind {
		case "tEXt", "zTXt", "iTXt":
			data := make([]byte, length)
			if _, err := io.ReadFull(br, data); err != nil {
				return out, fmt.Errorf("read %s chunk: %w", kind, err)
			}
			if key, text, ok := decodeText(kind, data); ok {
				out[key] = text
			}
		default:
			if _, err := br.Discard(int(length)); err != nil {
				return out, fmt.Errorf("skip %s chunk: %w", kind, err)
			}
		}
		if _, err := br.Discard(4); err != nil { // crc
			return out, nil
		}
	}
}

func decodeText(kind string, data []byte) (string, string, bool) {
	key, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || len(key) == 0 {
		return "", "", false
	}
	switch kind {
	case "tEXt":
		return string(key), latin1(rest), true
	case "zTXt":
		if len(rest) < 1 || rest[0] != 0 {
			return "", "", false
		}
		text, err := inflate(rest[1:])
		if err != nil {
			return "", "", false
		}
		return string(key), latin1(text), true
	case "iTXt":
		if len(rest) < 2 {
			return "", "", false
		}
		compressed := rest[0] == 1
		rest = rest[2:]
		// language tag, then translated keyword
		for i := 0; i < 2; i++ {
			_, after, found := bytes.Cut(rest, []byte{0})
			if !found {
				return "", "", false
			}
			rest = after
		}
		if compressed {
			text, err := inflate(rest)
			if err != nil {
				return "", "", false
			}
			rest = text
		}
		return string(key), string(rest), true
	}
	return "", "", false
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxChunkSize))
}

func latin1(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
