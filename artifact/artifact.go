// package artifact persists named text artifacts as flat files
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// const
const (
	_stampFormat = "20060102T150405Z"
	_extText     = ".txt"
	_extZstd     = ".zst"
	_zstdLevel   = 19
	_fileMode    = 0o640
	_dirMode     = 0o750
)

// ErrName rejects artifact names that would leave the store directory
var ErrName = errors.New("invalid artifact name")

// Store writes artifacts below Dir
type Store struct {
	Dir      string           // target directory, created on demand
	Compress bool             // zstd compress the content
	Stamp    bool             // append a utc timestamp to the name
	Now      func() time.Time // clock, defaults to time.Now
}

// Write stores lines (newline terminated) under name and returns the file
// path. A name without extension gets ".txt", compressed artifacts ".zst" on top.
func (s *Store) Write(name string, lines []string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w [%s]", ErrName, name)
	}
	ext := filepath.Ext(name)
	if ext == "" {
		ext = _extText
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if s.Stamp {
		now := time.Now
		if s.Now != nil {
			now = s.Now
		}
		base += "_" + now().UTC().Format(_stampFormat)
	}
	file := base + ext

	content := []byte(strings.Join(lines, "\n"))
	if len(lines) > 0 {
		content = append(content, '\n')
	}
	if s.Compress {
		var err error
		if content, err = compress(content); err != nil {
			return "", fmt.Errorf("[artifact] [%s] compress: %w", file, err)
		}
		file += _extZstd
	}

	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, _dirMode); err != nil {
		return "", fmt.Errorf("[artifact] [%s] %w", dir, err)
	}
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, content, _fileMode); err != nil {
		return "", fmt.Errorf("[artifact] [%s] %w", path, err)
	}
	return path, nil
}

// compress ...
func compress(in []byte) ([]byte, error) {
	w, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(_zstdLevel)),
		zstd.WithEncoderCRC(true),
		zstd.WithZeroFrames(false),
		zstd.WithEncoderConcurrency(runtime.NumCPU()))
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.EncodeAll(in, nil), nil
}
