package asngap

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Stdin is the list name that reads standard input
const Stdin = "-"

// OpenList opens a local list file, ".zst" and ".gz" are decompressed on
// the fly, everything else is read as is
func OpenList(name string) (io.ReadCloser, error) {
	if name == Stdin {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.New("[asngap] [list] unable to read file [" + name + "] [" + err.Error() + "]")
	}
	switch {
	case strings.HasSuffix(name, ".zst"):
		d, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.New("[asngap] [list] unable to read file [" + name + "] [" + err.Error() + "]")
		}
		return &listReader{Reader: d, close: func() error { d.Close(); return f.Close() }}, nil
	case strings.HasSuffix(name, ".gz"):
		z, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.New("[asngap] [list] unable to read file [" + name + "] [" + err.Error() + "]")
		}
		return &listReader{Reader: z, close: func() error { z.Close(); return f.Close() }}, nil
	}
	return f, nil
}

// ReadList returns the trimmed, non empty, non comment lines of r
func ReadList(r io.Reader) ([]string, error) {
	var out []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		out = append(out, line)
	}
	return out, s.Err()
}

// listReader ...
type listReader struct {
	io.Reader
	close func() error
}

// Close ...
func (l *listReader) Close() error { return l.close() }
