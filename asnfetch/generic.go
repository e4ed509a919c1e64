package asnfetch

import (
	"archive/tar"
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// const
const (
	_tarMagicOffset = 257
	_tarHeaderPeek  = 262
)

var (
	_gzipMagic = []byte{0x1f, 0x8b}
	_zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	_tarMagic  = []byte("ustar")
)

// decoded stream plus everything that needs closing in reverse order
type decoded struct {
	io.Reader
	closers []func() error
}

// Close ...
func (d *decoded) Close() (err error) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if cerr := d.closers[i](); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// decode sniffs the stream: gzip or zstd are unwrapped, a tar archive inside
// is flattened into the concatenated lines of its regular files.
func decode(body io.ReadCloser) (io.ReadCloser, error) {
	d := &decoded{closers: []func() error{body.Close}}
	br := bufio.NewReaderSize(body, 64*1024)
	head, _ := br.Peek(4)

	var r io.Reader = br
	switch {
	case bytes.HasPrefix(head, _gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, zr.Close)
		r = zr
	case bytes.HasPrefix(head, _zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() error { zr.Close(); return nil })
		r = zr
	}

	tr := bufio.NewReaderSize(r, 64*1024)
	if isTar(tr) {
		d.Reader = &tarLines{tr: tar.NewReader(tr)}
		return d, nil
	}
	d.Reader = tr
	return d, nil
}

// isTar ...
func isTar(r *bufio.Reader) bool {
	head, err := r.Peek(_tarHeaderPeek)
	if err != nil {
		return false
	}
	return bytes.Equal(head[_tarMagicOffset:_tarHeaderPeek], _tarMagic)
}

// tarLines reads the regular files of a tar archive back to back, each one
// terminated by a line feed
type tarLines struct {
	tr  *tar.Reader
	cur io.Reader
}

// Read ...
func (t *tarLines) Read(p []byte) (int, error) {
	for {
		if t.cur != nil {
			n, err := t.cur.Read(p)
			if err == io.EOF {
				t.cur, err = nil, nil
			}
			if n > 0 || err != nil {
				return n, err
			}
			continue
		}
		hdr, err := t.tr.Next()
		if err != nil {
			return 0, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		t.cur = io.MultiReader(t.tr, strings.NewReader("\n"))
	}
}
