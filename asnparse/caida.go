package asnparse

import (
	"bufio"
	"io"
	"strings"

	"paepcke.de/asngap/asnset"
)

// const
const (
	_keyASN     = `"asn":`
	_keyCountry = `"country":`
)

// Caida parses the line oriented as-rank dataset and returns the asns whose
// country field matches country (case-insensitive). Lines without an asn
// field, or with a non numeric one, are skipped.
func Caida(r io.Reader, country string) (asnset.Set, error) {
	out := asnset.Set{}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), _lineSize)
	for s.Scan() {
		line := s.Text()
		asn, ok := Field(line, _keyASN)
		if !ok {
			continue
		}
		cc, _ := Field(line, _keyCountry)
		if !strings.EqualFold(cc, country) {
			continue
		}
		canonical, err := asnset.Canonical(asn)
		if err != nil {
			continue
		}
		out.Add(canonical)
	}
	return out, s.Err()
}

// Field extracts the value following the first occurrence of key, up to the
// next ',' (or '}' when there is no comma), with quotes and whitespace removed.
func Field(line, key string) (string, bool) {
	idx := strings.Index(line, key)
	if idx < 0 {
		return "", false
	}
	rest := line[idx+len(key):]
	end := strings.IndexByte(rest, ',')
	if end < 0 {
		end = strings.IndexByte(rest, '}')
	}
	if end >= 0 {
		rest = rest[:end]
	}
	v := strings.TrimSpace(strings.ReplaceAll(rest, `"`, ""))
	return v, v != ""
}
