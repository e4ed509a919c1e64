// package asnparse turns registry delegation files and the caida as-rank
// dataset into country scoped asn sets
package asnparse

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"paepcke.de/asngap/asnset"
)

// const
const (
	_pipe      = "|"
	_asnMarker = "|asn|"
	_comment   = "#"
	_minFields = 7
	_lineSize  = 1024 * 1024
	_asnSpace  = 1 << 32
	_maxCount  = 1 << 16 // larger than any block a registry hands out
)

// delegation file columns
const (
	_colCountry = 1
	_colType    = 2
	_colStart   = 3
	_colCount   = 4
	_colStatus  = 6
)

// Delegations parses a rir delegation stream (registry|cc|type|start|value|date|status)
// and returns every allocated or assigned asn registered to country.
// Malformed lines are logged and skipped, only a read error is returned.
func Delegations(r io.Reader, country string, log logrus.FieldLogger) (asnset.Set, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	out := asnset.Set{}
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), _lineSize)
	lineNo := 0
	for s.Scan() {
		lineNo++
		line := s.Text()
		if strings.HasPrefix(line, _comment) || !strings.Contains(line, _asnMarker) {
			continue
		}
		f := strings.Split(line, _pipe)
		if len(f) < _minFields {
			continue
		}
		if f[_colType] != "asn" || f[_colCountry] != country {
			continue
		}
		if st := f[_colStatus]; st != "allocated" && st != "assigned" {
			continue
		}
		start, count, ok := asnRange(f[_colStart], f[_colCount])
		if !ok {
			log.WithFields(logrus.Fields{
				"line":   lineNo,
				"record": line,
			}).Warn("skip malformed asn delegation record")
			continue
		}
		for n := start; n < start+count; n++ {
			out.Add(asnset.Format(n))
		}
	}
	return out, s.Err()
}

// asnRange validates the start / count columns of a delegation record
func asnRange(startCol, countCol string) (start, count uint64, ok bool) {
	start, err := strconv.ParseUint(strings.TrimSpace(startCol), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	count, err = strconv.ParseUint(strings.TrimSpace(countCol), 10, 64)
	if err != nil || count < 1 || count > _maxCount {
		return 0, 0, false
	}
	if start >= _asnSpace || count > _asnSpace-start {
		return 0, 0, false
	}
	return start, count, true
}
