package spoofer

import (
	"bufio"
	"io"
	"strings"

	"paepcke.de/asngap/asnset"
)

// client ip block column of a result row, asn prefixed
const _colIPBlock = 3

// ExtractPrefixes reads result rows (csv or tab separated, asn first) and
// returns "ASN,prefix" pairs with the masked octets ("x") of the client ip
// block zeroed. Header and short lines are skipped.
func ExtractPrefixes(r io.Reader) ([]string, error) {
	var out []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		sep := ","
		if strings.Contains(line, "\t") {
			sep = "\t"
		}
		f := strings.Split(line, sep)
		if len(f) <= _colIPBlock {
			continue
		}
		asn, err := asnset.Canonical(f[0])
		if err != nil {
			continue
		}
		block := strings.ReplaceAll(strings.TrimSpace(f[_colIPBlock]), "x", "0")
		if block == "" {
			continue
		}
		out = append(out, asn+","+block)
	}
	return out, s.Err()
}
