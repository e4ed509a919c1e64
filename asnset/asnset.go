// package asnset canonical ASN identifiers, ASN sets and set reconciliation
package asnset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// const
const (
	_prefix = "AS"
)

// ErrInvalidASN is returned for tokens that do not describe an ASN
var ErrInvalidASN = errors.New("invalid asn")

// Canonical returns the canonical AS<n> form of an ASN token.
// Accepts "AS12", "as12", " 12 " and "AS012".
func Canonical(token string) (string, error) {
	t := strings.TrimSpace(token)
	if len(t) >= 2 && strings.EqualFold(t[:2], _prefix) {
		t = t[2:]
	}
	n, err := strconv.ParseUint(t, 10, 32)
	if err != nil {
		return "", fmt.Errorf("%w [%s]", ErrInvalidASN, strings.TrimSpace(token))
	}
	return Format(n), nil
}

// Format ...
func Format(n uint64) string { return _prefix + strconv.FormatUint(n, 10) }

// Set is an unordered set of canonical ASN identifiers
type Set map[string]struct{}

// New returns a set holding the given identifiers as-is
func New(asns ...string) Set {
	s := make(Set, len(asns))
	for _, a := range asns {
		s[a] = struct{}{}
	}
	return s
}

// Add ...
func (s Set) Add(asn string) { s[asn] = struct{}{} }

// Has ...
func (s Set) Has(asn string) bool {
	_, ok := s[asn]
	return ok
}

// Len ...
func (s Set) Len() int { return len(s) }

// Sorted returns the members in lexicographic order
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Union merges per-source sets into a new set, inputs are left untouched
func Union(sets ...Set) Set {
	size := 0
	for _, s := range sets {
		size += len(s)
	}
	out := make(Set, size)
	for _, s := range sets {
		for a := range s {
			out[a] = struct{}{}
		}
	}
	return out
}

// Difference returns every member of source absent from reference,
// in lexicographic order.
func Difference(source, reference Set) []string {
	out := make([]string, 0, len(source))
	for a := range source {
		if _, ok := reference[a]; !ok {
			out = append(out, a)
		}
	}
	sort.Strings(out)
	return out
}
