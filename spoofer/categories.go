package spoofer

import (
	"bytes"
	"encoding/csv"
	"strings"
)

// CSVHeader of the per category detail export
const CSVHeader = "ASN,Session,Timestamp,Client IP Block,ASN,Country,NAT,Outbound Private Status,Outbound Routable Status,Adj Spoof,Prefix Len,Results"

// Entry is one asn placed in a category
type Entry struct {
	ASN    string
	Reason string   // failure reason, Error entries only
	Row    []string // deciding result row
}

// String renders "ASN" or "ASN - reason"
func (e Entry) String() string {
	if e.Reason == "" {
		return e.ASN
	}
	return e.ASN + " - " + e.Reason
}

// Categories maps a category to its entries
type Categories map[Category][]Entry

// ASNs returns the asns placed in cat, in placement order
func (c Categories) ASNs(cat Category) []string {
	out := make([]string, 0, len(c[cat]))
	for _, e := range c[cat] {
		out = append(out, e.ASN)
	}
	return out
}

// Len is the number of placed asns
func (c Categories) Len() (n int) {
	for _, e := range c {
		n += len(e)
	}
	return n
}

// Report renders every non empty category as an indented text block
func (c Categories) Report() string {
	var b strings.Builder
	for _, cat := range AllCategories {
		entries := c[cat]
		if len(entries) == 0 {
			continue
		}
		b.WriteString("Category: " + string(cat) + "\n")
		for _, e := range entries {
			b.WriteString("  " + e.String() + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// CSV renders the deciding rows of category cat, asn first
func (c Categories) CSV(cat Category) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(CSVHeader + "\n")
	w := csv.NewWriter(&buf)
	for _, e := range c[cat] {
		rec := append([]string{e.ASN}, e.Row...)
		if e.Reason != "" {
			rec = append(rec, e.Reason)
		}
		if err := w.Write(rec); err != nil {
			return "", err
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}
