package spoofer

import (
	"context"
	"strings"
)

// the result table is the second table of a page, the first one holds the filter form
const _resultTable = 1

// Dumper dumps the country wide result table as tab separated lines
type Dumper struct {
	scraper
}

// NewDumper ...
func NewDumper(f TableFetcher, opt Options) (*Dumper, error) {
	s, err := newScraper(f, opt)
	if err != nil {
		return nil, err
	}
	return &Dumper{scraper: s}, nil
}

// Dump walks every result page of the country. Header rows are kept for the
// first page only. On a fetch failure the lines gathered so far are returned
// with the error.
func (d *Dumper) Dump(ctx context.Context) ([]string, error) {
	log := d.log.WithField("country", d.country)
	var lines []string
	err := d.walk(ctx, log, d.pageURL(""), func(n int, p *Page) bool {
		if p.Tables <= _resultTable {
			return false
		}
		for _, r := range p.Table(_resultTable) {
			if len(r.Headers) > 0 {
				if n == 0 {
					lines = append(lines, strings.Join(r.Headers, "\t"))
				}
				continue
			}
			lines = append(lines, strings.Join(r.Cells, "\t"))
		}
		return false
	})
	log.WithField("lines", len(lines)).Info("country table dumped")
	return lines, err
}
