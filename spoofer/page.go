// package spoofer scrapes the caida spoofer "recent tests" table: per asn
// classification, batch categorization and the country wide table dump
package spoofer

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Row is one <tr> of a result page
type Row struct {
	Table   int      // index of the enclosing <table> on the page
	Headers []string // <th> texts
	Cells   []string // <td> texts
}

// Page is a parsed result page
type Page struct {
	Rows   []Row  // every "table tr" in document order
	Tables int    // number of <table> elements
	Next   string // absolute url of the "Next" link, empty on the last page
}

// Table returns the rows of the i-th table
func (p *Page) Table(i int) []Row {
	var out []Row
	for _, r := range p.Rows {
		if r.Table == i {
			out = append(out, r)
		}
	}
	return out
}

// ParsePage reads an html result page, relative "Next" links are resolved
// against base
func ParsePage(r io.Reader, base *url.URL) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	p := &Page{}

	tables := make(map[*html.Node]int)
	doc.Find("table").Each(func(i int, s *goquery.Selection) {
		tables[s.Get(0)] = i
	})
	p.Tables = len(tables)

	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		row := Row{Table: tables[tr.Closest("table").Get(0)]}
		tr.ChildrenFiltered("th").Each(func(_ int, c *goquery.Selection) {
			row.Headers = append(row.Headers, cellText(c))
		})
		tr.ChildrenFiltered("td").Each(func(_ int, c *goquery.Selection) {
			row.Cells = append(row.Cells, cellText(c))
		})
		p.Rows = append(p.Rows, row)
	})

	if href, ok := doc.Find(`a:contains("Next")`).First().Attr("href"); ok {
		p.Next = resolve(base, href)
	}
	return p, nil
}

// cellText is the whitespace normalized text of a cell
func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// resolve ...
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil || ref.IsAbs() {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
