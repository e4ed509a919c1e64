package spoofer

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Category is the spoofing test outcome assigned to an asn
type Category string

// categories
const (
	Received  Category = "received"
	Rewritten Category = "rewritten"
	Blocked   Category = "blocked"
	Unknown   Category = "unknown"
	NoData    Category = "no_data"
	Error     Category = "error"
)

// AllCategories lists every category in report order
var AllCategories = []Category{Received, Rewritten, Blocked, Unknown, NoData, Error}

// result table layout
const (
	_minCells   = 7
	_colSpoof   = 6
	_colNext    = 7
	_checkmark  = "✔"
	_statusUnkn = "unknown"
)

// Outcome of one classification
type Outcome struct {
	ASN      string
	Category Category
	Row      []string // cells of the deciding row, nil when no row decided
}

// Classifier assigns one asn its most recent spoofing test category
type Classifier struct {
	scraper
}

// NewClassifier ...
func NewClassifier(f TableFetcher, opt Options) (*Classifier, error) {
	s, err := newScraper(f, opt)
	if err != nil {
		return nil, err
	}
	return &Classifier{scraper: s}, nil
}

// QueryURL is the first result page for asn
func (c *Classifier) QueryURL(asn string) string { return c.pageURL(asn) }

// Classify walks the result pages of asn and classifies the first data row
// found. Without any data row the result is NoData. A page that cannot be
// fetched after all retries fails the classification with ErrFetch.
func (c *Classifier) Classify(ctx context.Context, asn string) (Outcome, error) {
	log := c.log.WithField("asn", asn)
	out := Outcome{ASN: asn, Category: NoData}
	decided := false
	err := c.walk(ctx, log, c.QueryURL(asn), func(_ int, p *Page) bool {
		cat, row, ok := classifyRows(p.Rows)
		if ok {
			out.Category, out.Row, decided = cat, row, true
		}
		return ok
	})
	if err != nil {
		return Outcome{ASN: asn, Category: Error}, err
	}
	log.WithFields(logrus.Fields{
		"category": out.Category,
		"decided":  decided,
	}).Debug("asn classified")
	return out, nil
}

// classifyRows applies the classification to the first data row, the first
// row of a page is the header
func classifyRows(rows []Row) (Category, []string, bool) {
	if len(rows) < 2 {
		return "", nil, false
	}
	for _, r := range rows[1:] {
		if len(r.Cells) < _minCells {
			continue
		}
		spoof := status(r.Cells, _colSpoof)
		next := status(r.Cells, _colNext)
		// the site renders a checkmark in the spoof column for some tests,
		// the status then sits in the following column
		if spoof == _checkmark {
			spoof = status(r.Cells, _colNext)
			next = status(r.Cells, _colNext)
		}
		return categorize(spoof, next), r.Cells, true
	}
	return "", nil, false
}

// categorize maps the two status cells to a category
func categorize(spoof, next string) Category {
	if spoof == _statusUnkn || next == _statusUnkn {
		return Unknown
	}
	switch spoof {
	case "received":
		return Received
	case "rewritten":
		return Rewritten
	case "blocked":
		return Blocked
	}
	return NoData
}

// status is the normalized cell i, empty when the row is too short
func status(cells []string, i int) string {
	if i >= len(cells) {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(cells[i]))
}
