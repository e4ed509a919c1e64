package spoofer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"paepcke.de/asngap/asnfetch"
)

// fakeFetcher serves canned pages by url, errs are handed out first
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]*Page
	errs  map[string][]error
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages: map[string]*Page{},
		errs:  map[string][]error{},
		calls: map[string]int{},
	}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, pageURL string) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[pageURL]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errs := f.errs[pageURL]; len(errs) > 0 {
		f.errs[pageURL] = errs[1:]
		return nil, errs[0]
	}
	if p, ok := f.pages[pageURL]; ok {
		return p, nil
	}
	return nil, asnfetch.Permanent(errors.New("no such page " + pageURL))
}

func (f *fakeFetcher) callCount(pageURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pageURL]
}

// instantTimer fires at once and records the waits
type instantTimer struct {
	mu    *sync.Mutex
	c     chan time.Time
	waits *[]time.Duration
}

func (t *instantTimer) Start(d time.Duration) {
	t.mu.Lock()
	*t.waits = append(*t.waits, d)
	t.mu.Unlock()
	t.c = make(chan time.Time, 1)
	t.c <- time.Now()
}
func (t *instantTimer) Stop()               {}
func (t *instantTimer) C() <-chan time.Time { return t.c }

func testOptions(waits *[]time.Duration) Options {
	mu := &sync.Mutex{}
	if waits == nil {
		waits = &[]time.Duration{}
	}
	return Options{
		Retry: asnfetch.Retry{
			Attempts: asnfetch.DefaultAttempts,
			Delay:    asnfetch.DefaultDelay,
			NewTimer: func() backoff.Timer { return &instantTimer{mu: mu, waits: waits} },
		},
		Log: nullLogger(),
	}
}

var headerRow = Row{Headers: []string{"Session", "Timestamp", "Client IP Block", "ASN", "Country", "NAT", "Outbound Private", "Outbound Routable"}}

// dataRow builds a result row with the two status columns
func dataRow(asn, spoof, next string) Row {
	return Row{Cells: []string{"123456", "2025-06-01 10:00:00", "103.21.4.x/24", asn, "ind", "yes", spoof, next}}
}
