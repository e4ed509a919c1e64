package spoofer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"paepcke.de/asngap/asnset"
	"paepcke.de/asngap/metrics"
)

// worker bounds, the upstream host is rate sensitive
const (
	DefaultWorkers = 4
	MaxWorkers     = 8
)

// ASNClassifier classifies a single canonical asn
type ASNClassifier interface {
	Classify(ctx context.Context, asn string) (Outcome, error)
}

// Batch drives an ASNClassifier over an asn list
type Batch struct {
	classifier ASNClassifier
	workers    int
	log        logrus.FieldLogger
	metrics    *metrics.Metrics
}

// NewBatch ... workers is clamped to [1, MaxWorkers], 0 selects DefaultWorkers
func NewBatch(c ASNClassifier, workers int, log logrus.FieldLogger, m *metrics.Metrics) *Batch {
	switch {
	case workers == 0:
		workers = DefaultWorkers
	case workers < 1:
		workers = 1
	case workers > MaxWorkers:
		workers = MaxWorkers
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Batch{classifier: c, workers: workers, log: log, metrics: m}
}

// job ...
type job struct {
	idx int
	asn string
}

// slot holds the result for one input position
type slot struct {
	done     bool
	category Category
	entry    Entry
}

// Categorize classifies every asn of the list. Entries are trimmed and
// canonicalized, empty entries skipped. A failing asn lands in Error with
// the reason attached, the batch goes on. Each category lists its asns in
// input order. When ctx ends the categories collected so far are returned
// together with ctx.Err(). Classifications cut short by the deadline are
// left out.
func (b *Batch) Categorize(ctx context.Context, asns []string) (Categories, error) {
	slots := make([]slot, len(asns))
	jobs := make(chan job)
	var cut atomic.Bool

	// worker
	wg := sync.WaitGroup{}
	wg.Add(b.workers)
	for i := 0; i < b.workers; i++ {
		go func() {
			defer wg.Done()
			for j := range jobs {
				out, err := b.classifier.Classify(ctx, j.asn)
				if err != nil {
					if (ctx.Err() != nil && errors.Is(err, ctx.Err())) || errors.Is(err, ErrWaitDeadline) {
						cut.Store(true)
						continue
					}
					b.log.WithField("asn", j.asn).WithError(err).Warn("classification failed")
					slots[j.idx] = slot{done: true, category: Error, entry: Entry{ASN: j.asn, Reason: err.Error()}}
					continue
				}
				slots[j.idx] = slot{done: true, category: out.Category, entry: Entry{ASN: j.asn, Row: out.Row}}
			}
		}()
	}

	// feed
feed:
	for idx, raw := range asns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		asn, err := asnset.Canonical(raw)
		if err != nil {
			slots[idx] = slot{done: true, category: Error, entry: Entry{ASN: raw, Reason: err.Error()}}
			continue
		}
		select {
		case jobs <- job{idx: idx, asn: asn}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	// collect
	cats := Categories{}
	for _, s := range slots {
		if !s.done {
			continue
		}
		cats[s.category] = append(cats[s.category], s.entry)
		b.metrics.Classification(string(s.category))
	}
	b.log.WithFields(logrus.Fields{
		"asns":     len(asns),
		"received": len(cats[Received]),
		"unknown":  len(cats[Unknown]),
		"error":    len(cats[Error]),
	}).Info("batch categorized")
	if err := ctx.Err(); err != nil {
		return cats, err
	}
	if cut.Load() {
		return cats, context.DeadlineExceeded
	}
	return cats, nil
}
