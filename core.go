package asngap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"paepcke.de/asngap/asnfetch"
	"paepcke.de/asngap/asnparse"
	"paepcke.de/asngap/asnset"
	"paepcke.de/asngap/spoofer"
)

// errNoSpoofer ...
var errNoSpoofer = errors.New("[asngap] no spoofer backend configured")

// CollectCountryAsns fetches every registry feed concurrently and returns
// the union of the asns delegated to cc. A failing feed is logged and left
// out, ErrNoSource is returned only when all feeds fail. When ctx ends the
// union of the feeds read so far is returned with ctx.Err().
func (r *Recon) CollectCountryAsns(ctx context.Context, cc string) (asnset.Set, error) {
	t0 := time.Now()
	cc = strings.ToUpper(cc)
	feeds := r.opt.Registries
	if len(feeds) == 0 {
		return nil, fmt.Errorf("%w: no registry feeds configured", ErrNoSource)
	}

	sets := make([]asnset.Set, len(feeds))
	errs := make([]error, len(feeds))
	g := errgroup.Group{}
	if r.opt.FetchWorkers > 0 {
		g.SetLimit(r.opt.FetchWorkers)
	}
	for i, src := range feeds {
		i, src := i, src
		g.Go(func() error {
			sets[i], errs[i] = r.collect(ctx, src, func(in io.Reader, log logrus.FieldLogger) (asnset.Set, error) {
				return asnparse.Delegations(in, cc, log)
			})
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		part := asnset.Union(sets...)
		r.log.WithFields(logrus.Fields{
			"country": cc,
			"asns":    part.Len(),
		}).Warn("registry collection interrupted, returning partial set")
		return part, err
	}

	ok := 0
	for i, err := range errs {
		if err != nil {
			r.log.WithField("source", feeds[i].Name).WithError(err).Warn("registry feed skipped")
			continue
		}
		ok++
	}
	if ok == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoSource, errors.Join(errs...))
	}

	all := asnset.Union(sets...)
	r.log.WithFields(logrus.Fields{
		"country": cc,
		"feeds":   ok,
		"asns":    all.Len(),
		"time":    time.Since(t0).String(),
	}).Info("registry asns collected")
	return all, nil
}

// CollectCaidaAsns fetches the caida dataset and returns the asns it
// attributes to cc
func (r *Recon) CollectCaidaAsns(ctx context.Context, cc string) (asnset.Set, error) {
	cc = strings.ToUpper(cc)
	set, err := r.collect(ctx, r.opt.Caida, func(in io.Reader, _ logrus.FieldLogger) (asnset.Set, error) {
		return asnparse.Caida(in, cc)
	})
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"country": cc,
		"asns":    set.Len(),
	}).Info("caida asns collected")
	return set, nil
}

// RunFullComparison collects registry and caida asns of the configured
// country concurrently and computes the asns caida misses. An unreachable
// caida feed degrades the result to an empty reference. When ctx ends the
// sets collected so far are returned with ctx.Err(), Missing stays nil.
func (r *Recon) RunFullComparison(ctx context.Context) (*Comparison, error) {
	cmp := &Comparison{Country: strings.ToUpper(r.opt.Country)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		cmp.Registry, err = r.CollectCountryAsns(gctx, cmp.Country)
		return err
	})
	g.Go(func() error {
		set, err := r.CollectCaidaAsns(gctx, cmp.Country)
		if err != nil {
			if gctx.Err() != nil {
				return nil
			}
			r.log.WithField("source", r.opt.Caida.Name).WithError(err).Warn("caida unreachable, comparing against an empty reference")
			set, cmp.Degraded = asnset.New(), true
		}
		cmp.Caida = set
		return nil
	})
	err := g.Wait()
	if cerr := ctx.Err(); cerr != nil {
		if cmp.Registry == nil {
			cmp.Registry = asnset.New()
		}
		if cmp.Caida == nil {
			cmp.Caida = asnset.New()
		}
		r.log.WithFields(logrus.Fields{
			"country":  cmp.Country,
			"registry": cmp.Registry.Len(),
			"caida":    cmp.Caida.Len(),
		}).Warn("comparison interrupted, returning partial sets")
		return cmp, cerr
	}
	if err != nil {
		return nil, err
	}
	cmp.Missing = asnset.Difference(cmp.Registry, cmp.Caida)
	r.log.WithFields(logrus.Fields{
		"country":  cmp.Country,
		"registry": cmp.Registry.Len(),
		"caida":    cmp.Caida.Len(),
		"missing":  len(cmp.Missing),
		"degraded": cmp.Degraded,
	}).Info("comparison done")
	return cmp, nil
}

// Classify returns the spoofer category of a single asn
func (r *Recon) Classify(ctx context.Context, asn string) (spoofer.Outcome, error) {
	if r.opt.Classifier == nil {
		return spoofer.Outcome{ASN: asn, Category: spoofer.Error}, errNoSpoofer
	}
	canonical, err := asnset.Canonical(asn)
	if err != nil {
		return spoofer.Outcome{ASN: asn, Category: spoofer.Error}, err
	}
	return r.opt.Classifier.Classify(ctx, canonical)
}

// CategorizeBatch groups asns by spoofer category, see spoofer.Batch
func (r *Recon) CategorizeBatch(ctx context.Context, asns []string) (spoofer.Categories, error) {
	if r.opt.Classifier == nil {
		return nil, errNoSpoofer
	}
	return spoofer.NewBatch(r.opt.Classifier, r.opt.BatchWorkers, r.log, r.opt.Metrics).Categorize(ctx, asns)
}

// ScrapeCountry dumps the country wide spoofer result table
func (r *Recon) ScrapeCountry(ctx context.Context) ([]string, error) {
	if r.opt.Dumper == nil {
		return nil, errNoSpoofer
	}
	return r.opt.Dumper.Dump(ctx)
}

// collect opens one feed and runs parse over its line stream
func (r *Recon) collect(ctx context.Context, src asnfetch.Source, parse func(io.Reader, logrus.FieldLogger) (asnset.Set, error)) (asnset.Set, error) {
	if r.opt.Opener == nil {
		return nil, fmt.Errorf("[asngap] [%s] no opener configured", src.Name)
	}
	rc, err := r.opt.Opener.Open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	log := r.log.WithField("source", src.Name)
	set, err := parse(rc, log)
	if err != nil {
		return nil, fmt.Errorf("[asngap] [%s] read: %w", src.Name, err)
	}
	log.WithField("asns", set.Len()).Debug("feed parsed")
	return set, nil
}
