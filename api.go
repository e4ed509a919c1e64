// package asngap reconciles the rir delegation records of a country against
// the caida as rank dataset and categorizes asns by their spoofer test results
package asngap

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"paepcke.de/asngap/asnfetch"
	"paepcke.de/asngap/asnset"
	"paepcke.de/asngap/config"
	"paepcke.de/asngap/metrics"
	"paepcke.de/asngap/spoofer"
)

// ErrNoSource is returned when not a single registry feed could be read
var ErrNoSource = errors.New("no registry feed reachable")

// CountryDumper dumps the country wide spoofer table
type CountryDumper interface {
	Dump(ctx context.Context) ([]string, error)
}

// Options wire a Recon. Opener is required, Classifier and Dumper only for
// the spoofer operations.
type Options struct {
	Country      string            // two letter registry country code
	Registries   []asnfetch.Source // rir delegation feeds
	Caida        asnfetch.Source   // as rank dataset feed
	FetchWorkers int               // concurrent feed fetches, 0 = all at once
	BatchWorkers int               // classification workers
	Opener       asnfetch.Opener
	Classifier   spoofer.ASNClassifier
	Dumper       CountryDumper
	Log          logrus.FieldLogger
	Metrics      *metrics.Metrics
}

// Comparison is the result of a full registry vs caida run
type Comparison struct {
	Country  string
	Registry asnset.Set // asns delegated to the country
	Caida    asnset.Set // asns caida attributes to the country
	Missing  []string   // Registry minus Caida, sorted
	Degraded bool       // caida was unreachable, Caida is empty
}

// Recon is the reconciliation pipeline. It keeps no state between calls.
type Recon struct {
	opt Options
	log logrus.FieldLogger
}

// New ...
func New(opt Options) *Recon {
	log := opt.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	opt.Log = log
	return &Recon{opt: opt, log: log}
}

// NewFromConfig wires the live http backends described by cfg
func NewFromConfig(cfg *config.Config, log logrus.FieldLogger, m *metrics.Metrics) (*Recon, error) {
	return newFromConfig(cfg, log, m, nil)
}

// newFromConfig ... client replaces both http clients when set
func newFromConfig(cfg *config.Config, log logrus.FieldLogger, m *metrics.Metrics, client *http.Client) (*Recon, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	retry := cfg.RetryPolicy()
	opener := asnfetch.New(asnfetch.Options{
		Timeout:   cfg.Fetch.Timeout,
		UserAgent: cfg.Fetch.UserAgent,
		Retry:     retry,
		Client:    client,
		Log:       log,
		Metrics:   m,
	})
	pages, err := spoofer.NewHTTPFetcher(spoofer.HTTPOptions{
		BaseURL:   cfg.Spoofer.BaseURL,
		UserAgent: cfg.Spoofer.UserAgent,
		Timeout:   cfg.Spoofer.Timeout,
		Rate:      cfg.Spoofer.Rate,
		Client:    client,
	})
	if err != nil {
		return nil, err
	}
	sopt := spoofer.Options{
		BaseURL:   cfg.Spoofer.BaseURL,
		QueryPath: cfg.Spoofer.QueryPath,
		Country:   cfg.Spoofer.Country,
		MaxPages:  cfg.Spoofer.MaxPages,
		Retry:     retry,
		Log:       log,
		Metrics:   m,
	}
	classifier, err := spoofer.NewClassifier(pages, sopt)
	if err != nil {
		return nil, err
	}
	dumper, err := spoofer.NewDumper(pages, sopt)
	if err != nil {
		return nil, err
	}

	src := cfg.Sources()
	return New(Options{
		Country:      cfg.Country,
		Registries:   src[:len(src)-1],
		Caida:        src[len(src)-1],
		FetchWorkers: cfg.Fetch.Workers,
		BatchWorkers: cfg.Spoofer.Workers,
		Opener:       opener,
		Classifier:   classifier,
		Dumper:       dumper,
		Log:          log,
		Metrics:      m,
	}), nil
}

// ExtractPrefixes returns the "ASN,prefix" pairs of exported result rows
func (r *Recon) ExtractPrefixes(in io.Reader) ([]string, error) {
	return spoofer.ExtractPrefixes(in)
}
