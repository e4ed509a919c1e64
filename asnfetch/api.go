// package asnfetch fetches registry and caida feeds over https and hands
// back decoded line streams
package asnfetch

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"paepcke.de/asngap/metrics"
)

// Kind of feed
type Kind int

// feed kinds
const (
	Registry Kind = iota
	Caida
)

// String ...
func (k Kind) String() string {
	switch k {
	case Registry:
		return "registry"
	case Caida:
		return "caida"
	}
	return "unknown"
}

// Source describes one remote feed
type Source struct {
	Name      string // registry id (afrinic, apnic, ...) or "caida"
	Kind      Kind   // feed kind
	Url       string // feed url
	UserAgent string // optional per feed user agent
}

// Opener opens the decoded line stream of a feed
type Opener interface {
	Open(ctx context.Context, src Source) (io.ReadCloser, error)
}

// Options ...
type Options struct {
	Timeout   time.Duration // per request timeout, 0 means none
	UserAgent string        // default user agent
	Retry     Retry         // retry policy for connect / status failures
	Client    *http.Client  // optional, replaces the default client
	Log       logrus.FieldLogger
	Metrics   *metrics.Metrics
}

// Fetcher is the http backed Opener
type Fetcher struct {
	client    *http.Client
	userAgent string
	retry     Retry
	log       logrus.FieldLogger
	metrics   *metrics.Metrics
}

// New ...
func New(opt Options) *Fetcher {
	client := opt.Client
	if client == nil {
		client = NewClient(opt.Timeout, false)
	}
	log := opt.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	ua := opt.UserAgent
	if ua == "" {
		ua = _DEFAULT_USERAGENT
	}
	return &Fetcher{
		client:    client,
		userAgent: ua,
		retry:     opt.Retry,
		log:       log,
		metrics:   opt.Metrics,
	}
}
