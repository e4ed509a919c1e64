package asnfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Open fetches src and returns its decoded (gzip | zstd | tar) line stream.
// Connect and status failures are retried per the fetcher policy.
func (f *Fetcher) Open(ctx context.Context, src Source) (io.ReadCloser, error) {
	t0 := time.Now()
	ua := src.UserAgent
	if ua == "" {
		ua = f.userAgent
	}
	log := f.log.WithFields(logrus.Fields{
		"source": src.Name,
		"url":    src.Url,
	})
	retry := f.retry
	retry.Notify = func(err error, attempt int, wait time.Duration) {
		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"wait":    wait,
		}).WithError(err).Warn("feed fetch failed, retrying")
		if f.retry.Notify != nil {
			f.retry.Notify(err, attempt, wait)
		}
	}

	var resp *http.Response
	err := retry.Do(ctx, func() (err error) {
		resp, err = Get(ctx, f.client, src.Url, ua)
		return err
	})
	if err != nil {
		f.metrics.FeedFetch(src.Name, "error")
		return nil, fmt.Errorf("[asnfetch] [%s] %w", src.Name, err)
	}

	r, err := decode(resp.Body)
	if err != nil {
		resp.Body.Close()
		f.metrics.FeedFetch(src.Name, "error")
		return nil, fmt.Errorf("[asnfetch] [%s] decode: %w", src.Name, err)
	}
	f.metrics.FeedFetch(src.Name, "ok")
	log.WithField("time", time.Since(t0).String()).Info("feed opened")
	return r, nil
}

// IsStatus reports whether err carries http status code
func IsStatus(err error, code int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.Code == code
}
