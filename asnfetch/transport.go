package asnfetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// const
const (
	_DEFAULT_USERAGENT = "curl" // user agent used for fetch
)

// ErrStatus matches every non 2xx http response
var ErrStatus = errors.New("unexpected http status")

// StatusError carries the http status of a failed fetch
type StatusError struct {
	Code int
	Url  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("[%s] http %d %s", e.Url, e.Code, http.StatusText(e.Code))
}

// Is ...
func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// Transient reports whether a retry may succeed
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// NewClient returns the shared http client setup. Feeds are fetched with
// compression disabled, they ship pre-compressed.
func NewClient(timeout time.Duration, compression bool) *http.Client {
	return getClient(getTransport(getTlsConf(), !compression), timeout)
}

// getTlsConf ...
func getTlsConf() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify:     false,
		SessionTicketsDisabled: true,
		Renegotiation:          0,
		MinVersion:             tls.VersionTLS12,
	}
}

// getTransport ...
func getTransport(tlsconf *tls.Config, noCompression bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsconf,
		TLSHandshakeTimeout:   10 * time.Second,
		DisableCompression:    noCompression,
		ForceAttemptHTTP2:     false,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// getClient ...
func getClient(transport *http.Transport, timeout time.Duration) *http.Client {
	return &http.Client{
		CheckRedirect: nil,
		Jar:           nil,
		Transport:     transport,
		Timeout:       timeout,
	}
}

// getRequest ...
func getRequest(ctx context.Context, targetURL, userAgent string) (*http.Request, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] invalid url syntax: %w", targetURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("[%s] unsupported url scheme", targetURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// Get issues a GET and returns the response of a 2xx answer. Transport errors
// and 429 / 5xx answers are transient, everything else is wrapped as permanent
// so a Retry gives up at once.
func Get(ctx context.Context, client *http.Client, targetURL, userAgent string) (*http.Response, error) {
	req, err := getRequest(ctx, targetURL, userAgent)
	if err != nil {
		return nil, Permanent(err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, Permanent(ctx.Err())
		}
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		serr := &StatusError{Code: resp.StatusCode, Url: targetURL}
		if serr.Transient() {
			return nil, serr
		}
		return nil, Permanent(serr)
	}
	return resp, nil
}
