// package config loads the asngap run configuration: yaml over defaults,
// environment overrides last
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"paepcke.de/asngap/asnfetch"
)

// env var names
const (
	EnvConfig  = "ASNGAP_CONFIG"
	EnvCountry = "ASNGAP_COUNTRY"
	EnvOutDir  = "ASNGAP_OUTDIR"

	EnvSpooferCountry = "ASNGAP_SPOOFER_COUNTRY"
)

// the built in spoofer filter belongs to the built in registry country
const (
	_defaultCountry        = "IN"
	_defaultSpooferCountry = "ind"
)

// worker limits
const (
	_maxFetchWorkers   = 16
	_maxSpooferWorkers = 8
)

// ErrInvalid is wrapped by every Validate failure
var ErrInvalid = errors.New("invalid config")

// DefaultRegistries are the five rir delegation feeds
var DefaultRegistries = []Feed{
	{Name: "afrinic", URL: "https://ftp.afrinic.net/pub/stats/afrinic/delegated-afrinic-latest"},
	{Name: "apnic", URL: "https://ftp.apnic.net/stats/apnic/delegated-apnic-latest"},
	{Name: "arin", URL: "https://ftp.arin.net/pub/stats/arin/delegated-arin-extended-latest"},
	{Name: "lacnic", URL: "https://ftp.lacnic.net/pub/stats/lacnic/delegated-lacnic-latest"},
	{Name: "ripencc", URL: "https://ftp.ripe.net/pub/stats/ripencc/delegated-ripencc-latest"},
}

// Config is the complete run configuration
type Config struct {
	Country    string     `yaml:"country" default:"IN"`
	Registries []Feed     `yaml:"registries"`
	CaidaURL   string     `yaml:"caida_url" default:"https://publicdata.caida.org/datasets/asrank_202505_55410/ASN55410.tar.gz"`
	Fetch      FetchCfg   `yaml:"fetch"`
	Retry      RetryCfg   `yaml:"retry"`
	Spoofer    SpooferCfg `yaml:"spoofer"`
	Output     OutputCfg  `yaml:"output"`
	Log        LogCfg     `yaml:"log"`
}

type (
	// Feed is one named remote feed
	Feed struct {
		Name string `yaml:"name"`
		URL  string `yaml:"url"`
	}

	// FetchCfg drives the registry and caida downloads
	FetchCfg struct {
		Workers   int           `yaml:"workers" default:"5"`
		Timeout   time.Duration `yaml:"timeout" default:"5m"`
		UserAgent string        `yaml:"user_agent" default:"curl"`
	}

	// RetryCfg is the shared retry policy
	RetryCfg struct {
		Attempts int           `yaml:"attempts" default:"3"`
		Delay    time.Duration `yaml:"delay" default:"2s"`
	}

	// SpooferCfg drives classification and the table dump
	SpooferCfg struct {
		BaseURL   string        `yaml:"base_url" default:"https://spoofer.caida.org/"`
		QueryPath string        `yaml:"query_path" default:"recent_tests.php"`
		Country   string        `yaml:"country" default:"ind"`
		UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64)"`
		Timeout   time.Duration `yaml:"timeout" default:"20s"`
		MaxPages  int           `yaml:"max_pages" default:"50"`
		Workers   int           `yaml:"workers" default:"4"`
		Rate      float64       `yaml:"rate" default:"2"`
	}

	// OutputCfg is the artifact store
	OutputCfg struct {
		Dir      string `yaml:"dir" default:"./out"`
		Compress bool   `yaml:"compress"`
		Stamp    bool   `yaml:"stamp" default:"true"`
	}

	// LogCfg ...
	LogCfg struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"text"`
	}
)

// SetDefaults fills the registry list, called by defaults.Set
func (c *Config) SetDefaults() {
	if len(c.Registries) == 0 {
		c.Registries = append([]Feed(nil), DefaultRegistries...)
	}
}

// Default returns the built in configuration
func Default() (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("[config] defaults: %w", err)
	}
	return c, nil
}

// Load reads the yaml file at path (ASNGAP_CONFIG when path is empty, no
// file at all means built in defaults), applies the env overrides and
// validates the result.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		if env, ok := syscall.Getenv(EnvConfig); ok {
			path = env
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("[config] [%s] %w", path, err)
		}
		if err := Parse(data, c); err != nil {
			return nil, fmt.Errorf("[config] [%s] %w", path, err)
		}
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Parse decodes yaml data over c
func Parse(data []byte, c *Config) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return err
	}
	// an explicit empty list falls back to the defaults as well
	c.SetDefaults()
	return nil
}

// applyEnv ...
func (c *Config) applyEnv() {
	if env, ok := syscall.Getenv(EnvCountry); ok && env != "" {
		c.Country = env
	}
	if env, ok := syscall.Getenv(EnvOutDir); ok && env != "" {
		c.Output.Dir = env
	}
	if env, ok := syscall.Getenv(EnvSpooferCountry); ok && env != "" {
		c.Spoofer.Country = env
	}
}

// Validate checks codes, urls, worker bounds and the retry policy. The
// registry country is upper cased in place.
func (c *Config) Validate() error {
	c.Country = strings.ToUpper(strings.TrimSpace(c.Country))
	if !isAlpha(c.Country, 2) {
		return fmt.Errorf("%w: country [%s] is no two letter code", ErrInvalid, c.Country)
	}
	c.Spoofer.Country = strings.ToLower(strings.TrimSpace(c.Spoofer.Country))
	if !isAlpha(c.Spoofer.Country, 3) {
		return fmt.Errorf("%w: spoofer country [%s] is no three letter code", ErrInvalid, c.Spoofer.Country)
	}
	if c.Country != _defaultCountry && c.Spoofer.Country == _defaultSpooferCountry {
		return fmt.Errorf("%w: country [%s] needs its own spoofer country, set spoofer.country or %s", ErrInvalid, c.Country, EnvSpooferCountry)
	}
	if len(c.Registries) == 0 {
		return fmt.Errorf("%w: no registry feeds", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Registries))
	for _, f := range c.Registries {
		if f.Name == "" || seen[f.Name] {
			return fmt.Errorf("%w: registry name [%s] empty or duplicate", ErrInvalid, f.Name)
		}
		seen[f.Name] = true
		if err := checkURL(f.URL); err != nil {
			return fmt.Errorf("%w: registry [%s]: %w", ErrInvalid, f.Name, err)
		}
	}
	if err := checkURL(c.CaidaURL); err != nil {
		return fmt.Errorf("%w: caida_url: %w", ErrInvalid, err)
	}
	if err := checkURL(c.Spoofer.BaseURL); err != nil {
		return fmt.Errorf("%w: spoofer.base_url: %w", ErrInvalid, err)
	}
	switch {
	case c.Fetch.Workers < 1 || c.Fetch.Workers > _maxFetchWorkers:
		return fmt.Errorf("%w: fetch.workers %d not in [1,%d]", ErrInvalid, c.Fetch.Workers, _maxFetchWorkers)
	case c.Spoofer.Workers < 1 || c.Spoofer.Workers > _maxSpooferWorkers:
		return fmt.Errorf("%w: spoofer.workers %d not in [1,%d]", ErrInvalid, c.Spoofer.Workers, _maxSpooferWorkers)
	case c.Spoofer.MaxPages < 1:
		return fmt.Errorf("%w: spoofer.max_pages must be positive", ErrInvalid)
	case c.Retry.Attempts < 1:
		return fmt.Errorf("%w: retry.attempts must be positive", ErrInvalid)
	case c.Retry.Delay < 0:
		return fmt.Errorf("%w: retry.delay is negative", ErrInvalid)
	}
	return nil
}

// Sources lists the registry feeds followed by the caida feed
func (c *Config) Sources() []asnfetch.Source {
	out := make([]asnfetch.Source, 0, len(c.Registries)+1)
	for _, f := range c.Registries {
		out = append(out, asnfetch.Source{Name: f.Name, Kind: asnfetch.Registry, Url: f.URL})
	}
	return append(out, asnfetch.Source{Name: "caida", Kind: asnfetch.Caida, Url: c.CaidaURL})
}

// RetryPolicy ...
func (c *Config) RetryPolicy() asnfetch.Retry {
	return asnfetch.Retry{Attempts: c.Retry.Attempts, Delay: c.Retry.Delay}
}

// isAlpha reports whether s is n ascii letters
func isAlpha(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

// checkURL ...
func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url [%s] needs an http(s) scheme and host", raw)
	}
	return nil
}
