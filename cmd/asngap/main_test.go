package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paepcke.de/asngap/config"
	"paepcke.de/asngap/spoofer"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/apnic", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "apnic|IN|asn|10|3|20100101|allocated\n")
	})
	mux.HandleFunc("/caida", func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, `{"asn":"11","country":"IN"}`+"\n")
	})
	mux.HandleFunc("/recent_tests.php", func(w http.ResponseWriter, r *http.Request) {
		asn := r.URL.Query().Get("as_include")
		if asn != "AS10" {
			io.WriteString(w, `<table><tr><th>Session</th></tr></table>`)
			return
		}
		io.WriteString(w, `<table><tr><th>Session</th></tr>
<tr><td>9</td><td>t</td><td>8.8.x.x/16</td><td>AS10</td><td>ind</td><td>no</td><td>rewritten</td><td>blocked</td></tr></table>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeTestConfig(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	cfg := fmt.Sprintf(`country: IN
registries:
  - name: apnic
    url: %[1]s/apnic
caida_url: %[1]s/caida
retry:
  delay: 1ms
spoofer:
  base_url: %[1]s/
  rate: 0
output:
  stamp: false
log:
  level: error
`, srv.URL)
	path := filepath.Join(t.TempDir(), "asngap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&app{out: &out})
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCategorizeCommand(t *testing.T) {
	srv := newTestServer(t)
	cfgPath := writeTestConfig(t, srv)
	outDir := t.TempDir()
	metricsFile := filepath.Join(t.TempDir(), "asngap.prom")

	out, err := run(t, "--config", cfgPath, "--out", outDir, "--metrics-file", metricsFile, "categorize")
	require.NoError(t, err)
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "rewritten")

	missing, err := os.ReadFile(filepath.Join(outDir, "missing_asns_in.txt"))
	require.NoError(t, err)
	assert.Equal(t, "AS10\nAS12\n", string(missing))

	report, err := os.ReadFile(filepath.Join(outDir, "spoofing_categories.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Category: rewritten\n  AS10\n\nCategory: no_data\n  AS12\n", string(report))

	csv, err := os.ReadFile(filepath.Join(outDir, "rewritten.csv"))
	require.NoError(t, err)
	assert.Equal(t, spoofer.CSVHeader+"\nAS10,9,t,8.8.x.x/16,AS10,ind,no,rewritten,blocked\n", string(csv))

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `asngap_classification_total{category="rewritten"} 1`)

	out, err = run(t, "--config", cfgPath, "--out", outDir, "prefixes", filepath.Join(outDir, "rewritten.csv"))
	require.NoError(t, err)
	assert.Contains(t, out, "unknown_prefixes.csv")
	prefixes, err := os.ReadFile(filepath.Join(outDir, "unknown_prefixes.csv"))
	require.NoError(t, err)
	assert.Equal(t, "AS10,8.8.0.0/16\n", string(prefixes))
}

func TestCategorizeFromFile(t *testing.T) {
	srv := newTestServer(t)
	cfgPath := writeTestConfig(t, srv)
	outDir := t.TempDir()
	list := filepath.Join(t.TempDir(), "asns.txt")
	require.NoError(t, os.WriteFile(list, []byte("AS10\nbogus\n"), 0o600))

	_, err := run(t, "--config", cfgPath, "--out", outDir, "categorize", list)
	require.NoError(t, err)

	report, err := os.ReadFile(filepath.Join(outDir, "spoofing_categories.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(report), "Category: rewritten\n  AS10\n"))
	assert.Contains(t, string(report), "Category: error\n  bogus - invalid asn")
	assert.FileExists(t, filepath.Join(outDir, "error.csv"))
}

func TestCommandArgs(t *testing.T) {
	srv := newTestServer(t)
	cfgPath := writeTestConfig(t, srv)

	_, err := run(t, "--config", cfgPath, "classify")
	assert.Error(t, err)
	_, err = run(t, "--config", cfgPath, "--country", "india", "rir")
	assert.ErrorIs(t, err, config.ErrInvalid)
	_, err = run(t, "--config", cfgPath, "--country", "us", "rir")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestSpooferCountryFlag(t *testing.T) {
	var filter atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter.Store(r.URL.Query().Get("country_include"))
		io.WriteString(w, `<table><tr><th>Session</th></tr></table>`)
	}))
	defer srv.Close()
	cfgPath := writeTestConfig(t, srv)

	out, err := run(t, "--config", cfgPath, "--country", "us", "--spoofer-country", "usa", "classify", "AS7018")
	require.NoError(t, err)
	assert.Contains(t, out, "no_data")
	assert.Equal(t, "usa", filter.Load())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(config.LogCfg{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	logger.WithField("asn", "AS1").Debug("classified")
	assert.Contains(t, buf.String(), `"asn":"AS1"`)

	_, err = newLogger(config.LogCfg{Level: "loud", Format: "text"}, &buf)
	assert.Error(t, err)
	_, err = newLogger(config.LogCfg{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
}
