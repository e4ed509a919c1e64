package asnparse

import (
	"strconv"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const delegationSample = `2|apnic|20250610|86532|19830613|20250609|+1000
apnic|*|asn|*|12412|summary
# comment line apnic|IN|asn|1|1|20000101|allocated
apnic|IN|asn|1|2|20020801|allocated
apnic|IN|asn|3|1|20020801|assigned|A91A7381|e-stats
apnic|IN|asn|10|5|20020801|reserved
apnic|US|asn|20|1|20020801|allocated
apnic|IN|ipv4|1.0.0.0|256|20110811|assigned
apnic|IN|asn|30|1
apnic|IN|asn|x40|1|20020801|allocated
apnic|IN|asn|50|zero|20020801|allocated
`

func TestDelegations(t *testing.T) {
	logger, hook := test.NewNullLogger()

	got, err := Delegations(strings.NewReader(delegationSample), "IN", logger)
	require.NoError(t, err)

	assert.Equal(t, []string{"AS1", "AS2", "AS3"}, got.Sorted())

	// the two records with non numeric start / count are reported, nothing else
	require.Len(t, hook.AllEntries(), 2)
	for _, e := range hook.AllEntries() {
		assert.Equal(t, logrus.WarnLevel, e.Level)
	}
}

func TestDelegationsExpansion(t *testing.T) {
	tests := []struct {
		start, count uint64
	}{
		{start: 0, count: 1},
		{start: 9583, count: 1},
		{start: 131072, count: 1024},
		{start: 4294967294, count: 2},
	}
	for _, tt := range tests {
		line := "ripencc|IN|asn|" + strconv.FormatUint(tt.start, 10) + "|" +
			strconv.FormatUint(tt.count, 10) + "|20100101|allocated\n"
		got, err := Delegations(strings.NewReader(line), "IN", nil)
		require.NoError(t, err)
		require.Equal(t, int(tt.count), got.Len(), line)
		for asn := range got {
			n, err := strconv.ParseUint(strings.TrimPrefix(asn, "AS"), 10, 64)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, n, tt.start)
			assert.Less(t, n, tt.start+tt.count)
		}
	}
}

func TestDelegationsFilteredLinesProduceNothing(t *testing.T) {
	lines := []string{
		"arin|US|asn|1|5|20100101|allocated",
		"arin|IN|ipv6|2001:db8::|32|20100101|allocated",
		"arin|IN|asn|1|5|20100101|available",
		"arin|IN|asn|1|5|20100101",
		"arin|IN|asn|1|0|20100101|allocated",
		"arin|IN|asn|4294967295|2|20100101|allocated",
		"arin|in|asn|1|5|20100101|allocated",
		"",
	}
	for _, line := range lines {
		got, err := Delegations(strings.NewReader(line), "IN", nullLogger())
		require.NoError(t, err)
		assert.Zero(t, got.Len(), line)
	}
}

func TestDelegationsOversizedRange(t *testing.T) {
	logger, hook := test.NewNullLogger()
	in := "arin|IN|asn|1|65536|20100101|allocated\n" +
		"arin|IN|asn|100000|65537|20100101|allocated\n" +
		"arin|IN|asn|0|4294967295|20100101|allocated\n"

	got, err := Delegations(strings.NewReader(in), "IN", logger)
	require.NoError(t, err)
	assert.Equal(t, 65536, got.Len())
	assert.True(t, got.Has("AS65536"))
	assert.False(t, got.Has("AS100000"))
	assert.Len(t, hook.AllEntries(), 2)
}

func TestDelegationsDuplicatesAcrossRecords(t *testing.T) {
	in := "afrinic|IN|asn|5|3|20100101|allocated\nafrinic|IN|asn|6|3|20100101|assigned\n"
	got, err := Delegations(strings.NewReader(in), "IN", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AS5", "AS6", "AS7", "AS8"}, got.Sorted())
}

func nullLogger() *logrus.Logger {
	l, _ := test.NewNullLogger()
	return l
}
