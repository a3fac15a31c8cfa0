// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package macsio

import (
	"strings"
	"testing"

	"github.com/grailbio/pbwt/interval"
	"github.com/grailbio/pbwt/pbwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStream = `COMMAND:	macs 4 1000 -t 0.001
SEED: 12345
SITE: 0	0.100	0.500000	0101
SITE: 1	0.200	0.400000	0011
SITE: 2	0.900	0.300000	1100
`

func TestIngestBasic(t *testing.T) {
	p, res, err := Ingest(strings.NewReader(sampleStream), pbwt.Config{}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, res.M)
	assert.Equal(t, int64(1000), res.L)
	assert.Equal(t, 3, res.SitesRead)
	assert.Equal(t, 3, res.SitesKept)
	assert.NotZero(t, res.Fingerprint)

	assert.Equal(t, 4, p.M)
	assert.Equal(t, 3, p.N)
	// x = floor(L*p): 100, 200, 900.
	require.Len(t, p.Sites, 3)
	assert.Equal(t, int64(100), p.Sites[0].X)
	assert.Equal(t, int64(200), p.Sites[1].X)
	assert.Equal(t, int64(900), p.Sites[2].X)
}

func TestIngestFingerprintDependsOnHeaderOnly(t *testing.T) {
	other := `COMMAND:	macs 4 1000 -t 0.001
SEED: 12345
SITE: 0	0.700	0.100000	1111
`
	_, res1, err := Ingest(strings.NewReader(sampleStream), pbwt.Config{}, Options{})
	require.NoError(t, err)
	_, res2, err := Ingest(strings.NewReader(other), pbwt.Config{}, Options{})
	require.NoError(t, err)

	assert.Equal(t, res1.Fingerprint, res2.Fingerprint, "fingerprint covers COMMAND/SEED lines only")
}

func TestIngestRegionFilter(t *testing.T) {
	regions := interval.NewRegionIndex([][2]int64{{150, 1000}})
	p, res, err := Ingest(strings.NewReader(sampleStream), pbwt.Config{}, Options{Regions: regions})
	require.NoError(t, err)

	assert.Equal(t, 3, res.SitesRead)
	assert.Equal(t, 2, res.SitesKept, "only sites at x=200 and x=900 fall in [150, 1000)")
	assert.Equal(t, 2, p.N)
}

type fakeCheckpoint struct {
	calls []int
}

func (f *fakeCheckpoint) Maybe(p *pbwt.Panel, nSites int) error {
	f.calls = append(f.calls, nSites)
	return nil
}

func TestIngestDrivesCheckpoint(t *testing.T) {
	ck := &fakeCheckpoint{}
	_, res, err := Ingest(strings.NewReader(sampleStream), pbwt.Config{}, Options{Checkpoint: ck})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, ck.calls)
	assert.Equal(t, 3, res.SitesKept)
}

func TestIngestRejectsMissingCommandLine(t *testing.T) {
	_, _, err := Ingest(strings.NewReader(""), pbwt.Config{}, Options{})
	assert.Error(t, err)
}

func TestIngestRejectsMalformedCommandLine(t *testing.T) {
	_, _, err := Ingest(strings.NewReader("COMMAND:\tmacs only-three-fields\n"), pbwt.Config{}, Options{})
	assert.Error(t, err)
}

func TestIngestRejectsMissingSeedLine(t *testing.T) {
	in := "COMMAND:\tmacs 4 1000 -t 0.001\n"
	_, _, err := Ingest(strings.NewReader(in), pbwt.Config{}, Options{})
	assert.Error(t, err)
}

func TestIngestRejectsWrongAlleleWidth(t *testing.T) {
	in := "COMMAND:\tmacs 4 1000 -t 0.001\nSEED: 1\nSITE: 0\t0.1\t0.5\t010\n"
	_, _, err := Ingest(strings.NewReader(in), pbwt.Config{}, Options{})
	assert.Error(t, err)
}

func TestIngestRejectsNonBinaryAllele(t *testing.T) {
	in := "COMMAND:\tmacs 4 1000 -t 0.001\nSEED: 1\nSITE: 0\t0.1\t0.5\t01N1\n"
	_, _, err := Ingest(strings.NewReader(in), pbwt.Config{}, Options{})
	assert.Error(t, err)
}

func TestIngestRejectsMalformedSiteLine(t *testing.T) {
	in := "COMMAND:\tmacs 4 1000 -t 0.001\nSEED: 1\nSITE: 0\t0.1\t0101\n"
	_, _, err := Ingest(strings.NewReader(in), pbwt.Config{}, Options{})
	assert.Error(t, err)
}

func TestIngestSkipsBlankLines(t *testing.T) {
	in := "COMMAND:\tmacs 4 1000 -t 0.001\nSEED: 1\n\nSITE: 0\t0.1\t0.5\t0101\n\n"
	p, res, err := Ingest(strings.NewReader(in), pbwt.Config{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SitesKept)
	assert.Equal(t, 1, p.N)
}

func TestParseCommandLine(t *testing.T) {
	m, l, err := parseCommandLine("COMMAND:\tmacs 10 5000 -t 0.001 -r 0.0001")
	require.NoError(t, err)
	assert.Equal(t, 10, m)
	assert.Equal(t, int64(5000), l)
}

func TestParseSiteLineScalesPosition(t *testing.T) {
	column := make([]byte, 4)
	x, err := parseSiteLine("SITE: 0\t0.25\t0.5\t0110", 4, 1000, column)
	require.NoError(t, err)
	assert.Equal(t, int64(250), x)
	assert.Equal(t, []byte{0, 1, 1, 0}, column)
}

func TestParseSiteLineRejectsOutOfRangePosition(t *testing.T) {
	column := make([]byte, 4)
	_, err := parseSiteLine("SITE: 0\t1.0\t0.5\t0110", 4, 1000, column)
	assert.Error(t, err)
}
