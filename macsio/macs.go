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
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/pbwt/interval"
	"github.com/grailbio/pbwt/pbwt"
	"github.com/grailbio/pbwt/pbwterr"
)

// asciiToAllele maps an input byte to 0 or 1, or to invalidAllele if the byte
// is not a recognized allele character. Table-driven the way the reference
// tree's biosimd package transcodes fixed sequence alphabets, but with a
// 1-bit-wide alphabet rather than a 2-bit nucleotide one, so there is no SIMD
// counterpart to carry over.
var asciiToAllele [256]byte

const invalidAllele = 0xff

func init() {
	for i := range asciiToAllele {
		asciiToAllele[i] = invalidAllele
	}
	asciiToAllele['0'] = 0
	asciiToAllele['1'] = 1
}

// Options configures an ingestion run.
type Options struct {
	// Regions, if non-nil, restricts ingestion to sites whose scaled
	// coordinate falls inside the region index.
	Regions *interval.RegionIndex

	// Checkpoint, if non-nil, is consulted after every site via its Maybe
	// method, implementing rotating on-disk snapshots during ingestion.
	Checkpoint interface {
		Maybe(p *pbwt.Panel, nSites int) error
	}
}

// Result carries metadata recovered from the MaCS header that isn't part of
// the panel itself.
type Result struct {
	M           int
	L           int64
	Fingerprint uint64 // seahash digest of the COMMAND and SEED lines
	SitesRead   int
	SitesKept   int
}

// Ingest reads a MaCS-style text stream from r (§4.7) and drives cfg into a
// newly built Panel, one SITE line at a time. It never materializes the
// entire simulation output: only the current line and the current decoded
// column are held in memory at once.
func Ingest(r io.Reader, cfg pbwt.Config, opts Options) (*pbwt.Panel, Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)

	if !scanner.Scan() {
		return nil, Result{}, pbwterr.E(pbwterr.Format, "macs: empty input, want COMMAND: line", scanner.Err())
	}
	commandLine := scanner.Text()
	m, l, err := parseCommandLine(commandLine)
	if err != nil {
		return nil, Result{}, err
	}

	if !scanner.Scan() {
		return nil, Result{}, pbwterr.E(pbwterr.Format, "macs: missing SEED: line", scanner.Err())
	}
	seedLine := scanner.Text()
	if !strings.HasPrefix(seedLine, "SEED:") {
		return nil, Result{}, pbwterr.E(pbwterr.Format, fmt.Sprintf("macs: expected SEED: line, got %q", seedLine), nil)
	}

	fingerprint := seahash.Sum64([]byte(commandLine + "\n" + seedLine))

	p, err := pbwt.New(m, cfg)
	if err != nil {
		return nil, Result{}, err
	}

	res := Result{M: m, L: l, Fingerprint: fingerprint}
	column := make([]byte, m)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		x, err := parseSiteLine(line, m, l, column)
		if err != nil {
			return nil, Result{}, err
		}
		res.SitesRead++

		if opts.Regions != nil && !opts.Regions.Contains(x) {
			continue
		}
		if err := p.AppendColumn(x, column); err != nil {
			return nil, Result{}, err
		}
		res.SitesKept++
		if opts.Checkpoint != nil {
			if err := opts.Checkpoint.Maybe(p, res.SitesKept); err != nil {
				return nil, Result{}, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, Result{}, pbwterr.E(pbwterr.IO, "macs: scan", err)
	}
	return p, res, nil
}

// parseCommandLine extracts M and L from "COMMAND: <cmd> <M> <L> ...".
func parseCommandLine(line string) (m int, l int64, err error) {
	fields := strings.Fields(line)
	if len(fields) < 4 || fields[0] != "COMMAND:" {
		return 0, 0, pbwterr.E(pbwterr.Format, fmt.Sprintf("macs: malformed COMMAND: line %q", line), nil)
	}
	m64, merr := strconv.ParseInt(fields[2], 10, 64)
	l64, lerr := strconv.ParseInt(fields[3], 10, 64)
	if merr != nil || lerr != nil {
		return 0, 0, pbwterr.E(pbwterr.Format, fmt.Sprintf("macs: malformed COMMAND: line %q", line), nil)
	}
	return int(m64), l64, nil
}

// parseSiteLine parses "SITE: <num> <p> <time> <alleles>", scaling p by l
// into an integer coordinate and decoding alleles into column, which must
// already be sized to m.
func parseSiteLine(line string, m int, l int64, column []byte) (x int64, err error) {
	fields := strings.Fields(line)
	if len(fields) != 5 || fields[0] != "SITE:" {
		return 0, pbwterr.E(pbwterr.Format, fmt.Sprintf("macs: malformed SITE: line %q", line), nil)
	}
	p, perr := strconv.ParseFloat(fields[2], 64)
	if perr != nil || p < 0 || p >= 1 {
		return 0, pbwterr.E(pbwterr.Format, fmt.Sprintf("macs: malformed SITE: line, bad position %q", fields[2]), nil)
	}
	alleles := fields[4]
	if len(alleles) != m {
		return 0, pbwterr.E(pbwterr.Shape, fmt.Sprintf("macs: SITE: line has %d alleles, want %d", len(alleles), m), nil)
	}
	for i := 0; i < m; i++ {
		v := asciiToAllele[alleles[i]]
		if v == invalidAllele {
			return 0, pbwterr.E(pbwterr.Format, fmt.Sprintf("macs: non-binary allele character %q at haplotype %d", alleles[i], i), nil)
		}
		column[i] = v
	}
	return int64(math.Floor(float64(l) * p)), nil
}
