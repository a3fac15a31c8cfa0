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

// pbwt builds, queries, and transforms Positional Burrows-Wheeler Transform
// panels of bi-allelic haplotypes.
//
// Usage: pbwt [flags]
//
// One of -macs or -read selects the panel to operate on; the remaining
// flags are applied to it in a fixed order (subsetting, then match
// enumeration or external matching, then output).
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/pbwt/interval"
	"github.com/grailbio/pbwt/macsio"
	"github.com/grailbio/pbwt/pbwt"
	"github.com/grailbio/pbwt/pbwterr"
	"github.com/grailbio/pbwt/pbwtio"
)

var (
	checkFlag   = flag.Bool("check", false, "Enable expensive self-checks during construction and matching")
	statsFlag   = flag.Bool("stats", false, "Print panel summary statistics to stdout")
	parallelism = flag.Int("parallelism", 0, "Goroutine bound for read-only scans (0 = runtime.NumCPU())")

	macsFlag  = flag.String("macs", "", "Ingest a MaCS-style text stream from this file (\"-\" for stdin)")
	readFlag  = flag.String("read", "", "Load a binary panel file (\"-\" for stdin)")
	writeFlag = flag.String("write", "", "Write the resulting panel to this file (\"-\" for stdout)")

	readSitesFlag  = flag.String("readSites", "", "Attach a sites file to the loaded panel")
	writeSitesFlag = flag.String("writeSites", "", "Write the panel's sites to this file")
	hapsFlag       = flag.String("haps", "", "Write the decoded haplotype matrix to this file, '0'/'1' per allele")

	regionFlag = flag.String("region", "", "Restrict MaCS ingestion to sites inside this region file")

	checkpointFlag         = flag.Int("checkpoint", 0, "Rotating snapshot every n sites during MaCS ingestion (0 disables)")
	checkpointCompressFlag = flag.Bool("checkpointCompress", false, "gzip-compress rotated checkpoint files")

	subsampleFlag = flag.String("subsample", "", "\"<start> <n>\": derive a panel over a contiguous haplotype range")
	subsitesFlag  = flag.String("subsites", "", "\"<fmin> <frac>\": derive a panel over a frequency-filtered, thinned site subset")

	longWithinFlag    = flag.Int("longWithin", 0, "Report matches of at least this length over the current panel")
	maximalWithinFlag = flag.Bool("maximalWithin", false, "Report maximal matches over the current panel")

	testFlag = flag.String("test", "", "Query panel file to match against the current panel via the external matcher")
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	flag.Parse()
	shutdown := grail.Init()
	defer shutdown()

	ctx := vcontext.Background()
	if err := run(ctx); err != nil {
		log.Error.Printf("pbwt: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := pbwt.Config{Check: *checkFlag, Stats: *statsFlag, Parallelism: *parallelism}

	var regions *interval.RegionIndex
	if *regionFlag != "" {
		var err error
		regions, err = interval.ReadRegions(ctx, *regionFlag)
		if err != nil {
			return err
		}
	}

	p, err := loadPanel(ctx, cfg, regions)
	if err != nil {
		return err
	}

	if *readSitesFlag != "" {
		xs, err := pbwtio.ReadSites(ctx, *readSitesFlag, p.N)
		if err != nil {
			return err
		}
		if xs != nil {
			for i, x := range xs {
				p.Sites[i].X = x
			}
		}
	}

	if *subsampleFlag != "" {
		start, n, err := parseTwoInts(*subsampleFlag, "subsample")
		if err != nil {
			return err
		}
		p, err = pbwt.Subsample(p, start, n, cfg)
		if err != nil {
			return err
		}
	}

	if *subsitesFlag != "" {
		fmin, frac, err := parseTwoFloats(*subsitesFlag, "subsites")
		if err != nil {
			return err
		}
		p, err = pbwt.Subsites(p, fmin, frac, cfg)
		if err != nil {
			return err
		}
	}

	if *longWithinFlag > 0 {
		if err := pbwt.LongMatches(p, *longWithinFlag, printMatch); err != nil {
			return err
		}
	}
	if *maximalWithinFlag {
		if err := pbwt.MaximalMatches(p, printMatch); err != nil {
			return err
		}
	}

	if *testFlag != "" {
		if err := runTest(ctx, p, cfg); err != nil {
			return err
		}
	}

	if *statsFlag {
		stats, err := pbwt.ComputeStats(p, cfg.Parallelism)
		if err != nil {
			return err
		}
		fmt.Printf("sites=%d haplotypes=%d encodedBytes=%d meanMAF=%.6f\n",
			stats.Sites, stats.Haplotypes, stats.EncodedBytes, stats.MeanMAF)
	}

	if *hapsFlag != "" {
		if err := writeHaps(ctx, *hapsFlag, p); err != nil {
			return err
		}
	}
	if *writeSitesFlag != "" {
		xs := make([]int64, len(p.Sites))
		for i, s := range p.Sites {
			xs[i] = s.X
		}
		if err := pbwtio.WriteSites(ctx, *writeSitesFlag, xs); err != nil {
			return err
		}
	}
	if *writeFlag != "" {
		if err := pbwtio.WritePanel(ctx, *writeFlag, p); err != nil {
			return err
		}
	}
	return nil
}

// loadPanel builds a panel from -macs, or loads one from -read; exactly one
// must be given.
func loadPanel(ctx context.Context, cfg pbwt.Config, regions *interval.RegionIndex) (*pbwt.Panel, error) {
	switch {
	case *macsFlag != "" && *readFlag != "":
		return nil, argErr("-macs and -read are mutually exclusive")
	case *macsFlag != "":
		r, closeFn, err := openInput(ctx, *macsFlag)
		if err != nil {
			return nil, err
		}
		defer closeFn() // nolint: errcheck

		opts := macsio.Options{Regions: regions}
		var ckpt *pbwtio.Checkpointer
		if *checkpointFlag > 0 {
			ckpt = pbwtio.NewCheckpointer(ctx, "check", *checkpointFlag, *checkpointCompressFlag)
			opts.Checkpoint = ckpt
		}
		p, res, err := macsio.Ingest(r, cfg, opts)
		if err != nil {
			return nil, err
		}
		log.Printf("pbwt: ingested %d/%d sites, fingerprint=%x", res.SitesKept, res.SitesRead, res.Fingerprint)
		return p, nil
	case *readFlag != "":
		return pbwtio.ReadPanel(ctx, *readFlag, cfg)
	default:
		return nil, argErr("one of -macs or -read is required")
	}
}

func runTest(ctx context.Context, p *pbwt.Panel, cfg pbwt.Config) error {
	matcher, err := pbwt.NewMatcher(p)
	if err != nil {
		return err
	}
	queryPanel, err := pbwtio.ReadPanel(ctx, *testFlag, cfg)
	if err != nil {
		return err
	}
	queryHap, err := pbwt.NewHaplotypeMatrix(queryPanel)
	if err != nil {
		return err
	}
	if queryPanel.N != p.N {
		return argErr(fmt.Sprintf("-test panel has %d sites, want %d", queryPanel.N, p.N))
	}
	z := make([]byte, p.N)
	for j := 0; j < queryPanel.M; j++ {
		for k := 0; k < p.N; k++ {
			z[k] = queryHap.Allele(k, j)
		}
		if err := matcher.Match(j, z, printMatch); err != nil {
			return err
		}
	}
	return nil
}

func writeHaps(ctx context.Context, path string, p *pbwt.Panel) (err error) {
	hm, err := pbwt.NewHaplotypeMatrix(p)
	if err != nil {
		return err
	}
	var w *bufio.Writer
	var closeFn func() error
	if path == "-" {
		w = bufio.NewWriter(os.Stdout)
	} else {
		f, ferr := file.Create(ctx, path)
		if ferr != nil {
			return ferr
		}
		w = bufio.NewWriter(f.Writer(ctx))
		closeFn = func() error { return f.Close(ctx) }
	}
	defer func() {
		if ferr := w.Flush(); err == nil {
			err = ferr
		}
		if closeFn != nil {
			if cerr := closeFn(); err == nil {
				err = cerr
			}
		}
	}()
	row := make([]byte, hm.M)
	for k := 0; k < hm.N; k++ {
		for i, v := range hm.Row(k) {
			row[i] = '0' + v
		}
		if _, err := w.Write(row); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return nil
}

func printMatch(m pbwt.Match) error {
	_, err := fmt.Printf("%d\t%d\t%d\t%d\n", m.I, m.J, m.Start, m.End)
	return err
}

func openInput(ctx context.Context, path string) (r io.Reader, closeFn func() error, err error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	ff, ferr := file.Open(ctx, path)
	if ferr != nil {
		return nil, nil, pbwterr.E(pbwterr.IO, fmt.Sprintf("open %s", path), ferr)
	}
	return ff.Reader(ctx), func() error { return ff.Close(ctx) }, nil
}

func parseTwoInts(s, flagName string) (a, b int, err error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, argErr(fmt.Sprintf("-%s wants \"<a> <b>\", got %q", flagName, s))
	}
	a64, aerr := strconv.Atoi(fields[0])
	b64, berr := strconv.Atoi(fields[1])
	if aerr != nil || berr != nil {
		return 0, 0, argErr(fmt.Sprintf("-%s: non-integer argument in %q", flagName, s))
	}
	return a64, b64, nil
}

func parseTwoFloats(s, flagName string) (a, b float64, err error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0, 0, argErr(fmt.Sprintf("-%s wants \"<a> <b>\", got %q", flagName, s))
	}
	a64, aerr := strconv.ParseFloat(fields[0], 64)
	b64, berr := strconv.ParseFloat(fields[1], 64)
	if aerr != nil || berr != nil {
		return 0, 0, argErr(fmt.Sprintf("-%s: non-numeric argument in %q", flagName, s))
	}
	return a64, b64, nil
}

func argErr(msg string) error {
	return pbwterr.E(pbwterr.Argument, msg, nil)
}
