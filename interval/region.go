package interval

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/pbwt/pbwterr"
	"github.com/klauspost/compress/gzip"
)

// RegionIndex is a derived, non-persisted interval-union over a set of
// genomic ranges, used to filter MaCS ingestion by coordinate. It
// wraps the endpoint/union-scanner machinery above, which is already
// coordinate-type-agnostic.
type RegionIndex struct {
	endpoints []PosType
	idx       EndpointIndex
}

// NewRegionIndex builds a RegionIndex from a set of half-open [start, end)
// ranges. Overlapping or unsorted ranges are accepted; they are merged into
// a canonical endpoint sequence.
func NewRegionIndex(ranges [][2]int64) *RegionIndex {
	type bound = struct {
		pos  PosType
		sign int
	}
	bounds := make([]bound, 0, 2*len(ranges))
	for _, r := range ranges {
		bounds = append(bounds, bound{PosType(r[0]), 1}, bound{PosType(r[1]), -1})
	}
	// Sweep to merge overlapping/adjacent ranges into a flat endpoint list.
	sortBounds(bounds)
	var endpoints []PosType
	depth := 0
	for _, b := range bounds {
		if depth == 0 && b.sign == 1 {
			endpoints = append(endpoints, b.pos)
		}
		depth += b.sign
		if depth == 0 {
			endpoints = append(endpoints, b.pos)
		}
	}
	return &RegionIndex{endpoints: endpoints}
}

func sortBounds(bounds []struct {
	pos  PosType
	sign int
}) {
	// Simple insertion sort is adequate: region files are small relative to
	// panel size, and this runs once at startup.
	for i := 1; i < len(bounds); i++ {
		for j := i; j > 0 && bounds[j-1].pos > bounds[j].pos; j-- {
			bounds[j-1], bounds[j] = bounds[j], bounds[j-1]
		}
	}
}

// Contains reports whether x falls within one of the index's ranges. Calls
// must be made with non-decreasing x: it uses EndpointIndex.Update, which
// only searches forward from the previous position, rather than a fresh
// search each call. The core does not enforce increasing coordinates across
// sites (see pbwt.Site), so a smaller x after a larger one gives a wrong
// answer.
func (ri *RegionIndex) Contains(x int64) bool {
	ri.idx.Update(PosType(x), ri.endpoints)
	return ri.idx.Contained()
}

// ReadRegions reads a two-column-per-line region file ("start end", one
// half-open range per line), optionally gzip-compressed, and returns a
// RegionIndex over it.
func ReadRegions(ctx context.Context, path string) (*RegionIndex, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, pbwterr.E(pbwterr.IO, fmt.Sprintf("open %s", path), err)
	}
	defer f.Close(ctx) // nolint: errcheck

	raw, err := ioutil.ReadAll(f.Reader(ctx))
	if err != nil {
		return nil, pbwterr.E(pbwterr.IO, fmt.Sprintf("%s: read", path), err)
	}
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		gz, gerr := gzip.NewReader(bytes.NewReader(raw))
		if gerr != nil {
			return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: gzip header", path), gerr)
		}
		defer gz.Close() // nolint: errcheck
		raw, err = ioutil.ReadAll(gz)
		if err != nil {
			return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: gzip body", path), err)
		}
	}

	var ranges [][2]int64
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: line %d: want 2 fields, got %d", path, lineNo, len(fields)), nil)
		}
		start, serr := strconv.ParseInt(fields[0], 10, 64)
		end, eerr := strconv.ParseInt(fields[1], 10, 64)
		if serr != nil || eerr != nil {
			return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: line %d: non-integer bound", path, lineNo), nil)
		}
		if end <= start {
			return nil, pbwterr.E(pbwterr.Shape, fmt.Sprintf("%s: line %d: empty or inverted range [%d, %d)", path, lineNo, start, end), nil)
		}
		ranges = append(ranges, [2]int64{start, end})
	}
	if err := scanner.Err(); err != nil {
		return nil, pbwterr.E(pbwterr.IO, fmt.Sprintf("%s: scan", path), err)
	}
	return NewRegionIndex(ranges), nil
}
