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

package pbwtio

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/pbwt/pbwterr"
)

// ReadSites reads a sites file (§4.6): one decimal coordinate per line. A
// line count other than n is a recoverable shape mismatch, not a fatal
// error — the caller keeps its panel and simply drops the sites metadata
// (§7 propagation policy).
func ReadSites(ctx context.Context, path string, n int) ([]int64, error) {
	r, err := openReader(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var xs []int64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		x, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: line %d: not an integer", path, len(xs)+1), err)
		}
		xs = append(xs, x)
	}
	if err := scanner.Err(); err != nil {
		return nil, pbwterr.E(pbwterr.IO, fmt.Sprintf("%s: scan", path), err)
	}
	if len(xs) != n {
		log.Error.Printf("%s: %d lines, panel has %d sites; dropping sites metadata", path, len(xs), n)
		return nil, nil
	}
	return xs, nil
}

// WriteSites writes xs, one decimal integer per line, to path.
func WriteSites(ctx context.Context, path string, xs []int64) (err error) {
	var w io.Writer
	var closer func() error
	if path == "-" {
		w = os.Stdout
	} else {
		f, ferr := file.Create(ctx, path)
		if ferr != nil {
			return pbwterr.E(pbwterr.IO, fmt.Sprintf("create %s", path), ferr)
		}
		w = f.Writer(ctx)
		closer = func() error { return f.Close(ctx) }
	}
	defer func() {
		if closer != nil {
			if cerr := closer(); err == nil {
				err = cerr
			}
		}
	}()
	bw := bufio.NewWriter(w)
	for _, x := range xs {
		if _, werr := fmt.Fprintf(bw, "%d\n", x); werr != nil {
			return pbwterr.E(pbwterr.IO, fmt.Sprintf("%s: write", path), werr)
		}
	}
	return bw.Flush()
}
