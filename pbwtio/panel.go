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
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/pbwt/pbwt"
	"github.com/grailbio/pbwt/pbwterr"
)

// tagCurrent is written by WritePanel. tagLegacy is additionally accepted
// by ReadPanel, carried over from files produced before this tool existed
// (see design notes on byte order).
const (
	tagCurrent = "PBWT"
	tagLegacy  = "GBWT"
)

// openReader opens path for reading, treating "-" as standard input.
func openReader(ctx context.Context, path string) (io.ReadCloser, error) {
	if path == "-" {
		return ioutil.NopCloser(os.Stdin), nil
	}
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, pbwterr.E(pbwterr.IO, fmt.Sprintf("open %s", path), err)
	}
	return ioutil.NopCloser(f.Reader(ctx)), nil
}

// ReadPanel reads a binary panel file (§4.6) from path, accepting both the
// "PBWT" and legacy "GBWT" tags. Fields are little-endian regardless of the
// host's native byte order (a deliberate spec decision, not a property of
// any historical file format).
func ReadPanel(ctx context.Context, path string, cfg pbwt.Config) (*pbwt.Panel, error) {
	r, err := openReader(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var header [16]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: read header", path), err)
	}
	tag := string(header[:4])
	if tag != tagCurrent && tag != tagLegacy {
		return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: unrecognized tag %q", path, tag), nil)
	}
	m := int(binary.LittleEndian.Uint32(header[4:8]))
	n := int(binary.LittleEndian.Uint32(header[8:12]))
	streamLen := int(binary.LittleEndian.Uint32(header[12:16]))
	if m < 2 || n < 0 || streamLen < 0 {
		return nil, pbwterr.E(pbwterr.Shape, fmt.Sprintf("%s: implausible header M=%d N=%d n=%d", path, m, n, streamLen), nil)
	}

	stream := make([]byte, streamLen)
	if _, err := io.ReadFull(r, stream); err != nil {
		return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: read %d-byte stream", path, streamLen), err)
	}

	return pbwt.FromStream(m, n, stream, cfg)
}

// WritePanel writes p to path in the binary panel format (§4.6), using the
// current "PBWT" tag.
func WritePanel(ctx context.Context, path string, p *pbwt.Panel) error {
	var w io.Writer
	var closer io.Closer
	if path == "-" {
		w = os.Stdout
	} else {
		f, ferr := file.Create(ctx, path)
		if ferr != nil {
			return pbwterr.E(pbwterr.IO, fmt.Sprintf("create %s", path), ferr)
		}
		w = f.Writer(ctx)
		closer = closerFunc(func() error { return f.Close(ctx) })
	}

	// errors.Once collects the write and close errors the way
	// encoding/converter/convert.go collects its iterator/writer close
	// errors: whichever happens first wins, and a close failure after a
	// successful write still surfaces.
	var accum errors.Once
	var header [16]byte
	copy(header[:4], tagCurrent)
	binary.LittleEndian.PutUint32(header[4:8], uint32(p.M))
	binary.LittleEndian.PutUint32(header[8:12], uint32(p.N))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(p.Stream)))
	if _, werr := w.Write(header[:]); werr != nil {
		accum.Set(pbwterr.E(pbwterr.IO, fmt.Sprintf("%s: write header", path), werr))
	} else if _, werr := w.Write(p.Stream); werr != nil {
		accum.Set(pbwterr.E(pbwterr.IO, fmt.Sprintf("%s: write stream", path), werr))
	}
	if closer != nil {
		accum.Set(closer.Close())
	}
	return accum.Err()
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
