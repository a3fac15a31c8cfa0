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
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io/ioutil"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/pbwt/pbwt"
	"github.com/grailbio/pbwt/pbwterr"
	"github.com/klauspost/compress/gzip"
	"github.com/minio/highwayhash"
	"v.io/x/lib/vlog"
)

// checkpointKey is a fixed, arbitrary 32-byte HighwayHash key. It need not
// be secret: the checksum only guards against a half-written file, not
// tampering.
var checkpointKey = [32]byte{
	'p', 'b', 'w', 't', '-', 'c', 'h', 'e', 'c', 'k', 'p', 'o', 'i', 'n', 't', 0,
	1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
}

const checkpointTag = "PBWK"

// Checkpointer writes rotating snapshots of a panel under construction to
// "<baseName>_A" and "<baseName>_B" in turn, so a crash mid-write leaves the
// other, previously-completed slot intact (§4.6).
type Checkpointer struct {
	ctx      context.Context
	baseName string
	every    int
	compress bool
	next     int // 0 or 1, which rotating slot to write next
}

// NewCheckpointer returns a Checkpointer writing under baseName. every <= 0
// disables checkpointing; Maybe then never writes.
func NewCheckpointer(ctx context.Context, baseName string, every int, compress bool) *Checkpointer {
	return &Checkpointer{ctx: ctx, baseName: baseName, every: every, compress: compress}
}

func (c *Checkpointer) slotPath(slot int) string {
	if slot == 0 {
		return c.baseName + "_A"
	}
	return c.baseName + "_B"
}

// Maybe writes a checkpoint of p if nSites is a positive multiple of the
// configured interval.
func (c *Checkpointer) Maybe(p *pbwt.Panel, nSites int) error {
	if c.every <= 0 || nSites == 0 || nSites%c.every != 0 {
		return nil
	}
	path := c.slotPath(c.next)
	c.next = 1 - c.next
	log.Printf("pbwt: writing checkpoint %s at %d sites", path, nSites)
	vlog.VI(1).Infof("checkpoint %s: M=%d N=%d compress=%v", path, p.M, p.N, c.compress)
	return writeCheckpoint(c.ctx, path, p, c.compress)
}

// frame is tag(4) + M(4) + N(4) + streamLen(4) + stream: the data a
// checkpoint's trailing checksum covers.
func buildFrame(p *pbwt.Panel) []byte {
	frame := make([]byte, 16, 16+len(p.Stream))
	copy(frame[:4], checkpointTag)
	binary.LittleEndian.PutUint32(frame[4:8], uint32(p.M))
	binary.LittleEndian.PutUint32(frame[8:12], uint32(p.N))
	binary.LittleEndian.PutUint32(frame[12:16], uint32(len(p.Stream)))
	return append(frame, p.Stream...)
}

func writeCheckpoint(ctx context.Context, path string, p *pbwt.Panel, compress bool) (err error) {
	f, ferr := file.Create(ctx, path)
	if ferr != nil {
		return pbwterr.E(pbwterr.IO, fmt.Sprintf("create %s", path), ferr)
	}
	defer func() {
		if cerr := f.Close(ctx); err == nil {
			err = cerr
		}
	}()

	frame := buildFrame(p)
	sum := highwayhash.Sum64(frame, checkpointKey[:])
	var trailer [8]byte
	binary.LittleEndian.PutUint64(trailer[:], sum)

	w := f.Writer(ctx)
	if compress {
		gz := gzip.NewWriter(w)
		if _, werr := gz.Write(frame); werr != nil {
			return pbwterr.E(pbwterr.IO, fmt.Sprintf("%s: gzip write frame", path), werr)
		}
		if _, werr := gz.Write(trailer[:]); werr != nil {
			return pbwterr.E(pbwterr.IO, fmt.Sprintf("%s: gzip write trailer", path), werr)
		}
		return gz.Close()
	}
	if _, werr := w.Write(frame); werr != nil {
		return pbwterr.E(pbwterr.IO, fmt.Sprintf("%s: write frame", path), werr)
	}
	if _, werr := w.Write(trailer[:]); werr != nil {
		return pbwterr.E(pbwterr.IO, fmt.Sprintf("%s: write trailer", path), werr)
	}
	return nil
}

// readCheckpointFile reads and validates a single checkpoint file, returning
// an error if the file is missing, truncated, or fails its checksum.
func readCheckpointFile(ctx context.Context, path string, cfg pbwt.Config) (*pbwt.Panel, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, pbwterr.E(pbwterr.IO, fmt.Sprintf("open %s", path), err)
	}
	defer f.Close(ctx) // nolint: errcheck

	raw, err := ioutil.ReadAll(f.Reader(ctx))
	if err != nil {
		return nil, pbwterr.E(pbwterr.IO, fmt.Sprintf("%s: read", path), err)
	}

	// A gzip-compressed checkpoint starts with the gzip magic; the raw tag
	// never collides with it, so sniffing the first two bytes is enough to
	// tell them apart without a separate on-disk flag.
	var all []byte
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		gz, gerr := gzip.NewReader(bytes.NewReader(raw))
		if gerr != nil {
			return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: gzip header", path), gerr)
		}
		defer gz.Close() // nolint: errcheck
		all, err = ioutil.ReadAll(gz)
		if err != nil {
			return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: gzip body", path), err)
		}
	} else {
		all = raw
	}

	if len(all) < 16+8 {
		return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: truncated checkpoint", path), nil)
	}
	frame, trailer := all[:len(all)-8], all[len(all)-8:]
	if string(frame[:4]) != checkpointTag {
		return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: not a checkpoint file", path), nil)
	}
	wantSum := binary.LittleEndian.Uint64(trailer)
	gotSum := highwayhash.Sum64(frame, checkpointKey[:])
	if gotSum != wantSum {
		return nil, pbwterr.E(pbwterr.Invariant, fmt.Sprintf("%s: checksum mismatch, checkpoint is corrupt", path), nil)
	}

	m := int(binary.LittleEndian.Uint32(frame[4:8]))
	n := int(binary.LittleEndian.Uint32(frame[8:12]))
	streamLen := int(binary.LittleEndian.Uint32(frame[12:16]))
	stream := frame[16:]
	if len(stream) != streamLen {
		return nil, pbwterr.E(pbwterr.Format, fmt.Sprintf("%s: header says %d stream bytes, frame has %d", path, streamLen, len(stream)), nil)
	}
	return pbwt.FromStream(m, n, stream, cfg)
}

// ReadCheckpoint loads a coherent checkpoint for baseName. It reads slot _A
// and returns it if it passes its checksum; if _A is missing or fails its
// checksum it falls back to _B, so that at least one coherent snapshot
// survives a crash mid-write. It does not compare the two slots to find the
// more recently written one.
func ReadCheckpoint(ctx context.Context, baseName string, cfg pbwt.Config) (*pbwt.Panel, error) {
	c := &Checkpointer{baseName: baseName}
	var errs []error
	for _, slot := range []int{0, 1} {
		p, err := readCheckpointFile(ctx, c.slotPath(slot), cfg)
		if err == nil {
			return p, nil
		}
		errs = append(errs, err)
		log.Error.Printf("checkpoint: %s: %v", c.slotPath(slot), err)
	}
	return nil, pbwterr.E(pbwterr.IO, fmt.Sprintf("%s: no coherent checkpoint in either rotation slot", baseName), errs[len(errs)-1])
}
