// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package circular provides small sizing helpers originally written for
// sliding-window data structures over sorted genomic files. pbwt reuses
// NextExp2 for one thing only: picking geometric growth sizes for the
// panel's append-only column stream buffer.
package circular
