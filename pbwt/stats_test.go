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

package pbwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStatsBasic(t *testing.T) {
	cols := s1Haplotypes()
	p := buildPanel(t, Config{}, cols)
	stats, err := ComputeStats(p, 0)
	require.NoError(t, err)
	assert.Equal(t, p.N, stats.Sites)
	assert.Equal(t, p.M, stats.Haplotypes)
	assert.Equal(t, len(p.Stream), stats.EncodedBytes)
	assert.True(t, stats.MeanMAF > 0 && stats.MeanMAF <= 0.5)
}

func TestComputeStatsParallelismMatchesSerial(t *testing.T) {
	cols := s1Haplotypes()
	p := buildPanel(t, Config{}, cols)
	serial, err := ComputeStats(p, 1)
	require.NoError(t, err)
	parallel, err := ComputeStats(p, 4)
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}
