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

func TestHaplotypeMatrixMatchesSource(t *testing.T) {
	cols := s1Haplotypes()
	p := buildPanel(t, Config{}, cols)
	hm, err := NewHaplotypeMatrix(p)
	require.NoError(t, err)
	assert.Equal(t, p.M, hm.M)
	assert.Equal(t, p.N, hm.N)
	for k, col := range cols {
		for hap, v := range col {
			assert.Equal(t, v, hm.Allele(k, hap))
		}
	}
}

func TestHaplotypeMatrixEqual(t *testing.T) {
	cols := s1Haplotypes()
	p1 := buildPanel(t, Config{}, cols)
	p2 := buildPanel(t, Config{}, cols)
	hm1, err := NewHaplotypeMatrix(p1)
	require.NoError(t, err)
	hm2, err := NewHaplotypeMatrix(p2)
	require.NoError(t, err)
	assert.True(t, hm1.Equal(hm2))

	cols2 := s1Haplotypes()
	cols2[0][0] = 1 - cols2[0][0]
	p3 := buildPanel(t, Config{}, cols2)
	hm3, err := NewHaplotypeMatrix(p3)
	require.NoError(t, err)
	assert.False(t, hm1.Equal(hm3))
}
