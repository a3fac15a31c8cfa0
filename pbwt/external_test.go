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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcherAgreesWithMatchingHaplotype(t *testing.T) {
	cols := s1Haplotypes()
	p := buildPanel(t, Config{}, cols)
	mt, err := NewMatcher(p)
	require.NoError(t, err)

	// Querying with haplotype 0's own sequence must report a full-length
	// match against haplotype 0 covering the entire panel.
	z := make([]byte, p.N)
	for k := 0; k < p.N; k++ {
		z[k] = cols[k][0]
	}
	var matches []Match
	err = mt.Match(99, z, func(m Match) error {
		matches = append(matches, m)
		return nil
	})
	require.NoError(t, err)

	foundSelf := false
	for _, m := range matches {
		assert.Equal(t, 99, m.I)
		assert.Less(t, m.Start, m.End)
		if m.J == 0 && m.Start == 0 && m.End == p.N {
			foundSelf = true
		}
	}
	assert.True(t, foundSelf, "expected a full-length match against haplotype 0")
}

func TestMatcherInvariantsRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 15; trial++ {
		m := 4 + rng.Intn(6)
		n := 8 + rng.Intn(15)
		cols := randomHaplotypes(rng, m, n)
		p := buildPanel(t, Config{}, cols)
		hm, err := NewHaplotypeMatrix(p)
		require.NoError(t, err)
		mt, err := NewMatcher(p)
		require.NoError(t, err)

		z := make([]byte, n)
		for k := 0; k < n; k++ {
			if rng.Float64() < 0.5 {
				z[k] = 1
			}
		}
		err = mt.Match(0, z, func(match Match) error {
			assert.Less(t, match.Start, match.End)
			for k := match.Start; k < match.End; k++ {
				assert.Equal(t, z[k], hm.Allele(k, match.J))
			}
			return nil
		})
		require.NoError(t, err)
	}
}
