//
// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package rand provides the seedable source of randomness used by the noise
// mechanisms.
//
// A Source is statistically sound but not cryptographically secure. Sources
// created with the same seed produce the same sequence, which keeps
// regression tests reproducible. The default source is seeded from
// crypto/rand at start-up.
package rand

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"sync"

	log "github.com/golang/glog"
	exprand "golang.org/x/exp/rand"
)

var defaultSource = NewSecureSource()

// Source is a goroutine-safe pseudorandom source. It implements
// golang.org/x/exp/rand.Source, so it can drive gonum distributions directly.
type Source struct {
	mu  sync.Mutex
	src exprand.Source
}

// NewSource returns a Source seeded with seed.
func NewSource(seed uint64) *Source {
	return &Source{src: exprand.NewSource(seed)}
}

// NewSecureSource returns a Source seeded from crypto/rand.
func NewSecureSource() *Source {
	var r [8]uint8
	if _, err := cryptorand.Read(r[:]); err != nil {
		log.Fatalf("out of randomness, should never happen: %v", err)
	}
	return NewSource(binary.LittleEndian.Uint64(r[:]))
}

// Default returns the process-wide Source used when callers do not supply one.
func Default() *Source {
	return defaultSource
}

// Uint64 returns a uniformly random uint64.
func (s *Source) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

// Seed resets the source to the sequence determined by seed.
func (s *Source) Seed(seed uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// Uniform returns a float64 from the open interval (0,1).
func (s *Source) Uniform() float64 {
	for {
		// 53 random bits give every representable multiple of 2⁻⁵³ in [0,1).
		r := float64(s.Uint64()>>11) / (1 << 53)
		if r != 0 {
			return r
		}
	}
}
