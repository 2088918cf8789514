package sim

import (
	"hash/fnv"
	"math/rand"
	"time"
)

// Names of the random streams used inside this module.
const (
	SubsystemKernel = "kernel"
)

// RandomSource hands out deterministically seeded random streams. Every
// subsystem gets its own stream derived from the master seed, so adding a
// consumer does not perturb the numbers another consumer sees.
//
// RandomSource is not thread-safe.
type RandomSource struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewRandomSource creates a RandomSource from a master seed.
func NewRandomSource(seed int64) *RandomSource {
	return &RandomSource{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// NewTimeSeededRandomSource creates a RandomSource seeded from the wall clock.
// Use Seed to report the seed so that a run can be reproduced.
func NewTimeSeededRandomSource() *RandomSource {
	return NewRandomSource(time.Now().UnixNano())
}

// Seed returns the master seed.
func (r *RandomSource) Seed() int64 {
	return r.seed
}

// ForSubsystem returns the stream of the named subsystem. The same name always
// returns the same stream.
func (r *RandomSource) ForSubsystem(name string) *rand.Rand {
	if rng, ok := r.subsystems[name]; ok {
		return rng
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	derived := r.seed ^ int64(h.Sum64())

	rng := rand.New(rand.NewSource(derived))
	r.subsystems[name] = rng

	return rng
}
